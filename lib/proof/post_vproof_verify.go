package proof

import (
	logging "github.com/ipfs/go-log/v2"
	"github.com/samber/lo"
	"golang.org/x/sync/errgroup"
	"golang.org/x/xerrors"
)

var log = logging.Logger("proof")

// FallbackPoSt checks vanilla (pre-SNARK) fallback PoSt partition proofs: the comm_r binding
// of every sector and the merkle inclusion paths of every re-derived challenge.
type FallbackPoSt struct{}

// Verify checks a single partition. pi.Sectors holds the public sectors of that partition and
// pi.K its index; padding entries past len(pi.Sectors) are not checked.
func (f FallbackPoSt) Verify(pp *PublicParams, pi *PublicInputs, partition *VanillaProof) (bool, error) {
	k := 0
	if pi.K != nil {
		k = *pi.K
	}
	if len(pi.Sectors) > pp.SectorCount {
		return false, xerrors.Errorf("partition %d has %d sectors, max %d: %w", k, len(pi.Sectors), pp.SectorCount, ErrCapacityExceeded)
	}

	return f.verifyPartition(pp, pi, k, pi.Sectors, partition)
}

// VerifyAllPartitions checks a full set of partitions against all public sectors.
func (f FallbackPoSt) VerifyAllPartitions(pp *PublicParams, pi *PublicInputs, partitions []VanillaProof) (bool, error) {
	if len(pi.Sectors) > len(partitions)*pp.SectorCount {
		return false, xerrors.Errorf("inconsistent number of sectors: %d > %d * %d: %w", len(pi.Sectors), len(partitions), pp.SectorCount, ErrCapacityExceeded)
	}

	for j, chunk := range lo.Chunk(pi.Sectors, pp.SectorCount) {
		ok, err := f.verifyPartition(pp, pi, j, chunk, &partitions[j])
		if err != nil || !ok {
			return ok, err
		}
	}

	return true, nil
}

func (f FallbackPoSt) verifyPartition(pp *PublicParams, pi *PublicInputs, k int, sectors []PublicSector, partition *VanillaProof) (bool, error) {
	shape, err := SectorShape(pp.SectorSize)
	if err != nil {
		return false, err
	}
	expectedPathLen, err := shape.ExpectedPathLen(pp.Leafs())
	if err != nil {
		return false, err
	}

	n := min(len(sectors), len(partition.Sectors))
	valid := make([]bool, n)

	var eg errgroup.Group
	for i := 0; i < n; i++ {
		eg.Go(func() error {
			ok, err := f.verifySector(pp, pi, uint64(k*pp.SectorCount+i), sectors[i], partition.Sectors[i], expectedPathLen)
			if err != nil {
				return xerrors.Errorf("partition %d, sector %d: %w", k, sectors[i].ID, err)
			}
			valid[i] = ok
			return nil
		})
	}
	if err := eg.Wait(); err != nil {
		return false, err
	}

	for i, ok := range valid {
		if !ok {
			log.Errorw("vanilla proof invalid", "partition", k, "sector", sectors[i].ID)
			return false, nil
		}
	}
	return true, nil
}

func (f FallbackPoSt) verifySector(pp *PublicParams, pi *PublicInputs, sectorIndex uint64, pub PublicSector, sp SectorProof, expectedPathLen int) (bool, error) {
	if len(sp.InclusionProofs) != pp.ChallengeCount {
		return false, xerrors.Errorf("unexpected number of inclusion proofs: %d != %d: %w", len(sp.InclusionProofs), pp.ChallengeCount, ErrShapeMismatch)
	}

	commRLast := sp.InclusionProofs[0].Root()
	if !checkCommR(sp.CommC, commRLast, pub.CommR) {
		log.Debugf("comm_r mismatch for sector %d", pub.ID)
		return false, nil
	}

	for n, ip := range sp.InclusionProofs {
		challengeIndex := GetChallengeIndex(pp.ApiVersion, sectorIndex, uint64(pp.ChallengeCount), uint64(n))
		leaf := GenerateLeafChallenge(pp, pi.Randomness, pub.ID, challengeIndex)

		if ip.PathLen() != expectedPathLen {
			log.Debugf("sector %d challenge %d: path length %d, expected %d", pub.ID, n, ip.PathLen(), expectedPathLen)
			return false, nil
		}
		if ip.Root() != commRLast {
			log.Debugf("sector %d challenge %d: root differs from comm_r_last", pub.ID, n)
			return false, nil
		}
		if !ValidateInclusionProof(ip, leaf) {
			log.Debugf("sector %d challenge %d: inclusion proof for leaf %d invalid", pub.ID, n, leaf)
			return false, nil
		}
	}

	return true, nil
}

// checkCommR is the fallback post condition: comm_r = PoseidonHash2(comm_c, comm_r_last).
func checkCommR(commC, commRLast, claimed PoseidonDomain) bool {
	return Hash2(commC, commRLast) == claimed
}

// ValidateInclusionProof checks that mp proves leaf index leaf and that its paths hash up to
// the claimed root.
func ValidateInclusionProof(mp MerkleProof[PoseidonDomain], leaf uint64) bool {
	if mp.PathIndex() != leaf {
		return false
	}

	cur := mp.Leaf()
	for _, p := range mp.Paths() {
		var err error
		cur, err = reconstructPath(cur, p)
		if err != nil {
			log.Debugf("reconstructing path: %s", err)
			return false
		}
	}

	return cur == mp.Root()
}

// reconstructPath merges each path element with the "Index" deciding where the current node is
// inserted among the siblings.
func reconstructPath(leaf PoseidonDomain, path InclusionPath[PoseidonDomain]) (PoseidonDomain, error) {
	cur := leaf
	for i, elem := range path.Path {
		arity := len(elem.Hashes) + 1
		idx := int(elem.Index)
		if idx >= arity {
			return PoseidonDomain{}, xerrors.Errorf("path element %d: index %d out of range for arity %d: %w", i, idx, arity, ErrInvalidInput)
		}

		combined := make([]PoseidonDomain, 0, arity)
		combined = append(combined, elem.Hashes[:idx]...)
		combined = append(combined, cur)
		combined = append(combined, elem.Hashes[idx:]...)

		var err error
		cur, err = HashNodes(combined)
		if err != nil {
			return PoseidonDomain{}, xerrors.Errorf("path element %d: %w", i, err)
		}
	}
	return cur, nil
}
