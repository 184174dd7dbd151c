package post

import (
	"context"

	"github.com/samber/lo"
	"go.opencensus.io/stats"
	"go.opencensus.io/tag"
	"golang.org/x/xerrors"

	"github.com/filecoin-project/go-fil-post/lib/proof"
)

// PartitionVanillaProofs reshapes per sector vanilla proofs into partitionCount circuit shaped
// partitions. The full set is verified before it is returned.
func PartitionVanillaProofs(cfg *proof.PoStConfig, pp *proof.PublicParams, pi *proof.PublicInputs, partitionCount int, vanillaProofs []proof.FallbackPoStSectorProof) ([]proof.VanillaProof, error) {
	log.Infow("partition_vanilla_proofs:start", "type", cfg.PoStType, "partitions", partitionCount, "sectors", len(pi.Sectors))

	if cfg.PoStType != proof.PoStTypeWindow && cfg.PoStType != proof.PoStTypeWinning {
		return nil, xerrors.Errorf("invalid post config type %s: %w", cfg.PoStType, proof.ErrInvalidConfig)
	}
	if pp.SectorCount <= 0 {
		return nil, xerrors.Errorf("sector count %d must be positive: %w", pp.SectorCount, proof.ErrInvalidConfig)
	}

	if len(pi.Sectors) > partitionCount*pp.SectorCount {
		return nil, xerrors.Errorf("cannot prove the provided number of sectors: %d > %d * %d: %w", len(pi.Sectors), partitionCount, pp.SectorCount, proof.ErrCapacityExceeded)
	}

	var partitions []proof.VanillaProof

	switch cfg.PoStType {
	case proof.PoStTypeWindow:
		for j, chunk := range lo.Chunk(pi.Sectors, pp.SectorCount) {
			pij := *pi
			pij.Sectors = chunk
			pij = pij.WithPartition(j)

			p, err := SinglePartitionVanillaProofs(cfg, pp, &pij, vanillaProofs)
			if err != nil {
				return nil, xerrors.Errorf("partition %d: %w", j, err)
			}
			partitions = append(partitions, p)
		}
	case proof.PoStTypeWinning:
		for j, chunk := range lo.Chunk(vanillaProofs, pp.SectorCount) {
			pij := pi.WithPartition(j)

			p, err := SinglePartitionVanillaProofs(cfg, pp, &pij, chunk)
			if err != nil {
				return nil, xerrors.Errorf("partition %d: %w", j, err)
			}
			partitions = append(partitions, p)
		}
	}

	log.Infow("partition_vanilla_proofs:finish", "partitions", len(partitions))

	ok, err := proof.FallbackPoSt{}.VerifyAllPartitions(pp, pi, partitions)
	if err != nil {
		return nil, xerrors.Errorf("verifying partitioned vanilla proofs: %w", err)
	}
	if !ok {
		recordVerificationFailure(cfg)
		return nil, xerrors.Errorf("partitioned vanilla proofs failed to verify: %w", proof.ErrProofSetVerificationFailed)
	}

	return partitions, nil
}

// SinglePartitionVanillaProofs builds partition *pi.K. Window partitions collect the sector
// proofs of pi.Sectors, Winning partitions unroll the challenges of a single sector into one
// entry each. Both are padded to pp.SectorCount by repeating the last entry and verified.
func SinglePartitionVanillaProofs(cfg *proof.PoStConfig, pp *proof.PublicParams, pi *proof.PublicInputs, vanillaProofs []proof.FallbackPoStSectorProof) (proof.VanillaProof, error) {
	log.Infow("single_partition_vanilla_proofs:start", "type", cfg.PoStType)

	if pi.K == nil {
		return proof.VanillaProof{}, xerrors.Errorf("must have a partition index: %w", proof.ErrMissingPartitionIndex)
	}
	k := *pi.K
	log.Debugf("processing partition: %d", k)

	if cfg.PoStType != proof.PoStTypeWindow && cfg.PoStType != proof.PoStTypeWinning {
		return proof.VanillaProof{}, xerrors.Errorf("invalid post config type %s: %w", cfg.PoStType, proof.ErrInvalidConfig)
	}
	if len(pi.Sectors) > pp.SectorCount {
		return proof.VanillaProof{}, xerrors.Errorf("partition %d: %d sectors, can only prove %d in a single partition: %w", k, len(pi.Sectors), pp.SectorCount, proof.ErrCapacityExceeded)
	}

	var sectorProofs []proof.SectorProof

	switch cfg.PoStType {
	case proof.PoStTypeWindow:
		sectorProofs = make([]proof.SectorProof, 0, pp.SectorCount)
		for _, pub := range pi.Sectors {
			vp, ok := lo.Find(vanillaProofs, func(p proof.FallbackPoStSectorProof) bool {
				return p.SectorID == pub.ID
			})
			if !ok {
				return proof.VanillaProof{}, xerrors.Errorf("partition %d: no vanilla proof for sector %d: %w", k, pub.ID, proof.ErrSectorProofNotFound)
			}
			sectorProofs = append(sectorProofs, vp.VanillaProof.Sectors...)
		}
		if len(sectorProofs) > pp.SectorCount {
			return proof.VanillaProof{}, xerrors.Errorf("partition %d: %d sector proofs exceed circuit arity %d: %w", k, len(sectorProofs), pp.SectorCount, proof.ErrShapeMismatch)
		}

	case proof.PoStTypeWinning:
		if len(vanillaProofs) != 1 {
			return proof.VanillaProof{}, xerrors.Errorf("winning partition %d: got %d vanilla proofs, expected 1: %w", k, len(vanillaProofs), proof.ErrShapeMismatch)
		}
		sectors := vanillaProofs[0].VanillaProof.Sectors
		if len(sectors) != 1 {
			return proof.VanillaProof{}, xerrors.Errorf("winning partition %d: got %d sector proofs, expected 1: %w", k, len(sectors), proof.ErrShapeMismatch)
		}
		if cfg.SectorCount != len(sectors) {
			return proof.VanillaProof{}, xerrors.Errorf("winning partition %d: config sector count %d != %d sector proofs: %w", k, cfg.SectorCount, len(sectors), proof.ErrShapeMismatch)
		}

		cur := sectors[0]
		sectorProofs = make([]proof.SectorProof, 0, cfg.ChallengeCount)
		for _, ip := range cur.InclusionProofs {
			sectorProofs = append(sectorProofs, proof.SectorProof{
				InclusionProofs: []proof.MerkleProof[proof.PoseidonDomain]{ip},
				CommC:           cur.CommC,
				CommRLast:       cur.CommRLast,
			})
		}
	}

	if len(sectorProofs) == 0 {
		return proof.VanillaProof{}, xerrors.Errorf("partition %d: no sector proofs: %w", k, proof.ErrInvalidInput)
	}
	sectorProofs = padToLength(sectorProofs, pp.SectorCount)

	if cfg.PoStType == proof.PoStTypeWinning && len(sectorProofs) != cfg.ChallengeCount {
		return proof.VanillaProof{}, xerrors.Errorf("winning partition %d: %d sector proofs, expected %d challenges: %w", k, len(sectorProofs), cfg.ChallengeCount, proof.ErrShapeMismatch)
	}

	partition := proof.VanillaProof{Sectors: sectorProofs}

	log.Infow("single_partition_vanilla_proofs:finish", "partition", k, "entries", len(sectorProofs))

	ok, err := proof.FallbackPoSt{}.Verify(pp, pi, &partition)
	if err != nil {
		return proof.VanillaProof{}, xerrors.Errorf("verifying partition %d: %w", k, err)
	}
	if !ok {
		recordVerificationFailure(cfg)
		return proof.VanillaProof{}, xerrors.Errorf("partition %d failed to verify: %w", k, proof.ErrPartitionVerificationFailed)
	}

	_ = stats.RecordWithTags(context.Background(), []tag.Mutator{
		tag.Upsert(PoStTypeTag, cfg.PoStType.String()),
	}, PoStMeasures.Partitions.M(1))

	return partition, nil
}

// padToLength extends s to n entries by repeating its last entry. s must not be empty.
func padToLength[T any](s []T, n int) []T {
	for len(s) < n {
		s = append(s, s[len(s)-1])
	}
	return s
}

func recordVerificationFailure(cfg *proof.PoStConfig) {
	_ = stats.RecordWithTags(context.Background(), []tag.Mutator{
		tag.Upsert(PoStTypeTag, cfg.PoStType.String()),
	}, PoStMeasures.VerificationFailures.M(1))
}
