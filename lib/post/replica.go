package post

import (
	"os"

	"golang.org/x/xerrors"

	"github.com/filecoin-project/go-state-types/abi"

	"github.com/filecoin-project/go-fil-post/lib/proof"
)

// MerkleTreeHandle gives access to the tree-r-last of a sealed sector.
type MerkleTreeHandle interface {
	GenProof(leaf uint64) (proof.MerkleProof[proof.PoseidonDomain], error)
	Root() proof.PoseidonDomain
}

// PrivateReplicaInfo is the prover side view of a sealed sector.
type PrivateReplicaInfo interface {
	MerkleTree(ssize abi.SectorSize) (MerkleTreeHandle, error)
	SafeCommR() (proof.PoseidonDomain, error)
	SafeCommC() (proof.PoseidonDomain, error)
	SafeCommRLast() (proof.PoseidonDomain, error)
}

// PrivateReplica is a sealed sector on disk: the replica file, whose nodes are the leaves of
// tree-r-last, and the cache directory holding p_aux.
type PrivateReplica struct {
	ReplicaPath string
	CachePath   string
	CommR       [32]byte
}

var _ PrivateReplicaInfo = &PrivateReplica{}

func (r *PrivateReplica) MerkleTree(ssize abi.SectorSize) (MerkleTreeHandle, error) {
	f, err := os.Open(r.ReplicaPath)
	if err != nil {
		return nil, xerrors.Errorf("opening replica: %w", err)
	}
	defer func() {
		_ = f.Close()
	}()

	st, err := f.Stat()
	if err != nil {
		return nil, xerrors.Errorf("stat replica: %w", err)
	}
	if st.Size() != int64(ssize) {
		return nil, xerrors.Errorf("replica %s is %d bytes, expected sector size %d", r.ReplicaPath, st.Size(), ssize)
	}

	tree, err := proof.BuildPoseidonMemTree(f, ssize)
	if err != nil {
		return nil, xerrors.Errorf("building tree-r-last: %w", err)
	}
	return tree, nil
}

func (r *PrivateReplica) SafeCommR() (proof.PoseidonDomain, error) {
	return proof.AsSafeCommitment(r.CommR, "comm_r")
}

func (r *PrivateReplica) SafeCommC() (proof.PoseidonDomain, error) {
	commC, _, err := proof.ReadPAux(r.CachePath)
	if err != nil {
		return proof.PoseidonDomain{}, xerrors.Errorf("reading p_aux: %w", err)
	}
	return proof.AsSafeCommitment(commC, "comm_c")
}

// SafeCommRLast reads comm_r_last from p_aux. When the cache also holds tree-r-last files their
// roots must hash to the same comm_r_last.
func (r *PrivateReplica) SafeCommRLast() (proof.PoseidonDomain, error) {
	_, commRLast, err := proof.ReadPAux(r.CachePath)
	if err != nil {
		return proof.PoseidonDomain{}, xerrors.Errorf("reading p_aux: %w", err)
	}
	safe, err := proof.AsSafeCommitment(commRLast, "comm_r_last")
	if err != nil {
		return proof.PoseidonDomain{}, err
	}

	roots, err := proof.ReadTreeRLastRoots(r.CachePath)
	if err != nil {
		return proof.PoseidonDomain{}, xerrors.Errorf("reading tree-r-last roots: %w", err)
	}
	if len(roots) == 0 {
		return safe, nil
	}
	fromTrees, err := proof.CommRLastFromTreeRLastRoots(roots)
	if err != nil {
		return proof.PoseidonDomain{}, err
	}
	if fromTrees != safe {
		return proof.PoseidonDomain{}, xerrors.Errorf("p_aux comm_r_last %x does not match tree-r-last roots %x: %w", safe[:], fromTrees[:], proof.ErrInvalidCommitment)
	}
	return safe, nil
}
