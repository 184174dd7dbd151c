package post

import (
	"github.com/filecoin-project/go-fil-post/lib/proof"
)

// MergeWindowPoStPartitionProofs concatenates partition proofs in order.
func MergeWindowPoStPartitionProofs(proofs []proof.PartitionSnarkProof) (proof.SnarkProof, error) {
	out := make(proof.SnarkProof, 0, len(proofs)*proof.SinglePartitionProofLen)
	for _, p := range proofs {
		out = append(out, p...)
	}
	return out, nil
}
