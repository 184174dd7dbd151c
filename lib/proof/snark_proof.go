package proof

import (
	bls12381 "github.com/consensys/gnark-crypto/ecc/bls12-381"
	"golang.org/x/xerrors"
)

const (
	g1CompressedLen = bls12381.SizeOfG1AffineCompressed
	g2CompressedLen = bls12381.SizeOfG2AffineCompressed

	// SinglePartitionProofLen is the size of one compressed Groth16 proof over BLS12-381.
	SinglePartitionProofLen = 2*g1CompressedLen + g2CompressedLen
)

// PartitionSnarkProof is the SNARK proof of one partition, SinglePartitionProofLen bytes.
type PartitionSnarkProof []byte

// SnarkProof is the concatenation of all partition proofs of a PoSt.
type SnarkProof []byte

type Groth16Proof struct {
	A bls12381.G1Affine
	B bls12381.G2Affine
	C bls12381.G1Affine
}

// Bytes is the canonical encoding: compressed A | B | C.
func (p *Groth16Proof) Bytes() [SinglePartitionProofLen]byte {
	var out [SinglePartitionProofLen]byte
	a, b, c := p.A.Bytes(), p.B.Bytes(), p.C.Bytes()
	copy(out[:g1CompressedLen], a[:])
	copy(out[g1CompressedLen:g1CompressedLen+g2CompressedLen], b[:])
	copy(out[g1CompressedLen+g2CompressedLen:], c[:])
	return out
}

func ParseGroth16Proof(b []byte) (*Groth16Proof, error) {
	if len(b) != SinglePartitionProofLen {
		return nil, xerrors.Errorf("groth16 proof is %d bytes, expected %d: %w", len(b), SinglePartitionProofLen, ErrInvalidInput)
	}

	var p Groth16Proof
	if _, err := p.A.SetBytes(b[:g1CompressedLen]); err != nil {
		return nil, xerrors.Errorf("decoding A: %s: %w", err, ErrInvalidInput)
	}
	if _, err := p.B.SetBytes(b[g1CompressedLen : g1CompressedLen+g2CompressedLen]); err != nil {
		return nil, xerrors.Errorf("decoding B: %s: %w", err, ErrInvalidInput)
	}
	if _, err := p.C.SetBytes(b[g1CompressedLen+g2CompressedLen:]); err != nil {
		return nil, xerrors.Errorf("decoding C: %s: %w", err, ErrInvalidInput)
	}
	return &p, nil
}

// ProofsToBytes serializes proofs back to back in their canonical encoding.
func ProofsToBytes(proofs []Groth16Proof) ([]byte, error) {
	out := make([]byte, 0, len(proofs)*SinglePartitionProofLen)
	for i := range proofs {
		b := proofs[i].Bytes()
		out = append(out, b[:]...)
	}
	if len(out) != len(proofs)*SinglePartitionProofLen {
		return nil, xerrors.Errorf("serialized %d proofs into %d bytes: %w", len(proofs), len(out), ErrProofConstruction)
	}
	return out, nil
}
