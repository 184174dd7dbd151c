package proof

import (
	"github.com/consensys/gnark-crypto/ecc/bls12-381/fr"
	"golang.org/x/xerrors"
)

// Commitment is a 32 byte little-endian encoded commitment (comm_r, comm_d, randomness, ..).
type Commitment = [32]byte

// AsSafeCommitment checks that comm is the canonical little-endian encoding of a BLS12-381
// scalar (strictly below the modulus) and returns it as a domain element.
func AsSafeCommitment(comm Commitment, commitmentName string) (PoseidonDomain, error) {
	if _, err := fr.LittleEndian.Element(&comm); err != nil {
		return PoseidonDomain{}, xerrors.Errorf("invalid commitment (%s): %s: %w", commitmentName, err, ErrInvalidCommitment)
	}
	return PoseidonDomain(comm), nil
}

// CommitmentFromFr encodes a field element as a 32 byte little-endian commitment.
func CommitmentFromFr(e fr.Element) Commitment {
	var out Commitment
	fr.LittleEndian.PutElement(&out, e)
	return out
}

// DomainFromFr is CommitmentFromFr for the tree domain type.
func DomainFromFr(e fr.Element) PoseidonDomain {
	return PoseidonDomain(CommitmentFromFr(e))
}

// Fr decodes the domain element, failing on non-canonical encodings.
func (p PoseidonDomain) Fr() (fr.Element, error) {
	b := [32]byte(p)
	e, err := fr.LittleEndian.Element(&b)
	if err != nil {
		return fr.Element{}, xerrors.Errorf("decoding field element %x: %s: %w", p[:], err, ErrInvalidCommitment)
	}
	return e, nil
}
