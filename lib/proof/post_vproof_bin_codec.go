package proof

import (
	"io"

	"golang.org/x/xerrors"

	"github.com/filecoin-project/go-state-types/abi"
)

// maxProofItems bounds allocations driven by untrusted length prefixes.
const maxProofItems = 1 << 16

func EncodeFallbackPoStSectorProof(w io.Writer, p FallbackPoStSectorProof) error {
	if err := WriteLE(w, uint64(p.SectorID)); err != nil {
		return xerrors.Errorf("encode sector_id: %w", err)
	}
	if err := EncodeHasherDomain(w, p.CommR); err != nil {
		return xerrors.Errorf("encode comm_r: %w", err)
	}
	if err := EncodeVanillaProof(w, p.VanillaProof); err != nil {
		return xerrors.Errorf("encode vanilla_proof: %w", err)
	}
	return nil
}

// DecodeFallbackPoStSectorProof decodes a single FallbackPoStSectorProof from the reader.
func DecodeFallbackPoStSectorProof(r io.Reader) (FallbackPoStSectorProof, error) {
	var out FallbackPoStSectorProof

	sid, err := ReadLE[uint64](r)
	if err != nil {
		return out, xerrors.Errorf("failed to decode sector_id: %w", err)
	}
	out.SectorID = abi.SectorNumber(sid)

	if out.CommR, err = DecodeHasherDomain[PoseidonDomain](r); err != nil {
		return out, xerrors.Errorf("failed to decode comm_r: %w", err)
	}

	if out.VanillaProof, err = DecodeVanillaProof(r); err != nil {
		return out, xerrors.Errorf("failed to decode vanilla_proof: %w", err)
	}

	return out, nil
}

func EncodeVanillaProof(w io.Writer, vp VanillaProof) error {
	if err := WriteLE(w, uint64(len(vp.Sectors))); err != nil {
		return xerrors.Errorf("writing sectors length: %w", err)
	}
	for i, sp := range vp.Sectors {
		if err := EncodeSectorProof(w, sp); err != nil {
			return xerrors.Errorf("encode sector proof %d: %w", i, err)
		}
	}
	return nil
}

func DecodeVanillaProof(r io.Reader) (VanillaProof, error) {
	var out VanillaProof

	n, err := ReadLE[uint64](r)
	if err != nil {
		return out, xerrors.Errorf("failed to read sectors length: %w", err)
	}
	if n > maxProofItems {
		return out, xerrors.Errorf("vanilla proof with %d sectors: %w", n, ErrInvalidInput)
	}

	out.Sectors = make([]SectorProof, n)
	for i := range out.Sectors {
		if out.Sectors[i], err = DecodeSectorProof(r); err != nil {
			return out, xerrors.Errorf("failed to decode SectorProof %d: %w", i, err)
		}
	}

	return out, nil
}

func EncodeSectorProof(w io.Writer, sp SectorProof) error {
	if err := WriteLE(w, uint64(len(sp.InclusionProofs))); err != nil {
		return xerrors.Errorf("writing inclusion_proofs length: %w", err)
	}
	for i, ip := range sp.InclusionProofs {
		if err := EncodeMerkleProof(w, ip); err != nil {
			return xerrors.Errorf("encode inclusion proof %d: %w", i, err)
		}
	}
	if err := EncodeHasherDomain(w, sp.CommC); err != nil {
		return xerrors.Errorf("encode comm_c: %w", err)
	}
	if err := EncodeHasherDomain(w, sp.CommRLast); err != nil {
		return xerrors.Errorf("encode comm_r_last: %w", err)
	}
	return nil
}

func DecodeSectorProof(r io.Reader) (SectorProof, error) {
	var out SectorProof

	n, err := ReadLE[uint64](r)
	if err != nil {
		return out, xerrors.Errorf("failed to read inclusion_proofs length: %w", err)
	}
	if n > maxProofItems {
		return out, xerrors.Errorf("sector proof with %d inclusion proofs: %w", n, ErrInvalidInput)
	}

	out.InclusionProofs = make([]MerkleProof[PoseidonDomain], n)
	for i := range out.InclusionProofs {
		if out.InclusionProofs[i], err = DecodeMerkleProof[PoseidonDomain](r); err != nil {
			return out, xerrors.Errorf("failed to decode MerkleProof %d: %w", i, err)
		}
	}

	if out.CommC, err = DecodeHasherDomain[PoseidonDomain](r); err != nil {
		return out, xerrors.Errorf("failed to decode comm_c: %w", err)
	}
	if out.CommRLast, err = DecodeHasherDomain[PoseidonDomain](r); err != nil {
		return out, xerrors.Errorf("failed to decode comm_r_last: %w", err)
	}

	return out, nil
}
