package proof

import (
	"encoding/binary"
	"io"

	"golang.org/x/xerrors"
)

// Merkle proofs are encoded bincode style: little-endian u64 lengths, u32 enum tags and raw
// 32 byte domain elements.

const (
	proofTagSingle uint32 = iota
	proofTagSub
	proofTagTop
)

func EncodeMerkleProof[H HasherDomain](w io.Writer, m MerkleProof[H]) error {
	pd := m.Data
	switch {
	case pd.Single != nil:
		if err := WriteLE(w, proofTagSingle); err != nil {
			return xerrors.Errorf("write Single tag: %w", err)
		}
		if err := EncodeHasherDomain(w, pd.Single.Root); err != nil {
			return xerrors.Errorf("encode Single root: %w", err)
		}
		if err := EncodeHasherDomain(w, pd.Single.Leaf); err != nil {
			return xerrors.Errorf("encode Single leaf: %w", err)
		}
		return EncodeInclusionPath(w, pd.Single.Path)
	case pd.Sub != nil:
		if err := WriteLE(w, proofTagSub); err != nil {
			return xerrors.Errorf("write Sub tag: %w", err)
		}
		if err := EncodeInclusionPath(w, pd.Sub.BaseProof); err != nil {
			return xerrors.Errorf("encode Sub base path: %w", err)
		}
		if err := EncodeInclusionPath(w, pd.Sub.SubProof); err != nil {
			return xerrors.Errorf("encode Sub sub path: %w", err)
		}
		if err := EncodeHasherDomain(w, pd.Sub.Root); err != nil {
			return xerrors.Errorf("encode Sub root: %w", err)
		}
		return EncodeHasherDomain(w, pd.Sub.Leaf)
	case pd.Top != nil:
		if err := WriteLE(w, proofTagTop); err != nil {
			return xerrors.Errorf("write Top tag: %w", err)
		}
		for _, p := range []InclusionPath[H]{pd.Top.BaseProof, pd.Top.SubProof, pd.Top.TopProof} {
			if err := EncodeInclusionPath(w, p); err != nil {
				return xerrors.Errorf("encode Top path: %w", err)
			}
		}
		if err := EncodeHasherDomain(w, pd.Top.Root); err != nil {
			return xerrors.Errorf("encode Top root: %w", err)
		}
		return EncodeHasherDomain(w, pd.Top.Leaf)
	default:
		return xerrors.Errorf("proof data is nil for Single, Sub, and Top: %w", ErrInvalidInput)
	}
}

func DecodeMerkleProof[H HasherDomain](r io.Reader) (MerkleProof[H], error) {
	var out MerkleProof[H]
	var err error

	tag, err := ReadLE[uint32](r)
	if err != nil {
		return out, xerrors.Errorf("read proof type: %w", err)
	}

	switch tag {
	case proofTagSingle:
		sp := new(SingleProof[H])
		if sp.Root, err = DecodeHasherDomain[H](r); err != nil {
			return out, xerrors.Errorf("decode Single root: %w", err)
		}
		if sp.Leaf, err = DecodeHasherDomain[H](r); err != nil {
			return out, xerrors.Errorf("decode Single leaf: %w", err)
		}
		if sp.Path, err = DecodeInclusionPath[H](r); err != nil {
			return out, xerrors.Errorf("decode Single path: %w", err)
		}
		out.Data.Single = sp
	case proofTagSub:
		sp := new(SubProof[H])
		if sp.BaseProof, err = DecodeInclusionPath[H](r); err != nil {
			return out, xerrors.Errorf("decode Sub base path: %w", err)
		}
		if sp.SubProof, err = DecodeInclusionPath[H](r); err != nil {
			return out, xerrors.Errorf("decode Sub sub path: %w", err)
		}
		if sp.Root, err = DecodeHasherDomain[H](r); err != nil {
			return out, xerrors.Errorf("decode Sub root: %w", err)
		}
		if sp.Leaf, err = DecodeHasherDomain[H](r); err != nil {
			return out, xerrors.Errorf("decode Sub leaf: %w", err)
		}
		out.Data.Sub = sp
	case proofTagTop:
		tp := new(TopProof[H])
		if tp.BaseProof, err = DecodeInclusionPath[H](r); err != nil {
			return out, xerrors.Errorf("decode Top base path: %w", err)
		}
		if tp.SubProof, err = DecodeInclusionPath[H](r); err != nil {
			return out, xerrors.Errorf("decode Top sub path: %w", err)
		}
		if tp.TopProof, err = DecodeInclusionPath[H](r); err != nil {
			return out, xerrors.Errorf("decode Top top path: %w", err)
		}
		if tp.Root, err = DecodeHasherDomain[H](r); err != nil {
			return out, xerrors.Errorf("decode Top root: %w", err)
		}
		if tp.Leaf, err = DecodeHasherDomain[H](r); err != nil {
			return out, xerrors.Errorf("decode Top leaf: %w", err)
		}
		out.Data.Top = tp
	default:
		return out, xerrors.Errorf("unknown proof type %d: %w", tag, ErrInvalidInput)
	}

	return out, nil
}

func EncodeInclusionPath[H HasherDomain](w io.Writer, ip InclusionPath[H]) error {
	if err := WriteLE(w, uint64(len(ip.Path))); err != nil {
		return xerrors.Errorf("writing path length: %w", err)
	}
	for _, el := range ip.Path {
		if err := WriteLE(w, uint64(len(el.Hashes))); err != nil {
			return xerrors.Errorf("writing number of path-element hashes: %w", err)
		}
		for _, h := range el.Hashes {
			if err := EncodeHasherDomain(w, h); err != nil {
				return xerrors.Errorf("encode path-element hash: %w", err)
			}
		}
		if err := WriteLE(w, el.Index); err != nil {
			return xerrors.Errorf("writing path-element index: %w", err)
		}
	}
	return nil
}

// maxPathElements bounds allocations driven by untrusted length prefixes.
const maxPathElements = 1 << 10

func DecodeInclusionPath[H HasherDomain](r io.Reader) (InclusionPath[H], error) {
	var out InclusionPath[H]

	n, err := ReadLE[uint64](r)
	if err != nil {
		return out, xerrors.Errorf("read number of path elements: %w", err)
	}
	if n > maxPathElements {
		return out, xerrors.Errorf("path with %d elements: %w", n, ErrInvalidInput)
	}

	out.Path = make([]PathElement[H], n)
	for i := range out.Path {
		nh, err := ReadLE[uint64](r)
		if err != nil {
			return out, xerrors.Errorf("read number of hashes: %w", err)
		}
		if nh > maxPathElements {
			return out, xerrors.Errorf("path element with %d hashes: %w", nh, ErrInvalidInput)
		}

		out.Path[i].Hashes = make([]H, nh)
		for j := range out.Path[i].Hashes {
			if out.Path[i].Hashes[j], err = DecodeHasherDomain[H](r); err != nil {
				return out, xerrors.Errorf("decode path element %d hash %d: %w", i, j, err)
			}
		}

		if out.Path[i].Index, err = ReadLE[uint64](r); err != nil {
			return out, xerrors.Errorf("read index: %w", err)
		}
	}

	return out, nil
}

func EncodeHasherDomain[H HasherDomain](w io.Writer, h H) error {
	if err := binary.Write(w, binary.LittleEndian, &h); err != nil {
		return xerrors.Errorf("failed to encode hasher domain: %w", err)
	}
	return nil
}

func DecodeHasherDomain[H HasherDomain](r io.Reader) (H, error) {
	var out H
	if err := binary.Read(r, binary.LittleEndian, &out); err != nil {
		return out, xerrors.Errorf("failed to decode hasher domain: %w", err)
	}
	return out, nil
}
