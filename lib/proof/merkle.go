package proof

import "encoding/json"

// NODE_SIZE is the size of a merkle tree node / field element in bytes.
const NODE_SIZE = 32

var testMarshal = false

type HasherDomain = any

type Sha256Domain [32]byte

func (s Sha256Domain) MarshalJSON() ([]byte, error) {
	if testMarshal {
		return json.Marshal(s[:])
	}

	return json.Marshal([32]byte(s))
}

type PoseidonDomain [32]byte // Fr, little-endian

func (p PoseidonDomain) MarshalJSON() ([]byte, error) {
	if testMarshal {
		return json.Marshal(p[:])
	}

	return json.Marshal([32]byte(p))
}

// MerkleProof is an inclusion proof in a (possibly compound) merkle tree. Exactly one of the
// Single/Sub/Top variants is set, depending on the tree shape.
type MerkleProof[H HasherDomain] struct {
	Data ProofData[H] `json:"data"`
}

type ProofData[H HasherDomain] struct {
	Single *SingleProof[H] `json:"Single,omitempty"`
	Sub    *SubProof[H]    `json:"Sub,omitempty"`
	Top    *TopProof[H]    `json:"Top,omitempty"`
}

type SingleProof[H HasherDomain] struct {
	Root H                `json:"root"`
	Leaf H                `json:"leaf"`
	Path InclusionPath[H] `json:"path"`
}

type SubProof[H HasherDomain] struct {
	BaseProof InclusionPath[H] `json:"base_proof"`
	SubProof  InclusionPath[H] `json:"sub_proof"`
	Root      H                `json:"root"`
	Leaf      H                `json:"leaf"`
}

type TopProof[H HasherDomain] struct {
	BaseProof InclusionPath[H] `json:"base_proof"`
	SubProof  InclusionPath[H] `json:"sub_proof"`
	TopProof  InclusionPath[H] `json:"top_proof"`

	Root H `json:"root"`
	Leaf H `json:"leaf"`
}

type InclusionPath[H HasherDomain] struct {
	Path []PathElement[H] `json:"path"`
}

// PathElement holds the siblings of the current node at one level; Index is the position of
// the current node among its arity children.
type PathElement[H HasherDomain] struct {
	Hashes []H    `json:"hashes"`
	Index  uint64 `json:"index"`
}

// Root returns the root claimed by the proof.
func (mp MerkleProof[H]) Root() H {
	switch {
	case mp.Data.Single != nil:
		return mp.Data.Single.Root
	case mp.Data.Sub != nil:
		return mp.Data.Sub.Root
	case mp.Data.Top != nil:
		return mp.Data.Top.Root
	}
	var zero H
	return zero
}

// Leaf returns the proven leaf value.
func (mp MerkleProof[H]) Leaf() H {
	switch {
	case mp.Data.Single != nil:
		return mp.Data.Single.Leaf
	case mp.Data.Sub != nil:
		return mp.Data.Sub.Leaf
	case mp.Data.Top != nil:
		return mp.Data.Top.Leaf
	}
	var zero H
	return zero
}

// Paths returns the inclusion paths from the leaf upwards: base, then sub, then top.
func (mp MerkleProof[H]) Paths() []InclusionPath[H] {
	switch {
	case mp.Data.Single != nil:
		return []InclusionPath[H]{mp.Data.Single.Path}
	case mp.Data.Sub != nil:
		return []InclusionPath[H]{mp.Data.Sub.BaseProof, mp.Data.Sub.SubProof}
	case mp.Data.Top != nil:
		return []InclusionPath[H]{mp.Data.Top.BaseProof, mp.Data.Top.SubProof, mp.Data.Top.TopProof}
	}
	return nil
}

// PathLen is the total number of path elements across all levels.
func (mp MerkleProof[H]) PathLen() int {
	var n int
	for _, p := range mp.Paths() {
		n += len(p.Path)
	}
	return n
}

// PathIndex reconstructs the leaf index the proof was generated for.
func (mp MerkleProof[H]) PathIndex() uint64 {
	var idx uint64
	mult := uint64(1)
	for _, p := range mp.Paths() {
		for _, elem := range p.Path {
			arity := uint64(len(elem.Hashes) + 1)
			idx += elem.Index * mult
			mult *= arity
		}
	}
	return idx
}
