package proof

import (
	"io"
	"runtime"

	pool "github.com/libp2p/go-buffer-pool"
	"golang.org/x/sync/errgroup"
	"golang.org/x/xerrors"

	"github.com/filecoin-project/go-state-types/abi"
)

// PoseidonMemTree is an in-memory tree-r-last: BaseTreeCount Poseidon trees of BaseArity,
// optionally joined by a sub level and a top level.
type PoseidonMemTree struct {
	shape TreeShape

	// bases[b][0] are the leaves of base tree b, bases[b][len-1] holds its root.
	bases     [][][]PoseidonDomain
	baseLeafs int

	subRoots []PoseidonDomain // only with a top level
	root     PoseidonDomain
}

func NewPoseidonMemTree(shape TreeShape, leaves []PoseidonDomain) (*PoseidonMemTree, error) {
	count := shape.BaseTreeCount()
	if len(leaves) == 0 || len(leaves)%count != 0 {
		return nil, xerrors.Errorf("%d leaves not divisible into %d base trees: %w", len(leaves), count, ErrInvalidInput)
	}
	baseLeafs := len(leaves) / count
	if _, err := GetMerkleTreeLen(baseLeafs, shape.BaseArity); err != nil {
		return nil, err
	}

	t := &PoseidonMemTree{
		shape:     shape,
		bases:     make([][][]PoseidonDomain, count),
		baseLeafs: baseLeafs,
	}

	var eg errgroup.Group
	eg.SetLimit(runtime.NumCPU())
	for b := range t.bases {
		eg.Go(func() error {
			levels, err := buildPoseidonLevels(leaves[b*baseLeafs:(b+1)*baseLeafs], shape.BaseArity)
			if err != nil {
				return xerrors.Errorf("base tree %d: %w", b, err)
			}
			t.bases[b] = levels
			return nil
		})
	}
	if err := eg.Wait(); err != nil {
		return nil, err
	}

	baseRoots := make([]PoseidonDomain, count)
	for b := range t.bases {
		baseRoots[b] = t.baseRoot(b)
	}

	var err error
	t.root, t.subRoots, err = compoundRoot(shape, baseRoots)
	if err != nil {
		return nil, err
	}

	return t, nil
}

// BuildPoseidonMemTree reads a whole sector worth of 32 byte nodes from r and builds its
// tree-r-last. Every node must be a canonical field element.
func BuildPoseidonMemTree(r io.Reader, ssize abi.SectorSize) (*PoseidonMemTree, error) {
	shape, err := SectorShape(ssize)
	if err != nil {
		return nil, err
	}
	if uint64(ssize) > MaxMemtreeSize {
		return nil, xerrors.Errorf("sector too large for memtree: %d", ssize)
	}

	buf := pool.Get(int(ssize))
	defer pool.Put(buf)

	if _, err := io.ReadFull(r, buf); err != nil {
		return nil, xerrors.Errorf("reading sector data: %w", err)
	}

	leaves := make([]PoseidonDomain, uint64(ssize)/NODE_SIZE)
	for i := range leaves {
		copy(leaves[i][:], buf[i*NODE_SIZE:(i+1)*NODE_SIZE])
		if _, err := leaves[i].Fr(); err != nil {
			return nil, xerrors.Errorf("node %d: %w", i, err)
		}
	}

	return NewPoseidonMemTree(shape, leaves)
}

func buildPoseidonLevels(leaves []PoseidonDomain, arity int) ([][]PoseidonDomain, error) {
	levels := [][]PoseidonDomain{leaves}
	for cur := leaves; len(cur) > 1; {
		next := make([]PoseidonDomain, len(cur)/arity)
		for i := range next {
			var err error
			if next[i], err = HashNodes(cur[i*arity : (i+1)*arity]); err != nil {
				return nil, err
			}
		}
		levels = append(levels, next)
		cur = next
	}
	return levels, nil
}

// compoundRoot joins base tree roots through the sub and top levels of shape.
func compoundRoot(shape TreeShape, baseRoots []PoseidonDomain) (PoseidonDomain, []PoseidonDomain, error) {
	switch {
	case shape.SubArity == 0:
		return baseRoots[0], nil, nil
	case shape.TopArity == 0:
		root, err := HashNodes(baseRoots)
		return root, nil, err
	}

	subRoots := make([]PoseidonDomain, shape.TopArity)
	for g := range subRoots {
		var err error
		if subRoots[g], err = HashNodes(baseRoots[g*shape.SubArity : (g+1)*shape.SubArity]); err != nil {
			return PoseidonDomain{}, nil, xerrors.Errorf("sub tree %d: %w", g, err)
		}
	}
	root, err := HashNodes(subRoots)
	return root, subRoots, err
}

func (t *PoseidonMemTree) baseRoot(b int) PoseidonDomain {
	levels := t.bases[b]
	return levels[len(levels)-1][0]
}

func (t *PoseidonMemTree) Root() PoseidonDomain {
	return t.root
}

func (t *PoseidonMemTree) Leafs() int {
	return t.baseLeafs * len(t.bases)
}

func (t *PoseidonMemTree) Shape() TreeShape {
	return t.shape
}

// GenProof returns the inclusion proof of leaf i, in the Single/Sub/Top variant matching the
// tree shape.
func (t *PoseidonMemTree) GenProof(i uint64) (MerkleProof[PoseidonDomain], error) {
	var out MerkleProof[PoseidonDomain]
	if i >= uint64(t.Leafs()) {
		return out, xerrors.Errorf("leaf %d out of range, tree has %d leaves: %w", i, t.Leafs(), ErrInvalidInput)
	}

	b := int(i / uint64(t.baseLeafs))
	local := int(i % uint64(t.baseLeafs))
	levels := t.bases[b]
	leaf := levels[0][local]

	var basePath InclusionPath[PoseidonDomain]
	for _, level := range levels[:len(levels)-1] {
		basePath.Path = append(basePath.Path, siblings(level, local, t.shape.BaseArity))
		local /= t.shape.BaseArity
	}

	switch {
	case t.shape.SubArity == 0:
		out.Data.Single = &SingleProof[PoseidonDomain]{
			Root: t.root,
			Leaf: leaf,
			Path: basePath,
		}
	case t.shape.TopArity == 0:
		out.Data.Sub = &SubProof[PoseidonDomain]{
			BaseProof: basePath,
			SubProof:  InclusionPath[PoseidonDomain]{Path: []PathElement[PoseidonDomain]{t.baseRootSiblings(b)}},
			Root:      t.root,
			Leaf:      leaf,
		}
	default:
		g := b / t.shape.SubArity
		out.Data.Top = &TopProof[PoseidonDomain]{
			BaseProof: basePath,
			SubProof:  InclusionPath[PoseidonDomain]{Path: []PathElement[PoseidonDomain]{t.baseRootSiblings(b)}},
			TopProof:  InclusionPath[PoseidonDomain]{Path: []PathElement[PoseidonDomain]{siblings(t.subRoots, g, t.shape.TopArity)}},
			Root:      t.root,
			Leaf:      leaf,
		}
	}

	return out, nil
}

// baseRootSiblings is the sub level path element of base tree b.
func (t *PoseidonMemTree) baseRootSiblings(b int) PathElement[PoseidonDomain] {
	g := b / t.shape.SubArity
	roots := make([]PoseidonDomain, t.shape.SubArity)
	for j := range roots {
		roots[j] = t.baseRoot(g*t.shape.SubArity + j)
	}
	return siblings(roots, b%t.shape.SubArity, t.shape.SubArity)
}

// siblings returns the path element of node idx within its group of arity nodes in level.
func siblings(level []PoseidonDomain, idx, arity int) PathElement[PoseidonDomain] {
	pos := idx % arity
	start := idx - pos

	hashes := make([]PoseidonDomain, 0, arity-1)
	hashes = append(hashes, level[start:start+pos]...)
	hashes = append(hashes, level[start+pos+1:start+arity]...)

	return PathElement[PoseidonDomain]{Hashes: hashes, Index: uint64(pos)}
}
