package proof

import (
	"github.com/filecoin-project/go-state-types/abi"
	"golang.org/x/xerrors"
)

// TreeShape describes the compound tree-r-last layout of a sector: BaseTreeCount base trees of
// BaseArity, grouped into sub trees of SubArity, grouped under a top node of TopArity.
// A zero arity means the level is absent.
type TreeShape struct {
	BaseArity int
	SubArity  int
	TopArity  int
}

var sectorShapes = map[abi.SectorSize]TreeShape{
	2 << 10:   {8, 0, 0},
	4 << 10:   {8, 2, 0},
	16 << 10:  {8, 8, 0},
	32 << 10:  {8, 8, 2},
	8 << 20:   {8, 0, 0},
	16 << 20:  {8, 2, 0},
	512 << 20: {8, 0, 0},
	1 << 30:   {8, 2, 0},
	32 << 30:  {8, 8, 0},
	64 << 30:  {8, 8, 2},
}

func SectorShape(ssize abi.SectorSize) (TreeShape, error) {
	s, ok := sectorShapes[ssize]
	if !ok {
		return TreeShape{}, xerrors.Errorf("no tree shape for sector size %d: %w", ssize, ErrUnknownSectorSize)
	}
	return s, nil
}

func (s TreeShape) BaseTreeCount() int {
	n := 1
	if s.SubArity > 0 {
		n *= s.SubArity
	}
	if s.TopArity > 0 {
		n *= s.TopArity
	}
	return n
}

// ExpectedPathLen is the number of path elements an inclusion proof for a tree with
// the given number of leaves must carry.
func (s TreeShape) ExpectedPathLen(leafs uint64) (int, error) {
	count := uint64(s.BaseTreeCount())
	if leafs%count != 0 {
		return 0, xerrors.Errorf("%d leaves not divisible into %d base trees: %w", leafs, count, ErrInvalidSectorSize)
	}
	baseLeafs := leafs / count

	n := 0
	for cur := baseLeafs; cur > 1; cur /= uint64(s.BaseArity) {
		if cur%uint64(s.BaseArity) != 0 {
			return 0, xerrors.Errorf("base tree with %d leaves is not a power of %d: %w", baseLeafs, s.BaseArity, ErrInvalidSectorSize)
		}
		n++
	}
	if s.SubArity > 0 {
		n++
	}
	if s.TopArity > 0 {
		n++
	}
	return n, nil
}
