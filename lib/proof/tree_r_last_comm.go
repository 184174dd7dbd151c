package proof

import (
	"fmt"
	"io"
	"os"
	"path/filepath"

	"golang.org/x/xerrors"
)

const treeRLastPrefix = "sc-02-data-tree-r-last"

// CommRLastFromTreeRLastRoots computes comm_r_last from the roots of the tree-r-last
// partition files (each root is the last 32 bytes of sc-02-data-tree-r-last[-N].dat).
//
// When there are 16 partitions the roots are reduced 16 -> 2 with the 8-arity sub level, and
// those 2 are hashed with the arity-2 top level.
func CommRLastFromTreeRLastRoots(roots []PoseidonDomain) (PoseidonDomain, error) {
	var shape TreeShape
	switch len(roots) {
	case 0:
		return PoseidonDomain{}, xerrors.Errorf("no tree-r-last roots provided: %w", ErrInvalidInput)
	case 1:
		shape = TreeShape{BaseArity: 8}
	case 2, 4, 8:
		shape = TreeShape{BaseArity: 8, SubArity: len(roots)}
	case 16:
		shape = TreeShape{BaseArity: 8, SubArity: 8, TopArity: 2}
	default:
		return PoseidonDomain{}, xerrors.Errorf("unsupported tree-r-last partition count %d: %w", len(roots), ErrInvalidInput)
	}

	root, _, err := compoundRoot(shape, roots)
	return root, err
}

// ReadTreeRLastRoots reads the roots of the tree-r-last files in cache, either a single
// sc-02-data-tree-r-last.dat or the numbered partition files. A cache without tree-r-last
// files yields no roots.
func ReadTreeRLastRoots(cache string) ([]PoseidonDomain, error) {
	paths := []string{filepath.Join(cache, treeRLastPrefix+".dat")}
	if _, err := os.Stat(paths[0]); err != nil {
		if !os.IsNotExist(err) {
			return nil, err
		}
		paths = paths[:0]
		for i := 0; ; i++ {
			p := filepath.Join(cache, fmt.Sprintf("%s-%d.dat", treeRLastPrefix, i))
			if _, err := os.Stat(p); err != nil {
				if os.IsNotExist(err) {
					break
				}
				return nil, err
			}
			paths = append(paths, p)
		}
	}

	roots := make([]PoseidonDomain, len(paths))
	for i, p := range paths {
		if err := readTreeRoot(p, &roots[i]); err != nil {
			return nil, err
		}
	}
	return roots, nil
}

func readTreeRoot(path string, out *PoseidonDomain) error {
	f, err := os.Open(path)
	if err != nil {
		return err
	}
	defer func() {
		_ = f.Close()
	}()

	st, err := f.Stat()
	if err != nil {
		return err
	}
	if st.Size() < NODE_SIZE {
		return xerrors.Errorf("tree file %s is %d bytes, shorter than a node", path, st.Size())
	}
	if _, err := f.ReadAt(out[:], st.Size()-NODE_SIZE); err != nil && err != io.EOF {
		return xerrors.Errorf("reading root of %s: %w", path, err)
	}
	return nil
}
