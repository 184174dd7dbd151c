package proof

import (
	"github.com/filecoin-project/go-state-types/abi"
	"golang.org/x/xerrors"
)

type treeSize struct {
	NodeCount  int64
	LevelSizes []int64
}

func computeTreeSize(nLeaves, arity int64) treeSize {
	var ts treeSize
	ts.NodeCount, ts.LevelSizes = computeTotalNodes(nLeaves, arity)
	return ts
}

func computeTotalNodes(nLeaves, arity int64) (int64, []int64) {
	totalNodes := int64(0)
	levelCounts := []int64{}
	currLevelCount := nLeaves
	for currLevelCount > 0 {
		levelCounts = append(levelCounts, currLevelCount)
		totalNodes += currLevelCount
		if currLevelCount == 1 {
			break
		}
		currLevelCount = (currLevelCount + arity - 1) / arity
	}
	return totalNodes, levelCounts
}

// GetMerkleTreeLen returns the node count of a full tree over leafs leaves. leafs must be a
// power of arity.
func GetMerkleTreeLen(leafs, arity int) (int, error) {
	if arity < 2 {
		return 0, xerrors.Errorf("invalid tree arity %d: %w", arity, ErrInvalidInput)
	}
	if leafs < arity {
		return 0, xerrors.Errorf("leaf count %d smaller than arity %d: %w", leafs, arity, ErrInvalidInput)
	}

	size := leafs
	for cur := leafs; cur != 1; {
		if cur%arity != 0 {
			return 0, xerrors.Errorf("leaf count %d is not a power of %d: %w", leafs, arity, ErrInvalidInput)
		}
		cur /= arity
		size += cur
	}
	return size, nil
}

// GetMerkleTreeLeafs is the inverse of GetMerkleTreeLen.
func GetMerkleTreeLeafs(treeSize, arity int) (int, error) {
	if arity < 2 {
		return 0, xerrors.Errorf("invalid tree arity %d: %w", arity, ErrInvalidInput)
	}

	leafs, cur := 1, 1
	for cur < treeSize {
		leafs *= arity
		cur += leafs
	}
	if cur != treeSize {
		return 0, xerrors.Errorf("invalid tree size %d for arity %d: %w", treeSize, arity, ErrInvalidInput)
	}
	return leafs, nil
}

// GetBaseTreeSize returns the node count of one base tree of a sector's tree-r-last.
func GetBaseTreeSize(ssize abi.SectorSize) (int, error) {
	shape, err := SectorShape(ssize)
	if err != nil {
		return 0, err
	}

	if uint64(ssize)%NODE_SIZE != 0 {
		return 0, xerrors.Errorf("sector size %d not a multiple of %d: %w", ssize, NODE_SIZE, ErrInvalidSectorSize)
	}
	nodes := int(uint64(ssize) / NODE_SIZE)
	if nodes%shape.BaseTreeCount() != 0 {
		return 0, xerrors.Errorf("%d nodes not divisible into %d base trees: %w", nodes, shape.BaseTreeCount(), ErrInvalidSectorSize)
	}

	return GetMerkleTreeLen(nodes/shape.BaseTreeCount(), shape.BaseArity)
}

func GetBaseTreeLeafs(baseTreeSize, arity int) (int, error) {
	return GetMerkleTreeLeafs(baseTreeSize, arity)
}
