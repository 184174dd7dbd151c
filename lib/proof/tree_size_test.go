package proof

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/filecoin-project/go-state-types/abi"
)

func TestComputeTotalNodes(t *testing.T) {
	tests := []struct {
		leaves     int64
		arity      int64
		wantTotal  int64
		wantLevels int
	}{
		{1, 2, 1, 1},   // Single leaf: no parents needed, 1 level
		{2, 2, 3, 2},   // Two leaves: 1 parent, 2 levels (2+1=3)
		{3, 2, 6, 3},   // Three leaves: rounds up to 2 parents, then 1 root (3+2+1=6)
		{4, 2, 7, 3},   // Power of 2: perfect binary tree depth 3 (4+2+1=7)
		{8, 2, 15, 4},  // Power of 2: perfect binary tree depth 4 (8+4+2+1=15)
		{64, 8, 73, 3}, // 2KiB sector base tree (64+8+1)
		{9, 3, 13, 3},  // Power of 3: perfect ternary tree depth 3 (9+3+1=13)
	}

	for _, tt := range tests {
		treeSize := computeTreeSize(tt.leaves, tt.arity)
		if treeSize.NodeCount != tt.wantTotal {
			t.Errorf("computeTotalNodes(%d, %d): total=%d, want %d", tt.leaves, tt.arity, treeSize.NodeCount, tt.wantTotal)
		}
		if len(treeSize.LevelSizes) != tt.wantLevels {
			t.Errorf("computeTotalNodes(%d, %d): levels=%d, want %d", tt.leaves, tt.arity, len(treeSize.LevelSizes), tt.wantLevels)
		}
		if treeSize.LevelSizes[len(treeSize.LevelSizes)-1] != 1 {
			t.Errorf("computeTotalNodes(%d, %d): root != 1", tt.leaves, tt.arity)
		}
	}
}

func TestBaseTreeSize(t *testing.T) {
	tests := []struct {
		ssize     abi.SectorSize
		wantSize  int
		wantLeafs int
	}{
		{2 << 10, 73, 64},           // single 8-ary tree over 64 nodes
		{4 << 10, 73, 64},           // two base trees
		{32 << 10, 73, 64},          // sixteen base trees
		{8 << 20, 299593, 262144},   // 8^6 leaves
		{32 << 30, 153391689, 1 << 27}, // eight base trees of 8^9 leaves
	}

	for _, tt := range tests {
		size, err := GetBaseTreeSize(tt.ssize)
		require.NoError(t, err, tt.ssize.ShortString())
		require.Equal(t, tt.wantSize, size, tt.ssize.ShortString())

		leafs, err := GetBaseTreeLeafs(size, 8)
		require.NoError(t, err)
		require.Equal(t, tt.wantLeafs, leafs, tt.ssize.ShortString())
	}
}

func TestTreeGeometryErrors(t *testing.T) {
	_, err := GetBaseTreeSize(3 << 10)
	require.True(t, errors.Is(err, ErrUnknownSectorSize))

	_, err = GetMerkleTreeLen(48, 8)
	require.True(t, errors.Is(err, ErrInvalidInput))

	_, err = GetMerkleTreeLeafs(74, 8)
	require.True(t, errors.Is(err, ErrInvalidInput))
}

func TestExpectedPathLen(t *testing.T) {
	shape, err := SectorShape(32 << 10)
	require.NoError(t, err)
	require.Equal(t, 16, shape.BaseTreeCount())

	n, err := shape.ExpectedPathLen((32 << 10) / NODE_SIZE)
	require.NoError(t, err)
	require.Equal(t, 4, n) // 2 base levels + sub + top
}
