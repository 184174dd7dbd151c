package proof

import (
	"bytes"
	"testing"

	"github.com/consensys/gnark-crypto/ecc/bls12-381/fr"
	"github.com/stretchr/testify/require"

	"github.com/filecoin-project/go-state-types/abi"
)

func testLeaves(n int, seed uint64) []PoseidonDomain {
	out := make([]PoseidonDomain, n)
	for i := range out {
		var e fr.Element
		e.SetUint64(seed*1_000_003 + uint64(i)*7 + 1)
		out[i] = DomainFromFr(e)
	}
	return out
}

func testTree(t *testing.T, ssize abi.SectorSize, seed uint64) *PoseidonMemTree {
	t.Helper()

	shape, err := SectorShape(ssize)
	require.NoError(t, err)

	tree, err := NewPoseidonMemTree(shape, testLeaves(int(uint64(ssize)/NODE_SIZE), seed))
	require.NoError(t, err)
	return tree
}

func TestPoseidonMemTreeProofs(t *testing.T) {
	for _, ssize := range []abi.SectorSize{2 << 10, 4 << 10, 32 << 10} {
		t.Run(ssize.ShortString(), func(t *testing.T) {
			tree := testTree(t, ssize, 1)
			expectedLen, err := tree.Shape().ExpectedPathLen(uint64(tree.Leafs()))
			require.NoError(t, err)

			for _, i := range []uint64{0, 1, 7, 8, 63, 64, uint64(tree.Leafs()) / 2, uint64(tree.Leafs()) - 1} {
				if i >= uint64(tree.Leafs()) {
					continue
				}

				p, err := tree.GenProof(i)
				require.NoError(t, err)
				require.Equal(t, i, p.PathIndex())
				require.Equal(t, expectedLen, p.PathLen())
				require.Equal(t, tree.Root(), p.Root())
				require.True(t, ValidateInclusionProof(p, i))
				require.False(t, ValidateInclusionProof(p, i+1))
			}

			_, err = tree.GenProof(uint64(tree.Leafs()))
			require.ErrorIs(t, err, ErrInvalidInput)
		})
	}
}

func TestPoseidonMemTreeProofVariants(t *testing.T) {
	p, err := testTree(t, 2<<10, 1).GenProof(3)
	require.NoError(t, err)
	require.NotNil(t, p.Data.Single)

	p, err = testTree(t, 4<<10, 1).GenProof(3)
	require.NoError(t, err)
	require.NotNil(t, p.Data.Sub)

	p, err = testTree(t, 32<<10, 1).GenProof(3)
	require.NoError(t, err)
	require.NotNil(t, p.Data.Top)
}

func TestPoseidonMemTreeMatchesTreeRLastRoots(t *testing.T) {
	tree := testTree(t, 32<<10, 2)

	roots := make([]PoseidonDomain, len(tree.bases))
	for b := range roots {
		roots[b] = tree.baseRoot(b)
	}
	require.Len(t, roots, 16)

	commRLast, err := CommRLastFromTreeRLastRoots(roots)
	require.NoError(t, err)
	require.Equal(t, tree.Root(), commRLast)
}

func TestBuildPoseidonMemTree(t *testing.T) {
	leaves := testLeaves(64, 3)
	var data []byte
	for _, l := range leaves {
		data = append(data, l[:]...)
	}

	tree, err := BuildPoseidonMemTree(bytes.NewReader(data), 2<<10)
	require.NoError(t, err)
	require.Equal(t, testTree(t, 2<<10, 3).Root(), tree.Root())

	// non-canonical node
	bad := bytes.Clone(data)
	copy(bad[32:64], bytes.Repeat([]byte{0xff}, 32))
	_, err = BuildPoseidonMemTree(bytes.NewReader(bad), 2<<10)
	require.ErrorIs(t, err, ErrInvalidCommitment)

	_, err = BuildPoseidonMemTree(bytes.NewReader(data[:100]), 2<<10)
	require.Error(t, err)
}
