package commitment

import (
	"bytes"
	"io"
	"math/rand"
	"testing"
	"testing/iotest"

	"github.com/stretchr/testify/require"

	commcid "github.com/filecoin-project/go-fil-commcid"
	commp "github.com/filecoin-project/go-fil-commp-hashhash"
	"github.com/filecoin-project/go-state-types/abi"

	"github.com/filecoin-project/lotus/storage/sealer/fr32"

	"github.com/filecoin-project/go-fil-post/lib/proof"
)

func padded(raw []byte) []byte {
	out := make([]byte, abi.UnpaddedPieceSize(len(raw)).Padded())
	fr32.Pad(raw, out)
	return out
}

func referenceCommP(t *testing.T, raw []byte) []byte {
	cp := &commp.Calc{}
	_, err := cp.Write(raw)
	require.NoError(t, err)
	commP, _, err := cp.Digest()
	require.NoError(t, err)
	return commP
}

func TestReaderMatchesOneShot(t *testing.T) {
	raw := bytes.Repeat([]byte{0xff}, 1016)
	data := padded(raw)

	r := NewReader(bytes.NewReader(data))
	out, err := io.ReadAll(r)
	require.NoError(t, err)
	require.Equal(t, data, out)

	commD, err := r.Finish()
	require.NoError(t, err)

	require.Equal(t, referenceCommP(t, raw), commD[:])

	memtree, err := proof.BuildSha254Memtree(bytes.NewReader(raw), abi.UnpaddedPieceSize(len(raw)))
	require.NoError(t, err)
	require.Equal(t, proof.Sha254MemtreeRoot(memtree), commD)
}

func TestReaderSmallReads(t *testing.T) {
	raw := make([]byte, 127*1024)
	rand.New(rand.NewSource(1)).Read(raw)
	data := padded(raw)

	r := NewReader(iotest.OneByteReader(bytes.NewReader(data)))
	out, err := io.ReadAll(r)
	require.NoError(t, err)
	require.Equal(t, data, out)

	c, err := r.PieceCID()
	require.NoError(t, err)

	exp, err := commcid.DataCommitmentV1ToCID(referenceCommP(t, raw))
	require.NoError(t, err)
	require.Equal(t, exp, c)
}

func TestReaderLargeBuffer(t *testing.T) {
	raw := make([]byte, 127*1024)
	rand.New(rand.NewSource(2)).Read(raw)
	data := padded(raw)

	// reads larger than the staging buffer are served in buffer sized pieces
	r := NewReader(bytes.NewReader(data))
	out := make([]byte, 3*bufferSize)
	n, err := r.Read(out)
	require.NoError(t, err)
	require.Equal(t, bufferSize, n)
	require.Equal(t, data[:n], out[:n])

	_, err = io.Copy(io.Discard, r)
	require.NoError(t, err)

	commD, err := r.Finish()
	require.NoError(t, err)
	require.Equal(t, referenceCommP(t, raw), commD[:])
}

func TestReaderIncomplete(t *testing.T) {
	r := NewReader(bytes.NewReader(make([]byte, 100)))
	_, err := io.ReadAll(r)
	require.NoError(t, err)

	_, err = r.Finish()
	require.ErrorIs(t, err, proof.ErrIncompleteInput)

	_, err = NewReader(bytes.NewReader(nil)).Finish()
	require.ErrorIs(t, err, proof.ErrIncompleteInput)
}

func TestReaderOddLevelPanics(t *testing.T) {
	r := NewReader(bytes.NewReader(make([]byte, 3*leafSize)))
	_, err := io.ReadAll(r)
	require.NoError(t, err)

	require.Panics(t, func() {
		_, _ = r.Finish()
	})
}
