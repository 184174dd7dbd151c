package main

import (
	"bytes"
	"fmt"
	"io"
	"math"
	"strings"
	"testing"

	"github.com/snadrus/must"
	"github.com/stretchr/testify/require"

	commcid "github.com/filecoin-project/go-fil-commcid"
	commp "github.com/filecoin-project/go-fil-commp-hashhash"
	"github.com/filecoin-project/go-padreader"
	"github.com/filecoin-project/go-state-types/abi"

	"github.com/filecoin-project/go-fil-post/lib/commitment"
)

func TestParseSectors(t *testing.T) {
	s, err := parseSectors([]string{"1,4", "10-12", ""})
	require.NoError(t, err)
	require.Equal(t, []abi.SectorNumber{1, 4, 10, 11, 12}, s)

	_, err = parseSectors([]string{"5-3"})
	require.Error(t, err)
	_, err = parseSectors([]string{"x"})
	require.Error(t, err)
}

func TestParseSectorsBounds(t *testing.T) {
	s, err := parseSectors([]string{"18446744073709551614-18446744073709551615"})
	require.NoError(t, err)
	require.Equal(t, []abi.SectorNumber{math.MaxUint64 - 1, math.MaxUint64}, s)

	s = must.One(parseSectors([]string{"18446744073709551615"}))
	require.Equal(t, []abi.SectorNumber{math.MaxUint64}, s)

	_, err = parseSectors([]string{"0-18446744073709551615"})
	require.Error(t, err)

	s = must.One(parseSectors([]string{fmt.Sprintf("0-%d", maxParsedSectors-1)}))
	require.Len(t, s, maxParsedSectors)

	// the limit covers the whole list, not each range
	_, err = parseSectors([]string{"0-10", fmt.Sprintf("100-%d", 100+maxParsedSectors-11)})
	require.Error(t, err)
	_, err = parseSectors([]string{fmt.Sprintf("0-%d", maxParsedSectors-1), "7"})
	require.Error(t, err)
}

func TestParseRandomness(t *testing.T) {
	r, err := parseRandomness("0x" + strings.Repeat("ff", 32))
	require.NoError(t, err)
	require.Equal(t, byte(0x3f), r[31])
	require.Equal(t, byte(0xff), r[0])

	_, err = parseRandomness("abcd")
	require.Error(t, err)
	_, err = parseRandomness("zz")
	require.Error(t, err)
}

func TestCommdMatchesCommP(t *testing.T) {
	data := bytes.Repeat([]byte("postool"), 1000)

	unpadded, usize := padreader.New(bytes.NewReader(data), uint64(len(data)))
	cr := commitment.NewReader(&fr32PadReader{src: unpadded})
	n := must.One(io.Copy(io.Discard, cr))
	require.Equal(t, int64(usize.Padded()), n)

	got := must.One(cr.PieceCID())

	cp := &commp.Calc{}
	_ = must.One(cp.Write(data))
	digest, psize, err := cp.Digest()
	require.NoError(t, err)
	require.Equal(t, uint64(usize.Padded()), psize)
	require.Equal(t, must.One(commcid.DataCommitmentV1ToCID(digest)), got)
}

func TestSealedCIDRoundTrip(t *testing.T) {
	var commR [32]byte
	commR[0] = 7
	c := must.One(commcid.ReplicaCommitmentV1ToCID(commR[:]))
	got, err := parseSealedCID(c.String())
	require.NoError(t, err)
	require.Equal(t, commR, got)

	_, err = parseSealedCID("not-a-cid")
	require.Error(t, err)
}
