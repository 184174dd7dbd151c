package commitment

import (
	"io"
	"runtime"

	"github.com/ipfs/go-cid"
	logging "github.com/ipfs/go-log/v2"
	pool "github.com/libp2p/go-buffer-pool"
	"golang.org/x/sync/errgroup"
	"golang.org/x/xerrors"

	commcid "github.com/filecoin-project/go-fil-commcid"

	"github.com/filecoin-project/go-fil-post/lib/proof"
)

var log = logging.Logger("commitment")

const (
	bufferSize = 4096
	leafSize   = 2 * proof.NODE_SIZE

	// pairs hashed by one worker when reducing a level
	reduceBatch = 1 << 12
)

// Reader computes comm_d of the bytes read through it. The data must already be fr32 padded
// and a power of two number of 64 byte leaves long.
type Reader struct {
	src    io.Reader
	buf    []byte
	bufPos int
	leaves [][proof.NODE_SIZE]byte
}

func NewReader(src io.Reader) *Reader {
	return &Reader{
		src: src,
		buf: pool.Get(bufferSize),
	}
}

// Read passes data from the source through unchanged.
func (r *Reader) Read(p []byte) (int, error) {
	if r.buf == nil {
		return 0, xerrors.Errorf("commitment reader already finished")
	}

	end := r.bufPos + min(bufferSize-r.bufPos, len(p))
	n, err := r.src.Read(r.buf[r.bufPos:end])
	copy(p[:n], r.buf[r.bufPos:r.bufPos+n])
	r.bufPos += n

	r.tryHash()
	return n, err
}

// tryHash hashes the staged bytes once they end on a leaf boundary.
func (r *Reader) tryHash() {
	if r.bufPos%leafSize != 0 {
		return
	}

	for off := 0; off < r.bufPos; off += leafSize {
		r.leaves = append(r.leaves, proof.ComputeBinShaParent(
			[proof.NODE_SIZE]byte(r.buf[off:off+proof.NODE_SIZE]),
			[proof.NODE_SIZE]byte(r.buf[off+proof.NODE_SIZE:off+leafSize]),
		))
	}
	r.bufPos = 0
}

// Finish reduces the leaf hashes to the root. The reader can't be used afterwards.
func (r *Reader) Finish() ([proof.NODE_SIZE]byte, error) {
	if r.bufPos != 0 {
		return [proof.NODE_SIZE]byte{}, xerrors.Errorf("%d trailing bytes do not fill a leaf: %w", r.bufPos, proof.ErrIncompleteInput)
	}
	if len(r.leaves) == 0 {
		return [proof.NODE_SIZE]byte{}, xerrors.Errorf("no data read: %w", proof.ErrIncompleteInput)
	}
	if r.buf != nil {
		pool.Put(r.buf)
		r.buf = nil
	}

	log.Debugw("reducing commitment tree", "leaves", len(r.leaves))

	row := r.leaves
	for len(row) > 1 {
		if len(row)%2 != 0 {
			panic(xerrors.Errorf("commitment tree level has odd width %d, input was not a power of two number of leaves", len(row)))
		}
		row = reduceLevel(row)
	}

	r.leaves = row
	return row[0], nil
}

func reduceLevel(row [][proof.NODE_SIZE]byte) [][proof.NODE_SIZE]byte {
	next := make([][proof.NODE_SIZE]byte, len(row)/2)

	var eg errgroup.Group
	eg.SetLimit(runtime.NumCPU())
	for start := 0; start < len(next); start += reduceBatch {
		end := min(start+reduceBatch, len(next))
		eg.Go(func() error {
			for i := start; i < end; i++ {
				next[i] = proof.ComputeBinShaParent(row[2*i], row[2*i+1])
			}
			return nil
		})
	}
	_ = eg.Wait()

	return next
}

// PieceCID returns the commitment of the data read so far as a piece CID. It calls Finish.
func (r *Reader) PieceCID() (cid.Cid, error) {
	commD, err := r.Finish()
	if err != nil {
		return cid.Undef, err
	}
	c, err := commcid.DataCommitmentV1ToCID(commD[:])
	if err != nil {
		return cid.Undef, xerrors.Errorf("converting comm_d to cid: %w", err)
	}
	return c, nil
}
