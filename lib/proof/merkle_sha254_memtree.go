package proof

import (
	"io"

	pool "github.com/libp2p/go-buffer-pool"
	"github.com/minio/sha256-simd"
	"golang.org/x/xerrors"

	"github.com/filecoin-project/go-state-types/abi"

	"github.com/filecoin-project/lotus/storage/sealer/fr32"
)

const MaxMemtreeSize = 1 << 30

// BuildSha254Memtree fr32-pads size bytes of rawIn and builds the full binary sha254 tree over
// them. Levels are laid out leaves first, the root is the last node.
// Returned slice should be released to the pool after use
func BuildSha254Memtree(rawIn io.Reader, size abi.UnpaddedPieceSize) ([]byte, error) {
	if size.Padded() > MaxMemtreeSize {
		return nil, xerrors.Errorf("piece too large for memtree: %d", size)
	}
	if err := size.Validate(); err != nil {
		return nil, xerrors.Errorf("memtree size: %s: %w", err, ErrInvalidInput)
	}

	unpadBuf := pool.Get(int(size))
	_, err := io.ReadFull(rawIn, unpadBuf)
	if err != nil {
		pool.Put(unpadBuf)
		return nil, xerrors.Errorf("failed to read into unpadBuf: %w", err)
	}

	nLeaves := int64(size.Padded()) / NODE_SIZE
	totalNodes, levelSizes := computeTotalNodes(nLeaves, 2)
	memtreeBuf := pool.Get(int(totalNodes * NODE_SIZE))

	fr32.Pad(unpadBuf, memtreeBuf[:size.Padded()])
	pool.Put(unpadBuf)

	d := sha256.New()

	var prevLevelStart, currLevelStart int64
	for level := 1; level < len(levelSizes); level++ {
		currLevelStart = prevLevelStart + levelSizes[level-1]*NODE_SIZE

		for i := int64(0); i < levelSizes[level]; i++ {
			leftOffset := prevLevelStart + (2*i)*NODE_SIZE

			d.Reset()
			d.Write(memtreeBuf[leftOffset : leftOffset+(NODE_SIZE*2)])

			outOffset := currLevelStart + i*NODE_SIZE
			// sum calls append, so we give it a zero len slice at the correct offset
			d.Sum(memtreeBuf[outOffset:outOffset])

			// set top bits to 00
			memtreeBuf[outOffset+NODE_SIZE-1] &= 0x3F
		}

		prevLevelStart = currLevelStart
	}

	return memtreeBuf, nil
}

// Sha254MemtreeRoot returns the root node of a memtree built by BuildSha254Memtree.
func Sha254MemtreeRoot(memtree []byte) [NODE_SIZE]byte {
	var out [NODE_SIZE]byte
	copy(out[:], memtree[len(memtree)-NODE_SIZE:])
	return out
}

// ComputeBinShaParent is the sha254 internal node hash: sha256 with the two top bits cleared.
func ComputeBinShaParent(left, right [NODE_SIZE]byte) [NODE_SIZE]byte {
	var buf [2 * NODE_SIZE]byte
	copy(buf[:NODE_SIZE], left[:])
	copy(buf[NODE_SIZE:], right[:])
	out := sha256.Sum256(buf[:])
	out[NODE_SIZE-1] &= 0x3F
	return out
}
