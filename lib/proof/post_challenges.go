package proof

import (
	"encoding/binary"

	"github.com/minio/sha256-simd"
	"golang.org/x/xerrors"

	"github.com/filecoin-project/go-state-types/abi"
)

// GetChallengeIndex returns the ordinal fed into leaf challenge derivation for challenge n of
// the sector at global position sectorIndex. Starting with api version 1.2.0 the ordinal no
// longer depends on the position of the sector.
func GetChallengeIndex(v ApiVersion, sectorIndex, challengeCount, n uint64) uint64 {
	if v.GreaterOrEqual(ApiVersion1_2_0) {
		return n
	}
	return sectorIndex*challengeCount + n
}

// GenerateLeafChallenge maps (randomness, sector, challenge index) to a leaf of the sector:
// the first 8 bytes of sha256(randomness | LE sector id | LE challenge index) read as a
// little-endian u64, reduced modulo the number of leaves.
func GenerateLeafChallenge(pp *PublicParams, randomness PoseidonDomain, sectorID abi.SectorNumber, challengeIndex uint64) uint64 {
	var buf [8]byte

	h := sha256.New()
	h.Write(randomness[:])
	binary.LittleEndian.PutUint64(buf[:], uint64(sectorID))
	h.Write(buf[:])
	binary.LittleEndian.PutUint64(buf[:], challengeIndex)
	h.Write(buf[:])

	sum := h.Sum(nil)
	return binary.LittleEndian.Uint64(sum[:8]) % pp.Leafs()
}

// GenerateSectorChallenge picks the n-th challenged position in a sector set of sectorSetLen
// sectors (Winning PoSt sector selection).
func GenerateSectorChallenge(randomness PoseidonDomain, n uint64, sectorSetLen uint64, proverID PoseidonDomain) (uint64, error) {
	if sectorSetLen == 0 {
		return 0, xerrors.Errorf("empty sector set: %w", ErrInvalidInput)
	}

	var buf [8]byte

	h := sha256.New()
	h.Write(proverID[:])
	h.Write(randomness[:])
	binary.LittleEndian.PutUint64(buf[:], n)
	h.Write(buf[:])

	sum := h.Sum(nil)
	return binary.LittleEndian.Uint64(sum[:8]) % sectorSetLen, nil
}
