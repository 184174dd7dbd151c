package post

import (
	logging "github.com/ipfs/go-log/v2"
	"github.com/samber/lo"
	"golang.org/x/xerrors"

	"github.com/filecoin-project/go-state-types/abi"

	"github.com/filecoin-project/go-fil-post/lib/proof"
)

var log = logging.Logger("post")

// GenerateFallbackSectorChallenges derives the challenged leaves of every sector. sectors must be
// in proving order, the position of a sector decides its partition.
func GenerateFallbackSectorChallenges(cfg *proof.PoStConfig, randomness [32]byte, sectors []abi.SectorNumber, proverID [32]byte) (map[abi.SectorNumber][]uint64, error) {
	log.Infow("generate_sector_challenges:start", "type", cfg.PoStType, "sectors", len(sectors))

	if cfg.PoStType != proof.PoStTypeWindow && cfg.PoStType != proof.PoStTypeWinning {
		return nil, xerrors.Errorf("invalid post config type %s: %w", cfg.PoStType, proof.ErrInvalidConfig)
	}
	if cfg.SectorCount <= 0 || cfg.ChallengeCount <= 0 {
		return nil, xerrors.Errorf("sector count %d and challenge count %d must be positive: %w", cfg.SectorCount, cfg.ChallengeCount, proof.ErrInvalidConfig)
	}

	randomnessSafe, err := proof.AsSafeCommitment(randomness, "randomness")
	if err != nil {
		return nil, err
	}

	pp := &proof.PublicParams{
		SectorSize:     cfg.SectorSize,
		ChallengeCount: cfg.ChallengeCount,
		SectorCount:    cfg.SectorCount,
		ApiVersion:     cfg.ApiVersion,
	}

	partitions := 1
	if cfg.PoStType == proof.PoStTypeWindow {
		if n, ok := partitionsForWindowPoSt(len(sectors), cfg); ok {
			partitions = n
		}
	}

	chunks := lo.Chunk(sectors, cfg.SectorCount)
	out := make(map[abi.SectorNumber][]uint64, len(sectors))

	for p := range partitions {
		if p >= len(chunks) {
			return nil, xerrors.Errorf("no sectors for partition %d of %d: %w", p, partitions, proof.ErrInvalidInput)
		}

		for i, sector := range chunks[p] {
			sectorIndex := uint64(p*cfg.SectorCount + i)
			challenges := make([]uint64, cfg.ChallengeCount)
			for n := range challenges {
				ci := proof.GetChallengeIndex(cfg.ApiVersion, sectorIndex, uint64(cfg.ChallengeCount), uint64(n))
				challenges[n] = proof.GenerateLeafChallenge(pp, randomnessSafe, sector, ci)
			}
			out[sector] = challenges
		}
	}

	log.Infow("generate_sector_challenges:finish", "sectors", len(out))
	return out, nil
}

// partitionsForWindowPoSt returns the partition count of total sectors, only when more than one
// partition is needed.
func partitionsForWindowPoSt(total int, cfg *proof.PoStConfig) (int, bool) {
	partitions := (total + cfg.SectorCount - 1) / cfg.SectorCount
	if partitions > 1 {
		return partitions, true
	}
	return 0, false
}

// GetNumPartitionForFallbackPoSt is the number of partitions numSectors are proven in.
func GetNumPartitionForFallbackPoSt(cfg *proof.PoStConfig, numSectors int) int {
	if cfg.PoStType == proof.PoStTypeWindow {
		if n, ok := partitionsForWindowPoSt(numSectors, cfg); ok {
			return n
		}
	}
	return 1
}

// GenerateWinningPoStSectorChallenge selects cfg.SectorCount positions in a sector set of
// sectorSetLen sectors. The caller maps positions to its ordered sector set.
func GenerateWinningPoStSectorChallenge(cfg *proof.PoStConfig, randomness [32]byte, sectorSetLen uint64, proverID [32]byte) ([]uint64, error) {
	if cfg.PoStType != proof.PoStTypeWinning {
		return nil, xerrors.Errorf("expected winning post config, got %s: %w", cfg.PoStType, proof.ErrInvalidConfig)
	}
	if cfg.SectorCount <= 0 {
		return nil, xerrors.Errorf("sector count %d must be positive: %w", cfg.SectorCount, proof.ErrInvalidConfig)
	}

	randomnessSafe, err := proof.AsSafeCommitment(randomness, "randomness")
	if err != nil {
		return nil, err
	}
	proverIDSafe, err := proof.AsSafeCommitment(proverID, "prover_id")
	if err != nil {
		return nil, err
	}

	out := make([]uint64, cfg.SectorCount)
	for n := range out {
		out[n], err = proof.GenerateSectorChallenge(randomnessSafe, uint64(n), sectorSetLen, proverIDSafe)
		if err != nil {
			return nil, xerrors.Errorf("sector challenge %d: %w", n, err)
		}
	}
	return out, nil
}
