package params

import (
	"encoding/binary"

	logging "github.com/ipfs/go-log/v2"
	"github.com/samber/lo"
	"golang.org/x/xerrors"

	"github.com/filecoin-project/go-state-types/abi"

	"github.com/filecoin-project/go-fil-post/lib/proof"
)

var log = logging.Logger("params")

const (
	DRGDegree = 6
	EXPDegree = 8
)

// LayerChallenges describes the PoRep challenges of one partition. All layers share one set of
// MaxCount challenges.
type LayerChallenges struct {
	Layers       int
	MaxCount     int
	UseSynthetic bool
}

// ChallengesCountAll is the number of challenges per partition.
func (lc LayerChallenges) ChallengesCountAll() int {
	return lc.MaxCount
}

// SelectChallenges finds the smallest per-partition challenge count such that partitions of it
// reach minimumTotal. partitions must be positive.
func SelectChallenges(partitions, minimumTotal, layers int, useSynthetic bool) LayerChallenges {
	if partitions <= 0 {
		panic("SelectChallenges: partitions must be positive")
	}
	count := 1
	guess := LayerChallenges{Layers: layers, MaxCount: count}
	for partitions*guess.ChallengesCountAll() < minimumTotal {
		count++
		guess = LayerChallenges{Layers: layers, MaxCount: count}
	}
	guess.UseSynthetic = useSynthetic
	return guess
}

type PoRepConfig struct {
	SectorSize  abi.SectorSize
	Partitions  int
	PoRepID     [32]byte
	ApiVersion  proof.ApiVersion
	ApiFeatures []proof.ApiFeature
}

func (c *PoRepConfig) FeatureEnabled(f proof.ApiFeature) bool {
	return lo.Contains(c.ApiFeatures, f)
}

// SetupParams are the stacked DRG setup parameters of a PoRep config.
type SetupParams struct {
	Nodes           uint64
	Degree          int
	ExpansionDegree int
	PoRepID         [32]byte
	LayerChallenges LayerChallenges
	ApiVersion      proof.ApiVersion
	ApiFeatures     []proof.ApiFeature
}

// SetupParamsFor derives PoRep setup parameters for c, with layer counts and challenge minimums
// looked up in t.
func SetupParamsFor(t *Table, c *PoRepConfig) (*SetupParams, error) {
	useSynthetic := c.FeatureEnabled(proof.ApiFeatureSyntheticPoRep)

	sp, err := t.Lookup(c.SectorSize)
	if err != nil {
		return nil, err
	}

	if c.Partitions <= 0 {
		return nil, xerrors.Errorf("porep partitions %d must be positive: %w", c.Partitions, proof.ErrInvalidConfig)
	}
	if uint64(c.SectorSize)%proof.NODE_SIZE != 0 {
		return nil, xerrors.Errorf("sector size %d not a multiple of %d: %w", c.SectorSize, proof.NODE_SIZE, proof.ErrInvalidSectorSize)
	}

	lc := SelectChallenges(c.Partitions, sp.MinimumChallenges, sp.Layers, useSynthetic)
	log.Debugw("selected porep challenges", "sectorSize", c.SectorSize, "partitions", c.Partitions, "challenges", lc.MaxCount, "layers", lc.Layers)

	return &SetupParams{
		Nodes:           uint64(c.SectorSize) / proof.NODE_SIZE,
		Degree:          DRGDegree,
		ExpansionDegree: EXPDegree,
		PoRepID:         c.PoRepID,
		LayerChallenges: lc,
		ApiVersion:      c.ApiVersion,
		ApiFeatures:     append([]proof.ApiFeature(nil), c.ApiFeatures...),
	}, nil
}

// PoRepConfigFromSealProof builds the PoRep config of a registered seal proof.
func PoRepConfigFromSealProof(spt abi.RegisteredSealProof, t *Table) (*PoRepConfig, error) {
	ssize, err := spt.SectorSize()
	if err != nil {
		return nil, xerrors.Errorf("seal proof %d: %s: %w", spt, err, proof.ErrInvalidConfig)
	}
	sp, err := t.Lookup(ssize)
	if err != nil {
		return nil, err
	}

	c := &PoRepConfig{
		SectorSize: ssize,
		Partitions: sp.PoRepPartitions,
	}
	binary.LittleEndian.PutUint64(c.PoRepID[:8], uint64(spt))

	switch spt {
	case abi.RegisteredSealProof_StackedDrg2KiBV1, abi.RegisteredSealProof_StackedDrg8MiBV1,
		abi.RegisteredSealProof_StackedDrg512MiBV1, abi.RegisteredSealProof_StackedDrg32GiBV1,
		abi.RegisteredSealProof_StackedDrg64GiBV1:
		c.ApiVersion = proof.ApiVersion1_0_0
	case abi.RegisteredSealProof_StackedDrg2KiBV1_1, abi.RegisteredSealProof_StackedDrg8MiBV1_1,
		abi.RegisteredSealProof_StackedDrg512MiBV1_1, abi.RegisteredSealProof_StackedDrg32GiBV1_1,
		abi.RegisteredSealProof_StackedDrg64GiBV1_1:
		c.ApiVersion = proof.ApiVersion1_1_0
	case abi.RegisteredSealProof_StackedDrg2KiBV1_1_Feat_SyntheticPoRep, abi.RegisteredSealProof_StackedDrg8MiBV1_1_Feat_SyntheticPoRep,
		abi.RegisteredSealProof_StackedDrg512MiBV1_1_Feat_SyntheticPoRep, abi.RegisteredSealProof_StackedDrg32GiBV1_1_Feat_SyntheticPoRep,
		abi.RegisteredSealProof_StackedDrg64GiBV1_1_Feat_SyntheticPoRep:
		c.ApiVersion = proof.ApiVersion1_2_0
		c.ApiFeatures = []proof.ApiFeature{proof.ApiFeatureSyntheticPoRep}
	default:
		return nil, xerrors.Errorf("unsupported seal proof %d: %w", spt, proof.ErrInvalidConfig)
	}

	return c, nil
}

// WinningPostSetupParams maps a winning config onto the circuit: its challenges are spread over
// ChallengeCount/SectorCount single challenge "sectors".
func WinningPostSetupParams(cfg *proof.PoStConfig) (*proof.PublicParams, error) {
	if cfg.PoStType != proof.PoStTypeWinning {
		return nil, xerrors.Errorf("expected winning post config, got %s: %w", cfg.PoStType, proof.ErrInvalidConfig)
	}
	if cfg.SectorCount <= 0 || cfg.ChallengeCount <= 0 {
		return nil, xerrors.Errorf("sector count %d and challenge count %d must be positive: %w", cfg.SectorCount, cfg.ChallengeCount, proof.ErrInvalidConfig)
	}
	if cfg.ChallengeCount%cfg.SectorCount != 0 {
		return nil, xerrors.Errorf("challenge count %d must be a multiple of sector count %d: %w", cfg.ChallengeCount, cfg.SectorCount, proof.ErrInvalidConfig)
	}

	paramSectorCount := cfg.ChallengeCount / cfg.SectorCount
	paramChallengeCount := cfg.ChallengeCount / paramSectorCount

	if paramSectorCount*paramChallengeCount != cfg.ChallengeCount {
		return nil, xerrors.Errorf("invalid parameters calculated %d * %d != %d: %w", paramSectorCount, paramChallengeCount, cfg.ChallengeCount, proof.ErrInvalidConfig)
	}

	return &proof.PublicParams{
		SectorSize:     cfg.SectorSize,
		ChallengeCount: paramChallengeCount,
		SectorCount:    paramSectorCount,
		ApiVersion:     cfg.ApiVersion,
	}, nil
}

func WindowPostSetupParams(cfg *proof.PoStConfig) (*proof.PublicParams, error) {
	if cfg.PoStType != proof.PoStTypeWindow {
		return nil, xerrors.Errorf("expected window post config, got %s: %w", cfg.PoStType, proof.ErrInvalidConfig)
	}
	if cfg.SectorCount <= 0 || cfg.ChallengeCount <= 0 {
		return nil, xerrors.Errorf("sector count %d and challenge count %d must be positive: %w", cfg.SectorCount, cfg.ChallengeCount, proof.ErrInvalidConfig)
	}
	return &proof.PublicParams{
		SectorSize:     cfg.SectorSize,
		ChallengeCount: cfg.ChallengeCount,
		SectorCount:    cfg.SectorCount,
		ApiVersion:     cfg.ApiVersion,
	}, nil
}

// WinningPostPublicParams is WinningPostSetupParams for sector sizes with a known tree shape.
func WinningPostPublicParams(cfg *proof.PoStConfig) (*proof.PublicParams, error) {
	if _, err := proof.SectorShape(cfg.SectorSize); err != nil {
		return nil, err
	}
	return WinningPostSetupParams(cfg)
}

func WindowPostPublicParams(cfg *proof.PoStConfig) (*proof.PublicParams, error) {
	if _, err := proof.SectorShape(cfg.SectorSize); err != nil {
		return nil, err
	}
	return WindowPostSetupParams(cfg)
}

// PublicParamsFor dispatches on cfg.PoStType.
func PublicParamsFor(cfg *proof.PoStConfig) (*proof.PublicParams, error) {
	switch cfg.PoStType {
	case proof.PoStTypeWinning:
		return WinningPostPublicParams(cfg)
	case proof.PoStTypeWindow:
		return WindowPostPublicParams(cfg)
	default:
		return nil, xerrors.Errorf("unknown post type %d: %w", cfg.PoStType, proof.ErrInvalidConfig)
	}
}

// WindowPoStConfig builds the window config of ssize with the sector count from t.
func (t *Table) WindowPoStConfig(ssize abi.SectorSize, v proof.ApiVersion) (*proof.PoStConfig, error) {
	sp, err := t.Lookup(ssize)
	if err != nil {
		return nil, err
	}
	return proof.GetPoStConfig(ssize, v, sp.WindowPoStSectorCount)
}
