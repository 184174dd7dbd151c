package config

import (
	"time"

	"github.com/docker/go-units"
	"golang.org/x/xerrors"

	"github.com/filecoin-project/go-state-types/abi"

	"github.com/filecoin-project/go-fil-post/lib/proof"
)

func DefaultPoStPipelineConfig() *PoStPipelineConfig {
	return &PoStPipelineConfig{
		Proofs: ProofsConfig{
			ApiVersion:     proof.ApiVersion1_2_0.String(),
			SyntheticPoRep: false,
			Sectors: []SectorParamsConfig{
				{SectorSize: "2KiB", Layers: 2, MinimumChallenges: 2, PoRepPartitions: 1, WindowPoStSectorCount: 2},
				{SectorSize: "4KiB", Layers: 2, MinimumChallenges: 2, PoRepPartitions: 1, WindowPoStSectorCount: 2},
				{SectorSize: "16KiB", Layers: 2, MinimumChallenges: 2, PoRepPartitions: 1, WindowPoStSectorCount: 2},
				{SectorSize: "32KiB", Layers: 2, MinimumChallenges: 2, PoRepPartitions: 1, WindowPoStSectorCount: 2},
				{SectorSize: "8MiB", Layers: 2, MinimumChallenges: 2, PoRepPartitions: 1, WindowPoStSectorCount: 2},
				{SectorSize: "16MiB", Layers: 2, MinimumChallenges: 2, PoRepPartitions: 1, WindowPoStSectorCount: 2},
				{SectorSize: "512MiB", Layers: 2, MinimumChallenges: 2, PoRepPartitions: 1, WindowPoStSectorCount: 2},
				{SectorSize: "1GiB", Layers: 2, MinimumChallenges: 2, PoRepPartitions: 1, WindowPoStSectorCount: 2},
				{SectorSize: "32GiB", Layers: 11, MinimumChallenges: 176, PoRepPartitions: 10, WindowPoStSectorCount: 2349},
				{SectorSize: "64GiB", Layers: 11, MinimumChallenges: 176, PoRepPartitions: 10, WindowPoStSectorCount: 2300},
			},
		},
		Proving: ProvingConfig{
			ParallelVanillaProofs: 32,
			SingleVanillaTimeout:  10 * time.Minute,
			AllowSkip:             false,
		},
	}
}

// PoStPipelineConfig is the configuration of the proving pipeline and its tooling.
type PoStPipelineConfig struct {
	Proofs  ProofsConfig
	Proving ProvingConfig
}

type ProofsConfig struct {
	// Proofs api version used for challenge derivation. Prover and verifier must agree on it.
	// One of "1.0.0", "1.1.0", "1.2.0". (Default: "1.2.0")
	ApiVersion string

	// Enables synthetic PoRep challenge generation in the PoRep setup parameters.
	SyntheticPoRep bool

	// Per sector size circuit parameters. These must match the network constants, changing them
	// produces proofs nobody else accepts.
	Sectors []SectorParamsConfig
}

type SectorParamsConfig struct {
	// Sector size, e.g. "32GiB"
	SectorSize string

	// Number of PoRep layers.
	Layers int

	// Minimum total number of PoRep challenges across all partitions.
	MinimumChallenges int

	// Number of PoRep proof partitions.
	PoRepPartitions int

	// Number of sectors proven in one Window PoSt partition.
	WindowPoStSectorCount int
}

type ProvingConfig struct {
	// Maximum number of sector vanilla proofs generated in parallel. (0 = unlimited) (Default: 32)
	ParallelVanillaProofs int

	// Maximum amount of time generating a vanilla proof may take for a single sector.
	// Time duration string (e.g., "1h2m3s") in TOML format. (Default: "10m0s")
	SingleVanillaTimeout time.Duration

	// When set, sectors whose vanilla proof fails are skipped instead of failing the whole batch.
	AllowSkip bool

	// Deprecated: use ParallelVanillaProofs
	ParallelCheckLimit int `moved:"Proving.ParallelVanillaProofs" toml:",omitempty"`
}

// ParseSectorSize parses human sector sizes like "2KiB" or "32GiB".
func ParseSectorSize(s string) (abi.SectorSize, error) {
	n, err := units.RAMInBytes(s)
	if err != nil {
		return 0, xerrors.Errorf("parsing sector size %q: %s: %w", s, err, proof.ErrInvalidConfig)
	}
	if n <= 0 {
		return 0, xerrors.Errorf("sector size %q must be positive: %w", s, proof.ErrInvalidConfig)
	}
	return abi.SectorSize(n), nil
}

func (s SectorParamsConfig) Size() (abi.SectorSize, error) {
	return ParseSectorSize(s.SectorSize)
}

func (c *ProofsConfig) Version() (proof.ApiVersion, error) {
	return proof.ParseApiVersion(c.ApiVersion)
}

func (c *PoStPipelineConfig) Validate() error {
	if _, err := c.Proofs.Version(); err != nil {
		return err
	}

	seen := map[abi.SectorSize]struct{}{}
	for i, row := range c.Proofs.Sectors {
		ssize, err := row.Size()
		if err != nil {
			return xerrors.Errorf("Proofs.Sectors[%d]: %w", i, err)
		}
		if _, ok := seen[ssize]; ok {
			return xerrors.Errorf("Proofs.Sectors[%d]: duplicate sector size %s: %w", i, row.SectorSize, proof.ErrInvalidConfig)
		}
		seen[ssize] = struct{}{}

		if row.Layers <= 0 || row.MinimumChallenges <= 0 || row.PoRepPartitions <= 0 || row.WindowPoStSectorCount <= 0 {
			return xerrors.Errorf("Proofs.Sectors[%d] (%s): all counts must be positive: %w", i, row.SectorSize, proof.ErrInvalidConfig)
		}
	}

	if c.Proving.ParallelVanillaProofs < 0 {
		return xerrors.Errorf("Proving.ParallelVanillaProofs must not be negative: %w", proof.ErrInvalidConfig)
	}
	if c.Proving.SingleVanillaTimeout < 0 {
		return xerrors.Errorf("Proving.SingleVanillaTimeout must not be negative: %w", proof.ErrInvalidConfig)
	}

	return nil
}
