package params

import (
	"slices"

	"golang.org/x/xerrors"

	"github.com/filecoin-project/go-state-types/abi"

	"github.com/filecoin-project/go-fil-post/deps/config"
	"github.com/filecoin-project/go-fil-post/lib/proof"
)

// SectorParams are the per sector size circuit constants.
type SectorParams struct {
	Layers                int
	MinimumChallenges     int
	PoRepPartitions       int
	WindowPoStSectorCount int
}

// Table maps sector sizes to their circuit constants. It is built once and only read after.
type Table struct {
	rows map[abi.SectorSize]SectorParams
}

func NewTable(rows map[abi.SectorSize]SectorParams) *Table {
	t := &Table{rows: make(map[abi.SectorSize]SectorParams, len(rows))}
	for k, v := range rows {
		t.rows[k] = v
	}
	return t
}

// DefaultTable holds the network constants.
func DefaultTable() *Table {
	t, err := TableFromConfig(&config.DefaultPoStPipelineConfig().Proofs)
	if err != nil {
		panic(err) // defaults are static
	}
	return t
}

func TableFromConfig(cfg *config.ProofsConfig) (*Table, error) {
	rows := make(map[abi.SectorSize]SectorParams, len(cfg.Sectors))
	for i, row := range cfg.Sectors {
		ssize, err := row.Size()
		if err != nil {
			return nil, xerrors.Errorf("sector row %d: %w", i, err)
		}
		if _, ok := rows[ssize]; ok {
			return nil, xerrors.Errorf("sector row %d: duplicate sector size %s: %w", i, row.SectorSize, proof.ErrInvalidConfig)
		}
		rows[ssize] = SectorParams{
			Layers:                row.Layers,
			MinimumChallenges:     row.MinimumChallenges,
			PoRepPartitions:       row.PoRepPartitions,
			WindowPoStSectorCount: row.WindowPoStSectorCount,
		}
	}
	return &Table{rows: rows}, nil
}

func (t *Table) Lookup(ssize abi.SectorSize) (SectorParams, error) {
	p, ok := t.rows[ssize]
	if !ok {
		return SectorParams{}, xerrors.Errorf("no parameters for sector size %d: %w", ssize, proof.ErrUnknownSectorSize)
	}
	return p, nil
}

// SectorSizes lists the sizes present in the table, smallest first.
func (t *Table) SectorSizes() []abi.SectorSize {
	out := make([]abi.SectorSize, 0, len(t.rows))
	for ssize := range t.rows {
		out = append(out, ssize)
	}
	slices.Sort(out)
	return out
}
