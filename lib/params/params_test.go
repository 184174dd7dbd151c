package params

import (
	"testing"

	"github.com/snadrus/must"
	"github.com/stretchr/testify/require"

	"github.com/filecoin-project/go-state-types/abi"

	"github.com/filecoin-project/go-fil-post/deps/config"
	"github.com/filecoin-project/go-fil-post/lib/proof"
)

func TestSelectChallenges(t *testing.T) {
	for partitions, exp := range map[int]int{1: 12, 2: 6, 4: 3} {
		lc := SelectChallenges(partitions, 12, 11, false)
		require.Equal(t, LayerChallenges{Layers: 11, MaxCount: exp}, lc, "partitions %d", partitions)
		require.GreaterOrEqual(t, partitions*lc.ChallengesCountAll(), 12)
	}

	// uneven split rounds up
	lc := SelectChallenges(10, 176, 11, true)
	require.Equal(t, 18, lc.MaxCount)
	require.True(t, lc.UseSynthetic)
}

func TestWinningPostSetupParams(t *testing.T) {
	cfg := &proof.PoStConfig{
		PoStType:       proof.PoStTypeWinning,
		SectorSize:     2048,
		SectorCount:    1,
		ChallengeCount: 66,
		ApiVersion:     proof.ApiVersion1_2_0,
	}

	pp, err := WinningPostSetupParams(cfg)
	require.NoError(t, err)
	require.Equal(t, 66, pp.SectorCount)
	require.Equal(t, 1, pp.ChallengeCount)
	require.Equal(t, abi.SectorSize(2048), pp.SectorSize)

	cfg.SectorCount = 4
	_, err = WinningPostSetupParams(cfg)
	require.ErrorIs(t, err, proof.ErrInvalidConfig)

	cfg.SectorCount = 0
	_, err = WinningPostSetupParams(cfg)
	require.ErrorIs(t, err, proof.ErrInvalidConfig)

	cfg.SectorCount = 1
	cfg.ChallengeCount = 0
	_, err = WinningPostSetupParams(cfg)
	require.ErrorIs(t, err, proof.ErrInvalidConfig)

	cfg.ChallengeCount = -66
	_, err = WinningPostSetupParams(cfg)
	require.ErrorIs(t, err, proof.ErrInvalidConfig)
}

func TestWindowPostPublicParams(t *testing.T) {
	cfg := must.One(proof.GetPoStConfig(32<<30, proof.ApiVersion1_2_0, 0))

	pp, err := WindowPostPublicParams(cfg)
	require.NoError(t, err)
	require.Equal(t, 2349, pp.SectorCount)
	require.Equal(t, 10, pp.ChallengeCount)

	cfg.SectorSize = 3 << 10
	_, err = WindowPostPublicParams(cfg)
	require.ErrorIs(t, err, proof.ErrUnknownSectorSize)

	_, err = WindowPostSetupParams(must.One(proof.GetWinningPoStConfig(2048, proof.ApiVersion1_2_0)))
	require.ErrorIs(t, err, proof.ErrInvalidConfig)

	zero := must.One(proof.GetPoStConfig(2048, proof.ApiVersion1_2_0, 0))
	zero.ChallengeCount = 0
	_, err = WindowPostSetupParams(zero)
	require.ErrorIs(t, err, proof.ErrInvalidConfig)

	zero = must.One(proof.GetPoStConfig(2048, proof.ApiVersion1_2_0, 0))
	zero.SectorCount = -1
	_, err = WindowPostSetupParams(zero)
	require.ErrorIs(t, err, proof.ErrInvalidConfig)
}

func TestPublicParamsFor(t *testing.T) {
	window := must.One(proof.GetPoStConfig(2048, proof.ApiVersion1_2_0, 0))
	pp, err := PublicParamsFor(window)
	require.NoError(t, err)
	require.Equal(t, must.One(WindowPostPublicParams(window)), pp)

	winning := must.One(proof.GetWinningPoStConfig(2048, proof.ApiVersion1_2_0))
	pp, err = PublicParamsFor(winning)
	require.NoError(t, err)
	require.Equal(t, 66, pp.SectorCount)
	require.Equal(t, 1, pp.ChallengeCount)

	winning.PoStType = proof.PoStType(7)
	_, err = PublicParamsFor(winning)
	require.ErrorIs(t, err, proof.ErrInvalidConfig)
}

func TestSetupParamsFor(t *testing.T) {
	table := DefaultTable()

	c := must.One(PoRepConfigFromSealProof(abi.RegisteredSealProof_StackedDrg32GiBV1_1, table))
	require.Equal(t, 10, c.Partitions)
	require.Equal(t, proof.ApiVersion1_1_0, c.ApiVersion)
	require.Equal(t, byte(abi.RegisteredSealProof_StackedDrg32GiBV1_1), c.PoRepID[0])
	require.False(t, c.FeatureEnabled(proof.ApiFeatureSyntheticPoRep))

	sp, err := SetupParamsFor(table, c)
	require.NoError(t, err)
	require.Equal(t, uint64(1<<30), sp.Nodes)
	require.Equal(t, DRGDegree, sp.Degree)
	require.Equal(t, EXPDegree, sp.ExpansionDegree)
	require.Equal(t, LayerChallenges{Layers: 11, MaxCount: 18}, sp.LayerChallenges)

	c = must.One(PoRepConfigFromSealProof(abi.RegisteredSealProof_StackedDrg2KiBV1_1_Feat_SyntheticPoRep, table))
	require.Equal(t, proof.ApiVersion1_2_0, c.ApiVersion)
	require.True(t, c.FeatureEnabled(proof.ApiFeatureSyntheticPoRep))

	sp, err = SetupParamsFor(table, c)
	require.NoError(t, err)
	require.Equal(t, uint64(64), sp.Nodes)
	require.Equal(t, LayerChallenges{Layers: 2, MaxCount: 2, UseSynthetic: true}, sp.LayerChallenges)
}

func TestSetupParamsForErrors(t *testing.T) {
	table := NewTable(map[abi.SectorSize]SectorParams{
		2050: {Layers: 2, MinimumChallenges: 2, PoRepPartitions: 1, WindowPoStSectorCount: 2},
	})

	_, err := SetupParamsFor(table, &PoRepConfig{SectorSize: 2050, Partitions: 1})
	require.ErrorIs(t, err, proof.ErrInvalidSectorSize)

	_, err = SetupParamsFor(table, &PoRepConfig{SectorSize: 2048, Partitions: 1})
	require.ErrorIs(t, err, proof.ErrUnknownSectorSize)

	for _, parts := range []int{0, -1} {
		_, err = SetupParamsFor(DefaultTable(), &PoRepConfig{SectorSize: 2048, Partitions: parts})
		require.ErrorIs(t, err, proof.ErrInvalidConfig)
	}
}

func TestSelectChallengesNoPartitions(t *testing.T) {
	require.Panics(t, func() { SelectChallenges(0, 10, 11, false) })
	require.Panics(t, func() { SelectChallenges(-2, 10, 11, false) })
}

func TestTableFromConfig(t *testing.T) {
	cfg := config.DefaultPoStPipelineConfig()
	table, err := TableFromConfig(&cfg.Proofs)
	require.NoError(t, err)
	require.Len(t, table.SectorSizes(), 10)
	require.Equal(t, abi.SectorSize(2048), table.SectorSizes()[0])

	sp := must.One(table.Lookup(64 << 30))
	require.Equal(t, SectorParams{Layers: 11, MinimumChallenges: 176, PoRepPartitions: 10, WindowPoStSectorCount: 2300}, sp)

	pc := must.One(table.WindowPoStConfig(64<<30, proof.ApiVersion1_1_0))
	require.Equal(t, 2300, pc.SectorCount)

	cfg.Proofs.Sectors = append(cfg.Proofs.Sectors, cfg.Proofs.Sectors[1])
	_, err = TableFromConfig(&cfg.Proofs)
	require.ErrorIs(t, err, proof.ErrInvalidConfig)
}
