package config

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/xerrors"

	"github.com/filecoin-project/go-state-types/abi"

	"github.com/filecoin-project/go-fil-post/lib/proof"
)

func TestDefaultConfigValid(t *testing.T) {
	cfg := DefaultPoStPipelineConfig()
	require.NoError(t, cfg.Validate())

	v, err := cfg.Proofs.Version()
	require.NoError(t, err)
	require.Equal(t, proof.ApiVersion1_2_0, v)

	ssize, err := cfg.Proofs.Sectors[8].Size()
	require.NoError(t, err)
	require.Equal(t, abi.SectorSize(32<<30), ssize)
}

func TestParseSectorSize(t *testing.T) {
	for in, exp := range map[string]abi.SectorSize{
		"2KiB":  2 << 10,
		"8MiB":  8 << 20,
		"32GiB": 32 << 30,
		"64GiB": 64 << 30,
	} {
		ssize, err := ParseSectorSize(in)
		require.NoError(t, err, in)
		require.Equal(t, exp, ssize, in)
	}

	_, err := ParseSectorSize("lots")
	require.ErrorIs(t, err, proof.ErrInvalidConfig)
	_, err = ParseSectorSize("0")
	require.ErrorIs(t, err, proof.ErrInvalidConfig)
}

func TestFromReaderOverrides(t *testing.T) {
	in := `
[Proofs]
  ApiVersion = "1.1.0"

[Proving]
  ParallelVanillaProofs = 4
  SingleVanillaTimeout = "30s"
`
	raw, err := FromReader(strings.NewReader(in), DefaultPoStPipelineConfig(), IgnoreEnv())
	require.NoError(t, err)
	cfg := raw.(*PoStPipelineConfig)

	exp := DefaultPoStPipelineConfig()
	exp.Proofs.ApiVersion = "1.1.0"
	exp.Proving.ParallelVanillaProofs = 4
	exp.Proving.SingleVanillaTimeout = 30 * time.Second

	require.True(t, cmp.Equal(exp, cfg), cmp.Diff(exp, cfg))
}

func TestFromReaderMovedField(t *testing.T) {
	in := `
[Proving]
  ParallelCheckLimit = 7
`
	var warn bytes.Buffer
	raw, err := FromReader(strings.NewReader(in), DefaultPoStPipelineConfig(), IgnoreEnv(), SetWarningWriter(&warn))
	require.NoError(t, err)

	cfg := raw.(*PoStPipelineConfig)
	require.Equal(t, 7, cfg.Proving.ParallelVanillaProofs)
	require.Contains(t, warn.String(), "Proving.ParallelCheckLimit")

	// the new location wins when both are set
	in = `
[Proving]
  ParallelCheckLimit = 7
  ParallelVanillaProofs = 9
`
	raw, err = FromReader(strings.NewReader(in), DefaultPoStPipelineConfig(), IgnoreEnv(), SetWarningWriter(&warn))
	require.NoError(t, err)
	require.Equal(t, 9, raw.(*PoStPipelineConfig).Proving.ParallelVanillaProofs)
}

func TestFromReaderEnv(t *testing.T) {
	t.Setenv("POST_PROVING_ALLOWSKIP", "true")
	t.Setenv("POST_PROOFS_APIVERSION", "1.0.0")

	raw, err := FromReader(strings.NewReader(""), DefaultPoStPipelineConfig())
	require.NoError(t, err)

	cfg := raw.(*PoStPipelineConfig)
	assert.True(t, cfg.Proving.AllowSkip)
	assert.Equal(t, "1.0.0", cfg.Proofs.ApiVersion)
}

func TestSectorTableOverride(t *testing.T) {
	in := `
[[Proofs.Sectors]]
  SectorSize = "2KiB"
  Layers = 3
  MinimumChallenges = 4
  PoRepPartitions = 1
  WindowPoStSectorCount = 5
`
	raw, err := FromReader(strings.NewReader(in), DefaultPoStPipelineConfig(), IgnoreEnv())
	require.NoError(t, err)

	cfg := raw.(*PoStPipelineConfig)
	require.Equal(t, []SectorParamsConfig{
		{SectorSize: "2KiB", Layers: 3, MinimumChallenges: 4, PoRepPartitions: 1, WindowPoStSectorCount: 5},
	}, cfg.Proofs.Sectors)
	require.NoError(t, cfg.Validate())
}

func TestValidate(t *testing.T) {
	cases := map[string]func(c *PoStPipelineConfig){
		"bad version": func(c *PoStPipelineConfig) {
			c.Proofs.ApiVersion = "2.0.0"
		},
		"duplicate size": func(c *PoStPipelineConfig) {
			c.Proofs.Sectors = append(c.Proofs.Sectors, c.Proofs.Sectors[0])
		},
		"zero layers": func(c *PoStPipelineConfig) {
			c.Proofs.Sectors[3].Layers = 0
		},
		"bad size": func(c *PoStPipelineConfig) {
			c.Proofs.Sectors[0].SectorSize = "two"
		},
		"negative parallelism": func(c *PoStPipelineConfig) {
			c.Proving.ParallelVanillaProofs = -1
		},
	}

	for name, mut := range cases {
		t.Run(name, func(t *testing.T) {
			cfg := DefaultPoStPipelineConfig()
			mut(cfg)
			err := cfg.Validate()
			require.Error(t, err)
			require.True(t, xerrors.Is(err, proof.ErrInvalidConfig) || xerrors.Is(err, proof.ErrInvalidInput), err.Error())
		})
	}
}

func TestLoadPoStPipelineConfig(t *testing.T) {
	dir := t.TempDir()

	cfg, err := LoadPoStPipelineConfig(filepath.Join(dir, "missing.toml"), IgnoreEnv())
	require.NoError(t, err)
	require.Equal(t, DefaultPoStPipelineConfig(), cfg)

	_, err = LoadPoStPipelineConfig(filepath.Join(dir, "missing.toml"), SetCanFallbackOnDefault(RequireFile))
	require.Error(t, err)

	path := filepath.Join(dir, "post.toml")
	require.NoError(t, os.WriteFile(path, []byte("[Proving]\n  AllowSkip = true\n"), 0644))
	cfg, err = LoadPoStPipelineConfig(path, IgnoreEnv())
	require.NoError(t, err)
	require.True(t, cfg.Proving.AllowSkip)

	require.NoError(t, os.WriteFile(path, []byte("[Proofs]\n  ApiVersion = \"9\"\n"), 0644))
	_, err = LoadPoStPipelineConfig(path, IgnoreEnv())
	require.Error(t, err)
}

func TestConfigComment(t *testing.T) {
	def := DefaultPoStPipelineConfig()

	out, err := ConfigComment(def, DefaultPoStPipelineConfig())
	require.NoError(t, err)
	require.Contains(t, string(out), "# env var: POST_PROVING_ALLOWSKIP")
	require.Contains(t, string(out), "#AllowSkip = false")

	cur := DefaultPoStPipelineConfig()
	cur.Proving.AllowSkip = true
	out, err = ConfigComment(cur, DefaultPoStPipelineConfig())
	require.NoError(t, err)
	require.Contains(t, string(out), "  AllowSkip = true")
	require.NotContains(t, string(out), "#AllowSkip")
}
