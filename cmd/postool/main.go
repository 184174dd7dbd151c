package main

import (
	"encoding/hex"
	"encoding/json"
	"fmt"
	"os"
	"strconv"
	"strings"

	logging "github.com/ipfs/go-log/v2"
	"github.com/urfave/cli/v2"
	"golang.org/x/xerrors"

	"github.com/filecoin-project/go-state-types/abi"

	"github.com/filecoin-project/go-fil-post/build"
	"github.com/filecoin-project/go-fil-post/deps/config"
	"github.com/filecoin-project/go-fil-post/lib/params"
	"github.com/filecoin-project/go-fil-post/lib/post"
	"github.com/filecoin-project/go-fil-post/lib/proof"
)

var log = logging.Logger("postool")

func main() {
	app := &cli.App{
		Name:    "postool",
		Usage:   "fallback PoSt challenge and vanilla proof tool",
		Version: build.UserVersion(),
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "config",
				Usage:   "path to the pipeline config",
				Value:   "~/.postool/config.toml",
				EnvVars: []string{"POST_CONFIG"},
			},
			&cli.StringFlag{
				Name:  "log-level",
				Value: "WARN",
			},
		},
		Before: func(cctx *cli.Context) error {
			return logging.SetLogLevel("*", cctx.String("log-level"))
		},
		Commands: []*cli.Command{
			challengesCmd,     // leaf challenges per sector
			winningSectorsCmd, // sector set indexes picked for winning post

			vanillaCmd,       // vanilla proof of a replica on disk
			verifyVanillaCmd, // verify encoded vanilla proofs
			mergeCmd,         // concatenate partition proofs

			commdCmd,  // piece commitment of a file
			paramsCmd, // per sector size circuit parameters
			configCmd,
		},
	}
	app.Setup()

	if err := app.Run(os.Args); err != nil {
		_, _ = fmt.Fprintf(os.Stderr, "error: %s\n", err)
		os.Exit(1)
	}
}

var sectorSizeFlag = &cli.StringFlag{
	Name:  "sector-size",
	Usage: "sector size, e.g. 2KiB or 32GiB",
	Value: "32GiB",
}

var randomnessFlag = &cli.StringFlag{
	Name:     "randomness",
	Usage:    "hex encoded 32 byte chain randomness",
	Required: true,
}

var minerFlag = &cli.Uint64Flag{
	Name:     "miner",
	Usage:    "miner actor id",
	Required: true,
}

var jsonFlag = &cli.BoolFlag{
	Name:  "json",
	Usage: "print json output",
}

func loadConfig(cctx *cli.Context) (*config.PoStPipelineConfig, error) {
	return config.LoadPoStPipelineConfig(cctx.String("config"), config.SetWarningWriter(os.Stderr))
}

// windowConfig builds the window post config for --sector-size from the configured table.
func windowConfig(cctx *cli.Context, pcfg *config.PoStPipelineConfig) (*proof.PoStConfig, error) {
	ssize, err := config.ParseSectorSize(cctx.String("sector-size"))
	if err != nil {
		return nil, err
	}
	table, err := params.TableFromConfig(&pcfg.Proofs)
	if err != nil {
		return nil, err
	}
	v, err := pcfg.Proofs.Version()
	if err != nil {
		return nil, err
	}
	return table.WindowPoStConfig(ssize, v)
}

func winningConfig(cctx *cli.Context, pcfg *config.PoStPipelineConfig) (*proof.PoStConfig, error) {
	ssize, err := config.ParseSectorSize(cctx.String("sector-size"))
	if err != nil {
		return nil, err
	}
	v, err := pcfg.Proofs.Version()
	if err != nil {
		return nil, err
	}
	return proof.GetWinningPoStConfig(ssize, v)
}

// parseRandomness decodes chain randomness and clears the top bits so it is a valid field
// element.
func parseRandomness(s string) ([32]byte, error) {
	var out [32]byte
	b, err := hex.DecodeString(strings.TrimPrefix(s, "0x"))
	if err != nil {
		return out, xerrors.Errorf("decoding randomness: %w", err)
	}
	if len(b) != 32 {
		return out, xerrors.Errorf("randomness must be 32 bytes, got %d", len(b))
	}
	copy(out[:], b)
	out[31] &= 0x3f
	return out, nil
}

func proverID(cctx *cli.Context) ([32]byte, error) {
	return post.ProverIDFromActor(abi.ActorID(cctx.Uint64("miner")))
}

// maxParsedSectors bounds the sectors a single sector list may expand to.
const maxParsedSectors = 1 << 20

// parseSectors accepts numbers and inclusive ranges, e.g. "1,4,10-12".
func parseSectors(args []string) ([]abi.SectorNumber, error) {
	var out []abi.SectorNumber
	for _, arg := range args {
		for _, part := range strings.Split(arg, ",") {
			if part == "" {
				continue
			}
			first, last, isRange := strings.Cut(part, "-")
			from, err := strconv.ParseUint(first, 10, 64)
			if err != nil {
				return nil, xerrors.Errorf("parsing sector %q: %w", part, err)
			}
			to := from
			if isRange {
				if to, err = strconv.ParseUint(last, 10, 64); err != nil {
					return nil, xerrors.Errorf("parsing sector range %q: %w", part, err)
				}
				if to < from {
					return nil, xerrors.Errorf("empty sector range %q", part)
				}
			}
			if to-from >= uint64(maxParsedSectors-len(out)) {
				return nil, xerrors.Errorf("sector list %q expands past %d sectors", part, maxParsedSectors)
			}
			for s := from; ; s++ {
				out = append(out, abi.SectorNumber(s))
				if s == to {
					break
				}
			}
		}
	}
	return out, nil
}

func printJSON(v any) error {
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
