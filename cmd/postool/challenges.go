package main

import (
	"fmt"
	"slices"

	"github.com/fatih/color"
	"github.com/samber/lo"
	"github.com/urfave/cli/v2"
	"golang.org/x/xerrors"

	"github.com/filecoin-project/go-fil-post/lib/post"
)

var challengesCmd = &cli.Command{
	Name:      "challenges",
	Usage:     "Print the window post leaf challenges of a sector set",
	ArgsUsage: "<sectors...>",
	Flags: []cli.Flag{
		sectorSizeFlag,
		randomnessFlag,
		minerFlag,
		jsonFlag,
	},
	Action: func(cctx *cli.Context) error {
		sectors, err := parseSectors(cctx.Args().Slice())
		if err != nil {
			return err
		}
		if len(sectors) == 0 {
			return xerrors.Errorf("no sectors given")
		}

		pcfg, err := loadConfig(cctx)
		if err != nil {
			return err
		}
		cfg, err := windowConfig(cctx, pcfg)
		if err != nil {
			return err
		}
		rand, err := parseRandomness(cctx.String("randomness"))
		if err != nil {
			return err
		}
		pid, err := proverID(cctx)
		if err != nil {
			return err
		}

		challenges, err := post.GenerateFallbackSectorChallenges(cfg, rand, sectors, pid)
		if err != nil {
			return err
		}

		if cctx.Bool("json") {
			return printJSON(challenges)
		}

		fmt.Printf("%s %d sectors, %d partitions, api %s\n", color.BlueString("Window PoSt:"),
			len(sectors), post.GetNumPartitionForFallbackPoSt(cfg, len(sectors)), cfg.ApiVersion)
		keys := lo.Keys(challenges)
		slices.Sort(keys)
		for _, s := range keys {
			fmt.Printf("%s %v\n", color.GreenString("sector %d:", s), challenges[s])
		}
		return nil
	},
}

var winningSectorsCmd = &cli.Command{
	Name:  "winning-sectors",
	Usage: "Print which sectors of the proving set are challenged by winning post",
	Flags: []cli.Flag{
		sectorSizeFlag,
		randomnessFlag,
		minerFlag,
		&cli.Uint64Flag{
			Name:     "sector-set-len",
			Usage:    "number of sectors in the eligible proving set",
			Required: true,
		},
		jsonFlag,
	},
	Action: func(cctx *cli.Context) error {
		pcfg, err := loadConfig(cctx)
		if err != nil {
			return err
		}
		cfg, err := winningConfig(cctx, pcfg)
		if err != nil {
			return err
		}
		rand, err := parseRandomness(cctx.String("randomness"))
		if err != nil {
			return err
		}
		pid, err := proverID(cctx)
		if err != nil {
			return err
		}

		idx, err := post.GenerateWinningPoStSectorChallenge(cfg, rand, cctx.Uint64("sector-set-len"), pid)
		if err != nil {
			return err
		}

		if cctx.Bool("json") {
			return printJSON(idx)
		}
		for n, i := range idx {
			fmt.Printf("challenge %d: sector set index %s\n", n, color.GreenString("%d", i))
		}
		return nil
	},
}
