package main

import (
	"fmt"

	"github.com/dustin/go-humanize"
	"github.com/fatih/color"
	"github.com/urfave/cli/v2"
	"golang.org/x/xerrors"

	"github.com/filecoin-project/go-state-types/abi"

	"github.com/filecoin-project/go-fil-post/lib/params"
	"github.com/filecoin-project/go-fil-post/lib/proof"
)

var paramsCmd = &cli.Command{
	Name:  "params",
	Usage: "Print the circuit parameters of the configured sector sizes",
	Flags: []cli.Flag{
		&cli.Int64Flag{
			Name:  "seal-proof",
			Usage: "registered seal proof to derive the porep config from, defaults to all sizes at V1_1",
			Value: -1,
		},
		jsonFlag,
	},
	Action: func(cctx *cli.Context) error {
		pcfg, err := loadConfig(cctx)
		if err != nil {
			return err
		}
		table, err := params.TableFromConfig(&pcfg.Proofs)
		if err != nil {
			return err
		}
		v, err := pcfg.Proofs.Version()
		if err != nil {
			return err
		}

		var spts []abi.RegisteredSealProof
		if sp := cctx.Int64("seal-proof"); sp >= 0 {
			spts = append(spts, abi.RegisteredSealProof(sp))
		} else {
			for _, ssize := range table.SectorSizes() {
				spt, err := sealProofForSize(ssize, pcfg.Proofs.SyntheticPoRep)
				if err != nil {
					log.Warnw("no seal proof for configured sector size", "size", ssize, "error", err)
					continue
				}
				spts = append(spts, spt)
			}
		}

		type row struct {
			SealProof  abi.RegisteredSealProof
			SectorSize abi.SectorSize
			Setup      *params.SetupParams
			WindowPoSt *proof.PublicParams
			Winning    *proof.PublicParams
		}
		var rows []row

		for _, spt := range spts {
			pc, err := params.PoRepConfigFromSealProof(spt, table)
			if err != nil {
				return xerrors.Errorf("seal proof %d: %w", spt, err)
			}
			sp, err := params.SetupParamsFor(table, pc)
			if err != nil {
				return xerrors.Errorf("seal proof %d: %w", spt, err)
			}

			wcfg, err := table.WindowPoStConfig(pc.SectorSize, v)
			if err != nil {
				return err
			}
			wpp, err := params.PublicParamsFor(wcfg)
			if err != nil {
				return err
			}
			ncfg, err := proof.GetWinningPoStConfig(pc.SectorSize, v)
			if err != nil {
				return err
			}
			npp, err := params.PublicParamsFor(ncfg)
			if err != nil {
				return err
			}

			rows = append(rows, row{SealProof: spt, SectorSize: pc.SectorSize, Setup: sp, WindowPoSt: wpp, Winning: npp})
		}

		if cctx.Bool("json") {
			return printJSON(rows)
		}

		for _, r := range rows {
			fmt.Printf("%s (seal proof %d, api %s)\n", color.BlueString(humanize.IBytes(uint64(r.SectorSize))), r.SealProof, r.Setup.ApiVersion)
			fmt.Printf("  nodes:            %s\n", humanize.Comma(int64(r.Setup.Nodes)))
			fmt.Printf("  layers:           %d\n", r.Setup.LayerChallenges.Layers)
			fmt.Printf("  porep challenges: %d\n", r.Setup.LayerChallenges.MaxCount)
			fmt.Printf("  synthetic:        %t\n", r.Setup.LayerChallenges.UseSynthetic)
			fmt.Printf("  window post:      %d sectors x %d challenges\n", r.WindowPoSt.SectorCount, r.WindowPoSt.ChallengeCount)
			fmt.Printf("  winning post:     %d sectors x %d challenges\n", r.Winning.SectorCount, r.Winning.ChallengeCount)
		}
		return nil
	},
}

func sealProofForSize(ssize abi.SectorSize, synthetic bool) (abi.RegisteredSealProof, error) {
	type pair struct{ v11, synth abi.RegisteredSealProof }
	m := map[abi.SectorSize]pair{
		2 << 10:   {abi.RegisteredSealProof_StackedDrg2KiBV1_1, abi.RegisteredSealProof_StackedDrg2KiBV1_1_Feat_SyntheticPoRep},
		8 << 20:   {abi.RegisteredSealProof_StackedDrg8MiBV1_1, abi.RegisteredSealProof_StackedDrg8MiBV1_1_Feat_SyntheticPoRep},
		512 << 20: {abi.RegisteredSealProof_StackedDrg512MiBV1_1, abi.RegisteredSealProof_StackedDrg512MiBV1_1_Feat_SyntheticPoRep},
		32 << 30:  {abi.RegisteredSealProof_StackedDrg32GiBV1_1, abi.RegisteredSealProof_StackedDrg32GiBV1_1_Feat_SyntheticPoRep},
		64 << 30:  {abi.RegisteredSealProof_StackedDrg64GiBV1_1, abi.RegisteredSealProof_StackedDrg64GiBV1_1_Feat_SyntheticPoRep},
	}
	p, ok := m[ssize]
	if !ok {
		return 0, xerrors.Errorf("sector size %d: %w", ssize, proof.ErrUnknownSectorSize)
	}
	if synthetic {
		return p.synth, nil
	}
	return p.v11, nil
}
