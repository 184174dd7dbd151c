package main

import (
	"bytes"
	"context"
	"encoding/hex"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/fatih/color"
	"github.com/ipfs/go-cid"
	"github.com/mitchellh/go-homedir"
	"github.com/urfave/cli/v2"
	"golang.org/x/xerrors"

	commcid "github.com/filecoin-project/go-fil-commcid"
	"github.com/filecoin-project/go-state-types/abi"

	"github.com/filecoin-project/go-fil-post/lib/post"
	"github.com/filecoin-project/go-fil-post/lib/proof"
)

var vanillaCmd = &cli.Command{
	Name:  "vanilla",
	Usage: "Generate the window post vanilla proof of a sealed sector on disk",
	Flags: []cli.Flag{
		sectorSizeFlag,
		randomnessFlag,
		minerFlag,
		&cli.Uint64Flag{
			Name:     "sector",
			Usage:    "sector number",
			Required: true,
		},
		&cli.StringFlag{
			Name:     "replica",
			Usage:    "path to the sealed replica",
			Required: true,
		},
		&cli.StringFlag{
			Name:     "cache",
			Usage:    "path to the sector cache holding p_aux",
			Required: true,
		},
		&cli.StringFlag{
			Name:     "sealed-cid",
			Usage:    "sealed sector CID (comm_r)",
			Required: true,
		},
		&cli.StringFlag{
			Name:  "proving-set",
			Usage: "all sectors challenged in the same post, needed for api versions before 1.2.0",
		},
		&cli.StringFlag{
			Name:  "out",
			Usage: "write the bincode encoded proof to this file instead of hex to stdout",
		},
	},
	Action: func(cctx *cli.Context) error {
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

		snum := abi.SectorNumber(cctx.Uint64("sector"))
		sectors := []abi.SectorNumber{snum}
		if ps := cctx.String("proving-set"); ps != "" {
			if sectors, err = parseSectors([]string{ps}); err != nil {
				return err
			}
		}

		commR, err := parseSealedCID(cctx.String("sealed-cid"))
		if err != nil {
			return err
		}
		replicaPath, err := homedir.Expand(cctx.String("replica"))
		if err != nil {
			return err
		}
		cachePath, err := homedir.Expand(cctx.String("cache"))
		if err != nil {
			return err
		}

		challenges, err := post.GenerateFallbackSectorChallenges(cfg, rand, sectors, pid)
		if err != nil {
			return err
		}
		if _, ok := challenges[snum]; !ok {
			return xerrors.Errorf("sector %d is not in the proving set", snum)
		}

		replica := &post.PrivateReplica{ReplicaPath: replicaPath, CachePath: cachePath, CommR: commR}

		ctx := cctx.Context
		if timeout := pcfg.Proving.SingleVanillaTimeout; timeout > 0 {
			var cancel context.CancelFunc
			ctx, cancel = context.WithTimeout(ctx, timeout)
			defer cancel()
		}

		start := time.Now()
		vp, err := post.GenerateSingleVanillaProof(ctx, cfg, snum, replica, challenges[snum])
		if err != nil {
			return err
		}
		log.Infow("generated vanilla proof", "sector", snum, "took", time.Since(start))

		var buf bytes.Buffer
		if err := proof.EncodeFallbackPoStSectorProof(&buf, *vp); err != nil {
			return err
		}

		if out := cctx.String("out"); out != "" {
			if err := os.WriteFile(out, buf.Bytes(), 0644); err != nil {
				return xerrors.Errorf("writing proof: %w", err)
			}
			fmt.Printf("%s sector %d, %d bytes written to %s\n", color.GreenString("Proof:"), snum, buf.Len(), out)
			return nil
		}
		fmt.Println(hex.EncodeToString(buf.Bytes()))
		return nil
	},
}

var verifyVanillaCmd = &cli.Command{
	Name:      "verify-vanilla",
	Usage:     "Verify bincode encoded window post vanilla proofs",
	ArgsUsage: "<proof-files...>",
	Flags: []cli.Flag{
		sectorSizeFlag,
		randomnessFlag,
		minerFlag,
		&cli.StringSliceFlag{
			Name:     "sealed",
			Usage:    "sector=sealed-cid of each challenged sector",
			Required: true,
		},
	},
	Action: func(cctx *cli.Context) error {
		if cctx.NArg() == 0 {
			return xerrors.Errorf("no proof files given")
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

		commRs := map[abi.SectorNumber][32]byte{}
		for _, s := range cctx.StringSlice("sealed") {
			num, c, ok := strings.Cut(s, "=")
			if !ok {
				return xerrors.Errorf("expected sector=cid, got %q", s)
			}
			n, err := strconv.ParseUint(num, 10, 64)
			if err != nil {
				return xerrors.Errorf("parsing sector number %q: %w", num, err)
			}
			if commRs[abi.SectorNumber(n)], err = parseSealedCID(c); err != nil {
				return err
			}
		}

		var vproofs []proof.FallbackPoStSectorProof
		for _, path := range cctx.Args().Slice() {
			b, err := os.ReadFile(path)
			if err != nil {
				return xerrors.Errorf("reading proof: %w", err)
			}
			vp, err := proof.DecodeFallbackPoStSectorProof(bytes.NewReader(b))
			if err != nil {
				return xerrors.Errorf("decoding %s: %w", path, err)
			}
			vproofs = append(vproofs, vp)
		}

		ok, err := post.VerifyVanillaProofs(cfg, rand, pid, commRs, vproofs)
		if err != nil {
			return err
		}
		if !ok {
			return xerrors.Errorf("vanilla proofs are %s", color.RedString("INVALID"))
		}
		fmt.Printf("%d vanilla proofs are %s\n", len(vproofs), color.GreenString("VALID"))
		return nil
	},
}

var mergeCmd = &cli.Command{
	Name:      "merge",
	Usage:     "Concatenate partition proofs into a window post proof",
	ArgsUsage: "<partition-proof-files...>",
	Flags: []cli.Flag{
		&cli.StringFlag{
			Name:     "out",
			Required: true,
		},
	},
	Action: func(cctx *cli.Context) error {
		var parts []proof.PartitionSnarkProof
		for _, path := range cctx.Args().Slice() {
			b, err := os.ReadFile(path)
			if err != nil {
				return xerrors.Errorf("reading partition proof: %w", err)
			}
			if len(b) != proof.SinglePartitionProofLen {
				log.Warnw("unexpected partition proof length", "file", path, "len", len(b))
			}
			parts = append(parts, b)
		}

		merged, err := post.MergeWindowPoStPartitionProofs(parts)
		if err != nil {
			return err
		}
		if err := os.WriteFile(cctx.String("out"), merged, 0644); err != nil {
			return xerrors.Errorf("writing merged proof: %w", err)
		}
		fmt.Printf("merged %d partitions, %d bytes\n", len(parts), len(merged))
		return nil
	},
}

func parseSealedCID(s string) ([32]byte, error) {
	var out [32]byte
	c, err := cid.Decode(s)
	if err != nil {
		return out, xerrors.Errorf("parsing sealed cid: %w", err)
	}
	commR, err := commcid.CIDToReplicaCommitmentV1(c)
	if err != nil {
		return out, xerrors.Errorf("sealed cid: %w", err)
	}
	copy(out[:], commR)
	return out, nil
}
