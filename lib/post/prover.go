package post

import (
	"context"
	"slices"

	"github.com/samber/lo"
	"golang.org/x/sync/errgroup"
	"golang.org/x/xerrors"

	"github.com/filecoin-project/go-state-types/abi"

	"github.com/filecoin-project/go-fil-post/lib/params"
	"github.com/filecoin-project/go-fil-post/lib/proof"
)

// PartitionProver turns a verified partition vanilla proof into its SNARK proof.
type PartitionProver interface {
	ProvePartition(ctx context.Context, pp *proof.PublicParams, pi *proof.PublicInputs, vp *proof.VanillaProof) (proof.PartitionSnarkProof, error)
}

type WindowPoStResult struct {
	Proof      proof.SnarkProof
	Partitions int

	// Proven sectors, in proving order
	Sectors []abi.SectorNumber
	Skipped []abi.SectorNumber
}

// GenerateWindowPoSt proves all sectors of replicas, in sector number order.
func GenerateWindowPoSt(ctx context.Context, cfg *proof.PoStConfig, randomness, proverID [32]byte, replicas map[abi.SectorNumber]PrivateReplicaInfo, prover PartitionProver, opts VanillaOpts) (*WindowPoStResult, error) {
	pp, err := params.WindowPostPublicParams(cfg)
	if err != nil {
		return nil, err
	}

	sectors := lo.Keys(replicas)
	slices.Sort(sectors)

	challenges, err := GenerateFallbackSectorChallenges(cfg, randomness, sectors, proverID)
	if err != nil {
		return nil, xerrors.Errorf("generating challenges: %w", err)
	}

	vproofs, skipped, err := GenerateVanillaProofs(ctx, cfg, challenges, replicas, opts)
	if err != nil {
		return nil, err
	}

	if len(skipped) > 0 && !cfg.ApiVersion.GreaterOrEqual(proof.ApiVersion1_2_0) {
		// before 1.2.0 challenges depend on sector positions, which shift when sectors drop out
		sectors = lo.Without(sectors, skipped...)
		if challenges, err = GenerateFallbackSectorChallenges(cfg, randomness, sectors, proverID); err != nil {
			return nil, xerrors.Errorf("regenerating challenges: %w", err)
		}
		noSkip := opts
		noSkip.AllowSkip = false
		if vproofs, _, err = GenerateVanillaProofs(ctx, cfg, challenges, replicas, noSkip); err != nil {
			return nil, xerrors.Errorf("re-proving after skipping %d sectors: %w", len(skipped), err)
		}
	}
	if len(vproofs) == 0 {
		return nil, xerrors.Errorf("no sectors left to prove (skipped %d): %w", len(skipped), proof.ErrInvalidInput)
	}

	randomnessSafe, err := proof.AsSafeCommitment(randomness, "randomness")
	if err != nil {
		return nil, err
	}
	proverIDSafe, err := proof.AsSafeCommitment(proverID, "prover_id")
	if err != nil {
		return nil, err
	}

	pi := &proof.PublicInputs{
		Randomness: randomnessSafe,
		ProverID:   proverIDSafe,
		Sectors: lo.Map(vproofs, func(vp proof.FallbackPoStSectorProof, _ int) proof.PublicSector {
			return proof.PublicSector{ID: vp.SectorID, CommR: vp.CommR}
		}),
	}

	partitionCount := GetNumPartitionForFallbackPoSt(cfg, len(pi.Sectors))
	partitions, err := PartitionVanillaProofs(cfg, pp, pi, partitionCount, vproofs)
	if err != nil {
		return nil, err
	}

	snarks, err := provePartitions(ctx, pp, pi, partitions, prover)
	if err != nil {
		return nil, err
	}

	out, err := MergeWindowPoStPartitionProofs(snarks)
	if err != nil {
		return nil, xerrors.Errorf("merging partition proofs: %w", err)
	}

	return &WindowPoStResult{
		Proof:      out,
		Partitions: len(partitions),
		Sectors:    lo.Map(pi.Sectors, func(s proof.PublicSector, _ int) abi.SectorNumber { return s.ID }),
		Skipped:    skipped,
	}, nil
}

func provePartitions(ctx context.Context, pp *proof.PublicParams, pi *proof.PublicInputs, partitions []proof.VanillaProof, prover PartitionProver) ([]proof.PartitionSnarkProof, error) {
	chunks := lo.Chunk(pi.Sectors, pp.SectorCount)
	out := make([]proof.PartitionSnarkProof, len(partitions))

	eg, ctx := errgroup.WithContext(ctx)
	for j := range partitions {
		eg.Go(func() error {
			pij := *pi
			if j < len(chunks) {
				pij.Sectors = chunks[j]
			}
			pij = pij.WithPartition(j)

			sp, err := prover.ProvePartition(ctx, pp, &pij, &partitions[j])
			if err != nil {
				return xerrors.Errorf("proving partition %d: %w", j, err)
			}
			if len(sp) != proof.SinglePartitionProofLen {
				return xerrors.Errorf("partition %d proof is %d bytes, expected %d: %w", j, len(sp), proof.SinglePartitionProofLen, proof.ErrProofConstruction)
			}
			out[j] = sp
			return nil
		})
	}
	if err := eg.Wait(); err != nil {
		return nil, err
	}
	return out, nil
}

// GenerateWinningPoSt proves the sectors selected by GenerateWinningPoStSectorChallenge.
// replicas must hold exactly cfg.SectorCount sectors.
func GenerateWinningPoSt(ctx context.Context, cfg *proof.PoStConfig, randomness, proverID [32]byte, replicas map[abi.SectorNumber]PrivateReplicaInfo, prover PartitionProver) (proof.SnarkProof, error) {
	if len(replicas) != cfg.SectorCount {
		return nil, xerrors.Errorf("got %d replicas, winning post proves %d: %w", len(replicas), cfg.SectorCount, proof.ErrInvalidInput)
	}

	pp, err := params.WinningPostPublicParams(cfg)
	if err != nil {
		return nil, err
	}

	sectors := lo.Keys(replicas)
	slices.Sort(sectors)

	challenges, err := GenerateFallbackSectorChallenges(cfg, randomness, sectors, proverID)
	if err != nil {
		return nil, xerrors.Errorf("generating challenges: %w", err)
	}

	vproofs, _, err := GenerateVanillaProofs(ctx, cfg, challenges, replicas, VanillaOpts{})
	if err != nil {
		return nil, err
	}

	randomnessSafe, err := proof.AsSafeCommitment(randomness, "randomness")
	if err != nil {
		return nil, err
	}
	proverIDSafe, err := proof.AsSafeCommitment(proverID, "prover_id")
	if err != nil {
		return nil, err
	}

	pi := &proof.PublicInputs{
		Randomness: randomnessSafe,
		ProverID:   proverIDSafe,
		Sectors: lo.Map(vproofs, func(vp proof.FallbackPoStSectorProof, _ int) proof.PublicSector {
			return proof.PublicSector{ID: vp.SectorID, CommR: vp.CommR}
		}),
	}

	partitions, err := PartitionVanillaProofs(cfg, pp, pi, 1, vproofs)
	if err != nil {
		return nil, err
	}

	snarks, err := provePartitions(ctx, pp, pi, partitions, prover)
	if err != nil {
		return nil, err
	}
	return MergeWindowPoStPartitionProofs(snarks)
}
