package post

import (
	"context"
	"slices"
	"sync"
	"time"

	"github.com/samber/lo"
	"go.opencensus.io/stats"
	"go.opencensus.io/tag"
	"go.uber.org/multierr"
	"golang.org/x/sync/errgroup"
	"golang.org/x/xerrors"

	"github.com/filecoin-project/go-state-types/abi"

	"github.com/filecoin-project/go-fil-post/deps/config"
	"github.com/filecoin-project/go-fil-post/lib/proof"
)

// GenerateSingleVanillaProof builds the inclusion proofs of challenges in the tree-r-last of one
// sector. Every inclusion proof is checked against its leaf and comm_r_last before returning.
func GenerateSingleVanillaProof(ctx context.Context, cfg *proof.PoStConfig, sectorID abi.SectorNumber, replica PrivateReplicaInfo, challenges []uint64) (*proof.FallbackPoStSectorProof, error) {
	log.Infow("generate_single_vanilla_proof:start", "sector", sectorID, "challenges", len(challenges))

	tree, err := replica.MerkleTree(cfg.SectorSize)
	if err != nil {
		return nil, xerrors.Errorf("sector %d: merkle tree: %s: %w", sectorID, err, proof.ErrReplicaAccess)
	}
	commR, err := replica.SafeCommR()
	if err != nil {
		return nil, xerrors.Errorf("sector %d: comm_r: %s: %w", sectorID, err, proof.ErrReplicaAccess)
	}
	commC, err := replica.SafeCommC()
	if err != nil {
		return nil, xerrors.Errorf("sector %d: comm_c: %s: %w", sectorID, err, proof.ErrReplicaAccess)
	}
	commRLast, err := replica.SafeCommRLast()
	if err != nil {
		return nil, xerrors.Errorf("sector %d: comm_r_last: %s: %w", sectorID, err, proof.ErrReplicaAccess)
	}

	inclusionProofs := make([]proof.MerkleProof[proof.PoseidonDomain], len(challenges))

	eg, ctx := errgroup.WithContext(ctx)
	for i, leaf := range challenges {
		eg.Go(func() error {
			if err := ctx.Err(); err != nil {
				return err
			}

			ip, err := tree.GenProof(leaf)
			if err != nil {
				return xerrors.Errorf("sector %d: generating inclusion proof for leaf %d: %s: %w", sectorID, leaf, err, proof.ErrProofConstruction)
			}
			if !proof.ValidateInclusionProof(ip, leaf) || ip.Root() != commRLast {
				return xerrors.Errorf("sector %d: generated inclusion proof for leaf %d is invalid: %w", sectorID, leaf, proof.ErrProofConstruction)
			}

			inclusionProofs[i] = ip
			return nil
		})
	}
	if err := eg.Wait(); err != nil {
		return nil, err
	}

	log.Infow("generate_single_vanilla_proof:finish", "sector", sectorID)

	return &proof.FallbackPoStSectorProof{
		SectorID: sectorID,
		CommR:    commR,
		VanillaProof: proof.VanillaProof{
			Sectors: []proof.SectorProof{{
				InclusionProofs: inclusionProofs,
				CommC:           commC,
				CommRLast:       commRLast,
			}},
		},
	}, nil
}

// VanillaOpts controls batch vanilla proving.
type VanillaOpts struct {
	// Parallel limits concurrently proven sectors, 0 means no limit.
	Parallel int
	// Timeout bounds a single sector, 0 means no timeout.
	Timeout time.Duration
	// AllowSkip drops failed sectors instead of failing the batch.
	AllowSkip bool
}

func VanillaOptsFromConfig(c *config.ProvingConfig) VanillaOpts {
	return VanillaOpts{
		Parallel:  c.ParallelVanillaProofs,
		Timeout:   c.SingleVanillaTimeout,
		AllowSkip: c.AllowSkip,
	}
}

// GenerateVanillaProofs proves every challenged sector. Proofs are returned ordered by sector
// number; with AllowSkip the sectors that failed are returned next to them instead of an error.
func GenerateVanillaProofs(ctx context.Context, cfg *proof.PoStConfig, challenges map[abi.SectorNumber][]uint64, replicas map[abi.SectorNumber]PrivateReplicaInfo, opts VanillaOpts) ([]proof.FallbackPoStSectorProof, []abi.SectorNumber, error) {
	sectors := lo.Keys(challenges)
	slices.Sort(sectors)

	vproofs := make([]*proof.FallbackPoStSectorProof, len(sectors))

	var lk sync.Mutex
	var skipped []abi.SectorNumber
	var retErr error

	var eg errgroup.Group
	if opts.Parallel > 0 {
		eg.SetLimit(opts.Parallel)
	}

	for i, snum := range sectors {
		eg.Go(func() error {
			ctx := ctx
			if opts.Timeout > 0 {
				var cancel context.CancelFunc
				ctx, cancel = context.WithTimeout(ctx, opts.Timeout)
				defer cancel()
			}

			start := time.Now()
			vp, err := generateSector(ctx, cfg, snum, replicas[snum], challenges[snum])
			PoStMeasures.VanillaTime.Observe(time.Since(start).Seconds())

			result := "ok"
			if err != nil {
				result = "error"
			}
			_ = stats.RecordWithTags(ctx, []tag.Mutator{
				tag.Upsert(PoStTypeTag, cfg.PoStType.String()),
				tag.Upsert(ResultTag, result),
			}, PoStMeasures.VanillaProofs.M(1))

			lk.Lock()
			defer lk.Unlock()

			if err != nil {
				log.Errorw("generating vanilla proof", "sector", snum, "error", err)
				skipped = append(skipped, snum)
				retErr = multierr.Append(retErr, err)
				return nil
			}
			vproofs[i] = vp
			return nil
		})
	}
	_ = eg.Wait()

	if retErr != nil && !opts.AllowSkip {
		return nil, skipped, xerrors.Errorf("generating vanilla proofs (%d failed): %w", len(skipped), retErr)
	}

	if len(skipped) > 0 {
		slices.Sort(skipped)
		log.Warnw("vanilla proving skipped sectors", "skipped", len(skipped), "sectors", len(sectors))
		_ = stats.RecordWithTags(ctx, []tag.Mutator{
			tag.Upsert(PoStTypeTag, cfg.PoStType.String()),
		}, PoStMeasures.SkippedSectors.M(int64(len(skipped))))
	}

	out := make([]proof.FallbackPoStSectorProof, 0, len(sectors)-len(skipped))
	for _, vp := range vproofs {
		if vp != nil {
			out = append(out, *vp)
		}
	}
	return out, skipped, nil
}

func generateSector(ctx context.Context, cfg *proof.PoStConfig, snum abi.SectorNumber, replica PrivateReplicaInfo, challenges []uint64) (*proof.FallbackPoStSectorProof, error) {
	if replica == nil {
		return nil, xerrors.Errorf("no replica for sector %d: %w", snum, proof.ErrReplicaAccess)
	}

	type res struct {
		vp  *proof.FallbackPoStSectorProof
		err error
	}
	done := make(chan res, 1)
	go func() {
		vp, err := GenerateSingleVanillaProof(ctx, cfg, snum, replica, challenges)
		done <- res{vp, err}
	}()

	select {
	case r := <-done:
		return r.vp, r.err
	case <-ctx.Done():
		return nil, xerrors.Errorf("sector %d: %w", snum, ctx.Err())
	}
}
