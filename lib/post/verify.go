package post

import (
	"bytes"

	"golang.org/x/xerrors"

	commcid "github.com/filecoin-project/go-fil-commcid"
	"github.com/filecoin-project/go-state-types/abi"
	gsproof "github.com/filecoin-project/go-state-types/proof"

	"github.com/filecoin-project/go-fil-post/lib/params"
	"github.com/filecoin-project/go-fil-post/lib/proof"
)

// VerifyVanillaProofs checks Window PoSt sector vanilla proofs against the public comm_r of
// each sector. Proofs must be in proving order and cover every sector in commRs exactly once.
// Failed verification, including a challenged sector without a proof, is (false, nil); malformed
// input is an error.
func VerifyVanillaProofs(cfg *proof.PoStConfig, randomness, proverID [32]byte, commRs map[abi.SectorNumber][32]byte, vproofs []proof.FallbackPoStSectorProof) (bool, error) {
	if len(vproofs) == 0 {
		return false, xerrors.Errorf("no vanilla proofs: %w", proof.ErrInvalidInput)
	}

	pp, err := params.WindowPostPublicParams(cfg)
	if err != nil {
		return false, err
	}

	randomnessSafe, err := proof.AsSafeCommitment(randomness, "randomness")
	if err != nil {
		return false, err
	}
	proverIDSafe, err := proof.AsSafeCommitment(proverID, "prover_id")
	if err != nil {
		return false, err
	}

	pi := &proof.PublicInputs{
		Randomness: randomnessSafe,
		ProverID:   proverIDSafe,
	}
	seen := make(map[abi.SectorNumber]struct{}, len(vproofs))
	for _, vp := range vproofs {
		commR, ok := commRs[vp.SectorID]
		if !ok {
			return false, xerrors.Errorf("sector %d was not challenged: %w", vp.SectorID, proof.ErrInvalidInput)
		}
		if _, dup := seen[vp.SectorID]; dup {
			return false, xerrors.Errorf("sector %d proven twice: %w", vp.SectorID, proof.ErrInvalidInput)
		}
		seen[vp.SectorID] = struct{}{}

		safe, err := proof.AsSafeCommitment(commR, "comm_r")
		if err != nil {
			return false, xerrors.Errorf("sector %d: %w", vp.SectorID, err)
		}
		if safe != vp.CommR {
			log.Errorw("vanilla proof comm_r differs from challenged sector", "sector", vp.SectorID)
			return false, nil
		}
		pi.Sectors = append(pi.Sectors, proof.PublicSector{ID: vp.SectorID, CommR: safe})
	}
	if len(seen) != len(commRs) {
		log.Errorw("challenged sectors missing vanilla proofs", "challenged", len(commRs), "proven", len(seen))
		return false, nil
	}

	_, err = PartitionVanillaProofs(cfg, pp, pi, GetNumPartitionForFallbackPoSt(cfg, len(pi.Sectors)), vproofs)
	switch {
	case err == nil:
		return true, nil
	case xerrors.Is(err, proof.ErrPartitionVerificationFailed), xerrors.Is(err, proof.ErrProofSetVerificationFailed):
		log.Errorw("vanilla proofs failed to verify", "error", err)
		return false, nil
	default:
		return false, err
	}
}

// VerifyWindowPoStVanilla verifies a Window PoSt whose proofs carry bincode encoded sector
// vanilla proofs, one per proof entry, instead of a SNARK.
func VerifyWindowPoStVanilla(pvi gsproof.WindowPoStVerifyInfo) (bool, error) {
	var rand [32]byte
	if copy(rand[:], pvi.Randomness) != 32 {
		return false, xerrors.Errorf("randomness is not 32 bytes: %w", proof.ErrInvalidInput)
	}
	rand[31] &= 0x3f
	if len(pvi.Proofs) == 0 {
		return false, xerrors.Errorf("no proofs: %w", proof.ErrInvalidInput)
	}

	commRs := make(map[abi.SectorNumber][32]byte, len(pvi.ChallengedSectors))
	for _, info := range pvi.ChallengedSectors {
		commr, err := commcid.CIDToReplicaCommitmentV1(info.SealedCID)
		if err != nil {
			return false, xerrors.Errorf("failed to get replica commitment of sector %d: %w", info.SectorNumber, err)
		}
		log.Debugf("sector %d commr: %x", info.SectorNumber, commr)
		commRs[info.SectorNumber] = [32]byte(commr)
	}

	ppt := pvi.Proofs[0].PoStProof
	vproofs := make([]proof.FallbackPoStSectorProof, 0, len(pvi.Proofs))
	for i, p := range pvi.Proofs {
		if p.PoStProof != ppt {
			return false, xerrors.Errorf("proof %d has type %d, expected %d: %w", i, p.PoStProof, ppt, proof.ErrInvalidInput)
		}
		vp, err := proof.DecodeFallbackPoStSectorProof(bytes.NewReader(p.ProofBytes))
		if err != nil {
			return false, xerrors.Errorf("failed to decode fallback PoSt sector proof %d: %w", i, err)
		}
		vproofs = append(vproofs, vp)
	}

	// TODO: read the api version from the network version once verify info carries it
	cfg, err := proof.PoStConfigFromProofType(ppt, proof.ApiVersion1_2_0)
	if err != nil {
		return false, err
	}

	proverID, err := ProverIDFromActor(pvi.Prover)
	if err != nil {
		return false, err
	}

	return VerifyVanillaProofs(cfg, rand, proverID, commRs, vproofs)
}
