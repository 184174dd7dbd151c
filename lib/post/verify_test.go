package post

import (
	"bytes"
	"context"
	"testing"

	"github.com/snadrus/must"
	"github.com/stretchr/testify/require"

	commcid "github.com/filecoin-project/go-fil-commcid"
	"github.com/filecoin-project/go-state-types/abi"
	gsproof "github.com/filecoin-project/go-state-types/proof"

	"github.com/filecoin-project/go-fil-post/lib/proof"
)

func TestMergeWindowPoStPartitionProofs(t *testing.T) {
	a := proof.PartitionSnarkProof(bytes.Repeat([]byte{1}, proof.SinglePartitionProofLen))
	b := proof.PartitionSnarkProof(bytes.Repeat([]byte{2}, proof.SinglePartitionProofLen))
	c := proof.PartitionSnarkProof([]byte{3, 4, 5})

	out, err := MergeWindowPoStPartitionProofs([]proof.PartitionSnarkProof{a, b, c})
	require.NoError(t, err)
	require.Len(t, out, len(a)+len(b)+len(c))
	require.Equal(t, append(append(append([]byte{}, a...), b...), c...), []byte(out))

	out, err = MergeWindowPoStPartitionProofs(nil)
	require.NoError(t, err)
	require.Empty(t, out)
}

func TestVerifyVanillaProofs(t *testing.T) {
	f := newWindowFixture(t, proof.ApiVersion1_2_0, 3, 4, 5)
	rand := [32]byte(f.pi.Randomness)

	commRs := map[abi.SectorNumber][32]byte{}
	for _, s := range f.pi.Sectors {
		commRs[s.ID] = s.CommR
	}

	ok, err := VerifyVanillaProofs(f.cfg, rand, [32]byte{}, commRs, f.vproofs)
	require.NoError(t, err)
	require.True(t, ok)

	// proofs of the right sectors under different randomness
	ok, err = VerifyVanillaProofs(f.cfg, testRandomness(100), [32]byte{}, commRs, f.vproofs)
	require.NoError(t, err)
	require.False(t, ok)

	wrong := map[abi.SectorNumber][32]byte{3: commRs[4], 4: commRs[4], 5: commRs[5]}
	ok, err = VerifyVanillaProofs(f.cfg, rand, [32]byte{}, wrong, f.vproofs)
	require.NoError(t, err)
	require.False(t, ok)

	delete(wrong, 3)
	_, err = VerifyVanillaProofs(f.cfg, rand, [32]byte{}, wrong, f.vproofs)
	require.ErrorIs(t, err, proof.ErrInvalidInput)
}

func TestVerifyVanillaProofsCoverage(t *testing.T) {
	f := newWindowFixture(t, proof.ApiVersion1_2_0, 3, 4, 5)
	rand := [32]byte(f.pi.Randomness)

	commRs := map[abi.SectorNumber][32]byte{}
	for _, s := range f.pi.Sectors {
		commRs[s.ID] = s.CommR
	}

	_, err := VerifyVanillaProofs(f.cfg, rand, [32]byte{}, commRs, nil)
	require.ErrorIs(t, err, proof.ErrInvalidInput)
	_, err = VerifyVanillaProofs(f.cfg, rand, [32]byte{}, map[abi.SectorNumber][32]byte{}, nil)
	require.ErrorIs(t, err, proof.ErrInvalidInput)

	// valid proofs of a subset of the challenged sectors
	ok, err := VerifyVanillaProofs(f.cfg, rand, [32]byte{}, commRs, f.vproofs[:2])
	require.NoError(t, err)
	require.False(t, ok)

	ok, err = VerifyVanillaProofs(f.cfg, rand, [32]byte{}, commRs, f.vproofs[:1])
	require.NoError(t, err)
	require.False(t, ok)

	dup := append(append([]proof.FallbackPoStSectorProof{}, f.vproofs...), f.vproofs[0])
	_, err = VerifyVanillaProofs(f.cfg, rand, [32]byte{}, commRs, dup)
	require.ErrorIs(t, err, proof.ErrInvalidInput)

	// the full set still verifies
	ok, err = VerifyVanillaProofs(f.cfg, rand, [32]byte{}, commRs, f.vproofs)
	require.NoError(t, err)
	require.True(t, ok)
}

func TestVerifyWindowPoStVanilla(t *testing.T) {
	const ppt = abi.RegisteredPoStProof_StackedDrgWindow2KiBV1_1

	cfg := must.One(proof.PoStConfigFromProofType(ppt, proof.ApiVersion1_2_0))
	require.Equal(t, proof.PoStTypeWindow, cfg.PoStType)

	rand := testRandomness(21)
	sectors := []abi.SectorNumber{7, 8, 9}
	replicas := testReplicas(t, 2<<10, sectors...)
	challenges := must.One(GenerateFallbackSectorChallenges(cfg, rand, sectors, [32]byte{}))

	pvi := gsproof.WindowPoStVerifyInfo{
		Randomness: rand[:],
		Prover:     1000,
	}
	for _, s := range sectors {
		vp := must.One(GenerateSingleVanillaProof(context.Background(), cfg, s, replicas[s], challenges[s]))

		var buf bytes.Buffer
		require.NoError(t, proof.EncodeFallbackPoStSectorProof(&buf, *vp))
		pvi.Proofs = append(pvi.Proofs, gsproof.PoStProof{PoStProof: ppt, ProofBytes: buf.Bytes()})

		sealed, err := commcid.ReplicaCommitmentV1ToCID(vp.CommR[:])
		require.NoError(t, err)
		pvi.ChallengedSectors = append(pvi.ChallengedSectors, gsproof.SectorInfo{
			SealProof:    abi.RegisteredSealProof_StackedDrg2KiBV1_1,
			SectorNumber: s,
			SealedCID:    sealed,
		})
	}

	ok, err := VerifyWindowPoStVanilla(pvi)
	require.NoError(t, err)
	require.True(t, ok)

	// sector 9 is challenged but not proven
	full := pvi.Proofs
	pvi.Proofs = full[:2]
	ok, err = VerifyWindowPoStVanilla(pvi)
	require.NoError(t, err)
	require.False(t, ok)

	pvi.Proofs = full[:0]
	_, err = VerifyWindowPoStVanilla(pvi)
	require.ErrorIs(t, err, proof.ErrInvalidInput)

	pvi.Randomness = rand[:16]
	_, err = VerifyWindowPoStVanilla(pvi)
	require.ErrorIs(t, err, proof.ErrInvalidInput)
}
