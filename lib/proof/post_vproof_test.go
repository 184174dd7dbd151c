package proof

import (
	"bytes"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"testing"

	"github.com/consensys/gnark-crypto/ecc/bls12-381/fr"
	"github.com/snadrus/must"
	"github.com/stretchr/testify/require"

	"github.com/filecoin-project/go-state-types/abi"

	poseidondst "github.com/filecoin-project/go-fil-post/lib/proof/poseidon"
)

type testSector struct {
	pub   PublicSector
	proof SectorProof
}

// testSectorProof builds the vanilla proof of one sector at global position sectorIndex the
// way a prover would.
func testSectorProof(t *testing.T, pp *PublicParams, randomness PoseidonDomain, id abi.SectorNumber, sectorIndex uint64) testSector {
	t.Helper()

	tree := testTree(t, pp.SectorSize, uint64(id))

	var c fr.Element
	c.SetUint64(uint64(id) + 1000)
	commC := DomainFromFr(c)

	sp := SectorProof{CommC: commC, CommRLast: tree.Root()}
	for n := 0; n < pp.ChallengeCount; n++ {
		ci := GetChallengeIndex(pp.ApiVersion, sectorIndex, uint64(pp.ChallengeCount), uint64(n))
		leaf := GenerateLeafChallenge(pp, randomness, id, ci)
		sp.InclusionProofs = append(sp.InclusionProofs, must.One(tree.GenProof(leaf)))
	}

	return testSector{
		pub:   PublicSector{ID: id, CommR: Hash2(commC, tree.Root())},
		proof: sp,
	}
}

func testRandomness() PoseidonDomain {
	var e fr.Element
	e.SetUint64(0xdeadbeef)
	return DomainFromFr(e)
}

func TestPoStVproofVerify(t *testing.T) {
	for _, v := range []ApiVersion{ApiVersion1_1_0, ApiVersion1_2_0} {
		t.Run(v.String(), func(t *testing.T) {
			pp := &PublicParams{SectorSize: 2 << 10, ChallengeCount: 10, SectorCount: 2, ApiVersion: v}
			rand := testRandomness()

			s0 := testSectorProof(t, pp, rand, 5, 0)
			s1 := testSectorProof(t, pp, rand, 9, 1)
			s2 := testSectorProof(t, pp, rand, 12, 2)

			pi := &PublicInputs{Randomness: rand, Sectors: []PublicSector{s0.pub, s1.pub, s2.pub}}
			partitions := []VanillaProof{
				{Sectors: []SectorProof{s0.proof, s1.proof}},
				{Sectors: []SectorProof{s2.proof, s2.proof}},
			}

			ok, err := FallbackPoSt{}.VerifyAllPartitions(pp, pi, partitions)
			require.NoError(t, err)
			require.True(t, ok)

			single := pi.WithPartition(1)
			single.Sectors = []PublicSector{s2.pub}
			ok, err = FallbackPoSt{}.Verify(pp, &single, &partitions[1])
			require.NoError(t, err)
			require.True(t, ok)

			// wrong comm_r
			bad := *pi
			bad.Sectors = []PublicSector{s0.pub, {ID: s1.pub.ID, CommR: s0.pub.CommR}, s2.pub}
			ok, err = FallbackPoSt{}.VerifyAllPartitions(pp, &bad, partitions)
			require.NoError(t, err)
			require.False(t, ok)

			// challenges drawn for another sector id
			bad.Sectors = []PublicSector{s0.pub, s1.pub, {ID: 13, CommR: s2.pub.CommR}}
			ok, err = FallbackPoSt{}.VerifyAllPartitions(pp, &bad, partitions)
			require.NoError(t, err)
			require.False(t, ok)

			// too few partitions
			_, err = FallbackPoSt{}.VerifyAllPartitions(pp, pi, partitions[:1])
			require.ErrorIs(t, err, ErrCapacityExceeded)

			// inclusion proof count must match the challenge count
			short := partitions[0]
			short.Sectors = []SectorProof{s0.proof, s1.proof}
			short.Sectors[0].InclusionProofs = short.Sectors[0].InclusionProofs[:3]
			_, err = FallbackPoSt{}.VerifyAllPartitions(pp, pi, []VanillaProof{short, partitions[1]})
			require.ErrorIs(t, err, ErrShapeMismatch)
		})
	}
}

func TestPoStVproofCodec(t *testing.T) {
	pp := &PublicParams{SectorSize: 32 << 10, ChallengeCount: 3, SectorCount: 1, ApiVersion: ApiVersion1_2_0}
	s := testSectorProof(t, pp, testRandomness(), 77, 0)

	in := FallbackPoStSectorProof{
		SectorID:     s.pub.ID,
		CommR:        s.pub.CommR,
		VanillaProof: VanillaProof{Sectors: []SectorProof{s.proof}},
	}

	var buf bytes.Buffer
	require.NoError(t, EncodeFallbackPoStSectorProof(&buf, in))
	raw := bytes.Clone(buf.Bytes())

	out, err := DecodeFallbackPoStSectorProof(&buf)
	require.NoError(t, err)
	require.Equal(t, in, out)
	require.Zero(t, buf.Len())

	_, err = DecodeFallbackPoStSectorProof(bytes.NewReader(raw[:len(raw)-1]))
	require.Error(t, err)

	testMarshal = true
	js, err := json.Marshal(out)
	testMarshal = false
	require.NoError(t, err)
	require.Contains(t, string(js), `"sector_id":77`)
	require.Contains(t, string(js), `"Top"`)
}

func TestPoseidonHashMulti(t *testing.T) {
	/*
			f743111428ecda9b74a18826f1cc62d48ae1510de17e58645997559f86442f31
		    197a6efa37086e3a37108f8460c52bc810e2781aff0091bfd7b74e3f6f752f02
		    01c2c12f7930bbb59e3b36dae1c694b33ac6b3f199ec32a8665fadb8338f4f21
		    bbe672a853f65cdb2563339ca61d6ad648473b4b4ce44bf3a48486424b865a2d
		    937d57295f488cea8099f5525958f1af39c6241614b917835292e8e2314cf908
		    3272570cd8ba38c1183629ca72d5e9149d76786ed22c1d591db3d2bccfa7d308
		    2d3fc90e11aaf601bd1beae80fc3aba15a9e1f886d8140533ce36cda3dd9f936
		    0a017e264d0728bfcd2edb3c6c60cc5a05a02af31a71cdd7bb2da27616f5f630

			into
			0737ca506df7d4544f8512df35aaa07ed8a40691e96ae868c23320220fec6866
	*/

	ins := [8]PoseidonDomain{}
	copy(ins[0][:], must.One(hex.DecodeString("f743111428ecda9b74a18826f1cc62d48ae1510de17e58645997559f86442f31")))
	copy(ins[1][:], must.One(hex.DecodeString("197a6efa37086e3a37108f8460c52bc810e2781aff0091bfd7b74e3f6f752f02")))
	copy(ins[2][:], must.One(hex.DecodeString("01c2c12f7930bbb59e3b36dae1c694b33ac6b3f199ec32a8665fadb8338f4f21")))
	copy(ins[3][:], must.One(hex.DecodeString("bbe672a853f65cdb2563339ca61d6ad648473b4b4ce44bf3a48486424b865a2d")))
	copy(ins[4][:], must.One(hex.DecodeString("937d57295f488cea8099f5525958f1af39c6241614b917835292e8e2314cf908")))
	copy(ins[5][:], must.One(hex.DecodeString("3272570cd8ba38c1183629ca72d5e9149d76786ed22c1d591db3d2bccfa7d308")))
	copy(ins[6][:], must.One(hex.DecodeString("2d3fc90e11aaf601bd1beae80fc3aba15a9e1f886d8140533ce36cda3dd9f936")))
	copy(ins[7][:], must.One(hex.DecodeString("0a017e264d0728bfcd2edb3c6c60cc5a05a02af31a71cdd7bb2da27616f5f630")))

	expected := must.One(hex.DecodeString("0737ca506df7d4544f8512df35aaa07ed8a40691e96ae868c23320220fec6866"))

	out := poseidonHashMulti[poseidondst.Arity8](ins[:])

	fmt.Printf("out: %x\n", out[:])
	fmt.Printf("expected: %x\n", expected)

	if !bytes.Equal(out[:], expected) {
		t.Fatal("hash mismatch")
	}
}
