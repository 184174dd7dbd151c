package proof

import (
	"fmt"
	"math/big"
	"sync"

	"github.com/consensys/gnark-crypto/ecc/bls12-381/fr"
	"github.com/triplewz/poseidon"
	"golang.org/x/xerrors"

	poseidondst "github.com/filecoin-project/go-fil-post/lib/proof/poseidon"
)

var consts = map[int]any{}
var lk = sync.Mutex{}

// poseidonHashMulti merges an arbitrary slice of domain elements in one Poseidon invocation.
func poseidonHashMulti[A poseidondst.Arity](vals []PoseidonDomain) PoseidonDomain {
	arity := (*new(A)).Arity()
	if len(vals) != arity {
		panic("poseidonhashMulti called with invalid amount of values")
	}

	type E = *poseidondst.DSTElement[poseidondst.MerkleTreeDST[A]]

	var cons *poseidon.PoseidonConst[E]
	var err error

	lk.Lock()
	if consts[arity] != nil {
		cons = consts[arity].(*poseidon.PoseidonConst[E])
	} else {
		cons, err = poseidon.GenPoseidonConstants[E](len(vals) + 1)
		if err != nil {
			lk.Unlock()
			panic(fmt.Sprintf("poseidonHashMulti constants: %v", err))
		}
		consts[arity] = cons
	}
	lk.Unlock()

	bigs := make([]*big.Int, len(vals))
	for i, v := range vals {
		bigs[i] = domainToBigInt(v)
	}

	h, err := poseidon.Hash(bigs, cons, poseidon.OptimizedStatic)
	if err != nil {
		panic(fmt.Sprintf("poseidonHashMulti error: %v", err))
	}
	return bigIntToDomain(h)
}

// HashNodes hashes one merkle node from its children. Only the arities used by the
// sector tree shapes are supported.
func HashNodes(vals []PoseidonDomain) (PoseidonDomain, error) {
	switch len(vals) {
	case 2:
		return poseidonHashMulti[poseidondst.Arity2](vals), nil
	case 4:
		return poseidonHashMulti[poseidondst.Arity4](vals), nil
	case 8:
		return poseidonHashMulti[poseidondst.Arity8](vals), nil
	default:
		return PoseidonDomain{}, xerrors.Errorf("unsupported poseidon arity %d", len(vals))
	}
}

// Hash2 is the comm_r binding hash: comm_r = H(comm_c, comm_r_last).
func Hash2(a, b PoseidonDomain) PoseidonDomain {
	return poseidonHashMulti[poseidondst.Arity2]([]PoseidonDomain{a, b})
}

// domainToBigInt interprets a PoseidonDomain as a little-endian integer.
func domainToBigInt(d PoseidonDomain) *big.Int {
	// Reverse to big-endian for .SetBytes
	be := make([]byte, 32)
	for i := 0; i < 32; i++ {
		be[31-i] = d[i]
	}
	return new(big.Int).SetBytes(be)
}

// bigIntToDomain converts a field-limited big.Int back into [32]byte LE.
func bigIntToDomain(x *big.Int) PoseidonDomain {
	var el fr.Element
	el.SetBigInt(x)
	return DomainFromFr(el)
}
