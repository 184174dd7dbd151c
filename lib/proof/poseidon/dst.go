package poseidondst

import (
	"math/big"

	"github.com/consensys/gnark-crypto/ecc/bls12-381/fr"
	"github.com/triplewz/poseidon"
)

// Neptune domain separation tags. Merkle tree hashing of arity a uses 2^a - 1 as the
// first element of the poseidon state.

type DST interface {
	DST() *fr.Element
}

type MerkleTreeDST[A Arity] struct{}

func (m MerkleTreeDST[A]) DST() *fr.Element {
	arity := (*new(A)).Arity()
	twoToArityMinus1 := twoToArityMinus1(uint64(arity))
	return &twoToArityMinus1
}

// DSTElement wraps fr.Element so that poseidon constant generation, which sets the domain tag
// through SetString("3"), picks up the tag of D instead.
type DSTElement[D DST] struct {
	fr.Element
}

func (c *DSTElement[D]) SetUint64(u uint64) *DSTElement[D] {
	c.Element = *(&c.Element).SetUint64(u)
	return c
}

func (c *DSTElement[D]) SetBigInt(b *big.Int) *DSTElement[D] {
	c.Element = *c.Element.SetBigInt(b)
	return c
}

func (c *DSTElement[D]) SetBytes(bytes []byte) *DSTElement[D] {
	c.Element = *c.Element.SetBytes(bytes)
	return c
}

func (c *DSTElement[D]) BigInt(b *big.Int) *big.Int {
	return c.Element.BigInt(b)
}

func (c *DSTElement[D]) SetOne() *DSTElement[D] {
	c.Element = *c.Element.SetOne()
	return c
}

func (c *DSTElement[D]) SetZero() *DSTElement[D] {
	c.Element = *c.Element.SetZero()
	return c
}

func (c *DSTElement[D]) Inverse(e *DSTElement[D]) *DSTElement[D] {
	c.Element = *c.Element.Inverse(&e.Element)
	return c
}

func (c *DSTElement[D]) Set(e *DSTElement[D]) *DSTElement[D] {
	c.Element = *c.Element.Set(&e.Element)
	return c
}

func (c *DSTElement[D]) Square(e *DSTElement[D]) *DSTElement[D] {
	c.Element = *c.Element.Square(&e.Element)
	return c
}

func (c *DSTElement[D]) Mul(e2 *DSTElement[D], e *DSTElement[D]) *DSTElement[D] {
	c.Element = *c.Element.Mul(&e2.Element, &e.Element)
	return c
}

func (c *DSTElement[D]) Add(e2 *DSTElement[D], e *DSTElement[D]) *DSTElement[D] {
	c.Element = *c.Element.Add(&e2.Element, &e.Element)
	return c
}

func (c *DSTElement[D]) Sub(e2 *DSTElement[D], e *DSTElement[D]) *DSTElement[D] {
	c.Element = *c.Element.Sub(&e2.Element, &e.Element)
	return c
}

func (c *DSTElement[D]) Cmp(x *DSTElement[D]) int {
	return c.Element.Cmp(&x.Element)
}

func (c *DSTElement[D]) New() *DSTElement[D] {
	return new(DSTElement[D])
}

func (c *DSTElement[D]) SetString(s string) (*DSTElement[D], error) {
	if s == "3" {
		c.Element = *(*new(D)).DST()
		return c, nil
	}

	el, err := c.Element.SetString(s)
	if err != nil {
		return nil, err
	}

	c.Element = *el
	return c, nil
}

// twoToArityMinus1 => 2^arity - 1
func twoToArityMinus1(arity uint64) fr.Element {
	base := fr.NewElement(2) // Start with 2
	exponent := big.NewInt(int64(arity))
	base.Exp(base, exponent) // base = 2^arity

	// Now subtract 1
	var one fr.Element
	one.SetOne()
	base.Sub(&base, &one)

	return base
}

var _ poseidon.Element[*DSTElement[MerkleTreeDST[Arity8]]] = &DSTElement[MerkleTreeDST[Arity8]]{}
