package post

import (
	"golang.org/x/xerrors"

	"github.com/filecoin-project/go-address"
	"github.com/filecoin-project/go-state-types/abi"
)

// ProverIDFromActor is the prover id of a miner actor: the payload of its ID address, zero
// padded to 32 bytes.
func ProverIDFromActor(minerID abi.ActorID) ([32]byte, error) {
	var out [32]byte

	maddr, err := address.NewIDAddress(uint64(minerID))
	if err != nil {
		return out, xerrors.Errorf("creating id address: %w", err)
	}

	copy(out[:], maddr.Payload())
	return out, nil
}
