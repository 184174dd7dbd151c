package proof

import (
	"fmt"

	"github.com/filecoin-project/go-state-types/abi"
	"golang.org/x/xerrors"
)

// FallbackPoStSectorProof is the vanilla proof of a single sector: the inclusion proofs for
// every challenge drawn for it, bound to its replica commitment.
type FallbackPoStSectorProof struct {
	SectorID     abi.SectorNumber `json:"sector_id"`
	CommR        PoseidonDomain   `json:"comm_r"`
	VanillaProof VanillaProof     `json:"vanilla_proof"`
}

// VanillaProof is the input of one circuit partition. Once partitioned it always holds exactly
// PublicParams.SectorCount sector proofs.
type VanillaProof struct {
	Sectors []SectorProof `json:"sectors"`
}

type SectorProof struct {
	InclusionProofs []MerkleProof[PoseidonDomain] `json:"inclusion_proofs"`

	CommC     PoseidonDomain `json:"comm_c"`
	CommRLast PoseidonDomain `json:"comm_r_last"`
}

type PoStType int

const (
	PoStTypeWindow PoStType = iota
	PoStTypeWinning
)

func (t PoStType) String() string {
	switch t {
	case PoStTypeWindow:
		return "window"
	case PoStTypeWinning:
		return "winning"
	default:
		return fmt.Sprintf("PoStType(%d)", int(t))
	}
}

// These numbers must match those used for Window PoSt scheduling in the miner actor.
var windowPostSectorCount = map[abi.SectorSize]int{
	2 << 10:   2,
	4 << 10:   2,
	16 << 10:  2,
	32 << 10:  2,
	8 << 20:   2,
	16 << 20:  2,
	512 << 20: 2,
	1 << 30:   2,
	32 << 30:  2349,
	64 << 30:  2300,
}

// WindowPoStSectorCount returns the network's sectors-per-partition for a sector size.
func WindowPoStSectorCount(ssize abi.SectorSize) (int, error) {
	n, ok := windowPostSectorCount[ssize]
	if !ok {
		return 0, xerrors.Errorf("window post sector count for %d: %w", ssize, ErrUnknownSectorSize)
	}
	return n, nil
}

const (
	WinningPostChallengeCount = 66
	WinningPostSectorCount    = 1
	WindowPostChallengeCount  = 10
)

// PoStConfig: controlling how many sectors per partition, how many challenges, etc.
type PoStConfig struct {
	PoStType       PoStType
	SectorSize     abi.SectorSize
	SectorCount    int
	ChallengeCount int
	Priority       bool
	ApiVersion     ApiVersion
}

// GetPoStConfig returns the Window PoSt configuration for a sector size. sectorCount
// overrides the network sectors-per-partition when nonzero.
func GetPoStConfig(sectorSize abi.SectorSize, v ApiVersion, sectorCount int) (*PoStConfig, error) {
	if sectorCount == 0 {
		var err error
		if sectorCount, err = WindowPoStSectorCount(sectorSize); err != nil {
			return nil, err
		}
	}

	return &PoStConfig{
		PoStType:       PoStTypeWindow,
		SectorSize:     sectorSize,
		SectorCount:    sectorCount,
		ChallengeCount: WindowPostChallengeCount,
		Priority:       true,
		ApiVersion:     v,
	}, nil
}

func GetWinningPoStConfig(sectorSize abi.SectorSize, v ApiVersion) (*PoStConfig, error) {
	if _, err := SectorShape(sectorSize); err != nil {
		return nil, err
	}

	return &PoStConfig{
		PoStType:       PoStTypeWinning,
		SectorSize:     sectorSize,
		SectorCount:    WinningPostSectorCount,
		ChallengeCount: WinningPostChallengeCount,
		Priority:       false,
		ApiVersion:     v,
	}, nil
}

// PoStConfigFromProofType picks the Window or Winning config matching a registered PoSt proof.
func PoStConfigFromProofType(ppt abi.RegisteredPoStProof, v ApiVersion) (*PoStConfig, error) {
	ssize, err := ppt.SectorSize()
	if err != nil {
		return nil, xerrors.Errorf("sector size of %d: %s: %w", ppt, err, ErrInvalidConfig)
	}

	switch ppt {
	case abi.RegisteredPoStProof_StackedDrgWinning2KiBV1, abi.RegisteredPoStProof_StackedDrgWinning8MiBV1,
		abi.RegisteredPoStProof_StackedDrgWinning512MiBV1, abi.RegisteredPoStProof_StackedDrgWinning32GiBV1,
		abi.RegisteredPoStProof_StackedDrgWinning64GiBV1:
		return GetWinningPoStConfig(ssize, v)
	}
	return GetPoStConfig(ssize, v, 0)
}

// PublicParams is the circuit shape of one PoSt partition.
type PublicParams struct {
	SectorSize     abi.SectorSize
	ChallengeCount int
	SectorCount    int
	ApiVersion     ApiVersion
}

// Leafs is the number of 32 byte nodes in a sector.
func (pp *PublicParams) Leafs() uint64 {
	return uint64(pp.SectorSize) / NODE_SIZE
}

type PublicSector struct {
	ID    abi.SectorNumber
	CommR PoseidonDomain
}

type PublicInputs struct {
	Randomness PoseidonDomain
	ProverID   PoseidonDomain
	Sectors    []PublicSector

	// K is the partition index; required when proving or verifying a single partition.
	K *int
}

// WithPartition returns a copy of pi bound to partition k.
func (pi PublicInputs) WithPartition(k int) PublicInputs {
	pi.K = &k
	return pi
}
