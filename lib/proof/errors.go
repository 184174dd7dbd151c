package proof

import "golang.org/x/xerrors"

// Error classes shared by the PoSt pipeline packages. Callers match them with errors.Is;
// producers always wrap them with enough context (sector, partition, expected vs actual).
var (
	ErrInvalidConfig               = xerrors.New("invalid config")
	ErrInvalidCommitment           = xerrors.New("invalid commitment")
	ErrInvalidInput                = xerrors.New("invalid input")
	ErrCapacityExceeded            = xerrors.New("sector capacity exceeded")
	ErrMissingPartitionIndex       = xerrors.New("missing partition index")
	ErrSectorProofNotFound         = xerrors.New("sector proof not found")
	ErrShapeMismatch               = xerrors.New("proof shape mismatch")
	ErrReplicaAccess               = xerrors.New("replica access failed")
	ErrProofConstruction           = xerrors.New("proof construction failed")
	ErrProofSetVerificationFailed  = xerrors.New("partitioned vanilla proofs failed to verify")
	ErrPartitionVerificationFailed = xerrors.New("partition vanilla proof failed to verify")
	ErrIncompleteInput             = xerrors.New("incomplete input")
	ErrInvalidSectorSize           = xerrors.New("invalid sector size")
	ErrUnknownSectorSize           = xerrors.New("unknown sector size")
)
