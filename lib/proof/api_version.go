package proof

import (
	"fmt"

	"golang.org/x/xerrors"
)

// ApiVersion mirrors the proofs api versions. Challenge derivation differs between them, so
// prover and verifier must agree on it.
type ApiVersion int

const (
	ApiVersion1_0_0 ApiVersion = iota
	ApiVersion1_1_0
	ApiVersion1_2_0
)

func (v ApiVersion) String() string {
	switch v {
	case ApiVersion1_0_0:
		return "1.0.0"
	case ApiVersion1_1_0:
		return "1.1.0"
	case ApiVersion1_2_0:
		return "1.2.0"
	default:
		return fmt.Sprintf("ApiVersion(%d)", int(v))
	}
}

func (v ApiVersion) GreaterOrEqual(other ApiVersion) bool {
	return v >= other
}

func ParseApiVersion(s string) (ApiVersion, error) {
	switch s {
	case "1.0.0":
		return ApiVersion1_0_0, nil
	case "1.1.0":
		return ApiVersion1_1_0, nil
	case "1.2.0":
		return ApiVersion1_2_0, nil
	default:
		return 0, xerrors.Errorf("unknown api version %q: %w", s, ErrInvalidConfig)
	}
}

type ApiFeature int

const (
	ApiFeatureSyntheticPoRep ApiFeature = iota
)

func (f ApiFeature) String() string {
	switch f {
	case ApiFeatureSyntheticPoRep:
		return "synthetic-porep"
	default:
		return fmt.Sprintf("ApiFeature(%d)", int(f))
	}
}
