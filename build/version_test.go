package build

import (
	"testing"

	"github.com/stretchr/testify/require"
)

// verify version is set from BuildVersionArray, not hardcoded placeholder
func TestBuildVersionNotZero(t *testing.T) {
	require.NotEqual(t, "0.0.0", BuildVersion)
	require.NotEmpty(t, BuildVersion)
}

func TestUserVersion(t *testing.T) {
	old := CurrentCommit
	t.Cleanup(func() { CurrentCommit = old })

	CurrentCommit = ""
	require.Equal(t, BuildVersion, UserVersion())

	CurrentCommit = "4c5e98f28"
	require.Equal(t, BuildVersion+"+4c5e98f28", UserVersion())

	t.Setenv("POST_VERSION_IGNORE_COMMIT", "1")
	require.Equal(t, BuildVersion, UserVersion())
}
