package build

import (
	"os"
	"strconv"
	"strings"

	"github.com/samber/lo"
)

// /////START BUILD_TIME POPULATED VARS///////
var CurrentCommit string

// /////END BUILD_TIME POPULATED VARS///////

// Intent: Major.Minor.Patch
var BuildVersionArray = [3]int{0, 4, 0}

// RC
var BuildVersionRC = 0

// Ex: "1.2.3" or "1.2.3-rcX"
var BuildVersion string

func init() {
	version := strings.Join(lo.Map(BuildVersionArray[:],
		func(i int, _ int) string { return strconv.Itoa(i) }), ".")

	if BuildVersionRC > 0 {
		version += "-rc" + strconv.Itoa(BuildVersionRC)
	}
	BuildVersion = version
}

func UserVersion() string {
	if os.Getenv("POST_VERSION_IGNORE_COMMIT") == "1" || CurrentCommit == "" {
		return BuildVersion
	}
	return BuildVersion + "+" + CurrentCommit
}
