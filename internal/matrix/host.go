package matrix

import (
	"runtime"
	"slices"
	"strings"
)

// Host describes the machine the run executes on.
type Host struct {
	OS   string
	Arch string
	CPUs int
}

// CurrentHost returns the facts of the running process.
func CurrentHost() Host {
	return Host{
		OS:   runtime.GOOS,
		Arch: runtime.GOARCH,
		CPUs: runtime.NumCPU(),
	}
}

// platformAliases groups equivalent spellings of one platform identifier.
// Matrix files use Rust target naming, the runtime reports Go naming.
var platformAliases = [][]string{
	{"x86_64", "amd64", "x64"},
	{"aarch64", "arm64"},
	{"x86", "i686", "i386", "386"},
	{"arm", "armv7"},
	{"riscv64", "riscv64gc"},
	{"powerpc64", "ppc64"},
	{"powerpc64le", "ppc64le"},
	{"s390x"},
	{"macos", "darwin", "osx"},
	{"windows", "win32"},
	{"linux"},
	{"freebsd"},
}

// canonicalPlatform maps an identifier to the first spelling of its alias group.
func canonicalPlatform(id string) string {
	id = strings.ToLower(strings.TrimSpace(id))
	for _, group := range platformAliases {
		if slices.Contains(group, id) {
			return group[0]
		}
	}
	return id
}

// SamePlatform reports whether two identifiers name the same OS or arch.
func SamePlatform(a, b string) bool {
	return canonicalPlatform(a) == canonicalPlatform(b)
}

// MatchesArch reports whether the host arch is one of archs.
// An empty list matches every host.
func (h Host) MatchesArch(archs []string) bool {
	if len(archs) == 0 {
		return true
	}
	for _, a := range archs {
		if SamePlatform(a, h.Arch) {
			return true
		}
	}
	return false
}

// MatchesAny reports whether the host OS or arch is one of ids.
func (h Host) MatchesAny(ids []string) bool {
	for _, id := range ids {
		if SamePlatform(id, h.OS) || SamePlatform(id, h.Arch) {
			return true
		}
	}
	return false
}

// String returns "os/arch".
func (h Host) String() string {
	return h.OS + "/" + h.Arch
}
