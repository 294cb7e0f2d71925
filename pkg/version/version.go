package version

import (
	"fmt"
	"runtime"
	"strconv"
	"strings"
)

// Version information - using semantic versioning
const (
	Major      = 0
	Minor      = 3
	Patch      = 0
	PreRelease = "" // e.g., "alpha", "beta", "rc1"
	Name       = "AgentDesk"
)

// Set at link time: -ldflags "-X github.com/agentdesk/agentdesk/pkg/version.GitCommit=..."
var (
	GitCommit = ""
	BuildDate = ""
)

// Version returns the semantic version string
func Version() string {
	version := fmt.Sprintf("%d.%d.%d", Major, Minor, Patch)
	if PreRelease != "" {
		version += "-" + PreRelease
	}
	return version
}

// BuildInfo contains build information served by /api/version
type BuildInfo struct {
	Name      string `json:"name"`
	Version   string `json:"version"`
	GitCommit string `json:"git_commit,omitempty"`
	BuildDate string `json:"build_date,omitempty"`
	GoVersion string `json:"go_version"`
	Platform  string `json:"platform"`
}

// GetBuildInfo returns complete build information
func GetBuildInfo() *BuildInfo {
	return &BuildInfo{
		Name:      Name,
		Version:   Version(),
		GitCommit: GitCommit,
		BuildDate: BuildDate,
		GoVersion: runtime.Version(),
		Platform:  fmt.Sprintf("%s/%s", runtime.GOOS, runtime.GOARCH),
	}
}

// UserAgent is sent by the HTTP clients
func UserAgent() string {
	return fmt.Sprintf("%s/%s", Name, Version())
}

// GetBanner returns a formatted banner for application startup
func GetBanner() string {
	info := GetBuildInfo()
	banner := fmt.Sprintf(`
┌─────────────────────────────────────────────────────┐
│ %-20s v%-30s │
├─────────────────────────────────────────────────────┤
│ Go Version: %-15s Platform: %-14s │`,
		info.Name, info.Version, info.GoVersion, info.Platform)

	if len(info.GitCommit) >= 7 {
		banner += fmt.Sprintf(`
│ Git Commit: %-39s │`, info.GitCommit[:7])
	}
	banner += `
└─────────────────────────────────────────────────────┘`
	return banner
}

// CompareVersions compares two semantic versions
// Returns: -1 if v1 < v2, 0 if v1 == v2, 1 if v1 > v2
func CompareVersions(v1Major, v1Minor, v1Patch, v2Major, v2Minor, v2Patch int) int {
	for _, d := range [][2]int{{v1Major, v2Major}, {v1Minor, v2Minor}, {v1Patch, v2Patch}} {
		if d[0] < d[1] {
			return -1
		}
		if d[0] > d[1] {
			return 1
		}
	}
	return 0
}

// Parse splits "1.2.3", "v1.2.3" or "1.2.3-rc1" into its numeric parts
func Parse(v string) (major, minor, patch int, err error) {
	core := strings.TrimPrefix(strings.TrimSpace(v), "v")
	if i := strings.IndexAny(core, "-+"); i >= 0 {
		core = core[:i]
	}
	parts := strings.Split(core, ".")
	if len(parts) != 3 {
		return 0, 0, 0, fmt.Errorf("invalid version %q", v)
	}
	nums := make([]int, 3)
	for i, p := range parts {
		n, err := strconv.Atoi(p)
		if err != nil || n < 0 {
			return 0, 0, 0, fmt.Errorf("invalid version %q", v)
		}
		nums[i] = n
	}
	return nums[0], nums[1], nums[2], nil
}

// AtLeast reports whether v is the same as or newer than min
func AtLeast(v, min string) (bool, error) {
	aMaj, aMin, aPatch, err := Parse(v)
	if err != nil {
		return false, err
	}
	bMaj, bMin, bPatch, err := Parse(min)
	if err != nil {
		return false, err
	}
	return CompareVersions(aMaj, aMin, aPatch, bMaj, bMin, bPatch) >= 0, nil
}
