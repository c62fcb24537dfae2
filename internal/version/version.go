// Package version carries build metadata and the server version check
// performed before a plan is applied.
package version

import (
	"fmt"
	"runtime"

	goversion "github.com/hashicorp/go-version"
)

var (
	// Version is set at build time with -ldflags.
	Version = "0.1.0"
	// BuildDate is set at build time with -ldflags.
	BuildDate = "unknown"
	// GitCommit is set at build time with -ldflags.
	GitCommit = "unknown"
)

// Info holds version information for the version command.
type Info struct {
	Version   string
	BuildDate string
	GitCommit string
	GoVersion string
	Platform  string
}

// Get returns the build's version information.
func Get() Info {
	return Info{
		Version:   Version,
		BuildDate: BuildDate,
		GitCommit: GitCommit,
		GoVersion: runtime.Version(),
		Platform:  fmt.Sprintf("%s/%s", runtime.GOOS, runtime.GOARCH),
	}
}

// String returns a one-line version string.
func (i Info) String() string {
	return fmt.Sprintf("schemaforge version %s (%s %s)", i.Version, i.Platform, i.GoVersion)
}

// FullString returns the detailed multi-line version string.
func (i Info) FullString() string {
	return fmt.Sprintf(`schemaforge version %s
Build Date: %s
Git Commit: %s
Platform: %s
Go Version: %s`, i.Version, i.BuildDate, i.GitCommit, i.Platform, i.GoVersion)
}

// CheckServerVersion verifies that the connected server is at least the
// minimum release the generated SQL targets. Server version strings often
// carry vendor suffixes like "8.0.36-debian"; only the leading dotted
// numeric part is compared.
func CheckServerVersion(serverVersion, minimum string) error {
	if serverVersion == "" || minimum == "" {
		return nil
	}

	server, err := goversion.NewVersion(numericPrefix(serverVersion))
	if err != nil {
		// Unparseable server versions are not fatal, the server may be a
		// compatible fork with its own versioning scheme.
		return nil
	}

	min, err := goversion.NewVersion(minimum)
	if err != nil {
		return fmt.Errorf("invalid minimum version %q: %w", minimum, err)
	}

	if server.LessThan(min) {
		return fmt.Errorf("server version %s is older than the minimum supported %s", serverVersion, minimum)
	}
	return nil
}

func numericPrefix(v string) string {
	end := 0
	for end < len(v) && (v[end] == '.' || (v[end] >= '0' && v[end] <= '9')) {
		end++
	}
	if end == 0 {
		return v
	}
	return v[:end]
}
