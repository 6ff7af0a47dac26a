// SPDX-License-Identifier: MIT
//
// Package build exposes the build metadata embedded into the binary at link
// time:
//
//	go build -ldflags "-X paraeq/pkg/build.buildVersion=0.2.0 \
//	    -X paraeq/pkg/build.buildCommit=$(git rev-parse --short HEAD) \
//	    -X paraeq/pkg/build.buildTime=$(date -u +%FT%TZ)"
//
// Development builds (plain `go build` / `go run`) carry no ldflags; in that
// case the module version and VCS revision recorded by the toolchain are used
// instead, so the CLI can always print something meaningful.
package build

import (
	"errors"
	"runtime/debug"
)

const (
	defaultName        = "paraeq"
	defaultDescription = "Parametric equalizer with a real-time spectrum analyzer"
	unknown            = "unknown"
)

// Flags holds the resolved build information.
type Flags struct {
	Name        string
	Description string
	Time        string
	Commit      string
	Version     string
}

// Populated by -ldflags.
var (
	buildName    string
	buildTime    string
	buildCommit  string
	buildVersion string
	buildFlags   = &Flags{
		Name:        defaultName,
		Description: defaultDescription,
		Time:        unknown,
		Commit:      unknown,
		Version:     unknown,
	}
)

// ErrNoBuildInfo is returned by Initialize when neither ldflags nor the
// toolchain build info provide a version.
var ErrNoBuildInfo = errors.New("build: no ldflags and no embedded build info")

// readBuildInfo is swapped in tests.
var readBuildInfo = debug.ReadBuildInfo

// Initialize resolves build information. Values injected through ldflags
// win; missing values are filled from runtime/debug.ReadBuildInfo. It
// returns ErrNoBuildInfo only when no version could be determined at all,
// which callers may treat as a warning.
func Initialize() error {
	if buildName != "" {
		buildFlags.Name = buildName
	}
	if buildTime != "" {
		buildFlags.Time = buildTime
	}
	if buildCommit != "" {
		buildFlags.Commit = buildCommit
	}
	if buildVersion != "" {
		buildFlags.Version = buildVersion
	}

	if buildFlags.Version != unknown && buildFlags.Commit != unknown {
		return nil
	}

	info, ok := readBuildInfo()
	if !ok {
		if buildFlags.Version == unknown {
			return ErrNoBuildInfo
		}
		return nil
	}

	if buildFlags.Version == unknown && info.Main.Version != "" {
		buildFlags.Version = info.Main.Version
	}
	for _, s := range info.Settings {
		switch s.Key {
		case "vcs.revision":
			if buildFlags.Commit == unknown {
				buildFlags.Commit = s.Value
			}
		case "vcs.time":
			if buildFlags.Time == unknown {
				buildFlags.Time = s.Value
			}
		}
	}

	return nil
}

// GetBuildFlags returns the current build information.
func GetBuildFlags() *Flags {
	return buildFlags
}
