// SPDX-License-Identifier: MIT
//
// Package build exposes the metadata embedded into the pulse binary at link time:
//
//	go build -ldflags "-X pulse/pkg/build.buildName=pulse \
//	  -X pulse/pkg/build.buildTime=$(date -u +%FT%TZ) \
//	  -X pulse/pkg/build.buildCommit=$(git rev-parse --short HEAD) \
//	  -X pulse/pkg/build.buildVersion=v0.1.0"
//
// The version is reported by `pulse version`, the health endpoint and the terminal
// monitor.
package build

import (
	"errors"
	"fmt"
)

// Unknown marks build information that was not injected.
const Unknown = "unknown"

// Info describes the running binary.
type Info struct {
	Name    string `json:"name"`
	Time    string `json:"time"`
	Commit  string `json:"commit"`
	Version string `json:"version"`
}

// String formats the info as "name version (commit, time)".
func (i Info) String() string {
	return fmt.Sprintf("%s %s (%s, %s)", i.Name, i.Version, i.Commit, i.Time)
}

// Populated by -ldflags.
var (
	buildName    string
	buildTime    string
	buildCommit  string
	buildVersion string
	buildInfo    = developmentInfo()
)

func developmentInfo() *Info {
	return &Info{Name: "pulse", Time: Unknown, Commit: Unknown, Version: "dev"}
}

// Initialize validates the ldflags values and publishes them through Get. It fails
// when any value is missing, which is the case for plain `go build` binaries.
func Initialize() error {
	if buildName == "" {
		return errors.New("BuildName is required")
	}
	if buildTime == "" {
		return errors.New("BuildTime is required")
	}
	if buildCommit == "" {
		return errors.New("BuildCommit is required")
	}
	if buildVersion == "" {
		return errors.New("BuildVersion is required")
	}

	buildInfo = &Info{
		Name:    buildName,
		Time:    buildTime,
		Commit:  buildCommit,
		Version: buildVersion,
	}
	return nil
}

// InitializeOrDefault is Initialize for development builds: on failure it keeps the
// development info and returns the reason.
func InitializeOrDefault() error {
	if err := Initialize(); err != nil {
		buildInfo = developmentInfo()
		return err
	}
	return nil
}

// Get returns the current build information.
func Get() Info {
	return *buildInfo
}
