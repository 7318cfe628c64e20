// SPDX-License-Identifier: MIT
package main

import (
	"pulse/cmd"
	applog "pulse/internal/log"
	"pulse/pkg/build"
)

// main is the entry point for the pulse application.
//
// Build information is resolved first so every command, including `version`, reports
// it. Binaries built without -ldflags fall back to development values.
func main() {
	if err := build.InitializeOrDefault(); err != nil {
		applog.Debugf("Build: Using development build info: %v", err)
	}

	if err := cmd.Execute(); err != nil {
		applog.Fatalf("%v", err)
	}
}
