// SPDX-License-Identifier: MIT
package build

import (
	"os"
	"testing"
)

var (
	origName    string
	origTime    string
	origCommit  string
	origVersion string
	origInfo    Info
)

func TestMain(m *testing.M) {
	origName = buildName
	origTime = buildTime
	origCommit = buildCommit
	origVersion = buildVersion
	origInfo = *buildInfo

	exitCode := m.Run()

	buildName = origName
	buildTime = origTime
	buildCommit = origCommit
	buildVersion = origVersion
	*buildInfo = origInfo

	os.Exit(exitCode)
}

func setFlags(name, time, commit, version string) {
	buildName, buildTime, buildCommit, buildVersion = name, time, commit, version
	buildInfo = developmentInfo()
}

func TestInitialize(t *testing.T) {
	tests := []struct {
		name       string
		flags      [4]string
		wantErrMsg string
	}{
		{"Missing BuildName", [4]string{"", "2025-04-13", "abcdef123", "v1.0.0"}, "BuildName is required"},
		{"Missing BuildTime", [4]string{"pulse", "", "abcdef123", "v1.0.0"}, "BuildTime is required"},
		{"Missing BuildCommit", [4]string{"pulse", "2025-04-13", "", "v1.0.0"}, "BuildCommit is required"},
		{"Missing BuildVersion", [4]string{"pulse", "2025-04-13", "abcdef123", ""}, "BuildVersion is required"},
		{"Success Case", [4]string{"pulse", "2025-04-13", "abcdef123", "v1.0.0"}, ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			setFlags(tt.flags[0], tt.flags[1], tt.flags[2], tt.flags[3])

			err := Initialize()

			if tt.wantErrMsg != "" {
				if err == nil || err.Error() != tt.wantErrMsg {
					t.Fatalf("Initialize() error = %v, want %v", err, tt.wantErrMsg)
				}
				return
			}
			if err != nil {
				t.Fatalf("Initialize() unexpected error: %v", err)
			}

			want := Info{Name: "pulse", Time: "2025-04-13", Commit: "abcdef123", Version: "v1.0.0"}
			if got := Get(); got != want {
				t.Errorf("Get() = %+v, want %+v", got, want)
			}
		})
	}
}

func TestInitializeOrDefault(t *testing.T) {
	setFlags("pulse", "", "", "")
	if err := InitializeOrDefault(); err == nil {
		t.Fatal("InitializeOrDefault() error = nil, want missing flag")
	}

	got := Get()
	if got.Version != "dev" || got.Commit != Unknown || got.Name != "pulse" {
		t.Errorf("Get() = %+v, want development info", got)
	}
}

func TestInfoString(t *testing.T) {
	info := Info{Name: "pulse", Time: "t", Commit: "c", Version: "v1"}
	if got, want := info.String(), "pulse v1 (c, t)"; got != want {
		t.Errorf("String() = %q, want %q", got, want)
	}
}
