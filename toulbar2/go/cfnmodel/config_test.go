// Copyright 2010-2024 Google LLC
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package cfnmodel

import (
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/google/go-cmp/cmp"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "network.yaml")
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("WriteFile() returned with unexpected error %v", err)
	}
	return path
}

func TestLoadConfig(t *testing.T) {
	path := writeConfig(t, `
name: warehouse
resolution: 2
ubinit: 10.5
vns: -1
preprocessing: false
nodelimit: 5000
`)
	got, err := LoadConfig(path)
	if err != nil {
		t.Fatalf("LoadConfig() returned with unexpected error %v", err)
	}
	ub, vns := 10.5, -1
	want := Config{
		Name:       "warehouse",
		Resolution: 2,
		UbInit:     &ub,
		VNS:        &vns,
		NodeLimit:  5000,
		Seed:       1,
		Verbose:    -1,
	}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("LoadConfig() returned with unexpected diff (-want+got):\n%s", diff)
	}
}

func TestLoadConfig_Errors(t *testing.T) {
	testCases := []struct {
		desc    string
		content string
		wantErr error
	}{
		{"verbose out of range", "verbose: 9\n", ErrConfiguration},
		{"negative resolution", "resolution: -1\n", ErrConfiguration},
		{"vns out of range", "vns: -7\n", ErrConfiguration},
		{"negative node limit", "nodelimit: -3\n", ErrConfiguration},
	}
	for _, test := range testCases {
		t.Run(test.desc, func(t *testing.T) {
			if _, err := LoadConfig(writeConfig(t, test.content)); !errors.Is(err, test.wantErr) {
				t.Errorf("LoadConfig(%q) returned %v, want %v", test.content, err, test.wantErr)
			}
		})
	}
	if _, err := LoadConfig(writeConfig(t, "resolution: [\n")); err == nil {
		t.Error("LoadConfig() on malformed YAML returned nil error")
	}
	if _, err := LoadConfig(filepath.Join(t.TempDir(), "missing.yaml")); err == nil {
		t.Error("LoadConfig() on a missing file returned nil error")
	}
}

func TestConfig_Options(t *testing.T) {
	base := DefaultConfig()
	if err := base.Validate(); err != nil {
		t.Fatalf("DefaultConfig().Validate() returned with unexpected error %v", err)
	}
	opts := base.options()
	if !opts.Preprocessing || opts.ElimDegree != 3 || !opts.SolutionBasedPhaseSaving {
		t.Errorf("DefaultConfig().options() = %+v, want preprocessing with elimination", opts)
	}

	opts = base.NoPreprocessing().options()
	if opts.Preprocessing || opts.ElimDegree != -1 || opts.ElimDegreePreprocessing != -1 {
		t.Errorf("NoPreprocessing().options() = %+v, want every preprocessing disabled", opts)
	}
	if !base.Preprocessing {
		t.Error("NoPreprocessing() modified its receiver")
	}

	learning := base
	learning.Configuration = true
	opts = learning.options()
	if opts.ElimDegreePreprocessing != 1 || opts.SolutionBasedPhaseSaving {
		t.Errorf("options() with Configuration = %+v, want degree 1 elimination and no phase saving", opts)
	}

	// Search hints reach the backend untouched even when it ignores them.
	vns := -1
	tuned := base
	tuned.VAC, tuned.Seed, tuned.Verbose, tuned.VNS = 2, 42, 0, &vns
	opts = tuned.options()
	if opts.VAC != 2 || opts.Seed != 42 || opts.Verbose != 0 || opts.VNSInitSol == nil || *opts.VNSInitSol != -1 {
		t.Errorf("options() = %+v, want VAC 2, Seed 42, Verbose 0 and VNS -1", opts)
	}

	bounded := base.WithUbInit(7)
	if base.UbInit != nil || bounded.UbInit == nil || *bounded.UbInit != 7 {
		t.Errorf("WithUbInit(7) = %v on a copy of %v", bounded.UbInit, base.UbInit)
	}
}
