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
	"fmt"
	"os"

	"github.com/go-playground/validator/v10"
	"gopkg.in/yaml.v3"

	"github.com/toulbar2/toulbar2/toulbar2/go/wcsp"
)

var validate = validator.New()

// Config holds the settings of a network. It is copied by New and never changes
// afterwards.
//
// VAC, Configuration, VNS, Seed and Verbose are forwarded to the backend as search
// hints. The in-memory backend runs a plain depth-first branch and bound and ignores
// them, as it ignores the elimination and phase-saving options Configuration and
// Preprocessing derive.
type Config struct {
	// UbInit is the initial upper bound as a decimal cost. Nil leaves it at Top.
	UbInit *float64 `yaml:"ubinit,omitempty"`
	// Resolution is the number of decimal digits kept in costs.
	Resolution int `yaml:"resolution" validate:"gte=0,lte=9"`
	// VAC is the maximum search depth where virtual arc consistency is enforced. Hint.
	VAC int `yaml:"vac" validate:"gte=0"`
	// Configuration selects the settings used by structure learning. Hint.
	Configuration bool `yaml:"configuration"`
	// VNS selects variable neighborhood search and its initial solution when set. Hint.
	VNS *int `yaml:"vns,omitempty" validate:"omitempty,gte=-4"`
	// Seed and Verbose are hints.
	Seed      int64 `yaml:"seed"`
	Verbose   int   `yaml:"verbose" validate:"gte=-1,lte=7"`
	NodeLimit int64 `yaml:"nodelimit" validate:"gte=0"`
	// Preprocessing enables the preprocessing passes run by SolveFirst.
	Preprocessing bool `yaml:"preprocessing"`
	// Name is the network name. An empty name is replaced by the network ID.
	Name string `yaml:"name"`
}

// DefaultConfig returns the settings of a plain network.
func DefaultConfig() Config {
	return Config{
		Seed:          1,
		Verbose:       -1,
		Preprocessing: true,
	}
}

// LoadConfig reads a YAML configuration file. Keys absent from the file keep their
// DefaultConfig values.
func LoadConfig(path string) (Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Config{}, err
	}
	cfg := DefaultConfig()
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return Config{}, fmt.Errorf("parsing %s: %w", path, err)
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, fmt.Errorf("%s: %w", path, err)
	}
	return cfg, nil
}

// Validate checks the ranges of the numeric settings.
func (c Config) Validate() error {
	if err := validate.Struct(c); err != nil {
		return fmt.Errorf("%v: %w", err, ErrConfiguration)
	}
	return nil
}

// NoPreprocessing returns a copy of the configuration with preprocessing and variable
// elimination disabled.
func (c Config) NoPreprocessing() Config {
	c.Preprocessing = false
	return c
}

// WithUbInit returns a copy of the configuration with the given initial upper bound.
func (c Config) WithUbInit(ub float64) Config {
	c.UbInit = &ub
	return c
}

func (c Config) options() wcsp.Options {
	opts := wcsp.DefaultOptions()
	opts.DecimalPoint = c.Resolution
	opts.VAC = c.VAC
	opts.Seed = c.Seed
	opts.Verbose = c.Verbose
	opts.NodeLimit = c.NodeLimit
	opts.VNSInitSol = c.VNS
	if c.Configuration {
		opts.ElimDegreePreprocessing = 1
		opts.SolutionBasedPhaseSaving = false
	}
	if !c.Preprocessing {
		opts.Preprocessing = false
		opts.ElimDegree = -1
		opts.ElimDegreePreprocessing = -1
	}
	return opts
}
