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

// The cfnsolve command reads a cost function network in .cfn format, solves it with the
// reference backend and prints a JSON report of the solution.
package main

import (
	"context"
	"flag"
	"fmt"
	"io"
	"strings"
	"time"

	log "github.com/golang/glog"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/spf13/cobra"
	"google.golang.org/protobuf/encoding/protojson"

	"github.com/toulbar2/toulbar2/toulbar2/go/cfnformat"
	"github.com/toulbar2/toulbar2/toulbar2/go/cfnmodel"
)

// maxResolution is the largest number of decimals a network accepts.
const maxResolution = 9

type options struct {
	config          string
	timeLimit       time.Duration
	allSolutions    int
	diversity       int
	ub              float64
	ubSet           bool
	noPreprocessing bool
	dump            string
	metrics         string
	trace           bool
}

func newRootCmd() *cobra.Command {
	var o options
	cmd := &cobra.Command{
		Use:   "cfnsolve [flags] problem.cfn",
		Short: "Solve a cost function network",
		Long: `Read a cost function network in .cfn format and solve it.

The report is printed as JSON on standard output. Decimal costs keep the number of
decimals of the "mustbe" bound of the problem unless the configuration file sets a
resolution.

Examples:
  cfnsolve problem.cfn
  cfnsolve --all 10 problem.cfn
  cfnsolve --config solver.yaml --time-limit 30s --metrics cfn.prom problem.cfn`,
		Args:         cobra.ExactArgs(1),
		SilenceUsage: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			o.ubSet = cmd.Flags().Changed("ub")
			return run(cmd.Context(), cmd.OutOrStdout(), cmd.ErrOrStderr(), args[0], o)
		},
	}
	f := cmd.Flags()
	f.StringVar(&o.config, "config", "", "YAML configuration file")
	f.DurationVar(&o.timeLimit, "time-limit", 0, "wall-clock limit of the search, 0 for none")
	f.IntVar(&o.allSolutions, "all", 0, "enumerate up to this many solutions below the upper bound")
	f.IntVar(&o.diversity, "diversity", 0, "minimum Hamming distance between enumerated solutions, needs --all")
	f.Float64Var(&o.ub, "ub", 0, "initial upper bound")
	f.BoolVar(&o.noPreprocessing, "no-preprocessing", false, "disable preprocessing")
	f.StringVar(&o.dump, "dump", "", "write the problem read to a .cfn or .wcsp file before solving")
	f.StringVar(&o.metrics, "metrics", "", "write solver metrics to a Prometheus textfile")
	f.BoolVar(&o.trace, "trace", false, "print trace spans on standard error")
	return cmd
}

// mustBeResolution returns the number of decimals of the bound in a mustbe header.
func mustBeResolution(mustbe string) int {
	if _, _, err := cfnformat.ParseMustBe(mustbe); err != nil {
		return 0
	}
	bound := strings.TrimSpace(strings.TrimSpace(mustbe)[1:])
	i := strings.IndexByte(bound, '.')
	if i < 0 || strings.ContainsAny(bound, "eE") {
		return 0
	}
	return min(len(bound)-i-1, maxResolution)
}

func loadConfig(filename string, o options) (cfnmodel.Config, error) {
	cfg := cfnmodel.DefaultConfig()
	if o.config != "" {
		var err error
		if cfg, err = cfnmodel.LoadConfig(o.config); err != nil {
			return cfnmodel.Config{}, err
		}
	}
	if cfg.Resolution == 0 {
		doc, err := cfnformat.ReadFile(filename)
		if err != nil {
			return cfnmodel.Config{}, fmt.Errorf("reading %s: %w", filename, err)
		}
		cfg.Resolution = mustBeResolution(doc.Problem.MustBe)
		if cfg.Name == "" {
			cfg.Name = doc.Problem.Name
		}
	}
	if o.ubSet {
		cfg = cfg.WithUbInit(o.ub)
	}
	if o.noPreprocessing {
		cfg = cfg.NoPreprocessing()
	}
	return cfg, nil
}

func run(ctx context.Context, out, errOut io.Writer, filename string, o options) (err error) {
	reg := prometheus.NewRegistry()
	shutdown, err := setupTelemetry(o, errOut, reg)
	if err != nil {
		return err
	}
	defer func() {
		if serr := shutdown(context.Background()); err == nil && serr != nil {
			err = fmt.Errorf("telemetry shutdown: %w", serr)
		}
	}()

	cfg, err := loadConfig(filename, o)
	if err != nil {
		return err
	}
	net, err := cfnmodel.New(nil, cfg)
	if err != nil {
		return err
	}
	if err := net.Read(filename); err != nil {
		return err
	}
	log.Infof("cfnsolve: %s has %d variables and %d constraints", net.Name(), net.NbVariables(), net.NbConstraints())
	if o.dump != "" {
		if err := net.Dump(o.dump); err != nil {
			return err
		}
	}

	var solveOpts []cfnmodel.SolveOption
	if o.timeLimit > 0 {
		solveOpts = append(solveOpts, cfnmodel.TimeLimit(o.timeLimit))
	}
	if o.allSolutions > 0 {
		solveOpts = append(solveOpts, cfnmodel.AllSolutions(o.allSolutions))
	}
	if o.diversity > 0 {
		solveOpts = append(solveOpts, cfnmodel.Diversity(o.diversity))
	}
	sol, err := net.Solve(ctx, solveOpts...)
	if err != nil {
		return err
	}
	if sol == nil {
		log.Infof("cfnsolve: no solution below %v", net.GetUB())
	}

	report, err := net.Report(sol)
	if err != nil {
		return err
	}
	b, err := protojson.MarshalOptions{Multiline: true, Indent: "  "}.Marshal(report)
	if err != nil {
		return err
	}
	if _, err := fmt.Fprintln(out, string(b)); err != nil {
		return err
	}

	if o.metrics != "" {
		if err := prometheus.WriteToTextfile(o.metrics, reg); err != nil {
			return fmt.Errorf("writing metrics: %w", err)
		}
	}
	return nil
}

func main() {
	cmd := newRootCmd()
	cmd.Flags().AddGoFlagSet(flag.CommandLine)
	if err := cmd.Execute(); err != nil {
		log.Exitf("cfnsolve returned with error: %v", err)
	}
}
