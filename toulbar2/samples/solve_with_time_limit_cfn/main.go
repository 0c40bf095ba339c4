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

// The solve_with_time_limit_cfn command is an example of setting a time limit on the
// search.
package main

import (
	"context"
	"fmt"
	"time"

	log "github.com/golang/glog"
	"github.com/toulbar2/toulbar2/toulbar2/go/cfnmodel"
)

func solveWithTimeLimitCfn() error {
	cfg := cfnmodel.DefaultConfig()
	cfg.NodeLimit = 1000000
	net, err := cfnmodel.New(nil, cfg)
	if err != nil {
		return fmt.Errorf("failed to create the network: %w", err)
	}
	for _, name := range []string{"x", "y", "z"} {
		if _, err := net.AddVariable(name, cfnmodel.Range(0, 3)...); err != nil {
			return err
		}
	}
	if err := net.AddAllDifferent(cfnmodel.Names("x", "y"), cfnmodel.Binary); err != nil {
		return err
	}

	// Sets a time limit of 10 seconds.
	sol, err := net.Solve(context.Background(), cfnmodel.TimeLimit(10*time.Second))
	if err != nil {
		return fmt.Errorf("failed to solve the network: %w", err)
	}

	if limit := net.Limit(); limit != nil {
		fmt.Printf("Stopped: %v\n", limit)
	}
	if sol != nil {
		assignment := net.Assignment(sol.Values)
		fmt.Printf(" x = %v\n", assignment["x"])
		fmt.Printf(" y = %v\n", assignment["y"])
		fmt.Printf(" z = %v\n", assignment["z"])
	}

	return nil
}

func main() {
	if err := solveWithTimeLimitCfn(); err != nil {
		log.Exitf("solveWithTimeLimitCfn returned with error: %v", err)
	}
}
