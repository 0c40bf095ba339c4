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

// The search_for_all_solutions_cfn command is an example for how to search for all
// solutions.
package main

import (
	"context"
	"fmt"

	log "github.com/golang/glog"
	"github.com/toulbar2/toulbar2/toulbar2/go/cfnmodel"
)

func searchForAllSolutionsCfn() error {
	net, err := cfnmodel.New(nil, cfnmodel.DefaultConfig())
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

	// Every solution costs zero, so all of them are below the initial upper bound.
	if _, err := net.Solve(context.Background(), cfnmodel.AllSolutions(27)); err != nil {
		return fmt.Errorf("failed to solve the network: %w", err)
	}

	solutions := net.Solutions()
	for i, sol := range solutions {
		vs := sol.Values
		fmt.Printf("Solution %v: x = %v, y = %v, z = %v\n", i, vs[0], vs[1], vs[2])
	}
	fmt.Println("Number of solutions found: ", len(solutions))

	return nil
}

func main() {
	if err := searchForAllSolutionsCfn(); err != nil {
		log.Exitf("searchForAllSolutionsCfn returned with error: %v", err)
	}
}
