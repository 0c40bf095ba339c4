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

// [START program]
// The simple_cfn_program command is an example of a small cost function network.
package main

import (
	"context"
	"fmt"

	log "github.com/golang/glog"
	"github.com/toulbar2/toulbar2/toulbar2/go/cfnmodel"
)

func simpleCfnProgram() error {
	// [START model]
	net, err := cfnmodel.New(nil, cfnmodel.DefaultConfig())
	if err != nil {
		return fmt.Errorf("failed to create the network: %w", err)
	}
	// [END model]

	// [START variables]
	for _, name := range []string{"x", "y", "z"} {
		if _, err := net.AddVariable(name, cfnmodel.Range(0, 3)...); err != nil {
			return err
		}
	}
	// [END variables]

	// [START constraints]
	if err := net.AddAllDifferent(cfnmodel.Names("x", "y"), cfnmodel.Binary); err != nil {
		return err
	}
	// [END constraints]

	// [START objective]
	// Prefer small values of x, large values of y, and z equal to x.
	if err := net.AddFunction(cfnmodel.Names("x"), []float64{0, 1, 2}); err != nil {
		return err
	}
	if err := net.AddFunction(cfnmodel.Names("y"), []float64{2, 1, 0}); err != nil {
		return err
	}
	if err := net.AddFunction(cfnmodel.Names("x", "z"), []float64{
		0, 3, 3,
		3, 0, 3,
		3, 3, 0,
	}); err != nil {
		return err
	}
	// [END objective]

	// [START solve]
	sol, err := net.Solve(context.Background())
	if err != nil {
		return fmt.Errorf("failed to solve the network: %w", err)
	}
	// [END solve]

	// [START print_solution]
	if sol == nil {
		fmt.Println("No solution found.")
		return nil
	}
	fmt.Printf("Cost: %v\n", sol.Cost)
	assignment := net.Assignment(sol.Values)
	for _, name := range net.VariableNames() {
		fmt.Printf("%s = %v\n", name, assignment[name])
	}
	// [END print_solution]

	return nil
}

func main() {
	if err := simpleCfnProgram(); err != nil {
		log.Exitf("simpleCfnProgram returned with error: %v", err)
	}
}

// [END program]
