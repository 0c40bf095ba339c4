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

// The incremental_solve_cfn command preprocesses a network once, then solves it again
// for every value of one variable, undoing each assignment with Restore.
package main

import (
	"context"
	"errors"
	"fmt"

	log "github.com/golang/glog"
	"github.com/toulbar2/toulbar2/toulbar2/go/cfnmodel"
	"github.com/toulbar2/toulbar2/toulbar2/go/wcsp"
)

func incrementalSolveCfn() error {
	net, err := cfnmodel.New(nil, cfnmodel.DefaultConfig())
	if err != nil {
		return fmt.Errorf("failed to create the network: %w", err)
	}
	for _, name := range []string{"x", "y", "z"} {
		if _, err := net.AddVariable(name, cfnmodel.Range(0, 3)...); err != nil {
			return err
		}
	}
	if err := net.AddAllDifferent(cfnmodel.Names("x", "y", "z"), cfnmodel.Binary); err != nil {
		return err
	}
	// Maximize x + 2y + 3z, as the minimization of its distance to 12.
	var costs []float64
	for x := 0; x < 3; x++ {
		for y := 0; y < 3; y++ {
			for z := 0; z < 3; z++ {
				costs = append(costs, float64(12-x-2*y-3*z))
			}
		}
	}
	if err := net.AddFunction(cfnmodel.Names("x", "y", "z"), costs); err != nil {
		return err
	}

	ub, ok, err := net.SolveFirst()
	if err != nil {
		return fmt.Errorf("failed to preprocess the network: %w", err)
	}
	if !ok {
		fmt.Println("No solution found.")
		return nil
	}

	ctx := context.Background()
	for _, x := range cfnmodel.Range(0, 3) {
		net.Store()
		if err := net.SetUB(ub); err != nil {
			return err
		}
		err := net.Assign(cfnmodel.VarName("x"), x)
		switch {
		case errors.Is(err, wcsp.ErrContradiction):
			net.ClearPropagationQueues()
			fmt.Printf("x = %v: infeasible\n", x)
		case err != nil:
			return err
		default:
			sol, err := net.SolveNext(ctx)
			if err != nil {
				return fmt.Errorf("failed to solve with x = %v: %w", x, err)
			}
			if sol == nil {
				fmt.Printf("x = %v: no solution\n", x)
			} else {
				fmt.Printf("x = %v: %v with cost %v\n", x, sol.Values, sol.Cost)
			}
		}
		if err := net.Restore(0); err != nil {
			return err
		}
	}

	return nil
}

func main() {
	if err := incrementalSolveCfn(); err != nil {
		log.Exitf("incrementalSolveCfn returned with error: %v", err)
	}
}
