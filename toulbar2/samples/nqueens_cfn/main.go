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

// The nqueens_cfn command solves the N-queens problem as a cost function network.
package main

import (
	"context"
	"fmt"

	log "github.com/golang/glog"
	"github.com/toulbar2/toulbar2/toulbar2/go/cfnmodel"
)

const boardSize = 8

func nQueensCfn() error {
	net, err := cfnmodel.New(nil, cfnmodel.DefaultConfig())
	if err != nil {
		return fmt.Errorf("failed to create the network: %w", err)
	}

	// There is one variable per column of the board. The value of each variable is the
	// row that the queen is in.
	queens := make([]cfnmodel.VarRef, boardSize)
	for i := range queens {
		x, err := net.AddVariable(fmt.Sprintf("q%d", i), cfnmodel.Range(0, boardSize)...)
		if err != nil {
			return err
		}
		queens[i] = cfnmodel.VarIndex(x)
	}

	// All queens are in different rows.
	if err := net.AddAllDifferent(queens, cfnmodel.Hungarian); err != nil {
		return err
	}

	// No two queens can be on the same diagonal.
	for i := 0; i < boardSize; i++ {
		for j := i + 1; j < boardSize; j++ {
			costs := make([]float64, 0, boardSize*boardSize)
			for a := 0; a < boardSize; a++ {
				for b := 0; b < boardSize; b++ {
					c := 0.0
					if a-b == j-i || b-a == j-i {
						c = net.Top()
					}
					costs = append(costs, c)
				}
			}
			if err := net.AddFunction([]cfnmodel.VarRef{queens[i], queens[j]}, costs); err != nil {
				return err
			}
		}
	}

	sol, err := net.Solve(context.Background())
	if err != nil {
		return fmt.Errorf("failed to solve the network: %w", err)
	}
	if sol == nil {
		fmt.Println("No solution found.")
		return nil
	}

	fmt.Printf("Cost: %v\n", sol.Cost)
	fmt.Printf("Nodes: %d\n", net.NbNodes())
	fmt.Printf("Solution:\n")
	for row := int64(0); row < boardSize; row++ {
		for col := 0; col < boardSize; col++ {
			if sol.Values[col] == row {
				fmt.Print("Q")
			} else {
				fmt.Print("_")
			}
		}
		fmt.Println()
	}

	return nil
}

func main() {
	if err := nQueensCfn(); err != nil {
		log.Exitf("nQueensCfn returned with error: %v", err)
	}
}
