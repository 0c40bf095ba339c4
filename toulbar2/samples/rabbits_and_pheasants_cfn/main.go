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

// The rabbits_and_pheasants_cfn command solves the rabbits and pheasants problem with
// linear constraints.
package main

import (
	"context"
	"fmt"

	log "github.com/golang/glog"
	"github.com/toulbar2/toulbar2/toulbar2/go/cfnmodel"
)

const numAnimals = 20

func rabbitsAndPheasants() error {
	net, err := cfnmodel.New(nil, cfnmodel.DefaultConfig())
	if err != nil {
		return fmt.Errorf("failed to create the network: %w", err)
	}

	allAnimals := cfnmodel.Range(0, numAnimals+1)
	for _, name := range []string{"rabbits", "pheasants"} {
		if _, err := net.AddVariable(name, allAnimals...); err != nil {
			return err
		}
	}
	animals := cfnmodel.Names("rabbits", "pheasants")

	if err := net.AddSumConstraint(animals, cfnmodel.Eq, numAnimals); err != nil {
		return err
	}
	if err := net.AddLinearConstraint([]int64{4, 2}, animals, cfnmodel.Eq, 56); err != nil {
		return err
	}

	sol, err := net.Solve(context.Background())
	if err != nil {
		return fmt.Errorf("failed to solve the network: %w", err)
	}
	if sol == nil {
		fmt.Println("No solution found.")
		return nil
	}
	fmt.Printf("There are %d rabbits and %d pheasants.\n", sol.Values[0], sol.Values[1])

	return nil
}

func main() {
	if err := rabbitsAndPheasants(); err != nil {
		log.Exitf("rabbitsAndPheasants returned with error: %v", err)
	}
}
