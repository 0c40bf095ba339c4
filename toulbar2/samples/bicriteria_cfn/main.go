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

// The bicriteria_cfn command computes the supported points of a two-criteria problem:
// choose items under a capacity, trading the total value against the total weight.
package main

import (
	"context"
	"fmt"
	"time"

	log "github.com/golang/glog"
	"github.com/toulbar2/toulbar2/toulbar2/go/cfnmodel"
	"github.com/toulbar2/toulbar2/toulbar2/go/multicfn"
)

var (
	itemValues  = []int64{8, 5, 6, 3, 7}
	itemWeights = []int64{6, 3, 5, 1, 4}
)

const capacity = 12

// criterion returns a network over the item variables with one unary cost per item.
func criterion(name string, gains []int64) (*cfnmodel.Network, error) {
	cfg := cfnmodel.DefaultConfig()
	cfg.Name = name
	net, err := cfnmodel.New(nil, cfg)
	if err != nil {
		return nil, err
	}
	refs := make([]cfnmodel.VarRef, len(gains))
	for i, g := range gains {
		x, err := net.AddVariable(fmt.Sprintf("item%d", i), cfnmodel.Range(0, 2)...)
		if err != nil {
			return nil, err
		}
		refs[i] = cfnmodel.VarIndex(x)
		if err := net.AddFunction(refs[i:i+1], []float64{0, float64(g)}); err != nil {
			return nil, err
		}
	}
	if err := net.AddLinearConstraint(itemWeights, refs, cfnmodel.Le, capacity); err != nil {
		return nil, err
	}
	return net, nil
}

func bicriteriaCfn() error {
	value, err := criterion("value", itemValues)
	if err != nil {
		return err
	}
	weight, err := criterion("weight", itemWeights)
	if err != nil {
		return err
	}

	m := multicfn.New()
	m.Push(value, 1)
	m.Push(weight, 1)

	front, err := m.ApproximateParetoFront(context.Background(), 0, multicfn.Maximize, 1, multicfn.Minimize, multicfn.ParetoOptions{
		GlobalTimeout: time.Minute,
		PointTimeout:  10 * time.Second,
	})
	if err != nil {
		return fmt.Errorf("failed to compute the front: %w", err)
	}

	fmt.Println("Number of supported points found: ", len(front))
	for _, p := range front {
		var chosen []string
		for i := range itemValues {
			name := fmt.Sprintf("item%d", i)
			if p.Solution[name].Int() == 1 {
				chosen = append(chosen, name)
			}
		}
		fmt.Printf("value = %v, weight = %v: %v\n", p.Point.A, p.Point.B, chosen)
	}

	return nil
}

func main() {
	if err := bicriteriaCfn(); err != nil {
		log.Exitf("bicriteriaCfn returned with error: %v", err)
	}
}
