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

// The bilevel_cfn command builds a small mixed-integer bilevel problem as a single cost
// function network and prints the bookkeeping a bilevel search starts from.
//
// The leader maximizes C0 and the follower minimizes 7*C1, subject to
//
//	-3*C0 + 2*C1 <= 12,  C0 + 2*C1 <= 20,  2*C0 - C1 <= 7,  -2*C0 + 4*C1 <= 16.
package main

import (
	"fmt"

	log "github.com/golang/glog"
	"github.com/toulbar2/toulbar2/toulbar2/go/bilevel"
	"github.com/toulbar2/toulbar2/toulbar2/go/cfnmodel"
)

func feasible(c0, c1 int64) bool {
	return -3*c0+2*c1 <= 12 && c0+2*c1 <= 20 && 2*c0-c1 <= 7 && -2*c0+4*c1 <= 16
}

func leader(net *cfnmodel.Network) error {
	if _, err := net.AddVariable("C0", cfnmodel.Range(0, 11)...); err != nil {
		return err
	}
	costs := make([]float64, 11)
	for v := range costs {
		costs[v] = -float64(v)
	}
	return net.AddFunction(cfnmodel.Names("C0"), costs)
}

func follower(net *cfnmodel.Network) error {
	if _, err := net.AddVariable("C1", cfnmodel.Range(0, 6)...); err != nil {
		return err
	}
	var costs []float64
	for c0 := range int64(11) {
		for c1 := range int64(6) {
			if feasible(c0, c1) {
				costs = append(costs, 7*float64(c1))
			} else {
				costs = append(costs, net.Top())
			}
		}
	}
	return net.AddFunction(cfnmodel.Names("C0", "C1"), costs)
}

func bilevelCfn() error {
	net, err := cfnmodel.New(nil, cfnmodel.DefaultConfig())
	if err != nil {
		return fmt.Errorf("failed to create the network: %w", err)
	}
	c, err := bilevel.New(net)
	if err != nil {
		return err
	}
	if err := c.Leader(leader); err != nil {
		return err
	}
	if err := c.Follower(follower); err != nil {
		return err
	}
	if err := c.MirrorFollower("neg"); err != nil {
		return err
	}
	bounds, err := c.Finish()
	if err != nil {
		return err
	}

	for _, l := range []bilevel.Level{bilevel.Leader, bilevel.Follower, bilevel.NegatedFollower} {
		fmt.Printf("%v: variables %v, lb %d, negative costs %d, multiplier %v\n",
			l, c.Variables(l), bounds.InitialLb[l], bounds.NegCost[l], bounds.CostMultiplier[l])
	}
	fmt.Printf("Combined lower bound: %v\n", net.GetLB())

	return nil
}

func main() {
	if err := bilevelCfn(); err != nil {
		log.Exitf("bilevelCfn returned with error: %v", err)
	}
}
