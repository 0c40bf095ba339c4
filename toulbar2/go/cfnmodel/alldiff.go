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
	"slices"

	"github.com/toulbar2/toulbar2/toulbar2/go/wcsp"
)

// Encoding selects how an all-different constraint is given to the backend.
type Encoding int

const (
	// Binary posts one pairwise table per pair of variables.
	Binary Encoding = iota
	// Hungarian posts one global constraint checked by bipartite matching.
	Hungarian
	// SAllDiff posts the flow-based soft all-different with hard violation cost.
	SAllDiff
	// SAllDiffDP posts the DAG-based propagator.
	SAllDiffDP
	// SAllDiffKP posts the knapsack-based propagator.
	SAllDiffKP
	// WAllDiff posts the network-based propagator.
	WAllDiff
)

func (e Encoding) String() string {
	switch e {
	case Binary:
		return "binary"
	case Hungarian:
		return "hungarian"
	case SAllDiff:
		return "salldiff"
	case SAllDiffDP:
		return "salldiffdp"
	case SAllDiffKP:
		return "salldiffkp"
	case WAllDiff:
		return "walldiff"
	}
	return fmt.Sprintf("encoding(%d)", int(e))
}

// AddAllDifferent adds the hard constraint that the variables of scope take pairwise
// different values. Only the Binary encoding accepts Incremental, and only Binary and
// Hungarian accept Excepted. A scope of fewer than two variables posts nothing.
func (n *Network) AddAllDifferent(scope []VarRef, encoding Encoding, opts ...FunctionOption) error {
	o := collectOptions(opts)
	if o.incremental && encoding != Binary {
		return fmt.Errorf("incremental all-different requires the binary encoding, not %v: %w", encoding, ErrConfiguration)
	}
	if o.hasExcepted && encoding != Binary && encoding != Hungarian {
		return fmt.Errorf("excepted values require the binary or hungarian encoding, not %v: %w", encoding, ErrConfiguration)
	}
	if encoding < Binary || encoding > WAllDiff {
		return fmt.Errorf("unknown all-different %v: %w", encoding, ErrConfiguration)
	}
	xs, err := n.scope(scope)
	if err != nil {
		return err
	}
	if !o.incremental {
		if err := n.checkDepth("all-different constraint"); err != nil {
			return err
		}
	}
	if len(xs) < 2 {
		return nil
	}

	switch encoding {
	case Binary:
		for i := range xs {
			for j := i + 1; j < len(xs); j++ {
				if err := n.postDifferent(xs[i], xs[j], o.excepted, o.incremental); err != nil {
					return err
				}
			}
		}
	case Hungarian:
		excepted := make([]wcsp.Value, len(o.excepted))
		for i, v := range o.excepted {
			excepted[i] = wcsp.Value(v)
		}
		if _, err := n.w.PostAllDifferentConstraint(xs, excepted, wcsp.MaxCost); err != nil {
			return err
		}
	default:
		semantics, propagator := wallDiffMode(encoding)
		if _, err := n.w.PostWAllDiff(xs, semantics, propagator, wcsp.MaxCost); err != nil {
			return err
		}
	}
	n.record(Record{
		Kind:        KindAllDifferent,
		Scope:       n.scopeNames(xs),
		Encoding:    encoding,
		Excepted:    o.excepted,
		Incremental: o.incremental,
	})
	return nil
}

func wallDiffMode(e Encoding) (semantics, propagator string) {
	switch e {
	case SAllDiffDP:
		return "var", "DAG"
	case SAllDiffKP:
		return "hard", "knapsack"
	case WAllDiff:
		return "hard", "network"
	}
	return "var", "flow"
}

// postDifferent posts the pairwise table forbidding x == y outside excepted values.
func (n *Network) postDifferent(x, y int, excepted []int64, incremental bool) error {
	vx, vy := n.initialValues(x), n.initialValues(y)
	costs := make([]float64, 0, len(vx)*len(vy))
	for _, a := range vx {
		for _, b := range vy {
			if a == b && !slices.Contains(excepted, int64(a)) {
				costs = append(costs, n.top)
			} else {
				costs = append(costs, 0)
			}
		}
	}
	return n.postTable([]int{x, y}, costs, incremental)
}
