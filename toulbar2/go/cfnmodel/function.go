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

	log "github.com/golang/glog"

	"github.com/toulbar2/toulbar2/toulbar2/go/wcsp"
)

type functionOptions struct {
	incremental bool
	excepted    []int64
	hasExcepted bool
}

// FunctionOption changes how a cost function or constraint is posted.
type FunctionOption func(*functionOptions)

// Incremental makes the posted element backtrackable: it disappears when the network
// is restored to a depth lower than the current one.
func Incremental() FunctionOption {
	return func(o *functionOptions) { o.incremental = true }
}

// Excepted lists values that several variables of an all-different constraint may
// share.
func Excepted(values ...int64) FunctionOption {
	return func(o *functionOptions) {
		o.excepted = append([]int64(nil), values...)
		o.hasExcepted = true
	}
}

func collectOptions(opts []FunctionOption) functionOptions {
	var o functionOptions
	for _, opt := range opts {
		opt(&o)
	}
	return o
}

// checkPost validates the options shared by table functions.
func (n *Network) checkPost(what string, arity int, o functionOptions) error {
	if o.hasExcepted {
		return fmt.Errorf("%s: excepted values only apply to all-different constraints: %w", what, ErrConfiguration)
	}
	if o.incremental && arity >= 4 {
		return fmt.Errorf("%s: incremental cost functions of arity %d are not supported: %w", what, arity, ErrConfiguration)
	}
	if !o.incremental {
		return n.checkDepth(what)
	}
	return nil
}

func (n *Network) tableSize(xs []int) int {
	size := 1
	for _, x := range xs {
		size *= n.w.DomainInitSize(x)
	}
	return size
}

// AddNullary adds a constant cost to the network lower bound. Negative costs are
// accumulated apart by the backend and subtracted from every reported cost.
func (n *Network) AddNullary(cost float64) error {
	n.w.PostNullaryConstraint(n.toCost(cost))
	n.record(Record{Kind: KindNullary, Costs: []float64{n.hard(cost)}, Incremental: n.w.Depth() > 0})
	return nil
}

// AddFunction adds a cost function in extension. `costs` lists one decimal cost per
// assignment of the initial domains, the last scope variable changing fastest, so its
// length is the product of the initial domain sizes. An empty scope takes a single
// cost, added to the lower bound.
//
// The minimum cost is moved into the lower bound and the table is shifted so that its
// minimum is zero. A constant table only contributes to the lower bound. Tables of
// arity four or more are posted as the list of their nonzero tuples.
func (n *Network) AddFunction(scope []VarRef, costs []float64, opts ...FunctionOption) error {
	o := collectOptions(opts)
	xs, err := n.scope(scope)
	if err != nil {
		return err
	}
	if len(xs) == 0 {
		if len(costs) != 1 {
			return fmt.Errorf("nullary function with %d costs: %w", len(costs), ErrConfiguration)
		}
		return n.AddNullary(costs[0])
	}
	if err := n.checkPost("cost function", len(xs), o); err != nil {
		return err
	}
	if size := n.tableSize(xs); len(costs) != size {
		return fmt.Errorf("cost function on %v has %d costs, want %d: %w", n.scopeNames(xs), len(costs), size, ErrConfiguration)
	}
	if err := n.postTable(xs, costs, o.incremental); err != nil {
		return err
	}
	n.record(Record{Kind: KindTable, Scope: n.scopeNames(xs), Costs: n.hardAll(costs), Incremental: o.incremental})
	return nil
}

// shifter returns the conversion of decimal costs shifted by minCost.
func (n *Network) shifter(minCost float64) func(float64) wcsp.Cost {
	return func(c float64) wcsp.Cost {
		if c >= n.top {
			return wcsp.MaxCost
		}
		return n.toCost(c - minCost)
	}
}

// foldMinimum posts the minimum of a function as a nullary cost and reports whether
// anything remains to be posted.
func (n *Network) foldMinimum(minCost, maxCost float64) bool {
	if minCost >= n.top {
		n.w.PostNullaryConstraint(wcsp.MaxCost)
		return false
	}
	n.w.PostNullaryConstraint(n.toCost(minCost))
	if minCost == maxCost {
		log.V(1).Infof("cfnmodel: constant cost function %v folded into the lower bound", minCost)
		return false
	}
	return true
}

func (n *Network) postTable(xs []int, costs []float64, incremental bool) error {
	minCost, maxCost := costs[0], costs[0]
	zeros := 0
	for _, c := range costs {
		minCost = min(minCost, c)
		maxCost = max(maxCost, c)
		if c == 0 {
			zeros++
		}
	}
	if !n.foldMinimum(minCost, maxCost) {
		return nil
	}
	shift := n.shifter(minCost)
	shifted := make([]wcsp.Cost, len(costs))
	for i, c := range costs {
		shifted[i] = shift(c)
	}

	switch len(xs) {
	case 1:
		return n.w.PostUnaryConstraint(xs[0], shifted, incremental)
	case 2:
		_, err := n.w.PostBinaryConstraint(xs[0], xs[1], shifted, incremental)
		return err
	case 3:
		_, err := n.w.PostTernaryConstraint(xs[0], xs[1], xs[2], shifted, incremental)
		return err
	}

	idx, err := n.w.PostNaryConstraintBegin(xs, 0, len(costs)-zeros, true)
	if err != nil {
		return err
	}
	// Odometer over the initial domains, last variable fastest.
	pos := make([]int, len(xs))
	tuple := make([]wcsp.Value, len(xs))
	for i, x := range xs {
		tuple[i] = n.w.ToValue(x, 0)
	}
	for _, c := range shifted {
		if c != 0 {
			if err := n.w.PostNaryConstraintTuple(idx, tuple, c); err != nil {
				return err
			}
		}
		for i := len(xs) - 1; i >= 0; i-- {
			if pos[i]+1 < n.w.DomainInitSize(xs[i]) {
				pos[i]++
				tuple[i] = n.w.ToValue(xs[i], pos[i])
				break
			}
			pos[i] = 0
			tuple[i] = n.w.ToValue(xs[i], 0)
		}
	}
	return n.w.PostNaryConstraintEnd(idx)
}

// AddCompactFunction adds a cost function given by a default cost and the list of
// assignments whose cost differs. Each tuple lists one value per scope variable.
// Functions of arity three or less are expanded to a full table; larger ones post the
// default and the listed tuples only.
func (n *Network) AddCompactFunction(scope []VarRef, defcost float64, tuples [][]Value, tcosts []float64, opts ...FunctionOption) error {
	if len(tuples) != len(tcosts) {
		log.Fatalf("tuples and tcosts must be the same length: %v != %v", len(tuples), len(tcosts))
	}
	o := collectOptions(opts)
	xs, err := n.scope(scope)
	if err != nil {
		return err
	}
	if len(xs) == 0 {
		if len(tuples) != 0 {
			return fmt.Errorf("nullary function with %d tuples: %w", len(tuples), ErrConfiguration)
		}
		return n.AddNullary(defcost)
	}
	if err := n.checkPost("compact cost function", len(xs), o); err != nil {
		return err
	}

	bt := make([][]wcsp.Value, len(tuples))
	for i, t := range tuples {
		if len(t) != len(xs) {
			return fmt.Errorf("tuple %v does not match scope %v: %w", t, n.scopeNames(xs), ErrConfiguration)
		}
		bt[i] = make([]wcsp.Value, len(t))
		for j, v := range t {
			bv, err := n.toBackend(xs[j], v)
			if err != nil {
				return err
			}
			if k := n.w.ToIndex(xs[j], bv); k < 0 || k >= n.w.DomainInitSize(xs[j]) {
				return fmt.Errorf("tuple %v: value %v outside the domain of %s: %w", t, v, n.vars[xs[j]].name, ErrConfiguration)
			}
			bt[i][j] = bv
		}
	}

	if len(xs) <= 3 {
		costs := make([]float64, n.tableSize(xs))
		for i := range costs {
			costs[i] = defcost
		}
		for i, t := range bt {
			k := 0
			for j, x := range xs {
				k = k*n.w.DomainInitSize(x) + n.w.ToIndex(x, t[j])
			}
			costs[k] = tcosts[i]
		}
		if err := n.postTable(xs, costs, o.incremental); err != nil {
			return err
		}
	} else if err := n.postCompact(xs, defcost, bt, tcosts); err != nil {
		return err
	}

	rec := Record{
		Kind:        KindCompact,
		Scope:       n.scopeNames(xs),
		Default:     n.hard(defcost),
		TupleCosts:  n.hardAll(tcosts),
		Incremental: o.incremental,
	}
	for _, t := range bt {
		row := make([]int64, len(t))
		for j, v := range t {
			row[j] = int64(v)
		}
		rec.Tuples = append(rec.Tuples, row)
	}
	n.record(rec)
	return nil
}

func (n *Network) postCompact(xs []int, defcost float64, tuples [][]wcsp.Value, tcosts []float64) error {
	minCost, maxCost := defcost, defcost
	for _, c := range tcosts {
		minCost = min(minCost, c)
		maxCost = max(maxCost, c)
	}
	if !n.foldMinimum(minCost, maxCost) {
		return nil
	}
	shift := n.shifter(minCost)
	idx, err := n.w.PostNaryConstraintBegin(xs, shift(defcost), len(tcosts), false)
	if err != nil {
		return err
	}
	for i, t := range tuples {
		if err := n.w.PostNaryConstraintTuple(idx, t, shift(tcosts[i])); err != nil {
			return err
		}
	}
	return n.w.PostNaryConstraintEnd(idx)
}
