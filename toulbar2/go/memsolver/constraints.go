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

package memsolver

import (
	"fmt"
	"sort"
	"strconv"
	"strings"

	"github.com/toulbar2/toulbar2/toulbar2/go/wcsp"
)

// constraint is a cost function held by the in-memory problem.
type constraint interface {
	scope() []int
	// lowerBound returns a lower bound of the cost over every completion of the candidate
	// values `doms`, indexed by variable. The bound is exact when every scope variable
	// has a single candidate.
	lowerBound(doms [][]wcsp.Value) wcsp.Cost
	// maxFinite returns the largest cost below MaxCost the function can take.
	maxFinite() wcsp.Cost
}

func assigned(doms [][]wcsp.Value, vars []int) bool {
	for _, x := range vars {
		if len(doms[x]) != 1 {
			return false
		}
	}
	return true
}

func containsValue(sorted []wcsp.Value, v wcsp.Value) bool {
	i := sort.Search(len(sorted), func(i int) bool { return sorted[i] >= v })
	return i < len(sorted) && sorted[i] == v
}

// forEachTuple calls fn on every combination of the candidate lists, the last list
// varying fastest, until fn returns false.
func forEachTuple(lists [][]wcsp.Value, fn func(tuple []wcsp.Value) bool) {
	for _, l := range lists {
		if len(l) == 0 {
			return
		}
	}
	pos := make([]int, len(lists))
	tuple := make([]wcsp.Value, len(lists))
	for i, l := range lists {
		tuple[i] = l[0]
	}
	for {
		if !fn(tuple) {
			return
		}
		i := len(lists) - 1
		for ; i >= 0; i-- {
			pos[i]++
			if pos[i] < len(lists[i]) {
				tuple[i] = lists[i][pos[i]]
				break
			}
			pos[i] = 0
			tuple[i] = lists[i][0]
		}
		if i < 0 {
			return
		}
	}
}

func tupleKey(tuple []wcsp.Value) string {
	var sb strings.Builder
	for i, v := range tuple {
		if i > 0 {
			sb.WriteByte(' ')
		}
		sb.WriteString(strconv.FormatInt(int64(v), 10))
	}
	return sb.String()
}

// table is a dense cost function of arity one to three.
type table struct {
	vars  []int
	infs  []wcsp.Value
	sizes []int
	costs []wcsp.Cost
}

func (t *table) scope() []int { return t.vars }

func (t *table) index(tuple []wcsp.Value) int {
	idx := 0
	for i, v := range tuple {
		idx = idx*t.sizes[i] + int(v-t.infs[i])
	}
	return idx
}

func (t *table) lowerBound(doms [][]wcsp.Value) wcsp.Cost {
	lists := make([][]wcsp.Value, len(t.vars))
	for i, x := range t.vars {
		lists[i] = doms[x]
	}
	best := wcsp.MaxCost
	forEachTuple(lists, func(tuple []wcsp.Value) bool {
		best = wcsp.MinCost(best, t.costs[t.index(tuple)])
		return best > 0
	})
	return best
}

func (t *table) maxFinite() wcsp.Cost {
	var m wcsp.Cost
	for _, c := range t.costs {
		if c < wcsp.MaxCost && c > m {
			m = c
		}
	}
	return m
}

// nary is a cost function in extension with a default cost.
type nary struct {
	vars   []int
	def    wcsp.Cost
	costs  map[string]wcsp.Cost
	tuples [][]wcsp.Value
}

func (n *nary) scope() []int { return n.vars }

func (n *nary) lowerBound(doms [][]wcsp.Value) wcsp.Cost {
	if assigned(doms, n.vars) {
		tuple := make([]wcsp.Value, len(n.vars))
		for i, x := range n.vars {
			tuple[i] = doms[x][0]
		}
		if c, ok := n.costs[tupleKey(tuple)]; ok {
			return c
		}
		return n.def
	}
	best := n.def
	for _, tuple := range n.tuples {
		consistent := true
		for i, x := range n.vars {
			if !containsValue(doms[x], tuple[i]) {
				consistent = false
				break
			}
		}
		if consistent {
			best = wcsp.MinCost(best, n.costs[tupleKey(tuple)])
		}
	}
	return best
}

func (n *nary) maxFinite() wcsp.Cost {
	var m wcsp.Cost
	if n.def < wcsp.MaxCost {
		m = n.def
	}
	for _, c := range n.costs {
		if c < wcsp.MaxCost && c > m {
			m = c
		}
	}
	return m
}

// knapsack forbids assignments whose total weight is below the capacity.
type knapsack struct {
	vars   []int
	params wcsp.KnapsackParams
	raw    string
}

func (k *knapsack) scope() []int { return k.vars }

func (k *knapsack) lowerBound(doms [][]wcsp.Value) wcsp.Cost {
	var reach int64
	for i, x := range k.vars {
		best := int64(0)
		for j, v := range doms[x] {
			w := k.params.Weight(i, v)
			if j == 0 || w > best {
				best = w
			}
		}
		reach += best
	}
	if reach < k.params.Capacity {
		return wcsp.MaxCost
	}
	return 0
}

func (k *knapsack) maxFinite() wcsp.Cost { return 0 }

// allDifferent charges `base` when two assigned variables share a non-excepted value.
type allDifferent struct {
	vars     []int
	excepted map[wcsp.Value]bool
	base     wcsp.Cost
	// kind and params keep the posting primitive for dumps.
	kind   string
	params string
}

func (a *allDifferent) scope() []int { return a.vars }

func (a *allDifferent) lowerBound(doms [][]wcsp.Value) wcsp.Cost {
	seen := make(map[wcsp.Value]bool, len(a.vars))
	for _, x := range a.vars {
		if len(doms[x]) != 1 {
			continue
		}
		v := doms[x][0]
		if a.excepted[v] {
			continue
		}
		if seen[v] {
			return a.base
		}
		seen[v] = true
	}
	if len(a.excepted) == 0 {
		union := make(map[wcsp.Value]bool)
		for _, x := range a.vars {
			for _, v := range doms[x] {
				union[v] = true
			}
		}
		if len(union) < len(a.vars) {
			return a.base
		}
	}
	return 0
}

func (a *allDifferent) maxFinite() wcsp.Cost {
	if a.base < wcsp.MaxCost {
		return a.base
	}
	return 0
}

// among counts the variables taking a value of a set and charges when the count leaves
// `[lb,ub]`.
type among struct {
	vars      []int
	semantics string
	base      wcsp.Cost
	values    map[wcsp.Value]bool
	lb, ub    int
	params    string
}

func parseAmong(vars []int, params string) (*among, error) {
	f := strings.Fields(params)
	if len(f) < 3 {
		return nil, fmt.Errorf("wamong parameters %q: too short", params)
	}
	a := &among{vars: vars, semantics: f[0], values: make(map[wcsp.Value]bool), params: params}
	switch a.semantics {
	case "hard", "lin", "quad":
	default:
		return nil, fmt.Errorf("wamong parameters %q: unknown semantics %q", params, a.semantics)
	}
	ints := make([]int64, 0, len(f)-1)
	for _, s := range f[1:] {
		v, err := strconv.ParseInt(s, 10, 64)
		if err != nil {
			return nil, fmt.Errorf("wamong parameters %q: %w", params, err)
		}
		ints = append(ints, v)
	}
	a.base = wcsp.Cost(ints[0])
	n := int(ints[1])
	if n < 0 || len(ints) != n+4 {
		return nil, fmt.Errorf("wamong parameters %q: expected %d values and two bounds", params, n)
	}
	for _, v := range ints[2 : 2+n] {
		a.values[wcsp.Value(v)] = true
	}
	a.lb, a.ub = int(ints[2+n]), int(ints[3+n])
	return a, nil
}

func (a *among) scope() []int { return a.vars }

func (a *among) charge(violation int) wcsp.Cost {
	if violation <= 0 {
		return 0
	}
	var c wcsp.Cost
	switch a.semantics {
	case "hard":
		return a.base
	case "lin":
		c = a.base * wcsp.Cost(violation)
	default:
		c = a.base * wcsp.Cost(violation*violation)
	}
	if c < 0 || c > wcsp.MaxCost {
		return wcsp.MaxCost
	}
	return c
}

func (a *among) lowerBound(doms [][]wcsp.Value) wcsp.Cost {
	minCount, maxCount := 0, 0
	for _, x := range a.vars {
		all, some := true, false
		for _, v := range doms[x] {
			if a.values[v] {
				some = true
			} else {
				all = false
			}
		}
		if all && len(doms[x]) > 0 {
			minCount++
		}
		if some {
			maxCount++
		}
	}
	switch {
	case maxCount < a.lb:
		return a.charge(a.lb - maxCount)
	case minCount > a.ub:
		return a.charge(minCount - a.ub)
	}
	return 0
}

func (a *among) maxFinite() wcsp.Cost {
	c := a.charge(len(a.vars))
	if c >= wcsp.MaxCost {
		return 0
	}
	return c
}

// subProblem requires the cost of another problem, evaluated on the values of the scope
// variables, to lie in `[lb,ub)`.
type subProblem struct {
	vars          []int
	problem       wcsp.WeightedCSP
	negProblem    wcsp.WeightedCSP
	lb, ub        wcsp.Cost
	duplicateHard bool
	strongDuality bool
}

func (s *subProblem) scope() []int { return s.vars }

func (s *subProblem) lowerBound(doms [][]wcsp.Value) wcsp.Cost {
	if !assigned(doms, s.vars) {
		return 0
	}
	values := make([]wcsp.Value, len(s.vars))
	for i, x := range s.vars {
		values[i] = doms[x][0]
	}
	c := s.problem.EvalSolution(values)
	if c >= s.lb && c < s.ub {
		return 0
	}
	return wcsp.MaxCost
}

func (s *subProblem) maxFinite() wcsp.Cost { return 0 }
