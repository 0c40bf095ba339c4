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
	"strconv"
	"strings"

	log "github.com/golang/glog"
	"github.com/toulbar2/toulbar2/toulbar2/go/wcsp"
)

type variable struct {
	name       string
	inf, sup   wcsp.Value
	valueNames []string
	dom        wcsp.Domain
}

type posted struct {
	id int
	c  constraint
}

// WCSP is an in-memory weighted CSP. Domain reductions, lower bound changes and
// incremental cost functions are recorded on a trail and undone by Restore.
type WCSP struct {
	opts    wcsp.Options
	name    string
	vars    []*variable
	byName  map[string]int
	ctrs    []posted
	pending map[int]*nary
	nextID  int

	lb, negLb wcsp.Cost
	ub        wcsp.Cost
	solCost   wcsp.Cost

	tr trail
}

// NewWCSP returns an empty problem.
func NewWCSP(opts wcsp.Options) *WCSP {
	return &WCSP{
		opts:    opts,
		byName:  make(map[string]int),
		pending: make(map[int]*nary),
		ub:      wcsp.MaxCost,
		solCost: wcsp.MaxCost,
	}
}

var _ wcsp.WeightedCSP = (*WCSP)(nil)

func (w *WCSP) Name() string        { return w.name }
func (w *WCSP) SetName(name string) { w.name = name }

// MakeEnumeratedVariable creates a variable with domain `[inf,sup]`.
func (w *WCSP) MakeEnumeratedVariable(name string, inf, sup wcsp.Value) int {
	idx := len(w.vars)
	w.vars = append(w.vars, &variable{name: name, inf: inf, sup: sup, dom: wcsp.NewDomain(inf, sup)})
	w.byName[name] = idx
	return idx
}

func (w *WCSP) AddValueName(varIndex int, name string) {
	v := w.vars[varIndex]
	v.valueNames = append(v.valueNames, name)
}

func (w *WCSP) NumberOfVariables() int { return len(w.vars) }

func (w *WCSP) NumberOfConstraints() int {
	n := 0
	for _, p := range w.ctrs {
		if len(p.c.scope()) >= 2 {
			n++
		}
	}
	return n
}

func (w *WCSP) VarName(varIndex int) string { return w.vars[varIndex].name }

func (w *WCSP) VarIndex(name string) (int, bool) {
	i, ok := w.byName[name]
	return i, ok
}

func (w *WCSP) ValueName(varIndex, valIndex int) string {
	v := w.vars[varIndex]
	if valIndex < len(v.valueNames) {
		return v.valueNames[valIndex]
	}
	return "v" + strconv.FormatInt(int64(v.inf)+int64(valIndex), 10)
}

func (w *WCSP) DomainInitSize(varIndex int) int {
	v := w.vars[varIndex]
	return int(v.sup-v.inf) + 1
}

func (w *WCSP) ToValue(varIndex, valIndex int) wcsp.Value {
	return w.vars[varIndex].inf + wcsp.Value(valIndex)
}

func (w *WCSP) ToIndex(varIndex int, v wcsp.Value) int {
	return int(v - w.vars[varIndex].inf)
}

func (w *WCSP) EnumDomain(varIndex int) []wcsp.Value {
	return w.vars[varIndex].dom.Values()
}

func (w *WCSP) setDomain(x int, d wcsp.Domain) error {
	if d.Empty() {
		return fmt.Errorf("variable %s: %w", w.vars[x].name, wcsp.ErrContradiction)
	}
	v := w.vars[x]
	old := v.dom
	w.tr.push(func() { v.dom = old })
	v.dom = d
	return nil
}

func (w *WCSP) Assign(varIndex int, val wcsp.Value) error {
	d := w.vars[varIndex].dom
	if !d.Contains(val) {
		return w.setDomain(varIndex, wcsp.Domain{})
	}
	return w.setDomain(varIndex, wcsp.NewDomain(val, val))
}

func (w *WCSP) Remove(varIndex int, val wcsp.Value) error {
	return w.setDomain(varIndex, w.vars[varIndex].dom.Remove(val))
}

func (w *WCSP) Increase(varIndex int, val wcsp.Value) error {
	v := w.vars[varIndex]
	return w.setDomain(varIndex, v.dom.Restrict(val, v.sup))
}

func (w *WCSP) Decrease(varIndex int, val wcsp.Value) error {
	v := w.vars[varIndex]
	return w.setDomain(varIndex, v.dom.Restrict(v.inf, val))
}

// Deconnect assigns each variable to the value with the lowest local lower bound and
// removes the cost functions it takes part in. Above depth zero the removal is undone by
// Restore.
func (w *WCSP) Deconnect(varIndexes []int) error {
	for _, x := range varIndexes {
		doms := w.currentDoms()
		adj := w.adjacency()
		best, bestCost := wcsp.Value(0), wcsp.MaxCost+1
		for _, v := range doms[x] {
			doms[x] = []wcsp.Value{v}
			var c wcsp.Cost
			for _, ci := range adj[x] {
				c = wcsp.AddCost(c, w.ctrs[ci].c.lowerBound(doms))
			}
			if c < bestCost {
				best, bestCost = v, c
			}
		}
		w.detach(x)
		if err := w.Assign(x, best); err != nil {
			return err
		}
	}
	return nil
}

func (w *WCSP) detach(x int) {
	old := w.ctrs
	kept := make([]posted, 0, len(old))
	for _, p := range old {
		if !containsInt(p.c.scope(), x) {
			kept = append(kept, p)
		}
	}
	if len(kept) == len(old) {
		return
	}
	w.tr.push(func() { w.ctrs = old })
	w.ctrs = kept
	log.V(2).Infof("memsolver: deconnected %s from %d cost functions", w.vars[x].name, len(old)-len(kept))
}

func (w *WCSP) currentDoms() [][]wcsp.Value {
	doms := make([][]wcsp.Value, len(w.vars))
	for i, v := range w.vars {
		doms[i] = v.dom.Values()
	}
	return doms
}

func (w *WCSP) adjacency() [][]int {
	adj := make([][]int, len(w.vars))
	for ci, p := range w.ctrs {
		for _, x := range p.c.scope() {
			adj[x] = append(adj[x], ci)
		}
	}
	return adj
}

func (w *WCSP) bound(doms [][]wcsp.Value) wcsp.Cost {
	total := w.lb
	for _, p := range w.ctrs {
		total = wcsp.AddCost(total, p.c.lowerBound(doms))
	}
	return total
}

// Propagate checks the current domains against the upper bound and removes every value
// whose assignment alone lifts the lower bound to the upper bound.
func (w *WCSP) Propagate() error {
	adj := w.adjacency()
	for changed := true; changed; {
		changed = false
		doms := w.currentDoms()
		for x, d := range doms {
			if len(d) == 0 {
				return fmt.Errorf("variable %s: %w", w.vars[x].name, wcsp.ErrContradiction)
			}
		}
		local := make([]wcsp.Cost, len(w.ctrs))
		for ci, p := range w.ctrs {
			local[ci] = p.c.lowerBound(doms)
		}
		total := w.lb
		for _, c := range local {
			total = wcsp.AddCost(total, c)
		}
		if total >= w.ub {
			return fmt.Errorf("lower bound %d reaches upper bound %d: %w", total, w.ub, wcsp.ErrContradiction)
		}
		for x, d := range doms {
			if len(d) < 2 || len(adj[x]) == 0 {
				continue
			}
			var keep []wcsp.Value
			for _, v := range d {
				doms[x] = []wcsp.Value{v}
				b := w.lb
				for ci := range w.ctrs {
					if containsInt(w.ctrs[ci].c.scope(), x) {
						b = wcsp.AddCost(b, w.ctrs[ci].c.lowerBound(doms))
					} else {
						b = wcsp.AddCost(b, local[ci])
					}
				}
				if b < w.ub {
					keep = append(keep, v)
				}
			}
			doms[x] = d
			if len(keep) == len(d) {
				continue
			}
			if err := w.setDomain(x, wcsp.DomainFromValues(keep)); err != nil {
				return err
			}
			log.V(2).Infof("memsolver: propagation reduced %s to %v", w.vars[x].name, keep)
			changed = true
			break
		}
	}
	return nil
}

func containsInt(s []int, x int) bool {
	for _, y := range s {
		if y == x {
			return true
		}
	}
	return false
}

func (w *WCSP) WhenContradiction() {}

func (w *WCSP) PostNullaryConstraint(c wcsp.Cost) {
	if c < 0 {
		w.SetNegativeLb(wcsp.AddCost(w.negLb, -c))
		return
	}
	w.SetLb(wcsp.AddCost(w.lb, c))
}

func (w *WCSP) checkScope(scope []int) error {
	seen := make(map[int]bool, len(scope))
	for _, x := range scope {
		if x < 0 || x >= len(w.vars) {
			return fmt.Errorf("variable index %d out of range [0,%d)", x, len(w.vars))
		}
		if seen[x] {
			return fmt.Errorf("duplicate variable %d in scope %v", x, scope)
		}
		seen[x] = true
	}
	return nil
}

func (w *WCSP) post(c constraint, incremental bool) int {
	id := w.nextID
	w.nextID++
	w.ctrs = append(w.ctrs, posted{id: id, c: c})
	if incremental {
		w.tr.push(func() { w.removeConstraint(id) })
	}
	return id
}

func (w *WCSP) removeConstraint(id int) {
	for i, p := range w.ctrs {
		if p.id == id {
			w.ctrs = append(w.ctrs[:i:i], w.ctrs[i+1:]...)
			return
		}
	}
}

func (w *WCSP) postTable(scope []int, costs []wcsp.Cost, incremental bool) (int, error) {
	if err := w.checkScope(scope); err != nil {
		return 0, err
	}
	t := &table{vars: append([]int(nil), scope...)}
	size := 1
	for _, x := range scope {
		t.infs = append(t.infs, w.vars[x].inf)
		t.sizes = append(t.sizes, w.DomainInitSize(x))
		size *= w.DomainInitSize(x)
	}
	if len(costs) != size {
		return 0, fmt.Errorf("cost table of scope %v has %d entries, want %d", scope, len(costs), size)
	}
	t.costs = append([]wcsp.Cost(nil), costs...)
	return w.post(t, incremental), nil
}

func (w *WCSP) PostUnaryConstraint(x int, costs []wcsp.Cost, incremental bool) error {
	_, err := w.postTable([]int{x}, costs, incremental)
	return err
}

func (w *WCSP) PostBinaryConstraint(x, y int, costs []wcsp.Cost, incremental bool) (int, error) {
	return w.postTable([]int{x, y}, costs, incremental)
}

func (w *WCSP) PostTernaryConstraint(x, y, z int, costs []wcsp.Cost, incremental bool) (int, error) {
	return w.postTable([]int{x, y, z}, costs, incremental)
}

func (w *WCSP) PostNaryConstraintBegin(scope []int, defCost wcsp.Cost, nbTuples int, forceNary bool) (int, error) {
	if err := w.checkScope(scope); err != nil {
		return 0, err
	}
	id := w.nextID
	w.nextID++
	w.pending[id] = &nary{
		vars:   append([]int(nil), scope...),
		def:    defCost,
		costs:  make(map[string]wcsp.Cost, nbTuples),
		tuples: make([][]wcsp.Value, 0, nbTuples),
	}
	return id, nil
}

func (w *WCSP) PostNaryConstraintTuple(ctrIndex int, tuple []wcsp.Value, cost wcsp.Cost) error {
	n, ok := w.pending[ctrIndex]
	if !ok {
		return fmt.Errorf("no n-ary cost function %d under construction", ctrIndex)
	}
	if len(tuple) != len(n.vars) {
		return fmt.Errorf("tuple %v does not match arity %d", tuple, len(n.vars))
	}
	key := tupleKey(tuple)
	if _, dup := n.costs[key]; !dup {
		n.tuples = append(n.tuples, append([]wcsp.Value(nil), tuple...))
	}
	n.costs[key] = cost
	return nil
}

func (w *WCSP) PostNaryConstraintEnd(ctrIndex int) error {
	n, ok := w.pending[ctrIndex]
	if !ok {
		return fmt.Errorf("no n-ary cost function %d under construction", ctrIndex)
	}
	delete(w.pending, ctrIndex)
	w.ctrs = append(w.ctrs, posted{id: ctrIndex, c: n})
	return nil
}

func (w *WCSP) PostKnapsackConstraint(scope []int, params string, kp bool) (int, error) {
	if err := w.checkScope(scope); err != nil {
		return 0, err
	}
	p, err := wcsp.ParseKnapsackParams(params, len(scope))
	if err != nil {
		return 0, err
	}
	return w.post(&knapsack{vars: append([]int(nil), scope...), params: p, raw: params}, false), nil
}

func (w *WCSP) PostAllDifferentConstraint(scope []int, excepted []wcsp.Value, baseCost wcsp.Cost) (int, error) {
	if err := w.checkScope(scope); err != nil {
		return 0, err
	}
	a := &allDifferent{vars: append([]int(nil), scope...), base: baseCost, kind: "alldiff"}
	var ps []string
	for _, v := range excepted {
		if a.excepted == nil {
			a.excepted = make(map[wcsp.Value]bool)
		}
		a.excepted[v] = true
		ps = append(ps, strconv.FormatInt(int64(v), 10))
	}
	a.params = strings.Join(ps, " ")
	return w.post(a, false), nil
}

func (w *WCSP) PostWAllDiff(scope []int, semantics, propagator string, baseCost wcsp.Cost) (int, error) {
	if err := w.checkScope(scope); err != nil {
		return 0, err
	}
	switch propagator {
	case "flow", "DAG", "knapsack", "network":
	default:
		return 0, fmt.Errorf("walldiff propagator %q: %w", propagator, wcsp.ErrUnsupported)
	}
	a := &allDifferent{vars: append([]int(nil), scope...), base: baseCost, kind: "salldiff", params: semantics + " " + propagator}
	return w.post(a, false), nil
}

// PostGlobalFunction supports the "wamong" cost function.
func (w *WCSP) PostGlobalFunction(scope []int, name, params string) (int, error) {
	if err := w.checkScope(scope); err != nil {
		return 0, err
	}
	if name != "wamong" {
		return 0, fmt.Errorf("global cost function %q: %w", name, wcsp.ErrUnsupported)
	}
	a, err := parseAmong(append([]int(nil), scope...), params)
	if err != nil {
		return 0, err
	}
	return w.post(a, false), nil
}

func (w *WCSP) PostWeightedCSPConstraint(scope []int, problem, negProblem wcsp.WeightedCSP, lb, ub wcsp.Cost, duplicateHard, strongDuality bool) (int, error) {
	if err := w.checkScope(scope); err != nil {
		return 0, err
	}
	if problem.NumberOfVariables() != len(scope) {
		return 0, fmt.Errorf("weighted CSP constraint: scope has %d variables, problem has %d", len(scope), problem.NumberOfVariables())
	}
	s := &subProblem{
		vars:          append([]int(nil), scope...),
		problem:       problem,
		negProblem:    negProblem,
		lb:            lb,
		ub:            ub,
		duplicateHard: duplicateHard,
		strongDuality: strongDuality,
	}
	return w.post(s, false), nil
}

func (w *WCSP) Lb() wcsp.Cost { return w.lb }

func (w *WCSP) SetLb(c wcsp.Cost) {
	old := w.lb
	w.tr.push(func() { w.lb = old })
	w.lb = c
}

func (w *WCSP) NegativeLb() wcsp.Cost { return w.negLb }

func (w *WCSP) SetNegativeLb(c wcsp.Cost) {
	old := w.negLb
	w.tr.push(func() { w.negLb = old })
	w.negLb = c
}

func (w *WCSP) Ub() wcsp.Cost     { return w.ub }
func (w *WCSP) SetUb(c wcsp.Cost) { w.ub = c }

func (w *WCSP) UpdateUb(c wcsp.Cost) {
	if c < w.ub {
		w.ub = c
	}
}

// EnforceUb fails when the current lower bound already reaches the upper bound.
func (w *WCSP) EnforceUb() error {
	if b := w.bound(w.currentDoms()); b >= w.ub {
		return fmt.Errorf("lower bound %d reaches upper bound %d: %w", b, w.ub, wcsp.ErrContradiction)
	}
	return nil
}

func (w *WCSP) SolutionCost() wcsp.Cost { return w.solCost }
func (w *WCSP) InitSolutionCost()       { w.solCost = wcsp.MaxCost }

// EvalSolution returns the cost of a complete assignment, including Lb but not
// corrected by NegativeLb.
func (w *WCSP) EvalSolution(values []wcsp.Value) wcsp.Cost {
	doms := make([][]wcsp.Value, len(w.vars))
	for i := range doms {
		doms[i] = []wcsp.Value{values[i]}
	}
	return w.bound(doms)
}

func (w *WCSP) Store()            { w.tr.store() }
func (w *WCSP) Restore(depth int) { w.tr.restore(depth) }
func (w *WCSP) Depth() int        { return w.tr.depth }
