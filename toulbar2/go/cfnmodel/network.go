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

// Package cfnmodel offers a user-friendly API to build and solve cost function networks.
//
// A `Network` holds variables with discrete domains and cost functions over them. It
// translates every model element into the bounded-arity primitives of a `wcsp` backend:
// cost tables are normalized and shifted, tables of arity four or more are posted as
// sparse tuple lists, linear constraints become knapsack constraints and all-different
// constraints use one of several encodings. Costs are decimal numbers at the API and
// are scaled to integers with the network resolution; `Top()` is the forbidden cost.
//
// The same network supports incremental solving: `SolveFirst` preprocesses once, then
// each round calls `Store`, modifies the problem, calls `SetUB` and `SolveNext`, and
// `Restore` drops the modifications of the round.
package cfnmodel

import (
	"fmt"
	"math"

	log "github.com/golang/glog"
	"github.com/google/uuid"

	"github.com/toulbar2/toulbar2/toulbar2/go/memsolver"
	"github.com/toulbar2/toulbar2/toulbar2/go/wcsp"
)

// Backend creates the solver a network posts to.
type Backend func(wcsp.Options) wcsp.Solver

type state int

const (
	fresh state = iota
	preprocessed
	solved
)

func (s state) String() string {
	switch s {
	case fresh:
		return "fresh"
	case preprocessed:
		return "preprocessed"
	case solved:
		return "solved"
	}
	return fmt.Sprintf("state(%d)", int(s))
}

type variable struct {
	name     string
	values   []Value
	symbolic bool
}

// Network is a cost function network bound to one backend solver.
type Network struct {
	id      uuid.UUID
	cfg     Config
	backend Backend
	solver  wcsp.Solver
	w       wcsp.WeightedCSP

	vars    []variable
	index   map[string]int
	records []Record
	// unrecorded is set when the backend loaded elements that have no records.
	unrecorded bool

	state state
	limit *wcsp.SolverOutError
	scale float64
	top   float64
}

// New returns an empty network. A nil backend selects the in-memory reference backend.
func New(backend Backend, cfg Config) (*Network, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if backend == nil {
		backend = memsolver.NewBackend
	}
	id := uuid.New()
	if cfg.Name == "" {
		cfg.Name = "cfn-" + id.String()
	}
	solver := backend(cfg.options())
	solver.WCSP().SetName(cfg.Name)
	pow := wcsp.Cost(1)
	for i := 0; i < cfg.Resolution; i++ {
		pow *= 10
	}
	return &Network{
		id:      id,
		cfg:     cfg,
		backend: backend,
		solver:  solver,
		w:       solver.WCSP(),
		index:   make(map[string]int),
		scale:   math.Pow10(cfg.Resolution),
		top:     float64(wcsp.MaxCost / pow),
	}, nil
}

// ID returns the unique identifier of the network.
func (n *Network) ID() uuid.UUID { return n.id }

// Name returns the network name.
func (n *Network) Name() string { return n.cfg.Name }

// Config returns the settings the network was created with.
func (n *Network) Config() Config { return n.cfg }

// Top returns the decimal forbidden cost.
func (n *Network) Top() float64 { return n.top }

// Resolution returns the number of decimal digits kept in costs.
func (n *Network) Resolution() int { return n.cfg.Resolution }

// WCSP returns the backend problem.
func (n *Network) WCSP() wcsp.WeightedCSP { return n.w }

// Solver returns the backend solver.
func (n *Network) Solver() wcsp.Solver { return n.solver }

func (n *Network) toCost(d float64) wcsp.Cost {
	if d >= n.top {
		return wcsp.MaxCost
	}
	r := math.Round(d * n.scale)
	if r >= float64(wcsp.MaxCost) {
		return wcsp.MaxCost
	}
	if r <= -float64(wcsp.MaxCost) {
		return -wcsp.MaxCost
	}
	return wcsp.Cost(r)
}

// toBound converts a decimal bound to the backend form, which includes the total of
// negative costs.
func (n *Network) toBound(d float64) wcsp.Cost {
	c := n.toCost(d)
	if c >= wcsp.MaxCost {
		return wcsp.MaxCost
	}
	return wcsp.AddCost(c, n.w.NegativeLb())
}

func (n *Network) toDecimal(c wcsp.Cost) float64 {
	if c >= wcsp.MaxCost {
		return n.top
	}
	return float64(c-n.w.NegativeLb()) / n.scale
}

// AddVariable creates a variable and returns its index. The values are either all
// integers or all symbols. An integer domain spans `[min(values),max(values)]` with
// the values not listed removed; a symbolic domain holds `0..len(values)-1`, each
// value keeping its symbol as display name.
func (n *Network) AddVariable(name string, values ...Value) (int, error) {
	if _, ok := n.index[name]; ok {
		return 0, fmt.Errorf("variable %q already defined: %w", name, ErrConfiguration)
	}
	if len(values) == 0 {
		return 0, fmt.Errorf("variable %q has an empty domain: %w", name, ErrConfiguration)
	}
	if d := n.w.Depth(); d > 0 {
		return 0, fmt.Errorf("adding variable %q at depth %d: %w", name, d, ErrState)
	}
	symbolic := values[0].IsSymbol()
	seen := make(map[Value]bool, len(values))
	for _, v := range values {
		if v.IsSymbol() != symbolic {
			return 0, fmt.Errorf("variable %q mixes integer and symbolic values %v: %w", name, values, ErrConfiguration)
		}
		if seen[v] {
			return 0, fmt.Errorf("variable %q lists value %v twice: %w", name, v, ErrConfiguration)
		}
		seen[v] = true
	}

	var x int
	if symbolic {
		x = n.w.MakeEnumeratedVariable(name, 0, wcsp.Value(len(values)-1))
		for _, v := range values {
			n.w.AddValueName(x, v.Symbol())
		}
	} else {
		lo, hi := values[0].Int(), values[0].Int()
		for _, v := range values[1:] {
			lo = min(lo, v.Int())
			hi = max(hi, v.Int())
		}
		x = n.w.MakeEnumeratedVariable(name, wcsp.Value(lo), wcsp.Value(hi))
		for k := lo; k <= hi; k++ {
			n.w.AddValueName(x, fmt.Sprintf("v%d", k))
			if !seen[IntValue(k)] {
				if err := n.w.Remove(x, wcsp.Value(k)); err != nil {
					return 0, fmt.Errorf("variable %q: %w", name, err)
				}
			}
		}
	}
	n.vars = append(n.vars, variable{name: name, values: append([]Value(nil), values...), symbolic: symbolic})
	n.index[name] = x
	log.V(1).Infof("cfnmodel: variable %s has index %d and %d values", name, x, n.w.DomainInitSize(x))
	return x, nil
}

// VariableIndex returns the index of the named variable.
func (n *Network) VariableIndex(name string) (int, bool) {
	x, ok := n.index[name]
	return x, ok
}

// VariableNames returns the variable names ordered by index.
func (n *Network) VariableNames() []string {
	names := make([]string, len(n.vars))
	for i, v := range n.vars {
		names[i] = v.name
	}
	return names
}

// VariableValues returns the values a variable was declared with.
func (n *Network) VariableValues(ref VarRef) ([]Value, error) {
	x, err := n.varIndex(ref)
	if err != nil {
		return nil, err
	}
	return append([]Value(nil), n.vars[x].values...), nil
}

// NbVariables returns the number of variables, including deconnected ones.
func (n *Network) NbVariables() int { return len(n.vars) }

// NbConstraints returns the number of active cost functions of arity two or more.
func (n *Network) NbConstraints() int { return n.w.NumberOfConstraints() }

// Domain returns the current domain of a variable.
func (n *Network) Domain(ref VarRef) ([]Value, error) {
	x, err := n.varIndex(ref)
	if err != nil {
		return nil, err
	}
	var out []Value
	for _, v := range n.w.EnumDomain(x) {
		out = append(out, n.fromBackend(x, v))
	}
	return out, nil
}

// ValueName returns the display name of a domain value.
func (n *Network) ValueName(ref VarRef, v Value) (string, error) {
	x, err := n.varIndex(ref)
	if err != nil {
		return "", err
	}
	bv, err := n.toBackend(x, v)
	if err != nil {
		return "", err
	}
	i := n.w.ToIndex(x, bv)
	if i < 0 || i >= n.w.DomainInitSize(x) {
		return "", fmt.Errorf("variable %s has no value %v: %w", n.vars[x].name, v, ErrConfiguration)
	}
	return n.w.ValueName(x, i), nil
}

func (n *Network) varIndex(ref VarRef) (int, error) {
	if ref.byName {
		x, ok := n.index[ref.name]
		if !ok {
			return 0, fmt.Errorf("unknown variable %s: %w", ref, ErrConfiguration)
		}
		return x, nil
	}
	if ref.index < 0 || ref.index >= len(n.vars) {
		return 0, fmt.Errorf("out of range variable index %d: %w", ref.index, ErrConfiguration)
	}
	return ref.index, nil
}

// scope resolves a scope and rejects duplicate variables.
func (n *Network) scope(refs []VarRef) ([]int, error) {
	out := make([]int, len(refs))
	seen := make(map[int]bool, len(refs))
	for i, r := range refs {
		x, err := n.varIndex(r)
		if err != nil {
			return nil, err
		}
		if seen[x] {
			return nil, fmt.Errorf("duplicate variable %s in scope %v: %w", n.vars[x].name, refs, ErrConfiguration)
		}
		seen[x] = true
		out[i] = x
	}
	return out, nil
}

func (n *Network) scopeNames(scope []int) []string {
	names := make([]string, len(scope))
	for i, x := range scope {
		names[i] = n.vars[x].name
	}
	return names
}

// toBackend converts a value of variable x to its backend value. A symbol maps to its
// position; an integer is taken as is.
func (n *Network) toBackend(x int, v Value) (wcsp.Value, error) {
	if !v.IsSymbol() {
		return wcsp.Value(v.Int()), nil
	}
	if !n.vars[x].symbolic {
		return 0, fmt.Errorf("integer variable %s has no symbol %q: %w", n.vars[x].name, v.Symbol(), ErrConfiguration)
	}
	for i, s := range n.vars[x].values {
		if s == v {
			return n.w.ToValue(x, i), nil
		}
	}
	return 0, fmt.Errorf("variable %s has no value %q: %w", n.vars[x].name, v.Symbol(), ErrConfiguration)
}

func (n *Network) fromBackend(x int, v wcsp.Value) Value {
	if !n.vars[x].symbolic {
		return IntValue(int64(v))
	}
	i := n.w.ToIndex(x, v)
	if i < 0 || i >= len(n.vars[x].values) {
		return IntValue(int64(v))
	}
	return n.vars[x].values[i]
}

// initialValues lists the backend values of the initial domain of x.
func (n *Network) initialValues(x int) []wcsp.Value {
	size := n.w.DomainInitSize(x)
	out := make([]wcsp.Value, size)
	for i := range out {
		out[i] = n.w.ToValue(x, i)
	}
	return out
}

// checkDepth rejects a non-incremental post when the network is not at depth 0,
// where it could not be undone consistently.
func (n *Network) checkDepth(what string) error {
	if d := n.w.Depth(); d > 0 {
		return fmt.Errorf("non-incremental %s at depth %d: %w", what, d, ErrState)
	}
	return nil
}
