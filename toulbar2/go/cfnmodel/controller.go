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
	"strconv"
	"strings"

	log "github.com/golang/glog"

	"github.com/toulbar2/toulbar2/toulbar2/go/wcsp"
)

// Depth returns the current checkpoint depth, starting at 0.
func (n *Network) Depth() int { return n.w.Depth() }

// Store pushes a checkpoint. Incremental elements and domain edits made afterwards
// are undone by restoring to a lower depth.
func (n *Network) Store() { n.w.Store() }

// Restore undoes every incremental element and domain edit made above depth.
func (n *Network) Restore(depth int) error {
	if depth < 0 || depth > n.w.Depth() {
		return fmt.Errorf("restore to depth %d from depth %d: %w", depth, n.w.Depth(), ErrState)
	}
	n.w.Restore(depth)
	n.dropRecords(depth)
	return nil
}

// SetUB resets the upper bound to a decimal cost and forgets the best solution found
// so far. In incremental solving it is called before modifying the problem. It returns
// wcsp.ErrContradiction when the lower bound already reaches the new bound.
func (n *Network) SetUB(cost float64) error {
	n.limit = nil
	n.w.SetUb(n.toBound(cost))
	n.w.InitSolutionCost()
	return n.w.EnforceUb()
}

// UpdateUB decreases the upper bound to a decimal cost; larger values are ignored. It
// returns wcsp.ErrContradiction when the lower bound already reaches the new bound.
func (n *Network) UpdateUB(cost float64) error {
	n.w.UpdateUb(n.toBound(cost))
	return n.w.EnforceUb()
}

// GetLB returns the current lower bound as a decimal cost.
func (n *Network) GetLB() float64 { return n.toDecimal(n.w.Lb()) }

// GetUB returns the current upper bound as a decimal cost.
func (n *Network) GetUB() float64 { return n.toDecimal(n.w.Ub()) }

// NbNodes returns the number of search nodes explored by the last solve.
func (n *Network) NbNodes() int64 { return n.solver.NbNodes() }

// NbBacktracks returns the number of backtracks made by the last solve.
func (n *Network) NbBacktracks() int64 { return n.solver.NbBacktracks() }

// ClearPropagationQueues resets the backend after wcsp.ErrContradiction.
func (n *Network) ClearPropagationQueues() { n.w.WhenContradiction() }

// incremental reports whether domain edits go to the backend. Before SolveFirst and at
// depth 0 they are part of the model and become unary cost functions.
func (n *Network) incremental() bool { return n.state != fresh || n.w.Depth() > 0 }

func (n *Network) varValue(ref VarRef, v Value) (int, wcsp.Value, error) {
	x, err := n.varIndex(ref)
	if err != nil {
		return 0, 0, err
	}
	bv, err := n.toBackend(x, v)
	if err != nil {
		return 0, 0, err
	}
	return x, bv, nil
}

// restrict posts a unary table forbidding the initial values of x rejected by keep.
func (n *Network) restrict(x int, keep func(wcsp.Value) bool) error {
	values := n.initialValues(x)
	costs := make([]float64, len(values))
	for i, v := range values {
		if !keep(v) {
			costs[i] = n.top
		}
	}
	return n.AddFunction([]VarRef{VarIndex(x)}, costs)
}

func (n *Network) edit(ref VarRef, v Value, apply func(int, wcsp.Value) error, keep func(u, bv wcsp.Value) bool) error {
	x, bv, err := n.varValue(ref, v)
	if err != nil {
		return err
	}
	if !n.incremental() {
		return n.restrict(x, func(u wcsp.Value) bool { return keep(u, bv) })
	}
	if err := apply(x, bv); err != nil {
		return err
	}
	return n.w.Propagate()
}

// Assign reduces the domain of a variable to one value.
func (n *Network) Assign(ref VarRef, v Value) error {
	return n.edit(ref, v, n.w.Assign, func(u, bv wcsp.Value) bool { return u == bv })
}

// Remove removes a value from the domain of a variable.
func (n *Network) Remove(ref VarRef, v Value) error {
	return n.edit(ref, v, n.w.Remove, func(u, bv wcsp.Value) bool { return u != bv })
}

// Increase removes the values lower than v.
func (n *Network) Increase(ref VarRef, v Value) error {
	return n.edit(ref, v, n.w.Increase, func(u, bv wcsp.Value) bool { return u >= bv })
}

// Decrease removes the values greater than v.
func (n *Network) Decrease(ref VarRef, v Value) error {
	return n.edit(ref, v, n.w.Decrease, func(u, bv wcsp.Value) bool { return u <= bv })
}

// MultipleAssign assigns several variables and propagates once.
func (n *Network) MultipleAssign(refs []VarRef, values []Value) error {
	if len(refs) != len(values) {
		log.Fatalf("refs and values must be the same length: %v != %v", len(refs), len(values))
	}
	if !n.incremental() {
		for i, r := range refs {
			if err := n.Assign(r, values[i]); err != nil {
				return err
			}
		}
		return nil
	}
	for i, r := range refs {
		x, bv, err := n.varValue(r, values[i])
		if err != nil {
			return err
		}
		if err := n.w.Assign(x, bv); err != nil {
			return err
		}
	}
	return n.w.Propagate()
}

// Deconnect detaches a variable from the problem and assigns it its support value.
func (n *Network) Deconnect(ref VarRef) error {
	return n.MultipleDeconnect([]VarRef{ref})
}

// MultipleDeconnect detaches several variables.
func (n *Network) MultipleDeconnect(refs []VarRef) error {
	xs, err := n.scope(refs)
	if err != nil {
		return err
	}
	return n.w.Deconnect(xs)
}

// Parse applies a certificate of domain reductions such as `(,0=1,1=1,2#0)`. Each
// operation is `,variable op value` where the variable is an index or a name and op is
// `=` (assign), `#` (remove), `<` (keep values strictly lower) or `>` (keep values
// strictly greater). Values are integers or value names.
func (n *Network) Parse(certificate string) error {
	s := strings.Trim(strings.TrimSpace(certificate), "()")
	if err := n.w.Propagate(); err != nil {
		return err
	}
	var assigned []int
	var values []wcsp.Value
	for _, op := range strings.Split(s, ",") {
		if op == "" {
			continue
		}
		// The first character may be part of a variable name.
		k := strings.IndexAny(op[1:], "=#<>") + 1
		if k == 0 || k+1 >= len(op) {
			return fmt.Errorf("certificate operation %q: %w", op, ErrConfiguration)
		}
		x, err := n.parseVar(op[:k])
		if err != nil {
			return err
		}
		v, err := n.parseValue(x, op[k+1:])
		if err != nil {
			return err
		}
		switch op[k] {
		case '=':
			assigned = append(assigned, x)
			values = append(values, v)
		case '#':
			err = n.w.Remove(x, v)
		case '>':
			err = n.w.Increase(x, v+1)
		case '<':
			err = n.w.Decrease(x, v-1)
		}
		if err != nil {
			return err
		}
	}
	for i, x := range assigned {
		if err := n.w.Assign(x, values[i]); err != nil {
			return err
		}
	}
	return n.w.Propagate()
}

func (n *Network) parseVar(s string) (int, error) {
	if s[0] >= '0' && s[0] <= '9' {
		i, err := strconv.Atoi(s)
		if err != nil {
			return 0, fmt.Errorf("certificate variable %q: %w", s, ErrConfiguration)
		}
		return n.varIndex(VarIndex(i))
	}
	return n.varIndex(VarName(s))
}

func (n *Network) parseValue(x int, s string) (wcsp.Value, error) {
	if v, err := strconv.ParseInt(s, 10, 64); err == nil {
		return wcsp.Value(v), nil
	}
	for i := 0; i < n.w.DomainInitSize(x); i++ {
		if n.w.ValueName(x, i) == s {
			return n.w.ToValue(x, i), nil
		}
	}
	return 0, fmt.Errorf("certificate value %q of %s: %w", s, n.vars[x].name, ErrConfiguration)
}

// Dump writes the problem to a `.wcsp` or `.cfn` file, selected by the suffix.
func (n *Network) Dump(filename string) error {
	if n.cfg.UbInit != nil {
		n.w.UpdateUb(n.toBound(*n.cfg.UbInit))
	}
	switch {
	case strings.HasSuffix(filename, ".wcsp"):
		if n.w.NegativeLb() > 0 || n.cfg.Resolution != 0 {
			log.Warningf("cfnmodel: %s optimum is multiplied by 10^%d and shifted by %d in wcsp format", filename, n.cfg.Resolution, n.w.NegativeLb())
		}
		return n.solver.Dump(filename, true, wcsp.FormatWCSP)
	case strings.HasSuffix(filename, ".cfn"):
		return n.solver.Dump(filename, true, wcsp.FormatCFN)
	}
	return fmt.Errorf("unknown problem format for %s: %w", filename, ErrConfiguration)
}
