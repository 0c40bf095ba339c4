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

	"github.com/toulbar2/toulbar2/toulbar2/go/cfnformat"
	"github.com/toulbar2/toulbar2/toulbar2/go/wcsp"
)

// Read loads a problem file into an empty network. A `.cfn` file is posted element by
// element through the encoders, so the network ends up with the same records as if it
// had been built in code. Other formats are read by the backend and leave the network
// without records; see Replayable.
func (n *Network) Read(filename string) error {
	if len(n.vars) > 0 || len(n.records) > 0 {
		return fmt.Errorf("reading %s into a non-empty network: %w", filename, ErrState)
	}
	if !strings.HasSuffix(filename, ".cfn") {
		return n.readBackend(filename)
	}
	doc, err := cfnformat.ReadFile(filename)
	if err != nil {
		return fmt.Errorf("reading %s: %w", filename, err)
	}
	if err := n.load(doc); err != nil {
		return fmt.Errorf("reading %s: %w", filename, err)
	}
	log.V(1).Infof("cfnmodel: read %d variables and %d elements from %s", len(n.vars), len(n.records), filename)
	return nil
}

// Replayable reports whether Records lists every element of the network, which is
// what copying the network into another one needs.
func (n *Network) Replayable() bool { return !n.unrecorded }

func domainValues(v cfnformat.Variable) []Value {
	first, ok := v.IntegerDomain()
	if !ok {
		return Symbols(v.Values...)
	}
	return Range(first, first+int64(v.DomainSize()))
}

func (n *Network) load(doc *cfnformat.Document) error {
	for _, v := range doc.Variables {
		if _, err := n.AddVariable(v.Name, domainValues(v)...); err != nil {
			return err
		}
	}
	for _, f := range doc.Functions {
		if err := n.loadFunction(f); err != nil {
			return fmt.Errorf("function %s: %w", f.Name, err)
		}
	}
	if doc.Problem.MustBe == "" {
		return nil
	}
	op, bound, err := cfnformat.ParseMustBe(doc.Problem.MustBe)
	if err != nil {
		return err
	}
	if op != '<' {
		return fmt.Errorf("maximization bound %q: %w", doc.Problem.MustBe, wcsp.ErrUnsupported)
	}
	n.w.UpdateUb(n.toBound(bound))
	return nil
}

func (n *Network) loadFunction(f cfnformat.Function) error {
	scope := Names(f.Scope...)
	switch f.Type {
	case "":
	case "knapsackp":
		return n.loadKnapsack(scope, f.Params)
	case "alldiff":
		var opts []FunctionOption
		if fields := strings.Fields(f.Params); len(fields) > 0 {
			excepted := make([]int64, len(fields))
			for i, tok := range fields {
				v, err := strconv.ParseInt(tok, 10, 64)
				if err != nil {
					return fmt.Errorf("excepted value %q: %w", tok, ErrConfiguration)
				}
				excepted[i] = v
			}
			opts = append(opts, Excepted(excepted...))
		}
		return n.AddAllDifferent(scope, Hungarian, opts...)
	case "salldiff":
		p := strings.Fields(f.Params)
		if len(p) != 2 {
			return fmt.Errorf("salldiff parameters %q: %w", f.Params, ErrConfiguration)
		}
		for e := SAllDiff; e <= WAllDiff; e++ {
			if semantics, propagator := wallDiffMode(e); semantics == p[0] && propagator == p[1] {
				return n.AddAllDifferent(scope, e)
			}
		}
		return fmt.Errorf("salldiff parameters %q: %w", f.Params, wcsp.ErrUnsupported)
	default:
		return n.AddGlobalFunction(scope, f.Type, f.Params)
	}

	switch {
	case len(f.Scope) == 0:
		if len(f.Costs) != 1 {
			return fmt.Errorf("nullary function with %d costs: %w", len(f.Costs), ErrConfiguration)
		}
		return n.AddNullary(f.Costs[0])
	case f.DefaultCost == nil:
		return n.AddFunction(scope, f.Costs)
	}
	xs, err := n.scope(scope)
	if err != nil {
		return err
	}
	tuples := make([][]Value, len(f.Tuples))
	for i, t := range f.Tuples {
		if len(t) != len(xs) {
			return fmt.Errorf("tuple %v for a scope of %d variables: %w", t, len(xs), ErrConfiguration)
		}
		tuples[i] = make([]Value, len(t))
		for j, tok := range t {
			if tuples[i][j], err = n.tokenValue(xs[j], tok); err != nil {
				return err
			}
		}
	}
	return n.AddCompactFunction(scope, *f.DefaultCost, tuples, f.TupleCosts)
}

// tokenValue resolves a tuple entry, which is a value name or a position in the initial
// domain.
func (n *Network) tokenValue(x int, tok string) (Value, error) {
	size := n.w.DomainInitSize(x)
	for i := 0; i < size; i++ {
		if n.w.ValueName(x, i) == tok {
			return n.fromBackend(x, n.w.ToValue(x, i)), nil
		}
	}
	if i, err := strconv.Atoi(tok); err == nil && i >= 0 && i < size {
		return n.fromBackend(x, n.w.ToValue(x, i)), nil
	}
	return Value{}, fmt.Errorf("variable %s has no value %q: %w", n.vars[x].name, tok, ErrConfiguration)
}

// loadKnapsack posts `capacity n1 v w ... n2 v w ...` as a generalized linear constraint.
func (n *Network) loadKnapsack(scope []VarRef, params string) error {
	xs, err := n.scope(scope)
	if err != nil {
		return err
	}
	kp, err := wcsp.ParseKnapsackParams(params, len(xs))
	if err != nil {
		return fmt.Errorf("%w: %w", err, ErrConfiguration)
	}
	var terms []Term
	for i, t := range kp.Terms {
		for j, v := range t.Values {
			terms = append(terms, Term{Var: VarIndex(xs[i]), Value: n.fromBackend(xs[i], v), Coef: t.Weights[j]})
		}
	}
	return n.AddGeneralizedLinearConstraint(terms, Ge, kp.Capacity)
}

// readBackend hands the file to the backend and rebuilds the variable registry from
// the loaded problem. The loaded elements have no records.
func (n *Network) readBackend(filename string) error {
	if err := n.solver.Read(filename); err != nil {
		return err
	}
	for x := 0; x < n.w.NumberOfVariables(); x++ {
		size := n.w.DomainInitSize(x)
		ints := make([]Value, size)
		syms := make([]Value, size)
		integer := true
		for i := 0; i < size; i++ {
			v := n.w.ToValue(x, i)
			vn := n.w.ValueName(x, i)
			ints[i] = IntValue(int64(v))
			syms[i] = SymbolValue(vn)
			if vn != fmt.Sprintf("v%d", v) {
				integer = false
			}
		}
		v := variable{name: n.w.VarName(x), values: syms, symbolic: true}
		if integer {
			v = variable{name: v.name, values: ints}
		}
		n.vars = append(n.vars, v)
		n.index[v.name] = x
	}
	n.unrecorded = n.NbConstraints() > 0 || n.w.Lb() > 0
	if n.unrecorded {
		log.Warningf("cfnmodel: %s was read by the backend, its %d constraints cannot be copied into other networks", filename, n.NbConstraints())
	}
	return nil
}
