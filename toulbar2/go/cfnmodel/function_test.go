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
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/google/go-cmp/cmp/cmpopts"
)

var approx = cmpopts.EquateApprox(0, 1e-9)

// assignments lists every assignment of the variables of n, the last variable changing
// fastest.
func assignments(t *testing.T, n *Network) []map[string]Value {
	t.Helper()
	out := []map[string]Value{{}}
	for _, name := range n.VariableNames() {
		values, err := n.VariableValues(VarName(name))
		if err != nil {
			t.Fatalf("VariableValues(%s) returned with unexpected error %v", name, err)
		}
		var next []map[string]Value
		for _, a := range out {
			for _, v := range values {
				b := make(map[string]Value, len(a)+1)
				for k, w := range a {
					b[k] = w
				}
				b[name] = v
				next = append(next, b)
			}
		}
		out = next
	}
	return out
}

func evaluateAll(t *testing.T, n *Network) []float64 {
	t.Helper()
	var costs []float64
	for _, a := range assignments(t, n) {
		c, err := n.Evaluate(a)
		if err != nil {
			t.Fatalf("Evaluate(%v) returned with unexpected error %v", a, err)
		}
		costs = append(costs, c)
	}
	return costs
}

func TestAddFunction_RoundTrip(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Resolution = 1
	top := newNetwork(t, cfg).Top()
	testCases := []struct {
		desc    string
		domains [][]Value
		costs   []float64
	}{
		{
			desc:    "unary",
			domains: [][]Value{Ints(0, 1, 2)},
			costs:   []float64{1.5, 0.5, top},
		},
		{
			desc:    "binary symbolic",
			domains: [][]Value{Symbols("a", "b"), Ints(3, 4)},
			costs:   []float64{2, 0.5, 0.5, 7},
		},
		{
			desc:    "binary negative",
			domains: [][]Value{Ints(0, 1), Ints(0, 1)},
			costs:   []float64{-2, 0, 1.5, -0.5},
		},
		{
			desc:    "ternary",
			domains: [][]Value{Ints(0, 1), Ints(0, 1), Ints(0, 1, 2)},
			costs:   []float64{0, 1, 2, 3, 4, 5, 6, 7, 8, 9, top, 11},
		},
	}
	for _, test := range testCases {
		t.Run(test.desc, func(t *testing.T) {
			n := newNetwork(t, cfg)
			var scope []VarRef
			for i, d := range test.domains {
				name := fmt.Sprintf("x%d", i)
				mustAddVariable(t, n, name, d...)
				scope = append(scope, VarName(name))
			}
			mustPost(t, n.AddFunction(scope, test.costs))
			if diff := cmp.Diff(test.costs, evaluateAll(t, n), approx); diff != "" {
				t.Errorf("Evaluate() returned with unexpected diff (-want+got):\n%s", diff)
			}
			records := n.Records()
			if len(records) != 1 || records[0].Kind != KindTable {
				t.Fatalf("Records() = %v, want one table", records)
			}
			for i, c := range records[0].Costs {
				if IsHard(c) != (test.costs[i] >= top) {
					t.Errorf("Records()[0].Costs[%d] = %v for cost %v", i, c, test.costs[i])
				}
			}
		})
	}
}

func TestAddFunction_Folding(t *testing.T) {
	n := newNetwork(t, DefaultConfig())
	mustAddVariable(t, n, "x", Ints(0, 1)...)
	mustAddVariable(t, n, "y", Ints(0, 1)...)

	mustPost(t, n.AddFunction(Names("x", "y"), []float64{2, 2, 2, 2}))
	if got := n.NbConstraints(); got != 0 {
		t.Errorf("NbConstraints() = %v after a constant function, want 0", got)
	}
	if got := n.GetLB(); got != 2 {
		t.Errorf("GetLB() = %v, want 2", got)
	}
	mustPost(t, n.AddFunction(Names("x", "y"), []float64{3, 4, 5, 6}))
	if got := n.NbConstraints(); got != 1 {
		t.Errorf("NbConstraints() = %v, want 1", got)
	}
	if got := n.GetLB(); got != 5 {
		t.Errorf("GetLB() = %v, want 5", got)
	}
	mustPost(t, n.AddNullary(-1))
	if got := n.GetLB(); got != 4 {
		t.Errorf("GetLB() = %v after a negative nullary cost, want 4", got)
	}
	mustPost(t, n.AddFunction(nil, []float64{1}))
	if got, want := evaluateAll(t, n), []float64{5, 6, 7, 8}; !cmp.Equal(want, got, approx) {
		t.Errorf("Evaluate() = %v, want %v", got, want)
	}
}

func TestAddFunction_Errors(t *testing.T) {
	n := newNetwork(t, DefaultConfig())
	for i := 0; i < 4; i++ {
		mustAddVariable(t, n, fmt.Sprintf("x%d", i), Ints(0, 1)...)
	}
	if err := n.AddFunction(Names("x0", "x1"), []float64{0, 1, 2}); !errors.Is(err, ErrConfiguration) {
		t.Errorf("AddFunction() with 3 costs returned %v, want ErrConfiguration", err)
	}
	if err := n.AddFunction(nil, []float64{0, 1}); !errors.Is(err, ErrConfiguration) {
		t.Errorf("AddFunction() nullary with 2 costs returned %v, want ErrConfiguration", err)
	}
	if err := n.AddFunction(Names("x0"), []float64{0, 1}, Excepted(0)); !errors.Is(err, ErrConfiguration) {
		t.Errorf("AddFunction(Excepted) returned %v, want ErrConfiguration", err)
	}
	if err := n.AddFunction(Names("x0", "x1", "x2", "x3"), make([]float64, 16), Incremental()); !errors.Is(err, ErrConfiguration) {
		t.Errorf("AddFunction(Incremental) of arity 4 returned %v, want ErrConfiguration", err)
	}
	if err := n.AddCompactFunction(Names("x0", "x1"), 0, [][]Value{Ints(0, 2)}, []float64{1}); !errors.Is(err, ErrConfiguration) {
		t.Errorf("AddCompactFunction() with an out of domain tuple returned %v, want ErrConfiguration", err)
	}
	if err := n.AddCompactFunction(Names("x0", "x1"), 0, [][]Value{Ints(0)}, []float64{1}); !errors.Is(err, ErrConfiguration) {
		t.Errorf("AddCompactFunction() with a short tuple returned %v, want ErrConfiguration", err)
	}
	n.Store()
	if err := n.AddFunction(Names("x0"), []float64{0, 1}); !errors.Is(err, ErrState) {
		t.Errorf("AddFunction() at depth 1 returned %v, want ErrState", err)
	}
	if err := n.AddFunction(Names("x0"), []float64{0, 1}, Incremental()); err != nil {
		t.Errorf("AddFunction(Incremental) at depth 1 returned with unexpected error %v", err)
	}
}

// quaternary returns the dense costs of a function of four Boolean variables and the
// same function in compact form.
func quaternary(top float64) ([]float64, [][]Value, []float64) {
	dense := make([]float64, 16)
	var tuples [][]Value
	var tcosts []float64
	for i := range dense {
		switch {
		case i == 5:
			dense[i] = top
		case i%3 != 0:
			dense[i] = float64(i%3) + 1
		}
		if dense[i] != 0 {
			tuples = append(tuples, Ints(int64(i>>3&1), int64(i>>2&1), int64(i>>1&1), int64(i&1)))
			tcosts = append(tcosts, dense[i])
		}
	}
	return dense, tuples, tcosts
}

func TestAddFunction_DenseMatchesCompact(t *testing.T) {
	build := func(t *testing.T) *Network {
		n := newNetwork(t, DefaultConfig())
		for i := 0; i < 4; i++ {
			mustAddVariable(t, n, fmt.Sprintf("x%d", i), Ints(0, 1)...)
		}
		return n
	}
	scope := Names("x0", "x1", "x2", "x3")

	dense := build(t)
	costs, tuples, tcosts := quaternary(dense.Top())
	mustPost(t, dense.AddFunction(scope, costs))
	compact := build(t)
	mustPost(t, compact.AddCompactFunction(scope, 0, tuples, tcosts))
	shifted := build(t)
	// Same function, default 1 and every cost raised by 1.
	raised := make([]float64, len(tcosts))
	for i, c := range tcosts {
		raised[i] = c + 1
	}
	mustPost(t, shifted.AddCompactFunction(scope, 1, tuples, raised))
	mustPost(t, shifted.AddNullary(-1))

	want := evaluateAll(t, dense)
	if diff := cmp.Diff(costs, want, approx); diff != "" {
		t.Errorf("dense Evaluate() returned with unexpected diff (-want+got):\n%s", diff)
	}
	if diff := cmp.Diff(want, evaluateAll(t, compact), approx); diff != "" {
		t.Errorf("compact Evaluate() returned with unexpected diff (-want+got):\n%s", diff)
	}
	if diff := cmp.Diff(want, evaluateAll(t, shifted), approx); diff != "" {
		t.Errorf("shifted compact Evaluate() returned with unexpected diff (-want+got):\n%s", diff)
	}

	for _, n := range []*Network{dense, compact, shifted} {
		sol, err := n.Solve(context.Background())
		if err != nil || sol == nil {
			t.Fatalf("Solve() = %v, %v; want a solution", sol, err)
		}
		if sol.Cost != 0 {
			t.Errorf("Solve() cost = %v, want 0", sol.Cost)
		}
	}
}

func TestAddCompactFunction_SmallArity(t *testing.T) {
	n := newNetwork(t, DefaultConfig())
	mustAddVariable(t, n, "c", Symbols("r", "g", "b")...)
	mustAddVariable(t, n, "y", Ints(2, 3)...)
	tuples := [][]Value{
		{SymbolValue("g"), IntValue(3)},
		{SymbolValue("b"), IntValue(2)},
	}
	mustPost(t, n.AddCompactFunction(Names("c", "y"), 4, tuples, []float64{1, 0}))
	want := []float64{4, 4, 4, 1, 0, 4}
	if diff := cmp.Diff(want, evaluateAll(t, n), approx); diff != "" {
		t.Errorf("Evaluate() returned with unexpected diff (-want+got):\n%s", diff)
	}
	records := n.Records()
	if len(records) != 1 || records[0].Kind != KindCompact {
		t.Fatalf("Records() = %v, want one compact function", records)
	}
	if diff := cmp.Diff([][]int64{{1, 3}, {2, 2}}, records[0].Tuples); diff != "" {
		t.Errorf("Records()[0].Tuples returned with unexpected diff (-want+got):\n%s", diff)
	}
}

func TestAddFunction_IncrementalRestore(t *testing.T) {
	n := newNetwork(t, DefaultConfig())
	mustAddVariable(t, n, "x", Ints(0, 1)...)
	mustAddVariable(t, n, "y", Ints(0, 1)...)
	mustPost(t, n.AddFunction(Names("x", "y"), []float64{0, 1, 1, 0}))

	n.Store()
	mustPost(t, n.AddFunction(Names("x", "y"), []float64{3, 1, 1, 1}, Incremental()))
	if got := n.NbConstraints(); got != 2 {
		t.Errorf("NbConstraints() = %v at depth 1, want 2", got)
	}
	if got := n.GetLB(); got != 1 {
		t.Errorf("GetLB() = %v at depth 1, want 1", got)
	}
	if got := len(n.Records()); got != 2 {
		t.Errorf("len(Records()) = %v at depth 1, want 2", got)
	}
	if err := n.Restore(0); err != nil {
		t.Fatalf("Restore(0) returned with unexpected error %v", err)
	}
	if got := n.NbConstraints(); got != 1 {
		t.Errorf("NbConstraints() = %v after Restore, want 1", got)
	}
	if got := n.GetLB(); got != 0 {
		t.Errorf("GetLB() = %v after Restore, want 0", got)
	}
	if got := len(n.Records()); got != 1 {
		t.Errorf("len(Records()) = %v after Restore, want 1", got)
	}
}
