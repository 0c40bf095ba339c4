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
	"testing"

	"github.com/google/go-cmp/cmp"
	"google.golang.org/protobuf/testing/protocmp"
	"google.golang.org/protobuf/types/known/structpb"
)

// adderNetwork builds Boolean x, y, z with x + y == z and the unary costs given.
func adderNetwork(t *testing.T, cfg Config, unary [3][]float64) *Network {
	t.Helper()
	n := newNetwork(t, cfg)
	for i, name := range []string{"x", "y", "z"} {
		mustAddVariable(t, n, name, Ints(0, 1)...)
		mustPost(t, n.AddFunction(Names(name), unary[i]))
	}
	mustPost(t, n.AddLinearConstraint([]int64{1, 1, -1}, Names("x", "y", "z"), Eq, 0))
	return n
}

var unitCosts = [3][]float64{{0, 1}, {0, 1}, {0, 1}}

func TestSolve_Adder(t *testing.T) {
	n := adderNetwork(t, DefaultConfig(), unitCosts)
	sol, err := n.Solve(context.Background())
	if err != nil || sol == nil {
		t.Fatalf("Solve() = %v, %v; want a solution", sol, err)
	}
	if diff := cmp.Diff([]int64{0, 0, 0}, sol.Values); diff != "" {
		t.Errorf("Solve() values returned with unexpected diff (-want+got):\n%s", diff)
	}
	if sol.Cost != 0 {
		t.Errorf("Solve() cost = %v, want 0", sol.Cost)
	}
	if got := n.GetUB(); got != 0 {
		t.Errorf("GetUB() = %v after Solve, want 0", got)
	}
	if got := n.Depth(); got != 0 {
		t.Errorf("Depth() = %v after Solve, want 0", got)
	}
	want := map[string]Value{"x": IntValue(0), "y": IntValue(0), "z": IntValue(0)}
	if diff := cmp.Diff(want, n.Assignment(sol.Values), valueCmp); diff != "" {
		t.Errorf("Assignment() returned with unexpected diff (-want+got):\n%s", diff)
	}
	if _, err := n.Solve(context.Background()); !errors.Is(err, ErrState) {
		t.Errorf("second Solve() returned %v, want ErrState", err)
	}
}

func TestSolve_AllSolutions(t *testing.T) {
	n := adderNetwork(t, DefaultConfig(), unitCosts)
	want := [][]int64{{0, 0, 0}, {0, 1, 1}, {1, 0, 1}}
	if diff := cmp.Diff(want, solutionSet(t, n)); diff != "" {
		t.Errorf("solutions returned with unexpected diff (-want+got):\n%s", diff)
	}

	bounded := adderNetwork(t, DefaultConfig().WithUbInit(2), unitCosts)
	sol, err := bounded.Solve(context.Background(), AllSolutions(10))
	if err != nil || sol == nil {
		t.Fatalf("Solve(AllSolutions) = %v, %v; want a solution", sol, err)
	}
	if diff := cmp.Diff(&Solution{Values: []int64{0, 0, 0}, Cost: 0, Count: 1}, sol); diff != "" {
		t.Errorf("Solve(AllSolutions) below 2 returned with unexpected diff (-want+got):\n%s", diff)
	}

	limited := adderNetwork(t, DefaultConfig(), unitCosts)
	sol, err = limited.Solve(context.Background(), AllSolutions(2))
	if err != nil || sol == nil || sol.Count != 2 {
		t.Errorf("Solve(AllSolutions(2)) = %v, %v; want 2 solutions", sol, err)
	}
}

func TestSolve_Diversity(t *testing.T) {
	free := func(t *testing.T) *Network {
		n := newNetwork(t, DefaultConfig())
		for i, name := range []string{"x", "y", "z"} {
			mustAddVariable(t, n, name, Ints(0, 1)...)
			mustPost(t, n.AddFunction(Names(name), []float64{0, float64(int(1) << i)}))
		}
		return n
	}
	n := free(t)
	sol, err := n.Solve(context.Background(), AllSolutions(3), Diversity(2))
	if err != nil || sol == nil {
		t.Fatalf("Solve(Diversity) = %v, %v; want a solution", sol, err)
	}
	want := []Solution{
		{Values: []int64{0, 0, 0}, Cost: 0},
		{Values: []int64{1, 1, 0}, Cost: 3},
		{Values: []int64{1, 0, 1}, Cost: 5},
	}
	if diff := cmp.Diff(want, n.Solutions()); diff != "" {
		t.Errorf("Solutions() returned with unexpected diff (-want+got):\n%s", diff)
	}
	if diff := cmp.Diff(&Solution{Values: []int64{1, 0, 1}, Cost: 5, Count: 3}, sol); diff != "" {
		t.Errorf("Solve(Diversity) returned with unexpected diff (-want+got):\n%s", diff)
	}

	if _, err := free(t).Solve(context.Background(), Diversity(2)); !errors.Is(err, ErrConfiguration) {
		t.Errorf("Solve(Diversity) without AllSolutions returned %v, want ErrConfiguration", err)
	}
}

func TestSolve_Infeasible(t *testing.T) {
	n := adderNetwork(t, DefaultConfig(), unitCosts)
	mustPost(t, n.AddSumConstraint(Names("x", "y", "z"), Ge, 3))
	sol, err := n.Solve(context.Background())
	if err != nil || sol != nil {
		t.Errorf("Solve() on an infeasible problem = %v, %v; want nil, nil", sol, err)
	}
}

func TestEvaluate(t *testing.T) {
	n := newNetwork(t, DefaultConfig())
	mustAddVariable(t, n, "x", Ints(0, 2)...)
	mustAddVariable(t, n, "c", Symbols("a", "b")...)
	mustPost(t, n.AddFunction(Names("x", "c"), []float64{1, 2, 3, 4, 5, 6}))

	testCases := []struct {
		desc string
		x, c Value
		want float64
	}{
		{"first", IntValue(0), SymbolValue("a"), 1},
		{"symbol by position", IntValue(2), IntValue(1), 6},
		{"removed value", IntValue(1), SymbolValue("a"), n.Top()},
		{"outside the domain", IntValue(5), SymbolValue("b"), n.Top()},
	}
	for _, test := range testCases {
		t.Run(test.desc, func(t *testing.T) {
			got, err := n.Evaluate(map[string]Value{"x": test.x, "c": test.c})
			if err != nil || got != test.want {
				t.Errorf("Evaluate(x=%v, c=%v) = %v, %v; want %v, nil", test.x, test.c, got, err, test.want)
			}
		})
	}
	if _, err := n.Evaluate(map[string]Value{"x": IntValue(0)}); !errors.Is(err, ErrConfiguration) {
		t.Errorf("Evaluate() without c returned %v, want ErrConfiguration", err)
	}
	if _, err := n.Evaluate(map[string]Value{"x": IntValue(0), "c": SymbolValue("z")}); !errors.Is(err, ErrConfiguration) {
		t.Errorf("Evaluate() with an unknown symbol returned %v, want ErrConfiguration", err)
	}
}

func TestReport(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Name = "adder"
	n := adderNetwork(t, cfg, unitCosts)
	sol, err := n.Solve(context.Background())
	if err != nil || sol == nil {
		t.Fatalf("Solve() = %v, %v; want a solution", sol, err)
	}
	got, err := n.Report(sol)
	if err != nil {
		t.Fatalf("Report() returned with unexpected error %v", err)
	}
	if id := got.GetFields()["id"].GetStringValue(); id != n.ID().String() {
		t.Errorf("Report() id = %q, want %q", id, n.ID())
	}
	delete(got.Fields, "id")
	delete(got.Fields, "nodes")
	delete(got.Fields, "backtracks")

	want, err := structpb.NewStruct(map[string]any{
		"name":      "adder",
		"variables": 3,
		"lb":        0,
		"ub":        0,
		"solution": map[string]any{
			"cost":   0,
			"count":  sol.Count,
			"values": map[string]any{"x": 0, "y": 0, "z": 0},
		},
	})
	if err != nil {
		t.Fatalf("NewStruct() returned with unexpected error %v", err)
	}
	if diff := cmp.Diff(want, got, protocmp.Transform()); diff != "" {
		t.Errorf("Report() returned with unexpected diff (-want+got):\n%s", diff)
	}
}
