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
	"context"
	"errors"
	"path/filepath"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/toulbar2/toulbar2/toulbar2/go/wcsp"
)

// boolProblem builds n Boolean variables named x0, x1, ...
func boolProblem(t *testing.T, n int) *Solver {
	t.Helper()
	s := New(wcsp.DefaultOptions())
	for i := 0; i < n; i++ {
		s.WCSP().MakeEnumeratedVariable("x"+string(rune('0'+i)), 0, 1)
	}
	return s
}

func mustPost(t *testing.T, err error) {
	t.Helper()
	if err != nil {
		t.Fatalf("posting returned with unexpected error %v", err)
	}
}

func TestSolve_Optimum(t *testing.T) {
	s := boolProblem(t, 3)
	w := s.WCSP()
	// x0 + x1 == x2, forbidden otherwise.
	costs := make([]wcsp.Cost, 8)
	for a := 0; a < 2; a++ {
		for b := 0; b < 2; b++ {
			for c := 0; c < 2; c++ {
				if a+b != c {
					costs[a*4+b*2+c] = wcsp.MaxCost
				}
			}
		}
	}
	_, err := w.PostTernaryConstraint(0, 1, 2, costs, false)
	mustPost(t, err)
	mustPost(t, w.PostUnaryConstraint(0, []wcsp.Cost{2, 0}, false))
	mustPost(t, w.PostUnaryConstraint(1, []wcsp.Cost{0, 1}, false))
	mustPost(t, w.PostUnaryConstraint(2, []wcsp.Cost{0, 5}, false))

	proved, err := s.Solve(context.Background(), wcsp.SolveRequest{})
	if err != nil || !proved {
		t.Fatalf("Solve() = %v, %v; want true, nil", proved, err)
	}
	// Candidates: 000 costs 2, 011 costs 8, 101 costs 5.
	if diff := cmp.Diff([]wcsp.Value{0, 0, 0}, s.Solution()); diff != "" {
		t.Errorf("Solution() returned with unexpected diff (-want+got);\n%s", diff)
	}
	if got := w.SolutionCost(); got != 2 {
		t.Errorf("SolutionCost() = %v, want 2", got)
	}
	if got := w.Ub(); got != 2 {
		t.Errorf("Ub() = %v, want 2", got)
	}
	if got := w.Depth(); got != 0 {
		t.Errorf("Depth() = %v after Solve, want 0", got)
	}
}

func TestStoreRestore(t *testing.T) {
	s := boolProblem(t, 2)
	w := s.WCSP()
	w.PostNullaryConstraint(3)

	w.Store()
	_, err := w.PostBinaryConstraint(0, 1, []wcsp.Cost{0, 1, 1, 0}, true)
	mustPost(t, err)
	mustPost(t, w.Assign(0, 1))
	w.PostNullaryConstraint(4)
	w.PostNullaryConstraint(-2)
	if got := w.NumberOfConstraints(); got != 1 {
		t.Errorf("NumberOfConstraints() = %v, want 1", got)
	}

	w.Restore(0)
	if got := w.NumberOfConstraints(); got != 0 {
		t.Errorf("NumberOfConstraints() = %v after Restore, want 0", got)
	}
	if diff := cmp.Diff([]wcsp.Value{0, 1}, w.EnumDomain(0)); diff != "" {
		t.Errorf("EnumDomain(0) after Restore returned with unexpected diff (-want+got);\n%s", diff)
	}
	if w.Lb() != 3 || w.NegativeLb() != 0 {
		t.Errorf("Lb(), NegativeLb() = %v, %v after Restore; want 3, 0", w.Lb(), w.NegativeLb())
	}
}

func TestDeconnect(t *testing.T) {
	s := boolProblem(t, 3)
	w := s.Problem()
	_, err := w.PostBinaryConstraint(0, 1, []wcsp.Cost{5, 5, 5, 5}, false)
	mustPost(t, err)
	_, err = w.PostBinaryConstraint(1, 2, []wcsp.Cost{0, 3, 3, 0}, false)
	mustPost(t, err)

	w.Store()
	mustPost(t, w.Deconnect([]int{0}))
	if got := w.NumberOfConstraints(); got != 1 {
		t.Errorf("NumberOfConstraints() = %v after Deconnect, want 1", got)
	}
	if got := w.bound(w.currentDoms()); got != 0 {
		t.Errorf("bound() = %v after Deconnect, want 0", got)
	}
	if diff := cmp.Diff([]wcsp.Value{0}, w.EnumDomain(0)); diff != "" {
		t.Errorf("EnumDomain(0) after Deconnect returned with unexpected diff (-want+got);\n%s", diff)
	}
	proved, err := s.Solve(context.Background(), wcsp.SolveRequest{})
	if err != nil || !proved {
		t.Fatalf("Solve() = %v, %v; want true, nil", proved, err)
	}
	if got := w.SolutionCost(); got != 0 {
		t.Errorf("SolutionCost() = %v after Deconnect, want 0", got)
	}

	w.Restore(0)
	if got := w.NumberOfConstraints(); got != 2 {
		t.Errorf("NumberOfConstraints() = %v after Restore, want 2", got)
	}
	if got := w.bound(w.currentDoms()); got != 5 {
		t.Errorf("bound() = %v after Restore, want 5", got)
	}
}

func TestDomainEdits(t *testing.T) {
	s := New(wcsp.DefaultOptions())
	w := s.WCSP()
	x := w.MakeEnumeratedVariable("x", 2, 8)

	mustPost(t, w.Remove(x, 5))
	mustPost(t, w.Increase(x, 3))
	mustPost(t, w.Decrease(x, 7))
	if diff := cmp.Diff([]wcsp.Value{3, 4, 6, 7}, w.EnumDomain(x)); diff != "" {
		t.Errorf("EnumDomain() returned with unexpected diff (-want+got);\n%s", diff)
	}
	if err := w.Assign(x, 5); !errors.Is(err, wcsp.ErrContradiction) {
		t.Errorf("Assign(x, 5) error = %v, want ErrContradiction", err)
	}
	if err := w.Increase(x, 9); !errors.Is(err, wcsp.ErrContradiction) {
		t.Errorf("Increase(x, 9) error = %v, want ErrContradiction", err)
	}
}

func TestPropagate(t *testing.T) {
	s := boolProblem(t, 2)
	w := s.WCSP()
	_, err := w.PostBinaryConstraint(0, 1, []wcsp.Cost{wcsp.MaxCost, 0, wcsp.MaxCost, 0}, false)
	mustPost(t, err)
	mustPost(t, w.Propagate())
	if diff := cmp.Diff([]wcsp.Value{1}, w.EnumDomain(1)); diff != "" {
		t.Errorf("EnumDomain(1) returned with unexpected diff (-want+got);\n%s", diff)
	}
	w.SetUb(0)
	if err := w.Propagate(); !errors.Is(err, wcsp.ErrContradiction) {
		t.Errorf("Propagate() with ub 0 error = %v, want ErrContradiction", err)
	}
}

func TestKnapsack(t *testing.T) {
	s := boolProblem(t, 3)
	w := s.WCSP()
	// x0 + 2*x1 + 3*x2 >= 4
	params := wcsp.KnapsackParams{Capacity: 4, Terms: []wcsp.KnapsackTerm{
		{Values: []wcsp.Value{0, 1}, Weights: []int64{0, 1}},
		{Values: []wcsp.Value{0, 1}, Weights: []int64{0, 2}},
		{Values: []wcsp.Value{0, 1}, Weights: []int64{0, 3}},
	}}
	_, err := w.PostKnapsackConstraint([]int{0, 1, 2}, params.String(), true)
	mustPost(t, err)

	if _, err := s.Solve(context.Background(), wcsp.SolveRequest{AllSolutions: 100}); err != nil {
		t.Fatalf("Solve() returned with unexpected error %v", err)
	}
	var got [][]wcsp.Value
	for _, r := range s.Solutions() {
		got = append(got, r.Values)
	}
	want := [][]wcsp.Value{{0, 1, 1}, {1, 0, 1}, {1, 1, 1}}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("Solutions() returned with unexpected diff (-want+got);\n%s", diff)
	}
}

func TestAllDifferent(t *testing.T) {
	s := New(wcsp.DefaultOptions())
	w := s.WCSP()
	for _, n := range []string{"a", "b", "c"} {
		w.MakeEnumeratedVariable(n, 0, 2)
	}
	_, err := w.PostAllDifferentConstraint([]int{0, 1, 2}, nil, wcsp.MaxCost)
	mustPost(t, err)
	if _, err := s.Solve(context.Background(), wcsp.SolveRequest{AllSolutions: 100}); err != nil {
		t.Fatalf("Solve() returned with unexpected error %v", err)
	}
	if got := len(s.Solutions()); got != 6 {
		t.Errorf("len(Solutions()) = %v, want 6 permutations", got)
	}
}

func TestAmong(t *testing.T) {
	s := boolProblem(t, 3)
	w := s.WCSP()
	// Between 2 and 3 variables take value 1, 10 per missing occurrence.
	_, err := w.PostGlobalFunction([]int{0, 1, 2}, "wamong", "lin 10 1 1 2 3")
	mustPost(t, err)
	if got := w.EvalSolution([]wcsp.Value{0, 0, 0}); got != 20 {
		t.Errorf("EvalSolution(000) = %v, want 20", got)
	}
	if got := w.EvalSolution([]wcsp.Value{1, 0, 1}); got != 0 {
		t.Errorf("EvalSolution(101) = %v, want 0", got)
	}
	if _, err := w.PostGlobalFunction([]int{0}, "unknown", ""); !errors.Is(err, wcsp.ErrUnsupported) {
		t.Errorf("PostGlobalFunction(unknown) error = %v, want ErrUnsupported", err)
	}
}

func TestSolve_Diversity(t *testing.T) {
	s := boolProblem(t, 3)
	w := s.WCSP()
	for x := 0; x < 3; x++ {
		mustPost(t, w.PostUnaryConstraint(x, []wcsp.Cost{0, 1}, false))
	}
	if _, err := s.Solve(context.Background(), wcsp.SolveRequest{AllSolutions: 3, DiversityBound: 2}); err != nil {
		t.Fatalf("Solve() returned with unexpected error %v", err)
	}
	sols := s.Solutions()
	if len(sols) < 2 {
		t.Fatalf("len(Solutions()) = %v, want at least 2", len(sols))
	}
	if diff := cmp.Diff([]wcsp.Value{0, 0, 0}, sols[0].Values); diff != "" {
		t.Errorf("first diverse solution returned with unexpected diff (-want+got);\n%s", diff)
	}
	for i := range sols {
		for j := 0; j < i; j++ {
			d := 0
			for k := range sols[i].Values {
				if sols[i].Values[k] != sols[j].Values[k] {
					d++
				}
			}
			if d < 2 {
				t.Errorf("solutions %d and %d are at distance %d, want at least 2", j, i, d)
			}
		}
	}
}

func TestSolve_Limits(t *testing.T) {
	opts := wcsp.DefaultOptions()
	opts.NodeLimit = 3
	s := New(opts)
	for i := 0; i < 6; i++ {
		s.WCSP().MakeEnumeratedVariable("x"+string(rune('a'+i)), 0, 3)
	}
	_, err := s.Solve(context.Background(), wcsp.SolveRequest{AllSolutions: 1000})
	var out *wcsp.SolverOutError
	if !errors.As(err, &out) || out.Reason != "node limit" {
		t.Errorf("Solve() with node limit error = %v, want a node limit SolverOutError", err)
	}

	s = boolProblem(t, 4)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err = s.Solve(ctx, wcsp.SolveRequest{})
	if !errors.As(err, &out) || out.Reason != "time limit" {
		t.Errorf("Solve() with cancelled context error = %v, want a time limit SolverOutError", err)
	}
}

func TestPreprocessing(t *testing.T) {
	s := boolProblem(t, 2)
	w := s.WCSP()
	mustPost(t, w.PostUnaryConstraint(0, []wcsp.Cost{0, 4}, false))
	_, err := w.PostBinaryConstraint(0, 1, []wcsp.Cost{0, wcsp.MaxCost, 3, 0}, false)
	mustPost(t, err)
	w.PostNullaryConstraint(1)

	ub, err := s.Preprocessing(wcsp.MaxCost)
	if err != nil {
		t.Fatalf("Preprocessing() returned with unexpected error %v", err)
	}
	if ub != 1+4+3+1 {
		t.Errorf("Preprocessing() = %v, want 9", ub)
	}
}

func TestDumpRead_CFN(t *testing.T) {
	opts := wcsp.DefaultOptions()
	opts.DecimalPoint = 1
	s := New(opts)
	w := s.WCSP()
	w.SetName("roundtrip")
	x := w.MakeEnumeratedVariable("x", 1, 3)
	y := w.MakeEnumeratedVariable("y", 0, 1)
	w.AddValueName(y, "no")
	w.AddValueName(y, "yes")
	mustPost(t, w.Remove(x, 2))
	_, err := w.PostBinaryConstraint(x, y, []wcsp.Cost{5, 0, 0, 7, 2, 9}, false)
	mustPost(t, err)
	w.PostNullaryConstraint(4)
	w.PostNullaryConstraint(-1)
	for i := 0; i < 3; i++ {
		w.MakeEnumeratedVariable("z"+string(rune('0'+i)), 0, 1)
	}
	idx, err := w.PostNaryConstraintBegin([]int{0, 1, 2, 3, 4}, 6, 1, false)
	mustPost(t, err)
	mustPost(t, w.PostNaryConstraintTuple(idx, []wcsp.Value{3, 1, 0, 0, 0}, 0))
	mustPost(t, w.PostNaryConstraintEnd(idx))

	name := filepath.Join(t.TempDir(), "p.cfn")
	if err := s.Dump(name, true, wcsp.FormatCFN); err != nil {
		t.Fatalf("Dump() returned with unexpected error %v", err)
	}
	r := New(opts)
	if err := r.Read(name); err != nil {
		t.Fatalf("Read() returned with unexpected error %v", err)
	}
	rw := r.WCSP()
	if rw.Name() != "roundtrip" || rw.NumberOfVariables() != 5 {
		t.Fatalf("Read() gave name %q with %d variables", rw.Name(), rw.NumberOfVariables())
	}
	if got := rw.ToValue(0, 0); got != 1 {
		t.Errorf("ToValue(x, 0) = %v, want 1", got)
	}
	if got := rw.ValueName(1, 1); got != "yes" {
		t.Errorf("ValueName(y, 1) = %q, want yes", got)
	}

	for _, solver := range []*Solver{s, r} {
		if _, err := solver.Solve(context.Background(), wcsp.SolveRequest{}); err != nil {
			t.Fatalf("Solve() returned with unexpected error %v", err)
		}
	}
	if diff := cmp.Diff(s.Solution(), r.Solution()); diff != "" {
		t.Errorf("solutions differ after a dump and read (-orig+read);\n%s", diff)
	}
	got := r.WCSP().SolutionCost() - r.WCSP().NegativeLb()
	want := s.WCSP().SolutionCost() - s.WCSP().NegativeLb()
	if got != want {
		t.Errorf("optimum after read = %v, want %v", got, want)
	}
}

func TestDump_WCSP(t *testing.T) {
	s := boolProblem(t, 2)
	_, err := s.WCSP().PostBinaryConstraint(0, 1, []wcsp.Cost{0, 1, 1, 0}, false)
	mustPost(t, err)
	if err := s.Dump(filepath.Join(t.TempDir(), "p.wcsp"), false, wcsp.FormatWCSP); err != nil {
		t.Errorf("Dump() returned with unexpected error %v", err)
	}
	if err := s.Read("p.wcsp"); !errors.Is(err, wcsp.ErrUnsupported) {
		t.Errorf("Read(.wcsp) error = %v, want ErrUnsupported", err)
	}
}
