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
	"slices"
	"time"

	log "github.com/golang/glog"

	"github.com/toulbar2/toulbar2/toulbar2/go/wcsp"
)

// Solution is an assignment found by a search. Values holds one domain value per
// variable, by index; symbolic values are given by their position.
type Solution struct {
	Values []int64
	Cost   float64
	// Count is the number of solutions found by Solve.
	Count int
}

type solveOptions struct {
	allSolutions int
	diversity    int
	timeLimit    time.Duration
}

// SolveOption changes the behavior of Solve and SolveNext.
type SolveOption func(*solveOptions)

// AllSolutions enumerates up to limit solutions cheaper than the upper bound instead of
// optimizing. Only Solve accepts it.
func AllSolutions(limit int) SolveOption {
	return func(o *solveOptions) { o.allSolutions = limit }
}

// Diversity makes Solve return a greedy sequence of optimal solutions, each at Hamming
// distance at least bound from the previous ones. It needs AllSolutions, which bounds
// the length of the sequence.
func Diversity(bound int) SolveOption {
	return func(o *solveOptions) { o.diversity = bound }
}

// TimeLimit bounds the wall-clock time of the search.
func TimeLimit(d time.Duration) SolveOption {
	return func(o *solveOptions) { o.timeLimit = d }
}

// Limit returns the resource limit that stopped the last search, or nil.
func (n *Network) Limit() *wcsp.SolverOutError { return n.limit }

func toInt64s(values []wcsp.Value) []int64 {
	out := make([]int64, len(values))
	for i, v := range values {
		out[i] = int64(v)
	}
	return out
}

func (n *Network) applyUbInit() {
	if n.cfg.UbInit != nil {
		n.w.UpdateUb(n.toBound(*n.cfg.UbInit))
	}
}

// SolveFirst runs the preprocessing that precedes incremental solving. It returns the
// initial upper bound, possibly lowered to the worst finite cost plus one, and false
// when preprocessing proves that the problem has no solution. It must be called once,
// at depth 0.
func (n *Network) SolveFirst() (float64, bool, error) {
	if n.state != fresh {
		return 0, false, fmt.Errorf("SolveFirst on a %v network: %w", n.state, ErrState)
	}
	if d := n.w.Depth(); d != 0 {
		return 0, false, fmt.Errorf("SolveFirst at depth %d: %w", d, ErrState)
	}
	ctx, span := n.startSpan(context.Background(), "SolveFirst")
	start := time.Now()

	n.limit = nil
	n.applyUbInit()
	ub := n.w.Ub()
	n.solver.BeginSolve(ub)
	ub, err := n.solver.Preprocessing(ub)
	n.state = preprocessed
	if errors.Is(err, wcsp.ErrContradiction) {
		n.w.WhenContradiction()
		log.Infof("cfnmodel: %s has no solution", n.cfg.Name)
		n.endSpan(ctx, span, "SolveFirst", "infeasible", start, nil)
		return 0, false, nil
	}
	if err != nil {
		n.endSpan(ctx, span, "SolveFirst", "error", start, err)
		return 0, false, err
	}
	n.endSpan(ctx, span, "SolveFirst", "preprocessed", start, nil)
	return n.toDecimal(ub), true, nil
}

// SolveNext searches for the best solution strictly cheaper than the current upper
// bound. It is called after SolveFirst, usually following Store, some modifications
// and SetUB. It returns nil when there is no such solution or when a limit fired, in
// which case Limit reports it. The depth is the same on return as on entry.
func (n *Network) SolveNext(ctx context.Context, opts ...SolveOption) (*Solution, error) {
	if n.state != preprocessed {
		return nil, fmt.Errorf("SolveNext on a %v network: %w", n.state, ErrState)
	}
	var o solveOptions
	for _, opt := range opts {
		opt(&o)
	}
	if o.allSolutions != 0 || o.diversity != 0 {
		return nil, fmt.Errorf("SolveNext only accepts TimeLimit: %w", ErrConfiguration)
	}
	ctx, span := n.startSpan(ctx, "SolveNext")
	start := time.Now()
	if o.timeLimit > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, o.timeLimit)
		defer cancel()
	}

	n.limit = nil
	initUb := n.w.Ub()
	n.solver.BeginSolve(initUb)
	if err := n.search(ctx, n.w.Depth()); err != nil {
		n.endSpan(ctx, span, "SolveNext", "error", start, err)
		return nil, err
	}
	if c := n.w.SolutionCost(); c < initUb {
		n.endSpan(ctx, span, "SolveNext", "solution", start, nil)
		return &Solution{Values: toInt64s(n.solver.Solution()), Cost: n.toDecimal(c)}, nil
	}
	outcome := "none"
	if n.limit != nil {
		outcome = "limit"
	}
	n.endSpan(ctx, span, "SolveNext", outcome, start, nil)
	return nil, nil
}

// search runs one hybrid search above depth and always restores it. Contradictions
// and limits are expected outcomes and are not returned.
func (n *Network) search(ctx context.Context, depth int) (err error) {
	defer n.w.Restore(depth)
	n.w.Store()
	if err = n.w.Propagate(); err == nil {
		_, _, err = n.solver.HybridSolve(ctx)
	}
	var out *wcsp.SolverOutError
	switch {
	case err == nil:
	case errors.Is(err, wcsp.ErrContradiction):
		n.w.WhenContradiction()
		err = nil
	case errors.As(err, &out):
		n.limit = out
		err = nil
	}
	return err
}

// Solve finds an optimal solution, or enumerates solutions with AllSolutions. It
// returns the best solution, or the last one when enumerating, and nil when none was
// found below the upper bound. It can be called once and not together with
// incremental solving.
func (n *Network) Solve(ctx context.Context, opts ...SolveOption) (*Solution, error) {
	if n.state != fresh {
		return nil, fmt.Errorf("Solve on a %v network: %w", n.state, ErrState)
	}
	var o solveOptions
	for _, opt := range opts {
		opt(&o)
	}
	if o.allSolutions < 0 || o.diversity < 0 || (o.diversity > 0 && o.allSolutions == 0) {
		return nil, fmt.Errorf("diversity %d with %d solutions: %w", o.diversity, o.allSolutions, ErrConfiguration)
	}
	ctx, span := n.startSpan(ctx, "Solve")
	start := time.Now()

	n.limit = nil
	n.applyUbInit()
	proved, err := n.solver.Solve(ctx, wcsp.SolveRequest{
		AllSolutions:   o.allSolutions,
		DiversityBound: o.diversity,
		TimeLimit:      o.timeLimit,
	})
	n.state = solved
	var out *wcsp.SolverOutError
	if errors.As(err, &out) {
		n.limit = out
		err = nil
	}
	if err != nil {
		n.endSpan(ctx, span, "Solve", "error", start, err)
		return nil, err
	}
	log.V(1).Infof("cfnmodel: %s solved after %d nodes, proved: %v", n.cfg.Name, n.solver.NbNodes(), proved)

	sols := n.solver.Solutions()
	if len(sols) == 0 {
		n.endSpan(ctx, span, "Solve", "none", start, nil)
		return nil, nil
	}
	n.endSpan(ctx, span, "Solve", "solution", start, nil)
	if o.allSolutions > 0 {
		last := sols[len(sols)-1]
		return &Solution{Values: toInt64s(last.Values), Cost: n.toDecimal(last.Cost), Count: len(sols)}, nil
	}
	return &Solution{Values: toInt64s(n.solver.Solution()), Cost: n.toDecimal(n.w.SolutionCost()), Count: len(sols)}, nil
}

// Solutions returns every solution found so far, in discovery order.
func (n *Network) Solutions() []Solution {
	var out []Solution
	for _, s := range n.solver.Solutions() {
		out = append(out, Solution{Values: toInt64s(s.Values), Cost: n.toDecimal(s.Cost)})
	}
	return out
}

// Assignment maps variable names to the values of a solution.
func (n *Network) Assignment(values []int64) map[string]Value {
	out := make(map[string]Value, len(values))
	for x, v := range values {
		if x < len(n.vars) {
			out[n.vars[x].name] = n.fromBackend(x, wcsp.Value(v))
		}
	}
	return out
}

// Evaluate returns the cost of a complete assignment given by variable name. Values
// outside the declared domains cost Top.
func (n *Network) Evaluate(assignment map[string]Value) (float64, error) {
	values := make([]wcsp.Value, len(n.vars))
	for x, v := range n.vars {
		a, ok := assignment[v.name]
		if !ok {
			return 0, fmt.Errorf("assignment has no value for %s: %w", v.name, ErrConfiguration)
		}
		bv, err := n.toBackend(x, a)
		if err != nil {
			return 0, err
		}
		if k := n.w.ToIndex(x, bv); k < 0 || k >= n.w.DomainInitSize(x) {
			return n.top, nil
		}
		if !v.symbolic && !slices.Contains(v.values, a) {
			return n.top, nil
		}
		values[x] = bv
	}
	return n.toDecimal(n.w.EvalSolution(values)), nil
}
