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

// Package wcsp defines the primitive operations a weighted constraint satisfaction
// backend offers to the cost function network encoder.
//
// The `WeightedCSP` interface holds one problem instance: enumerated variables with
// integer domains, cost functions posted in bounded-arity form, global constraints
// described by parameter strings, and a backtrackable trail driven by `Store` and
// `Restore`. The `Solver` interface wraps a `WeightedCSP` with the search entry points.
// All costs crossing this boundary are integers; decimal costs are scaled by the
// caller.
package wcsp

import (
	"context"
	"time"
)

type (
	// Cost is an integer cost. Costs greater than or equal to MaxCost are forbidden.
	Cost int64
	// Value is a domain value of an enumerated variable.
	Value int64
)

// MaxCost is the forbidden cost. It is a power of two so that it converts to and from
// float64 exactly, and small enough that the sum of two costs never overflows int64.
const MaxCost Cost = 1 << 60

// AddCost returns `a+b` saturated to `[-MaxCost,MaxCost]`.
func AddCost(a, b Cost) Cost {
	if a >= MaxCost || b >= MaxCost {
		return MaxCost
	}
	s := a + b
	if s > MaxCost {
		return MaxCost
	}
	if s < -MaxCost {
		return -MaxCost
	}
	return s
}

// MinCost returns the smaller of two costs.
func MinCost(a, b Cost) Cost {
	if a < b {
		return a
	}
	return b
}

// Format selects the file format used by `Solver.Dump`.
type Format int

const (
	// FormatWCSP is the line-oriented `.wcsp` format.
	FormatWCSP Format = 1
	// FormatCFN is the JSON-like `.cfn` format.
	FormatCFN Format = 2
)

// Options are the backend settings fixed at construction time. A backend may treat the
// search tuning fields (VAC, Seed, Verbose, ElimDegree, ElimDegreePreprocessing,
// SolutionBasedPhaseSaving and VNSInitSol) as hints; DecimalPoint, Preprocessing and
// NodeLimit are binding.
type Options struct {
	// DecimalPoint is the number of decimal digits kept when costs are scaled to integers.
	DecimalPoint int
	// VAC is the maximum search depth where virtual arc consistency is enforced.
	VAC int
	Seed    int64
	Verbose int
	// ElimDegree is the maximum degree of variable elimination during search (-1: none).
	ElimDegree int
	// ElimDegreePreprocessing is the same bound used once during preprocessing.
	ElimDegreePreprocessing int
	// Preprocessing enables the preprocessing passes run by `Solver.Preprocessing`.
	Preprocessing bool
	// SolutionBasedPhaseSaving reuses previous complete solutions as value hints.
	SolutionBasedPhaseSaving bool
	// VNSInitSol, when non-nil, selects decomposition-guided variable neighborhood search.
	VNSInitSol *int
	// NodeLimit bounds the number of search nodes (0: unbounded).
	NodeLimit int64
}

// DefaultOptions returns the options used by a fresh network.
func DefaultOptions() Options {
	return Options{
		Seed:                     1,
		Verbose:                  -1,
		ElimDegree:               3,
		ElimDegreePreprocessing:  -1,
		Preprocessing:            true,
		SolutionBasedPhaseSaving: true,
	}
}

// SolveRequest holds the per-call settings of a one-shot `Solver.Solve`.
type SolveRequest struct {
	// AllSolutions enumerates solutions better than the upper bound up to this count (0: optimize).
	AllSolutions int
	// DiversityBound, when positive together with AllSolutions, finds a greedy sequence of
	// solutions pairwise at Hamming distance at least DiversityBound.
	DiversityBound int
	// TimeLimit bounds the wall-clock search time (0: unbounded).
	TimeLimit time.Duration
}

// SolutionRecord is one solution found by the backend.
type SolutionRecord struct {
	Cost   Cost
	Values []Value
}

// WeightedCSP is one problem instance held by a backend.
type WeightedCSP interface {
	Name() string
	SetName(name string)

	// MakeEnumeratedVariable creates a variable with domain `[inf,sup]` and returns its index.
	MakeEnumeratedVariable(name string, inf, sup Value) int
	// AddValueName appends a display name for the next value of the variable's initial domain.
	AddValueName(varIndex int, name string)
	NumberOfVariables() int
	// NumberOfConstraints returns the number of active cost functions of arity two or more.
	NumberOfConstraints() int
	VarName(varIndex int) string
	VarIndex(name string) (int, bool)
	ValueName(varIndex, valIndex int) string
	DomainInitSize(varIndex int) int
	ToValue(varIndex, valIndex int) Value
	ToIndex(varIndex int, v Value) int
	// EnumDomain returns the current domain values in increasing order.
	EnumDomain(varIndex int) []Value

	Assign(varIndex int, v Value) error
	Remove(varIndex int, v Value) error
	Increase(varIndex int, v Value) error
	Decrease(varIndex int, v Value) error
	// Deconnect assigns every variable to its support value and detaches it.
	Deconnect(varIndexes []int) error
	// Propagate returns ErrContradiction when the current state has no solution below the
	// upper bound.
	Propagate() error
	// WhenContradiction clears the propagation queues after a contradiction.
	WhenContradiction()

	PostNullaryConstraint(c Cost)
	PostUnaryConstraint(x int, costs []Cost, incremental bool) error
	PostBinaryConstraint(x, y int, costs []Cost, incremental bool) (int, error)
	PostTernaryConstraint(x, y, z int, costs []Cost, incremental bool) (int, error)
	// PostNaryConstraintBegin starts a cost function in extension with a default cost.
	// `nbTuples` is a capacity hint.
	PostNaryConstraintBegin(scope []int, defCost Cost, nbTuples int, forceNary bool) (int, error)
	PostNaryConstraintTuple(ctrIndex int, tuple []Value, cost Cost) error
	PostNaryConstraintEnd(ctrIndex int) error
	// PostKnapsackConstraint posts `sum(weights) >= capacity` described by a parameter
	// string built with `KnapsackParams.String`.
	PostKnapsackConstraint(scope []int, params string, kp bool) (int, error)
	// PostAllDifferentConstraint posts a matching-based all-different constraint; values
	// listed in `excepted` may be shared.
	PostAllDifferentConstraint(scope []int, excepted []Value, baseCost Cost) (int, error)
	PostWAllDiff(scope []int, semantics, propagator string, baseCost Cost) (int, error)
	PostGlobalFunction(scope []int, name, params string) (int, error)
	// PostWeightedCSPConstraint bounds the optimum of `problem` restricted to the values of
	// `scope` to `[lb,ub)`. `negProblem` holds the same problem with negated costs.
	PostWeightedCSPConstraint(scope []int, problem, negProblem WeightedCSP, lb, ub Cost, duplicateHard, strongDuality bool) (int, error)

	// Lb returns the nonnegative part of the global lower bound.
	Lb() Cost
	SetLb(c Cost)
	// NegativeLb returns the total of negative nullary costs, kept apart from Lb.
	NegativeLb() Cost
	SetNegativeLb(c Cost)
	Ub() Cost
	SetUb(c Cost)
	// UpdateUb decreases the upper bound. Larger values are ignored.
	UpdateUb(c Cost)
	EnforceUb() error
	SolutionCost() Cost
	// InitSolutionCost forgets the best solution found so far.
	InitSolutionCost()
	// EvalSolution returns the cost of a complete assignment given by value per variable.
	EvalSolution(values []Value) Cost

	Store()
	Restore(depth int)
	Depth() int
}

// Solver runs searches over its `WeightedCSP`.
type Solver interface {
	WCSP() WeightedCSP
	Read(filename string) error
	Dump(filename string, withNames bool, format Format) error
	// Solve runs a complete search and reports whether optimality (or exhaustion) was proven.
	Solve(ctx context.Context, req SolveRequest) (bool, error)
	// BeginSolve resets the search statistics before an incremental search.
	BeginSolve(ub Cost)
	// Preprocessing tightens `ub` and propagates once; it returns the improved bound.
	Preprocessing(ub Cost) (Cost, error)
	// HybridSolve searches from the current state and returns the final bounds.
	HybridSolve(ctx context.Context) (lb, ub Cost, err error)
	// Solution returns the best solution of the last search.
	Solution() []Value
	// Solutions returns every solution recorded so far, in discovery order.
	Solutions() []SolutionRecord
	NbNodes() int64
	NbBacktracks() int64
}
