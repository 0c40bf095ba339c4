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

// Package memsolver is an in-memory backend for cost function networks.
//
// It implements the `wcsp` primitives with plain data structures and solves by an
// exhaustive depth-first branch and bound. Propagation is limited to bound checks and
// singleton pruning, which keeps the backend small and predictable; it is meant for
// tests, samples and small instances.
package memsolver

import (
	"context"
	"errors"

	log "github.com/golang/glog"
	"github.com/toulbar2/toulbar2/toulbar2/go/wcsp"
)

// Solver runs searches over an in-memory WCSP.
type Solver struct {
	w          *WCSP
	solution   []wcsp.Value
	solutions  []wcsp.SolutionRecord
	nodes      int64
	backtracks int64
}

// New returns a solver over an empty problem.
func New(opts wcsp.Options) *Solver {
	return &Solver{w: NewWCSP(opts)}
}

// NewBackend is New typed as a backend factory.
func NewBackend(opts wcsp.Options) wcsp.Solver {
	return New(opts)
}

var _ wcsp.Solver = (*Solver)(nil)

func (s *Solver) WCSP() wcsp.WeightedCSP { return s.w }

// Problem returns the underlying problem.
func (s *Solver) Problem() *WCSP { return s.w }

func (s *Solver) NbNodes() int64      { return s.nodes }
func (s *Solver) NbBacktracks() int64 { return s.backtracks }

func (s *Solver) Solution() []wcsp.Value { return append([]wcsp.Value(nil), s.solution...) }

func (s *Solver) Solutions() []wcsp.SolutionRecord {
	return append([]wcsp.SolutionRecord(nil), s.solutions...)
}

func (s *Solver) record(values []wcsp.Value, cost wcsp.Cost) {
	s.solutions = append(s.solutions, wcsp.SolutionRecord{Cost: cost, Values: values})
}

func (s *Solver) BeginSolve(ub wcsp.Cost) {
	s.w.SetUb(ub)
	s.nodes, s.backtracks = 0, 0
}

// Preprocessing lowers `ub` to one more than the worst finite cost of any assignment
// and propagates.
func (s *Solver) Preprocessing(ub wcsp.Cost) (wcsp.Cost, error) {
	if s.w.opts.Preprocessing {
		worst := s.w.lb
		for _, p := range s.w.ctrs {
			worst = wcsp.AddCost(worst, p.c.maxFinite())
		}
		worst = wcsp.AddCost(worst, 1)
		if worst < ub {
			log.V(1).Infof("memsolver: worst-case upper bound %d replaces %d", worst, ub)
			ub = worst
		}
	}
	s.w.SetUb(ub)
	if err := s.w.Propagate(); err != nil {
		return ub, err
	}
	return ub, nil
}

func (s *Solver) collect(sr *search) {
	s.nodes += sr.nodes
	s.backtracks += sr.backtr
}

// optimum runs one optimizing search and records the improving solutions it meets.
func (s *Solver) optimum(intr *interrupter, ub wcsp.Cost, accept func([][]wcsp.Value) bool) ([]wcsp.Value, wcsp.Cost, error) {
	sr := newSearch(s.w, optimize, intr, ub)
	sr.accept = accept
	var best []wcsp.Value
	bestCost := wcsp.MaxCost
	sr.onSolution = func(values []wcsp.Value, cost wcsp.Cost) bool {
		best, bestCost = values, cost
		if accept == nil {
			s.record(values, cost)
		}
		return false
	}
	err := sr.run()
	s.collect(sr)
	return best, bestCost, err
}

func (s *Solver) improve(values []wcsp.Value, cost wcsp.Cost) {
	if values == nil || cost >= s.w.solCost {
		return
	}
	s.solution = values
	s.w.solCost = cost
	s.w.UpdateUb(cost)
}

// HybridSolve searches from the current state below the current upper bound.
func (s *Solver) HybridSolve(ctx context.Context) (wcsp.Cost, wcsp.Cost, error) {
	intr, release := watch(ctx)
	defer release()
	lb := s.w.bound(s.w.currentDoms())
	best, cost, err := s.optimum(intr, s.w.Ub(), nil)
	s.improve(best, cost)
	if err != nil {
		return lb, s.w.Ub(), err
	}
	return s.w.Ub(), s.w.Ub(), nil
}

// Solve runs a complete search on a checkpoint of the current state. It enumerates
// solutions when req.AllSolutions is set and builds a diverse sequence when
// req.DiversityBound is also set. The boolean result reports whether the search
// finished before any limit.
func (s *Solver) Solve(ctx context.Context, req wcsp.SolveRequest) (bool, error) {
	if req.TimeLimit > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, req.TimeLimit)
		defer cancel()
	}
	intr, release := watch(ctx)
	defer release()

	depth := s.w.Depth()
	s.w.Store()
	defer s.w.Restore(depth)

	s.nodes, s.backtracks = 0, 0
	if err := s.w.Propagate(); err != nil {
		s.w.WhenContradiction()
		if errors.Is(err, wcsp.ErrContradiction) {
			return true, nil
		}
		return false, err
	}

	switch {
	case req.AllSolutions > 0 && req.DiversityBound > 0:
		return s.diverse(intr, req.AllSolutions, req.DiversityBound)
	case req.AllSolutions > 0:
		return s.enumerate(intr, req.AllSolutions)
	}
	best, cost, err := s.optimum(intr, s.w.Ub(), nil)
	s.improve(best, cost)
	return err == nil, err
}

func (s *Solver) enumerate(intr *interrupter, limit int) (bool, error) {
	sr := newSearch(s.w, enumerate, intr, s.w.Ub())
	found := 0
	sr.onSolution = func(values []wcsp.Value, cost wcsp.Cost) bool {
		s.record(values, cost)
		s.solution = values
		s.w.solCost = wcsp.MinCost(s.w.solCost, cost)
		found++
		return found >= limit
	}
	err := sr.run()
	s.collect(sr)
	return err == nil, err
}

func (s *Solver) diverse(intr *interrupter, count, bound int) (bool, error) {
	ub := s.w.Ub()
	var previous [][]wcsp.Value
	for i := 0; i < count; i++ {
		best, cost, err := s.optimum(intr, ub, hamming(previous, bound))
		if err != nil {
			return false, err
		}
		if best == nil {
			break
		}
		s.record(best, cost)
		s.solution = best
		s.w.solCost = wcsp.MinCost(s.w.solCost, cost)
		previous = append(previous, best)
	}
	return true, nil
}
