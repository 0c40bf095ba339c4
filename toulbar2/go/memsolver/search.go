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
	"sync/atomic"

	"github.com/toulbar2/toulbar2/toulbar2/go/wcsp"
)

// interrupter turns the cancellation of a context into a flag the search polls.
type interrupter struct {
	stopped atomic.Bool
	done    chan struct{}
}

// watch returns an interrupter triggered when ctx is done. release must be called once
// the search is over.
func watch(ctx context.Context) (*interrupter, func()) {
	intr := &interrupter{done: make(chan struct{})}
	// Trigger before the search starts if ctx is already done: the goroutine below may
	// not be scheduled in time.
	if ctx.Err() != nil {
		intr.stopped.Store(true)
	}
	go func() {
		select {
		case <-ctx.Done():
			intr.stopped.Store(true)
		case <-intr.done:
		}
	}()
	return intr, func() { close(intr.done) }
}

type searchMode int

const (
	optimize searchMode = iota
	enumerate
)

// search is a depth-first branch and bound over copies of the current domains. It
// never modifies the problem.
type search struct {
	w    *WCSP
	mode searchMode
	intr *interrupter

	doms   [][]wcsp.Value
	adj    [][]int
	local  []wcsp.Cost
	ub     wcsp.Cost
	limit  int64
	nodes  int64
	backtr int64

	// accept, when set, prunes partial assignments.
	accept func(doms [][]wcsp.Value) bool
	// onSolution is called on each complete assignment below ub. Returning true stops
	// the search.
	onSolution func(values []wcsp.Value, cost wcsp.Cost) bool
}

func newSearch(w *WCSP, mode searchMode, intr *interrupter, ub wcsp.Cost) *search {
	s := &search{
		w:     w,
		mode:  mode,
		intr:  intr,
		doms:  w.currentDoms(),
		adj:   w.adjacency(),
		local: make([]wcsp.Cost, len(w.ctrs)),
		ub:    ub,
		limit: w.opts.NodeLimit,
	}
	for ci, p := range w.ctrs {
		s.local[ci] = p.c.lowerBound(s.doms)
	}
	return s
}

func (s *search) total() wcsp.Cost {
	t := s.w.lb
	for _, c := range s.local {
		t = wcsp.AddCost(t, c)
	}
	return t
}

func (s *search) pick() int {
	x, size := -1, 0
	for i, d := range s.doms {
		if len(d) > 1 && (x < 0 || len(d) < size) {
			x, size = i, len(d)
		}
	}
	return x
}

// run explores the whole tree. It returns a *wcsp.SolverOutError when a limit fired.
func (s *search) run() error {
	for _, d := range s.doms {
		if len(d) == 0 {
			return nil
		}
	}
	if s.total() >= s.ub || (s.accept != nil && !s.accept(s.doms)) {
		return nil
	}
	_, err := s.dfs()
	return err
}

func (s *search) dfs() (bool, error) {
	s.nodes++
	if s.limit > 0 && s.nodes > s.limit {
		return true, &wcsp.SolverOutError{Reason: "node limit", Nodes: s.nodes}
	}
	if s.intr != nil && s.intr.stopped.Load() {
		return true, &wcsp.SolverOutError{Reason: "time limit", Nodes: s.nodes}
	}
	x := s.pick()
	if x < 0 {
		cost := s.total()
		if cost >= s.ub {
			return false, nil
		}
		values := make([]wcsp.Value, len(s.doms))
		for i, d := range s.doms {
			values[i] = d[0]
		}
		if s.mode == optimize {
			s.ub = cost
		}
		return s.onSolution(values, cost), nil
	}
	candidates := s.doms[x]
	saved := make([]wcsp.Cost, len(s.adj[x]))
	for _, v := range candidates {
		s.doms[x] = []wcsp.Value{v}
		for k, ci := range s.adj[x] {
			saved[k] = s.local[ci]
			s.local[ci] = s.w.ctrs[ci].c.lowerBound(s.doms)
		}
		if s.total() < s.ub && (s.accept == nil || s.accept(s.doms)) {
			stop, err := s.dfs()
			if stop || err != nil {
				s.doms[x] = candidates
				return stop, err
			}
		}
		for k, ci := range s.adj[x] {
			s.local[ci] = saved[k]
		}
	}
	s.doms[x] = candidates
	s.backtr++
	return false, nil
}

// hamming returns a pruning test keeping only assignments at distance at least bound
// from every previous solution.
func hamming(previous [][]wcsp.Value, bound int) func(doms [][]wcsp.Value) bool {
	return func(doms [][]wcsp.Value) bool {
		for _, p := range previous {
			diff, open := 0, 0
			for i, d := range doms {
				switch {
				case len(d) != 1:
					open++
				case d[0] != p[i]:
					diff++
				}
			}
			if diff+open < bound {
				return false
			}
		}
		return true
	}
}
