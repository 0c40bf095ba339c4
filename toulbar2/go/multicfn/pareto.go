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

package multicfn

import (
	"cmp"
	"context"
	"fmt"
	"math"
	"slices"
	"time"

	log "github.com/golang/glog"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"golang.org/x/sync/errgroup"

	"github.com/toulbar2/toulbar2/toulbar2/go/cfnmodel"
)

var tracer = otel.Tracer("toulbar2.multicfn")

// Points closer than epsilon on both criteria are the same point.
const epsilon = 1e-6

// Direction tells whether a criterion is minimized or maximized.
type Direction int

const (
	Minimize Direction = iota
	Maximize
)

func (d Direction) String() string {
	if d == Maximize {
		return "max"
	}
	return "min"
}

// Point holds the costs of a solution in the two networks of a sweep.
type Point struct {
	A, B float64
}

func (p Point) equal(q Point) bool {
	return math.Abs(p.A-q.A) <= epsilon && math.Abs(p.B-q.B) <= epsilon
}

// Weights are the network weights of one scalarization.
type Weights struct {
	A, B float64
}

// ParetoPoint is a supported point of the front, with the scalarization that found it.
type ParetoPoint struct {
	Point    Point
	Weights  Weights
	Solution map[string]cfnmodel.Value
	// LowerBound is the scalarized cost proved optimal, or the lower bound reached
	// when the search was stopped by a limit.
	LowerBound float64
}

// ParetoOptions bounds a sweep.
type ParetoOptions struct {
	// GlobalTimeout bounds the whole sweep, PointTimeout each scalarization. Zero means
	// no limit.
	GlobalTimeout time.Duration
	PointTimeout  time.Duration
	// MaxPoints stops the sweep once that many points are found. Zero means no limit.
	MaxPoints int
	// Delta is the weight of the other criterion when optimizing one, used to break
	// ties. Zero selects 0.001.
	Delta float64
	// Backend and Config are used for every scalarized network. A nil Config selects
	// cfnmodel.DefaultConfig.
	Backend cfnmodel.Backend
	Config  *cfnmodel.Config
	// SequentialAnchors solves the two anchors one after the other instead of
	// concurrently. Set it when Backend is not safe to run from two goroutines.
	SequentialAnchors bool
}

func (o ParetoOptions) delta() float64 {
	if o.Delta > 0 {
		return o.Delta
	}
	return 1e-3
}

// sweep holds the state of one ApproximateParetoFront call.
type sweep struct {
	m      *MultiCFN
	a, b   int
	cfg    cfnmodel.Config
	opts   ParetoOptions
	front  []ParetoPoint
	solves int
}

type scalarized struct {
	ok         bool
	weights    Weights
	solution   map[string]cfnmodel.Value
	lowerBound float64
}

// scalarize solves the sum with networks a and b weighted by w, on a network of its own.
func (s *sweep) scalarize(ctx context.Context, w Weights) (scalarized, error) {
	weights := s.m.weights()
	weights[s.a], weights[s.b] = w.A, w.B
	net, err := s.m.build(s.opts.Backend, s.cfg, weights)
	if err != nil {
		return scalarized{}, err
	}
	var opts []cfnmodel.SolveOption
	if s.opts.PointTimeout > 0 {
		opts = append(opts, cfnmodel.TimeLimit(s.opts.PointTimeout))
	}
	sol, err := net.Solve(ctx, opts...)
	if err != nil {
		return scalarized{}, err
	}
	out := scalarized{weights: w, lowerBound: net.GetLB()}
	if sol == nil {
		log.V(1).Infof("multicfn: no solution for weights %v", w)
		return out, nil
	}
	out.ok = true
	out.solution = net.Assignment(sol.Values)
	if net.Limit() == nil {
		out.lowerBound = sol.Cost
	}
	return out, nil
}

func (s *sweep) point(r scalarized) (Point, error) {
	costs, err := s.m.SolutionCosts(r.solution)
	if err != nil {
		return Point{}, err
	}
	return Point{A: costs[s.a], B: costs[s.b]}, nil
}

func (s *sweep) add(p Point, r scalarized) {
	s.front = append(s.front, ParetoPoint{Point: p, Weights: r.weights, Solution: r.solution, LowerBound: r.lowerBound})
}

func (s *sweep) seen(p Point) bool {
	return slices.ContainsFunc(s.front, func(q ParetoPoint) bool { return q.Point.equal(p) })
}

func (s *sweep) full() bool {
	return s.opts.MaxPoints > 0 && len(s.front) >= s.opts.MaxPoints
}

// ApproximateParetoFront computes the supported points of the front of networks a and
// b by dichotomic scalarization: each criterion is optimized first, then the segment
// between two known points is explored with the weights normal to it, until no
// segment yields a new point. The other networks keep their weights. A maximized
// criterion gets a negative weight; its costs, and forbidden costs, are unchanged.
// Points are sorted by increasing cost in a.
//
// The two anchors are solved concurrently, each on its own scalarized network built by
// opts.Backend, unless opts.SequentialAnchors is set. The segments are then explored
// one at a time.
func (m *MultiCFN) ApproximateParetoFront(ctx context.Context, a int, dirA Direction, b int, dirB Direction, opts ParetoOptions) ([]ParetoPoint, error) {
	if err := m.check(a); err != nil {
		return nil, err
	}
	if err := m.check(b); err != nil {
		return nil, err
	}
	if a == b {
		return nil, fmt.Errorf("sweep of network %d against itself: %w", a, cfnmodel.ErrConfiguration)
	}
	cfg := cfnmodel.DefaultConfig()
	if opts.Config != nil {
		cfg = *opts.Config
	}
	// The tie-breaking weight must survive rounding to the resolution.
	digits := int(math.Ceil(-math.Log10(opts.delta())))
	cfg.Resolution = min(max(cfg.Resolution, m.Resolution()+max(digits, 0)), 9)
	cfg.Name = ""

	ctx, span := tracer.Start(ctx, "MultiCFN.ApproximateParetoFront", trace.WithAttributes(
		attribute.String("pareto.a", m.NetworkName(a)+"/"+dirA.String()),
		attribute.String("pareto.b", m.NetworkName(b)+"/"+dirB.String()),
		attribute.Int("pareto.resolution", cfg.Resolution),
	))
	defer span.End()
	if opts.GlobalTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, opts.GlobalTimeout)
		defer cancel()
	}

	s := &sweep{m: m, a: a, b: b, cfg: cfg, opts: opts}
	front, err := s.run(ctx, dirA, dirB)
	span.SetAttributes(attribute.Int("pareto.points", len(front)), attribute.Int("pareto.solves", s.solves))
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return nil, err
	}
	return front, nil
}

func (s *sweep) run(ctx context.Context, dirA, dirB Direction) ([]ParetoPoint, error) {
	lambdaA, lambdaB := 1.0, 1.0
	if dirA == Maximize {
		lambdaA = -1
	}
	if dirB == Maximize {
		lambdaB = -1
	}
	delta := s.opts.delta()

	// The two anchors are independent and each owns its network.
	var anchors [2]scalarized
	g, gctx := errgroup.WithContext(ctx)
	if s.opts.SequentialAnchors {
		g.SetLimit(1)
	}
	g.Go(func() error {
		var err error
		anchors[0], err = s.scalarize(gctx, Weights{A: lambdaA, B: math.Copysign(delta, lambdaB)})
		return err
	})
	g.Go(func() error {
		var err error
		anchors[1], err = s.scalarize(gctx, Weights{A: math.Copysign(delta, lambdaA), B: lambdaB})
		return err
	})
	if err := g.Wait(); err != nil {
		return nil, err
	}
	s.solves = 2

	var points [2]Point
	for i, r := range anchors {
		if !r.ok {
			continue
		}
		p, err := s.point(r)
		if err != nil {
			return nil, err
		}
		points[i] = p
		if i == 0 || !anchors[0].ok || !p.equal(points[0]) {
			s.add(p, r)
		}
	}

	var pending [][2]Point
	if anchors[0].ok && anchors[1].ok && !points[0].equal(points[1]) {
		pending = append(pending, points)
	}
	for len(pending) > 0 && !s.full() && ctx.Err() == nil {
		top := pending[len(pending)-1]
		pending = pending[:len(pending)-1]

		var w Weights
		if dirA == dirB {
			w = Weights{A: top[0].B - top[1].B, B: top[1].A - top[0].A}
		} else {
			w = Weights{A: top[1].B - top[0].B, B: top[0].A - top[1].A}
		}
		length := math.Hypot(w.A, w.B)
		w.A *= 2 / length
		w.B *= 2 / length
		if dirA == dirB && w.A*w.B < 0 || dirA != dirB && w.A*w.B > 0 {
			continue
		}

		r, err := s.scalarize(ctx, w)
		s.solves++
		if err != nil {
			return nil, err
		}
		if !r.ok {
			continue
		}
		p, err := s.point(r)
		if err != nil {
			return nil, err
		}
		if s.seen(p) {
			continue
		}
		s.add(p, r)
		if w.A*p.A+w.B*p.B < w.A*top[0].A+w.B*top[0].B {
			for _, seg := range [][2]Point{{top[0], p}, {p, top[1]}} {
				if math.Abs(seg[0].A-seg[1].A) >= epsilon && math.Abs(seg[0].B-seg[1].B) >= epsilon {
					pending = append(pending, seg)
				}
			}
		}
	}
	if err := ctx.Err(); err != nil {
		log.Warningf("multicfn: sweep stopped after %d points: %v", len(s.front), err)
	}

	slices.SortStableFunc(s.front, func(p, q ParetoPoint) int {
		if c := cmp.Compare(p.Point.A, q.Point.A); c != 0 {
			return c
		}
		if dirA == dirB {
			return cmp.Compare(q.Point.B, p.Point.B)
		}
		return cmp.Compare(p.Point.B, q.Point.B)
	})
	return s.front, nil
}
