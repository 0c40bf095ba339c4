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
	"sync"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/trace"
)

var (
	tracer = otel.Tracer("toulbar2.cfnmodel")
	meter  = otel.Meter("toulbar2.cfnmodel")
)

var (
	solveTotal    metric.Int64Counter
	solveDuration metric.Float64Histogram
	solveNodes    metric.Int64Histogram

	metricsOnce sync.Once
	metricsErr  error
)

func initMetrics() error {
	metricsOnce.Do(func() {
		var err error
		solveTotal, err = meter.Int64Counter(
			"cfn_solve_total",
			metric.WithDescription("Number of solver calls by entry point and outcome"),
		)
		if err != nil {
			metricsErr = err
			return
		}
		solveDuration, err = meter.Float64Histogram(
			"cfn_solve_duration_seconds",
			metric.WithDescription("Duration of solver calls"),
			metric.WithUnit("s"),
		)
		if err != nil {
			metricsErr = err
			return
		}
		solveNodes, err = meter.Int64Histogram(
			"cfn_solve_nodes",
			metric.WithDescription("Search nodes explored per solver call"),
		)
		if err != nil {
			metricsErr = err
		}
	})
	return metricsErr
}

func (n *Network) startSpan(ctx context.Context, op string) (context.Context, trace.Span) {
	return tracer.Start(ctx, "Network."+op,
		trace.WithAttributes(
			attribute.String("cfn.id", n.id.String()),
			attribute.String("cfn.name", n.cfg.Name),
			attribute.Int("cfn.variables", len(n.vars)),
			attribute.Int("cfn.depth", n.w.Depth()),
		),
	)
}

// endSpan records the outcome of a solver call on its span and in the metrics.
func (n *Network) endSpan(ctx context.Context, span trace.Span, op, outcome string, start time.Time, err error) {
	span.SetAttributes(
		attribute.String("cfn.outcome", outcome),
		attribute.Int64("cfn.nodes", n.solver.NbNodes()),
	)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
	}
	span.End()

	if initMetrics() != nil {
		return
	}
	attrs := metric.WithAttributes(
		attribute.String("op", op),
		attribute.String("outcome", outcome),
	)
	solveTotal.Add(ctx, 1, attrs)
	solveDuration.Record(ctx, time.Since(start).Seconds(), attrs)
	solveNodes.Record(ctx, n.solver.NbNodes(), metric.WithAttributes(attribute.String("op", op)))
}
