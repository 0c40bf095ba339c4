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
	"math"

	log "github.com/golang/glog"
)

// Kind is the type of a model element.
type Kind int

const (
	KindNullary Kind = iota
	KindTable
	KindCompact
	KindLinear
	KindAllDifferent
	KindGlobal
	KindWeightedCSP
)

func (k Kind) String() string {
	switch k {
	case KindNullary:
		return "nullary"
	case KindTable:
		return "table"
	case KindCompact:
		return "compact"
	case KindLinear:
		return "linear"
	case KindAllDifferent:
		return "alldifferent"
	case KindGlobal:
		return "global"
	case KindWeightedCSP:
		return "wcsp"
	}
	return fmt.Sprintf("kind(%d)", int(k))
}

// Record is a model element as it was given to the network, before normalization.
// Forbidden costs are stored as +Inf so that a record can be replayed into a network
// with another resolution or scaled by a weight.
type Record struct {
	Kind  Kind
	Scope []string
	// Costs holds the dense table of a KindTable record, or the single cost of a
	// KindNullary record.
	Costs []float64
	// Default, Tuples and TupleCosts describe a KindCompact record. Tuples hold backend
	// values.
	Default    float64
	Tuples     [][]int64
	TupleCosts []float64
	// Terms, Operand and Rhs describe a KindLinear record in generalized form.
	Terms    []Term
	Operand  Operand
	Rhs      int64
	Encoding Encoding
	Excepted []int64
	// Name and Params describe a KindGlobal record.
	Name        string
	Params      string
	Incremental bool

	depth int
}

// IsHard reports whether a recorded cost is forbidden.
func IsHard(c float64) bool { return math.IsInf(c, 1) }

func (n *Network) hard(c float64) float64 {
	if c >= n.top {
		return math.Inf(1)
	}
	return c
}

func (n *Network) hardAll(costs []float64) []float64 {
	out := make([]float64, len(costs))
	for i, c := range costs {
		out[i] = n.hard(c)
	}
	return out
}

func (n *Network) record(r Record) {
	r.depth = n.w.Depth()
	n.records = append(n.records, r)
}

// dropRecords forgets the elements created above depth.
func (n *Network) dropRecords(depth int) {
	kept := n.records[:0]
	for _, r := range n.records {
		if r.depth <= depth {
			kept = append(kept, r)
		}
	}
	n.records = kept
}

// Records returns the model elements currently in the network, in creation order.
// A network read from a file in a format other than `.cfn` has none for the elements it
// loaded; see Replayable.
func (n *Network) Records() []Record {
	return append([]Record(nil), n.records...)
}

// weighted scales a recorded cost for this network: forbidden costs stay forbidden
// whatever the sign of the weight.
func (n *Network) weighted(c, weight float64) float64 {
	if IsHard(c) {
		return n.top
	}
	return c * weight
}

// Apply posts a record of another network into this one, scaling its costs by weight.
// Variables are matched by name and must already exist. Linear, all-different and
// global constraints are hard and are posted unchanged.
func (n *Network) Apply(r Record, weight float64) error {
	scope := Names(r.Scope...)
	var opts []FunctionOption
	if r.Incremental {
		opts = append(opts, Incremental())
	}
	switch r.Kind {
	case KindNullary:
		return n.AddNullary(n.weighted(r.Costs[0], weight))
	case KindTable:
		costs := make([]float64, len(r.Costs))
		for i, c := range r.Costs {
			costs[i] = n.weighted(c, weight)
		}
		return n.AddFunction(scope, costs, opts...)
	case KindCompact:
		tuples := make([][]Value, len(r.Tuples))
		for i, t := range r.Tuples {
			tuples[i] = Ints(t...)
		}
		tcosts := make([]float64, len(r.TupleCosts))
		for i, c := range r.TupleCosts {
			tcosts[i] = n.weighted(c, weight)
		}
		return n.AddCompactFunction(scope, n.weighted(r.Default, weight), tuples, tcosts, opts...)
	case KindLinear:
		return n.AddGeneralizedLinearConstraint(r.Terms, r.Operand, r.Rhs)
	case KindAllDifferent:
		if r.Excepted != nil {
			opts = append(opts, Excepted(r.Excepted...))
		}
		return n.AddAllDifferent(scope, r.Encoding, opts...)
	case KindGlobal:
		return n.AddGlobalFunction(scope, r.Name, r.Params)
	case KindWeightedCSP:
		log.Warningf("cfnmodel: weighted CSP constraint on %v cannot be copied into %s, skipped", r.Scope, n.Name())
		return nil
	}
	return fmt.Errorf("record kind %v: %w", r.Kind, ErrConfiguration)
}
