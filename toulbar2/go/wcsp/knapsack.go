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

package wcsp

import (
	"fmt"
	"strconv"
	"strings"
)

// Param is a node of a nested parameter list: either a single token or a group of
// nodes. Global constraint parameters are built as trees and flattened into the
// space-separated strings the backend parses.
type Param struct {
	token string
	group []Param
	leaf  bool
}

// Token returns a leaf holding `s`.
func Token(s string) Param { return Param{token: s, leaf: true} }

// Int returns a leaf holding the decimal form of `v`.
func Int(v int64) Param { return Token(strconv.FormatInt(v, 10)) }

// Group returns a node holding `ps` in order.
func Group(ps ...Param) Param { return Param{group: ps} }

// Flatten lists the leaf tokens of `ps` in depth-first order. It walks the tree with an
// explicit stack, so arbitrarily deep nesting cannot exhaust the goroutine stack.
func Flatten(ps ...Param) []string {
	var out []string
	// The stack holds pending nodes in reverse order of visit.
	stack := make([]Param, 0, len(ps))
	for i := len(ps) - 1; i >= 0; i-- {
		stack = append(stack, ps[i])
	}
	for len(stack) > 0 {
		p := stack[len(stack)-1]
		stack = stack[:len(stack)-1]
		if p.leaf {
			out = append(out, p.token)
			continue
		}
		for i := len(p.group) - 1; i >= 0; i-- {
			stack = append(stack, p.group[i])
		}
	}
	return out
}

// KnapsackTerm lists the weight contributed by each value of one variable. Values not
// listed contribute zero.
type KnapsackTerm struct {
	Values  []Value
	Weights []int64
}

// KnapsackParams describes `sum_i weight_i(x_i) >= Capacity`.
type KnapsackParams struct {
	Capacity int64
	Terms    []KnapsackTerm
}

// String encodes the parameters as `capacity n1 v w ... n2 v w ...`.
func (kp KnapsackParams) String() string {
	root := []Param{Int(kp.Capacity)}
	for _, t := range kp.Terms {
		pairs := make([]Param, len(t.Values))
		for i, v := range t.Values {
			pairs[i] = Group(Int(int64(v)), Int(t.Weights[i]))
		}
		root = append(root, Group(Int(int64(len(t.Values))), Group(pairs...)))
	}
	return strings.Join(Flatten(root...), " ")
}

// Weight returns the weight of value `v` in term `i`.
func (kp KnapsackParams) Weight(i int, v Value) int64 {
	t := kp.Terms[i]
	for j, tv := range t.Values {
		if tv == v {
			return t.Weights[j]
		}
	}
	return 0
}

// ParseKnapsackParams decodes a parameter string for a scope of `arity` variables.
func ParseKnapsackParams(s string, arity int) (KnapsackParams, error) {
	fields := strings.Fields(s)
	pos := 0
	next := func() (int64, error) {
		if pos >= len(fields) {
			return 0, fmt.Errorf("knapsack parameters %q: unexpected end", s)
		}
		v, err := strconv.ParseInt(fields[pos], 10, 64)
		if err != nil {
			return 0, fmt.Errorf("knapsack parameters %q: token %d: %w", s, pos, err)
		}
		pos++
		return v, nil
	}
	var kp KnapsackParams
	var err error
	if kp.Capacity, err = next(); err != nil {
		return KnapsackParams{}, err
	}
	for i := 0; i < arity; i++ {
		n, err := next()
		if err != nil {
			return KnapsackParams{}, err
		}
		if n < 0 {
			return KnapsackParams{}, fmt.Errorf("knapsack parameters %q: negative value count %d", s, n)
		}
		var t KnapsackTerm
		for j := int64(0); j < n; j++ {
			v, err := next()
			if err != nil {
				return KnapsackParams{}, err
			}
			w, err := next()
			if err != nil {
				return KnapsackParams{}, err
			}
			t.Values = append(t.Values, Value(v))
			t.Weights = append(t.Weights, w)
		}
		kp.Terms = append(kp.Terms, t)
	}
	if pos != len(fields) {
		return KnapsackParams{}, fmt.Errorf("knapsack parameters %q: %d trailing tokens", s, len(fields)-pos)
	}
	return kp, nil
}
