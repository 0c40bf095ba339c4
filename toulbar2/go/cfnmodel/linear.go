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

	log "github.com/golang/glog"

	"github.com/toulbar2/toulbar2/toulbar2/go/wcsp"
)

// Operand is the comparison of a linear constraint.
type Operand string

const (
	Eq Operand = "=="
	Le Operand = "<="
	Lt Operand = "<"
	Ge Operand = ">="
	Gt Operand = ">"
)

func (op Operand) valid() bool {
	switch op {
	case Eq, Le, Lt, Ge, Gt:
		return true
	}
	return false
}

// AddLinearConstraint adds the hard constraint `sum_i coefs[i]*scope[i] operand rhs`.
// A single coefficient applies to every variable. A variable listed several times has
// its coefficients summed. The constraint is posted as one knapsack constraint per
// direction, two for `==`.
func (n *Network) AddLinearConstraint(coefs []int64, scope []VarRef, operand Operand, rhs int64) error {
	if !operand.valid() {
		return fmt.Errorf("unknown operand %q in linear constraint: %w", operand, ErrConfiguration)
	}
	if len(coefs) == 1 && len(scope) > 1 {
		c := coefs[0]
		coefs = make([]int64, len(scope))
		for i := range coefs {
			coefs[i] = c
		}
	}
	if len(coefs) != len(scope) {
		return fmt.Errorf("linear constraint has %d coefficients for %d variables: %w", len(coefs), len(scope), ErrConfiguration)
	}
	if err := n.checkDepth("linear constraint"); err != nil {
		return err
	}

	var xs []int
	merged := make(map[int]int64, len(scope))
	for i, r := range scope {
		x, err := n.varIndex(r)
		if err != nil {
			return err
		}
		if _, ok := merged[x]; !ok {
			xs = append(xs, x)
		}
		merged[x] += coefs[i]
	}
	if len(xs) < len(scope) {
		log.V(1).Infof("cfnmodel: linear constraint merged %d duplicate variables", len(scope)-len(xs))
	}

	var terms []Term
	kterms := make([]wcsp.KnapsackTerm, len(xs))
	for i, x := range xs {
		c := merged[x]
		for _, v := range n.initialValues(x) {
			kterms[i].Values = append(kterms[i].Values, v)
			kterms[i].Weights = append(kterms[i].Weights, c*int64(v))
			terms = append(terms, Term{Var: VarName(n.vars[x].name), Value: IntValue(int64(v)), Coef: c * int64(v)})
		}
	}
	if err := n.postLinear(xs, kterms, operand, rhs); err != nil {
		return err
	}
	n.record(Record{Kind: KindLinear, Scope: n.scopeNames(xs), Terms: terms, Operand: operand, Rhs: rhs})
	return nil
}

// AddSumConstraint adds `sum(scope) operand rhs`.
func (n *Network) AddSumConstraint(scope []VarRef, operand Operand, rhs int64) error {
	return n.AddLinearConstraint([]int64{1}, scope, operand, rhs)
}

// AddGeneralizedLinearConstraint adds a linear constraint whose coefficients are
// attached to variable values: each term adds Coef when Var takes Value, and values
// that are not mentioned add nothing. The scope is made of the variables mentioned,
// in order of first mention.
func (n *Network) AddGeneralizedLinearConstraint(terms []Term, operand Operand, rhs int64) error {
	if !operand.valid() {
		return fmt.Errorf("unknown operand %q in generalized linear constraint: %w", operand, ErrConfiguration)
	}
	if err := n.checkDepth("generalized linear constraint"); err != nil {
		return err
	}

	var xs []int
	pos := make(map[int]int)
	var kterms []wcsp.KnapsackTerm
	var recorded []Term
	for _, t := range terms {
		x, err := n.varIndex(t.Var)
		if err != nil {
			return err
		}
		v, err := n.toBackend(x, t.Value)
		if err != nil {
			return err
		}
		i, ok := pos[x]
		if !ok {
			i = len(xs)
			pos[x] = i
			xs = append(xs, x)
			kterms = append(kterms, wcsp.KnapsackTerm{})
		}
		kt := &kterms[i]
		found := false
		for j, kv := range kt.Values {
			if kv == v {
				kt.Weights[j] += t.Coef
				found = true
				break
			}
		}
		if !found {
			kt.Values = append(kt.Values, v)
			kt.Weights = append(kt.Weights, t.Coef)
		}
	}
	for i, x := range xs {
		for j, v := range kterms[i].Values {
			recorded = append(recorded, Term{Var: VarName(n.vars[x].name), Value: IntValue(int64(v)), Coef: kterms[i].Weights[j]})
		}
	}
	if err := n.postLinear(xs, kterms, operand, rhs); err != nil {
		return err
	}
	n.record(Record{Kind: KindLinear, Scope: n.scopeNames(xs), Terms: recorded, Operand: operand, Rhs: rhs})
	return nil
}

// postLinear posts the knapsack constraints of `sum terms operand rhs`. The backend
// only knows `>=`: the `<=` direction negates weights and capacity, and strict
// comparisons tighten the capacity by one.
func (n *Network) postLinear(xs []int, terms []wcsp.KnapsackTerm, operand Operand, rhs int64) error {
	if operand == Ge || operand == Gt || operand == Eq {
		capacity := rhs
		if operand == Gt {
			capacity++
		}
		kp := wcsp.KnapsackParams{Capacity: capacity, Terms: terms}
		if _, err := n.w.PostKnapsackConstraint(xs, kp.String(), true); err != nil {
			return err
		}
	}
	if operand == Le || operand == Lt || operand == Eq {
		neg := make([]wcsp.KnapsackTerm, len(terms))
		for i, t := range terms {
			neg[i].Values = t.Values
			neg[i].Weights = make([]int64, len(t.Weights))
			for j, w := range t.Weights {
				neg[i].Weights[j] = -w
			}
		}
		capacity := -rhs
		if operand == Lt {
			capacity++
		}
		kp := wcsp.KnapsackParams{Capacity: capacity, Terms: neg}
		if _, err := n.w.PostKnapsackConstraint(xs, kp.String(), true); err != nil {
			return err
		}
	}
	return nil
}
