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

// Package multicfn combines several cost function networks into a weighted sum, and
// approximates the Pareto front of two of them.
package multicfn

import (
	"fmt"
	"slices"

	log "github.com/golang/glog"

	"github.com/toulbar2/toulbar2/toulbar2/go/cfnmodel"
)

type variable struct {
	name   string
	values []cfnmodel.Value
}

// member is a network as it was when pushed. Later changes to the network are not
// seen by the combination.
type member struct {
	net        *cfnmodel.Network
	weight     float64
	resolution int
	vars       []variable
	records    []cfnmodel.Record
	replayable bool
}

// MultiCFN is a weighted sum of cost function networks. Variables with the same name
// are the same variable in the sum.
type MultiCFN struct {
	members []member
}

// New returns an empty combination.
func New() *MultiCFN {
	return &MultiCFN{}
}

// Push adds a network with the given weight and returns its index. Its variables and
// model elements are copied. A network whose elements cannot be replayed, such as one
// read by the backend from a non-.cfn file, makes InitFrom and Build fail.
func (m *MultiCFN) Push(net *cfnmodel.Network, weight float64) int {
	mb := member{
		net:        net,
		weight:     weight,
		resolution: net.Resolution(),
		records:    net.Records(),
		replayable: net.Replayable(),
	}
	for _, name := range net.VariableNames() {
		values, err := net.VariableValues(cfnmodel.VarName(name))
		if err != nil {
			log.Fatalf("multicfn: variable %s of %s: %v", name, net.Name(), err)
		}
		mb.vars = append(mb.vars, variable{name: name, values: values})
	}
	m.members = append(m.members, mb)
	return len(m.members) - 1
}

func (m *MultiCFN) check(i int) error {
	if i < 0 || i >= len(m.members) {
		return fmt.Errorf("network index %d out of range [0,%d): %w", i, len(m.members), cfnmodel.ErrConfiguration)
	}
	return nil
}

// SetWeight changes the weight of network i.
func (m *MultiCFN) SetWeight(i int, weight float64) error {
	if err := m.check(i); err != nil {
		return err
	}
	m.members[i].weight = weight
	return nil
}

// Weight returns the weight of network i.
func (m *MultiCFN) Weight(i int) float64 {
	if err := m.check(i); err != nil {
		log.Fatalf("multicfn: %v", err)
	}
	return m.members[i].weight
}

// NbNetworks returns the number of networks pushed.
func (m *MultiCFN) NbNetworks() int { return len(m.members) }

// NetworkName returns the name of network i.
func (m *MultiCFN) NetworkName(i int) string {
	if err := m.check(i); err != nil {
		log.Fatalf("multicfn: %v", err)
	}
	return m.members[i].net.Name()
}

// Resolution returns the largest resolution of the networks pushed.
func (m *MultiCFN) Resolution() int {
	res := 0
	for _, mb := range m.members {
		res = max(res, mb.resolution)
	}
	return res
}

func (m *MultiCFN) weights() []float64 {
	ws := make([]float64, len(m.members))
	for i, mb := range m.members {
		ws[i] = mb.weight
	}
	return ws
}

// Filter restricts the part of the combination copied by InitFrom. Nil fields do not
// filter anything.
type Filter struct {
	// Vars lists the variables to create. Elements on other variables are dropped.
	Vars []string
	// Scopes lists the variable sets whose elements are kept, in any order.
	Scopes [][]string
	// Constrs lists the indices of the elements kept, counting the elements of all
	// networks in push order.
	Constrs []int
}

func (f Filter) empty() bool {
	return f.Vars == nil && f.Scopes == nil && f.Constrs == nil
}

func sameSet(a, b []string) bool {
	if len(a) != len(b) {
		return false
	}
	for _, s := range a {
		if !slices.Contains(b, s) {
			return false
		}
	}
	return true
}

func (f Filter) keeps(index int, r cfnmodel.Record) bool {
	if f.Constrs != nil && !slices.Contains(f.Constrs, index) {
		return false
	}
	if f.Vars != nil {
		for _, name := range r.Scope {
			if !slices.Contains(f.Vars, name) {
				return false
			}
		}
	}
	if f.Scopes != nil && !slices.ContainsFunc(f.Scopes, func(s []string) bool { return sameSet(s, r.Scope) }) {
		return false
	}
	return true
}

// InitFrom posts the weighted sum of the networks into target, which is usually empty.
// Variables already in target must have the same values. Costs are scaled by the
// weight of their network and forbidden costs stay forbidden. Constant costs are
// copied only when the filter is empty.
func (m *MultiCFN) InitFrom(target *cfnmodel.Network, f Filter) error {
	return m.export(target, m.weights(), f)
}

func (m *MultiCFN) export(target *cfnmodel.Network, weights []float64, f Filter) error {
	for _, mb := range m.members {
		if !mb.replayable {
			return fmt.Errorf("%s has elements without records: %w", mb.net.Name(), cfnmodel.ErrConfiguration)
		}
	}
	for _, mb := range m.members {
		if mb.resolution != target.Resolution() {
			log.V(1).Infof("multicfn: %s has resolution %d, %s has %d", mb.net.Name(), mb.resolution, target.Name(), target.Resolution())
		}
		for _, v := range mb.vars {
			if f.Vars != nil && !slices.Contains(f.Vars, v.name) {
				continue
			}
			if _, ok := target.VariableIndex(v.name); !ok {
				if _, err := target.AddVariable(v.name, v.values...); err != nil {
					return err
				}
				continue
			}
			values, err := target.VariableValues(cfnmodel.VarName(v.name))
			if err != nil {
				return err
			}
			if !slices.Equal(values, v.values) {
				return fmt.Errorf("variable %s has values %v in %s and %v in %s: %w", v.name, v.values, mb.net.Name(), values, target.Name(), cfnmodel.ErrConfiguration)
			}
		}
	}

	index := 0
	for i, mb := range m.members {
		for _, r := range mb.records {
			k := index
			index++
			if r.Kind == cfnmodel.KindNullary && !f.empty() {
				continue
			}
			if !f.keeps(k, r) {
				continue
			}
			if err := target.Apply(r, weights[i]); err != nil {
				return fmt.Errorf("element %d (%v) of %s: %w", k, r.Kind, mb.net.Name(), err)
			}
		}
	}
	return nil
}

// Build returns a new network holding the weighted sum. Its resolution is raised to
// the largest resolution of the networks when cfg asks for less.
func (m *MultiCFN) Build(backend cfnmodel.Backend, cfg cfnmodel.Config) (*cfnmodel.Network, error) {
	return m.build(backend, cfg, m.weights())
}

func (m *MultiCFN) build(backend cfnmodel.Backend, cfg cfnmodel.Config, weights []float64) (*cfnmodel.Network, error) {
	if res := m.Resolution(); cfg.Resolution < res {
		log.V(1).Infof("multicfn: resolution raised from %d to %d", cfg.Resolution, res)
		cfg.Resolution = res
	}
	net, err := cfnmodel.New(backend, cfg)
	if err != nil {
		return nil, err
	}
	if err := m.export(net, weights, Filter{}); err != nil {
		return nil, err
	}
	return net, nil
}

// SolutionCosts returns the cost of an assignment in each network, unweighted. The
// assignment is given by variable name and must cover the variables of every network.
func (m *MultiCFN) SolutionCosts(assignment map[string]cfnmodel.Value) ([]float64, error) {
	costs := make([]float64, len(m.members))
	for i, mb := range m.members {
		c, err := mb.net.Evaluate(assignment)
		if err != nil {
			return nil, fmt.Errorf("network %s: %w", mb.net.Name(), err)
		}
		costs[i] = c
	}
	return costs, nil
}
