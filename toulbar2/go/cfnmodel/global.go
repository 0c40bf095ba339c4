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
	"strings"

	log "github.com/golang/glog"

	"github.com/toulbar2/toulbar2/toulbar2/go/wcsp"
)

// toParam converts a global function parameter. Slices become groups, so nested lists
// are flattened in order.
func toParam(p any) wcsp.Param {
	switch v := p.(type) {
	case wcsp.Param:
		return v
	case string:
		return wcsp.Token(v)
	case int:
		return wcsp.Int(int64(v))
	case int64:
		return wcsp.Int(v)
	case []any:
		ps := make([]wcsp.Param, len(v))
		for i, e := range v {
			ps[i] = toParam(e)
		}
		return wcsp.Group(ps...)
	case []int:
		ps := make([]wcsp.Param, len(v))
		for i, e := range v {
			ps[i] = wcsp.Int(int64(e))
		}
		return wcsp.Group(ps...)
	case []int64:
		ps := make([]wcsp.Param, len(v))
		for i, e := range v {
			ps[i] = wcsp.Int(e)
		}
		return wcsp.Group(ps...)
	case []string:
		ps := make([]wcsp.Param, len(v))
		for i, e := range v {
			ps[i] = wcsp.Token(e)
		}
		return wcsp.Group(ps...)
	}
	return wcsp.Token(fmt.Sprint(p))
}

// AddGlobalFunction adds a global cost function known to the backend by name. The
// parameters are written in order, separated by spaces; slices are expanded.
//
// For example
//
//	AddGlobalFunction(Names("x1", "x2", "x3", "x4"), "wamong", "hard", 1000, 2, 1, 2, 1, 3)
//
// is satisfied iff the values 1 or 2 are taken between one and three times, and costs
// 1000 otherwise.
func (n *Network) AddGlobalFunction(scope []VarRef, name string, params ...any) error {
	xs, err := n.scope(scope)
	if err != nil {
		return err
	}
	if err := n.checkDepth("global function " + name); err != nil {
		return err
	}
	ps := make([]wcsp.Param, len(params))
	for i, p := range params {
		ps[i] = toParam(p)
	}
	joined := strings.Join(wcsp.Flatten(ps...), " ")
	if _, err := n.w.PostGlobalFunction(xs, name, joined); err != nil {
		return fmt.Errorf("global function %s(%s): %w", name, joined, err)
	}
	n.record(Record{Kind: KindGlobal, Scope: n.scopeNames(xs), Name: name, Params: joined})
	return nil
}

// AddWeightedCSPConstraint adds the constraint that the optimum of follower, restricted
// to the values of its variables in this network, lies in `[lb,ub)`. Follower
// variables missing from this network are created with the same domains. The backend
// receives the follower problem and a copy with negated costs; duplicateHard and
// strongDuality are passed through to it.
func (n *Network) AddWeightedCSPConstraint(follower *Network, lb, ub float64, duplicateHard, strongDuality bool) error {
	if follower == n {
		return fmt.Errorf("a network cannot bound itself: %w", ErrConfiguration)
	}
	if !follower.Replayable() {
		return fmt.Errorf("follower %s has elements without records: %w", follower.Name(), ErrConfiguration)
	}
	if err := n.checkDepth("weighted CSP constraint"); err != nil {
		return err
	}
	scope := make([]int, len(follower.vars))
	for i, v := range follower.vars {
		x, ok := n.index[v.name]
		if !ok {
			var err error
			if x, err = n.AddVariable(v.name, v.values...); err != nil {
				return err
			}
		} else if n.w.DomainInitSize(x) != follower.w.DomainInitSize(i) {
			return fmt.Errorf("variable %s has %d values here and %d in %s: %w", v.name, n.w.DomainInitSize(x), follower.w.DomainInitSize(i), follower.Name(), ErrConfiguration)
		}
		scope[i] = x
	}
	twin, err := follower.negated()
	if err != nil {
		return err
	}
	ilb, iub := follower.toBound(lb), follower.toBound(ub)
	if _, err := n.w.PostWeightedCSPConstraint(scope, follower.w, twin.w, ilb, iub, duplicateHard, strongDuality); err != nil {
		return err
	}
	log.V(1).Infof("cfnmodel: %s bounds %s to [%d,%d)", n.Name(), follower.Name(), ilb, iub)
	n.record(Record{Kind: KindWeightedCSP, Scope: n.scopeNames(scope)})
	return nil
}

// negated returns a copy of the network with every finite cost negated.
func (n *Network) negated() (*Network, error) {
	cfg := n.cfg
	cfg.Name = n.cfg.Name + "-neg"
	cfg.UbInit = nil
	twin, err := New(n.backend, cfg)
	if err != nil {
		return nil, err
	}
	for _, v := range n.vars {
		if _, err := twin.AddVariable(v.name, v.values...); err != nil {
			return nil, err
		}
	}
	for _, r := range n.records {
		if err := twin.Apply(r, -1); err != nil {
			return nil, err
		}
	}
	return twin, nil
}
