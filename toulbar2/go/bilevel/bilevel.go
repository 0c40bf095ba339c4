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

// Package bilevel builds a bilevel problem as three successive levels of one network:
// the restricted leader, the follower, and the follower with negated costs. The lower
// bound of each level is moved out of the network when the level is closed, so that a
// bilevel search can split the combined bound back per level.
package bilevel

import (
		"fmt"
	"slices"

	log "github.com/golang/glog"

	"github.com/toulbar2/toulbar2/toulbar2/go/cfnmodel"
	"github.com/toulbar2/toulbar2/toulbar2/go/wcsp"
)

// ErrFailed is returned by every call on a composer after a level failed to build. The
// failed level may have left variables and cost functions in the network, so the
// network has to be discarded.
var ErrFailed = fmt.Errorf("bilevel: a level failed to build: %w", cfnmodel.ErrState)

// Level is a part of a bilevel problem.
type Level int

const (
	Leader Level = iota
	Follower
	NegatedFollower
	done
)

func (l Level) String() string {
	switch l {
	case Leader:
		return "leader"
	case Follower:
		return "follower"
	case NegatedFollower:
		return "negated follower"
	}
	return "finished"
}

// Bounds is the per-level bookkeeping of a finished problem, indexed by Level. Costs
// are backend costs.
type Bounds struct {
	InitialLb      [3]wcsp.Cost
	NegCost        [3]wcsp.Cost
	Resolution     [3]int
	CostMultiplier [3]float64
	InitialUb      [3]wcsp.Cost
}

// Composer adds the levels of a bilevel problem to a network, in order.
type Composer struct {
	net    *cfnmodel.Network
	next   Level
	bounds Bounds
	// vars and records hold the variable names and the record range of each level.
	vars    [3][]string
	records [3][2]int
	// failed is the level whose build returned an error.
	failed *Level
}

// New returns a composer for net, which must be at depth 0 and not solved yet.
func New(net *cfnmodel.Network) (*Composer, error) {
	if d := net.Depth(); d != 0 {
		return nil, fmt.Errorf("bilevel problem on a network at depth %d: %w", d, cfnmodel.ErrState)
	}
	return &Composer{net: net}, nil
}

// Network returns the network the levels are added to.
func (c *Composer) Network() *cfnmodel.Network { return c.net }

// Variables returns the names of the variables created by a level.
func (c *Composer) Variables(l Level) []string {
	return slices.Clone(c.vars[l])
}

func (c *Composer) level(l Level, build func(*cfnmodel.Network) error) error {
	if c.failed != nil {
		return fmt.Errorf("adding the %v level after the %v level: %w", l, *c.failed, ErrFailed)
	}
	if c.next != l {
		return fmt.Errorf("adding the %v level when the %v level is expected: %w", l, c.next, cfnmodel.ErrState)
	}
	nvars := c.net.NbVariables()
	start := len(c.net.Records())
	if err := build(c.net); err != nil {
		c.failed = &l
		log.Warningf("bilevel: %v level failed with %d new variables and %d new cost functions", l, c.net.NbVariables()-nvars, len(c.net.Records())-start)
		return fmt.Errorf("%v level: %w", l, err)
	}
	c.vars[l] = c.net.VariableNames()[nvars:]
	c.records[l] = [2]int{start, len(c.net.Records())}
	c.close(l)
	return nil
}

// close moves the lower bound and the negative costs of the level out of the network.
func (c *Composer) close(l Level) {
	w := c.net.WCSP()
	c.bounds.InitialLb[l] = w.Lb()
	w.SetLb(0)
	c.bounds.NegCost[l] = w.NegativeLb()
	w.SetNegativeLb(0)
	c.bounds.Resolution[l] = c.net.Resolution()
	log.V(1).Infof("bilevel: %v level has %d variables, lb %d, negative costs %d", l, len(c.vars[l]), c.bounds.InitialLb[l], c.bounds.NegCost[l])
	c.next = l + 1
}

// Leader adds the restricted leader problem: its variables and the leader objective.
func (c *Composer) Leader(build func(*cfnmodel.Network) error) error {
	return c.level(Leader, build)
}

// Follower adds the follower problem, including the hard constraints of the leader
// that involve follower variables.
func (c *Composer) Follower(build func(*cfnmodel.Network) error) error {
	return c.level(Follower, build)
}

// NegatedFollower adds the follower problem on copies of the follower variables, with
// costs negated.
func (c *Composer) NegatedFollower(build func(*cfnmodel.Network) error) error {
	return c.level(NegatedFollower, build)
}

// MirrorFollower adds the negated follower level by copying the follower level: each
// follower variable is duplicated under its name with suffix appended, and each
// element of the follower level is posted again on the copies, with costs negated.
// Forbidden costs stay forbidden.
func (c *Composer) MirrorFollower(suffix string) error {
	return c.NegatedFollower(func(net *cfnmodel.Network) error {
		renamed := make(map[string]string, len(c.vars[Follower]))
		for _, name := range c.vars[Follower] {
			values, err := net.VariableValues(cfnmodel.VarName(name))
			if err != nil {
				return err
			}
			renamed[name] = name + suffix
			if _, err := net.AddVariable(name+suffix, values...); err != nil {
				return err
			}
		}
		rename := func(name string) string {
			if r, ok := renamed[name]; ok {
				return r
			}
			return name
		}
		r := c.records[Follower]
		for _, rec := range net.Records()[r[0]:r[1]] {
			rec.Scope = slices.Clone(rec.Scope)
			for i, name := range rec.Scope {
				rec.Scope[i] = rename(name)
			}
			rec.Terms = slices.Clone(rec.Terms)
			for i, t := range rec.Terms {
				rec.Terms[i].Var = cfnmodel.VarName(rename(t.Var.Name()))
			}
			if err := net.Apply(rec, -1); err != nil {
				return err
			}
		}
		return nil
	})
}

// Finish restores the combined bound of the leader and the negated follower, which is
// what a bilevel search starts from, and returns the bookkeeping of every level.
func (c *Composer) Finish() (Bounds, error) {
	switch {
	case c.failed != nil:
		return Bounds{}, fmt.Errorf("finishing after the %v level: %w", *c.failed, ErrFailed)
	case c.next < done:
		return Bounds{}, fmt.Errorf("finishing a bilevel problem before the %v level: %w", c.next, cfnmodel.ErrState)
	case c.next > done:
		return Bounds{}, fmt.Errorf("bilevel problem already finished: %w", cfnmodel.ErrState)
	}
	w := c.net.WCSP()
	w.SetLb(wcsp.AddCost(c.bounds.InitialLb[Leader], c.bounds.InitialLb[NegatedFollower]))
	w.SetNegativeLb(wcsp.AddCost(c.bounds.NegCost[Leader], c.bounds.NegCost[NegatedFollower]))
	c.bounds.CostMultiplier = [3]float64{1, 1, -1}
	c.bounds.InitialUb = [3]wcsp.Cost{wcsp.MaxCost, wcsp.MaxCost, wcsp.MaxCost}
	c.next = done + 1
	return c.bounds, nil
}
