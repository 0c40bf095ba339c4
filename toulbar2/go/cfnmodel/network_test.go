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
	"errors"
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"
)

var valueCmp = cmp.AllowUnexported(Value{})

func newNetwork(t *testing.T, cfg Config) *Network {
	t.Helper()
	n, err := New(nil, cfg)
	if err != nil {
		t.Fatalf("New() returned with unexpected error %v", err)
	}
	return n
}

func mustAddVariable(t *testing.T, n *Network, name string, values ...Value) int {
	t.Helper()
	x, err := n.AddVariable(name, values...)
	if err != nil {
		t.Fatalf("AddVariable(%q) returned with unexpected error %v", name, err)
	}
	return x
}

func mustPost(t *testing.T, err error) {
	t.Helper()
	if err != nil {
		t.Fatalf("posting returned with unexpected error %v", err)
	}
}

func TestNetwork_New(t *testing.T) {
	n := newNetwork(t, DefaultConfig())
	if !strings.HasPrefix(n.Name(), "cfn-") {
		t.Errorf("Name() = %q, want the cfn- prefix", n.Name())
	}
	if got := n.WCSP().Name(); got != n.Name() {
		t.Errorf("WCSP().Name() = %q, want %q", got, n.Name())
	}
	if got, want := n.Top(), float64(1<<60); got != want {
		t.Errorf("Top() = %v, want %v", got, want)
	}

	cfg := DefaultConfig()
	cfg.Resolution = 3
	cfg.Name = "scaled"
	m := newNetwork(t, cfg)
	if got, want := m.Top(), float64((1<<60)/1000); got != want {
		t.Errorf("Top() = %v, want %v", got, want)
	}
	if m.Name() != "scaled" || m.Resolution() != 3 {
		t.Errorf("Name(), Resolution() = %q, %v, want scaled, 3", m.Name(), m.Resolution())
	}
	if n.ID() == m.ID() {
		t.Errorf("two networks share the ID %v", n.ID())
	}

	cfg.Resolution = 12
	if _, err := New(nil, cfg); !errors.Is(err, ErrConfiguration) {
		t.Errorf("New() with resolution 12 returned %v, want ErrConfiguration", err)
	}
}

func TestNetwork_AddVariable(t *testing.T) {
	n := newNetwork(t, DefaultConfig())
	if got := mustAddVariable(t, n, "x", Ints(4, 1, 3)...); got != 0 {
		t.Errorf("AddVariable(x) = %v, want 0", got)
	}
	if got := mustAddVariable(t, n, "c", Symbols("red", "green", "blue")...); got != 1 {
		t.Errorf("AddVariable(c) = %v, want 1", got)
	}

	dom, err := n.Domain(VarName("x"))
	if err != nil {
		t.Fatalf("Domain(x) returned with unexpected error %v", err)
	}
	if diff := cmp.Diff(Ints(1, 3, 4), dom, valueCmp); diff != "" {
		t.Errorf("Domain(x) returned with unexpected diff (-want+got):\n%s", diff)
	}
	if got := n.WCSP().DomainInitSize(0); got != 4 {
		t.Errorf("DomainInitSize(x) = %v, want 4", got)
	}
	dom, err = n.Domain(VarIndex(1))
	if err != nil {
		t.Fatalf("Domain(#1) returned with unexpected error %v", err)
	}
	if diff := cmp.Diff(Symbols("red", "green", "blue"), dom, valueCmp); diff != "" {
		t.Errorf("Domain(c) returned with unexpected diff (-want+got):\n%s", diff)
	}
	values, err := n.VariableValues(VarName("x"))
	if err != nil {
		t.Fatalf("VariableValues(x) returned with unexpected error %v", err)
	}
	if diff := cmp.Diff(Ints(4, 1, 3), values, valueCmp); diff != "" {
		t.Errorf("VariableValues(x) returned with unexpected diff (-want+got):\n%s", diff)
	}

	names := []struct {
		ref   VarRef
		value Value
		want  string
	}{
		{VarName("x"), IntValue(3), "v3"},
		{VarName("c"), SymbolValue("green"), "green"},
		{VarIndex(1), IntValue(2), "blue"},
	}
	for _, test := range names {
		got, err := n.ValueName(test.ref, test.value)
		if err != nil || got != test.want {
			t.Errorf("ValueName(%v, %v) = %q, %v, want %q, nil", test.ref, test.value, got, err, test.want)
		}
	}
	if diff := cmp.Diff([]string{"x", "c"}, n.VariableNames()); diff != "" {
		t.Errorf("VariableNames() returned with unexpected diff (-want+got):\n%s", diff)
	}
	if x, ok := n.VariableIndex("c"); !ok || x != 1 {
		t.Errorf("VariableIndex(c) = %v, %v, want 1, true", x, ok)
	}
	if n.NbVariables() != 2 {
		t.Errorf("NbVariables() = %v, want 2", n.NbVariables())
	}
}

func TestNetwork_AddVariableErrors(t *testing.T) {
	testCases := []struct {
		desc   string
		name   string
		values []Value
	}{
		{desc: "duplicate name", name: "x", values: Ints(0, 1)},
		{desc: "empty domain", name: "y"},
		{desc: "mixed kinds", name: "z", values: []Value{IntValue(0), SymbolValue("a")}},
		{desc: "duplicate value", name: "w", values: Ints(0, 1, 0)},
	}
	for _, test := range testCases {
		t.Run(test.desc, func(t *testing.T) {
			n := newNetwork(t, DefaultConfig())
			mustAddVariable(t, n, "x", Ints(0, 1)...)
			if _, err := n.AddVariable(test.name, test.values...); !errors.Is(err, ErrConfiguration) {
				t.Errorf("AddVariable(%q, %v) returned %v, want ErrConfiguration", test.name, test.values, err)
			}
		})
	}

	n := newNetwork(t, DefaultConfig())
	n.Store()
	if _, err := n.AddVariable("x", Ints(0, 1)...); !errors.Is(err, ErrState) {
		t.Errorf("AddVariable() at depth 1 returned %v, want ErrState", err)
	}
}

func TestNetwork_UnknownVariables(t *testing.T) {
	n := newNetwork(t, DefaultConfig())
	mustAddVariable(t, n, "x", Ints(0, 1)...)
	mustAddVariable(t, n, "y", Ints(0, 1)...)

	testCases := []struct {
		desc  string
		scope []VarRef
	}{
		{"unknown name", Names("x", "nope")},
		{"index out of range", Indices(0, 2)},
		{"negative index", Indices(-1)},
		{"duplicate variable", []VarRef{VarName("x"), VarIndex(0)}},
	}
	for _, test := range testCases {
		t.Run(test.desc, func(t *testing.T) {
			size := 1
			for range test.scope {
				size *= 2
			}
			if err := n.AddFunction(test.scope, make([]float64, size)); !errors.Is(err, ErrConfiguration) {
				t.Errorf("AddFunction(%v) returned %v, want ErrConfiguration", test.scope, err)
			}
		})
	}
	if _, err := n.ValueName(VarName("x"), IntValue(5)); !errors.Is(err, ErrConfiguration) {
		t.Errorf("ValueName(x, 5) returned %v, want ErrConfiguration", err)
	}
	if _, err := n.ValueName(VarName("x"), SymbolValue("a")); !errors.Is(err, ErrConfiguration) {
		t.Errorf("ValueName(x, a) returned %v, want ErrConfiguration", err)
	}
}
