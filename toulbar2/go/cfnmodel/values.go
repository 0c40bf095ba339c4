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
	"strconv"
)

// Value is a domain value: either an integer or a symbol. Symbolic values of a
// variable are numbered from zero in the order they were declared, and that number
// stands for the symbol wherever the API expects an integer.
type Value struct {
	i      int64
	s      string
	symbol bool
}

// IntValue returns the integer value `v`.
func IntValue(v int64) Value { return Value{i: v} }

// SymbolValue returns the symbolic value `s`.
func SymbolValue(s string) Value { return Value{s: s, symbol: true} }

// IsSymbol reports whether the value is symbolic.
func (v Value) IsSymbol() bool { return v.symbol }

// Int returns the integer held by the value, or 0 for a symbol.
func (v Value) Int() int64 { return v.i }

// Symbol returns the symbol held by the value, or "" for an integer.
func (v Value) Symbol() string { return v.s }

func (v Value) String() string {
	if v.symbol {
		return v.s
	}
	return strconv.FormatInt(v.i, 10)
}

// Range returns the integer values `lo, lo+1, ..., hi-1`.
func Range(lo, hi int64) []Value {
	var vs []Value
	for v := lo; v < hi; v++ {
		vs = append(vs, IntValue(v))
	}
	return vs
}

// Ints returns integer values.
func Ints(vs ...int64) []Value {
	out := make([]Value, len(vs))
	for i, v := range vs {
		out[i] = IntValue(v)
	}
	return out
}

// Symbols returns symbolic values.
func Symbols(ss ...string) []Value {
	out := make([]Value, len(ss))
	for i, s := range ss {
		out[i] = SymbolValue(s)
	}
	return out
}

// VarRef designates a variable either by name or by index.
type VarRef struct {
	name   string
	index  int
	byName bool
}

// VarName refers to the variable called `name`.
func VarName(name string) VarRef { return VarRef{name: name, byName: true} }

// VarIndex refers to the variable created at position `i`.
func VarIndex(i int) VarRef { return VarRef{index: i} }

// Name returns the name of a reference by name, and "" for a reference by index.
func (r VarRef) Name() string { return r.name }

// Names returns references to the named variables.
func Names(names ...string) []VarRef {
	out := make([]VarRef, len(names))
	for i, n := range names {
		out[i] = VarName(n)
	}
	return out
}

// Indices returns references to the variables at the given positions.
func Indices(is ...int) []VarRef {
	out := make([]VarRef, len(is))
	for i, x := range is {
		out[i] = VarIndex(x)
	}
	return out
}

func (r VarRef) String() string {
	if r.byName {
		return strconv.Quote(r.name)
	}
	return fmt.Sprintf("#%d", r.index)
}

// Term is one entry of a generalized linear constraint: `Coef` is added to the
// left-hand side when `Var` takes `Value`.
type Term struct {
	Var   VarRef
	Value Value
	Coef  int64
}
