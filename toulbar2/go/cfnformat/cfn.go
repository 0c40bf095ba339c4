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

// Package cfnformat reads and writes cost function network documents (`.cfn`).
//
// A document has three sections: `problem` (name and the `mustbe` bound), `variables`
// (name to domain) and `functions` (name to scope and costs). Section order and key
// order are significant, so documents are processed as yaml.v3 node trees rather than
// through maps. Output is flow style with double-quoted strings, which is valid JSON.
package cfnformat

import (
	"errors"
	"fmt"
	"io"
	"os"
	"regexp"
	"strconv"
	"strings"

	"gopkg.in/yaml.v3"
)

// ErrFormat is returned for documents that do not follow the layout.
var ErrFormat = errors.New("malformed cfn document")

// Document is a parsed `.cfn` file.
type Document struct {
	Problem   Problem
	Variables []Variable
	Functions []Function
}

// Problem holds the problem name and its bound, e.g. `<12.5`.
type Problem struct {
	Name   string
	MustBe string
}

// Variable is a named domain. When Values is empty the domain is `0..Size-1`.
type Variable struct {
	Name   string
	Values []string
	Size   int
}

// DomainSize returns the number of values of the variable.
func (v Variable) DomainSize() int {
	if len(v.Values) > 0 {
		return len(v.Values)
	}
	return v.Size
}

var intValueName = regexp.MustCompile(`^v(-?\d+)$`)

// IntegerDomain reports whether the values of the variable are consecutive integers and
// returns the first one. A domain given by its size starts at 0; listed values must be
// named `v<k>`.
func (v Variable) IntegerDomain() (int64, bool) {
	if len(v.Values) == 0 {
		return 0, v.Size > 0
	}
	var first int64
	for i, name := range v.Values {
		m := intValueName.FindStringSubmatch(name)
		if m == nil {
			return 0, false
		}
		k, err := strconv.ParseInt(m[1], 10, 64)
		if err != nil {
			return 0, false
		}
		if i == 0 {
			first = k
		} else if k != first+int64(i) {
			return 0, false
		}
	}
	return first, true
}

// Function is a cost function. A table function has either dense Costs (last scope
// variable fastest) or a DefaultCost with explicit Tuples. A global function has a Type
// and Params instead.
type Function struct {
	Name        string
	Scope       []string
	DefaultCost *float64
	Costs       []float64
	Tuples      [][]string
	TupleCosts  []float64
	Type        string
	Params      string
}

// ParseMustBe splits a bound such as `<10.5` into its comparator and value.
func ParseMustBe(s string) (byte, float64, error) {
	s = strings.TrimSpace(s)
	if len(s) < 2 || (s[0] != '<' && s[0] != '>') {
		return 0, 0, fmt.Errorf("mustbe %q: %w", s, ErrFormat)
	}
	f, err := strconv.ParseFloat(strings.TrimSpace(s[1:]), 64)
	if err != nil {
		return 0, 0, fmt.Errorf("mustbe %q: %w", s, err)
	}
	return s[0], f, nil
}

// ReadFile reads a document from a file.
func ReadFile(name string) (*Document, error) {
	f, err := os.Open(name)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	return Read(f)
}

// WriteFile writes a document to a file.
func WriteFile(name string, d *Document) error {
	f, err := os.Create(name)
	if err != nil {
		return err
	}
	if err := Write(f, d); err != nil {
		f.Close()
		return err
	}
	return f.Close()
}

// Read parses a document.
func Read(r io.Reader) (*Document, error) {
	var root yaml.Node
	if err := yaml.NewDecoder(r).Decode(&root); err != nil {
		return nil, fmt.Errorf("decoding cfn document: %w", err)
	}
	if root.Kind != yaml.DocumentNode || len(root.Content) != 1 || root.Content[0].Kind != yaml.MappingNode {
		return nil, fmt.Errorf("top level is not an object: %w", ErrFormat)
	}
	d := &Document{}
	err := eachPair(root.Content[0], func(key string, val *yaml.Node) error {
		switch key {
		case "problem":
			return readProblem(val, &d.Problem)
		case "variables":
			return readVariables(val, d)
		case "functions":
			return readFunctions(val, d)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return d, nil
}

func eachPair(n *yaml.Node, fn func(key string, val *yaml.Node) error) error {
	if n.Kind != yaml.MappingNode {
		return fmt.Errorf("line %d: expected an object: %w", n.Line, ErrFormat)
	}
	for i := 0; i+1 < len(n.Content); i += 2 {
		if err := fn(n.Content[i].Value, n.Content[i+1]); err != nil {
			return err
		}
	}
	return nil
}

func scalar(n *yaml.Node) (string, error) {
	if n.Kind != yaml.ScalarNode {
		return "", fmt.Errorf("line %d: expected a scalar: %w", n.Line, ErrFormat)
	}
	return n.Value, nil
}

func number(n *yaml.Node) (float64, error) {
	s, err := scalar(n)
	if err != nil {
		return 0, err
	}
	f, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 0, fmt.Errorf("line %d: %w", n.Line, err)
	}
	return f, nil
}

func stringList(n *yaml.Node) ([]string, error) {
	if n.Kind != yaml.SequenceNode {
		return nil, fmt.Errorf("line %d: expected an array: %w", n.Line, ErrFormat)
	}
	out := make([]string, 0, len(n.Content))
	for _, c := range n.Content {
		s, err := scalar(c)
		if err != nil {
			return nil, err
		}
		out = append(out, s)
	}
	return out, nil
}

func readProblem(n *yaml.Node, p *Problem) error {
	return eachPair(n, func(key string, val *yaml.Node) error {
		var err error
		switch key {
		case "name":
			p.Name, err = scalar(val)
		case "mustbe":
			p.MustBe, err = scalar(val)
		}
		return err
	})
}

func readVariables(n *yaml.Node, d *Document) error {
	return eachPair(n, func(key string, val *yaml.Node) error {
		v := Variable{Name: key}
		switch val.Kind {
		case yaml.SequenceNode:
			names, err := stringList(val)
			if err != nil {
				return err
			}
			v.Values = names
		case yaml.ScalarNode:
			size, err := strconv.Atoi(val.Value)
			if err != nil || size <= 0 {
				return fmt.Errorf("variable %s: domain size %q: %w", key, val.Value, ErrFormat)
			}
			v.Size = size
		default:
			return fmt.Errorf("variable %s: %w", key, ErrFormat)
		}
		d.Variables = append(d.Variables, v)
		return nil
	})
}

func readFunctions(n *yaml.Node, d *Document) error {
	return eachPair(n, func(key string, val *yaml.Node) error {
		f := Function{Name: key}
		var costs []string
		err := eachPair(val, func(k string, v *yaml.Node) error {
			var err error
			switch k {
			case "scope":
				f.Scope, err = stringList(v)
			case "defaultcost":
				var c float64
				if c, err = number(v); err == nil {
					f.DefaultCost = &c
				}
			case "costs":
				costs, err = stringList(v)
			case "type":
				f.Type, err = scalar(v)
			case "params":
				var ps []string
				if ps, err = stringList(v); err == nil {
					f.Params = strings.Join(ps, " ")
				}
			}
			return err
		})
		if err != nil {
			return fmt.Errorf("function %s: %w", key, err)
		}
		if f.Type == "" {
			if err := fillCosts(&f, costs); err != nil {
				return fmt.Errorf("function %s: %w", key, err)
			}
		}
		d.Functions = append(d.Functions, f)
		return nil
	})
}

func fillCosts(f *Function, tokens []string) error {
	if f.DefaultCost == nil {
		for _, t := range tokens {
			c, err := strconv.ParseFloat(t, 64)
			if err != nil {
				return err
			}
			f.Costs = append(f.Costs, c)
		}
		return nil
	}
	width := len(f.Scope) + 1
	if len(tokens)%width != 0 {
		return fmt.Errorf("%d cost tokens for arity %d: %w", len(tokens), len(f.Scope), ErrFormat)
	}
	for i := 0; i < len(tokens); i += width {
		c, err := strconv.ParseFloat(tokens[i+width-1], 64)
		if err != nil {
			return err
		}
		f.Tuples = append(f.Tuples, append([]string(nil), tokens[i:i+width-1]...))
		f.TupleCosts = append(f.TupleCosts, c)
	}
	return nil
}

func str(s string) *yaml.Node {
	return &yaml.Node{Kind: yaml.ScalarNode, Style: yaml.DoubleQuotedStyle, Value: s}
}

func num(f float64) *yaml.Node {
	return &yaml.Node{Kind: yaml.ScalarNode, Value: strconv.FormatFloat(f, 'g', -1, 64)}
}

func object() *yaml.Node {
	return &yaml.Node{Kind: yaml.MappingNode, Style: yaml.FlowStyle}
}

func array(items ...*yaml.Node) *yaml.Node {
	return &yaml.Node{Kind: yaml.SequenceNode, Style: yaml.FlowStyle, Content: items}
}

func set(m *yaml.Node, key string, val *yaml.Node) {
	m.Content = append(m.Content, str(key), val)
}

// Write encodes a document.
func Write(w io.Writer, d *Document) error {
	problem := object()
	set(problem, "name", str(d.Problem.Name))
	set(problem, "mustbe", str(d.Problem.MustBe))

	vars := object()
	for _, v := range d.Variables {
		if len(v.Values) == 0 {
			set(vars, v.Name, num(float64(v.Size)))
			continue
		}
		dom := array()
		for _, name := range v.Values {
			dom.Content = append(dom.Content, str(name))
		}
		set(vars, v.Name, dom)
	}

	funcs := object()
	for i, f := range d.Functions {
		fn := object()
		scope := array()
		for _, x := range f.Scope {
			scope.Content = append(scope.Content, str(x))
		}
		set(fn, "scope", scope)
		switch {
		case f.Type != "":
			set(fn, "type", str(f.Type))
			params := array()
			for _, p := range strings.Fields(f.Params) {
				params.Content = append(params.Content, str(p))
			}
			set(fn, "params", params)
		case f.DefaultCost != nil:
			if len(f.Tuples) != len(f.TupleCosts) {
				return fmt.Errorf("function %s: %d tuples but %d costs: %w", f.Name, len(f.Tuples), len(f.TupleCosts), ErrFormat)
			}
			set(fn, "defaultcost", num(*f.DefaultCost))
			costs := array()
			for j, t := range f.Tuples {
				for _, v := range t {
					costs.Content = append(costs.Content, str(v))
				}
				costs.Content = append(costs.Content, num(f.TupleCosts[j]))
			}
			set(fn, "costs", costs)
		default:
			costs := array()
			for _, c := range f.Costs {
				costs.Content = append(costs.Content, num(c))
			}
			set(fn, "costs", costs)
		}
		name := f.Name
		if name == "" {
			name = "f" + strconv.Itoa(i)
		}
		set(funcs, name, fn)
	}

	top := object()
	set(top, "problem", problem)
	set(top, "variables", vars)
	set(top, "functions", funcs)

	enc := yaml.NewEncoder(w)
	if err := enc.Encode(&yaml.Node{Kind: yaml.DocumentNode, Content: []*yaml.Node{top}}); err != nil {
		return fmt.Errorf("encoding cfn document: %w", err)
	}
	return enc.Close()
}
