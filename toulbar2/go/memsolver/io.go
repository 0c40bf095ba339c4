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

package memsolver

import (
	"bufio"
	"fmt"
	"math"
	"os"
	"strconv"
	"strings"

	log "github.com/golang/glog"
	"github.com/toulbar2/toulbar2/toulbar2/go/cfnformat"
	"github.com/toulbar2/toulbar2/toulbar2/go/wcsp"
)

func (w *WCSP) scale() float64 { return math.Pow10(w.opts.DecimalPoint) }

func (w *WCSP) toDecimal(c wcsp.Cost) float64 { return float64(c) / w.scale() }

func (w *WCSP) toCost(d float64) wcsp.Cost {
	r := math.Round(d * w.scale())
	if r >= float64(wcsp.MaxCost) {
		return wcsp.MaxCost
	}
	if r <= -float64(wcsp.MaxCost) {
		return -wcsp.MaxCost
	}
	return wcsp.Cost(r)
}

// Dump writes the problem in the requested format.
func (s *Solver) Dump(filename string, withNames bool, format wcsp.Format) error {
	switch format {
	case wcsp.FormatCFN:
		return cfnformat.WriteFile(filename, s.w.document(withNames))
	case wcsp.FormatWCSP:
		return s.w.dumpWCSP(filename)
	}
	return fmt.Errorf("dump format %d: %w", format, wcsp.ErrUnsupported)
}

func (w *WCSP) varValueNames(x int, withNames bool) []string {
	v := w.vars[x]
	names := make([]string, w.DomainInitSize(x))
	for i := range names {
		if withNames {
			names[i] = w.ValueName(x, i)
		} else {
			names[i] = "v" + strconv.FormatInt(int64(v.inf)+int64(i), 10)
		}
	}
	return names
}

func (w *WCSP) document(withNames bool) *cfnformat.Document {
	d := &cfnformat.Document{
		Problem: cfnformat.Problem{
			Name:   w.name,
			MustBe: "<" + strconv.FormatFloat(w.toDecimal(w.ub-w.negLb), 'g', -1, 64),
		},
	}
	valueNames := make([][]string, len(w.vars))
	for x, v := range w.vars {
		valueNames[x] = w.varValueNames(x, withNames)
		d.Variables = append(d.Variables, cfnformat.Variable{Name: v.name, Values: valueNames[x]})
	}
	name := func(x int, val wcsp.Value) string { return valueNames[x][w.ToIndex(x, val)] }
	scopeNames := func(vars []int) []string {
		out := make([]string, len(vars))
		for i, x := range vars {
			out[i] = w.vars[x].name
		}
		return out
	}

	if c := w.lb - w.negLb; c != 0 {
		d.Functions = append(d.Functions, cfnformat.Function{Name: "lb", Scope: []string{}, Costs: []float64{w.toDecimal(c)}})
	}
	// Removed values become forbidden unary costs so the initial domains are kept.
	for x, v := range w.vars {
		if v.dom.Size() == w.DomainInitSize(x) {
			continue
		}
		costs := make([]float64, w.DomainInitSize(x))
		for i := range costs {
			if !v.dom.Contains(w.ToValue(x, i)) {
				costs[i] = w.toDecimal(wcsp.MaxCost)
			}
		}
		d.Functions = append(d.Functions, cfnformat.Function{Name: "dom_" + v.name, Scope: []string{v.name}, Costs: costs})
	}
	for i, p := range w.ctrs {
		f := cfnformat.Function{Name: "c" + strconv.Itoa(i), Scope: scopeNames(p.c.scope())}
		switch c := p.c.(type) {
		case *table:
			for _, cost := range c.costs {
				f.Costs = append(f.Costs, w.toDecimal(cost))
			}
		case *nary:
			def := w.toDecimal(c.def)
			f.DefaultCost = &def
			for _, t := range c.tuples {
				names := make([]string, len(t))
				for j, val := range t {
					names[j] = name(c.vars[j], val)
				}
				f.Tuples = append(f.Tuples, names)
				f.TupleCosts = append(f.TupleCosts, w.toDecimal(c.costs[tupleKey(t)]))
			}
		case *knapsack:
			f.Type, f.Params = "knapsackp", c.raw
		case *allDifferent:
			f.Type, f.Params = c.kind, c.params
		case *among:
			f.Type, f.Params = "wamong", c.params
		default:
			log.Warningf("memsolver: cost function %d of type %T is not written", i, p.c)
			continue
		}
		d.Functions = append(d.Functions, f)
	}
	return d
}

// dumpWCSP writes the line-oriented format: a header, the domain sizes, then each cost
// function as its scope, default cost and listed tuples (value indexes).
func (w *WCSP) dumpWCSP(filename string) error {
	f, err := os.Create(filename)
	if err != nil {
		return err
	}
	bw := bufio.NewWriter(f)
	maxSize := 0
	for x := range w.vars {
		if n := w.DomainInitSize(x); n > maxSize {
			maxSize = n
		}
	}
	name := w.name
	if name == "" {
		name = "problem"
	}
	fmt.Fprintf(bw, "%s %d %d %d %d\n", name, len(w.vars), maxSize, len(w.ctrs)+1, w.ub)
	for x := range w.vars {
		if x > 0 {
			bw.WriteByte(' ')
		}
		fmt.Fprint(bw, w.DomainInitSize(x))
	}
	bw.WriteByte('\n')
	fmt.Fprintf(bw, "0 %d 0\n", w.lb)
	writeScope := func(vars []int) {
		fmt.Fprint(bw, len(vars))
		for _, x := range vars {
			fmt.Fprintf(bw, " %d", x)
		}
	}
	for _, p := range w.ctrs {
		switch c := p.c.(type) {
		case *table:
			writeScope(c.vars)
			var lines []string
			forEachTuple(initialLists(w, c.vars), func(t []wcsp.Value) bool {
				if cost := c.costs[c.index(t)]; cost != 0 {
					lines = append(lines, indexLine(w, c.vars, t)+" "+strconv.FormatInt(int64(cost), 10))
				}
				return true
			})
			fmt.Fprintf(bw, " 0 %d\n", len(lines))
			for _, l := range lines {
				fmt.Fprintln(bw, l)
			}
		case *nary:
			writeScope(c.vars)
			fmt.Fprintf(bw, " %d %d\n", c.def, len(c.tuples))
			for _, t := range c.tuples {
				fmt.Fprintf(bw, "%s %d\n", indexLine(w, c.vars, t), c.costs[tupleKey(t)])
			}
		case *knapsack:
			writeScope(c.vars)
			fmt.Fprintf(bw, " -1 knapsackp %s\n", c.raw)
		case *allDifferent:
			writeScope(c.vars)
			fmt.Fprintf(bw, " -1 %s %s\n", c.kind, c.params)
		case *among:
			writeScope(c.vars)
			fmt.Fprintf(bw, " -1 wamong %s\n", c.params)
		default:
			f.Close()
			return fmt.Errorf("cost function of type %T: %w", p.c, wcsp.ErrUnsupported)
		}
	}
	if err := bw.Flush(); err != nil {
		f.Close()
		return err
	}
	return f.Close()
}

func initialLists(w *WCSP, vars []int) [][]wcsp.Value {
	lists := make([][]wcsp.Value, len(vars))
	for i, x := range vars {
		lists[i] = wcsp.NewDomain(w.vars[x].inf, w.vars[x].sup).Values()
	}
	return lists
}

func indexLine(w *WCSP, vars []int, t []wcsp.Value) string {
	parts := make([]string, len(t))
	for i, v := range t {
		parts[i] = strconv.Itoa(w.ToIndex(vars[i], v))
	}
	return strings.Join(parts, " ")
}

// Read loads a `.cfn` file into an empty problem.
func (s *Solver) Read(filename string) error {
	if !strings.HasSuffix(filename, ".cfn") {
		return fmt.Errorf("reading %s: only .cfn files: %w", filename, wcsp.ErrUnsupported)
	}
	if len(s.w.vars) > 0 {
		return fmt.Errorf("reading %s: problem is not empty", filename)
	}
	doc, err := cfnformat.ReadFile(filename)
	if err != nil {
		return err
	}
	return s.w.load(doc)
}

func (w *WCSP) load(doc *cfnformat.Document) error {
	w.name = doc.Problem.Name
	valueIndex := make([]map[string]int, len(doc.Variables))
	for i, v := range doc.Variables {
		if len(v.Values) == 0 {
			w.MakeEnumeratedVariable(v.Name, 0, wcsp.Value(v.Size-1))
			continue
		}
		first, isInt := v.IntegerDomain()
		inf := wcsp.Value(first)
		x := w.MakeEnumeratedVariable(v.Name, inf, inf+wcsp.Value(len(v.Values)-1))
		valueIndex[i] = make(map[string]int, len(v.Values))
		for j, name := range v.Values {
			valueIndex[i][name] = j
			if !isInt {
				w.AddValueName(x, name)
			}
		}
	}
	toValue := func(x int, token string) (wcsp.Value, error) {
		if j, ok := valueIndex[x][token]; ok {
			return w.ToValue(x, j), nil
		}
		j, err := strconv.Atoi(token)
		if err != nil || j < 0 || j >= w.DomainInitSize(x) {
			return 0, fmt.Errorf("variable %s has no value %q", w.vars[x].name, token)
		}
		return w.ToValue(x, j), nil
	}

	for _, f := range doc.Functions {
		scope := make([]int, len(f.Scope))
		for i, name := range f.Scope {
			x, ok := w.byName[name]
			if !ok {
				return fmt.Errorf("function %s: unknown variable %q", f.Name, name)
			}
			scope[i] = x
		}
		if err := w.loadFunction(f, scope, toValue); err != nil {
			return fmt.Errorf("function %s: %w", f.Name, err)
		}
	}

	if doc.Problem.MustBe != "" {
		op, bound, err := cfnformat.ParseMustBe(doc.Problem.MustBe)
		if err != nil {
			return err
		}
		if op != '<' {
			return fmt.Errorf("maximization bound %q: %w", doc.Problem.MustBe, wcsp.ErrUnsupported)
		}
		w.UpdateUb(wcsp.AddCost(w.toCost(bound), w.negLb))
	}
	return nil
}

// shift posts the minimum of costs as a nullary cost and returns the shifted costs.
func (w *WCSP) shift(costs []float64) []wcsp.Cost {
	top := w.toDecimal(wcsp.MaxCost)
	minCost := math.Inf(1)
	for _, c := range costs {
		minCost = math.Min(minCost, c)
	}
	if minCost >= top {
		w.PostNullaryConstraint(wcsp.MaxCost)
		minCost = 0
	} else {
		w.PostNullaryConstraint(w.toCost(minCost))
	}
	out := make([]wcsp.Cost, len(costs))
	for i, c := range costs {
		if c >= top {
			out[i] = wcsp.MaxCost
		} else {
			out[i] = w.toCost(c - minCost)
		}
	}
	return out
}

func (w *WCSP) loadFunction(f cfnformat.Function, scope []int, toValue func(int, string) (wcsp.Value, error)) error {
	switch f.Type {
	case "":
	case "knapsackp":
		_, err := w.PostKnapsackConstraint(scope, f.Params, true)
		return err
	case "alldiff":
		var excepted []wcsp.Value
		for _, tok := range strings.Fields(f.Params) {
			v, err := strconv.ParseInt(tok, 10, 64)
			if err != nil {
				return err
			}
			excepted = append(excepted, wcsp.Value(v))
		}
		_, err := w.PostAllDifferentConstraint(scope, excepted, wcsp.MaxCost)
		return err
	case "salldiff":
		p := strings.Fields(f.Params)
		if len(p) != 2 {
			return fmt.Errorf("salldiff parameters %q", f.Params)
		}
		_, err := w.PostWAllDiff(scope, p[0], p[1], wcsp.MaxCost)
		return err
	default:
		_, err := w.PostGlobalFunction(scope, f.Type, f.Params)
		return err
	}

	if len(scope) == 0 {
		if len(f.Costs) != 1 {
			return fmt.Errorf("nullary function with %d costs", len(f.Costs))
		}
		w.PostNullaryConstraint(w.toCost(f.Costs[0]))
		return nil
	}
	if f.DefaultCost == nil && len(scope) <= 3 {
		costs := w.shift(f.Costs)
		switch len(scope) {
		case 1:
			return w.PostUnaryConstraint(scope[0], costs, false)
		case 2:
			_, err := w.PostBinaryConstraint(scope[0], scope[1], costs, false)
			return err
		}
		_, err := w.PostTernaryConstraint(scope[0], scope[1], scope[2], costs, false)
		return err
	}

	if f.DefaultCost == nil {
		shifted := w.shift(f.Costs)
		idx, err := w.PostNaryConstraintBegin(scope, 0, len(shifted), true)
		if err != nil {
			return err
		}
		k := 0
		var postErr error
		forEachTuple(initialLists(w, scope), func(t []wcsp.Value) bool {
			if k >= len(shifted) {
				postErr = fmt.Errorf("dense table has %d costs, too few for scope %v", len(shifted), f.Scope)
				return false
			}
			if shifted[k] != 0 {
				postErr = w.PostNaryConstraintTuple(idx, t, shifted[k])
			}
			k++
			return postErr == nil
		})
		if postErr != nil {
			return postErr
		}
		return w.PostNaryConstraintEnd(idx)
	}

	all := append([]float64{*f.DefaultCost}, f.TupleCosts...)
	shifted := w.shift(all)
	idx, err := w.PostNaryConstraintBegin(scope, shifted[0], len(f.Tuples), false)
	if err != nil {
		return err
	}
	for i, t := range f.Tuples {
		tuple := make([]wcsp.Value, len(t))
		for j, tok := range t {
			v, err := toValue(scope[j], tok)
			if err != nil {
				return err
			}
			tuple[j] = v
		}
		if err := w.PostNaryConstraintTuple(idx, tuple, shifted[i+1]); err != nil {
			return err
		}
	}
	return w.PostNaryConstraintEnd(idx)
}
