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

package cfnformat

import (
	"bytes"
	"encoding/json"
	"errors"
	"path/filepath"
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/google/go-cmp/cmp/cmpopts"
)

const sample = `{
  "problem": {"name": "example", "mustbe": "<10.5"},
  "variables": {"x": ["a", "b"], "y": 3, "z": ["v0", "v1"]},
  "functions": {
    "f0": {"scope": [], "costs": [1.5]},
    "fx": {"scope": ["x"], "costs": [0, 2]},
    "fxy": {"scope": ["x", "y"], "costs": [0, 1, 2, 3, 4, 5]},
    "sparse": {"scope": ["x", "y", "z"], "defaultcost": 0, "costs": ["a", 0, "v1", 7, "b", 2, "v0", -1]},
    "kp": {"scope": ["x", "y"], "type": "knapsackp", "params": ["1", "2", "0", "0", "1", "1", "3", "0", "0", "1", "1", "2", "2"]}
  }
}`

func pointer(f float64) *float64 { return &f }

func sampleDocument() *Document {
	return &Document{
		Problem: Problem{Name: "example", MustBe: "<10.5"},
		Variables: []Variable{
			{Name: "x", Values: []string{"a", "b"}},
			{Name: "y", Size: 3},
			{Name: "z", Values: []string{"v0", "v1"}},
		},
		Functions: []Function{
			{Name: "f0", Scope: []string{}, Costs: []float64{1.5}},
			{Name: "fx", Scope: []string{"x"}, Costs: []float64{0, 2}},
			{Name: "fxy", Scope: []string{"x", "y"}, Costs: []float64{0, 1, 2, 3, 4, 5}},
			{
				Name:        "sparse",
				Scope:       []string{"x", "y", "z"},
				DefaultCost: pointer(0),
				Tuples:      [][]string{{"a", "0", "v1"}, {"b", "2", "v0"}},
				TupleCosts:  []float64{7, -1},
			},
			{Name: "kp", Scope: []string{"x", "y"}, Type: "knapsackp", Params: "1 2 0 0 1 1 3 0 0 1 1 2 2"},
		},
	}
}

func TestRead(t *testing.T) {
	got, err := Read(strings.NewReader(sample))
	if err != nil {
		t.Fatalf("Read() returned with unexpected error %v", err)
	}
	if diff := cmp.Diff(sampleDocument(), got, cmpopts.EquateEmpty()); diff != "" {
		t.Errorf("Read() returned with unexpected diff (-want+got);\n%s", diff)
	}
}

func TestWriteRead_RoundTrip(t *testing.T) {
	var buf bytes.Buffer
	if err := Write(&buf, sampleDocument()); err != nil {
		t.Fatalf("Write() returned with unexpected error %v", err)
	}
	if !json.Valid(buf.Bytes()) {
		t.Errorf("Write() output is not valid JSON:\n%s", buf.String())
	}
	got, err := Read(&buf)
	if err != nil {
		t.Fatalf("Read() returned with unexpected error %v", err)
	}
	if diff := cmp.Diff(sampleDocument(), got, cmpopts.EquateEmpty()); diff != "" {
		t.Errorf("round trip returned with unexpected diff (-want+got);\n%s", diff)
	}
}

func TestWriteFile_ReadFile(t *testing.T) {
	name := filepath.Join(t.TempDir(), "p.cfn")
	if err := WriteFile(name, sampleDocument()); err != nil {
		t.Fatalf("WriteFile() returned with unexpected error %v", err)
	}
	got, err := ReadFile(name)
	if err != nil {
		t.Fatalf("ReadFile() returned with unexpected error %v", err)
	}
	if got.Problem.Name != "example" || len(got.Functions) != 5 {
		t.Errorf("ReadFile() = %+v, want the sample document", got)
	}
}

func TestRead_Errors(t *testing.T) {
	testCases := []struct {
		name string
		doc  string
	}{
		{name: "not an object", doc: `[1, 2]`},
		{name: "bad domain", doc: `{"variables": {"x": 0}}`},
		{name: "bad cost", doc: `{"functions": {"f": {"scope": [], "costs": ["a"]}}}`},
		{name: "ragged tuples", doc: `{"functions": {"f": {"scope": ["x"], "defaultcost": 0, "costs": [0, 1, 1]}}}`},
	}

	for _, test := range testCases {
		t.Run(test.name, func(t *testing.T) {
			if _, err := Read(strings.NewReader(test.doc)); err == nil {
				t.Errorf("Read(%s) returned no error", test.doc)
			}
		})
	}
}

func TestParseMustBe(t *testing.T) {
	op, bound, err := ParseMustBe(" <12.25")
	if err != nil || op != '<' || bound != 12.25 {
		t.Errorf("ParseMustBe() = %c, %v, %v; want <, 12.25, nil", op, bound, err)
	}
	if _, _, err := ParseMustBe("=3"); !errors.Is(err, ErrFormat) {
		t.Errorf("ParseMustBe(=3) error = %v, want ErrFormat", err)
	}
}
