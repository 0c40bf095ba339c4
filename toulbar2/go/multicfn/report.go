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

package multicfn

import (
	"google.golang.org/protobuf/types/known/structpb"
)

// FrontReport lists the points of a front as a protobuf Struct, under "points", in
// the order given.
func FrontReport(front []ParetoPoint) (*structpb.Struct, error) {
	points := make([]any, len(front))
	for i, p := range front {
		values := map[string]any{}
		for name, v := range p.Solution {
			if v.IsSymbol() {
				values[name] = v.Symbol()
			} else {
				values[name] = v.Int()
			}
		}
		points[i] = map[string]any{
			"a":        p.Point.A,
			"b":        p.Point.B,
			"weights":  []any{p.Weights.A, p.Weights.B},
			"lb":       p.LowerBound,
			"solution": values,
		}
	}
	return structpb.NewStruct(map[string]any{"points": points})
}
