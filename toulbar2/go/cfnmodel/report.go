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
	"google.golang.org/protobuf/types/known/structpb"
)

// Report summarizes the network and a solution, which may be nil, as a protobuf
// Struct. Values are keyed by variable name and given as integers or symbols.
func (n *Network) Report(sol *Solution) (*structpb.Struct, error) {
	m := map[string]any{
		"name":       n.Name(),
		"id":         n.id.String(),
		"variables":  len(n.vars),
		"lb":         n.GetLB(),
		"ub":         n.GetUB(),
		"nodes":      n.NbNodes(),
		"backtracks": n.NbBacktracks(),
	}
	if sol != nil {
		values := map[string]any{}
		for name, v := range n.Assignment(sol.Values) {
			if v.IsSymbol() {
				values[name] = v.Symbol()
			} else {
				values[name] = v.Int()
			}
		}
		m["solution"] = map[string]any{
			"cost":   sol.Cost,
			"count":  sol.Count,
			"values": values,
		}
	}
	if n.limit != nil {
		m["limit"] = n.limit.Error()
	}
	return structpb.NewStruct(m)
}
