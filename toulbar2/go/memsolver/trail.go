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

type trailEntry struct {
	depth int
	undo  func()
}

// trail records undo actions tagged with the depth they were made at. Changes made at
// depth zero are permanent.
type trail struct {
	depth   int
	entries []trailEntry
}

func (t *trail) push(undo func()) {
	if t.depth == 0 {
		return
	}
	t.entries = append(t.entries, trailEntry{depth: t.depth, undo: undo})
}

func (t *trail) store() { t.depth++ }

// restore undoes, newest first, every change made above `depth`.
func (t *trail) restore(depth int) {
	if depth < 0 || depth > t.depth {
		return
	}
	for len(t.entries) > 0 {
		e := t.entries[len(t.entries)-1]
		if e.depth <= depth {
			break
		}
		t.entries = t.entries[:len(t.entries)-1]
		e.undo()
	}
	t.depth = depth
}
