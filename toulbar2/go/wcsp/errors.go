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

package wcsp

import (
	"errors"
	"fmt"
)

var (
	// ErrContradiction is returned when propagation empties a domain or the lower bound
	// reaches the upper bound. The state stays usable after `WhenContradiction`.
	ErrContradiction = errors.New("contradiction")
	// ErrUnsupported is returned for primitives a backend does not implement.
	ErrUnsupported = errors.New("unsupported by backend")
)

// SolverOutError reports that a search stopped on a resource limit. The best solution
// found before the limit stays available.
type SolverOutError struct {
	// Reason is "node limit" or "time limit".
	Reason string
	Nodes  int64
}

func (e *SolverOutError) Error() string {
	return fmt.Sprintf("solver out: %s reached after %d nodes", e.Reason, e.Nodes)
}
