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

import "errors"

var (
	// ErrConfiguration is returned for model authoring defects: duplicate names or scope
	// entries, unknown variables or values, wrong table sizes, unknown operands and
	// incompatible option combinations.
	ErrConfiguration = errors.New("configuration error")
	// ErrState is returned when an operation is called in a state that does not allow it,
	// such as SolveFirst twice or Restore to a depth above the current one.
	ErrState = errors.New("invalid network state")
)
