//  Copyright (c) 2025 Uber Technologies, Inc.
//
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

// Package preprocess hosts preprocessing logic for the input (e.g., CFGs etc.) to make it more
// amenable to the guard analysis.
package preprocess

import (
	"go.uber.org/nilguard/hook"
	"golang.org/x/tools/go/analysis"
)

// Preprocessor handles different preprocessing logic for different types of input.
type Preprocessor struct {
	pass *analysis.Pass
	// contracts maps the full names of assertion functions to their contracts.
	contracts map[string][]hook.Contract
}

// New returns a new Preprocessor. The contracts are consulted, in addition to the hooks, when
// splitting blocks on assertion calls.
func New(pass *analysis.Pass, contracts map[string][]hook.Contract) *Preprocessor {
	return &Preprocessor{pass: pass, contracts: contracts}
}
