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

package assertfunc

import (
	"go/ast"
	"regexp"
	"strconv"

	"go.uber.org/nilguard/hook"
)

// _lineRE matches a comment line holding only assertion contracts, each looking like
// `assert(KIND(INDEX))`, e.g., `// assert(nonnil(0)) assert(true(1))`.
var _lineRE = regexp.MustCompile(`^\s*//\s*(?:assert\s*\(\s*(?:true|false|nonnil|nil)\s*\(\s*\d+\s*\)\s*\)\s*)+$`)

// _contractRE captures the kind and index of every contract in a matched line.
var _contractRE = regexp.MustCompile(`assert\s*\(\s*(true|false|nonnil|nil)\s*\(\s*(\d+)\s*\)\s*\)`)

var _kinds = map[string]hook.ContractKind{
	"true":   hook.AssertTrue,
	"false":  hook.AssertFalse,
	"nonnil": hook.AssertNonNil,
	"nil":    hook.AssertNil,
}

// parseContracts parses the handwritten contracts from the doc comment of a function. Only
// contracts written in their own line are acknowledged.
func parseContracts(doc *ast.CommentGroup) []hook.Contract {
	if doc == nil {
		return nil
	}

	var contracts []hook.Contract
	for _, comment := range doc.List {
		if !_lineRE.MatchString(comment.Text) {
			continue
		}
		for _, m := range _contractRE.FindAllStringSubmatch(comment.Text, -1) {
			index, err := strconv.Atoi(m[2])
			if err != nil {
				continue
			}
			contracts = append(contracts, hook.Contract{Kind: _kinds[m[1]], ArgIndex: index})
		}
	}
	return contracts
}
