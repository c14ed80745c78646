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

// Package tokenhelper hosts helper functions that enhance the `token` package (e.g., around
// position and file path formatting etc.).
package tokenhelper

import (
	"fmt"
	"go/token"
	"os"
	"path/filepath"
	"strings"
)

var _cwd = func() string {
	cwd, err := os.Getwd()
	if err != nil {
		panic("failed to get current working directory: " + err.Error())
	}
	return cwd
}()

// RelToCwd returns the relative path of the given filename with respect to the current
// working directory (retrieved during initialization). If the filename is not a child of
// the current working directory, it returns the filename itself.
func RelToCwd(filename string) string {
	if !filepath.IsAbs(filename) {
		return filename
	}
	rel, err := filepath.Rel(_cwd, filename)
	if err != nil || strings.HasPrefix(rel, "..") {
		return filename
	}
	return rel
}

// PortionAfterSep returns the portion of the input string after the `occ`-th occurrence of the
// separator counting from the end, e.g., PortionAfterSep("a/b/c/d.go", "/", 1) is "c/d.go".
// The whole input is returned if it contains fewer separators.
func PortionAfterSep(input, sep string, occ int) string {
	idx := len(input)
	for i := 0; i <= occ; i++ {
		idx = strings.LastIndex(input[:idx], sep)
		if idx < 0 {
			return input
		}
	}
	return input[idx+len(sep):]
}

// ShortPosition formats a position as "<dir>/<file>:<line>", keeping only `dirLevels` enclosing
// directories of the file.
func ShortPosition(pos token.Position, dirLevels int) string {
	return fmt.Sprintf("%s:%d", PortionAfterSep(pos.Filename, string(filepath.Separator), dirLevels), pos.Line)
}
