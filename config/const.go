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

package config

import "time"

// This file hosts non-user-configurable parameters --- these are for development and testing purposes only.

// DefaultMaxSplits is the default number of split contexts kept per CFG block. Every unknown
// boolean flag that is branched on doubles the contexts, so 16 covers four independent flags
// before the contexts of a block are merged into a single, less precise one.
const DefaultMaxSplits = 16

// MaxFixpointRounds bounds the number of times each block may be re-visited by the dataflow
// engine. Convergence is guaranteed by the lattice, so hitting this limit indicates a bug.
const MaxFixpointRounds = 1000

// MaxFuncSizeInBytes prevents the analysis from running on overly-sized functions.
const MaxFuncSizeInBytes = 100000

// AnalysisTimeout is the time budget for analyzing a single function.
const AnalysisTimeout = 30 * time.Second

// NilGuardReportAllString is the string that may be inserted into the docstring of a package to
// report the verdict of every dereference in that package, guarded ones included. This is
// useful for fixtures that annotate every dereference.
const NilGuardReportAllString = "<nilguard report all>"

// NoLintName is the linter name recognized in "//nolint:<name>" comments.
const NoLintName = "nilguard"
