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

// Package config implements the configurations for nilguard. The configurations are exposed as the
// flags of a dedicated analyzer, and every other analyzer requires it to read them.
package config

import (
	"flag"
	"fmt"
	"go/ast"
	"go/types"
	"reflect"
	"strconv"
	"strings"

	"golang.org/x/tools/go/analysis"
)

// Names of the flags of the config analyzer.
const (
	// IncludePkgsFlag is the flag name for the comma-separated list of package prefixes to analyze.
	IncludePkgsFlag = "include-pkgs"
	// ExcludePkgsFlag is the flag name for the comma-separated list of package prefixes to skip.
	ExcludePkgsFlag = "exclude-pkgs"
	// ExcludeFileDocStringsFlag is the flag name for the comma-separated list of strings that,
	// when found in a file's doc string, exclude the file from the analysis.
	ExcludeFileDocStringsFlag = "exclude-file-docstrings"
	// PrettyPrintFlag is the flag name for colored diagnostic messages.
	PrettyPrintFlag = "pretty-print"
	// ReportAllFlag is the flag name for reporting every verdict, including guarded dereferences.
	ReportAllFlag = "report-all"
	// AssertFuncsFlag is the flag name for the comma-separated list of assertion functions, each
	// in the form "<full func name>[:<arg index>]", e.g., "example.com/debug.Assert:0".
	AssertFuncsFlag = "assert-funcs"
	// MaxSplitsFlag is the flag name for the maximum number of split contexts kept per block.
	MaxSplitsFlag = "max-splits"
)

const _doc = "Configure nilguard: the flags of this analyzer are the configurations of all nilguard analyzers."

// Analyzer is the config analyzer. Its result is a *Config built from its flags.
var Analyzer = &analysis.Analyzer{
	Name:       "nilguard_config",
	Doc:        _doc,
	Run:        run,
	Flags:      newFlagSet(),
	ResultType: reflect.TypeOf((*Config)(nil)),
}

// Config holds the configurations for nilguard.
type Config struct {
	// PrettyPrint colors the diagnostic messages.
	PrettyPrint bool
	// ReportAll reports every verdict instead of only the suspicious ones.
	ReportAll bool
	// MaxSplits bounds the number of split contexts kept per CFG block.
	MaxSplits int
	// AssertFuncs maps the full names of user-specified assertion functions to the index of
	// their asserted boolean argument.
	AssertFuncs map[string]int

	includePkgs           []string
	excludePkgs           []string
	excludeFileDocStrings []string
}

// IsPkgInScope returns true if the package should be analyzed.
func (c *Config) IsPkgInScope(pkg *types.Package) bool {
	if pkg == nil {
		return false
	}
	path := pkg.Path()
	for _, exclude := range c.excludePkgs {
		if strings.HasPrefix(path, exclude) {
			return false
		}
	}
	if len(c.includePkgs) == 0 {
		return true
	}
	for _, include := range c.includePkgs {
		if strings.HasPrefix(path, include) {
			return true
		}
	}
	return false
}

// IsFileInScope returns true if the file should be analyzed, i.e., its doc string does not
// contain any of the excluded strings (such as "Code generated by").
func (c *Config) IsFileInScope(file *ast.File) bool {
	for _, group := range file.Comments {
		// Only comments before the package clause belong to the file's doc strings.
		if group.Pos() > file.Package {
			break
		}
		for _, s := range c.excludeFileDocStrings {
			if strings.Contains(group.Text(), s) {
				return false
			}
		}
	}
	return true
}

func newFlagSet() flag.FlagSet {
	fs := flag.NewFlagSet("nilguard_config", flag.ExitOnError)

	// We do not keep the returned pointers since we will read the flags from the analysis pass.
	_ = fs.String(IncludePkgsFlag, "", "Comma-separated list of package prefixes to analyze, empty means all packages")
	_ = fs.String(ExcludePkgsFlag, "", "Comma-separated list of package prefixes to exclude, takes precedence over include-pkgs")
	_ = fs.String(ExcludeFileDocStringsFlag, "", "Comma-separated list of strings to search for in a file's doc string to exclude it")
	_ = fs.Bool(PrettyPrintFlag, true, "Pretty print the diagnostic messages")
	_ = fs.Bool(ReportAllFlag, false, "Report the verdict of every dereference, including guarded ones")
	_ = fs.String(AssertFuncsFlag, "", "Comma-separated list of assertion functions in the form <full func name>[:<arg index>]")
	_ = fs.Int(MaxSplitsFlag, DefaultMaxSplits, "Maximum number of split contexts kept per CFG block before they are merged")

	return *fs
}

func run(pass *analysis.Pass) (any, error) {
	lookup := func(name string) string {
		f := pass.Analyzer.Flags.Lookup(name)
		if f == nil {
			return ""
		}
		return f.Value.String()
	}

	conf := &Config{
		includePkgs:           splitList(lookup(IncludePkgsFlag)),
		excludePkgs:           splitList(lookup(ExcludePkgsFlag)),
		excludeFileDocStrings: splitList(lookup(ExcludeFileDocStringsFlag)),
	}

	var err error
	if conf.PrettyPrint, err = strconv.ParseBool(lookup(PrettyPrintFlag)); err != nil {
		return nil, fmt.Errorf("parse %s: %w", PrettyPrintFlag, err)
	}
	if conf.ReportAll, err = strconv.ParseBool(lookup(ReportAllFlag)); err != nil {
		return nil, fmt.Errorf("parse %s: %w", ReportAllFlag, err)
	}
	if conf.MaxSplits, err = strconv.Atoi(lookup(MaxSplitsFlag)); err != nil {
		return nil, fmt.Errorf("parse %s: %w", MaxSplitsFlag, err)
	}
	if conf.MaxSplits < 1 {
		return nil, fmt.Errorf("%s must be positive, got %d", MaxSplitsFlag, conf.MaxSplits)
	}
	if conf.AssertFuncs, err = ParseAssertFuncs(lookup(AssertFuncsFlag)); err != nil {
		return nil, fmt.Errorf("parse %s: %w", AssertFuncsFlag, err)
	}

	return conf, nil
}

// ParseAssertFuncs parses the value of the assert-funcs flag into a map from the full function
// name (as returned by types.Func.FullName) to the index of the asserted argument, which
// defaults to 0.
func ParseAssertFuncs(s string) (map[string]int, error) {
	funcs := make(map[string]int)
	for _, entry := range splitList(s) {
		name, index := entry, 0
		if i := strings.LastIndex(entry, ":"); i >= 0 {
			n, err := strconv.Atoi(entry[i+1:])
			if err != nil {
				return nil, fmt.Errorf("invalid argument index in %q: %w", entry, err)
			}
			if n < 0 {
				return nil, fmt.Errorf("negative argument index in %q", entry)
			}
			name, index = entry[:i], n
		}
		if name == "" {
			return nil, fmt.Errorf("empty function name in %q", entry)
		}
		funcs[name] = index
	}
	return funcs, nil
}

func splitList(s string) []string {
	var list []string
	for _, item := range strings.Split(s, ",") {
		if item = strings.TrimSpace(item); item != "" {
			list = append(list, item)
		}
	}
	return list
}
