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

// main package makes it possible to build nilguard as a standalone code checker that can be
// independently invoked to check other packages.
package main

import (
	"flag"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"go.uber.org/nilguard"
	"go.uber.org/nilguard/config"
	"golang.org/x/term"
	"golang.org/x/tools/go/analysis"
	"golang.org/x/tools/go/analysis/singlechecker"
)

// Analyzer is identical to the one in nilguard.go, except that it overrides the run function for
// extra filtering of errors, since the singlechecker does not support error suppression like other
// popular linter drivers.
var Analyzer = &analysis.Analyzer{
	Name:       nilguard.Analyzer.Name,
	Doc:        nilguard.Analyzer.Doc,
	Run:        run,
	FactTypes:  nilguard.Analyzer.FactTypes,
	ResultType: nilguard.Analyzer.ResultType,
	Requires:   nilguard.Analyzer.Requires,
}

var (
	// _includeErrorsInFiles is a driver flag for specifying the list of file prefixes to only report errors.
	_includeErrorsInFiles string
	// _excludeErrorsInFiles is a driver flag for specifying the list of file prefixes to not report errors.
	_excludeErrorsInFiles string
)

func run(pass *analysis.Pass) (interface{}, error) {
	// nilguard analyzes all packages given to the driver, including dependencies when run with
	// "./...". The usual way to restrict the reported files is to suppress them at the driver
	// level, but singlechecker does not support that yet. Therefore, here we add extra logic to
	// filter the errors.
	includes, err := parseFilePrefixes(_includeErrorsInFiles)
	if err != nil {
		return nil, fmt.Errorf("parse file prefixes for error inclusion: %w", err)
	}
	excludes, err := parseFilePrefixes(_excludeErrorsInFiles)
	if err != nil {
		return nil, fmt.Errorf("parse file prefixes for error exclusion: %w", err)
	}

	// Override the report function to add error filtering logic.
	report := pass.Report
	pass.Report = func(d analysis.Diagnostic) {
		if reportable(pass.Fset.File(d.Pos).Name(), includes, excludes) {
			report(d)
		}
	}

	// Delegate the real analysis run to the original nilguard analyzer.
	return nilguard.Analyzer.Run(pass)
}

// reportable returns true if the file matches one of the included prefixes and none of the
// excluded ones.
func reportable(filename string, includes, excludes []string) bool {
	for _, e := range excludes {
		if strings.HasPrefix(filename, e) {
			return false
		}
	}
	for _, i := range includes {
		if strings.HasPrefix(filename, i) {
			return true
		}
	}
	return false
}

// parseFilePrefixes parses the comma-separated list of file prefixes, converts them to absolute
// file paths, and returns them as a slice.
func parseFilePrefixes(s string) ([]string, error) {
	if s == "" {
		return nil, nil
	}

	// Convert the file paths to absolute paths.
	list := strings.Split(s, ",")
	for i := range list {
		p, err := filepath.Abs(list[i])
		if err != nil {
			return nil, fmt.Errorf("convert %q to absolute path: %w", list[i], err)
		}
		list[i] = p
	}
	return list, nil
}

func main() {
	// For better UX, we lift the flags from config.Analyzer to the top level so that users can
	// specify them without having to specify the analyzer name ("nilguard_config"):
	//
	// `nilguard -flag1 <VALUE1> -flag2 <VALUE> ./...`
	//
	config.Analyzer.Flags.VisitAll(func(f *flag.Flag) { flag.Var(f.Value, f.Name, f.Usage) })

	// Colors only make sense on a terminal. This only changes the default, an explicit
	// -pretty-print flag still takes precedence since the flags are parsed later.
	if !term.IsTerminal(int(os.Stderr.Fd())) {
		if err := config.Analyzer.Flags.Set(config.PrettyPrintFlag, "false"); err != nil {
			fmt.Fprintf(os.Stderr, "failed to set default for %s: %v\n", config.PrettyPrintFlag, err)
			os.Exit(1)
		}
	}

	// Add two more flags to the driver for error suppression since singlechecker does not support it.
	wd, err := os.Getwd()
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to get working directory: %v\n", err)
		os.Exit(1)
	}
	flag.StringVar(&_includeErrorsInFiles, "include-errors-in-files", wd, "A comma-separated list of file prefixes to report errors, default is current working directory.")
	flag.StringVar(&_excludeErrorsInFiles, "exclude-errors-in-files", "", "A comma-separated list of file prefixes to exclude from error reporting. This takes precedence over include-errors-in-files.")

	singlechecker.Main(Analyzer)
}
