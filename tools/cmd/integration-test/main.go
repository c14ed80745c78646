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

// Package main implements the integration test for nilguard. It runs nilguard through different
// analyzer drivers on the `testdata/integration` project, whose packages export inferred
// assertion functions to each other, and compares the reported diagnostics with the "//want"
// comments in the project.
package main

import (
	"errors"
	"flag"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"reflect"
	"regexp"
	"strings"

	"golang.org/x/tools/go/packages"
)

// Position represents a line position in a file.
type Position struct {
	Filename string
	Line     int
}

// Driver is the analyzer driver interface that runs nilguard on the test project.
type Driver interface {
	// Run runs nilguard on the test project specified by dir and returns the diagnostics reported
	// by nilguard (in a map from Position to the diagnostic message).
	Run(dir string) (map[Position]string, error)
}

// CollectGroundTruths collects the "//want" comments of the test project specified by dir.
func CollectGroundTruths(dir string) (map[Position]*regexp.Regexp, error) {
	config := &packages.Config{
		Mode: packages.NeedName | packages.NeedSyntax | packages.NeedFiles | packages.NeedTypes,
		Dir:  dir,
	}
	pkgs, err := packages.Load(config, "./...")
	if err != nil {
		return nil, fmt.Errorf("load packages: %w", err)
	}
	if n := packages.PrintErrors(pkgs); n > 0 {
		return nil, fmt.Errorf("%d errors while loading packages", n)
	}

	truths := make(map[Position]*regexp.Regexp)
	for _, pkg := range pkgs {
		for _, f := range pkg.Syntax {
			for _, group := range f.Comments {
				for _, comment := range group.List {
					text := strings.TrimSpace(strings.TrimPrefix(comment.Text, "//"))
					want, ok := strings.CutPrefix(text, "want ")
					if !ok {
						continue
					}
					re, err := regexp.Compile(strings.Trim(want, "\""))
					if err != nil {
						return nil, fmt.Errorf("compile want string %q: %w", want, err)
					}
					pos := pkg.Fset.Position(comment.Pos())
					truths[Position{Filename: pos.Filename, Line: pos.Line}] = re
				}
			}
		}
	}

	return truths, nil
}

// CompareDiagnostics compares the ground truths with the collected diagnostics and returns a
// joined error containing the mismatched/missing/unexpected diagnostics (or nil if none).
func CompareDiagnostics(truth map[Position]*regexp.Regexp, collected map[Position]string) error {
	var err error

	hit := make(map[Position]bool, len(truth))
	for pos, got := range collected {
		want, ok := truth[pos]
		if !ok {
			err = errors.Join(err, fmt.Errorf("unexpected diagnostic at %s:%d:\n\tgot :%q", pos.Filename, pos.Line, got))
			continue
		}
		hit[pos] = true
		if !want.MatchString(got) {
			err = errors.Join(err, fmt.Errorf("diagnostic mismatch at %s:%d:\n\twant: %q\n\tgot : %q", pos.Filename, pos.Line, want, got))
		}
	}

	for pos, want := range truth {
		if hit[pos] {
			continue
		}
		err = errors.Join(err, fmt.Errorf("missing diagnostic at %s:%d:\n\twant: %q", pos.Filename, pos.Line, want))
	}

	return err
}

// Run runs the integration test with the given drivers.
func Run(drivers []Driver) error {
	// Make sure we are at the root of the git repository.
	out, err := exec.Command("git", "rev-parse", "--show-toplevel").CombinedOutput()
	if err != nil {
		return fmt.Errorf("get root of git repository: %w", err)
	}
	wd, err := os.Getwd()
	if err != nil {
		return fmt.Errorf("get working directory: %w", err)
	}
	if dir := strings.TrimSpace(string(out)); dir != wd {
		return fmt.Errorf("not at the root of the git repository: %q != %q", dir, wd)
	}
	dir := filepath.Join(wd, "testdata", "integration")

	truths, err := CollectGroundTruths(dir)
	if err != nil {
		return fmt.Errorf("collect want strings: %w", err)
	}

	for _, driver := range drivers {
		name := reflect.TypeOf(driver).Elem().Name()
		fmt.Printf("--- Running integration tests using %q driver...", name)
		collected, err := driver.Run(dir)
		if err != nil {
			return fmt.Errorf("%q driver: %w", name, err)
		}
		if err := CompareDiagnostics(truths, collected); err != nil {
			return fmt.Errorf("diagnostics mismatch: \n%w", err)
		}
		fmt.Println("PASSED")
		fmt.Printf("\t%d diagnostics matched\n", len(collected))
	}

	return nil
}

func main() {
	fset := flag.NewFlagSet("integration-test", flag.ExitOnError)
	gcl := fset.String("golangci-lint", "", "path to a golangci-lint binary, enables the golangci-lint driver")
	if err := fset.Parse(os.Args[1:]); err != nil {
		fmt.Printf("failed to parse flags: %v\n", err)
		os.Exit(1)
	}

	drivers := []Driver{&StandaloneDriver{}}
	if *gcl != "" {
		drivers = append(drivers, &GolangCILintDriver{Binary: *gcl})
	}
	if err := Run(drivers); err != nil {
		fmt.Printf("Integration test failed: %s\n", err)
		os.Exit(1)
	}
	fmt.Println("PASSED")
}
