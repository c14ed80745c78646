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

package main

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"text/template"
)

// GolangCILintDriver implements Driver for running nilguard as a module plugin of golangci-lint.
type GolangCILintDriver struct {
	// Binary is the bootstrap golangci-lint binary used to build the custom binary.
	Binary string
}

// Run builds a custom golangci-lint binary embedding nilguard, runs it on the test project and
// returns the diagnostics.
func (d *GolangCILintDriver) Run(dir string) (diagnostics map[Position]string, err error) {
	cwd, err := os.Getwd()
	if err != nil {
		return nil, fmt.Errorf("get current working directory: %w", err)
	}

	tempDir, err := os.MkdirTemp("", "golangci-lint-integration-test")
	if err != nil {
		return nil, fmt.Errorf("create temp dir: %w", err)
	}
	defer func() { err = errors.Join(err, os.RemoveAll(tempDir)) }()

	out, err := exec.Command(d.Binary, "version", "--short").CombinedOutput()
	if err != nil {
		return nil, fmt.Errorf("get golangci-lint version: %w: %s", err, out)
	}
	gclVersion := "v" + strings.TrimPrefix(strings.TrimSpace(string(out)), "v")

	templateContent, err := os.ReadFile(filepath.Join(dir, ".custom-gcl.template.yaml"))
	if err != nil {
		return nil, fmt.Errorf("read template file: %w", err)
	}
	tmpl, err := template.New("custom-gcl").Parse(string(templateContent))
	if err != nil {
		return nil, fmt.Errorf("parse template: %w", err)
	}
	var buf bytes.Buffer
	if err := tmpl.Execute(&buf, map[string]string{"GCLVersion": gclVersion, "NilGuardPath": cwd}); err != nil {
		return nil, fmt.Errorf("execute template: %w", err)
	}
	if err := os.WriteFile(filepath.Join(tempDir, ".custom-gcl.yaml"), buf.Bytes(), 0o644); err != nil {
		return nil, fmt.Errorf("write custom-gcl.yaml: %w", err)
	}

	cmd := exec.Command(d.Binary, "custom")
	cmd.Dir = tempDir
	if out, err := cmd.CombinedOutput(); err != nil {
		return nil, fmt.Errorf("build the custom golangci-lint: %w: %s", err, out)
	}

	diagnosticFile := filepath.Join(tempDir, "diagnostics.json")
	cmd = exec.Command(filepath.Join(tempDir, "custom-gcl"), "run", "--output.json.path", diagnosticFile, "./...")
	cmd.Dir = dir
	// golangci-lint exits with status 1 when it finds issues.
	var exitErr *exec.ExitError
	if out, err := cmd.CombinedOutput(); err != nil && !(errors.As(err, &exitErr) && exitErr.ExitCode() == 1) {
		return nil, fmt.Errorf("run custom-gcl: %w: %s", err, out)
	}

	data, err := os.ReadFile(diagnosticFile)
	if err != nil {
		return nil, fmt.Errorf("read diagnostics file: %w", err)
	}
	return parseGolangCILintOutput(dir, data)
}

func parseGolangCILintOutput(dir string, output []byte) (map[Position]string, error) {
	if len(output) == 0 {
		return map[Position]string{}, nil
	}

	var result struct {
		Issues []struct {
			FromLinter string   `json:"FromLinter"`
			Text       string   `json:"Text"`
			Pos        Position `json:"Pos"`
		} `json:"Issues"`
	}
	if err := json.Unmarshal(output, &result); err != nil {
		return nil, fmt.Errorf("parse golangci-lint output: %w", err)
	}

	diagnostics := make(map[Position]string)
	for _, issue := range result.Issues {
		if issue.FromLinter != "nilguard" {
			continue
		}
		// golangci-lint reports paths relative to the project.
		issue.Pos.Filename = filepath.Join(dir, issue.Pos.Filename)
		diagnostics[issue.Pos] = issue.Text
	}

	return diagnostics, nil
}
