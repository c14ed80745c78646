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
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strconv"
	"strings"
)

// StandaloneDriver implements Driver for running the standalone nilguard binary.
type StandaloneDriver struct{}

// Run builds nilguard, runs it on the test project and returns the diagnostics.
func (d *StandaloneDriver) Run(dir string) (map[Position]string, error) {
	cwd, err := os.Getwd()
	if err != nil {
		return nil, fmt.Errorf("get current working directory: %w", err)
	}
	bin := filepath.Join(cwd, "bin", "nilguard")
	if out, err := exec.Command("go", "build", "-o", bin, "./cmd/nilguard").CombinedOutput(); err != nil {
		return nil, fmt.Errorf("build nilguard: %w: %s", err, out)
	}

	cmd := exec.Command(bin, "-json", "-pretty-print=false", "./...")
	cmd.Dir = dir
	var stdout, stderr bytes.Buffer
	cmd.Stdout, cmd.Stderr = &stdout, &stderr
	if err := cmd.Run(); err != nil {
		return nil, fmt.Errorf("run nilguard: %w\n%s", err, stderr.String())
	}
	return parseStandaloneOutput(&stdout)
}

func parseStandaloneOutput(buf *bytes.Buffer) (map[Position]string, error) {
	type diagnostic struct {
		Posn    string `json:"posn"`
		Message string `json:"message"`
	}
	// pkg name -> analyzer name -> list of diagnostics.
	var result map[string]map[string][]diagnostic
	if err := json.NewDecoder(buf).Decode(&result); err != nil {
		return nil, fmt.Errorf("decode nilguard output: %w", err)
	}

	collected := make(map[Position]string)
	for pkg, m := range result {
		diagnostics, ok := m["nilguard"]
		if !ok {
			return nil, fmt.Errorf("expect \"nilguard\" key in the result of %q, got %v", pkg, m)
		}
		for _, d := range diagnostics {
			pos, err := parsePosn(d.Posn)
			if err != nil {
				return nil, err
			}
			if current, ok := collected[pos]; ok {
				return nil, fmt.Errorf("multiple diagnostics on the same line not supported, current: %q, got: %q", current, d.Message)
			}
			collected[pos] = d.Message
		}
	}

	return collected, nil
}

// parsePosn converts a "<file>:<line>:<column>" position string to a Position.
func parsePosn(posn string) (Position, error) {
	parts := strings.Split(posn, ":")
	if len(parts) < 3 {
		return Position{}, fmt.Errorf("expect 3 parts in position string, got %q", posn)
	}
	line, err := strconv.Atoi(parts[len(parts)-2])
	if err != nil {
		return Position{}, fmt.Errorf("convert line of %q: %w", posn, err)
	}
	return Position{Filename: strings.Join(parts[:len(parts)-2], ":"), Line: line}, nil
}
