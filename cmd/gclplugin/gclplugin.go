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

// Package gclplugin implements the golangci-lint's module plugin interface for nilguard to be used
// as a private linter in golangci-lint. See more details at
// https://golangci-lint.run/plugins/module-plugins/.
package gclplugin

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/golangci/plugin-module-register/register"
	"go.uber.org/nilguard"
	"go.uber.org/nilguard/config"
	"golang.org/x/tools/go/analysis"
)

func init() {
	register.Plugin("nilguard", New)
}

// New returns the golangci-lint plugin that wraps the nilguard analyzer. The settings are the
// flags of the config analyzer, e.g.,
//
//	settings:
//	  include-pkgs: "example.com/project"
//	  report-all: false
//	  max-splits: 32
//	  assert-funcs:
//	    - "example.com/project/debug.Assert"
//	    - "example.com/project/debug.Check:1"
//
// Values may be strings, booleans, integers, or lists of strings (joined with commas).
func New(settings any) (register.LinterPlugin, error) {
	if settings == nil {
		return &NilGuardPlugin{}, nil
	}
	s, ok := settings.(map[string]any)
	if !ok {
		return nil, fmt.Errorf("expect nilguard's configurations to be a map from flag names to "+
			"values (similar to command line flags), got %T", settings)
	}

	conf := make(map[string]string, len(s))
	for k, v := range s {
		if config.Analyzer.Flags.Lookup(k) == nil {
			return nil, fmt.Errorf("unknown nilguard configuration %q", k)
		}
		str, err := flagValue(v)
		if err != nil {
			return nil, fmt.Errorf("nilguard configuration %q: %w", k, err)
		}
		conf[k] = str
	}

	return &NilGuardPlugin{conf: conf}, nil
}

// flagValue converts a setting value to its command line form.
func flagValue(v any) (string, error) {
	switch v := v.(type) {
	case string:
		return v, nil
	case bool:
		return strconv.FormatBool(v), nil
	case int:
		return strconv.Itoa(v), nil
	case []any:
		items := make([]string, len(v))
		for i, item := range v {
			s, ok := item.(string)
			if !ok {
				return "", fmt.Errorf("expect list items to be strings, got %T", item)
			}
			items[i] = s
		}
		return strings.Join(items, ","), nil
	default:
		return "", fmt.Errorf("unsupported value type %T", v)
	}
}

// NilGuardPlugin is the nilguard plugin wrapper for golangci-lint.
type NilGuardPlugin struct {
	conf map[string]string
}

// BuildAnalyzers builds the nilguard analyzer with the configurations applied to the config analyzer.
func (p *NilGuardPlugin) BuildAnalyzers() ([]*analysis.Analyzer, error) {
	// golangci-lint colors the output itself.
	if err := config.Analyzer.Flags.Set(config.PrettyPrintFlag, "false"); err != nil {
		return nil, fmt.Errorf("set config flag %s: %w", config.PrettyPrintFlag, err)
	}
	for k, v := range p.conf {
		if err := config.Analyzer.Flags.Set(k, v); err != nil {
			return nil, fmt.Errorf("set config flag %s with %s: %w", k, v, err)
		}
	}

	return []*analysis.Analyzer{nilguard.Analyzer}, nil
}

// GetLoadMode returns the load mode of the nilguard plugin (requiring types info).
func (p *NilGuardPlugin) GetLoadMode() string { return register.LoadModeTypesInfo }
