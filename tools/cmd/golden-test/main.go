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

// Package main implements the golden test for nilguard. It runs nilguard in report-all mode on the
// standard library at a base and a test revision, so every dereference of a tracked variable gets
// a verdict, and summarizes how the verdicts moved between the revisions: dereferences that gained
// or lost a verdict, and dereferences whose guard kind changed (e.g., nil guarded to not nil
// guarded).
package main

import (
	"bytes"
	"cmp"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"io"
	"log"
	"maps"
	"os"
	"os/exec"
	"regexp"
	"slices"
	"strings"

	"github.com/fatih/color"
)

// Site identifies a dereference across revisions.
type Site struct {
	// Posn is the position string of the dereference, e.g., "src/fmt/print.go:10:2".
	Posn string
	// Deref describes the dereference, e.g., "`p` dereferenced in `p.buf`".
	Deref string
}

// Kind is the guard kind of a verdict as printed by nilguard, e.g., "not nil guarded". Messages
// that are not verdicts (internal errors) have the kind KindOther.
type Kind string

// KindOther is the kind of diagnostics that do not carry a verdict.
const KindOther Kind = "other"

// Verdicts maps every dereference site to its guard kind.
type Verdicts map[Site]Kind

// Transition is the change of the verdict of a site between the base and the test revision. An
// empty From means the site is new; an empty To means it disappeared.
type Transition struct {
	Site
	From, To Kind
}

// Revision is a git revision and the verdicts nilguard produced on it.
type Revision struct {
	// Name is the friendly name of the revision, equal to ShortSHA for detached heads.
	Name     string
	ShortSHA string
	Verdicts Verdicts
}

var _verdictMessage = regexp.MustCompile(`^(.*): ((?:not |anti-)?nil guarded)(?: \(.*\))?$`)

// ParseVerdicts parses the "-json" output of nilguard into verdicts.
func ParseVerdicts(reader io.Reader) (Verdicts, error) {
	type diagnostic struct {
		Posn    string `json:"posn"`
		Message string `json:"message"`
	}
	// Package path -> analyzer name -> diagnostics.
	var output map[string]map[string][]diagnostic
	if err := json.NewDecoder(reader).Decode(&output); err != nil {
		return nil, fmt.Errorf("decode nilguard output: %w", err)
	}

	verdicts := make(Verdicts)
	for _, analyzers := range output {
		for _, d := range analyzers["nilguard"] {
			site, kind := Site{Posn: d.Posn, Deref: strings.TrimSpace(d.Message)}, KindOther
			if m := _verdictMessage.FindStringSubmatch(site.Deref); m != nil {
				site.Deref, kind = m[1], Kind(m[2])
			}
			verdicts[site] = kind
		}
	}
	return verdicts, nil
}

// Transitions returns the sites whose verdicts differ between base and test, ordered by position.
func Transitions(base, test Verdicts) []Transition {
	var transitions []Transition
	for site, from := range base {
		if to := test[site]; to != from {
			transitions = append(transitions, Transition{Site: site, From: from, To: to})
		}
	}
	for site, to := range test {
		if _, ok := base[site]; !ok {
			transitions = append(transitions, Transition{Site: site, To: to})
		}
	}
	slices.SortFunc(transitions, func(a, b Transition) int {
		if c := cmp.Compare(a.Posn, b.Posn); c != 0 {
			return c
		}
		return cmp.Compare(a.Deref, b.Deref)
	})
	return transitions
}

// kindCounts counts the verdicts of every kind.
func kindCounts(verdicts Verdicts) map[Kind]int {
	counts := make(map[Kind]int)
	for _, k := range verdicts {
		counts[k]++
	}
	return counts
}

func describe(k Kind) string {
	if k == "" {
		return "(none)"
	}
	return string(k)
}

// WriteSummary writes a markdown summary of the verdicts of both revisions and of the transitions
// between them. The transition lines are colored when the writer is os.Stdout.
func WriteSummary(writer io.Writer, base, test *Revision) error {
	var buf bytes.Buffer
	transitions := Transitions(base.Verdicts, test.Verdicts)

	buf.WriteString("## Golden Test\n\n")
	if len(transitions) == 0 {
		buf.WriteString("> [!NOTE]  \n> ✅ nilguard verdicts on the standard library are **unchanged**.\n")
	} else {
		fmt.Fprintf(&buf, "> [!WARNING]  \n> ❌ **%d** nilguard verdicts on the standard library **changed**.\n", len(transitions))
	}

	// Per-kind statistics of both revisions.
	baseCounts, testCounts := kindCounts(base.Verdicts), kindCounts(test.Verdicts)
	kinds := slices.Sorted(maps.Keys(baseCounts))
	for k := range testCounts {
		if _, ok := baseCounts[k]; !ok {
			kinds = append(kinds, k)
		}
	}
	slices.Sort(kinds)
	buf.WriteString("\n| kind | base (" + base.ShortSHA + ") | test (" + test.ShortSHA + ") |\n| --- | --- | --- |\n")
	for _, k := range kinds {
		fmt.Fprintf(&buf, "| %s | %d | %d |\n", k, baseCounts[k], testCounts[k])
	}

	if len(transitions) > 0 {
		// Number of sites per (from, to) pair.
		type pair struct{ from, to Kind }
		pairs := make(map[pair]int)
		for _, t := range transitions {
			pairs[pair{t.From, t.To}]++
		}
		keys := slices.SortedFunc(maps.Keys(pairs), func(a, b pair) int {
			if c := cmp.Compare(a.from, b.from); c != 0 {
				return c
			}
			return cmp.Compare(a.to, b.to)
		})
		buf.WriteString("\n| transition | sites |\n| --- | --- |\n")
		for _, p := range keys {
			fmt.Fprintf(&buf, "| %s → %s | %d |\n", describe(p.from), describe(p.to), pairs[p])
		}
	}
	if _, err := writer.Write(buf.Bytes()); err != nil {
		return err
	}
	if len(transitions) == 0 {
		return nil
	}

	if _, err := io.WriteString(writer, "\n<details>\n<summary>Transitions</summary>\n\n```diff\n"); err != nil {
		return err
	}
	f, isFile := writer.(*os.File)
	colored := isFile && f == os.Stdout
	for _, t := range transitions {
		prefix, c := "!", color.New(color.FgYellow)
		switch {
		case t.From == "":
			prefix, c = "+", color.New(color.FgGreen)
		case t.To == "":
			prefix, c = "-", color.New(color.FgRed)
		}
		if colored {
			c.EnableColor()
		} else {
			c.DisableColor()
		}
		line := fmt.Sprintf("%s %s: %s: %s → %s\n", prefix, t.Posn, t.Deref, describe(t.From), describe(t.To))
		if _, err := c.Fprint(writer, line); err != nil {
			return err
		}
	}
	_, err := io.WriteString(writer, "```\n\n</details>\n")
	return err
}

// git runs a git command and returns its trimmed output.
func git(args ...string) (string, error) {
	out, err := exec.Command("git", args...).CombinedOutput()
	if err != nil {
		return "", fmt.Errorf("git %s: %w: %s", strings.Join(args, " "), err, out)
	}
	return strings.TrimSpace(string(out)), nil
}

// checkWorkspace verifies that the working directory is the root of a clean git repository.
func checkWorkspace() error {
	status, err := git("status", "--porcelain=v1")
	if err != nil {
		return err
	}
	if status != "" {
		return errors.New("git repository is not clean")
	}
	root, err := git("rev-parse", "--show-toplevel")
	if err != nil {
		return err
	}
	wd, err := os.Getwd()
	if err != nil {
		return fmt.Errorf("get working directory: %w", err)
	}
	if root != wd {
		return fmt.Errorf("not at the root of the git repository: %q != %q", root, wd)
	}
	return nil
}

// currentRevision returns the current branch name, or the short SHA for a detached head.
func currentRevision() (string, error) {
	name, err := git("rev-parse", "--abbrev-ref", "HEAD")
	if err != nil {
		return "", err
	}
	if name != "" && name != "HEAD" {
		return name, nil
	}
	return git("rev-parse", "--short", "HEAD")
}

// collect checks out the revision, builds nilguard and runs it in report-all mode on the standard
// library. GOMEMLIMIT, GOGC etc. are inherited from the environment.
func collect(rev *Revision) error {
	if _, err := git("checkout", rev.ShortSHA); err != nil {
		return err
	}
	if out, err := exec.Command("go", "build", "-o", "bin/nilguard", "./cmd/nilguard").CombinedOutput(); err != nil {
		return fmt.Errorf("build nilguard at %s: %w: %s", rev.ShortSHA, err, out)
	}

	var stdout, stderr bytes.Buffer
	cmd := exec.Command("bin/nilguard", "-json", "-pretty-print=false", "-report-all", "std")
	cmd.Stdout, cmd.Stderr = &stdout, &stderr
	cmd.Env = os.Environ()
	if err := cmd.Run(); err != nil {
		return fmt.Errorf("run nilguard at %s: %w: %s", rev.ShortSHA, err, stderr.String())
	}
	verdicts, err := ParseVerdicts(&stdout)
	if err != nil {
		return fmt.Errorf("parse verdicts at %s: %w", rev.ShortSHA, err)
	}
	rev.Verdicts = verdicts
	return nil
}

// Run collects the verdicts at the base and the test revision (the current one if empty) and
// writes the summary. The original revision is checked out again afterwards.
func Run(writer io.Writer, baseName, testName string) (err error) {
	if err := checkWorkspace(); err != nil {
		return err
	}
	original, err := currentRevision()
	if err != nil {
		return err
	}
	defer func() {
		if _, checkoutErr := git("checkout", original); checkoutErr != nil {
			err = errors.Join(err, fmt.Errorf("restore revision %q: %w", original, checkoutErr))
		}
	}()
	if testName == "" {
		log.Printf("test revision is not specified, using current revision %q", original)
		testName = original
	}

	revs := [2]*Revision{{Name: baseName}, {Name: testName}}
	for _, rev := range revs {
		if rev.ShortSHA, err = git("rev-parse", "--short", rev.Name); err != nil {
			return err
		}
	}
	log.Printf("comparing verdicts of base %q (%s) and test %q (%s)",
		revs[0].Name, revs[0].ShortSHA, revs[1].Name, revs[1].ShortSHA)
	for _, rev := range revs {
		if err := collect(rev); err != nil {
			return err
		}
	}
	return WriteSummary(writer, revs[0], revs[1])
}

func main() {
	fset := flag.NewFlagSet("golden-test", flag.ExitOnError)
	base := fset.String("base-branch", "main", "the base revision to compare against")
	test := fset.String("test-branch", "", "the test revision (default current revision)")
	resultFile := fset.String("result-file", "", "the file to write the summary to, default stdout")
	if err := fset.Parse(os.Args[1:]); err != nil {
		log.Fatalf("failed to parse flags: %v", err)
	}

	writer := os.Stdout
	if *resultFile != "" {
		f, err := os.Create(*resultFile)
		if err != nil {
			log.Fatalf("failed to create %q: %v", *resultFile, err)
		}
		defer f.Close()
		writer = f
	}

	if err := Run(writer, *base, *test); err != nil {
		log.Printf("golden test failed: %v", err)
		os.Exit(1)
	}
}
