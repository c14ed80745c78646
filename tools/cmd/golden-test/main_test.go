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
	"strings"
	"testing"

	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"
)

func TestParseVerdicts(t *testing.T) {
	t.Parallel()

	verdicts, err := ParseVerdicts(strings.NewReader(`{`))
	require.Error(t, err)
	require.Empty(t, verdicts)

	verdicts, err = ParseVerdicts(strings.NewReader(`{
	"pkg1":{"nilguard":[
		{"posn":"src/file1:10:2","message":"` + "`p` dereferenced in `*p`: not nil guarded (checked against nil elsewhere in the function)" + `"},
		{"posn":"src/file1:12:2","message":"` + "`q` dereferenced in `q.f`: anti-nil guarded" + `"}
	]},
	"pkg2":{"nilguard":[
		{"posn":"src/file2:3:1","message":"` + "`r` dereferenced in `r[0]`: nil guarded" + `"},
		{"posn":"src/file2:1:1","message":"INTERNAL ERROR: boom"}
	]},
	"pkg3":{"other":[{"posn":"src/file3:1:1","message":"ignored"}]}
}`))
	require.NoError(t, err)
	require.Equal(t, Verdicts{
		{Posn: "src/file1:10:2", Deref: "`p` dereferenced in `*p`"}:  "not nil guarded",
		{Posn: "src/file1:12:2", Deref: "`q` dereferenced in `q.f`"}: "anti-nil guarded",
		{Posn: "src/file2:3:1", Deref: "`r` dereferenced in `r[0]`"}: "nil guarded",
		{Posn: "src/file2:1:1", Deref: "INTERNAL ERROR: boom"}:       KindOther,
	}, verdicts)
}

func TestTransitions(t *testing.T) {
	t.Parallel()

	same := Site{Posn: "src/file1:10:2", Deref: "`p` dereferenced in `*p`"}
	weakened := Site{Posn: "src/file1:20:2", Deref: "`q` dereferenced in `q.f`"}
	moved := Site{Posn: "src/file2:10:2", Deref: "`p` dereferenced in `*p`"}
	movedTo := Site{Posn: "src/file3:10:2", Deref: "`p` dereferenced in `*p`"}

	base := Verdicts{same: "nil guarded", weakened: "nil guarded", moved: "not nil guarded"}
	test := Verdicts{same: "nil guarded", weakened: "not nil guarded", movedTo: "not nil guarded"}

	require.Equal(t, []Transition{
		{Site: weakened, From: "nil guarded", To: "not nil guarded"},
		{Site: moved, From: "not nil guarded"},
		{Site: movedTo, To: "not nil guarded"},
	}, Transitions(base, test))
	require.Empty(t, Transitions(base, base))
}

func TestWriteSummary(t *testing.T) {
	t.Parallel()

	site := Site{Posn: "src/file1:10:2", Deref: "`p` dereferenced in `*p`"}
	base := &Revision{Name: "main", ShortSHA: "123456", Verdicts: Verdicts{site: "nil guarded"}}
	test := &Revision{Name: "feature", ShortSHA: "456789", Verdicts: Verdicts{site: "nil guarded"}}

	var buf bytes.Buffer
	require.NoError(t, WriteSummary(&buf, base, test))
	s := buf.String()
	require.Contains(t, s, "## Golden Test")
	require.Contains(t, s, "are **unchanged**")
	require.Contains(t, s, "| nil guarded | 1 | 1 |")
	require.NotContains(t, s, "<details>")

	// Expressions may contain format verbs; they must be printed as is.
	modulo := Site{Posn: "src/file2:5:3", Deref: "`s` dereferenced in `s[i%n]`"}
	test.Verdicts = Verdicts{site: "not nil guarded", modulo: "anti-nil guarded"}
	buf.Reset()
	require.NoError(t, WriteSummary(&buf, base, test))
	s = buf.String()
	require.Contains(t, s, "**2** nilguard verdicts on the standard library **changed**")
	require.Contains(t, s, "| nil guarded | 1 | 0 |")
	require.Contains(t, s, "| not nil guarded | 0 | 1 |")
	require.Contains(t, s, "| (none) → anti-nil guarded | 1 |")
	require.Contains(t, s, "| nil guarded → not nil guarded | 1 |")
	require.Contains(t, s, "! src/file1:10:2: `p` dereferenced in `*p`: nil guarded → not nil guarded\n")
	require.Contains(t, s, "+ src/file2:5:3: `s` dereferenced in `s[i%n]`: (none) → anti-nil guarded\n")
	require.NotContains(t, s, "%!")
	require.NotContains(t, s, "\x1b[", "colors must only be written to stdout")

	// Removed sites.
	test.Verdicts = Verdicts{}
	buf.Reset()
	require.NoError(t, WriteSummary(&buf, base, test))
	require.Contains(t, buf.String(), "- src/file1:10:2: `p` dereferenced in `*p`: nil guarded → (none)\n")
}

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}
