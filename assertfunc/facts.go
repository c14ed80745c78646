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

package assertfunc

import (
	"bytes"
	"encoding/gob"
	"fmt"
	"strings"
	"testing"

	"github.com/klauspost/compress/s2"
	"go.uber.org/nilguard/hook"
	"go.uber.org/nilguard/util/orderedmap"
	"golang.org/x/tools/go/analysis"
)

// Facts stores the contracts of the exported assertion functions of a package, for downstream
// packages to use without re-collecting them.
type Facts struct {
	contracts *orderedmap.OrderedMap[string, []hook.Contract]
}

func newFacts() *Facts {
	return &Facts{contracts: orderedmap.New[string, []hook.Contract]()}
}

// AFact enables use of the facts passing mechanism in Go's analysis framework.
func (*Facts) AFact() {}

// String returns the contracts in insertion order, e.g., "{pkg.Assert: true(0)}".
func (f *Facts) String() string {
	var parts []string
	f.contracts.OrderedRange(func(name string, cs []hook.Contract) bool {
		strs := make([]string, len(cs))
		for i, c := range cs {
			strs[i] = c.String()
		}
		parts = append(parts, name+": "+strings.Join(strs, ","))
		return true
	})
	return "{" + strings.Join(parts, "; ") + "}"
}

// export exports the facts if there is anything to export.
func (f *Facts) export(pass *analysis.Pass) error {
	if f.contracts.Len() == 0 {
		return nil
	}

	// If we are testing, we encode and decode the facts to ensure that the gob encoding works
	// correctly, since the drivers used in tests may not serialize facts at all.
	if testing.Testing() {
		b, err := f.GobEncode()
		if err != nil {
			return fmt.Errorf("encode facts: %w", err)
		}
		decoded := newFacts()
		if err := decoded.GobDecode(b); err != nil {
			return fmt.Errorf("decode facts: %w", err)
		}
		if decoded.String() != f.String() {
			return fmt.Errorf("facts changed after encoding: %s != %s", decoded, f)
		}
	}

	pass.ExportPackageFact(f)
	return nil
}

// GobEncode encodes the facts via gob encoding, compressed with s2.
func (f *Facts) GobEncode() ([]byte, error) {
	var buf bytes.Buffer
	writer := s2.NewWriter(&buf)
	if err := gob.NewEncoder(writer).Encode(f.contracts); err != nil {
		_ = writer.Close()
		return nil, err
	}

	// Close the s2 writer before getting the bytes such that we have complete information.
	if err := writer.Close(); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// GobDecode decodes the facts from the buffer.
func (f *Facts) GobDecode(input []byte) error {
	f.contracts = orderedmap.New[string, []hook.Contract]()
	return gob.NewDecoder(s2.NewReader(bytes.NewReader(input))).Decode(f.contracts)
}
