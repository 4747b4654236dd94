// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//   http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or
// implied. See the License for the specific language governing
// permissions and limitations under the License.

package delta

import (
	"fmt"
	"strings"
	"sync"

	"github.com/goccy/go-json"
)

// StructField is a single named, typed field of a struct type. Metadata
// carries the free-form key/value annotations that the Delta schema
// serialization format allows on fields.
type StructField struct {
	Name     string         `json:"name"`
	Type     Type           `json:"-"`
	Nullable bool           `json:"nullable"`
	Metadata map[string]any `json:"metadata,omitempty"`
}

func (f StructField) String() string {
	req := ""
	if !f.Nullable {
		req = " not null"
	}

	return fmt.Sprintf("%s: %s%s", f.Name, f.Type, req)
}

func (f StructField) Equals(other StructField) bool {
	return f.Name == other.Name &&
		f.Nullable == other.Nullable &&
		f.Type.Equals(other.Type)
}

func (f StructField) MarshalJSON() ([]byte, error) {
	type Alias StructField
	meta := f.Metadata
	if meta == nil {
		meta = map[string]any{}
	}

	return json.Marshal(struct {
		Alias
		Type     *typeIFace     `json:"type"`
		Metadata map[string]any `json:"metadata"`
	}{Alias: (Alias)(f), Type: &typeIFace{f.Type}, Metadata: meta})
}

func (f *StructField) UnmarshalJSON(b []byte) error {
	type Alias StructField
	aux := struct {
		*Alias
		Type *typeIFace `json:"type"`
	}{Alias: (*Alias)(f)}

	if err := json.Unmarshal(b, &aux); err != nil {
		return err
	}
	if aux.Type == nil {
		return fmt.Errorf("%w: field %s is missing a type", ErrInvalidSchema, f.Name)
	}
	f.Type = aux.Type.Type

	return nil
}

// StructType is the nested Delta type: an ordered collection of named
// fields. A table schema is itself a StructType. The field slice is only
// exported via accessor methods so a StructType stays immutable once built.
type StructType struct {
	fields []StructField

	lazyNameIdx func() map[string]int
}

// NewStructType constructs a StructType from the given fields.
func NewStructType(fields ...StructField) *StructType {
	st := &StructType{fields: fields}
	st.init()

	return st
}

func (s *StructType) init() {
	s.lazyNameIdx = sync.OnceValue(func() map[string]int {
		idx := make(map[string]int, len(s.fields))
		for i, f := range s.fields {
			idx[f.Name] = i
		}

		return idx
	})
}

func (s *StructType) Fields() []StructField { return s.fields }
func (s *StructType) NumFields() int        { return len(s.fields) }
func (s *StructType) Field(i int) StructField {
	return s.fields[i]
}

// FieldByName looks up a direct child field by name.
func (s *StructType) FieldByName(name string) (StructField, bool) {
	if s.lazyNameIdx == nil {
		s.init()
	}

	i, ok := s.lazyNameIdx()[name]
	if !ok {
		return StructField{}, false
	}

	return s.fields[i], true
}

// FieldByPath resolves a dotted path such as "minValues.a" through any
// intermediate struct fields, returning the leaf field.
func (s *StructType) FieldByPath(path string) (StructField, bool) {
	cur := s
	parts := strings.Split(path, ".")
	for i, part := range parts {
		f, ok := cur.FieldByName(part)
		if !ok {
			return StructField{}, false
		}
		if i == len(parts)-1 {
			return f, true
		}

		cur, ok = f.Type.(*StructType)
		if !ok {
			return StructField{}, false
		}
	}

	return StructField{}, false
}

func (s *StructType) Type() string { return "struct" }

func (s *StructType) String() string {
	var b strings.Builder
	b.WriteString("struct<")
	for i, f := range s.fields {
		if i != 0 {
			b.WriteString(", ")
		}
		b.WriteString(f.String())
	}
	b.WriteString(">")

	return b.String()
}

func (s *StructType) Equals(other Type) bool {
	rhs, ok := other.(*StructType)
	if !ok {
		return false
	}

	if len(s.fields) != len(rhs.fields) {
		return false
	}
	for i := range s.fields {
		if !s.fields[i].Equals(rhs.fields[i]) {
			return false
		}
	}

	return true
}

func (s *StructType) MarshalJSON() ([]byte, error) {
	return json.Marshal(struct {
		Type   string        `json:"type"`
		Fields []StructField `json:"fields"`
	}{Type: "struct", Fields: s.fields})
}

func (s *StructType) UnmarshalJSON(b []byte) error {
	aux := struct {
		Type   string        `json:"type"`
		Fields []StructField `json:"fields"`
	}{}
	if err := json.Unmarshal(b, &aux); err != nil {
		return err
	}
	if aux.Type != "struct" {
		return fmt.Errorf("%w: expected type 'struct', got '%s'", ErrInvalidSchema, aux.Type)
	}

	s.fields = aux.Fields
	s.init()

	return nil
}

// ParseSchema parses the JSON serialized form of a Delta table schema.
func ParseSchema(b []byte) (*StructType, error) {
	st := &StructType{}
	if err := json.Unmarshal(b, st); err != nil {
		return nil, fmt.Errorf("%w: %s", ErrInvalidSchema, err.Error())
	}

	return st, nil
}
