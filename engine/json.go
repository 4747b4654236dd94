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

package engine

import (
	"encoding/base64"
	"fmt"
	"strings"
	"time"

	"github.com/apache/arrow-go/v18/arrow"
	"github.com/apache/arrow-go/v18/arrow/array"
	"github.com/apache/arrow-go/v18/arrow/memory"
	delta "github.com/delta-go/delta-go"
	"github.com/goccy/go-json"
)

type jsonHandler struct {
	mem memory.Allocator
}

// ParseJSON parses a string column of JSON documents into a record batch
// with the given schema, one row per document. Fields the schema names but
// a document omits come out null, as do null or empty documents; extra
// fields in a document are ignored. Numbers are decoded via json.Number so
// 64-bit values survive intact.
func (h *jsonHandler) ParseJSON(stats arrow.Array, schema *delta.StructType) (arrow.Record, error) {
	docs, ok := stats.(*array.String)
	if !ok {
		return nil, fmt.Errorf("%w: expected StringArray, got %s",
			delta.ErrUnexpectedColumnType, stats.DataType())
	}

	arrowSchema, err := ToArrowSchema(schema)
	if err != nil {
		return nil, err
	}

	bldr := array.NewRecordBuilder(h.mem, arrowSchema)
	defer bldr.Release()

	fields := schema.Fields()
	for i := 0; i < docs.Len(); i++ {
		if docs.IsNull(i) || strings.TrimSpace(docs.Value(i)) == "" {
			for j := range fields {
				bldr.Field(j).AppendNull()
			}

			continue
		}

		var doc map[string]any
		dec := json.NewDecoder(strings.NewReader(docs.Value(i)))
		dec.UseNumber()
		if err := dec.Decode(&doc); err != nil {
			return nil, fmt.Errorf("%w: row %d: %s", delta.ErrJSONParse, i, err.Error())
		}

		for j, f := range fields {
			if err := appendValue(bldr.Field(j), f.Type, doc[f.Name]); err != nil {
				return nil, fmt.Errorf("%w: row %d, field %s: %s",
					delta.ErrJSONParse, i, f.Name, err.Error())
			}
		}
	}

	return bldr.NewRecord(), nil
}

func appendValue(b array.Builder, t delta.Type, v any) error {
	if v == nil {
		// StructBuilder.AppendNull already appends a null to every child
		// builder, so no recursion is needed to keep lengths aligned.
		b.AppendNull()

		return nil
	}

	if st, ok := t.(*delta.StructType); ok {
		obj, ok := v.(map[string]any)
		if !ok {
			return fmt.Errorf("expected object, got %T", v)
		}

		sb := b.(*array.StructBuilder)
		sb.Append(true)
		for i, f := range st.Fields() {
			if err := appendValue(sb.FieldBuilder(i), f.Type, obj[f.Name]); err != nil {
				return fmt.Errorf("field %s: %s", f.Name, err.Error())
			}
		}

		return nil
	}

	return appendPrimitive(b, t, v)
}

func appendPrimitive(b array.Builder, t delta.Type, v any) error {
	switch t.(type) {
	case delta.BooleanType:
		val, ok := v.(bool)
		if !ok {
			return fmt.Errorf("expected bool, got %T", v)
		}
		b.(*array.BooleanBuilder).Append(val)
	case delta.ByteType:
		val, err := asInt(v, 8)
		if err != nil {
			return err
		}
		b.(*array.Int8Builder).Append(int8(val))
	case delta.ShortType:
		val, err := asInt(v, 16)
		if err != nil {
			return err
		}
		b.(*array.Int16Builder).Append(int16(val))
	case delta.IntegerType:
		val, err := asInt(v, 32)
		if err != nil {
			return err
		}
		b.(*array.Int32Builder).Append(int32(val))
	case delta.LongType:
		val, err := asInt(v, 64)
		if err != nil {
			return err
		}
		b.(*array.Int64Builder).Append(val)
	case delta.FloatType:
		val, err := asFloat(v)
		if err != nil {
			return err
		}
		b.(*array.Float32Builder).Append(float32(val))
	case delta.DoubleType:
		val, err := asFloat(v)
		if err != nil {
			return err
		}
		b.(*array.Float64Builder).Append(val)
	case delta.StringType:
		val, ok := v.(string)
		if !ok {
			return fmt.Errorf("expected string, got %T", v)
		}
		b.(*array.StringBuilder).Append(val)
	case delta.BinaryType:
		enc, ok := v.(string)
		if !ok {
			return fmt.Errorf("expected base64 string, got %T", v)
		}
		val, err := base64.StdEncoding.DecodeString(enc)
		if err != nil {
			return err
		}
		b.(*array.BinaryBuilder).Append(val)
	case delta.DateType:
		s, ok := v.(string)
		if !ok {
			return fmt.Errorf("expected date string, got %T", v)
		}
		tm, err := time.Parse("2006-01-02", s)
		if err != nil {
			return err
		}
		b.(*array.Date32Builder).Append(arrow.Date32FromTime(tm))
	case delta.TimestampType:
		s, ok := v.(string)
		if !ok {
			return fmt.Errorf("expected timestamp string, got %T", v)
		}
		tm, err := time.Parse(time.RFC3339, s)
		if err != nil {
			if tm, err = time.Parse("2006-01-02 15:04:05", s); err != nil {
				return err
			}
		}
		b.(*array.TimestampBuilder).Append(arrow.Timestamp(tm.UTC().UnixMicro()))
	default:
		return fmt.Errorf("unsupported type %s", t)
	}

	return nil
}

func asInt(v any, bits int) (int64, error) {
	num, ok := v.(json.Number)
	if !ok {
		return 0, fmt.Errorf("expected number, got %T", v)
	}

	val, err := num.Int64()
	if err != nil {
		return 0, err
	}
	if bits < 64 && (val >= 1<<(bits-1) || val < -1<<(bits-1)) {
		return 0, fmt.Errorf("value %d overflows %d-bit integer", val, bits)
	}

	return val, nil
}

func asFloat(v any) (float64, error) {
	num, ok := v.(json.Number)
	if !ok {
		return 0, fmt.Errorf("expected number, got %T", v)
	}

	return num.Float64()
}
