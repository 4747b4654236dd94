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

package engine_test

import (
	"testing"

	"github.com/apache/arrow-go/v18/arrow"
	"github.com/apache/arrow-go/v18/arrow/array"
	"github.com/apache/arrow-go/v18/arrow/memory"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	delta "github.com/delta-go/delta-go"
	"github.com/delta-go/delta-go/engine"
)

func stringColumn(t *testing.T, docs []*string) arrow.Array {
	t.Helper()

	bldr := array.NewStringBuilder(memory.DefaultAllocator)
	defer bldr.Release()
	for _, d := range docs {
		if d == nil {
			bldr.AppendNull()
		} else {
			bldr.Append(*d)
		}
	}

	arr := bldr.NewArray()
	t.Cleanup(arr.Release)

	return arr
}

var statsSchema = delta.NewStructType(
	delta.StructField{Name: "minValues", Type: delta.NewStructType(
		delta.StructField{Name: "a", Type: delta.PrimitiveTypes.Int64, Nullable: true},
	), Nullable: true},
	delta.StructField{Name: "maxValues", Type: delta.NewStructType(
		delta.StructField{Name: "a", Type: delta.PrimitiveTypes.Int64, Nullable: true},
	), Nullable: true},
)

func TestParseJSONStats(t *testing.T) {
	h := engine.New(nil).JSONHandler()

	docs := stringColumn(t, []*string{
		ptr(`{"minValues": {"a": 1}, "maxValues": {"a": 5}}`),
		nil,
		ptr(`{"minValues": {"a": 10}, "maxValues": {"a": 20}, "numRecords": 44}`),
	})

	rec, err := h.ParseJSON(docs, statsSchema)
	require.NoError(t, err)
	defer rec.Release()

	require.EqualValues(t, 3, rec.NumRows())
	require.EqualValues(t, 2, rec.NumCols())

	minStruct := rec.Column(0).(*array.Struct)
	assert.True(t, minStruct.IsNull(1), "null document should produce a null row")

	idx, ok := minStruct.DataType().(*arrow.StructType).FieldIdx("a")
	require.True(t, ok)
	mins := minStruct.Field(idx).(*array.Int64)
	assert.EqualValues(t, 1, mins.Value(0))
	assert.True(t, mins.IsNull(1))
	assert.EqualValues(t, 10, mins.Value(2))
}

func TestParseJSONNullDocumentAlignment(t *testing.T) {
	h := engine.New(nil).JSONHandler()

	// Null and empty documents must occupy exactly one slot in every child
	// builder or the rows after them shift and read their neighbor's stats.
	docs := stringColumn(t, []*string{
		nil,
		ptr(`{"minValues": {"a": 16}, "maxValues": {"a": 20}}`),
		ptr(`{"minValues": null, "maxValues": {"a": 7}}`),
		ptr(`{"minValues": {"a": 1}, "maxValues": {"a": 5}}`),
	})

	rec, err := h.ParseJSON(docs, statsSchema)
	require.NoError(t, err)
	defer rec.Release()

	require.EqualValues(t, 4, rec.NumRows())

	minStruct := rec.Column(0).(*array.Struct)
	maxStruct := rec.Column(1).(*array.Struct)
	require.Equal(t, 4, minStruct.Field(0).Len())
	require.Equal(t, 4, maxStruct.Field(0).Len())

	mins := minStruct.Field(0).(*array.Int64)
	maxs := maxStruct.Field(0).(*array.Int64)

	assert.True(t, minStruct.IsNull(0))
	assert.True(t, maxStruct.IsNull(0))
	assert.EqualValues(t, 16, mins.Value(1))
	assert.EqualValues(t, 20, maxs.Value(1))
	assert.True(t, minStruct.IsNull(2))
	assert.EqualValues(t, 7, maxs.Value(2))
	assert.EqualValues(t, 1, mins.Value(3))
	assert.EqualValues(t, 5, maxs.Value(3))
}

func TestParseJSONMissingFields(t *testing.T) {
	h := engine.New(nil).JSONHandler()

	docs := stringColumn(t, []*string{
		ptr(`{"minValues": {"b": 9}}`),
		ptr(`{}`),
		ptr(`  `),
	})

	rec, err := h.ParseJSON(docs, statsSchema)
	require.NoError(t, err)
	defer rec.Release()

	require.EqualValues(t, 3, rec.NumRows())
	for col := 0; col < int(rec.NumCols()); col++ {
		st := rec.Column(col).(*array.Struct)
		for row := 0; row < int(rec.NumRows()); row++ {
			leaf := st.Field(0)
			assert.True(t, leaf.IsNull(row), "col %d row %d", col, row)
		}
	}
}

func TestParseJSONAllTypes(t *testing.T) {
	h := engine.New(nil).JSONHandler()

	schema := delta.NewStructType(
		delta.StructField{Name: "flag", Type: delta.PrimitiveTypes.Bool, Nullable: true},
		delta.StructField{Name: "score", Type: delta.PrimitiveTypes.Float64, Nullable: true},
		delta.StructField{Name: "name", Type: delta.PrimitiveTypes.String, Nullable: true},
		delta.StructField{Name: "day", Type: delta.PrimitiveTypes.Date, Nullable: true},
		delta.StructField{Name: "at", Type: delta.PrimitiveTypes.Timestamp, Nullable: true},
	)

	docs := stringColumn(t, []*string{
		ptr(`{"flag": true, "score": 2.5, "name": "x", "day": "2021-04-18", "at": "2021-04-18T04:05:06Z"}`),
	})

	rec, err := h.ParseJSON(docs, schema)
	require.NoError(t, err)
	defer rec.Release()

	assert.True(t, rec.Column(0).(*array.Boolean).Value(0))
	assert.Equal(t, 2.5, rec.Column(1).(*array.Float64).Value(0))
	assert.Equal(t, "x", rec.Column(2).(*array.String).Value(0))
	assert.EqualValues(t, 18735, rec.Column(3).(*array.Date32).Value(0))
	assert.EqualValues(t, 1618718706000000, rec.Column(4).(*array.Timestamp).Value(0))
}

func TestParseJSONErrors(t *testing.T) {
	h := engine.New(nil).JSONHandler()

	_, err := h.ParseJSON(stringColumn(t, []*string{ptr(`{not json`)}), statsSchema)
	assert.ErrorIs(t, err, delta.ErrJSONParse)

	_, err = h.ParseJSON(stringColumn(t, []*string{ptr(`{"minValues": {"a": "oops"}}`)}), statsSchema)
	assert.ErrorIs(t, err, delta.ErrJSONParse)

	_, err = h.ParseJSON(stringColumn(t, []*string{ptr(`{"minValues": 3}`)}), statsSchema)
	assert.ErrorIs(t, err, delta.ErrJSONParse)

	bldr := array.NewInt64Builder(memory.DefaultAllocator)
	defer bldr.Release()
	bldr.Append(1)
	ints := bldr.NewArray()
	defer ints.Release()

	_, err = h.ParseJSON(ints, statsSchema)
	assert.ErrorIs(t, err, delta.ErrUnexpectedColumnType)
}

func TestParseJSONIntegerOverflow(t *testing.T) {
	h := engine.New(nil).JSONHandler()

	schema := delta.NewStructType(
		delta.StructField{Name: "tiny", Type: delta.PrimitiveTypes.Byte, Nullable: true},
	)

	_, err := h.ParseJSON(stringColumn(t, []*string{ptr(`{"tiny": 4000}`)}), schema)
	assert.ErrorIs(t, err, delta.ErrJSONParse)

	rec, err := h.ParseJSON(stringColumn(t, []*string{ptr(`{"tiny": -128}`)}), schema)
	require.NoError(t, err)
	defer rec.Release()
	assert.EqualValues(t, -128, rec.Column(0).(*array.Int8).Value(0))
}
