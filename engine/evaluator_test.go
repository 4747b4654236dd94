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
	"strings"
	"testing"

	"github.com/apache/arrow-go/v18/arrow"
	"github.com/apache/arrow-go/v18/arrow/array"
	"github.com/apache/arrow-go/v18/arrow/memory"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	delta "github.com/delta-go/delta-go"
	"github.com/delta-go/delta-go/engine"
)

var numbersSchema = delta.NewStructType(
	delta.StructField{Name: "a", Type: delta.PrimitiveTypes.Int64, Nullable: true},
	delta.StructField{Name: "b", Type: delta.PrimitiveTypes.Int64, Nullable: true},
)

func numbersBatch(t *testing.T, content string) arrow.Record {
	t.Helper()

	schema, err := engine.ToArrowSchema(numbersSchema)
	require.NoError(t, err)

	rec, _, err := array.RecordFromJSON(memory.DefaultAllocator, schema,
		strings.NewReader(content))
	require.NoError(t, err)
	t.Cleanup(rec.Release)

	return rec
}

// boolValues flattens a boolean array into pointers so null slots can be
// asserted alongside values.
func boolValues(t *testing.T, arr arrow.Array) []*bool {
	t.Helper()

	b, ok := arr.(*array.Boolean)
	require.True(t, ok, "got %s", arr.DataType())

	out := make([]*bool, b.Len())
	for i := 0; i < b.Len(); i++ {
		if b.IsValid(i) {
			v := b.Value(i)
			out[i] = &v
		}
	}

	return out
}

func ptr[T any](v T) *T { return &v }

func TestEvaluateComparison(t *testing.T) {
	eng := engine.New(nil)
	batch := numbersBatch(t, `[{"a": 1, "b": 0}, {"a": null, "b": 0}, {"a": 20, "b": 0}]`)

	tests := []struct {
		name     string
		expr     delta.Expression
		expected []*bool
	}{
		{"gt", delta.GreaterThan("a", int64(15)), []*bool{ptr(false), nil, ptr(true)}},
		{"lt", delta.LessThan("a", int64(15)), []*bool{ptr(true), nil, ptr(false)}},
		{"eq", delta.EqualTo("a", int64(20)), []*bool{ptr(false), nil, ptr(true)}},
		{"neq", delta.NotEqualTo("a", int64(1)), []*bool{ptr(false), nil, ptr(true)}},
		{"lit on left", delta.NewBinary(delta.OpLT, delta.Lit(int64(15)), delta.Col("a")),
			[]*bool{ptr(false), nil, ptr(true)}},
		{"widened literal", delta.GreaterThan("a", int32(15)), []*bool{ptr(false), nil, ptr(true)}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ev, err := eng.ExpressionHandler().NewEvaluator(numbersSchema, tt.expr, delta.PrimitiveTypes.Bool)
			require.NoError(t, err)

			out, err := ev.Evaluate(batch)
			require.NoError(t, err)
			defer out.Release()

			assert.Equal(t, tt.expected, boolValues(t, out))
		})
	}
}

func TestEvaluateKleeneLogic(t *testing.T) {
	eng := engine.New(nil)
	// a > 0: [true, false, null]; b > 0: [null, true, false]
	batch := numbersBatch(t, `[{"a": 1, "b": null}, {"a": -1, "b": 1}, {"a": null, "b": -1}]`)

	pa := delta.GreaterThan("a", int64(0))
	pb := delta.GreaterThan("b", int64(0))

	tests := []struct {
		name     string
		expr     delta.Expression
		expected []*bool
	}{
		{"and", delta.NewAnd(pa, pb), []*bool{nil, ptr(false), ptr(false)}},
		{"or", delta.NewOr(pa, pb), []*bool{ptr(true), ptr(true), nil}},
		{"empty and is true", delta.NewAnd(), []*bool{ptr(true), ptr(true), ptr(true)}},
		{"empty or is false", delta.NewOr(), []*bool{ptr(false), ptr(false), ptr(false)}},
		{"not", delta.UnaryExpr{Op: delta.OpNot, Expr: pa}, []*bool{ptr(false), ptr(true), nil}},
		{"is null", delta.NewIsNull(delta.Col("a")), []*bool{ptr(false), ptr(false), ptr(true)}},
		{"is null never null", delta.NewIsNull(pa), []*bool{ptr(false), ptr(false), ptr(true)}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ev, err := eng.ExpressionHandler().NewEvaluator(numbersSchema, tt.expr, delta.PrimitiveTypes.Bool)
			require.NoError(t, err)

			out, err := ev.Evaluate(batch)
			require.NoError(t, err)
			defer out.Release()

			assert.Equal(t, tt.expected, boolValues(t, out))
		})
	}
}

func TestEvaluateNullIfCollapse(t *testing.T) {
	eng := engine.New(nil)
	// the three-valued to two-valued collapse used by the skipping filter:
	// true -> true, false -> false, null -> true
	predSchema := delta.NewStructType(
		delta.StructField{Name: "predicate", Type: delta.PrimitiveTypes.Bool, Nullable: true},
	)
	expr := delta.NewIsNull(delta.NewNullIf(delta.Col("predicate"), delta.Col("predicate")))

	schema, err := engine.ToArrowSchema(predSchema)
	require.NoError(t, err)
	rec, _, err := array.RecordFromJSON(memory.DefaultAllocator, schema,
		strings.NewReader(`[{"predicate": true}, {"predicate": false}, {"predicate": null}]`))
	require.NoError(t, err)
	defer rec.Release()

	ev, err := eng.ExpressionHandler().NewEvaluator(predSchema, expr, delta.PrimitiveTypes.Bool)
	require.NoError(t, err)

	out, err := ev.Evaluate(rec)
	require.NoError(t, err)
	defer out.Release()

	assert.Equal(t, []*bool{ptr(true), ptr(false), ptr(true)}, boolValues(t, out))
}

var nestedSchema = delta.NewStructType(
	delta.StructField{Name: "minValues", Type: delta.NewStructType(
		delta.StructField{Name: "a", Type: delta.PrimitiveTypes.Int64, Nullable: true},
	), Nullable: true},
)

func TestEvaluateNestedColumn(t *testing.T) {
	eng := engine.New(nil)

	schema, err := engine.ToArrowSchema(nestedSchema)
	require.NoError(t, err)
	rec, _, err := array.RecordFromJSON(memory.DefaultAllocator, schema, strings.NewReader(`[
		{"minValues": {"a": 1}},
		{"minValues": null},
		{"minValues": {"a": 30}}
	]`))
	require.NoError(t, err)
	defer rec.Release()

	ev, err := eng.ExpressionHandler().NewEvaluator(nestedSchema,
		delta.GreaterThan("minValues.a", int64(10)), delta.PrimitiveTypes.Bool)
	require.NoError(t, err)

	out, err := ev.Evaluate(rec)
	require.NoError(t, err)
	defer out.Release()

	// a null parent struct makes the nested column null for that row
	assert.Equal(t, []*bool{ptr(false), nil, ptr(true)}, boolValues(t, out))
}

func TestEvaluateStructExpr(t *testing.T) {
	eng := engine.New(nil)
	batch := numbersBatch(t, `[{"a": 1, "b": 0}, {"a": 20, "b": 0}]`)

	output := delta.NewStructType(
		delta.StructField{Name: "predicate", Type: delta.PrimitiveTypes.Bool, Nullable: true},
	)
	ev, err := eng.ExpressionHandler().NewEvaluator(numbersSchema,
		delta.NewStructExpr(delta.GreaterThan("a", int64(15))), output)
	require.NoError(t, err)

	out, err := ev.Evaluate(batch)
	require.NoError(t, err)
	defer out.Release()

	st, ok := out.(*array.Struct)
	require.True(t, ok)
	require.Equal(t, 1, st.NumField())
	idx, ok := st.DataType().(*arrow.StructType).FieldIdx("predicate")
	require.True(t, ok)
	assert.Equal(t, []*bool{ptr(false), ptr(true)}, boolValues(t, st.Field(idx)))
}

func TestEvaluateExtraBatchColumns(t *testing.T) {
	eng := engine.New(nil)
	// columns are resolved by name, so the batch may carry columns the
	// compiled schema never mentioned
	input := delta.NewStructType(
		delta.StructField{Name: "a", Type: delta.PrimitiveTypes.Int64, Nullable: true},
	)
	batch := numbersBatch(t, `[{"a": 20, "b": 7}]`)

	ev, err := eng.ExpressionHandler().NewEvaluator(input,
		delta.GreaterThan("a", int64(15)), delta.PrimitiveTypes.Bool)
	require.NoError(t, err)

	out, err := ev.Evaluate(batch)
	require.NoError(t, err)
	defer out.Release()

	assert.Equal(t, []*bool{ptr(true)}, boolValues(t, out))
}

func TestNewEvaluatorErrors(t *testing.T) {
	eng := engine.New(nil)
	handler := eng.ExpressionHandler()

	_, err := handler.NewEvaluator(nil, delta.Col("a"), delta.PrimitiveTypes.Bool)
	assert.ErrorIs(t, err, delta.ErrInvalidArgument)

	_, err = handler.NewEvaluator(numbersSchema, nil, delta.PrimitiveTypes.Bool)
	assert.ErrorIs(t, err, delta.ErrInvalidArgument)

	_, err = handler.NewEvaluator(numbersSchema, delta.Col("missing"), delta.PrimitiveTypes.String)
	assert.ErrorIs(t, err, delta.ErrInvalidSchema)

	_, err = handler.NewEvaluator(numbersSchema,
		delta.GreaterThan("a", "not a number"), delta.PrimitiveTypes.Bool)
	assert.ErrorIs(t, err, delta.ErrBadCast)

	_, err = handler.NewEvaluator(numbersSchema,
		delta.NewBinary(delta.OpPlus, delta.Col("a"), delta.Lit(int64(1))), delta.PrimitiveTypes.Int64)
	assert.ErrorIs(t, err, delta.ErrUnsupportedExpression)

	_, err = handler.NewEvaluator(numbersSchema,
		delta.NewBinary(delta.OpLT, delta.Col("a"), delta.Col("b")), delta.PrimitiveTypes.Bool)
	assert.ErrorIs(t, err, delta.ErrUnsupportedExpression)

	_, err = handler.NewEvaluator(numbersSchema,
		delta.NewStructExpr(delta.GreaterThan("a", int64(1))), delta.PrimitiveTypes.Bool)
	assert.ErrorIs(t, err, delta.ErrInvalidArgument)
}

func TestEvaluateOutputTypeMismatch(t *testing.T) {
	eng := engine.New(nil)
	batch := numbersBatch(t, `[{"a": 1, "b": 2}]`)

	ev, err := eng.ExpressionHandler().NewEvaluator(numbersSchema,
		delta.GreaterThan("a", int64(15)), delta.PrimitiveTypes.String)
	require.NoError(t, err)

	_, err = ev.Evaluate(batch)
	assert.ErrorIs(t, err, delta.ErrUnexpectedColumnType)
}

func TestEvaluateColumnProjection(t *testing.T) {
	eng := engine.New(nil)

	input := delta.NewStructType(
		delta.StructField{Name: "add", Type: delta.NewStructType(
			delta.StructField{Name: "stats", Type: delta.PrimitiveTypes.String, Nullable: true},
		), Nullable: true},
	)
	schema, err := engine.ToArrowSchema(input)
	require.NoError(t, err)

	rec, _, err := array.RecordFromJSON(memory.DefaultAllocator, schema, strings.NewReader(`[
		{"add": {"stats": "one"}},
		{"add": null},
		{"add": {"stats": null}}
	]`))
	require.NoError(t, err)
	defer rec.Release()

	ev, err := eng.ExpressionHandler().NewEvaluator(input, delta.Col("add.stats"),
		delta.PrimitiveTypes.String)
	require.NoError(t, err)

	out, err := ev.Evaluate(rec)
	require.NoError(t, err)
	defer out.Release()

	strs, ok := out.(*array.String)
	require.True(t, ok)
	require.Equal(t, 3, strs.Len())
	assert.Equal(t, "one", strs.Value(0))
	assert.True(t, strs.IsNull(1))
	assert.True(t, strs.IsNull(2))
}
