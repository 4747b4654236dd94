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
	"fmt"
	"strings"

	"github.com/apache/arrow-go/v18/arrow"
	"github.com/apache/arrow-go/v18/arrow/array"
	"github.com/apache/arrow-go/v18/arrow/memory"
	delta "github.com/delta-go/delta-go"
)

type exprHandler struct {
	mem memory.Allocator
}

// NewEvaluator compiles expr against the input schema. Column references
// and literal casts are validated here so that Evaluate only fails on
// malformed batches, not malformed expressions.
func (h *exprHandler) NewEvaluator(input *delta.StructType, expr delta.Expression, output delta.Type) (delta.ExpressionEvaluator, error) {
	switch {
	case input == nil:
		return nil, fmt.Errorf("%w: nil input schema", delta.ErrInvalidArgument)
	case expr == nil:
		return nil, fmt.Errorf("%w: nil expression", delta.ErrInvalidArgument)
	case output == nil:
		return nil, fmt.Errorf("%w: nil output type", delta.ErrInvalidArgument)
	}

	if se, ok := expr.(delta.StructExpr); ok {
		st, ok := output.(*delta.StructType)
		if !ok {
			return nil, fmt.Errorf("%w: struct expression requires a struct output type, got %s",
				delta.ErrInvalidArgument, output)
		}
		if len(se.Exprs) != st.NumFields() {
			return nil, fmt.Errorf("%w: struct expression has %d fields, output type %d",
				delta.ErrInvalidArgument, len(se.Exprs), st.NumFields())
		}
		for _, child := range se.Exprs {
			if err := validateExpr(child, input); err != nil {
				return nil, err
			}
		}
	} else if err := validateExpr(expr, input); err != nil {
		return nil, err
	}

	return &evaluator{mem: h.mem, expr: expr, output: output}, nil
}

func validateExpr(expr delta.Expression, input *delta.StructType) error {
	switch e := expr.(type) {
	case delta.Column:
		if _, ok := input.FieldByPath(string(e)); !ok {
			return fmt.Errorf("%w: column '%s' not found", delta.ErrInvalidSchema, string(e))
		}

		return nil
	case delta.LiteralValue:
		return fmt.Errorf("%w: standalone literal %s", delta.ErrUnsupportedExpression, e)
	case delta.BinaryExpr:
		if e.Op.IsComparison() {
			col, lit, _, err := normalizeComparison(e)
			if err != nil {
				return err
			}
			field, ok := input.FieldByPath(string(col))
			if !ok {
				return fmt.Errorf("%w: column '%s' not found", delta.ErrInvalidSchema, string(col))
			}
			if _, err := lit.To(field.Type); err != nil {
				return err
			}

			return nil
		}
		if e.Op == delta.OpNullIf {
			if err := validateExpr(e.Left, input); err != nil {
				return err
			}

			return validateExpr(e.Right, input)
		}

		return fmt.Errorf("%w: %s", delta.ErrUnsupportedExpression, e.Op)
	case delta.UnaryExpr:
		return validateExpr(e.Expr, input)
	case delta.VariadicExpr:
		if e.Op != delta.OpAnd && e.Op != delta.OpOr {
			return fmt.Errorf("%w: %s", delta.ErrUnsupportedExpression, e.Op)
		}
		for _, child := range e.Exprs {
			if err := validateExpr(child, input); err != nil {
				return err
			}
		}

		return nil
	case delta.StructExpr:
		return fmt.Errorf("%w: nested struct expression", delta.ErrUnsupportedExpression)
	}

	return fmt.Errorf("%w: %T", delta.ErrUnsupportedExpression, expr)
}

// normalizeComparison rearranges a comparison so the column reference is on
// the left, commuting the operator when the operands are swapped.
func normalizeComparison(e delta.BinaryExpr) (delta.Column, delta.Literal, delta.Operation, error) {
	switch l := e.Left.(type) {
	case delta.Column:
		if r, ok := e.Right.(delta.LiteralValue); ok {
			return l, r.Literal, e.Op, nil
		}
	case delta.LiteralValue:
		if r, ok := e.Right.(delta.Column); ok {
			op, _ := e.Op.Commute()

			return r, l.Literal, op, nil
		}
	}

	return "", nil, e.Op, fmt.Errorf("%w: %s requires one column and one literal operand",
		delta.ErrUnsupportedExpression, e.Op)
}

type evaluator struct {
	mem    memory.Allocator
	expr   delta.Expression
	output delta.Type
}

// value is an intermediate column together with an optional validity
// override. A nested column inherits null slots from every null ancestor
// struct; valid carries that combined validity when it differs from the
// leaf array's own bitmap. A nil valid means the array is authoritative.
type value struct {
	arr   arrow.Array
	valid []bool
}

func (v value) isValid(i int) bool {
	if v.valid != nil {
		return v.valid[i]
	}

	return v.arr.IsValid(i)
}

func (v value) release() {
	if v.arr != nil {
		v.arr.Release()
	}
}

func (ev *evaluator) Evaluate(batch arrow.Record) (arrow.Array, error) {
	if batch == nil {
		return nil, fmt.Errorf("%w: nil batch", delta.ErrInvalidArgument)
	}

	if se, ok := ev.expr.(delta.StructExpr); ok {
		return ev.evalStruct(batch, se)
	}

	v, err := ev.eval(batch, ev.expr)
	if err != nil {
		return nil, err
	}

	out, err := ev.materialize(v)
	if err != nil {
		return nil, err
	}

	want, err := ToArrowType(ev.output)
	if err != nil {
		out.Release()

		return nil, err
	}
	if !arrow.TypeEqual(out.DataType(), want) {
		defer out.Release()

		return nil, fmt.Errorf("%w: expected %s, got %s",
			delta.ErrUnexpectedColumnType, want, out.DataType())
	}

	return out, nil
}

// evalStruct assembles the child expression results into a single struct
// column, taking field names from the output schema.
func (ev *evaluator) evalStruct(batch arrow.Record, se delta.StructExpr) (arrow.Array, error) {
	st := ev.output.(*delta.StructType)

	names := make([]string, len(se.Exprs))
	cols := make([]arrow.Array, len(se.Exprs))
	defer func() {
		for _, c := range cols {
			if c != nil {
				c.Release()
			}
		}
	}()

	for i, child := range se.Exprs {
		v, err := ev.eval(batch, child)
		if err != nil {
			return nil, err
		}

		arr, err := ev.materialize(v)
		if err != nil {
			return nil, err
		}
		cols[i] = arr

		field := st.Field(i)
		names[i] = field.Name

		want, err := ToArrowType(field.Type)
		if err != nil {
			return nil, err
		}
		if !arrow.TypeEqual(arr.DataType(), want) {
			return nil, fmt.Errorf("%w: field %s: expected %s, got %s",
				delta.ErrUnexpectedColumnType, field.Name, want, arr.DataType())
		}
	}

	return array.NewStructArray(cols, names)
}

// eval walks the expression tree. Every returned value owns its array; the
// caller releases it.
func (ev *evaluator) eval(batch arrow.Record, expr delta.Expression) (value, error) {
	switch e := expr.(type) {
	case delta.Column:
		return ev.resolveColumn(batch, string(e))
	case delta.BinaryExpr:
		if e.Op.IsComparison() {
			col, lit, op, err := normalizeComparison(e)
			if err != nil {
				return value{}, err
			}

			cv, err := ev.resolveColumn(batch, string(col))
			if err != nil {
				return value{}, err
			}
			defer cv.release()

			return ev.compare(cv, op, lit)
		}
		if e.Op == delta.OpNullIf {
			return ev.evalNullIf(batch, e)
		}

		return value{}, fmt.Errorf("%w: %s", delta.ErrUnsupportedExpression, e.Op)
	case delta.UnaryExpr:
		child, err := ev.eval(batch, e.Expr)
		if err != nil {
			return value{}, err
		}
		defer child.release()

		switch e.Op {
		case delta.OpIsNull:
			return ev.evalIsNull(child)
		case delta.OpNot:
			return ev.evalNot(child)
		}

		return value{}, fmt.Errorf("%w: %s", delta.ErrUnsupportedExpression, e.Op)
	case delta.VariadicExpr:
		return ev.evalVariadic(batch, e)
	}

	return value{}, fmt.Errorf("%w: %T", delta.ErrUnsupportedExpression, expr)
}

// resolveColumn locates a possibly nested column in the batch by name.
// Lookup is by name rather than position so a batch may carry columns the
// compiled schema does not mention. Null ancestor structs are folded into
// the value's validity override.
func (ev *evaluator) resolveColumn(batch arrow.Record, path string) (value, error) {
	name, rest, _ := strings.Cut(path, ".")
	idxs := batch.Schema().FieldIndices(name)
	if len(idxs) == 0 {
		return value{}, fmt.Errorf("%w: column '%s' not present in batch",
			delta.ErrInvalidSchema, name)
	}

	arr := batch.Column(idxs[0])

	var mask []bool
	for rest != "" {
		st, ok := arr.(*array.Struct)
		if !ok {
			return value{}, fmt.Errorf("%w: '%s' is not a struct column (%s)",
				delta.ErrUnexpectedColumnType, name, arr.DataType())
		}

		name, rest, _ = strings.Cut(rest, ".")
		idx, ok := st.DataType().(*arrow.StructType).FieldIdx(name)
		if !ok {
			return value{}, fmt.Errorf("%w: column '%s' has no field '%s'",
				delta.ErrInvalidSchema, path, name)
		}

		if st.NullN() > 0 {
			if mask == nil {
				mask = make([]bool, st.Len())
				for i := range mask {
					mask[i] = true
				}
			}
			for i := range mask {
				mask[i] = mask[i] && st.IsValid(i)
			}
		}
		arr = st.Field(idx)
	}

	if mask != nil {
		for i := range mask {
			mask[i] = mask[i] && arr.IsValid(i)
		}
	}

	arr.Retain()

	return value{arr: arr, valid: mask}, nil
}

// materialize consumes v and returns a plain array whose validity bitmap
// reflects any ancestor nulls.
func (ev *evaluator) materialize(v value) (arrow.Array, error) {
	if v.valid == nil {
		return v.arr, nil
	}
	defer v.arr.Release()

	switch a := v.arr.(type) {
	case *array.Boolean:
		bldr := array.NewBooleanBuilder(ev.mem)
		defer bldr.Release()
		bldr.Reserve(a.Len())
		for i := 0; i < a.Len(); i++ {
			if !v.valid[i] {
				bldr.AppendNull()
			} else {
				bldr.Append(a.Value(i))
			}
		}

		return bldr.NewArray(), nil
	case *array.String:
		bldr := array.NewStringBuilder(ev.mem)
		defer bldr.Release()
		for i := 0; i < a.Len(); i++ {
			if !v.valid[i] {
				bldr.AppendNull()
			} else {
				bldr.Append(a.Value(i))
			}
		}

		return bldr.NewArray(), nil
	}

	return nil, fmt.Errorf("%w: cannot project %s column through null parents",
		delta.ErrUnexpectedColumnType, v.arr.DataType())
}

func (ev *evaluator) compare(cv value, op delta.Operation, lit delta.Literal) (value, error) {
	switch a := cv.arr.(type) {
	case *array.Boolean:
		return compareTyped(ev.mem, cv, op, lit, delta.PrimitiveTypes.Bool, a.Value)
	case *array.Int8:
		return compareTyped(ev.mem, cv, op, lit, delta.PrimitiveTypes.Byte,
			func(i int) int32 { return int32(a.Value(i)) })
	case *array.Int16:
		return compareTyped(ev.mem, cv, op, lit, delta.PrimitiveTypes.Short,
			func(i int) int32 { return int32(a.Value(i)) })
	case *array.Int32:
		return compareTyped(ev.mem, cv, op, lit, delta.PrimitiveTypes.Int32, a.Value)
	case *array.Int64:
		return compareTyped(ev.mem, cv, op, lit, delta.PrimitiveTypes.Int64, a.Value)
	case *array.Float32:
		return compareTyped(ev.mem, cv, op, lit, delta.PrimitiveTypes.Float32, a.Value)
	case *array.Float64:
		return compareTyped(ev.mem, cv, op, lit, delta.PrimitiveTypes.Float64, a.Value)
	case *array.String:
		return compareTyped(ev.mem, cv, op, lit, delta.PrimitiveTypes.String, a.Value)
	case *array.Binary:
		return compareTyped(ev.mem, cv, op, lit, delta.PrimitiveTypes.Binary,
			func(i int) []byte { return a.Value(i) })
	case *array.Date32:
		return compareTyped(ev.mem, cv, op, lit, delta.PrimitiveTypes.Date,
			func(i int) delta.Date { return delta.Date(a.Value(i)) })
	case *array.Timestamp:
		return compareTyped(ev.mem, cv, op, lit, delta.PrimitiveTypes.Timestamp,
			func(i int) delta.Timestamp { return delta.Timestamp(a.Value(i)) })
	}

	return value{}, fmt.Errorf("%w: cannot compare %s column",
		delta.ErrUnexpectedColumnType, cv.arr.DataType())
}

// compareTyped evaluates `col op lit` row by row. A null slot propagates
// to a null result.
func compareTyped[T delta.LiteralType](mem memory.Allocator, cv value, op delta.Operation, lit delta.Literal, target delta.Type, get func(int) T) (value, error) {
	casted, err := lit.To(target)
	if err != nil {
		return value{}, err
	}
	typed, ok := casted.(delta.TypedLiteral[T])
	if !ok {
		return value{}, fmt.Errorf("%w: expected %s literal, got %s",
			delta.ErrType, target, casted.Type())
	}
	rhs, cmp := typed.Value(), typed.Comparator()

	bldr := array.NewBooleanBuilder(mem)
	defer bldr.Release()
	n := cv.arr.Len()
	bldr.Reserve(n)
	for i := 0; i < n; i++ {
		if !cv.isValid(i) {
			bldr.AppendNull()

			continue
		}
		bldr.Append(satisfies(op, cmp(get(i), rhs)))
	}

	return value{arr: bldr.NewArray()}, nil
}

func satisfies(op delta.Operation, c int) bool {
	switch op {
	case delta.OpLT:
		return c < 0
	case delta.OpLTEQ:
		return c <= 0
	case delta.OpGT:
		return c > 0
	case delta.OpGTEQ:
		return c >= 0
	case delta.OpEQ:
		return c == 0
	case delta.OpNEQ:
		return c != 0
	}
	panic("not a comparison: " + op.String())
}

// evalNullIf nulls out entries of the left operand wherever the right
// operand is true, matching the semantics of arrow's nullif kernel.
func (ev *evaluator) evalNullIf(batch arrow.Record, e delta.BinaryExpr) (value, error) {
	left, err := ev.eval(batch, e.Left)
	if err != nil {
		return value{}, err
	}
	defer left.release()

	right, err := ev.eval(batch, e.Right)
	if err != nil {
		return value{}, err
	}
	defer right.release()

	lb, err := asBoolean(left)
	if err != nil {
		return value{}, err
	}
	rb, err := asBoolean(right)
	if err != nil {
		return value{}, err
	}

	bldr := array.NewBooleanBuilder(ev.mem)
	defer bldr.Release()
	n := lb.Len()
	bldr.Reserve(n)
	for i := 0; i < n; i++ {
		if (right.isValid(i) && rb.Value(i)) || !left.isValid(i) {
			bldr.AppendNull()

			continue
		}
		bldr.Append(lb.Value(i))
	}

	return value{arr: bldr.NewArray()}, nil
}

// evalIsNull is the only operation that never produces null itself.
func (ev *evaluator) evalIsNull(child value) (value, error) {
	bldr := array.NewBooleanBuilder(ev.mem)
	defer bldr.Release()
	n := child.arr.Len()
	bldr.Reserve(n)
	for i := 0; i < n; i++ {
		bldr.Append(!child.isValid(i))
	}

	return value{arr: bldr.NewArray()}, nil
}

func (ev *evaluator) evalNot(child value) (value, error) {
	cb, err := asBoolean(child)
	if err != nil {
		return value{}, err
	}

	bldr := array.NewBooleanBuilder(ev.mem)
	defer bldr.Release()
	n := cb.Len()
	bldr.Reserve(n)
	for i := 0; i < n; i++ {
		if !child.isValid(i) {
			bldr.AppendNull()

			continue
		}
		bldr.Append(!cb.Value(i))
	}

	return value{arr: bldr.NewArray()}, nil
}

// evalVariadic combines the operands under three-valued logic: a false
// operand dominates And and a true operand dominates Or regardless of any
// null siblings. An empty And is vacuously true, an empty Or false.
func (ev *evaluator) evalVariadic(batch arrow.Record, e delta.VariadicExpr) (value, error) {
	vals := make([]value, len(e.Exprs))
	bools := make([]*array.Boolean, len(e.Exprs))
	defer func() {
		for _, v := range vals {
			v.release()
		}
	}()

	for i, child := range e.Exprs {
		v, err := ev.eval(batch, child)
		if err != nil {
			return value{}, err
		}
		vals[i] = v

		if bools[i], err = asBoolean(v); err != nil {
			return value{}, err
		}
	}

	bldr := array.NewBooleanBuilder(ev.mem)
	defer bldr.Release()
	n := int(batch.NumRows())
	bldr.Reserve(n)
	for i := 0; i < n; i++ {
		res, null := e.Op == delta.OpAnd, false
		for j := range vals {
			switch {
			case !vals[j].isValid(i):
				null = true
			case e.Op == delta.OpAnd && !bools[j].Value(i):
				res = false
			case e.Op == delta.OpOr && bools[j].Value(i):
				res = true
			}
		}

		switch {
		case e.Op == delta.OpAnd && !res, e.Op == delta.OpOr && res:
			bldr.Append(res)
		case null:
			bldr.AppendNull()
		default:
			bldr.Append(res)
		}
	}

	return value{arr: bldr.NewArray()}, nil
}

func asBoolean(v value) (*array.Boolean, error) {
	b, ok := v.arr.(*array.Boolean)
	if !ok {
		return nil, fmt.Errorf("%w: expected BooleanArray, got %s",
			delta.ErrUnexpectedColumnType, v.arr.DataType())
	}

	return b, nil
}
