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

package scan

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/apache/arrow-go/v18/arrow"
	"github.com/apache/arrow-go/v18/arrow/array"
	"github.com/apache/arrow-go/v18/arrow/compute"
	delta "github.com/delta-go/delta-go"
	"github.com/google/uuid"
)

// AsDataSkippingPredicate rewrites a predicate over table columns into a
// predicate over the per-file minValues/maxValues statistics. Returns nil
// if the expression is not eligible for data skipping. Callers should run
// RewriteNot over the predicate first; an explicit Not is never eligible.
//
// Each binary operation is normalized to a comparison between a column and
// a literal value and rewritten in terms of the min/max values of the
// column. For example, `1 < a` is rewritten as `maxValues.a > 1`.
//
// The variadic operations are rewritten as follows:
//   - And is rewritten as a conjunction of the rewritten operands, where
//     ineligible operands are simply dropped. Fewer conjuncts only weaken
//     the skip test, never make it unsound.
//   - Or is rewritten only if every operand is eligible. A file could match
//     a dropped Or branch, so partial information would make skipping
//     unsound and the whole expression is abandoned instead.
func AsDataSkippingPredicate(expr delta.Expression) delta.Expression {
	switch e := expr.(type) {
	case delta.BinaryExpr:
		var (
			op  delta.Operation
			col delta.Column
			val delta.LiteralValue
		)
		switch l := e.Left.(type) {
		case delta.Column:
			r, ok := e.Right.(delta.LiteralValue)
			if !ok {
				return nil
			}
			op, col, val = e.Op, l, r
		case delta.LiteralValue:
			r, ok := e.Right.(delta.Column)
			if !ok {
				return nil
			}
			commuted, ok := e.Op.Commute()
			if !ok {
				return nil
			}
			op, col, val = commuted, r, l
		default:
			return nil
		}

		var statsCol string
		switch op {
		case delta.OpLT, delta.OpLTEQ:
			statsCol = "minValues"
		case delta.OpGT, delta.OpGTEQ:
			statsCol = "maxValues"
		case delta.OpEQ:
			// a file's range must contain the value
			return AsDataSkippingPredicate(delta.NewAnd(
				delta.NewBinary(delta.OpLTEQ, col, val),
				delta.NewBinary(delta.OpLTEQ, val, col),
			))
		case delta.OpNEQ:
			// skippable only if the whole range lies on one side of the value
			return delta.NewOr(
				delta.NewBinary(delta.OpGT, delta.Col("minValues."+string(col)), val),
				delta.NewBinary(delta.OpLT, delta.Col("maxValues."+string(col)), val),
			)
		default:
			return nil
		}

		return delta.NewBinary(op, delta.Col(statsCol+"."+string(col)), val)
	case delta.VariadicExpr:
		switch e.Op {
		case delta.OpAnd:
			exprs := make([]delta.Expression, 0, len(e.Exprs))
			for _, op := range e.Exprs {
				if rewritten := AsDataSkippingPredicate(op); rewritten != nil {
					exprs = append(exprs, rewritten)
				}
			}

			// an empty conjunction is vacuously true: it never prunes,
			// but it is still a valid, conservative filter
			return delta.VariadicExpr{Op: delta.OpAnd, Exprs: exprs}
		case delta.OpOr:
			exprs := make([]delta.Expression, 0, len(e.Exprs))
			for _, op := range e.Exprs {
				rewritten := AsDataSkippingPredicate(op)
				if rewritten == nil {
					return nil
				}
				exprs = append(exprs, rewritten)
			}

			return delta.VariadicExpr{Op: delta.OpOr, Exprs: exprs}
		}

		return nil
	}

	return nil
}

var (
	predicateSchema = delta.NewStructType(
		delta.StructField{Name: "predicate", Type: delta.PrimitiveTypes.Bool, Nullable: true},
	)

	// maps the three-valued skip predicate result down to a two-valued
	// selection vector: true(keep) -> null -> true, false(skip) -> false,
	// null(unknown stats) -> true. Unknown statistics never cause a skip.
	filterExpr = delta.NewIsNull(delta.NewNullIf(
		delta.Col("predicate"),
		delta.Col("predicate"),
	))

	statsExpr = delta.Col("add.stats")

	// the shape of the add-action columns the stats projection touches
	actionSchema = delta.NewStructType(
		delta.StructField{
			Name: "add",
			Type: delta.NewStructType(
				delta.StructField{Name: "stats", Type: delta.PrimitiveTypes.String, Nullable: true},
			),
			Nullable: true,
		},
	)
)

// DataSkippingFilter prunes add-action batches down to the files whose
// statistics might contain rows matching a scan predicate. It is immutable
// after construction and safe to share across goroutines applying it to
// independent batches.
type DataSkippingFilter struct {
	scanID      string
	statsSchema *delta.StructType

	selectStatsEvaluator delta.ExpressionEvaluator
	skippingEvaluator    delta.ExpressionEvaluator
	filterEvaluator      delta.ExpressionEvaluator
	jsonHandler          delta.JSONHandler
}

// NewDataSkippingFilter creates a new data skipping filter. It returns
// (nil, nil) if there is no predicate, the predicate references no columns
// with usable statistics, or the predicate is ineligible for data skipping.
//
// A nil filter is equivalent to a trivial filter that keeps every file;
// returning nil lets the caller avoid the overhead of applying it.
func NewDataSkippingFilter(engine delta.Engine, tableSchema *delta.StructType, predicate delta.Expression) (*DataSkippingFilter, error) {
	if predicate == nil || tableSchema == nil {
		return nil, nil
	}

	predicate = delta.RewriteNot(predicate)

	// build the stats read schema from the subset of table columns the
	// predicate actually references
	referenced := map[string]struct{}{}
	for _, name := range delta.ReferencedColumns(predicate) {
		referenced[name] = struct{}{}
	}

	dataFields := make([]delta.StructField, 0, len(referenced))
	for _, field := range tableSchema.Fields() {
		if _, ok := referenced[field.Name]; ok {
			dataFields = append(dataFields, field)
		}
	}
	if len(dataFields) == 0 {
		// the predicate didn't reference any eligible stats columns
		return nil, nil
	}

	skipping := AsDataSkippingPredicate(predicate)
	if skipping == nil {
		return nil, nil
	}

	statsSchema := delta.NewStructType(
		delta.StructField{Name: "minValues", Type: delta.NewStructType(dataFields...), Nullable: true},
		delta.StructField{Name: "maxValues", Type: delta.NewStructType(dataFields...), Nullable: true},
	)

	// Skipping happens in several steps:
	//
	// 1. The skip predicate produces false for any file whose stats prove
	//    it can be skipped, true when the stats say the file must be kept,
	//    and null when the stats were missing/null.
	//
	// 2. The NullIf(p, p) converts true (= keep) to null, producing a
	//    result containing only false (= skip) and null (= keep).
	//
	// 3. The IsNull converts null back to true, producing a selection
	//    vector of only true (= keep) and false (= skip).
	//
	// 4. The filter drops every file whose selection vector entry is false.
	exprHandler := engine.ExpressionHandler()

	skippingEvaluator, err := exprHandler.NewEvaluator(
		statsSchema, delta.NewStructExpr(skipping), predicateSchema)
	if err != nil {
		return nil, err
	}

	filterEvaluator, err := exprHandler.NewEvaluator(
		predicateSchema, filterExpr, delta.PrimitiveTypes.Bool)
	if err != nil {
		return nil, err
	}

	selectStatsEvaluator, err := exprHandler.NewEvaluator(
		actionSchema, statsExpr, delta.PrimitiveTypes.String)
	if err != nil {
		return nil, err
	}

	return &DataSkippingFilter{
		scanID:               uuid.NewString(),
		statsSchema:          statsSchema,
		selectStatsEvaluator: selectStatsEvaluator,
		skippingEvaluator:    skippingEvaluator,
		filterEvaluator:      filterEvaluator,
		jsonHandler:          engine.JSONHandler(),
	}, nil
}

// Apply filters a batch of add-action rows down to the files that might
// contain rows matching the predicate, preserving row order. The input
// batch is only borrowed; the returned batch is owned by the caller.
func (f *DataSkippingFilter) Apply(ctx context.Context, actions arrow.Record) (arrow.Record, error) {
	stats, err := f.selectStatsEvaluator.Evaluate(actions)
	if err != nil {
		return nil, err
	}
	defer stats.Release()

	parsed, err := f.jsonHandler.ParseJSON(stats, f.statsSchema)
	if err != nil {
		return nil, err
	}
	defer parsed.Release()

	skipPredicate, err := f.skippingEvaluator.Evaluate(parsed)
	if err != nil {
		return nil, err
	}
	defer skipPredicate.Release()

	predStruct, ok := skipPredicate.(*array.Struct)
	if !ok {
		return nil, fmt.Errorf("%w: expected StructArray, got %s",
			delta.ErrUnexpectedColumnType, skipPredicate.DataType())
	}

	predBatch := array.RecordFromStructArray(predStruct, nil)
	defer predBatch.Release()

	selection, err := f.filterEvaluator.Evaluate(predBatch)
	if err != nil {
		return nil, err
	}
	defer selection.Release()

	boolSelection, ok := selection.(*array.Boolean)
	if !ok {
		return nil, fmt.Errorf("%w: expected BooleanArray, got %s",
			delta.ErrUnexpectedColumnType, selection.DataType())
	}

	before := actions.NumRows()
	out, err := compute.Filter(ctx, compute.NewDatumWithoutOwning(actions),
		compute.NewDatumWithoutOwning(boolSelection), *compute.DefaultFilterOptions())
	if err != nil {
		return nil, err
	}

	result := out.(*compute.RecordDatum).Value
	slog.Debug("applied data skipping filter",
		"scan_id", f.scanID, "before", before, "after", result.NumRows())

	return result, nil
}
