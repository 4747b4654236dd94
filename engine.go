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

import "github.com/apache/arrow-go/v18/arrow"

// Engine is the set of capabilities a caller must supply for operations
// that need to evaluate expressions or parse file metadata. The kernel
// itself performs no I/O; everything flows through these interfaces.
//
// Implementations must be safe for concurrent use: a compiled evaluator is
// shared across goroutines that each process independent record batches.
type Engine interface {
	ExpressionHandler() ExpressionHandler
	JSONHandler() JSONHandler
}

// ExpressionHandler compiles expressions into reusable evaluators.
type ExpressionHandler interface {
	// NewEvaluator compiles expr for evaluation against batches conforming
	// to the input schema. The output type declares the shape the caller
	// expects the result column to have.
	NewEvaluator(input *StructType, expr Expression, output Type) (ExpressionEvaluator, error)
}

// ExpressionEvaluator evaluates a compiled expression against a record
// batch, producing a single (possibly nested) output column with one entry
// per input row.
type ExpressionEvaluator interface {
	Evaluate(batch arrow.Record) (arrow.Array, error)
}

// JSONHandler parses a column of JSON documents into a structured record
// batch matching the given schema. Fields absent from a document must
// parse as null, not as an error; a null input document produces an
// all-null row.
type JSONHandler interface {
	ParseJSON(stats arrow.Array, schema *StructType) (arrow.Record, error)
}
