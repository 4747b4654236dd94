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

import "errors"

var (
	// ErrInvalidArgument is returned (or wrapped) whenever a caller passes
	// an argument that violates a documented precondition.
	ErrInvalidArgument = errors.New("invalid argument")
	// ErrType indicates a value of an unexpected Delta type.
	ErrType = errors.New("invalid type")
	// ErrBadCast indicates a literal could not be cast to the requested type.
	ErrBadCast = errors.New("invalid literal cast")
	// ErrInvalidSchema indicates a malformed schema or a reference that
	// could not be resolved against one.
	ErrInvalidSchema = errors.New("invalid schema")
	// ErrUnsupportedExpression indicates an expression shape an evaluator
	// does not implement.
	ErrUnsupportedExpression = errors.New("unsupported expression")
	// ErrUnexpectedColumnType indicates an evaluation produced a column of
	// a shape the caller did not expect. This is an internal wiring defect,
	// not a data error.
	ErrUnexpectedColumnType = errors.New("unexpected column type")
	// ErrJSONParse indicates malformed JSON in file statistics.
	ErrJSONParse = errors.New("json parse error")
)
