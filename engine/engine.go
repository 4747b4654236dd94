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

// Package engine provides the default, Arrow-backed implementation of the
// delta.Engine capability interfaces: an expression evaluator over Arrow
// record batches and a JSON parser for per-file statistics columns.
package engine

import (
	"github.com/apache/arrow-go/v18/arrow/memory"
	delta "github.com/delta-go/delta-go"
)

// DefaultEngine implements delta.Engine on top of arrow-go. It holds no
// mutable state and is safe for concurrent use.
type DefaultEngine struct {
	mem memory.Allocator
}

// New returns a DefaultEngine allocating from mem. A nil allocator falls
// back to memory.DefaultAllocator.
func New(mem memory.Allocator) *DefaultEngine {
	if mem == nil {
		mem = memory.DefaultAllocator
	}

	return &DefaultEngine{mem: mem}
}

func (e *DefaultEngine) ExpressionHandler() delta.ExpressionHandler {
	return &exprHandler{mem: e.mem}
}

func (e *DefaultEngine) JSONHandler() delta.JSONHandler {
	return &jsonHandler{mem: e.mem}
}
