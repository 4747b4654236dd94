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

import "strings"

// ReferencedColumns returns the set of column names referenced anywhere in
// the expression, in first-appearance order. Dotted paths are returned on
// their top-level name; only the root segment matters for resolving a
// reference against a table schema.
func ReferencedColumns(expr Expression) []string {
	var (
		out  []string
		seen = map[string]struct{}{}
	)

	var walk func(Expression)
	walk = func(e Expression) {
		switch e := e.(type) {
		case Column:
			name, _, _ := strings.Cut(string(e), ".")
			if _, ok := seen[name]; !ok {
				seen[name] = struct{}{}
				out = append(out, name)
			}
		case BinaryExpr:
			walk(e.Left)
			walk(e.Right)
		case UnaryExpr:
			walk(e.Expr)
		case VariadicExpr:
			for _, op := range e.Exprs {
				walk(op)
			}
		case StructExpr:
			for _, op := range e.Exprs {
				walk(op)
			}
		}
	}

	if expr != nil {
		walk(expr)
	}

	return out
}

// RewriteNot eliminates Not from an expression tree wherever a sound
// rewrite exists: De Morgan over And/Or, operator negation over the six
// comparisons. A Not whose child cannot be negated is left in place.
func RewriteNot(expr Expression) Expression {
	switch e := expr.(type) {
	case UnaryExpr:
		if e.Op != OpNot {
			return expr
		}

		return negate(RewriteNot(e.Expr))
	case VariadicExpr:
		rewritten := make([]Expression, len(e.Exprs))
		for i, op := range e.Exprs {
			rewritten[i] = RewriteNot(op)
		}

		return VariadicExpr{Op: e.Op, Exprs: rewritten}
	default:
		return expr
	}
}

func negate(expr Expression) Expression {
	switch e := expr.(type) {
	case BinaryExpr:
		if e.Op.IsComparison() {
			return BinaryExpr{Op: e.Op.Negate(), Left: e.Left, Right: e.Right}
		}
	case VariadicExpr:
		negated := make([]Expression, len(e.Exprs))
		for i, op := range e.Exprs {
			negated[i] = negate(op)
		}
		switch e.Op {
		case OpAnd:
			return VariadicExpr{Op: OpOr, Exprs: negated}
		case OpOr:
			return VariadicExpr{Op: OpAnd, Exprs: negated}
		}
	case UnaryExpr:
		if e.Op == OpNot {
			return e.Expr
		}
	}

	// no sound negation known, keep an explicit Not
	return UnaryExpr{Op: OpNot, Expr: expr}
}
