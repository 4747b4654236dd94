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
)

//go:generate stringer -type=Operation -linecomment

// Operation is an enum used for constants to define what operation a given
// expression is going to execute.
type Operation int

const (
	// do not change the order of these enum constants.
	// they are grouped for quick validation of operation type by
	// using <= and >= of the first/last operation in a group

	// comparison ops
	OpLT   Operation = iota // LessThan
	OpLTEQ                  // LessThanEqual
	OpGT                    // GreaterThan
	OpGTEQ                  // GreaterThanEqual
	OpEQ                    // Equal
	OpNEQ                   // NotEqual
	// arithmetic ops
	OpPlus     // Plus
	OpMinus    // Minus
	OpMultiply // Multiply
	OpDivide   // Divide
	// null handling
	OpNullIf // NullIf
	OpIsNull // IsNull
	// boolean ops
	OpNot // Not
	OpAnd // And
	OpOr  // Or
)

// IsComparison reports whether op is one of the six comparison operators.
func (op Operation) IsComparison() bool { return op >= OpLT && op <= OpNEQ }

// Negate returns the inverse operation for a given comparison op.
// Will panic for operations that have no inverse.
func (op Operation) Negate() Operation {
	switch op {
	case OpLT:
		return OpGTEQ
	case OpLTEQ:
		return OpGT
	case OpGT:
		return OpLTEQ
	case OpGTEQ:
		return OpLT
	case OpEQ:
		return OpNEQ
	case OpNEQ:
		return OpEQ
	default:
		panic("no negation for operation " + op.String())
	}
}

// Commute returns the operation op2 (if any) such that `B op2 A` is
// equivalent to `A op B`.
func (op Operation) Commute() (Operation, bool) {
	switch op {
	case OpLT:
		return OpGT, true
	case OpLTEQ:
		return OpGTEQ, true
	case OpGT:
		return OpLT, true
	case OpGTEQ:
		return OpLTEQ, true
	case OpEQ, OpNEQ, OpPlus, OpMultiply:
		return op, true
	default:
		return op, false
	}
}

// Expression is an immutable tree over table columns. It is a closed set
// of variants: Column, LiteralValue, BinaryExpr, VariadicExpr, UnaryExpr
// and StructExpr. Code consuming expressions switches on the concrete type.
type Expression interface {
	fmt.Stringer
	Equals(Expression) bool

	// requiring this method ensures that only types we define
	// can be used as an expression.
	isExpr()
}

// Column is a reference to a field of the input, possibly nested via a
// dotted path such as "minValues.a".
type Column string

// Col is a convenience for constructing a Column reference.
func Col(name string) Column { return Column(name) }

func (Column) isExpr() {}
func (c Column) String() string {
	return "Column(name='" + string(c) + "')"
}

func (c Column) Equals(other Expression) bool {
	rhs, ok := other.(Column)

	return ok && c == rhs
}

// LiteralValue wraps a Literal so it can appear in an expression tree.
type LiteralValue struct {
	Literal
}

// Lit is a convenience for constructing a literal expression from a value.
func Lit[T LiteralType](v T) LiteralValue {
	return LiteralValue{Literal: NewLiteral(v)}
}

func (LiteralValue) isExpr() {}
func (l LiteralValue) String() string {
	return "Literal(value=" + l.Literal.String() + ", type=" + l.Literal.Type().String() + ")"
}

func (l LiteralValue) Equals(other Expression) bool {
	rhs, ok := other.(LiteralValue)

	return ok && l.Literal.Equals(rhs.Literal)
}

// BinaryExpr is an operation over two operands, e.g. a comparison of a
// column against a literal, or NullIf over two boolean operands.
type BinaryExpr struct {
	Op          Operation
	Left, Right Expression
}

func newBinary(op Operation, left, right Expression) BinaryExpr {
	if left == nil || right == nil {
		panic(fmt.Errorf("%w: cannot construct BinaryExpr with nil operands",
			ErrInvalidArgument))
	}

	return BinaryExpr{Op: op, Left: left, Right: right}
}

func (BinaryExpr) isExpr() {}
func (b BinaryExpr) String() string {
	return b.Op.String() + "(left=" + b.Left.String() + ", right=" + b.Right.String() + ")"
}

func (b BinaryExpr) Equals(other Expression) bool {
	rhs, ok := other.(BinaryExpr)

	return ok && b.Op == rhs.Op && b.Left.Equals(rhs.Left) && b.Right.Equals(rhs.Right)
}

// VariadicExpr is a conjunction or disjunction over any number of operands.
// An empty And is vacuously true, an empty Or vacuously false.
type VariadicExpr struct {
	Op    Operation
	Exprs []Expression
}

func newVariadic(op Operation, exprs []Expression) VariadicExpr {
	for _, e := range exprs {
		if e == nil {
			panic(fmt.Errorf("%w: cannot construct %s with nil operand",
				ErrInvalidArgument, op))
		}
	}

	return VariadicExpr{Op: op, Exprs: exprs}
}

func (VariadicExpr) isExpr() {}
func (v VariadicExpr) String() string {
	var b strings.Builder
	b.WriteString(v.Op.String())
	b.WriteString("(exprs=[")
	for i, e := range v.Exprs {
		if i != 0 {
			b.WriteString(", ")
		}
		b.WriteString(e.String())
	}
	b.WriteString("])")

	return b.String()
}

func (v VariadicExpr) Equals(other Expression) bool {
	rhs, ok := other.(VariadicExpr)
	if !ok || v.Op != rhs.Op || len(v.Exprs) != len(rhs.Exprs) {
		return false
	}

	for i := range v.Exprs {
		if !v.Exprs[i].Equals(rhs.Exprs[i]) {
			return false
		}
	}

	return true
}

// UnaryExpr is an operation over a single operand: Not or IsNull.
type UnaryExpr struct {
	Op   Operation
	Expr Expression
}

func (UnaryExpr) isExpr() {}
func (u UnaryExpr) String() string {
	return u.Op.String() + "(expr=" + u.Expr.String() + ")"
}

func (u UnaryExpr) Equals(other Expression) bool {
	rhs, ok := other.(UnaryExpr)

	return ok && u.Op == rhs.Op && u.Expr.Equals(rhs.Expr)
}

// StructExpr evaluates each of its children and assembles the results into
// a single struct column. Field names are supplied by the output schema the
// evaluator is compiled with.
type StructExpr struct {
	Exprs []Expression
}

func (StructExpr) isExpr() {}
func (s StructExpr) String() string {
	var b strings.Builder
	b.WriteString("Struct(exprs=[")
	for i, e := range s.Exprs {
		if i != 0 {
			b.WriteString(", ")
		}
		b.WriteString(e.String())
	}
	b.WriteString("])")

	return b.String()
}

func (s StructExpr) Equals(other Expression) bool {
	rhs, ok := other.(StructExpr)
	if !ok || len(s.Exprs) != len(rhs.Exprs) {
		return false
	}

	for i := range s.Exprs {
		if !s.Exprs[i].Equals(rhs.Exprs[i]) {
			return false
		}
	}

	return true
}

// NewAnd constructs a conjunction over the provided operands.
func NewAnd(exprs ...Expression) Expression {
	return newVariadic(OpAnd, exprs)
}

// NewOr constructs a disjunction over the provided operands.
func NewOr(exprs ...Expression) Expression {
	return newVariadic(OpOr, exprs)
}

// NewNot negates the given expression.
//
// If the argument is itself a Not, the child is returned rather than
// Not(Not(child)).
func NewNot(child Expression) Expression {
	if child == nil {
		panic(fmt.Errorf("%w: cannot create Not with nil child",
			ErrInvalidArgument))
	}

	if n, ok := child.(UnaryExpr); ok && n.Op == OpNot {
		return n.Expr
	}

	return UnaryExpr{Op: OpNot, Expr: child}
}

// NewIsNull returns an expression that is true when its argument is null
// and false otherwise. It never evaluates to null itself.
func NewIsNull(child Expression) Expression {
	return UnaryExpr{Op: OpIsNull, Expr: child}
}

// NewNullIf returns an expression that evaluates to the left operand with
// entries nulled out wherever the right operand is true.
func NewNullIf(left, right Expression) Expression {
	return newBinary(OpNullIf, left, right)
}

// NewStructExpr assembles the results of the child expressions into a
// struct column.
func NewStructExpr(exprs ...Expression) Expression {
	return StructExpr{Exprs: exprs}
}

// EqualTo is a convenience for `col = value`.
func EqualTo[T LiteralType](name string, v T) Expression {
	return newBinary(OpEQ, Col(name), Lit(v))
}

// NotEqualTo is a convenience for `col != value`.
func NotEqualTo[T LiteralType](name string, v T) Expression {
	return newBinary(OpNEQ, Col(name), Lit(v))
}

// LessThan is a convenience for `col < value`.
func LessThan[T LiteralType](name string, v T) Expression {
	return newBinary(OpLT, Col(name), Lit(v))
}

// LessThanEqual is a convenience for `col <= value`.
func LessThanEqual[T LiteralType](name string, v T) Expression {
	return newBinary(OpLTEQ, Col(name), Lit(v))
}

// GreaterThan is a convenience for `col > value`.
func GreaterThan[T LiteralType](name string, v T) Expression {
	return newBinary(OpGT, Col(name), Lit(v))
}

// GreaterThanEqual is a convenience for `col >= value`.
func GreaterThanEqual[T LiteralType](name string, v T) Expression {
	return newBinary(OpGTEQ, Col(name), Lit(v))
}

// NewBinary constructs an arbitrary binary operation. Most callers want
// one of the comparison helpers instead.
func NewBinary(op Operation, left, right Expression) Expression {
	return newBinary(op, left, right)
}
