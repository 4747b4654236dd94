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
	"bytes"
	"cmp"
	"fmt"
	"math"
	"strconv"
	"time"
)

// LiteralType is a generic type constraint for the explicit Go types that
// we allow for literal values. These are the physical representations of
// the Delta primitive types.
type LiteralType interface {
	bool | int32 | int64 | float32 | float64 | string | []byte |
		Date | Timestamp
}

// Comparator is a comparison function for specific literal types:
//
//	returns 0 if v1 == v2
//	returns <0 if v1 < v2
//	returns >0 if v1 > v2
type Comparator[T LiteralType] func(v1, v2 T) int

// Literal is a non-null literal value. It can be casted using To and be
// checked for equality against other literals.
type Literal interface {
	fmt.Stringer

	Any() any
	Type() Type
	To(Type) (Literal, error)
	Equals(Literal) bool
}

// TypedLiteral is a generic interface for Literals so that you can
// retrieve the underlying value and an ordering for it.
type TypedLiteral[T LiteralType] interface {
	Literal

	Value() T
	Comparator() Comparator[T]
}

// NewLiteral provides a literal based on the type of T.
func NewLiteral[T LiteralType](val T) Literal {
	switch v := any(val).(type) {
	case bool:
		return BoolLiteral(v)
	case int32:
		return Int32Literal(v)
	case int64:
		return Int64Literal(v)
	case float32:
		return Float32Literal(v)
	case float64:
		return Float64Literal(v)
	case string:
		return StringLiteral(v)
	case []byte:
		return BinaryLiteral(v)
	case Date:
		return DateLiteral(v)
	case Timestamp:
		return TimestampLiteral(v)
	}
	panic("can't happen due to literal type constraint")
}

// convenience to avoid repeating this pattern for primitive types
func literalEq[L interface {
	comparable
	LiteralType
}, T TypedLiteral[L]](lhs T, other Literal) bool {
	rhs, ok := other.(T)
	if !ok {
		return false
	}

	return lhs.Value() == rhs.Value()
}

type BoolLiteral bool

func (BoolLiteral) Comparator() Comparator[bool] {
	return func(v1, v2 bool) int {
		if v1 == v2 {
			return 0
		}
		if !v1 {
			return -1
		}

		return 1
	}
}

func (b BoolLiteral) Type() Type     { return PrimitiveTypes.Bool }
func (b BoolLiteral) Value() bool    { return bool(b) }
func (b BoolLiteral) Any() any       { return b.Value() }
func (b BoolLiteral) String() string { return strconv.FormatBool(bool(b)) }
func (b BoolLiteral) To(t Type) (Literal, error) {
	if _, ok := t.(BooleanType); ok {
		return b, nil
	}

	return nil, fmt.Errorf("%w: BoolLiteral to %s", ErrBadCast, t)
}

func (b BoolLiteral) Equals(other Literal) bool {
	return literalEq[bool](b, other)
}

// narrowInt32 casts v to the byte, short or integer type t, rejecting
// values outside the target's range.
func narrowInt32(v int32, t Type) (Literal, error) {
	switch t.(type) {
	case ByteType:
		if v > math.MaxInt8 || v < math.MinInt8 {
			return nil, fmt.Errorf("%w: value %d out of byte range", ErrBadCast, v)
		}

		return ByteLiteral(v), nil
	case ShortType:
		if v > math.MaxInt16 || v < math.MinInt16 {
			return nil, fmt.Errorf("%w: value %d out of short range", ErrBadCast, v)
		}

		return ShortLiteral(v), nil
	}

	return Int32Literal(v), nil
}

// ByteLiteral carries its value as int32, the widest type a byte widens to
// without changing sign or order, so byte and integer literals share one
// comparator type.
type ByteLiteral int32

func (ByteLiteral) Comparator() Comparator[int32] { return cmp.Compare[int32] }
func (b ByteLiteral) Type() Type                  { return PrimitiveTypes.Byte }
func (b ByteLiteral) Value() int32                { return int32(b) }
func (b ByteLiteral) Any() any                    { return b.Value() }
func (b ByteLiteral) String() string              { return strconv.FormatInt(int64(b), 10) }
func (b ByteLiteral) To(t Type) (Literal, error) {
	switch t.(type) {
	case ByteType:
		return b, nil
	case ShortType:
		return ShortLiteral(b), nil
	case IntegerType:
		return Int32Literal(b), nil
	case LongType:
		return Int64Literal(b), nil
	case FloatType:
		return Float32Literal(b), nil
	case DoubleType:
		return Float64Literal(b), nil
	}

	return nil, fmt.Errorf("%w: ByteLiteral to %s", ErrBadCast, t)
}

func (b ByteLiteral) Equals(other Literal) bool {
	return literalEq[int32](b, other)
}

// ShortLiteral carries its value as int32, same as ByteLiteral.
type ShortLiteral int32

func (ShortLiteral) Comparator() Comparator[int32] { return cmp.Compare[int32] }
func (s ShortLiteral) Type() Type                  { return PrimitiveTypes.Short }
func (s ShortLiteral) Value() int32                { return int32(s) }
func (s ShortLiteral) Any() any                    { return s.Value() }
func (s ShortLiteral) String() string              { return strconv.FormatInt(int64(s), 10) }
func (s ShortLiteral) To(t Type) (Literal, error) {
	switch t.(type) {
	case ByteType:
		return narrowInt32(int32(s), t)
	case ShortType:
		return s, nil
	case IntegerType:
		return Int32Literal(s), nil
	case LongType:
		return Int64Literal(s), nil
	case FloatType:
		return Float32Literal(s), nil
	case DoubleType:
		return Float64Literal(s), nil
	}

	return nil, fmt.Errorf("%w: ShortLiteral to %s", ErrBadCast, t)
}

func (s ShortLiteral) Equals(other Literal) bool {
	return literalEq[int32](s, other)
}

type Int32Literal int32

func (Int32Literal) Comparator() Comparator[int32] { return cmp.Compare[int32] }
func (i Int32Literal) Type() Type                  { return PrimitiveTypes.Int32 }
func (i Int32Literal) Value() int32                { return int32(i) }
func (i Int32Literal) Any() any                    { return i.Value() }
func (i Int32Literal) String() string              { return strconv.FormatInt(int64(i), 10) }
func (i Int32Literal) To(t Type) (Literal, error) {
	switch t.(type) {
	case ByteType, ShortType:
		return narrowInt32(int32(i), t)
	case IntegerType:
		return i, nil
	case LongType:
		return Int64Literal(i), nil
	case FloatType:
		return Float32Literal(i), nil
	case DoubleType:
		return Float64Literal(i), nil
	case DateType:
		return DateLiteral(i), nil
	}

	return nil, fmt.Errorf("%w: Int32Literal to %s", ErrBadCast, t)
}

func (i Int32Literal) Equals(other Literal) bool {
	return literalEq[int32](i, other)
}

type Int64Literal int64

func (Int64Literal) Comparator() Comparator[int64] { return cmp.Compare[int64] }
func (i Int64Literal) Type() Type                  { return PrimitiveTypes.Int64 }
func (i Int64Literal) Value() int64                { return int64(i) }
func (i Int64Literal) Any() any                    { return i.Value() }
func (i Int64Literal) String() string              { return strconv.FormatInt(int64(i), 10) }
func (i Int64Literal) To(t Type) (Literal, error) {
	switch t.(type) {
	case ByteType, ShortType, IntegerType:
		if math.MaxInt32 < i || i < math.MinInt32 {
			return nil, fmt.Errorf("%w: Int64Literal %d out of int32 range", ErrBadCast, i)
		}

		return narrowInt32(int32(i), t)
	case LongType:
		return i, nil
	case FloatType:
		return Float32Literal(i), nil
	case DoubleType:
		return Float64Literal(i), nil
	case TimestampType:
		return TimestampLiteral(i), nil
	}

	return nil, fmt.Errorf("%w: Int64Literal to %s", ErrBadCast, t)
}

func (i Int64Literal) Equals(other Literal) bool {
	return literalEq[int64](i, other)
}

type Float32Literal float32

func (Float32Literal) Comparator() Comparator[float32] { return cmp.Compare[float32] }
func (f Float32Literal) Type() Type                    { return PrimitiveTypes.Float32 }
func (f Float32Literal) Value() float32                { return float32(f) }
func (f Float32Literal) Any() any                      { return f.Value() }
func (f Float32Literal) String() string {
	return strconv.FormatFloat(float64(f), 'g', -1, 32)
}

func (f Float32Literal) To(t Type) (Literal, error) {
	switch t.(type) {
	case FloatType:
		return f, nil
	case DoubleType:
		return Float64Literal(f), nil
	}

	return nil, fmt.Errorf("%w: Float32Literal to %s", ErrBadCast, t)
}

func (f Float32Literal) Equals(other Literal) bool {
	return literalEq[float32](f, other)
}

type Float64Literal float64

func (Float64Literal) Comparator() Comparator[float64] { return cmp.Compare[float64] }
func (f Float64Literal) Type() Type                    { return PrimitiveTypes.Float64 }
func (f Float64Literal) Value() float64                { return float64(f) }
func (f Float64Literal) Any() any                      { return f.Value() }
func (f Float64Literal) String() string {
	return strconv.FormatFloat(float64(f), 'g', -1, 64)
}

func (f Float64Literal) To(t Type) (Literal, error) {
	switch t.(type) {
	case FloatType:
		return Float32Literal(f), nil
	case DoubleType:
		return f, nil
	}

	return nil, fmt.Errorf("%w: Float64Literal to %s", ErrBadCast, t)
}

func (f Float64Literal) Equals(other Literal) bool {
	return literalEq[float64](f, other)
}

type StringLiteral string

func (StringLiteral) Comparator() Comparator[string] { return cmp.Compare[string] }
func (s StringLiteral) Type() Type                   { return PrimitiveTypes.String }
func (s StringLiteral) Value() string                { return string(s) }
func (s StringLiteral) Any() any                     { return s.Value() }
func (s StringLiteral) String() string               { return string(s) }
func (s StringLiteral) To(t Type) (Literal, error) {
	switch t.(type) {
	case StringType:
		return s, nil
	case BooleanType:
		v, err := strconv.ParseBool(string(s))
		if err != nil {
			return nil, fmt.Errorf("%w: StringLiteral '%s' to %s", ErrBadCast, s, t)
		}

		return BoolLiteral(v), nil
	case ByteType, ShortType, IntegerType:
		v, err := strconv.ParseInt(string(s), 10, 32)
		if err != nil {
			return nil, fmt.Errorf("%w: StringLiteral '%s' to %s", ErrBadCast, s, t)
		}

		return narrowInt32(int32(v), t)
	case LongType:
		v, err := strconv.ParseInt(string(s), 10, 64)
		if err != nil {
			return nil, fmt.Errorf("%w: StringLiteral '%s' to %s", ErrBadCast, s, t)
		}

		return Int64Literal(v), nil
	case FloatType:
		v, err := strconv.ParseFloat(string(s), 32)
		if err != nil {
			return nil, fmt.Errorf("%w: StringLiteral '%s' to %s", ErrBadCast, s, t)
		}

		return Float32Literal(v), nil
	case DoubleType:
		v, err := strconv.ParseFloat(string(s), 64)
		if err != nil {
			return nil, fmt.Errorf("%w: StringLiteral '%s' to %s", ErrBadCast, s, t)
		}

		return Float64Literal(v), nil
	case DateType:
		tm, err := time.Parse("2006-01-02", string(s))
		if err != nil {
			return nil, fmt.Errorf("%w: StringLiteral '%s' to %s", ErrBadCast, s, t)
		}

		return DateLiteral(tm.Unix() / int64(24*time.Hour/time.Second)), nil
	case TimestampType:
		tm, err := time.Parse(time.RFC3339, string(s))
		if err != nil {
			if tm, err = time.Parse("2006-01-02 15:04:05", string(s)); err != nil {
				return nil, fmt.Errorf("%w: StringLiteral '%s' to %s", ErrBadCast, s, t)
			}
		}

		return TimestampLiteral(tm.UTC().UnixMicro()), nil
	}

	return nil, fmt.Errorf("%w: StringLiteral to %s", ErrBadCast, t)
}

func (s StringLiteral) Equals(other Literal) bool {
	return literalEq[string](s, other)
}

type BinaryLiteral []byte

func (BinaryLiteral) Comparator() Comparator[[]byte] { return bytes.Compare }
func (b BinaryLiteral) Type() Type                   { return PrimitiveTypes.Binary }
func (b BinaryLiteral) Value() []byte                { return []byte(b) }
func (b BinaryLiteral) Any() any                     { return b.Value() }
func (b BinaryLiteral) String() string               { return string(b) }
func (b BinaryLiteral) To(t Type) (Literal, error) {
	switch t.(type) {
	case BinaryType:
		return b, nil
	case StringType:
		return StringLiteral(b), nil
	}

	return nil, fmt.Errorf("%w: BinaryLiteral to %s", ErrBadCast, t)
}

func (b BinaryLiteral) Equals(other Literal) bool {
	rhs, ok := other.(BinaryLiteral)
	if !ok {
		return false
	}

	return bytes.Equal(b, rhs)
}

type DateLiteral Date

func (DateLiteral) Comparator() Comparator[Date] { return cmp.Compare[Date] }
func (d DateLiteral) Type() Type                 { return PrimitiveTypes.Date }
func (d DateLiteral) Value() Date                { return Date(d) }
func (d DateLiteral) Any() any                   { return d.Value() }
func (d DateLiteral) String() string {
	return Date(d).ToTime().Format("2006-01-02")
}

func (d DateLiteral) To(t Type) (Literal, error) {
	if _, ok := t.(DateType); ok {
		return d, nil
	}

	return nil, fmt.Errorf("%w: DateLiteral to %s", ErrBadCast, t)
}

func (d DateLiteral) Equals(other Literal) bool {
	return literalEq[Date](d, other)
}

type TimestampLiteral Timestamp

func (TimestampLiteral) Comparator() Comparator[Timestamp] { return cmp.Compare[Timestamp] }
func (ts TimestampLiteral) Type() Type                     { return PrimitiveTypes.Timestamp }
func (ts TimestampLiteral) Value() Timestamp               { return Timestamp(ts) }
func (ts TimestampLiteral) Any() any                       { return ts.Value() }
func (ts TimestampLiteral) String() string {
	return Timestamp(ts).ToTime().Format(time.RFC3339Nano)
}

func (ts TimestampLiteral) To(t Type) (Literal, error) {
	if _, ok := t.(TimestampType); ok {
		return ts, nil
	}

	return nil, fmt.Errorf("%w: TimestampLiteral to %s", ErrBadCast, t)
}

func (ts TimestampLiteral) Equals(other Literal) bool {
	return literalEq[Timestamp](ts, other)
}
