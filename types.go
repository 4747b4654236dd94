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
	"time"

	"github.com/goccy/go-json"
)

// Type is an interface representing any of the available Delta types,
// either primitives (integer/long/string/etc.) or the nested struct type.
type Type interface {
	fmt.Stringer
	Type() string
	Equals(Type) bool
}

// NestedType is a Type that has child fields, i.e. a struct.
type NestedType interface {
	Type
	Fields() []StructField
}

type typeIFace struct {
	Type
}

func (t *typeIFace) MarshalJSON() ([]byte, error) {
	if nested, ok := t.Type.(NestedType); ok {
		return json.Marshal(nested)
	}

	return []byte(`"` + t.Type.Type() + `"`), nil
}

func (t *typeIFace) UnmarshalJSON(b []byte) error {
	var typename string
	if err := json.Unmarshal(b, &typename); err == nil {
		switch typename {
		case "boolean":
			t.Type = BooleanType{}
		case "byte":
			t.Type = ByteType{}
		case "short":
			t.Type = ShortType{}
		case "integer":
			t.Type = IntegerType{}
		case "long":
			t.Type = LongType{}
		case "float":
			t.Type = FloatType{}
		case "double":
			t.Type = DoubleType{}
		case "string":
			t.Type = StringType{}
		case "binary":
			t.Type = BinaryType{}
		case "date":
			t.Type = DateType{}
		case "timestamp":
			t.Type = TimestampType{}
		default:
			return fmt.Errorf("%w: unrecognized type name %s", ErrType, typename)
		}

		return nil
	}

	st := &StructType{}
	if err := json.Unmarshal(b, st); err != nil {
		return err
	}
	t.Type = st

	return nil
}

type (
	// Date is the number of days since the unix epoch.
	Date int32
	// Timestamp is the number of microseconds since the unix epoch.
	Timestamp int64
)

// ToTime returns the UTC time.Time that d represents.
func (d Date) ToTime() time.Time {
	return time.Unix(0, 0).UTC().AddDate(0, 0, int(d))
}

// ToTime returns the UTC time.Time that t represents.
func (t Timestamp) ToTime() time.Time {
	return time.UnixMicro(int64(t)).UTC()
}

type BooleanType struct{}

func (BooleanType) Equals(other Type) bool {
	_, ok := other.(BooleanType)

	return ok
}
func (BooleanType) Type() string   { return "boolean" }
func (BooleanType) String() string { return "boolean" }

type ByteType struct{}

func (ByteType) Equals(other Type) bool {
	_, ok := other.(ByteType)

	return ok
}
func (ByteType) Type() string   { return "byte" }
func (ByteType) String() string { return "byte" }

type ShortType struct{}

func (ShortType) Equals(other Type) bool {
	_, ok := other.(ShortType)

	return ok
}
func (ShortType) Type() string   { return "short" }
func (ShortType) String() string { return "short" }

type IntegerType struct{}

func (IntegerType) Equals(other Type) bool {
	_, ok := other.(IntegerType)

	return ok
}
func (IntegerType) Type() string   { return "integer" }
func (IntegerType) String() string { return "integer" }

type LongType struct{}

func (LongType) Equals(other Type) bool {
	_, ok := other.(LongType)

	return ok
}
func (LongType) Type() string   { return "long" }
func (LongType) String() string { return "long" }

type FloatType struct{}

func (FloatType) Equals(other Type) bool {
	_, ok := other.(FloatType)

	return ok
}
func (FloatType) Type() string   { return "float" }
func (FloatType) String() string { return "float" }

type DoubleType struct{}

func (DoubleType) Equals(other Type) bool {
	_, ok := other.(DoubleType)

	return ok
}
func (DoubleType) Type() string   { return "double" }
func (DoubleType) String() string { return "double" }

type StringType struct{}

func (StringType) Equals(other Type) bool {
	_, ok := other.(StringType)

	return ok
}
func (StringType) Type() string   { return "string" }
func (StringType) String() string { return "string" }

type BinaryType struct{}

func (BinaryType) Equals(other Type) bool {
	_, ok := other.(BinaryType)

	return ok
}
func (BinaryType) Type() string   { return "binary" }
func (BinaryType) String() string { return "binary" }

type DateType struct{}

func (DateType) Equals(other Type) bool {
	_, ok := other.(DateType)

	return ok
}
func (DateType) Type() string   { return "date" }
func (DateType) String() string { return "date" }

type TimestampType struct{}

func (TimestampType) Equals(other Type) bool {
	_, ok := other.(TimestampType)

	return ok
}
func (TimestampType) Type() string   { return "timestamp" }
func (TimestampType) String() string { return "timestamp" }

// PrimitiveTypes is a struct providing quick access to instances of all
// of the primitive types so they can be referenced as delta.PrimitiveTypes.Long
// and so on.
var PrimitiveTypes = struct {
	Bool      Type
	Byte      Type
	Short     Type
	Int32     Type
	Int64     Type
	Float32   Type
	Float64   Type
	String    Type
	Binary    Type
	Date      Type
	Timestamp Type
}{
	Bool:      BooleanType{},
	Byte:      ByteType{},
	Short:     ShortType{},
	Int32:     IntegerType{},
	Int64:     LongType{},
	Float32:   FloatType{},
	Float64:   DoubleType{},
	String:    StringType{},
	Binary:    BinaryType{},
	Date:      DateType{},
	Timestamp: TimestampType{},
}
