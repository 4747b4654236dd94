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

	"github.com/apache/arrow-go/v18/arrow"
	delta "github.com/delta-go/delta-go"
)

// ToArrowType converts a Delta type to the corresponding arrow DataType.
// Timestamps map to microsecond precision in UTC, matching the physical
// representation of delta.Timestamp.
func ToArrowType(t delta.Type) (arrow.DataType, error) {
	switch t := t.(type) {
	case delta.BooleanType:
		return arrow.FixedWidthTypes.Boolean, nil
	case delta.ByteType:
		return arrow.PrimitiveTypes.Int8, nil
	case delta.ShortType:
		return arrow.PrimitiveTypes.Int16, nil
	case delta.IntegerType:
		return arrow.PrimitiveTypes.Int32, nil
	case delta.LongType:
		return arrow.PrimitiveTypes.Int64, nil
	case delta.FloatType:
		return arrow.PrimitiveTypes.Float32, nil
	case delta.DoubleType:
		return arrow.PrimitiveTypes.Float64, nil
	case delta.StringType:
		return arrow.BinaryTypes.String, nil
	case delta.BinaryType:
		return arrow.BinaryTypes.Binary, nil
	case delta.DateType:
		return arrow.FixedWidthTypes.Date32, nil
	case delta.TimestampType:
		return arrow.FixedWidthTypes.Timestamp_us, nil
	case *delta.StructType:
		fields, err := toArrowFields(t)
		if err != nil {
			return nil, err
		}

		return arrow.StructOf(fields...), nil
	}

	return nil, fmt.Errorf("%w: unsupported conversion to arrow type from %s",
		delta.ErrType, t)
}

// ToArrowSchema converts a Delta struct type to an arrow schema with the
// same top-level fields.
func ToArrowSchema(st *delta.StructType) (*arrow.Schema, error) {
	fields, err := toArrowFields(st)
	if err != nil {
		return nil, err
	}

	return arrow.NewSchema(fields, nil), nil
}

func toArrowFields(st *delta.StructType) ([]arrow.Field, error) {
	fields := make([]arrow.Field, st.NumFields())
	for i, f := range st.Fields() {
		dt, err := ToArrowType(f.Type)
		if err != nil {
			return nil, err
		}
		fields[i] = arrow.Field{Name: f.Name, Type: dt, Nullable: f.Nullable}
	}

	return fields, nil
}
