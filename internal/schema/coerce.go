package schema

import (
	"fmt"
	"math"
	"strconv"
	"time"
)

var timeLayouts = []string{
	time.RFC3339Nano,
	"2006-01-02 15:04:05.999999999Z07:00",
	"2006-01-02 15:04:05.999999999-07",
	"2006-01-02T15:04:05.999999999",
	"2006-01-02 15:04:05.999999999",
	"2006-01-02",
}

// Infer returns the semantic type of a Go value.
func Infer(value any) DataType {
	switch typed := value.(type) {
	case nil:
		return Null
	case bool:
		return Boolean
	case int8:
		return Int8
	case int16:
		return Int16
	case int32:
		return Int32
	case int, int64:
		return Int64
	case uint8:
		return UInt8
	case uint16:
		return UInt16
	case uint32:
		return UInt32
	case uint, uint64:
		return UInt64
	case float32:
		return Float32
	case float64:
		return Float64
	case string:
		return String
	case []byte:
		return Binary
	case time.Time:
		if typed.Location() == time.UTC {
			return TimestampTZ("UTC")
		}
		return Timestamp
	case time.Duration:
		return Interval
	default:
		return Unknown
	}
}

// Coerce converts a raw value fetched from a driver into the Go
// representation of t. Nil stays nil.
func Coerce(value any, t DataType) (any, error) {
	if value == nil {
		return nil, nil
	}
	switch {
	case t.Kind.IsSignedInteger():
		n, err := toInt64(value)
		if err != nil {
			return nil, err
		}
		return narrowSigned(n, t.Kind)
	case t.Kind.IsUnsignedInteger():
		n, err := toUint64(value)
		if err != nil {
			return nil, err
		}
		return narrowUnsigned(n, t.Kind)
	case t.Kind.IsFloating(), t.Kind == KindDecimal:
		f, err := toFloat64(value)
		if err != nil {
			return nil, err
		}
		if t.Kind == KindFloat32 || t.Kind == KindFloat16 {
			return float32(f), nil
		}
		return f, nil
	case t.Kind == KindBoolean:
		switch typed := value.(type) {
		case bool:
			return typed, nil
		case string:
			return strconv.ParseBool(typed)
		}
	case t.Kind == KindString:
		switch typed := value.(type) {
		case string:
			return typed, nil
		case []byte:
			return string(typed), nil
		case fmt.Stringer:
			return typed.String(), nil
		default:
			return fmt.Sprint(typed), nil
		}
	case t.Kind == KindBinary:
		switch typed := value.(type) {
		case []byte:
			return typed, nil
		case string:
			return []byte(typed), nil
		}
	case t.Kind == KindDate, t.Kind == KindTimestamp, t.Kind == KindTime:
		switch typed := value.(type) {
		case time.Time:
			return typed, nil
		case string:
			return parseTime(typed)
		case []byte:
			return parseTime(string(typed))
		}
	default:
		if raw, ok := value.([]byte); ok {
			return string(raw), nil
		}
		return value, nil
	}
	return nil, fmt.Errorf("schema: cannot coerce %T to %s", value, t)
}

// Apply coerces every row to the schema. Rows must have one value per
// field.
func (s Schema) Apply(rows [][]any) ([][]any, error) {
	out := make([][]any, len(rows))
	for r, row := range rows {
		if len(row) != len(s.fields) {
			return nil, fmt.Errorf("schema: row %d has %d values, want %d", r, len(row), len(s.fields))
		}
		converted := make([]any, len(row))
		for i, value := range row {
			v, err := Coerce(value, s.fields[i].Type)
			if err != nil {
				return nil, fmt.Errorf("row %d column %q: %w", r, s.fields[i].Name, err)
			}
			converted[i] = v
		}
		out[r] = converted
	}
	return out, nil
}

func parseTime(value string) (time.Time, error) {
	for _, layout := range timeLayouts {
		if parsed, err := time.Parse(layout, value); err == nil {
			return parsed, nil
		}
	}
	return time.Time{}, fmt.Errorf("schema: cannot parse %q as a time", value)
}

type float64er interface {
	Float64() float64
}

func toInt64(value any) (int64, error) {
	switch typed := value.(type) {
	case int:
		return int64(typed), nil
	case int8:
		return int64(typed), nil
	case int16:
		return int64(typed), nil
	case int32:
		return int64(typed), nil
	case int64:
		return typed, nil
	case uint8:
		return int64(typed), nil
	case uint16:
		return int64(typed), nil
	case uint32:
		return int64(typed), nil
	case uint64:
		if typed > math.MaxInt64 {
			return 0, fmt.Errorf("schema: %d overflows int64", typed)
		}
		return int64(typed), nil
	case uint:
		if uint64(typed) > math.MaxInt64 {
			return 0, fmt.Errorf("schema: %d overflows int64", typed)
		}
		return int64(typed), nil
	case float32, float64:
		f, _ := toFloat64(typed)
		if f != math.Trunc(f) {
			return 0, fmt.Errorf("schema: %v is not integral", f)
		}
		return int64(f), nil
	case string:
		return strconv.ParseInt(typed, 10, 64)
	case []byte:
		return strconv.ParseInt(string(typed), 10, 64)
	default:
		return 0, fmt.Errorf("schema: cannot convert %T to an integer", value)
	}
}

func toUint64(value any) (uint64, error) {
	switch typed := value.(type) {
	case uint:
		return uint64(typed), nil
	case uint8:
		return uint64(typed), nil
	case uint16:
		return uint64(typed), nil
	case uint32:
		return uint64(typed), nil
	case uint64:
		return typed, nil
	case string:
		return strconv.ParseUint(typed, 10, 64)
	case []byte:
		return strconv.ParseUint(string(typed), 10, 64)
	default:
		n, err := toInt64(value)
		if err != nil {
			return 0, err
		}
		if n < 0 {
			return 0, fmt.Errorf("schema: %d is negative", n)
		}
		return uint64(n), nil
	}
}

func toFloat64(value any) (float64, error) {
	switch typed := value.(type) {
	case float64:
		return typed, nil
	case float32:
		return float64(typed), nil
	case string:
		return strconv.ParseFloat(typed, 64)
	case []byte:
		return strconv.ParseFloat(string(typed), 64)
	case float64er:
		return typed.Float64(), nil
	default:
		if n, err := toInt64(value); err == nil {
			return float64(n), nil
		}
		if n, err := toUint64(value); err == nil {
			return float64(n), nil
		}
		return 0, fmt.Errorf("schema: cannot convert %T to a float", value)
	}
}

func narrowSigned(n int64, kind Kind) (any, error) {
	switch kind {
	case KindInt8:
		if n < math.MinInt8 || n > math.MaxInt8 {
			return nil, fmt.Errorf("schema: %d overflows int8", n)
		}
		return int8(n), nil
	case KindInt16:
		if n < math.MinInt16 || n > math.MaxInt16 {
			return nil, fmt.Errorf("schema: %d overflows int16", n)
		}
		return int16(n), nil
	case KindInt32:
		if n < math.MinInt32 || n > math.MaxInt32 {
			return nil, fmt.Errorf("schema: %d overflows int32", n)
		}
		return int32(n), nil
	default:
		return n, nil
	}
}

func narrowUnsigned(n uint64, kind Kind) (any, error) {
	switch kind {
	case KindUInt8:
		if n > math.MaxUint8 {
			return nil, fmt.Errorf("schema: %d overflows uint8", n)
		}
		return uint8(n), nil
	case KindUInt16:
		if n > math.MaxUint16 {
			return nil, fmt.Errorf("schema: %d overflows uint16", n)
		}
		return uint16(n), nil
	case KindUInt32:
		if n > math.MaxUint32 {
			return nil, fmt.Errorf("schema: %d overflows uint32", n)
		}
		return uint32(n), nil
	default:
		return n, nil
	}
}
