// Package schema holds the semantic column types shared by both backends
// and the ordered schemas built from them.
package schema

import (
	"fmt"
	"strings"
)

type Kind int

const (
	KindUnknown Kind = iota
	KindNull
	KindBoolean
	KindInt8
	KindInt16
	KindInt32
	KindInt64
	KindUInt8
	KindUInt16
	KindUInt32
	KindUInt64
	KindFloat16
	KindFloat32
	KindFloat64
	KindDecimal
	KindString
	KindBinary
	KindDate
	KindTime
	KindTimestamp
	KindInterval
)

var kindNames = map[Kind]string{
	KindUnknown:   "unknown",
	KindNull:      "null",
	KindBoolean:   "boolean",
	KindInt8:      "int8",
	KindInt16:     "int16",
	KindInt32:     "int32",
	KindInt64:     "int64",
	KindUInt8:     "uint8",
	KindUInt16:    "uint16",
	KindUInt32:    "uint32",
	KindUInt64:    "uint64",
	KindFloat16:   "float16",
	KindFloat32:   "float32",
	KindFloat64:   "float64",
	KindDecimal:   "decimal",
	KindString:    "string",
	KindBinary:    "binary",
	KindDate:      "date",
	KindTime:      "time",
	KindTimestamp: "timestamp",
	KindInterval:  "interval",
}

func (k Kind) String() string {
	if name, ok := kindNames[k]; ok {
		return name
	}
	return fmt.Sprintf("kind(%d)", int(k))
}

func (k Kind) IsSignedInteger() bool {
	return k >= KindInt8 && k <= KindInt64
}

func (k Kind) IsUnsignedInteger() bool {
	return k >= KindUInt8 && k <= KindUInt64
}

func (k Kind) IsInteger() bool {
	return k.IsSignedInteger() || k.IsUnsignedInteger()
}

func (k Kind) IsFloating() bool {
	return k >= KindFloat16 && k <= KindFloat64
}

func (k Kind) IsNumeric() bool {
	return k.IsInteger() || k.IsFloating() || k == KindDecimal
}

func (k Kind) IsTemporal() bool {
	return k == KindDate || k == KindTime || k == KindTimestamp
}

// bitWidth is defined for integer and floating kinds only.
func (k Kind) bitWidth() int {
	switch k {
	case KindInt8, KindUInt8:
		return 8
	case KindInt16, KindUInt16, KindFloat16:
		return 16
	case KindInt32, KindUInt32, KindFloat32:
		return 32
	case KindInt64, KindUInt64, KindFloat64:
		return 64
	default:
		return 0
	}
}

// DataType is a semantic column type. Precision and Scale apply to
// decimals, TimeZone to timestamps (empty means a naive timestamp).
type DataType struct {
	Kind      Kind
	Nullable  bool
	Precision int
	Scale     int
	TimeZone  string
}

var (
	Null      = DataType{Kind: KindNull, Nullable: true}
	Boolean   = DataType{Kind: KindBoolean, Nullable: true}
	Int8      = DataType{Kind: KindInt8, Nullable: true}
	Int16     = DataType{Kind: KindInt16, Nullable: true}
	Int32     = DataType{Kind: KindInt32, Nullable: true}
	Int64     = DataType{Kind: KindInt64, Nullable: true}
	UInt8     = DataType{Kind: KindUInt8, Nullable: true}
	UInt16    = DataType{Kind: KindUInt16, Nullable: true}
	UInt32    = DataType{Kind: KindUInt32, Nullable: true}
	UInt64    = DataType{Kind: KindUInt64, Nullable: true}
	Float16   = DataType{Kind: KindFloat16, Nullable: true}
	Float32   = DataType{Kind: KindFloat32, Nullable: true}
	Float64   = DataType{Kind: KindFloat64, Nullable: true}
	String    = DataType{Kind: KindString, Nullable: true}
	Binary    = DataType{Kind: KindBinary, Nullable: true}
	Date      = DataType{Kind: KindDate, Nullable: true}
	Time      = DataType{Kind: KindTime, Nullable: true}
	Timestamp = DataType{Kind: KindTimestamp, Nullable: true}
	Interval  = DataType{Kind: KindInterval, Nullable: true}
	Unknown   = DataType{Kind: KindUnknown, Nullable: true}
)

func Decimal(precision, scale int) DataType {
	return DataType{Kind: KindDecimal, Nullable: true, Precision: precision, Scale: scale}
}

func TimestampTZ(zone string) DataType {
	return DataType{Kind: KindTimestamp, Nullable: true, TimeZone: zone}
}

func (t DataType) NotNull() DataType {
	t.Nullable = false
	return t
}

func (t DataType) WithNullable(nullable bool) DataType {
	t.Nullable = nullable
	return t
}

// String renders the type the way it is written in schema listings,
// prefixing non-nullable types with "!".
func (t DataType) String() string {
	var b strings.Builder
	if !t.Nullable {
		b.WriteString("!")
	}
	b.WriteString(t.Kind.String())
	switch t.Kind {
	case KindDecimal:
		if t.Precision > 0 {
			fmt.Fprintf(&b, "(%d, %d)", t.Precision, t.Scale)
		}
	case KindTimestamp:
		if t.TimeZone != "" {
			fmt.Fprintf(&b, "(%q)", t.TimeZone)
		}
	}
	return b.String()
}

// Equal compares two types including nullability.
func (t DataType) Equal(other DataType) bool {
	return t == other
}

// Castable reports whether a value of type from can be implicitly and
// safely converted to type to. Nullability is not considered.
func Castable(from, to DataType) bool {
	if from.Kind == KindNull {
		return true
	}
	if from.Kind == to.Kind {
		if from.Kind == KindDecimal {
			return decimalFits(from, to)
		}
		return true
	}
	switch {
	case from.Kind.IsSignedInteger():
		switch {
		case to.Kind.IsSignedInteger():
			return to.Kind.bitWidth() >= from.Kind.bitWidth()
		case to.Kind.IsFloating():
			return true
		case to.Kind == KindDecimal:
			return to.Precision == 0 || to.Precision-to.Scale >= integerDigits(from.Kind)
		}
	case from.Kind.IsUnsignedInteger():
		switch {
		case to.Kind.IsUnsignedInteger():
			return to.Kind.bitWidth() >= from.Kind.bitWidth()
		case to.Kind.IsSignedInteger():
			return to.Kind.bitWidth() > from.Kind.bitWidth()
		case to.Kind.IsFloating():
			return true
		case to.Kind == KindDecimal:
			return to.Precision == 0 || to.Precision-to.Scale >= integerDigits(from.Kind)
		}
	case from.Kind.IsFloating():
		return to.Kind.IsFloating() && to.Kind.bitWidth() >= from.Kind.bitWidth()
	case from.Kind == KindDecimal:
		return to.Kind == KindFloat64
	case from.Kind == KindDate:
		return to.Kind == KindTimestamp
	}
	return false
}

func decimalFits(from, to DataType) bool {
	if to.Precision == 0 || from.Precision == 0 {
		return true
	}
	return to.Scale >= from.Scale && to.Precision-to.Scale >= from.Precision-from.Scale
}

// integerDigits is the number of decimal digits needed for the largest
// magnitude of an integer kind.
func integerDigits(k Kind) int {
	switch k {
	case KindInt8, KindUInt8:
		return 3
	case KindInt16, KindUInt16:
		return 5
	case KindInt32, KindUInt32:
		return 10
	case KindInt64:
		return 19
	case KindUInt64:
		return 20
	default:
		return 0
	}
}
