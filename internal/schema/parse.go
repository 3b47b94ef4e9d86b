package schema

import (
	"regexp"
	"strconv"
	"strings"
)

var (
	decimalTypePattern = regexp.MustCompile(`^(?:DECIMAL|NUMERIC)\s*\(\s*(\d+)\s*(?:,\s*(\d+)\s*)?\)$`)
	typeArgsPattern    = regexp.MustCompile(`\s*\(.*\)\s*$`)
)

var sqlTypeNames = map[string]DataType{
	"BOOLEAN":                     Boolean,
	"BOOL":                        Boolean,
	"LOGICAL":                     Boolean,
	"TINYINT":                     Int8,
	"INT1":                        Int8,
	"SMALLINT":                    Int16,
	"INT2":                        Int16,
	"SHORT":                       Int16,
	"INTEGER":                     Int32,
	"INT":                         Int32,
	"INT4":                        Int32,
	"SIGNED":                      Int32,
	"BIGINT":                      Int64,
	"INT8":                        Int64,
	"LONG":                        Int64,
	"HUGEINT":                     Decimal(38, 0),
	"UTINYINT":                    UInt8,
	"USMALLINT":                   UInt16,
	"UINTEGER":                    UInt32,
	"UBIGINT":                     UInt64,
	"FLOAT":                       Float32,
	"FLOAT4":                      Float32,
	"REAL":                        Float32,
	"DOUBLE":                      Float64,
	"FLOAT8":                      Float64,
	"DOUBLE PRECISION":            Float64,
	"DECIMAL":                     Decimal(18, 3),
	"NUMERIC":                     Decimal(0, 0),
	"VARCHAR":                     String,
	"CHARACTER VARYING":           String,
	"TEXT":                        String,
	"STRING":                      String,
	"CHAR":                        String,
	"BPCHAR":                      String,
	"CHARACTER":                   String,
	"NAME":                        String,
	"UUID":                        String,
	"JSON":                        String,
	"JSONB":                       String,
	"BLOB":                        Binary,
	"BYTEA":                       Binary,
	"BINARY":                      Binary,
	"VARBINARY":                   Binary,
	"DATE":                        Date,
	"TIME":                        Time,
	"TIME WITHOUT TIME ZONE":      Time,
	"TIMESTAMP":                   Timestamp,
	"DATETIME":                    Timestamp,
	"TIMESTAMP WITHOUT TIME ZONE": Timestamp,
	"TIMESTAMP_NS":                Timestamp,
	"TIMESTAMP_MS":                Timestamp,
	"TIMESTAMP_S":                 Timestamp,
	"TIMESTAMPTZ":                 TimestampTZ("UTC"),
	"TIMESTAMP WITH TIME ZONE":    TimestampTZ("UTC"),
	"INTERVAL":                    Interval,
	"NULL":                        Null,
	`"NULL"`:                      Null,
}

// ParseSQLType maps a DuckDB or Postgres type name, as reported by
// information_schema or a driver, to a semantic type. Names it does not
// recognize map to Unknown.
func ParseSQLType(name string) DataType {
	normalized := strings.ToUpper(strings.Join(strings.Fields(name), " "))
	if match := decimalTypePattern.FindStringSubmatch(normalized); match != nil {
		precision, _ := strconv.Atoi(match[1])
		scale := 0
		if match[2] != "" {
			scale, _ = strconv.Atoi(match[2])
		}
		return Decimal(precision, scale)
	}
	if t, ok := sqlTypeNames[normalized]; ok {
		return t
	}
	if t, ok := sqlTypeNames[typeArgsPattern.ReplaceAllString(normalized, "")]; ok {
		return t
	}
	return Unknown
}
