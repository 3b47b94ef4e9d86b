package ddl

import (
	"fmt"

	"github.com/duckmesh/duckframe/internal/catalog"
	"github.com/duckmesh/duckframe/internal/schema"
)

type Dialect int

const (
	DuckDB Dialect = iota + 1
	Postgres
)

func (d Dialect) String() string {
	switch d {
	case DuckDB:
		return "duckdb"
	case Postgres:
		return "postgres"
	default:
		return fmt.Sprintf("dialect(%d)", int(d))
	}
}

var duckdbTypeNames = map[schema.Kind]string{
	schema.KindBoolean:  "BOOLEAN",
	schema.KindInt8:     "TINYINT",
	schema.KindInt16:    "SMALLINT",
	schema.KindInt32:    "INTEGER",
	schema.KindInt64:    "BIGINT",
	schema.KindUInt8:    "UTINYINT",
	schema.KindUInt16:   "USMALLINT",
	schema.KindUInt32:   "UINTEGER",
	schema.KindUInt64:   "UBIGINT",
	schema.KindFloat16:  "FLOAT",
	schema.KindFloat32:  "FLOAT",
	schema.KindFloat64:  "DOUBLE",
	schema.KindString:   "VARCHAR",
	schema.KindBinary:   "BLOB",
	schema.KindDate:     "DATE",
	schema.KindTime:     "TIME",
	schema.KindInterval: "INTERVAL",
}

var postgresTypeNames = map[schema.Kind]string{
	schema.KindBoolean:  "BOOLEAN",
	schema.KindInt8:     "SMALLINT",
	schema.KindInt16:    "SMALLINT",
	schema.KindInt32:    "INTEGER",
	schema.KindInt64:    "BIGINT",
	schema.KindUInt8:    "SMALLINT",
	schema.KindUInt16:   "INTEGER",
	schema.KindUInt32:   "BIGINT",
	schema.KindUInt64:   "NUMERIC(20, 0)",
	schema.KindFloat16:  "REAL",
	schema.KindFloat32:  "REAL",
	schema.KindFloat64:  "DOUBLE PRECISION",
	schema.KindString:   "TEXT",
	schema.KindBinary:   "BYTEA",
	schema.KindDate:     "DATE",
	schema.KindTime:     "TIME",
	schema.KindInterval: "INTERVAL",
}

// TypeName renders the column type used in CREATE TABLE.
func (d Dialect) TypeName(t schema.DataType) (string, error) {
	switch t.Kind {
	case schema.KindDecimal:
		keyword := "DECIMAL"
		if d == Postgres {
			keyword = "NUMERIC"
		}
		if t.Precision == 0 {
			if d == DuckDB {
				return "DECIMAL(18, 3)", nil
			}
			return keyword, nil
		}
		return fmt.Sprintf("%s(%d, %d)", keyword, t.Precision, t.Scale), nil
	case schema.KindTimestamp:
		if t.TimeZone != "" {
			return "TIMESTAMPTZ", nil
		}
		return "TIMESTAMP", nil
	}
	names := duckdbTypeNames
	if d == Postgres {
		names = postgresTypeNames
	}
	name, ok := names[t.Kind]
	if !ok {
		return "", &catalog.UnsupportedArgumentError{Argument: "type", Reason: fmt.Sprintf("%s has no %s column type", t, d)}
	}
	return name, nil
}
