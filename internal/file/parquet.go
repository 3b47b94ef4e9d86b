package file

import (
	"context"
	"fmt"
	"os"
	"regexp"

	"github.com/parquet-go/parquet-go"

	"github.com/duckmesh/duckframe/internal/query"
	"github.com/duckmesh/duckframe/internal/schema"
	"github.com/duckmesh/duckframe/internal/storage"
)

var indexColumnPattern = regexp.MustCompile(`^__index_level_\d+__$`)

type parquetFormat struct{}

// Parquet reads parquet files. Only directories are databases.
func Parquet() Format { return parquetFormat{} }

func (parquetFormat) Name() string         { return query.FormatParquet }
func (parquetFormat) Extension() string    { return "parquet" }
func (parquetFormat) Listing() ListingMode { return ListDirs }
func (parquetFormat) WriteFormat() string  { return query.FormatParquet }

// Schema reads the file footer. Index columns written by dataframe
// libraries are dropped.
func (parquetFormat) Schema(ctx context.Context, tree storage.Tree, _ query.Engine, p string) (schema.Schema, error) {
	local, release, err := tree.Localize(ctx, p)
	if err != nil {
		return schema.Schema{}, err
	}
	defer func() { _ = release() }()

	f, err := os.Open(local)
	if err != nil {
		return schema.Schema{}, fmt.Errorf("open %q: %w", p, err)
	}
	defer func() { _ = f.Close() }()
	stat, err := f.Stat()
	if err != nil {
		return schema.Schema{}, fmt.Errorf("stat %q: %w", p, err)
	}
	pf, err := parquet.OpenFile(f, stat.Size())
	if err != nil {
		return schema.Schema{}, fmt.Errorf("read parquet footer of %q: %w", p, err)
	}

	var fields []schema.Field
	for _, field := range pf.Schema().Fields() {
		if indexColumnPattern.MatchString(field.Name()) {
			continue
		}
		fields = append(fields, schema.Field{
			Name: field.Name(),
			Type: parquetType(field).WithNullable(field.Optional()),
		})
	}
	return schema.New(fields...)
}

func parquetType(node parquet.Node) schema.DataType {
	if !node.Leaf() || node.Repeated() {
		return schema.Unknown
	}
	typ := node.Type()
	if lt := typ.LogicalType(); lt != nil {
		switch {
		case lt.UTF8 != nil, lt.Enum != nil, lt.Json != nil, lt.UUID != nil:
			return schema.String
		case lt.Decimal != nil:
			return schema.Decimal(int(lt.Decimal.Precision), int(lt.Decimal.Scale))
		case lt.Date != nil:
			return schema.Date
		case lt.Time != nil:
			return schema.Time
		case lt.Timestamp != nil:
			if lt.Timestamp.IsAdjustedToUTC {
				return schema.TimestampTZ("UTC")
			}
			return schema.Timestamp
		case lt.Integer != nil:
			return integerType(int(lt.Integer.BitWidth), lt.Integer.IsSigned)
		case lt.Unknown != nil:
			return schema.Null
		}
	}
	switch typ.Kind() {
	case parquet.Boolean:
		return schema.Boolean
	case parquet.Int32:
		return schema.Int32
	case parquet.Int64:
		return schema.Int64
	case parquet.Int96:
		return schema.Timestamp
	case parquet.Float:
		return schema.Float32
	case parquet.Double:
		return schema.Float64
	case parquet.ByteArray, parquet.FixedLenByteArray:
		return schema.Binary
	default:
		return schema.Unknown
	}
}

func integerType(bits int, signed bool) schema.DataType {
	switch {
	case bits == 8 && signed:
		return schema.Int8
	case bits == 16 && signed:
		return schema.Int16
	case bits == 32 && signed:
		return schema.Int32
	case signed:
		return schema.Int64
	case bits == 8:
		return schema.UInt8
	case bits == 16:
		return schema.UInt16
	case bits == 32:
		return schema.UInt32
	default:
		return schema.UInt64
	}
}
