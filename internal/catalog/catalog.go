package catalog

import (
	"errors"
	"fmt"
	"regexp"
	"sort"
	"strings"

	"github.com/duckmesh/duckframe/internal/schema"
)

var (
	ErrNotFound              = errors.New("catalog: not found")
	ErrInput                 = errors.New("catalog: invalid input")
	ErrInvalidArgument       = errors.New("catalog: invalid argument")
	ErrUnsupportedArgument   = errors.New("catalog: unsupported argument")
	ErrSchemaMismatch        = errors.New("catalog: schema mismatch")
	ErrIncompatibleCast      = errors.New("catalog: incompatible cast")
	ErrUnsupportedExpression = errors.New("catalog: unsupported expression kind")
	ErrInvalidExpression     = errors.New("catalog: invalid expression")
	ErrNotImplemented        = errors.New("catalog: not implemented")
	ErrClosed                = errors.New("catalog: client closed")
)

const (
	KindTable    = "table"
	KindDatabase = "database"
	KindPath     = "path"
)

type TableType string

const (
	TableTypeBase      TableType = "BASE TABLE"
	TableTypeView      TableType = "VIEW"
	TableTypeTemporary TableType = "LOCAL TEMPORARY"
)

// TableInfo is a catalog row describing one relation. Temporary relations
// live for the session only; a temporary view still reports TableTypeView.
type TableInfo struct {
	Database  string
	Name      string
	Type      TableType
	Temporary bool
}

func (t TableInfo) IsView() bool {
	return t.Type == TableTypeView
}

type NotFoundError struct {
	Kind string
	Name string
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("%s %q not found", e.Kind, e.Name)
}

func (e *NotFoundError) Unwrap() error { return ErrNotFound }

func NotFound(kind, name string) error {
	return &NotFoundError{Kind: kind, Name: name}
}

// InputError reports bad caller input. Err carries the native cause when
// the failure came from the engine catalog.
type InputError struct {
	Message string
	Err     error
}

func (e *InputError) Error() string {
	if e.Err == nil {
		return e.Message
	}
	return e.Message + ": " + e.Err.Error()
}

func (e *InputError) Unwrap() []error {
	if e.Err == nil {
		return []error{ErrInput}
	}
	return []error{ErrInput, e.Err}
}

type UnsupportedArgumentError struct {
	Argument string
	Reason   string
}

func (e *UnsupportedArgumentError) Error() string {
	if e.Reason == "" {
		return fmt.Sprintf("argument %q is not supported", e.Argument)
	}
	return fmt.Sprintf("argument %q is not supported: %s", e.Argument, e.Reason)
}

func (e *UnsupportedArgumentError) Unwrap() error { return ErrUnsupportedArgument }

// SchemaMismatchError lists the column names present on only one side of
// an insert.
type SchemaMismatchError struct {
	Missing []string
	Extra   []string
}

func (e *SchemaMismatchError) Error() string {
	return fmt.Sprintf("column name mismatch: missing from source %v, unknown in target %v", e.Missing, e.Extra)
}

func (e *SchemaMismatchError) Unwrap() error { return ErrSchemaMismatch }

type CastError struct {
	Column string
	From   schema.DataType
	To     schema.DataType
}

func (e *CastError) Error() string {
	return fmt.Sprintf("column %q: cannot safely cast %s to %s", e.Column, e.From, e.To)
}

func (e *CastError) Unwrap() error { return ErrIncompatibleCast }

// ValidateInsert checks that source can be written into target: the column
// name sets must be equal and every source type must be castable to the
// target type of the same column.
func ValidateInsert(source, target schema.Schema) error {
	var missing, extra []string
	for _, name := range target.Names() {
		if _, ok := source.Lookup(name); !ok {
			missing = append(missing, name)
		}
	}
	for _, name := range source.Names() {
		if _, ok := target.Lookup(name); !ok {
			extra = append(extra, name)
		}
	}
	if len(missing) > 0 || len(extra) > 0 {
		return &SchemaMismatchError{Missing: missing, Extra: extra}
	}
	for _, field := range source.Fields() {
		to, _ := target.Lookup(field.Name)
		if !schema.Castable(field.Type, to) {
			return &CastError{Column: field.Name, From: field.Type, To: to}
		}
	}
	return nil
}

// MatchLike filters names by a regular expression anchored at the start of
// each name. An empty pattern keeps everything.
func MatchLike(names []string, like string) ([]string, error) {
	out := make([]string, 0, len(names))
	if strings.TrimSpace(like) == "" {
		out = append(out, names...)
		return out, nil
	}
	pattern, err := regexp.Compile(`^(?:` + like + `)`)
	if err != nil {
		return nil, &InputError{Message: fmt.Sprintf("invalid like pattern %q", like), Err: err}
	}
	for _, name := range names {
		if pattern.MatchString(name) {
			out = append(out, name)
		}
	}
	return out, nil
}

// SortedUnion merges name lists into one sorted list without duplicates.
func SortedUnion(lists ...[]string) []string {
	seen := map[string]struct{}{}
	out := make([]string, 0)
	for _, list := range lists {
		for _, name := range list {
			if _, ok := seen[name]; ok {
				continue
			}
			seen[name] = struct{}{}
			out = append(out, name)
		}
	}
	sort.Strings(out)
	return out
}
