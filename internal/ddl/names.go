// Package ddl builds the catalog statements issued by the cluster client.
// Each statement compiles to a literal SQL string for one dialect.
package ddl

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/duckmesh/duckframe/internal/catalog"
)

const identPattern = `(?:"(?:[^"]|"")+"|[A-Za-z_][A-Za-z0-9_$]*)`

var qualifiedNamePattern = regexp.MustCompile(`^(` + identPattern + `)\.(` + identPattern + `)$`)

func QuoteIdent(value string) string {
	return `"` + strings.ReplaceAll(value, `"`, `""`) + `"`
}

func QuoteString(value string) string {
	return `'` + strings.ReplaceAll(value, `'`, `''`) + `'`
}

func IsFullyQualified(name string) bool {
	return qualifiedNamePattern.MatchString(name)
}

// QualifiedName renders database.name with both parts quoted. Names that
// are already qualified are returned unchanged.
func QualifiedName(name, database string) string {
	if IsFullyQualified(name) {
		return name
	}
	if database == "" {
		return QuoteIdent(name)
	}
	return QuoteIdent(database) + "." + QuoteIdent(name)
}

// ParseQualifiedName splits a name produced by QualifiedName back into its
// unquoted parts.
func ParseQualifiedName(name string) (string, string, error) {
	match := qualifiedNamePattern.FindStringSubmatch(name)
	if match == nil {
		return "", "", &catalog.InputError{Message: fmt.Sprintf("%q is not a fully qualified name", name)}
	}
	return unquoteIdent(match[1]), unquoteIdent(match[2]), nil
}

func unquoteIdent(value string) string {
	if len(value) >= 2 && strings.HasPrefix(value, `"`) && strings.HasSuffix(value, `"`) {
		return strings.ReplaceAll(value[1:len(value)-1], `""`, `"`)
	}
	return value
}
