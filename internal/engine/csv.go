package engine

import (
	"fmt"
	"strings"

	"github.com/duckmesh/duckframe/internal/catalog"
	"github.com/duckmesh/duckframe/internal/schema"
)

const (
	CSVModeFailFast      = "FAILFAST"
	CSVModePermissive    = "PERMISSIVE"
	CSVModeDropMalformed = "DROPMALFORMED"
)

// CSVOptions controls how CSV files are read. Without InferSchema and
// Schema every column is read as a string.
type CSVOptions struct {
	Header      bool
	MultiLine   bool
	Mode        string
	Escape      rune
	InferSchema bool
	Schema      *schema.Schema
}

func DefaultCSVOptions() CSVOptions {
	return CSVOptions{
		Header:    true,
		MultiLine: true,
		Mode:      CSVModeFailFast,
		Escape:    '"',
	}
}

func (o CSVOptions) validate() error {
	switch strings.ToUpper(o.Mode) {
	case CSVModeFailFast, CSVModePermissive, CSVModeDropMalformed:
	default:
		return &catalog.InputError{Message: fmt.Sprintf("unknown csv mode %q", o.Mode)}
	}
	if o.Escape == 0 {
		return &catalog.InputError{Message: "csv escape character is required"}
	}
	if o.Schema != nil && o.Schema.Len() == 0 {
		return &catalog.InputError{Message: "csv schema has no columns"}
	}
	return nil
}
