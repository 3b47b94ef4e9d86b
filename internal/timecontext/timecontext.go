// Package timecontext normalizes caller supplied time intervals used to
// prune time indexed tables.
package timecontext

import (
	"fmt"
	"strings"
	"time"

	"github.com/duckmesh/duckframe/internal/catalog"
)

// Column is the timestamp column a time context filters on.
const Column = "time"

var (
	zonedLayouts = []string{
		time.RFC3339Nano,
		"2006-01-02 15:04:05.999999999Z07:00",
		"2006-01-02T15:04:05.999999999Z07",
		"2006-01-02 15:04:05.999999999Z07",
	}
	naiveLayouts = []string{
		"2006-01-02T15:04:05.999999999",
		"2006-01-02 15:04:05.999999999",
		"2006-01-02T15:04",
		"2006-01-02 15:04",
		"2006-01-02",
	}
)

// Timestamp is one bound. Naive bounds carry a wall clock with no zone
// and are stored in UTC until localized.
type Timestamp struct {
	Time  time.Time
	Naive bool
}

// Context is a half-open interval [Begin, End).
type Context struct {
	Begin Timestamp
	End   Timestamp
}

// Canonicalize accepts time.Time values or strings for each bound. Strings
// without a zone offset are naive.
func Canonicalize(begin, end any) (Context, error) {
	b, err := parseBound(begin)
	if err != nil {
		return Context{}, fmt.Errorf("time context begin: %w", err)
	}
	e, err := parseBound(end)
	if err != nil {
		return Context{}, fmt.Errorf("time context end: %w", err)
	}
	if wall(b).After(wall(e)) {
		return Context{}, &catalog.InputError{Message: fmt.Sprintf("time context begin %s is after end %s", b.Time, e.Time)}
	}
	return Context{Begin: b, End: e}, nil
}

// Localize reinterprets naive bounds as wall clock time in loc and converts
// zoned bounds to loc.
func (c Context) Localize(loc *time.Location) Context {
	if loc == nil {
		loc = time.UTC
	}
	return Context{Begin: localize(c.Begin, loc), End: localize(c.End, loc)}
}

func localize(ts Timestamp, loc *time.Location) Timestamp {
	if !ts.Naive {
		return Timestamp{Time: ts.Time.In(loc)}
	}
	t := ts.Time
	return Timestamp{Time: time.Date(t.Year(), t.Month(), t.Day(), t.Hour(), t.Minute(), t.Second(), t.Nanosecond(), loc)}
}

func wall(ts Timestamp) time.Time {
	return ts.Time.UTC()
}

func parseBound(value any) (Timestamp, error) {
	switch typed := value.(type) {
	case time.Time:
		return Timestamp{Time: typed}, nil
	case *time.Time:
		if typed == nil {
			return Timestamp{}, &catalog.InputError{Message: "time bound is required"}
		}
		return Timestamp{Time: *typed}, nil
	case string:
		text := strings.TrimSpace(typed)
		for _, layout := range zonedLayouts {
			if parsed, err := time.Parse(layout, text); err == nil {
				return Timestamp{Time: parsed}, nil
			}
		}
		for _, layout := range naiveLayouts {
			if parsed, err := time.Parse(layout, text); err == nil {
				return Timestamp{Time: parsed, Naive: true}, nil
			}
		}
		return Timestamp{}, &catalog.InputError{Message: fmt.Sprintf("cannot parse time bound %q", typed)}
	default:
		return Timestamp{}, &catalog.InputError{Message: fmt.Sprintf("unsupported time bound type %T", value)}
	}
}
