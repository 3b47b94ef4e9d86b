package storage

import (
	"fmt"
	"path"
	"strings"
)

// CleanPath normalizes a tree path to a relative slash separated form.
// The root is "". Paths escaping the root are rejected.
func CleanPath(p string) (string, error) {
	p = strings.TrimSpace(strings.ReplaceAll(p, `\`, "/"))
	p = strings.TrimPrefix(p, "/")
	if p == "" {
		return "", nil
	}
	cleaned := path.Clean(p)
	if cleaned == "." {
		return "", nil
	}
	if cleaned == ".." || strings.HasPrefix(cleaned, "../") {
		return "", fmt.Errorf("invalid path: %q", p)
	}
	return cleaned, nil
}

func JoinPath(elem ...string) string {
	joined := path.Join(elem...)
	if joined == "." {
		return ""
	}
	return strings.TrimPrefix(joined, "/")
}

func BaseName(p string) string {
	if p == "" {
		return ""
	}
	return path.Base(p)
}

// Stem strips "."+extension from name, reporting whether it was present.
func Stem(name, extension string) (string, bool) {
	suffix := "." + strings.TrimPrefix(extension, ".")
	if !strings.HasSuffix(name, suffix) || len(name) == len(suffix) {
		return "", false
	}
	return strings.TrimSuffix(name, suffix), true
}

func contentTypeFor(p string) string {
	switch path.Ext(p) {
	case ".parquet":
		return "application/vnd.apache.parquet"
	case ".csv":
		return "text/csv"
	default:
		return "application/octet-stream"
	}
}
