package model

import (
	"fmt"
	"time"
)

// FileRecord is a candidate file whose name matched the configured grammar.
// Size comes from the directory entry; file contents are never read.
type FileRecord struct {
	Path      string
	RelPath   string
	Name      string
	Station   string
	Timestamp time.Time
	Ext       string
	Size      int64
}

// Stem returns the filename without its extension.
func (r FileRecord) Stem() string {
	return r.Name[:len(r.Name)-len(r.Ext)]
}

type ParseErrorKind string

const (
	ParseNoMatch            ParseErrorKind = "no_match"
	ParseMissingField       ParseErrorKind = "missing_field"
	ParseMalformedTimestamp ParseErrorKind = "malformed_timestamp"
	ParseUnrecognizedExt    ParseErrorKind = "unrecognized_extension"
)

// ParseError reports a filename that does not follow the grammar.
type ParseError struct {
	Path    string
	RelPath string
	Name    string
	Kind    ParseErrorKind
	Detail  string
	Size    int64
}

func (e *ParseError) Error() string {
	if e.Detail == "" {
		return fmt.Sprintf("%s: %s", e.Name, e.Kind)
	}
	return fmt.Sprintf("%s: %s: %s", e.Name, e.Kind, e.Detail)
}
