package scan

import (
	"iter"

	"iiqsort/internal/model"
)

// Parser turns a candidate path into a record. *grammar.Grammar satisfies it.
type Parser interface {
	Parse(path, relPath string, size int64) (model.FileRecord, error)
}

// Result carries either a parsed record or the error that prevented it.
// Err is a *model.ParseError for filenames outside the grammar and the
// underlying error for entries the walker could not stat.
type Result struct {
	Record model.FileRecord
	Err    error
}

// Enumerate parses every candidate lazily. Nothing is read from the files.
func Enumerate(candidates iter.Seq2[Candidate, error], p Parser) iter.Seq[Result] {
	return func(yield func(Result) bool) {
		for c, err := range candidates {
			if err != nil {
				if !yield(Result{Record: model.FileRecord{Path: c.Path}, Err: err}) {
					return
				}
				continue
			}

			rec, err := p.Parse(c.Path, c.RelPath, c.Size)
			if !yield(Result{Record: rec, Err: err}) {
				return
			}
		}
	}
}
