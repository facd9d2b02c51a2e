// Package grammar turns IIQ filenames into file records. A grammar is a
// configuration value: a regular expression over the filename stem with named
// groups, a timestamp layout, and a format template that rebuilds the stem.
package grammar

import (
	"fmt"
	"io"
	"math"
	"path/filepath"
	"regexp"
	"strconv"
	"strings"
	"time"

	"iiqsort/internal/model"

	"github.com/valyala/fasttemplate"
)

const (
	GroupStation   = "station"
	GroupTimestamp = "timestamp"
	GroupFrac      = "frac"
)

type StationSource string

const (
	StationFromFilename  StationSource = "filename"
	StationFromParentDir StationSource = "parent_dir"
)

// Spec is the serialisable form of a grammar.
type Spec struct {
	Pattern         string        `mapstructure:"pattern" json:"pattern"`
	TimestampLayout string        `mapstructure:"timestamp_layout" json:"timestamp_layout"`
	FracDigits      int           `mapstructure:"frac_digits" json:"frac_digits"`
	StationFrom     StationSource `mapstructure:"station_from" json:"station_from"`
	Extensions      []string      `mapstructure:"extensions" json:"extensions"`
	Format          string        `mapstructure:"format" json:"format"`
}

type Grammar struct {
	spec      Spec
	re        *regexp.Regexp
	station   int
	timestamp int
	frac      int
	exts      map[string]struct{}
	format    *fasttemplate.Template
}

func New(spec Spec) (*Grammar, error) {
	re, err := regexp.Compile(spec.Pattern)
	if err != nil {
		return nil, fmt.Errorf("invalid pattern: %w", err)
	}

	g := &Grammar{
		spec:      spec,
		re:        re,
		station:   re.SubexpIndex(GroupStation),
		timestamp: re.SubexpIndex(GroupTimestamp),
		frac:      re.SubexpIndex(GroupFrac),
		exts:      make(map[string]struct{}, len(spec.Extensions)),
	}

	if g.timestamp < 0 {
		return nil, fmt.Errorf("pattern has no (?P<%s>...) group", GroupTimestamp)
	}
	if strings.TrimSpace(spec.TimestampLayout) == "" {
		return nil, fmt.Errorf("timestamp layout is empty")
	}

	switch spec.StationFrom {
	case StationFromFilename, "":
		if g.station < 0 {
			return nil, fmt.Errorf("pattern has no (?P<%s>...) group", GroupStation)
		}
		g.spec.StationFrom = StationFromFilename
	case StationFromParentDir:
	default:
		return nil, fmt.Errorf("unknown station source %q", spec.StationFrom)
	}

	if g.frac >= 0 && (spec.FracDigits < 1 || spec.FracDigits > 9) {
		return nil, fmt.Errorf("frac_digits must be within [1, 9] when the pattern has a %s group", GroupFrac)
	}

	if len(spec.Extensions) == 0 {
		return nil, fmt.Errorf("no extensions configured")
	}
	for _, ext := range spec.Extensions {
		g.exts[NormalizeExt(ext)] = struct{}{}
	}

	if spec.Format != "" {
		t, err := fasttemplate.NewTemplate(spec.Format, "{", "}")
		if err != nil {
			return nil, fmt.Errorf("invalid format: %w", err)
		}
		g.format = t
		if _, err := g.formatStem("X", time.Unix(0, 0).UTC()); err != nil {
			return nil, err
		}
	}

	return g, nil
}

func (g *Grammar) Spec() Spec {
	return g.spec
}

// Extensions returns the accepted extensions, lowercase with a leading dot.
func (g *Grammar) Extensions() []string {
	out := make([]string, 0, len(g.exts))
	for ext := range g.exts {
		out = append(out, ext)
	}
	return out
}

// Parse builds a FileRecord for path. Failures are always *model.ParseError.
func (g *Grammar) Parse(path, relPath string, size int64) (model.FileRecord, error) {
	name := filepath.Base(path)
	ext := filepath.Ext(name)
	stem := strings.TrimSuffix(name, ext)

	perr := func(kind model.ParseErrorKind, detail string) error {
		return &model.ParseError{
			Path:    path,
			RelPath: relPath,
			Name:    name,
			Kind:    kind,
			Detail:  detail,
			Size:    size,
		}
	}

	ext = NormalizeExt(ext)
	if _, ok := g.exts[ext]; !ok {
		return model.FileRecord{}, perr(model.ParseUnrecognizedExt, fmt.Sprintf("extension %q", ext))
	}

	m := g.re.FindStringSubmatch(stem)
	if m == nil {
		return model.FileRecord{}, perr(model.ParseNoMatch, fmt.Sprintf("stem %q does not match %s", stem, g.re))
	}

	var station string
	switch g.spec.StationFrom {
	case StationFromParentDir:
		station = filepath.Base(filepath.Dir(path))
		if station == "." || station == string(filepath.Separator) {
			station = ""
		}
	default:
		station = m[g.station]
	}
	if station == "" {
		return model.FileRecord{}, perr(model.ParseMissingField, GroupStation)
	}

	raw := m[g.timestamp]
	if raw == "" {
		return model.FileRecord{}, perr(model.ParseMissingField, GroupTimestamp)
	}
	ts, err := time.ParseInLocation(g.spec.TimestampLayout, raw, time.UTC)
	if err != nil {
		return model.FileRecord{}, perr(model.ParseMalformedTimestamp, err.Error())
	}

	if g.frac >= 0 && m[g.frac] != "" {
		ns, err := fracNanos(m[g.frac])
		if err != nil {
			return model.FileRecord{}, perr(model.ParseMalformedTimestamp, err.Error())
		}
		ts = ts.Add(time.Duration(ns))
	}

	return model.FileRecord{
		Path:      path,
		RelPath:   relPath,
		Name:      name,
		Station:   station,
		Timestamp: ts,
		Ext:       ext,
		Size:      size,
	}, nil
}

// Format rebuilds a filename stem from the identifying fields. It returns an
// empty string when the grammar has no format template.
func (g *Grammar) Format(station string, ts time.Time) string {
	s, err := g.formatStem(station, ts)
	if err != nil {
		return ""
	}
	return s
}

func (g *Grammar) formatStem(station string, ts time.Time) (string, error) {
	if g.format == nil {
		return "", nil
	}
	return g.format.ExecuteFuncStringWithErr(func(w io.Writer, tag string) (int, error) {
		switch tag {
		case GroupStation:
			return w.Write([]byte(station))
		case GroupTimestamp:
			return w.Write([]byte(ts.Format(g.spec.TimestampLayout)))
		case GroupFrac:
			digits := g.spec.FracDigits
			if digits < 1 {
				return 0, fmt.Errorf("format uses {%s} but frac_digits is not set", GroupFrac)
			}
			v := ts.Nanosecond() / int(math.Pow10(9-digits))
			return fmt.Fprintf(w, "%0*d", digits, v)
		default:
			return 0, fmt.Errorf("unknown format tag {%s}", tag)
		}
	})
}

func fracNanos(s string) (int64, error) {
	if len(s) > 9 {
		return 0, fmt.Errorf("fraction %q exceeds nanosecond precision", s)
	}
	v, err := strconv.ParseInt(s, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("fraction %q: %w", s, err)
	}
	return v * int64(math.Pow10(9-len(s))), nil
}

// NormalizeExt lowercases ext and makes sure it starts with a dot.
func NormalizeExt(ext string) string {
	ext = strings.ToLower(strings.TrimSpace(ext))
	if ext != "" && !strings.HasPrefix(ext, ".") {
		ext = "." + ext
	}
	return ext
}
