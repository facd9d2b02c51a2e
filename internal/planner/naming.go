package planner

import (
	"fmt"
	"io"
	"strconv"
	"strings"
	"time"

	"iiqsort/internal/model"

	"github.com/valyala/fasttemplate"
)

const DefaultTimeLayout = "20060102_150405"

// Tags understood by destination patterns. Time tags accept an optional Go
// layout after a colon, e.g. {start:2006-01-02}.
const (
	TagStation = "station"
	TagStart   = "start"
	TagEnd     = "end"
	TagCount   = "count"
	TagName    = "name"
	TagStem    = "stem"
	TagExt     = "ext"
	TagTime    = "time"
	TagIndex   = "index"
)

type pattern struct {
	src string
	t   *fasttemplate.Template
}

func compilePattern(src string) (*pattern, error) {
	t, err := fasttemplate.NewTemplate(src, "{", "}")
	if err != nil {
		return nil, fmt.Errorf("pattern %q: %w", src, err)
	}
	return &pattern{src: src, t: t}, nil
}

// naming is the data a pattern can reference. rec is nil for directory patterns.
type naming struct {
	session *model.Session
	rec     *model.FileRecord
	index   int
}

func (p *pattern) render(n naming) (string, error) {
	return p.t.ExecuteFuncStringWithErr(func(w io.Writer, tag string) (int, error) {
		v, err := n.value(tag)
		if err != nil {
			return 0, fmt.Errorf("pattern %q: %w", p.src, err)
		}
		return w.Write([]byte(v))
	})
}

func (n naming) value(tag string) (string, error) {
	name, layout, hasLayout := strings.Cut(tag, ":")
	if !hasLayout {
		layout = DefaultTimeLayout
	}

	switch name {
	case TagStation:
		return n.session.Key.Station, nil
	case TagStart:
		return n.session.Key.Start.Format(layout), nil
	case TagEnd:
		return n.session.End().Format(layout), nil
	case TagCount:
		return strconv.Itoa(len(n.session.Records)), nil
	}

	if n.rec == nil {
		return "", fmt.Errorf("tag {%s} is only valid in file patterns", tag)
	}

	switch name {
	case TagName:
		return n.rec.Name, nil
	case TagStem:
		return n.rec.Stem(), nil
	case TagExt:
		return n.rec.Ext, nil
	case TagTime:
		return n.rec.Timestamp.Format(layout), nil
	case TagIndex:
		return fmt.Sprintf("%04d", n.index), nil
	default:
		return "", fmt.Errorf("unknown tag {%s}", tag)
	}
}

// sampleNaming is used to validate patterns before any planning happens.
func sampleNaming() naming {
	ts := time.Date(2024, 1, 1, 12, 0, 0, 0, time.UTC)
	rec := model.FileRecord{
		Path:      "/src/STA1_20240101_120000.iiq",
		Name:      "STA1_20240101_120000.iiq",
		Station:   "STA1",
		Timestamp: ts,
		Ext:       ".iiq",
	}
	s := model.Session{Key: model.SessionKey{Station: "STA1", Start: ts}, Records: []model.FileRecord{rec}}
	return naming{session: &s, rec: &rec, index: 1}
}
