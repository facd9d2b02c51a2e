// Package exifmeta reads the capture metadata that camera backs embed in the
// TIFF header of IIQ files. It only backs the inspect command; the pipeline
// itself relies on filenames.
package exifmeta

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/rwcarlsen/goexif/exif"
)

type Info struct {
	CaptureTime time.Time
	Make        string
	Model       string
}

func Read(path string) (Info, error) {
	f, err := os.Open(path)
	if err != nil {
		return Info{}, err
	}
	defer f.Close()

	x, err := exif.Decode(f)
	if err != nil {
		return Info{}, fmt.Errorf("decode exif of %s: %w", path, err)
	}

	var info Info
	if t, err := x.DateTime(); err == nil {
		info.CaptureTime = t
	}
	info.Make = stringTag(x, exif.Make)
	info.Model = stringTag(x, exif.Model)

	return info, nil
}

func stringTag(x *exif.Exif, name exif.FieldName) string {
	tag, err := x.Get(name)
	if err != nil {
		return ""
	}
	s, err := tag.StringVal()
	if err != nil {
		return ""
	}
	return strings.TrimSpace(strings.TrimRight(s, "\x00"))
}
