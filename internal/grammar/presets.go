package grammar

import (
	"fmt"
	"sort"
)

const (
	PresetStation  = "station"
	PresetPhaseOne = "phaseone"
)

var presets = map[string]Spec{
	// STA1_20240101_120000.iiq
	PresetStation: {
		Pattern:         `^(?P<station>[A-Za-z0-9-]+)_(?P<timestamp>\d{8}_\d{6})$`,
		TimestampLayout: "20060102_150405",
		StationFrom:     StationFromFilename,
		Extensions:      []string{".iiq"},
		Format:          "{station}_{timestamp}",
	},
	// 210101_120000000.iiq inside a per-camera directory such as CAM_RGB/.
	// Anything after the first 16 characters of the stem is ignored, so
	// 210101_120000000_0001.iiq parses as well.
	PresetPhaseOne: {
		Pattern:         `^(?P<timestamp>\d{6}_\d{6})(?P<frac>\d{3})`,
		TimestampLayout: "060102_150405",
		FracDigits:      3,
		StationFrom:     StationFromParentDir,
		Extensions:      []string{".iiq"},
		Format:          "{timestamp}{frac}",
	},
}

// Preset returns a copy of a built-in grammar.
func Preset(name string) (Spec, error) {
	p, ok := presets[name]
	if !ok {
		return Spec{}, fmt.Errorf("unknown grammar preset %q (known: %v)", name, PresetNames())
	}
	p.Extensions = append([]string(nil), p.Extensions...)
	return p, nil
}

func PresetNames() []string {
	names := make([]string, 0, len(presets))
	for n := range presets {
		names = append(names, n)
	}
	sort.Strings(names)
	return names
}
