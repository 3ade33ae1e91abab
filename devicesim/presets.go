package devicesim

import (
	_ "embed"
	"fmt"
	"io"
	"strings"

	"github.com/gocarina/gocsv"
)

// Preset names one (io_sz, total_bytes) combination for a device simulator,
// the same "named geometry table" pattern the teacher repo's disks package
// uses for historical floppy formats, scaled down to what this block-device
// abstraction actually needs.
type Preset struct {
	Name       string `csv:"name"`
	IOSize     int64  `csv:"io_sz"`
	TotalBytes int64  `csv:"total_bytes"`
}

//go:embed presets.csv
var presetsRawCSV string

var presets map[string]Preset

func init() {
	presets = make(map[string]Preset)
	reader := strings.NewReader(presetsRawCSV)
	err := gocsv.UnmarshalToCallback(reader, func(row Preset) error {
		if _, exists := presets[row.Name]; exists {
			return fmt.Errorf("duplicate preset definition %q", row.Name)
		}
		presets[row.Name] = row
		return nil
	})
	if err != nil && err != io.EOF {
		panic(err)
	}
}

// GetPreset looks up a named device geometry preset.
func GetPreset(name string) (Preset, error) {
	p, ok := presets[name]
	if !ok {
		return Preset{}, fmt.Errorf("no preset named %q", name)
	}
	return p, nil
}
