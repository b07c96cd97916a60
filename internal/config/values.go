package config

import (
	"bufio"
	"bytes"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"slices"
	"strings"

	"gopkg.in/yaml.v3"
)

// Configuration keys. The property file format uses them verbatim; the
// environment uses them with the EnvPrefix.
const (
	KeyTLEName          = "TLE_NAME"
	KeyTLELine1         = "TLE_LINE1"
	KeyTLELine2         = "TLE_LINE2"
	KeyTLEFile          = "TLE_FILE"
	KeyTLESourceURL     = "TLE_SOURCE_URL"
	KeyTLECacheDir      = "TLE_CACHE_DIR"
	KeySiteLat          = "SITE_LAT"
	KeySiteLon          = "SITE_LON"
	KeySiteHeight       = "SITE_HEIGHT"
	KeyStartTime        = "START_TIME"
	KeyEndTime          = "END_TIME"
	KeyStepMs           = "TLE_TIME_RESOLUTION"
	KeyRefraction       = "ATMOSPHERIC_CORRECTION"
	KeyPressureModel    = "PRESSURE_MODEL"
	KeySeaLevelPressure = "SEA_LEVEL_PRESSURE"
	KeyTemperature      = "TEMPERATURE_C"
	KeyTilt             = "TILT_DEG"
	KeyTiltAzimuth      = "TILT_AZIMUTH_DEG"
	KeyDecimals         = "DECIMAL_COUNT"
	KeyOutputFile       = "OUTPUT_FILENAME"
	KeyOutputHeader     = "OUTPUT_HEADER"
	KeyVisibleOnly      = "VISIBLE_ONLY"
	KeyGravity          = "GRAVITY_MODEL"
	KeyWorkers          = "WORKERS"
)

// EnvPrefix is prepended to a key to form its environment override.
const EnvPrefix = "TRACKGEN_"

// Keys lists every recognised key.
var Keys = []string{
	KeyTLEName, KeyTLELine1, KeyTLELine2, KeyTLEFile, KeyTLESourceURL, KeyTLECacheDir,
	KeySiteLat, KeySiteLon, KeySiteHeight,
	KeyStartTime, KeyEndTime, KeyStepMs,
	KeyRefraction, KeyPressureModel, KeySeaLevelPressure, KeyTemperature,
	KeyTilt, KeyTiltAzimuth,
	KeyDecimals, KeyOutputFile, KeyOutputHeader, KeyVisibleOnly,
	KeyGravity, KeyWorkers,
}

// yamlKeys maps "section.field" in a YAML file to a configuration key.
var yamlKeys = map[string]string{
	"tle.name":                       KeyTLEName,
	"tle.line1":                      KeyTLELine1,
	"tle.line2":                      KeyTLELine2,
	"tle.file":                       KeyTLEFile,
	"tle.source_url":                 KeyTLESourceURL,
	"tle.cache_dir":                  KeyTLECacheDir,
	"site.lat":                       KeySiteLat,
	"site.lon":                       KeySiteLon,
	"site.height_m":                  KeySiteHeight,
	"window.start":                   KeyStartTime,
	"window.end":                     KeyEndTime,
	"window.step_ms":                 KeyStepMs,
	"corrections.refraction":         KeyRefraction,
	"corrections.pressure_model":     KeyPressureModel,
	"corrections.sea_level_pressure": KeySeaLevelPressure,
	"corrections.temperature_c":      KeyTemperature,
	"corrections.tilt_deg":           KeyTilt,
	"corrections.tilt_azimuth_deg":   KeyTiltAzimuth,
	"output.filename":                KeyOutputFile,
	"output.decimals":                KeyDecimals,
	"output.header":                  KeyOutputHeader,
	"output.visible_only":            KeyVisibleOnly,
	"propagation.gravity":            KeyGravity,
	"propagation.workers":            KeyWorkers,
}

// Values holds raw configuration strings by key.
type Values map[string]string

// Get returns the trimmed value for key.
func (v Values) Get(key string) string {
	return strings.TrimSpace(v[key])
}

// Unknown returns the keys that are not recognised, sorted.
func (v Values) Unknown() []string {
	var out []string
	for k := range v {
		if !slices.Contains(Keys, k) {
			out = append(out, k)
		}
	}
	slices.Sort(out)
	return out
}

// ApplyEnv overrides values with TRACKGEN_<KEY> variables from lookup.
// Pass os.LookupEnv in production.
func (v Values) ApplyEnv(lookup func(string) (string, bool)) {
	for _, k := range Keys {
		if val, ok := lookup(EnvPrefix + k); ok {
			v[k] = val
		}
	}
}

// ParseProperties reads KEY=VALUE lines. Blank lines and lines starting with
// '#' or '!' are ignored. Keys are case-insensitive.
func ParseProperties(r io.Reader) (Values, error) {
	v := Values{}
	scanner := bufio.NewScanner(r)
	lineNo := 0
	for scanner.Scan() {
		lineNo++
		line := strings.TrimSpace(scanner.Text())
		if line == "" || line[0] == '#' || line[0] == '!' {
			continue
		}
		key, val, ok := strings.Cut(line, "=")
		if !ok {
			return nil, &Error{Key: fmt.Sprintf("line %d", lineNo), Err: fmt.Errorf("%w: expected KEY=VALUE, got %q", ErrInvalid, line)}
		}
		v[strings.ToUpper(strings.TrimSpace(key))] = strings.TrimSpace(val)
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("reading properties: %w", err)
	}
	return v, nil
}

// ParseYAML reads a sectioned YAML document, for example:
//
//	site:
//	  lat: 17.27
//	  lon: 78.50
//	window:
//	  start: "2025-08-25 10:00:00"
//
// Scalars are taken verbatim so that times and numbers parse exactly like
// their property-file form.
func ParseYAML(data []byte) (Values, error) {
	var doc map[string]map[string]yaml.Node
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("parsing YAML config: %w", err)
	}

	v := Values{}
	for section, fields := range doc {
		for field, node := range fields {
			path := section + "." + field
			key, ok := yamlKeys[path]
			if !ok {
				key = path
			}
			if node.Kind != yaml.ScalarNode {
				return nil, invalid(key, "expected a scalar")
			}
			if node.ShortTag() == "!!null" {
				continue
			}
			v[key] = node.Value
		}
	}
	return v, nil
}

// ReadFile reads a property or YAML file, chosen by extension.
func ReadFile(path string) (Values, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading config file: %w", err)
	}
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		return ParseYAML(data)
	default:
		return ParseProperties(bytes.NewReader(data))
	}
}
