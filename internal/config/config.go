package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/jlgabriel/IGC2FDR/internal/dref"
	"github.com/jlgabriel/IGC2FDR/internal/igc"
)

const (
	DefaultAircraft = "Aircraft/Laminar Research/Schleicher ASK 21/ASK21.acf"
	DefaultOutPath  = "."

	DefaultRollFactor  = 0.6
	DefaultPitchFactor = 0.8
)

type Config struct {
	Defaults DefaultsConfig        `yaml:"defaults"`
	Aircraft []AircraftConfig      `yaml:"aircraft"`
	Tails    map[string]TailConfig `yaml:"tails"`

	// Resolved at Load time from the defaults section.
	Timezones Timezones `yaml:"-"`

	// CLIAircraft pins every tail to Defaults.Aircraft, set when the
	// aircraft came from the command line rather than the file.
	CLIAircraft bool `yaml:"-"`
}

type DefaultsConfig struct {
	Aircraft      string       `yaml:"aircraft"`
	OutPath       string       `yaml:"out_path"`
	Timezone      string       `yaml:"timezone"`
	TimezoneIGC   string       `yaml:"timezone_igc"`
	TimezoneCSV   string       `yaml:"timezone_csv"`
	TimezoneKML   string       `yaml:"timezone_kml"`
	StripPrefixes []string     `yaml:"strip_prefixes"`
	HeadingTrim   float64      `yaml:"heading_trim"`
	PitchTrim     float64      `yaml:"pitch_trim"`
	RollTrim      float64      `yaml:"roll_trim"`
	RollFactor    float64      `yaml:"roll_factor"`
	PitchFactor   float64      `yaml:"pitch_factor"`
	Drefs         []DrefConfig `yaml:"drefs"`
}

type AircraftConfig struct {
	Path          string       `yaml:"path"`
	Tails         []string     `yaml:"tails"`
	StripPrefixes []string     `yaml:"strip_prefixes"`
	HeadingTrim   float64      `yaml:"heading_trim"`
	PitchTrim     float64      `yaml:"pitch_trim"`
	RollTrim      float64      `yaml:"roll_trim"`
	RollFactor    float64      `yaml:"roll_factor"`
	PitchFactor   float64      `yaml:"pitch_factor"`
	Drefs         []DrefConfig `yaml:"drefs"`
}

type TailConfig struct {
	HeadingTrim float64      `yaml:"heading_trim"`
	PitchTrim   float64      `yaml:"pitch_trim"`
	RollTrim    float64      `yaml:"roll_trim"`
	RollFactor  float64      `yaml:"roll_factor"`
	PitchFactor float64      `yaml:"pitch_factor"`
	Drefs       []DrefConfig `yaml:"drefs"`
}

type DrefConfig struct {
	Instrument string `yaml:"instrument"`
	Expr       string `yaml:"expr"`
	Scale      string `yaml:"scale"`
	Name       string `yaml:"name"`
}

func (d DrefConfig) definition() dref.Definition {
	scale := d.Scale
	if scale == "" {
		scale = "1.0"
	}
	return dref.Definition{
		Instrument: strings.ReplaceAll(d.Instrument, `\`, "/"),
		Expr:       d.Expr,
		Scale:      scale,
		Name:       d.Name,
	}
}

// Timezones carries resolved offsets in seconds. Per-filetype offsets
// override the default when present.
type Timezones struct {
	Default int
	CSV     *int
	KML     *int
	IGC     *int
}

// For returns the offset to apply to timestamps from the given file type.
func (t Timezones) For(ft igc.FileType) int {
	switch ft {
	case igc.FileTypeCSV:
		if t.CSV != nil {
			return *t.CSV
		}
	case igc.FileTypeKML:
		if t.KML != nil {
			return *t.KML
		}
	case igc.FileTypeIGC:
		if t.IGC != nil {
			return *t.IGC
		}
	}
	return t.Default
}

// TailSettings is the resolved attitude tuning for one tail number.
type TailSettings struct {
	HeadingTrim float64
	PitchTrim   float64
	RollTrim    float64
	RollFactor  float64
	PitchFactor float64
}

// Default returns the built-in configuration used when no file is found.
func Default() Config {
	var cfg Config
	cfg.normalize()
	return cfg
}

func Load(path string) (Config, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return Config{}, err
	}

	var cfg Config
	if err := yaml.Unmarshal(b, &cfg); err != nil {
		return Config{}, err
	}

	if cfg.Defaults.RollFactor < 0 {
		return Config{}, fmt.Errorf("defaults.roll_factor must be >= 0")
	}
	if cfg.Defaults.PitchFactor < 0 {
		return Config{}, fmt.Errorf("defaults.pitch_factor must be >= 0")
	}

	if cfg.Defaults.Timezone != "" {
		cfg.Timezones.Default, err = ParseTimezone(cfg.Defaults.Timezone)
		if err != nil {
			return Config{}, fmt.Errorf("defaults.timezone: %w", err)
		}
	}
	if cfg.Timezones.CSV, err = optionalTimezone("defaults.timezone_csv", cfg.Defaults.TimezoneCSV); err != nil {
		return Config{}, err
	}
	if cfg.Timezones.KML, err = optionalTimezone("defaults.timezone_kml", cfg.Defaults.TimezoneKML); err != nil {
		return Config{}, err
	}
	if cfg.Timezones.IGC, err = optionalTimezone("defaults.timezone_igc", cfg.Defaults.TimezoneIGC); err != nil {
		return Config{}, err
	}

	for i := range cfg.Aircraft {
		ac := &cfg.Aircraft[i]
		if ac.Path == "" {
			return Config{}, fmt.Errorf("aircraft entry %d: path is required", i)
		}
		ac.Path = strings.ReplaceAll(ac.Path, `\`, "/")
		if ac.RollFactor < 0 || ac.PitchFactor < 0 {
			return Config{}, fmt.Errorf("aircraft %q: factors must be >= 0", ac.Path)
		}
		if err := validateDrefs(fmt.Sprintf("aircraft %q", ac.Path), ac.Drefs); err != nil {
			return Config{}, err
		}
	}
	for tail, tc := range cfg.Tails {
		if tc.RollFactor < 0 || tc.PitchFactor < 0 {
			return Config{}, fmt.Errorf("tail %q: factors must be >= 0", tail)
		}
		if err := validateDrefs(fmt.Sprintf("tail %q", tail), tc.Drefs); err != nil {
			return Config{}, err
		}
	}
	if err := validateDrefs("defaults", cfg.Defaults.Drefs); err != nil {
		return Config{}, err
	}

	cfg.normalize()
	return cfg, nil
}

// FileNames are searched in the working directory and next to the
// executable when no config path is given.
var FileNames = []string{"igc2fdr.yaml", "igc2fdr.yml"}

// LoadDefault searches the standard locations for a config file and falls
// back to the built-in defaults when none exists.
func LoadDefault() (Config, string, error) {
	dirs := []string{"."}
	if exe, err := os.Executable(); err == nil {
		dirs = append(dirs, filepath.Dir(exe))
	}
	for _, dir := range dirs {
		for _, name := range FileNames {
			path := filepath.Join(dir, name)
			if st, err := os.Stat(path); err == nil && !st.IsDir() {
				cfg, err := Load(path)
				return cfg, path, err
			}
		}
	}
	return Default(), "", nil
}

func validateDrefs(where string, defs []DrefConfig) error {
	for i, d := range defs {
		if d.Instrument == "" {
			return fmt.Errorf("%s: dref %d: instrument is required", where, i)
		}
		if d.Expr == "" {
			return fmt.Errorf("%s: dref %d: expr is required", where, i)
		}
	}
	return nil
}

func optionalTimezone(name, value string) (*int, error) {
	if value == "" {
		return nil, nil
	}
	sec, err := ParseTimezone(value)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", name, err)
	}
	return &sec, nil
}

func (c *Config) normalize() {
	if c.Defaults.Aircraft == "" {
		c.Defaults.Aircraft = DefaultAircraft
	}
	c.Defaults.Aircraft = strings.ReplaceAll(c.Defaults.Aircraft, `\`, "/")
	if c.Defaults.OutPath == "" {
		c.Defaults.OutPath = DefaultOutPath
	}
}

// AircraftForTail resolves the X-Plane aircraft path written into the FDR
// header: the matching aircraft section unless the aircraft was forced on
// the command line.
func (c *Config) AircraftForTail(tail string) string {
	if ac := c.aircraftForTail(tail); ac != nil {
		return ac.Path
	}
	return c.Defaults.Aircraft
}

// TailSettingsFor resolves attitude tuning: a tail section wins, then a
// matching aircraft section, then the defaults section.
func (c *Config) TailSettingsFor(tail string) TailSettings {
	if tc, ok := c.Tails[tail]; ok {
		return normalizeSettings(TailSettings{
			HeadingTrim: tc.HeadingTrim,
			PitchTrim:   tc.PitchTrim,
			RollTrim:    tc.RollTrim,
			RollFactor:  tc.RollFactor,
			PitchFactor: tc.PitchFactor,
		})
	}
	if ac := c.aircraftForTail(tail); ac != nil {
		return normalizeSettings(TailSettings{
			HeadingTrim: ac.HeadingTrim,
			PitchTrim:   ac.PitchTrim,
			RollTrim:    ac.RollTrim,
			RollFactor:  ac.RollFactor,
			PitchFactor: ac.PitchFactor,
		})
	}
	d := c.Defaults
	return normalizeSettings(TailSettings{
		HeadingTrim: d.HeadingTrim,
		PitchTrim:   d.PitchTrim,
		RollTrim:    d.RollTrim,
		RollFactor:  d.RollFactor,
		PitchFactor: d.PitchFactor,
	})
}

// DrefsForTail resolves the derived channels for a tail in declaration
// order: defaults, then the matching aircraft section, then the tail
// section. A later definition with the same column name replaces the
// earlier one. A ground-speed channel is guaranteed.
func (c *Config) DrefsForTail(tail string) []dref.Definition {
	var out []dref.Definition
	add := func(defs []DrefConfig) {
		for _, dc := range defs {
			d := dc.definition()
			name := d.ColumnName()
			replaced := false
			for i := range out {
				if out[i].ColumnName() == name {
					out[i] = d
					replaced = true
					break
				}
			}
			if !replaced {
				out = append(out, d)
			}
		}
	}
	add(c.Defaults.Drefs)
	if ac := c.aircraftForTail(tail); ac != nil {
		add(ac.Drefs)
	}
	if tc, ok := c.Tails[tail]; ok {
		add(tc.Drefs)
	}
	return dref.EnsureGroundSpeed(out)
}

// StripPrefixes returns the header value prefixes to remove. Headers are
// parsed before the tail number is known, so only the defaults section and
// the default aircraft's section are consulted.
func (c *Config) StripPrefixes() []string {
	if len(c.Defaults.StripPrefixes) > 0 {
		return c.Defaults.StripPrefixes
	}
	for i := range c.Aircraft {
		if c.Aircraft[i].Path == c.Defaults.Aircraft && len(c.Aircraft[i].StripPrefixes) > 0 {
			return c.Aircraft[i].StripPrefixes
		}
	}
	return igc.DefaultStripPrefixes
}

func (c *Config) aircraftForTail(tail string) *AircraftConfig {
	if c.CLIAircraft {
		return nil
	}
	for i := range c.Aircraft {
		for _, t := range c.Aircraft[i].Tails {
			if t == tail {
				return &c.Aircraft[i]
			}
		}
	}
	return nil
}

func normalizeSettings(ts TailSettings) TailSettings {
	if ts.RollFactor == 0 {
		ts.RollFactor = DefaultRollFactor
	}
	if ts.PitchFactor == 0 {
		ts.PitchFactor = DefaultPitchFactor
	}
	return ts
}

// ParseTimezone converts an offset string to seconds. Accepted forms are
// signed decimal hours ("2", "-3.5") and clock offsets ("+02:30",
// "-01:30:15").
func ParseTimezone(s string) (int, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return 0, fmt.Errorf("empty timezone offset")
	}
	if v, err := strconv.ParseFloat(s, 64); err == nil {
		return int(v * 3600), nil
	}

	neg := false
	switch s[0] {
	case '-':
		neg = true
		s = s[1:]
	case '+':
		s = s[1:]
	}
	parts := strings.Split(s, ":")
	if len(parts) != 2 && len(parts) != 3 {
		return 0, fmt.Errorf("bad timezone offset %q", s)
	}
	var total float64
	for _, p := range parts {
		v, err := strconv.ParseFloat(p, 64)
		if err != nil || v < 0 {
			return 0, fmt.Errorf("bad timezone component %q", p)
		}
		total = total*60 + v
	}
	if len(parts) == 2 {
		// HH:MM only; shift minutes to seconds.
		total *= 60
	}
	sec := int(total)
	if neg {
		sec = -sec
	}
	return sec, nil
}
