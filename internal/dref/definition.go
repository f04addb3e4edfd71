package dref

import "strings"

// ColumnWidth is the fixed FDR column width. Instrument-derived channel
// names are truncated to it so the column header stays aligned with its
// values.
const ColumnWidth = 19

// Definition describes one derived FDR channel: the simulator instrument it
// feeds, the expression producing its value, and the scale the simulator
// applies on playback. Immutable once parsed from configuration.
type Definition struct {
	Instrument string
	Expr       string
	Scale      string
	Name       string
}

// ColumnName returns the column header for this channel: the explicit name
// exactly as configured, otherwise the last segment of the instrument path
// truncated to ColumnWidth. An over-long explicit name widens its column
// rather than losing characters.
func (d Definition) ColumnName() string {
	if d.Name != "" {
		return d.Name
	}
	name := d.Instrument
	if i := strings.LastIndexByte(name, '/'); i >= 0 {
		name = name[i+1:]
	}
	if len(name) > ColumnWidth {
		name = name[:ColumnWidth]
	}
	return name
}

// HeaderLine renders the DREF declaration written into the FDR preamble.
// Scale is declared to the simulator there; evaluated values are never
// multiplied by it.
func (d Definition) HeaderLine() string {
	return d.Instrument + "\t" + d.Scale + "\t\t// source: " + d.Expr
}

var groundSpeedNames = map[string]bool{
	"groundspeed":  true,
	"gndspd":       true,
	"ground_speed": true,
}

// DefaultGroundSpeed is appended by EnsureGroundSpeed when no configured
// channel reports ground speed. Playback is unusable without one.
var DefaultGroundSpeed = Definition{
	Instrument: "sim/cockpit2/gauges/indicators/ground_speed_kt",
	Expr:       "round({Speed}, 4)",
	Scale:      "1.0",
	Name:       "GndSpd",
}

// EnsureGroundSpeed returns defs unchanged when one of them already names a
// ground-speed column, otherwise defs with DefaultGroundSpeed appended.
func EnsureGroundSpeed(defs []Definition) []Definition {
	for _, d := range defs {
		if groundSpeedNames[strings.ToLower(d.ColumnName())] {
			return defs
		}
	}
	return append(defs, DefaultGroundSpeed)
}
