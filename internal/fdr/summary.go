package fdr

import (
	"fmt"
	"strings"
	"time"
	"unicode/utf8"
)

// Summary renders the human-readable flight block embedded in the FDR
// header comments. Track bounds are treated as unset while StartTime or
// EndTime is the zero time.
func (m Metadata) Summary() string {
	tail := m.TailNumber
	if tail == "" {
		tail = "Unknown"
	}
	date := "Unknown Date"
	if !m.StartTime.IsZero() {
		date = m.StartTime.Format("2006/01/02")
	}
	var distance string
	if m.DistanceMiles > 0 {
		distance = fmt.Sprintf(" %.2f miles", m.DistanceMiles)
	}
	var pilot string
	if m.Pilot != "" {
		pilot = " by " + m.Pilot
	}
	duration := "N/A"
	if m.Duration > 0 {
		total := int(m.Duration.Seconds())
		duration = fmt.Sprintf("%d hours and %d minutes", total/3600, total%3600/60)
	}

	fromLat, fromLon := "N/A", "N/A"
	if !m.StartTime.IsZero() {
		fromLat = fmt.Sprintf("%.6f", m.StartLat)
		fromLon = fmt.Sprintf("%.6f", m.StartLon)
	}
	toLat, toLon := "N/A", "N/A"
	if !m.EndTime.IsZero() {
		toLat = fmt.Sprintf("%.6f", m.EndLat)
		toLon = fmt.Sprintf("%.6f", m.EndLon)
	}

	heading := fmt.Sprintf("%s - %s%s%s (%s)", tail, date, distance, pilot, duration)

	var b strings.Builder
	b.WriteString(heading)
	b.WriteByte('\n')
	b.WriteString(strings.Repeat("-", utf8.RuneCountInString(heading)))
	fmt.Fprintf(&b, "\n    From: %s %s (%s, %s)", zuluOrNA(m.StartTime), orNA(m.Origin), fromLat, fromLon)
	fmt.Fprintf(&b, "\n      To: %s %s (%s, %s)", zuluOrNA(m.EndTime), orNA(m.Destination), toLat, toLon)
	fmt.Fprintf(&b, "\n Planned: %s", orNA(m.Waypoints))
	fmt.Fprintf(&b, "\nGPS/AHRS: %s", orUnknown(m.GPSSource))
	if m.DeviceModel != "" {
		fmt.Fprintf(&b, "\n  Client: %s", m.DeviceModel)
	}
	if m.ImportedFrom != "" {
		fmt.Fprintf(&b, "\nImported: %s", m.ImportedFrom)
	}
	return b.String()
}

func orNA(s string) string {
	if s == "" {
		return "N/A"
	}
	return s
}

func orUnknown(s string) string {
	if s == "" {
		return "Unknown"
	}
	return s
}

func zuluOrNA(t time.Time) string {
	if t.IsZero() {
		return "N/A"
	}
	return t.Format("15:04") + "Z"
}
