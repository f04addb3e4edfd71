package track

import (
	"bufio"
	"errors"
	"io"
	"strings"
	"time"

	"github.com/jlgabriel/IGC2FDR/internal/config"
	"github.com/jlgabriel/IGC2FDR/internal/fdr"
	"github.com/jlgabriel/IGC2FDR/internal/igc"
)

const unknownTail = "UNKNOWN"

// importedFrom names the logger family in flight summaries.
const importedFrom = "IGC Flight Logger"

// Parse runs the full pipeline over one IGC file: header pass, fix decode,
// track build, metadata. A file yielding no valid position records is an
// error; individual undecodable records are skipped and reported through
// events. events may be nil.
func Parse(r io.Reader, cfg *config.Config, events Events) (*fdr.Flight, error) {
	if events == nil {
		events = NopEvents{}
	}

	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	var lines []string
	for scanner.Scan() {
		lines = append(lines, strings.TrimSpace(scanner.Text()))
	}
	if err := scanner.Err(); err != nil {
		return nil, err
	}

	// Header records come before the first position record.
	var hdr igc.Headers
	prefixes := cfg.StripPrefixes()
	for _, line := range lines {
		if line == "" {
			continue
		}
		if line[0] == 'B' {
			break
		}
		hdr.Apply(line, prefixes)
	}

	date := hdr.Date
	if !hdr.DateOK {
		if hdr.RawDate != "" {
			events.HeaderDateFallback(hdr.RawDate)
		}
		now := time.Now()
		date = igc.Date{Year: now.Year(), Month: int(now.Month()), Day: now.Day()}
	}

	tz := cfg.Timezones.For(igc.FileTypeIGC)

	var fixes []igc.Fix
	for i, line := range lines {
		if !igc.IsPositionRecord(line) {
			continue
		}
		fx, err := igc.ParseFix(line, date, tz)
		if err != nil {
			events.RecordSkipped(i+1, err.Error())
			continue
		}
		if fx.AltDefaulted {
			events.AltitudeDefaulted(i + 1)
		}
		fixes = append(fixes, fx)
	}
	if len(fixes) == 0 {
		return nil, errors.New("no valid position records")
	}

	tail := hdr.GliderID
	if tail == "" {
		tail = unknownTail
	}

	b := NewBuilder(cfg.TailSettingsFor(tail), cfg.DrefsForTail(tail), events)
	points, miles := b.Build(fixes)

	first, last := points[0], points[len(points)-1]
	meta := fdr.Metadata{
		Pilot:         hdr.Pilot,
		TailNumber:    hdr.GliderID,
		DeviceModel:   hdr.GliderType,
		GPSSource:     hdr.GPSSource,
		Origin:        hdr.Site,
		ImportedFrom:  importedFrom,
		StartTime:     first.Time,
		StartLat:      first.Lat,
		StartLon:      first.Lon,
		EndTime:       last.Time,
		EndLat:        last.Lat,
		EndLon:        last.Lon,
		Duration:      last.Time.Sub(first.Time),
		DistanceMiles: miles,
	}

	return &fdr.Flight{
		Aircraft:        cfg.AircraftForTail(tail),
		Tail:            tail,
		Date:            time.Date(date.Year, time.Month(date.Month), date.Day, 0, 0, 0, 0, time.UTC),
		TimezoneSeconds: tz,
		Meta:            meta,
		Track:           points,
		Summary:         meta.Summary(),
	}, nil
}
