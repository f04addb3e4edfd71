package track

import (
	"math"
	"testing"
	"time"

	"github.com/jlgabriel/IGC2FDR/internal/config"
	"github.com/jlgabriel/IGC2FDR/internal/dref"
	"github.com/jlgabriel/IGC2FDR/internal/geo"
	"github.com/jlgabriel/IGC2FDR/internal/igc"
)

// eventLog records every notification for assertion.
type eventLog struct {
	skipped        []int
	skippedReasons []string
	altDefaults    []int
	dateRaw        []string
	duplicates     []int
	filled         []int
	gaps           []float64
	trimJumps      int
	drefErrs       []string
}

func (e *eventLog) RecordSkipped(line int, reason string) {
	e.skipped = append(e.skipped, line)
	e.skippedReasons = append(e.skippedReasons, reason)
}
func (e *eventLog) AltitudeDefaulted(line int) { e.altDefaults = append(e.altDefaults, line) }
func (e *eventLog) HeaderDateFallback(raw string) { e.dateRaw = append(e.dateRaw, raw) }
func (e *eventLog) DuplicateResolved(at time.Time, candidates int) {
	e.duplicates = append(e.duplicates, candidates)
}
func (e *eventLog) GapFilled(from, to time.Time, n int)        { e.filled = append(e.filled, n) }
func (e *eventLog) GapSkipped(from, to time.Time, gap float64) { e.gaps = append(e.gaps, gap) }
func (e *eventLog) TrimDiscontinuity(at time.Time, before, after float64) {
	e.trimJumps++
}
func (e *eventLog) DrefFailed(at time.Time, channel string, err error) {
	e.drefErrs = append(e.drefErrs, channel)
}

var buildBase = time.Date(2025, 5, 9, 12, 14, 28, 0, time.UTC)

func fixAt(sec int, lat, lon, alt float64) igc.Fix {
	return igc.Fix{
		Time:    buildBase.Add(time.Duration(sec) * time.Second),
		Lat:     lat,
		Lon:     lon,
		AltFeet: alt,
	}
}

func defaultSettings() config.TailSettings {
	return config.TailSettings{
		RollFactor:  config.DefaultRollFactor,
		PitchFactor: config.DefaultPitchFactor,
	}
}

func TestBuild_EstimatesAttitudeAcrossTrack(t *testing.T) {
	fixes := []igc.Fix{
		fixAt(0, -33.25, -70.5, 2000),
		fixAt(1, -33.2505, -70.4995, 2010),
		fixAt(2, -33.251, -70.499, 2020),
		fixAt(3, -33.2515, -70.4985, 2030),
		fixAt(4, -33.252, -70.498, 2040),
	}
	log := &eventLog{}
	b := NewBuilder(defaultSettings(), dref.EnsureGroundSpeed(nil), log)
	track, miles := b.Build(fixes)

	if len(track) != 5 {
		t.Fatalf("len(track) = %d, want 5", len(track))
	}
	first := track[0]
	if first.Heading != 0 || first.Pitch != 0 || first.Roll != 0 {
		t.Fatalf("first point attitude = %v/%v/%v, want zeros", first.Heading, first.Pitch, first.Roll)
	}
	if v := first.Drefs["GndSpd"]; v != 0 {
		t.Fatalf("first point GndSpd = %v, want 0", v)
	}
	for i, pt := range track[1:] {
		if v := pt.Drefs["GndSpd"]; v <= 0 {
			t.Fatalf("point %d GndSpd = %v, want > 0", i+1, v)
		}
		if pt.Pitch <= 0 {
			t.Fatalf("point %d Pitch = %v, want positive while climbing", i+1, pt.Pitch)
		}
	}
	if miles <= 0 {
		t.Fatalf("total distance = %v miles, want > 0", miles)
	}
	if got := track[2].Time.Sub(track[1].Time); got != time.Second {
		t.Fatalf("spacing = %v, want 1s", got)
	}
	if len(log.filled)+len(log.gaps)+len(log.duplicates) != 0 {
		t.Fatalf("unexpected events: %+v", log)
	}
}

func TestBuild_DuplicateSecondKeepsNearest(t *testing.T) {
	outlier := fixAt(1, -33.26, -70.51, 2000)
	closer := fixAt(1, -33.2501, -70.4999, 2000)
	fixes := []igc.Fix{
		fixAt(0, -33.25, -70.5, 2000),
		outlier,
		closer,
	}
	log := &eventLog{}
	b := NewBuilder(defaultSettings(), nil, log)
	track, _ := b.Build(fixes)

	if len(track) != 2 {
		t.Fatalf("len(track) = %d, want 2", len(track))
	}
	if track[1].Lat != closer.Lat || track[1].Lon != closer.Lon {
		t.Fatalf("kept %v/%v, want the candidate nearest the previous point", track[1].Lat, track[1].Lon)
	}
	if len(log.duplicates) != 1 || log.duplicates[0] != 2 {
		t.Fatalf("duplicate events = %v, want one with 2 candidates", log.duplicates)
	}
}

func TestBuild_DuplicateFirstSecondKeepsFirstListed(t *testing.T) {
	a := fixAt(0, -33.25, -70.5, 2000)
	b2 := fixAt(0, -33.3, -70.55, 2000)
	b := NewBuilder(defaultSettings(), nil, &eventLog{})
	track, _ := b.Build([]igc.Fix{a, b2})

	if len(track) != 1 {
		t.Fatalf("len(track) = %d, want 1", len(track))
	}
	if track[0].Lat != a.Lat {
		t.Fatalf("kept lat %v, want the first candidate when there is no previous point", track[0].Lat)
	}
}

func TestBuild_FillsShortGap(t *testing.T) {
	fixes := []igc.Fix{
		fixAt(0, 10, 20, 1000),
		fixAt(2, 10.002, 20.002, 1020),
	}
	log := &eventLog{}
	b := NewBuilder(defaultSettings(), nil, log)
	track, _ := b.Build(fixes)

	if len(track) != 3 {
		t.Fatalf("len(track) = %d, want 3 with one synthetic point", len(track))
	}
	mid := track[1]
	if want := buildBase.Add(time.Second); !mid.Time.Equal(want) {
		t.Fatalf("synthetic time = %v, want %v", mid.Time, want)
	}
	if !near(mid.Lat, 10.001, 1e-9) || !near(mid.Lon, 20.001, 1e-9) || !near(mid.AltFeet, 1010, 1e-9) {
		t.Fatalf("synthetic position = %v/%v/%v, want the midpoint", mid.Lat, mid.Lon, mid.AltFeet)
	}
	if len(log.filled) != 1 || log.filled[0] != 1 {
		t.Fatalf("fill events = %v, want one synthesizing 1 point", log.filled)
	}
}

func TestBuild_LongGapLeftUnfilled(t *testing.T) {
	fixes := []igc.Fix{
		fixAt(0, 10, 20, 1000),
		fixAt(11, 10.01, 20.01, 1000),
	}
	log := &eventLog{}
	b := NewBuilder(defaultSettings(), nil, log)
	track, _ := b.Build(fixes)

	if len(track) != 2 {
		t.Fatalf("len(track) = %d, want 2", len(track))
	}
	if len(log.gaps) != 1 || log.gaps[0] != 11 {
		t.Fatalf("gap events = %v, want [11]", log.gaps)
	}
	if len(log.filled) != 0 {
		t.Fatalf("fill events = %v, want none", log.filled)
	}
}

func TestBuild_TenSecondGapStillFills(t *testing.T) {
	fixes := []igc.Fix{
		fixAt(0, 10, 20, 1000),
		fixAt(10, 10.01, 20.01, 1000),
	}
	log := &eventLog{}
	b := NewBuilder(defaultSettings(), nil, log)
	track, _ := b.Build(fixes)

	if len(track) != 11 {
		t.Fatalf("len(track) = %d, want 11 for a 10 s gap", len(track))
	}
	if len(log.filled) != 1 || log.filled[0] != 9 {
		t.Fatalf("fill events = %v, want one synthesizing 9 points", log.filled)
	}
}

func TestBuild_GapHeadingInterpolatesAcrossNorth(t *testing.T) {
	// Leg one heads about 350, leg two about 10; the synthetic point's
	// heading must stay in the northern sector rather than averaging out
	// to south.
	fixes := []igc.Fix{
		fixAt(0, 0, 0, 1000),
		fixAt(1, 0.000985, -0.000174, 1000),
		fixAt(3, 0.002955, 0.000174, 1000),
	}
	b := NewBuilder(defaultSettings(), nil, &eventLog{})
	track, _ := b.Build(fixes)

	if len(track) != 4 {
		t.Fatalf("len(track) = %d, want 4", len(track))
	}
	if h := track[2].Heading; h < 300 && h > 60 {
		t.Fatalf("synthetic heading = %v, want near north", h)
	}
}

func TestBuild_StraightLevelFlightConverges(t *testing.T) {
	var fixes []igc.Fix
	for i := 0; i < 12; i++ {
		fixes = append(fixes, fixAt(i, 0, 0.001*float64(i), 3000))
	}
	b := NewBuilder(defaultSettings(), nil, &eventLog{})
	track, _ := b.Build(fixes)

	last := track[len(track)-1]
	if !near(last.Heading, 90, 0.1) {
		t.Fatalf("Heading = %v, want about 90 after settling", last.Heading)
	}
	if last.Pitch != 0 {
		t.Fatalf("Pitch = %v, want 0 in level flight", last.Pitch)
	}
	if math.Abs(last.Roll) > 0.5 {
		t.Fatalf("Roll = %v, want near 0 once the course settles", last.Roll)
	}
}

func TestBuild_LargeTrimReportsDiscontinuity(t *testing.T) {
	ts := defaultSettings()
	ts.HeadingTrim = 90
	fixes := []igc.Fix{
		fixAt(0, 0, 0, 1000),
		fixAt(1, 0, 0.001, 1000),
		fixAt(2, 0, 0.002, 1000),
	}
	log := &eventLog{}
	b := NewBuilder(ts, nil, log)
	track, _ := b.Build(fixes)

	if len(track) != 3 {
		t.Fatalf("len(track) = %d, want 3", len(track))
	}
	// The first point trims from a zero heading, which never flags.
	if log.trimJumps != 2 {
		t.Fatalf("trim discontinuities = %d, want 2", log.trimJumps)
	}
	if track[1].Heading != 180 {
		t.Fatalf("Heading = %v, want 90 east plus the 90 trim", track[1].Heading)
	}
}

func TestBuild_SortsOutOfOrderFixes(t *testing.T) {
	fixes := []igc.Fix{
		fixAt(2, 0, 0.002, 1000),
		fixAt(0, 0, 0, 1000),
		fixAt(1, 0, 0.001, 1000),
	}
	b := NewBuilder(defaultSettings(), nil, &eventLog{})
	track, _ := b.Build(fixes)

	if len(track) != 3 {
		t.Fatalf("len(track) = %d, want 3", len(track))
	}
	for i := 1; i < len(track); i++ {
		if !track[i].Time.After(track[i-1].Time) {
			t.Fatalf("time not increasing at %d: %v then %v", i, track[i-1].Time, track[i].Time)
		}
	}
}

func TestBuild_NoFixes(t *testing.T) {
	b := NewBuilder(defaultSettings(), nil, nil)
	track, miles := b.Build(nil)
	if len(track) != 0 || miles != 0 {
		t.Fatalf("track/miles = %v/%v, want empty", track, miles)
	}
}

func TestBuild_BadChannelExpressionPinsZero(t *testing.T) {
	defs := []dref.Definition{
		{Instrument: "sim/test/bogus", Name: "Bogus", Scale: "1.0", Expr: "{Speed * 2"},
		dref.DefaultGroundSpeed,
	}
	log := &eventLog{}
	b := NewBuilder(defaultSettings(), defs, log)

	if len(log.drefErrs) != 1 || log.drefErrs[0] != "Bogus" {
		t.Fatalf("compile failures = %v, want [Bogus]", log.drefErrs)
	}

	track, _ := b.Build([]igc.Fix{
		fixAt(0, 0, 0, 1000),
		fixAt(1, 0, 0.001, 1000),
	})
	for i, pt := range track {
		if v := pt.Drefs["Bogus"]; v != 0 {
			t.Fatalf("point %d Bogus = %v, want pinned 0", i, v)
		}
	}
	if v := track[1].Drefs["GndSpd"]; v <= 0 {
		t.Fatalf("GndSpd = %v, want > 0 despite the broken sibling channel", v)
	}
	if len(log.drefErrs) != 1 {
		t.Fatalf("failures reported per point: %v, want the single compile report", log.drefErrs)
	}
}

func TestBuild_UnknownVariableReportsEachPoint(t *testing.T) {
	defs := []dref.Definition{
		{Instrument: "sim/test/x", Name: "X", Scale: "1.0", Expr: "{NoSuchVar} + 1"},
	}
	log := &eventLog{}
	b := NewBuilder(defaultSettings(), defs, log)
	track, _ := b.Build([]igc.Fix{
		fixAt(0, 0, 0, 1000),
		fixAt(1, 0, 0.001, 1000),
	})

	if len(log.drefErrs) != len(track) {
		t.Fatalf("eval failures = %d, want one per point (%d)", len(log.drefErrs), len(track))
	}
	for i, pt := range track {
		if v := pt.Drefs["X"]; v != 0 {
			t.Fatalf("point %d X = %v, want 0", i, v)
		}
	}
}

func TestBuild_ChannelReadsFinalPointState(t *testing.T) {
	defs := []dref.Definition{
		{Instrument: "sim/test/hdg", Name: "Hdg", Scale: "1.0", Expr: "{Heading}"},
	}
	b := NewBuilder(defaultSettings(), defs, &eventLog{})
	track, _ := b.Build([]igc.Fix{
		fixAt(0, 0, 0, 1000),
		fixAt(1, 0.001, 0.001, 1010),
		fixAt(2, 0.002, 0.002, 1020),
	})

	for i, pt := range track {
		if got := pt.Drefs["Hdg"]; got != pt.Heading {
			t.Fatalf("point %d Hdg = %v, want the smoothed heading %v", i, got, pt.Heading)
		}
	}
}

func TestBuild_ChannelReadsRawPitchEstimate(t *testing.T) {
	ts := defaultSettings()
	defs := []dref.Definition{
		{Instrument: "sim/test/rawpitch", Name: "RawPitch", Scale: "1.0", Expr: "{PitchEstimate}"},
		{Instrument: "sim/test/pitch", Name: "SmPitch", Scale: "1.0", Expr: "{Pitch}"},
	}
	b := NewBuilder(ts, defs, &eventLog{})
	track, _ := b.Build([]igc.Fix{
		fixAt(0, 0, 0, 1000),
		fixAt(1, 0, 0.001, 1100),
	})

	if len(track) != 2 {
		t.Fatalf("len(track) = %d, want 2", len(track))
	}
	pt := track[1]
	raw, smoothed := pt.Drefs["RawPitch"], pt.Drefs["SmPitch"]
	if smoothed != pt.Pitch {
		t.Fatalf("SmPitch = %v, want the point's smoothed pitch %v", smoothed, pt.Pitch)
	}
	if raw <= smoothed {
		t.Fatalf("RawPitch = %v, want above the smoothed %v on the first climb sample", raw, smoothed)
	}
	want := geo.Round(geo.Round(raw, 3)*ts.PitchFactor*(1-smoothingWeight), 3)
	if pt.Pitch != want {
		t.Fatalf("smoothed pitch %v does not derive from the raw estimate %v", pt.Pitch, raw)
	}
}
