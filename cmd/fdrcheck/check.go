package main

import (
	"encoding/csv"
	"fmt"
	"math"
	"os"
	"sort"
	"strconv"

	"github.com/jlgabriel/IGC2FDR/internal/fdr"
)

// Detection thresholds tuned for glider tracks.
const (
	defaultMaxHeadingRate = 45.0  // degrees per second
	defaultMaxSpeedRate   = 30.0  // knots per second
	maxTimeGap            = 2.0   // seconds
	maxRealisticSpeed     = 200.0 // knots
	maxPitch              = 45.0  // degrees
	maxRoll               = 60.0  // degrees
	maxPositionStep       = 0.01  // degrees of lat/lon displacement per step
)

const maxShownPerKind = 5

type trackIssue struct {
	Kind   string
	Detail string
	Line   int
}

type checker struct {
	maxHeadingRate float64
	maxSpeedRate   float64
	issues         []trackIssue
}

func (c *checker) add(kind, detail string, line int) {
	c.issues = append(c.issues, trackIssue{Kind: kind, Detail: detail, Line: line})
}

// checkTrack runs every detector over the rows. The result is grouped by
// detector, each group in row order.
func (c *checker) checkTrack(rows []fdr.TrackRow) []trackIssue {
	c.checkTime(rows)
	c.checkHeading(rows)
	c.checkSpeed(rows)
	c.checkAttitude(rows)
	c.checkPosition(rows)
	return c.issues
}

// timeDiff returns elapsed seconds between adjacent rows. Rows carry only a
// time of day, so a clock whose whole seconds decrease is taken as a
// midnight rollover; an equal or fractionally earlier clock comes back
// zero or negative.
func timeDiff(prev, cur fdr.TrackRow) float64 {
	d := cur.Seconds - prev.Seconds
	if math.Floor(cur.Seconds) < math.Floor(prev.Seconds) {
		d += 24 * 3600
	}
	return d
}

func (c *checker) checkTime(rows []fdr.TrackRow) {
	for i := 1; i < len(rows); i++ {
		prev, cur := rows[i-1], rows[i]
		dt := timeDiff(prev, cur)
		if dt > maxTimeGap {
			c.add("TIME_GAP", fmt.Sprintf("%s -> %s (%.1f s)", prev.Clock, cur.Clock, dt), cur.Line)
		} else if dt <= 0 {
			c.add("TIME_BACKWARDS", fmt.Sprintf("clock repeats or reverses: %s -> %s", prev.Clock, cur.Clock), cur.Line)
		}
	}
}

func (c *checker) checkHeading(rows []fdr.TrackRow) {
	for i := 1; i < len(rows); i++ {
		prev, cur := rows[i-1], rows[i]
		diff := math.Abs(cur.Heading - prev.Heading)
		if diff > 180 {
			diff = 360 - diff
		}
		dt := timeDiff(prev, cur)
		if dt <= 0 {
			continue
		}
		if rate := diff / dt; rate > c.maxHeadingRate {
			c.add("HEADING_DISCONTINUITY",
				fmt.Sprintf("%.1f -> %.1f (%.1f deg in %.1f s = %.1f deg/s)",
					prev.Heading, cur.Heading, diff, dt, rate),
				cur.Line)
		}
	}
}

func (c *checker) checkSpeed(rows []fdr.TrackRow) {
	for i, cur := range rows {
		sp := rowSpeed(cur)
		if sp < 0 || sp > maxRealisticSpeed {
			c.add("UNREALISTIC_SPEED", fmt.Sprintf("%.1f kt", sp), cur.Line)
		}
		if i == 0 {
			continue
		}
		prev := rows[i-1]
		dt := timeDiff(prev, cur)
		if dt <= 0 {
			continue
		}
		diff := math.Abs(sp - rowSpeed(prev))
		if rate := diff / dt; rate > c.maxSpeedRate {
			c.add("SPEED_DISCONTINUITY",
				fmt.Sprintf("%.1f -> %.1f kt (%.1f kt in %.1f s = %.1f kt/s)",
					rowSpeed(prev), sp, diff, dt, rate),
				cur.Line)
		}
	}
}

func (c *checker) checkAttitude(rows []fdr.TrackRow) {
	for _, r := range rows {
		if math.Abs(r.Pitch) > maxPitch {
			c.add("EXTREME_PITCH", fmt.Sprintf("%.1f deg", r.Pitch), r.Line)
		}
		if math.Abs(r.Roll) > maxRoll {
			c.add("EXTREME_ROLL", fmt.Sprintf("%.1f deg", r.Roll), r.Line)
		}
	}
}

func (c *checker) checkPosition(rows []fdr.TrackRow) {
	for i := 1; i < len(rows); i++ {
		prev, cur := rows[i-1], rows[i]
		step := math.Hypot(cur.Lat-prev.Lat, cur.Lon-prev.Lon)
		if dt := timeDiff(prev, cur); dt > 0 && step > maxPositionStep {
			c.add("POSITION_JUMP", fmt.Sprintf("%.6f deg in %.1f s", step, dt), cur.Line)
		}
	}
}

// rowSpeed reads the first extra column; the converter always emits the
// ground-speed channel there. Rows without extra columns read as zero.
func rowSpeed(r fdr.TrackRow) float64 {
	if len(r.Extra) == 0 {
		return 0
	}
	return r.Extra[0]
}

type trackStats struct {
	Points        int
	Start, End    string
	HeadingMin    float64
	HeadingMax    float64
	HeadingStdev  float64
	SpeedMin      float64
	SpeedMax      float64
	SpeedMean     float64
	MovingSamples int
	AltMin        float64
	AltMax        float64
	PitchMin      float64
	PitchMax      float64
	RollMin       float64
	RollMax       float64
}

// summarizeTrack collects flight-level statistics. Speed figures cover only
// samples above zero so time parked on the ground does not drag the mean.
func summarizeTrack(rows []fdr.TrackRow) trackStats {
	s := trackStats{Points: len(rows)}
	if len(rows) == 0 {
		return s
	}
	s.Start, s.End = rows[0].Clock, rows[len(rows)-1].Clock

	s.HeadingMin, s.HeadingMax = rows[0].Heading, rows[0].Heading
	s.AltMin, s.AltMax = rows[0].AltFeet, rows[0].AltFeet
	s.PitchMin, s.PitchMax = rows[0].Pitch, rows[0].Pitch
	s.RollMin, s.RollMax = rows[0].Roll, rows[0].Roll

	var headingSum, speedSum float64
	for _, r := range rows {
		s.HeadingMin = math.Min(s.HeadingMin, r.Heading)
		s.HeadingMax = math.Max(s.HeadingMax, r.Heading)
		headingSum += r.Heading
		s.AltMin = math.Min(s.AltMin, r.AltFeet)
		s.AltMax = math.Max(s.AltMax, r.AltFeet)
		s.PitchMin = math.Min(s.PitchMin, r.Pitch)
		s.PitchMax = math.Max(s.PitchMax, r.Pitch)
		s.RollMin = math.Min(s.RollMin, r.Roll)
		s.RollMax = math.Max(s.RollMax, r.Roll)

		if sp := rowSpeed(r); sp > 0 {
			if s.MovingSamples == 0 || sp < s.SpeedMin {
				s.SpeedMin = sp
			}
			if s.MovingSamples == 0 || sp > s.SpeedMax {
				s.SpeedMax = sp
			}
			speedSum += sp
			s.MovingSamples++
		}
	}
	if s.MovingSamples > 0 {
		s.SpeedMean = speedSum / float64(s.MovingSamples)
	}

	if len(rows) > 1 {
		mean := headingSum / float64(len(rows))
		var sq float64
		for _, r := range rows {
			d := r.Heading - mean
			sq += d * d
		}
		s.HeadingStdev = math.Sqrt(sq / float64(len(rows)-1))
	}
	return s
}

func printReport(path string, s trackStats, issues []trackIssue) {
	fmt.Printf("path: %s\n", path)
	fmt.Printf("points: %d\n", s.Points)
	fmt.Printf("time_span: %s -> %s\n", s.Start, s.End)
	fmt.Printf("heading_deg: %.1f to %.1f (std dev %.1f)\n", s.HeadingMin, s.HeadingMax, s.HeadingStdev)
	if s.MovingSamples > 0 {
		fmt.Printf("speed_kt: %.1f to %.1f (mean %.1f over %d moving samples)\n",
			s.SpeedMin, s.SpeedMax, s.SpeedMean, s.MovingSamples)
	}
	fmt.Printf("altitude_ft: %.0f to %.0f (gain %.0f)\n", s.AltMin, s.AltMax, s.AltMax-s.AltMin)
	fmt.Printf("pitch_deg: %.1f to %.1f\n", s.PitchMin, s.PitchMax)
	fmt.Printf("roll_deg: %.1f to %.1f\n", s.RollMin, s.RollMax)

	fmt.Printf("issues: %d\n", len(issues))
	byKind := map[string][]trackIssue{}
	for _, is := range issues {
		byKind[is.Kind] = append(byKind[is.Kind], is)
	}
	kinds := make([]string, 0, len(byKind))
	for k := range byKind {
		kinds = append(kinds, k)
	}
	sort.Strings(kinds)
	for _, k := range kinds {
		group := byKind[k]
		fmt.Printf("  %s: %d\n", k, len(group))
		for i, is := range group {
			if i == maxShownPerKind {
				fmt.Printf("    ... and %d more\n", len(group)-maxShownPerKind)
				break
			}
			fmt.Printf("    line %d: %s\n", is.Line, is.Detail)
		}
	}
}

func exportIssuesCSV(path string, issues []trackIssue) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	w := csv.NewWriter(f)
	w.Write([]string{"Issue Type", "Description", "Line Number"})
	for _, is := range issues {
		w.Write([]string{is.Kind, is.Detail, strconv.Itoa(is.Line)})
	}
	w.Flush()
	if err := w.Error(); err != nil {
		f.Close()
		return err
	}
	return f.Close()
}
