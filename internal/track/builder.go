package track

import (
	"math"
	"sort"
	"time"

	"github.com/jlgabriel/IGC2FDR/internal/config"
	"github.com/jlgabriel/IGC2FDR/internal/dref"
	"github.com/jlgabriel/IGC2FDR/internal/fdr"
	"github.com/jlgabriel/IGC2FDR/internal/geo"
	"github.com/jlgabriel/IGC2FDR/internal/igc"
)

// Gap thresholds in seconds. A delta above gapFillMin means samples are
// missing; above gapFillMax the recorder was off long enough that
// interpolating across the hole would fabricate a flight path, so the gap
// is left as-is.
const (
	gapFillMin = 1.5
	gapFillMax = 10.0
)

type channel struct {
	name string
	prog *dref.Program
}

// Builder turns decoded fixes into a second-continuous track with estimated
// attitude and evaluated derived channels. Attitude estimation is strictly
// sequential, so a Builder serves one flight at a time.
type Builder struct {
	settings config.TailSettings
	channels []channel
	events   Events

	track []fdr.TrackPoint
	miles float64
	prev  *fdr.TrackPoint
}

// NewBuilder compiles the channel definitions up front. A definition that
// fails to compile is reported once and its channel emits zero for every
// point.
func NewBuilder(settings config.TailSettings, defs []dref.Definition, events Events) *Builder {
	if events == nil {
		events = NopEvents{}
	}
	b := &Builder{settings: settings, events: events}
	for _, d := range defs {
		name := d.ColumnName()
		prog, err := dref.Compile(d.Expr)
		if err != nil {
			b.events.DrefFailed(time.Time{}, name, err)
			b.channels = append(b.channels, channel{name: name})
			continue
		}
		b.channels = append(b.channels, channel{name: name, prog: prog})
	}
	return b
}

// Build processes fixes in timestamp order and returns the finished track
// together with the total distance flown in statute miles. Fixes sharing
// the same second collapse to the candidate nearest the previous accepted
// point; gaps up to gapFillMax seconds are filled with interpolated points.
func (b *Builder) Build(fixes []igc.Fix) ([]fdr.TrackPoint, float64) {
	b.track, b.miles, b.prev = nil, 0, nil

	groups := make(map[int64][]fdr.TrackPoint)
	keys := make([]int64, 0, len(fixes))
	for _, fx := range fixes {
		key := fx.Time.Unix()
		if _, ok := groups[key]; !ok {
			keys = append(keys, key)
		}
		groups[key] = append(groups[key], fdr.TrackPoint{
			Time:    fx.Time,
			Lat:     fx.Lat,
			Lon:     fx.Lon,
			AltFeet: fx.AltFeet,
			Drefs:   make(map[string]float64),
		})
	}
	sort.Slice(keys, func(i, j int) bool { return keys[i] < keys[j] })

	for _, key := range keys {
		cands := groups[key]
		pt := cands[0]
		if len(cands) > 1 {
			pt = nearestCandidate(cands, b.prev)
			b.events.DuplicateResolved(pt.Time, len(cands))
		}

		var k Kinematics
		if b.prev != nil {
			dt := pt.Time.Sub(b.prev.Time).Seconds()
			if dt > gapFillMin {
				// The far point needs its attitude estimated before the
				// fill has an interpolation target.
				estimateKinematics(&pt, b.prev, dt)
				if dt > gapFillMax {
					b.events.GapSkipped(b.prev.Time, pt.Time, dt)
				} else {
					b.fillGap(&pt, dt)
				}
				dt = pt.Time.Sub(b.prev.Time).Seconds()
			}
			if dt > 0 {
				k = estimateKinematics(&pt, b.prev, dt)
			} else {
				pt.Heading, pt.Pitch, pt.Roll = b.prev.Heading, b.prev.Pitch, b.prev.Roll
			}
		}
		b.commit(pt, k)
	}
	return b.track, b.miles
}

// commit finishes one point: smoothing, trim, channel evaluation, distance
// accounting, append. b.prev is refreshed from the slice because append may
// have moved it.
func (b *Builder) commit(pt fdr.TrackPoint, k Kinematics) {
	applySmoothing(&pt, b.prev, b.settings)
	preTrim, jump := applyTrim(&pt, b.settings)
	if jump {
		b.events.TrimDiscontinuity(pt.Time, preTrim, pt.Heading)
	}
	b.evaluate(&pt, k)

	if b.prev != nil {
		b.miles += geo.Distance(b.prev.Lat, b.prev.Lon, pt.Lat, pt.Lon) * geo.MilesPerMeter
	}
	b.track = append(b.track, pt)
	b.prev = &b.track[len(b.track)-1]
}

// fillGap synthesizes one point per whole missing second between b.prev and
// far, walking position and altitude linearly. Each synthetic point runs
// through the full estimate/smooth/trim pipeline against its true
// predecessor; only the heading keeps the interpolated value, since the
// bearing between lerped positions repeats the end-to-end course instead of
// turning through it.
func (b *Builder) fillGap(far *fdr.TrackPoint, dt float64) {
	start := *b.prev
	if far.Heading == 0 {
		far.Heading = geo.InitialBearing(start.Lat, start.Lon, far.Lat, far.Lon, 0, false)
	}

	gap := int(dt)
	n := 0
	for i := 1; i < gap; i++ {
		frac := float64(i) / float64(gap)
		gp := fdr.TrackPoint{
			Time:    start.Time.Add(time.Duration(i) * time.Second),
			Lat:     geo.Lerp(start.Lat, far.Lat, frac),
			Lon:     geo.Lerp(start.Lon, far.Lon, frac),
			AltFeet: geo.Lerp(start.AltFeet, far.AltFeet, frac),
			Pitch:   geo.Lerp(start.Pitch, far.Pitch, frac),
			Roll:    geo.Lerp(start.Roll, far.Roll, frac),
			Drefs:   make(map[string]float64),
		}
		heading := geo.InterpolateHeading(start.Heading, far.Heading, frac)

		var k Kinematics
		if gdt := gp.Time.Sub(b.prev.Time).Seconds(); gdt > 0 {
			k = estimateKinematics(&gp, b.prev, gdt)
		}
		gp.Heading = heading
		b.commit(gp, k)
		n++
	}
	if n > 0 {
		b.events.GapFilled(start.Time, far.Time, n)
	}
}

func (b *Builder) evaluate(pt *fdr.TrackPoint, k Kinematics) {
	if len(b.channels) == 0 {
		return
	}
	vars := make(dref.Vars, 13)
	vars.Set("Speed", k.Speed)
	vars.Set("Course", k.Course)
	vars.Set("VerticalSpeed", k.VerticalSpeed)
	// The smoothed point value owns the Pitch name, so the raw estimate
	// carries its own.
	vars.Set("PitchEstimate", k.Pitch)
	vars.Set("Bank", k.Bank)
	vars.Set("Timestamp", float64(pt.Time.Unix()))
	vars.Set("Latitude", pt.Lat)
	vars.Set("Longitude", pt.Lon)
	vars.Set("Altitude", pt.AltFeet)
	vars.Set("AltMSL", pt.AltFeet)
	vars.Set("Heading", pt.Heading)
	vars.Set("Pitch", pt.Pitch)
	vars.Set("Roll", pt.Roll)

	for _, ch := range b.channels {
		v := 0.0
		if ch.prog != nil {
			var err error
			v, err = ch.prog.Eval(vars)
			if err != nil {
				b.events.DrefFailed(pt.Time, ch.name, err)
				v = 0
			}
		}
		pt.Drefs[ch.name] = v
	}
}

func nearestCandidate(cands []fdr.TrackPoint, prev *fdr.TrackPoint) fdr.TrackPoint {
	if prev == nil {
		return cands[0]
	}
	best := cands[0]
	bestDist := math.Inf(1)
	for _, c := range cands {
		if d := geo.Distance(prev.Lat, prev.Lon, c.Lat, c.Lon); d < bestDist {
			best, bestDist = c, d
		}
	}
	return best
}
