package track

import (
	"math"

	"github.com/jlgabriel/IGC2FDR/internal/config"
	"github.com/jlgabriel/IGC2FDR/internal/fdr"
	"github.com/jlgabriel/IGC2FDR/internal/geo"
)

// smoothingWeight is the exponential blend weight given to the previous
// point's attitude.
const smoothingWeight = 0.3

// Kinematics holds the raw per-point motion estimates derived from
// positional change, before any smoothing. These feed the derived-channel
// variable space, so they keep full precision where the point itself
// stores rounded values.
type Kinematics struct {
	Speed         float64 // knots
	Course        float64 // degrees true
	VerticalSpeed float64 // feet per minute
	Pitch         float64 // degrees
	Bank          float64 // degrees, right turn positive
}

// estimateKinematics derives speed, course, vertical speed, pitch and bank
// for cur from its change relative to prev over dt seconds. It assigns
// heading, pitch and roll on cur as a side effect. dt <= 0 leaves cur
// untouched and returns zeros.
func estimateKinematics(cur, prev *fdr.TrackPoint, dt float64) Kinematics {
	var k Kinematics
	if dt <= 0 {
		return k
	}

	dist := geo.Distance(prev.Lat, prev.Lon, cur.Lat, cur.Lon)
	speedKt := dist / dt * geo.KnotsPerMPS
	k.Speed = geo.Round(speedKt, 2)

	bearing := geo.InitialBearing(prev.Lat, prev.Lon, cur.Lat, cur.Lon, prev.Heading, true)
	cur.Heading = geo.Round(bearing, 3)
	k.Course = bearing

	altChange := cur.AltFeet - prev.AltFeet
	k.VerticalSpeed = geo.Round(altChange/dt*60, 2)

	if dist > 0 {
		pitch := math.Atan2(altChange, dist*geo.FeetPerMeter) * 180 / math.Pi
		cur.Pitch = geo.Round(pitch, 3)
		k.Pitch = pitch
	}

	headingChange := math.Abs(cur.Heading - prev.Heading)
	if headingChange > 180 {
		headingChange = 360 - headingChange
	}
	if headingChange > 0 {
		turnRate := headingChange / dt
		speedMS := speedKt * geo.MPSPerKnot
		roll := math.Atan2(speedMS*turnRate*math.Pi/180, geo.Gravity) * 180 / math.Pi
		// Heading increasing modulo 360 is a right turn; going the long
		// way around means a left turn, so the bank flips sign.
		if d := math.Mod(cur.Heading-prev.Heading+360, 360); d > 180 {
			roll = -roll
		}
		cur.Roll = geo.Round(roll, 3)
		k.Bank = roll
	}
	return k
}

// applySmoothing damps the raw pitch and roll estimates and, when a
// previous point exists, blends all three attitude angles toward it along
// the shortest heading arc. A heading that is still zero afterwards falls
// back to the previous point's heading.
func applySmoothing(cur, prev *fdr.TrackPoint, ts config.TailSettings) {
	cur.Roll *= ts.RollFactor
	cur.Pitch *= ts.PitchFactor

	if prev == nil {
		return
	}

	diff := cur.Heading - prev.Heading
	if diff > 180 {
		diff -= 360
	} else if diff < -180 {
		diff += 360
	}
	h := prev.Heading + diff*(1-smoothingWeight)
	if h < 0 {
		h += 360
	} else if h >= 360 {
		h -= 360
	}
	cur.Heading = h
	cur.Pitch = prev.Pitch*smoothingWeight + cur.Pitch*(1-smoothingWeight)
	cur.Roll = prev.Roll*smoothingWeight + cur.Roll*(1-smoothingWeight)

	if cur.Heading == 0 && prev.Heading != 0 {
		cur.Heading = prev.Heading
	}
}

// applyTrim adds the configured trim offsets and renormalizes: heading into
// [0,360), pitch and roll into (-180,180], all rounded to three places. It
// returns the pre-trim heading and whether the trimmed heading ended up more
// than 45 degrees away from it.
func applyTrim(cur *fdr.TrackPoint, ts config.TailSettings) (preTrim float64, discontinuity bool) {
	preTrim = cur.Heading
	cur.Heading = geo.Round(geo.WrapHeading(cur.Heading+ts.HeadingTrim), 3)
	cur.Pitch = geo.Round(geo.WrapAttitude(cur.Pitch+ts.PitchTrim), 3)
	cur.Roll = geo.Round(geo.WrapAttitude(cur.Roll+ts.RollTrim), 3)

	if preTrim > 0 {
		change := math.Abs(cur.Heading - preTrim)
		if change > 180 {
			change = 360 - change
		}
		discontinuity = change > 45
	}
	return preTrim, discontinuity
}
