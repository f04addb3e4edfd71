package track

import "time"

// Events receives notifications about conditions encountered while building
// a track. Implementations decide what to surface; the pipeline never stops
// for any of these.
type Events interface {
	// RecordSkipped reports a position record that could not be decoded.
	// line is 1-based within the input file.
	RecordSkipped(line int, reason string)

	// AltitudeDefaulted reports a record whose altitude digits were
	// unreadable and decoded as zero altitude.
	AltitudeDefaulted(line int)

	// HeaderDateFallback reports a header date that was present but
	// unusable, causing the flight date to fall back to the current day.
	HeaderDateFallback(raw string)

	// DuplicateResolved reports that several records shared the same
	// second and one was chosen.
	DuplicateResolved(at time.Time, candidates int)

	// GapFilled reports synthetic points inserted between two real ones.
	GapFilled(from, to time.Time, synthesized int)

	// GapSkipped reports a gap too long to fill.
	GapSkipped(from, to time.Time, gapSeconds float64)

	// TrimDiscontinuity reports a heading that jumped across the wrap
	// boundary when trim was applied.
	TrimDiscontinuity(at time.Time, before, after float64)

	// DrefFailed reports a derived channel whose expression could not be
	// compiled or evaluated. A compile failure is reported once with a
	// zero time; evaluation failures carry the point's timestamp.
	DrefFailed(at time.Time, channel string, err error)
}

// NopEvents discards all notifications.
type NopEvents struct{}

func (NopEvents) RecordSkipped(int, string)                     {}
func (NopEvents) AltitudeDefaulted(int)                         {}
func (NopEvents) HeaderDateFallback(string)                     {}
func (NopEvents) DuplicateResolved(time.Time, int)              {}
func (NopEvents) GapFilled(time.Time, time.Time, int)           {}
func (NopEvents) GapSkipped(time.Time, time.Time, float64)      {}
func (NopEvents) TrimDiscontinuity(time.Time, float64, float64) {}
func (NopEvents) DrefFailed(time.Time, string, error)           {}
