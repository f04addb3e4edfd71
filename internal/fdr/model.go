package fdr

import "time"

// TrackPoint is one output sample. Attitude is already normalized when a
// point reaches this package: heading in [0,360), pitch and roll in
// (-180,180].
type TrackPoint struct {
	Time    time.Time
	Lon     float64
	Lat     float64
	AltFeet float64
	Heading float64
	Pitch   float64
	Roll    float64
	Drefs   map[string]float64
}

// Metadata collects header-derived facts about a flight plus the track
// bounds filled in once the track is built.
type Metadata struct {
	Pilot        string
	TailNumber   string
	DeviceModel  string
	GPSSource    string
	Origin       string
	Destination  string
	Waypoints    string
	ImportedFrom string

	StartTime     time.Time
	StartLat      float64
	StartLon      float64
	EndTime       time.Time
	EndLat        float64
	EndLon        float64
	Duration      time.Duration
	DistanceMiles float64
}

// Flight is one converted flight, ready for the writer.
type Flight struct {
	Aircraft        string
	Tail            string
	Date            time.Time
	TimezoneSeconds int
	Meta            Metadata
	Track           []TrackPoint
	Summary         string
}
