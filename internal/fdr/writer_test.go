package fdr

import (
	"bytes"
	"fmt"
	"strings"
	"testing"
	"time"

	"github.com/jlgabriel/IGC2FDR/internal/dref"
)

func col(s string) string {
	return fmt.Sprintf(", %19s", s)
}

func TestWriter_Golden(t *testing.T) {
	date := time.Date(2025, time.May, 9, 0, 0, 0, 0, time.UTC)
	p1 := time.Date(2025, time.May, 9, 12, 14, 28, 0, time.UTC)
	f := &Flight{
		Aircraft:        "Aircraft/Gliders/ASK21.acf",
		Tail:            "CC-JUGA",
		Date:            date,
		TimezoneSeconds: 3600,
		Summary:         "CC-JUGA - 2025/05/09 (N/A)\n--------------------------",
		Track: []TrackPoint{
			{Time: p1, Lon: 8.5, Lat: -33.25, AltFeet: 1000.5, Heading: 90, Pitch: 1.5, Roll: -2.25,
				Drefs: map[string]float64{"GndSpd": 45.1234}},
			{Time: p1.Add(time.Second), Lon: 8.6, Lat: -33.26, AltFeet: 1001, Heading: 91.5, Pitch: 1, Roll: -2,
				Drefs: map[string]float64{"GndSpd": 46}},
		},
	}
	defs := []dref.Definition{dref.DefaultGroundSpeed}

	var buf bytes.Buffer
	w := NewWriter(&buf)
	w.now = func() time.Time {
		return time.Date(2026, time.August, 21, 10, 30, 0, 0, time.UTC)
	}
	if err := w.Write(f, defs); err != nil {
		t.Fatalf("Write() error: %v", err)
	}

	want := strings.Join([]string{
		"A",
		"4",
		"",
		"COMM, Generated on [2026/08/21 10:30:00Z]",
		"COMM, This X-Plane compatible FDR file was converted from an IGC track file using igc2fdr",
		"COMM, Based on 42fdr.py (https://github.com/MadReasonable/42fdr)",
		"",
		"COMM, All timestamps below this line have had 1 hour added to their original values.",
		"",
		"COMM, CC-JUGA - 2025/05/09 (N/A)",
		"COMM, --------------------------",
		"",
		"",
		"COMM, Fields below define general data for this flight.",
		"COMM, Only position data is available from IGC files, attitude (heading/pitch/roll) is estimated.",
		"",
		"ACFT, Aircraft/Gliders/ASK21.acf",
		"TAIL, CC-JUGA",
		"DATE, 05/09/2025",
		"",
		"",
		"COMM, DREFs below (if any) define additional columns beyond the 7th (Roll)",
		"COMM, in the flight track data that follows.",
		"",
		"DREF, sim/cockpit2/gauges/indicators/ground_speed_kt\t1.0\t\t// source: round({Speed}, 4)",
		"",
		"",
		"COMM, The remainder of this file consists of GPS track points with estimated attitude.",
		"",
		"COMM,                        degrees,             degrees,              ft msl,                 deg,                 deg,                 deg",
		"COMM,                      Longitude,            Latitude,              AltMSL,             Heading,               Pitch,                Roll" + col("GndSpd"),
		"12:14:28.000000" + col("8.5") + col("-33.25") + col("1000.5") + col("90") + col("1.5") + col("-2.25") + col("45.1234"),
		"12:14:29.000000" + col("8.6") + col("-33.26") + col("1001") + col("91.5") + col("1") + col("-2") + col("46"),
		"",
		"",
	}, "\n")

	got := buf.String()
	if got != want {
		gotLines := strings.Split(got, "\n")
		wantLines := strings.Split(want, "\n")
		n := len(gotLines)
		if len(wantLines) > n {
			n = len(wantLines)
		}
		for i := 0; i < n; i++ {
			var g, e string
			if i < len(gotLines) {
				g = gotLines[i]
			}
			if i < len(wantLines) {
				e = wantLines[i]
			}
			if g != e {
				t.Fatalf("line %d mismatch:\ngot  %q\nwant %q", i+1, g, e)
			}
		}
		t.Fatalf("line count mismatch: got %d want %d", len(gotLines), len(wantLines))
	}
}

func TestWriter_NoDrefs(t *testing.T) {
	p1 := time.Date(2025, time.May, 9, 12, 14, 28, 0, time.UTC)
	f := &Flight{
		Aircraft: "Aircraft/Gliders/ASK21.acf",
		Tail:     "CC-JUGA",
		Date:     p1,
		Summary:  "s",
		Track:    []TrackPoint{{Time: p1}},
	}

	var buf bytes.Buffer
	if err := NewWriter(&buf).Write(f, nil); err != nil {
		t.Fatalf("Write() error: %v", err)
	}
	out := buf.String()
	if strings.Contains(out, "DREF, ") {
		t.Fatalf("unexpected DREF line:\n%s", out)
	}
	if !strings.Contains(out, "COMM, All timestamps below this line are in the same timezone as the original file.\n") {
		t.Fatalf("missing no-offset timezone comment:\n%s", out)
	}
	wantLine := "12:14:28.000000" + col("0") + col("0") + col("0") + col("0") + col("0") + col("0")
	if !strings.Contains(out, wantLine+"\n") {
		t.Fatalf("missing track line %q:\n%s", wantLine, out)
	}
}

func TestTimezoneExplanation(t *testing.T) {
	cases := []struct {
		offset int
		want   string
	}{
		{0, "All timestamps below this line are in the same timezone as the original file."},
		{3600, "All timestamps below this line have had 1 hour added to their original values."},
		{7200, "All timestamps below this line have had 2 hours added to their original values."},
		{60, "All timestamps below this line have had 1 minute added to their original values."},
		{-5415, "All timestamps below this line have had 1 hour and 30 minutes subtracted from their original values."},
		{-12600, "All timestamps below this line have had 3 hours and 30 minutes subtracted from their original values."},
	}
	for _, c := range cases {
		if got := timezoneExplanation(c.offset); got != c.want {
			t.Fatalf("timezoneExplanation(%d)=%q want %q", c.offset, got, c.want)
		}
	}
}
