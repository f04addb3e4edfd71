package fdr

import (
	"bufio"
	"fmt"
	"io"
	"strconv"
	"strings"
)

// TrackRow is one data line read back from an FDR file. Seconds is the
// clock converted arithmetically (h*3600 + m*60 + s); rows do not carry a
// date, and out-of-range clock components pass through at face value.
type TrackRow struct {
	Line    int
	Clock   string
	Seconds float64
	Lon     float64
	Lat     float64
	AltFeet float64
	Heading float64
	Pitch   float64
	Roll    float64
	Extra   []float64
}

// BadRow is a recognized data line whose numeric fields failed to parse.
// The row is dropped from the track; the caller decides whether to surface
// it.
type BadRow struct {
	Line int
	Err  error
}

// ReadTrack parses the data section of an FDR file: lines whose first
// comma-separated field is an HH:MM:SS clock. The preamble, comments,
// declarations and column headers are skipped. A recognized data line with
// a malformed numeric field comes back as a BadRow rather than hiding the
// rest of the track behind an error.
func ReadTrack(r io.Reader) ([]TrackRow, []BadRow, error) {
	sc := bufio.NewScanner(r)
	sc.Buffer(make([]byte, 0, 64*1024), 1024*1024)

	var rows []TrackRow
	var bad []BadRow
	line := 0
	for sc.Scan() {
		line++
		text := strings.TrimSpace(sc.Text())
		if text == "" {
			continue
		}
		fields := strings.Split(text, ",")
		if len(fields) < 7 {
			continue
		}
		clock := strings.TrimSpace(fields[0])
		secs, ok := clockSeconds(clock)
		if !ok {
			continue
		}

		row, err := parseRow(line, clock, secs, fields)
		if err != nil {
			bad = append(bad, BadRow{Line: line, Err: err})
			continue
		}
		rows = append(rows, row)
	}
	if err := sc.Err(); err != nil {
		return nil, nil, err
	}
	return rows, bad, nil
}

func parseRow(line int, clock string, secs float64, fields []string) (TrackRow, error) {
	row := TrackRow{Line: line, Clock: clock, Seconds: secs}
	for i, p := range []*float64{&row.Lon, &row.Lat, &row.AltFeet, &row.Heading, &row.Pitch, &row.Roll} {
		v, err := parseField(fields[i+1])
		if err != nil {
			return TrackRow{}, err
		}
		*p = v
	}
	for _, f := range fields[7:] {
		v, err := parseField(f)
		if err != nil {
			return TrackRow{}, err
		}
		row.Extra = append(row.Extra, v)
	}
	return row, nil
}

func parseField(s string) (float64, error) {
	s = strings.TrimSpace(s)
	v, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 0, fmt.Errorf("bad numeric field %q", s)
	}
	return v, nil
}

// clockSeconds converts an h:m:s clock to seconds. Components are taken at
// face value: an out-of-range clock like 99:00:00 still converts, so its
// row is returned rather than silently dropped.
func clockSeconds(s string) (float64, bool) {
	parts := strings.Split(s, ":")
	if len(parts) != 3 {
		return 0, false
	}
	h, err1 := strconv.Atoi(parts[0])
	m, err2 := strconv.Atoi(parts[1])
	sec, err3 := strconv.ParseFloat(parts[2], 64)
	if err1 != nil || err2 != nil || err3 != nil {
		return 0, false
	}
	return float64(h*3600+m*60) + sec, true
}
