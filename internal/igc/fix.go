package igc

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/jlgabriel/IGC2FDR/internal/geo"
)

// MinRecordLen is the shortest B record that still carries time, position,
// and altitude fields.
const MinRecordLen = 35

// Fix is one decoded B record: a timestamped position with GPS altitude
// converted to feet. AltDefaulted marks a record whose altitude digits could
// not be read; the position is still usable at altitude zero.
type Fix struct {
	Time         time.Time
	Lat          float64
	Lon          float64
	AltFeet      float64
	AltDefaulted bool
}

// IsPositionRecord reports whether line is a B record long enough to decode.
func IsPositionRecord(line string) bool {
	return len(line) >= MinRecordLen && line[0] == 'B'
}

// ParseFix decodes one B record. Fixed offsets:
//
//	[1:7]   time HHMMSS
//	[7:15]  latitude DDMMmmm + N/S
//	[15:24] longitude DDDMMmmm + E/W
//	[24:]   'A' marker, then pressure and GPS altitude, five digits each
//
// The time of day is combined with date and shifted by tzOffset seconds.
// GPS altitude is preferred; pressure altitude stands in when the GPS field
// is absent or unreadable.
func ParseFix(line string, date Date, tzOffset int) (Fix, error) {
	var fix Fix
	if !IsPositionRecord(line) {
		return fix, fmt.Errorf("not a position record: %q", line)
	}

	hour, ok1 := parseInt(line[1:3])
	minute, ok2 := parseInt(line[3:5])
	second, ok3 := parseInt(line[5:7])
	if !ok1 || !ok2 || !ok3 || hour > 23 || minute > 59 || second > 59 {
		return fix, fmt.Errorf("bad time field %q", line[1:7])
	}

	lat, ok := parseLatitude(line)
	if !ok {
		return fix, fmt.Errorf("bad latitude field %q", line[7:15])
	}
	lon, ok := parseLongitude(line)
	if !ok {
		return fix, fmt.Errorf("bad longitude field %q", line[15:24])
	}

	altMeters, defaulted, err := parseAltitude(line)
	if err != nil {
		return fix, err
	}

	t := time.Date(date.Year, time.Month(date.Month), date.Day, hour, minute, second, 0, time.UTC)
	fix.Time = t.Add(time.Duration(tzOffset) * time.Second)
	fix.Lat = geo.Round(lat, 9)
	fix.Lon = geo.Round(lon, 9)
	fix.AltFeet = geo.Round(altMeters*geo.FeetPerMeter, 4)
	fix.AltDefaulted = defaulted
	return fix, nil
}

func parseLatitude(line string) (float64, bool) {
	deg, ok1 := parseInt(line[7:9])
	min, ok2 := parseInt(line[9:11])
	frac, ok3 := parseInt(line[11:14])
	if !ok1 || !ok2 || !ok3 {
		return 0, false
	}
	lat := float64(deg) + (float64(min)+float64(frac)/1000)/60.0
	if line[14] == 'S' {
		lat = -lat
	}
	return lat, true
}

func parseLongitude(line string) (float64, bool) {
	deg, ok1 := parseInt(line[15:18])
	min, ok2 := parseInt(line[18:20])
	frac, ok3 := parseInt(line[20:23])
	if !ok1 || !ok2 || !ok3 {
		return 0, false
	}
	lon := float64(deg) + (float64(min)+float64(frac)/1000)/60.0
	if line[23] == 'W' {
		lon = -lon
	}
	return lon, true
}

// parseAltitude returns GPS altitude in meters. A record whose altitude
// block is entirely unreadable at the legacy offsets still decodes, at zero
// altitude with defaulted set; an unreadable pressure field after an 'A'
// marker rejects the record.
func parseAltitude(line string) (alt float64, defaulted bool, err error) {
	if a := strings.IndexByte(line[23:], 'A'); a >= 0 {
		p := 23 + a
		pressure, ok := parseInt(clip(line, p+1, p+6))
		if !ok {
			return 0, false, fmt.Errorf("bad pressure altitude field in %q", line)
		}
		gps := pressure
		if len(line) >= p+11 {
			if v, ok := parseInt(line[p+6 : p+11]); ok {
				gps = v
			}
		}
		return float64(gps), false, nil
	}

	// Legacy fixed offsets without the marker.
	pressure, ok := parseInt(line[25:30])
	if !ok {
		return 0, true, nil
	}
	gps := pressure
	if len(line) >= 36 {
		if v, ok := parseInt(line[30:35]); ok {
			gps = v
		}
	}
	return float64(gps), false, nil
}

func parseInt(s string) (int, bool) {
	v, err := strconv.Atoi(strings.TrimSpace(s))
	if err != nil {
		return 0, false
	}
	return v, true
}

func clip(s string, from, to int) string {
	if from > len(s) {
		from = len(s)
	}
	if to > len(s) {
		to = len(s)
	}
	return s[from:to]
}
