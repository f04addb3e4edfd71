package igc

import (
	"strings"
	"time"
)

// Header field codes occupy the four characters after the 'H' record letter.
const (
	headerPilot      = "FPLT"
	headerGliderType = "FGTY"
	headerGliderID   = "FGID"
	headerGPS        = "FDOP"
	headerSite       = "FSIT"
	headerDate       = "FDTE"
)

// DefaultStripPrefixes are the value prefixes some loggers prepend to
// pilot/glider header values.
var DefaultStripPrefixes = []string{"GLIDERID:", "PILOT:", "GLIDERTYPE:"}

// Headers accumulates the flight metadata carried by H records.
type Headers struct {
	Pilot      string
	GliderType string
	GliderID   string
	GPSSource  string
	Site       string

	// Date is valid only when DateOK is set; RawDate keeps the field that
	// failed to parse so the caller can report it.
	Date    Date
	DateOK  bool
	RawDate string
}

// Date is a calendar date without a time of day.
type Date struct {
	Year  int
	Month int
	Day   int
}

// Apply folds one H record into h and reports whether the line carried a
// recognized field. Unknown field codes and non-header lines are ignored.
func (h *Headers) Apply(line string, stripPrefixes []string) bool {
	if len(line) < 5 || line[0] != 'H' {
		return false
	}
	value := strings.TrimSpace(line[5:])

	switch line[1:5] {
	case headerPilot:
		h.Pilot = StripPrefix(value, stripPrefixes)
	case headerGliderType:
		h.GliderType = StripPrefix(value, stripPrefixes)
	case headerGliderID:
		h.GliderID = StripPrefix(value, stripPrefixes)
	case headerGPS:
		h.GPSSource = "IGC Flight Logger (DOP=" + value + ")"
	case headerSite:
		h.Site = value
	case headerDate:
		// DDMMYY, two-digit year in the 2000s.
		if len(line) < 12 {
			return false
		}
		day, ok1 := parseInt(line[5:7])
		month, ok2 := parseInt(line[7:9])
		year, ok3 := parseInt(line[9:11])
		if !ok1 || !ok2 || !ok3 || !validDate(2000+year, month, day) {
			h.RawDate = value
			return true
		}
		h.Date = Date{Year: 2000 + year, Month: month, Day: day}
		h.DateOK = true
	default:
		return false
	}
	return true
}

// StripPrefix removes the first matching prefix from a header value.
func StripPrefix(s string, prefixes []string) string {
	for _, p := range prefixes {
		if strings.HasPrefix(s, p) {
			return s[len(p):]
		}
	}
	return s
}

// validDate rejects dates like February 31 that time.Date would silently
// normalize into the next month.
func validDate(year, month, day int) bool {
	if month < 1 || month > 12 || day < 1 {
		return false
	}
	t := time.Date(year, time.Month(month), day, 0, 0, 0, 0, time.UTC)
	return t.Day() == day && int(t.Month()) == month
}
