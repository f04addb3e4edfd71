package fdr

import (
	"bufio"
	"fmt"
	"io"
	"strconv"
	"strings"
	"time"

	"github.com/jlgabriel/IGC2FDR/internal/dref"
)

// FDR v4 layout, top to bottom:
//
//   - "A" then "4" (format marker and version)
//   - COMM comment blocks: generation stamp, provenance, timezone note,
//     flight summary, field notes
//   - ACFT, TAIL, DATE fields
//   - DREF lines declaring the extra channels beyond the 7th column
//   - two COMM column-header lines
//   - one line per track point, every numeric right-justified to 19 columns
//   - a blank trailing line
const (
	commentIntro    = "This X-Plane compatible FDR file was converted from an IGC track file using igc2fdr"
	commentBasedOn  = "Based on 42fdr.py (https://github.com/MadReasonable/42fdr)"
	commentNoOffset = "All timestamps below this line are in the same timezone as the original file."
	commentFields   = "Fields below define general data for this flight."
	commentAttitude = "Only position data is available from IGC files, attitude (heading/pitch/roll) is estimated."
	commentDrefs    = "DREFs below (if any) define additional columns beyond the 7th (Roll)"
	commentDrefsTwo = "in the flight track data that follows."
	commentTrack    = "The remainder of this file consists of GPS track points with estimated attitude."
)

const columnHeaders = `COMM,                        degrees,             degrees,              ft msl,                 deg,                 deg,                 deg
COMM,                      Longitude,            Latitude,              AltMSL,             Heading,               Pitch,                Roll`

type Writer struct {
	w   *bufio.Writer
	now func() time.Time
}

func NewWriter(w io.Writer) *Writer {
	return &Writer{w: bufio.NewWriter(w), now: time.Now}
}

// Write serializes one flight. The dref definitions control both the DREF
// declaration lines and the extra value columns, in order. bufio retains
// the first write error, so the Flush result covers the whole file.
func (w *Writer) Write(f *Flight, drefs []dref.Definition) error {
	w.w.WriteString("A\n4\n\n")
	w.comment("Generated on [" + w.now().UTC().Format("2006/01/02 15:04:05") + "Z]")
	w.comment(commentIntro)
	w.comment(commentBasedOn)
	w.w.WriteByte('\n')
	w.comment(timezoneExplanation(f.TimezoneSeconds))
	w.w.WriteByte('\n')
	w.comment(f.Summary)
	w.w.WriteString("\n\n")
	w.comment(commentFields)
	w.comment(commentAttitude)
	w.w.WriteByte('\n')

	fmt.Fprintf(w.w, "ACFT, %s\n", f.Aircraft)
	fmt.Fprintf(w.w, "TAIL, %s\n", f.Tail)
	fmt.Fprintf(w.w, "DATE, %s\n", f.Date.Format("01/02/2006"))
	w.w.WriteString("\n\n")

	w.comment(commentDrefs)
	w.comment(commentDrefsTwo)
	w.w.WriteByte('\n')
	for _, d := range drefs {
		fmt.Fprintf(w.w, "DREF, %s\n", d.HeaderLine())
	}
	w.w.WriteString("\n\n")

	w.comment(commentTrack)
	w.w.WriteByte('\n')
	w.w.WriteString(columnHeaders)
	for _, d := range drefs {
		fmt.Fprintf(w.w, ", %19s", d.ColumnName())
	}
	w.w.WriteByte('\n')

	for i := range f.Track {
		w.point(&f.Track[i], drefs)
	}
	w.w.WriteByte('\n')
	return w.w.Flush()
}

func (w *Writer) point(p *TrackPoint, drefs []dref.Definition) {
	fmt.Fprintf(w.w, "%s, %19s, %19s, %19s, %19s, %19s, %19s",
		p.Time.Format("15:04:05.000000"),
		num(p.Lon), num(p.Lat), num(p.AltFeet),
		num(p.Heading), num(p.Pitch), num(p.Roll))
	for _, d := range drefs {
		fmt.Fprintf(w.w, ", %19s", num(p.Drefs[d.ColumnName()]))
	}
	w.w.WriteByte('\n')
}

func (w *Writer) comment(text string) {
	for _, line := range strings.Split(text, "\n") {
		fmt.Fprintf(w.w, "COMM, %s\n", line)
	}
}

// timezoneExplanation spells out the offset already applied to the
// timestamps below it, in whole hours and minutes.
func timezoneExplanation(offset int) string {
	if offset == 0 {
		return commentNoOffset
	}
	total := offset
	if total < 0 {
		total = -total
	}
	hours, minutes := total/3600, total%3600/60
	direction := "added to"
	if offset < 0 {
		direction = "subtracted from"
	}
	var parts []string
	if hours > 0 {
		parts = append(parts, plural(hours, "hour"))
	}
	if minutes > 0 {
		parts = append(parts, plural(minutes, "minute"))
	}
	return fmt.Sprintf("All timestamps below this line have had %s %s their original values.",
		strings.Join(parts, " and "), direction)
}

func plural(n int, unit string) string {
	if n == 1 {
		return fmt.Sprintf("%d %s", n, unit)
	}
	return fmt.Sprintf("%d %ss", n, unit)
}

func num(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}
