package igc

import (
	"bufio"
	"fmt"
	"io"
	"strings"
)

type FileType int

const (
	FileTypeUnknown FileType = iota
	FileTypeCSV
	FileTypeKML
	FileTypeGPX
	FileTypeIGC
)

func (t FileType) String() string {
	switch t {
	case FileTypeCSV:
		return "CSV"
	case FileTypeKML:
		return "KML"
	case FileTypeGPX:
		return "GPX"
	case FileTypeIGC:
		return "IGC"
	default:
		return "unknown"
	}
}

// DetectFileType sniffs the first two lines to classify the input. IGC files
// start with an 'A' manufacturer record followed by an 'H' header record.
// The reader is restored to its starting position before returning.
func DetectFileType(r io.ReadSeeker) (FileType, error) {
	start, err := r.Seek(0, io.SeekCurrent)
	if err != nil {
		return FileTypeUnknown, fmt.Errorf("detect file type: %w", err)
	}
	br := bufio.NewReader(r)
	line1, err := br.ReadString('\n')
	if err != nil && err != io.EOF {
		return FileTypeUnknown, fmt.Errorf("detect file type: %w", err)
	}
	line2, err := br.ReadString('\n')
	if err != nil && err != io.EOF {
		return FileTypeUnknown, fmt.Errorf("detect file type: %w", err)
	}
	if _, err := r.Seek(start, io.SeekStart); err != nil {
		return FileTypeUnknown, fmt.Errorf("detect file type: %w", err)
	}

	switch {
	case strings.HasPrefix(line1, "A") && strings.HasPrefix(line2, "H"):
		return FileTypeIGC, nil
	case !strings.HasPrefix(line1, "<?xml"):
		return FileTypeCSV, nil
	case strings.HasPrefix(line2, "<kml"):
		return FileTypeKML, nil
	case strings.HasPrefix(line2, "<gpx"):
		return FileTypeGPX, nil
	}
	return FileTypeUnknown, nil
}
