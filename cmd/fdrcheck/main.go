package main

import (
	"flag"
	"fmt"
	"log"
	"os"

	"github.com/jlgabriel/IGC2FDR/internal/fdr"
)

func main() {
	var (
		csvPath        string
		maxHeadingRate float64
		maxSpeedRate   float64
	)
	flag.StringVar(&csvPath, "csv", "", "Export issues to a CSV file")
	flag.Float64Var(&maxHeadingRate, "heading-rate", defaultMaxHeadingRate, "Max heading change in degrees per second")
	flag.Float64Var(&maxSpeedRate, "speed-rate", defaultMaxSpeedRate, "Max speed change in knots per second")
	flag.Parse()

	if flag.NArg() != 1 {
		fmt.Fprintln(os.Stderr, "usage: fdrcheck [flags] track.fdr")
		flag.PrintDefaults()
		os.Exit(2)
	}

	n, err := run(flag.Arg(0), csvPath, maxHeadingRate, maxSpeedRate)
	if err != nil {
		log.Fatalf("fdrcheck: %v", err)
	}
	if n > 0 {
		os.Exit(1)
	}
}

// run analyzes one FDR file and returns the number of issues found.
func run(path, csvPath string, maxHeadingRate, maxSpeedRate float64) (int, error) {
	f, err := os.Open(path)
	if err != nil {
		return 0, err
	}
	defer f.Close()

	rows, bad, err := fdr.ReadTrack(f)
	if err != nil {
		return 0, fmt.Errorf("%s: %w", path, err)
	}
	if len(rows) == 0 {
		if len(bad) > 0 {
			return 0, fmt.Errorf("%s: no track data (unparseable data lines: %d)", path, len(bad))
		}
		return 0, fmt.Errorf("%s: no track data", path)
	}

	c := &checker{maxHeadingRate: maxHeadingRate, maxSpeedRate: maxSpeedRate}
	for _, b := range bad {
		c.add("PARSE_ERROR", b.Err.Error(), b.Line)
	}
	issues := c.checkTrack(rows)
	printReport(path, summarizeTrack(rows), issues)

	if csvPath != "" && len(issues) > 0 {
		if err := exportIssuesCSV(csvPath, issues); err != nil {
			return len(issues), err
		}
		log.Printf("issues exported to %s", csvPath)
	}
	return len(issues), nil
}
