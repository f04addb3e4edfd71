package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/jlgabriel/IGC2FDR/internal/config"
	"github.com/jlgabriel/IGC2FDR/internal/fdr"
	"github.com/jlgabriel/IGC2FDR/internal/igc"
	"github.com/jlgabriel/IGC2FDR/internal/logbook"
	"github.com/jlgabriel/IGC2FDR/internal/track"
)

func main() {
	var (
		configPath  string
		aircraft    string
		timezone    string
		outDir      string
		logbookPath string
		verbose     bool
	)
	flag.StringVar(&configPath, "c", "", "path to a YAML config file")
	flag.StringVar(&aircraft, "a", "", "X-Plane aircraft path recorded in the output")
	flag.StringVar(&timezone, "t", "", `timezone offset added to all timestamps: +/-hh:mm[:ss] or +/-<decimal hours>`)
	flag.StringVar(&outDir, "o", "", "directory for generated .fdr files (default: alongside each input)")
	flag.StringVar(&logbookPath, "logbook", "", "sqlite logbook recording each conversion")
	flag.BoolVar(&verbose, "v", false, "log all pipeline events, not only warnings")
	flag.Parse()

	if flag.NArg() == 0 {
		fmt.Fprintf(os.Stderr, "usage: %s [flags] file.igc [file.igc ...]\n", filepath.Base(os.Args[0]))
		flag.PrintDefaults()
		os.Exit(2)
	}

	var (
		cfg  config.Config
		from string
		err  error
	)
	if configPath != "" {
		cfg, err = config.Load(configPath)
		from = configPath
	} else {
		cfg, from, err = config.LoadDefault()
	}
	if err != nil {
		log.Fatalf("config load failed: %v", err)
	}
	if from != "" {
		log.Printf("using config %s", from)
	}

	if aircraft != "" {
		cfg.Defaults.Aircraft = strings.ReplaceAll(aircraft, `\`, "/")
		cfg.CLIAircraft = true
	}
	if timezone != "" {
		sec, err := config.ParseTimezone(timezone)
		if err != nil {
			log.Fatalf("-t: %v", err)
		}
		cfg.Timezones.Default = sec
	}
	if outDir != "" {
		cfg.Defaults.OutPath = outDir
	}

	var lb *logbook.Logbook
	if logbookPath != "" {
		lb, err = logbook.Open(logbookPath)
		if err != nil {
			log.Fatalf("logbook open failed: %v", err)
		}
	}

	ctx := context.Background()
	failed := 0
	for _, path := range flag.Args() {
		log.Printf("processing %s", path)
		outPath, err := convert(ctx, path, &cfg, lb, verbose)
		if err != nil {
			log.Printf("%s: %v", path, err)
			failed++
			continue
		}
		log.Printf("generated %s", outPath)
	}
	log.Printf("processing complete")

	if lb != nil {
		if err := lb.Close(); err != nil {
			log.Printf("logbook close: %v", err)
		}
	}
	if failed > 0 {
		os.Exit(1)
	}
}

// convert runs the pipeline for one input file and returns the path of the
// generated FDR file.
func convert(ctx context.Context, path string, cfg *config.Config, lb *logbook.Logbook, verbose bool) (string, error) {
	in, err := os.Open(path)
	if err != nil {
		return "", err
	}
	defer in.Close()

	ft, err := igc.DetectFileType(in)
	if err != nil {
		return "", err
	}
	if ft != igc.FileTypeIGC {
		return "", fmt.Errorf("not an IGC file (detected %s)", ft)
	}

	flight, err := track.Parse(in, cfg, &logEvents{file: path, verbose: verbose})
	if err != nil {
		return "", err
	}

	outPath := outputPath(path, cfg.Defaults.OutPath)
	out, err := os.Create(outPath)
	if err != nil {
		return "", err
	}
	w := fdr.NewWriter(out)
	if err := w.Write(flight, cfg.DrefsForTail(flight.Tail)); err != nil {
		out.Close()
		return "", err
	}
	if err := out.Close(); err != nil {
		return "", err
	}

	if lb != nil {
		// A logbook failure does not undo a successful conversion.
		if err := lb.Record(ctx, flight, outPath); err != nil {
			log.Printf("%s: logbook: %v", path, err)
		}
	}
	return outPath, nil
}

// outputPath swaps the input extension for .fdr. The file lands next to the
// input unless a real output directory is configured.
func outputPath(in, outDir string) string {
	name := strings.TrimSuffix(filepath.Base(in), filepath.Ext(in)) + ".fdr"
	if outDir != "" && outDir != config.DefaultOutPath {
		return filepath.Join(outDir, name)
	}
	return filepath.Join(filepath.Dir(in), name)
}

// logEvents routes pipeline events to the process log. Warnings always
// print; per-point noise only with -v.
type logEvents struct {
	file    string
	verbose bool
}

func (e *logEvents) RecordSkipped(line int, reason string) {
	log.Printf("%s: line %d skipped: %s", e.file, line, reason)
}

func (e *logEvents) AltitudeDefaulted(line int) {
	log.Printf("%s: line %d: unreadable altitude, using 0", e.file, line)
}

func (e *logEvents) HeaderDateFallback(raw string) {
	log.Printf("%s: unusable header date %q, using today's date", e.file, raw)
}

func (e *logEvents) DuplicateResolved(at time.Time, candidates int) {
	if e.verbose {
		log.Printf("%s: %d fixes share second %s, kept the nearest", e.file, candidates, at.Format("15:04:05"))
	}
}

func (e *logEvents) GapFilled(from, to time.Time, synthesized int) {
	if e.verbose {
		log.Printf("%s: filled gap %s..%s with %d points", e.file, from.Format("15:04:05"), to.Format("15:04:05"), synthesized)
	}
}

func (e *logEvents) GapSkipped(from, to time.Time, gapSeconds float64) {
	log.Printf("%s: %.0fs gap at %s left unfilled", e.file, gapSeconds, from.Format("15:04:05"))
}

func (e *logEvents) TrimDiscontinuity(at time.Time, before, after float64) {
	log.Printf("%s: heading trim discontinuity at %s: %.3f -> %.3f", e.file, at.Format("15:04:05"), before, after)
}

func (e *logEvents) DrefFailed(at time.Time, channel string, err error) {
	if at.IsZero() {
		log.Printf("%s: channel %s disabled: %v", e.file, channel, err)
		return
	}
	if e.verbose {
		log.Printf("%s: channel %s at %s: %v", e.file, channel, at.Format("15:04:05"), err)
	}
}
