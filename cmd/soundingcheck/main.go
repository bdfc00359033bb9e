// Command soundingcheck analyzes a ZONDE sounding file offline: it parses
// the text, lifts the surface parcel, and prints the level table, LCL, and
// CAPE/CIN. Useful for checking a feed file before pointing the service
// at it.
//
// Usage:
//
//	go run ./cmd/soundingcheck -file data/sounding.txt -station 47102
package main

import (
	"errors"
	"flag"
	"fmt"
	"os"
	"time"

	"github.com/couchcryptid/sounding-skewt/internal/domain"
)

func main() {
	file := flag.String("file", "", "path to a ZONDE sounding text file")
	station := flag.String("station", "47102", "station identifier")
	flag.Parse()

	if *file == "" {
		flag.Usage()
		os.Exit(1)
	}

	if code := run(*file, *station); code != 0 {
		os.Exit(code)
	}
}

func run(path, station string) int {
	text, err := os.ReadFile(path)
	if err != nil {
		fmt.Fprintf(os.Stderr, "FATAL: read sounding file: %v\n", err)
		return 1
	}

	sounding, report, err := domain.ParseSounding(station, text)
	if err != nil {
		switch {
		case errors.Is(err, domain.ErrEmptySounding):
			fmt.Fprintf(os.Stderr, "FATAL: no valid levels in feed: %v\n", err)
		case errors.Is(err, domain.ErrMalformedRecord):
			fmt.Fprintf(os.Stderr, "FATAL: feed is structurally broken: %v\n", err)
		default:
			fmt.Fprintf(os.Stderr, "FATAL: parse sounding: %v\n", err)
		}
		return 1
	}

	trace, err := domain.ComputeParcelProfile(sounding)
	if err != nil {
		fmt.Fprintf(os.Stderr, "FATAL: compute parcel profile: %v\n", err)
		return 1
	}
	energy := domain.ComputeEnergy(trace)

	fmt.Printf("=== Sounding Analysis: station %s ===\n\n", station)
	fmt.Printf("Observed:  %s\n", sounding.ObservedAt().Format(time.RFC3339))
	fmt.Printf("Records:   %d lines, %d valid levels\n", report.Lines, report.Levels)
	if dropped := report.Missing + report.Inconsistent + report.BadTimestamp + report.Malformed + report.Duplicates; dropped > 0 {
		fmt.Printf("Dropped:   %d (%d missing, %d inconsistent, %d bad timestamps, %d malformed, %d duplicates)\n",
			dropped, report.Missing, report.Inconsistent, report.BadTimestamp, report.Malformed, report.Duplicates)
	}

	fmt.Println("\n  Pressure   Temp    Dewpt   Parcel")
	levelIdx := 0
	for _, pt := range trace.Points {
		marker := "  "
		if pt.AtLCL {
			marker = "* "
		}
		dewpoint := "     -"
		if levelIdx < len(sounding.Levels) && sounding.Levels[levelIdx].Pressure == pt.Pressure {
			dewpoint = fmt.Sprintf("%6.1f", sounding.Levels[levelIdx].Dewpoint)
			levelIdx++
		}
		fmt.Printf("%s%8.1f %6.1f  %s  %6.1f\n",
			marker, pt.Pressure, pt.EnvTemperature, dewpoint, pt.ParcelTemperature)
	}

	fmt.Printf("\nLCL:   %.1f hPa at %.1f C", trace.LCL.Pressure, trace.LCL.Temperature)
	if !trace.LCL.Converged {
		fmt.Print(" (solver hit iteration cap, best estimate)")
	}
	fmt.Println()
	fmt.Printf("CAPE:  %s\n", formatEnergy(energy.CAPE, energy.HasCAPE()))
	fmt.Printf("CIN:   %s\n", formatEnergy(energy.CIN, energy.HasCIN()))
	return 0
}

func formatEnergy(v float64, defined bool) string {
	if !defined {
		return "unavailable"
	}
	return fmt.Sprintf("%.1f J/kg", v)
}
