package domain

import (
	"bufio"
	"bytes"
	"errors"
	"fmt"
	"math"
	"sort"
	"strconv"
	"strings"
	"time"
)

var (
	// ErrEmptySounding means the text parsed but zero valid levels remain
	// after sentinel and consistency filtering. Every downstream
	// computation assumes at least one level, so this is fatal.
	ErrEmptySounding = errors.New("sounding: no valid levels after filtering")

	// ErrMalformedRecord means no usable records exist and at least one
	// line failed structurally (field count, numeric parse or timestamp).
	ErrMalformedRecord = errors.New("sounding: no parseable records")
)

const (
	// missingSentinel is the feed's missing-value flag. Matched with a
	// tolerance so -999 and -999.0 both count.
	missingSentinel          = -999.0
	missingSentinelTolerance = 0.5

	// zondeTimestampLayout parses the YYMMDDHHMI column (YYYYMMDDHHMM).
	zondeTimestampLayout = "200601021504"

	commentMarker = "#"
	zondeFields   = 9 // YYMMDDHHMI STN PA GH TA TD WD WS FLAG
)

// ParseReport counts what happened to the raw records during parsing.
type ParseReport struct {
	Lines        int // data lines seen (comments and blanks excluded)
	Levels       int // valid levels in the resulting Sounding
	Missing      int // dropped: sentinel pressure/temperature/dewpoint
	Inconsistent int // dropped: dewpoint above temperature
	BadTimestamp int // dropped: unparseable timestamp column
	Malformed    int // dropped: field count or numeric parse failure
	Duplicates   int // dropped: repeated pressure level
}

// ParseSounding turns raw ZONDE text into a validated Sounding. It is a
// pure transform: same text in, same Sounding out, no side effects.
//
// Records with sentinel pressure/temperature/dewpoint, a dewpoint above
// the temperature, or an unparseable timestamp are dropped individually.
// The result is sorted by descending pressure (stable, so the feed's order
// breaks ties) and duplicate pressures keep the first occurrence. If
// nothing survives, the error distinguishes structurally broken input
// (ErrMalformedRecord) from valid-but-empty input (ErrEmptySounding).
func ParseSounding(station string, text []byte) (Sounding, ParseReport, error) {
	var (
		report ParseReport
		levels []SoundingLevel
	)

	scanner := bufio.NewScanner(bytes.NewReader(text))
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, commentMarker) {
			continue
		}
		report.Lines++

		level, ok := parseRecord(line, &report)
		if !ok {
			continue
		}
		levels = append(levels, level)
	}
	if err := scanner.Err(); err != nil {
		return Sounding{}, report, fmt.Errorf("sounding: scan input: %w", err)
	}

	if len(levels) == 0 {
		if report.Malformed > 0 || report.BadTimestamp > 0 {
			return Sounding{}, report, fmt.Errorf("%w (%d malformed, %d bad timestamps of %d lines)",
				ErrMalformedRecord, report.Malformed, report.BadTimestamp, report.Lines)
		}
		return Sounding{}, report, fmt.Errorf("%w (%d lines, %d missing-value records)",
			ErrEmptySounding, report.Lines, report.Missing)
	}

	// Surface first. Stable sort keeps the feed order for equal pressures
	// so duplicate elimination retains the first-reported level.
	sort.SliceStable(levels, func(i, j int) bool {
		return levels[i].Pressure > levels[j].Pressure
	})

	deduped := levels[:1]
	for _, lv := range levels[1:] {
		if lv.Pressure == deduped[len(deduped)-1].Pressure {
			report.Duplicates++
			continue
		}
		deduped = append(deduped, lv)
	}

	report.Levels = len(deduped)
	return Sounding{Station: station, Levels: deduped}, report, nil
}

// parseRecord parses one data line, updating the report on failure.
func parseRecord(line string, report *ParseReport) (SoundingLevel, bool) {
	fields := strings.Fields(line)
	if len(fields) < zondeFields {
		report.Malformed++
		return SoundingLevel{}, false
	}

	pressure, errP := strconv.ParseFloat(fields[2], 64)
	temperature, errT := strconv.ParseFloat(fields[4], 64)
	dewpoint, errD := strconv.ParseFloat(fields[5], 64)
	if errP != nil || errT != nil || errD != nil {
		report.Malformed++
		return SoundingLevel{}, false
	}

	if isMissing(pressure) || isMissing(temperature) || isMissing(dewpoint) {
		report.Missing++
		return SoundingLevel{}, false
	}
	if pressure <= 0 {
		report.Malformed++
		return SoundingLevel{}, false
	}
	if dewpoint > temperature {
		report.Inconsistent++
		return SoundingLevel{}, false
	}

	ts, err := time.Parse(zondeTimestampLayout, fields[0])
	if err != nil {
		report.BadTimestamp++
		return SoundingLevel{}, false
	}

	return SoundingLevel{
		Pressure:    pressure,
		Temperature: temperature,
		Dewpoint:    dewpoint,
		Timestamp:   ts.UTC(),
	}, true
}

func isMissing(v float64) bool {
	return math.Abs(v-missingSentinel) < missingSentinelTolerance
}
