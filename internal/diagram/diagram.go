// Package diagram maps a finished sounding analysis onto the coordinate
// arrays a skew-T renderer consumes. It owns no algorithmic logic: the
// skew transform, background adiabats and shading all belong to the
// rendering collaborator.
package diagram

import (
	"math"
	"time"

	"gonum.org/v1/gonum/floats"

	"github.com/couchcryptid/sounding-skewt/internal/domain"
)

// Marker is a single highlighted point on the diagram.
type Marker struct {
	Pressure    float64 `json:"pressure_hpa"`
	Temperature float64 `json:"temperature_c"`
	Index       int     `json:"index"` // position on the merged axis
}

// Data holds parallel coordinate arrays over the merged pressure axis
// (surface first). Temperature, Dewpoint and ParcelTemperature are all
// aligned 1:1 with Pressure; the dewpoint at an inserted LCL point is
// interpolated in ln p like the environment temperature, so renderers can
// draw all three curves against one axis.
type Data struct {
	Station     string    `json:"station"`
	StationName string    `json:"station_name,omitempty"`
	ObservedAt  time.Time `json:"observed_at"`
	AnalyzedAt  time.Time `json:"analyzed_at"`

	Pressure          []float64 `json:"pressure_hpa"`
	Temperature       []float64 `json:"temperature_c"`
	Dewpoint          []float64 `json:"dewpoint_c"`
	ParcelTemperature []float64 `json:"parcel_temperature_c"`

	LCL Marker `json:"lcl"`

	// nil means "unavailable": the profile has no such energy value.
	// Renderers must not display it as zero.
	CAPE *float64 `json:"cape_jkg"`
	CIN  *float64 `json:"cin_jkg"`

	// Axis hints for the renderer, [min, max].
	PressureRange    [2]float64 `json:"pressure_range_hpa"`
	TemperatureRange [2]float64 `json:"temperature_range_c"`
}

// Build flattens an analysis into renderer-ready arrays.
func Build(a domain.Analysis) Data {
	n := len(a.Trace.Points)
	d := Data{
		Station:           a.Station,
		StationName:       a.StationName,
		ObservedAt:        a.ObservedAt,
		AnalyzedAt:        a.AnalyzedAt,
		Pressure:          make([]float64, 0, n),
		Temperature:       make([]float64, 0, n),
		Dewpoint:          make([]float64, 0, n),
		ParcelTemperature: make([]float64, 0, n),
		LCL: Marker{
			Pressure:    a.Trace.LCL.Pressure,
			Temperature: a.Trace.LCL.Temperature,
			Index:       -1,
		},
	}

	levelIdx := 0
	for i, pt := range a.Trace.Points {
		d.Pressure = append(d.Pressure, pt.Pressure)
		d.Temperature = append(d.Temperature, pt.EnvTemperature)
		d.ParcelTemperature = append(d.ParcelTemperature, pt.ParcelTemperature)
		d.Dewpoint = append(d.Dewpoint, dewpointAt(a.Sounding, &levelIdx, pt.Pressure))
		if pt.AtLCL {
			d.LCL.Index = i
		}
	}

	if e := a.Energy; e.HasCAPE() {
		cape := e.CAPE
		d.CAPE = &cape
	}
	if e := a.Energy; e.HasCIN() {
		cin := e.CIN
		d.CIN = &cin
	}

	if len(d.Pressure) > 0 {
		d.PressureRange = [2]float64{floats.Min(d.Pressure), floats.Max(d.Pressure)}
		temps := make([]float64, 0, 3*len(d.Pressure))
		temps = append(temps, d.Temperature...)
		temps = append(temps, d.Dewpoint...)
		temps = append(temps, d.ParcelTemperature...)
		d.TemperatureRange = [2]float64{floats.Min(temps), floats.Max(temps)}
	}
	return d
}

// dewpointAt walks the sounding levels in step with the merged axis and
// returns the observed dewpoint, or an ln p interpolation for the
// inserted LCL point that has no observation.
func dewpointAt(s domain.Sounding, levelIdx *int, pressure float64) float64 {
	levels := s.Levels
	for *levelIdx < len(levels) && levels[*levelIdx].Pressure > pressure {
		*levelIdx++
	}
	if *levelIdx < len(levels) && levels[*levelIdx].Pressure == pressure {
		td := levels[*levelIdx].Dewpoint
		*levelIdx++
		return td
	}

	// Inserted point: interpolate between the bracketing observations.
	if *levelIdx == 0 {
		return levels[0].Dewpoint
	}
	if *levelIdx >= len(levels) {
		return levels[len(levels)-1].Dewpoint
	}
	below, above := levels[*levelIdx-1], levels[*levelIdx]
	span := math.Log(above.Pressure) - math.Log(below.Pressure)
	if span == 0 {
		return below.Dewpoint
	}
	frac := (math.Log(pressure) - math.Log(below.Pressure)) / span
	return below.Dewpoint + frac*(above.Dewpoint-below.Dewpoint)
}
