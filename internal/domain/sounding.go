package domain

import (
	"encoding/json"
	"math"
	"time"
)

// RawFeed is an unparsed sounding text blob handed in by a fetch adapter.
// The adapter owns transport concerns (timeouts, retries, encoding); the
// domain only ever sees the clean byte payload.
type RawFeed struct {
	Station     string
	Text        []byte
	RetrievedAt time.Time
}

// SoundingLevel is one observed level of a vertical sounding.
// Immutable once constructed.
type SoundingLevel struct {
	Pressure    float64   `json:"pressure_hpa"`  // hPa, > 0
	Temperature float64   `json:"temperature_c"` // °C
	Dewpoint    float64   `json:"dewpoint_c"`    // °C, ≤ Temperature
	Timestamp   time.Time `json:"timestamp"`
}

// Sounding is a validated vertical profile: non-empty, strictly decreasing
// pressure (surface first), no duplicate levels, no missing values.
type Sounding struct {
	Station string          `json:"station"`
	Levels  []SoundingLevel `json:"levels"`
}

// Surface returns the lowest (highest-pressure) level.
func (s Sounding) Surface() SoundingLevel {
	return s.Levels[0]
}

// ObservedAt returns the observation timestamp of the surface level.
func (s Sounding) ObservedAt() time.Time {
	if len(s.Levels) == 0 {
		return time.Time{}
	}
	return s.Levels[0].Timestamp
}

// Pressures returns the pressure axis, surface first.
func (s Sounding) Pressures() []float64 {
	out := make([]float64, len(s.Levels))
	for i, lv := range s.Levels {
		out[i] = lv.Pressure
	}
	return out
}

// LCLPoint marks the dry→moist transition of a lifted parcel.
type LCLPoint struct {
	Pressure    float64 `json:"pressure_hpa"`
	Temperature float64 `json:"temperature_c"`

	// Solver diagnostics. Converged is false when the iteration cap was
	// reached and Pressure is the best available estimate.
	Iterations int  `json:"-"`
	Converged  bool `json:"-"`
}

// TracePoint is one point of the merged (environment, parcel) profile.
type TracePoint struct {
	Pressure          float64 `json:"pressure_hpa"`
	EnvTemperature    float64 `json:"env_temperature_c"`
	ParcelTemperature float64 `json:"parcel_temperature_c"`

	// AtLCL marks the point pinned to the lifting condensation level,
	// whether it coincided with an observed level or was inserted.
	AtLCL bool `json:"at_lcl,omitempty"`
}

// ParcelTrace is the lifted parcel's temperature along the merged pressure
// axis: every sounding level plus, if no level coincides with it, one
// inserted point exactly at the LCL. Temperatures are continuous across
// the dry→moist transition.
type ParcelTrace struct {
	Points []TracePoint `json:"points"`
	LCL    LCLPoint     `json:"lcl"`
}

// EnergyResult carries the buoyancy integrals of one parcel ascent.
// CAPE ≥ 0 and CIN ≤ 0 when defined; both are NaN when the profile is
// never positively buoyant, which is a valid outcome ("unavailable"),
// not an error, and must never be rendered as zero joules.
type EnergyResult struct {
	CAPE float64 // J/kg
	CIN  float64 // J/kg
}

// HasCAPE reports whether CAPE has a physical value for this profile.
func (e EnergyResult) HasCAPE() bool { return !math.IsNaN(e.CAPE) }

// HasCIN reports whether CIN has a physical value for this profile.
func (e EnergyResult) HasCIN() bool { return !math.IsNaN(e.CIN) }

// MarshalJSON encodes undefined energies as null so downstream consumers
// cannot mistake "unavailable" for zero.
func (e EnergyResult) MarshalJSON() ([]byte, error) {
	out := struct {
		CAPE *float64 `json:"cape_jkg"`
		CIN  *float64 `json:"cin_jkg"`
	}{}
	if e.HasCAPE() {
		out.CAPE = &e.CAPE
	}
	if e.HasCIN() {
		out.CIN = &e.CIN
	}
	return json.Marshal(out)
}

// UnmarshalJSON is the inverse of MarshalJSON: null fields become NaN.
func (e *EnergyResult) UnmarshalJSON(data []byte) error {
	in := struct {
		CAPE *float64 `json:"cape_jkg"`
		CIN  *float64 `json:"cin_jkg"`
	}{}
	if err := json.Unmarshal(data, &in); err != nil {
		return err
	}
	e.CAPE = math.NaN()
	e.CIN = math.NaN()
	if in.CAPE != nil {
		e.CAPE = *in.CAPE
	}
	if in.CIN != nil {
		e.CIN = *in.CIN
	}
	return nil
}

// Analysis is the complete output of one sounding analysis cycle.
type Analysis struct {
	Station     string       `json:"station"`
	StationName string       `json:"station_name,omitempty"`
	ObservedAt  time.Time    `json:"observed_at"`
	AnalyzedAt  time.Time    `json:"analyzed_at"`
	Sounding    Sounding     `json:"sounding"`
	Trace       ParcelTrace  `json:"trace"`
	Energy      EnergyResult `json:"energy"`
}

// NewAnalysis assembles an Analysis and stamps it with the current time.
func NewAnalysis(stationName string, s Sounding, trace ParcelTrace, energy EnergyResult) Analysis {
	return Analysis{
		Station:     s.Station,
		StationName: stationName,
		ObservedAt:  s.ObservedAt(),
		AnalyzedAt:  clock.Now().UTC(),
		Sounding:    s,
		Trace:       trace,
		Energy:      energy,
	}
}
