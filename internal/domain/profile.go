package domain

import "math"

// lclCoincidenceTolerance decides whether the LCL pressure counts as
// coinciding with an observed level, in which case no point is inserted.
const lclCoincidenceTolerance = 0.01 // hPa

// ComputeParcelProfile lifts the surface parcel through every
// environmental level: dry-adiabatically up to the LCL, then
// moist-adiabatically seeded from the LCL point, so the trace is
// continuous across the transition.
//
// The returned trace covers the merged pressure axis: all sounding levels
// plus, when no level coincides with the LCL, one inserted point exactly
// at the LCL pressure with the environmental temperature interpolated
// linearly in ln p. The energy integration depends on that inserted point
// to split the layer where buoyancy changes regime.
//
// A saturated surface parcel (dewpoint == temperature) pins the LCL at
// the surface and the dry segment degenerates to zero length; the whole
// ascent is moist. That is a policy choice matching the reference tool,
// not a numerical accident.
func ComputeParcelProfile(s Sounding) (ParcelTrace, error) {
	if len(s.Levels) == 0 {
		return ParcelTrace{}, ErrEmptySounding
	}

	surface := s.Surface()
	lcl := LCL(surface.Pressure, surface.Temperature, surface.Dewpoint)

	parcelAt := func(p float64) float64 {
		if p >= lcl.Pressure {
			return DryLapse(surface.Pressure, surface.Temperature, p)
		}
		return MoistLapse(lcl.Pressure, lcl.Temperature, p)
	}

	points := make([]TracePoint, 0, len(s.Levels)+1)
	inserted := lcl.Pressure >= surface.Pressure // surface-pinned LCL needs no insertion

	for i, lv := range s.Levels {
		atLCL := math.Abs(lv.Pressure-lcl.Pressure) <= lclCoincidenceTolerance
		if atLCL {
			inserted = true
		}

		if !inserted && lv.Pressure < lcl.Pressure {
			// The axis just crossed the LCL: insert its point first.
			points = append(points, TracePoint{
				Pressure:          lcl.Pressure,
				EnvTemperature:    interpolateEnv(s.Levels[i-1], lv, lcl.Pressure),
				ParcelTemperature: lcl.Temperature,
				AtLCL:             true,
			})
			inserted = true
		}

		points = append(points, TracePoint{
			Pressure:          lv.Pressure,
			EnvTemperature:    lv.Temperature,
			ParcelTemperature: parcelAt(lv.Pressure),
			AtLCL:             atLCL,
		})
	}

	if i := indexOfSurfaceLCL(points, lcl); i >= 0 {
		points[i].AtLCL = true
	}

	return ParcelTrace{Points: points, LCL: lcl}, nil
}

// interpolateEnv interpolates the environmental temperature between two
// bracketing levels, linear in ln p, the coordinate the sounding is
// (approximately) linear in.
func interpolateEnv(below, above SoundingLevel, p float64) float64 {
	span := math.Log(above.Pressure) - math.Log(below.Pressure)
	if span == 0 {
		return below.Temperature
	}
	frac := (math.Log(p) - math.Log(below.Pressure)) / span
	return below.Temperature + frac*(above.Temperature-below.Temperature)
}

// indexOfSurfaceLCL finds the surface point when the LCL is pinned there
// (saturated parcel), so it gets flagged even though nothing was inserted.
func indexOfSurfaceLCL(points []TracePoint, lcl LCLPoint) int {
	if len(points) == 0 || math.Abs(points[0].Pressure-lcl.Pressure) > lclCoincidenceTolerance {
		return -1
	}
	return 0
}
