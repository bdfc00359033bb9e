package domain

import "math"

// ComputeEnergy integrates signed parcel buoyancy over a trace to produce
// CAPE and CIN.
//
// Each adjacent pair of trace points forms one layer. Its contribution is
// the trapezoidal mean of the buoyancy (parcel − environment temperature)
// at both ends times the layer thickness R_d·ln(p_lower/p_upper), the
// natural-log pressure coordinate being the physically correct vertical
// measure for these integrals.
//
// Accumulation follows the reference tool's simplified convention:
// every positive layer adds to CAPE, and the negative layers below the
// first positive one add to CIN (kept as a negative number). When no
// layer is positively buoyant the profile has no level of free convection
// and both integrals are undefined (NaN) — unless the buoyancy is zero
// throughout, in which case the neutral profile legitimately has
// CAPE = 0 and CIN = 0.
func ComputeEnergy(trace ParcelTrace) EnergyResult {
	points := trace.Points
	if len(points) < 2 {
		return EnergyResult{CAPE: math.NaN(), CIN: math.NaN()}
	}

	contributions := make([]float64, len(points)-1)
	firstPositive := -1
	anyNegative := false

	for i := 0; i < len(points)-1; i++ {
		lower, upper := points[i], points[i+1]
		thickness := dryGasConstant * math.Log(lower.Pressure/upper.Pressure)
		buoyancy := ((lower.ParcelTemperature - lower.EnvTemperature) +
			(upper.ParcelTemperature - upper.EnvTemperature)) / 2

		contributions[i] = buoyancy * thickness
		if contributions[i] > 0 && firstPositive < 0 {
			firstPositive = i
		}
		if contributions[i] < 0 {
			anyNegative = true
		}
	}

	if firstPositive < 0 {
		if anyNegative {
			return EnergyResult{CAPE: math.NaN(), CIN: math.NaN()}
		}
		return EnergyResult{} // neutral stratification
	}

	var cape, cin float64
	for i, c := range contributions {
		switch {
		case c > 0:
			cape += c
		case c < 0 && i < firstPositive:
			cin += c
		}
	}
	return EnergyResult{CAPE: cape, CIN: cin}
}
