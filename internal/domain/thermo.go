package domain

import "math"

// Thermodynamic constants. Values match the standard meteorological ones
// used by the reference diagrams.
const (
	dryGasConstant  = 287.04  // R_d, J/(kg·K)
	specificHeatDry = 1005.0  // c_p of dry air, J/(kg·K)
	poissonExponent = 0.2854  // κ = R_d/c_p
	epsilonRatio    = 0.622   // molecular weight ratio water/dry air
	latentHeat      = 2.501e6 // L_v at 0°C, J/kg
	kelvinOffset    = 273.15

	// referenceVaporPressure and the Bolton coefficients define
	// es(T) = 6.112·exp(17.67·T/(T+243.5)), T in °C, es in hPa.
	referenceVaporPressure = 6.112
	boltonA                = 17.67
	boltonB                = 243.5

	// maxLnPressureStep bounds the moist-adiabat integration step in ln p.
	// 0.02 keeps CAPE/CIN stable to well under 1 J/kg when halved.
	maxLnPressureStep = 0.02

	// LCL solver bounds: bisect between the starting pressure and
	// lclPressureFloor, stop below lclPressureTolerance or at the
	// iteration cap and keep the best estimate.
	lclPressureFloor     = 100.0 // hPa
	lclPressureTolerance = 0.01  // hPa
	lclMaxIterations     = 50
)

// DryLapse returns the temperature (°C) of a parcel displaced
// dry-adiabatically from pressure p0 (hPa) at temperature t0 (°C) to
// pressure p, via Poisson's relation. DryLapse(p, t, p) == t.
func DryLapse(p0, t0, p float64) float64 {
	return (t0+kelvinOffset)*math.Pow(p/p0, poissonExponent) - kelvinOffset
}

// SaturationVaporPressure returns es (hPa) over liquid water at t (°C),
// Bolton (1980) Magnus form. Accurate within the sounding envelope
// (t in [-90, 50] °C).
func SaturationVaporPressure(t float64) float64 {
	return referenceVaporPressure * math.Exp(boltonA*t/(t+boltonB))
}

// SaturationMixingRatio returns the saturation mixing ratio (kg/kg) at
// pressure p (hPa) and temperature t (°C). Near the edge of the validity
// envelope (warm air at very low pressure) es can approach p and the
// exact expression blows up; the vapor pressure is capped at 90% of the
// ambient pressure so the ratio stays finite and positive. The absorbed
// region is unphysical for real soundings and never feeds NaN downstream.
func SaturationMixingRatio(p, t float64) float64 {
	es := SaturationVaporPressure(t)
	if es > 0.9*p {
		es = 0.9 * p
	}
	return epsilonRatio * es / (p - es)
}

// DewpointFromMixingRatio inverts SaturationMixingRatio: the temperature
// (°C) at which air at pressure p (hPa) with mixing ratio w (kg/kg) is
// exactly saturated.
func DewpointFromMixingRatio(p, w float64) float64 {
	e := p * w / (epsilonRatio + w)
	ln := math.Log(e / referenceVaporPressure)
	return boltonB * ln / (boltonA - ln)
}

// moistLapseRate returns dT/d(ln p) (K per unit ln p) for a saturated
// parcel at pressure p (hPa) and temperature t (°C), the pseudo-adiabatic
// form without ice processes.
func moistLapseRate(p, t float64) float64 {
	tK := t + kelvinOffset
	rs := SaturationMixingRatio(p, t)
	numerator := dryGasConstant*tK + latentHeat*rs
	denominator := specificHeatDry + latentHeat*latentHeat*rs*epsilonRatio/(dryGasConstant*tK*tK)
	return numerator / denominator
}

// MoistLapse returns the temperature (°C) of a saturated parcel displaced
// moist-adiabatically from (p0 hPa, t0 °C) to pressure p, integrating the
// saturated lapse-rate ODE with fixed RK4 steps in ln-pressure space.
// Works in both directions, so a forward-then-backward round trip returns
// the starting temperature to within integration tolerance.
func MoistLapse(p0, t0, p float64) float64 {
	if p == p0 {
		return t0
	}

	lnStart := math.Log(p0)
	span := math.Log(p) - lnStart
	steps := int(math.Ceil(math.Abs(span) / maxLnPressureStep))
	if steps < 1 {
		steps = 1
	}
	h := span / float64(steps)

	t := t0
	lnP := lnStart
	for i := 0; i < steps; i++ {
		k1 := moistLapseRate(math.Exp(lnP), t)
		k2 := moistLapseRate(math.Exp(lnP+h/2), t+h*k1/2)
		k3 := moistLapseRate(math.Exp(lnP+h/2), t+h*k2/2)
		k4 := moistLapseRate(math.Exp(lnP+h), t+h*k3)
		t += h * (k1 + 2*k2 + 2*k3 + k4) / 6
		lnP += h
	}
	return t
}

// LCL locates the lifting condensation level of a parcel starting at
// pressure p0 (hPa), temperature t0 (°C) and dewpoint td0 (°C) by
// bisecting for the pressure where the dry-lapsed parcel temperature
// meets the dewpoint implied by the conserved surface mixing ratio.
//
// A saturated parcel (td0 ≥ t0) condenses immediately: the LCL is the
// starting level itself. A parcel so dry it never saturates above
// lclPressureFloor reports the floor with Converged == false; callers
// treat non-convergence as a soft condition and use the estimate.
func LCL(p0, t0, td0 float64) LCLPoint {
	if td0 >= t0 {
		return LCLPoint{Pressure: p0, Temperature: t0, Converged: true}
	}

	w0 := SaturationMixingRatio(p0, td0)

	// undersaturation is positive while the dry-lapsed parcel is still
	// warmer than its condensation temperature, and crosses zero at the LCL.
	undersaturation := func(p float64) float64 {
		return DryLapse(p0, t0, p) - DewpointFromMixingRatio(p, w0)
	}

	lo, hi := lclPressureFloor, p0
	if undersaturation(lo) > 0 {
		return LCLPoint{Pressure: lo, Temperature: DryLapse(p0, t0, lo), Converged: false}
	}

	iterations := 0
	converged := false
	for i := 1; i <= lclMaxIterations; i++ {
		iterations = i
		mid := (lo + hi) / 2
		if undersaturation(mid) > 0 {
			hi = mid
		} else {
			lo = mid
		}
		if hi-lo < lclPressureTolerance {
			converged = true
			break
		}
	}

	p := (lo + hi) / 2
	return LCLPoint{
		Pressure:    p,
		Temperature: DryLapse(p0, t0, p),
		Iterations:  iterations,
		Converged:   converged,
	}
}
