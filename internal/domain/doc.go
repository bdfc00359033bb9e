// Package domain models upper-air sounding data and the parcel
// thermodynamics derived from it.
//
// # Data Source
//
// Soundings originate from the KMA (Korea Meteorological Administration)
// API hub ZONDE upper-air observation feed (typ01/url/upp_temp.php). The
// feed is plain whitespace-delimited text; lines starting with '#' are
// comments. Each data line carries one observed level:
//
//	YYMMDDHHMI  STN  PA  GH  TA  TD  WD  WS  FLAG
//
//	YYMMDDHHMI  observation timestamp, YYYYMMDDHHMM UTC
//	STN         station number (e.g. 47102 Baengnyeongdo)
//	PA          pressure, hPa
//	GH          geopotential height, m (unused here)
//	TA          air temperature, °C
//	TD          dewpoint temperature, °C
//	WD / WS     wind direction °, speed m/s (unused here)
//	FLAG        QC flag (unused here)
//
// The feed uses -999 (sometimes -999.0) as its missing-value sentinel.
// A level missing any of PA, TA or TD is useless for parcel analysis and
// is dropped during parsing, as are levels reporting a dewpoint above the
// air temperature (supersaturated reports are instrument artifacts).
//
// # Sounding Invariants
//
// A parsed Sounding is non-empty and strictly ordered by decreasing
// pressure: surface first, highest altitude last, no duplicate pressure
// levels and no sentinel values. Every downstream computation assumes
// these invariants, so parsing fails loudly (ErrEmptySounding,
// ErrMalformedRecord) instead of handing over a partial profile.
//
// # Parcel Thermodynamics
//
// A surface-based parcel is lifted dry-adiabatically (Poisson's relation,
// κ = R/cp = 0.2854) until it saturates at the lifting condensation level,
// then moist-adiabatically by integrating the saturated lapse-rate ODE in
// log-pressure steps. The LCL is located by bisecting for the pressure at
// which the dry-lapsed parcel temperature meets the dewpoint implied by
// the parcel's conserved mixing ratio. Saturation vapor pressure follows
// the Bolton (1980) form of the Magnus approximation,
// es(T) = 6.112·exp(17.67·T/(T+243.5)) hPa.
//
// CAPE and CIN are trapezoidal integrals of parcel-minus-environment
// buoyancy against layer thickness R_d·ln(p_lower/p_upper). Following the
// reference diagrams this implementation accumulates every positively
// buoyant layer into CAPE and the negative layers below the first positive
// one into CIN, rather than integrating strictly from the level of free
// convection. A profile that is never positively buoyant has no CAPE or
// CIN value at all: the result is NaN ("unavailable"), which callers must
// render distinctly from zero joules.
package domain
