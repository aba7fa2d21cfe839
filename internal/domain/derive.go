package domain

import "math"

// Magnus formula constants for dew point (Alduchov & Eskridge coefficients as
// used by the device firmware).
const (
	magnusA = 17.27
	magnusB = 237.7 // °C
)

// Saturation vapor pressure constants (Tetens equation, kPa).
const (
	tetensES = 0.611
	tetensA  = 17.27
	tetensB  = 237.3 // °C
)

// Fire-risk normalization ranges. Contributions rise (or fall) linearly
// across these ranges and saturate outside them.
const (
	tempRiskFloorC  = 15.0  // no temperature contribution at or below
	tempRiskCeilC   = 40.0  // full temperature contribution at or above
	humRiskFloorPct = 10.0  // full dryness contribution at or below
	humRiskCeilPct  = 100.0 // no dryness contribution at saturation
	gasFullScale    = 500.0 // raw-unit full scale for both MQ channels
)

// Fire-risk channel weights. These are tuned policy values, not physical
// constants; they must sum to 1.0 so the clamped weighted sum maps cleanly
// onto the 0–100 index.
const (
	weightTemp  = 0.25
	weightHum   = 0.20
	weightSmoke = 0.25
	weightGas   = 0.10
	weightFlame = 0.15
	weightSound = 0.10
)

// heatIndexMinF is the floor below which the NOAA regression does not apply
// and the heat index is reported as the air temperature.
const heatIndexMinF = 80.0

// Derive computes all secondary metrics for a reading. Pure and
// deterministic: the same reading always yields the same metrics.
func Derive(r Reading) DerivedMetrics {
	return DerivedMetrics{
		DewPointC:     DewPointC(r.TempC, r.HumPct),
		VPDkPa:        VPDkPa(r.TempC, r.HumPct),
		HeatIndexC:    HeatIndexC(r.TempC, r.HumPct),
		FireRiskIndex: FireRiskIndex(r),
	}
}

// DewPointC computes the dew point via the Magnus formula, rounded to one
// decimal. Relative humidity is floored at 0.1% so ln(rh/100) stays finite.
func DewPointC(tempC, humPct float64) float64 {
	if humPct < 0.1 {
		humPct = 0.1
	}
	alpha := (magnusA*tempC)/(magnusB+tempC) + math.Log(humPct/100)
	return round1(magnusB * alpha / (magnusA - alpha))
}

// VPDkPa computes the vapor pressure deficit in kilopascals, rounded to two
// decimals. VPD falls as humidity rises; drier air carries higher fire risk.
func VPDkPa(tempC, humPct float64) float64 {
	es := tetensES * math.Exp(tetensA*tempC/(tempC+tetensB))
	ea := es * humPct / 100
	return round2(es - ea)
}

// HeatIndexC computes the NOAA heat index (Rothfusz regression), evaluated in
// Fahrenheit and converted back, rounded to one decimal. Below 80°F the
// regression is undefined and the air temperature is returned instead.
func HeatIndexC(tempC, humPct float64) float64 {
	tF := tempC*9/5 + 32
	if tF < heatIndexMinF {
		return round1(tempC)
	}
	rh := humPct
	hiF := -42.379 +
		2.04901523*tF +
		10.14333127*rh -
		0.22475541*tF*rh -
		0.00683783*tF*tF -
		0.05481717*rh*rh +
		0.00122874*tF*tF*rh +
		0.00085282*tF*rh*rh -
		0.00000199*tF*tF*rh*rh
	return round1((hiF - 32) * 5 / 9)
}

// FireRiskIndex computes the composite 0–100 fire-risk index from all sensor
// channels. Each channel is normalized to [0,1] with saturating clamps so
// out-of-range raw inputs never push a contribution outside its weight.
func FireRiskIndex(r Reading) int {
	temp := clamp01((r.TempC - tempRiskFloorC) / (tempRiskCeilC - tempRiskFloorC))
	hum := clamp01(1 - (r.HumPct-humRiskFloorPct)/(humRiskCeilPct-humRiskFloorPct))
	smoke := clamp01(r.MQ2 / gasFullScale)
	gas := clamp01(r.MQ135 / gasFullScale)
	sound := clamp01(r.SoundConfidence / 100)

	flame := 0.0
	if r.Flame1 || r.Flame2 {
		flame = 1.0
	}

	score := weightTemp*temp +
		weightHum*hum +
		weightSmoke*smoke +
		weightGas*gas +
		weightFlame*flame +
		weightSound*sound

	return int(math.Round(clamp01(score) * 100))
}

func clamp01(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}

func round1(v float64) float64 {
	return math.Round(v*10) / 10
}

func round2(v float64) float64 {
	return math.Round(v*100) / 100
}
