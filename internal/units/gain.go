package units

import "math"

// GainToDB converts a linear gain multiplier to decibels. Non-positive
// gains map to -Inf.
func GainToDB(gain float64) float64 {
	if gain <= 0 {
		return math.Inf(-1)
	}
	return 20 * math.Log10(gain)
}

// DBToGain converts decibels to a linear gain multiplier.
func DBToGain(db float64) float64 {
	return math.Pow(10, db/20)
}

// ClampGain limits gain to [min, max].
func ClampGain(gain, min, max float64) float64 {
	return math.Max(min, math.Min(max, gain))
}

// TotalExposure is the product of integration time and analogue gain,
// in line-gain units, used to compare exposures across splits.
func TotalExposure(lines uint32, gain float64) float64 {
	return float64(lines) * gain
}
