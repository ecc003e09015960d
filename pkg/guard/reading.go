package guard

const (
	// RawMax is the largest value a 10-bit conversion can produce.
	RawMax = 1023
	// PercentMax is the upper end of the light percentage scale.
	PercentMax = 100
)

// MapValue linearly rescales x from [inMin, inMax] to [outMin, outMax] using
// integer arithmetic. Results are truncated toward zero and are not clamped.
func MapValue(x, inMin, inMax, outMin, outMax int32) int32 {
	return (x-inMin)*(outMax-outMin)/(inMax-inMin) + outMin
}

// Percent converts a raw ADC sample into a light percentage.
func Percent(raw uint16) int {
	return int(MapValue(int32(raw), 0, RawMax, 0, PercentMax))
}
