package correlation

import "math"

// FormatStrength describes a coefficient's strength and direction, e.g.
// "強正相關" or "極弱負相關".
func FormatStrength(corr float64) string {
	abs := math.Abs(corr)

	var strength string
	switch {
	case abs >= 0.9:
		strength = "極強"
	case abs >= 0.7:
		strength = "強"
	case abs >= 0.5:
		strength = "中等"
	case abs >= 0.3:
		strength = "弱"
	default:
		strength = "極弱"
	}

	direction := "正相關"
	if corr < 0 {
		direction = "負相關"
	}
	return strength + direction
}
