package deck

import (
	"math"
	"strconv"
)

// contrastRatio computes the WCAG 2.x contrast ratio between two RRGGBB
// hex colors. The result lies in [1, 21]; an unparsable color yields 0.
func contrastRatio(fg, bg string) float64 {
	l1, ok1 := relativeLuminance(fg)
	l2, ok2 := relativeLuminance(bg)
	if !ok1 || !ok2 {
		return 0
	}
	if l1 < l2 {
		l1, l2 = l2, l1
	}
	return (l1 + 0.05) / (l2 + 0.05)
}

func relativeLuminance(hex string) (float64, bool) {
	if len(hex) != 6 {
		return 0, false
	}
	v, err := strconv.ParseUint(hex, 16, 32)
	if err != nil {
		return 0, false
	}
	r := linearize(float64((v>>16)&0xFF) / 255)
	g := linearize(float64((v>>8)&0xFF) / 255)
	b := linearize(float64(v&0xFF) / 255)
	return 0.2126*r + 0.7152*g + 0.0722*b, true
}

func linearize(c float64) float64 {
	if c <= 0.04045 {
		return c / 12.92
	}
	return math.Pow((c+0.055)/1.055, 2.4)
}
