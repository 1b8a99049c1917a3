// Package colorutil classifies background colors as dark or light so
// presentation code can pick a readable text color.
package colorutil

import "strconv"

// IsDark reports whether the given hex color (with or without a leading '#',
// in 3- or 6-digit form) is dark enough to need light text. Malformed input
// classifies as light, which yields dark text on the default background.
func IsDark(hex string) bool {
	r, g, b, ok := parseHex(hex)
	if !ok {
		return false
	}
	return Luminance(r, g, b) < 0.5
}

// Luminance computes the WCAG relative luminance of an sRGB color with
// 8-bit channels, in [0, 1].
func Luminance(r, g, b uint8) float64 {
	return (0.2126*float64(r) + 0.7152*float64(g) + 0.0722*float64(b)) / 255
}

func parseHex(hex string) (r, g, b uint8, ok bool) {
	if len(hex) > 0 && hex[0] == '#' {
		hex = hex[1:]
	}
	switch len(hex) {
	case 3:
		// Expand shorthand: "abc" -> "aabbcc".
		expanded := make([]byte, 6)
		for i := 0; i < 3; i++ {
			expanded[2*i] = hex[i]
			expanded[2*i+1] = hex[i]
		}
		hex = string(expanded)
	case 6:
	default:
		return 0, 0, 0, false
	}
	v, err := strconv.ParseUint(hex, 16, 32)
	if err != nil {
		return 0, 0, 0, false
	}
	return uint8(v >> 16), uint8(v >> 8), uint8(v), true
}
