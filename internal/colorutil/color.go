// Package colorutil parses user-supplied color descriptors and derives
// brightness-adjusted variants for active-scope emphasis.
package colorutil

import (
	"fmt"
	"strconv"
	"strings"

	colorful "github.com/lucasb-eyer/go-colorful"
)

// Color is an RGB color with an alpha channel. Indent buckets are
// usually heavily translucent, so alpha is carried alongside the
// colorful value rather than premultiplied into it.
type Color struct {
	RGB   colorful.Color
	Alpha float64
}

// Hex returns the color as "#rrggbb" (alpha dropped).
func (c Color) Hex() string {
	return c.RGB.Clamped().Hex()
}

// RGBA returns the color as a CSS-style "rgba(r,g,b,a)" string.
func (c Color) RGBA() string {
	r, g, b := c.RGB.Clamped().RGB255()
	return fmt.Sprintf("rgba(%d,%d,%d,%s)", r, g, b,
		strconv.FormatFloat(c.Alpha, 'f', -1, 64))
}

// Parse interprets a color descriptor. Accepted forms:
//
//	#rgb  #rrggbb  #rrggbbaa
//	rgb(r,g,b)
//	rgba(r,g,b,a)
//
// The second result is false for anything else, including the empty
// string; invalid descriptors sanitize to an absent color rather than
// failing the caller.
func Parse(s string) (Color, bool) {
	s = strings.TrimSpace(strings.ToLower(s))
	switch {
	case s == "":
		return Color{}, false
	case strings.HasPrefix(s, "#"):
		return parseHex(s)
	case strings.HasPrefix(s, "rgba(") && strings.HasSuffix(s, ")"):
		return parseRGBFunc(s[5:len(s)-1], true)
	case strings.HasPrefix(s, "rgb(") && strings.HasSuffix(s, ")"):
		return parseRGBFunc(s[4:len(s)-1], false)
	default:
		return Color{}, false
	}
}

func parseHex(s string) (Color, bool) {
	hex := s[1:]
	alpha := 1.0

	switch len(hex) {
	case 3:
		expanded := make([]byte, 6)
		for i := 0; i < 3; i++ {
			expanded[2*i] = hex[i]
			expanded[2*i+1] = hex[i]
		}
		hex = string(expanded)
	case 6:
	case 8:
		a, err := strconv.ParseUint(hex[6:], 16, 8)
		if err != nil {
			return Color{}, false
		}
		alpha = float64(a) / 255
		hex = hex[:6]
	default:
		return Color{}, false
	}

	rgb, err := colorful.Hex("#" + hex)
	if err != nil {
		return Color{}, false
	}
	return Color{RGB: rgb, Alpha: alpha}, true
}

func parseRGBFunc(args string, hasAlpha bool) (Color, bool) {
	parts := strings.Split(args, ",")
	want := 3
	if hasAlpha {
		want = 4
	}
	if len(parts) != want {
		return Color{}, false
	}

	var ch [3]float64
	for i := 0; i < 3; i++ {
		v, err := strconv.ParseUint(strings.TrimSpace(parts[i]), 10, 8)
		if err != nil {
			return Color{}, false
		}
		ch[i] = float64(v) / 255
	}

	alpha := 1.0
	if hasAlpha {
		a, err := strconv.ParseFloat(strings.TrimSpace(parts[3]), 64)
		if err != nil || a < 0 || a > 1 {
			return Color{}, false
		}
		alpha = a
	}

	return Color{
		RGB:   colorful.Color{R: ch[0], G: ch[1], B: ch[2]},
		Alpha: alpha,
	}, true
}

// Adjust derives an emphasis variant of c. A positive amount blends the
// color toward white, a negative amount toward black, in Lab space so
// the perceived step is uniform across hues. Amount is clamped to
// [-1, 1]; alpha is preserved.
func Adjust(c Color, amount float64) Color {
	if amount > 1 {
		amount = 1
	}
	if amount < -1 {
		amount = -1
	}

	target := colorful.Color{R: 1, G: 1, B: 1}
	if amount < 0 {
		target = colorful.Color{}
		amount = -amount
	}

	return Color{
		RGB:   c.RGB.BlendLab(target, amount).Clamped(),
		Alpha: c.Alpha,
	}
}
