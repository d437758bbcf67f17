package geom

import "math"

// RGB is a linear color with channels in [0,1].
type RGB struct {
	R, G, B float64
}

// FromHex unpacks a 0xRRGGBB value.
func FromHex(hex uint32) RGB {
	return RGB{
		R: float64((hex>>16)&0xff) / 255,
		G: float64((hex>>8)&0xff) / 255,
		B: float64(hex&0xff) / 255,
	}
}

// Hex packs the color into 0xRRGGBB, rounding each channel.
func (c RGB) Hex() uint32 {
	ch := func(v float64) uint32 {
		return uint32(math.Round(clamp01(v) * 255))
	}
	return ch(c.R)<<16 | ch(c.G)<<8 | ch(c.B)
}

// HSL converts hue/saturation/lightness to RGB. Hue wraps, s and l clamp.
func HSL(h, s, l float64) RGB {
	h = h - math.Floor(h)
	s = clamp01(s)
	l = clamp01(l)
	if s == 0 {
		return RGB{l, l, l}
	}
	var p float64
	if l <= 0.5 {
		p = l * (1 + s)
	} else {
		p = l + s - l*s
	}
	q := 2*l - p
	return RGB{
		R: hueToChannel(q, p, h+1.0/3),
		G: hueToChannel(q, p, h),
		B: hueToChannel(q, p, h-1.0/3),
	}
}

func hueToChannel(lo, hi, t float64) float64 {
	if t < 0 {
		t++
	}
	if t > 1 {
		t--
	}
	switch {
	case t < 1.0/6:
		return lo + (hi-lo)*6*t
	case t < 0.5:
		return hi
	case t < 2.0/3:
		return lo + (hi-lo)*6*(2.0/3-t)
	default:
		return lo
	}
}

// Lerp interpolates each channel from a toward b.
func Lerp(a, b RGB, t float64) RGB {
	return RGB{
		R: a.R + (b.R-a.R)*t,
		G: a.G + (b.G-a.G)*t,
		B: a.B + (b.B-a.B)*t,
	}
}

// StarColor maps a normalised temperature onto the H-R spectral sequence,
// from cool red M-class at 0 to intense blue O-class at 1.
func StarColor(temp float64) RGB {
	switch {
	case temp < 0.2:
		t := temp / 0.2
		return HSL(0.0+t*0.03, 0.95-t*0.15, 0.3+t*0.15)
	case temp < 0.35:
		t := (temp - 0.2) / 0.15
		return HSL(0.08+t*0.04, 0.9-t*0.1, 0.45+t*0.1)
	case temp < 0.5:
		t := (temp - 0.35) / 0.15
		return HSL(0.14+t*0.02, 0.85-t*0.25, 0.55+t*0.05)
	case temp < 0.65:
		t := (temp - 0.5) / 0.15
		return HSL(0.16-t*0.04, 0.6-t*0.4, 0.6+t*0.1)
	case temp < 0.8:
		t := (temp - 0.65) / 0.15
		return HSL(0.12+t*0.45, 0.2-t*0.15, 0.7+t*0.1)
	case temp < 0.92:
		t := (temp - 0.8) / 0.12
		return HSL(0.58+t*0.02, 0.5+t*0.3, 0.75+t*0.1)
	default:
		t := (temp - 0.92) / 0.08
		return HSL(0.6+t*0.05, 0.9+t*0.1, 0.85+t*0.1)
	}
}

// Clamp limits v to [lo, hi].
func Clamp(v, lo, hi float64) float64 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}

func clamp01(v float64) float64 { return Clamp(v, 0, 1) }
