package meter

// RGB -> HSV conversion using the OpenCV byte ranges: hue in [0,180),
// saturation and value in [0,255]. Keeping these ranges makes calibrated
// color hints portable to tooling that inspects them.

func rgbToHSV(r, g, b uint8) (h, s, v float64) {
	rf, gf, bf := float64(r), float64(g), float64(b)
	mx := rf
	if gf > mx {
		mx = gf
	}
	if bf > mx {
		mx = bf
	}
	mn := rf
	if gf < mn {
		mn = gf
	}
	if bf < mn {
		mn = bf
	}
	v = mx
	d := mx - mn
	if mx > 0 {
		s = d / mx * 255
	}
	if d == 0 {
		return 0, s, v
	}
	switch mx {
	case rf:
		h = 30 * (gf - bf) / d
	case gf:
		h = 60 + 30*(bf-rf)/d
	default:
		h = 120 + 30*(rf-gf)/d
	}
	if h < 0 {
		h += 180
	}
	return h, s, v
}

// hueInRange handles wrap-around ranges where lo > hi by testing the union
// of [lo,180) and [0,hi].
func hueInRange(h, lo, hi float64) bool {
	if lo > hi {
		return h >= lo || h <= hi
	}
	return h >= lo && h <= hi
}
