package meter

import (
	"image"
	"sort"

	"github.com/soval/screen-trigger-go/domain/target"
)

const (
	calibMinSat      = 60.0 // qualifying saturation for colored bars
	calibMinVal      = 60.0 // qualifying brightness
	calibMinFraction = 0.05 // minimum share of qualifying pixels
	calibWrapBand    = 20.0 // hue distance from 0/180 counting as "near edge"
	calibWrapShare   = 0.10 // over-representation on both edges implies wrap
	hueMargin        = 5.0
	satValMargin     = 10.0
)

// DominantHSVRange samples a region and derives an HSV range covering its
// dominant bar color, for use as a FillPercent color hint. Returns nil on
// degenerate input (smaller than 2x2) or when no stable range can be found.
func DominantHSVRange(region *image.RGBA) *target.HSVRange {
	if region == nil {
		return nil
	}
	b := region.Bounds()
	w, h := b.Dx(), b.Dy()
	if w < 2 || h < 2 {
		return nil
	}
	total := w * h
	hs := make([]float64, 0, total)
	ss := make([]float64, 0, total)
	vs := make([]float64, 0, total)
	allVals := make([]float64, 0, total)
	pix := region.Pix
	stride := region.Stride
	for y := 0; y < h; y++ {
		row := pix[y*stride:]
		for x := 0; x < w; x++ {
			i := x * 4
			hv, sv, vv := rgbToHSV(row[i], row[i+1], row[i+2])
			allVals = append(allVals, vv)
			if sv >= calibMinSat && vv >= calibMinVal {
				hs = append(hs, hv)
				ss = append(ss, sv)
				vs = append(vs, vv)
			}
		}
	}

	if float64(len(hs)) < calibMinFraction*float64(total) {
		// White/gray bar: saturation carries no signal, bound by brightness
		// percentiles only.
		sort.Float64s(allVals)
		lo := percentile(allVals, 0.50)
		hi := percentile(allVals, 0.95)
		if hi-lo < 1 {
			lo = hi - 1
		}
		return &target.HSVRange{
			HueLo: 0, HueHi: 179,
			SatLo: 0, SatHi: 90,
			ValLo: clampByte(lo - satValMargin), ValHi: 255,
		}
	}

	nearLo, nearHi := 0, 0
	for _, hv := range hs {
		if hv <= calibWrapBand {
			nearLo++
		}
		if hv >= 180-calibWrapBand {
			nearHi++
		}
	}
	n := float64(len(hs))
	wraps := float64(nearLo)/n > calibWrapShare && float64(nearHi)/n > calibWrapShare

	sort.Float64s(ss)
	sort.Float64s(vs)
	r := &target.HSVRange{
		SatLo: clampByte(percentile(ss, 0.05) - satValMargin),
		SatHi: 255,
		ValLo: clampByte(percentile(vs, 0.05) - satValMargin),
		ValHi: 255,
	}

	if wraps {
		// Split around the boundary: the range runs from the low percentile
		// of the high-side cluster through the high percentile of the
		// low-side cluster.
		var loSide, hiSide []float64
		for _, hv := range hs {
			if hv <= 90 {
				loSide = append(loSide, hv)
			} else {
				hiSide = append(hiSide, hv)
			}
		}
		sort.Float64s(loSide)
		sort.Float64s(hiSide)
		r.HueLo = clampHue(percentile(hiSide, 0.05) - hueMargin)
		r.HueHi = clampHue(percentile(loSide, 0.95) + hueMargin)
		if !(&target.HSVRange{HueLo: r.HueLo, HueHi: r.HueHi}).Wraps() {
			return nil
		}
		return r
	}

	sort.Float64s(hs)
	r.HueLo = clampHue(percentile(hs, 0.05) - hueMargin)
	r.HueHi = clampHue(percentile(hs, 0.95) + hueMargin)
	if r.HueLo > r.HueHi {
		return nil
	}
	return r
}

// percentile returns the value at fraction p of a sorted slice.
func percentile(sorted []float64, p float64) float64 {
	if len(sorted) == 0 {
		return 0
	}
	idx := int(p * float64(len(sorted)-1))
	return sorted[idx]
}

func clampByte(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 255 {
		return 255
	}
	return v
}

func clampHue(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 179 {
		return 179
	}
	return v
}
