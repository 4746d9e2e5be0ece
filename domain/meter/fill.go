package meter

import (
	"image"
	"math"

	"github.com/soval/screen-trigger-go/domain/target"
)

const (
	// occupancyThreshold is the cross-axis fraction above which an axis
	// position counts as filled.
	occupancyThreshold = 0.5

	// reconcileDisagreement is the relative disagreement between the
	// edge-scan and simple-ratio estimates beyond which the simple ratio is
	// preferred. Empirically tuned; treat as a tunable, not an invariant.
	reconcileDisagreement = 0.20
)

// FillPercent measures how full a bar-shaped region is along the configured
// fill direction. Returns a value in [0,100], or -1 when the region is
// degenerate. Pure function; no state is retained.
func FillPercent(region *image.RGBA, cfg target.MeterConfig) float64 {
	if region == nil {
		return -1
	}
	b := region.Bounds()
	w, h := b.Dx(), b.Dy()
	if w < 1 || h < 1 {
		return -1
	}
	var mask []bool
	if cfg.ColorHint != nil {
		mask = colorMask(region, *cfg.ColorHint)
	} else {
		mask = contrastMask(region)
	}
	if mask == nil {
		return -1
	}
	proj := projection(mask, w, h, cfg.Direction.Horizontal())
	if len(proj) == 0 {
		return -1
	}
	simple := simpleRatio(proj)
	edge := edgeScan(proj, cfg.Direction.Reversed())

	// A fragmented or noisy projection makes the edge scan overshoot; fall
	// back to the simple ratio when the two disagree too much.
	pct := edge
	if math.Abs(edge-simple) >= reconcileDisagreement*simple {
		pct = simple
	}
	return clampPercent(pct * 100)
}

// colorMask marks pixels inside the HSV hint range.
func colorMask(img *image.RGBA, hint target.HSVRange) []bool {
	b := img.Bounds()
	w, h := b.Dx(), b.Dy()
	mask := make([]bool, w*h)
	pix := img.Pix
	stride := img.Stride
	for y := 0; y < h; y++ {
		row := pix[y*stride:]
		for x := 0; x < w; x++ {
			i := x * 4
			hv, sv, vv := rgbToHSV(row[i], row[i+1], row[i+2])
			if hueInRange(hv, hint.HueLo, hint.HueHi) &&
				sv >= hint.SatLo && sv <= hint.SatHi &&
				vv >= hint.ValLo && vv <= hint.ValHi {
				mask[y*w+x] = true
			}
		}
	}
	return mask
}

// contrastMask binarizes the region with an automatic bimodal (Otsu)
// threshold over grayscale. The brighter class counts as filled.
func contrastMask(img *image.RGBA) []bool {
	b := img.Bounds()
	w, h := b.Dx(), b.Dy()
	n := w * h
	gray := make([]uint8, n)
	var hist [256]int
	pix := img.Pix
	stride := img.Stride
	idx := 0
	for y := 0; y < h; y++ {
		row := pix[y*stride:]
		for x := 0; x < w; x++ {
			i := x * 4
			g := uint8((77*uint32(row[i]) + 150*uint32(row[i+1]) + 29*uint32(row[i+2])) >> 8)
			gray[idx] = g
			hist[g]++
			idx++
		}
	}
	t, ok := otsu(hist[:], n)
	mask := make([]bool, n)
	if !ok {
		// Unimodal region (a flat, drained bar): there is no filled class
		// to separate, so nothing counts as filled.
		return mask
	}
	for i, g := range gray {
		mask[i] = g > t
	}
	return mask
}

// otsu picks the grayscale threshold maximizing between-class variance. It
// reports false when the histogram is unimodal and no split exists.
func otsu(hist []int, total int) (uint8, bool) {
	var sum float64
	for v, c := range hist {
		sum += float64(v) * float64(c)
	}
	var sumB, wB float64
	var best float64
	var threshold uint8
	for v := 0; v < 256; v++ {
		wB += float64(hist[v])
		if wB == 0 {
			continue
		}
		wF := float64(total) - wB
		if wF == 0 {
			break
		}
		sumB += float64(v) * float64(hist[v])
		mB := sumB / wB
		mF := (sum - sumB) / wF
		between := wB * wF * (mB - mF) * (mB - mF)
		if between > best {
			best = between
			threshold = uint8(v)
		}
	}
	return threshold, best > 0
}

// projection reduces the mask to average cross-axis occupancy per position
// along the fill axis.
func projection(mask []bool, w, h int, horizontal bool) []float64 {
	if horizontal {
		proj := make([]float64, w)
		for x := 0; x < w; x++ {
			on := 0
			for y := 0; y < h; y++ {
				if mask[y*w+x] {
					on++
				}
			}
			proj[x] = float64(on) / float64(h)
		}
		return proj
	}
	proj := make([]float64, h)
	for y := 0; y < h; y++ {
		on := 0
		for x := 0; x < w; x++ {
			if mask[y*w+x] {
				on++
			}
		}
		proj[y] = float64(on) / float64(w)
	}
	return proj
}

// simpleRatio is the fraction of axis positions whose occupancy exceeds the
// threshold.
func simpleRatio(proj []float64) float64 {
	on := 0
	for _, p := range proj {
		if p > occupancyThreshold {
			on++
		}
	}
	return float64(on) / float64(len(proj))
}

// edgeScan walks from the fill-start side tracking the last filled position,
// tolerating short gaps from borders or grid lines before concluding the
// fill has ended.
func edgeScan(proj []float64, reversed bool) float64 {
	n := len(proj)
	maxGap := n / 50
	if maxGap < 2 {
		maxGap = 2
	}
	last := -1
	gap := 0
	for i := 0; i < n; i++ {
		pos := i
		if reversed {
			pos = n - 1 - i
		}
		if proj[pos] > occupancyThreshold {
			last = i
			gap = 0
		} else {
			gap++
			if gap > maxGap && last >= 0 {
				break
			}
		}
	}
	if last < 0 {
		return 0
	}
	return float64(last+1) / float64(n)
}

func clampPercent(p float64) float64 {
	if p < 0 {
		return 0
	}
	if p > 100 {
		return 100
	}
	return p
}
