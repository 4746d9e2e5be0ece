package match

import (
	"context"
	"errors"
	"image"
	"math"
	"time"
)

var (
	errNilFrame      = errors.New("match: nil frame")
	errNilTemplate   = errors.New("match: nil template")
	errEmptyTemplate = errors.New("match: empty template")
	errFrameTooSmall = errors.New("match: frame smaller than template")
)

// grayPre stores per-frame grayscale values and their summed-area tables
// (integral images). The integrals allow O(1) window sum and variance queries.
type grayPre struct {
	gray       []float64
	integral   []float64
	integralSq []float64
	W, H       int
}

// tmplPre caches grayscale pixels and summary statistics for a template.
// Pixels with alpha==0 carry zero weight in the masked matcher.
type tmplPre struct {
	gray   []float32
	opaque []bool
	nMask  int // count of opaque pixels
	W, H   int
	meanT  float64
	stdT   float64
	// masked statistics over opaque pixels only
	meanMask float64
	stdMask  float64
}

func buildGrayPre(frame *image.RGBA) *grayPre {
	b := frame.Bounds()
	W, H := b.Dx(), b.Dy()
	need := W * H
	p := &grayPre{
		gray:       make([]float64, need),
		integral:   make([]float64, need),
		integralSq: make([]float64, need),
		W:          W,
		H:          H,
	}
	pix := frame.Pix
	stride := frame.Stride
	for y := 0; y < H; y++ {
		var rowSum, rowSum2 float64
		row := pix[y*stride:]
		for x := 0; x < W; x++ {
			i := x * 4
			var gray float64
			if row[i+3] != 0 {
				gray = 0.2126*float64(row[i]) + 0.7152*float64(row[i+1]) + 0.0722*float64(row[i+2])
			}
			off := y*W + x
			p.gray[off] = gray
			rowSum += gray
			rowSum2 += gray * gray
			if y == 0 {
				p.integral[off] = rowSum
				p.integralSq[off] = rowSum2
			} else {
				p.integral[off] = p.integral[(y-1)*W+x] + rowSum
				p.integralSq[off] = p.integralSq[(y-1)*W+x] + rowSum2
			}
		}
	}
	return p
}

func buildTmplPre(tmpl image.Image) *tmplPre {
	b := tmpl.Bounds()
	w, h := b.Dx(), b.Dy()
	if w == 0 || h == 0 {
		return nil
	}
	pc := &tmplPre{gray: make([]float32, w*h), opaque: make([]bool, w*h), W: w, H: h}
	var sumT, sumT2, sumM, sumM2 float64
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			r, g, bb, a := tmpl.At(b.Min.X+x, b.Min.Y+y).RGBA()
			off := y*w + x
			if a == 0 {
				continue
			}
			gval := (0.2126*float64(r) + 0.7152*float64(g) + 0.0722*float64(bb)) / 257.0
			pc.gray[off] = float32(gval)
			pc.opaque[off] = true
			pc.nMask++
			sumT += gval
			sumT2 += gval * gval
			sumM += gval
			sumM2 += gval * gval
		}
	}
	n := float64(w * h)
	pc.meanT = sumT / n
	if v := (sumT2 - sumT*sumT/n) / n; v > 0 {
		pc.stdT = math.Sqrt(v)
	}
	if pc.nMask > 0 {
		m := float64(pc.nMask)
		pc.meanMask = sumM / m
		if v := (sumM2 - sumM*sumM/m) / m; v > 0 {
			pc.stdMask = math.Sqrt(v)
		}
	}
	return pc
}

// integralSum returns the inclusive sum over rectangle [x0..x1] x [y0..y1]
// from an integral image stored in row-major order with width W.
func integralSum(I []float64, W int, x0, y0, x1, y1 int) float64 {
	a := func(x, y int) float64 {
		if x < 0 || y < 0 {
			return 0
		}
		return I[y*W+x]
	}
	return a(x1, y1) - a(x0-1, y1) - a(x1, y0-1) + a(x0-1, y0-1)
}

// NCC matches a template by normalized cross-correlation over grayscale
// integral images. Template alpha is ignored; use MaskedNCC for irregular
// shapes.
type NCC struct{}

func (NCC) Name() string              { return "ncc" }
func (NCC) Available() (bool, string) { return true, "" }

// Detect scans the frame for the best-scoring window and reports Found when
// the best score reaches threshold. Cancellation is checked between rows.
func (NCC) Detect(ctx context.Context, frame *image.RGBA, tmpl image.Image, threshold float64) Result {
	start := time.Now()
	res := Result{Threshold: threshold, Confidence: -1}
	pre, pc, err := prepare(frame, tmpl)
	if err != nil {
		res.Err = err
		return res
	}
	W, H := pre.W, pre.H
	w, h := pc.W, pc.H
	n := float64(w * h)

	if pc.stdT <= 1e-9 {
		// Uniform template: fall back to exact grayscale comparison.
		ref := float64(pc.gray[0])
		for y := 0; y <= H-h; y++ {
			if canceled(ctx) {
				res.Err = ctx.Err()
				return res
			}
			for x := 0; x <= W-w; x++ {
				if windowUniform(pre, x, y, w, h, ref) {
					loc := image.Pt(x, y)
					size := image.Pt(w, h)
					res.Location, res.Size = &loc, &size
					res.Confidence = 1
					res.Found = threshold <= 1
					res.Elapsed = time.Since(start)
					return res
				}
			}
		}
		res.Elapsed = time.Since(start)
		return res
	}

	bestX, bestY, best := 0, 0, -1.0
	for y := 0; y <= H-h; y++ {
		if canceled(ctx) {
			res.Err = ctx.Err()
			return res
		}
		for x := 0; x <= W-w; x++ {
			sumF := integralSum(pre.integral, W, x, y, x+w-1, y+h-1)
			sumF2 := integralSum(pre.integralSq, W, x, y, x+w-1, y+h-1)
			meanF := sumF / n
			varF := (sumF2 - sumF*sumF/n) / n
			if varF <= 1e-9 {
				continue
			}
			var sumFT float64
			for ty := 0; ty < h; ty++ {
				rowF := pre.gray[(y+ty)*W+x:]
				rowT := pc.gray[ty*w:]
				for tx := 0; tx < w; tx++ {
					sumFT += rowF[tx] * float64(rowT[tx])
				}
			}
			numer := sumFT - n*meanF*pc.meanT
			denom := n * math.Sqrt(varF) * pc.stdT
			if denom <= 0 {
				continue
			}
			if score := numer / denom; score > best {
				best, bestX, bestY = score, x, y
			}
		}
	}
	loc := image.Pt(bestX, bestY)
	size := image.Pt(w, h)
	res.Location, res.Size = &loc, &size
	res.Confidence = best
	res.Found = best >= threshold
	res.Elapsed = time.Since(start)
	return res
}

// MaskedNCC is the masked variant: template pixels with alpha==0 are excluded
// from the correlation entirely, enabling matching on irregularly shaped
// icons at the cost of per-window frame statistics.
type MaskedNCC struct{}

func (MaskedNCC) Name() string              { return "ncc-masked" }
func (MaskedNCC) Available() (bool, string) { return true, "" }

func (MaskedNCC) Detect(ctx context.Context, frame *image.RGBA, tmpl image.Image, threshold float64) Result {
	start := time.Now()
	res := Result{Threshold: threshold, Confidence: -1}
	pre, pc, err := prepare(frame, tmpl)
	if err != nil {
		res.Err = err
		return res
	}
	if pc.nMask == 0 {
		res.Err = errEmptyTemplate
		return res
	}
	W, H := pre.W, pre.H
	w, h := pc.W, pc.H
	m := float64(pc.nMask)

	// Flatten the opaque pixel list once; the window scan then touches only
	// masked positions.
	type mp struct {
		dx, dy int
		val    float64
	}
	pixels := make([]mp, 0, pc.nMask)
	for ty := 0; ty < h; ty++ {
		for tx := 0; tx < w; tx++ {
			if pc.opaque[ty*w+tx] {
				pixels = append(pixels, mp{dx: tx, dy: ty, val: float64(pc.gray[ty*w+tx])})
			}
		}
	}

	bestX, bestY, best := 0, 0, -1.0
	for y := 0; y <= H-h; y++ {
		if canceled(ctx) {
			res.Err = ctx.Err()
			return res
		}
		for x := 0; x <= W-w; x++ {
			var sumF, sumF2, sumFT float64
			for _, p := range pixels {
				fv := pre.gray[(y+p.dy)*W+(x+p.dx)]
				sumF += fv
				sumF2 += fv * fv
				sumFT += fv * p.val
			}
			meanF := sumF / m
			varF := (sumF2 - sumF*sumF/m) / m
			if varF <= 1e-9 || pc.stdMask <= 1e-9 {
				continue
			}
			numer := sumFT - m*meanF*pc.meanMask
			denom := m * math.Sqrt(varF) * pc.stdMask
			if denom <= 0 {
				continue
			}
			if score := numer / denom; score > best {
				best, bestX, bestY = score, x, y
			}
		}
	}
	loc := image.Pt(bestX, bestY)
	size := image.Pt(w, h)
	res.Location, res.Size = &loc, &size
	res.Confidence = best
	res.Found = best >= threshold
	res.Elapsed = time.Since(start)
	return res
}

func prepare(frame *image.RGBA, tmpl image.Image) (*grayPre, *tmplPre, error) {
	if frame == nil {
		return nil, nil, errNilFrame
	}
	if tmpl == nil {
		return nil, nil, errNilTemplate
	}
	fb := frame.Bounds()
	tb := tmpl.Bounds()
	if tb.Dx() == 0 || tb.Dy() == 0 {
		return nil, nil, errEmptyTemplate
	}
	if fb.Dx() < tb.Dx() || fb.Dy() < tb.Dy() {
		return nil, nil, errFrameTooSmall
	}
	pc := buildTmplPre(tmpl)
	if pc == nil {
		return nil, nil, errEmptyTemplate
	}
	return buildGrayPre(frame), pc, nil
}

func windowUniform(pre *grayPre, x, y, w, h int, ref float64) bool {
	for ty := 0; ty < h; ty++ {
		row := pre.gray[(y+ty)*pre.W+x:]
		for tx := 0; tx < w; tx++ {
			if math.Abs(row[tx]-ref) > 1e-9 {
				return false
			}
		}
	}
	return true
}

func canceled(ctx context.Context) bool {
	if ctx == nil {
		return false
	}
	select {
	case <-ctx.Done():
		return true
	default:
		return false
	}
}
