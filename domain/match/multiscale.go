package match

import (
	"context"
	"image"
	"runtime"
	"sync"

	"github.com/disintegration/imaging"
)

// ScaleOptions configures multi-scale matching. Factors are generated from
// Min..Max using Step when Scales is empty. StopOnScore, when > 0, ends the
// search early once any scale reaches that score.
type ScaleOptions struct {
	Scales      []float64
	Min, Max    float64
	Step        float64
	StopOnScore float64
}

const maxScaleSteps = 200

func (o ScaleOptions) factors() []float64 {
	if len(o.Scales) > 0 {
		return o.Scales
	}
	if o.Min <= 0 || o.Max <= 0 || o.Step <= 0 || o.Max < o.Min {
		return []float64{1.0}
	}
	out := make([]float64, 0, maxScaleSteps)
	for s := o.Min; s <= o.Max+1e-9 && len(out) < maxScaleSteps; s += o.Step {
		out = append(out, s)
	}
	return out
}

// ScaledResult is the best match found across scales.
type ScaledResult struct {
	Result
	Scale           float64
	ScalesEvaluated int
}

// MultiScale evaluates alg against the template resized by each factor and
// returns the best-scoring result. Scales run in parallel, bounded by CPU
// count; cancellation aborts outstanding scales.
func MultiScale(ctx context.Context, alg Algorithm, frame *image.RGBA, tmpl image.Image, threshold float64, opts ScaleOptions) ScaledResult {
	if frame == nil || tmpl == nil {
		return ScaledResult{Result: Result{Threshold: threshold, Confidence: -1, Err: errNilTemplate}}
	}
	factors := opts.factors()
	type scaled struct {
		res   Result
		scale float64
	}
	results := make(chan scaled, len(factors))
	stop := make(chan struct{})
	var stopOnce sync.Once

	var wg sync.WaitGroup
	sem := make(chan struct{}, runtime.NumCPU())
	tb := tmpl.Bounds()
	for _, f := range factors {
		if f <= 0 {
			continue
		}
		wg.Add(1)
		sem <- struct{}{}
		go func(factor float64) {
			defer wg.Done()
			defer func() { <-sem }()
			select {
			case <-stop:
				return
			default:
			}
			t := tmpl
			if factor != 1.0 {
				w := int(float64(tb.Dx()) * factor)
				h := int(float64(tb.Dy()) * factor)
				if w < 2 || h < 2 {
					return
				}
				t = imaging.Resize(t, w, h, imaging.Linear)
			}
			res := alg.Detect(ctx, frame, t, threshold)
			results <- scaled{res: res, scale: factor}
			if opts.StopOnScore > 0 && res.Confidence >= opts.StopOnScore {
				stopOnce.Do(func() { close(stop) })
			}
		}(f)
	}
	go func() {
		wg.Wait()
		close(results)
	}()

	best := ScaledResult{Result: Result{Threshold: threshold, Confidence: -1}, Scale: 1.0}
	for r := range results {
		best.ScalesEvaluated++
		if r.res.Err != nil && best.Err == nil && best.Confidence < 0 {
			best.Err = r.res.Err
			continue
		}
		if r.res.Confidence > best.Confidence {
			best.Result = r.res
			best.Scale = r.scale
		}
	}
	if best.Confidence >= 0 {
		best.Err = nil
	}
	return best
}
