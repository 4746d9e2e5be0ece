package meter

import (
	"image"
	"image/color"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/soval/screen-trigger-go/domain/target"
)

// bar builds a w x h region painted bg everywhere and fg where keep is true.
func bar(w, h int, fg, bg color.RGBA, keep func(x, y int) bool) *image.RGBA {
	img := image.NewRGBA(image.Rect(0, 0, w, h))
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			if keep != nil && keep(x, y) {
				img.SetRGBA(x, y, fg)
			} else {
				img.SetRGBA(x, y, bg)
			}
		}
	}
	return img
}

var (
	barRed  = color.RGBA{220, 30, 30, 255}
	barDark = color.RGBA{40, 40, 40, 255}

	redHint = target.HSVRange{
		HueLo: 0, HueHi: 10,
		SatLo: 100, SatHi: 255,
		ValLo: 100, ValHi: 255,
	}
)

func TestFillPercentColorHintHorizontal(t *testing.T) {
	img := bar(100, 20, barRed, barDark, func(x, y int) bool { return x < 60 })
	cfg := target.MeterConfig{Direction: target.FillLeftToRight, ColorHint: &redHint}

	pct := FillPercent(img, cfg)
	require.InDelta(t, 60, pct, 1.5)
}

func TestFillPercentFullAndEmpty(t *testing.T) {
	cfg := target.MeterConfig{Direction: target.FillLeftToRight, ColorHint: &redHint}

	full := bar(100, 20, barRed, barDark, func(x, y int) bool { return true })
	require.InDelta(t, 100, FillPercent(full, cfg), 0.5)

	empty := bar(100, 20, barRed, barDark, nil)
	require.InDelta(t, 0, FillPercent(empty, cfg), 0.5)
}

func TestFillPercentRightToLeft(t *testing.T) {
	// Fill anchored at the high-x side, drained toward the left.
	img := bar(100, 20, barRed, barDark, func(x, y int) bool { return x >= 70 })
	cfg := target.MeterConfig{Direction: target.FillRightToLeft, ColorHint: &redHint}

	pct := FillPercent(img, cfg)
	require.InDelta(t, 30, pct, 1.5)
}

func TestFillPercentBottomToTop(t *testing.T) {
	img := bar(20, 100, barRed, barDark, func(x, y int) bool { return y >= 60 })
	cfg := target.MeterConfig{Direction: target.FillBottomToTop, ColorHint: &redHint}

	pct := FillPercent(img, cfg)
	require.InDelta(t, 40, pct, 1.5)
}

func TestFillPercentContrastStrategy(t *testing.T) {
	// No color hint: the bright half must win the automatic binarization.
	bright := color.RGBA{230, 230, 230, 255}
	dim := color.RGBA{25, 25, 25, 255}
	img := bar(100, 20, bright, dim, func(x, y int) bool { return x < 50 })
	cfg := target.MeterConfig{Direction: target.FillLeftToRight}

	pct := FillPercent(img, cfg)
	require.InDelta(t, 50, pct, 1.5)
}

func TestFillPercentToleratesSmallGaps(t *testing.T) {
	// A two-column notch (a grid line) must not end the edge scan early.
	img := bar(100, 20, barRed, barDark, func(x, y int) bool {
		return x < 60 && x != 20 && x != 21
	})
	cfg := target.MeterConfig{Direction: target.FillLeftToRight, ColorHint: &redHint}

	pct := FillPercent(img, cfg)
	require.InDelta(t, 60, pct, 1.5)
}

func TestFillPercentUniformRegionReadsEmpty(t *testing.T) {
	// A drained bar is one flat color; the contrast split must not invent a
	// filled class out of a unimodal histogram.
	cfg := target.MeterConfig{Direction: target.FillLeftToRight}

	dark := bar(100, 20, barDark, barDark, nil)
	require.InDelta(t, 0, FillPercent(dark, cfg), 0.5)

	bright := bar(100, 20, color.RGBA{230, 230, 230, 255}, color.RGBA{230, 230, 230, 255}, nil)
	require.InDelta(t, 0, FillPercent(bright, cfg), 0.5)
}

func TestFillPercentDegenerateRegion(t *testing.T) {
	cfg := target.MeterConfig{Direction: target.FillLeftToRight}
	require.Equal(t, -1.0, FillPercent(nil, cfg))
	require.Equal(t, -1.0, FillPercent(image.NewRGBA(image.Rect(0, 0, 0, 0)), cfg))
}

func TestHueInRangeWrapAround(t *testing.T) {
	require.True(t, hueInRange(175, 170, 10))
	require.True(t, hueInRange(3, 170, 10))
	require.False(t, hueInRange(90, 170, 10))
	require.True(t, hueInRange(90, 80, 100))
}
