package meter

import (
	"image"
	"image/color"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/soval/screen-trigger-go/domain/target"
)

func TestDominantHSVRangeSolidRed(t *testing.T) {
	img := bar(20, 20, barRed, barRed, nil)

	rng := DominantHSVRange(img)
	require.NotNil(t, rng)
	require.False(t, rng.Wraps())
	require.LessOrEqual(t, rng.HueLo, 1.0)
	require.LessOrEqual(t, rng.HueHi, 10.0)
	require.Greater(t, rng.SatLo, 100.0)
	require.Greater(t, rng.ValLo, 100.0)

	// The derived range must accept the color it was calibrated from.
	h, s, v := rgbToHSV(barRed.R, barRed.G, barRed.B)
	require.True(t, hueInRange(h, rng.HueLo, rng.HueHi))
	require.GreaterOrEqual(t, s, rng.SatLo)
	require.GreaterOrEqual(t, v, rng.ValLo)
}

func TestDominantHSVRangeFeedsFillPercent(t *testing.T) {
	img := bar(100, 20, barRed, barDark, func(x, y int) bool { return x < 75 })
	rng := DominantHSVRange(bar(20, 20, barRed, barRed, nil))
	require.NotNil(t, rng)

	cfg := target.MeterConfig{Direction: target.FillLeftToRight, ColorHint: rng}
	require.InDelta(t, 75, FillPercent(img, cfg), 1.5)
}

func TestDominantHSVRangeWrapAround(t *testing.T) {
	// Half the pixels sit just below the hue boundary, half just above it.
	magenta := color.RGBA{200, 20, 50, 255} // hue ~175
	red := color.RGBA{200, 20, 20, 255}     // hue 0
	img := bar(20, 20, magenta, red, func(x, y int) bool { return x < 10 })

	rng := DominantHSVRange(img)
	require.NotNil(t, rng)
	require.True(t, rng.Wraps())
	require.Greater(t, rng.HueLo, 90.0)
	require.Less(t, rng.HueHi, 20.0)
	require.True(t, hueInRange(0, rng.HueLo, rng.HueHi))
	require.True(t, hueInRange(175, rng.HueLo, rng.HueHi))
}

func TestDominantHSVRangeWhiteBarFallback(t *testing.T) {
	// A desaturated bar carries no hue signal; bounds come from brightness.
	white := color.RGBA{205, 205, 205, 255}
	img := bar(20, 20, white, white, nil)

	rng := DominantHSVRange(img)
	require.NotNil(t, rng)
	require.Equal(t, 0.0, rng.HueLo)
	require.Equal(t, 179.0, rng.HueHi)
	require.Equal(t, 90.0, rng.SatHi)
	require.InDelta(t, 195, rng.ValLo, 2)
}

func TestDominantHSVRangeDegenerate(t *testing.T) {
	require.Nil(t, DominantHSVRange(nil))
	require.Nil(t, DominantHSVRange(image.NewRGBA(image.Rect(0, 0, 1, 5))))
}
