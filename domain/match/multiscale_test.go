package match

import (
	"context"
	"image"
	"testing"

	"github.com/disintegration/imaging"
	"github.com/stretchr/testify/require"
)

func TestMultiScaleFindsResizedTemplate(t *testing.T) {
	// The frame contains the template at 1.5x its reference size.
	tmpl := checkerTemplate(8, 8)
	big := imaging.Resize(tmpl, 12, 12, imaging.Linear)
	frame := synthFrame(96, 96, 128, nil)
	for y := 0; y < 12; y++ {
		for x := 0; x < 12; x++ {
			frame.Set(40+x, 30+y, big.At(x, y))
		}
	}

	res := MultiScale(context.Background(), NCC{}, frame, tmpl, 0.85, ScaleOptions{
		Min: 0.5, Max: 2.0, Step: 0.25,
	})
	require.NoError(t, res.Err)
	require.True(t, res.Found)
	require.InDelta(t, 1.5, res.Scale, 0.26)
	require.InDelta(t, 40, float64(res.Location.X), 2)
	require.InDelta(t, 30, float64(res.Location.Y), 2)
}

func TestMultiScaleDefaultsToUnitScale(t *testing.T) {
	// Without a valid scale range only factor 1.0 is evaluated.
	tmpl := checkerTemplate(8, 8)
	frame := synthFrame(32, 32, 128, func(img *image.RGBA) { stamp(img, 10, 10, 8, 8) })

	res := MultiScale(context.Background(), NCC{}, frame, tmpl, 0.9, ScaleOptions{})
	require.NoError(t, res.Err)
	require.True(t, res.Found)
	require.Equal(t, 1.0, res.Scale)
	require.Equal(t, 1, res.ScalesEvaluated)
}
