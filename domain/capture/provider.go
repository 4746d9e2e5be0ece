package capture

import (
	"errors"
	"image"

	"github.com/soval/screen-trigger-go/domain/target"
)

// Monitor describes one attached display.
type Monitor struct {
	Index  int
	Bounds image.Rectangle
}

// Window describes one enumerable top-level window.
type Window struct {
	Title   string
	Process string
}

// Provider is the external frame source consumed by the detection engine.
// Supported reports platform availability with a human-readable reason so
// the engine can degrade gracefully instead of crashing.
type Provider interface {
	Frame() (*image.RGBA, error)
	ApplyRegion(frame *image.RGBA, r target.Region) (*image.RGBA, error)
	Monitors() ([]Monitor, error)
	Windows() ([]Window, error)
	RequiredWindowFocused(process, titleContains string) bool
	Supported() (bool, string)
}

var (
	errNilFrame    = errors.New("capture: nil frame")
	errEmptyRegion = errors.New("capture: region outside frame")
)

// ExtractRegion copies the part of frame selected by r into a pooled RGBA
// image. RegionFull returns the frame itself without copying.
func ExtractRegion(frame *image.RGBA, r target.Region) (*image.RGBA, error) {
	if frame == nil {
		return nil, errNilFrame
	}
	switch r.Kind {
	case target.RegionFull:
		return frame, nil
	case target.RegionGrid:
		rect := gridBounds(frame.Bounds(), r.GridMask)
		if rect.Empty() {
			return nil, errEmptyRegion
		}
		return copyRect(frame, rect), nil
	case target.RegionRect:
		rect := r.Rect.Intersect(frame.Bounds())
		if rect.Empty() {
			return nil, errEmptyRegion
		}
		return copyRect(frame, rect), nil
	default:
		return nil, errEmptyRegion
	}
}

// gridBounds returns the bounding rectangle of the selected 3x3 cells.
// Bit i of mask selects cell (i%3, i/3).
func gridBounds(frame image.Rectangle, mask uint16) image.Rectangle {
	if mask == 0 {
		return image.Rectangle{}
	}
	w := frame.Dx()
	h := frame.Dy()
	cellW := w / 3
	cellH := h / 3
	var out image.Rectangle
	for i := 0; i < 9; i++ {
		if mask&(1<<uint(i)) == 0 {
			continue
		}
		cx := i % 3
		cy := i / 3
		x0 := frame.Min.X + cx*cellW
		y0 := frame.Min.Y + cy*cellH
		x1 := x0 + cellW
		y1 := y0 + cellH
		if cx == 2 {
			x1 = frame.Max.X
		}
		if cy == 2 {
			y1 = frame.Max.Y
		}
		cell := image.Rect(x0, y0, x1, y1)
		if out.Empty() {
			out = cell
		} else {
			out = out.Union(cell)
		}
	}
	return out
}

// copyRect copies rect out of src into a pooled image normalized to origin
// (0,0). Callers that are done with the copy should Recycle it.
func copyRect(src *image.RGBA, rect image.Rectangle) *image.RGBA {
	w, h := rect.Dx(), rect.Dy()
	dst := Acquire(image.Rect(0, 0, w, h))
	for y := 0; y < h; y++ {
		srcOff := (rect.Min.Y-src.Rect.Min.Y+y)*src.Stride + (rect.Min.X-src.Rect.Min.X)*4
		copy(dst.Pix[y*dst.Stride:y*dst.Stride+w*4], src.Pix[srcOff:srcOff+w*4])
	}
	return dst
}
