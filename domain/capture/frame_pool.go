package capture

import (
	"image"
	"sync"
)

// Reusable RGBA frame pool. Region extraction runs every cycle for every
// meter target; recycling the backing slices keeps large captures from
// churning the heap. Consumers that never call Recycle degrade gracefully
// to plain allocation.

var framePool sync.Pool // stores *image.RGBA

// Acquire returns an RGBA image sized to rect whose Pix capacity is at
// least the rect area * 4. Stride is width*4.
func Acquire(rect image.Rectangle) *image.RGBA {
	w, h := rect.Dx(), rect.Dy()
	if w <= 0 || h <= 0 {
		return &image.RGBA{Rect: rect}
	}
	needed := w * h * 4
	var img *image.RGBA
	if v := framePool.Get(); v != nil {
		img = v.(*image.RGBA)
	}
	if img == nil || cap(img.Pix) < needed {
		return &image.RGBA{Pix: make([]byte, needed), Stride: w * 4, Rect: rect}
	}
	img.Stride = w * 4
	img.Rect = rect
	img.Pix = img.Pix[:needed]
	return img
}

// Recycle returns img to the pool. The caller must not touch img afterward.
func Recycle(img *image.RGBA) {
	if img == nil || img.Pix == nil {
		return
	}
	framePool.Put(img)
}
