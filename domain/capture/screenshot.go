package capture

import (
	"image"
	"log/slog"
	"runtime"

	"github.com/vova616/screenshot"

	"github.com/soval/screen-trigger-go/domain/target"
)

// ScreenProvider implements Provider on top of the screenshot library,
// grabbing the active monitor (or a sub-rectangle) per call.
type ScreenProvider struct {
	logger *slog.Logger
}

// NewScreenProvider returns the default screen-backed provider.
func NewScreenProvider(logger *slog.Logger) *ScreenProvider {
	return &ScreenProvider{logger: logger}
}

// Frame captures the current screen.
func (p *ScreenProvider) Frame() (*image.RGBA, error) {
	return screenshot.CaptureScreen()
}

// ApplyRegion extracts the configured sub-region from frame.
func (p *ScreenProvider) ApplyRegion(frame *image.RGBA, r target.Region) (*image.RGBA, error) {
	return ExtractRegion(frame, r)
}

// Monitors reports the primary screen rectangle. The underlying library
// exposes a single logical screen.
func (p *ScreenProvider) Monitors() ([]Monitor, error) {
	rect, err := screenshot.ScreenRect()
	if err != nil {
		return nil, err
	}
	return []Monitor{{Index: 0, Bounds: rect}}, nil
}

// Windows enumerates visible top-level windows where the platform supports
// it; elsewhere it returns an empty list.
func (p *ScreenProvider) Windows() ([]Window, error) {
	return listWindows()
}

// RequiredWindowFocused reports whether the foreground window matches the
// given process name and/or case-insensitive title substring. Platforms
// without a focus query never gate.
func (p *ScreenProvider) RequiredWindowFocused(process, titleContains string) bool {
	if process == "" && titleContains == "" {
		return true
	}
	return requiredWindowFocused(process, titleContains)
}

// Supported reports whether screen capture works on this platform.
func (p *ScreenProvider) Supported() (bool, string) {
	switch runtime.GOOS {
	case "windows", "linux":
		return true, ""
	default:
		return false, "screen capture requires windows or x11"
	}
}

var _ Provider = (*ScreenProvider)(nil)
