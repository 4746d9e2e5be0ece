package target

import (
	"fmt"
	"image"
)

// Kind selects how a target is evaluated each cycle.
type Kind int

const (
	KindTemplate Kind = iota
	KindMeter
)

func (k Kind) String() string {
	switch k {
	case KindTemplate:
		return "template"
	case KindMeter:
		return "meter"
	default:
		return "unknown"
	}
}

// RegionKind selects which part of the frame a target is evaluated against.
type RegionKind int

const (
	RegionFull RegionKind = iota
	RegionGrid            // 3x3 cell mask, bit i = cell (i%3, i/3)
	RegionRect            // custom rectangle in frame coordinates
)

// Region specifies the frame sub-area for a target. For RegionGrid the
// GridMask low nine bits select cells of a 3x3 partition; for RegionRect
// Rect holds absolute frame coordinates.
type Region struct {
	Kind     RegionKind
	GridMask uint16
	Rect     image.Rectangle
}

// FullRegion covers the whole frame.
func FullRegion() Region { return Region{Kind: RegionFull} }

// GridRegion selects the given 3x3 cells.
func GridRegion(mask uint16) Region { return Region{Kind: RegionGrid, GridMask: mask & 0x1FF} }

// RectRegion selects a custom rectangle.
func RectRegion(r image.Rectangle) Region { return Region{Kind: RegionRect, Rect: r} }

// FillDirection is the axis and direction a meter fills along.
type FillDirection int

const (
	FillLeftToRight FillDirection = iota
	FillRightToLeft
	FillBottomToTop
	FillTopToBottom
)

func (d FillDirection) String() string {
	switch d {
	case FillLeftToRight:
		return "ltr"
	case FillRightToLeft:
		return "rtl"
	case FillBottomToTop:
		return "btt"
	case FillTopToBottom:
		return "ttb"
	default:
		return "unknown"
	}
}

// Horizontal reports whether the fill axis is the X axis.
func (d FillDirection) Horizontal() bool {
	return d == FillLeftToRight || d == FillRightToLeft
}

// Reversed reports whether the fill starts at the high-coordinate side.
func (d FillDirection) Reversed() bool {
	return d == FillRightToLeft || d == FillBottomToTop
}

// IntensityMode controls how a meter delta maps to command intensity.
type IntensityMode int

const (
	IntensityScaled IntensityMode = iota
	IntensityDirect
	IntensityFixed
)

// HSVRange bounds a color hint in HSV space. Hue is in [0,179] (OpenCV
// convention); Sat and Val in [0,255]. When HueLo > HueHi the range wraps
// around the 0/179 boundary and matches the union of the two sub-ranges.
type HSVRange struct {
	HueLo, HueHi float64
	SatLo, SatHi float64
	ValLo, ValHi float64
}

// Wraps reports whether the hue range straddles the 0/179 boundary.
func (r HSVRange) Wraps() bool { return r.HueLo > r.HueHi }

// MeterConfig configures a meter target.
type MeterConfig struct {
	Direction       FillDirection
	MinDeltaPercent float64 // noise floor, percent points
	SmoothingFrames int     // moving-average window size
	EventCooldownMs int     // minimum spacing between emitted events
	DecreasesOnly   bool
	Intensity       IntensityMode
	ColorHint       *HSVRange // nil selects the contrast strategy

	// Optional window-focus gating. Empty values disable the check.
	FocusProcess       string
	FocusTitleContains string
}

// CooldownPolicy gates how often a template target may trigger.
type CooldownPolicy int

const (
	CooldownStandard CooldownPolicy = iota
	CooldownContinuous
	CooldownImageReset
)

func (p CooldownPolicy) String() string {
	switch p {
	case CooldownStandard:
		return "standard"
	case CooldownContinuous:
		return "continuous"
	case CooldownImageReset:
		return "image-reset"
	default:
		return "unknown"
	}
}

// CooldownConfig is the per-target cooldown policy.
type CooldownConfig struct {
	Policy   CooldownPolicy
	Duration int    // milliseconds
	ResetID  string // target id that clears the cooldown (ImageReset only)
}

// TemplateConfig configures a template target.
type TemplateConfig struct {
	ImagePath  string
	Threshold  float64
	Algorithm  string // registry name; empty selects the default
	AutoResize bool   // rescale reference to the capture resolution
}

// Command is the device command kind dispatched on a trigger.
type Command int

const (
	CommandShock Command = iota
	CommandVibrate
	CommandBeep
)

func (c Command) String() string {
	switch c {
	case CommandShock:
		return "shock"
	case CommandVibrate:
		return "vibrate"
	case CommandBeep:
		return "beep"
	default:
		return "unknown"
	}
}

// SelectionMode chooses which device addresses an action targets.
type SelectionMode int

const (
	SelectAll SelectionMode = iota
	SelectRandom
)

// ActionConfig maps an accepted event onto a device command.
type ActionConfig struct {
	Command         Command
	Intensity       int // max (Scaled/Direct) or fixed intensity
	DurationSeconds float64
	Selection       SelectionMode
	RandomMin       int
	RandomMax       int
	Addresses       []string
}

// Target is one configured detection target. The engine treats the value
// as immutable for the duration of a cycle.
type Target struct {
	ModuleID string
	ID       string
	Name     string
	Kind     Kind
	Enabled  bool
	Region   Region

	Template TemplateConfig
	Meter    MeterConfig
	Cooldown CooldownConfig
	Action   *ActionConfig // nil disables action dispatch for this target
}

// Key returns the moduleId/targetId state key for this target.
func (t *Target) Key() string { return Key(t.ModuleID, t.ID) }

// Key builds the canonical per-target state key.
func Key(moduleID, targetID string) string {
	return fmt.Sprintf("%s/%s", moduleID, targetID)
}

// Store is the read-only configuration collaborator. Enabled returns the
// targets to evaluate this cycle; the returned slice must not be mutated
// by the caller. OnChange registers a callback fired after any target
// mutation so the engine can invalidate caches.
type Store interface {
	Enabled() []*Target
	OnChange(func())
}
