package protocol

// Marker starts every protocol line.
const Marker byte = '#'

// Version is the only header/frame generation currently defined.
const Version = 0

// Producer defaults.
const (
	DefaultLEDCount = 500
	LegacyLEDCount  = 300
	DefaultFPS      = 60

	// MaxLEDCount bounds led_count so frame sizes stay allocatable. It
	// matches the 16-bit field of the binary format.
	MaxLEDCount = 1 << 16
)

// DefaultDuration is three minutes of frames at DefaultFPS.
var DefaultDuration = ToDuration(3, 0, DefaultFPS)

// Header is the per-stream session metadata sent once before any frame.
type Header struct {
	Version  int    `json:"version"`
	LEDCount int    `json:"led_count"`
	Duration int    `json:"duration"`
	FPS      int    `json:"fps"`
	Author   string `json:"author"`
	Title    string `json:"title"`
	School   string `json:"school"`
}

// Color is one LED value.
type Color struct {
	R uint8
	G uint8
	B uint8
}

// Frame holds one color per LED for a single time step.
type Frame []Color

// Black returns an all-off frame for ledCount LEDs.
func Black(ledCount int) Frame {
	if ledCount <= 0 {
		return Frame{}
	}
	return make(Frame, ledCount)
}

// Clone returns a copy that shares no memory with f.
func (f Frame) Clone() Frame {
	if f == nil {
		return nil
	}
	out := make(Frame, len(f))
	copy(out, f)
	return out
}

// Equal reports whether f and other hold the same colors in the same order.
func (f Frame) Equal(other Frame) bool {
	if len(f) != len(other) {
		return false
	}
	for i := range f {
		if f[i] != other[i] {
			return false
		}
	}
	return true
}

// ToDuration converts a wall-clock length into a frame count.
func ToDuration(minutes, seconds, fps int) int {
	return (minutes*60 + seconds) * fps
}
