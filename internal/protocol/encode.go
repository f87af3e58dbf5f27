package protocol

import (
	"encoding/hex"
	"encoding/json"
	"fmt"
	"unicode/utf8"
)

const hexPerLED = 6

// EncodeHeader renders h as a complete header line: Marker, JSON object,
// newline. Version is always written as the current Version.
func EncodeHeader(h Header) (string, error) {
	h.Version = Version
	if err := validateHeader(h); err != nil {
		return "", err
	}
	body, err := json.Marshal(h)
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrParse, err)
	}
	return string(Marker) + string(body) + "\n", nil
}

// EncodeFrame renders f as 6*ledCount lowercase hex characters, RRGGBB per
// LED in LED order. The Marker and terminator are not included.
func EncodeFrame(f Frame, ledCount int) (string, error) {
	if len(f) != ledCount {
		return "", fmt.Errorf("%w: frame has %d/%d leds", ErrLengthMismatch, len(f), ledCount)
	}
	raw := make([]byte, 0, 3*len(f))
	for _, c := range f {
		raw = append(raw, c.R, c.G, c.B)
	}
	return hex.EncodeToString(raw), nil
}

// FrameFromTriples converts loosely typed channel values into a Frame.
// Every element must hold exactly three channels in [0,255].
func FrameFromTriples(values [][]int) (Frame, error) {
	f := make(Frame, len(values))
	for i, rgb := range values {
		if len(rgb) != 3 {
			return nil, fmt.Errorf("%w: led %d has %d channels", ErrShape, i, len(rgb))
		}
		for _, v := range rgb {
			if v < 0 || v > 255 {
				return nil, fmt.Errorf("%w: led %d channel value %d", ErrShape, i, v)
			}
		}
		f[i] = Color{R: uint8(rgb[0]), G: uint8(rgb[1]), B: uint8(rgb[2])}
	}
	return f, nil
}

func validateHeader(h Header) error {
	if h.LEDCount <= 0 || h.LEDCount > MaxLEDCount {
		return fmt.Errorf("%w: led_count=%d", ErrOutOfRange, h.LEDCount)
	}
	if h.Duration < 0 {
		return fmt.Errorf("%w: duration=%d", ErrOutOfRange, h.Duration)
	}
	if h.FPS <= 0 {
		return fmt.Errorf("%w: fps=%d", ErrOutOfRange, h.FPS)
	}
	for key, v := range map[string]string{"author": h.Author, "title": h.Title, "school": h.School} {
		if !utf8.ValidString(v) {
			return fmt.Errorf("%w: %s is not valid utf-8", ErrTypeMismatch, key)
		}
	}
	return nil
}
