package protocol

import (
	"bytes"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"math"
	"strings"
)

// Keys every version 0 header carries besides "version".
var headerKeysV0 = []string{"led_count", "duration", "fps", "author", "title", "school"}

// DecodeHeader parses a header record. A leading Marker and trailing line
// terminators are tolerated so EncodeHeader output decodes as-is.
func DecodeHeader(line string) (Header, error) {
	line = trimRecord(line)

	var raw map[string]json.RawMessage
	if err := json.Unmarshal([]byte(line), &raw); err != nil {
		return Header{}, fmt.Errorf("%w: %v", ErrParse, err)
	}

	versionRaw, ok := raw["version"]
	if !ok {
		return Header{}, ErrMissingVersion
	}
	var h Header
	version, err := decodeVersion(versionRaw)
	if err != nil {
		return Header{}, err
	}
	h.Version = version
	if h.Version != Version {
		return Header{}, fmt.Errorf("%w: %d", ErrUnsupportedVersion, h.Version)
	}

	for _, key := range headerKeysV0 {
		if _, ok := raw[key]; !ok {
			return Header{}, fmt.Errorf("%w: missing %s", ErrIncompleteHeader, key)
		}
	}

	targets := map[string]any{
		"led_count": &h.LEDCount,
		"duration":  &h.Duration,
		"fps":       &h.FPS,
		"author":    &h.Author,
		"title":     &h.Title,
		"school":    &h.School,
	}
	for _, key := range headerKeysV0 {
		if err := decodeField(key, raw[key], targets[key]); err != nil {
			return Header{}, err
		}
	}

	if err := validateHeader(h); err != nil {
		return Header{}, err
	}
	return h, nil
}

// DecodeFrame parses exactly 6*ledCount hex characters into a Frame.
func DecodeFrame(text string, ledCount, version int) (Frame, error) {
	if version != Version {
		return nil, fmt.Errorf("%w: frame version %d", ErrUnsupportedVersion, version)
	}
	if ledCount < 0 || ledCount > MaxLEDCount {
		return nil, fmt.Errorf("%w: led_count=%d", ErrOutOfRange, ledCount)
	}
	if len(text) != hexPerLED*ledCount {
		return nil, fmt.Errorf("%w: frame has %d chars, want %d", ErrLengthMismatch, len(text), hexPerLED*ledCount)
	}
	raw, err := hex.DecodeString(text)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrParse, err)
	}
	f := make(Frame, ledCount)
	for i := range f {
		f[i] = Color{R: raw[3*i], G: raw[3*i+1], B: raw[3*i+2]}
	}
	return f, nil
}

// decodeVersion accepts any integral JSON number, so 0.0 reads as 0.
func decodeVersion(value json.RawMessage) (int, error) {
	var v any
	if err := json.Unmarshal(value, &v); err != nil {
		return 0, fmt.Errorf("%w: version: %v", ErrTypeMismatch, err)
	}
	n, ok := v.(float64)
	if !ok || n != math.Trunc(n) || math.Abs(n) > math.MaxInt32 {
		return 0, fmt.Errorf("%w: version is %s", ErrTypeMismatch, bytes.TrimSpace(value))
	}
	return int(n), nil
}

func decodeField(key string, value json.RawMessage, out any) error {
	if bytes.Equal(bytes.TrimSpace(value), []byte("null")) {
		return fmt.Errorf("%w: %s is null", ErrTypeMismatch, key)
	}
	if err := json.Unmarshal(value, out); err != nil {
		return fmt.Errorf("%w: %s: %v", ErrTypeMismatch, key, err)
	}
	return nil
}

func trimRecord(line string) string {
	line = strings.TrimRight(line, "\r\n")
	return strings.TrimPrefix(line, string(Marker))
}
