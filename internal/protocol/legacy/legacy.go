// Package legacy implements the superseded binary jelka framing.
//
// Records are delimited by StartByte and EndByte. Frame payload bytes that
// collide with a control byte or a line terminator are substituted through a
// fixed escape table. Header numeric fields are written unescaped, so a
// led_count or duration whose big-endian bytes contain StartByte or EndByte
// cannot be split back out of a stream reliably.
//
// The text format in package protocol is canonical; this package exists to
// read and write historical streams.
package legacy

import (
	"bytes"
	"encoding/binary"
	"errors"
	"fmt"
	"strings"
	"unicode"
	"unicode/utf8"

	"github.com/jelka/validator/internal/protocol"
)

const (
	StartByte byte = 0x02
	EndByte   byte = 0x03

	MaxStringLen = 50

	stringEnd     byte = 0x00
	headerFixed        = 1 + 1 + 2 + 2
	minHeaderSize      = headerFixed + 2 + 1 + 1 + 1
)

var (
	ErrInvalidFraming = errors.New("legacy: invalid record framing")
	ErrInvalidString  = errors.New("legacy: invalid string")
)

// escapeTable is applied top to bottom on encode and bottom to top on decode.
var escapeTable = [...][2]byte{
	{0x0A, 0x0B},
	{0x0D, 0x0C},
	{0x0E, 0x0F},
	{StartByte, 0x01},
	{EndByte, 0x04},
}

// Header is the binary header. It predates fps and school.
type Header struct {
	Version  int
	LEDCount int
	Duration int
	Author   string
	Title    string
}

// Escape returns a copy of payload with every reserved byte substituted.
func Escape(payload []byte) []byte {
	out := bytes.Clone(payload)
	for _, sub := range escapeTable {
		replaceByte(out, sub[0], sub[1])
	}
	return out
}

// Unescape reverses Escape. Payloads that already contained a substitute
// byte before escaping do not survive the round trip.
func Unescape(payload []byte) []byte {
	out := bytes.Clone(payload)
	for i := len(escapeTable) - 1; i >= 0; i-- {
		replaceByte(out, escapeTable[i][1], escapeTable[i][0])
	}
	return out
}

func replaceByte(b []byte, from, to byte) {
	for i := range b {
		if b[i] == from {
			b[i] = to
		}
	}
}

// EncodeHeader builds a binary header record.
func EncodeHeader(author, title string, ledCount, duration int) ([]byte, error) {
	if ledCount < 0 || ledCount > 0xFFFF {
		return nil, fmt.Errorf("%w: led_count=%d", protocol.ErrOutOfRange, ledCount)
	}
	if duration < 0 || duration > 0xFFFF {
		return nil, fmt.Errorf("%w: duration=%d", protocol.ErrOutOfRange, duration)
	}
	if err := validateString(author); err != nil {
		return nil, fmt.Errorf("author: %w", err)
	}
	if err := validateString(title); err != nil {
		return nil, fmt.Errorf("title: %w", err)
	}

	buf := make([]byte, headerFixed, headerFixed+len(author)+len(title)+3)
	buf[0] = StartByte
	buf[1] = byte(protocol.Version)
	binary.BigEndian.PutUint16(buf[2:4], uint16(ledCount))
	binary.BigEndian.PutUint16(buf[4:6], uint16(duration))
	buf = append(buf, author...)
	buf = append(buf, stringEnd)
	buf = append(buf, title...)
	buf = append(buf, stringEnd, EndByte)
	return buf, nil
}

// DecodeHeader parses a complete binary header record including its
// start and end bytes.
func DecodeHeader(record []byte) (Header, error) {
	if len(record) < minHeaderSize {
		return Header{}, fmt.Errorf("%w: header has %d bytes, want at least %d", protocol.ErrLengthMismatch, len(record), minHeaderSize)
	}
	if record[0] != StartByte || record[len(record)-1] != EndByte {
		return Header{}, ErrInvalidFraming
	}
	h := Header{
		Version:  int(record[1]),
		LEDCount: int(binary.BigEndian.Uint16(record[2:4])),
		Duration: int(binary.BigEndian.Uint16(record[4:6])),
	}
	if h.Version != protocol.Version {
		return Header{}, fmt.Errorf("%w: %d", protocol.ErrUnsupportedVersion, h.Version)
	}

	authorEnd := bytes.IndexByte(record[headerFixed:], stringEnd)
	if authorEnd == -1 {
		return Header{}, fmt.Errorf("%w: author not terminated", ErrInvalidFraming)
	}
	authorEnd += headerFixed
	titleEnd := bytes.IndexByte(record[authorEnd+1:], stringEnd)
	if titleEnd == -1 {
		return Header{}, fmt.Errorf("%w: title not terminated", ErrInvalidFraming)
	}
	titleEnd += authorEnd + 1

	author := record[headerFixed:authorEnd]
	title := record[authorEnd+1 : titleEnd]
	if !utf8.Valid(author) || !utf8.Valid(title) {
		return Header{}, fmt.Errorf("%w: not utf-8", ErrInvalidString)
	}
	h.Author = string(author)
	h.Title = string(title)
	return h, nil
}

// EncodeFrame builds a binary frame record: start byte, escaped rgb bytes,
// end byte.
func EncodeFrame(f protocol.Frame, ledCount int) ([]byte, error) {
	if len(f) != ledCount {
		return nil, fmt.Errorf("%w: frame has %d/%d leds", protocol.ErrLengthMismatch, len(f), ledCount)
	}
	raw := make([]byte, 0, 3*len(f))
	for _, c := range f {
		raw = append(raw, c.R, c.G, c.B)
	}
	out := make([]byte, 0, len(raw)+2)
	out = append(out, StartByte)
	out = append(out, Escape(raw)...)
	return append(out, EndByte), nil
}

// DecodeFrame parses a complete binary frame record.
func DecodeFrame(record []byte, ledCount, version int) (protocol.Frame, error) {
	if version != protocol.Version {
		return nil, fmt.Errorf("%w: frame version %d", protocol.ErrUnsupportedVersion, version)
	}
	if ledCount < 0 || ledCount > protocol.MaxLEDCount {
		return nil, fmt.Errorf("%w: led_count=%d", protocol.ErrOutOfRange, ledCount)
	}
	want := 3*ledCount + 2
	if len(record) != want {
		return nil, fmt.Errorf("%w: frame has %d bytes, want %d", protocol.ErrLengthMismatch, len(record), want)
	}
	if record[0] != StartByte || record[len(record)-1] != EndByte {
		return nil, ErrInvalidFraming
	}
	raw := Unescape(record[1 : len(record)-1])
	f := make(protocol.Frame, ledCount)
	for i := range f {
		f[i] = protocol.Color{R: raw[3*i], G: raw[3*i+1], B: raw[3*i+2]}
	}
	return f, nil
}

func validateString(s string) error {
	if utf8.RuneCountInString(s) > MaxStringLen {
		return fmt.Errorf("%w: %q longer than %d characters", ErrInvalidString, s, MaxStringLen)
	}
	compact := strings.ReplaceAll(s, " ", "")
	if compact == "" {
		return fmt.Errorf("%w: %q has no alpha-numeric characters", ErrInvalidString, s)
	}
	for _, r := range compact {
		if !unicode.IsLetter(r) && !unicode.IsDigit(r) {
			return fmt.Errorf("%w: %q may only hold letters, digits and spaces", ErrInvalidString, s)
		}
	}
	return nil
}
