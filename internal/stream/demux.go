// Package stream splits a raw producer byte stream into user text and
// protocol records and keeps the decoded frame history of one stream.
//
// A Demuxer performs no I/O and is not safe for concurrent use. Receiver
// pairs a Demuxer with a byte source for callers that want one.
package stream

import (
	"fmt"

	"github.com/jelka/validator/internal/protocol"
)

// Mode is the byte-level state of a Demuxer.
type Mode int

const (
	ModeUser Mode = iota
	ModeProtocol
)

func (m Mode) String() string {
	switch m {
	case ModeUser:
		return "user"
	case ModeProtocol:
		return "protocol"
	default:
		return fmt.Sprintf("mode(%d)", int(m))
	}
}

// Stats counts what a Demuxer has seen.
type Stats struct {
	IngestedBytes int
	UserBytes     int
	Lines         int
	Frames        int
	Errors        int
}

// Demuxer owns the parse state of one stream. History only grows, the
// cursor only advances and a parsed header is never cleared.
type Demuxer struct {
	mode    Mode
	line    []byte
	pending []string
	user    []byte

	header *protocol.Header
	frames []protocol.Frame
	cursor int

	stats Stats
}

func NewDemuxer() *Demuxer {
	return &Demuxer{}
}

// Ingest feeds raw bytes. Chunk boundaries do not affect the result.
func (d *Demuxer) Ingest(p []byte) {
	d.stats.IngestedBytes += len(p)
	for _, b := range p {
		switch d.mode {
		case ModeUser:
			if b == protocol.Marker {
				d.mode = ModeProtocol
				continue
			}
			d.user = append(d.user, b)
			d.stats.UserBytes++
		case ModeProtocol:
			if b == '\n' || b == '\r' {
				d.pending = append(d.pending, string(d.line))
				d.line = d.line[:0]
				d.mode = ModeUser
				d.stats.Lines++
				continue
			}
			d.line = append(d.line, b)
		}
	}
}

// DrainUserText returns and clears the user text accumulated since the
// previous call.
func (d *Demuxer) DrainUserText() string {
	if len(d.user) == 0 {
		return ""
	}
	out := string(d.user)
	d.user = d.user[:0]
	return out
}

// TryParseHeader decodes the first queued line as the stream header. It is
// a no-op once a header is known or while no complete line is queued. On
// failure the line stays queued and a *LineError is returned.
func (d *Demuxer) TryParseHeader() error {
	if d.header != nil || len(d.pending) == 0 {
		return nil
	}
	line := d.pending[0]
	h, err := protocol.DecodeHeader(line)
	if err != nil {
		d.stats.Errors++
		return &LineError{Record: RecordHeader, Line: line, Err: err}
	}
	d.header = &h
	d.pending = d.pending[1:]
	return nil
}

// TryParseFrames decodes every queued line as a frame, in arrival order.
// It is a no-op until a header is known. The first failing line stays at
// the head of the queue; frames decoded before it are kept.
func (d *Demuxer) TryParseFrames() error {
	if d.header == nil {
		return nil
	}
	for len(d.pending) > 0 {
		line := d.pending[0]
		f, err := protocol.DecodeFrame(line, d.header.LEDCount, d.header.Version)
		if err != nil {
			d.stats.Errors++
			return &LineError{Record: RecordFrame, Index: len(d.frames), Line: line, Err: err}
		}
		d.frames = append(d.frames, f)
		d.pending = d.pending[1:]
		d.stats.Frames++
	}
	return nil
}

// Next advances the cursor and returns the frame due now. ok is false once
// the cursor passes a known non-zero duration. When the producer is behind,
// the latest arrived frame is repeated; before any frame arrives an
// all-black frame is returned.
func (d *Demuxer) Next() (f protocol.Frame, ok bool) {
	d.cursor++
	if d.header != nil && d.header.Duration > 0 && d.cursor > d.header.Duration {
		return nil, false
	}
	if len(d.frames) > 0 {
		i := min(d.cursor-1, len(d.frames)-1)
		return d.frames[i].Clone(), true
	}
	if d.header == nil {
		return protocol.Frame{}, true
	}
	return protocol.Black(d.header.LEDCount), true
}

func (d *Demuxer) Mode() Mode {
	return d.mode
}

func (d *Demuxer) HasHeader() bool {
	return d.header != nil
}

// Header returns a copy of the parsed header.
func (d *Demuxer) Header() (protocol.Header, bool) {
	if d.header == nil {
		return protocol.Header{}, false
	}
	return *d.header, true
}

func (d *Demuxer) FrameCount() int {
	return len(d.frames)
}

// FrameAt returns a copy of history entry i.
func (d *Demuxer) FrameAt(i int) (protocol.Frame, bool) {
	if i < 0 || i >= len(d.frames) {
		return nil, false
	}
	return d.frames[i].Clone(), true
}

// Frames returns a deep copy of the frame history.
func (d *Demuxer) Frames() []protocol.Frame {
	out := make([]protocol.Frame, len(d.frames))
	for i, f := range d.frames {
		out[i] = f.Clone()
	}
	return out
}

// Cursor is the number of Next calls made so far.
func (d *Demuxer) Cursor() int {
	return d.cursor
}

// Pending returns the complete protocol lines not yet decoded.
func (d *Demuxer) Pending() []string {
	out := make([]string, len(d.pending))
	copy(out, d.pending)
	return out
}

func (d *Demuxer) Stats() Stats {
	return d.stats
}
