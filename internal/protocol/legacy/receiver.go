package legacy

import (
	"fmt"

	"github.com/jelka/validator/internal/protocol"
)

// Receiver decodes a binary stream: the first record is the header, every
// later record a frame. It mirrors stream.Demuxer for historical streams and
// is not safe for concurrent use.
type Receiver struct {
	split   Splitter
	pending [][]byte
	header  *Header
	frames  []protocol.Frame
	cursor  int
}

// Feed ingests raw bytes and decodes every complete record. A record that
// fails to decode stays queued and is reported again on the next call.
func (r *Receiver) Feed(p []byte) error {
	_, _ = r.split.Write(p)
	r.pending = append(r.pending, r.split.Records()...)
	for len(r.pending) > 0 {
		record := r.pending[0]
		if r.header == nil {
			h, err := DecodeHeader(record)
			if err != nil {
				return fmt.Errorf("legacy header: %w", err)
			}
			r.header = &h
		} else {
			f, err := DecodeFrame(record, r.header.LEDCount, r.header.Version)
			if err != nil {
				return fmt.Errorf("legacy frame %d: %w", len(r.frames), err)
			}
			r.frames = append(r.frames, f)
		}
		r.pending = r.pending[1:]
	}
	return nil
}

// UserText returns and clears the bytes seen outside records.
func (r *Receiver) UserText() string {
	return string(r.split.UserText())
}

func (r *Receiver) Header() (Header, bool) {
	if r.header == nil {
		return Header{}, false
	}
	return *r.header, true
}

func (r *Receiver) FrameCount() int {
	return len(r.frames)
}

// Next follows the same delivery rule as stream.Demuxer.Next.
func (r *Receiver) Next() (protocol.Frame, bool) {
	r.cursor++
	if r.header != nil && r.header.Duration > 0 && r.cursor > r.header.Duration {
		return nil, false
	}
	if len(r.frames) > 0 {
		return r.frames[min(r.cursor-1, len(r.frames)-1)].Clone(), true
	}
	if r.header == nil {
		return protocol.Frame{}, true
	}
	return protocol.Black(r.header.LEDCount), true
}
