// Package sender writes a jelka stream: the header record once, then one
// frame record per call, never more frames than the header declares.
package sender

import (
	"errors"
	"fmt"
	"io"

	"github.com/jelka/validator/internal/protocol"
	"github.com/rs/zerolog/log"
)

var ErrDurationExceeded = errors.New("sender: frame count exceeds duration")

// Flusher is implemented by buffered writers such as *bufio.Writer.
type Flusher interface {
	Flush() error
}

// Sender is not safe for concurrent use.
type Sender struct {
	w          io.Writer
	header     protocol.Header
	headerLine string
	headerSent bool
	written    int
}

// New encodes h up front so header errors surface before any output.
func New(w io.Writer, h protocol.Header) (*Sender, error) {
	line, err := protocol.EncodeHeader(h)
	if err != nil {
		return nil, fmt.Errorf("sender: encode header: %w", err)
	}
	h.Version = protocol.Version
	return &Sender{w: w, header: h, headerLine: line}, nil
}

// WriteFrame emits the header on the first call, then the encoded frame,
// flushing after each record.
func (s *Sender) WriteFrame(f protocol.Frame) error {
	if s.written >= s.header.Duration {
		return fmt.Errorf("%w: duration %d", ErrDurationExceeded, s.header.Duration)
	}
	text, err := protocol.EncodeFrame(f, s.header.LEDCount)
	if err != nil {
		return err
	}

	if !s.headerSent {
		if err := s.emit(s.headerLine); err != nil {
			return err
		}
		s.headerSent = true
		log.Debug().Int("led_count", s.header.LEDCount).Int("duration", s.header.Duration).Msg("header sent")
	}
	if err := s.emit(string(protocol.Marker) + text + "\n"); err != nil {
		return err
	}
	s.written++
	return nil
}

func (s *Sender) emit(record string) error {
	if _, err := io.WriteString(s.w, record); err != nil {
		return err
	}
	if fl, ok := s.w.(Flusher); ok {
		return fl.Flush()
	}
	return nil
}

func (s *Sender) Header() protocol.Header {
	return s.header
}

func (s *Sender) Written() int {
	return s.written
}

func (s *Sender) Remaining() int {
	return s.header.Duration - s.written
}
