package stream

import (
	"context"
	"errors"
	"io"

	"github.com/google/uuid"
	"github.com/jelka/validator/internal/observability"
	"github.com/jelka/validator/internal/protocol"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

const DefaultReadSize = 64 * 1024

// Receiver feeds a Demuxer from a byte source, logs protocol progress and
// records stream metrics. Like Demuxer it has a single owner.
type Receiver struct {
	id     string
	src    io.Reader
	buf    []byte
	demux  *Demuxer
	logger zerolog.Logger
}

// NewReceiver wraps src. src may be nil when bytes arrive through Feed.
func NewReceiver(src io.Reader) *Receiver {
	id := uuid.NewString()
	return &Receiver{
		id:     id,
		src:    src,
		buf:    make([]byte, DefaultReadSize),
		demux:  NewDemuxer(),
		logger: log.With().Str("stream", id).Logger(),
	}
}

func (r *Receiver) ID() string {
	return r.id
}

// Update performs one read from the source, then feeds what it got. The
// read may block. io.EOF is returned once the source is exhausted.
func (r *Receiver) Update() error {
	if r.src == nil {
		return errors.New("stream: receiver has no source")
	}
	n, readErr := r.src.Read(r.buf)
	if n > 0 {
		if err := r.Feed(r.buf[:n]); err != nil {
			return err
		}
	}
	return readErr
}

// Feed ingests p and decodes whatever complete lines are queued.
func (r *Receiver) Feed(p []byte) error {
	r.demux.Ingest(p)
	observability.RecordIngest(r.id, len(p))

	if !r.demux.HasHeader() {
		if err := r.demux.TryParseHeader(); err != nil {
			return r.fail(err)
		}
		if h, ok := r.demux.Header(); ok {
			r.logger.Info().
				Int("led_count", h.LEDCount).
				Int("duration", h.Duration).
				Int("fps", h.FPS).
				Str("author", h.Author).
				Str("title", h.Title).
				Str("school", h.School).
				Msg("header received")
		}
	}

	before := r.demux.FrameCount()
	err := r.demux.TryParseFrames()
	if added := r.demux.FrameCount() - before; added > 0 {
		observability.RecordFrames(r.id, added)
		r.logger.Debug().Int("added", added).Int("total", r.demux.FrameCount()).Msg("frames decoded")
	}
	if err != nil {
		return r.fail(err)
	}
	return nil
}

func (r *Receiver) fail(err error) error {
	record := RecordFrame
	var lineErr *LineError
	if errors.As(err, &lineErr) {
		record = lineErr.Record
	}
	observability.RecordDecodeError(r.id, record)
	r.logger.Error().Err(err).Str("record", record).Msg("protocol line rejected")
	return err
}

// Next returns the frame due now; ok is false at end of stream.
func (r *Receiver) Next() (protocol.Frame, bool) {
	f, ok := r.demux.Next()
	if !ok {
		return nil, false
	}
	switch {
	case r.demux.FrameCount() == 0:
		observability.RecordDelivery(r.id, observability.DeliveryBlack)
	case r.demux.Cursor() > r.demux.FrameCount():
		observability.RecordDelivery(r.id, observability.DeliveryLagging)
	default:
		observability.RecordDelivery(r.id, observability.DeliveryOnTime)
	}
	return f, true
}

func (r *Receiver) UserText() string {
	return r.demux.DrainUserText()
}

func (r *Receiver) HasHeader() bool {
	return r.demux.HasHeader()
}

func (r *Receiver) Header() (protocol.Header, bool) {
	return r.demux.Header()
}

func (r *Receiver) FrameCount() int {
	return r.demux.FrameCount()
}

// Status builds a snapshot suitable for observability.StatusBoard.
func (r *Receiver) Status() observability.StreamStatus {
	s := observability.StreamStatus{
		ID:             r.id,
		FramesReceived: r.demux.FrameCount(),
		Cursor:         r.demux.Cursor(),
		UserBytes:      r.demux.Stats().UserBytes,
	}
	if h, ok := r.demux.Header(); ok {
		s.Header = &h
	}
	return s
}

// Pump copies reads from src into out until src fails or ctx ends. out is
// closed on return. io.EOF ends the pump without error.
func Pump(ctx context.Context, src io.Reader, size int, out chan<- []byte) error {
	defer close(out)
	if size <= 0 {
		size = DefaultReadSize
	}
	buf := make([]byte, size)
	for {
		n, err := src.Read(buf)
		if n > 0 {
			chunk := make([]byte, n)
			copy(chunk, buf[:n])
			select {
			case out <- chunk:
			case <-ctx.Done():
				return ctx.Err()
			}
		}
		if errors.Is(err, io.EOF) {
			return nil
		}
		if err != nil {
			return err
		}
	}
}
