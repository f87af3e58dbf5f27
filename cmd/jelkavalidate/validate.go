package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"time"

	"github.com/jelka/validator/internal/config"
	"github.com/jelka/validator/internal/observability"
	"github.com/jelka/validator/internal/protocol"
	"github.com/jelka/validator/internal/stream"
	"github.com/rs/zerolog/log"
	"golang.org/x/sync/errgroup"
)

var errNoHeader = errors.New("stream ended before a header was received")

// summary describes how a validation run ended.
type summary struct {
	StreamID  string
	Header    protocol.Header
	Received  int
	Delivered int
	// EndOfStream is true when delivery reached the declared duration,
	// false when the producer closed the stream first.
	EndOfStream bool
}

type validator struct {
	cfg   config.ValidatorConfig
	recv  *stream.Receiver
	board *observability.StatusBoard
	out   io.Writer

	delivered int
}

func newValidator(cfg config.ValidatorConfig, out io.Writer) *validator {
	v := &validator{
		cfg:   cfg,
		recv:  stream.NewReceiver(nil),
		board: &observability.StatusBoard{},
		out:   out,
	}
	v.publish(false, nil)
	return v
}

// run consumes src until end of stream, producer EOF or the first protocol
// error. The status server, when configured, lives for the same span.
func (v *validator) run(ctx context.Context, src io.Reader) (summary, error) {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	chunks := make(chan []byte, 64)
	pumpErr := make(chan error, 1)
	go func() {
		pumpErr <- stream.Pump(ctx, src, v.cfg.Source.ReadSize, chunks)
	}()

	g, gctx := errgroup.WithContext(ctx)
	if v.cfg.Status.Addr != "" {
		srv := observability.NewStatusServer(v.cfg.Status.Addr, v.cfg.Status.CorsOrigins, v.board)
		g.Go(func() error {
			return srv.Serve(gctx)
		})
	}

	var result summary
	g.Go(func() error {
		defer cancel()
		var err error
		result, err = v.consume(gctx, chunks, pumpErr)
		v.publish(true, err)
		return err
	})

	err := g.Wait()
	return result, err
}

func (v *validator) consume(ctx context.Context, chunks <-chan []byte, pumpErr <-chan error) (summary, error) {
	var tick <-chan time.Time
	var ticker *time.Ticker
	defer func() {
		if ticker != nil {
			ticker.Stop()
		}
	}()

	eof := false
	for {
		select {
		case <-ctx.Done():
			return v.summary(false), ctx.Err()

		case chunk, ok := <-chunks:
			if !ok {
				if err := <-pumpErr; err != nil {
					return v.summary(false), fmt.Errorf("read producer: %w", err)
				}
				chunks = nil
				eof = true
				log.Info().Int("frames", v.recv.FrameCount()).Msg("producer closed stream")
				if !v.recv.HasHeader() {
					return v.summary(false), errNoHeader
				}
				if !v.keepPlayingAfterEOF() {
					return v.summary(false), nil
				}
				continue
			}
			hadHeader := v.recv.HasHeader()
			if err := v.recv.Feed(chunk); err != nil {
				return v.summary(false), err
			}
			if _, err := io.WriteString(v.out, v.recv.UserText()); err != nil {
				return v.summary(false), fmt.Errorf("write user text: %w", err)
			}
			if !hadHeader && v.recv.HasHeader() {
				h, _ := v.recv.Header()
				if err := v.cfg.Expect.CheckHeader(h); err != nil {
					return v.summary(false), err
				}
				if v.cfg.Playback.Realtime {
					ticker = time.NewTicker(frameInterval(v.fps(h)))
					tick = ticker.C
				}
			}
			if !v.cfg.Playback.Realtime {
				for v.recv.FrameCount() > v.delivered {
					if !v.deliver() {
						return v.summary(true), nil
					}
				}
				if h, _ := v.recv.Header(); h.Duration > 0 && v.delivered == h.Duration {
					return v.summary(true), nil
				}
			}
			v.publish(false, nil)

		case <-tick:
			if !v.deliver() {
				return v.summary(true), nil
			}
			v.publish(false, nil)
		}

		if eof && !v.cfg.Playback.Realtime {
			return v.summary(false), nil
		}
	}
}

// deliver pulls the frame due now; false means end of stream.
func (v *validator) deliver() bool {
	f, ok := v.recv.Next()
	if !ok {
		return false
	}
	v.delivered++
	log.Trace().Int("index", v.delivered-1).Int("leds", len(f)).Msg("frame delivered")
	return true
}

func (v *validator) keepPlayingAfterEOF() bool {
	h, ok := v.recv.Header()
	return ok && v.cfg.Playback.Realtime && h.Duration > 0
}

func (v *validator) fps(h protocol.Header) int {
	if v.cfg.Playback.FPS > 0 {
		return v.cfg.Playback.FPS
	}
	return h.FPS
}

func frameInterval(fps int) time.Duration {
	if fps <= 0 {
		fps = protocol.DefaultFPS
	}
	return time.Second / time.Duration(fps)
}

func (v *validator) summary(end bool) summary {
	h, _ := v.recv.Header()
	return summary{
		StreamID:    v.recv.ID(),
		Header:      h,
		Received:    v.recv.FrameCount(),
		Delivered:   v.delivered,
		EndOfStream: end,
	}
}

func (v *validator) publish(done bool, err error) {
	s := v.recv.Status()
	s.Done = done
	if err != nil {
		s.Error = err.Error()
	}
	v.board.Publish(s)
}
