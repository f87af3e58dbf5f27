package main

import (
	"bytes"
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/jelka/validator/internal/config"
	"github.com/jelka/validator/internal/protocol"
	"github.com/jelka/validator/internal/sender"
	"github.com/jelka/validator/internal/stream"
	"github.com/jelka/validator/internal/testutil/testlog"
)

func buildShow(t *testing.T, ledCount, duration, frames int) string {
	t.Helper()
	var buf bytes.Buffer
	s, err := sender.New(&buf, protocol.Header{
		Author: "a", Title: "show", School: "FMF",
		LEDCount: ledCount, Duration: duration, FPS: 60,
	})
	if err != nil {
		t.Fatalf("new sender: %v", err)
	}
	for i := 0; i < frames; i++ {
		buf.WriteString("frame log\n")
		f := make(protocol.Frame, ledCount)
		for j := range f {
			f[j] = protocol.Color{R: uint8(i), G: uint8(j), B: 0}
		}
		if err := s.WriteFrame(f); err != nil {
			t.Fatalf("write frame %d: %v", i, err)
		}
	}
	return buf.String()
}

func fastConfig(ledCount int) config.ValidatorConfig {
	cfg := config.DefaultValidatorConfig()
	cfg.Playback.Realtime = false
	cfg.Expect.LEDCount = ledCount
	return cfg
}

func TestValidatorReachesEndOfStream(t *testing.T) {
	testlog.Start(t)
	var out bytes.Buffer
	v := newValidator(fastConfig(4), &out)
	result, err := v.run(context.Background(), strings.NewReader(buildShow(t, 4, 3, 3)+"trailing\n"))
	if err != nil {
		t.Fatalf("run: %v", err)
	}
	if !result.EndOfStream || result.Delivered != 3 || result.Received != 3 {
		t.Fatalf("unexpected summary: %+v", result)
	}
	if !strings.HasPrefix(out.String(), "frame log\nframe log\nframe log\n") {
		t.Fatalf("user text not passed through: %q", out.String())
	}
	if status := v.board.Snapshot(); !status.Done || status.FramesReceived != 3 {
		t.Fatalf("unexpected final status: %+v", status)
	}
}

func TestValidatorStopsAtProducerEOF(t *testing.T) {
	testlog.Start(t)
	var out bytes.Buffer
	v := newValidator(fastConfig(2), &out)
	result, err := v.run(context.Background(), strings.NewReader(buildShow(t, 2, 5, 2)))
	if err != nil {
		t.Fatalf("run: %v", err)
	}
	if result.EndOfStream || result.Delivered != 2 {
		t.Fatalf("unexpected summary: %+v", result)
	}
}

func TestValidatorRealtimePlaysToDuration(t *testing.T) {
	testlog.Start(t)
	cfg := config.DefaultValidatorConfig()
	cfg.Expect.LEDCount = 1
	cfg.Playback.FPS = 1000

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	var out bytes.Buffer
	v := newValidator(cfg, &out)
	result, err := v.run(ctx, strings.NewReader(buildShow(t, 1, 5, 2)))
	if err != nil {
		t.Fatalf("run: %v", err)
	}
	if !result.EndOfStream || result.Delivered != 5 || result.Received != 2 {
		t.Fatalf("unexpected summary: %+v", result)
	}
}

func TestValidatorRejectsMalformedFrame(t *testing.T) {
	testlog.Start(t)
	show := buildShow(t, 2, 5, 1) + "#abc\n"
	v := newValidator(fastConfig(2), &bytes.Buffer{})
	_, err := v.run(context.Background(), strings.NewReader(show))
	var lineErr *stream.LineError
	if !errors.As(err, &lineErr) || lineErr.Line != "abc" {
		t.Fatalf("expected line error for malformed frame, got %v", err)
	}
	if !errors.Is(err, protocol.ErrLengthMismatch) {
		t.Fatalf("expected ErrLengthMismatch, got %v", err)
	}
	if status := v.board.Snapshot(); status.Error == "" {
		t.Fatalf("expected error published on status board")
	}
}

func TestValidatorChecksExpectedLEDCount(t *testing.T) {
	v := newValidator(fastConfig(500), &bytes.Buffer{})
	_, err := v.run(context.Background(), strings.NewReader(buildShow(t, 3, 5, 1)))
	if err == nil || !strings.Contains(err.Error(), "led_count=3") {
		t.Fatalf("expected led_count rejection, got %v", err)
	}
}

func TestValidatorRequiresHeader(t *testing.T) {
	v := newValidator(fastConfig(0), &bytes.Buffer{})
	_, err := v.run(context.Background(), strings.NewReader("only text\n"))
	if !errors.Is(err, errNoHeader) {
		t.Fatalf("expected errNoHeader, got %v", err)
	}
}

func TestFrameInterval(t *testing.T) {
	if got := frameInterval(50); got != 20*time.Millisecond {
		t.Fatalf("unexpected interval %v", got)
	}
	if got := frameInterval(0); got != time.Second/60 {
		t.Fatalf("expected default fps interval, got %v", got)
	}
}
