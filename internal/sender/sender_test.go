package sender

import (
	"bufio"
	"bytes"
	"errors"
	"strings"
	"testing"

	"github.com/jelka/validator/internal/protocol"
	"github.com/jelka/validator/internal/stream"
	"github.com/jelka/validator/internal/testutil/testlog"
)

func testHeader(ledCount, duration int) protocol.Header {
	return protocol.Header{
		Author:   "Jošt Smrtnik",
		Title:    "Najboljši vzorec",
		School:   "FMF",
		LEDCount: ledCount,
		Duration: duration,
		FPS:      protocol.DefaultFPS,
	}
}

func TestSenderHeaderOnceThenFrames(t *testing.T) {
	testlog.Start(t)
	var buf bytes.Buffer
	s, err := New(&buf, testHeader(1, 2))
	if err != nil {
		t.Fatalf("new sender: %v", err)
	}
	if buf.Len() != 0 {
		t.Fatalf("header must not be written before the first frame")
	}

	if err := s.WriteFrame(protocol.Frame{{R: 0, G: 1, B: 2}}); err != nil {
		t.Fatalf("write frame: %v", err)
	}
	if err := s.WriteFrame(protocol.Frame{{R: 3, G: 4, B: 5}}); err != nil {
		t.Fatalf("write frame: %v", err)
	}

	lines := strings.Split(strings.TrimSuffix(buf.String(), "\n"), "\n")
	if len(lines) != 3 {
		t.Fatalf("expected header + 2 frames, got %q", lines)
	}
	if !strings.HasPrefix(lines[0], `#{"version":0`) {
		t.Fatalf("unexpected header line %q", lines[0])
	}
	if lines[1] != "#000102" || lines[2] != "#030405" {
		t.Fatalf("unexpected frame lines %q", lines[1:])
	}
	if s.Written() != 2 || s.Remaining() != 0 {
		t.Fatalf("unexpected counters written=%d remaining=%d", s.Written(), s.Remaining())
	}
}

func TestSenderDurationExceeded(t *testing.T) {
	var buf bytes.Buffer
	s, err := New(&buf, testHeader(1, 1))
	if err != nil {
		t.Fatalf("new sender: %v", err)
	}
	if err := s.WriteFrame(protocol.Frame{{R: 1, G: 1, B: 1}}); err != nil {
		t.Fatalf("write frame: %v", err)
	}
	size := buf.Len()
	if err := s.WriteFrame(protocol.Frame{{R: 1, G: 1, B: 1}}); !errors.Is(err, ErrDurationExceeded) {
		t.Fatalf("expected ErrDurationExceeded, got %v", err)
	}
	if buf.Len() != size {
		t.Fatalf("nothing may be written past the duration")
	}

	zero, err := New(&buf, testHeader(1, 0))
	if err != nil {
		t.Fatalf("new sender: %v", err)
	}
	if err := zero.WriteFrame(protocol.Frame{{R: 1, G: 1, B: 1}}); !errors.Is(err, ErrDurationExceeded) {
		t.Fatalf("expected ErrDurationExceeded for zero duration, got %v", err)
	}
}

func TestSenderRejectsBadInput(t *testing.T) {
	if _, err := New(&bytes.Buffer{}, testHeader(0, 1)); !errors.Is(err, protocol.ErrOutOfRange) {
		t.Fatalf("expected ErrOutOfRange, got %v", err)
	}

	var buf bytes.Buffer
	s, err := New(&buf, testHeader(2, 5))
	if err != nil {
		t.Fatalf("new sender: %v", err)
	}
	if err := s.WriteFrame(protocol.Frame{{R: 1, G: 1, B: 1}}); !errors.Is(err, protocol.ErrLengthMismatch) {
		t.Fatalf("expected ErrLengthMismatch, got %v", err)
	}
	if buf.Len() != 0 || s.Written() != 0 {
		t.Fatalf("rejected frame must not emit the header or count")
	}
}

func TestSenderFlushesEachRecord(t *testing.T) {
	var sink bytes.Buffer
	w := bufio.NewWriterSize(&sink, 4096)
	s, err := New(w, testHeader(1, 3))
	if err != nil {
		t.Fatalf("new sender: %v", err)
	}
	if err := s.WriteFrame(protocol.Frame{{R: 9, G: 9, B: 9}}); err != nil {
		t.Fatalf("write frame: %v", err)
	}
	if w.Buffered() != 0 {
		t.Fatalf("expected flushed writer, %d bytes buffered", w.Buffered())
	}
	if !strings.HasSuffix(sink.String(), "#090909\n") {
		t.Fatalf("frame not visible to reader: %q", sink.String())
	}
}

func TestSenderOutputFeedsDemuxer(t *testing.T) {
	var buf bytes.Buffer
	s, err := New(&buf, testHeader(2, 3))
	if err != nil {
		t.Fatalf("new sender: %v", err)
	}
	frames := []protocol.Frame{{{R: 1, G: 2, B: 3}, {R: 4, G: 5, B: 6}}, {{R: 7, G: 8, B: 9}, {R: 10, G: 11, B: 12}}}
	for _, f := range frames {
		buf.WriteString("log line\n")
		if err := s.WriteFrame(f); err != nil {
			t.Fatalf("write frame: %v", err)
		}
	}

	d := stream.NewDemuxer()
	d.Ingest(buf.Bytes())
	if err := d.TryParseHeader(); err != nil {
		t.Fatalf("parse header: %v", err)
	}
	if err := d.TryParseFrames(); err != nil {
		t.Fatalf("parse frames: %v", err)
	}
	h, _ := d.Header()
	if h != s.Header() {
		t.Fatalf("header mismatch: got=%+v want=%+v", h, s.Header())
	}
	got := d.Frames()
	if len(got) != 2 || !got[0].Equal(frames[0]) || !got[1].Equal(frames[1]) {
		t.Fatalf("unexpected frames: %+v", got)
	}
	if d.DrainUserText() != "log line\nlog line\n" {
		t.Fatalf("unexpected user text")
	}
}
