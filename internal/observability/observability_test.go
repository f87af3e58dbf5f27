package observability

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/jelka/validator/internal/protocol"
	"github.com/jelka/validator/internal/testutil/testlog"
)

func TestRegisterMetricsAndRecordersAreSafe(t *testing.T) {
	testlog.Start(t)
	RegisterMetrics()
	RegisterMetrics()

	RecordIngest("s-1", 42)
	RecordFrames("s-1", 2)
	RecordDecodeError("s-1", "frame")
	RecordDelivery("s-1", DeliveryBlack)
	RecordHTTPRequest("s-1", "GET", "/stream", 200, 3*time.Millisecond)
}

func TestStatusBoardSnapshotIsIsolated(t *testing.T) {
	var board StatusBoard
	h := protocol.Header{LEDCount: 5, Duration: 4, FPS: 60}
	board.Publish(StreamStatus{ID: "s-1", Header: &h, FramesReceived: 1})

	h.LEDCount = 99
	snap := board.Snapshot()
	if snap.Header == nil || snap.Header.LEDCount != 5 {
		t.Fatalf("published header was not copied: %+v", snap.Header)
	}
	snap.Header.LEDCount = 7
	if board.Snapshot().Header.LEDCount != 5 {
		t.Fatalf("snapshot shares header with board")
	}
}

func TestStatusServerRoutes(t *testing.T) {
	testlog.Start(t)
	board := &StatusBoard{}
	board.Publish(StreamStatus{
		ID:             "s-2",
		Header:         &protocol.Header{LEDCount: 3, Duration: 10, FPS: 30, Author: "a"},
		FramesReceived: 4,
		Cursor:         2,
	})
	srv := NewStatusServer(":0", nil, board)

	rec := httptest.NewRecorder()
	srv.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/stream", nil))
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	var got StreamStatus
	if err := json.Unmarshal(rec.Body.Bytes(), &got); err != nil {
		t.Fatalf("decode status: %v", err)
	}
	if got.ID != "s-2" || got.FramesReceived != 4 || got.Header == nil || got.Header.LEDCount != 3 {
		t.Fatalf("unexpected status: %+v", got)
	}

	rec = httptest.NewRecorder()
	srv.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/health", nil))
	if rec.Code != http.StatusOK || !strings.Contains(rec.Body.String(), `"status":"ok"`) {
		t.Fatalf("unexpected health response: %d %s", rec.Code, rec.Body.String())
	}

	rec = httptest.NewRecorder()
	srv.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	if rec.Code != http.StatusOK || !strings.Contains(rec.Body.String(), "jelka_http_requests_total") {
		t.Fatalf("expected metrics exposition, got %d", rec.Code)
	}
}
