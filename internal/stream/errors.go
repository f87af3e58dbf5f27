package stream

import "fmt"

// Record kinds for LineError.
const (
	RecordHeader = "header"
	RecordFrame  = "frame"
)

// LineError reports a protocol line that failed to decode. Index is the
// history position the frame would have taken.
type LineError struct {
	Record string
	Index  int
	Line   string
	Err    error
}

func (e *LineError) Error() string {
	if e.Record == RecordFrame {
		return fmt.Sprintf("stream: frame %d: %v (line %q)", e.Index, e.Err, truncate(e.Line, 64))
	}
	return fmt.Sprintf("stream: %s: %v (line %q)", e.Record, e.Err, truncate(e.Line, 64))
}

func (e *LineError) Unwrap() error {
	return e.Err
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n] + "..."
}
