package report

import (
	"encoding/json"
	"io"
	"sync"
)

// JSONReporter writes one JSON object per event, for consumption by other
// tools. Each object carries a "type" of "line" or "summary".
type JSONReporter struct {
	mu  sync.Mutex
	enc *json.Encoder
}

// NewJSONReporter creates a JSONReporter writing to out.
func NewJSONReporter(out io.Writer) *JSONReporter {
	return &JSONReporter{enc: json.NewEncoder(out)}
}

type jsonLine struct {
	Type string `json:"type"`
	LineEvent
}

type jsonSummary struct {
	Type string `json:"type"`
	SummaryEvent
	Error string `json:"error,omitempty"`
}

// Report encodes e. Encoding errors are dropped; a broken pipe must not stop
// the session.
func (j *JSONReporter) Report(e Event) {
	var v interface{}
	switch ev := e.(type) {
	case LineEvent:
		v = jsonLine{Type: "line", LineEvent: ev}
	case SummaryEvent:
		s := jsonSummary{Type: "summary", SummaryEvent: ev}
		if ev.Err != nil {
			s.Error = ev.Err.Error()
		}
		v = s
	default:
		return
	}

	j.mu.Lock()
	defer j.mu.Unlock()
	_ = j.enc.Encode(v)
}
