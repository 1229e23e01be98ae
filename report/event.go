// Package report defines the boundary through which the synchronizer and the
// execution engine publish output to whatever presents it.
package report

import "time"

// Operation names the logical step an event belongs to.
type Operation string

const (
	OpClone     Operation = "clone"
	OpRemoteAdd Operation = "remote-add"
	OpPull      Operation = "pull"
	OpHead      Operation = "head"
	OpSync      Operation = "sync"
	OpBuild     Operation = "build"
	OpTest      Operation = "test"
	OpSession   Operation = "session"
	OpConfig    Operation = "config"
)

// Stream identifies which pipe a line was read from.
type Stream string

const (
	Stdout Stream = "stdout"
	Stderr Stream = "stderr"
)

// Event is implemented by LineEvent and SummaryEvent.
type Event interface {
	event()
	// Op returns the operation the event belongs to.
	Op() Operation
}

// LineEvent carries one captured output line.
type LineEvent struct {
	Operation Operation `json:"operation"`
	RunID     string    `json:"run_id,omitempty"`
	Command   string    `json:"command"`
	// Index is the position of Command within its script, starting at 0.
	Index  int       `json:"index"`
	Stream Stream    `json:"stream"`
	Text   string    `json:"text"`
	Time   time.Time `json:"time"`
}

// SummaryEvent closes a logical operation (clone, pull, remote-add, script run).
type SummaryEvent struct {
	Operation Operation `json:"operation"`
	RunID     string    `json:"run_id,omitempty"`
	Succeeded bool      `json:"succeeded"`
	Message   string    `json:"message"`
	Err       error     `json:"-"`
	Time      time.Time `json:"time"`
}

func (LineEvent) event()    {}
func (SummaryEvent) event() {}

// Op returns the operation the line belongs to.
func (e LineEvent) Op() Operation { return e.Operation }

// Op returns the summarized operation.
func (e SummaryEvent) Op() Operation { return e.Operation }

// Success builds a succeeded summary.
func Success(op Operation, msg string) SummaryEvent {
	return SummaryEvent{Operation: op, Succeeded: true, Message: msg, Time: time.Now()}
}

// Failure builds a failed summary. The error text is kept out of Message so
// presenters can decide how much detail to show.
func Failure(op Operation, msg string, err error) SummaryEvent {
	return SummaryEvent{Operation: op, Succeeded: false, Message: msg, Err: err, Time: time.Now()}
}
