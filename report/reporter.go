package report

import (
	"sync"
)

// Reporter receives events in emission order. Implementations must not
// reorder events and must be safe for use by a single producer goroutine;
// the ones in this package are also safe for concurrent producers.
type Reporter interface {
	Report(e Event)
}

// Func adapts a plain function to a Reporter.
type Func func(e Event)

// Report calls f(e).
func (f Func) Report(e Event) { f(e) }

// Discard drops every event.
var Discard Reporter = Func(func(Event) {})

// Multi fans events out to several reporters, in order.
type Multi []Reporter

// Report forwards e to every reporter.
func (m Multi) Report(e Event) {
	for _, r := range m {
		if r != nil {
			r.Report(e)
		}
	}
}

// ChannelReporter hands events to a consumer goroutine over a channel. This
// is the hand-off between the goroutine running git and build processes and
// whatever renders their output.
type ChannelReporter struct {
	mu     sync.RWMutex
	ch     chan Event
	done   chan struct{}
	once   sync.Once
	closed bool
}

// NewChannelReporter creates a ChannelReporter with the given buffer size.
// Report blocks when the buffer is full so that no event is lost.
func NewChannelReporter(buffer int) *ChannelReporter {
	if buffer < 0 {
		buffer = 0
	}
	return &ChannelReporter{
		ch:   make(chan Event, buffer),
		done: make(chan struct{}),
	}
}

// Events returns the receive side of the channel. It is closed by Close.
func (c *ChannelReporter) Events() <-chan Event {
	return c.ch
}

// Report sends e to the consumer. After Close it is a no-op.
func (c *ChannelReporter) Report(e Event) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	if c.closed {
		return
	}
	select {
	case c.ch <- e:
	case <-c.done:
	}
}

// Close unblocks pending senders and closes the events channel.
func (c *ChannelReporter) Close() {
	c.once.Do(func() {
		close(c.done)
		c.mu.Lock()
		c.closed = true
		close(c.ch)
		c.mu.Unlock()
	})
}

// Recorder keeps every event in memory.
type Recorder struct {
	mu     sync.Mutex
	events []Event
}

// Report appends e.
func (r *Recorder) Report(e Event) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, e)
}

// Events returns a copy of the recorded events.
func (r *Recorder) Events() []Event {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]Event, len(r.events))
	copy(out, r.events)
	return out
}

// Lines returns the recorded line events for op, or for every operation when
// op is empty.
func (r *Recorder) Lines(op Operation) []LineEvent {
	var out []LineEvent
	for _, e := range r.Events() {
		if le, ok := e.(LineEvent); ok && (op == "" || le.Operation == op) {
			out = append(out, le)
		}
	}
	return out
}

// Summaries returns the recorded summary events for op, or for every
// operation when op is empty.
func (r *Recorder) Summaries(op Operation) []SummaryEvent {
	var out []SummaryEvent
	for _, e := range r.Events() {
		if se, ok := e.(SummaryEvent); ok && (op == "" || se.Operation == op) {
			out = append(out, se)
		}
	}
	return out
}

// Reset drops all recorded events.
func (r *Recorder) Reset() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = nil
}
