package watch

import (
	"context"
	"fmt"
	"runtime/debug"
	"sync"
	"sync/atomic"
	"time"

	"github.com/grovetools/repowatch/errors"
	"github.com/sirupsen/logrus"
)

// DefaultInterval is the polling period when none is configured.
const DefaultInterval = 60 * time.Second

// Task is the work done on each tick.
type Task func(ctx context.Context)

// Scheduler runs a Task at a fixed rate with at most one run in flight.
type Scheduler struct {
	logger *logrus.Entry
}

// NewScheduler creates a Scheduler.
func NewScheduler(logger *logrus.Entry) *Scheduler {
	if logger == nil {
		logger = logrus.NewEntry(logrus.StandardLogger())
	}
	return &Scheduler{logger: logger}
}

// Handle controls one running schedule.
type Handle struct {
	logger *logrus.Entry

	stop     chan struct{}
	stopOnce sync.Once
	cancel   context.CancelFunc
	loopDone chan struct{}
	done     chan struct{}
	wg       sync.WaitGroup

	inFlight atomic.Bool
	ticks    atomic.Int64
	skipped  atomic.Int64

	mu    sync.Mutex
	fault error
}

// Start fires task immediately and then every interval. A tick that comes due
// while the previous run is still going is skipped, not queued.
//
// Cancelling ctx stops the schedule like Stop does: the running task keeps
// its own context and is allowed to finish. Use Kill to interrupt it.
func (s *Scheduler) Start(ctx context.Context, interval time.Duration, task Task) (*Handle, error) {
	if interval <= 0 {
		return nil, errors.SchedulingFailed(fmt.Sprintf("interval must be positive, got %s", interval), nil)
	}
	if task == nil {
		return nil, errors.SchedulingFailed("no task to schedule", nil)
	}

	taskCtx, cancel := context.WithCancel(context.WithoutCancel(ctx))
	h := &Handle{
		logger:   s.logger,
		stop:     make(chan struct{}),
		cancel:   cancel,
		loopDone: make(chan struct{}),
		done:     make(chan struct{}),
	}

	go h.loop(ctx, taskCtx, interval, task)
	go func() {
		<-h.loopDone
		h.wg.Wait()
		cancel()
		close(h.done)
	}()
	return h, nil
}

func (h *Handle) loop(ctx, taskCtx context.Context, interval time.Duration, task Task) {
	defer close(h.loopDone)

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	h.fire(taskCtx, task)
	for {
		select {
		case <-ctx.Done():
			return
		case <-h.stop:
			return
		case <-ticker.C:
			h.fire(taskCtx, task)
		}
	}
}

func (h *Handle) fire(ctx context.Context, task Task) {
	select {
	case <-h.stop:
		return
	default:
	}

	if !h.inFlight.CompareAndSwap(false, true) {
		n := h.skipped.Add(1)
		h.logger.WithField("skipped", n).Debug("Previous tick still running, skipping")
		return
	}
	n := h.ticks.Add(1)

	h.wg.Add(1)
	go func() {
		defer h.wg.Done()
		defer h.inFlight.Store(false)
		defer func() {
			if r := recover(); r != nil {
				err := errors.SchedulingFailed(fmt.Sprintf("tick %d panicked: %v", n, r), nil).
					WithDetail("stack", string(debug.Stack()))
				h.logger.WithError(err).Error("Scheduler fault, stopping schedule")
				h.setFault(err)
				h.Stop()
			}
		}()
		task(ctx)
	}()
}

// Stop cancels all future ticks. A tick already running is left to finish.
// It is safe to call more than once.
func (h *Handle) Stop() {
	h.stopOnce.Do(func() { close(h.stop) })
}

// Kill stops the schedule and cancels the running tick's context, which
// terminates any process it started.
func (h *Handle) Kill() {
	h.Stop()
	h.cancel()
}

// Fail records err as the reason the schedule ended and stops it.
func (h *Handle) Fail(err error) {
	h.setFault(err)
	h.Stop()
}

func (h *Handle) setFault(err error) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.fault == nil {
		h.fault = err
	}
}

// Done is closed once the schedule has stopped and no tick is running.
func (h *Handle) Done() <-chan struct{} {
	return h.done
}

// Wait blocks until Done and returns the fault that ended the schedule, if
// any.
func (h *Handle) Wait() error {
	<-h.done
	return h.Err()
}

// Err returns the fault that ended the schedule, if any.
func (h *Handle) Err() error {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.fault
}

// Ticks returns how many ticks have run.
func (h *Handle) Ticks() int64 { return h.ticks.Load() }

// Skipped returns how many ticks were dropped because a run was in flight.
func (h *Handle) Skipped() int64 { return h.skipped.Load() }

// Running reports whether a tick is in flight.
func (h *Handle) Running() bool { return h.inFlight.Load() }
