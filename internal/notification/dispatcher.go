package notification

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/example/calendar-slots/internal/logging"
)

// Dispatch outcomes reported to a DispatchObserver.
const (
	OutcomeSent      = "sent"
	OutcomeFailed    = "failed"
	OutcomeDropped   = "dropped"
	OutcomeDuplicate = "duplicate"
)

// Message kinds reported to a DispatchObserver.
const (
	KindInvitation = "invitation"
	KindReminder   = "reminder"
)

// DispatchObserver receives one call per message handed to the dispatcher.
type DispatchObserver interface {
	Dispatched(kind, outcome string)
}

// DispatcherConfig sizes the worker pool.
type DispatcherConfig struct {
	Workers   int
	QueueSize int
	// Timeout bounds a single delivery.
	Timeout time.Duration
	// DedupeTTL is how long a delivered reminder key is remembered.
	DedupeTTL time.Duration
}

// DefaultDispatcherConfig returns the configuration used when fields are zero.
func DefaultDispatcherConfig() DispatcherConfig {
	return DispatcherConfig{
		Workers:   4,
		QueueSize: 256,
		Timeout:   30 * time.Second,
		DedupeTTL: 48 * time.Hour,
	}
}

type job struct {
	kind       string
	invitation Invitation
	reminder   Reminder
	key        [32]byte
	logger     *slog.Logger
}

// Dispatcher fans messages out to a fixed pool of workers. Enqueueing never
// blocks: when the queue is full the message is dropped and logged.
type Dispatcher struct {
	notifier Notifier
	registry *sentRegistry
	observer DispatchObserver
	logger   *slog.Logger
	timeout  time.Duration

	mu     sync.RWMutex
	closed bool
	jobs   chan job
	wg     sync.WaitGroup
}

// NewDispatcher starts the worker pool. observer may be nil.
func NewDispatcher(notifier Notifier, config DispatcherConfig, logger *slog.Logger, observer DispatchObserver) *Dispatcher {
	defaults := DefaultDispatcherConfig()
	if config.Workers <= 0 {
		config.Workers = defaults.Workers
	}
	if config.QueueSize <= 0 {
		config.QueueSize = defaults.QueueSize
	}
	if config.Timeout <= 0 {
		config.Timeout = defaults.Timeout
	}
	if config.DedupeTTL <= 0 {
		config.DedupeTTL = defaults.DedupeTTL
	}
	if logger == nil {
		logger = slog.Default()
	}

	d := &Dispatcher{
		notifier: notifier,
		registry: newSentRegistry(config.DedupeTTL, 0, nil),
		observer: observer,
		logger:   logger.With("component", "dispatcher"),
		timeout:  config.Timeout,
		jobs:     make(chan job, config.QueueSize),
	}
	for range config.Workers {
		d.wg.Add(1)
		go d.work()
	}
	return d
}

// SendInvitation enqueues the invitation for delivery.
func (d *Dispatcher) SendInvitation(ctx context.Context, invitation Invitation) {
	if len(invitation.Recipients) == 0 {
		return
	}
	d.enqueue(ctx, job{kind: KindInvitation, invitation: invitation})
}

// SendReminder enqueues the reminder unless the same slot was already
// reminded for the same scheduled instant.
func (d *Dispatcher) SendReminder(ctx context.Context, reminder Reminder) {
	if len(reminder.Recipients) == 0 {
		return
	}
	key := reminderKey(reminder.SlotID, reminder.ScheduledFor)
	if !d.registry.claim(key) {
		d.observe(KindReminder, OutcomeDuplicate)
		d.loggerFor(ctx).DebugContext(ctx, "duplicate reminder skipped", "slot_id", reminder.SlotID)
		return
	}
	if !d.enqueue(ctx, job{kind: KindReminder, reminder: reminder, key: key}) {
		d.registry.release(key)
	}
}

func (d *Dispatcher) enqueue(ctx context.Context, j job) bool {
	j.logger = d.loggerFor(ctx)

	d.mu.RLock()
	defer d.mu.RUnlock()

	if d.closed {
		d.observe(j.kind, OutcomeDropped)
		j.logger.WarnContext(ctx, "dispatcher closed, message dropped", "kind", j.kind)
		return false
	}
	select {
	case d.jobs <- j:
		return true
	default:
		d.observe(j.kind, OutcomeDropped)
		j.logger.WarnContext(ctx, "dispatch queue full, message dropped", "kind", j.kind)
		return false
	}
}

func (d *Dispatcher) work() {
	defer d.wg.Done()
	for j := range d.jobs {
		d.deliver(j)
	}
}

func (d *Dispatcher) deliver(j job) {
	ctx, cancel := context.WithTimeout(context.Background(), d.timeout)
	defer cancel()

	var (
		err    error
		logger = j.logger
	)
	switch j.kind {
	case KindInvitation:
		logger = logger.With("event_id", j.invitation.EventID, "recipients", len(j.invitation.Recipients))
		err = d.notifier.NotifyInvitation(ctx, j.invitation)
	case KindReminder:
		logger = logger.With("slot_id", j.reminder.SlotID, "recipients", len(j.reminder.Recipients))
		err = d.notifier.NotifyReminder(ctx, j.reminder)
	}

	if err != nil {
		d.observe(j.kind, OutcomeFailed)
		err = fmt.Errorf("%w: %w", ErrTransientDispatch, err)
		logger.WarnContext(ctx, "failed to deliver notification", "kind", j.kind, "error", err)
		return
	}
	d.observe(j.kind, OutcomeSent)
	logger.DebugContext(ctx, "notification delivered", "kind", j.kind)
}

// Close stops accepting messages and waits for queued ones to be delivered,
// or for ctx to end.
func (d *Dispatcher) Close(ctx context.Context) error {
	d.mu.Lock()
	if !d.closed {
		d.closed = true
		close(d.jobs)
	}
	d.mu.Unlock()

	done := make(chan struct{})
	go func() {
		d.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return errors.Join(errors.New("notification: dispatcher did not drain"), ctx.Err())
	}
}

func (d *Dispatcher) loggerFor(ctx context.Context) *slog.Logger {
	if logger := logging.FromContext(ctx); logger != nil {
		return logger.With("component", "dispatcher")
	}
	return d.logger
}

func (d *Dispatcher) observe(kind, outcome string) {
	if d.observer != nil {
		d.observer.Dispatched(kind, outcome)
	}
}
