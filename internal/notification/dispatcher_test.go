package notification

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"sync"
	"testing"
	"time"
)

type recordingNotifier struct {
	mu          sync.Mutex
	invitations []Invitation
	reminders   []Reminder
	err         error
	block       chan struct{}
}

func (n *recordingNotifier) NotifyInvitation(ctx context.Context, invitation Invitation) error {
	if n.block != nil {
		<-n.block
	}
	n.mu.Lock()
	defer n.mu.Unlock()
	n.invitations = append(n.invitations, invitation)
	return n.err
}

func (n *recordingNotifier) NotifyReminder(ctx context.Context, reminder Reminder) error {
	if n.block != nil {
		<-n.block
	}
	n.mu.Lock()
	defer n.mu.Unlock()
	n.reminders = append(n.reminders, reminder)
	return n.err
}

func (n *recordingNotifier) counts() (int, int) {
	n.mu.Lock()
	defer n.mu.Unlock()
	return len(n.invitations), len(n.reminders)
}

type countingObserver struct {
	mu     sync.Mutex
	counts map[string]int
}

func (o *countingObserver) Dispatched(kind, outcome string) {
	o.mu.Lock()
	defer o.mu.Unlock()
	if o.counts == nil {
		o.counts = make(map[string]int)
	}
	o.counts[kind+"/"+outcome]++
}

func (o *countingObserver) get(kind, outcome string) int {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.counts[kind+"/"+outcome]
}

func discardLogger() *slog.Logger {
	return slog.New(slog.NewJSONHandler(io.Discard, nil))
}

func closeDispatcher(t *testing.T, d *Dispatcher) {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := d.Close(ctx); err != nil {
		t.Fatalf("Close returned error: %v", err)
	}
}

func TestDispatcherDeliversMessages(t *testing.T) {
	notifier := &recordingNotifier{}
	observer := &countingObserver{}
	d := NewDispatcher(notifier, DispatcherConfig{Workers: 2}, discardLogger(), observer)

	ctx := context.Background()
	d.SendInvitation(ctx, Invitation{EventID: "event-1", Recipients: []string{"a@example.com"}})
	d.SendReminder(ctx, Reminder{SlotID: "slot-1", Recipients: []string{"a@example.com"}})
	closeDispatcher(t, d)

	invitations, reminders := notifier.counts()
	if invitations != 1 || reminders != 1 {
		t.Fatalf("expected 1 invitation and 1 reminder, got %d and %d", invitations, reminders)
	}
	if observer.get(KindInvitation, OutcomeSent) != 1 || observer.get(KindReminder, OutcomeSent) != 1 {
		t.Fatalf("unexpected observer counts: %v", observer.counts)
	}
}

func TestDispatcherSkipsMessagesWithoutRecipients(t *testing.T) {
	notifier := &recordingNotifier{}
	d := NewDispatcher(notifier, DispatcherConfig{}, discardLogger(), nil)

	d.SendInvitation(context.Background(), Invitation{EventID: "event-1"})
	d.SendReminder(context.Background(), Reminder{SlotID: "slot-1"})
	closeDispatcher(t, d)

	if invitations, reminders := notifier.counts(); invitations != 0 || reminders != 0 {
		t.Fatalf("expected nothing delivered, got %d invitations and %d reminders", invitations, reminders)
	}
}

func TestDispatcherDeduplicatesReminders(t *testing.T) {
	notifier := &recordingNotifier{}
	observer := &countingObserver{}
	d := NewDispatcher(notifier, DispatcherConfig{Workers: 1}, discardLogger(), observer)

	scheduled := time.Date(2024, 5, 1, 10, 0, 0, 0, time.UTC)
	reminder := Reminder{SlotID: "slot-1", Recipients: []string{"a@example.com"}, ScheduledFor: scheduled}
	d.SendReminder(context.Background(), reminder)
	d.SendReminder(context.Background(), reminder)
	closeDispatcher(t, d)

	if _, reminders := notifier.counts(); reminders != 1 {
		t.Fatalf("expected a single reminder, got %d", reminders)
	}
	if got := observer.get(KindReminder, OutcomeDuplicate); got != 1 {
		t.Fatalf("expected one duplicate, got %d", got)
	}
}

func TestDispatcherDropsWhenQueueFull(t *testing.T) {
	block := make(chan struct{})
	notifier := &recordingNotifier{block: block}
	observer := &countingObserver{}
	d := NewDispatcher(notifier, DispatcherConfig{Workers: 1, QueueSize: 1}, discardLogger(), observer)

	ctx := context.Background()
	// The first message occupies the worker; wait until it has been taken off
	// the queue before filling the single buffered slot.
	d.SendInvitation(ctx, Invitation{EventID: "event-1", Recipients: []string{"a@example.com"}})
	deadline := time.Now().Add(2 * time.Second)
	for len(d.jobs) != 0 && time.Now().Before(deadline) {
		time.Sleep(time.Millisecond)
	}
	d.SendInvitation(ctx, Invitation{EventID: "event-2", Recipients: []string{"a@example.com"}})
	d.SendInvitation(ctx, Invitation{EventID: "event-3", Recipients: []string{"a@example.com"}})

	if got := observer.get(KindInvitation, OutcomeDropped); got != 1 {
		t.Fatalf("expected one dropped invitation, got %d", got)
	}

	close(block)
	closeDispatcher(t, d)

	if invitations, _ := notifier.counts(); invitations != 2 {
		t.Fatalf("expected 2 delivered invitations, got %d", invitations)
	}
}

func TestDispatcherReleasesDroppedReminder(t *testing.T) {
	notifier := &recordingNotifier{}
	d := NewDispatcher(notifier, DispatcherConfig{Workers: 1}, discardLogger(), nil)
	closeDispatcher(t, d)

	reminder := Reminder{SlotID: "slot-1", Recipients: []string{"a@example.com"}}
	d.SendReminder(context.Background(), reminder)

	if !d.registry.claim(reminderKey(reminder.SlotID, reminder.ScheduledFor)) {
		t.Fatalf("expected dropped reminder to be released for a later retry")
	}
}

func TestDispatcherCountsFailures(t *testing.T) {
	notifier := &recordingNotifier{err: errors.New("smtp down")}
	observer := &countingObserver{}
	d := NewDispatcher(notifier, DispatcherConfig{Workers: 1}, discardLogger(), observer)

	d.SendInvitation(context.Background(), Invitation{EventID: "event-1", Recipients: []string{"a@example.com"}})
	closeDispatcher(t, d)

	if got := observer.get(KindInvitation, OutcomeFailed); got != 1 {
		t.Fatalf("expected one failed invitation, got %d", got)
	}
}

func TestDispatcherCloseHonoursContext(t *testing.T) {
	block := make(chan struct{})
	defer close(block)
	notifier := &recordingNotifier{block: block}
	d := NewDispatcher(notifier, DispatcherConfig{Workers: 1}, discardLogger(), nil)

	d.SendInvitation(context.Background(), Invitation{EventID: "event-1", Recipients: []string{"a@example.com"}})

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	if err := d.Close(ctx); !errors.Is(err, context.DeadlineExceeded) {
		t.Fatalf("expected deadline exceeded, got %v", err)
	}
}
