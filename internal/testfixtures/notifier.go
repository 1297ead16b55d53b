package testfixtures

import (
	"context"
	"slices"
	"sync"

	"github.com/example/calendar-slots/internal/notification"
)

// RecordingNotifier captures messages handed to it synchronously.
type RecordingNotifier struct {
	mu          sync.Mutex
	invitations []notification.Invitation
	reminders   []notification.Reminder
}

// SendInvitation records the invitation.
func (n *RecordingNotifier) SendInvitation(ctx context.Context, invitation notification.Invitation) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.invitations = append(n.invitations, invitation)
}

// SendReminder records the reminder.
func (n *RecordingNotifier) SendReminder(ctx context.Context, reminder notification.Reminder) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.reminders = append(n.reminders, reminder)
}

// Invitations returns the recorded invitations.
func (n *RecordingNotifier) Invitations() []notification.Invitation {
	n.mu.Lock()
	defer n.mu.Unlock()
	return slices.Clone(n.invitations)
}

// Reminders returns the recorded reminders.
func (n *RecordingNotifier) Reminders() []notification.Reminder {
	n.mu.Lock()
	defer n.mu.Unlock()
	return slices.Clone(n.reminders)
}

// Reset forgets everything recorded so far.
func (n *RecordingNotifier) Reset() {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.invitations = nil
	n.reminders = nil
}
