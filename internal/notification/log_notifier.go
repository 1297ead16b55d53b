package notification

import (
	"context"
	"log/slog"
)

// LogNotifier writes messages to a logger instead of delivering them. It is
// the transport used when no mail server is configured.
type LogNotifier struct {
	logger *slog.Logger
}

// NewLogNotifier returns a LogNotifier. A nil logger falls back to slog.Default().
func NewLogNotifier(logger *slog.Logger) *LogNotifier {
	if logger == nil {
		logger = slog.Default()
	}
	return &LogNotifier{logger: logger.With("component", "log_notifier")}
}

// NotifyInvitation logs the invitation.
func (n *LogNotifier) NotifyInvitation(ctx context.Context, invitation Invitation) error {
	n.logger.InfoContext(ctx, "invitation",
		"event_id", invitation.EventID,
		"slot_id", invitation.SlotID,
		"recipients", invitation.Recipients,
		"subject", invitationSubject(invitation),
		"recurrence", invitation.Recurrence,
	)
	return nil
}

// NotifyReminder logs the reminder.
func (n *LogNotifier) NotifyReminder(ctx context.Context, reminder Reminder) error {
	n.logger.InfoContext(ctx, "reminder",
		"slot_id", reminder.SlotID,
		"event_id", reminder.EventID,
		"recipients", reminder.Recipients,
		"subject", reminderSubject(reminder),
		"scheduled_for", reminder.ScheduledFor,
	)
	return nil
}
