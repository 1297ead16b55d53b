package notification

import (
	"fmt"
	"strings"
	"time"
)

func invitationSubject(invitation Invitation) string {
	return "Invitation: " + invitation.Title
}

func reminderSubject(reminder Reminder) string {
	return "Reminder: " + reminder.Title
}

func invitationText(invitation Invitation) string {
	var b strings.Builder
	if invitation.OrganizerEmail != "" {
		fmt.Fprintf(&b, "%s invited you to %q.\n\n", invitation.OrganizerEmail, invitation.Title)
	} else {
		fmt.Fprintf(&b, "You are invited to %q.\n\n", invitation.Title)
	}
	writeWhen(&b, invitation.AllDay, invitation.Start, invitation.End, invitation.StartZone)
	if invitation.Recurrence != "" {
		fmt.Fprintf(&b, "Repeats: %s (%d occurrences scheduled)\n", invitation.Recurrence, invitation.Occurrences)
	}
	writeDetails(&b, invitation.Location, invitation.Description)
	return b.String()
}

func reminderText(reminder Reminder) string {
	var b strings.Builder
	fmt.Fprintf(&b, "%q is coming up.\n\n", reminder.Title)
	writeWhen(&b, reminder.AllDay, reminder.Start, reminder.End, reminder.StartZone)
	writeDetails(&b, reminder.Location, reminder.Description)
	return b.String()
}

func writeWhen(b *strings.Builder, allDay bool, start, end time.Time, zone string) {
	if allDay {
		if start.Equal(end) {
			fmt.Fprintf(b, "When: %s (all day)\n", start.Format(time.DateOnly))
			return
		}
		fmt.Fprintf(b, "When: %s to %s (all day)\n", start.Format(time.DateOnly), end.Format(time.DateOnly))
		return
	}

	loc := time.UTC
	if zone != "" {
		if l, err := time.LoadLocation(zone); err == nil {
			loc = l
		}
	}
	fmt.Fprintf(b, "When: %s to %s (%s)\n",
		start.In(loc).Format("2006-01-02 15:04"),
		end.In(loc).Format("2006-01-02 15:04"),
		loc.String(),
	)
}

func writeDetails(b *strings.Builder, location, description string) {
	if location != "" {
		fmt.Fprintf(b, "Where: %s\n", location)
	}
	if description != "" {
		fmt.Fprintf(b, "\n%s\n", description)
	}
}
