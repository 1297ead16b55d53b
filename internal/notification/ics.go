package notification

import (
	"fmt"

	ical "github.com/arran4/golang-ical"
)

const productID = "-//calendar-slots//notification//EN"

// BuildInvitationCalendar renders the invitation as an iCalendar REQUEST
// with one VEVENT. Series invitations carry the RRULE so that calendar
// clients expand the same occurrences the server materialized.
func BuildInvitationCalendar(invitation Invitation) string {
	cal := ical.NewCalendar()
	cal.SetMethod(ical.MethodRequest)
	cal.SetProductId(productID)

	event := cal.AddEvent(invitationUID(invitation))
	event.SetDtStampTime(invitation.SentAt.UTC())
	event.SetSummary(invitation.Title)
	if invitation.Location != "" {
		event.SetLocation(invitation.Location)
	}
	if invitation.Description != "" {
		event.SetDescription(invitation.Description)
	}

	if invitation.AllDay {
		event.SetAllDayStartAt(invitation.Start)
		// DTEND of an all-day event is exclusive.
		event.SetAllDayEndAt(invitation.End.AddDate(0, 0, 1))
	} else {
		event.SetStartAt(invitation.Start.UTC())
		event.SetEndAt(invitation.End.UTC())
	}

	if invitation.Recurrence != "" {
		event.AddRrule(invitation.Recurrence)
	}
	for _, date := range invitation.RecurrenceDates {
		if invitation.AllDay {
			event.AddRdate(date.Format("20060102"), ical.WithValue(string(ical.ValueDataTypeDate)))
		} else {
			event.AddRdate(date.UTC().Format("20060102T150405Z"))
		}
	}
	if invitation.OrganizerEmail != "" {
		event.SetOrganizer("mailto:" + invitation.OrganizerEmail)
	}
	for _, recipient := range invitation.Recipients {
		event.AddAttendee("mailto:"+recipient, ical.WithRSVP(true))
	}

	return cal.Serialize()
}

func invitationUID(invitation Invitation) string {
	if invitation.SlotID != "" {
		return fmt.Sprintf("%s@calendar-slots", invitation.SlotID)
	}
	return fmt.Sprintf("%s@calendar-slots", invitation.EventID)
}
