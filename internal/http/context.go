package http

import "context"

type contextKey string

const organizerIDContextKey contextKey = "organizer_id"

// ContextWithOrganizerID returns a derived context carrying the acting organizer.
func ContextWithOrganizerID(ctx context.Context, organizerID string) context.Context {
	return context.WithValue(ctx, organizerIDContextKey, organizerID)
}

// OrganizerIDFromContext extracts the acting organizer if one was attached.
func OrganizerIDFromContext(ctx context.Context) (string, bool) {
	id, ok := ctx.Value(organizerIDContextKey).(string)
	return id, ok && id != ""
}
