// Package http provides the JSON API over the event service.
//
// The router exposes the following endpoints:
//   - POST /events: creates an event and materializes its slots. Body:
//     `createEventRequest`. Response: 201 with {"id"}.
//   - GET /events/{id}, PATCH /events/{id}, DELETE /events/{id}: read, update
//     or remove an event owned by the caller. PATCH takes `updateEventRequest`
//     where absent fields keep their value.
//   - GET /events/{id}/slots: the event's slots ordered by start.
//   - GET /slots?from=YYYY-MM-DD&to=YYYY-MM-DD: the caller's slots starting
//     within the inclusive date range.
//   - POST /slots/{id}/guests: adds guests to one slot. Body: {"emails"}.
//   - GET /metrics: Prometheus exposition.
//   - GET /healthz: storage health probe.
//
// Event and slot routes require the X-Organizer-ID header naming the acting
// organizer. Authentication happens in front of this service.
//
// Request/response DTOs live alongside their respective handlers so tests and
// documentation share the same ground truth.
package http
