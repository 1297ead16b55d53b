package http

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"strings"

	"github.com/example/calendar-slots/internal/application"
)

type eventService interface {
	CreateEvent(ctx context.Context, organizerID string, input application.CreateEventInput) (string, error)
	UpdateEvent(ctx context.Context, organizerID, eventID string, input application.UpdateEventInput) error
	DeleteEvent(ctx context.Context, organizerID, eventID string) error
	GetEvent(ctx context.Context, organizerID, eventID string) (application.Event, error)
	FindSlotsByEvent(ctx context.Context, eventID string) ([]application.Slot, error)
}

type EventHandler struct {
	service   eventService
	responder responder
}

func NewEventHandler(service eventService, logger *slog.Logger) *EventHandler {
	return &EventHandler{service: service, responder: newResponder("EventHandler", logger)}
}

func (h *EventHandler) Create(w http.ResponseWriter, r *http.Request) {
	if h == nil || h.service == nil {
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}

	var req createEventRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.responder.writeError(r.Context(), w, http.StatusBadRequest, errBadRequestBody)
		return
	}

	var parser fieldParser
	input := req.toInput(&parser)
	if parser.errors != nil {
		h.responder.writeFieldErrors(r.Context(), w, parser.errors)
		return
	}

	organizerID, _ := OrganizerIDFromContext(r.Context())
	eventID, err := h.service.CreateEvent(r.Context(), organizerID, input)
	if err != nil {
		h.responder.handleServiceError(r.Context(), w, err)
		return
	}

	h.responder.log(r.Context(), "operation", "Create", "event_id", eventID).
		DebugContext(r.Context(), "event created")
	w.Header().Set("Location", "/events/"+eventID)
	h.responder.writeJSON(r.Context(), w, http.StatusCreated, createEventResponse{ID: eventID})
}

func (h *EventHandler) Get(w http.ResponseWriter, r *http.Request) {
	if h == nil || h.service == nil {
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}

	eventID, ok := h.eventID(w, r)
	if !ok {
		return
	}

	organizerID, _ := OrganizerIDFromContext(r.Context())
	event, err := h.service.GetEvent(r.Context(), organizerID, eventID)
	if err != nil {
		h.responder.handleServiceError(r.Context(), w, err)
		return
	}

	h.responder.writeJSON(r.Context(), w, http.StatusOK, toEventDTO(event))
}

func (h *EventHandler) Update(w http.ResponseWriter, r *http.Request) {
	if h == nil || h.service == nil {
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}

	eventID, ok := h.eventID(w, r)
	if !ok {
		return
	}

	var req updateEventRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.responder.writeError(r.Context(), w, http.StatusBadRequest, errBadRequestBody)
		return
	}

	var parser fieldParser
	input := req.toInput(&parser)
	if parser.errors != nil {
		h.responder.writeFieldErrors(r.Context(), w, parser.errors)
		return
	}

	organizerID, _ := OrganizerIDFromContext(r.Context())
	if err := h.service.UpdateEvent(r.Context(), organizerID, eventID, input); err != nil {
		h.responder.handleServiceError(r.Context(), w, err)
		return
	}

	event, err := h.service.GetEvent(r.Context(), organizerID, eventID)
	if err != nil {
		h.responder.handleServiceError(r.Context(), w, err)
		return
	}
	h.responder.writeJSON(r.Context(), w, http.StatusOK, toEventDTO(event))
}

func (h *EventHandler) Delete(w http.ResponseWriter, r *http.Request) {
	if h == nil || h.service == nil {
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}

	eventID, ok := h.eventID(w, r)
	if !ok {
		return
	}

	organizerID, _ := OrganizerIDFromContext(r.Context())
	if err := h.service.DeleteEvent(r.Context(), organizerID, eventID); err != nil {
		h.responder.handleServiceError(r.Context(), w, err)
		return
	}

	h.responder.writeJSON(r.Context(), w, http.StatusNoContent, nil)
}

// ListSlots returns the event's slots. Ownership is checked through GetEvent
// first so that slots of other organizers' events stay hidden.
func (h *EventHandler) ListSlots(w http.ResponseWriter, r *http.Request) {
	if h == nil || h.service == nil {
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}

	eventID, ok := h.eventID(w, r)
	if !ok {
		return
	}

	organizerID, _ := OrganizerIDFromContext(r.Context())
	if _, err := h.service.GetEvent(r.Context(), organizerID, eventID); err != nil {
		h.responder.handleServiceError(r.Context(), w, err)
		return
	}

	slots, err := h.service.FindSlotsByEvent(r.Context(), eventID)
	if err != nil {
		h.responder.handleServiceError(r.Context(), w, err)
		return
	}

	h.responder.writeJSON(r.Context(), w, http.StatusOK, slotListResponse{Slots: toSlotDTOs(slots)})
}

func (h *EventHandler) eventID(w http.ResponseWriter, r *http.Request) (string, bool) {
	id := strings.TrimSpace(r.PathValue("id"))
	if id == "" {
		h.responder.writeError(r.Context(), w, http.StatusBadRequest, errInvalidEventID)
		return "", false
	}
	return id, true
}

type createEventRequest struct {
	OrganizerEmail string             `json:"organizer_email"`
	Title          string             `json:"title"`
	Location       string             `json:"location"`
	Description    string             `json:"description"`
	GuestEmails    []string           `json:"guest_emails"`
	Span           spanRequest        `json:"span"`
	Recurrence     *recurrenceRequest `json:"recurrence"`
}

func (r createEventRequest) toInput(p *fieldParser) application.CreateEventInput {
	return application.CreateEventInput{
		OrganizerEmail: strings.TrimSpace(r.OrganizerEmail),
		Title:          strings.TrimSpace(r.Title),
		Location:       r.Location,
		Description:    r.Description,
		GuestEmails:    append([]string(nil), r.GuestEmails...),
		Span:           r.Span.toInput(p),
		Recurrence:     r.Recurrence.toInput(p),
	}
}

type createEventResponse struct {
	ID string `json:"id"`
}

type updateEventRequest struct {
	Title       *string            `json:"title"`
	Location    *string            `json:"location"`
	Description *string            `json:"description"`
	GuestEmails *[]string          `json:"guest_emails"`
	Span        *spanRequest       `json:"span"`
	Recurrence  *recurrenceRequest `json:"recurrence"`
}

func (r updateEventRequest) toInput(p *fieldParser) application.UpdateEventInput {
	input := application.UpdateEventInput{
		Title:       r.Title,
		Location:    r.Location,
		Description: r.Description,
		GuestEmails: r.GuestEmails,
		Recurrence:  r.Recurrence.toInput(p),
	}
	if r.Span != nil {
		span := r.Span.toInput(p)
		input.Span = &span
	}
	return input
}
