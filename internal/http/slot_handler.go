package http

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/example/calendar-slots/internal/application"
)

type slotService interface {
	FindSlotsByOrganizerInRange(ctx context.Context, organizerID string, from, to time.Time) ([]application.Slot, error)
	InviteGuestsToSlot(ctx context.Context, organizerID, slotID string, emails []string) (application.Slot, error)
}

type SlotHandler struct {
	service   slotService
	responder responder
}

func NewSlotHandler(service slotService, logger *slog.Logger) *SlotHandler {
	return &SlotHandler{service: service, responder: newResponder("SlotHandler", logger)}
}

// List returns the caller's slots starting within ?from=..&to=.. (inclusive
// civil dates).
func (h *SlotHandler) List(w http.ResponseWriter, r *http.Request) {
	if h == nil || h.service == nil {
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}

	query := r.URL.Query()
	var parser fieldParser
	fromValue, toValue := query.Get("from"), query.Get("to")
	from := parser.date("from", &fromValue)
	to := parser.date("to", &toValue)
	if from == nil && parser.errors["from"] == "" {
		parser.fail("from", "is required")
	}
	if to == nil && parser.errors["to"] == "" {
		parser.fail("to", "is required")
	}
	if parser.errors != nil {
		h.responder.writeFieldErrors(r.Context(), w, parser.errors)
		return
	}

	organizerID, _ := OrganizerIDFromContext(r.Context())
	slots, err := h.service.FindSlotsByOrganizerInRange(r.Context(), organizerID, *from, *to)
	if err != nil {
		h.responder.handleServiceError(r.Context(), w, err)
		return
	}

	h.responder.writeJSON(r.Context(), w, http.StatusOK, slotListResponse{Slots: toSlotDTOs(slots)})
}

// InviteGuests adds guests to a single slot.
func (h *SlotHandler) InviteGuests(w http.ResponseWriter, r *http.Request) {
	if h == nil || h.service == nil {
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}

	slotID := strings.TrimSpace(r.PathValue("id"))
	if slotID == "" {
		h.responder.writeError(r.Context(), w, http.StatusBadRequest, errInvalidSlotID)
		return
	}

	var req inviteGuestsRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.responder.writeError(r.Context(), w, http.StatusBadRequest, errBadRequestBody)
		return
	}

	organizerID, _ := OrganizerIDFromContext(r.Context())
	slot, err := h.service.InviteGuestsToSlot(r.Context(), organizerID, slotID, req.Emails)
	if err != nil {
		h.responder.handleServiceError(r.Context(), w, err)
		return
	}

	h.responder.writeJSON(r.Context(), w, http.StatusOK, toSlotDTO(slot))
}

type inviteGuestsRequest struct {
	Emails []string `json:"emails"`
}
