package api

import (
	"context"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/greenroomhq/greenroom/internal/club/domain"
	"github.com/greenroomhq/greenroom/internal/club/service"
)

type createEventRequest struct {
	Title           string    `json:"title"`
	Description     string    `json:"description"`
	Type            string    `json:"type"`
	StartAt         time.Time `json:"start_at"`
	EndAt           time.Time `json:"end_at"`
	ParentID        string    `json:"parent_id"`
	MaxParticipants int       `json:"max_participants"`
}

func (h *Handler) createEvent(w http.ResponseWriter, r *http.Request) {
	var req createEventRequest
	if err := decodeJSON(r, &req); err != nil {
		writeErrorCode(w, http.StatusBadRequest, "invalid_request", "invalid request body: "+err.Error())
		return
	}

	eventType, err := domain.EventTypeFromString(req.Type)
	if err != nil {
		writeErrorCode(w, http.StatusBadRequest, "invalid_request", err.Error())
		return
	}

	event, err := h.events.CreateEvent(r.Context(), actingIdentity(r), service.CreateEventInput{
		Title:           req.Title,
		Description:     req.Description,
		Type:            eventType,
		StartAt:         req.StartAt,
		EndAt:           req.EndAt,
		ParentID:        req.ParentID,
		MaxParticipants: req.MaxParticipants,
	})
	if err != nil {
		writeError(w, err)
		return
	}

	writeData(w, http.StatusCreated, toEventResponse(event))
}

func (h *Handler) listEvents(w http.ResponseWriter, r *http.Request) {
	if typeName := strings.TrimSpace(r.URL.Query().Get("type")); typeName != "" {
		eventType, err := domain.EventTypeFromString(typeName)
		if err != nil {
			writeErrorCode(w, http.StatusBadRequest, "invalid_request", err.Error())
			return
		}
		events, err := h.events.ListEventsByType(r.Context(), eventType)
		if err != nil {
			writeError(w, err)
			return
		}
		writeData(w, http.StatusOK, toEventResponses(events))
		return
	}

	events, err := h.events.ListEvents(r.Context())
	if err != nil {
		writeError(w, err)
		return
	}
	writeData(w, http.StatusOK, toEventResponses(events))
}

func (h *Handler) listActiveEvents(w http.ResponseWriter, r *http.Request) {
	h.writeEventList(w, r, h.events.ListActiveEvents)
}

func (h *Handler) listUpcomingEvents(w http.ResponseWriter, r *http.Request) {
	h.writeEventList(w, r, h.events.ListUpcomingEvents)
}

func (h *Handler) listOngoingEvents(w http.ResponseWriter, r *http.Request) {
	h.writeEventList(w, r, h.events.ListOngoingEvents)
}

func (h *Handler) listPastEvents(w http.ResponseWriter, r *http.Request) {
	h.writeEventList(w, r, h.events.ListPastEvents)
}

func (h *Handler) writeEventList(w http.ResponseWriter, r *http.Request, list func(context.Context) ([]domain.Event, error)) {
	events, err := list(r.Context())
	if err != nil {
		writeError(w, err)
		return
	}
	writeData(w, http.StatusOK, toEventResponses(events))
}

func (h *Handler) getEvent(w http.ResponseWriter, r *http.Request) {
	event, err := h.events.GetEvent(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, err)
		return
	}
	writeData(w, http.StatusOK, toEventResponse(event))
}

type updateEventRequest struct {
	Title           *string    `json:"title"`
	Description     *string    `json:"description"`
	Type            *string    `json:"type"`
	StartAt         *time.Time `json:"start_at"`
	EndAt           *time.Time `json:"end_at"`
	MaxParticipants *int       `json:"max_participants"`
}

func (h *Handler) updateEvent(w http.ResponseWriter, r *http.Request) {
	var req updateEventRequest
	if err := decodeJSON(r, &req); err != nil {
		writeErrorCode(w, http.StatusBadRequest, "invalid_request", "invalid request body: "+err.Error())
		return
	}

	patch := domain.EventPatch{
		Title:           req.Title,
		Description:     req.Description,
		StartAt:         req.StartAt,
		EndAt:           req.EndAt,
		MaxParticipants: req.MaxParticipants,
	}
	if req.Type != nil {
		eventType, err := domain.EventTypeFromString(*req.Type)
		if err != nil {
			writeErrorCode(w, http.StatusBadRequest, "invalid_request", err.Error())
			return
		}
		patch.Type = &eventType
	}

	event, err := h.events.UpdateEvent(r.Context(), actingIdentity(r), chi.URLParam(r, "id"), patch)
	if err != nil {
		writeError(w, err)
		return
	}
	writeData(w, http.StatusOK, toEventResponse(event))
}

func (h *Handler) deleteEventSubtree(w http.ResponseWriter, r *http.Request) {
	if err := h.events.DeleteEventSubtree(r.Context(), actingIdentity(r), chi.URLParam(r, "id")); err != nil {
		writeError(w, err)
		return
	}
	writeData(w, http.StatusOK, map[string]string{"status": "deleted"})
}

func (h *Handler) activateEvent(w http.ResponseWriter, r *http.Request) {
	event, err := h.events.ActivateEvent(r.Context(), actingIdentity(r), chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, err)
		return
	}
	writeData(w, http.StatusOK, toEventResponse(event))
}

func (h *Handler) deactivateEvent(w http.ResponseWriter, r *http.Request) {
	event, err := h.events.DeactivateEvent(r.Context(), actingIdentity(r), chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, err)
		return
	}
	writeData(w, http.StatusOK, toEventResponse(event))
}

func (h *Handler) listEventParticipants(w http.ResponseWriter, r *http.Request) {
	participants, err := h.registrations.ListParticipantsByEvent(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, err)
		return
	}
	writeData(w, http.StatusOK, toParticipantResponses(participants))
}

func (h *Handler) register(w http.ResponseWriter, r *http.Request) {
	participant, err := h.registrations.Register(
		r.Context(),
		actingIdentity(r),
		chi.URLParam(r, "id"),
		chi.URLParam(r, "studentID"),
	)
	if err != nil {
		writeError(w, err)
		return
	}
	writeData(w, http.StatusCreated, toParticipantResponse(participant))
}

func (h *Handler) unregister(w http.ResponseWriter, r *http.Request) {
	err := h.registrations.Unregister(
		r.Context(),
		actingIdentity(r),
		chi.URLParam(r, "id"),
		chi.URLParam(r, "studentID"),
	)
	if err != nil {
		writeError(w, err)
		return
	}
	writeData(w, http.StatusOK, map[string]string{"status": "unregistered"})
}
