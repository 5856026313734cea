package api

import (
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/greenroomhq/greenroom/internal/club/domain"
	"github.com/greenroomhq/greenroom/internal/club/service"
)

type createEnsembleRequest struct {
	EventID string            `json:"event_id"`
	Artist  string            `json:"artist"`
	Title   string            `json:"title"`
	Notes   string            `json:"notes"`
	Members map[string]string `json:"members"`
}

func (h *Handler) createEnsemble(w http.ResponseWriter, r *http.Request) {
	var req createEnsembleRequest
	if err := decodeJSON(r, &req); err != nil {
		writeErrorCode(w, http.StatusBadRequest, "invalid_request", "invalid request body: "+err.Error())
		return
	}

	members := make(map[string]domain.EnsemblePart, len(req.Members))
	for studentID, part := range req.Members {
		members[studentID] = domain.EnsemblePartFromString(part)
	}

	ensemble, err := h.ensembles.CreateEnsemble(r.Context(), actingIdentity(r), service.CreateEnsembleInput{
		EventID: req.EventID,
		Artist:  req.Artist,
		Title:   req.Title,
		Notes:   req.Notes,
		Members: members,
	})
	if err != nil {
		writeError(w, err)
		return
	}

	writeData(w, http.StatusCreated, toEnsembleResponse(ensemble))
}

func (h *Handler) getEnsemble(w http.ResponseWriter, r *http.Request) {
	ensemble, err := h.ensembles.GetEnsemble(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, err)
		return
	}
	writeData(w, http.StatusOK, toEnsembleResponse(ensemble))
}

func (h *Handler) listEnsembles(w http.ResponseWriter, r *http.Request) {
	if keyword := strings.TrimSpace(r.URL.Query().Get("q")); keyword != "" {
		ensembles, err := h.ensembles.SearchEnsembles(r.Context(), keyword)
		if err != nil {
			writeError(w, err)
			return
		}
		writeData(w, http.StatusOK, toEnsembleResponses(ensembles))
		return
	}

	ensembles, err := h.ensembles.ListActiveEnsembles(r.Context())
	if err != nil {
		writeError(w, err)
		return
	}
	writeData(w, http.StatusOK, toEnsembleResponses(ensembles))
}

func (h *Handler) listEventEnsembles(w http.ResponseWriter, r *http.Request) {
	ensembles, err := h.ensembles.ListEnsemblesByEvent(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, err)
		return
	}
	writeData(w, http.StatusOK, toEnsembleResponses(ensembles))
}

func (h *Handler) listUserEnsembles(w http.ResponseWriter, r *http.Request) {
	ensembles, err := h.ensembles.ListEnsemblesByUser(r.Context(), chi.URLParam(r, "studentID"))
	if err != nil {
		writeError(w, err)
		return
	}
	writeData(w, http.StatusOK, toEnsembleResponses(ensembles))
}

type updateEnsembleRequest struct {
	Artist *string `json:"artist"`
	Title  *string `json:"title"`
	Notes  *string `json:"notes"`
	Active *bool   `json:"active"`
}

func (h *Handler) updateEnsemble(w http.ResponseWriter, r *http.Request) {
	var req updateEnsembleRequest
	if err := decodeJSON(r, &req); err != nil {
		writeErrorCode(w, http.StatusBadRequest, "invalid_request", "invalid request body: "+err.Error())
		return
	}

	ensemble, err := h.ensembles.UpdateEnsemble(r.Context(), actingIdentity(r), chi.URLParam(r, "id"), domain.EnsemblePatch{
		Artist: req.Artist,
		Title:  req.Title,
		Notes:  req.Notes,
		Active: req.Active,
	})
	if err != nil {
		writeError(w, err)
		return
	}
	writeData(w, http.StatusOK, toEnsembleResponse(ensemble))
}

func (h *Handler) deleteEnsemble(w http.ResponseWriter, r *http.Request) {
	if err := h.ensembles.DeleteEnsemble(r.Context(), actingIdentity(r), chi.URLParam(r, "id")); err != nil {
		writeError(w, err)
		return
	}
	writeData(w, http.StatusOK, map[string]string{"status": "deleted"})
}

func (h *Handler) listEnsembleMembers(w http.ResponseWriter, r *http.Request) {
	members, err := h.ensembles.ListEnsembleMembers(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, err)
		return
	}
	writeData(w, http.StatusOK, toEnsembleMemberResponses(members))
}

type addEnsembleMemberRequest struct {
	Part string `json:"part"`
}

func (h *Handler) addEnsembleMember(w http.ResponseWriter, r *http.Request) {
	var req addEnsembleMemberRequest
	if err := decodeJSON(r, &req); err != nil {
		writeErrorCode(w, http.StatusBadRequest, "invalid_request", "invalid request body: "+err.Error())
		return
	}

	member, err := h.ensembles.AddEnsembleMember(
		r.Context(),
		actingIdentity(r),
		chi.URLParam(r, "id"),
		chi.URLParam(r, "studentID"),
		domain.EnsemblePartFromString(req.Part),
	)
	if err != nil {
		writeError(w, err)
		return
	}
	writeData(w, http.StatusCreated, toEnsembleMemberResponse(member))
}

func (h *Handler) removeEnsembleMember(w http.ResponseWriter, r *http.Request) {
	err := h.ensembles.RemoveEnsembleMember(r.Context(), actingIdentity(r), chi.URLParam(r, "id"), chi.URLParam(r, "studentID"))
	if err != nil {
		writeError(w, err)
		return
	}
	writeData(w, http.StatusOK, map[string]string{"status": "removed"})
}
