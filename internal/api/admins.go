package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/greenroomhq/greenroom/internal/club/service"
)

type createAdminRequest struct {
	Role              string `json:"role"`
	AppointmentReason string `json:"appointment_reason"`
}

func (h *Handler) createAdmin(w http.ResponseWriter, r *http.Request) {
	var req createAdminRequest
	if err := decodeJSON(r, &req); err != nil {
		writeErrorCode(w, http.StatusBadRequest, "invalid_request", "invalid request body: "+err.Error())
		return
	}

	admin, err := h.admins.CreateAdmin(r.Context(), actingIdentity(r), service.CreateAdminInput{
		StudentID:         chi.URLParam(r, "studentID"),
		Role:              req.Role,
		AppointmentReason: req.AppointmentReason,
	})
	if err != nil {
		writeError(w, err)
		return
	}
	writeData(w, http.StatusCreated, toAdminResponse(admin))
}

func (h *Handler) listAdmins(w http.ResponseWriter, r *http.Request) {
	admins, err := h.admins.ListAdmins(r.Context())
	if err != nil {
		writeError(w, err)
		return
	}
	writeData(w, http.StatusOK, toAdminResponses(admins))
}

func (h *Handler) deleteAdmin(w http.ResponseWriter, r *http.Request) {
	if err := h.admins.DeleteAdmin(r.Context(), actingIdentity(r), chi.URLParam(r, "studentID")); err != nil {
		writeError(w, err)
		return
	}
	writeData(w, http.StatusOK, map[string]string{"status": "deleted"})
}
