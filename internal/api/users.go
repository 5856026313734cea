package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/greenroomhq/greenroom/internal/club/domain"
	"github.com/greenroomhq/greenroom/internal/club/service"
)

type createUserRequest struct {
	StudentID string `json:"student_id"`
	Username  string `json:"username"`
	Email     string `json:"email"`
	Phone     string `json:"phone"`
	Batch     int    `json:"batch"`
	Session   string `json:"session"`
}

func (h *Handler) createUser(w http.ResponseWriter, r *http.Request) {
	var req createUserRequest
	if err := decodeJSON(r, &req); err != nil {
		writeErrorCode(w, http.StatusBadRequest, "invalid_request", "invalid request body: "+err.Error())
		return
	}

	session, err := domain.SessionTypeFromString(req.Session)
	if err != nil {
		writeErrorCode(w, http.StatusBadRequest, "invalid_request", err.Error())
		return
	}

	user, err := h.users.CreateUser(r.Context(), domain.CreateUserInput{
		StudentID: req.StudentID,
		Username:  req.Username,
		Email:     req.Email,
		Phone:     req.Phone,
		Batch:     req.Batch,
		Session:   session,
	})
	if err != nil {
		writeError(w, err)
		return
	}
	writeData(w, http.StatusCreated, toUserResponse(user))
}

func (h *Handler) getUser(w http.ResponseWriter, r *http.Request) {
	user, err := h.users.GetUser(r.Context(), chi.URLParam(r, "studentID"))
	if err != nil {
		writeError(w, err)
		return
	}
	writeData(w, http.StatusOK, toUserResponse(user))
}

func (h *Handler) listActiveUsers(w http.ResponseWriter, r *http.Request) {
	users, err := h.users.ListActiveUsers(r.Context())
	if err != nil {
		writeError(w, err)
		return
	}
	writeData(w, http.StatusOK, toUserResponses(users))
}

func (h *Handler) listPendingUsers(w http.ResponseWriter, r *http.Request) {
	users, err := h.users.ListPendingUsers(r.Context(), actingIdentity(r))
	if err != nil {
		writeError(w, err)
		return
	}
	writeData(w, http.StatusOK, toUserResponses(users))
}

type updateUserRequest struct {
	Username *string `json:"username"`
	Email    *string `json:"email"`
	Phone    *string `json:"phone"`
	Batch    *int    `json:"batch"`
	Session  *string `json:"session"`
}

func (h *Handler) updateUser(w http.ResponseWriter, r *http.Request) {
	var req updateUserRequest
	if err := decodeJSON(r, &req); err != nil {
		writeErrorCode(w, http.StatusBadRequest, "invalid_request", "invalid request body: "+err.Error())
		return
	}

	input := service.UpdateUserInput{
		Username: req.Username,
		Email:    req.Email,
		Phone:    req.Phone,
		Batch:    req.Batch,
	}
	if req.Session != nil {
		session, err := domain.SessionTypeFromString(*req.Session)
		if err != nil {
			writeErrorCode(w, http.StatusBadRequest, "invalid_request", err.Error())
			return
		}
		input.Session = &session
	}

	user, err := h.users.UpdateUser(r.Context(), actingIdentity(r), chi.URLParam(r, "studentID"), input)
	if err != nil {
		writeError(w, err)
		return
	}
	writeData(w, http.StatusOK, toUserResponse(user))
}

type updateUserStatusesRequest struct {
	StudentIDs []string `json:"student_ids"`
	Action     string   `json:"action"`
	Reason     string   `json:"reason"`
}

func (h *Handler) updateUserStatuses(w http.ResponseWriter, r *http.Request) {
	var req updateUserStatusesRequest
	if err := decodeJSON(r, &req); err != nil {
		writeErrorCode(w, http.StatusBadRequest, "invalid_request", "invalid request body: "+err.Error())
		return
	}

	action, err := domain.StatusActionFromString(req.Action)
	if err != nil {
		writeErrorCode(w, http.StatusBadRequest, "invalid_request", err.Error())
		return
	}

	result, err := h.users.UpdateUserStatuses(r.Context(), actingIdentity(r), req.StudentIDs, action, req.Reason)
	if err != nil {
		writeError(w, err)
		return
	}
	writeData(w, http.StatusOK, toStatusBatchResponse(result))
}

func (h *Handler) approveUser(w http.ResponseWriter, r *http.Request) {
	user, err := h.users.ApproveUser(r.Context(), actingIdentity(r), chi.URLParam(r, "studentID"))
	if err != nil {
		writeError(w, err)
		return
	}
	writeData(w, http.StatusOK, toUserResponse(user))
}

func (h *Handler) rejectUser(w http.ResponseWriter, r *http.Request) {
	user, err := h.users.RejectUser(r.Context(), actingIdentity(r), chi.URLParam(r, "studentID"))
	if err != nil {
		writeError(w, err)
		return
	}
	writeData(w, http.StatusOK, toUserResponse(user))
}

func (h *Handler) softDeleteUser(w http.ResponseWriter, r *http.Request) {
	user, err := h.users.SoftDeleteUser(r.Context(), actingIdentity(r), chi.URLParam(r, "studentID"))
	if err != nil {
		writeError(w, err)
		return
	}
	writeData(w, http.StatusOK, toUserResponse(user))
}

func (h *Handler) reviveUser(w http.ResponseWriter, r *http.Request) {
	user, err := h.users.ReviveUser(r.Context(), actingIdentity(r), chi.URLParam(r, "studentID"))
	if err != nil {
		writeError(w, err)
		return
	}
	writeData(w, http.StatusOK, toUserResponse(user))
}

func (h *Handler) listUserEvents(w http.ResponseWriter, r *http.Request) {
	participants, err := h.registrations.ListParticipantsByUser(r.Context(), chi.URLParam(r, "studentID"))
	if err != nil {
		writeError(w, err)
		return
	}
	writeData(w, http.StatusOK, toParticipantResponses(participants))
}
