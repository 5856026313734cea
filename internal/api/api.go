package api

import (
	"encoding/json"
	"errors"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/google/uuid"

	"github.com/greenroomhq/greenroom/internal/club/domain"
	"github.com/greenroomhq/greenroom/internal/club/service"
	"github.com/greenroomhq/greenroom/internal/club/storage"
)

// identityHeader carries the acting student identity.
const identityHeader = "X-Student-Id"

// requestIDHeader carries the per-request correlation ID.
const requestIDHeader = "X-Request-Id"

// Handler bundles the club services behind HTTP handlers.
type Handler struct {
	events        *service.EventService
	registrations *service.RegistrationService
	users         *service.UserService
	admins        *service.AdminService
	ensembles     *service.EnsembleService
}

// NewHandler constructs the HTTP handler set.
func NewHandler(events *service.EventService, registrations *service.RegistrationService, users *service.UserService, admins *service.AdminService, ensembles *service.EnsembleService) *Handler {
	return &Handler{
		events:        events,
		registrations: registrations,
		users:         users,
		admins:        admins,
		ensembles:     ensembles,
	}
}

// NewRouter builds the API router.
func NewRouter(h *Handler) chi.Router {
	r := chi.NewRouter()
	r.Use(chimiddleware.Recoverer)
	r.Use(requestID)

	r.Get("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		writeData(w, http.StatusOK, map[string]string{"status": "ok"})
	})

	r.Route("/api/v1", func(r chi.Router) {
		r.Route("/events", func(r chi.Router) {
			r.Post("/", h.createEvent)
			r.Get("/", h.listEvents)
			r.Get("/active", h.listActiveEvents)
			r.Get("/upcoming", h.listUpcomingEvents)
			r.Get("/ongoing", h.listOngoingEvents)
			r.Get("/past", h.listPastEvents)
			r.Route("/{id}", func(r chi.Router) {
				r.Get("/", h.getEvent)
				r.Patch("/", h.updateEvent)
				r.Delete("/", h.deleteEventSubtree)
				r.Post("/activate", h.activateEvent)
				r.Post("/deactivate", h.deactivateEvent)
				r.Get("/participants", h.listEventParticipants)
				r.Post("/participants/{studentID}", h.register)
				r.Delete("/participants/{studentID}", h.unregister)
				r.Get("/ensembles", h.listEventEnsembles)
			})
		})

		r.Route("/ensembles", func(r chi.Router) {
			r.Post("/", h.createEnsemble)
			r.Get("/", h.listEnsembles)
			r.Route("/{id}", func(r chi.Router) {
				r.Get("/", h.getEnsemble)
				r.Patch("/", h.updateEnsemble)
				r.Delete("/", h.deleteEnsemble)
				r.Get("/members", h.listEnsembleMembers)
				r.Put("/members/{studentID}", h.addEnsembleMember)
				r.Delete("/members/{studentID}", h.removeEnsembleMember)
			})
		})

		r.Route("/users", func(r chi.Router) {
			r.Post("/", h.createUser)
			r.Post("/status", h.updateUserStatuses)
			r.Get("/active", h.listActiveUsers)
			r.Get("/pending", h.listPendingUsers)
			r.Route("/{studentID}", func(r chi.Router) {
				r.Get("/", h.getUser)
				r.Patch("/", h.updateUser)
				r.Delete("/", h.softDeleteUser)
				r.Post("/approve", h.approveUser)
				r.Post("/reject", h.rejectUser)
				r.Post("/revive", h.reviveUser)
				r.Get("/events", h.listUserEvents)
				r.Get("/ensembles", h.listUserEnsembles)
			})
		})

		r.Route("/admins", func(r chi.Router) {
			r.Get("/", h.listAdmins)
			r.Post("/{studentID}", h.createAdmin)
			r.Delete("/{studentID}", h.deleteAdmin)
		})
	})

	return r
}

// requestID stamps each request with a correlation ID, preserving one the
// client already sent.
func requestID(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		id := strings.TrimSpace(r.Header.Get(requestIDHeader))
		if id == "" {
			id = uuid.NewString()
		}
		w.Header().Set(requestIDHeader, id)
		next.ServeHTTP(w, r)
	})
}

func actingIdentity(r *http.Request) string {
	return strings.TrimSpace(r.Header.Get(identityHeader))
}

type errorBody struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

type envelope struct {
	Data  any        `json:"data,omitempty"`
	Error *errorBody `json:"error,omitempty"`
}

func writeData(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(envelope{Data: data})
}

func writeErrorCode(w http.ResponseWriter, status int, code, message string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(envelope{Error: &errorBody{Code: code, Message: message}})
}

// writeError maps service errors onto status codes.
func writeError(w http.ResponseWriter, err error) {
	var transitionErr *domain.InvalidTransitionError
	switch {
	case errors.Is(err, storage.ErrNotFound):
		writeErrorCode(w, http.StatusNotFound, "not_found", err.Error())
	case errors.Is(err, domain.ErrNotAuthorized):
		writeErrorCode(w, http.StatusForbidden, "not_authorized", err.Error())
	case errors.Is(err, domain.ErrUserNotEligible):
		writeErrorCode(w, http.StatusForbidden, "user_not_eligible", err.Error())
	case errors.Is(err, domain.ErrAlreadyRegistered):
		writeErrorCode(w, http.StatusConflict, "already_registered", err.Error())
	case errors.Is(err, domain.ErrCapacityExceeded):
		writeErrorCode(w, http.StatusConflict, "capacity_exceeded", err.Error())
	case errors.Is(err, domain.ErrContentionExceeded):
		writeErrorCode(w, http.StatusConflict, "contention_exceeded", err.Error())
	case errors.Is(err, domain.ErrNotRegistered):
		writeErrorCode(w, http.StatusConflict, "not_registered", err.Error())
	case errors.Is(err, domain.ErrAlreadyAdmin):
		writeErrorCode(w, http.StatusConflict, "already_admin", err.Error())
	case errors.Is(err, domain.ErrDuplicateUser):
		writeErrorCode(w, http.StatusConflict, "duplicate_user", err.Error())
	case errors.Is(err, domain.ErrUserNotDeleted):
		writeErrorCode(w, http.StatusConflict, "user_not_deleted", err.Error())
	case errors.Is(err, domain.ErrAlreadyEnsembleMember):
		writeErrorCode(w, http.StatusConflict, "already_ensemble_member", err.Error())
	case errors.Is(err, domain.ErrNotEnsembleMember):
		writeErrorCode(w, http.StatusConflict, "not_ensemble_member", err.Error())
	case errors.As(err, &transitionErr):
		writeErrorCode(w, http.StatusConflict, "invalid_transition", err.Error())
	case isValidationError(err):
		writeErrorCode(w, http.StatusBadRequest, "invalid_request", err.Error())
	default:
		writeErrorCode(w, http.StatusInternalServerError, "internal", "internal error")
	}
}

func isValidationError(err error) bool {
	for _, validation := range []error{
		domain.ErrEmptyTitle,
		domain.ErrInvalidEventType,
		domain.ErrInvalidEventWindow,
		domain.ErrNegativeCapacity,
		domain.ErrParentInactiveTree,
		domain.ErrEmptyStudentID,
		domain.ErrEmptyUsername,
		domain.ErrInvalidSession,
		domain.ErrEmptyRole,
		domain.ErrUserNotActive,
		domain.ErrEmptyEventID,
		domain.ErrEmptyUserID,
		domain.ErrEmptyArtist,
		domain.ErrEmptyEnsembleTitle,
		domain.ErrEnsembleFieldTooLong,
		domain.ErrEmptyEnsembleID,
	} {
		if errors.Is(err, validation) {
			return true
		}
	}
	return false
}

func decodeJSON(r *http.Request, dst any) error {
	r.Body = http.MaxBytesReader(nil, r.Body, 1<<20)
	decoder := json.NewDecoder(r.Body)
	decoder.DisallowUnknownFields()
	return decoder.Decode(dst)
}
