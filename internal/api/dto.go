package api

import (
	"time"

	"github.com/greenroomhq/greenroom/internal/club/domain"
	"github.com/greenroomhq/greenroom/internal/club/service"
)

type eventResponse struct {
	ID                  string    `json:"id"`
	Title               string    `json:"title"`
	Description         string    `json:"description,omitempty"`
	Type                string    `json:"type"`
	StartAt             time.Time `json:"start_at"`
	EndAt               time.Time `json:"end_at"`
	ParentID            string    `json:"parent_id,omitempty"`
	RootID              string    `json:"root_id"`
	Depth               int       `json:"depth"`
	MaxParticipants     int       `json:"max_participants"`
	CurrentParticipants int       `json:"current_participants"`
	Active              bool      `json:"active"`
	CreatedBy           string    `json:"created_by,omitempty"`
	CreatedAt           time.Time `json:"created_at"`
	UpdatedAt           time.Time `json:"updated_at"`
}

func toEventResponse(event domain.Event) eventResponse {
	return eventResponse{
		ID:                  event.ID,
		Title:               event.Title,
		Description:         event.Description,
		Type:                event.Type.String(),
		StartAt:             event.StartAt,
		EndAt:               event.EndAt,
		ParentID:            event.ParentID,
		RootID:              event.RootID,
		Depth:               event.Depth,
		MaxParticipants:     event.MaxParticipants,
		CurrentParticipants: event.CurrentParticipants,
		Active:              event.Active,
		CreatedBy:           event.CreatedBy,
		CreatedAt:           event.CreatedAt,
		UpdatedAt:           event.UpdatedAt,
	}
}

func toEventResponses(events []domain.Event) []eventResponse {
	responses := make([]eventResponse, 0, len(events))
	for _, event := range events {
		responses = append(responses, toEventResponse(event))
	}
	return responses
}

type participantResponse struct {
	ID        string    `json:"id"`
	EventID   string    `json:"event_id"`
	UserID    string    `json:"user_id"`
	AppliedAt time.Time `json:"applied_at"`
}

func toParticipantResponse(participant domain.Participant) participantResponse {
	return participantResponse{
		ID:        participant.ID,
		EventID:   participant.EventID,
		UserID:    participant.UserID,
		AppliedAt: participant.AppliedAt,
	}
}

func toParticipantResponses(participants []domain.Participant) []participantResponse {
	responses := make([]participantResponse, 0, len(participants))
	for _, participant := range participants {
		responses = append(responses, toParticipantResponse(participant))
	}
	return responses
}

type userResponse struct {
	ID              string    `json:"id"`
	StudentID       string    `json:"student_id"`
	Username        string    `json:"username"`
	Email           string    `json:"email,omitempty"`
	Phone           string    `json:"phone,omitempty"`
	Batch           int       `json:"batch,omitempty"`
	Session         string    `json:"session"`
	Status          string    `json:"status"`
	StatusChangedAt time.Time `json:"status_changed_at"`
	CreatedAt       time.Time `json:"created_at"`
}

func toUserResponse(user domain.User) userResponse {
	return userResponse{
		ID:              user.ID,
		StudentID:       user.StudentID,
		Username:        user.Username,
		Email:           user.Email,
		Phone:           user.Phone,
		Batch:           user.Batch,
		Session:         user.Session.String(),
		Status:          user.Status.String(),
		StatusChangedAt: user.StatusChangedAt,
		CreatedAt:       user.CreatedAt,
	}
}

func toUserResponses(users []domain.User) []userResponse {
	responses := make([]userResponse, 0, len(users))
	for _, user := range users {
		responses = append(responses, toUserResponse(user))
	}
	return responses
}

type adminResponse struct {
	ID                string    `json:"id"`
	UserID            string    `json:"user_id"`
	StudentID         string    `json:"student_id"`
	Role              string    `json:"role"`
	AppointedBy       string    `json:"appointed_by"`
	AppointmentReason string    `json:"appointment_reason,omitempty"`
	CreatedAt         time.Time `json:"created_at"`
}

func toAdminResponse(admin domain.Admin) adminResponse {
	return adminResponse{
		ID:                admin.ID,
		UserID:            admin.UserID,
		StudentID:         admin.StudentID,
		Role:              admin.Role,
		AppointedBy:       admin.AppointedBy,
		AppointmentReason: admin.AppointmentReason,
		CreatedAt:         admin.CreatedAt,
	}
}

func toAdminResponses(admins []domain.Admin) []adminResponse {
	responses := make([]adminResponse, 0, len(admins))
	for _, admin := range admins {
		responses = append(responses, toAdminResponse(admin))
	}
	return responses
}

type ensembleResponse struct {
	ID        string    `json:"id"`
	EventID   string    `json:"event_id"`
	Artist    string    `json:"artist"`
	Title     string    `json:"title"`
	Notes     string    `json:"notes,omitempty"`
	Active    bool      `json:"active"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

func toEnsembleResponse(ensemble domain.Ensemble) ensembleResponse {
	return ensembleResponse{
		ID:        ensemble.ID,
		EventID:   ensemble.EventID,
		Artist:    ensemble.Artist,
		Title:     ensemble.Title,
		Notes:     ensemble.Notes,
		Active:    ensemble.Active,
		CreatedAt: ensemble.CreatedAt,
		UpdatedAt: ensemble.UpdatedAt,
	}
}

func toEnsembleResponses(ensembles []domain.Ensemble) []ensembleResponse {
	responses := make([]ensembleResponse, 0, len(ensembles))
	for _, ensemble := range ensembles {
		responses = append(responses, toEnsembleResponse(ensemble))
	}
	return responses
}

type ensembleMemberResponse struct {
	ID         string    `json:"id"`
	EnsembleID string    `json:"ensemble_id"`
	UserID     string    `json:"user_id"`
	Part       string    `json:"part"`
	CreatedAt  time.Time `json:"created_at"`
}

func toEnsembleMemberResponse(member domain.EnsembleMember) ensembleMemberResponse {
	return ensembleMemberResponse{
		ID:         member.ID,
		EnsembleID: member.EnsembleID,
		UserID:     member.UserID,
		Part:       member.Part.String(),
		CreatedAt:  member.CreatedAt,
	}
}

func toEnsembleMemberResponses(members []domain.EnsembleMember) []ensembleMemberResponse {
	responses := make([]ensembleMemberResponse, 0, len(members))
	for _, member := range members {
		responses = append(responses, toEnsembleMemberResponse(member))
	}
	return responses
}

type statusBatchResponse struct {
	Total     int                  `json:"total"`
	Succeeded int                  `json:"succeeded"`
	Failed    int                  `json:"failed"`
	Successes []string             `json:"successes,omitempty"`
	Failures  []statusBatchFailure `json:"failures,omitempty"`
}

type statusBatchFailure struct {
	StudentID string `json:"student_id"`
	Reason    string `json:"reason"`
}

func toStatusBatchResponse(result service.StatusBatchResult) statusBatchResponse {
	response := statusBatchResponse{
		Total:     result.Total,
		Succeeded: result.Succeeded,
		Failed:    result.Failed,
		Successes: result.Successes,
	}
	for _, failure := range result.Failures {
		response.Failures = append(response.Failures, statusBatchFailure{
			StudentID: failure.StudentID,
			Reason:    failure.Reason,
		})
	}
	return response
}
