package service

import (
	"context"
	"time"

	"workshop-service/internal/model"
	"workshop-service/internal/notify"
	"workshop-service/internal/repository"
)

// SignupResult reports what a signup did: a fresh registration or a
// reactivation of a cancelled one.
type SignupResult struct {
	Action string
	Status model.RegistrationStatus
}

type CancelResult struct {
	Previous *model.RegistrationStatus
	Status   model.RegistrationStatus
}

// RegistrationState describes a user's standing for one workshop.
type RegistrationState struct {
	Registered   bool
	Status       *model.RegistrationStatus
	RegisteredAt *time.Time
	CanSignup    bool
	CanCancel    bool
}

type WorkshopService interface {
	List(ctx context.Context, skills []string) ([]model.WorkshopSummary, error)
	Get(ctx context.Context, id int64) (*model.WorkshopSummary, error)
	Vacant(ctx context.Context, id int64) (int, error)
	Signup(ctx context.Context, userID, workshopID int64) (SignupResult, error)
	Cancel(ctx context.Context, userID, workshopID int64) (CancelResult, error)
	RegistrationState(ctx context.Context, userID, workshopID int64) (RegistrationState, error)
	BySkill(ctx context.Context, skill string) ([]model.Workshop, error)
	MatchingUserSkills(ctx context.Context, userID int64) ([]model.Workshop, error)
}

type workshopService struct {
	workshops     repository.WorkshopRepository
	registrations repository.RegistrationRepository
	publisher     notify.Publisher
}

func NewWorkshopService(
	workshops repository.WorkshopRepository,
	registrations repository.RegistrationRepository,
	publisher notify.Publisher,
) WorkshopService {
	return &workshopService{
		workshops:     workshops,
		registrations: registrations,
		publisher:     publisher,
	}
}

func (s *workshopService) List(ctx context.Context, skills []string) ([]model.WorkshopSummary, error) {
	return s.workshops.List(ctx, skills)
}

func (s *workshopService) Get(ctx context.Context, id int64) (*model.WorkshopSummary, error) {
	return s.workshops.FindByID(ctx, id)
}

func (s *workshopService) Vacant(ctx context.Context, id int64) (int, error) {
	return s.workshops.Vacant(ctx, id)
}

func (s *workshopService) Signup(ctx context.Context, userID, workshopID int64) (SignupResult, error) {
	action, err := s.registrations.Signup(ctx, userID, workshopID)
	if err != nil {
		return SignupResult{}, err
	}

	s.publisher.PublishRegistration(notify.SubjectRegistrationConfirmed, notify.RegistrationEvent{
		EventType:  notify.SubjectRegistrationConfirmed,
		WorkshopID: workshopID,
		UserID:     userID,
		Status:     model.StatusConfirmed,
		OccurredAt: time.Now().UTC(),
	})

	return SignupResult{Action: action, Status: model.StatusConfirmed}, nil
}

func (s *workshopService) Cancel(ctx context.Context, userID, workshopID int64) (CancelResult, error) {
	before, err := s.registrations.Find(ctx, userID, workshopID)
	if err != nil {
		return CancelResult{}, err
	}

	if _, err := s.registrations.Cancel(ctx, userID, workshopID); err != nil {
		return CancelResult{}, err
	}

	result := CancelResult{Status: model.StatusCancelled}
	if before != nil {
		status := before.Status
		result.Previous = &status
	}

	// Only an actual confirmed-to-cancelled transition is an event; repeated
	// cancels are silent no-ops.
	if before != nil && before.Status == model.StatusConfirmed {
		s.publisher.PublishRegistration(notify.SubjectRegistrationCancelled, notify.RegistrationEvent{
			EventType:  notify.SubjectRegistrationCancelled,
			WorkshopID: workshopID,
			UserID:     userID,
			Status:     model.StatusCancelled,
			OccurredAt: time.Now().UTC(),
		})
	}

	return result, nil
}

func (s *workshopService) RegistrationState(ctx context.Context, userID, workshopID int64) (RegistrationState, error) {
	reg, err := s.registrations.Find(ctx, userID, workshopID)
	if err != nil {
		return RegistrationState{}, err
	}
	if reg == nil {
		return RegistrationState{CanSignup: true}, nil
	}

	status := reg.Status
	registeredAt := reg.RegisteredAt
	return RegistrationState{
		Registered:   status == model.StatusConfirmed,
		Status:       &status,
		RegisteredAt: &registeredAt,
		CanSignup:    status == model.StatusCancelled,
		CanCancel:    status == model.StatusConfirmed,
	}, nil
}

func (s *workshopService) BySkill(ctx context.Context, skill string) ([]model.Workshop, error) {
	return s.workshops.ListBySkill(ctx, skill)
}

func (s *workshopService) MatchingUserSkills(ctx context.Context, userID int64) ([]model.Workshop, error) {
	return s.workshops.ListMatchingUserSkills(ctx, userID)
}
