package subscriber

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/ironlady/newsletter-platform/internal/domain"
)

// Service implements subscriber business logic. All public methods are
// safe for concurrent use if the underlying repository is concurrency-safe.
type Service struct {
	repo Repository
}

// NewService creates a subscriber service backed by the given repository.
func NewService(repo Repository) *Service {
	return &Service{repo: repo}
}

// Get returns a single subscriber.
func (s *Service) Get(ctx context.Context, id string) (*domain.Subscriber, error) {
	return s.repo.Get(ctx, id)
}

// List returns all subscribers in creation order.
func (s *Service) List(ctx context.Context) ([]domain.Subscriber, error) {
	return s.repo.List(ctx)
}

// CountActive returns the number of active subscribers.
func (s *Service) CountActive(ctx context.Context) (int, error) {
	return s.repo.CountActive(ctx)
}

// CreateInput holds the fields for creating a new subscriber.
type CreateInput struct {
	Name            string `json:"name"`
	Email           string `json:"email"`
	ProgramInterest string `json:"program_interest"`
}

// Create validates and persists a new subscriber in active status.
// A duplicate email (case-insensitive) is rejected before any state change.
func (s *Service) Create(ctx context.Context, input CreateInput) (*domain.Subscriber, error) {
	if input.Name == "" {
		return nil, fmt.Errorf("name is required")
	}
	email := normalizeEmail(input.Email)
	if email == "" {
		return nil, fmt.Errorf("email is required")
	}

	if _, err := s.repo.GetByEmail(ctx, email); err == nil {
		return nil, ErrDuplicateEmail
	} else if !errors.Is(err, ErrNotFound) {
		return nil, err
	}

	sub := &domain.Subscriber{
		ID:              uuid.New().String(),
		Name:            input.Name,
		Email:           email,
		ProgramInterest: input.ProgramInterest,
		Status:          domain.SubscriberActive,
	}

	id, err := s.repo.Create(ctx, sub)
	if err != nil {
		return nil, err
	}
	sub.ID = id
	return sub, nil
}

// Update modifies mutable subscriber fields. A changed email is
// re-normalized and checked for uniqueness against other subscribers.
func (s *Service) Update(ctx context.Context, id string, u UpdateFields) error {
	if u.Email != nil {
		email := normalizeEmail(*u.Email)
		existing, err := s.repo.GetByEmail(ctx, email)
		if err == nil && existing.ID != id {
			return ErrDuplicateEmail
		}
		if err != nil && !errors.Is(err, ErrNotFound) {
			return err
		}
		u.Email = &email
	}
	if u.Status != nil {
		if *u.Status != domain.SubscriberActive && *u.Status != domain.SubscriberUnsubscribed {
			return fmt.Errorf("invalid status %q", *u.Status)
		}
	}
	return s.repo.Update(ctx, id, u)
}

// Unsubscribe transitions a subscriber to unsubscribed status. The record
// is kept: delivery history may still reference it.
func (s *Service) Unsubscribe(ctx context.Context, id string) error {
	status := domain.SubscriberUnsubscribed
	return s.repo.Update(ctx, id, UpdateFields{Status: &status})
}

// Delete removes a subscriber.
func (s *Service) Delete(ctx context.Context, id string) error {
	return s.repo.Delete(ctx, id)
}

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}
