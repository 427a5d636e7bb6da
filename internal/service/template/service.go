package template

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/ironlady/newsletter-platform/internal/domain"
)

// Service implements template business logic.
type Service struct {
	repo Repository
}

// NewService creates a template service backed by the given repository.
func NewService(repo Repository) *Service {
	return &Service{repo: repo}
}

// Get returns a single template.
func (s *Service) Get(ctx context.Context, id string) (*domain.Template, error) {
	return s.repo.Get(ctx, id)
}

// List returns all templates, most recently updated first.
func (s *Service) List(ctx context.Context) ([]domain.Template, error) {
	return s.repo.List(ctx)
}

// LatestUpdated returns the template the monthly scheduler should use.
func (s *Service) LatestUpdated(ctx context.Context) (*domain.Template, error) {
	return s.repo.LatestUpdated(ctx)
}

// CreateInput holds the fields for creating a new template.
type CreateInput struct {
	Title   string `json:"title"`
	Subject string `json:"subject"`
	Content string `json:"content"`
}

// Create validates and persists a new template.
func (s *Service) Create(ctx context.Context, input CreateInput) (*domain.Template, error) {
	if input.Title == "" {
		return nil, fmt.Errorf("title is required")
	}
	if input.Subject == "" {
		return nil, fmt.Errorf("subject is required")
	}
	if input.Content == "" {
		return nil, fmt.Errorf("content is required")
	}

	t := &domain.Template{
		ID:      uuid.New().String(),
		Title:   input.Title,
		Subject: input.Subject,
		Content: input.Content,
	}

	id, err := s.repo.Create(ctx, t)
	if err != nil {
		return nil, err
	}
	t.ID = id
	return t, nil
}

// Update modifies mutable template fields.
func (s *Service) Update(ctx context.Context, id string, u UpdateFields) error {
	return s.repo.Update(ctx, id, u)
}

// Delete removes a template.
func (s *Service) Delete(ctx context.Context, id string) error {
	return s.repo.Delete(ctx, id)
}
