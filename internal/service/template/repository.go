package template

import (
	"context"

	"github.com/ironlady/newsletter-platform/internal/domain"
)

// Repository defines the data access contract for templates.
// Implementations must be safe for concurrent use.
type Repository interface {
	// Get returns a single template. Returns ErrNotFound if it doesn't exist.
	Get(ctx context.Context, id string) (*domain.Template, error)

	// List returns all templates, most recently updated first.
	List(ctx context.Context) ([]domain.Template, error)

	// LatestUpdated returns the most recently updated template.
	// Returns ErrNoTemplates when none exist.
	LatestUpdated(ctx context.Context) (*domain.Template, error)

	// Create inserts a new template and returns its ID.
	Create(ctx context.Context, t *domain.Template) (string, error)

	// Update modifies a template and bumps updated_at. Only non-nil
	// fields are applied.
	Update(ctx context.Context, id string, u UpdateFields) error

	// Delete removes a template.
	Delete(ctx context.Context, id string) error
}

// UpdateFields holds the mutable fields for a template update.
// Nil fields are not applied.
type UpdateFields struct {
	Title   *string
	Subject *string
	Content *string
}
