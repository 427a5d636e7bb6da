package subscriber

import (
	"context"

	"github.com/ironlady/newsletter-platform/internal/domain"
)

// Repository defines the data access contract for subscribers.
// Implementations must be safe for concurrent use.
type Repository interface {
	// Get returns a single subscriber. Returns ErrNotFound if it doesn't exist.
	Get(ctx context.Context, id string) (*domain.Subscriber, error)

	// GetByEmail returns the subscriber with the given (lowercased) email.
	// Returns ErrNotFound if no such subscriber exists.
	GetByEmail(ctx context.Context, email string) (*domain.Subscriber, error)

	// List returns all subscribers in creation order.
	List(ctx context.Context) ([]domain.Subscriber, error)

	// ListActive returns subscribers with status active, in creation order.
	// This is the recipient resolution read: it must reflect current
	// status, never a snapshot.
	ListActive(ctx context.Context) ([]domain.Subscriber, error)

	// CountActive returns the number of active subscribers.
	CountActive(ctx context.Context) (int, error)

	// Create inserts a new subscriber and returns its ID. Email uniqueness
	// is also enforced by the database (unique index on lower(email)).
	Create(ctx context.Context, s *domain.Subscriber) (string, error)

	// Update modifies a subscriber. Only non-nil fields are applied.
	Update(ctx context.Context, id string, u UpdateFields) error

	// Delete removes a subscriber.
	Delete(ctx context.Context, id string) error
}

// UpdateFields holds the mutable fields for a subscriber update.
// Nil fields are not applied.
type UpdateFields struct {
	Name            *string
	Email           *string
	ProgramInterest *string
	Status          *domain.SubscriberStatus
}
