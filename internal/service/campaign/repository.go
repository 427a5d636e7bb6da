package campaign

import (
	"context"
	"time"

	"github.com/ironlady/newsletter-platform/internal/domain"
)

// Repository defines the data access contract for campaigns.
// Implementations must be safe for concurrent use.
type Repository interface {
	// Get returns a single campaign. Returns ErrNotFound if it doesn't exist.
	Get(ctx context.Context, id string) (*domain.Campaign, error)

	// List returns all campaigns, newest first.
	List(ctx context.Context) ([]domain.Campaign, error)

	// Recent returns the n most recently created campaigns.
	Recent(ctx context.Context, n int) ([]domain.Campaign, error)

	// CountByStatus returns the number of campaigns in each status.
	CountByStatus(ctx context.Context) (map[domain.CampaignStatus]int, error)

	// Create inserts a new campaign and returns its ID.
	Create(ctx context.Context, c *domain.Campaign) (string, error)

	// Update modifies mutable campaign fields. Only non-nil fields are
	// applied.
	Update(ctx context.Context, id string, u UpdateFields) error

	// SetSchedule moves the campaign between draft and scheduled. A non-nil
	// time sets status=scheduled with that scheduled_at; nil sets
	// status=draft and clears scheduled_at. Must refuse sent campaigns
	// with ErrAlreadySent.
	SetSchedule(ctx context.Context, id string, at *time.Time) error

	// MarkSent transitions the campaign to sent, stamping recipients_count
	// and sent_at in the same write. The transition is compare-and-set on
	// status NOT IN ('sent'); if another process already won the race it
	// returns ErrAlreadySent.
	MarkSent(ctx context.Context, id string, recipientsCount int, sentAt time.Time) error

	// IncrementEngagement adds externally reported open/click counts.
	IncrementEngagement(ctx context.Context, id string, opened, clicked int) error

	// Delete removes a campaign.
	Delete(ctx context.Context, id string) error
}

// UpdateFields holds the mutable fields for a campaign update.
// Nil fields are not applied.
type UpdateFields struct {
	Name       *string
	TemplateID *string
}
