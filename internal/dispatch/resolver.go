package dispatch

import (
	"context"

	"github.com/ironlady/newsletter-platform/internal/domain"
)

// Resolver returns the eligible recipients for a campaign. Implementations
// must re-evaluate on every call: subscriber status can change between
// campaign creation and send time, and recipients are deliberately not
// frozen at creation.
type Resolver interface {
	Resolve(ctx context.Context, c *domain.Campaign) ([]domain.Subscriber, error)
}

// ActiveLister lists active subscribers in creation order.
// Satisfied by the subscriber repository.
type ActiveLister interface {
	ListActive(ctx context.Context) ([]domain.Subscriber, error)
}

// SubscriberResolver resolves every active subscriber, regardless of
// campaign. Pure read; no caching across campaigns.
type SubscriberResolver struct {
	subscribers ActiveLister
}

// NewSubscriberResolver creates a resolver backed by the given lister.
func NewSubscriberResolver(subscribers ActiveLister) *SubscriberResolver {
	return &SubscriberResolver{subscribers: subscribers}
}

// Resolve returns all subscribers with status active at call time, in
// creation order.
func (r *SubscriberResolver) Resolve(ctx context.Context, _ *domain.Campaign) ([]domain.Subscriber, error) {
	return r.subscribers.ListActive(ctx)
}
