package campaign

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/ironlady/newsletter-platform/internal/dispatch"
	"github.com/ironlady/newsletter-platform/internal/domain"
	"github.com/ironlady/newsletter-platform/internal/pkg/distlock"
	"github.com/ironlady/newsletter-platform/internal/pkg/logger"
	"github.com/ironlady/newsletter-platform/internal/service/template"
)

// TemplateStore is the slice of the template service Send depends on.
type TemplateStore interface {
	Get(ctx context.Context, id string) (*domain.Template, error)
}

// Dispatcher performs the fan-out delivery for one campaign.
type Dispatcher interface {
	Dispatch(ctx context.Context, c *domain.Campaign, tmpl *domain.Template) (*dispatch.Result, error)
}

// LockFactory builds a distributed lock for the given key. Optional: with
// no factory configured, Send relies on the repository's compare-and-set
// alone, which still guarantees at-most-once but lets two processes race
// through delivery before one loses the final transition.
type LockFactory func(key string) distlock.DistLock

// Service implements campaign business logic.
type Service struct {
	repo       Repository
	templates  TemplateStore
	dispatcher Dispatcher
	locks      LockFactory
}

// Option configures a Service.
type Option func(*Service)

// WithLockFactory enables a distributed send lock so concurrent Send
// calls fail fast with ErrSendInProgress instead of double-delivering.
func WithLockFactory(f LockFactory) Option {
	return func(s *Service) { s.locks = f }
}

// NewService creates a campaign service.
func NewService(repo Repository, templates TemplateStore, dispatcher Dispatcher, opts ...Option) *Service {
	s := &Service{repo: repo, templates: templates, dispatcher: dispatcher}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Get returns a single campaign.
func (s *Service) Get(ctx context.Context, id string) (*domain.Campaign, error) {
	return s.repo.Get(ctx, id)
}

// List returns all campaigns, newest first.
func (s *Service) List(ctx context.Context) ([]domain.Campaign, error) {
	return s.repo.List(ctx)
}

// Recent returns the n most recently created campaigns.
func (s *Service) Recent(ctx context.Context, n int) ([]domain.Campaign, error) {
	return s.repo.Recent(ctx, n)
}

// CountByStatus returns campaign counts per status for the dashboard.
func (s *Service) CountByStatus(ctx context.Context) (map[domain.CampaignStatus]int, error) {
	return s.repo.CountByStatus(ctx)
}

// CreateInput holds the fields for creating a new campaign.
type CreateInput struct {
	Name       string `json:"name"`
	TemplateID string `json:"template_id"`
}

// Create validates and persists a new draft campaign. The referenced
// template must exist.
func (s *Service) Create(ctx context.Context, input CreateInput) (*domain.Campaign, error) {
	if input.Name == "" {
		return nil, fmt.Errorf("name is required")
	}
	if input.TemplateID == "" {
		return nil, fmt.Errorf("template_id is required")
	}
	if _, err := s.templates.Get(ctx, input.TemplateID); err != nil {
		if errors.Is(err, template.ErrNotFound) {
			return nil, ErrTemplateNotFound
		}
		return nil, fmt.Errorf("check template: %w", err)
	}

	c := &domain.Campaign{
		ID:         uuid.New().String(),
		Name:       input.Name,
		TemplateID: input.TemplateID,
		Status:     domain.CampaignDraft,
	}
	id, err := s.repo.Create(ctx, c)
	if err != nil {
		return nil, err
	}
	c.ID = id
	return c, nil
}

// Update modifies mutable campaign fields. Sent campaigns are immutable.
func (s *Service) Update(ctx context.Context, id string, u UpdateFields) error {
	c, err := s.repo.Get(ctx, id)
	if err != nil {
		return err
	}
	if c.IsTerminal() {
		return ErrAlreadySent
	}
	if u.TemplateID != nil {
		if _, err := s.templates.Get(ctx, *u.TemplateID); err != nil {
			if errors.Is(err, template.ErrNotFound) {
				return ErrTemplateNotFound
			}
			return fmt.Errorf("check template: %w", err)
		}
	}
	return s.repo.Update(ctx, id, u)
}

// Delete removes a campaign.
func (s *Service) Delete(ctx context.Context, id string) error {
	return s.repo.Delete(ctx, id)
}

// Schedule moves a campaign to scheduled with the given send time.
// Rescheduling an already scheduled campaign just moves the time.
func (s *Service) Schedule(ctx context.Context, id string, at time.Time) error {
	c, err := s.repo.Get(ctx, id)
	if err != nil {
		return err
	}
	if c.IsTerminal() {
		return ErrAlreadySent
	}
	return s.repo.SetSchedule(ctx, id, &at)
}

// Unschedule moves a scheduled campaign back to draft and clears its
// scheduled time.
func (s *Service) Unschedule(ctx context.Context, id string) error {
	c, err := s.repo.Get(ctx, id)
	if err != nil {
		return err
	}
	if c.IsTerminal() {
		return ErrAlreadySent
	}
	return s.repo.SetSchedule(ctx, id, nil)
}

// Send dispatches the campaign to the current active subscriber set and
// transitions it to sent. Partial delivery failures do not fail the
// send: the campaign still becomes sent, recipients_count records the
// successful hand-offs, and the failures come back in the Result for
// the caller to surface.
//
// Returns ErrAlreadySent for a campaign that is already sent,
// ErrTemplateNotFound when the referenced template has been deleted
// (checked before any delivery is attempted), and ErrSendInProgress
// when another process holds the send lock.
func (s *Service) Send(ctx context.Context, id string) (*dispatch.Result, error) {
	// Take the lock before reading any state: a status check done outside
	// the lock can go stale while another sender finishes, and the MarkSent
	// CAS would only catch that after duplicate delivery.
	if s.locks != nil {
		lock := s.locks("campaign:send:" + id)
		acquired, err := lock.Acquire(ctx)
		if err != nil {
			return nil, fmt.Errorf("acquire send lock: %w", err)
		}
		if !acquired {
			return nil, ErrSendInProgress
		}
		defer func() {
			if err := lock.Release(context.WithoutCancel(ctx)); err != nil {
				logger.Warn("release send lock failed", "campaign_id", id, "error", err.Error())
			}
		}()
	}

	c, err := s.repo.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if c.IsTerminal() {
		return nil, ErrAlreadySent
	}

	// Resolve the template before touching any recipient so a dangling
	// template reference aborts with zero messages delivered.
	tmpl, err := s.templates.Get(ctx, c.TemplateID)
	if err != nil {
		if errors.Is(err, template.ErrNotFound) {
			return nil, ErrTemplateNotFound
		}
		return nil, fmt.Errorf("load template: %w", err)
	}

	logger.Info("campaign send started",
		"campaign_id", id, "campaign_name", c.Name, "template_id", tmpl.ID)

	res, err := s.dispatcher.Dispatch(ctx, c, tmpl)
	if err != nil {
		// Recipients could not be resolved; nothing was delivered and the
		// campaign stays in its current status.
		return nil, fmt.Errorf("dispatch campaign %s: %w", id, err)
	}

	for _, f := range res.Failures {
		logger.Warn("campaign recipient failed",
			"campaign_id", id, "recipient", f.Subscriber.Email, "reason", f.Reason)
	}

	if err := s.repo.MarkSent(ctx, id, res.SentCount, time.Now().UTC()); err != nil {
		return nil, err
	}

	logger.Info("campaign send finished",
		"campaign_id", id, "sent", res.SentCount, "failed", len(res.Failures))
	return res, nil
}

// RecordEngagement adds externally reported open and click counts. Sent
// campaigns stay sent; engagement never changes status.
func (s *Service) RecordEngagement(ctx context.Context, id string, opened, clicked int) error {
	if opened < 0 || clicked < 0 {
		return fmt.Errorf("engagement counts must be non-negative")
	}
	return s.repo.IncrementEngagement(ctx, id, opened, clicked)
}
