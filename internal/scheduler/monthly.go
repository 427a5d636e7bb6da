package scheduler

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/ironlady/newsletter-platform/internal/dispatch"
	"github.com/ironlady/newsletter-platform/internal/domain"
	"github.com/ironlady/newsletter-platform/internal/pkg/logger"
	"github.com/ironlady/newsletter-platform/internal/service/campaign"
	"github.com/ironlady/newsletter-platform/internal/service/template"
)

// TemplateSource yields the template the monthly newsletter should use.
type TemplateSource interface {
	LatestUpdated(ctx context.Context) (*domain.Template, error)
}

// CampaignRunner creates and sends the monthly campaign.
type CampaignRunner interface {
	Create(ctx context.Context, input campaign.CreateInput) (*domain.Campaign, error)
	Send(ctx context.Context, id string) (*dispatch.Result, error)
}

// MonthlyNewsletter creates a campaign from the most recently updated
// template and sends it. With no templates in the system the firing is
// a logged no-op, not an error.
type MonthlyNewsletter struct {
	templates TemplateSource
	campaigns CampaignRunner
}

// NewMonthlyNewsletter creates the monthly newsletter job.
func NewMonthlyNewsletter(templates TemplateSource, campaigns CampaignRunner) *MonthlyNewsletter {
	return &MonthlyNewsletter{templates: templates, campaigns: campaigns}
}

// Run executes one monthly firing.
func (j *MonthlyNewsletter) Run(ctx context.Context, now time.Time) error {
	tmpl, err := j.templates.LatestUpdated(ctx)
	if err != nil {
		if errors.Is(err, template.ErrNoTemplates) {
			logger.Warn("monthly newsletter skipped: no templates")
			return nil
		}
		return fmt.Errorf("pick template: %w", err)
	}

	name := now.Format("Monthly Newsletter - January 2006")
	c, err := j.campaigns.Create(ctx, campaign.CreateInput{Name: name, TemplateID: tmpl.ID})
	if err != nil {
		return fmt.Errorf("create campaign: %w", err)
	}

	res, err := j.campaigns.Send(ctx, c.ID)
	if err != nil {
		return fmt.Errorf("send campaign %s: %w", c.ID, err)
	}

	logger.Info("monthly newsletter sent",
		"campaign_id", c.ID, "template_id", tmpl.ID,
		"sent", res.SentCount, "failed", len(res.Failures))
	return nil
}
