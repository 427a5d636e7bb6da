package domain

import "time"

// CampaignStatus enumerates the lifecycle states of a campaign.
// Transitions are monotonic: draft -> scheduled -> sent, with
// scheduled -> draft allowed while the campaign is still editable.
type CampaignStatus string

const (
	CampaignDraft     CampaignStatus = "draft"
	CampaignScheduled CampaignStatus = "scheduled"
	CampaignSent      CampaignStatus = "sent"
)

// Campaign is one instance of sending a template to the active subscriber
// set. Recipients are resolved at dispatch time, not frozen at creation.
type Campaign struct {
	ID         string         `json:"id" db:"id"`
	Name       string         `json:"name" db:"name"`
	TemplateID string         `json:"template_id" db:"template_id"`
	Status     CampaignStatus `json:"status" db:"status"`

	ScheduledAt *time.Time `json:"scheduled_at" db:"scheduled_at"`
	SentAt      *time.Time `json:"sent_at" db:"sent_at"`

	// RecipientsCount is set exactly once, atomically with the transition
	// to sent. OpenedCount and ClickedCount are externally reported and
	// may keep moving after the campaign is sent.
	RecipientsCount int `json:"recipients_count" db:"recipients_count"`
	OpenedCount     int `json:"opened_count" db:"opened_count"`
	ClickedCount    int `json:"clicked_count" db:"clicked_count"`

	CreatedAt time.Time `json:"created_at" db:"created_at"`
}

// IsTerminal returns true if the campaign is in a final state.
func (c *Campaign) IsTerminal() bool {
	return c.Status == CampaignSent
}
