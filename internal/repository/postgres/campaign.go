package postgres

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/ironlady/newsletter-platform/internal/domain"
	"github.com/ironlady/newsletter-platform/internal/service/campaign"
)

// CampaignRepo implements campaign.Repository against PostgreSQL.
type CampaignRepo struct{ db *sql.DB }

// NewCampaignRepo creates a Postgres-backed campaign repository.
func NewCampaignRepo(db *sql.DB) *CampaignRepo { return &CampaignRepo{db: db} }

const campaignCols = `id, name, template_id, status, scheduled_at, sent_at,
	recipients_count, opened_count, clicked_count, created_at`

func scanCampaign(row interface{ Scan(...interface{}) error }) (*domain.Campaign, error) {
	c := &domain.Campaign{}
	err := row.Scan(
		&c.ID, &c.Name, &c.TemplateID, &c.Status, &c.ScheduledAt, &c.SentAt,
		&c.RecipientsCount, &c.OpenedCount, &c.ClickedCount, &c.CreatedAt,
	)
	if err != nil {
		return nil, err
	}
	return c, nil
}

func (r *CampaignRepo) Get(ctx context.Context, id string) (*domain.Campaign, error) {
	c, err := scanCampaign(r.db.QueryRowContext(ctx, `
		SELECT `+campaignCols+` FROM campaigns WHERE id = $1
	`, id))
	if err == sql.ErrNoRows {
		return nil, campaign.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get campaign: %w", err)
	}
	return c, nil
}

func (r *CampaignRepo) List(ctx context.Context) ([]domain.Campaign, error) {
	return r.query(ctx, `
		SELECT `+campaignCols+` FROM campaigns ORDER BY created_at DESC
	`)
}

func (r *CampaignRepo) Recent(ctx context.Context, n int) ([]domain.Campaign, error) {
	if n <= 0 {
		n = 5
	}
	return r.query(ctx, `
		SELECT `+campaignCols+` FROM campaigns ORDER BY created_at DESC LIMIT $1
	`, n)
}

func (r *CampaignRepo) query(ctx context.Context, q string, args ...interface{}) ([]domain.Campaign, error) {
	rows, err := r.db.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, fmt.Errorf("list campaigns: %w", err)
	}
	defer rows.Close()

	var out []domain.Campaign
	for rows.Next() {
		c, err := scanCampaign(rows)
		if err != nil {
			return nil, fmt.Errorf("scan campaign: %w", err)
		}
		out = append(out, *c)
	}
	return out, rows.Err()
}

func (r *CampaignRepo) CountByStatus(ctx context.Context) (map[domain.CampaignStatus]int, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT status, COUNT(*) FROM campaigns GROUP BY status
	`)
	if err != nil {
		return nil, fmt.Errorf("count campaigns: %w", err)
	}
	defer rows.Close()

	out := make(map[domain.CampaignStatus]int)
	for rows.Next() {
		var status domain.CampaignStatus
		var n int
		if err := rows.Scan(&status, &n); err != nil {
			return nil, fmt.Errorf("scan campaign count: %w", err)
		}
		out[status] = n
	}
	return out, rows.Err()
}

func (r *CampaignRepo) Create(ctx context.Context, c *domain.Campaign) (string, error) {
	if c.ID == "" {
		c.ID = uuid.New().String()
	}
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO campaigns (id, name, template_id, status, created_at)
		VALUES ($1, $2, $3, $4, NOW())
	`, c.ID, c.Name, c.TemplateID, c.Status)
	if err != nil {
		return "", fmt.Errorf("create campaign: %w", err)
	}
	return c.ID, nil
}

func (r *CampaignRepo) Update(ctx context.Context, id string, u campaign.UpdateFields) error {
	sets := []string{}
	args := []interface{}{}
	idx := 1

	add := func(col string, val interface{}) {
		sets = append(sets, fmt.Sprintf("%s = $%d", col, idx))
		args = append(args, val)
		idx++
	}

	if u.Name != nil {
		add("name", *u.Name)
	}
	if u.TemplateID != nil {
		add("template_id", *u.TemplateID)
	}
	if len(sets) == 0 {
		return nil
	}

	args = append(args, id)
	q := fmt.Sprintf("UPDATE campaigns SET %s WHERE id = $%d", strings.Join(sets, ", "), idx)

	res, err := r.db.ExecContext(ctx, q, args...)
	if err != nil {
		return fmt.Errorf("update campaign: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("update campaign: %w", err)
	}
	if n == 0 {
		return campaign.ErrNotFound
	}
	return nil
}

// SetSchedule flips the campaign between draft and scheduled. The status
// guard lives in the WHERE clause so a concurrent send cannot be undone.
func (r *CampaignRepo) SetSchedule(ctx context.Context, id string, at *time.Time) error {
	var res sql.Result
	var err error
	if at != nil {
		res, err = r.db.ExecContext(ctx, `
			UPDATE campaigns SET status = 'scheduled', scheduled_at = $2
			WHERE id = $1 AND status IN ('draft', 'scheduled')
		`, id, *at)
	} else {
		res, err = r.db.ExecContext(ctx, `
			UPDATE campaigns SET status = 'draft', scheduled_at = NULL
			WHERE id = $1 AND status IN ('draft', 'scheduled')
		`, id)
	}
	if err != nil {
		return fmt.Errorf("set campaign schedule: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("set campaign schedule: %w", err)
	}
	if n == 0 {
		return r.explainMiss(ctx, id)
	}
	return nil
}

// MarkSent is the terminal transition. The compare-and-set on status
// makes it first-writer-wins: recipients_count and sent_at are stamped
// exactly once, in the same statement as the status flip.
func (r *CampaignRepo) MarkSent(ctx context.Context, id string, recipientsCount int, sentAt time.Time) error {
	res, err := r.db.ExecContext(ctx, `
		UPDATE campaigns
		SET status = 'sent', recipients_count = $2, sent_at = $3, scheduled_at = NULL
		WHERE id = $1 AND status IN ('draft', 'scheduled')
	`, id, recipientsCount, sentAt)
	if err != nil {
		return fmt.Errorf("mark campaign sent: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("mark campaign sent: %w", err)
	}
	if n == 0 {
		return r.explainMiss(ctx, id)
	}
	return nil
}

// explainMiss distinguishes a missing row from a guarded status after a
// zero-row conditional update.
func (r *CampaignRepo) explainMiss(ctx context.Context, id string) error {
	var status domain.CampaignStatus
	err := r.db.QueryRowContext(ctx, `SELECT status FROM campaigns WHERE id = $1`, id).Scan(&status)
	if err == sql.ErrNoRows {
		return campaign.ErrNotFound
	}
	if err != nil {
		return fmt.Errorf("check campaign status: %w", err)
	}
	if status == domain.CampaignSent {
		return campaign.ErrAlreadySent
	}
	return campaign.ErrNotFound
}

func (r *CampaignRepo) IncrementEngagement(ctx context.Context, id string, opened, clicked int) error {
	res, err := r.db.ExecContext(ctx, `
		UPDATE campaigns
		SET opened_count = opened_count + $2, clicked_count = clicked_count + $3
		WHERE id = $1
	`, id, opened, clicked)
	if err != nil {
		return fmt.Errorf("record campaign engagement: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("record campaign engagement: %w", err)
	}
	if n == 0 {
		return campaign.ErrNotFound
	}
	return nil
}

func (r *CampaignRepo) Delete(ctx context.Context, id string) error {
	res, err := r.db.ExecContext(ctx, `DELETE FROM campaigns WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("delete campaign: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("delete campaign: %w", err)
	}
	if n == 0 {
		return campaign.ErrNotFound
	}
	return nil
}
