package postgres

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/lib/pq"

	"github.com/ironlady/newsletter-platform/internal/domain"
	"github.com/ironlady/newsletter-platform/internal/service/subscriber"
)

// SubscriberRepo implements subscriber.Repository against PostgreSQL.
type SubscriberRepo struct{ db *sql.DB }

// NewSubscriberRepo creates a Postgres-backed subscriber repository.
func NewSubscriberRepo(db *sql.DB) *SubscriberRepo { return &SubscriberRepo{db: db} }

const subscriberCols = `id, name, email, COALESCE(program_interest,''), status, created_at`

func scanSubscriber(row interface{ Scan(...interface{}) error }) (*domain.Subscriber, error) {
	s := &domain.Subscriber{}
	err := row.Scan(&s.ID, &s.Name, &s.Email, &s.ProgramInterest, &s.Status, &s.CreatedAt)
	if err != nil {
		return nil, err
	}
	return s, nil
}

func (r *SubscriberRepo) Get(ctx context.Context, id string) (*domain.Subscriber, error) {
	s, err := scanSubscriber(r.db.QueryRowContext(ctx, `
		SELECT `+subscriberCols+` FROM subscribers WHERE id = $1
	`, id))
	if err == sql.ErrNoRows {
		return nil, subscriber.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get subscriber: %w", err)
	}
	return s, nil
}

func (r *SubscriberRepo) GetByEmail(ctx context.Context, email string) (*domain.Subscriber, error) {
	s, err := scanSubscriber(r.db.QueryRowContext(ctx, `
		SELECT `+subscriberCols+` FROM subscribers WHERE lower(email) = lower($1)
	`, email))
	if err == sql.ErrNoRows {
		return nil, subscriber.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get subscriber by email: %w", err)
	}
	return s, nil
}

func (r *SubscriberRepo) List(ctx context.Context) ([]domain.Subscriber, error) {
	return r.query(ctx, `
		SELECT `+subscriberCols+` FROM subscribers ORDER BY created_at, id
	`)
}

// ListActive is the recipient resolution read. The order matches
// creation order so dispatch attempts are deterministic.
func (r *SubscriberRepo) ListActive(ctx context.Context) ([]domain.Subscriber, error) {
	return r.query(ctx, `
		SELECT `+subscriberCols+` FROM subscribers
		WHERE status = 'active'
		ORDER BY created_at, id
	`)
}

func (r *SubscriberRepo) query(ctx context.Context, q string, args ...interface{}) ([]domain.Subscriber, error) {
	rows, err := r.db.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, fmt.Errorf("list subscribers: %w", err)
	}
	defer rows.Close()

	var out []domain.Subscriber
	for rows.Next() {
		s, err := scanSubscriber(rows)
		if err != nil {
			return nil, fmt.Errorf("scan subscriber: %w", err)
		}
		out = append(out, *s)
	}
	return out, rows.Err()
}

func (r *SubscriberRepo) CountActive(ctx context.Context) (int, error) {
	var n int
	err := r.db.QueryRowContext(ctx, `
		SELECT COUNT(*) FROM subscribers WHERE status = 'active'
	`).Scan(&n)
	if err != nil {
		return 0, fmt.Errorf("count active subscribers: %w", err)
	}
	return n, nil
}

func (r *SubscriberRepo) Create(ctx context.Context, s *domain.Subscriber) (string, error) {
	if s.ID == "" {
		s.ID = uuid.New().String()
	}
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO subscribers (id, name, email, program_interest, status, created_at)
		VALUES ($1, $2, $3, $4, $5, NOW())
	`, s.ID, s.Name, s.Email, s.ProgramInterest, s.Status)
	if err != nil {
		// 23505: the unique index on lower(email) caught a race the
		// service-level duplicate check missed.
		if pqErr, ok := err.(*pq.Error); ok && pqErr.Code == "23505" {
			return "", subscriber.ErrDuplicateEmail
		}
		return "", fmt.Errorf("create subscriber: %w", err)
	}
	return s.ID, nil
}

func (r *SubscriberRepo) Update(ctx context.Context, id string, u subscriber.UpdateFields) error {
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
	if u.Email != nil {
		add("email", *u.Email)
	}
	if u.ProgramInterest != nil {
		add("program_interest", *u.ProgramInterest)
	}
	if u.Status != nil {
		add("status", *u.Status)
	}
	if len(sets) == 0 {
		return nil
	}

	args = append(args, id)
	q := fmt.Sprintf("UPDATE subscribers SET %s WHERE id = $%d", strings.Join(sets, ", "), idx)

	res, err := r.db.ExecContext(ctx, q, args...)
	if err != nil {
		if pqErr, ok := err.(*pq.Error); ok && pqErr.Code == "23505" {
			return subscriber.ErrDuplicateEmail
		}
		return fmt.Errorf("update subscriber: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("update subscriber: %w", err)
	}
	if n == 0 {
		return subscriber.ErrNotFound
	}
	return nil
}

func (r *SubscriberRepo) Delete(ctx context.Context, id string) error {
	res, err := r.db.ExecContext(ctx, `DELETE FROM subscribers WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("delete subscriber: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("delete subscriber: %w", err)
	}
	if n == 0 {
		return subscriber.ErrNotFound
	}
	return nil
}
