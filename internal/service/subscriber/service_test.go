package subscriber_test

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"testing"

	"github.com/ironlady/newsletter-platform/internal/domain"
	"github.com/ironlady/newsletter-platform/internal/service/subscriber"
)

// memRepo is an in-memory subscriber repository for unit testing.
type memRepo struct {
	mu          sync.Mutex
	subscribers map[string]*domain.Subscriber // keyed by id
	seq         int
}

func newMemRepo() *memRepo {
	return &memRepo{subscribers: make(map[string]*domain.Subscriber)}
}

func (m *memRepo) Get(_ context.Context, id string) (*domain.Subscriber, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	s, ok := m.subscribers[id]
	if !ok {
		return nil, subscriber.ErrNotFound
	}
	cp := *s
	return &cp, nil
}

func (m *memRepo) GetByEmail(_ context.Context, email string) (*domain.Subscriber, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, s := range m.subscribers {
		if s.Email == email {
			cp := *s
			return &cp, nil
		}
	}
	return nil, subscriber.ErrNotFound
}

func (m *memRepo) ordered() []domain.Subscriber {
	var out []domain.Subscriber
	for _, s := range m.subscribers {
		out = append(out, *s)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.Before(out[j].CreatedAt) })
	return out
}

func (m *memRepo) List(_ context.Context) ([]domain.Subscriber, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.ordered(), nil
}

func (m *memRepo) ListActive(_ context.Context) ([]domain.Subscriber, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []domain.Subscriber
	for _, s := range m.ordered() {
		if s.Status == domain.SubscriberActive {
			out = append(out, s)
		}
	}
	return out, nil
}

func (m *memRepo) CountActive(ctx context.Context) (int, error) {
	subs, _ := m.ListActive(ctx)
	return len(subs), nil
}

func (m *memRepo) Create(_ context.Context, s *domain.Subscriber) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if s.ID == "" {
		return "", fmt.Errorf("id required")
	}
	cp := *s
	m.seq++
	cp.CreatedAt = cp.CreatedAt.AddDate(0, 0, m.seq) // stable creation order
	m.subscribers[cp.ID] = &cp
	return cp.ID, nil
}

func (m *memRepo) Update(_ context.Context, id string, u subscriber.UpdateFields) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	s, ok := m.subscribers[id]
	if !ok {
		return subscriber.ErrNotFound
	}
	if u.Name != nil {
		s.Name = *u.Name
	}
	if u.Email != nil {
		s.Email = *u.Email
	}
	if u.ProgramInterest != nil {
		s.ProgramInterest = *u.ProgramInterest
	}
	if u.Status != nil {
		s.Status = *u.Status
	}
	return nil
}

func (m *memRepo) Delete(_ context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.subscribers[id]; !ok {
		return subscriber.ErrNotFound
	}
	delete(m.subscribers, id)
	return nil
}

func TestCreate(t *testing.T) {
	svc := subscriber.NewService(newMemRepo())
	s, err := svc.Create(context.Background(), subscriber.CreateInput{
		Name: "Priya Sharma", Email: "Priya@Example.com", ProgramInterest: "LEP",
	})
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	if s.Status != domain.SubscriberActive {
		t.Errorf("expected active, got %s", s.Status)
	}
	if s.Email != "priya@example.com" {
		t.Errorf("email not normalized: %s", s.Email)
	}
}

func TestCreateDuplicateEmail(t *testing.T) {
	svc := subscriber.NewService(newMemRepo())
	_, err := svc.Create(context.Background(), subscriber.CreateInput{
		Name: "Priya", Email: "priya@example.com",
	})
	if err != nil {
		t.Fatalf("create: %v", err)
	}

	// Same address with different casing must be rejected.
	_, err = svc.Create(context.Background(), subscriber.CreateInput{
		Name: "Other Priya", Email: "PRIYA@example.com",
	})
	if err != subscriber.ErrDuplicateEmail {
		t.Fatalf("expected ErrDuplicateEmail, got %v", err)
	}
}

func TestCreateValidation(t *testing.T) {
	svc := subscriber.NewService(newMemRepo())
	if _, err := svc.Create(context.Background(), subscriber.CreateInput{Email: "a@b.com"}); err == nil {
		t.Error("expected error for missing name")
	}
	if _, err := svc.Create(context.Background(), subscriber.CreateInput{Name: "A"}); err == nil {
		t.Error("expected error for missing email")
	}
}

func TestUnsubscribe(t *testing.T) {
	repo := newMemRepo()
	svc := subscriber.NewService(repo)
	s, _ := svc.Create(context.Background(), subscriber.CreateInput{
		Name: "Anjali", Email: "anjali@example.com",
	})

	if err := svc.Unsubscribe(context.Background(), s.ID); err != nil {
		t.Fatalf("unsubscribe: %v", err)
	}

	got, _ := svc.Get(context.Background(), s.ID)
	if got.Status != domain.SubscriberUnsubscribed {
		t.Errorf("expected unsubscribed, got %s", got.Status)
	}

	// Record must survive: delivery history may reference it.
	active, _ := repo.ListActive(context.Background())
	if len(active) != 0 {
		t.Errorf("unsubscribed subscriber still listed as active")
	}
}

func TestUpdateStatusValidation(t *testing.T) {
	svc := subscriber.NewService(newMemRepo())
	s, _ := svc.Create(context.Background(), subscriber.CreateInput{
		Name: "Neha", Email: "neha@example.com",
	})

	bad := domain.SubscriberStatus("bounced")
	if err := svc.Update(context.Background(), s.ID, subscriber.UpdateFields{Status: &bad}); err == nil {
		t.Error("expected error for unknown status")
	}
}

func TestUpdateEmailCollision(t *testing.T) {
	svc := subscriber.NewService(newMemRepo())
	a, _ := svc.Create(context.Background(), subscriber.CreateInput{Name: "A", Email: "a@example.com"})
	_, _ = svc.Create(context.Background(), subscriber.CreateInput{Name: "B", Email: "b@example.com"})

	taken := "B@example.com"
	if err := svc.Update(context.Background(), a.ID, subscriber.UpdateFields{Email: &taken}); err != subscriber.ErrDuplicateEmail {
		t.Fatalf("expected ErrDuplicateEmail, got %v", err)
	}

	// Re-saving your own address is not a collision.
	own := "A@example.com"
	if err := svc.Update(context.Background(), a.ID, subscriber.UpdateFields{Email: &own}); err != nil {
		t.Fatalf("update with own email: %v", err)
	}
}

func TestListActivePreservesCreationOrder(t *testing.T) {
	repo := newMemRepo()
	svc := subscriber.NewService(repo)

	for _, name := range []string{"first", "second", "third"} {
		if _, err := svc.Create(context.Background(), subscriber.CreateInput{
			Name: name, Email: name + "@example.com",
		}); err != nil {
			t.Fatalf("create %s: %v", name, err)
		}
	}

	second, _ := repo.GetByEmail(context.Background(), "second@example.com")
	if err := svc.Unsubscribe(context.Background(), second.ID); err != nil {
		t.Fatalf("unsubscribe: %v", err)
	}

	active, err := repo.ListActive(context.Background())
	if err != nil {
		t.Fatalf("list active: %v", err)
	}
	if len(active) != 2 || active[0].Name != "first" || active[1].Name != "third" {
		t.Errorf("unexpected active set: %+v", active)
	}
}
