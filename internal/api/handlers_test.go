package api_test

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"sort"
	"sync"
	"testing"
	"time"

	"github.com/ironlady/newsletter-platform/internal/api"
	"github.com/ironlady/newsletter-platform/internal/content"
	"github.com/ironlady/newsletter-platform/internal/dispatch"
	"github.com/ironlady/newsletter-platform/internal/domain"
	"github.com/ironlady/newsletter-platform/internal/service/campaign"
	"github.com/ironlady/newsletter-platform/internal/service/subscriber"
	"github.com/ironlady/newsletter-platform/internal/service/template"
	"github.com/ironlady/newsletter-platform/internal/transport"
)

// --- in-memory fixtures ---

type memSubscribers struct {
	mu   sync.Mutex
	data map[string]*domain.Subscriber
	seq  int
}

func (m *memSubscribers) Get(_ context.Context, id string) (*domain.Subscriber, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	s, ok := m.data[id]
	if !ok {
		return nil, subscriber.ErrNotFound
	}
	cp := *s
	return &cp, nil
}

func (m *memSubscribers) GetByEmail(_ context.Context, email string) (*domain.Subscriber, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, s := range m.data {
		if s.Email == email {
			cp := *s
			return &cp, nil
		}
	}
	return nil, subscriber.ErrNotFound
}

func (m *memSubscribers) List(_ context.Context) ([]domain.Subscriber, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []domain.Subscriber
	for _, s := range m.data {
		out = append(out, *s)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.Before(out[j].CreatedAt) })
	return out, nil
}

func (m *memSubscribers) ListActive(ctx context.Context) ([]domain.Subscriber, error) {
	all, _ := m.List(ctx)
	var out []domain.Subscriber
	for _, s := range all {
		if s.Status == domain.SubscriberActive {
			out = append(out, s)
		}
	}
	return out, nil
}

func (m *memSubscribers) CountActive(ctx context.Context) (int, error) {
	subs, _ := m.ListActive(ctx)
	return len(subs), nil
}

func (m *memSubscribers) Create(_ context.Context, s *domain.Subscriber) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	cp := *s
	m.seq++
	cp.CreatedAt = time.Unix(int64(m.seq), 0)
	m.data[cp.ID] = &cp
	return cp.ID, nil
}

func (m *memSubscribers) Update(_ context.Context, id string, u subscriber.UpdateFields) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	s, ok := m.data[id]
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

func (m *memSubscribers) Delete(_ context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.data[id]; !ok {
		return subscriber.ErrNotFound
	}
	delete(m.data, id)
	return nil
}

type memTemplates struct {
	mu   sync.Mutex
	data map[string]*domain.Template
	seq  int
}

func (m *memTemplates) Get(_ context.Context, id string) (*domain.Template, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	t, ok := m.data[id]
	if !ok {
		return nil, template.ErrNotFound
	}
	cp := *t
	return &cp, nil
}

func (m *memTemplates) List(_ context.Context) ([]domain.Template, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []domain.Template
	for _, t := range m.data {
		out = append(out, *t)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].UpdatedAt.After(out[j].UpdatedAt) })
	return out, nil
}

func (m *memTemplates) LatestUpdated(ctx context.Context) (*domain.Template, error) {
	all, _ := m.List(ctx)
	if len(all) == 0 {
		return nil, template.ErrNoTemplates
	}
	cp := all[0]
	return &cp, nil
}

func (m *memTemplates) Create(_ context.Context, t *domain.Template) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	cp := *t
	m.seq++
	cp.CreatedAt = time.Unix(int64(m.seq), 0)
	cp.UpdatedAt = cp.CreatedAt
	m.data[cp.ID] = &cp
	return cp.ID, nil
}

func (m *memTemplates) Update(_ context.Context, id string, u template.UpdateFields) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	t, ok := m.data[id]
	if !ok {
		return template.ErrNotFound
	}
	if u.Title != nil {
		t.Title = *u.Title
	}
	if u.Subject != nil {
		t.Subject = *u.Subject
	}
	if u.Content != nil {
		t.Content = *u.Content
	}
	m.seq++
	t.UpdatedAt = time.Unix(int64(m.seq), 0)
	return nil
}

func (m *memTemplates) Delete(_ context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.data[id]; !ok {
		return template.ErrNotFound
	}
	delete(m.data, id)
	return nil
}

type memCampaigns struct {
	mu   sync.Mutex
	data map[string]*domain.Campaign
}

func (m *memCampaigns) Get(_ context.Context, id string) (*domain.Campaign, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	c, ok := m.data[id]
	if !ok {
		return nil, campaign.ErrNotFound
	}
	cp := *c
	return &cp, nil
}

func (m *memCampaigns) List(_ context.Context) ([]domain.Campaign, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []domain.Campaign
	for _, c := range m.data {
		out = append(out, *c)
	}
	return out, nil
}

func (m *memCampaigns) Recent(ctx context.Context, n int) ([]domain.Campaign, error) {
	all, _ := m.List(ctx)
	if len(all) > n {
		all = all[:n]
	}
	return all, nil
}

func (m *memCampaigns) CountByStatus(_ context.Context) (map[domain.CampaignStatus]int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make(map[domain.CampaignStatus]int)
	for _, c := range m.data {
		out[c.Status]++
	}
	return out, nil
}

func (m *memCampaigns) Create(_ context.Context, c *domain.Campaign) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	cp := *c
	m.data[cp.ID] = &cp
	return cp.ID, nil
}

func (m *memCampaigns) Update(_ context.Context, id string, u campaign.UpdateFields) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	c, ok := m.data[id]
	if !ok {
		return campaign.ErrNotFound
	}
	if u.Name != nil {
		c.Name = *u.Name
	}
	if u.TemplateID != nil {
		c.TemplateID = *u.TemplateID
	}
	return nil
}

func (m *memCampaigns) SetSchedule(_ context.Context, id string, at *time.Time) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	c, ok := m.data[id]
	if !ok {
		return campaign.ErrNotFound
	}
	if c.Status == domain.CampaignSent {
		return campaign.ErrAlreadySent
	}
	if at != nil {
		c.Status = domain.CampaignScheduled
		c.ScheduledAt = at
	} else {
		c.Status = domain.CampaignDraft
		c.ScheduledAt = nil
	}
	return nil
}

func (m *memCampaigns) MarkSent(_ context.Context, id string, recipientsCount int, sentAt time.Time) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	c, ok := m.data[id]
	if !ok {
		return campaign.ErrNotFound
	}
	if c.Status == domain.CampaignSent {
		return campaign.ErrAlreadySent
	}
	c.Status = domain.CampaignSent
	c.RecipientsCount = recipientsCount
	c.SentAt = &sentAt
	return nil
}

func (m *memCampaigns) IncrementEngagement(_ context.Context, id string, opened, clicked int) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	c, ok := m.data[id]
	if !ok {
		return campaign.ErrNotFound
	}
	c.OpenedCount += opened
	c.ClickedCount += clicked
	return nil
}

func (m *memCampaigns) Delete(_ context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.data[id]; !ok {
		return campaign.ErrNotFound
	}
	delete(m.data, id)
	return nil
}

// countingTransport accepts every message.
type countingTransport struct{}

func (countingTransport) Send(context.Context, transport.Message) error { return nil }

func newTestServer(t *testing.T) (*httptest.Server, *memSubscribers) {
	t.Helper()

	subsRepo := &memSubscribers{data: make(map[string]*domain.Subscriber)}
	tmplRepo := &memTemplates{data: make(map[string]*domain.Template)}
	campRepo := &memCampaigns{data: make(map[string]*domain.Campaign)}

	subscribers := subscriber.NewService(subsRepo)
	templates := template.NewService(tmplRepo)

	resolver := dispatch.NewSubscriberResolver(subsRepo)
	dispatcher := dispatch.New(resolver, countingTransport{}, dispatch.WithConcurrency(1))
	campaigns := campaign.NewService(campRepo, templates, dispatcher)

	generator := content.NewGenerator("", "claude-sonnet-4-20250514", 2000, nil)

	handlers := api.NewHandlers(subscribers, templates, campaigns, generator)
	srv := httptest.NewServer(api.SetupRoutes(handlers))
	t.Cleanup(srv.Close)
	return srv, subsRepo
}

func postJSON(t *testing.T, url string, body interface{}) *http.Response {
	t.Helper()
	data, _ := json.Marshal(body)
	resp, err := http.Post(url, "application/json", bytes.NewReader(data))
	if err != nil {
		t.Fatalf("POST %s: %v", url, err)
	}
	return resp
}

func decode(t *testing.T, resp *http.Response, dst interface{}) {
	t.Helper()
	defer resp.Body.Close()
	if err := json.NewDecoder(resp.Body).Decode(dst); err != nil {
		t.Fatalf("decode response: %v", err)
	}
}

func TestHealthCheck(t *testing.T) {
	srv, _ := newTestServer(t)
	resp, err := http.Get(srv.URL + "/health")
	if err != nil {
		t.Fatal(err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status = %d", resp.StatusCode)
	}
}

func TestSubscriberCRUD(t *testing.T) {
	srv, _ := newTestServer(t)

	resp := postJSON(t, srv.URL+"/api/subscribers/", map[string]string{
		"name": "Priya Sharma", "email": "priya@example.com", "program_interest": "LEP",
	})
	if resp.StatusCode != http.StatusCreated {
		t.Fatalf("create status = %d", resp.StatusCode)
	}
	var created domain.Subscriber
	decode(t, resp, &created)

	// Duplicate email is a conflict.
	resp = postJSON(t, srv.URL+"/api/subscribers/", map[string]string{
		"name": "Other", "email": "PRIYA@example.com",
	})
	if resp.StatusCode != http.StatusConflict {
		t.Fatalf("duplicate status = %d", resp.StatusCode)
	}
	resp.Body.Close()

	resp = postJSON(t, srv.URL+"/api/subscribers/"+created.ID+"/unsubscribe", nil)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("unsubscribe status = %d", resp.StatusCode)
	}
	resp.Body.Close()
}

func TestCampaignSendFlow(t *testing.T) {
	srv, subsRepo := newTestServer(t)

	for i := 0; i < 3; i++ {
		resp := postJSON(t, srv.URL+"/api/subscribers/", map[string]string{
			"name": fmt.Sprintf("sub%d", i), "email": fmt.Sprintf("sub%d@example.com", i),
		})
		resp.Body.Close()
	}

	resp := postJSON(t, srv.URL+"/api/templates/", map[string]string{
		"title": "June", "subject": "Hello {{name}}", "content": "<p>Hi {{name}}</p>",
	})
	var tmpl domain.Template
	decode(t, resp, &tmpl)

	resp = postJSON(t, srv.URL+"/api/campaigns/", map[string]string{
		"name": "June Newsletter", "template_id": tmpl.ID,
	})
	if resp.StatusCode != http.StatusCreated {
		t.Fatalf("create campaign status = %d", resp.StatusCode)
	}
	var c domain.Campaign
	decode(t, resp, &c)

	resp = postJSON(t, srv.URL+"/api/campaigns/"+c.ID+"/send", nil)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("send status = %d", resp.StatusCode)
	}
	var res dispatch.Result
	decode(t, resp, &res)
	if res.SentCount != 3 {
		t.Errorf("sent count = %d", res.SentCount)
	}

	// Second send is rejected.
	resp = postJSON(t, srv.URL+"/api/campaigns/"+c.ID+"/send", nil)
	if resp.StatusCode != http.StatusConflict {
		t.Fatalf("resend status = %d", resp.StatusCode)
	}
	resp.Body.Close()

	// Unsubscribed recipients are excluded from a later campaign.
	subs, _ := subsRepo.List(context.Background())
	resp = postJSON(t, srv.URL+"/api/subscribers/"+subs[0].ID+"/unsubscribe", nil)
	resp.Body.Close()

	resp = postJSON(t, srv.URL+"/api/campaigns/", map[string]string{
		"name": "July Newsletter", "template_id": tmpl.ID,
	})
	var c2 domain.Campaign
	decode(t, resp, &c2)

	resp = postJSON(t, srv.URL+"/api/campaigns/"+c2.ID+"/send", nil)
	decode(t, resp, &res)
	if res.SentCount != 2 {
		t.Errorf("sent count after unsubscribe = %d", res.SentCount)
	}
}

func TestCampaignCreateWithMissingTemplate(t *testing.T) {
	srv, _ := newTestServer(t)
	resp := postJSON(t, srv.URL+"/api/campaigns/", map[string]string{
		"name": "Broken", "template_id": "ghost",
	})
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusBadRequest {
		t.Fatalf("status = %d", resp.StatusCode)
	}
}

func TestTemplatePreview(t *testing.T) {
	srv, _ := newTestServer(t)
	resp := postJSON(t, srv.URL+"/api/templates/preview", map[string]interface{}{
		"subject": "Hello {{ name }}",
		"content": "<p>Hi {{ name }}</p>",
	})
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status = %d", resp.StatusCode)
	}
	var out map[string]string
	decode(t, resp, &out)
	if out["subject"] != "Hello Priya" {
		t.Errorf("subject = %q", out["subject"])
	}
}

func TestGenerateContentUnavailable(t *testing.T) {
	srv, _ := newTestServer(t)
	resp := postJSON(t, srv.URL+"/api/generate-content", map[string]string{"topic": "alumni"})
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusServiceUnavailable {
		t.Fatalf("status = %d", resp.StatusCode)
	}
}

func TestDashboard(t *testing.T) {
	srv, _ := newTestServer(t)

	resp := postJSON(t, srv.URL+"/api/subscribers/", map[string]string{
		"name": "Anjali", "email": "anjali@example.com",
	})
	resp.Body.Close()

	resp, err := http.Get(srv.URL + "/api/dashboard")
	if err != nil {
		t.Fatal(err)
	}
	var stats api.DashboardStats
	decode(t, resp, &stats)
	if stats.ActiveSubscribers != 1 || stats.TotalSubscribers != 1 {
		t.Errorf("subscriber stats = %+v", stats)
	}
}
