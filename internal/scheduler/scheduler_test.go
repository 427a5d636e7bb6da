package scheduler_test

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"

	"github.com/ironlady/newsletter-platform/internal/dispatch"
	"github.com/ironlady/newsletter-platform/internal/pkg/distlock"
	"github.com/ironlady/newsletter-platform/internal/domain"
	"github.com/ironlady/newsletter-platform/internal/scheduler"
	"github.com/ironlady/newsletter-platform/internal/service/campaign"
	"github.com/ironlady/newsletter-platform/internal/service/template"
)

type fakeJob struct {
	runs   int
	err    error
	panics bool
}

func (f *fakeJob) Run(context.Context, time.Time) error {
	f.runs++
	if f.panics {
		panic("boom")
	}
	return f.err
}

type fakeTemplates struct {
	tmpl *domain.Template
	err  error
}

func (f *fakeTemplates) LatestUpdated(context.Context) (*domain.Template, error) {
	return f.tmpl, f.err
}

type fakeCampaigns struct {
	created []campaign.CreateInput
	sent    []string
	sendErr error
}

func (f *fakeCampaigns) Create(_ context.Context, in campaign.CreateInput) (*domain.Campaign, error) {
	f.created = append(f.created, in)
	return &domain.Campaign{ID: fmt.Sprintf("c%d", len(f.created)), Name: in.Name, TemplateID: in.TemplateID}, nil
}

func (f *fakeCampaigns) Send(_ context.Context, id string) (*dispatch.Result, error) {
	if f.sendErr != nil {
		return nil, f.sendErr
	}
	f.sent = append(f.sent, id)
	return &dispatch.Result{SentCount: 2}, nil
}

func at(day, hour int) time.Time {
	return time.Date(2025, time.June, day, hour, 5, 0, 0, time.UTC)
}

func TestTriggerFiresOnConfiguredWindow(t *testing.T) {
	job := &fakeJob{}
	tr := scheduler.NewTrigger(job, 1, 9)

	tr.Tick(context.Background(), at(1, 8)) // wrong hour
	tr.Tick(context.Background(), at(2, 9)) // wrong day
	if job.runs != 0 {
		t.Fatalf("fired outside window: %d", job.runs)
	}

	tr.Tick(context.Background(), at(1, 9))
	if job.runs != 1 {
		t.Fatalf("expected 1 firing, got %d", job.runs)
	}
}

func TestTriggerFiresOncePerMonth(t *testing.T) {
	job := &fakeJob{}
	tr := scheduler.NewTrigger(job, 1, 9)

	tr.Tick(context.Background(), at(1, 9))
	tr.Tick(context.Background(), at(1, 9).Add(20*time.Minute))
	if job.runs != 1 {
		t.Fatalf("double firing within hour: %d", job.runs)
	}

	// Next month is a fresh window.
	tr.Tick(context.Background(), time.Date(2025, time.July, 1, 9, 0, 0, 0, time.UTC))
	if job.runs != 2 {
		t.Fatalf("expected firing next month, got %d", job.runs)
	}
}

func TestTriggerRetriesFailedMonth(t *testing.T) {
	job := &fakeJob{err: errors.New("smtp down")}
	tr := scheduler.NewTrigger(job, 1, 9)

	tr.Tick(context.Background(), at(1, 9))
	if job.runs != 1 {
		t.Fatalf("expected attempt, got %d", job.runs)
	}

	// The failure left the month unmarked, so the next tick in the same
	// window tries again.
	job.err = nil
	tr.Tick(context.Background(), at(1, 9).Add(10*time.Minute))
	if job.runs != 2 {
		t.Fatalf("failed month not retried: %d", job.runs)
	}
}

// fakeLock is a shared single-holder lock that records its traffic.
type fakeLock struct {
	held     bool
	releases int
}

func (l *fakeLock) Acquire(context.Context) (bool, error) {
	if l.held {
		return false, nil
	}
	l.held = true
	return true, nil
}

func (l *fakeLock) Release(context.Context) error {
	l.held = false
	l.releases++
	return nil
}

// Two processes ticking in the same window must produce exactly one
// firing: the winner keeps the lock after sending, so the loser finds
// it held no matter when in the window it wakes up.
func TestTriggerSingleFiringAcrossProcesses(t *testing.T) {
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	defer client.Close()

	jobA := &fakeJob{}
	jobB := &fakeJob{}
	trA := scheduler.NewTrigger(jobA, 1, 9,
		scheduler.WithLock(distlock.NewRedisLock(client, "scheduler:monthly", time.Hour)))
	trB := scheduler.NewTrigger(jobB, 1, 9,
		scheduler.WithLock(distlock.NewRedisLock(client, "scheduler:monthly", time.Hour)))

	trA.Tick(context.Background(), at(1, 9))
	// The second process wakes later in the same hour, after the first
	// firing has completed.
	trB.Tick(context.Background(), at(1, 9).Add(30*time.Minute))

	if total := jobA.runs + jobB.runs; total != 1 {
		t.Fatalf("monthly job ran %d times in one window across two processes, want 1", total)
	}
}

// A failed firing must free the lock so the window can be retried, and
// a successful one must keep it.
func TestTriggerLockRetainedUntilWindowEnds(t *testing.T) {
	lock := &fakeLock{}
	job := &fakeJob{err: errors.New("smtp down")}
	tr := scheduler.NewTrigger(job, 1, 9, scheduler.WithLock(lock))

	tr.Tick(context.Background(), at(1, 9))
	if lock.held || lock.releases != 1 {
		t.Fatalf("failed firing did not free the lock: held=%v releases=%d", lock.held, lock.releases)
	}

	job.err = nil
	tr.Tick(context.Background(), at(1, 9).Add(10*time.Minute))
	if job.runs != 2 {
		t.Fatalf("retry did not fire: %d", job.runs)
	}
	if !lock.held || lock.releases != 1 {
		t.Fatalf("successful firing released the lock early: held=%v releases=%d", lock.held, lock.releases)
	}
}

func TestTriggerSurvivesJobPanic(t *testing.T) {
	job := &fakeJob{panics: true}
	tr := scheduler.NewTrigger(job, 1, 9)

	tr.Tick(context.Background(), at(1, 9)) // must not propagate the panic
	if job.runs != 1 {
		t.Fatalf("expected attempt, got %d", job.runs)
	}
}

func TestTriggerStartStop(t *testing.T) {
	job := &fakeJob{}
	tr := scheduler.NewTrigger(job, 1, 9, scheduler.WithInterval(time.Hour))
	tr.Start()
	tr.Stop() // must not hang
}

func TestMonthlyNewsletterSendsLatestTemplate(t *testing.T) {
	campaigns := &fakeCampaigns{}
	job := scheduler.NewMonthlyNewsletter(
		&fakeTemplates{tmpl: &domain.Template{ID: "tpl-9", Title: "June issue"}},
		campaigns,
	)

	now := time.Date(2025, time.June, 1, 9, 0, 0, 0, time.UTC)
	if err := job.Run(context.Background(), now); err != nil {
		t.Fatalf("run: %v", err)
	}

	if len(campaigns.created) != 1 {
		t.Fatalf("created %d campaigns", len(campaigns.created))
	}
	if campaigns.created[0].Name != "Monthly Newsletter - June 2025" {
		t.Errorf("campaign name = %q", campaigns.created[0].Name)
	}
	if campaigns.created[0].TemplateID != "tpl-9" {
		t.Errorf("template id = %q", campaigns.created[0].TemplateID)
	}
	if len(campaigns.sent) != 1 {
		t.Errorf("sent %d campaigns", len(campaigns.sent))
	}
}

func TestMonthlyNewsletterNoTemplatesIsNoop(t *testing.T) {
	campaigns := &fakeCampaigns{}
	job := scheduler.NewMonthlyNewsletter(&fakeTemplates{err: template.ErrNoTemplates}, campaigns)

	if err := job.Run(context.Background(), time.Now()); err != nil {
		t.Fatalf("expected no-op, got %v", err)
	}
	if len(campaigns.created) != 0 {
		t.Errorf("campaign created without a template")
	}
}

func TestMonthlyNewsletterSendErrorPropagates(t *testing.T) {
	campaigns := &fakeCampaigns{sendErr: errors.New("dispatch failed")}
	job := scheduler.NewMonthlyNewsletter(
		&fakeTemplates{tmpl: &domain.Template{ID: "tpl-1"}},
		campaigns,
	)
	if err := job.Run(context.Background(), time.Now()); err == nil {
		t.Fatal("expected error")
	}
}
