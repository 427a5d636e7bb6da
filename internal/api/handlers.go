package api

import (
	"errors"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/ironlady/newsletter-platform/internal/content"
	"github.com/ironlady/newsletter-platform/internal/pkg/httputil"
	"github.com/ironlady/newsletter-platform/internal/service/campaign"
	"github.com/ironlady/newsletter-platform/internal/service/subscriber"
	"github.com/ironlady/newsletter-platform/internal/service/template"
)

// Handlers holds the service dependencies for all HTTP handlers.
type Handlers struct {
	subscribers *subscriber.Service
	templates   *template.Service
	campaigns   *campaign.Service
	generator   *content.Generator
	previewer   *template.Previewer
	startedAt   time.Time
}

// NewHandlers creates the handler set.
func NewHandlers(
	subscribers *subscriber.Service,
	templates *template.Service,
	campaigns *campaign.Service,
	generator *content.Generator,
) *Handlers {
	return &Handlers{
		subscribers: subscribers,
		templates:   templates,
		campaigns:   campaigns,
		generator:   generator,
		previewer:   template.NewPreviewer(),
		startedAt:   time.Now(),
	}
}

// HealthCheck reports liveness.
func (h *Handlers) HealthCheck(w http.ResponseWriter, r *http.Request) {
	httputil.OK(w, map[string]interface{}{
		"status": "ok",
		"uptime": time.Since(h.startedAt).Round(time.Second).String(),
	})
}

// --- Subscribers ---

func (h *Handlers) ListSubscribers(w http.ResponseWriter, r *http.Request) {
	subs, err := h.subscribers.List(r.Context())
	if err != nil {
		httputil.InternalError(w, err)
		return
	}
	httputil.OK(w, map[string]interface{}{"subscribers": subs, "total": len(subs)})
}

func (h *Handlers) GetSubscriber(w http.ResponseWriter, r *http.Request) {
	s, err := h.subscribers.Get(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		h.subscriberError(w, err)
		return
	}
	httputil.OK(w, s)
}

func (h *Handlers) CreateSubscriber(w http.ResponseWriter, r *http.Request) {
	var input subscriber.CreateInput
	if !httputil.Decode(w, r, &input) {
		return
	}
	s, err := h.subscribers.Create(r.Context(), input)
	if err != nil {
		h.subscriberError(w, err)
		return
	}
	httputil.Created(w, s)
}

func (h *Handlers) UpdateSubscriber(w http.ResponseWriter, r *http.Request) {
	var u subscriber.UpdateFields
	if !httputil.Decode(w, r, &u) {
		return
	}
	id := chi.URLParam(r, "id")
	if err := h.subscribers.Update(r.Context(), id, u); err != nil {
		h.subscriberError(w, err)
		return
	}
	s, err := h.subscribers.Get(r.Context(), id)
	if err != nil {
		h.subscriberError(w, err)
		return
	}
	httputil.OK(w, s)
}

func (h *Handlers) UnsubscribeSubscriber(w http.ResponseWriter, r *http.Request) {
	if err := h.subscribers.Unsubscribe(r.Context(), chi.URLParam(r, "id")); err != nil {
		h.subscriberError(w, err)
		return
	}
	httputil.OK(w, map[string]string{"status": "unsubscribed"})
}

func (h *Handlers) DeleteSubscriber(w http.ResponseWriter, r *http.Request) {
	if err := h.subscribers.Delete(r.Context(), chi.URLParam(r, "id")); err != nil {
		h.subscriberError(w, err)
		return
	}
	httputil.OK(w, map[string]string{"status": "deleted"})
}

func (h *Handlers) subscriberError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, subscriber.ErrNotFound):
		httputil.NotFound(w, "subscriber not found")
	case errors.Is(err, subscriber.ErrDuplicateEmail):
		httputil.Conflict(w, "email already subscribed")
	default:
		httputil.BadRequest(w, err.Error())
	}
}

// --- Templates ---

func (h *Handlers) ListTemplates(w http.ResponseWriter, r *http.Request) {
	tmpls, err := h.templates.List(r.Context())
	if err != nil {
		httputil.InternalError(w, err)
		return
	}
	httputil.OK(w, map[string]interface{}{"templates": tmpls, "total": len(tmpls)})
}

func (h *Handlers) GetTemplate(w http.ResponseWriter, r *http.Request) {
	t, err := h.templates.Get(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		h.templateError(w, err)
		return
	}
	httputil.OK(w, t)
}

func (h *Handlers) CreateTemplate(w http.ResponseWriter, r *http.Request) {
	var input template.CreateInput
	if !httputil.Decode(w, r, &input) {
		return
	}
	t, err := h.templates.Create(r.Context(), input)
	if err != nil {
		h.templateError(w, err)
		return
	}
	httputil.Created(w, t)
}

func (h *Handlers) UpdateTemplate(w http.ResponseWriter, r *http.Request) {
	var u template.UpdateFields
	if !httputil.Decode(w, r, &u) {
		return
	}
	id := chi.URLParam(r, "id")
	if err := h.templates.Update(r.Context(), id, u); err != nil {
		h.templateError(w, err)
		return
	}
	t, err := h.templates.Get(r.Context(), id)
	if err != nil {
		h.templateError(w, err)
		return
	}
	httputil.OK(w, t)
}

func (h *Handlers) DeleteTemplate(w http.ResponseWriter, r *http.Request) {
	if err := h.templates.Delete(r.Context(), chi.URLParam(r, "id")); err != nil {
		h.templateError(w, err)
		return
	}
	httputil.OK(w, map[string]string{"status": "deleted"})
}

// PreviewTemplate renders subject and content with sample bindings so
// editors can see a personalized copy without sending anything.
func (h *Handlers) PreviewTemplate(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Subject  string                 `json:"subject"`
		Content  string                 `json:"content"`
		Bindings map[string]interface{} `json:"bindings"`
	}
	if !httputil.Decode(w, r, &req) {
		return
	}
	if req.Bindings == nil {
		req.Bindings = map[string]interface{}{"name": "Priya"}
	}
	subject, body, err := h.previewer.Render(template.CreateInput{
		Subject: req.Subject, Content: req.Content,
	}, req.Bindings)
	if err != nil {
		httputil.BadRequest(w, err.Error())
		return
	}
	httputil.OK(w, map[string]string{"subject": subject, "content": body})
}

func (h *Handlers) templateError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, template.ErrNotFound):
		httputil.NotFound(w, "template not found")
	default:
		httputil.BadRequest(w, err.Error())
	}
}

// --- Campaigns ---

func (h *Handlers) ListCampaigns(w http.ResponseWriter, r *http.Request) {
	cs, err := h.campaigns.List(r.Context())
	if err != nil {
		httputil.InternalError(w, err)
		return
	}
	httputil.OK(w, map[string]interface{}{"campaigns": cs, "total": len(cs)})
}

func (h *Handlers) GetCampaign(w http.ResponseWriter, r *http.Request) {
	c, err := h.campaigns.Get(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		h.campaignError(w, err)
		return
	}
	httputil.OK(w, c)
}

func (h *Handlers) CreateCampaign(w http.ResponseWriter, r *http.Request) {
	var input campaign.CreateInput
	if !httputil.Decode(w, r, &input) {
		return
	}
	c, err := h.campaigns.Create(r.Context(), input)
	if err != nil {
		h.campaignError(w, err)
		return
	}
	httputil.Created(w, c)
}

func (h *Handlers) UpdateCampaign(w http.ResponseWriter, r *http.Request) {
	var u campaign.UpdateFields
	if !httputil.Decode(w, r, &u) {
		return
	}
	id := chi.URLParam(r, "id")
	if err := h.campaigns.Update(r.Context(), id, u); err != nil {
		h.campaignError(w, err)
		return
	}
	c, err := h.campaigns.Get(r.Context(), id)
	if err != nil {
		h.campaignError(w, err)
		return
	}
	httputil.OK(w, c)
}

func (h *Handlers) DeleteCampaign(w http.ResponseWriter, r *http.Request) {
	if err := h.campaigns.Delete(r.Context(), chi.URLParam(r, "id")); err != nil {
		h.campaignError(w, err)
		return
	}
	httputil.OK(w, map[string]string{"status": "deleted"})
}

func (h *Handlers) ScheduleCampaign(w http.ResponseWriter, r *http.Request) {
	var req struct {
		ScheduledAt time.Time `json:"scheduled_at"`
	}
	if !httputil.Decode(w, r, &req) {
		return
	}
	if req.ScheduledAt.IsZero() {
		httputil.BadRequest(w, "scheduled_at is required")
		return
	}
	id := chi.URLParam(r, "id")
	if err := h.campaigns.Schedule(r.Context(), id, req.ScheduledAt); err != nil {
		h.campaignError(w, err)
		return
	}
	c, err := h.campaigns.Get(r.Context(), id)
	if err != nil {
		h.campaignError(w, err)
		return
	}
	httputil.OK(w, c)
}

func (h *Handlers) UnscheduleCampaign(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	if err := h.campaigns.Unschedule(r.Context(), id); err != nil {
		h.campaignError(w, err)
		return
	}
	c, err := h.campaigns.Get(r.Context(), id)
	if err != nil {
		h.campaignError(w, err)
		return
	}
	httputil.OK(w, c)
}

// SendCampaign dispatches a campaign immediately. Partial delivery
// failures still return 200: the campaign is sent, and the failures are
// itemized in the response.
func (h *Handlers) SendCampaign(w http.ResponseWriter, r *http.Request) {
	res, err := h.campaigns.Send(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		h.campaignError(w, err)
		return
	}
	httputil.OK(w, res)
}

func (h *Handlers) RecordEngagement(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Opened  int `json:"opened"`
		Clicked int `json:"clicked"`
	}
	if !httputil.Decode(w, r, &req) {
		return
	}
	if err := h.campaigns.RecordEngagement(r.Context(), chi.URLParam(r, "id"), req.Opened, req.Clicked); err != nil {
		h.campaignError(w, err)
		return
	}
	httputil.OK(w, map[string]string{"status": "recorded"})
}

func (h *Handlers) campaignError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, campaign.ErrNotFound):
		httputil.NotFound(w, "campaign not found")
	case errors.Is(err, campaign.ErrTemplateNotFound):
		httputil.BadRequest(w, "campaign template not found")
	case errors.Is(err, campaign.ErrAlreadySent):
		httputil.Conflict(w, "campaign already sent")
	case errors.Is(err, campaign.ErrSendInProgress):
		httputil.Conflict(w, "campaign send already in progress")
	default:
		httputil.InternalError(w, err)
	}
}

// --- Content generation ---

func (h *Handlers) GenerateContent(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Topic        string `json:"topic"`
		ProgramFocus string `json:"program_focus"`
	}
	if !httputil.Decode(w, r, &req) {
		return
	}
	if req.Topic == "" {
		httputil.BadRequest(w, "topic is required")
		return
	}
	html, err := h.generator.Generate(r.Context(), req.Topic, req.ProgramFocus)
	if err != nil {
		if errors.Is(err, content.ErrUnavailable) {
			httputil.Unavailable(w, "content generation unavailable")
			return
		}
		httputil.InternalError(w, err)
		return
	}
	httputil.OK(w, map[string]string{"content": html})
}
