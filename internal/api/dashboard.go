package api

import (
	"net/http"

	"github.com/ironlady/newsletter-platform/internal/domain"
	"github.com/ironlady/newsletter-platform/internal/pkg/httputil"
)

// DashboardStats is the aggregate view the frontend landing page shows.
type DashboardStats struct {
	ActiveSubscribers int               `json:"active_subscribers"`
	TotalSubscribers  int               `json:"total_subscribers"`
	Templates         int               `json:"templates"`
	Campaigns         map[string]int    `json:"campaigns"`
	RecentCampaigns   []domain.Campaign `json:"recent_campaigns"`
}

// GetDashboard returns subscriber, template and campaign aggregates in
// one call.
func (h *Handlers) GetDashboard(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	subs, err := h.subscribers.List(ctx)
	if err != nil {
		httputil.InternalError(w, err)
		return
	}
	active, err := h.subscribers.CountActive(ctx)
	if err != nil {
		httputil.InternalError(w, err)
		return
	}
	tmpls, err := h.templates.List(ctx)
	if err != nil {
		httputil.InternalError(w, err)
		return
	}
	byStatus, err := h.campaigns.CountByStatus(ctx)
	if err != nil {
		httputil.InternalError(w, err)
		return
	}
	recent, err := h.campaigns.Recent(ctx, 5)
	if err != nil {
		httputil.InternalError(w, err)
		return
	}

	stats := DashboardStats{
		ActiveSubscribers: active,
		TotalSubscribers:  len(subs),
		Templates:         len(tmpls),
		Campaigns:         make(map[string]int, len(byStatus)),
		RecentCampaigns:   recent,
	}
	for status, n := range byStatus {
		stats.Campaigns[string(status)] = n
	}
	if stats.RecentCampaigns == nil {
		stats.RecentCampaigns = []domain.Campaign{}
	}
	httputil.OK(w, stats)
}
