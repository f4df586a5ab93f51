package service

import (
	"context"
	"encoding/json"
	"time"

	"go.uber.org/zap"

	"github.com/spec-kit/campus-maintenance/internal/domain"
	"github.com/spec-kit/campus-maintenance/internal/persistence"
	"github.com/spec-kit/campus-maintenance/internal/repository"
	"github.com/spec-kit/campus-maintenance/pkg/apperrors"
)

const publicStatsCacheKey = "analytics:public-stats"

// AnalyticsService produces read-only aggregates for the admin dashboard
// and the public landing page. Public stats are served from a short-TTL
// Redis cache; everything else is computed on demand.
type AnalyticsService struct {
	tickets repository.TicketRepository
	checker *SLAChecker
	cache   *persistence.Redis
	logger  *zap.Logger

	cacheTTL time.Duration
	now      func() time.Time
}

// NewAnalyticsService creates the service. cache and logger may be nil.
func NewAnalyticsService(tickets repository.TicketRepository, checker *SLAChecker, cache *persistence.Redis, logger *zap.Logger) *AnalyticsService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &AnalyticsService{
		tickets:  tickets,
		checker:  checker,
		cache:    cache,
		logger:   logger,
		cacheTTL: time.Minute,
		now:      time.Now,
	}
}

// TicketSummary breaks the ticket population down by status, category
// and urgency.
type TicketSummary struct {
	Total      int            `json:"total"`
	ByStatus   map[string]int `json:"by_status"`
	ByCategory map[string]int `json:"by_category"`
	ByUrgency  map[string]int `json:"by_urgency"`
}

// Summary returns ticket counts grouped by status, category and urgency.
func (a *AnalyticsService) Summary(ctx context.Context, actor *domain.User) (*TicketSummary, error) {
	if err := requireRole(actor, domain.RoleAdmin); err != nil {
		return nil, err
	}
	tickets, err := a.tickets.ListAll(ctx)
	if err != nil {
		return nil, apperrors.MapError(err)
	}
	summary := &TicketSummary{
		Total:      len(tickets),
		ByStatus:   map[string]int{},
		ByCategory: map[string]int{},
		ByUrgency:  map[string]int{},
	}
	for i := range tickets {
		summary.ByStatus[string(tickets[i].Status)]++
		summary.ByCategory[string(tickets[i].Category)]++
		summary.ByUrgency[string(tickets[i].Urgency)]++
	}
	return summary, nil
}

// ResolutionTimeReport reports average resolution latency in hours.
type ResolutionTimeReport struct {
	ResolvedCount   int                `json:"resolved_count"`
	AverageHours    float64            `json:"average_hours"`
	HoursByCategory map[string]float64 `json:"hours_by_category"`
}

// ResolutionTime averages created-to-resolved latency over all tickets
// that carry a resolution timestamp, overall and per category.
func (a *AnalyticsService) ResolutionTime(ctx context.Context, actor *domain.User) (*ResolutionTimeReport, error) {
	if err := requireRole(actor, domain.RoleAdmin); err != nil {
		return nil, err
	}
	tickets, err := a.tickets.ListAll(ctx)
	if err != nil {
		return nil, apperrors.MapError(err)
	}

	report := &ResolutionTimeReport{HoursByCategory: map[string]float64{}}
	var totalHours float64
	catHours := map[string]float64{}
	catCounts := map[string]int{}
	for i := range tickets {
		t := &tickets[i]
		if t.ResolvedAt == nil {
			continue
		}
		hours := t.ResolvedAt.Sub(t.CreatedAt).Hours()
		report.ResolvedCount++
		totalHours += hours
		catHours[string(t.Category)] += hours
		catCounts[string(t.Category)]++
	}
	if report.ResolvedCount > 0 {
		report.AverageHours = totalHours / float64(report.ResolvedCount)
	}
	for cat, hours := range catHours {
		report.HoursByCategory[cat] = hours / float64(catCounts[cat])
	}
	return report, nil
}

// SLATierReport describes one urgency tier in the compliance report.
type SLATierReport struct {
	WindowHours int `json:"window_hours"`
	Total       int `json:"total"`
	Breached    int `json:"breached"`
}

// SLAComplianceReport summarises plan adherence across all tickets.
type SLAComplianceReport struct {
	Total         int                      `json:"total"`
	OnTime        int                      `json:"on_time"`
	Breached      int                      `json:"breached"`
	CompliancePct float64                  `json:"compliance_pct"`
	ByUrgency     map[string]SLATierReport `json:"by_urgency"`
}

// SLACompliance reports how many tickets met their SLA window, overall
// and per urgency tier. Open tickets count as breached once their
// deadline has passed.
func (a *AnalyticsService) SLACompliance(ctx context.Context, actor *domain.User) (*SLAComplianceReport, error) {
	if err := requireRole(actor, domain.RoleAdmin); err != nil {
		return nil, err
	}
	tickets, err := a.tickets.ListAll(ctx)
	if err != nil {
		return nil, apperrors.MapError(err)
	}

	report := &SLAComplianceReport{ByUrgency: map[string]SLATierReport{}}
	policy := a.checker.Policy()
	for _, urgency := range []domain.UrgencyLevel{domain.UrgencyCritical, domain.UrgencyHigh, domain.UrgencyMedium, domain.UrgencyLow} {
		report.ByUrgency[string(urgency)] = SLATierReport{WindowHours: policy.Hours(urgency)}
	}
	for i := range tickets {
		t := &tickets[i]
		tier := report.ByUrgency[string(t.Urgency)]
		tier.Total++
		report.Total++
		if a.checker.IsBreached(t) {
			tier.Breached++
			report.Breached++
		} else {
			report.OnTime++
		}
		report.ByUrgency[string(t.Urgency)] = tier
	}
	if report.Total > 0 {
		report.CompliancePct = float64(report.OnTime) / float64(report.Total) * 100
	}
	return report, nil
}

// PublicStats is the anonymised landing-page summary.
type PublicStats struct {
	TotalTickets     int     `json:"total_tickets"`
	OpenTickets      int     `json:"open_tickets"`
	ResolvedTickets  int     `json:"resolved_tickets"`
	ResolvedToday    int     `json:"resolved_today"`
	AvgResolutionHrs float64 `json:"avg_resolution_hours"`
	ResolvedLast7d   []int   `json:"resolved_last_7_days"`
}

// GetPublicStats serves the landing-page summary, preferring the cache.
func (a *AnalyticsService) GetPublicStats(ctx context.Context) (*PublicStats, error) {
	if cached, ok := a.cache.GetCached(ctx, publicStatsCacheKey); ok {
		var stats PublicStats
		if err := json.Unmarshal(cached, &stats); err == nil {
			return &stats, nil
		}
		a.logger.Warn("discarding malformed public stats cache entry")
	}

	stats, err := a.computePublicStats(ctx)
	if err != nil {
		return nil, err
	}
	if encoded, err := json.Marshal(stats); err == nil {
		a.cache.SetCached(ctx, publicStatsCacheKey, encoded, a.cacheTTL)
	}
	return stats, nil
}

func (a *AnalyticsService) computePublicStats(ctx context.Context) (*PublicStats, error) {
	tickets, err := a.tickets.ListAll(ctx)
	if err != nil {
		return nil, apperrors.MapError(err)
	}

	now := a.now()
	today := now.Truncate(24 * time.Hour)
	stats := &PublicStats{ResolvedLast7d: make([]int, 7)}
	var totalHours float64
	var resolvedWithTime int
	for i := range tickets {
		t := &tickets[i]
		stats.TotalTickets++
		if t.Status.IsOpen() {
			stats.OpenTickets++
		}
		if t.Status != domain.TicketStatusResolved && t.Status != domain.TicketStatusClosed {
			continue
		}
		stats.ResolvedTickets++
		if t.ResolvedAt == nil {
			continue
		}
		resolvedWithTime++
		totalHours += t.ResolvedAt.Sub(t.CreatedAt).Hours()
		if !t.ResolvedAt.Before(today) {
			stats.ResolvedToday++
		}
		// Bucket 0 is six days ago, bucket 6 is today.
		daysAgo := int(today.Sub(t.ResolvedAt.Truncate(24*time.Hour)).Hours() / 24)
		if daysAgo >= 0 && daysAgo < 7 {
			stats.ResolvedLast7d[6-daysAgo]++
		}
	}
	if resolvedWithTime > 0 {
		stats.AvgResolutionHrs = totalHours / float64(resolvedWithTime)
	}
	return stats, nil
}
