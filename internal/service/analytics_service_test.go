package service

import (
	"context"
	"math"
	"testing"
	"time"

	"github.com/spec-kit/campus-maintenance/internal/domain"
)

func seedAnalyticsTicket(t *testing.T, tickets *memTickets, status domain.TicketStatus, category domain.TicketCategory, urgency domain.UrgencyLevel, createdAt time.Time, resolvedAfter time.Duration) {
	t.Helper()
	ticket := &domain.Ticket{
		Title:     "seed",
		Category:  category,
		Building:  "Main",
		Status:    status,
		Urgency:   urgency,
		CreatorID: "req-1",
		CreatedAt: createdAt,
	}
	if resolvedAfter > 0 {
		resolvedAt := createdAt.Add(resolvedAfter)
		ticket.ResolvedAt = &resolvedAt
	}
	if err := tickets.Create(context.Background(), ticket); err != nil {
		t.Fatalf("seed: %v", err)
	}
}

func TestSummaryCountsAndRoleGate(t *testing.T) {
	tickets := newMemTickets()
	seedAnalyticsTicket(t, tickets, domain.TicketStatusSubmitted, domain.CategoryElectrical, domain.UrgencyLow, baseTime, 0)
	seedAnalyticsTicket(t, tickets, domain.TicketStatusSubmitted, domain.CategoryPlumbing, domain.UrgencyLow, baseTime, 0)
	seedAnalyticsTicket(t, tickets, domain.TicketStatusClosed, domain.CategoryElectrical, domain.UrgencyHigh, baseTime, 2*time.Hour)

	checker := NewSLAChecker(testSLAPolicy(), fixedClock(baseTime))
	svc := NewAnalyticsService(tickets, checker, nil, nil)
	admin := &domain.User{ID: "admin-1", Role: domain.RoleAdmin}

	summary, err := svc.Summary(context.Background(), admin)
	if err != nil {
		t.Fatalf("summary: %v", err)
	}
	if summary.Total != 3 {
		t.Fatalf("total = %d", summary.Total)
	}
	if summary.ByStatus["SUBMITTED"] != 2 || summary.ByStatus["CLOSED"] != 1 {
		t.Fatalf("by status = %+v", summary.ByStatus)
	}
	if summary.ByCategory["ELECTRICAL"] != 2 {
		t.Fatalf("by category = %+v", summary.ByCategory)
	}
	if summary.ByUrgency["LOW"] != 2 || summary.ByUrgency["HIGH"] != 1 {
		t.Fatalf("by urgency = %+v", summary.ByUrgency)
	}

	requester := &domain.User{ID: "req-1", Role: domain.RoleRequester}
	if _, err := svc.Summary(context.Background(), requester); err == nil || statusCode(t, err) != 403 {
		t.Fatalf("requester summary: expected 403, got %v", err)
	}
}

func TestResolutionTimeAverages(t *testing.T) {
	tickets := newMemTickets()
	seedAnalyticsTicket(t, tickets, domain.TicketStatusResolved, domain.CategoryElectrical, domain.UrgencyLow, baseTime, 2*time.Hour)
	seedAnalyticsTicket(t, tickets, domain.TicketStatusClosed, domain.CategoryElectrical, domain.UrgencyLow, baseTime, 4*time.Hour)
	seedAnalyticsTicket(t, tickets, domain.TicketStatusClosed, domain.CategoryPlumbing, domain.UrgencyLow, baseTime, 9*time.Hour)
	seedAnalyticsTicket(t, tickets, domain.TicketStatusSubmitted, domain.CategoryPlumbing, domain.UrgencyLow, baseTime, 0)

	checker := NewSLAChecker(testSLAPolicy(), fixedClock(baseTime))
	svc := NewAnalyticsService(tickets, checker, nil, nil)
	admin := &domain.User{ID: "admin-1", Role: domain.RoleAdmin}

	report, err := svc.ResolutionTime(context.Background(), admin)
	if err != nil {
		t.Fatalf("resolution time: %v", err)
	}
	if report.ResolvedCount != 3 {
		t.Fatalf("resolved count = %d, want 3", report.ResolvedCount)
	}
	if math.Abs(report.AverageHours-5.0) > 1e-9 {
		t.Fatalf("average hours = %f, want 5.0", report.AverageHours)
	}
	if math.Abs(report.HoursByCategory["ELECTRICAL"]-3.0) > 1e-9 {
		t.Fatalf("electrical hours = %f, want 3.0", report.HoursByCategory["ELECTRICAL"])
	}
	if math.Abs(report.HoursByCategory["PLUMBING"]-9.0) > 1e-9 {
		t.Fatalf("plumbing hours = %f, want 9.0", report.HoursByCategory["PLUMBING"])
	}
}

func TestSLAComplianceReport(t *testing.T) {
	tickets := newMemTickets()
	// LOW resolved inside its 168h window.
	seedAnalyticsTicket(t, tickets, domain.TicketStatusClosed, domain.CategoryElectrical, domain.UrgencyLow, baseTime, 100*time.Hour)
	// HIGH resolved after its 24h window.
	seedAnalyticsTicket(t, tickets, domain.TicketStatusClosed, domain.CategoryElectrical, domain.UrgencyHigh, baseTime, 30*time.Hour)
	// CRITICAL still open past its 4h window.
	seedAnalyticsTicket(t, tickets, domain.TicketStatusSubmitted, domain.CategoryHVAC, domain.UrgencyCritical, baseTime, 0)
	// MEDIUM still open inside its window.
	seedAnalyticsTicket(t, tickets, domain.TicketStatusSubmitted, domain.CategoryHVAC, domain.UrgencyMedium, baseTime, 0)

	checker := NewSLAChecker(testSLAPolicy(), fixedClock(baseTime.Add(10*time.Hour)))
	svc := NewAnalyticsService(tickets, checker, nil, nil)
	admin := &domain.User{ID: "admin-1", Role: domain.RoleAdmin}

	report, err := svc.SLACompliance(context.Background(), admin)
	if err != nil {
		t.Fatalf("sla compliance: %v", err)
	}
	if report.Total != 4 || report.OnTime != 2 || report.Breached != 2 {
		t.Fatalf("report = %+v", report)
	}
	if math.Abs(report.CompliancePct-50.0) > 1e-9 {
		t.Fatalf("compliance = %f, want 50.0", report.CompliancePct)
	}
	if tier := report.ByUrgency["HIGH"]; tier.WindowHours != 24 || tier.Total != 1 || tier.Breached != 1 {
		t.Fatalf("HIGH tier = %+v", tier)
	}
	if tier := report.ByUrgency["MEDIUM"]; tier.Breached != 0 {
		t.Fatalf("MEDIUM tier = %+v", tier)
	}
}

func TestPublicStats(t *testing.T) {
	tickets := newMemTickets()
	now := baseTime.Add(10 * 24 * time.Hour)
	// Resolved today, 2 hours after creation.
	seedAnalyticsTicket(t, tickets, domain.TicketStatusResolved, domain.CategoryIT, domain.UrgencyLow, now.Add(-2*time.Hour), 2*time.Hour)
	// Resolved three days ago, 4 hours after creation.
	seedAnalyticsTicket(t, tickets, domain.TicketStatusClosed, domain.CategoryIT, domain.UrgencyLow, now.Add(-73*time.Hour), 4*time.Hour)
	// Resolved long ago, outside the 7-day series.
	seedAnalyticsTicket(t, tickets, domain.TicketStatusClosed, domain.CategoryIT, domain.UrgencyLow, now.Add(-30*24*time.Hour), 6*time.Hour)
	// Still open.
	seedAnalyticsTicket(t, tickets, domain.TicketStatusSubmitted, domain.CategoryIT, domain.UrgencyLow, now, 0)
	// Rejected tickets are neither open nor resolved.
	seedAnalyticsTicket(t, tickets, domain.TicketStatusRejected, domain.CategoryIT, domain.UrgencyLow, now.Add(-time.Hour), 0)

	checker := NewSLAChecker(testSLAPolicy(), fixedClock(now))
	svc := NewAnalyticsService(tickets, checker, nil, nil)
	svc.now = fixedClock(now)

	stats, err := svc.GetPublicStats(context.Background())
	if err != nil {
		t.Fatalf("public stats: %v", err)
	}
	if stats.TotalTickets != 5 || stats.OpenTickets != 1 || stats.ResolvedTickets != 3 {
		t.Fatalf("stats = %+v", stats)
	}
	if stats.ResolvedToday != 1 {
		t.Fatalf("resolved today = %d, want 1", stats.ResolvedToday)
	}
	if math.Abs(stats.AvgResolutionHrs-4.0) > 1e-9 {
		t.Fatalf("avg hours = %f, want 4.0", stats.AvgResolutionHrs)
	}
	if stats.ResolvedLast7d[6] != 1 {
		t.Fatalf("today bucket = %d, want 1; series = %v", stats.ResolvedLast7d[6], stats.ResolvedLast7d)
	}
	var seriesTotal int
	for _, n := range stats.ResolvedLast7d {
		seriesTotal += n
	}
	if seriesTotal != 2 {
		t.Fatalf("series total = %d, want 2; the 30-day-old ticket is out of range", seriesTotal)
	}
}
