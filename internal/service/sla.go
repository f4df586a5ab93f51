package service

import (
	"time"

	"github.com/spec-kit/campus-maintenance/internal/config"
	"github.com/spec-kit/campus-maintenance/internal/domain"
)

// SLAChecker evaluates SLA deadlines against an injected clock so breach
// detection is reproducible in tests.
type SLAChecker struct {
	policy config.SLAConfig
	now    func() time.Time
}

// NewSLAChecker builds a checker over the given policy. A nil clock
// defaults to time.Now.
func NewSLAChecker(policy config.SLAConfig, now func() time.Time) *SLAChecker {
	if now == nil {
		now = time.Now
	}
	return &SLAChecker{policy: policy, now: now}
}

// Policy exposes the underlying SLA table.
func (c *SLAChecker) Policy() config.SLAConfig {
	return c.policy
}

// Deadline returns the latest acceptable resolution time for the ticket.
func (c *SLAChecker) Deadline(ticket *domain.Ticket) time.Time {
	return c.policy.Deadline(ticket.CreatedAt, ticket.Urgency)
}

// IsBreached reports whether the ticket missed its SLA window: an open
// ticket past its deadline, or a resolved ticket that finished late.
func (c *SLAChecker) IsBreached(ticket *domain.Ticket) bool {
	deadline := c.Deadline(ticket)
	if ticket.ResolvedAt != nil {
		return ticket.ResolvedAt.After(deadline)
	}
	return c.now().After(deadline)
}
