package services

import (
	"time"

	"github.com/tdcon/workplatform/internal/models"
)

const (
	SLAStateOnTrack   = "on_track"
	SLAStateAtRisk    = "at_risk"
	SLAStateBreached  = "breached"
	SLAStateCompleted = "completed"
)

// slaAtRiskWindow is how far ahead of the resolution deadline a ticket is
// flagged at_risk.
const slaAtRiskWindow = 2 * time.Hour

var firstResponseSLAHours = map[string]int{
	TicketPriorityLow:      24,
	TicketPriorityMedium:   8,
	TicketPriorityHigh:     2,
	TicketPriorityCritical: 1,
}

var resolutionSLAHours = map[string]int{
	TicketPriorityLow:      72,
	TicketPriorityMedium:   24,
	TicketPriorityHigh:     8,
	TicketPriorityCritical: 4,
}

// TicketDeadlines derives the first-response and resolution deadlines from
// priority and creation time. Deadlines are fixed at creation and never
// recomputed afterward.
func TicketDeadlines(priority string, createdAt time.Time) (firstResponseDue, resolutionDue time.Time) {
	firstResponseDue = createdAt.Add(time.Duration(firstResponseSLAHours[priority]) * time.Hour)
	resolutionDue = createdAt.Add(time.Duration(resolutionSLAHours[priority]) * time.Hour)
	return firstResponseDue, resolutionDue
}

// TicketSLAState computes the derived SLA state against the given clock.
// The state is never persisted; every read reflects wall-clock now.
func TicketSLAState(ticket *models.Ticket, now time.Time) string {
	if ticket.Status == TicketStatusResolved || ticket.Status == TicketStatusClosed {
		return SLAStateCompleted
	}
	due := ticket.ResolutionDueAt
	if due == nil {
		return SLAStateOnTrack
	}
	if !due.After(now) {
		return SLAStateBreached
	}
	if !due.After(now.Add(slaAtRiskWindow)) {
		return SLAStateAtRisk
	}
	return SLAStateOnTrack
}
