package services

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/tdcon/workplatform/internal/models"
	"gorm.io/gorm"
)

const (
	TicketStatusNew         = "new"
	TicketStatusTriaged     = "triaged"
	TicketStatusInProgress  = "in_progress"
	TicketStatusWaitingUser = "waiting_user"
	TicketStatusBlocked     = "blocked"
	TicketStatusResolved    = "resolved"
	TicketStatusClosed      = "closed"
	TicketStatusReopened    = "reopened"
)

const (
	TicketPriorityLow      = "low"
	TicketPriorityMedium   = "medium"
	TicketPriorityHigh     = "high"
	TicketPriorityCritical = "critical"
)

var TicketStatusValues = []string{
	TicketStatusNew, TicketStatusTriaged, TicketStatusInProgress,
	TicketStatusWaitingUser, TicketStatusBlocked, TicketStatusResolved,
	TicketStatusClosed, TicketStatusReopened,
}

// TicketActiveStatuses are the statuses shown in the open-ticket queues.
var TicketActiveStatuses = []string{
	TicketStatusNew, TicketStatusTriaged, TicketStatusInProgress,
	TicketStatusWaitingUser, TicketStatusBlocked, TicketStatusReopened,
}

var TicketPriorityValues = []string{TicketPriorityLow, TicketPriorityMedium, TicketPriorityHigh, TicketPriorityCritical}

var TicketCategoryValues = []string{"printer", "help", "network", "software", "hardware", "access"}

// ticketTransitions is the allowed-target set per current status.
// Self-transitions are a no-op success and are not listed.
var ticketTransitions = map[string][]string{
	TicketStatusNew:         {TicketStatusTriaged, TicketStatusInProgress, TicketStatusBlocked, TicketStatusResolved},
	TicketStatusTriaged:     {TicketStatusInProgress, TicketStatusWaitingUser, TicketStatusBlocked, TicketStatusResolved},
	TicketStatusInProgress:  {TicketStatusWaitingUser, TicketStatusBlocked, TicketStatusResolved},
	TicketStatusWaitingUser: {TicketStatusInProgress, TicketStatusBlocked, TicketStatusResolved},
	TicketStatusBlocked:     {TicketStatusTriaged, TicketStatusInProgress, TicketStatusWaitingUser, TicketStatusResolved},
	TicketStatusResolved:    {TicketStatusClosed, TicketStatusReopened},
	TicketStatusClosed:      {TicketStatusReopened},
	TicketStatusReopened:    {TicketStatusTriaged, TicketStatusInProgress, TicketStatusWaitingUser, TicketStatusBlocked, TicketStatusResolved},
}

func NormalizeTicketCategory(value string) (string, error) {
	category := strings.ToLower(strings.TrimSpace(value))
	for _, known := range TicketCategoryValues {
		if category == known {
			return category, nil
		}
	}
	return "", ValidationError(fmt.Sprintf("category must be %s", strings.Join(TicketCategoryValues, "|")))
}

func NormalizeTicketPriority(value string) (string, error) {
	priority := strings.ToLower(strings.TrimSpace(value))
	for _, known := range TicketPriorityValues {
		if priority == known {
			return priority, nil
		}
	}
	return "", ValidationError(fmt.Sprintf("priority must be %s", strings.Join(TicketPriorityValues, "|")))
}

func NormalizeTicketStatus(value string) (string, error) {
	status := strings.ToLower(strings.TrimSpace(value))
	for _, known := range TicketStatusValues {
		if status == known {
			return status, nil
		}
	}
	return "", ValidationError(fmt.Sprintf("status must be %s", strings.Join(TicketStatusValues, "|")))
}

// ValidateTicketTransition enforces the transition table. current == target
// is always accepted.
func ValidateTicketTransition(current, target string) error {
	if current == target {
		return nil
	}
	for _, allowed := range ticketTransitions[current] {
		if target == allowed {
			return nil
		}
	}
	return InvalidTransitionError(current, target)
}

// ApplyTicketStatus moves the ticket to next and applies the timestamp side
// effects atomically with the status change:
//   - first entry into in_progress or triaged stamps FirstRespondedAt, once
//   - resolved stamps ResolvedAt and clears ClosedAt
//   - closed stamps ClosedAt
//   - reopened clears both ResolvedAt and ClosedAt
//   - FixedByID tracks the actor while status is in_progress/resolved/closed
//     and is cleared otherwise
func ApplyTicketStatus(ticket *models.Ticket, next string, actorID uuid.UUID, now time.Time) error {
	if err := ValidateTicketTransition(ticket.Status, next); err != nil {
		return err
	}
	if next == ticket.Status {
		return nil
	}
	ticket.Status = next

	if (next == TicketStatusInProgress || next == TicketStatusTriaged) && ticket.FirstRespondedAt == nil {
		stamp := now
		ticket.FirstRespondedAt = &stamp
	}
	switch next {
	case TicketStatusResolved:
		stamp := now
		ticket.ResolvedAt = &stamp
		ticket.ClosedAt = nil
	case TicketStatusClosed:
		stamp := now
		ticket.ClosedAt = &stamp
	case TicketStatusReopened:
		ticket.ResolvedAt = nil
		ticket.ClosedAt = nil
	}

	switch next {
	case TicketStatusInProgress, TicketStatusResolved, TicketStatusClosed:
		actor := actorID
		ticket.FixedByID = &actor
	default:
		ticket.FixedByID = nil
	}
	return nil
}

// ValidateAssignmentPermission enforces who may set an assignee: admins may
// assign anyone, developers only themselves (or unassign), everyone else is
// forbidden.
func ValidateAssignmentPermission(actor *models.User, assigneeID *uuid.UUID) error {
	switch actor.Role {
	case RoleAdmin:
		return nil
	case RoleDeveloper:
		if assigneeID == nil || *assigneeID == actor.ID {
			return nil
		}
		return ForbiddenError("developers can only assign tickets to themselves")
	default:
		return ForbiddenError("only admin or developer can assign tickets")
	}
}

// ResolveAssignee loads and validates the target user of an assignment. A
// nil id means unassign and resolves to nil.
func ResolveAssignee(db *gorm.DB, assigneeID *uuid.UUID) (*models.User, error) {
	if assigneeID == nil {
		return nil, nil
	}
	var assignee models.User
	if err := db.First(&assignee, "id = ?", *assigneeID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, NotFoundError("assignee")
		}
		return nil, err
	}
	if assignee.Role != RoleAdmin && assignee.Role != RoleDeveloper {
		return nil, InvalidAssigneeError("assignee must be admin or developer")
	}
	return &assignee, nil
}
