package services

import (
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tdcon/workplatform/internal/models"
)

func TestValidateTicketTransition(t *testing.T) {
	allowed := [][2]string{
		{TicketStatusNew, TicketStatusTriaged},
		{TicketStatusNew, TicketStatusInProgress},
		{TicketStatusNew, TicketStatusResolved},
		{TicketStatusTriaged, TicketStatusWaitingUser},
		{TicketStatusInProgress, TicketStatusBlocked},
		{TicketStatusWaitingUser, TicketStatusInProgress},
		{TicketStatusBlocked, TicketStatusTriaged},
		{TicketStatusResolved, TicketStatusClosed},
		{TicketStatusResolved, TicketStatusReopened},
		{TicketStatusClosed, TicketStatusReopened},
		{TicketStatusReopened, TicketStatusBlocked},
	}
	for _, pair := range allowed {
		assert.NoError(t, ValidateTicketTransition(pair[0], pair[1]), "%s -> %s", pair[0], pair[1])
	}

	rejected := [][2]string{
		{TicketStatusNew, TicketStatusClosed},
		{TicketStatusNew, TicketStatusWaitingUser},
		{TicketStatusTriaged, TicketStatusReopened},
		{TicketStatusInProgress, TicketStatusTriaged},
		{TicketStatusClosed, TicketStatusResolved},
		{TicketStatusClosed, TicketStatusInProgress},
		{TicketStatusResolved, TicketStatusInProgress},
	}
	for _, pair := range rejected {
		err := ValidateTicketTransition(pair[0], pair[1])
		require.Error(t, err, "%s -> %s", pair[0], pair[1])
		assert.Equal(t, KindInvalidTransition, KindOf(err))
	}

	t.Run("self transition is accepted for every status", func(t *testing.T) {
		for _, status := range TicketStatusValues {
			assert.NoError(t, ValidateTicketTransition(status, status))
		}
	})
}

func TestApplyTicketStatus(t *testing.T) {
	actor := uuid.New()
	now := time.Date(2026, 3, 10, 9, 0, 0, 0, time.UTC)

	t.Run("first response is stamped once", func(t *testing.T) {
		ticket := &models.Ticket{Status: TicketStatusNew}
		require.NoError(t, ApplyTicketStatus(ticket, TicketStatusInProgress, actor, now))
		require.NotNil(t, ticket.FirstRespondedAt)
		first := *ticket.FirstRespondedAt

		later := now.Add(2 * time.Hour)
		require.NoError(t, ApplyTicketStatus(ticket, TicketStatusBlocked, actor, later))
		require.NoError(t, ApplyTicketStatus(ticket, TicketStatusInProgress, actor, later))
		assert.Equal(t, first, *ticket.FirstRespondedAt)
	})

	t.Run("triage also counts as first response", func(t *testing.T) {
		ticket := &models.Ticket{Status: TicketStatusNew}
		require.NoError(t, ApplyTicketStatus(ticket, TicketStatusTriaged, actor, now))
		require.NotNil(t, ticket.FirstRespondedAt)
		assert.Equal(t, now, *ticket.FirstRespondedAt)
		assert.Nil(t, ticket.FixedByID)
	})

	t.Run("resolve then close then reopen", func(t *testing.T) {
		ticket := &models.Ticket{Status: TicketStatusInProgress}
		require.NoError(t, ApplyTicketStatus(ticket, TicketStatusResolved, actor, now))
		require.NotNil(t, ticket.ResolvedAt)
		assert.Nil(t, ticket.ClosedAt)
		require.NotNil(t, ticket.FixedByID)
		assert.Equal(t, actor, *ticket.FixedByID)

		closeTime := now.Add(time.Hour)
		require.NoError(t, ApplyTicketStatus(ticket, TicketStatusClosed, actor, closeTime))
		require.NotNil(t, ticket.ClosedAt)
		assert.Equal(t, closeTime, *ticket.ClosedAt)

		require.NoError(t, ApplyTicketStatus(ticket, TicketStatusReopened, actor, closeTime.Add(time.Hour)))
		assert.Nil(t, ticket.ResolvedAt)
		assert.Nil(t, ticket.ClosedAt)
		assert.Nil(t, ticket.FixedByID)
	})

	t.Run("self transition leaves timestamps untouched", func(t *testing.T) {
		resolvedAt := now
		ticket := &models.Ticket{Status: TicketStatusResolved, ResolvedAt: &resolvedAt}
		require.NoError(t, ApplyTicketStatus(ticket, TicketStatusResolved, actor, now.Add(5*time.Hour)))
		assert.Equal(t, resolvedAt, *ticket.ResolvedAt)
	})

	t.Run("invalid transition leaves the ticket unchanged", func(t *testing.T) {
		ticket := &models.Ticket{Status: TicketStatusNew}
		err := ApplyTicketStatus(ticket, TicketStatusClosed, actor, now)
		require.Error(t, err)
		assert.Equal(t, KindInvalidTransition, KindOf(err))
		assert.Equal(t, TicketStatusNew, ticket.Status)
		assert.Nil(t, ticket.ClosedAt)
	})
}

func TestValidateAssignmentPermission(t *testing.T) {
	adminID := uuid.New()
	devID := uuid.New()
	otherID := uuid.New()
	admin := &models.User{ID: adminID, Role: RoleAdmin}
	developer := &models.User{ID: devID, Role: RoleDeveloper}
	regular := &models.User{ID: uuid.New(), Role: RoleUser}

	assert.NoError(t, ValidateAssignmentPermission(admin, &otherID))
	assert.NoError(t, ValidateAssignmentPermission(admin, nil))

	assert.NoError(t, ValidateAssignmentPermission(developer, &devID))
	assert.NoError(t, ValidateAssignmentPermission(developer, nil))
	err := ValidateAssignmentPermission(developer, &otherID)
	require.Error(t, err)
	assert.Equal(t, KindForbidden, KindOf(err))

	err = ValidateAssignmentPermission(regular, &otherID)
	require.Error(t, err)
	assert.Equal(t, KindForbidden, KindOf(err))
}
