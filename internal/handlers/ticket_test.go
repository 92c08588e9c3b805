package handlers_test

import (
	"fmt"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tdcon/workplatform/internal/models"
	"github.com/tdcon/workplatform/internal/services"
)

func TestTicketLifecycle(t *testing.T) {
	app, db, cfg := newTestApp(t)

	requester := createUser(t, db, "user@workplatform.local", services.RoleUser)
	developer := createUser(t, db, "dev@workplatform.local", services.RoleDeveloper)
	requesterToken := tokenFor(t, cfg, requester)
	developerToken := tokenFor(t, cfg, developer)

	resp := doJSON(t, app, http.MethodPost, "/api/tickets", requesterToken, map[string]any{
		"title":       "Printer jams on every job",
		"description": "Second floor printer",
		"category":    "printer",
		"priority":    "high",
	})
	require.Equal(t, http.StatusOK, resp.StatusCode)
	var created map[string]any
	decodeBody(t, resp, &created)
	ticketID := created["id"].(string)

	assert.Equal(t, "new", created["status"])
	assert.Equal(t, "on_track", created["sla_state"])
	assert.Equal(t, "user@workplatform.local", created["requester_email"])
	assert.NotNil(t, created["first_response_due_at"])
	assert.NotNil(t, created["resolution_due_at"])
	assert.Nil(t, created["first_responded_at"])

	t.Run("requester sees it in their list", func(t *testing.T) {
		resp := doJSON(t, app, http.MethodGet, "/api/tickets/mine", requesterToken, nil)
		require.Equal(t, http.StatusOK, resp.StatusCode)
		var mine []map[string]any
		decodeBody(t, resp, &mine)
		require.Len(t, mine, 1)
		assert.Equal(t, ticketID, mine[0]["id"])
	})

	t.Run("requester cannot use the staff surface", func(t *testing.T) {
		resp := doJSON(t, app, http.MethodGet, "/api/tickets/open", requesterToken, nil)
		assert.Equal(t, http.StatusForbidden, resp.StatusCode)
	})

	t.Run("developer triages and first response is stamped", func(t *testing.T) {
		resp := doJSON(t, app, http.MethodPatch, "/api/tickets/"+ticketID, developerToken, map[string]any{
			"status": "triaged",
		})
		require.Equal(t, http.StatusOK, resp.StatusCode)
		var patched map[string]any
		decodeBody(t, resp, &patched)
		assert.Equal(t, "triaged", patched["status"])
		assert.NotNil(t, patched["first_responded_at"])
		assert.Nil(t, patched["fixed_by_id"])
	})

	t.Run("invalid transition is rejected with the pair in the message", func(t *testing.T) {
		resp := doJSON(t, app, http.MethodPatch, "/api/tickets/"+ticketID, developerToken, map[string]any{
			"status": "closed",
		})
		require.Equal(t, http.StatusBadRequest, resp.StatusCode)
		var body map[string]any
		decodeBody(t, resp, &body)
		assert.Contains(t, body["message"], "triaged")
		assert.Contains(t, body["message"], "closed")
	})

	t.Run("developer self-assigns and works the ticket", func(t *testing.T) {
		resp := doJSON(t, app, http.MethodPost, "/api/tickets/"+ticketID+"/assign", developerToken, map[string]any{
			"assignee_id": developer.ID.String(),
		})
		require.Equal(t, http.StatusOK, resp.StatusCode)

		resp = doJSON(t, app, http.MethodPatch, "/api/tickets/"+ticketID, developerToken, map[string]any{
			"status": "in_progress",
		})
		require.Equal(t, http.StatusOK, resp.StatusCode)
		var working map[string]any
		decodeBody(t, resp, &working)
		assert.Equal(t, developer.ID.String(), working["fixed_by_id"])
	})

	t.Run("developer cannot assign to someone else", func(t *testing.T) {
		other := createUser(t, db, "dev2@workplatform.local", services.RoleDeveloper)
		resp := doJSON(t, app, http.MethodPost, "/api/tickets/"+ticketID+"/assign", developerToken, map[string]any{
			"assignee_id": other.ID.String(),
		})
		assert.Equal(t, http.StatusForbidden, resp.StatusCode)
	})

	t.Run("resolve, close, reopen clears the terminal timestamps", func(t *testing.T) {
		resp := doJSON(t, app, http.MethodPatch, "/api/tickets/"+ticketID, developerToken, map[string]any{
			"status":     "resolved",
			"resolution": "Replaced the fuser unit",
		})
		require.Equal(t, http.StatusOK, resp.StatusCode)
		var resolved map[string]any
		decodeBody(t, resp, &resolved)
		assert.Equal(t, "completed", resolved["sla_state"])
		assert.NotNil(t, resolved["resolved_at"])

		resp = doJSON(t, app, http.MethodPatch, "/api/tickets/"+ticketID, developerToken, map[string]any{
			"status": "closed",
		})
		require.Equal(t, http.StatusOK, resp.StatusCode)
		var closed map[string]any
		decodeBody(t, resp, &closed)
		assert.NotNil(t, closed["closed_at"])

		resp = doJSON(t, app, http.MethodPatch, "/api/tickets/"+ticketID, developerToken, map[string]any{
			"status": "reopened",
		})
		require.Equal(t, http.StatusOK, resp.StatusCode)
		var reopened map[string]any
		decodeBody(t, resp, &reopened)
		assert.Nil(t, reopened["resolved_at"])
		assert.Nil(t, reopened["closed_at"])
		assert.Nil(t, reopened["fixed_by_id"])
	})

	t.Run("the journal replays the whole history in order", func(t *testing.T) {
		resp := doJSON(t, app, http.MethodGet, "/api/tickets/"+ticketID+"/events", developerToken, nil)
		require.Equal(t, http.StatusOK, resp.StatusCode)
		var events []map[string]any
		decodeBody(t, resp, &events)
		require.GreaterOrEqual(t, len(events), 6)
		assert.Equal(t, "created", events[0]["event_type"])
		assert.Equal(t, "assigned", events[2]["event_type"])
	})
}

func TestTicketEvidenceValidation(t *testing.T) {
	app, db, cfg := newTestApp(t)
	developer := createUser(t, db, "dev@workplatform.local", services.RoleDeveloper)
	token := tokenFor(t, cfg, developer)

	resp := doJSON(t, app, http.MethodPost, "/api/tickets", token, map[string]any{
		"title": "Broken dock", "category": "hardware", "priority": "medium",
	})
	require.Equal(t, http.StatusOK, resp.StatusCode)
	var created map[string]any
	decodeBody(t, resp, &created)
	ticketID := created["id"].(string)

	t.Run("non-image data urls are rejected", func(t *testing.T) {
		resp := doJSON(t, app, http.MethodPatch, "/api/tickets/"+ticketID, token, map[string]any{
			"evidence": []map[string]any{{
				"text":       "screenshot",
				"image_data": "data:text/html;base64,PGI+",
			}},
		})
		assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	})

	t.Run("image evidence is normalized with ids and timestamps", func(t *testing.T) {
		resp := doJSON(t, app, http.MethodPatch, "/api/tickets/"+ticketID, token, map[string]any{
			"evidence": []map[string]any{{
				"text":       "photo of the dock",
				"image_data": "data:image/png;base64,iVBORw0KGgo=",
				"image_name": "dock.png",
			}},
		})
		require.Equal(t, http.StatusOK, resp.StatusCode)
		var patched map[string]any
		decodeBody(t, resp, &patched)
		items := patched["evidence"].([]any)
		require.Len(t, items, 1)
		item := items[0].(map[string]any)
		assert.NotEmpty(t, item["id"])
		assert.NotEmpty(t, item["created_at"])
		assert.Equal(t, "photo of the dock", item["text"])
	})
}

func TestTicketDeleteMinePurgesJournal(t *testing.T) {
	app, db, cfg := newTestApp(t)
	requester := createUser(t, db, "user@workplatform.local", services.RoleUser)
	token := tokenFor(t, cfg, requester)

	resp := doJSON(t, app, http.MethodPost, "/api/tickets", token, map[string]any{
		"title": "Please remove", "category": "help", "priority": "low",
	})
	require.Equal(t, http.StatusOK, resp.StatusCode)
	var created map[string]any
	decodeBody(t, resp, &created)
	ticketID := created["id"].(string)

	resp = doJSON(t, app, http.MethodDelete, "/api/tickets/mine/"+ticketID, token, nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var tickets int64
	require.NoError(t, db.Model(&models.Ticket{}).Count(&tickets).Error)
	assert.Zero(t, tickets)
	var events int64
	require.NoError(t, db.Model(&models.TicketEvent{}).Count(&events).Error)
	assert.Zero(t, events)

	t.Run("cannot delete someone else's ticket", func(t *testing.T) {
		other := createUser(t, db, "other@workplatform.local", services.RoleUser)
		resp := doJSON(t, app, http.MethodPost, "/api/tickets", tokenFor(t, cfg, other), map[string]any{
			"title": "Not yours", "category": "help", "priority": "low",
		})
		require.Equal(t, http.StatusOK, resp.StatusCode)
		var theirs map[string]any
		decodeBody(t, resp, &theirs)

		resp = doJSON(t, app, http.MethodDelete, fmt.Sprintf("/api/tickets/mine/%s", theirs["id"]), token, nil)
		assert.Equal(t, http.StatusNotFound, resp.StatusCode)
	})
}

func TestTicketQueues(t *testing.T) {
	app, db, cfg := newTestApp(t)
	requester := createUser(t, db, "user@workplatform.local", services.RoleUser)
	developer := createUser(t, db, "dev@workplatform.local", services.RoleDeveloper)
	admin := createUser(t, db, "admin@workplatform.local", services.RoleAdmin)
	requesterToken := tokenFor(t, cfg, requester)
	developerToken := tokenFor(t, cfg, developer)
	adminToken := tokenFor(t, cfg, admin)

	var ids []string
	for i := 0; i < 3; i++ {
		resp := doJSON(t, app, http.MethodPost, "/api/tickets", requesterToken, map[string]any{
			"title": fmt.Sprintf("Issue %d", i), "category": "help", "priority": "medium",
		})
		require.Equal(t, http.StatusOK, resp.StatusCode)
		var created map[string]any
		decodeBody(t, resp, &created)
		ids = append(ids, created["id"].(string))
	}

	// admin assigns one to the developer, resolves another
	resp := doJSON(t, app, http.MethodPost, "/api/tickets/"+ids[0]+"/assign", adminToken, map[string]any{
		"assignee_id": developer.ID.String(),
	})
	require.Equal(t, http.StatusOK, resp.StatusCode)
	resp = doJSON(t, app, http.MethodPatch, "/api/tickets/"+ids[1], adminToken, map[string]any{
		"status": "resolved",
	})
	require.Equal(t, http.StatusOK, resp.StatusCode)

	t.Run("open queue excludes resolved tickets", func(t *testing.T) {
		resp := doJSON(t, app, http.MethodGet, "/api/tickets/open", developerToken, nil)
		require.Equal(t, http.StatusOK, resp.StatusCode)
		var open []map[string]any
		decodeBody(t, resp, &open)
		assert.Len(t, open, 2)
	})

	t.Run("unassigned queue excludes the assigned ticket", func(t *testing.T) {
		resp := doJSON(t, app, http.MethodGet, "/api/tickets/open/unassigned", developerToken, nil)
		require.Equal(t, http.StatusOK, resp.StatusCode)
		var unassigned []map[string]any
		decodeBody(t, resp, &unassigned)
		require.Len(t, unassigned, 1)
		assert.Equal(t, ids[2], unassigned[0]["id"])
	})

	t.Run("assigned queue shows the developer their ticket", func(t *testing.T) {
		resp := doJSON(t, app, http.MethodGet, "/api/tickets/assigned", developerToken, nil)
		require.Equal(t, http.StatusOK, resp.StatusCode)
		var assigned []map[string]any
		decodeBody(t, resp, &assigned)
		require.Len(t, assigned, 1)
		assert.Equal(t, ids[0], assigned[0]["id"])
	})

	t.Run("assignable users are staff only for admins", func(t *testing.T) {
		resp := doJSON(t, app, http.MethodGet, "/api/tickets/assignable-users", adminToken, nil)
		require.Equal(t, http.StatusOK, resp.StatusCode)
		var candidates []map[string]any
		decodeBody(t, resp, &candidates)
		require.Len(t, candidates, 2)
		for _, candidate := range candidates {
			assert.NotEqual(t, services.RoleUser, candidate["role"])
		}
	})

	t.Run("invalid assignee role is rejected", func(t *testing.T) {
		resp := doJSON(t, app, http.MethodPost, "/api/tickets/"+ids[2]+"/assign", adminToken, map[string]any{
			"assignee_id": requester.ID.String(),
		})
		assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	})
}

// Folding the journal payloads over the event sequence must land on the same
// status, assignee and resolution as the live row.
func TestTicketEventReplayMatchesLiveTicket(t *testing.T) {
	app, db, cfg := newTestApp(t)

	requester := createUser(t, db, "user@workplatform.local", services.RoleUser)
	admin := createUser(t, db, "admin@workplatform.local", services.RoleAdmin)
	developer := createUser(t, db, "dev@workplatform.local", services.RoleDeveloper)
	requesterToken := tokenFor(t, cfg, requester)
	adminToken := tokenFor(t, cfg, admin)

	resp := doJSON(t, app, http.MethodPost, "/api/tickets", requesterToken, map[string]any{
		"title":    "VPN drops every hour",
		"category": "network",
		"priority": "medium",
	})
	require.Equal(t, http.StatusOK, resp.StatusCode)
	var created map[string]any
	decodeBody(t, resp, &created)
	ticketID := created["id"].(string)

	for _, patch := range []map[string]any{
		{"status": "triaged"},
		{"status": "in_progress", "assignee_id": developer.ID.String()},
		{"status": "waiting_user"},
		{"status": "in_progress", "assignee_id": admin.ID.String()},
		{"status": "resolved", "resolution": "Re-issued the VPN certificate"},
	} {
		resp := doJSON(t, app, http.MethodPatch, "/api/tickets/"+ticketID, adminToken, patch)
		require.Equal(t, http.StatusOK, resp.StatusCode)
	}

	resp = doJSON(t, app, http.MethodGet, "/api/tickets/"+ticketID, adminToken, nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	var live map[string]any
	decodeBody(t, resp, &live)

	resp = doJSON(t, app, http.MethodGet, "/api/tickets/"+ticketID+"/events", adminToken, nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	var events []map[string]any
	decodeBody(t, resp, &events)
	require.Len(t, events, 6)

	var status string
	var assigneeID, resolution any
	for _, event := range events {
		payload := event["payload"].(map[string]any)
		if next, ok := payload["status"]; ok {
			status = next.(string)
		}
		if next, ok := payload["assignee_id"]; ok {
			assigneeID = next
		}
		if next, ok := payload["resolution"]; ok {
			resolution = next
		}
	}

	assert.Equal(t, live["status"], status)
	assert.Equal(t, live["assignee_id"], assigneeID)
	assert.Equal(t, live["resolution"], resolution)
}
