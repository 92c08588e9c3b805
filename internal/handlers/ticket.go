package handlers

import (
	"encoding/json"
	"errors"
	"strings"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
	"github.com/tdcon/workplatform/internal/models"
	"github.com/tdcon/workplatform/internal/services"
	"gorm.io/gorm"
)

type TicketHandler struct {
	db *gorm.DB
}

func NewTicketHandler(db *gorm.DB) *TicketHandler {
	return &TicketHandler{db: db}
}

// ticketView is the response shape: the persisted ticket plus the derived
// SLA state (recomputed on every read, never stored) and resolved emails.
type ticketView struct {
	models.Ticket
	Evidence       []models.EvidenceItem `json:"evidence"`
	SLAState       string                `json:"sla_state"`
	RequesterEmail string                `json:"requester_email"`
	AssigneeEmail  *string               `json:"assignee_email"`
	FixedByEmail   *string               `json:"fixed_by_email"`
}

func (h *TicketHandler) view(ticket *models.Ticket) ticketView {
	requesterID := ticket.RequesterID
	requesterEmail := ""
	if email := userEmail(h.db, &requesterID); email != nil {
		requesterEmail = *email
	}
	return ticketView{
		Ticket:         *ticket,
		Evidence:       decodeEvidence(ticket.Evidence),
		SLAState:       services.TicketSLAState(ticket, time.Now().UTC()),
		RequesterEmail: requesterEmail,
		AssigneeEmail:  userEmail(h.db, ticket.AssigneeID),
		FixedByEmail:   userEmail(h.db, ticket.FixedByID),
	}
}

func (h *TicketHandler) views(tickets []models.Ticket) []ticketView {
	out := make([]ticketView, 0, len(tickets))
	for i := range tickets {
		out = append(out, h.view(&tickets[i]))
	}
	return out
}

// decodeEvidence shapes the raw JSON column into typed items, dropping
// anything malformed rather than failing the read.
func decodeEvidence(raw []byte) []models.EvidenceItem {
	items := []models.EvidenceItem{}
	if len(raw) == 0 {
		return items
	}
	if err := json.Unmarshal(raw, &items); err != nil {
		return []models.EvidenceItem{}
	}
	return items
}

// normalizeEvidence validates and fills in caller-supplied evidence items
// before they are written back to the JSON column.
func normalizeEvidence(items []models.EvidenceItem, now time.Time) ([]models.EvidenceItem, error) {
	normalized := make([]models.EvidenceItem, 0, len(items))
	for _, item := range items {
		var imageData *string
		if item.ImageData != nil {
			trimmed := strings.TrimSpace(*item.ImageData)
			if trimmed != "" {
				if !strings.HasPrefix(trimmed, "data:image/") {
					return nil, services.ValidationError("evidence image_data must be a data:image/* URL")
				}
				imageData = &trimmed
			}
		}
		id := strings.TrimSpace(item.ID)
		if id == "" {
			id = uuid.NewString()
		}
		createdAt := item.CreatedAt
		if createdAt == "" {
			createdAt = now.Format(time.RFC3339)
		}
		var imageName *string
		if item.ImageName != nil {
			trimmed := strings.TrimSpace(*item.ImageName)
			if trimmed != "" {
				imageName = &trimmed
			}
		}
		normalized = append(normalized, models.EvidenceItem{
			ID:        id,
			Text:      strings.TrimSpace(item.Text),
			ImageData: imageData,
			ImageName: imageName,
			CreatedAt: createdAt,
		})
	}
	return normalized, nil
}

// Create files a new ticket in status new with SLA deadlines fixed from the
// priority; the created event commits in the same transaction.
func (h *TicketHandler) Create(c *fiber.Ctx) error {
	user, err := requireModule(c, h.db, services.ModuleTickets)
	if err != nil {
		return respondError(c, err)
	}

	var req struct {
		Title       string `json:"title"`
		Description string `json:"description"`
		Category    string `json:"category"`
		Priority    string `json:"priority"`
	}
	if err := c.BodyParser(&req); err != nil {
		return respondError(c, services.ValidationError("invalid request body"))
	}
	if strings.TrimSpace(req.Title) == "" {
		return respondError(c, services.ValidationError("title is required"))
	}
	category, err := services.NormalizeTicketCategory(req.Category)
	if err != nil {
		return respondError(c, err)
	}
	priority, err := services.NormalizeTicketPriority(req.Priority)
	if err != nil {
		return respondError(c, err)
	}

	now := time.Now().UTC()
	firstDue, resolutionDue := services.TicketDeadlines(priority, now)
	ticket := models.Ticket{
		RequesterID:        user.ID,
		Title:              strings.TrimSpace(req.Title),
		Description:        req.Description,
		Category:           category,
		Priority:           priority,
		Status:             services.TicketStatusNew,
		Evidence:           []byte("[]"),
		FirstResponseDueAt: &firstDue,
		ResolutionDueAt:    &resolutionDue,
	}

	err = h.db.Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(&ticket).Error; err != nil {
			return err
		}
		actorID := user.ID
		return services.LogTicketEvent(tx, ticket.ID, &actorID, services.EventCreated, map[string]any{
			"status":   ticket.Status,
			"priority": priority,
			"category": category,
		})
	})
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(h.view(&ticket))
}

func (h *TicketHandler) ListMine(c *fiber.Ctx) error {
	user, err := requireModule(c, h.db, services.ModuleTickets)
	if err != nil {
		return respondError(c, err)
	}
	var tickets []models.Ticket
	if err := h.db.Where("requester_id = ?", user.ID).Order("created_at DESC").Find(&tickets).Error; err != nil {
		return respondError(c, err)
	}
	return c.JSON(h.views(tickets))
}

func (h *TicketHandler) findMine(c *fiber.Ctx, user *models.User) (*models.Ticket, error) {
	id, err := parseUUIDParam(c, "id")
	if err != nil {
		return nil, err
	}
	var ticket models.Ticket
	if err := h.db.First(&ticket, "id = ? AND requester_id = ?", id, user.ID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, services.NotFoundError("ticket")
		}
		return nil, err
	}
	return &ticket, nil
}

func (h *TicketHandler) GetMine(c *fiber.Ctx) error {
	user, err := requireModule(c, h.db, services.ModuleTickets)
	if err != nil {
		return respondError(c, err)
	}
	ticket, err := h.findMine(c, user)
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(h.view(ticket))
}

func (h *TicketHandler) ListMyEvents(c *fiber.Ctx) error {
	user, err := requireModule(c, h.db, services.ModuleTickets)
	if err != nil {
		return respondError(c, err)
	}
	ticket, err := h.findMine(c, user)
	if err != nil {
		return respondError(c, err)
	}
	return h.respondEvents(c, ticket.ID)
}

// DeleteMine is the only physical ticket delete: owner-initiated, and it
// purges the ticket's journal with it.
func (h *TicketHandler) DeleteMine(c *fiber.Ctx) error {
	user, err := requireModule(c, h.db, services.ModuleTickets)
	if err != nil {
		return respondError(c, err)
	}
	ticket, err := h.findMine(c, user)
	if err != nil {
		return respondError(c, err)
	}
	err = h.db.Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("ticket_id = ?", ticket.ID).Delete(&models.TicketEvent{}).Error; err != nil {
			return err
		}
		return tx.Delete(ticket).Error
	})
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(fiber.Map{"ok": true})
}

func (h *TicketHandler) ListOpen(c *fiber.Ctx) error {
	if _, err := requireTeamModule(c, h.db, services.ModuleTickets); err != nil {
		return respondError(c, err)
	}
	var tickets []models.Ticket
	if err := h.db.Where("status IN ?", services.TicketActiveStatuses).Order("created_at ASC").Find(&tickets).Error; err != nil {
		return respondError(c, err)
	}
	return c.JSON(h.views(tickets))
}

func (h *TicketHandler) ListOpenUnassigned(c *fiber.Ctx) error {
	if _, err := requireTeamModule(c, h.db, services.ModuleTickets); err != nil {
		return respondError(c, err)
	}
	var tickets []models.Ticket
	if err := h.db.Where("status IN ? AND assignee_id IS NULL", services.TicketActiveStatuses).
		Order("created_at ASC").Find(&tickets).Error; err != nil {
		return respondError(c, err)
	}
	return c.JSON(h.views(tickets))
}

func (h *TicketHandler) ListAssignedMine(c *fiber.Ctx) error {
	user, err := requireTeamModule(c, h.db, services.ModuleTickets)
	if err != nil {
		return respondError(c, err)
	}
	var tickets []models.Ticket
	if err := h.db.Where("assignee_id = ?", user.ID).Order("updated_at DESC").Find(&tickets).Error; err != nil {
		return respondError(c, err)
	}
	return c.JSON(h.views(tickets))
}

// ListAssignableUsers returns the candidates the caller may pick as an
// assignee: all admins/developers for admins, self for developers.
func (h *TicketHandler) ListAssignableUsers(c *fiber.Ctx) error {
	user, err := requireTeamModule(c, h.db, services.ModuleTickets)
	if err != nil {
		return respondError(c, err)
	}
	var candidates []models.User
	if user.Role == services.RoleAdmin {
		if err := h.db.Where("role IN ?", []string{services.RoleAdmin, services.RoleDeveloper}).
			Order("email ASC").Find(&candidates).Error; err != nil {
			return respondError(c, err)
		}
	} else {
		candidates = []models.User{*user}
	}
	out := make([]fiber.Map, 0, len(candidates))
	for _, candidate := range candidates {
		out = append(out, fiber.Map{"id": candidate.ID, "email": candidate.Email, "role": candidate.Role})
	}
	return c.JSON(out)
}

func (h *TicketHandler) load(c *fiber.Ctx) (*models.Ticket, error) {
	id, err := parseUUIDParam(c, "id")
	if err != nil {
		return nil, err
	}
	var ticket models.Ticket
	if err := h.db.First(&ticket, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, services.NotFoundError("ticket")
		}
		return nil, err
	}
	return &ticket, nil
}

func (h *TicketHandler) Get(c *fiber.Ctx) error {
	if _, err := requireTeamModule(c, h.db, services.ModuleTickets); err != nil {
		return respondError(c, err)
	}
	ticket, err := h.load(c)
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(h.view(ticket))
}

type ticketPatchRequest struct {
	Status       *string               `json:"status"`
	AssigneeID   *string               `json:"assignee_id"`
	Resolution   *string               `json:"resolution"`
	ProcessNotes *string               `json:"process_notes"`
	Evidence     []models.EvidenceItem `json:"evidence"`
	HasEvidence  bool                  `json:"-"`
}

// Patch applies a validated status transition plus any of assignee,
// resolution, process notes and evidence. The entity mutation and its
// journal entry commit atomically; any rejection rolls back both.
func (h *TicketHandler) Patch(c *fiber.Ctx) error {
	user, err := requireTeamModule(c, h.db, services.ModuleTickets)
	if err != nil {
		return respondError(c, err)
	}
	id, err := parseUUIDParam(c, "id")
	if err != nil {
		return respondError(c, err)
	}

	var req ticketPatchRequest
	if err := c.BodyParser(&req); err != nil {
		return respondError(c, services.ValidationError("invalid request body"))
	}
	// BodyParser cannot distinguish absent from empty list; probe the raw
	// body for the evidence key.
	var probe map[string]json.RawMessage
	if err := json.Unmarshal(c.Body(), &probe); err == nil {
		_, req.HasEvidence = probe["evidence"]
	}

	var ticket models.Ticket
	err = h.db.Transaction(func(tx *gorm.DB) error {
		if err := tx.First(&ticket, "id = ?", id).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return services.NotFoundError("ticket")
			}
			return err
		}
		now := time.Now().UTC()
		previousStatus := ticket.Status

		next := ticket.Status
		if req.Status != nil {
			normalized, err := services.NormalizeTicketStatus(*req.Status)
			if err != nil {
				return err
			}
			next = normalized
		}
		if err := services.ApplyTicketStatus(&ticket, next, user.ID, now); err != nil {
			return err
		}

		if req.AssigneeID != nil {
			var requested *uuid.UUID
			if *req.AssigneeID != "" {
				parsed, err := uuid.Parse(*req.AssigneeID)
				if err != nil {
					return services.ValidationError("assignee_id must be a uuid")
				}
				requested = &parsed
			}
			if err := services.ValidateAssignmentPermission(user, requested); err != nil {
				return err
			}
			assignee, err := services.ResolveAssignee(tx, requested)
			if err != nil {
				return err
			}
			if assignee == nil {
				ticket.AssigneeID = nil
			} else {
				assigneeID := assignee.ID
				ticket.AssigneeID = &assigneeID
			}
		}
		if req.Resolution != nil {
			ticket.Resolution = *req.Resolution
		}
		if req.ProcessNotes != nil {
			ticket.ProcessNotes = *req.ProcessNotes
		}
		if req.HasEvidence {
			normalized, err := normalizeEvidence(req.Evidence, now)
			if err != nil {
				return err
			}
			raw, err := json.Marshal(normalized)
			if err != nil {
				return err
			}
			ticket.Evidence = raw
		}
		ticket.UpdatedAt = now

		if err := tx.Save(&ticket).Error; err != nil {
			return err
		}
		actorID := user.ID
		payload := map[string]any{
			"previous_status": previousStatus,
			"status":          ticket.Status,
			"resolution":      ticket.Resolution,
		}
		if ticket.AssigneeID != nil {
			payload["assignee_id"] = ticket.AssigneeID.String()
		} else {
			payload["assignee_id"] = nil
		}
		return services.LogTicketEvent(tx, ticket.ID, &actorID, services.EventUpdated, payload)
	})
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(h.view(&ticket))
}

// Assign changes only the assignee, under the same permission rules as
// Patch, and journals an assigned event.
func (h *TicketHandler) Assign(c *fiber.Ctx) error {
	user, err := requireTeamModule(c, h.db, services.ModuleTickets)
	if err != nil {
		return respondError(c, err)
	}
	id, err := parseUUIDParam(c, "id")
	if err != nil {
		return respondError(c, err)
	}

	var req struct {
		AssigneeID *string `json:"assignee_id"`
	}
	if err := c.BodyParser(&req); err != nil {
		return respondError(c, services.ValidationError("invalid request body"))
	}

	var ticket models.Ticket
	err = h.db.Transaction(func(tx *gorm.DB) error {
		if err := tx.First(&ticket, "id = ?", id).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return services.NotFoundError("ticket")
			}
			return err
		}

		var requested *uuid.UUID
		if req.AssigneeID != nil && *req.AssigneeID != "" {
			parsed, err := uuid.Parse(*req.AssigneeID)
			if err != nil {
				return services.ValidationError("assignee_id must be a uuid")
			}
			requested = &parsed
		}
		if err := services.ValidateAssignmentPermission(user, requested); err != nil {
			return err
		}
		assignee, err := services.ResolveAssignee(tx, requested)
		if err != nil {
			return err
		}
		if assignee == nil {
			ticket.AssigneeID = nil
		} else {
			assigneeID := assignee.ID
			ticket.AssigneeID = &assigneeID
		}
		ticket.UpdatedAt = time.Now().UTC()

		if err := tx.Save(&ticket).Error; err != nil {
			return err
		}
		actorID := user.ID
		payload := map[string]any{"assignee_id": nil}
		if ticket.AssigneeID != nil {
			payload["assignee_id"] = ticket.AssigneeID.String()
		}
		return services.LogTicketEvent(tx, ticket.ID, &actorID, services.EventAssigned, payload)
	})
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(h.view(&ticket))
}

func (h *TicketHandler) ListEvents(c *fiber.Ctx) error {
	if _, err := requireTeamModule(c, h.db, services.ModuleTickets); err != nil {
		return respondError(c, err)
	}
	ticket, err := h.load(c)
	if err != nil {
		return respondError(c, err)
	}
	return h.respondEvents(c, ticket.ID)
}

// respondEvents returns the ticket journal oldest-first (history view) with
// an id tiebreak for equal timestamps.
func (h *TicketHandler) respondEvents(c *fiber.Ctx, ticketID uuid.UUID) error {
	var events []models.TicketEvent
	if err := h.db.Where("ticket_id = ?", ticketID).
		Order("created_at ASC").Order("id ASC").Find(&events).Error; err != nil {
		return respondError(c, err)
	}
	out := make([]fiber.Map, 0, len(events))
	for _, event := range events {
		out = append(out, fiber.Map{
			"id":          event.ID,
			"ticket_id":   event.TicketID,
			"actor_id":    event.ActorID,
			"actor_email": userEmail(h.db, event.ActorID),
			"event_type":  event.EventType,
			"payload":     json.RawMessage(event.Payload),
			"created_at":  event.CreatedAt,
		})
	}
	return c.JSON(out)
}
