package handlers

import (
	"strings"

	"github.com/gofiber/fiber/v2"
	"github.com/tdcon/workplatform/internal/models"
	"github.com/tdcon/workplatform/internal/services"
	"gorm.io/gorm"
)

// TeamEventHandler manages the shared team calendar. Everyone with the work
// module reads it; any reader can add entries, and entries are removable by
// their creator or an admin.
type TeamEventHandler struct {
	db *gorm.DB
}

func NewTeamEventHandler(db *gorm.DB) *TeamEventHandler {
	return &TeamEventHandler{db: db}
}

func (h *TeamEventHandler) List(c *fiber.Ctx) error {
	if _, err := requireModule(c, h.db, services.ModuleWork); err != nil {
		return respondError(c, err)
	}
	query := h.db.Order("event_date ASC").Order("created_at ASC")
	if from, err := parseOptionalDate(c.Query("from"), "from"); err != nil {
		return respondError(c, err)
	} else if from != nil {
		query = query.Where("event_date >= ?", *from)
	}
	if to, err := parseOptionalDate(c.Query("to"), "to"); err != nil {
		return respondError(c, err)
	} else if to != nil {
		query = query.Where("event_date <= ?", *to)
	}
	var events []models.TeamEvent
	if err := query.Find(&events).Error; err != nil {
		return respondError(c, err)
	}
	return c.JSON(events)
}

func (h *TeamEventHandler) Create(c *fiber.Ctx) error {
	user, err := requireModule(c, h.db, services.ModuleWork)
	if err != nil {
		return respondError(c, err)
	}
	var req struct {
		Title       string `json:"title"`
		EventDate   string `json:"event_date"`
		Description string `json:"description"`
		Owner       string `json:"owner"`
		Location    string `json:"location"`
	}
	if err := c.BodyParser(&req); err != nil {
		return respondError(c, services.ValidationError("invalid request body"))
	}
	if strings.TrimSpace(req.Title) == "" {
		return respondError(c, services.ValidationError("title is required"))
	}
	eventDate, err := parseDate(req.EventDate, "event_date")
	if err != nil {
		return respondError(c, err)
	}
	event := models.TeamEvent{
		OwnerID:     user.ID,
		Title:       strings.TrimSpace(req.Title),
		EventDate:   eventDate,
		Description: req.Description,
		Owner:       strings.TrimSpace(req.Owner),
		Location:    strings.TrimSpace(req.Location),
	}
	if err := h.db.Create(&event).Error; err != nil {
		return respondError(c, err)
	}
	return c.Status(fiber.StatusCreated).JSON(event)
}

func (h *TeamEventHandler) Delete(c *fiber.Ctx) error {
	user, err := requireModule(c, h.db, services.ModuleWork)
	if err != nil {
		return respondError(c, err)
	}
	id, err := parseUUIDParam(c, "id")
	if err != nil {
		return respondError(c, err)
	}
	query := h.db.Where("id = ?", id)
	if user.Role != services.RoleAdmin {
		query = query.Where("owner_id = ?", user.ID)
	}
	result := query.Delete(&models.TeamEvent{})
	if result.Error != nil {
		return respondError(c, result.Error)
	}
	if result.RowsAffected == 0 {
		return respondError(c, services.NotFoundError("team event"))
	}
	return c.JSON(fiber.Map{"ok": true})
}

// DeleteByDate clears a whole day, scoped to the caller's own entries
// unless they are an admin.
func (h *TeamEventHandler) DeleteByDate(c *fiber.Ctx) error {
	user, err := requireModule(c, h.db, services.ModuleWork)
	if err != nil {
		return respondError(c, err)
	}
	date, err := parseDate(c.Params("date"), "date")
	if err != nil {
		return respondError(c, err)
	}
	query := h.db.Where("event_date = ?", date)
	if user.Role != services.RoleAdmin {
		query = query.Where("owner_id = ?", user.ID)
	}
	result := query.Delete(&models.TeamEvent{})
	if result.Error != nil {
		return respondError(c, result.Error)
	}
	return c.JSON(fiber.Map{"ok": true, "deleted": result.RowsAffected})
}
