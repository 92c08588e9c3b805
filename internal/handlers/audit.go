package handlers

import (
	"encoding/json"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/tdcon/workplatform/internal/middleware"
	"github.com/tdcon/workplatform/internal/models"
	"github.com/tdcon/workplatform/internal/services"
	"gorm.io/gorm"
)

type AuditHandler struct {
	db *gorm.DB
}

func NewAuditHandler(db *gorm.DB) *AuditHandler {
	return &AuditHandler{db: db}
}

func auditQueryFromRequest(c *fiber.Ctx) (services.AuditQuery, error) {
	query := services.AuditQuery{
		Action:     c.Query("action"),
		ActorEmail: c.Query("actor_email"),
		TargetType: c.Query("target_type"),
		Status:     c.Query("status"),
	}
	if raw := c.Query("from"); raw != "" {
		from, err := time.Parse(time.RFC3339, raw)
		if err != nil {
			return query, services.ValidationError("from must be an RFC3339 timestamp")
		}
		query.From = &from
	}
	if raw := c.Query("to"); raw != "" {
		to, err := time.Parse(time.RFC3339, raw)
		if err != nil {
			return query, services.ValidationError("to must be an RFC3339 timestamp")
		}
		query.To = &to
	}
	return query, nil
}

func auditLogView(log *models.AuditLog) fiber.Map {
	return fiber.Map{
		"id":          log.ID,
		"created_at":  log.CreatedAt,
		"actor_email": log.ActorEmail,
		"actor_role":  log.ActorRole,
		"action":      log.Action,
		"target_type": log.TargetType,
		"target_id":   log.TargetID,
		"status":      log.Status,
		"request_id":  log.RequestID,
		"ip_address":  log.IPAddress,
		"payload":     json.RawMessage(log.Payload),
	}
}

// List pages through the audit trail newest-first with an opaque cursor.
func (h *AuditHandler) List(c *fiber.Ctx) error {
	if _, err := requireAdmin(c, h.db); err != nil {
		return respondError(c, err)
	}
	query, err := auditQueryFromRequest(c)
	if err != nil {
		return respondError(c, err)
	}
	logs, nextCursor, err := services.QueryAuditLogs(h.db, query, c.Query("cursor"), c.QueryInt("limit"))
	if err != nil {
		return respondError(c, err)
	}
	items := make([]fiber.Map, 0, len(logs))
	for i := range logs {
		items = append(items, auditLogView(&logs[i]))
	}
	return c.JSON(fiber.Map{
		"items":       items,
		"next_cursor": nextCursor,
	})
}

// ExportCSV streams a bounded window of the trail as CSV.
func (h *AuditHandler) ExportCSV(c *fiber.Ctx) error {
	admin, err := requireAdmin(c, h.db)
	if err != nil {
		return respondError(c, err)
	}
	query, err := auditQueryFromRequest(c)
	if err != nil {
		return respondError(c, err)
	}
	c.Set(fiber.HeaderContentType, "text/csv; charset=utf-8")
	c.Set(fiber.HeaderContentDisposition, `attachment; filename="audit_logs.csv"`)
	if err := services.ExportAuditCSV(h.db, query, c.Response().BodyWriter()); err != nil {
		return respondError(c, err)
	}
	services.WriteAuditLog(h.db, services.AuditEntry{
		Actor:      admin,
		Action:     "audit.export",
		TargetType: "audit_log",
		Status:     services.AuditStatusSuccess,
		Payload:    map[string]any{"from": query.From, "to": query.To},
		RequestID:  middleware.RequestID(c),
		IPAddress:  clientIP(c),
	})
	return nil
}

// Cleanup deletes entries past their retention horizon.
func (h *AuditHandler) Cleanup(c *fiber.Ctx) error {
	admin, err := requireAdmin(c, h.db)
	if err != nil {
		return respondError(c, err)
	}
	deleted, err := services.CleanupExpiredAuditLogs(h.db, admin, middleware.RequestID(c))
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(fiber.Map{"deleted": deleted})
}
