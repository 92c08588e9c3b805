package handlers

import (
	"time"

	"github.com/gofiber/fiber/v2"
	"gorm.io/gorm"
)

type SystemHandler struct {
	db        *gorm.DB
	startedAt time.Time
}

func NewSystemHandler(db *gorm.DB) *SystemHandler {
	return &SystemHandler{db: db, startedAt: time.Now().UTC()}
}

func (h *SystemHandler) Health(c *fiber.Ctx) error {
	status := "ok"
	if sqlDB, err := h.db.DB(); err != nil || sqlDB.Ping() != nil {
		status = "degraded"
	}
	return c.JSON(fiber.Map{
		"status":  status,
		"version": Version,
		"uptime":  time.Since(h.startedAt).Round(time.Second).String(),
	})
}
