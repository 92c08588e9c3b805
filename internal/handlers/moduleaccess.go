package handlers

import (
	"errors"

	"github.com/gofiber/fiber/v2"
	"github.com/tdcon/workplatform/internal/middleware"
	"github.com/tdcon/workplatform/internal/models"
	"github.com/tdcon/workplatform/internal/services"
	"gorm.io/gorm"
)

type ModuleAccessHandler struct {
	db *gorm.DB
}

func NewModuleAccessHandler(db *gorm.DB) *ModuleAccessHandler {
	return &ModuleAccessHandler{db: db}
}

// Mine returns the effective module map for the caller's role; the frontend
// uses it to decide which sections to render.
func (h *ModuleAccessHandler) Mine(c *fiber.Ctx) error {
	user, err := currentUser(c, h.db)
	if err != nil {
		return respondError(c, err)
	}
	access, err := services.ModuleAccessMap(h.db, user.Role)
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(fiber.Map{"role": user.Role, "modules": access})
}

// List returns the full role-by-module matrix with defaults overlaid by any
// stored overrides.
func (h *ModuleAccessHandler) List(c *fiber.Ctx) error {
	if _, err := requireAdmin(c, h.db); err != nil {
		return respondError(c, err)
	}
	matrix := make(map[string]map[string]bool, len(services.RoleNames))
	for _, role := range services.RoleNames {
		access, err := services.ModuleAccessMap(h.db, role)
		if err != nil {
			return respondError(c, err)
		}
		matrix[role] = access
	}
	return c.JSON(matrix)
}

// Patch stores one role/module override. The admin role can never lose the
// admin module; that override is rejected rather than silently ignored.
func (h *ModuleAccessHandler) Patch(c *fiber.Ctx) error {
	admin, err := requireAdmin(c, h.db)
	if err != nil {
		return respondError(c, err)
	}
	var req struct {
		Role    string `json:"role"`
		Module  string `json:"module"`
		Enabled bool   `json:"enabled"`
	}
	if err := c.BodyParser(&req); err != nil {
		return respondError(c, services.ValidationError("invalid request body"))
	}
	role, err := services.NormalizeRole(req.Role)
	if err != nil {
		return respondError(c, err)
	}
	module, err := services.NormalizeModule(req.Module)
	if err != nil {
		return respondError(c, err)
	}
	if role == services.RoleAdmin && module == services.ModuleAdmin && !req.Enabled {
		return respondError(c, services.ForbiddenError("the admin module cannot be disabled for the admin role"))
	}

	var row models.RoleModuleAccess
	err = h.db.Where("role = ? AND module = ?", role, module).First(&row).Error
	switch {
	case err == nil:
		row.Enabled = req.Enabled
		err = h.db.Save(&row).Error
	case errors.Is(err, gorm.ErrRecordNotFound):
		row = models.RoleModuleAccess{Role: role, Module: module, Enabled: req.Enabled}
		err = h.db.Create(&row).Error
	}
	if err != nil {
		return respondError(c, err)
	}

	services.WriteAuditLog(h.db, services.AuditEntry{
		Actor:      admin,
		Action:     "admin.module_access.update",
		TargetType: "role_module_access",
		TargetID:   ptr(role + ":" + module),
		Status:     services.AuditStatusSuccess,
		Payload:    map[string]any{"role": role, "module": module, "enabled": req.Enabled},
		RequestID:  middleware.RequestID(c),
		IPAddress:  clientIP(c),
	})

	access, err := services.ModuleAccessMap(h.db, role)
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(fiber.Map{"role": role, "modules": access})
}
