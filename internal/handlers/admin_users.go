package handlers

import (
	"errors"
	"strings"

	"github.com/gofiber/fiber/v2"
	"github.com/tdcon/workplatform/internal/config"
	"github.com/tdcon/workplatform/internal/middleware"
	"github.com/tdcon/workplatform/internal/models"
	"github.com/tdcon/workplatform/internal/services"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"
)

type AdminUserHandler struct {
	cfg *config.Config
	db  *gorm.DB
}

func NewAdminUserHandler(cfg *config.Config, db *gorm.DB) *AdminUserHandler {
	return &AdminUserHandler{cfg: cfg, db: db}
}

func (h *AdminUserHandler) userView(user *models.User) fiber.Map {
	return fiber.Map{
		"id":                 user.ID,
		"email":              user.Email,
		"username":           usernameFromEmail(user.Email),
		"role":               user.Role,
		"preferred_language": user.PreferredLanguage,
		"must_set_password":  user.MustSetPassword,
		"pending_activation": user.ActivationTokenHash != nil,
		"created_at":         user.CreatedAt,
	}
}

func (h *AdminUserHandler) List(c *fiber.Ctx) error {
	if _, err := requireAdmin(c, h.db); err != nil {
		return respondError(c, err)
	}
	var users []models.User
	if err := h.db.Order("email ASC").Find(&users).Error; err != nil {
		return respondError(c, err)
	}
	out := make([]fiber.Map, 0, len(users))
	for i := range users {
		out = append(out, h.userView(&users[i]))
	}
	return c.JSON(out)
}

// Create provisions an account without a usable password: the new user
// activates via a one-time token and picks their own password. The token is
// returned once, in this response, and only its digest is stored.
func (h *AdminUserHandler) Create(c *fiber.Ctx) error {
	admin, err := requireAdmin(c, h.db)
	if err != nil {
		return respondError(c, err)
	}
	var req struct {
		Email             string `json:"email"`
		Role              string `json:"role"`
		PreferredLanguage string `json:"preferred_language"`
	}
	if err := c.BodyParser(&req); err != nil {
		return respondError(c, services.ValidationError("invalid request body"))
	}
	email, err := normalizeLoginIdentity(req.Email, h.cfg.LoginDomain)
	if err != nil {
		return respondError(c, err)
	}
	role, err := services.NormalizeRole(req.Role)
	if err != nil {
		return respondError(c, err)
	}
	var existing models.User
	if err := h.db.First(&existing, "email = ?", email).Error; err == nil {
		return respondError(c, services.ConflictError("user already exists"))
	} else if !errors.Is(err, gorm.ErrRecordNotFound) {
		return respondError(c, err)
	}

	language := strings.TrimSpace(req.PreferredLanguage)
	if language != "en" && language != "es" {
		language = "en"
	}
	user := models.User{
		Email:             email,
		Role:              role,
		PreferredLanguage: language,
		MustSetPassword:   true,
	}
	token, expiresAt, err := issueActivation(&user)
	if err != nil {
		return respondError(c, err)
	}
	// Unusable until activation: no password accepted before the token flow.
	placeholder, err := bcrypt.GenerateFromPassword([]byte(token), bcrypt.DefaultCost)
	if err != nil {
		return respondError(c, err)
	}
	user.PasswordHash = string(placeholder)

	if err := h.db.Create(&user).Error; err != nil {
		return respondError(c, err)
	}
	services.WriteAuditLog(h.db, services.AuditEntry{
		Actor:      admin,
		Action:     "admin.user.create",
		TargetType: "user",
		TargetID:   ptr(user.ID.String()),
		Status:     services.AuditStatusSuccess,
		Payload:    map[string]any{"email": email, "role": role},
		RequestID:  middleware.RequestID(c),
		IPAddress:  clientIP(c),
	})
	return c.Status(fiber.StatusCreated).JSON(fiber.Map{
		"user":                  h.userView(&user),
		"activation_token":      token,
		"activation_expires_at": expiresAt,
	})
}

func (h *AdminUserHandler) loadTarget(c *fiber.Ctx) (*models.User, error) {
	id, err := parseUUIDParam(c, "id")
	if err != nil {
		return nil, err
	}
	var user models.User
	if err := h.db.First(&user, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, services.NotFoundError("user")
		}
		return nil, err
	}
	return &user, nil
}

// Update changes role and language. An admin cannot demote themselves; that
// keeps at least the acting session out of a lockout.
func (h *AdminUserHandler) Update(c *fiber.Ctx) error {
	admin, err := requireAdmin(c, h.db)
	if err != nil {
		return respondError(c, err)
	}
	target, err := h.loadTarget(c)
	if err != nil {
		return respondError(c, err)
	}
	var req struct {
		Role              *string `json:"role"`
		PreferredLanguage *string `json:"preferred_language"`
	}
	if err := c.BodyParser(&req); err != nil {
		return respondError(c, services.ValidationError("invalid request body"))
	}
	if req.Role != nil {
		role, err := services.NormalizeRole(*req.Role)
		if err != nil {
			return respondError(c, err)
		}
		if target.ID == admin.ID && role != services.RoleAdmin {
			return respondError(c, services.ForbiddenError("cannot change your own admin role"))
		}
		target.Role = role
	}
	if req.PreferredLanguage != nil {
		if *req.PreferredLanguage != "en" && *req.PreferredLanguage != "es" {
			return respondError(c, services.ValidationError("preferred_language must be en or es"))
		}
		target.PreferredLanguage = *req.PreferredLanguage
	}
	if err := h.db.Save(target).Error; err != nil {
		return respondError(c, err)
	}
	services.WriteAuditLog(h.db, services.AuditEntry{
		Actor:      admin,
		Action:     "admin.user.update",
		TargetType: "user",
		TargetID:   ptr(target.ID.String()),
		Status:     services.AuditStatusSuccess,
		Payload:    map[string]any{"role": target.Role, "preferred_language": target.PreferredLanguage},
		RequestID:  middleware.RequestID(c),
		IPAddress:  clientIP(c),
	})
	return c.JSON(h.userView(target))
}

func (h *AdminUserHandler) Delete(c *fiber.Ctx) error {
	admin, err := requireAdmin(c, h.db)
	if err != nil {
		return respondError(c, err)
	}
	target, err := h.loadTarget(c)
	if err != nil {
		return respondError(c, err)
	}
	if target.ID == admin.ID {
		return respondError(c, services.ForbiddenError("cannot delete your own account"))
	}
	if err := h.db.Delete(target).Error; err != nil {
		return respondError(c, err)
	}
	services.WriteAuditLog(h.db, services.AuditEntry{
		Actor:      admin,
		Action:     "admin.user.delete",
		TargetType: "user",
		TargetID:   ptr(target.ID.String()),
		Status:     services.AuditStatusSuccess,
		Payload:    map[string]any{"email": target.Email},
		RequestID:  middleware.RequestID(c),
		IPAddress:  clientIP(c),
	})
	return c.JSON(fiber.Map{"ok": true})
}

// ResetPassword invalidates the current password and restarts the
// activation flow with a fresh one-time token.
func (h *AdminUserHandler) ResetPassword(c *fiber.Ctx) error {
	admin, err := requireAdmin(c, h.db)
	if err != nil {
		return respondError(c, err)
	}
	target, err := h.loadTarget(c)
	if err != nil {
		return respondError(c, err)
	}
	token, expiresAt, err := issueActivation(target)
	if err != nil {
		return respondError(c, err)
	}
	placeholder, err := bcrypt.GenerateFromPassword([]byte(token), bcrypt.DefaultCost)
	if err != nil {
		return respondError(c, err)
	}
	target.PasswordHash = string(placeholder)
	target.MustSetPassword = true
	if err := h.db.Save(target).Error; err != nil {
		return respondError(c, err)
	}
	services.WriteAuditLog(h.db, services.AuditEntry{
		Actor:      admin,
		Action:     "admin.user.reset_password",
		TargetType: "user",
		TargetID:   ptr(target.ID.String()),
		Status:     services.AuditStatusSuccess,
		RequestID:  middleware.RequestID(c),
		IPAddress:  clientIP(c),
	})
	return c.JSON(fiber.Map{
		"user":                  h.userView(target),
		"activation_token":      token,
		"activation_expires_at": expiresAt,
	})
}

// ActivationLink reissues a token for an account still pending activation.
func (h *AdminUserHandler) ActivationLink(c *fiber.Ctx) error {
	admin, err := requireAdmin(c, h.db)
	if err != nil {
		return respondError(c, err)
	}
	target, err := h.loadTarget(c)
	if err != nil {
		return respondError(c, err)
	}
	if !target.MustSetPassword {
		return respondError(c, services.ValidationError("account is already activated"))
	}
	token, expiresAt, err := issueActivation(target)
	if err != nil {
		return respondError(c, err)
	}
	if err := h.db.Save(target).Error; err != nil {
		return respondError(c, err)
	}
	services.WriteAuditLog(h.db, services.AuditEntry{
		Actor:      admin,
		Action:     "admin.user.activation_link",
		TargetType: "user",
		TargetID:   ptr(target.ID.String()),
		Status:     services.AuditStatusSuccess,
		RequestID:  middleware.RequestID(c),
		IPAddress:  clientIP(c),
	})
	return c.JSON(fiber.Map{
		"activation_token":      token,
		"activation_expires_at": expiresAt,
	})
}

func ptr[T any](v T) *T { return &v }

