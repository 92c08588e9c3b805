package handlers

import (
	"crypto/rand"
	"crypto/sha256"
	"encoding/hex"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/tdcon/workplatform/internal/config"
	"github.com/tdcon/workplatform/internal/middleware"
	"github.com/tdcon/workplatform/internal/models"
	"github.com/tdcon/workplatform/internal/services"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"
)

const activationTokenTTL = 60 * time.Minute

type AuthHandler struct {
	cfg *config.Config
	db  *gorm.DB
}

func NewAuthHandler(cfg *config.Config, db *gorm.DB) *AuthHandler {
	return &AuthHandler{cfg: cfg, db: db}
}

func generateActivationToken() (string, error) {
	raw := make([]byte, 32)
	if _, err := rand.Read(raw); err != nil {
		return "", err
	}
	return hex.EncodeToString(raw), nil
}

func hashActivationToken(token string) string {
	digest := sha256.Sum256([]byte(token))
	return hex.EncodeToString(digest[:])
}

// issueActivation puts the user into must-set-password state and returns the
// one-time token (only the sha256 digest is stored).
func issueActivation(user *models.User) (string, time.Time, error) {
	token, err := generateActivationToken()
	if err != nil {
		return "", time.Time{}, err
	}
	expiresAt := time.Now().UTC().Add(activationTokenTTL)
	digest := hashActivationToken(token)
	user.MustSetPassword = true
	user.ActivationTokenHash = &digest
	user.ActivationExpiresAt = &expiresAt
	return token, expiresAt, nil
}

func (h *AuthHandler) authResponse(c *fiber.Ctx, user *models.User) error {
	token, err := middleware.GenerateToken(user.ID, user.Email, user.Role, h.cfg.JWTSecret, h.cfg.TokenTTL)
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(fiber.Map{
		"token":              token,
		"user_email":         user.Email,
		"role":               user.Role,
		"preferred_language": user.PreferredLanguage,
	})
}

// Register creates a user directly with a password. Admin-gated; there is no
// self-serve signup on this platform.
func (h *AuthHandler) Register(c *fiber.Ctx) error {
	admin, err := requireAdmin(c, h.db)
	if err != nil {
		return respondError(c, err)
	}

	var req struct {
		Email    string `json:"email"`
		Password string `json:"password"`
		Role     string `json:"role"`
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
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(req.Password), bcrypt.DefaultCost)
	if err != nil {
		return respondError(c, err)
	}
	user := models.User{Email: email, PasswordHash: string(hash), Role: role}
	if err := h.db.Create(&user).Error; err != nil {
		return respondError(c, err)
	}

	targetID := user.ID.String()
	services.WriteAuditLog(h.db, services.AuditEntry{
		Actor:      admin,
		Action:     "auth.register",
		TargetType: "user",
		TargetID:   &targetID,
		Status:     services.AuditStatusSuccess,
		Payload:    map[string]any{"email": user.Email, "role": user.Role},
		RequestID:  middleware.RequestID(c),
		IPAddress:  clientIP(c),
	})
	return h.authResponse(c, &user)
}

func (h *AuthHandler) Login(c *fiber.Ctx) error {
	var req struct {
		Email    string `json:"email"`
		Password string `json:"password"`
	}
	if err := c.BodyParser(&req); err != nil {
		return respondError(c, services.ValidationError("invalid request body"))
	}
	email, err := normalizeLoginIdentity(req.Email, h.cfg.LoginDomain)
	if err != nil {
		return respondError(c, err)
	}

	var user models.User
	if err := h.db.First(&user, "email = ?", email).Error; err != nil {
		return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{
			"error":   true,
			"message": "Invalid credentials",
		})
	}
	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(req.Password)); err != nil {
		return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{
			"error":   true,
			"message": "Invalid credentials",
		})
	}
	if user.MustSetPassword {
		return respondError(c, services.ForbiddenError("account activation required; use your activation link to set a password"))
	}
	return h.authResponse(c, &user)
}

// Activate consumes a one-time activation token and sets the first password.
func (h *AuthHandler) Activate(c *fiber.Ctx) error {
	var req struct {
		Token       string `json:"token"`
		NewPassword string `json:"new_password"`
	}
	if err := c.BodyParser(&req); err != nil {
		return respondError(c, services.ValidationError("invalid request body"))
	}
	if req.Token == "" {
		return respondError(c, services.ValidationError("activation token is required"))
	}
	if len(req.NewPassword) < 8 {
		return respondError(c, services.ValidationError("password must be at least 8 characters"))
	}

	digest := hashActivationToken(req.Token)
	var user models.User
	if err := h.db.First(&user, "activation_token_hash = ?", digest).Error; err != nil || !user.MustSetPassword {
		return respondError(c, services.ValidationError("invalid or already used activation token"))
	}
	if user.ActivationExpiresAt == nil || user.ActivationExpiresAt.Before(time.Now().UTC()) {
		return respondError(c, services.ValidationError("activation token expired"))
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(req.NewPassword), bcrypt.DefaultCost)
	if err != nil {
		return respondError(c, err)
	}
	user.PasswordHash = string(hash)
	user.MustSetPassword = false
	user.ActivationTokenHash = nil
	user.ActivationExpiresAt = nil
	if err := h.db.Save(&user).Error; err != nil {
		return respondError(c, err)
	}

	targetID := user.ID.String()
	services.WriteAuditLog(h.db, services.AuditEntry{
		Actor:      &user,
		Action:     "auth.activate",
		TargetType: "user",
		TargetID:   &targetID,
		Status:     services.AuditStatusSuccess,
		RequestID:  middleware.RequestID(c),
		IPAddress:  clientIP(c),
	})
	return h.authResponse(c, &user)
}

func (h *AuthHandler) Me(c *fiber.Ctx) error {
	user, err := currentUser(c, h.db)
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(fiber.Map{
		"user_email":         user.Email,
		"role":               user.Role,
		"preferred_language": user.PreferredLanguage,
	})
}

func (h *AuthHandler) ChangePassword(c *fiber.Ctx) error {
	user, err := currentUser(c, h.db)
	if err != nil {
		return respondError(c, err)
	}

	var req struct {
		CurrentPassword string `json:"current_password"`
		NewPassword     string `json:"new_password"`
	}
	if err := c.BodyParser(&req); err != nil {
		return respondError(c, services.ValidationError("invalid request body"))
	}
	if len(req.NewPassword) < 8 {
		return respondError(c, services.ValidationError("new password must be at least 8 characters"))
	}
	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(req.CurrentPassword)); err != nil {
		return respondError(c, services.ValidationError("current password is incorrect"))
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(req.NewPassword), bcrypt.DefaultCost)
	if err != nil {
		return respondError(c, err)
	}
	user.PasswordHash = string(hash)
	if err := h.db.Save(user).Error; err != nil {
		return respondError(c, err)
	}

	targetID := user.ID.String()
	services.WriteAuditLog(h.db, services.AuditEntry{
		Actor:      user,
		Action:     "auth.change_password",
		TargetType: "user",
		TargetID:   &targetID,
		Status:     services.AuditStatusSuccess,
		RequestID:  middleware.RequestID(c),
		IPAddress:  clientIP(c),
	})
	return c.JSON(fiber.Map{"ok": true})
}

func (h *AuthHandler) UpdatePreferences(c *fiber.Ctx) error {
	user, err := currentUser(c, h.db)
	if err != nil {
		return respondError(c, err)
	}

	var req struct {
		PreferredLanguage string `json:"preferred_language"`
	}
	if err := c.BodyParser(&req); err != nil {
		return respondError(c, services.ValidationError("invalid request body"))
	}
	language := req.PreferredLanguage
	if language != "en" && language != "es" {
		return respondError(c, services.ValidationError("preferred_language must be en or es"))
	}
	user.PreferredLanguage = language
	if err := h.db.Save(user).Error; err != nil {
		return respondError(c, err)
	}
	return c.JSON(fiber.Map{"ok": true, "preferred_language": language})
}
