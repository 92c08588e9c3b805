package handlers

import (
	"errors"
	"strings"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
	"github.com/tdcon/workplatform/internal/models"
	"github.com/tdcon/workplatform/internal/services"
	"gorm.io/gorm"
)

const Version = "1.0.0"

// respondError maps service errors to their HTTP status and the shared
// error envelope; anything untyped is a 500.
func respondError(c *fiber.Ctx, err error) error {
	status := fiber.StatusInternalServerError
	message := "internal server error"

	var svcErr *services.Error
	if errors.As(err, &svcErr) {
		message = svcErr.Message
		switch svcErr.Kind {
		case services.KindNotFound:
			status = fiber.StatusNotFound
		case services.KindInvalidTransition, services.KindInvalidAssignee, services.KindValidation:
			status = fiber.StatusBadRequest
		case services.KindForbidden:
			status = fiber.StatusForbidden
		case services.KindConflict:
			status = fiber.StatusConflict
		}
	}
	return c.Status(status).JSON(fiber.Map{
		"error":   true,
		"message": message,
	})
}

// currentUser loads the authenticated user from the JWT locals set by the
// middleware.
func currentUser(c *fiber.Ctx, db *gorm.DB) (*models.User, error) {
	userID, ok := c.Locals("user_id").(uuid.UUID)
	if !ok {
		return nil, services.ForbiddenError("authentication required")
	}
	var user models.User
	if err := db.First(&user, "id = ?", userID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, services.ForbiddenError("account no longer exists")
		}
		return nil, err
	}
	return &user, nil
}

// requireModule returns the caller if their role has the module enabled.
func requireModule(c *fiber.Ctx, db *gorm.DB, module string) (*models.User, error) {
	user, err := currentUser(c, db)
	if err != nil {
		return nil, err
	}
	enabled, err := services.IsModuleEnabled(db, user.Role, module)
	if err != nil {
		return nil, err
	}
	if !enabled {
		return nil, services.ForbiddenError("module is not enabled for your role")
	}
	return user, nil
}

// requireTeamModule additionally restricts to staff roles: module gating
// controls visibility, the role check controls who may work other people's
// records.
func requireTeamModule(c *fiber.Ctx, db *gorm.DB, module string) (*models.User, error) {
	user, err := requireModule(c, db, module)
	if err != nil {
		return nil, err
	}
	if user.Role != services.RoleAdmin && user.Role != services.RoleDeveloper {
		return nil, services.ForbiddenError("staff role required")
	}
	return user, nil
}

func requireAdmin(c *fiber.Ctx, db *gorm.DB) (*models.User, error) {
	user, err := currentUser(c, db)
	if err != nil {
		return nil, err
	}
	if user.Role != services.RoleAdmin {
		return nil, services.ForbiddenError("admin role required")
	}
	enabled, err := services.IsModuleEnabled(db, user.Role, services.ModuleAdmin)
	if err != nil {
		return nil, err
	}
	if !enabled {
		return nil, services.ForbiddenError("admin module is not enabled")
	}
	return user, nil
}

func parseUUIDParam(c *fiber.Ctx, name string) (uuid.UUID, error) {
	id, err := uuid.Parse(c.Params(name))
	if err != nil {
		return uuid.Nil, services.ValidationError(name + " must be a uuid")
	}
	return id, nil
}

func parseDate(value, field string) (time.Time, error) {
	parsed, err := time.Parse("2006-01-02", strings.TrimSpace(value))
	if err != nil {
		return time.Time{}, services.ValidationError(field + " must be a YYYY-MM-DD date")
	}
	return parsed, nil
}

func parseOptionalDate(value, field string) (*time.Time, error) {
	if strings.TrimSpace(value) == "" {
		return nil, nil
	}
	parsed, err := parseDate(value, field)
	if err != nil {
		return nil, err
	}
	return &parsed, nil
}

func clientIP(c *fiber.Ctx) *string {
	ip := c.IP()
	if ip == "" {
		return nil
	}
	return &ip
}

// userEmail resolves a user id to an email for display; missing users
// (deleted accounts referenced from old events) come back nil.
func userEmail(db *gorm.DB, id *uuid.UUID) *string {
	if id == nil {
		return nil
	}
	var user models.User
	if err := db.Select("email").First(&user, "id = ?", *id).Error; err != nil {
		return nil
	}
	return &user.Email
}

// normalizeLoginIdentity lowercases the identity and appends the login
// domain to bare usernames so people can sign in with either form.
func normalizeLoginIdentity(value, domain string) (string, error) {
	identity := strings.ToLower(strings.TrimSpace(value))
	if identity == "" {
		return "", services.ValidationError("email is required")
	}
	if !strings.Contains(identity, "@") {
		identity = identity + "@" + domain
	}
	return identity, nil
}

// usernameFromEmail derives the display username shown in admin listings.
func usernameFromEmail(email string) string {
	local, _, _ := strings.Cut(email, "@")
	return strings.ToUpper(local)
}
