package handlers_test

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/require"
	"github.com/tdcon/workplatform/internal/config"
	"github.com/tdcon/workplatform/internal/handlers"
	"github.com/tdcon/workplatform/internal/middleware"
	"github.com/tdcon/workplatform/internal/models"
	"github.com/tdcon/workplatform/internal/routes"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
)

func newTestApp(t *testing.T) (*fiber.App, *gorm.DB, *config.Config) {
	t.Helper()

	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{TranslateError: true})
	require.NoError(t, err)
	sqlDB, err := db.DB()
	require.NoError(t, err)
	// one connection so every session sees the same in-memory database
	sqlDB.SetMaxOpenConns(1)

	require.NoError(t, db.AutoMigrate(
		&models.User{}, &models.RoleModuleAccess{},
		&models.Ticket{}, &models.TicketEvent{},
		&models.Asset{}, &models.AssetEvent{},
		&models.MaintenanceRecord{}, &models.MaintenanceCheck{},
		&models.AuditLog{},
		&models.Project{}, &models.Task{}, &models.Note{},
		&models.Notification{}, &models.KnowledgeArticle{}, &models.TeamEvent{},
	))

	cfg := &config.Config{
		JWTSecret:   "test-secret",
		TokenTTL:    time.Hour,
		LoginDomain: "workplatform.local",
	}

	app := fiber.New()
	app.Use(middleware.WithRequestID())
	routes.Setup(app, cfg,
		handlers.NewAuthHandler(cfg, db),
		handlers.NewAdminUserHandler(cfg, db),
		handlers.NewModuleAccessHandler(db),
		handlers.NewTicketHandler(db),
		handlers.NewAssetHandler(db),
		handlers.NewMaintenanceHandler(db),
		handlers.NewPersonalHandler(db),
		handlers.NewWorkHandler(db),
		handlers.NewTeamEventHandler(db),
		handlers.NewAuditHandler(db),
		handlers.NewSystemHandler(db),
	)
	return app, db, cfg
}

func createUser(t *testing.T, db *gorm.DB, email, role string) *models.User {
	t.Helper()
	hash, err := bcrypt.GenerateFromPassword([]byte("password123"), bcrypt.MinCost)
	require.NoError(t, err)
	user := &models.User{
		Email:             email,
		PasswordHash:      string(hash),
		Role:              role,
		PreferredLanguage: "en",
	}
	require.NoError(t, db.Create(user).Error)
	return user
}

func tokenFor(t *testing.T, cfg *config.Config, user *models.User) string {
	t.Helper()
	token, err := middleware.GenerateToken(user.ID, user.Email, user.Role, cfg.JWTSecret, cfg.TokenTTL)
	require.NoError(t, err)
	return token
}

func doJSON(t *testing.T, app *fiber.App, method, path, token string, body any) *http.Response {
	t.Helper()
	var reader *bytes.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(raw)
	} else {
		reader = bytes.NewReader(nil)
	}
	req := httptest.NewRequest(method, path, reader)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	resp, err := app.Test(req, -1)
	require.NoError(t, err)
	return resp
}

func decodeBody(t *testing.T, resp *http.Response, out any) {
	t.Helper()
	defer resp.Body.Close()
	require.NoError(t, json.NewDecoder(resp.Body).Decode(out))
}

// sanity guard so the helpers stay in sync with the route table
func TestHealthEndpoint(t *testing.T) {
	app, _, _ := newTestApp(t)
	resp := doJSON(t, app, http.MethodGet, "/api/health", "", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var body map[string]any
	decodeBody(t, resp, &body)
	require.Equal(t, "ok", body["status"])
}
