package database

import (
	"fmt"
	"log/slog"

	"github.com/tdcon/workplatform/internal/config"
	"github.com/tdcon/workplatform/internal/models"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
)

var DB *gorm.DB

func Connect(cfg *config.Config) error {
	dsn := fmt.Sprintf("host=%s port=%s user=%s password=%s dbname=%s sslmode=%s",
		cfg.DBHost, cfg.DBPort, cfg.DBUser, cfg.DBPassword, cfg.DBName, cfg.DBSSLMode)

	// TranslateError turns driver duplicate-key failures into
	// gorm.ErrDuplicatedKey, which the asset tag allocator retries on.
	db, err := gorm.Open(postgres.Open(dsn), &gorm.Config{TranslateError: true})
	if err != nil {
		return fmt.Errorf("failed to connect to database: %w", err)
	}

	DB = db
	slog.Info("Database connected", "host", cfg.DBHost, "db", cfg.DBName)
	return nil
}

func Migrate() error {
	return DB.AutoMigrate(
		&models.User{},
		&models.RoleModuleAccess{},
		&models.Project{},
		&models.Task{},
		&models.Note{},
		&models.Notification{},
		&models.KnowledgeArticle{},
		&models.TeamEvent{},
		&models.Ticket{},
		&models.TicketEvent{},
		&models.Asset{},
		&models.AssetEvent{},
		&models.MaintenanceRecord{},
		&models.MaintenanceCheck{},
		&models.AuditLog{},
	)
}

// SeedAdmin creates the bootstrap admin account when the users table has no
// admin yet. A blank email/password skips seeding.
func SeedAdmin(cfg *config.Config) error {
	if cfg.BootstrapAdminEmail == "" || cfg.BootstrapAdminPassword == "" {
		return nil
	}
	var count int64
	if err := DB.Model(&models.User{}).Where("role = ?", "admin").Count(&count).Error; err != nil {
		return err
	}
	if count > 0 {
		return nil
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(cfg.BootstrapAdminPassword), bcrypt.DefaultCost)
	if err != nil {
		return err
	}
	admin := models.User{
		Email:        cfg.BootstrapAdminEmail,
		PasswordHash: string(hash),
		Role:         "admin",
	}
	if err := DB.Create(&admin).Error; err != nil {
		return err
	}
	slog.Info("Bootstrap admin created", "email", cfg.BootstrapAdminEmail)
	return nil
}
