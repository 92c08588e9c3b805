package handlers

import (
	"errors"
	"log/slog"
	"strings"

	"github.com/gofiber/fiber/v2"
	"github.com/tdcon/workplatform/internal/models"
	"github.com/tdcon/workplatform/internal/services"
	"gorm.io/gorm"
)

type MaintenanceHandler struct {
	db *gorm.DB
}

func NewMaintenanceHandler(db *gorm.DB) *MaintenanceHandler {
	return &MaintenanceHandler{db: db}
}

type maintenanceCheckRequest struct {
	ID          string `json:"id"`
	Label       string `json:"label"`
	Category    string `json:"category"`
	Checked     bool   `json:"checked"`
	Observation string `json:"observation"`
}

type maintenanceRequest struct {
	MaintenanceDate string                    `json:"maintenance_date"`
	QR              string                    `json:"qr"`
	Brand           string                    `json:"brand"`
	Model           string                    `json:"model"`
	UserName        string                    `json:"user_name"`
	SerialNumber    string                    `json:"serial_number"`
	Consecutive     string                    `json:"consecutive"`
	MaintenanceType string                    `json:"maintenance_type"`
	Location        string                    `json:"location"`
	ResponsibleName string                    `json:"responsible_name"`
	Checks          []maintenanceCheckRequest `json:"checks"`
}

// List returns all maintenance sheets for admins and the caller's own for
// everyone else, newest maintenance date first.
func (h *MaintenanceHandler) List(c *fiber.Ctx) error {
	user, err := requireModule(c, h.db, services.ModuleAssets)
	if err != nil {
		return respondError(c, err)
	}
	query := h.db.Preload("Checks").Order("maintenance_date DESC").Order("created_at DESC")
	if user.Role != services.RoleAdmin {
		query = query.Where("owner_id = ?", user.ID)
	}
	var records []models.MaintenanceRecord
	if err := query.Find(&records).Error; err != nil {
		return respondError(c, err)
	}
	return c.JSON(records)
}

// Create records a maintenance sheet. Free-text identity fields are
// uppercased so sheets match assets regardless of how technicians typed
// them; when the QR (or failing that, the serial number) matches an asset,
// a maintenance_recorded event is appended to that asset's journal.
func (h *MaintenanceHandler) Create(c *fiber.Ctx) error {
	user, err := requireModule(c, h.db, services.ModuleAssets)
	if err != nil {
		return respondError(c, err)
	}
	var req maintenanceRequest
	if err := c.BodyParser(&req); err != nil {
		return respondError(c, services.ValidationError("invalid request body"))
	}
	maintenanceDate, err := parseDate(req.MaintenanceDate, "maintenance_date")
	if err != nil {
		return respondError(c, err)
	}
	maintenanceType := strings.ToUpper(strings.TrimSpace(req.MaintenanceType))
	if maintenanceType != "P" && maintenanceType != "C" {
		return respondError(c, services.ValidationError("maintenance_type must be P or C"))
	}

	record := models.MaintenanceRecord{
		OwnerID:         user.ID,
		MaintenanceDate: maintenanceDate,
		QR:              strings.ToUpper(strings.TrimSpace(req.QR)),
		Brand:           strings.ToUpper(strings.TrimSpace(req.Brand)),
		Model:           strings.ToUpper(strings.TrimSpace(req.Model)),
		UserName:        strings.ToUpper(strings.TrimSpace(req.UserName)),
		SerialNumber:    strings.ToUpper(strings.TrimSpace(req.SerialNumber)),
		Consecutive:     strings.TrimSpace(req.Consecutive),
		MaintenanceType: maintenanceType,
		Location:        strings.ToUpper(strings.TrimSpace(req.Location)),
		ResponsibleName: strings.ToUpper(strings.TrimSpace(req.ResponsibleName)),
	}
	for _, check := range req.Checks {
		if strings.TrimSpace(check.ID) == "" {
			return respondError(c, services.ValidationError("check id is required"))
		}
		record.Checks = append(record.Checks, models.MaintenanceCheck{
			ID:          strings.TrimSpace(check.ID),
			Label:       check.Label,
			Category:    check.Category,
			Checked:     check.Checked,
			Observation: check.Observation,
		})
	}

	if err := h.db.Create(&record).Error; err != nil {
		return respondError(c, err)
	}

	// Linking the sheet to an asset is best effort: the sheet stands on its
	// own even when no asset matches.
	if asset := h.matchAsset(&record); asset != nil {
		actorID := user.ID
		err := services.LogAssetEvent(h.db, asset.ID, &actorID, services.EventMaintenanceRecorded, map[string]any{
			"maintenance_record_id": record.ID.String(),
			"maintenance_type":      record.MaintenanceType,
			"maintenance_date":      record.MaintenanceDate.Format("2006-01-02"),
			"responsible_name":      record.ResponsibleName,
		})
		if err != nil {
			slog.Error("failed to link maintenance record to asset", "record_id", record.ID, "error", err)
		}
	}

	return c.Status(fiber.StatusCreated).JSON(record)
}

// matchAsset resolves a sheet to an asset by QR code first, then by serial
// number. Comparison is case-insensitive since the sheet side is uppercased.
func (h *MaintenanceHandler) matchAsset(record *models.MaintenanceRecord) *models.Asset {
	var asset models.Asset
	if record.QR != "" {
		if err := h.db.Where("UPPER(qr_code) = ?", record.QR).First(&asset).Error; err == nil {
			return &asset
		} else if !errors.Is(err, gorm.ErrRecordNotFound) {
			return nil
		}
	}
	if record.SerialNumber != "" {
		if err := h.db.Where("UPPER(serial_number) = ?", record.SerialNumber).First(&asset).Error; err == nil {
			return &asset
		}
	}
	return nil
}

func (h *MaintenanceHandler) Delete(c *fiber.Ctx) error {
	user, err := requireModule(c, h.db, services.ModuleAssets)
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
	var record models.MaintenanceRecord
	if err := query.First(&record).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return respondError(c, services.NotFoundError("maintenance record"))
		}
		return respondError(c, err)
	}
	err = h.db.Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("record_id = ?", record.ID).Delete(&models.MaintenanceCheck{}).Error; err != nil {
			return err
		}
		return tx.Delete(&record).Error
	})
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(fiber.Map{"ok": true})
}
