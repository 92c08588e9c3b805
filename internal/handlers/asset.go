package handlers

import (
	"encoding/json"
	"errors"
	"strings"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/tdcon/workplatform/internal/models"
	"github.com/tdcon/workplatform/internal/services"
	"gorm.io/gorm"
)

// assetTagRetries bounds how often Create re-runs tag allocation after a
// duplicate-key collision with a concurrent insert.
const assetTagRetries = 3

type AssetHandler struct {
	db *gorm.DB
}

func NewAssetHandler(db *gorm.DB) *AssetHandler {
	return &AssetHandler{db: db}
}

type assetRequest struct {
	Name         string `json:"name"`
	QRClass      string `json:"qr_class"`
	Location     string `json:"location"`
	SerialNumber string `json:"serial_number"`
	Category     string `json:"category"`
	Manufacturer string `json:"manufacturer"`
	Model        string `json:"model"`
	Supplier     string `json:"supplier"`
	Status       string `json:"status"`
	AssignedUser string `json:"assigned_user"`
	Condition    string `json:"condition"`
	Notes        string `json:"notes"`
}

// List returns the full inventory for staff (admins and developers) and the
// caller's own records for everyone else.
func (h *AssetHandler) List(c *fiber.Ctx) error {
	user, err := requireModule(c, h.db, services.ModuleAssets)
	if err != nil {
		return respondError(c, err)
	}
	query := h.db.Order("asset_tag ASC")
	if user.Role != services.RoleAdmin && user.Role != services.RoleDeveloper {
		query = query.Where("owner_id = ?", user.ID)
	}
	var assets []models.Asset
	if err := query.Find(&assets).Error; err != nil {
		return respondError(c, err)
	}
	return c.JSON(assets)
}

func (h *AssetHandler) load(c *fiber.Ctx, user *models.User) (*models.Asset, error) {
	id, err := parseUUIDParam(c, "id")
	if err != nil {
		return nil, err
	}
	query := h.db.Where("id = ?", id)
	if user.Role != services.RoleAdmin && user.Role != services.RoleDeveloper {
		query = query.Where("owner_id = ?", user.ID)
	}
	var asset models.Asset
	if err := query.First(&asset).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, services.NotFoundError("asset")
		}
		return nil, err
	}
	return &asset, nil
}

func (h *AssetHandler) Get(c *fiber.Ctx) error {
	user, err := requireModule(c, h.db, services.ModuleAssets)
	if err != nil {
		return respondError(c, err)
	}
	asset, err := h.load(c, user)
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(asset)
}

// History returns the asset journal newest-first.
func (h *AssetHandler) History(c *fiber.Ctx) error {
	user, err := requireModule(c, h.db, services.ModuleAssets)
	if err != nil {
		return respondError(c, err)
	}
	asset, err := h.load(c, user)
	if err != nil {
		return respondError(c, err)
	}
	var events []models.AssetEvent
	if err := h.db.Where("asset_id = ?", asset.ID).
		Order("created_at DESC").Order("id DESC").Find(&events).Error; err != nil {
		return respondError(c, err)
	}
	out := make([]fiber.Map, 0, len(events))
	for _, event := range events {
		out = append(out, fiber.Map{
			"id":          event.ID,
			"asset_id":    event.AssetID,
			"actor_id":    event.ActorID,
			"actor_email": userEmail(h.db, event.ActorID),
			"event_type":  event.EventType,
			"payload":     json.RawMessage(event.Payload),
			"created_at":  event.CreatedAt,
		})
	}
	return c.JSON(out)
}

// Create allocates the next TDC tag and derives the QR code inside one
// transaction with the created event. A tag collision with a concurrent
// create surfaces as a duplicate-key error; allocation is retried on a
// fresh transaction.
func (h *AssetHandler) Create(c *fiber.Ctx) error {
	user, err := requireModule(c, h.db, services.ModuleAssets)
	if err != nil {
		return respondError(c, err)
	}
	var req assetRequest
	if err := c.BodyParser(&req); err != nil {
		return respondError(c, services.ValidationError("invalid request body"))
	}
	if strings.TrimSpace(req.Name) == "" {
		return respondError(c, services.ValidationError("name is required"))
	}
	status := services.AssetStatusActive
	if req.Status != "" {
		status, err = services.NormalizeAssetStatus(req.Status)
		if err != nil {
			return respondError(c, err)
		}
	}
	qrClass, err := services.NormalizeQRClass(req.QRClass)
	if err != nil {
		return respondError(c, err)
	}

	var asset models.Asset
	for attempt := 0; ; attempt++ {
		asset = models.Asset{
			OwnerID:      user.ID,
			Name:         strings.TrimSpace(req.Name),
			Location:     req.Location,
			SerialNumber: strings.ToUpper(strings.TrimSpace(req.SerialNumber)),
			Category:     req.Category,
			Manufacturer: req.Manufacturer,
			Model:        req.Model,
			Supplier:     req.Supplier,
			Status:       status,
			AssignedUser: services.NormalizeAssignedUser(req.AssignedUser),
			Condition:    req.Condition,
			Notes:        req.Notes,
		}
		err = h.db.Transaction(func(tx *gorm.DB) error {
			tag, err := services.NextAssetTag(tx)
			if err != nil {
				return err
			}
			qrCode, err := services.BuildQRCode(tag, qrClass, time.Now().UTC())
			if err != nil {
				return err
			}
			asset.AssetTag = tag
			asset.QRCode = qrCode
			if err := tx.Create(&asset).Error; err != nil {
				return err
			}
			actorID := user.ID
			return services.LogAssetEvent(tx, asset.ID, &actorID, services.EventCreated, services.AssetSnapshot(&asset))
		})
		if err == nil {
			break
		}
		if errors.Is(err, gorm.ErrDuplicatedKey) && attempt < assetTagRetries {
			continue
		}
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return respondError(c, services.ConflictError("asset tag allocation contention, retry"))
		}
		return respondError(c, err)
	}
	return c.Status(fiber.StatusCreated).JSON(asset)
}

// Update saves the asset and journals an updated event carrying only the
// fields that actually changed; a no-op update writes no event.
func (h *AssetHandler) Update(c *fiber.Ctx) error {
	user, err := requireModule(c, h.db, services.ModuleAssets)
	if err != nil {
		return respondError(c, err)
	}
	asset, err := h.load(c, user)
	if err != nil {
		return respondError(c, err)
	}
	var req assetRequest
	if err := c.BodyParser(&req); err != nil {
		return respondError(c, services.ValidationError("invalid request body"))
	}

	before := services.AssetSnapshot(asset)

	if strings.TrimSpace(req.Name) != "" {
		asset.Name = strings.TrimSpace(req.Name)
	}
	if req.Status != "" {
		status, err := services.NormalizeAssetStatus(req.Status)
		if err != nil {
			return respondError(c, err)
		}
		asset.Status = status
	}
	qrClass, err := services.NormalizeQRClass(req.QRClass)
	if err != nil {
		return respondError(c, err)
	}
	// the QR is a pure function of (tag, class, current year): recomputed on
	// every update, so the year component tracks the clock
	qrCode, err := services.BuildQRCode(asset.AssetTag, qrClass, time.Now().UTC())
	if err != nil {
		return respondError(c, err)
	}
	asset.QRCode = qrCode
	asset.Location = req.Location
	asset.SerialNumber = strings.ToUpper(strings.TrimSpace(req.SerialNumber))
	asset.Category = req.Category
	asset.Manufacturer = req.Manufacturer
	asset.Model = req.Model
	asset.Supplier = req.Supplier
	asset.AssignedUser = services.NormalizeAssignedUser(req.AssignedUser)
	asset.Condition = req.Condition
	asset.Notes = req.Notes

	changes := services.DiffFields(before, services.AssetSnapshot(asset))

	err = h.db.Transaction(func(tx *gorm.DB) error {
		if err := tx.Save(asset).Error; err != nil {
			return err
		}
		if len(changes) == 0 {
			return nil
		}
		actorID := user.ID
		return services.LogAssetEvent(tx, asset.ID, &actorID, services.EventUpdated, map[string]any{
			"changes": changes,
		})
	})
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(asset)
}

// Delete removes the asset row but keeps its journal: a terminal deleted
// event with the final snapshot is written in the same transaction, so the
// trail survives the entity.
func (h *AssetHandler) Delete(c *fiber.Ctx) error {
	user, err := requireModule(c, h.db, services.ModuleAssets)
	if err != nil {
		return respondError(c, err)
	}
	asset, err := h.load(c, user)
	if err != nil {
		return respondError(c, err)
	}
	err = h.db.Transaction(func(tx *gorm.DB) error {
		if err := tx.Delete(asset).Error; err != nil {
			return err
		}
		actorID := user.ID
		return services.LogAssetEvent(tx, asset.ID, &actorID, services.EventDeleted, services.AssetSnapshot(asset))
	})
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(fiber.Map{"ok": true})
}
