package handlers_test

import (
	"net/http"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tdcon/workplatform/internal/models"
	"github.com/tdcon/workplatform/internal/services"
)

func TestAssetLifecycle(t *testing.T) {
	app, db, cfg := newTestApp(t)
	admin := createUser(t, db, "admin@workplatform.local", services.RoleAdmin)
	token := tokenFor(t, cfg, admin)

	resp := doJSON(t, app, http.MethodPost, "/api/assets", token, map[string]any{
		"name":          "Dell Latitude 5440",
		"qr_class":      "b",
		"location":      "HQ floor 2",
		"serial_number": "sn-1001",
		"category":      "laptop",
		"manufacturer":  "Dell",
		"model":         "Latitude 5440",
	})
	require.Equal(t, http.StatusCreated, resp.StatusCode)
	var first map[string]any
	decodeBody(t, resp, &first)
	assert.Equal(t, "TDC-0001", first["asset_tag"])
	assert.Equal(t, "Unassigned", first["assigned_user"])
	assert.Equal(t, "active", first["status"])
	assert.Equal(t, "SN-1001", first["serial_number"])

	expectedQR := "TDC-" + time.Now().UTC().Format("06") + "-0001-B"
	assert.Equal(t, expectedQR, first["qr_code"])

	t.Run("tags are monotonic", func(t *testing.T) {
		resp := doJSON(t, app, http.MethodPost, "/api/assets", token, map[string]any{
			"name": "HP monitor",
		})
		require.Equal(t, http.StatusCreated, resp.StatusCode)
		var second map[string]any
		decodeBody(t, resp, &second)
		assert.Equal(t, "TDC-0002", second["asset_tag"])
	})

	assetID := first["id"].(string)

	t.Run("update journals only changed fields", func(t *testing.T) {
		resp := doJSON(t, app, http.MethodPut, "/api/assets/"+assetID, token, map[string]any{
			"name":          "Dell Latitude 5440",
			"qr_class":      "B",
			"location":      "Warehouse",
			"serial_number": "SN-1001",
			"category":      "laptop",
			"manufacturer":  "Dell",
			"model":         "Latitude 5440",
		})
		require.Equal(t, http.StatusOK, resp.StatusCode)

		resp = doJSON(t, app, http.MethodGet, "/api/assets/"+assetID+"/history", token, nil)
		require.Equal(t, http.StatusOK, resp.StatusCode)
		var history []map[string]any
		decodeBody(t, resp, &history)
		require.Len(t, history, 2)
		// newest first
		assert.Equal(t, "updated", history[0]["event_type"])
		assert.Equal(t, "created", history[1]["event_type"])

		payload := history[0]["payload"].(map[string]any)
		require.Contains(t, payload, "changes")
		changes := payload["changes"].(map[string]any)
		require.Len(t, changes, 1)
		change := changes["location"].(map[string]any)
		assert.Equal(t, "HQ floor 2", change["before"])
		assert.Equal(t, "Warehouse", change["after"])
	})

	t.Run("a no-change update writes no event", func(t *testing.T) {
		resp := doJSON(t, app, http.MethodPut, "/api/assets/"+assetID, token, map[string]any{
			"name":          "Dell Latitude 5440",
			"qr_class":      "B",
			"location":      "Warehouse",
			"serial_number": "SN-1001",
			"category":      "laptop",
			"manufacturer":  "Dell",
			"model":         "Latitude 5440",
		})
		require.Equal(t, http.StatusOK, resp.StatusCode)

		var count int64
		require.NoError(t, db.Model(&models.AssetEvent{}).Count(&count).Error)
		assert.Equal(t, int64(2), count)
	})

	t.Run("a class change recomputes the qr code and is journaled", func(t *testing.T) {
		resp := doJSON(t, app, http.MethodPut, "/api/assets/"+assetID, token, map[string]any{
			"name":          "Dell Latitude 5440",
			"qr_class":      "c",
			"location":      "Warehouse",
			"serial_number": "SN-1001",
			"category":      "laptop",
			"manufacturer":  "Dell",
			"model":         "Latitude 5440",
		})
		require.Equal(t, http.StatusOK, resp.StatusCode)
		var updated map[string]any
		decodeBody(t, resp, &updated)
		assert.Equal(t, "TDC-"+time.Now().UTC().Format("06")+"-0001-C", updated["qr_code"])

		var event models.AssetEvent
		require.NoError(t, db.Where("asset_id = ?", assetID).Order("created_at DESC").Order("id DESC").
			First(&event).Error)
		assert.Equal(t, services.EventUpdated, event.EventType)
		assert.Contains(t, string(event.Payload), "qr_code")
	})

	t.Run("delete keeps the journal with a terminal event", func(t *testing.T) {
		resp := doJSON(t, app, http.MethodDelete, "/api/assets/"+assetID, token, nil)
		require.Equal(t, http.StatusOK, resp.StatusCode)

		var count int64
		require.NoError(t, db.Model(&models.Asset{}).Where("id = ?", assetID).Count(&count).Error)
		assert.Zero(t, count)

		var events []models.AssetEvent
		require.NoError(t, db.Where("asset_id = ?", assetID).Order("created_at ASC").Find(&events).Error)
		require.Len(t, events, 4)
		assert.Equal(t, services.EventDeleted, events[3].EventType)
	})
}

func TestAssetQRCodeTracksCurrentYear(t *testing.T) {
	app, db, cfg := newTestApp(t)
	admin := createUser(t, db, "admin@workplatform.local", services.RoleAdmin)
	token := tokenFor(t, cfg, admin)

	resp := doJSON(t, app, http.MethodPost, "/api/assets", token, map[string]any{
		"name":     "Aging projector",
		"qr_class": "A",
	})
	require.Equal(t, http.StatusCreated, resp.StatusCode)
	var asset map[string]any
	decodeBody(t, resp, &asset)
	assetID := asset["id"].(string)

	// backdate the row two years so the stored code carries a stale year
	staleYear := time.Now().UTC().AddDate(-2, 0, 0)
	require.NoError(t, db.Model(&models.Asset{}).Where("id = ?", assetID).
		Updates(map[string]any{
			"created_at": staleYear,
			"qr_code":    "TDC-" + staleYear.Format("06") + "-0001-A",
		}).Error)

	resp = doJSON(t, app, http.MethodPut, "/api/assets/"+assetID, token, map[string]any{
		"name":     "Aging projector",
		"qr_class": "B",
	})
	require.Equal(t, http.StatusOK, resp.StatusCode)
	var updated map[string]any
	decodeBody(t, resp, &updated)
	assert.Equal(t, "TDC-"+time.Now().UTC().Format("06")+"-0001-B", updated["qr_code"])
}

func TestAssetRoleScoping(t *testing.T) {
	app, db, cfg := newTestApp(t)
	admin := createUser(t, db, "admin@workplatform.local", services.RoleAdmin)
	developer := createUser(t, db, "dev@workplatform.local", services.RoleDeveloper)
	regular := createUser(t, db, "user@workplatform.local", services.RoleUser)

	adminToken := tokenFor(t, cfg, admin)
	devToken := tokenFor(t, cfg, developer)

	resp := doJSON(t, app, http.MethodPost, "/api/assets", adminToken, map[string]any{"name": "Rack server"})
	require.Equal(t, http.StatusCreated, resp.StatusCode)
	resp = doJSON(t, app, http.MethodPost, "/api/assets", devToken, map[string]any{"name": "Test bench"})
	require.Equal(t, http.StatusCreated, resp.StatusCode)

	t.Run("admins see everything", func(t *testing.T) {
		resp := doJSON(t, app, http.MethodGet, "/api/assets", adminToken, nil)
		require.Equal(t, http.StatusOK, resp.StatusCode)
		var assets []map[string]any
		decodeBody(t, resp, &assets)
		assert.Len(t, assets, 2)
	})

	t.Run("developers see the whole inventory", func(t *testing.T) {
		resp := doJSON(t, app, http.MethodGet, "/api/assets", devToken, nil)
		require.Equal(t, http.StatusOK, resp.StatusCode)
		var assets []map[string]any
		decodeBody(t, resp, &assets)
		assert.Len(t, assets, 2)
	})

	t.Run("regular users are gated out of the module", func(t *testing.T) {
		resp := doJSON(t, app, http.MethodGet, "/api/assets", tokenFor(t, cfg, regular), nil)
		assert.Equal(t, http.StatusForbidden, resp.StatusCode)
	})

	t.Run("module-enabled regular users stay owner scoped", func(t *testing.T) {
		require.NoError(t, db.Create(&models.RoleModuleAccess{
			Role: services.RoleUser, Module: services.ModuleAssets, Enabled: true,
		}).Error)
		regularToken := tokenFor(t, cfg, regular)

		resp := doJSON(t, app, http.MethodPost, "/api/assets", regularToken, map[string]any{"name": "Desk phone"})
		require.Equal(t, http.StatusCreated, resp.StatusCode)

		resp = doJSON(t, app, http.MethodGet, "/api/assets", regularToken, nil)
		require.Equal(t, http.StatusOK, resp.StatusCode)
		var assets []map[string]any
		decodeBody(t, resp, &assets)
		require.Len(t, assets, 1)
		assert.Equal(t, "Desk phone", assets[0]["name"])
	})
}

func TestMaintenanceLinksToAsset(t *testing.T) {
	app, db, cfg := newTestApp(t)
	admin := createUser(t, db, "admin@workplatform.local", services.RoleAdmin)
	token := tokenFor(t, cfg, admin)

	resp := doJSON(t, app, http.MethodPost, "/api/assets", token, map[string]any{
		"name":          "Lenovo ThinkCentre",
		"serial_number": "SN-777",
	})
	require.Equal(t, http.StatusCreated, resp.StatusCode)
	var asset map[string]any
	decodeBody(t, resp, &asset)
	qrCode := asset["qr_code"].(string)
	assetID := asset["id"].(string)

	resp = doJSON(t, app, http.MethodPost, "/api/maintenance", token, map[string]any{
		"maintenance_date": "2026-08-15",
		"qr":               qrCode,
		"brand":            "lenovo",
		"model":            "thinkcentre",
		"user_name":        "ana p",
		"serial_number":    "sn-777",
		"maintenance_type": "p",
		"location":         "hq",
		"responsible_name": "carlos m",
		"checks": []map[string]any{
			{"id": "hardware-general-cleaning", "label": "General cleaning", "category": "hardware", "checked": true},
			{"id": "software-os-updates", "label": "OS updates", "category": "software", "checked": false, "observation": "pending reboot"},
		},
	})
	require.Equal(t, http.StatusCreated, resp.StatusCode)
	var record map[string]any
	decodeBody(t, resp, &record)

	t.Run("free text fields are uppercased", func(t *testing.T) {
		assert.Equal(t, "LENOVO", record["brand"])
		assert.Equal(t, "ANA P", record["user_name"])
		assert.Equal(t, "P", record["maintenance_type"])
		assert.Equal(t, "CARLOS M", record["responsible_name"])
	})

	t.Run("checks are persisted with the record", func(t *testing.T) {
		checks := record["checks"].([]any)
		assert.Len(t, checks, 2)
	})

	t.Run("a maintenance_recorded event lands on the matched asset", func(t *testing.T) {
		var events []models.AssetEvent
		require.NoError(t, db.Where("asset_id = ? AND event_type = ?", assetID, services.EventMaintenanceRecorded).
			Find(&events).Error)
		require.Len(t, events, 1)
		assert.Contains(t, string(events[0].Payload), record["id"].(string))
	})

	t.Run("serial fallback links when the qr does not match", func(t *testing.T) {
		resp := doJSON(t, app, http.MethodPost, "/api/maintenance", token, map[string]any{
			"maintenance_date": "2026-08-16",
			"qr":               "UNKNOWN-QR",
			"serial_number":    "SN-777",
			"maintenance_type": "c",
		})
		require.Equal(t, http.StatusCreated, resp.StatusCode)

		var count int64
		require.NoError(t, db.Model(&models.AssetEvent{}).
			Where("asset_id = ? AND event_type = ?", assetID, services.EventMaintenanceRecorded).
			Count(&count).Error)
		assert.Equal(t, int64(2), count)
	})

	t.Run("an unmatched sheet still persists", func(t *testing.T) {
		resp := doJSON(t, app, http.MethodPost, "/api/maintenance", token, map[string]any{
			"maintenance_date": "2026-08-17",
			"qr":               "NO-SUCH-ASSET",
			"maintenance_type": "p",
		})
		require.Equal(t, http.StatusCreated, resp.StatusCode)

		var records int64
		require.NoError(t, db.Model(&models.MaintenanceRecord{}).Count(&records).Error)
		assert.Equal(t, int64(3), records)
	})

	t.Run("bad maintenance type is rejected", func(t *testing.T) {
		resp := doJSON(t, app, http.MethodPost, "/api/maintenance", token, map[string]any{
			"maintenance_date": "2026-08-17",
			"maintenance_type": "X",
		})
		assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	})
}
