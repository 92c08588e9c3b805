package services

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/tdcon/workplatform/internal/models"
	"gorm.io/gorm"
)

const (
	AssetStatusActive      = "active"
	AssetStatusMaintenance = "maintenance"
	AssetStatusRetired     = "retired"
	AssetStatusLost        = "lost"
)

var AssetStatusValues = []string{AssetStatusActive, AssetStatusMaintenance, AssetStatusRetired, AssetStatusLost}

// UnassignedUserLabel is the sentinel stored when no user is assigned.
const UnassignedUserLabel = "Unassigned"

var assetTagPattern = regexp.MustCompile(`^(?i)TDC-(\d{4,})$`)

func NormalizeAssetStatus(value string) (string, error) {
	status := strings.ToLower(strings.TrimSpace(value))
	for _, known := range AssetStatusValues {
		if status == known {
			return status, nil
		}
	}
	return "", ValidationError(fmt.Sprintf("status must be %s", strings.Join(AssetStatusValues, "|")))
}

func NormalizeAssignedUser(value string) string {
	assigned := strings.TrimSpace(value)
	if assigned == "" {
		return UnassignedUserLabel
	}
	return assigned
}

func NormalizeQRClass(value string) (string, error) {
	class := strings.ToUpper(strings.TrimSpace(value))
	if class == "" {
		class = "A"
	}
	if class != "A" && class != "B" && class != "C" {
		return "", ValidationError("qrClass must be A|B|C")
	}
	return class, nil
}

// NextAssetTagFrom computes the successor of the highest TDC-#### suffix in
// tags. Strings that do not match the tag pattern are ignored.
func NextAssetTagFrom(tags []string) string {
	highest := 0
	for _, tag := range tags {
		match := assetTagPattern.FindStringSubmatch(strings.TrimSpace(tag))
		if match == nil {
			continue
		}
		value, err := strconv.Atoi(match[1])
		if err != nil {
			continue
		}
		if value > highest {
			highest = value
		}
	}
	return fmt.Sprintf("TDC-%04d", highest+1)
}

// NextAssetTag scans the whole asset table for the next tag. It must run in
// the same transaction as the insert; the unique index on asset_tag plus
// retry-on-conflict in the handler closes the remaining scan-then-insert
// race.
func NextAssetTag(tx *gorm.DB) (string, error) {
	var tags []string
	if err := tx.Model(&models.Asset{}).Pluck("asset_tag", &tags).Error; err != nil {
		return "", err
	}
	return NextAssetTagFrom(tags), nil
}

// BuildQRCode derives the QR string TDC-<yy>-<consecutive>-<class> from an
// allocated tag. Pure in (tag, class, now); recomputed on every update so a
// class change is reflected while the tag stays immutable.
func BuildQRCode(assetTag, qrClass string, now time.Time) (string, error) {
	match := assetTagPattern.FindStringSubmatch(strings.TrimSpace(assetTag))
	if match == nil {
		return "", ValidationError("assetTag must match TDC-####")
	}
	consecutive, err := strconv.Atoi(match[1])
	if err != nil {
		return "", ValidationError("assetTag must match TDC-####")
	}
	return fmt.Sprintf("TDC-%02d-%04d-%s", now.UTC().Year()%100, consecutive, qrClass), nil
}

// AssetSnapshot captures the mutable fields tracked by the update diff.
func AssetSnapshot(asset *models.Asset) map[string]any {
	return map[string]any{
		"qr_code":       asset.QRCode,
		"location":      asset.Location,
		"serial_number": asset.SerialNumber,
		"category":      asset.Category,
		"manufacturer":  asset.Manufacturer,
		"model":         asset.Model,
		"supplier":      asset.Supplier,
		"status":        asset.Status,
		"user":          asset.AssignedUser,
		"condition":     asset.Condition,
		"notes":         asset.Notes,
	}
}

// DiffFields returns field -> {before, after} for every key whose value
// changed. An empty map means no update event should be emitted.
func DiffFields(before, after map[string]any) map[string]map[string]any {
	changes := make(map[string]map[string]any)
	for key, next := range after {
		if previous, ok := before[key]; !ok || previous != next {
			changes[key] = map[string]any{"before": before[key], "after": next}
		}
	}
	for key, previous := range before {
		if _, ok := after[key]; !ok {
			changes[key] = map[string]any{"before": previous, "after": nil}
		}
	}
	return changes
}
