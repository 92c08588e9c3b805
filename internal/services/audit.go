package services

import (
	"encoding/base64"
	"encoding/csv"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/tdcon/workplatform/internal/models"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

const (
	AuditStatusSuccess = "success"
	AuditStatusFailure = "failure"
)

const (
	auditRetentionDays    = 180
	auditPayloadStrMax    = 500
	auditPayloadKeyMax    = 80
	auditPayloadListMax   = 30
	auditPayloadDepthMax  = 4
	auditPayloadJSONMax   = 4000
	auditCleanupBatchSize = 1000
	auditExportMaxWindow  = 31 * 24 * time.Hour
)

func truncateText(value string, maxLen int) string {
	if len(value) <= maxLen {
		return value
	}
	return value[:maxLen] + "..."
}

func sanitizeAuditValue(value any, depth int) any {
	if depth > auditPayloadDepthMax {
		return "[depth-truncated]"
	}
	switch v := value.(type) {
	case nil, bool, int, int64, float64, json.Number:
		return v
	case string:
		return truncateText(v, auditPayloadStrMax)
	case map[string]any:
		out := make(map[string]any, len(v))
		for key, item := range v {
			out[truncateText(key, auditPayloadKeyMax)] = sanitizeAuditValue(item, depth+1)
		}
		return out
	case []any:
		limit := len(v)
		if limit > auditPayloadListMax {
			limit = auditPayloadListMax
		}
		out := make([]any, 0, limit)
		for _, item := range v[:limit] {
			out = append(out, sanitizeAuditValue(item, depth+1))
		}
		return out
	default:
		return truncateText(fmt.Sprint(v), auditPayloadStrMax)
	}
}

// SanitizeAuditPayload caps strings, list lengths, nesting depth and the
// overall serialized size so a hostile or oversized payload can never bloat
// the audit table.
func SanitizeAuditPayload(payload map[string]any) datatypes.JSON {
	if payload == nil {
		payload = map[string]any{}
	}
	raw, err := json.Marshal(sanitizeAuditValue(payload, 0))
	if err != nil {
		raw = []byte(`{}`)
	}
	if len(raw) <= auditPayloadJSONMax {
		return datatypes.JSON(raw)
	}
	fallback, err := json.Marshal(map[string]any{
		"truncated": true,
		"preview":   truncateText(string(raw), auditPayloadJSONMax-64),
	})
	if err != nil {
		fallback = []byte(`{"truncated":true}`)
	}
	return datatypes.JSON(fallback)
}

// AuditEntry describes one privileged operation to record.
type AuditEntry struct {
	Actor      *models.User
	Action     string
	TargetType string
	TargetID   *string
	Status     string
	Payload    map[string]any
	RequestID  string
	IPAddress  *string
}

// WriteAuditLog records the entry on its own connection, outside any business
// transaction. It never returns an error: a telemetry outage must not block
// the primary operation, so failures are logged and swallowed.
func WriteAuditLog(db *gorm.DB, entry AuditEntry) {
	row := models.AuditLog{
		ActorEmail:     "anonymous",
		ActorRole:      "anonymous",
		Action:         entry.Action,
		TargetType:     entry.TargetType,
		TargetID:       entry.TargetID,
		Status:         entry.Status,
		Payload:        SanitizeAuditPayload(entry.Payload),
		RequestID:      entry.RequestID,
		IPAddress:      entry.IPAddress,
		RetentionUntil: time.Now().UTC().Add(auditRetentionDays * 24 * time.Hour),
	}
	if entry.Actor != nil {
		actorID := entry.Actor.ID
		row.ActorUserID = &actorID
		row.ActorEmail = entry.Actor.Email
		row.ActorRole = entry.Actor.Role
	}
	if err := db.Session(&gorm.Session{NewDB: true}).Create(&row).Error; err != nil {
		slog.Error("audit write failed", "request_id", entry.RequestID, "action", entry.Action, "error", err)
	}
}

// AuditQuery are the optional filters for listing and export.
type AuditQuery struct {
	Action     string
	ActorEmail string
	TargetType string
	Status     string
	From       *time.Time
	To         *time.Time
}

func (q AuditQuery) apply(db *gorm.DB) *gorm.DB {
	if q.Action != "" {
		db = db.Where("action = ?", q.Action)
	}
	if q.ActorEmail != "" {
		db = db.Where("actor_email = ?", q.ActorEmail)
	}
	if q.TargetType != "" {
		db = db.Where("target_type = ?", q.TargetType)
	}
	if q.Status != "" {
		db = db.Where("status = ?", q.Status)
	}
	if q.From != nil {
		db = db.Where("created_at >= ?", *q.From)
	}
	if q.To != nil {
		db = db.Where("created_at <= ?", *q.To)
	}
	return db
}

// EncodeAuditCursor packs the keyset position (created_at, id) of the last
// row of a page.
func EncodeAuditCursor(createdAt time.Time, id uuid.UUID) string {
	raw := createdAt.UTC().Format(time.RFC3339Nano) + "|" + id.String()
	return base64.RawURLEncoding.EncodeToString([]byte(raw))
}

func decodeAuditCursor(cursor string) (time.Time, uuid.UUID, error) {
	raw, err := base64.RawURLEncoding.DecodeString(cursor)
	if err != nil {
		return time.Time{}, uuid.Nil, ValidationError("invalid cursor")
	}
	parts := strings.SplitN(string(raw), "|", 2)
	if len(parts) != 2 {
		return time.Time{}, uuid.Nil, ValidationError("invalid cursor")
	}
	createdAt, err := time.Parse(time.RFC3339Nano, parts[0])
	if err != nil {
		return time.Time{}, uuid.Nil, ValidationError("invalid cursor")
	}
	id, err := uuid.Parse(parts[1])
	if err != nil {
		return time.Time{}, uuid.Nil, ValidationError("invalid cursor")
	}
	return createdAt, id, nil
}

// QueryAuditLogs returns one page ordered most-recent-first with an id
// tiebreak, plus the cursor for the next page ("" when exhausted).
func QueryAuditLogs(db *gorm.DB, query AuditQuery, cursor string, limit int) ([]models.AuditLog, string, error) {
	if limit < 1 || limit > 200 {
		limit = 50
	}
	scope := query.apply(db.Model(&models.AuditLog{}))
	if cursor != "" {
		createdAt, id, err := decodeAuditCursor(cursor)
		if err != nil {
			return nil, "", err
		}
		scope = scope.Where("created_at < ? OR (created_at = ? AND id < ?)", createdAt, createdAt, id)
	}

	var rows []models.AuditLog
	if err := scope.Order("created_at DESC").Order("id DESC").Limit(limit + 1).Find(&rows).Error; err != nil {
		return nil, "", err
	}
	next := ""
	if len(rows) > limit {
		rows = rows[:limit]
		last := rows[len(rows)-1]
		next = EncodeAuditCursor(last.CreatedAt, last.ID)
	}
	return rows, next, nil
}

// ExportAuditCSV streams matching rows as CSV. The window is capped at 31
// days to bound the result set.
func ExportAuditCSV(db *gorm.DB, query AuditQuery, out io.Writer) error {
	if query.From == nil || query.To == nil {
		return ValidationError("export requires from and to")
	}
	if query.To.Before(*query.From) {
		return ValidationError("export window end precedes start")
	}
	if query.To.Sub(*query.From) > auditExportMaxWindow {
		return ValidationError("export window must be 31 days or less")
	}

	writer := csv.NewWriter(out)
	header := []string{"id", "created_at", "actor_email", "actor_role", "action", "target_type", "target_id", "status", "request_id", "ip_address", "payload"}
	if err := writer.Write(header); err != nil {
		return err
	}

	var rows []models.AuditLog
	scope := query.apply(db.Model(&models.AuditLog{})).Order("created_at ASC").Order("id ASC")
	if err := scope.FindInBatches(&rows, auditCleanupBatchSize, func(tx *gorm.DB, batch int) error {
		for _, row := range rows {
			targetID := ""
			if row.TargetID != nil {
				targetID = *row.TargetID
			}
			ip := ""
			if row.IPAddress != nil {
				ip = *row.IPAddress
			}
			record := []string{
				row.ID.String(),
				row.CreatedAt.UTC().Format(time.RFC3339),
				row.ActorEmail,
				row.ActorRole,
				row.Action,
				row.TargetType,
				targetID,
				row.Status,
				row.RequestID,
				ip,
				string(row.Payload),
			}
			if err := writer.Write(record); err != nil {
				return err
			}
		}
		return nil
	}).Error; err != nil {
		return err
	}
	writer.Flush()
	return writer.Error()
}

// CleanupExpiredAuditLogs deletes rows past retention in batches of 1000
// until a batch comes back short, then audits the sweep as a terminal
// action.
func CleanupExpiredAuditLogs(db *gorm.DB, actor *models.User, requestID string) (int64, error) {
	now := time.Now().UTC()
	var deleted int64
	for {
		result := db.Where("id IN (?)",
			db.Model(&models.AuditLog{}).Select("id").Where("retention_until <= ?", now).Limit(auditCleanupBatchSize),
		).Delete(&models.AuditLog{})
		if result.Error != nil {
			return deleted, result.Error
		}
		deleted += result.RowsAffected
		if result.RowsAffected < auditCleanupBatchSize {
			break
		}
	}
	WriteAuditLog(db, AuditEntry{
		Actor:      actor,
		Action:     "audit.cleanup",
		TargetType: "audit_log",
		Status:     AuditStatusSuccess,
		Payload:    map[string]any{"deleted": deleted},
		RequestID:  requestID,
	})
	return deleted, nil
}
