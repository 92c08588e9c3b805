package handlers

import (
	"errors"
	"strings"

	"github.com/gofiber/fiber/v2"
	"github.com/tdcon/workplatform/internal/models"
	"github.com/tdcon/workplatform/internal/services"
	"gorm.io/gorm"
)

var notificationCategories = []string{"info", "reminder", "warning"}

// WorkHandler covers the shared work module: personal notifications and the
// knowledge base.
type WorkHandler struct {
	db *gorm.DB
}

func NewWorkHandler(db *gorm.DB) *WorkHandler {
	return &WorkHandler{db: db}
}

func (h *WorkHandler) ListNotifications(c *fiber.Ctx) error {
	user, err := requireModule(c, h.db, services.ModuleWork)
	if err != nil {
		return respondError(c, err)
	}
	var notifications []models.Notification
	if err := h.db.Where("owner_id = ?", user.ID).
		Order("is_read ASC").Order("created_at DESC").Find(&notifications).Error; err != nil {
		return respondError(c, err)
	}
	return c.JSON(notifications)
}

func (h *WorkHandler) CreateNotification(c *fiber.Ctx) error {
	user, err := requireModule(c, h.db, services.ModuleWork)
	if err != nil {
		return respondError(c, err)
	}
	var req struct {
		Title    string `json:"title"`
		Message  string `json:"message"`
		Category string `json:"category"`
		DueDate  string `json:"due_date"`
	}
	if err := c.BodyParser(&req); err != nil {
		return respondError(c, services.ValidationError("invalid request body"))
	}
	if strings.TrimSpace(req.Title) == "" {
		return respondError(c, services.ValidationError("title is required"))
	}
	category := "info"
	if req.Category != "" {
		category = strings.ToLower(strings.TrimSpace(req.Category))
		valid := false
		for _, known := range notificationCategories {
			if category == known {
				valid = true
				break
			}
		}
		if !valid {
			return respondError(c, services.ValidationError("category must be one of info, reminder, warning"))
		}
	}
	dueDate, err := parseOptionalDate(req.DueDate, "due_date")
	if err != nil {
		return respondError(c, err)
	}
	notification := models.Notification{
		OwnerID:  user.ID,
		Title:    strings.TrimSpace(req.Title),
		Message:  req.Message,
		Category: category,
		DueDate:  dueDate,
	}
	if err := h.db.Create(&notification).Error; err != nil {
		return respondError(c, err)
	}
	return c.Status(fiber.StatusCreated).JSON(notification)
}

func (h *WorkHandler) MarkNotificationRead(c *fiber.Ctx) error {
	user, err := requireModule(c, h.db, services.ModuleWork)
	if err != nil {
		return respondError(c, err)
	}
	id, err := parseUUIDParam(c, "id")
	if err != nil {
		return respondError(c, err)
	}
	var notification models.Notification
	if err := h.db.First(&notification, "id = ? AND owner_id = ?", id, user.ID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return respondError(c, services.NotFoundError("notification"))
		}
		return respondError(c, err)
	}
	// an empty body means "mark read"
	var req struct {
		IsRead *bool `json:"is_read"`
	}
	if len(c.Body()) > 0 {
		if err := c.BodyParser(&req); err != nil {
			return respondError(c, services.ValidationError("invalid request body"))
		}
	}
	notification.IsRead = true
	if req.IsRead != nil {
		notification.IsRead = *req.IsRead
	}
	if err := h.db.Save(&notification).Error; err != nil {
		return respondError(c, err)
	}
	return c.JSON(notification)
}

func (h *WorkHandler) DeleteNotification(c *fiber.Ctx) error {
	user, err := requireModule(c, h.db, services.ModuleWork)
	if err != nil {
		return respondError(c, err)
	}
	id, err := parseUUIDParam(c, "id")
	if err != nil {
		return respondError(c, err)
	}
	result := h.db.Where("id = ? AND owner_id = ?", id, user.ID).Delete(&models.Notification{})
	if result.Error != nil {
		return respondError(c, result.Error)
	}
	if result.RowsAffected == 0 {
		return respondError(c, services.NotFoundError("notification"))
	}
	return c.JSON(fiber.Map{"ok": true})
}

// normalizeTags trims, drops empties and deduplicates case-insensitively,
// keeping first-seen casing.
func normalizeTags(raw []string) string {
	seen := make(map[string]bool, len(raw))
	out := make([]string, 0, len(raw))
	for _, tag := range raw {
		tag = strings.TrimSpace(tag)
		if tag == "" {
			continue
		}
		key := strings.ToLower(tag)
		if seen[key] {
			continue
		}
		seen[key] = true
		out = append(out, tag)
	}
	return strings.Join(out, ",")
}

func splitTags(raw string) []string {
	if raw == "" {
		return []string{}
	}
	return strings.Split(raw, ",")
}

func articleView(article *models.KnowledgeArticle) fiber.Map {
	return fiber.Map{
		"id":         article.ID,
		"owner_id":   article.OwnerID,
		"title":      article.Title,
		"summary":    article.Summary,
		"content":    article.Content,
		"tags":       splitTags(article.Tags),
		"created_at": article.CreatedAt,
		"updated_at": article.UpdatedAt,
	}
}

// ListArticles is shared reading: every role with the work module sees the
// whole knowledge base, with optional q/tag filtering.
func (h *WorkHandler) ListArticles(c *fiber.Ctx) error {
	if _, err := requireModule(c, h.db, services.ModuleWork); err != nil {
		return respondError(c, err)
	}
	query := h.db.Order("updated_at DESC")
	if q := strings.TrimSpace(c.Query("q")); q != "" {
		pattern := "%" + strings.ToLower(q) + "%"
		query = query.Where("LOWER(title) LIKE ? OR LOWER(summary) LIKE ? OR LOWER(content) LIKE ?",
			pattern, pattern, pattern)
	}
	if tag := strings.TrimSpace(c.Query("tag")); tag != "" {
		query = query.Where("LOWER(tags) LIKE ?", "%"+strings.ToLower(tag)+"%")
	}
	var articles []models.KnowledgeArticle
	if err := query.Find(&articles).Error; err != nil {
		return respondError(c, err)
	}
	out := make([]fiber.Map, 0, len(articles))
	for i := range articles {
		out = append(out, articleView(&articles[i]))
	}
	return c.JSON(out)
}

func (h *WorkHandler) CreateArticle(c *fiber.Ctx) error {
	user, err := requireModule(c, h.db, services.ModuleWork)
	if err != nil {
		return respondError(c, err)
	}
	var req struct {
		Title   string   `json:"title"`
		Summary string   `json:"summary"`
		Content string   `json:"content"`
		Tags    []string `json:"tags"`
	}
	if err := c.BodyParser(&req); err != nil {
		return respondError(c, services.ValidationError("invalid request body"))
	}
	if strings.TrimSpace(req.Title) == "" {
		return respondError(c, services.ValidationError("title is required"))
	}
	article := models.KnowledgeArticle{
		OwnerID: user.ID,
		Title:   strings.TrimSpace(req.Title),
		Summary: req.Summary,
		Content: req.Content,
		Tags:    normalizeTags(req.Tags),
	}
	if err := h.db.Create(&article).Error; err != nil {
		return respondError(c, err)
	}
	return c.Status(fiber.StatusCreated).JSON(articleView(&article))
}

// loadArticle enforces write access: authors edit their own articles,
// admins edit any.
func (h *WorkHandler) loadArticle(c *fiber.Ctx, user *models.User) (*models.KnowledgeArticle, error) {
	id, err := parseUUIDParam(c, "id")
	if err != nil {
		return nil, err
	}
	var article models.KnowledgeArticle
	if err := h.db.First(&article, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, services.NotFoundError("article")
		}
		return nil, err
	}
	if article.OwnerID != user.ID && user.Role != services.RoleAdmin {
		return nil, services.ForbiddenError("only the author or an admin can modify this article")
	}
	return &article, nil
}

func (h *WorkHandler) UpdateArticle(c *fiber.Ctx) error {
	user, err := requireModule(c, h.db, services.ModuleWork)
	if err != nil {
		return respondError(c, err)
	}
	article, err := h.loadArticle(c, user)
	if err != nil {
		return respondError(c, err)
	}
	var req struct {
		Title   *string   `json:"title"`
		Summary *string   `json:"summary"`
		Content *string   `json:"content"`
		Tags    *[]string `json:"tags"`
	}
	if err := c.BodyParser(&req); err != nil {
		return respondError(c, services.ValidationError("invalid request body"))
	}
	if req.Title != nil && strings.TrimSpace(*req.Title) != "" {
		article.Title = strings.TrimSpace(*req.Title)
	}
	if req.Summary != nil {
		article.Summary = *req.Summary
	}
	if req.Content != nil {
		article.Content = *req.Content
	}
	if req.Tags != nil {
		article.Tags = normalizeTags(*req.Tags)
	}
	if err := h.db.Save(article).Error; err != nil {
		return respondError(c, err)
	}
	return c.JSON(articleView(article))
}

func (h *WorkHandler) DeleteArticle(c *fiber.Ctx) error {
	user, err := requireModule(c, h.db, services.ModuleWork)
	if err != nil {
		return respondError(c, err)
	}
	article, err := h.loadArticle(c, user)
	if err != nil {
		return respondError(c, err)
	}
	if err := h.db.Delete(article).Error; err != nil {
		return respondError(c, err)
	}
	return c.JSON(fiber.Map{"ok": true})
}
