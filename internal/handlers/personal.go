package handlers

import (
	"errors"
	"strings"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
	"github.com/tdcon/workplatform/internal/models"
	"github.com/tdcon/workplatform/internal/services"
	"gorm.io/gorm"
)

var taskStatuses = []string{"todo", "in_progress", "done"}

// PersonalHandler covers the private workspace: projects, tasks and notes.
// Everything here is owner-scoped, no role sees anyone else's records.
type PersonalHandler struct {
	db *gorm.DB
}

func NewPersonalHandler(db *gorm.DB) *PersonalHandler {
	return &PersonalHandler{db: db}
}

func (h *PersonalHandler) ListProjects(c *fiber.Ctx) error {
	user, err := requireModule(c, h.db, services.ModulePersonal)
	if err != nil {
		return respondError(c, err)
	}
	var projects []models.Project
	if err := h.db.Where("owner_id = ?", user.ID).Order("created_at DESC").Find(&projects).Error; err != nil {
		return respondError(c, err)
	}
	return c.JSON(projects)
}

func (h *PersonalHandler) CreateProject(c *fiber.Ctx) error {
	user, err := requireModule(c, h.db, services.ModulePersonal)
	if err != nil {
		return respondError(c, err)
	}
	var req struct {
		Name        string `json:"name"`
		Description string `json:"description"`
	}
	if err := c.BodyParser(&req); err != nil {
		return respondError(c, services.ValidationError("invalid request body"))
	}
	if strings.TrimSpace(req.Name) == "" {
		return respondError(c, services.ValidationError("name is required"))
	}
	project := models.Project{
		OwnerID:     user.ID,
		Name:        strings.TrimSpace(req.Name),
		Description: req.Description,
	}
	if err := h.db.Create(&project).Error; err != nil {
		return respondError(c, err)
	}
	return c.Status(fiber.StatusCreated).JSON(project)
}

func (h *PersonalHandler) UpdateProject(c *fiber.Ctx) error {
	user, err := requireModule(c, h.db, services.ModulePersonal)
	if err != nil {
		return respondError(c, err)
	}
	id, err := parseUUIDParam(c, "id")
	if err != nil {
		return respondError(c, err)
	}
	var project models.Project
	if err := h.db.First(&project, "id = ? AND owner_id = ?", id, user.ID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return respondError(c, services.NotFoundError("project"))
		}
		return respondError(c, err)
	}
	var req struct {
		Name        *string `json:"name"`
		Description *string `json:"description"`
	}
	if err := c.BodyParser(&req); err != nil {
		return respondError(c, services.ValidationError("invalid request body"))
	}
	if req.Name != nil && strings.TrimSpace(*req.Name) != "" {
		project.Name = strings.TrimSpace(*req.Name)
	}
	if req.Description != nil {
		project.Description = *req.Description
	}
	if err := h.db.Save(&project).Error; err != nil {
		return respondError(c, err)
	}
	return c.JSON(project)
}

// DeleteProject detaches the project's tasks instead of deleting them.
func (h *PersonalHandler) DeleteProject(c *fiber.Ctx) error {
	user, err := requireModule(c, h.db, services.ModulePersonal)
	if err != nil {
		return respondError(c, err)
	}
	id, err := parseUUIDParam(c, "id")
	if err != nil {
		return respondError(c, err)
	}
	var project models.Project
	if err := h.db.First(&project, "id = ? AND owner_id = ?", id, user.ID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return respondError(c, services.NotFoundError("project"))
		}
		return respondError(c, err)
	}
	err = h.db.Transaction(func(tx *gorm.DB) error {
		if err := tx.Model(&models.Task{}).Where("project_id = ?", project.ID).
			Update("project_id", nil).Error; err != nil {
			return err
		}
		return tx.Delete(&project).Error
	})
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(fiber.Map{"ok": true})
}

func (h *PersonalHandler) ListTasks(c *fiber.Ctx) error {
	user, err := requireModule(c, h.db, services.ModulePersonal)
	if err != nil {
		return respondError(c, err)
	}
	query := h.db.Where("owner_id = ?", user.ID)
	if date, err := parseOptionalDate(c.Query("date"), "date"); err != nil {
		return respondError(c, err)
	} else if date != nil {
		query = query.Where("task_date = ?", *date)
	}
	if projectID := c.Query("project_id"); projectID != "" {
		parsed, err := uuid.Parse(projectID)
		if err != nil {
			return respondError(c, services.ValidationError("project_id must be a uuid"))
		}
		query = query.Where("project_id = ?", parsed)
	}
	var tasks []models.Task
	if err := query.Order("task_date DESC").Order("created_at DESC").Find(&tasks).Error; err != nil {
		return respondError(c, err)
	}
	return c.JSON(tasks)
}

func (h *PersonalHandler) CreateTask(c *fiber.Ctx) error {
	user, err := requireModule(c, h.db, services.ModulePersonal)
	if err != nil {
		return respondError(c, err)
	}
	var req struct {
		Title     string  `json:"title"`
		Details   string  `json:"details"`
		Status    string  `json:"status"`
		ProjectID *string `json:"project_id"`
		TaskDate  string  `json:"task_date"`
	}
	if err := c.BodyParser(&req); err != nil {
		return respondError(c, services.ValidationError("invalid request body"))
	}
	if strings.TrimSpace(req.Title) == "" {
		return respondError(c, services.ValidationError("title is required"))
	}
	taskDate, err := parseDate(req.TaskDate, "task_date")
	if err != nil {
		return respondError(c, err)
	}
	status := "todo"
	if req.Status != "" {
		status, err = normalizeTaskStatus(req.Status)
		if err != nil {
			return respondError(c, err)
		}
	}
	task := models.Task{
		OwnerID:  user.ID,
		Title:    strings.TrimSpace(req.Title),
		Details:  req.Details,
		Status:   status,
		TaskDate: taskDate,
	}
	if req.ProjectID != nil && *req.ProjectID != "" {
		projectID, err := h.resolveProject(user, *req.ProjectID)
		if err != nil {
			return respondError(c, err)
		}
		task.ProjectID = projectID
	}
	if err := h.db.Create(&task).Error; err != nil {
		return respondError(c, err)
	}
	return c.Status(fiber.StatusCreated).JSON(task)
}

func (h *PersonalHandler) UpdateTask(c *fiber.Ctx) error {
	user, err := requireModule(c, h.db, services.ModulePersonal)
	if err != nil {
		return respondError(c, err)
	}
	id, err := parseUUIDParam(c, "id")
	if err != nil {
		return respondError(c, err)
	}
	var task models.Task
	if err := h.db.First(&task, "id = ? AND owner_id = ?", id, user.ID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return respondError(c, services.NotFoundError("task"))
		}
		return respondError(c, err)
	}
	var req struct {
		Title     *string `json:"title"`
		Details   *string `json:"details"`
		Status    *string `json:"status"`
		ProjectID *string `json:"project_id"`
		TaskDate  *string `json:"task_date"`
	}
	if err := c.BodyParser(&req); err != nil {
		return respondError(c, services.ValidationError("invalid request body"))
	}
	if req.Title != nil && strings.TrimSpace(*req.Title) != "" {
		task.Title = strings.TrimSpace(*req.Title)
	}
	if req.Details != nil {
		task.Details = *req.Details
	}
	if req.Status != nil {
		status, err := normalizeTaskStatus(*req.Status)
		if err != nil {
			return respondError(c, err)
		}
		task.Status = status
	}
	if req.TaskDate != nil {
		taskDate, err := parseDate(*req.TaskDate, "task_date")
		if err != nil {
			return respondError(c, err)
		}
		task.TaskDate = taskDate
	}
	if req.ProjectID != nil {
		if *req.ProjectID == "" {
			task.ProjectID = nil
		} else {
			projectID, err := h.resolveProject(user, *req.ProjectID)
			if err != nil {
				return respondError(c, err)
			}
			task.ProjectID = projectID
		}
	}
	if err := h.db.Save(&task).Error; err != nil {
		return respondError(c, err)
	}
	return c.JSON(task)
}

func (h *PersonalHandler) DeleteTask(c *fiber.Ctx) error {
	return h.deleteOwned(c, "task", &models.Task{})
}

func (h *PersonalHandler) ListNotes(c *fiber.Ctx) error {
	user, err := requireModule(c, h.db, services.ModulePersonal)
	if err != nil {
		return respondError(c, err)
	}
	query := h.db.Where("owner_id = ?", user.ID)
	if date, err := parseOptionalDate(c.Query("date"), "date"); err != nil {
		return respondError(c, err)
	} else if date != nil {
		query = query.Where("note_date = ?", *date)
	}
	var notes []models.Note
	if err := query.Order("note_date DESC").Order("created_at DESC").Find(&notes).Error; err != nil {
		return respondError(c, err)
	}
	return c.JSON(notes)
}

func (h *PersonalHandler) CreateNote(c *fiber.Ctx) error {
	user, err := requireModule(c, h.db, services.ModulePersonal)
	if err != nil {
		return respondError(c, err)
	}
	var req struct {
		Title    string `json:"title"`
		Content  string `json:"content"`
		NoteDate string `json:"note_date"`
	}
	if err := c.BodyParser(&req); err != nil {
		return respondError(c, services.ValidationError("invalid request body"))
	}
	if strings.TrimSpace(req.Title) == "" {
		return respondError(c, services.ValidationError("title is required"))
	}
	noteDate, err := parseDate(req.NoteDate, "note_date")
	if err != nil {
		return respondError(c, err)
	}
	note := models.Note{
		OwnerID:  user.ID,
		Title:    strings.TrimSpace(req.Title),
		Content:  req.Content,
		NoteDate: noteDate,
	}
	if err := h.db.Create(&note).Error; err != nil {
		return respondError(c, err)
	}
	return c.Status(fiber.StatusCreated).JSON(note)
}

func (h *PersonalHandler) UpdateNote(c *fiber.Ctx) error {
	user, err := requireModule(c, h.db, services.ModulePersonal)
	if err != nil {
		return respondError(c, err)
	}
	id, err := parseUUIDParam(c, "id")
	if err != nil {
		return respondError(c, err)
	}
	var note models.Note
	if err := h.db.First(&note, "id = ? AND owner_id = ?", id, user.ID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return respondError(c, services.NotFoundError("note"))
		}
		return respondError(c, err)
	}
	var req struct {
		Title    *string `json:"title"`
		Content  *string `json:"content"`
		NoteDate *string `json:"note_date"`
	}
	if err := c.BodyParser(&req); err != nil {
		return respondError(c, services.ValidationError("invalid request body"))
	}
	if req.Title != nil && strings.TrimSpace(*req.Title) != "" {
		note.Title = strings.TrimSpace(*req.Title)
	}
	if req.Content != nil {
		note.Content = *req.Content
	}
	if req.NoteDate != nil {
		noteDate, err := parseDate(*req.NoteDate, "note_date")
		if err != nil {
			return respondError(c, err)
		}
		note.NoteDate = noteDate
	}
	if err := h.db.Save(&note).Error; err != nil {
		return respondError(c, err)
	}
	return c.JSON(note)
}

func (h *PersonalHandler) DeleteNote(c *fiber.Ctx) error {
	return h.deleteOwned(c, "note", &models.Note{})
}

// deleteOwned deletes a single owner-scoped row by id param.
func (h *PersonalHandler) deleteOwned(c *fiber.Ctx, what string, model any) error {
	user, err := requireModule(c, h.db, services.ModulePersonal)
	if err != nil {
		return respondError(c, err)
	}
	id, err := parseUUIDParam(c, "id")
	if err != nil {
		return respondError(c, err)
	}
	result := h.db.Where("id = ? AND owner_id = ?", id, user.ID).Delete(model)
	if result.Error != nil {
		return respondError(c, result.Error)
	}
	if result.RowsAffected == 0 {
		return respondError(c, services.NotFoundError(what))
	}
	return c.JSON(fiber.Map{"ok": true})
}

func (h *PersonalHandler) resolveProject(user *models.User, raw string) (*uuid.UUID, error) {
	parsed, err := uuid.Parse(raw)
	if err != nil {
		return nil, services.ValidationError("project_id must be a uuid")
	}
	var project models.Project
	if err := h.db.First(&project, "id = ? AND owner_id = ?", parsed, user.ID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, services.NotFoundError("project")
		}
		return nil, err
	}
	return &parsed, nil
}

func normalizeTaskStatus(value string) (string, error) {
	normalized := strings.ToLower(strings.TrimSpace(value))
	for _, status := range taskStatuses {
		if normalized == status {
			return normalized, nil
		}
	}
	return "", services.ValidationError("status must be one of todo, in_progress, done")
}

