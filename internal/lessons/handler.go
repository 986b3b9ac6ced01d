package lessons

import (
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/lms-live/backend/internal/models"
	"github.com/lms-live/backend/pkg/response"
)

// Handler handles course and lesson HTTP endpoints.
type Handler struct {
	repo   *Repository
	logger *zap.Logger
}

// NewHandler creates a lessons handler.
func NewHandler(repo *Repository, logger *zap.Logger) *Handler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Handler{repo: repo, logger: logger}
}

// CreateCourseRequest is the body for POST /courses.
type CreateCourseRequest struct {
	Title   string    `json:"title" binding:"required"`
	BatchID uuid.UUID `json:"batch_id" binding:"required"`
}

// CreateCourse handles POST /courses. Moderator or instructor only.
func (h *Handler) CreateCourse(c *gin.Context) {
	var req CreateCourseRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, "invalid request: "+err.Error())
		return
	}
	course := &models.Course{Title: req.Title, BatchID: req.BatchID}
	if err := h.repo.CreateCourse(c.Request.Context(), course); err != nil {
		h.logger.Error("create course failed", zap.Error(err))
		response.Internal(c, "failed to create course")
		return
	}
	response.Created(c, course)
}

// CreateLessonRequest is the body for POST /lessons.
type CreateLessonRequest struct {
	Title    string    `json:"title" binding:"required"`
	CourseID uuid.UUID `json:"course_id" binding:"required"`
}

// CreateLesson handles POST /lessons. Moderator or instructor only.
func (h *Handler) CreateLesson(c *gin.Context) {
	var req CreateLessonRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, "invalid request: "+err.Error())
		return
	}
	lesson := &models.Lesson{Title: req.Title, CourseID: req.CourseID}
	if err := h.repo.CreateLesson(c.Request.Context(), lesson); err != nil {
		h.logger.Error("create lesson failed", zap.Error(err))
		response.Internal(c, "failed to create lesson")
		return
	}
	response.Created(c, lesson)
}

// GetLesson handles GET /lessons/:id.
func (h *Handler) GetLesson(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		response.BadRequest(c, "invalid lesson id")
		return
	}
	lesson, err := h.repo.GetLesson(c.Request.Context(), id)
	if err != nil {
		response.Internal(c, "failed to load lesson")
		return
	}
	if lesson == nil {
		response.NotFound(c, "lesson not found")
		return
	}
	response.OK(c, lesson)
}

// DeleteLesson handles DELETE /lessons/:id. Live classes linked to the lesson
// keep their reference; playback falls back to the batch link.
func (h *Handler) DeleteLesson(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		response.BadRequest(c, "invalid lesson id")
		return
	}
	if err := h.repo.DeleteLesson(c.Request.Context(), id); err != nil {
		response.Internal(c, "failed to delete lesson")
		return
	}
	response.NoContent(c)
}
