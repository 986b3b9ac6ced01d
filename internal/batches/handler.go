package batches

import (
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/lms-live/backend/internal/middleware"
	"github.com/lms-live/backend/internal/models"
	"github.com/lms-live/backend/pkg/response"
)

// Handler handles batch HTTP endpoints.
type Handler struct {
	repo   *Repository
	logger *zap.Logger
}

// NewHandler creates a batches handler.
func NewHandler(repo *Repository, logger *zap.Logger) *Handler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Handler{repo: repo, logger: logger}
}

// CreateRequest is the body for POST /batches.
type CreateRequest struct {
	Title       string `json:"title" binding:"required"`
	Description string `json:"description"`
	StartDate   string `json:"start_date"` // YYYY-MM-DD
	EndDate     string `json:"end_date"`   // YYYY-MM-DD
}

// Create handles POST /batches. Moderator only (enforced by route middleware).
func (h *Handler) Create(c *gin.Context) {
	var req CreateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, "invalid request: "+err.Error())
		return
	}
	userID, _ := middleware.UserID(c)

	b := &models.Batch{Title: req.Title, Description: req.Description, CreatedBy: userID}
	for _, f := range []struct {
		raw string
		dst **time.Time
	}{{req.StartDate, &b.StartDate}, {req.EndDate, &b.EndDate}} {
		if f.raw == "" {
			continue
		}
		d, err := time.Parse("2006-01-02", f.raw)
		if err != nil {
			response.BadRequest(c, "dates must be YYYY-MM-DD")
			return
		}
		*f.dst = &d
	}

	if err := h.repo.Create(c.Request.Context(), b); err != nil {
		h.logger.Error("create batch failed", zap.Error(err))
		response.Internal(c, "failed to create batch")
		return
	}
	response.Created(c, b)
}

// GetByID handles GET /batches/:id.
func (h *Handler) GetByID(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		response.BadRequest(c, "invalid batch id")
		return
	}
	b, err := h.repo.GetByID(c.Request.Context(), id)
	if err != nil {
		response.NotFound(c, "batch not found")
		return
	}
	response.OK(c, b)
}

// EnrollRequest is the body for POST /batches/:id/enrollments.
type EnrollRequest struct {
	UserID uuid.UUID `json:"user_id" binding:"required"`
}

// Enroll handles POST /batches/:id/enrollments. Moderator only.
func (h *Handler) Enroll(c *gin.Context) {
	batchID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		response.BadRequest(c, "invalid batch id")
		return
	}
	var req EnrollRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, "user_id required")
		return
	}
	e, err := h.repo.Enroll(c.Request.Context(), batchID, req.UserID)
	if err != nil {
		h.logger.Error("enroll failed", zap.Error(err), zap.String("batch_id", batchID.String()))
		response.Internal(c, "failed to enroll user")
		return
	}
	response.Created(c, e)
}

// Unenroll handles DELETE /batches/:id/enrollments/:userID. Marks the
// enrollment inactive; recorded history stays.
func (h *Handler) Unenroll(c *gin.Context) {
	batchID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		response.BadRequest(c, "invalid batch id")
		return
	}
	userID, err := uuid.Parse(c.Param("userID"))
	if err != nil {
		response.BadRequest(c, "invalid user id")
		return
	}
	if err := h.repo.Unenroll(c.Request.Context(), batchID, userID); err != nil {
		response.Internal(c, "failed to unenroll user")
		return
	}
	response.NoContent(c)
}

// ListEnrollments handles GET /batches/:id/enrollments.
func (h *Handler) ListEnrollments(c *gin.Context) {
	batchID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		response.BadRequest(c, "invalid batch id")
		return
	}
	list, err := h.repo.ListEnrollments(c.Request.Context(), batchID)
	if err != nil {
		response.Internal(c, "failed to list enrollments")
		return
	}
	response.OK(c, list)
}

// AddInstructorRequest is the body for POST /batches/:id/instructors.
type AddInstructorRequest struct {
	UserID uuid.UUID `json:"user_id" binding:"required"`
}

// AddInstructor handles POST /batches/:id/instructors. Moderator only.
func (h *Handler) AddInstructor(c *gin.Context) {
	batchID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		response.BadRequest(c, "invalid batch id")
		return
	}
	var req AddInstructorRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, "user_id required")
		return
	}
	if err := h.repo.AddInstructor(c.Request.Context(), batchID, req.UserID); err != nil {
		response.Internal(c, "failed to add instructor")
		return
	}
	response.Created(c, gin.H{"batch_id": batchID, "user_id": req.UserID})
}
