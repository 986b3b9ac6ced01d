package notifications

import (
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/lms-live/backend/internal/middleware"
	"github.com/lms-live/backend/pkg/response"
)

// Handler handles notification HTTP endpoints.
type Handler struct {
	repo *Repository
	svc  *Service
}

// NewHandler creates a notifications handler.
func NewHandler(repo *Repository, svc *Service) *Handler {
	return &Handler{repo: repo, svc: svc}
}

// List handles GET /notifications. Returns the caller's notifications.
func (h *Handler) List(c *gin.Context) {
	userID, ok := middleware.UserID(c)
	if !ok {
		response.Unauthorized(c, "authentication required")
		return
	}
	limit, _ := strconv.Atoi(c.DefaultQuery("limit", "50"))
	list, err := h.repo.ListByUser(c.Request.Context(), userID, limit)
	if err != nil {
		response.Internal(c, "failed to load notifications")
		return
	}
	response.OK(c, list)
}

// MarkRead handles POST /notifications/:id/read.
func (h *Handler) MarkRead(c *gin.Context) {
	userID, ok := middleware.UserID(c)
	if !ok {
		response.Unauthorized(c, "authentication required")
		return
	}
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		response.BadRequest(c, "invalid notification id")
		return
	}
	if err := h.repo.MarkRead(c.Request.Context(), id, userID); err != nil {
		response.Internal(c, "failed to update notification")
		return
	}
	response.OK(c, gin.H{"read": true})
}

// SendReminders handles POST /reminders. Moderator only. Fans reminder
// emails out for every class scheduled today; the worker also runs this
// daily, the endpoint exists for manual re-sends.
func (h *Handler) SendReminders(c *gin.Context) {
	if err := h.svc.RemindToday(c.Request.Context(), time.Now()); err != nil {
		response.Internal(c, "failed to send reminders")
		return
	}
	response.OK(c, gin.H{"status": "sent"})
}
