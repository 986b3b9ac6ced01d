// Package liveclass owns the live class records: scheduling (which creates
// the provider meeting), listing, and authorized recording playback.
package liveclass

import (
	"context"
	"errors"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/lms-live/backend/config"
	"github.com/lms-live/backend/internal/middleware"
	"github.com/lms-live/backend/internal/models"
	"github.com/lms-live/backend/internal/zoom"
	"github.com/lms-live/backend/pkg/response"
)

// ClassStore is the persistence surface the handler needs.
type ClassStore interface {
	Create(ctx context.Context, c *models.LiveClass) error
	GetByID(ctx context.Context, id uuid.UUID) (*models.LiveClass, error)
	ListByBatch(ctx context.Context, batchID uuid.UUID) ([]models.LiveClass, error)
	LatestProcessedByLesson(ctx context.Context, lessonID uuid.UUID) (*models.LiveClass, error)
}

// MeetingCreator creates the provider meeting when a class is scheduled.
type MeetingCreator interface {
	CreateMeeting(ctx context.Context, account string, req zoom.MeetingRequest) (*zoom.Meeting, error)
}

// ScheduleNotifier announces a newly scheduled class to the batch. Optional;
// failures are logged and never fail the request.
type ScheduleNotifier interface {
	ClassScheduled(ctx context.Context, class *models.LiveClass) error
}

// Handler handles live class HTTP endpoints.
type Handler struct {
	repo       ClassStore
	authorizer *PlaybackAuthorizer
	meetings   MeetingCreator
	notify     ScheduleNotifier
	zoomCfg    config.ZoomConfig
	logger     *zap.Logger
}

// NewHandler creates a live class handler.
func NewHandler(repo ClassStore, authorizer *PlaybackAuthorizer, meetings MeetingCreator, notify ScheduleNotifier, zoomCfg config.ZoomConfig, logger *zap.Logger) *Handler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Handler{repo: repo, authorizer: authorizer, meetings: meetings, notify: notify, zoomCfg: zoomCfg, logger: logger}
}

// CreateRequest is the body for POST /live-classes.
type CreateRequest struct {
	Title       string     `json:"title" binding:"required"`
	Description string     `json:"description"`
	BatchID     uuid.UUID  `json:"batch_id" binding:"required"`
	LessonID    *uuid.UUID `json:"lesson_id"`
	Date        string     `json:"date"`     // YYYY-MM-DD
	Time        string     `json:"time"`     // HH:MM
	Timezone    string     `json:"timezone"` // IANA name
	Duration    int        `json:"duration"` // minutes
	ZoomAccount string     `json:"zoom_account"`
}

// validateSchedule enforces that display-relevant scheduling fields are set
// together: a date without a time (or timezone) is not renderable.
func (r *CreateRequest) validateSchedule() (date *time.Time, clock, tz *string, dur *int, err error) {
	anySet := r.Date != "" || r.Time != "" || r.Timezone != ""
	if !anySet {
		if r.Duration > 0 {
			d := r.Duration
			dur = &d
		}
		return nil, nil, nil, dur, nil
	}
	if r.Date == "" || r.Time == "" || r.Timezone == "" {
		return nil, nil, nil, nil, errors.New("date, time and timezone must be provided together")
	}
	d, err := time.Parse("2006-01-02", r.Date)
	if err != nil {
		return nil, nil, nil, nil, errors.New("date must be YYYY-MM-DD")
	}
	if _, err := time.Parse("15:04", r.Time); err != nil {
		return nil, nil, nil, nil, errors.New("time must be HH:MM")
	}
	if _, err := time.LoadLocation(r.Timezone); err != nil {
		return nil, nil, nil, nil, errors.New("unknown timezone")
	}
	if r.Duration <= 0 {
		return nil, nil, nil, nil, errors.New("duration (minutes) required for a scheduled class")
	}
	clockV, tzV, durV := r.Time, r.Timezone, r.Duration
	return &d, &clockV, &tzV, &durV, nil
}

// Create handles POST /live-classes. Instructor or moderator only (enforced
// by route middleware). Creating a scheduled class creates the provider
// meeting as a side effect.
func (h *Handler) Create(c *gin.Context) {
	var req CreateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, "invalid request: "+err.Error())
		return
	}
	date, clock, tz, dur, err := req.validateSchedule()
	if err != nil {
		response.BadRequest(c, err.Error())
		return
	}
	hostID := c.MustGet(middleware.ContextUserID).(uuid.UUID)

	class := &models.LiveClass{
		Title:         req.Title,
		Description:   req.Description,
		BatchID:       req.BatchID,
		LessonID:      req.LessonID,
		HostID:        hostID,
		Date:          date,
		Time:          clock,
		Timezone:      tz,
		Duration:      dur,
		ZoomAccount:   req.ZoomAccount,
		AutoRecording: h.zoomCfg.DefaultAutoRecording,
	}

	if _, ok := h.zoomCfg.Account(req.ZoomAccount); ok && h.meetings != nil {
		meetingReq := zoom.MeetingRequest{
			Topic:         req.Title,
			DurationMin:   req.Duration,
			AutoRecording: h.zoomCfg.DefaultAutoRecording,
		}
		if date != nil {
			if start, err := scheduleStart(*date, *clock, *tz); err == nil {
				meetingReq.StartTime = start
				meetingReq.Timezone = *tz
			}
		}
		meeting, err := h.meetings.CreateMeeting(c.Request.Context(), req.ZoomAccount, meetingReq)
		if err != nil {
			h.logger.Error("create provider meeting failed", zap.Error(err), zap.String("title", req.Title))
			response.BadRequest(c, "failed to create provider meeting")
			return
		}
		class.MeetingID = meetingIDString(meeting.ID)
		class.MeetingUUID = meeting.UUID
		class.JoinURL = meeting.JoinURL
	}

	if err := h.repo.Create(c.Request.Context(), class); err != nil {
		h.logger.Error("create live class failed", zap.Error(err))
		response.Internal(c, "failed to create live class")
		return
	}

	if h.notify != nil {
		if err := h.notify.ClassScheduled(c.Request.Context(), class); err != nil {
			h.logger.Error("class scheduled notification failed", zap.Error(err), zap.String("live_class_id", class.ID.String()))
		}
	}
	response.Created(c, class)
}

// GetByID handles GET /live-classes/:id.
func (h *Handler) GetByID(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		response.BadRequest(c, "invalid live class id")
		return
	}
	class, err := h.repo.GetByID(c.Request.Context(), id)
	if err != nil || class == nil {
		response.NotFound(c, "live class not found")
		return
	}
	response.OK(c, class)
}

// ListByBatch handles GET /batches/:id/live-classes.
func (h *Handler) ListByBatch(c *gin.Context) {
	batchID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		response.BadRequest(c, "invalid batch id")
		return
	}
	list, err := h.repo.ListByBatch(c.Request.Context(), batchID)
	if err != nil {
		h.logger.Error("list live classes failed", zap.Error(err), zap.String("batch_id", batchID.String()))
		response.Internal(c, "failed to list live classes")
		return
	}
	response.OK(c, list)
}

// Playback handles GET /live-classes/:id/playback. The result is always a
// structured allow/deny body; unknown ids are indistinguishable from plain
// denials.
func (h *Handler) Playback(c *gin.Context) {
	userID := c.MustGet(middleware.ContextUserID).(uuid.UUID)
	role := models.Role(c.MustGet(middleware.ContextUserRole).(string))

	var class *models.LiveClass
	if id, err := uuid.Parse(c.Param("id")); err == nil {
		class, err = h.repo.GetByID(c.Request.Context(), id)
		if err != nil {
			h.logger.Error("load live class failed", zap.Error(err), zap.String("live_class_id", c.Param("id")))
			response.Internal(c, "failed to resolve playback")
			return
		}
	}

	result, err := h.authorizer.Authorize(c.Request.Context(), class, userID, role)
	if err != nil {
		h.logger.Error("playback authorization failed", zap.Error(err), zap.String("live_class_id", c.Param("id")))
		response.Internal(c, "failed to resolve playback")
		return
	}
	response.OK(c, result)
}

// LessonPlayback handles GET /lessons/:id/recording. A lesson may have been
// taught more than once; the most recently started processed class wins.
func (h *Handler) LessonPlayback(c *gin.Context) {
	userID := c.MustGet(middleware.ContextUserID).(uuid.UUID)
	role := models.Role(c.MustGet(middleware.ContextUserRole).(string))

	var class *models.LiveClass
	if lessonID, err := uuid.Parse(c.Param("id")); err == nil {
		class, err = h.repo.LatestProcessedByLesson(c.Request.Context(), lessonID)
		if err != nil {
			h.logger.Error("load lesson recording failed", zap.Error(err), zap.String("lesson_id", c.Param("id")))
			response.Internal(c, "failed to resolve playback")
			return
		}
	}

	result, err := h.authorizer.Authorize(c.Request.Context(), class, userID, role)
	if err != nil {
		h.logger.Error("lesson playback authorization failed", zap.Error(err), zap.String("lesson_id", c.Param("id")))
		response.Internal(c, "failed to resolve playback")
		return
	}
	response.OK(c, result)
}

// scheduleStart combines date, wall-clock time and timezone into a start instant.
func scheduleStart(date time.Time, clock, tz string) (time.Time, error) {
	loc, err := time.LoadLocation(tz)
	if err != nil {
		return time.Time{}, err
	}
	t, err := time.Parse("15:04", clock)
	if err != nil {
		return time.Time{}, err
	}
	return time.Date(date.Year(), date.Month(), date.Day(), t.Hour(), t.Minute(), 0, 0, loc), nil
}

func meetingIDString(id int64) string {
	if id == 0 {
		return ""
	}
	return strconv.FormatInt(id, 10)
}
