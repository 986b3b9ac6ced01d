package liveclass

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/lms-live/backend/internal/models"
	"github.com/lms-live/backend/internal/zoom"
)

// Denial messages. The unauthorized message is deliberately generic: callers
// must not learn whether the class exists or has a recording.
const (
	msgNotAuthorized = "You are not authorized to view this recording"
	msgNotAvailable  = "The recording for this class is not available yet"
	msgRecordingGone = "The recording for this class is no longer available"
)

// PlaybackResult is the structured outcome of a playback request. Denials are
// results, never errors.
type PlaybackResult struct {
	HasAccess bool   `json:"has_access"`
	Message   string `json:"message,omitempty"`
	PlayURL   string `json:"play_url,omitempty"`
	Passcode  string `json:"passcode,omitempty"`
	FileSize  int64  `json:"file_size,omitempty"`
}

func deny(msg string) PlaybackResult {
	return PlaybackResult{HasAccess: false, Message: msg}
}

// CohortStore resolves cohort membership for authorization.
type CohortStore interface {
	IsEnrolled(ctx context.Context, batchID, userID uuid.UUID) (bool, error)
	IsInstructor(ctx context.Context, batchID, userID uuid.UUID) (bool, error)
	BatchForCourse(ctx context.Context, courseID uuid.UUID) (*models.Batch, error)
}

// LessonStore resolves content-unit links. GetLesson returns nil for severed links.
type LessonStore interface {
	GetLesson(ctx context.Context, id uuid.UUID) (*models.Lesson, error)
}

// RecordingAPI fetches live playback state from the provider.
type RecordingAPI interface {
	GetRecordingInfo(ctx context.Context, account, meetingID string) (*zoom.RecordingInfo, error)
}

// PlaybackAuthorizer re-validates the requester and mints a fresh playback
// reference. The persisted recording_url/passcode are advisory only: the
// provider's validity window (~24h) is shorter than any sane cache lifetime,
// so every grant queries the provider live.
type PlaybackAuthorizer struct {
	cohorts CohortStore
	lessons LessonStore
	zoom    RecordingAPI
	logger  *zap.Logger
}

// NewPlaybackAuthorizer creates a playback authorizer.
func NewPlaybackAuthorizer(cohorts CohortStore, lessons LessonStore, api RecordingAPI, logger *zap.Logger) *PlaybackAuthorizer {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &PlaybackAuthorizer{cohorts: cohorts, lessons: lessons, zoom: api, logger: logger}
}

// Authorize returns an access grant or a structured denial for the requester.
// class may be nil (unknown id); that is indistinguishable from a plain denial.
func (a *PlaybackAuthorizer) Authorize(ctx context.Context, class *models.LiveClass, userID uuid.UUID, role models.Role) (PlaybackResult, error) {
	if class == nil {
		return deny(msgNotAuthorized), nil
	}

	batchID, err := a.resolveBatch(ctx, class)
	if err != nil {
		return PlaybackResult{}, err
	}

	allowed, err := a.allowed(ctx, class, batchID, userID, role)
	if err != nil {
		return PlaybackResult{}, err
	}
	if !allowed {
		return deny(msgNotAuthorized), nil
	}

	if !class.RecordingProcessed || class.MeetingID == "" {
		return deny(msgNotAvailable), nil
	}

	info, err := a.zoom.GetRecordingInfo(ctx, class.ZoomAccount, class.MeetingID)
	if err != nil {
		if errors.Is(err, zoom.ErrRecordingNotFound) || errors.Is(err, zoom.ErrMeetingNotFound) {
			// Deleted upstream: a distinct denial, not a generic error.
			return deny(msgRecordingGone), nil
		}
		return PlaybackResult{}, err
	}
	file := zoom.SelectRecordingFile(info.Files)
	if file == nil {
		return deny(msgRecordingGone), nil
	}

	return PlaybackResult{
		HasAccess: true,
		PlayURL:   file.PlayURL,
		Passcode:  info.Passcode,
		FileSize:  file.FileSize,
	}, nil
}

// resolveBatch finds the cohort that governs access: the lesson's course's
// batch when the lesson link is intact, else the class's direct batch. Content
// edits may sever the lesson link at any time, so the fallback is mandatory.
func (a *PlaybackAuthorizer) resolveBatch(ctx context.Context, class *models.LiveClass) (uuid.UUID, error) {
	if class.LessonID != nil {
		lesson, err := a.lessons.GetLesson(ctx, *class.LessonID)
		if err != nil {
			return uuid.Nil, err
		}
		if lesson != nil {
			batch, err := a.cohorts.BatchForCourse(ctx, lesson.CourseID)
			if err != nil {
				return uuid.Nil, err
			}
			if batch != nil {
				return batch.ID, nil
			}
		}
		a.logger.Debug("lesson link severed, using direct batch",
			zap.String("live_class_id", class.ID.String()))
	}
	return class.BatchID, nil
}

func (a *PlaybackAuthorizer) allowed(ctx context.Context, class *models.LiveClass, batchID, userID uuid.UUID, role models.Role) (bool, error) {
	if role == models.RoleModerator || class.HostID == userID {
		return true, nil
	}
	if ok, err := a.cohorts.IsInstructor(ctx, batchID, userID); err != nil {
		return false, err
	} else if ok {
		return true, nil
	}
	return a.cohorts.IsEnrolled(ctx, batchID, userID)
}
