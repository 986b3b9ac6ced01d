package attendance

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/lms-live/backend/internal/models"
	"github.com/lms-live/backend/internal/zoom"
	"github.com/lms-live/backend/pkg/queue"
)

// ClassStore is the live-class persistence the syncer needs.
type ClassStore interface {
	GetByID(ctx context.Context, id uuid.UUID) (*models.LiveClass, error)
	UpdateAttendees(ctx context.Context, id uuid.UUID, count int) error
}

// ParticipantAPI fetches past-meeting participants from the provider.
type ParticipantAPI interface {
	GetPastMeetingParticipants(ctx context.Context, account, meetingUUID string) ([]zoom.Participant, error)
}

// ParticipantStore persists the synced snapshot.
type ParticipantStore interface {
	Replace(ctx context.Context, classID uuid.UUID, participants []models.LiveClassParticipant) error
}

// Syncer processes attendance sync jobs: pull the provider's participant
// report for a finished class and store it, counting distinct attendees.
type Syncer struct {
	classes ClassStore
	zoom    ParticipantAPI
	store   ParticipantStore
	logger  *zap.Logger
}

// NewSyncer creates an attendance syncer.
func NewSyncer(classes ClassStore, api ParticipantAPI, store ParticipantStore, logger *zap.Logger) *Syncer {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Syncer{classes: classes, zoom: api, store: store, logger: logger}
}

// Process executes one attendance sync job.
func (s *Syncer) Process(ctx context.Context, job *queue.Job) error {
	if job.Type != queue.JobTypeAttendanceSync {
		return fmt.Errorf("unknown job type: %s", job.Type)
	}
	var payload queue.AttendanceSyncPayload
	if err := json.Unmarshal(job.Payload, &payload); err != nil {
		return fmt.Errorf("unmarshal payload: %w", err)
	}

	class, err := s.classes.GetByID(ctx, payload.LiveClassID)
	if err != nil {
		return fmt.Errorf("load class: %w", err)
	}
	if class == nil || class.MeetingUUID == "" {
		s.logger.Info("class has no past meeting to sync, dropping job",
			zap.String("live_class_id", payload.LiveClassID.String()))
		return nil
	}

	participants, err := s.zoom.GetPastMeetingParticipants(ctx, class.ZoomAccount, class.MeetingUUID)
	if err != nil {
		if errors.Is(err, zoom.ErrMeetingNotFound) {
			s.logger.Warn("past meeting not found upstream, dropping job",
				zap.String("live_class_id", class.ID.String()),
				zap.String("meeting_uuid", class.MeetingUUID))
			return nil
		}
		return fmt.Errorf("fetch participants: %w", err)
	}

	rows := make([]models.LiveClassParticipant, 0, len(participants))
	distinct := make(map[string]struct{})
	for _, p := range participants {
		rows = append(rows, models.LiveClassParticipant{
			LiveClassID: class.ID,
			Email:       p.UserEmail,
			Name:        p.Name,
			JoinedAt:    p.JoinTime,
			LeftAt:      p.LeaveTime,
			Duration:    p.Duration,
		})
		key := p.UserEmail
		if key == "" {
			// Unauthenticated joiners have no email; count them by name.
			key = "name:" + p.Name
		}
		distinct[key] = struct{}{}
	}

	if err := s.store.Replace(ctx, class.ID, rows); err != nil {
		return fmt.Errorf("store participants: %w", err)
	}
	if err := s.classes.UpdateAttendees(ctx, class.ID, len(distinct)); err != nil {
		return fmt.Errorf("update attendee count: %w", err)
	}

	s.logger.Info("attendance synced",
		zap.String("live_class_id", class.ID.String()),
		zap.Int("participants", len(rows)),
		zap.Int("attendees", len(distinct)))
	return nil
}
