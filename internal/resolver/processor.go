package resolver

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/lms-live/backend/internal/liveclass"
	"github.com/lms-live/backend/internal/models"
	"github.com/lms-live/backend/internal/zoom"
	"github.com/lms-live/backend/pkg/crypto"
	"github.com/lms-live/backend/pkg/queue"
)

// ClassStore is the live-class persistence the resolver needs.
type ClassStore interface {
	GetByMeetingID(ctx context.Context, meetingID string) (*models.LiveClass, error)
	GetByMeetingUUID(ctx context.Context, meetingUUID string) (*models.LiveClass, error)
	MarkProcessed(ctx context.Context, id uuid.UUID, m liveclass.RecordingMetadata) (bool, error)
}

// PasscodeAPI fetches the recording passcode from the provider.
type PasscodeAPI interface {
	GetRecordingPasscode(ctx context.Context, account, meetingID string) (string, error)
}

// Notifier announces a newly available recording. Failures are logged and
// never roll back the processed state.
type Notifier interface {
	RecordingReady(ctx context.Context, class *models.LiveClass) error
}

// Processor resolves recording-completion jobs: correlate the notification to
// a live class, pick the playable file, fetch and encrypt the passcode, then
// persist everything behind the single processed transition.
type Processor struct {
	classes  ClassStore
	zoom     PasscodeAPI
	box      *crypto.SecretBox
	notifier Notifier
	logger   *zap.Logger
}

// NewProcessor creates a recording metadata processor.
func NewProcessor(classes ClassStore, api PasscodeAPI, box *crypto.SecretBox, notifier Notifier, logger *zap.Logger) *Processor {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Processor{classes: classes, zoom: api, box: box, notifier: notifier, logger: logger}
}

// Process executes one recording metadata job. A nil return means the job is
// finished for good; an error means it should be retried. Jobs that cannot
// ever succeed (no matching class, no playable file) finish without error.
func (p *Processor) Process(ctx context.Context, job *queue.Job) error {
	if job.Type != queue.JobTypeRecordingProcess {
		return fmt.Errorf("unknown job type: %s", job.Type)
	}
	var payload queue.RecordingProcessPayload
	if err := json.Unmarshal(job.Payload, &payload); err != nil {
		return fmt.Errorf("unmarshal payload: %w", err)
	}

	class, err := p.lookup(ctx, payload)
	if err != nil {
		return fmt.Errorf("lookup class: %w", err)
	}
	if class == nil {
		// Not every meeting on the account is a class; ad-hoc meetings
		// terminate here.
		p.logger.Info("no class for meeting, dropping job",
			zap.String("meeting_id", payload.MeetingID),
			zap.String("meeting_uuid", payload.MeetingUUID))
		return nil
	}

	file := zoom.SelectRecordingFile(payload.Files)
	if file == nil {
		p.logger.Info("no playable MP4 in notification, dropping job",
			zap.String("class_id", class.ID.String()),
			zap.Int("files", len(payload.Files)))
		return nil
	}

	if class.RecordingProcessed {
		if class.ZoomRecordingID != file.ID {
			p.logger.Warn("duplicate notification carries a different recording, keeping first",
				zap.String("class_id", class.ID.String()),
				zap.String("stored", class.ZoomRecordingID),
				zap.String("incoming", file.ID))
		} else {
			p.logger.Info("recording already processed",
				zap.String("class_id", class.ID.String()))
		}
		return nil
	}

	// The passcode is not in the webhook payload; it takes a separate call.
	// Failing here leaves the class unprocessed so the retry redoes the
	// whole job.
	passcode, err := p.zoom.GetRecordingPasscode(ctx, class.ZoomAccount, class.MeetingID)
	if err != nil {
		return fmt.Errorf("fetch passcode: %w", err)
	}
	sealed, err := p.box.Seal(passcode)
	if err != nil {
		return fmt.Errorf("encrypt passcode: %w", err)
	}

	duration := 0
	if !payload.EndTime.IsZero() && payload.EndTime.After(payload.StartTime) {
		duration = int(payload.EndTime.Sub(payload.StartTime).Seconds())
	}

	updated, err := p.classes.MarkProcessed(ctx, class.ID, liveclass.RecordingMetadata{
		ZoomRecordingID: file.ID,
		Duration:        duration,
		FileSize:        file.FileSize,
		PasscodeEnc:     sealed,
		PlayURL:         file.PlayURL,
	})
	if err != nil {
		return fmt.Errorf("persist metadata: %w", err)
	}
	if !updated {
		// A concurrent duplicate got there first.
		p.logger.Info("recording processed by a concurrent job",
			zap.String("class_id", class.ID.String()))
		return nil
	}

	p.logger.Info("recording metadata resolved",
		zap.String("class_id", class.ID.String()),
		zap.String("recording_id", file.ID),
		zap.Int("duration_sec", duration))

	if p.notifier != nil {
		if err := p.notifier.RecordingReady(ctx, class); err != nil {
			p.logger.Error("recording notification failed",
				zap.Error(err), zap.String("class_id", class.ID.String()))
		}
	}
	return nil
}

// lookup correlates the notification to a class by numeric meeting ID, then
// by meeting UUID. UUIDs rotate across restarts of the same meeting, so the
// numeric ID wins when both match.
func (p *Processor) lookup(ctx context.Context, payload queue.RecordingProcessPayload) (*models.LiveClass, error) {
	if payload.MeetingID != "" {
		class, err := p.classes.GetByMeetingID(ctx, payload.MeetingID)
		if err != nil || class != nil {
			return class, err
		}
	}
	if payload.MeetingUUID != "" {
		return p.classes.GetByMeetingUUID(ctx, payload.MeetingUUID)
	}
	return nil, nil
}
