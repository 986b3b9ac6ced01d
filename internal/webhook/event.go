package webhook

import (
	"encoding/json"
	"errors"
	"time"

	"github.com/lms-live/backend/internal/models"
)

// Provider webhook event kinds handled by the receiver.
const (
	EventURLValidation      = "endpoint.url_validation"
	EventRecordingCompleted = "recording.completed"
)

// Signature and timestamp headers sent with authenticated events.
const (
	HeaderSignature = "x-zm-signature"
	HeaderTimestamp = "x-zm-request-timestamp"
)

var errIncompleteEvent = errors.New("incomplete event payload")

// Envelope is the top-level webhook request shape.
type Envelope struct {
	Event   string          `json:"event"`
	EventTS int64           `json:"event_ts,omitempty"`
	Payload json.RawMessage `json:"payload"`
}

// ValidationPayload is the payload of an endpoint.url_validation event.
type ValidationPayload struct {
	PlainToken string `json:"plainToken"`
}

// ValidationResponse is the exact response body for a validation challenge.
// The caller rejects wrapped or string-encoded bodies, so these two fields at
// the top level are a hard compatibility requirement.
type ValidationResponse struct {
	PlainToken     string `json:"plainToken"`
	EncryptedToken string `json:"encryptedToken"`
}

// RecordingCompletedPayload is the payload of a recording.completed event.
type RecordingCompletedPayload struct {
	AccountID string          `json:"account_id"`
	Object    RecordingObject `json:"object"`
}

// RecordingObject carries the meeting correlation keys and file descriptors.
// The meeting ID (not a global event id) is the correlation key: the provider
// resends notifications under fresh event ids.
type RecordingObject struct {
	ID             json.Number            `json:"id"`
	UUID           string                 `json:"uuid"`
	Topic          string                 `json:"topic"`
	HostEmail      string                 `json:"host_email,omitempty"`
	StartTime      time.Time              `json:"start_time"`
	EndTime        time.Time              `json:"end_time"`
	Duration       int                    `json:"duration"` // minutes, advisory
	RecordingFiles []models.RecordingFile `json:"recording_files"`
}

// validate rejects notifications missing the fields the resolver needs.
func (p *RecordingCompletedPayload) validate() error {
	if p.Object.ID.String() == "" && p.Object.UUID == "" {
		return errIncompleteEvent
	}
	if len(p.Object.RecordingFiles) == 0 {
		return errIncompleteEvent
	}
	return nil
}

// end returns the notification's end timestamp, deriving it from the advisory
// duration when the provider omits end_time.
func (o *RecordingObject) end() time.Time {
	if !o.EndTime.IsZero() {
		return o.EndTime
	}
	if !o.StartTime.IsZero() && o.Duration > 0 {
		return o.StartTime.Add(time.Duration(o.Duration) * time.Minute)
	}
	return o.EndTime
}
