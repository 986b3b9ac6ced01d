package models

import (
	"time"

	"github.com/google/uuid"
)

// AutoRecording values for a live class meeting.
const (
	AutoRecordingCloud = "cloud"
	AutoRecordingLocal = "local"
	AutoRecordingNone  = "none"
)

// LiveClass is one scheduled live session of a batch. It is created when the
// session is scheduled (which creates the provider meeting) and is never
// deleted; recording fields are filled exactly once by the metadata resolver.
type LiveClass struct {
	ID          uuid.UUID  `json:"id"`
	Title       string     `json:"title"`
	Description string     `json:"description,omitempty"`
	BatchID     uuid.UUID  `json:"batch_id"`
	LessonID    *uuid.UUID `json:"lesson_id,omitempty"`
	HostID      uuid.UUID  `json:"host_id"`

	// Scheduling fields are nullable until set; date without time is invalid
	// for display but still persistable.
	Date     *time.Time `json:"date,omitempty"`
	Time     *string    `json:"time,omitempty"`
	Timezone *string    `json:"timezone,omitempty"`
	Duration *int       `json:"duration,omitempty"` // minutes

	// Provider meeting identity. MeetingUUID is the secondary correlation key;
	// it can change across provider reconnects.
	ZoomAccount string `json:"zoom_account,omitempty"`
	MeetingID   string `json:"meeting_id,omitempty"`
	MeetingUUID string `json:"meeting_uuid,omitempty"`
	JoinURL     string `json:"join_url,omitempty"`

	AutoRecording string `json:"auto_recording"`

	// Recording state. RecordingProcessed=true implies RecordingID, duration and
	// file size are set. RecordingURL is advisory only; playback always re-mints.
	RecordingProcessed   bool   `json:"recording_processed"`
	ZoomRecordingID      string `json:"zoom_recording_id,omitempty"`
	RecordingDuration    *int   `json:"recording_duration,omitempty"` // seconds
	RecordingFileSize    *int64 `json:"recording_file_size,omitempty"`
	RecordingPasscodeEnc []byte `json:"-"`
	RecordingURL         string `json:"recording_url,omitempty"`

	Attendees *int `json:"attendees,omitempty"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// HasSchedule reports whether the class carries a displayable schedule
// (date, time and timezone all set).
func (c *LiveClass) HasSchedule() bool {
	return c.Date != nil && c.Time != nil && c.Timezone != nil
}

// RecordingFile is one recording file descriptor from a provider
// completion notification.
type RecordingFile struct {
	ID             string    `json:"id"`
	FileType       string    `json:"file_type"`
	RecordingType  string    `json:"recording_type"`
	FileSize       int64     `json:"file_size"`
	PlayURL        string    `json:"play_url,omitempty"`
	DownloadURL    string    `json:"download_url,omitempty"`
	RecordingStart time.Time `json:"recording_start,omitempty"`
	RecordingEnd   time.Time `json:"recording_end,omitempty"`
}

// LiveClassParticipant is one attendee row synced from the provider's
// past-meeting participants API.
type LiveClassParticipant struct {
	ID          uuid.UUID  `json:"id"`
	LiveClassID uuid.UUID  `json:"live_class_id"`
	Email       string     `json:"email"`
	Name        string     `json:"name,omitempty"`
	JoinedAt    *time.Time `json:"joined_at,omitempty"`
	LeftAt      *time.Time `json:"left_at,omitempty"`
	Duration    int        `json:"duration"` // seconds
	CreatedAt   time.Time  `json:"created_at"`
}
