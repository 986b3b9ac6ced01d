package zoom

import "github.com/lms-live/backend/internal/models"

// recordingTypeSpeakerView is the composed screen-plus-speaker variant,
// preferred over gallery or audio-only files.
const recordingTypeSpeakerView = "shared_screen_with_speaker_view"

// SelectRecordingFile picks the playable file from a notification's
// candidates: MP4 only, preferring the shared-screen-with-speaker view, else
// the first MP4 in provider order. The tie-break is deterministic so replayed
// notifications always select the same file. Returns nil when no MP4 exists.
func SelectRecordingFile(files []models.RecordingFile) *models.RecordingFile {
	var first *models.RecordingFile
	for i := range files {
		f := &files[i]
		if f.FileType != "MP4" {
			continue
		}
		if f.RecordingType == recordingTypeSpeakerView {
			return f
		}
		if first == nil {
			first = f
		}
	}
	return first
}
