package zoom

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lms-live/backend/internal/models"
)

func TestSelectRecordingFilePrefersSpeakerView(t *testing.T) {
	files := []models.RecordingFile{
		{ID: "a", FileType: "MP4", RecordingType: "gallery_view"},
		{ID: "b", FileType: "MP4", RecordingType: "shared_screen_with_speaker_view"},
		{ID: "c", FileType: "CHAT"},
	}

	got := SelectRecordingFile(files)
	require.NotNil(t, got)
	assert.Equal(t, "b", got.ID)

	// Same result regardless of input order.
	reversed := []models.RecordingFile{files[2], files[1], files[0]}
	got = SelectRecordingFile(reversed)
	require.NotNil(t, got)
	assert.Equal(t, "b", got.ID)
}

func TestSelectRecordingFileFallsBackToFirstMP4(t *testing.T) {
	files := []models.RecordingFile{
		{ID: "x", FileType: "M4A", RecordingType: "audio_only"},
		{ID: "y", FileType: "MP4", RecordingType: "gallery_view"},
		{ID: "z", FileType: "MP4", RecordingType: "speaker_view"},
	}

	got := SelectRecordingFile(files)
	require.NotNil(t, got)
	assert.Equal(t, "y", got.ID, "first MP4 in provider order wins")
}

func TestSelectRecordingFileNoMP4(t *testing.T) {
	files := []models.RecordingFile{
		{ID: "x", FileType: "M4A"},
		{ID: "c", FileType: "CHAT"},
	}
	assert.Nil(t, SelectRecordingFile(files))
	assert.Nil(t, SelectRecordingFile(nil))
}
