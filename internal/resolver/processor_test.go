package resolver

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lms-live/backend/internal/liveclass"
	"github.com/lms-live/backend/internal/models"
	"github.com/lms-live/backend/pkg/crypto"
	"github.com/lms-live/backend/pkg/queue"
)

type fakeClassStore struct {
	mu      sync.Mutex
	class   *models.LiveClass
	applied []liveclass.RecordingMetadata
}

func (f *fakeClassStore) GetByMeetingID(_ context.Context, meetingID string) (*models.LiveClass, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.class != nil && f.class.MeetingID == meetingID {
		snap := *f.class
		return &snap, nil
	}
	return nil, nil
}

func (f *fakeClassStore) GetByMeetingUUID(_ context.Context, meetingUUID string) (*models.LiveClass, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.class != nil && f.class.MeetingUUID == meetingUUID {
		snap := *f.class
		return &snap, nil
	}
	return nil, nil
}

// MarkProcessed mirrors the conditional UPDATE: only one caller flips the flag.
func (f *fakeClassStore) MarkProcessed(_ context.Context, id uuid.UUID, m liveclass.RecordingMetadata) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.class == nil || f.class.ID != id || f.class.RecordingProcessed {
		return false, nil
	}
	f.class.RecordingProcessed = true
	f.class.ZoomRecordingID = m.ZoomRecordingID
	f.class.RecordingURL = m.PlayURL
	f.applied = append(f.applied, m)
	return true, nil
}

type fakePasscodeAPI struct {
	mu       sync.Mutex
	passcode string
	err      error
	calls    int
}

func (f *fakePasscodeAPI) GetRecordingPasscode(_ context.Context, _, _ string) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls++
	if f.err != nil {
		return "", f.err
	}
	return f.passcode, nil
}

type fakeNotifier struct {
	mu    sync.Mutex
	calls int
	err   error
}

func (f *fakeNotifier) RecordingReady(_ context.Context, _ *models.LiveClass) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls++
	return f.err
}

func testBox(t *testing.T) *crypto.SecretBox {
	t.Helper()
	box, err := crypto.NewSecretBox(make([]byte, 32))
	require.NoError(t, err)
	return box
}

func recordingJob(t *testing.T, p queue.RecordingProcessPayload) *queue.Job {
	t.Helper()
	raw, err := json.Marshal(p)
	require.NoError(t, err)
	return &queue.Job{ID: uuid.New().String(), Type: queue.JobTypeRecordingProcess, Payload: raw}
}

func basePayload() queue.RecordingProcessPayload {
	start := time.Date(2026, 3, 10, 9, 0, 0, 0, time.UTC)
	return queue.RecordingProcessPayload{
		MeetingID:   "112233445",
		MeetingUUID: "abc+def==",
		StartTime:   start,
		EndTime:     start.Add(45 * time.Minute),
		Files: []models.RecordingFile{
			{ID: "chat-1", FileType: "CHAT"},
			{ID: "mp4-gallery", FileType: "MP4", RecordingType: "gallery_view", PlayURL: "https://zoom.example/g", FileSize: 100},
			{ID: "mp4-speaker", FileType: "MP4", RecordingType: "shared_screen_with_speaker_view", PlayURL: "https://zoom.example/s", FileSize: 4096},
		},
	}
}

func TestProcessResolvesMetadata(t *testing.T) {
	store := &fakeClassStore{class: &models.LiveClass{ID: uuid.New(), MeetingID: "112233445"}}
	api := &fakePasscodeAPI{passcode: "hunter2"}
	notifier := &fakeNotifier{}
	box := testBox(t)
	p := NewProcessor(store, api, box, notifier, nil)

	err := p.Process(context.Background(), recordingJob(t, basePayload()))
	require.NoError(t, err)

	require.Len(t, store.applied, 1)
	m := store.applied[0]
	assert.Equal(t, "mp4-speaker", m.ZoomRecordingID, "speaker view wins over gallery")
	assert.Equal(t, 45*60, m.Duration)
	assert.Equal(t, int64(4096), m.FileSize)
	assert.Equal(t, "https://zoom.example/s", m.PlayURL)
	assert.True(t, store.class.RecordingProcessed)
	assert.Equal(t, 1, notifier.calls)

	plain, err := box.Open(m.PasscodeEnc)
	require.NoError(t, err)
	assert.Equal(t, "hunter2", plain)
}

func TestProcessDuplicateDeliveryIsNoop(t *testing.T) {
	store := &fakeClassStore{class: &models.LiveClass{ID: uuid.New(), MeetingID: "112233445"}}
	api := &fakePasscodeAPI{passcode: "hunter2"}
	notifier := &fakeNotifier{}
	p := NewProcessor(store, api, testBox(t), notifier, nil)

	require.NoError(t, p.Process(context.Background(), recordingJob(t, basePayload())))
	require.NoError(t, p.Process(context.Background(), recordingJob(t, basePayload())))
	require.NoError(t, p.Process(context.Background(), recordingJob(t, basePayload())))

	assert.Len(t, store.applied, 1, "metadata written exactly once")
	assert.Equal(t, 1, api.calls, "duplicates skip the passcode fetch")
	assert.Equal(t, 1, notifier.calls, "one notification per recording")
}

func TestProcessConcurrentDuplicatesWriteOnce(t *testing.T) {
	store := &fakeClassStore{class: &models.LiveClass{ID: uuid.New(), MeetingID: "112233445"}}
	api := &fakePasscodeAPI{passcode: "hunter2"}
	notifier := &fakeNotifier{}
	p := NewProcessor(store, api, testBox(t), notifier, nil)

	var wg sync.WaitGroup
	errs := make([]error, 8)
	for i := range errs {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			errs[i] = p.Process(context.Background(), recordingJob(t, basePayload()))
		}(i)
	}
	wg.Wait()

	for _, err := range errs {
		require.NoError(t, err)
	}
	assert.Len(t, store.applied, 1, "conditional update admits exactly one writer")
}

func TestProcessPasscodeFailureLeavesUnprocessed(t *testing.T) {
	store := &fakeClassStore{class: &models.LiveClass{ID: uuid.New(), MeetingID: "112233445"}}
	api := &fakePasscodeAPI{err: errors.New("zoom is down")}
	p := NewProcessor(store, api, testBox(t), &fakeNotifier{}, nil)

	err := p.Process(context.Background(), recordingJob(t, basePayload()))
	require.Error(t, err, "mid-job failure must surface for retry")
	assert.False(t, store.class.RecordingProcessed, "no premature processed flag")
	assert.Empty(t, store.applied)

	// The retry after the outage succeeds end to end.
	api.err = nil
	api.passcode = "hunter2"
	require.NoError(t, p.Process(context.Background(), recordingJob(t, basePayload())))
	assert.True(t, store.class.RecordingProcessed)
	assert.Len(t, store.applied, 1)
}

func TestProcessUnmatchedMeetingDropsJob(t *testing.T) {
	store := &fakeClassStore{class: &models.LiveClass{ID: uuid.New(), MeetingID: "999999999"}}
	api := &fakePasscodeAPI{passcode: "unused"}
	p := NewProcessor(store, api, testBox(t), &fakeNotifier{}, nil)

	err := p.Process(context.Background(), recordingJob(t, basePayload()))
	require.NoError(t, err, "ad-hoc meetings finish without retry")
	assert.Zero(t, api.calls)
	assert.False(t, store.class.RecordingProcessed)
}

func TestProcessFallsBackToMeetingUUID(t *testing.T) {
	store := &fakeClassStore{class: &models.LiveClass{ID: uuid.New(), MeetingID: "555", MeetingUUID: "abc+def=="}}
	api := &fakePasscodeAPI{passcode: "hunter2"}
	p := NewProcessor(store, api, testBox(t), &fakeNotifier{}, nil)

	require.NoError(t, p.Process(context.Background(), recordingJob(t, basePayload())))
	assert.True(t, store.class.RecordingProcessed, "UUID correlates when the numeric ID misses")
}

func TestProcessNoPlayableFileDropsJob(t *testing.T) {
	store := &fakeClassStore{class: &models.LiveClass{ID: uuid.New(), MeetingID: "112233445"}}
	api := &fakePasscodeAPI{passcode: "unused"}
	p := NewProcessor(store, api, testBox(t), &fakeNotifier{}, nil)

	payload := basePayload()
	payload.Files = []models.RecordingFile{{ID: "chat-1", FileType: "CHAT"}, {ID: "audio-1", FileType: "M4A"}}

	require.NoError(t, p.Process(context.Background(), recordingJob(t, payload)))
	assert.False(t, store.class.RecordingProcessed, "a class without a playable file stays unprocessed")
	assert.Zero(t, api.calls)
}

func TestProcessNotifierFailureDoesNotRollBack(t *testing.T) {
	store := &fakeClassStore{class: &models.LiveClass{ID: uuid.New(), MeetingID: "112233445"}}
	p := NewProcessor(store, &fakePasscodeAPI{passcode: "x"}, testBox(t), &fakeNotifier{err: errors.New("smtp refused")}, nil)

	require.NoError(t, p.Process(context.Background(), recordingJob(t, basePayload())), "notification is best effort")
	assert.True(t, store.class.RecordingProcessed)
}

func TestProcessRejectsWrongJobType(t *testing.T) {
	p := NewProcessor(&fakeClassStore{}, &fakePasscodeAPI{}, testBox(t), nil, nil)
	err := p.Process(context.Background(), &queue.Job{Type: queue.JobTypeEmail, Payload: []byte(`{}`)})
	require.Error(t, err)
}
