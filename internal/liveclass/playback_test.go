package liveclass

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lms-live/backend/internal/models"
	"github.com/lms-live/backend/internal/zoom"
)

type fakeCohorts struct {
	enrolled    map[uuid.UUID]bool // userID -> enrolled in any batch
	instructors map[uuid.UUID]bool
	courseBatch map[uuid.UUID]uuid.UUID // courseID -> batchID
	lastBatchID uuid.UUID
}

func (f *fakeCohorts) IsEnrolled(_ context.Context, batchID, userID uuid.UUID) (bool, error) {
	f.lastBatchID = batchID
	return f.enrolled[userID], nil
}

func (f *fakeCohorts) IsInstructor(_ context.Context, _, userID uuid.UUID) (bool, error) {
	return f.instructors[userID], nil
}

func (f *fakeCohorts) BatchForCourse(_ context.Context, courseID uuid.UUID) (*models.Batch, error) {
	if id, ok := f.courseBatch[courseID]; ok {
		return &models.Batch{ID: id}, nil
	}
	return nil, nil
}

type fakeLessons struct {
	lessons map[uuid.UUID]*models.Lesson
}

func (f *fakeLessons) GetLesson(_ context.Context, id uuid.UUID) (*models.Lesson, error) {
	return f.lessons[id], nil
}

type fakeRecordingAPI struct {
	info  *zoom.RecordingInfo
	err   error
	calls int
}

func (f *fakeRecordingAPI) GetRecordingInfo(_ context.Context, _, _ string) (*zoom.RecordingInfo, error) {
	f.calls++
	if f.err != nil {
		return nil, f.err
	}
	return f.info, nil
}

func processedClass(batchID uuid.UUID, hostID uuid.UUID) *models.LiveClass {
	return &models.LiveClass{
		ID:                 uuid.New(),
		BatchID:            batchID,
		HostID:             hostID,
		MeetingID:          "987654321",
		RecordingProcessed: true,
		ZoomRecordingID:    "rec-1",
	}
}

func workingAPI() *fakeRecordingAPI {
	return &fakeRecordingAPI{info: &zoom.RecordingInfo{
		Passcode: "fresh-pass",
		Files: []models.RecordingFile{
			{ID: "f1", FileType: "MP4", RecordingType: "shared_screen_with_speaker_view", PlayURL: "https://zoom.example/play/f1", FileSize: 2048},
		},
	}}
}

func TestPlaybackEnrolledStudentAllowed(t *testing.T) {
	batchID := uuid.New()
	student := uuid.New()
	cohorts := &fakeCohorts{enrolled: map[uuid.UUID]bool{student: true}}
	api := workingAPI()
	auth := NewPlaybackAuthorizer(cohorts, &fakeLessons{}, api, nil)

	res, err := auth.Authorize(context.Background(), processedClass(batchID, uuid.New()), student, models.RoleStudent)
	require.NoError(t, err)
	assert.True(t, res.HasAccess)
	assert.Equal(t, "https://zoom.example/play/f1", res.PlayURL)
	assert.Equal(t, "fresh-pass", res.Passcode)
	assert.Equal(t, int64(2048), res.FileSize)
	assert.Equal(t, 1, api.calls, "grant always re-mints from the provider")
}

func TestPlaybackNonEnrolledDenied(t *testing.T) {
	cohorts := &fakeCohorts{}
	api := workingAPI()
	auth := NewPlaybackAuthorizer(cohorts, &fakeLessons{}, api, nil)

	res, err := auth.Authorize(context.Background(), processedClass(uuid.New(), uuid.New()), uuid.New(), models.RoleStudent)
	require.NoError(t, err)
	assert.False(t, res.HasAccess)
	assert.NotEmpty(t, res.Message)
	assert.Empty(t, res.PlayURL)
	assert.Zero(t, api.calls, "no provider call for denied requesters")
}

func TestPlaybackElevatedRolesBypassEnrollment(t *testing.T) {
	batchID := uuid.New()
	host := uuid.New()
	instructor := uuid.New()
	cohorts := &fakeCohorts{instructors: map[uuid.UUID]bool{instructor: true}}
	auth := NewPlaybackAuthorizer(cohorts, &fakeLessons{}, workingAPI(), nil)
	class := processedClass(batchID, host)

	for name, tc := range map[string]struct {
		userID uuid.UUID
		role   models.Role
	}{
		"moderator":  {uuid.New(), models.RoleModerator},
		"host":       {host, models.RoleInstructor},
		"instructor": {instructor, models.RoleInstructor},
	} {
		res, err := auth.Authorize(context.Background(), class, tc.userID, tc.role)
		require.NoError(t, err, name)
		assert.True(t, res.HasAccess, name)
	}
}

func TestPlaybackFallsBackToDirectBatchAfterLessonDeletion(t *testing.T) {
	directBatch := uuid.New()
	lessonID := uuid.New()
	student := uuid.New()

	// Lesson deleted: GetLesson returns nil, cohort must resolve via the
	// class's own batch link.
	cohorts := &fakeCohorts{enrolled: map[uuid.UUID]bool{student: true}}
	lessons := &fakeLessons{lessons: map[uuid.UUID]*models.Lesson{}}
	auth := NewPlaybackAuthorizer(cohorts, lessons, workingAPI(), nil)

	class := processedClass(directBatch, uuid.New())
	class.LessonID = &lessonID

	res, err := auth.Authorize(context.Background(), class, student, models.RoleStudent)
	require.NoError(t, err)
	assert.True(t, res.HasAccess)
	assert.Equal(t, directBatch, cohorts.lastBatchID, "membership checked against the direct batch")

	// Non-enrolled requester still denied after the fallback.
	res, err = auth.Authorize(context.Background(), class, uuid.New(), models.RoleStudent)
	require.NoError(t, err)
	assert.False(t, res.HasAccess)
}

func TestPlaybackResolvesCohortViaLessonWhenIntact(t *testing.T) {
	lessonBatch := uuid.New()
	lessonID := uuid.New()
	courseID := uuid.New()
	student := uuid.New()

	cohorts := &fakeCohorts{
		enrolled:    map[uuid.UUID]bool{student: true},
		courseBatch: map[uuid.UUID]uuid.UUID{courseID: lessonBatch},
	}
	lessons := &fakeLessons{lessons: map[uuid.UUID]*models.Lesson{
		lessonID: {ID: lessonID, CourseID: courseID},
	}}
	auth := NewPlaybackAuthorizer(cohorts, lessons, workingAPI(), nil)

	class := processedClass(uuid.New(), uuid.New())
	class.LessonID = &lessonID

	res, err := auth.Authorize(context.Background(), class, student, models.RoleStudent)
	require.NoError(t, err)
	assert.True(t, res.HasAccess)
	assert.Equal(t, lessonBatch, cohorts.lastBatchID, "membership checked against the lesson's course's batch")
}

func TestPlaybackUpstreamDeletionIsDistinctDenial(t *testing.T) {
	student := uuid.New()
	cohorts := &fakeCohorts{enrolled: map[uuid.UUID]bool{student: true}}
	api := &fakeRecordingAPI{err: zoom.ErrRecordingNotFound}
	auth := NewPlaybackAuthorizer(cohorts, &fakeLessons{}, api, nil)

	res, err := auth.Authorize(context.Background(), processedClass(uuid.New(), uuid.New()), student, models.RoleStudent)
	require.NoError(t, err)
	assert.False(t, res.HasAccess)
	assert.Equal(t, msgRecordingGone, res.Message)
	assert.NotEqual(t, msgNotAuthorized, res.Message, "upstream deletion is distinguishable from authorization denial")
}

func TestPlaybackUnknownClassIsGenericDenial(t *testing.T) {
	auth := NewPlaybackAuthorizer(&fakeCohorts{}, &fakeLessons{}, workingAPI(), nil)
	res, err := auth.Authorize(context.Background(), nil, uuid.New(), models.RoleStudent)
	require.NoError(t, err)
	assert.False(t, res.HasAccess)
	assert.Equal(t, msgNotAuthorized, res.Message)
}

func TestPlaybackUnprocessedRecordingDenied(t *testing.T) {
	student := uuid.New()
	cohorts := &fakeCohorts{enrolled: map[uuid.UUID]bool{student: true}}
	api := workingAPI()
	auth := NewPlaybackAuthorizer(cohorts, &fakeLessons{}, api, nil)

	class := processedClass(uuid.New(), uuid.New())
	class.RecordingProcessed = false

	res, err := auth.Authorize(context.Background(), class, student, models.RoleStudent)
	require.NoError(t, err)
	assert.False(t, res.HasAccess)
	assert.Equal(t, msgNotAvailable, res.Message)
	assert.Zero(t, api.calls)
}
