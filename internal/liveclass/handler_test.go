package liveclass

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lms-live/backend/config"
	"github.com/lms-live/backend/internal/middleware"
	"github.com/lms-live/backend/internal/models"
)

type fakeClassStore struct {
	classes  map[uuid.UUID]*models.LiveClass
	byLesson map[uuid.UUID]*models.LiveClass
	err      error
}

func (f *fakeClassStore) Create(_ context.Context, c *models.LiveClass) error {
	if f.err != nil {
		return f.err
	}
	c.ID = uuid.New()
	return nil
}

func (f *fakeClassStore) GetByID(_ context.Context, id uuid.UUID) (*models.LiveClass, error) {
	if f.err != nil {
		return nil, f.err
	}
	return f.classes[id], nil
}

func (f *fakeClassStore) ListByBatch(_ context.Context, _ uuid.UUID) ([]models.LiveClass, error) {
	return nil, f.err
}

func (f *fakeClassStore) LatestProcessedByLesson(_ context.Context, lessonID uuid.UUID) (*models.LiveClass, error) {
	if f.err != nil {
		return nil, f.err
	}
	return f.byLesson[lessonID], nil
}

func newPlaybackRouter(store ClassStore, userID uuid.UUID, role models.Role) *gin.Engine {
	gin.SetMode(gin.TestMode)
	auth := NewPlaybackAuthorizer(&fakeCohorts{enrolled: map[uuid.UUID]bool{userID: true}}, &fakeLessons{}, workingAPI(), nil)
	h := NewHandler(store, auth, nil, nil, config.ZoomConfig{}, nil)
	r := gin.New()
	r.Use(func(c *gin.Context) {
		c.Set(middleware.ContextUserID, userID)
		c.Set(middleware.ContextUserRole, string(role))
	})
	r.GET("/live-classes/:id/playback", h.Playback)
	r.GET("/lessons/:id/recording", h.LessonPlayback)
	return r
}

func get(r *gin.Engine, path string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodGet, path, nil)
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func TestPlaybackEndpointGrantsEnrolledStudent(t *testing.T) {
	student := uuid.New()
	class := processedClass(uuid.New(), uuid.New())
	store := &fakeClassStore{classes: map[uuid.UUID]*models.LiveClass{class.ID: class}}
	r := newPlaybackRouter(store, student, models.RoleStudent)

	w := get(r, "/live-classes/"+class.ID.String()+"/playback")
	require.Equal(t, http.StatusOK, w.Code)

	var body struct {
		Data PlaybackResult `json:"data"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	assert.True(t, body.Data.HasAccess)
	assert.NotEmpty(t, body.Data.PlayURL)
}

func TestPlaybackEndpointUnknownClassIsDenialNotError(t *testing.T) {
	r := newPlaybackRouter(&fakeClassStore{}, uuid.New(), models.RoleStudent)

	w := get(r, "/live-classes/"+uuid.NewString()+"/playback")
	require.Equal(t, http.StatusOK, w.Code)

	var body struct {
		Data PlaybackResult `json:"data"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	assert.False(t, body.Data.HasAccess)
	assert.Equal(t, msgNotAuthorized, body.Data.Message)
}

func TestPlaybackEndpointStorageFailureIsServerError(t *testing.T) {
	store := &fakeClassStore{err: errors.New("connection refused")}
	r := newPlaybackRouter(store, uuid.New(), models.RoleStudent)

	w := get(r, "/live-classes/"+uuid.NewString()+"/playback")
	assert.Equal(t, http.StatusInternalServerError, w.Code, "storage outage must not masquerade as a denial")
	assert.NotContains(t, w.Body.String(), "has_access")
}

func TestLessonPlaybackServesLatestProcessedClass(t *testing.T) {
	student := uuid.New()
	lessonID := uuid.New()
	class := processedClass(uuid.New(), uuid.New())
	store := &fakeClassStore{byLesson: map[uuid.UUID]*models.LiveClass{lessonID: class}}
	r := newPlaybackRouter(store, student, models.RoleStudent)

	w := get(r, "/lessons/"+lessonID.String()+"/recording")
	require.Equal(t, http.StatusOK, w.Code)

	var body struct {
		Data PlaybackResult `json:"data"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	assert.True(t, body.Data.HasAccess)
}

func TestLessonPlaybackStorageFailureIsServerError(t *testing.T) {
	store := &fakeClassStore{err: errors.New("connection refused")}
	r := newPlaybackRouter(store, uuid.New(), models.RoleStudent)

	w := get(r, "/lessons/"+uuid.NewString()+"/recording")
	assert.Equal(t, http.StatusInternalServerError, w.Code)
}
