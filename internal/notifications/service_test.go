package notifications

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lms-live/backend/internal/batches"
	"github.com/lms-live/backend/internal/models"
	"github.com/lms-live/backend/pkg/queue"
)

type fakeMembers struct {
	members []batches.Member
	err     error
}

func (f *fakeMembers) ListMembers(_ context.Context, _ uuid.UUID) ([]batches.Member, error) {
	return f.members, f.err
}

type fakeUsers struct {
	users map[uuid.UUID]*models.User
	err   error
}

func (f *fakeUsers) GetByID(_ context.Context, id uuid.UUID) (*models.User, error) {
	if f.err != nil {
		return nil, f.err
	}
	return f.users[id], nil
}

type fakeNotificationStore struct {
	created []models.Notification
	failFor uuid.UUID
}

func (f *fakeNotificationStore) Create(_ context.Context, n *models.Notification) error {
	if n.UserID == f.failFor {
		return errors.New("insert failed")
	}
	f.created = append(f.created, *n)
	return nil
}

type fakeEmailQueue struct {
	payloads []queue.EmailPayload
	failFor  string
}

func (f *fakeEmailQueue) EnqueueEmail(_ context.Context, p queue.EmailPayload) error {
	if p.RecipientEmail == f.failFor {
		return errors.New("enqueue failed")
	}
	f.payloads = append(f.payloads, p)
	return nil
}

type fakeClassLister struct {
	classes []models.LiveClass
}

func (f *fakeClassLister) ListScheduledOn(_ context.Context, _ string) ([]models.LiveClass, error) {
	return f.classes, nil
}

func TestRecordingReadyFansOutToAllMembers(t *testing.T) {
	a, b, host := uuid.New(), uuid.New(), uuid.New()
	members := &fakeMembers{members: []batches.Member{
		{UserID: a, Email: "a@example.com", Name: "A"},
		{UserID: b, Email: "b@example.com", Name: "B"},
	}}
	users := &fakeUsers{users: map[uuid.UUID]*models.User{
		host: {ID: host, Email: "host@example.com", FullName: "Host"},
	}}
	store := &fakeNotificationStore{}
	emails := &fakeEmailQueue{}
	svc := NewService(members, users, store, emails, &fakeClassLister{}, nil)

	class := &models.LiveClass{ID: uuid.New(), BatchID: uuid.New(), HostID: host, Title: "Week 3: Goroutines"}
	require.NoError(t, svc.RecordingReady(context.Background(), class))

	require.Len(t, store.created, 3, "both members plus the unenrolled host")
	assert.Equal(t, "Recording available: Week 3: Goroutines", store.created[0].Subject)
	assert.Equal(t, class.ID.String(), store.created[0].RefID)
	assert.Equal(t, host, store.created[2].UserID)
	require.Len(t, emails.payloads, 3)
	assert.Equal(t, "recording_ready", emails.payloads[0].EmailType)
	assert.Equal(t, "host@example.com", emails.payloads[2].RecipientEmail)
}

func TestFanOutDoesNotDuplicateEnrolledHost(t *testing.T) {
	host := uuid.New()
	members := &fakeMembers{members: []batches.Member{
		{UserID: host, Email: "host@example.com", Name: "Host"},
	}}
	users := &fakeUsers{users: map[uuid.UUID]*models.User{
		host: {ID: host, Email: "host@example.com", FullName: "Host"},
	}}
	store := &fakeNotificationStore{}
	emails := &fakeEmailQueue{}
	svc := NewService(members, users, store, emails, &fakeClassLister{}, nil)

	class := &models.LiveClass{ID: uuid.New(), BatchID: uuid.New(), HostID: host, Title: "T"}
	require.NoError(t, svc.RecordingReady(context.Background(), class))
	assert.Len(t, store.created, 1)
	assert.Len(t, emails.payloads, 1)
}

func TestFanOutProceedsWhenHostLookupFails(t *testing.T) {
	a := uuid.New()
	members := &fakeMembers{members: []batches.Member{{UserID: a, Email: "a@example.com"}}}
	users := &fakeUsers{err: errors.New("db down")}
	store := &fakeNotificationStore{}
	emails := &fakeEmailQueue{}
	svc := NewService(members, users, store, emails, &fakeClassLister{}, nil)

	class := &models.LiveClass{ID: uuid.New(), BatchID: uuid.New(), HostID: uuid.New(), Title: "T"}
	require.NoError(t, svc.RecordingReady(context.Background(), class), "host lookup failure never aborts the member fan-out")
	assert.Len(t, store.created, 1)
	assert.Len(t, emails.payloads, 1)
}

func TestFanOutSkipsFailingRecipients(t *testing.T) {
	a, b, c := uuid.New(), uuid.New(), uuid.New()
	members := &fakeMembers{members: []batches.Member{
		{UserID: a, Email: "a@example.com"},
		{UserID: b, Email: "bad@example.com"},
		{UserID: c, Email: "c@example.com"},
	}}
	store := &fakeNotificationStore{failFor: a}
	emails := &fakeEmailQueue{failFor: "bad@example.com"}
	svc := NewService(members, &fakeUsers{}, store, emails, &fakeClassLister{}, nil)

	class := &models.LiveClass{ID: uuid.New(), BatchID: uuid.New(), Title: "T"}
	require.NoError(t, svc.RecordingReady(context.Background(), class), "per-recipient failures never abort")
	assert.Len(t, store.created, 2)
	assert.Len(t, emails.payloads, 2)
}

func TestFanOutSkipsEmaillessMembers(t *testing.T) {
	a := uuid.New()
	members := &fakeMembers{members: []batches.Member{{UserID: a, Email: ""}}}
	store := &fakeNotificationStore{}
	emails := &fakeEmailQueue{}
	svc := NewService(members, &fakeUsers{}, store, emails, &fakeClassLister{}, nil)

	class := &models.LiveClass{ID: uuid.New(), BatchID: uuid.New(), Title: "T"}
	require.NoError(t, svc.RecordingReady(context.Background(), class))
	assert.Len(t, store.created, 1, "in-app notification still lands")
	assert.Empty(t, emails.payloads)
}

func TestRemindTodayCoversEveryScheduledClass(t *testing.T) {
	a := uuid.New()
	members := &fakeMembers{members: []batches.Member{{UserID: a, Email: "a@example.com"}}}
	store := &fakeNotificationStore{}
	emails := &fakeEmailQueue{}
	classes := &fakeClassLister{classes: []models.LiveClass{
		{ID: uuid.New(), BatchID: uuid.New(), Title: "Morning"},
		{ID: uuid.New(), BatchID: uuid.New(), Title: "Evening", JoinURL: "https://zoom.example/j/1"},
	}}
	svc := NewService(members, &fakeUsers{}, store, emails, classes, nil)

	require.NoError(t, svc.RemindToday(context.Background(), time.Date(2026, 3, 10, 6, 0, 0, 0, time.UTC)))
	require.Len(t, emails.payloads, 2)
	assert.Equal(t, "class_reminder", emails.payloads[0].EmailType)
	assert.Contains(t, emails.payloads[1].BodyHTML, "https://zoom.example/j/1")
}

func TestFanOutEscapesTitleInBody(t *testing.T) {
	a := uuid.New()
	members := &fakeMembers{members: []batches.Member{{UserID: a, Email: "a@example.com"}}}
	emails := &fakeEmailQueue{}
	svc := NewService(members, &fakeUsers{}, &fakeNotificationStore{}, emails, &fakeClassLister{}, nil)

	class := &models.LiveClass{ID: uuid.New(), BatchID: uuid.New(), Title: `<script>alert(1)</script>`}
	require.NoError(t, svc.RecordingReady(context.Background(), class))
	require.Len(t, emails.payloads, 1)
	assert.NotContains(t, emails.payloads[0].BodyHTML, "<script>")
}
