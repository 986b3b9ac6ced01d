package notifications

import (
	"context"
	"fmt"
	"html"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/lms-live/backend/internal/batches"
	"github.com/lms-live/backend/internal/models"
	"github.com/lms-live/backend/pkg/queue"
)

// MemberLister resolves the recipients of a batch.
type MemberLister interface {
	ListMembers(ctx context.Context, batchID uuid.UUID) ([]batches.Member, error)
}

// OwnerLookup resolves the class host to a deliverable recipient.
type OwnerLookup interface {
	GetByID(ctx context.Context, id uuid.UUID) (*models.User, error)
}

// NotificationStore persists in-app notification rows.
type NotificationStore interface {
	Create(ctx context.Context, n *models.Notification) error
}

// EmailEnqueuer hands email jobs to the worker queue.
type EmailEnqueuer interface {
	EnqueueEmail(ctx context.Context, payload queue.EmailPayload) error
}

// ClassLister returns classes scheduled on a day, for reminders.
type ClassLister interface {
	ListScheduledOn(ctx context.Context, day string) ([]models.LiveClass, error)
}

// Service fans a live-class event out to every batch member plus the class
// host: one in-app notification row plus one queued email each. Per-recipient
// failures are logged and skipped so one bad address never blocks the rest.
type Service struct {
	members MemberLister
	users   OwnerLookup
	store   NotificationStore
	emails  EmailEnqueuer
	classes ClassLister
	logger  *zap.Logger
}

// NewService creates a notifications service.
func NewService(members MemberLister, users OwnerLookup, store NotificationStore, emails EmailEnqueuer, classes ClassLister, logger *zap.Logger) *Service {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Service{members: members, users: users, store: store, emails: emails, classes: classes, logger: logger}
}

// RecordingReady notifies the batch that a class recording is available.
func (s *Service) RecordingReady(ctx context.Context, class *models.LiveClass) error {
	subject := fmt.Sprintf("Recording available: %s", class.Title)
	body := fmt.Sprintf("<p>The recording for <b>%s</b> is now available in your course.</p>", html.EscapeString(class.Title))
	return s.fanOut(ctx, class, "recording_ready", subject, body)
}

// ClassScheduled notifies the batch about a newly scheduled class.
func (s *Service) ClassScheduled(ctx context.Context, class *models.LiveClass) error {
	subject := fmt.Sprintf("New live class: %s", class.Title)
	body := fmt.Sprintf("<p>A live class <b>%s</b> has been scheduled for your batch.</p>", html.EscapeString(class.Title))
	if class.HasSchedule() {
		body += fmt.Sprintf("<p>%s at %s (%s)</p>", class.Date.Format("2006-01-02"), *class.Time, *class.Timezone)
	}
	return s.fanOut(ctx, class, "class_scheduled", subject, body)
}

// RemindToday enqueues reminder emails for every class scheduled today.
// Meant to run from a daily trigger.
func (s *Service) RemindToday(ctx context.Context, now time.Time) error {
	day := now.Format("2006-01-02")
	classes, err := s.classes.ListScheduledOn(ctx, day)
	if err != nil {
		return fmt.Errorf("list classes for %s: %w", day, err)
	}
	for i := range classes {
		class := &classes[i]
		subject := fmt.Sprintf("Reminder: %s is today", class.Title)
		body := fmt.Sprintf("<p>Your live class <b>%s</b> is scheduled for today.</p>", html.EscapeString(class.Title))
		if class.Time != nil {
			body += fmt.Sprintf("<p>Starts at %s", *class.Time)
			if class.Timezone != nil {
				body += fmt.Sprintf(" (%s)", *class.Timezone)
			}
			body += "</p>"
		}
		if class.JoinURL != "" {
			body += fmt.Sprintf(`<p><a href="%s">Join the class</a></p>`, class.JoinURL)
		}
		if err := s.fanOut(ctx, class, "class_reminder", subject, body); err != nil {
			s.logger.Error("reminder fan-out failed",
				zap.Error(err), zap.String("class_id", class.ID.String()))
		}
	}
	s.logger.Info("daily reminders dispatched", zap.String("day", day), zap.Int("classes", len(classes)))
	return nil
}

func (s *Service) fanOut(ctx context.Context, class *models.LiveClass, emailType, subject, body string) error {
	members, err := s.members.ListMembers(ctx, class.BatchID)
	if err != nil {
		return fmt.Errorf("list members: %w", err)
	}
	members = s.withOwner(ctx, class, members)
	for _, m := range members {
		n := models.Notification{
			UserID:  m.UserID,
			Subject: subject,
			Body:    body,
			RefType: "live_class",
			RefID:   class.ID.String(),
		}
		if err := s.store.Create(ctx, &n); err != nil {
			s.logger.Error("notification insert failed",
				zap.Error(err), zap.String("user_id", m.UserID.String()))
		}
		if m.Email == "" {
			continue
		}
		err := s.emails.EnqueueEmail(ctx, queue.EmailPayload{
			EmailType:      emailType,
			LiveClassID:    class.ID,
			RecipientEmail: m.Email,
			Subject:        subject,
			BodyHTML:       body,
		})
		if err != nil {
			s.logger.Error("email enqueue failed",
				zap.Error(err), zap.String("recipient", m.Email))
		}
	}
	return nil
}

// withOwner appends the class host to the recipient set. Hosts are usually
// instructors and not enrolled in their own batch, so the membership list
// alone would skip them. Lookup failures are logged and the member fan-out
// proceeds without the host.
func (s *Service) withOwner(ctx context.Context, class *models.LiveClass, members []batches.Member) []batches.Member {
	if s.users == nil || class.HostID == uuid.Nil {
		return members
	}
	for _, m := range members {
		if m.UserID == class.HostID {
			return members
		}
	}
	owner, err := s.users.GetByID(ctx, class.HostID)
	if err != nil || owner == nil {
		s.logger.Error("host lookup failed",
			zap.Error(err), zap.String("host_id", class.HostID.String()))
		return members
	}
	return append(members, batches.Member{UserID: owner.ID, Email: owner.Email, Name: owner.FullName})
}
