package services

import (
	"context"
	"encoding/json"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/stackit-qa/apiserver/types"
	"go.uber.org/zap"
)

// Publisher forwards appended notifications to a message broker.
type Publisher interface {
	Publish(ctx context.Context, channel string, data []byte, attrs map[string]string) (string, error)
}

// NotificationOption configures a NotificationService.
type NotificationOption func(*NotificationService)

// WithPublisher publishes every appended notification on channel.
func WithPublisher(publisher Publisher, channel string) NotificationOption {
	return func(s *NotificationService) {
		s.publisher = publisher
		s.channel = channel
	}
}

// WithNotificationClock overrides the time source used for timestamps.
func WithNotificationClock(now func() time.Time) NotificationOption {
	return func(s *NotificationService) {
		if now != nil {
			s.now = now
		}
	}
}

// WithNotificationLogger sets the logger used by the service.
func WithNotificationLogger(logger *zap.Logger) NotificationOption {
	return func(s *NotificationService) {
		if logger != nil {
			s.logger = logger
		}
	}
}

// NotificationService keeps a most-recent-first notification list per recipient.
type NotificationService struct {
	mu sync.Mutex

	byUser map[string][]*types.Notification
	byID   map[string]*types.Notification

	publisher Publisher
	channel   string
	now       func() time.Time
	newID     func() string
	logger    *zap.Logger
}

func NewNotificationService(opts ...NotificationOption) *NotificationService {
	s := &NotificationService{
		byUser: make(map[string][]*types.Notification),
		byID:   make(map[string]*types.Notification),
		now:    time.Now,
		newID:  uuid.NewString,
		logger: zap.NewNop(),
	}
	for _, opt := range opts {
		if opt != nil {
			opt(s)
		}
	}
	return s
}

// Append stores n for its recipient with a fresh id and timestamp.
// The caller's IsRead value is kept; the zero value leaves it unread.
func (s *NotificationService) Append(ctx context.Context, n types.Notification) (types.Notification, error) {
	s.mu.Lock()
	n.ID = s.newID()
	n.CreatedAt = s.now()
	stored := n
	s.byUser[n.UserID] = append([]*types.Notification{&stored}, s.byUser[n.UserID]...)
	s.byID[n.ID] = &stored
	s.mu.Unlock()

	s.publish(ctx, n)
	return n, nil
}

func (s *NotificationService) publish(ctx context.Context, n types.Notification) {
	if s.publisher == nil || s.channel == "" {
		return
	}
	data, err := json.Marshal(n)
	if err != nil {
		s.logger.Warn("failed to encode notification", zap.String("notification_id", n.ID), zap.Error(err))
		return
	}
	attrs := map[string]string{
		"type":    string(n.Type),
		"user_id": n.UserID,
	}
	if _, err := s.publisher.Publish(ctx, s.channel, data, attrs); err != nil {
		s.logger.Warn("failed to publish notification",
			zap.String("notification_id", n.ID),
			zap.String("channel", s.channel),
			zap.Error(err),
		)
	}
}

// MarkRead flags one notification as read. Unknown ids are ignored.
func (s *NotificationService) MarkRead(ctx context.Context, id string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if n, ok := s.byID[id]; ok {
		n.IsRead = true
	}
}

// MarkAllRead flags every notification of userID as read.
func (s *NotificationService) MarkAllRead(ctx context.Context, userID string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, n := range s.byUser[userID] {
		n.IsRead = true
	}
}

// Get returns a single notification.
func (s *NotificationService) Get(ctx context.Context, id string) (types.Notification, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	n, ok := s.byID[id]
	if !ok {
		return types.Notification{}, ErrNotFound
	}
	return *n, nil
}

// List returns the notifications of userID, most recent first.
func (s *NotificationService) List(ctx context.Context, userID string) []types.Notification {
	s.mu.Lock()
	defer s.mu.Unlock()

	items := make([]types.Notification, 0, len(s.byUser[userID]))
	for _, n := range s.byUser[userID] {
		items = append(items, *n)
	}
	return items
}

// UnreadCount counts the unread notifications of userID.
func (s *NotificationService) UnreadCount(ctx context.Context, userID string) int {
	s.mu.Lock()
	defer s.mu.Unlock()

	count := 0
	for _, n := range s.byUser[userID] {
		if !n.IsRead {
			count++
		}
	}
	return count
}

// Clear drops every notification of userID.
func (s *NotificationService) Clear(ctx context.Context, userID string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, n := range s.byUser[userID] {
		delete(s.byID, n.ID)
	}
	delete(s.byUser, userID)
}
