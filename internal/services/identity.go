package services

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/stackit-qa/apiserver/internal/storage"
	"github.com/stackit-qa/apiserver/types"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"
)

const (
	sessionSnapshotVersion = 1
	sessionContentType     = "application/json"
)

// userNamespace seeds the deterministic user ids derived from emails.
var userNamespace = uuid.MustParse("6f1c8a52-3f0e-4a8e-9d6b-2c4b8f1e7a10")

var stockAvatars = []string{
	"https://images.pexels.com/photos/220453/pexels-photo-220453.jpeg?auto=compress&cs=tinysrgb&w=100&h=100&fit=crop",
	"https://images.pexels.com/photos/415829/pexels-photo-415829.jpeg?auto=compress&cs=tinysrgb&w=100&h=100&fit=crop",
}

// SessionStorage persists the active session snapshot.
type SessionStorage interface {
	Put(ctx context.Context, key string, r io.Reader, size int64, contentType string) error
	Get(ctx context.Context, key string) (io.ReadCloser, error)
	Delete(ctx context.Context, key string) error
}

// IdentityConfig configures an IdentityService.
type IdentityConfig struct {
	// SessionKey is the fixed storage key of the session snapshot.
	SessionKey string
	// Delay is the artificial latency of register and login.
	Delay time.Duration
	// VerifyCredentials stores bcrypt hashes on register and checks them on login.
	VerifyCredentials bool
	Logger            *zap.Logger
	Now               func() time.Time
}

// IdentityService holds the single active session and the users it has
// fabricated. In the default mode credentials are never checked.
type IdentityService struct {
	mu      sync.Mutex
	current *types.User
	users   map[string]types.User

	sessions SessionStorage
	key      string
	delay    time.Duration
	verify   bool
	now      func() time.Time
	logger   *zap.Logger
}

type sessionSnapshot struct {
	Version int         `json:"version"`
	User    *types.User `json:"user"`
}

func NewIdentityService(sessions SessionStorage, cfg IdentityConfig) *IdentityService {
	s := &IdentityService{
		users:    make(map[string]types.User),
		sessions: sessions,
		key:      cfg.SessionKey,
		delay:    cfg.Delay,
		verify:   cfg.VerifyCredentials,
		now:      cfg.Now,
		logger:   cfg.Logger,
	}
	if s.key == "" {
		s.key = "stackit_user"
	}
	if s.now == nil {
		s.now = time.Now
	}
	if s.logger == nil {
		s.logger = zap.NewNop()
	}
	return s
}

// Register fabricates a user after the artificial delay and makes it the
// active session.
func (s *IdentityService) Register(ctx context.Context, username, email, credential string) (types.User, error) {
	username = strings.TrimSpace(username)
	email = strings.TrimSpace(email)
	if username == "" || email == "" || (s.verify && credential == "") {
		return types.User{}, ErrMissingFields
	}

	if err := s.wait(ctx); err != nil {
		return types.User{}, err
	}

	id := userIDForEmail(email)
	user := types.User{
		ID:        id,
		Username:  username,
		Email:     email,
		Role:      types.RoleUser,
		CreatedAt: s.now(),
		Avatar:    avatarFor(id),
	}

	if s.verify {
		s.mu.Lock()
		existing, taken := s.users[id]
		s.mu.Unlock()
		if taken && existing.PasswordHash != "" {
			return types.User{}, ErrEmailTaken
		}
		hashed, err := bcrypt.GenerateFromPassword([]byte(credential), bcrypt.DefaultCost)
		if err != nil {
			return types.User{}, fmt.Errorf("hash credential: %w", err)
		}
		user.PasswordHash = string(hashed)
	}

	if err := s.activate(ctx, user); err != nil {
		return types.User{}, err
	}
	s.logger.Info("user registered", zap.String("user_id", user.ID), zap.String("username", user.Username))
	return user, nil
}

// Login starts a session for email after the artificial delay. A user seen
// before keeps its record; otherwise one is fabricated from the email.
func (s *IdentityService) Login(ctx context.Context, email, credential string) (types.User, error) {
	email = strings.TrimSpace(email)
	if email == "" || (s.verify && credential == "") {
		return types.User{}, ErrMissingFields
	}

	if err := s.wait(ctx); err != nil {
		return types.User{}, err
	}

	id := userIDForEmail(email)
	s.mu.Lock()
	user, known := s.users[id]
	s.mu.Unlock()

	if s.verify {
		if !known || user.PasswordHash == "" {
			return types.User{}, ErrInvalidCredentials
		}
		if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(credential)); err != nil {
			return types.User{}, ErrInvalidCredentials
		}
	} else if !known {
		user = types.User{
			ID:        id,
			Username:  usernameFromEmail(email),
			Email:     email,
			Role:      types.RoleUser,
			CreatedAt: s.now(),
			Avatar:    avatarFor(id),
		}
	}

	if err := s.activate(ctx, user); err != nil {
		return types.User{}, err
	}
	s.logger.Info("user logged in", zap.String("user_id", user.ID))
	return user, nil
}

// Logout clears the active session and removes its snapshot.
func (s *IdentityService) Logout(ctx context.Context) error {
	s.mu.Lock()
	s.current = nil
	s.mu.Unlock()

	if s.sessions == nil {
		return nil
	}
	if err := s.sessions.Delete(ctx, s.key); err != nil && !errors.Is(err, storage.ErrNotFound) {
		return fmt.Errorf("delete session snapshot: %w", err)
	}
	return nil
}

// Restore loads the persisted session, if any, and makes it active.
func (s *IdentityService) Restore(ctx context.Context) (*types.User, error) {
	if s.sessions == nil {
		return nil, nil
	}

	rc, err := s.sessions.Get(ctx, s.key)
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			return nil, nil
		}
		return nil, fmt.Errorf("read session snapshot: %w", err)
	}
	defer rc.Close()

	data, err := io.ReadAll(rc)
	if err != nil {
		return nil, fmt.Errorf("read session snapshot: %w", err)
	}
	user, err := decodeSnapshot(data)
	if err != nil {
		return nil, err
	}

	s.mu.Lock()
	if known, ok := s.users[user.ID]; ok {
		user.PasswordHash = known.PasswordHash
	}
	s.users[user.ID] = user
	s.current = &user
	s.mu.Unlock()

	restored := user
	return &restored, nil
}

// Current returns a copy of the active user, or nil when signed out.
func (s *IdentityService) Current() *types.User {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.current == nil {
		return nil
	}
	user := *s.current
	return &user
}

// UserByID resolves a user this service has issued.
func (s *IdentityService) UserByID(ctx context.Context, id string) (types.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	user, ok := s.users[id]
	if !ok {
		return types.User{}, ErrNotFound
	}
	return user, nil
}

// Remember adds user to the directory without starting a session.
func (s *IdentityService) Remember(user types.User) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.users[user.ID] = user
}

func (s *IdentityService) activate(ctx context.Context, user types.User) error {
	if s.sessions != nil {
		data, err := json.Marshal(sessionSnapshot{Version: sessionSnapshotVersion, User: &user})
		if err != nil {
			return fmt.Errorf("encode session snapshot: %w", err)
		}
		if err := s.sessions.Put(ctx, s.key, bytes.NewReader(data), int64(len(data)), sessionContentType); err != nil {
			return fmt.Errorf("write session snapshot: %w", err)
		}
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	s.users[user.ID] = user
	active := user
	s.current = &active
	return nil
}

func (s *IdentityService) wait(ctx context.Context) error {
	if s.delay <= 0 {
		return ctx.Err()
	}
	timer := time.NewTimer(s.delay)
	defer timer.Stop()

	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}

func decodeSnapshot(data []byte) (types.User, error) {
	var snapshot sessionSnapshot
	if err := json.Unmarshal(data, &snapshot); err != nil {
		return types.User{}, fmt.Errorf("decode session snapshot: %w", err)
	}
	if snapshot.Version > sessionSnapshotVersion {
		return types.User{}, fmt.Errorf("unsupported session snapshot version %d", snapshot.Version)
	}
	if snapshot.User != nil && snapshot.User.ID != "" {
		return *snapshot.User, nil
	}

	// Unversioned snapshots hold the bare user record.
	var legacy types.User
	if err := json.Unmarshal(data, &legacy); err != nil {
		return types.User{}, fmt.Errorf("decode session snapshot: %w", err)
	}
	if legacy.ID == "" {
		return types.User{}, errors.New("session snapshot has no user")
	}
	return legacy, nil
}

func userIDForEmail(email string) string {
	return uuid.NewSHA1(userNamespace, []byte(strings.ToLower(strings.TrimSpace(email)))).String()
}

// avatarFor picks a stock avatar from the user id, so a user keeps the same
// picture across sessions.
func avatarFor(id string) string {
	parsed, err := uuid.Parse(id)
	if err != nil {
		return stockAvatars[0]
	}
	return stockAvatars[int(parsed[0])%len(stockAvatars)]
}

func usernameFromEmail(email string) string {
	local, _, _ := strings.Cut(email, "@")
	if local == "" {
		return email
	}
	return local
}
