// Package threadstore keeps an ordered collection of chat threads in a single
// durable key-value slot and tracks which thread is active.
package threadstore

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/iyunix/oni-chat/internal/domain"
	"github.com/iyunix/oni-chat/internal/kv"
)

// DefaultKey is the slot the collection is persisted under.
const DefaultKey = "oni_chats_v1"

var (
	ErrNotFound    = errors.New("thread not found")
	ErrInvalidRole = errors.New("invalid message role")
)

// Logger defines the logging interface used by the store.
type Logger interface {
	Info(msg string, keysAndValues ...interface{})
	Error(msg string, keysAndValues ...interface{})
	Debug(msg string, keysAndValues ...interface{})
	Warn(msg string, keysAndValues ...interface{})
}

type nopLogger struct{}

func (nopLogger) Info(string, ...interface{})  {}
func (nopLogger) Error(string, ...interface{}) {}
func (nopLogger) Debug(string, ...interface{}) {}
func (nopLogger) Warn(string, ...interface{})  {}

// Summary is the listing view of a thread.
type Summary struct {
	ID           string    `json:"id"`
	Title        string    `json:"title"`
	MessageCount int       `json:"message_count"`
	UpdatedAt    time.Time `json:"updated_at"`
	Active       bool      `json:"active"`
}

// Store owns the thread collection. The caller holds only thread ids.
type Store struct {
	mu       sync.Mutex
	kv       kv.Store
	key      string
	logger   Logger
	now      func() time.Time
	newID    func() string
	threads  []*domain.Thread
	activeID string
}

// Option configures a Store.
type Option func(*Store)

// WithKey overrides the slot key, DefaultKey otherwise.
func WithKey(key string) Option {
	return func(s *Store) { s.key = key }
}

func WithLogger(l Logger) Option {
	return func(s *Store) { s.logger = l }
}

func WithClock(now func() time.Time) Option {
	return func(s *Store) { s.now = now }
}

func WithIDGenerator(f func() string) Option {
	return func(s *Store) { s.newID = f }
}

// Open loads the collection from the slot and makes sure a thread is active.
// The newest thread is reused when it is still empty and untitled; otherwise a
// fresh thread is created.
func Open(ctx context.Context, store kv.Store, opts ...Option) (*Store, error) {
	if store == nil {
		return nil, errors.New("threadstore: kv store is required")
	}
	s := &Store{
		kv:     store,
		key:    DefaultKey,
		logger: nopLogger{},
		now:    time.Now,
		newID:  generateID,
	}
	for _, opt := range opts {
		opt(s)
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.load(ctx); err != nil {
		return nil, err
	}
	if len(s.threads) > 0 && len(s.threads[0].Messages) == 0 && s.threads[0].HasDefaultTitle() {
		s.activeID = s.threads[0].ID
		return s, nil
	}
	if _, err := s.createLocked(ctx, s.threads); err != nil {
		return nil, err
	}
	return s, nil
}

func generateID() string {
	return "c_" + strings.ReplaceAll(uuid.NewString(), "-", "")[:8]
}

// load reads the slot. A payload that is not a thread array counts as empty.
func (s *Store) load(ctx context.Context) error {
	raw, ok, err := s.kv.Get(ctx, s.key)
	if err != nil {
		return fmt.Errorf("threadstore: load: %w", err)
	}
	s.threads = nil
	if !ok || len(raw) == 0 {
		return nil
	}
	var threads []*domain.Thread
	if err := json.Unmarshal(raw, &threads); err != nil {
		s.logger.Warn("discarding malformed thread collection", "key", s.key, "error", err)
		return nil
	}
	seen := make(map[string]bool, len(threads))
	for _, t := range threads {
		if t == nil || t.ID == "" || seen[t.ID] {
			continue
		}
		seen[t.ID] = true
		if t.Title == "" {
			t.Title = domain.DefaultThreadTitle
		}
		s.threads = append(s.threads, t)
	}
	s.logger.Debug("thread collection loaded", "key", s.key, "threads", len(s.threads))
	return nil
}

// persist writes threads to the slot. Callers commit threads to s.threads
// only after it succeeds, so a failed write leaves the cache untouched.
func (s *Store) persist(ctx context.Context, threads []*domain.Thread) error {
	payload, err := json.Marshal(threads)
	if err != nil {
		return fmt.Errorf("threadstore: encode: %w", err)
	}
	if err := s.kv.Put(ctx, s.key, payload); err != nil {
		s.logger.Error("failed to persist thread collection", "key", s.key, "error", err)
		return fmt.Errorf("threadstore: persist: %w", err)
	}
	return nil
}

func (s *Store) indexOf(id string) int {
	for i, t := range s.threads {
		if t.ID == id {
			return i
		}
	}
	return -1
}

func (s *Store) uniqueID() string {
	for {
		id := s.newID()
		if s.indexOf(id) == -1 {
			return id
		}
	}
}

// CreateThread inserts an empty thread at the front and makes it active.
func (s *Store) CreateThread(ctx context.Context) (*domain.Thread, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	t, err := s.createLocked(ctx, s.threads)
	if err != nil {
		return nil, err
	}
	return cloneThread(t), nil
}

// createLocked puts a fresh thread in front of base and commits the result
// as the collection.
func (s *Store) createLocked(ctx context.Context, base []*domain.Thread) (*domain.Thread, error) {
	now := s.now()
	t := &domain.Thread{
		ID:        s.uniqueID(),
		Title:     domain.DefaultThreadTitle,
		Messages:  []domain.Message{},
		CreatedAt: now,
		UpdatedAt: now,
	}
	next := append([]*domain.Thread{t}, base...)
	if err := s.persist(ctx, next); err != nil {
		return nil, err
	}
	s.threads = next
	s.activeID = t.ID
	s.logger.Info("thread created", "thread_id", t.ID)
	return t, nil
}

// ListThreads returns summaries in collection order, newest created first.
func (s *Store) ListThreads() []Summary {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]Summary, 0, len(s.threads))
	for _, t := range s.threads {
		out = append(out, Summary{
			ID:           t.ID,
			Title:        t.Title,
			MessageCount: len(t.Messages),
			UpdatedAt:    t.UpdatedAt,
			Active:       t.ID == s.activeID,
		})
	}
	return out
}

// SelectThread makes id the active thread.
func (s *Store) SelectThread(id string) (*domain.Thread, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	i := s.indexOf(id)
	if i == -1 {
		return nil, ErrNotFound
	}
	s.activeID = id
	return cloneThread(s.threads[i]), nil
}

// ActiveID returns the id of the selected thread.
func (s *Store) ActiveID() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.activeID
}

// Active returns a copy of the selected thread.
func (s *Store) Active() (*domain.Thread, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	i := s.indexOf(s.activeID)
	if i == -1 {
		return nil, ErrNotFound
	}
	return cloneThread(s.threads[i]), nil
}

// Thread returns a copy of the thread with the given id.
func (s *Store) Thread(id string) (*domain.Thread, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	i := s.indexOf(id)
	if i == -1 {
		return nil, ErrNotFound
	}
	return cloneThread(s.threads[i]), nil
}

// Messages returns the thread's messages in append order.
func (s *Store) Messages(_ context.Context, threadID string) ([]domain.Message, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	i := s.indexOf(threadID)
	if i == -1 {
		return nil, ErrNotFound
	}
	return append([]domain.Message(nil), s.threads[i].Messages...), nil
}

// AppendMessage adds a message to the thread, deriving the title from the
// first non-empty user message, and persists the collection.
func (s *Store) AppendMessage(ctx context.Context, threadID string, role domain.Role, content string) (*domain.Message, error) {
	if !role.Valid() {
		return nil, ErrInvalidRole
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	i := s.indexOf(threadID)
	if i == -1 {
		return nil, ErrNotFound
	}
	t := cloneThread(s.threads[i])
	now := s.now()
	msg := domain.Message{Role: role, Content: content, CreatedAt: now}
	t.Messages = append(t.Messages, msg)
	t.ApplyFirstMessage(role, content)
	t.UpdatedAt = now

	next := append([]*domain.Thread(nil), s.threads...)
	next[i] = t
	if err := s.persist(ctx, next); err != nil {
		return nil, err
	}
	s.threads = next
	return &msg, nil
}

// DeleteThread removes a thread. When it was active, the thread that took its
// position becomes active, else the previous one; an emptied collection gets a
// fresh default thread. Unknown ids are ignored.
func (s *Store) DeleteThread(ctx context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	idx := s.indexOf(id)
	if idx == -1 {
		return nil
	}
	next := make([]*domain.Thread, 0, len(s.threads)-1)
	next = append(next, s.threads[:idx]...)
	next = append(next, s.threads[idx+1:]...)

	if len(next) == 0 {
		if _, err := s.createLocked(ctx, next); err != nil {
			return err
		}
		s.logger.Info("thread deleted", "thread_id", id)
		return nil
	}

	activeID := s.activeID
	if activeID == id {
		switch {
		case idx < len(next):
			activeID = next[idx].ID
		case idx > 0:
			activeID = next[idx-1].ID
		default:
			activeID = next[0].ID
		}
	}
	if err := s.persist(ctx, next); err != nil {
		return err
	}
	s.threads = next
	s.activeID = activeID
	s.logger.Info("thread deleted", "thread_id", id)
	return nil
}

func cloneThread(t *domain.Thread) *domain.Thread {
	c := *t
	c.Messages = append([]domain.Message(nil), t.Messages...)
	return &c
}
