// Package session holds the viewer's Session and its persisted snapshot.
package session

import (
	"context"
	"errors"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/FACorreiaa/go-estateportal/internal/app/models"
)

var ErrInvalidSession = errors.New("session violates invariants")

var zeroTime time.Time

// Store is the single source of truth for one viewer's Session.
// Writers are serialised; Get never waits on snapshot I/O.
type Store struct {
	writeMu sync.Mutex

	mu      sync.RWMutex
	current models.Session
	subs    map[uint64]chan models.Session
	nextSub uint64

	storage SnapshotStorage
	key     string
	logger  *zap.Logger
}

func NewStore(storage SnapshotStorage, key string, logger *zap.Logger) *Store {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Store{
		current: models.Anonymous(),
		subs:    make(map[uint64]chan models.Session),
		storage: storage,
		key:     key,
		logger:  logger.With(zap.String("snapshot_key", key)),
	}
}

// Get returns the current in-memory session.
func (s *Store) Get() models.Session {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.current
}

// Set replaces the session, persists its snapshot and notifies subscribers.
// Setting an unauthenticated session is the same as Clear.
func (s *Store) Set(ctx context.Context, sess models.Session) error {
	if !sess.Valid() {
		return ErrInvalidSession
	}
	if !sess.Authenticated {
		s.Clear(ctx)
		return nil
	}

	s.writeMu.Lock()
	defer s.writeMu.Unlock()

	s.publish(sess)

	if s.storage == nil {
		return nil
	}
	payload, err := encodeSnapshot(sess)
	if err != nil {
		s.logger.Error("Failed to encode session snapshot", zap.Error(err))
		return nil
	}
	if err := s.storage.Save(ctx, s.key, payload); err != nil {
		s.logger.Warn("Failed to persist session snapshot", zap.Error(err))
	}
	return nil
}

// Clear resets to the unauthenticated session and removes the snapshot.
func (s *Store) Clear(ctx context.Context) {
	s.writeMu.Lock()
	defer s.writeMu.Unlock()

	s.publish(models.Anonymous())

	if s.storage == nil {
		return
	}
	if err := s.storage.Delete(ctx, s.key); err != nil {
		s.logger.Warn("Failed to delete session snapshot", zap.Error(err))
	}
}

// RestoreFromSnapshot reads the persisted snapshot. Missing, unreadable or
// corrupt snapshots yield the unauthenticated session. It does not touch the
// in-memory session.
func (s *Store) RestoreFromSnapshot(ctx context.Context) models.Session {
	if s.storage == nil {
		return models.Anonymous()
	}
	payload, found, err := s.storage.Load(ctx, s.key)
	if err != nil {
		s.logger.Warn("Failed to read session snapshot", zap.Error(err))
		return models.Anonymous()
	}
	if !found {
		return models.Anonymous()
	}
	sess, err := decodeSnapshot(payload)
	if err != nil {
		s.logger.Debug("Ignoring unusable session snapshot", zap.Error(err))
		return models.Anonymous()
	}
	return sess
}

// Init installs the snapshot session, if any, as the current session.
func (s *Store) Init(ctx context.Context) models.Session {
	restored := s.RestoreFromSnapshot(ctx)

	s.writeMu.Lock()
	defer s.writeMu.Unlock()
	s.publish(restored)
	return restored
}

// Subscribe returns a channel that always holds the latest session after a
// change, plus a func that unsubscribes and closes the channel.
func (s *Store) Subscribe() (<-chan models.Session, func()) {
	ch := make(chan models.Session, 1)

	s.mu.Lock()
	id := s.nextSub
	s.nextSub++
	s.subs[id] = ch
	s.mu.Unlock()

	var once sync.Once
	cancel := func() {
		once.Do(func() {
			s.mu.Lock()
			delete(s.subs, id)
			close(ch)
			s.mu.Unlock()
		})
	}
	return ch, cancel
}

// Subscribers reports the number of live subscriptions.
func (s *Store) Subscribers() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.subs)
}

func (s *Store) publish(sess models.Session) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.current = sess
	for _, ch := range s.subs {
		offerLatest(ch, sess)
	}
}

// offerLatest replaces whatever is buffered in ch with sess.
func offerLatest(ch chan models.Session, sess models.Session) {
	for {
		select {
		case ch <- sess:
			return
		default:
			select {
			case <-ch:
			default:
			}
		}
	}
}
