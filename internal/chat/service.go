// Package chat stores conversation sessions and their transcripts and runs
// each inbound message through a fresh assistant engine restored from the
// session's saved dialogue state.
package chat

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/suPer8Hu/order-assistant/internal/assistant"
	"github.com/suPer8Hu/order-assistant/internal/common"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

var (
	ErrSessionNotFound = errors.New("chat: session not found")
	ErrEmptyMessage    = errors.New("chat: empty message")
)

// StateStore keeps the encoded dialogue state between messages.
type StateStore interface {
	SaveState(ctx context.Context, sessionID string, raw []byte, ttl time.Duration) error
	LoadState(ctx context.Context, sessionID string) ([]byte, error)
	DeleteState(ctx context.Context, sessionID string) error
}

// EngineFactory builds an engine for one request. Collaborators that read
// identity do so from the request context.
type EngineFactory func() (*assistant.Engine, error)

type Service struct {
	repo      *Repo
	states    StateStore
	newEngine EngineFactory
	stateTTL  time.Duration
	log       *zap.Logger

	locks *sessionLocks
}

func NewService(repo *Repo, states StateStore, newEngine EngineFactory, stateTTL time.Duration, log *zap.Logger) *Service {
	if stateTTL <= 0 {
		stateTTL = 24 * time.Hour
	}
	if log == nil {
		log = zap.NewNop()
	}
	return &Service{
		repo:      repo,
		states:    states,
		newEngine: newEngine,
		stateTTL:  stateTTL,
		log:       log,
		locks:     newSessionLocks(),
	}
}

// CreateSession opens a conversation and stores the welcome messages.
func (s *Service) CreateSession(ctx context.Context, userID string) (*Session, []Message, error) {
	sid, err := common.NewULID()
	if err != nil {
		return nil, nil, err
	}
	session := &Session{SessionID: sid, UserID: userID}
	if err := s.repo.CreateSession(ctx, session); err != nil {
		return nil, nil, err
	}

	eng, err := s.newEngine()
	if err != nil {
		return nil, nil, err
	}
	msgs := toRows(session, eng.Welcome(ctx))
	if err := s.repo.InsertMessages(ctx, msgs); err != nil {
		return nil, nil, err
	}
	if err := s.saveState(ctx, sid, eng.State()); err != nil {
		return nil, nil, err
	}
	return session, msgs, nil
}

// SendMessage runs content through the engine and returns the stored turn:
// the user's line first, then every assistant reply. Messages for one
// session are processed one at a time.
func (s *Service) SendMessage(ctx context.Context, userID, sessionID, content string) ([]Message, error) {
	if strings.TrimSpace(content) == "" {
		return nil, ErrEmptyMessage
	}

	unlock := s.locks.lock(sessionID)
	defer unlock()

	session, err := s.ownedSession(ctx, userID, sessionID)
	if err != nil {
		return nil, err
	}

	st, err := s.loadState(ctx, sessionID)
	if err != nil {
		return nil, err
	}

	eng, err := s.newEngine()
	if err != nil {
		return nil, err
	}
	eng.Restore(st)
	out := eng.Handle(ctx, content)

	msgs := toRows(session, out)
	if err := s.repo.InsertMessages(ctx, msgs); err != nil {
		return nil, err
	}
	if err := s.saveState(ctx, sessionID, eng.State()); err != nil {
		return nil, err
	}
	return msgs, nil
}

func (s *Service) ListMessages(ctx context.Context, userID, sessionID string, limit int, beforeID uint64) ([]Message, error) {
	if limit <= 0 || limit > 100 {
		limit = 50
	}
	if _, err := s.ownedSession(ctx, userID, sessionID); err != nil {
		return nil, err
	}
	return s.repo.ListMessages(ctx, userID, sessionID, limit, beforeID)
}

func (s *Service) ownedSession(ctx context.Context, userID, sessionID string) (*Session, error) {
	sess, err := s.repo.GetSessionBySessionID(ctx, sessionID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrSessionNotFound
		}
		return nil, err
	}
	if sess.UserID == "" && userID != "" {
		return s.claim(ctx, sess, userID)
	}
	if sess.UserID != userID {
		return nil, ErrSessionNotFound
	}
	return sess, nil
}

// claim binds an anonymous session to the shopper who signed in while
// using it. From then on anonymous callers no longer see it.
func (s *Service) claim(ctx context.Context, sess *Session, userID string) (*Session, error) {
	ok, err := s.repo.ClaimSession(ctx, sess.SessionID, userID)
	if err != nil {
		return nil, err
	}
	if !ok {
		// someone else claimed it first
		again, err := s.repo.GetSessionBySessionID(ctx, sess.SessionID)
		if err != nil {
			return nil, err
		}
		if again.UserID != userID {
			return nil, ErrSessionNotFound
		}
		return again, nil
	}
	s.log.Info("anonymous session claimed",
		zap.String("session_id", sess.SessionID),
		zap.String("user_id", userID),
	)
	sess.UserID = userID
	return sess, nil
}

// loadState treats an undecodable state as expired: it is dropped and the
// conversation continues from idle.
func (s *Service) loadState(ctx context.Context, sessionID string) (assistant.State, error) {
	raw, err := s.states.LoadState(ctx, sessionID)
	if err != nil {
		return nil, fmt.Errorf("load dialogue state: %w", err)
	}
	st, err := assistant.UnmarshalState(raw)
	if err != nil {
		s.log.Warn("discarding dialogue state",
			zap.String("session_id", sessionID),
			zap.Error(err),
		)
		if derr := s.states.DeleteState(ctx, sessionID); derr != nil {
			s.log.Warn("delete dialogue state", zap.String("session_id", sessionID), zap.Error(derr))
		}
		return assistant.Idle{}, nil
	}
	return st, nil
}

func (s *Service) saveState(ctx context.Context, sessionID string, st assistant.State) error {
	raw, err := assistant.MarshalState(st)
	if err != nil {
		return err
	}
	if err := s.states.SaveState(ctx, sessionID, raw, s.stateTTL); err != nil {
		return fmt.Errorf("save dialogue state: %w", err)
	}
	return nil
}

func toRows(sess *Session, out []assistant.ChatMessage) []Message {
	rows := make([]Message, 0, len(out))
	for _, m := range out {
		rows = append(rows, Message{
			SessionID: sess.SessionID,
			UserID:    sess.UserID,
			Sender:    string(m.Sender),
			Content:   m.Text,
			OrderRef:  m.OrderRef,
			DelayMS:   m.DelayMS,
			CreatedAt: m.At,
		})
	}
	return rows
}

// sessionLocks hands out one mutex per session id and forgets it once
// nobody holds or waits for it.
type sessionLocks struct {
	mu sync.Mutex
	m  map[string]*sessionLock
}

type sessionLock struct {
	mu   sync.Mutex
	refs int
}

func newSessionLocks() *sessionLocks {
	return &sessionLocks{m: map[string]*sessionLock{}}
}

func (l *sessionLocks) lock(id string) func() {
	l.mu.Lock()
	sl, ok := l.m[id]
	if !ok {
		sl = &sessionLock{}
		l.m[id] = sl
	}
	sl.refs++
	l.mu.Unlock()

	sl.mu.Lock()
	return func() {
		sl.mu.Unlock()
		l.mu.Lock()
		sl.refs--
		if sl.refs == 0 {
			delete(l.m, id)
		}
		l.mu.Unlock()
	}
}
