package session

import (
	"context"
	"errors"
	"quiz_engine_backend/internal/model"
	"quiz_engine_backend/internal/service"
	"quiz_engine_backend/internal/util"
	"quiz_engine_backend/pkg/logger"
	"quiz_engine_backend/pkg/monitoring"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// Manager owns every live authoring and taking session. Sessions are kept
// in memory and mirrored to the store after each change; a miss in memory
// is served by rehydrating the stored snapshot.
type Manager struct {
	store     SessionStore
	quizzes   QuizStore
	lookup    QuizLookup
	generator service.DraftGenerator
	attempts  AttemptEngine

	// Hub pushes every session change to its websocket watchers.
	Hub *Hub

	mu        sync.Mutex
	authoring map[string]*AuthoringSession
	taking    map[string]*TakingSession
}

// QuizService is satisfied by *service.QuizService.
type QuizService interface {
	QuizStore
	QuizLookup
}

func NewManager(store SessionStore, quizzes QuizService, generator service.DraftGenerator, attempts AttemptEngine) *Manager {
	return &Manager{
		store:     store,
		quizzes:   quizzes,
		lookup:    quizzes,
		generator: generator,
		attempts:  attempts,
		Hub:       NewHub(nil),
		authoring: map[string]*AuthoringSession{},
		taking:    map[string]*TakingSession{},
	}
}

// OpenAuthoring starts an authoring session for the subject and runs its
// checking step.
func (m *Manager) OpenAuthoring(ctx context.Context, actor model.Actor, subjectID string) (*AuthoringSession, error) {
	s := NewAuthoringSession(uuid.New().String(), actor, subjectID, m.quizzes, m.generator)
	s.onChange = m.persistAuthoring
	if err := s.Open(ctx); err != nil {
		return nil, err
	}
	m.mu.Lock()
	m.authoring[s.ID] = s
	m.mu.Unlock()
	m.updateGauges()
	logger.Log.Info("Authoring session opened",
		zap.String("sessionID", s.ID),
		zap.String("subjectID", subjectID),
		zap.String("state", string(s.State())),
	)
	return s, nil
}

// Authoring returns the owner's session, rehydrating it from the store if
// this process does not hold it.
func (m *Manager) Authoring(ctx context.Context, actor model.Actor, id string) (*AuthoringSession, error) {
	m.mu.Lock()
	s, ok := m.authoring[id]
	m.mu.Unlock()

	if !ok {
		snap, err := m.store.Load(ctx, id)
		if err != nil {
			return nil, err
		}
		if snap.Kind != KindAuthoring || snap.Authoring == nil {
			return nil, util.ErrSessionNotFound
		}
		s = restoreAuthoring(*snap.Authoring, m.quizzes, m.generator)
		s.onChange = m.persistAuthoring

		m.mu.Lock()
		if existing, raced := m.authoring[id]; raced {
			s = existing
		} else {
			m.authoring[id] = s
		}
		m.mu.Unlock()
		m.updateGauges()
	}

	if !owns(actor, s.Owner) {
		return nil, util.ErrPermissionDenied
	}
	return s, nil
}

// CloseAuthoring cancels the session and forgets it.
func (m *Manager) CloseAuthoring(ctx context.Context, actor model.Actor, id string) error {
	s, err := m.Authoring(ctx, actor, id)
	if err != nil {
		return err
	}
	if err := s.Cancel(); err != nil {
		return err
	}
	m.mu.Lock()
	delete(m.authoring, id)
	m.mu.Unlock()
	m.updateGauges()
	m.Hub.CloseSession(id)
	if err := m.store.Delete(ctx, id); err != nil {
		logger.Log.Warn("Failed to delete session snapshot", zap.String("sessionID", id), zap.Error(err))
	}
	return nil
}

// OpenTaking starts a taking session for the learner.
func (m *Manager) OpenTaking(ctx context.Context, actor model.Actor, ref QuizRef) (*TakingSession, error) {
	s := NewTakingSession(uuid.New().String(), actor, m.lookup, m.attempts)
	s.onChange = m.persistTaking
	if err := s.Open(ctx, ref); err != nil {
		return nil, err
	}
	m.mu.Lock()
	m.taking[s.ID] = s
	m.mu.Unlock()
	m.updateGauges()
	logger.Log.Info("Taking session opened",
		zap.String("sessionID", s.ID),
		zap.String("learnerID", actor.ID),
		zap.String("state", string(s.State())),
	)
	return s, nil
}

func (m *Manager) Taking(ctx context.Context, actor model.Actor, id string) (*TakingSession, error) {
	m.mu.Lock()
	s, ok := m.taking[id]
	m.mu.Unlock()

	if !ok {
		snap, err := m.store.Load(ctx, id)
		if err != nil {
			return nil, err
		}
		if snap.Kind != KindTaking || snap.Taking == nil {
			return nil, util.ErrSessionNotFound
		}
		if !owns(actor, snap.Taking.Owner) {
			return nil, util.ErrPermissionDenied
		}
		s, err = restoreTaking(ctx, *snap.Taking, m.lookup, m.attempts)
		if errors.Is(err, util.ErrQuizNotFound) || errors.Is(err, util.ErrAttemptNotFound) {
			return nil, util.ErrSessionNotFound
		}
		if err != nil {
			return nil, err
		}
		s.onChange = m.persistTaking

		m.mu.Lock()
		if existing, raced := m.taking[id]; raced {
			s = existing
		} else {
			m.taking[id] = s
		}
		m.mu.Unlock()
		m.updateGauges()
	}

	if !owns(actor, s.Owner) {
		return nil, util.ErrPermissionDenied
	}
	return s, nil
}

// owns is strict: a session belongs to exactly one user, admins included.
func owns(actor, owner model.Actor) bool {
	return actor.ID != "" && actor.ID == owner.ID
}

func (m *Manager) persistAuthoring(ctx context.Context, s *AuthoringSession) {
	snap := s.Snapshot()
	m.persist(ctx, Snapshot{ID: s.ID, Kind: KindAuthoring, Authoring: &snap})
	m.Hub.Publish(Event{Type: EventAuthoring, SessionID: s.ID, Data: s.View()})
}

func (m *Manager) persistTaking(ctx context.Context, s *TakingSession) {
	snap := s.Snapshot()
	m.persist(ctx, Snapshot{ID: s.ID, Kind: KindTaking, Taking: &snap})
	m.Hub.Publish(Event{Type: EventTaking, SessionID: s.ID, Data: s.View()})
}

// persist failures are logged, not returned: the live session is still
// correct and only loses restart survival.
func (m *Manager) persist(ctx context.Context, snap Snapshot) {
	snap.SavedAt = time.Now()
	if err := m.store.Save(context.WithoutCancel(ctx), snap); err != nil {
		logger.Log.Warn("Failed to persist session snapshot",
			zap.String("sessionID", snap.ID),
			zap.String("kind", string(snap.Kind)),
			zap.Error(err),
		)
	}
}

func (m *Manager) updateGauges() {
	m.mu.Lock()
	a, t := len(m.authoring), len(m.taking)
	m.mu.Unlock()
	monitoring.LiveSessions.WithLabelValues(string(KindAuthoring)).Set(float64(a))
	monitoring.LiveSessions.WithLabelValues(string(KindTaking)).Set(float64(t))
}

// Evict drops sessions idle for longer than maxIdle from memory. Their
// snapshots stay in the store until it expires them.
func (m *Manager) Evict(maxIdle time.Duration) int {
	cutoff := time.Now().Add(-maxIdle)
	m.mu.Lock()
	evicted := 0
	for id, s := range m.authoring {
		if s.idleSince().Before(cutoff) {
			delete(m.authoring, id)
			evicted++
		}
	}
	for id, s := range m.taking {
		if s.idleSince().Before(cutoff) {
			delete(m.taking, id)
			evicted++
		}
	}
	m.mu.Unlock()
	m.updateGauges()
	return evicted
}

// RunJanitor evicts idle sessions every interval until ctx is done.
func (m *Manager) RunJanitor(ctx context.Context, interval, maxIdle time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if n := m.Evict(maxIdle); n > 0 {
				logger.Log.Debug("Evicted idle sessions", zap.Int("count", n))
			}
		}
	}
}
