package session

import (
	"context"
	"quiz_engine_backend/internal/model"
	"quiz_engine_backend/internal/service"
	"quiz_engine_backend/internal/util"
	"sync"
	"time"
)

type AuthoringState string

const (
	AuthoringChecking  AuthoringState = "checking"
	AuthoringDrafting  AuthoringState = "drafting"
	AuthoringReviewing AuthoringState = "reviewing"
	AuthoringClosed    AuthoringState = "closed"
)

// QuizStore is the slice of service.QuizService an authoring session needs.
type QuizStore interface {
	Exists(ctx context.Context, subjectID string) (string, bool, error)
	Get(ctx context.Context, id string) (*model.Quiz, error)
	Save(ctx context.Context, actor model.Actor, quiz *model.Quiz) (*model.Quiz, error)
}

// AuthoringSession is the editor a teacher drives to create or update the
// quiz of one subject.
type AuthoringSession struct {
	ID    string
	Owner model.Actor

	store     QuizStore
	generator service.DraftGenerator
	onChange  func(ctx context.Context, s *AuthoringSession)

	mu        sync.Mutex
	state     AuthoringState
	draft     Draft
	busy      bool
	touchedAt time.Time
}

func NewAuthoringSession(id string, owner model.Actor, subjectID string, store QuizStore, generator service.DraftGenerator) *AuthoringSession {
	return &AuthoringSession{
		ID:        id,
		Owner:     owner,
		store:     store,
		generator: generator,
		state:     AuthoringChecking,
		draft:     NewDraft(subjectID),
		touchedAt: time.Now(),
	}
}

type AuthoringView struct {
	ID        string         `json:"id"`
	SubjectID string         `json:"subjectId"`
	State     AuthoringState `json:"state"`
	Busy      bool           `json:"busy"`
	Draft     Draft          `json:"draft"`
}

func (s *AuthoringSession) View() AuthoringView {
	s.mu.Lock()
	defer s.mu.Unlock()
	return AuthoringView{
		ID:        s.ID,
		SubjectID: s.draft.SubjectID,
		State:     s.state,
		Busy:      s.busy,
		Draft:     s.draft.clone(),
	}
}

func (s *AuthoringSession) State() AuthoringState {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

// Draft returns the current editor value.
func (s *AuthoringSession) Draft() Draft {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.draft.clone()
}

// Open runs the checking step: an existing quiz for the subject is loaded
// for review, otherwise the session waits in drafting. On failure the
// session stays in checking and Open can be retried.
func (s *AuthoringSession) Open(ctx context.Context) error {
	s.mu.Lock()
	if err := s.guard(AuthoringChecking); err != nil {
		s.mu.Unlock()
		return err
	}
	subjectID := s.draft.SubjectID
	s.busy = true
	s.mu.Unlock()

	quiz, err := s.lookup(ctx, subjectID)

	s.mu.Lock()
	s.busy = false
	if err == nil {
		if quiz != nil {
			s.draft = DraftFromQuiz(quiz)
			s.state = AuthoringReviewing
		} else {
			s.state = AuthoringDrafting
		}
	}
	s.mu.Unlock()
	if err != nil {
		return err
	}
	s.changed(ctx)
	return nil
}

func (s *AuthoringSession) lookup(ctx context.Context, subjectID string) (*model.Quiz, error) {
	id, exists, err := s.store.Exists(ctx, subjectID)
	if err != nil || !exists {
		return nil, err
	}
	return s.store.Get(ctx, id)
}

// Generate replaces the whole question list with a fresh draft batch. Any
// failure leaves state and questions unchanged.
func (s *AuthoringSession) Generate(ctx context.Context) error {
	s.mu.Lock()
	if err := s.guard(AuthoringDrafting, AuthoringReviewing); err != nil {
		s.mu.Unlock()
		return err
	}
	subjectID := s.draft.SubjectID
	s.busy = true
	s.mu.Unlock()
	s.changed(ctx)

	questions, err := s.generator.Generate(ctx, subjectID)

	s.mu.Lock()
	s.busy = false
	if err == nil {
		s.draft = s.draft.WithQuestions(questions)
		s.state = AuthoringReviewing
	}
	s.mu.Unlock()
	s.changed(ctx)
	return err
}

// StartFromScratch moves to reviewing with an empty question list.
func (s *AuthoringSession) StartFromScratch(ctx context.Context) error {
	return s.edit(ctx, []AuthoringState{AuthoringDrafting}, func(d Draft) (Draft, error) {
		s.state = AuthoringReviewing
		return d.WithQuestions(nil), nil
	})
}

func (s *AuthoringSession) AddQuestion(ctx context.Context, q model.Question) error {
	return s.reviewEdit(ctx, func(d Draft) (Draft, error) {
		return d.WithAdded(q), nil
	})
}

func (s *AuthoringSession) RemoveQuestion(ctx context.Context, pos int) error {
	return s.reviewEdit(ctx, func(d Draft) (Draft, error) {
		return d.WithRemoved(pos)
	})
}

func (s *AuthoringSession) ReplaceQuestion(ctx context.Context, pos int, q model.Question) error {
	return s.reviewEdit(ctx, func(d Draft) (Draft, error) {
		return d.WithReplaced(pos, q)
	})
}

func (s *AuthoringSession) SetMeta(ctx context.Context, title, description string) error {
	return s.reviewEdit(ctx, func(d Draft) (Draft, error) {
		return d.WithMeta(title, description), nil
	})
}

// Save validates the draft and writes it through the quiz store. Validation
// failures never reach the store. On success the session keeps reviewing
// the saved quiz.
func (s *AuthoringSession) Save(ctx context.Context) (*model.Quiz, error) {
	s.mu.Lock()
	if err := s.guard(AuthoringReviewing); err != nil {
		s.mu.Unlock()
		return nil, err
	}
	draft := s.draft
	if err := model.ValidateQuiz(draft.Title, draft.Questions); err != nil {
		s.mu.Unlock()
		return nil, err
	}
	s.busy = true
	s.mu.Unlock()

	saved, err := s.store.Save(ctx, s.Owner, draft.Quiz())

	s.mu.Lock()
	s.busy = false
	if err == nil {
		s.draft = DraftFromQuiz(saved)
	}
	s.mu.Unlock()
	if err != nil {
		return nil, err
	}
	s.changed(ctx)
	return saved, nil
}

// Cancel discards every unsaved edit and closes the session.
func (s *AuthoringSession) Cancel() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.state == AuthoringClosed {
		return nil
	}
	if s.busy {
		return util.ErrSessionBusy
	}
	s.state = AuthoringClosed
	s.draft = NewDraft(s.draft.SubjectID)
	return nil
}

func (s *AuthoringSession) reviewEdit(ctx context.Context, fn func(Draft) (Draft, error)) error {
	return s.edit(ctx, []AuthoringState{AuthoringReviewing}, fn)
}

func (s *AuthoringSession) edit(ctx context.Context, allowed []AuthoringState, fn func(Draft) (Draft, error)) error {
	s.mu.Lock()
	if err := s.guard(allowed...); err != nil {
		s.mu.Unlock()
		return err
	}
	prev := s.state
	next, err := fn(s.draft)
	if err != nil {
		s.state = prev
		s.mu.Unlock()
		return err
	}
	s.draft = next
	s.mu.Unlock()
	s.changed(ctx)
	return nil
}

// guard must be called with mu held.
func (s *AuthoringSession) guard(allowed ...AuthoringState) error {
	if s.state == AuthoringClosed {
		return util.ErrSessionClosed
	}
	if s.busy {
		return util.ErrSessionBusy
	}
	for _, st := range allowed {
		if s.state == st {
			s.touchedAt = time.Now()
			return nil
		}
	}
	return util.ErrInvalidTransition
}

func (s *AuthoringSession) changed(ctx context.Context) {
	if s.onChange != nil {
		s.onChange(ctx, s)
	}
}

func (s *AuthoringSession) idleSince() time.Time {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.touchedAt
}

// AuthoringSnapshot is the persisted form of an authoring session.
type AuthoringSnapshot struct {
	ID    string         `json:"id"`
	Owner model.Actor    `json:"owner"`
	State AuthoringState `json:"state"`
	Draft Draft          `json:"draft"`
}

func (s *AuthoringSession) Snapshot() AuthoringSnapshot {
	s.mu.Lock()
	defer s.mu.Unlock()
	// an in-flight call is not captured; a restored session resumes from the last settled state
	return AuthoringSnapshot{ID: s.ID, Owner: s.Owner, State: s.state, Draft: s.draft.clone()}
}

func restoreAuthoring(snap AuthoringSnapshot, store QuizStore, generator service.DraftGenerator) *AuthoringSession {
	s := NewAuthoringSession(snap.ID, snap.Owner, snap.Draft.SubjectID, store, generator)
	s.state = snap.State
	s.draft = snap.Draft
	if s.draft.Questions == nil {
		s.draft.Questions = []model.Question{}
	}
	return s
}
