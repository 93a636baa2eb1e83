package session

import (
	"context"
	"errors"
	"quiz_engine_backend/internal/model"
	"quiz_engine_backend/internal/util"
	"strings"
	"sync"
	"time"
)

type TakingState string

const (
	TakingStart  TakingState = "start"
	TakingActive TakingState = "taking"
	TakingResult TakingState = "result"
)

// QuizLookup resolves the quiz a learner is about to take.
type QuizLookup interface {
	Get(ctx context.Context, id string) (*model.Quiz, error)
	GetBySubject(ctx context.Context, subjectID string) (*model.Quiz, error)
}

// AttemptEngine is the slice of service.AttemptService a taking session needs.
type AttemptEngine interface {
	Submit(ctx context.Context, quizID, learnerID string, answers model.Answers) (*model.Attempt, error)
	Result(ctx context.Context, quizID, learnerID string) (*model.Attempt, error)
	ResultForSubject(ctx context.Context, subjectID, learnerID string) (*model.Attempt, error)
}

// QuizRef names the quiz to take: a quiz id, or the first quiz of a subject.
type QuizRef struct {
	QuizID    string `json:"quizId"`
	SubjectID string `json:"subjectId"`
}

// TakingSession walks a learner through start, taking and result.
type TakingSession struct {
	ID    string
	Owner model.Actor

	quizzes  QuizLookup
	attempts AttemptEngine
	onChange func(ctx context.Context, s *TakingSession)

	mu        sync.Mutex
	state     TakingState
	quiz      *model.Quiz
	answers   model.Answers
	attempt   *model.Attempt
	busy      bool
	touchedAt time.Time
}

func NewTakingSession(id string, owner model.Actor, quizzes QuizLookup, attempts AttemptEngine) *TakingSession {
	return &TakingSession{
		ID:        id,
		Owner:     owner,
		quizzes:   quizzes,
		attempts:  attempts,
		state:     TakingStart,
		answers:   model.Answers{},
		touchedAt: time.Now(),
	}
}

// Open resolves the entry point. A learner who already has an attempt goes
// straight to the result, whatever quiz the reference would resolve to.
func (s *TakingSession) Open(ctx context.Context, ref QuizRef) error {
	learnerID := s.Owner.ID

	var (
		attempt *model.Attempt
		err     error
	)
	if ref.QuizID != "" {
		attempt, err = s.attempts.Result(ctx, ref.QuizID, learnerID)
	} else {
		attempt, err = s.attempts.ResultForSubject(ctx, ref.SubjectID, learnerID)
	}
	if err != nil && !errors.Is(err, util.ErrAttemptNotFound) {
		return err
	}
	if attempt != nil {
		quiz, _ := s.quizzes.Get(ctx, attempt.QuizID)
		s.mu.Lock()
		s.quiz = quiz
		s.attempt = attempt
		s.answers = attempt.Answers.Data().Clone()
		s.state = TakingResult
		s.mu.Unlock()
		s.changed(ctx)
		return nil
	}

	var quiz *model.Quiz
	if ref.QuizID != "" {
		quiz, err = s.quizzes.Get(ctx, ref.QuizID)
	} else {
		quiz, err = s.quizzes.GetBySubject(ctx, ref.SubjectID)
	}
	if err != nil {
		return err
	}

	s.mu.Lock()
	s.quiz = quiz
	s.state = TakingStart
	s.mu.Unlock()
	s.changed(ctx)
	return nil
}

func (s *TakingSession) State() TakingState {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

func (s *TakingSession) Begin(ctx context.Context) error {
	s.mu.Lock()
	if err := s.guard(TakingStart); err != nil {
		s.mu.Unlock()
		return err
	}
	s.state = TakingActive
	s.mu.Unlock()
	s.changed(ctx)
	return nil
}

// Answer records the learner's answer for one position. An empty value
// clears it. Choice questions only accept one of their choices.
func (s *TakingSession) Answer(ctx context.Context, pos int, value string) error {
	s.mu.Lock()
	if err := s.guard(TakingActive); err != nil {
		s.mu.Unlock()
		return err
	}
	if pos < 0 || pos >= len(s.quiz.Questions) {
		s.mu.Unlock()
		return util.ErrPositionOutOfRange
	}
	if value == "" {
		delete(s.answers, pos)
	} else {
		if !acceptsAnswer(s.quiz.Questions[pos], value) {
			s.mu.Unlock()
			return util.ErrInvalidAnswer
		}
		s.answers[pos] = value
	}
	s.mu.Unlock()
	s.changed(ctx)
	return nil
}

func acceptsAnswer(q model.Question, value string) bool {
	choices := q.Options()
	if choices == nil {
		return true
	}
	for _, c := range choices {
		if c == value {
			return true
		}
	}
	return false
}

// CanSubmit is true once every question has a non-empty answer.
func (s *TakingSession) CanSubmit() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.canSubmit()
}

func (s *TakingSession) canSubmit() bool {
	if s.state != TakingActive || s.quiz == nil {
		return false
	}
	for i := range s.quiz.Questions {
		if strings.TrimSpace(s.answers.Get(i)) == "" {
			return false
		}
	}
	return true
}

// Submit grades the answers. A duplicate attempt means another submission
// won a race, so the session shows that attempt instead of failing. Any
// other failure keeps the session taking with every answer intact.
func (s *TakingSession) Submit(ctx context.Context) (*model.Attempt, error) {
	s.mu.Lock()
	if err := s.guard(TakingActive); err != nil {
		s.mu.Unlock()
		return nil, err
	}
	if !s.canSubmit() {
		s.mu.Unlock()
		return nil, util.ErrIncompleteAnswers
	}
	quizID := s.quiz.ID
	answers := s.answers.Clone()
	s.busy = true
	s.mu.Unlock()

	attempt, err := s.attempts.Submit(ctx, quizID, s.Owner.ID, answers)
	if errors.Is(err, util.ErrDuplicateAttempt) {
		attempt, err = s.attempts.Result(ctx, quizID, s.Owner.ID)
	}

	s.mu.Lock()
	s.busy = false
	if err == nil {
		s.attempt = attempt
		s.answers = attempt.Answers.Data().Clone()
		s.state = TakingResult
	}
	s.mu.Unlock()
	if err != nil {
		return nil, err
	}
	s.changed(ctx)
	return attempt, nil
}

type ReviewItem struct {
	Position int                `json:"position"`
	Text     string             `json:"text"`
	Kind     model.QuestionKind `json:"kind"`
	Answer   string             `json:"answer"`
	Correct  bool               `json:"correct"`
	// CorrectAnswer is only shown for a wrong answer.
	CorrectAnswer string `json:"correctAnswer,omitempty"`
}

type Review struct {
	AttemptID     string       `json:"attemptId"`
	QuizID        string       `json:"quizId"`
	Title         string       `json:"title,omitempty"`
	Score         float64      `json:"score"`
	RoundedScore  int          `json:"roundedScore"`
	CorrectCount  int          `json:"correctCount"`
	QuestionCount int          `json:"questionCount"`
	CompletedAt   time.Time    `json:"completedAt"`
	Items         []ReviewItem `json:"items"`
}

// BuildReview renders the read-only result of an attempt from the results
// frozen at submission.
func BuildReview(attempt *model.Attempt, title string) Review {
	r := Review{
		AttemptID:     attempt.ID,
		QuizID:        attempt.QuizID,
		Title:         title,
		Score:         attempt.Score,
		RoundedScore:  attempt.RoundedScore(),
		CorrectCount:  attempt.CorrectCount,
		QuestionCount: attempt.QuestionCount,
		CompletedAt:   attempt.CompletedAt,
		Items:         make([]ReviewItem, len(attempt.Results)),
	}
	for i, res := range attempt.Results {
		item := ReviewItem{
			Position: res.Position,
			Text:     res.Text,
			Kind:     res.Kind,
			Answer:   res.Answer,
			Correct:  res.Correct,
		}
		if !res.Correct {
			item.CorrectAnswer = res.CorrectAnswer
		}
		r.Items[i] = item
	}
	return r
}

func (s *TakingSession) Review() (*Review, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.state != TakingResult || s.attempt == nil {
		return nil, util.ErrInvalidTransition
	}
	r := BuildReview(s.attempt, s.title())
	return &r, nil
}

func (s *TakingSession) title() string {
	if s.quiz == nil {
		return ""
	}
	return s.quiz.Title
}

type TakingView struct {
	ID        string             `json:"id"`
	State     TakingState        `json:"state"`
	Busy      bool               `json:"busy"`
	Quiz      *model.LearnerQuiz `json:"quiz,omitempty"`
	Answers   model.Answers      `json:"answers"`
	CanSubmit bool               `json:"canSubmit"`
	Result    *Review            `json:"result,omitempty"`
}

func (s *TakingSession) View() TakingView {
	s.mu.Lock()
	defer s.mu.Unlock()
	v := TakingView{
		ID:        s.ID,
		State:     s.state,
		Busy:      s.busy,
		Answers:   s.answers.Clone(),
		CanSubmit: s.canSubmit(),
	}
	if s.state == TakingResult && s.attempt != nil {
		r := BuildReview(s.attempt, s.title())
		v.Result = &r
	} else if s.quiz != nil {
		lq := s.quiz.LearnerView()
		v.Quiz = &lq
	}
	return v
}

// guard must be called with mu held.
func (s *TakingSession) guard(allowed ...TakingState) error {
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

func (s *TakingSession) changed(ctx context.Context) {
	if s.onChange != nil {
		s.onChange(ctx, s)
	}
}

func (s *TakingSession) idleSince() time.Time {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.touchedAt
}

// TakingSnapshot is the persisted form of a taking session. The quiz and
// attempt are reloaded from their stores on restore.
type TakingSnapshot struct {
	ID      string        `json:"id"`
	Owner   model.Actor   `json:"owner"`
	State   TakingState   `json:"state"`
	QuizID  string        `json:"quizId"`
	Answers model.Answers `json:"answers"`
}

func (s *TakingSession) Snapshot() TakingSnapshot {
	s.mu.Lock()
	defer s.mu.Unlock()
	snap := TakingSnapshot{ID: s.ID, Owner: s.Owner, State: s.state, Answers: s.answers.Clone()}
	if s.quiz != nil {
		snap.QuizID = s.quiz.ID
	} else if s.attempt != nil {
		snap.QuizID = s.attempt.QuizID
	}
	return snap
}

func restoreTaking(ctx context.Context, snap TakingSnapshot, quizzes QuizLookup, attempts AttemptEngine) (*TakingSession, error) {
	s := NewTakingSession(snap.ID, snap.Owner, quizzes, attempts)
	if snap.State == TakingResult {
		attempt, err := attempts.Result(ctx, snap.QuizID, snap.Owner.ID)
		if err != nil {
			return nil, err
		}
		s.attempt = attempt
		s.answers = attempt.Answers.Data().Clone()
		s.quiz, _ = quizzes.Get(ctx, snap.QuizID)
		s.state = TakingResult
		return s, nil
	}

	quiz, err := quizzes.Get(ctx, snap.QuizID)
	if err != nil {
		return nil, err
	}
	s.quiz = quiz
	s.state = snap.State
	if snap.Answers != nil {
		s.answers = snap.Answers.Clone()
	}
	return s, nil
}
