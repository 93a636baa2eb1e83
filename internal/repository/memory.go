package repository

import (
	"context"
	"quiz_engine_backend/internal/model"
	"quiz_engine_backend/internal/util"
	"sort"
	"sync"
	"time"

	"gorm.io/datatypes"
)

// The Memory* repositories back the "memory" database driver and the tests.
// They hand out copies so callers can never mutate stored records in place.

type MemoryQuizRepository struct {
	mu      sync.RWMutex
	quizzes map[string]*model.Quiz
	order   map[string]int64
	seq     int64
}

func NewMemoryQuizRepository() *MemoryQuizRepository {
	return &MemoryQuizRepository{quizzes: map[string]*model.Quiz{}, order: map[string]int64{}}
}

func (r *MemoryQuizRepository) FindByID(_ context.Context, id string) (*model.Quiz, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	q, ok := r.quizzes[id]
	if !ok {
		return nil, util.ErrQuizNotFound
	}
	return q.Clone(), nil
}

func (r *MemoryQuizRepository) FindFirstBySubject(ctx context.Context, subjectID string) (*model.Quiz, error) {
	quizzes, _ := r.ListBySubject(ctx, subjectID)
	if len(quizzes) == 0 {
		return nil, util.ErrQuizNotFound
	}
	return &quizzes[0], nil
}

func (r *MemoryQuizRepository) ListBySubject(_ context.Context, subjectID string) ([]model.Quiz, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	var out []model.Quiz
	for _, q := range r.quizzes {
		if q.SubjectID == subjectID {
			out = append(out, *q.Clone())
		}
	}
	sort.Slice(out, func(i, j int) bool {
		return r.order[out[i].ID] < r.order[out[j].ID]
	})
	return out, nil
}

func (r *MemoryQuizRepository) Create(_ context.Context, quiz *model.Quiz) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if quiz.ID == "" {
		quiz.ID = model.GenerateUUID()
	}
	now := time.Now()
	quiz.CreatedAt = now
	quiz.UpdatedAt = now
	r.seq++
	r.order[quiz.ID] = r.seq
	r.quizzes[quiz.ID] = quiz.Clone()
	return nil
}

func (r *MemoryQuizRepository) Replace(_ context.Context, quiz *model.Quiz) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	existing, ok := r.quizzes[quiz.ID]
	if !ok {
		return util.ErrQuizNotFound
	}
	quiz.SubjectID = existing.SubjectID
	quiz.CreatedAt = existing.CreatedAt
	quiz.UpdatedAt = time.Now()
	r.quizzes[quiz.ID] = quiz.Clone()
	return nil
}

func (r *MemoryQuizRepository) Delete(_ context.Context, id string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.quizzes[id]; !ok {
		return util.ErrQuizNotFound
	}
	delete(r.quizzes, id)
	delete(r.order, id)
	return nil
}

// Count is the number of stored quizzes.
func (r *MemoryQuizRepository) Count() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.quizzes)
}

type MemoryAttemptRepository struct {
	mu       sync.RWMutex
	attempts map[string]*model.Attempt
}

func NewMemoryAttemptRepository() *MemoryAttemptRepository {
	return &MemoryAttemptRepository{attempts: map[string]*model.Attempt{}}
}

func attemptKey(quizID, learnerID string) string {
	return quizID + "|" + learnerID
}

func copyAttempt(a *model.Attempt) *model.Attempt {
	c := *a
	c.Results = append(c.Results[:0:0], a.Results...)
	c.Answers = datatypes.NewJSONType(a.Answers.Data().Clone())
	return &c
}

func (r *MemoryAttemptRepository) FindByQuizAndLearner(_ context.Context, quizID, learnerID string) (*model.Attempt, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	a, ok := r.attempts[attemptKey(quizID, learnerID)]
	if !ok {
		return nil, util.ErrAttemptNotFound
	}
	return copyAttempt(a), nil
}

func (r *MemoryAttemptRepository) Create(_ context.Context, attempt *model.Attempt) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	key := attemptKey(attempt.QuizID, attempt.LearnerID)
	if _, ok := r.attempts[key]; ok {
		return util.ErrDuplicateAttempt
	}
	if attempt.ID == "" {
		attempt.ID = model.GenerateUUID()
	}
	now := time.Now()
	attempt.CreatedAt = now
	attempt.UpdatedAt = now
	r.attempts[key] = copyAttempt(attempt)
	return nil
}

func (r *MemoryAttemptRepository) ListByQuiz(_ context.Context, quizID string) ([]model.Attempt, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	var out []model.Attempt
	for _, a := range r.attempts {
		if a.QuizID == quizID {
			out = append(out, *copyAttempt(a))
		}
	}
	sort.Slice(out, func(i, j int) bool {
		return out[i].CompletedAt.Before(out[j].CompletedAt)
	})
	return out, nil
}

func (r *MemoryAttemptRepository) FindFirstForLearner(_ context.Context, learnerID string, quizIDs []string) (*model.Attempt, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	var first *model.Attempt
	for _, quizID := range quizIDs {
		a, ok := r.attempts[attemptKey(quizID, learnerID)]
		if ok && (first == nil || a.CompletedAt.Before(first.CompletedAt)) {
			first = a
		}
	}
	if first == nil {
		return nil, util.ErrAttemptNotFound
	}
	return copyAttempt(first), nil
}

// Count is the number of stored attempts.
func (r *MemoryAttemptRepository) Count() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.attempts)
}

type MemoryMaterialRepository struct {
	mu        sync.RWMutex
	materials []model.Material
}

func NewMemoryMaterialRepository(materials ...model.Material) *MemoryMaterialRepository {
	return &MemoryMaterialRepository{materials: materials}
}

func (r *MemoryMaterialRepository) Add(m model.Material) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if m.ID == "" {
		m.ID = model.GenerateUUID()
	}
	r.materials = append(r.materials, m)
}

func (r *MemoryMaterialRepository) ListBySubject(_ context.Context, subjectID string) ([]model.Material, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	var out []model.Material
	for _, m := range r.materials {
		if m.SubjectID == subjectID {
			out = append(out, m)
		}
	}
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].Kind < out[j].Kind
	})
	return out, nil
}
