package session

import (
	"quiz_engine_backend/internal/model"
	"quiz_engine_backend/internal/util"
)

// Draft is the authoring editor state. It is a value: every edit returns a
// new Draft and never touches the receiver's question slice.
type Draft struct {
	QuizID      string           `json:"quizId,omitempty"`
	SubjectID   string           `json:"subjectId"`
	TeacherID   string           `json:"teacherId,omitempty"`
	Title       string           `json:"title"`
	Description string           `json:"description"`
	Questions   []model.Question `json:"questions"`
	Dirty       bool             `json:"dirty"`
}

func NewDraft(subjectID string) Draft {
	return Draft{SubjectID: subjectID, Questions: []model.Question{}}
}

func DraftFromQuiz(q *model.Quiz) Draft {
	return Draft{
		QuizID:      q.ID,
		SubjectID:   q.SubjectID,
		TeacherID:   q.TeacherID,
		Title:       q.Title,
		Description: q.Description,
		Questions:   cloneOrEmpty(q.Questions),
	}
}

func cloneOrEmpty(qs []model.Question) []model.Question {
	if len(qs) == 0 {
		return []model.Question{}
	}
	return model.CloneQuestions(qs)
}

func (d Draft) Len() int { return len(d.Questions) }

func (d Draft) clone() Draft {
	d.Questions = cloneOrEmpty(d.Questions)
	return d
}

// WithQuestions replaces the whole question list.
func (d Draft) WithQuestions(qs []model.Question) Draft {
	d.Questions = cloneOrEmpty(qs)
	d.Dirty = true
	return d
}

func (d Draft) WithAdded(q model.Question) Draft {
	qs := make([]model.Question, 0, len(d.Questions)+1)
	qs = append(qs, model.CloneQuestions(d.Questions)...)
	d.Questions = append(qs, q.Clone())
	d.Dirty = true
	return d
}

// WithRemoved drops the question at pos; later questions shift down by one.
func (d Draft) WithRemoved(pos int) (Draft, error) {
	if pos < 0 || pos >= len(d.Questions) {
		return d, util.ErrPositionOutOfRange
	}
	qs := make([]model.Question, 0, len(d.Questions)-1)
	for i, q := range d.Questions {
		if i != pos {
			qs = append(qs, q.Clone())
		}
	}
	d.Questions = qs
	d.Dirty = true
	return d, nil
}

func (d Draft) WithReplaced(pos int, q model.Question) (Draft, error) {
	if pos < 0 || pos >= len(d.Questions) {
		return d, util.ErrPositionOutOfRange
	}
	qs := model.CloneQuestions(d.Questions)
	qs[pos] = q.Clone()
	d.Questions = qs
	d.Dirty = true
	return d, nil
}

func (d Draft) WithMeta(title, description string) Draft {
	d.Title = title
	d.Description = description
	d.Dirty = true
	return d
}

// Quiz is the record a save would write.
func (d Draft) Quiz() *model.Quiz {
	q := &model.Quiz{
		SubjectID:   d.SubjectID,
		TeacherID:   d.TeacherID,
		Title:       d.Title,
		Description: d.Description,
		Questions:   model.CloneQuestions(d.Questions),
	}
	q.ID = d.QuizID
	return q
}
