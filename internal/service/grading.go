package service

import "quiz_engine_backend/internal/model"

type GradeResult struct {
	Score         float64
	CorrectCount  int
	QuestionCount int
	Results       []model.QuestionResult
}

// Grade compares every answer to the question's correct answer with exact,
// case-sensitive equality. Missing positions count as wrong. A quiz with no
// questions scores 0.
func Grade(quiz *model.Quiz, answers model.Answers) GradeResult {
	res := GradeResult{
		QuestionCount: len(quiz.Questions),
		Results:       make([]model.QuestionResult, len(quiz.Questions)),
	}
	for i, q := range quiz.Questions {
		answer := answers.Get(i)
		correct := answer == q.CorrectAnswer()
		if correct {
			res.CorrectCount++
		}
		res.Results[i] = model.QuestionResult{
			Position:      i,
			Text:          q.Text,
			Kind:          q.Kind(),
			Answer:        answer,
			CorrectAnswer: q.CorrectAnswer(),
			Correct:       correct,
		}
	}
	if res.QuestionCount > 0 {
		res.Score = 100 * float64(res.CorrectCount) / float64(res.QuestionCount)
	}
	return res
}
