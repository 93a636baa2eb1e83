package app

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"quiz_engine_backend/internal/config"
	"quiz_engine_backend/internal/model"
	"quiz_engine_backend/internal/repository"
	"quiz_engine_backend/internal/service"
	"quiz_engine_backend/internal/session"
	"quiz_engine_backend/internal/util"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testSecret = "0123456789abcdef0123456789abcdef"

type fixedGenerator []model.Question

func (g fixedGenerator) Generate(context.Context, string) ([]model.Question, error) {
	out := make([]model.Question, len(g))
	for i, q := range g {
		out[i] = q.Clone()
	}
	return out, nil
}

func geoQuestions() fixedGenerator {
	return fixedGenerator{
		model.NewQuestion("Capital of France?", model.MultipleChoiceKind, []string{"Paris", "Rome", "Oslo"}, "Paris"),
		model.NewQuestion("Paris is in France", model.TrueFalseKind, nil, model.AnswerTrue),
		model.NewQuestion("6*7", model.ShortAnswerKind, nil, "42"),
	}
}

type envelope struct {
	Code    int             `json:"code"`
	Message string          `json:"message"`
	Data    json.RawMessage `json:"data"`
}

type testServer struct {
	t       *testing.T
	app     *App
	quizzes *repository.MemoryQuizRepository
	tokens  map[string]string
}

func newTestServer(t *testing.T) *testServer {
	t.Helper()
	gin.SetMode(gin.TestMode)

	cfg := &config.Config{
		Server: config.ServerConfig{Mode: gin.TestMode},
		JWT:    config.JWTConfig{Secret: testSecret},
		CORS:   config.CORSConfig{AllowedOrigins: []string{"http://localhost:3000"}},
	}
	quizzes := repository.NewMemoryQuizRepository()
	application := New(cfg, Dependencies{
		Quizzes:      quizzes,
		Attempts:     repository.NewMemoryAttemptRepository(),
		Materials:    repository.NewMemoryMaterialRepository(),
		SessionStore: session.NewMemorySessionStore(time.Hour),
		Generator:    geoQuestions(),
	})

	s := &testServer{t: t, app: application, quizzes: quizzes, tokens: map[string]string{}}
	for id, role := range map[string]model.UserRole{"t-1": model.Teacher, "t-2": model.Teacher, "s-1": model.Student} {
		token, err := util.GenerateJWT(id, role, id+"@example.com", testSecret, time.Hour)
		require.NoError(t, err)
		s.tokens[id] = token
	}
	return s
}

func (s *testServer) do(user, method, path string, body interface{}) (int, envelope) {
	s.t.Helper()
	var reader *bytes.Reader
	if body != nil {
		data, err := json.Marshal(body)
		require.NoError(s.t, err)
		reader = bytes.NewReader(data)
	} else {
		reader = bytes.NewReader(nil)
	}

	req := httptest.NewRequest(method, path, reader)
	req.Header.Set("Content-Type", "application/json")
	if user != "" {
		req.Header.Set("Authorization", "Bearer "+s.tokens[user])
	}
	w := httptest.NewRecorder()
	s.app.Router.ServeHTTP(w, req)

	var env envelope
	require.NoError(s.t, json.Unmarshal(w.Body.Bytes(), &env), w.Body.String())
	return w.Code, env
}

func decode[T any](t *testing.T, raw json.RawMessage) T {
	t.Helper()
	var v T
	require.NoError(t, json.Unmarshal(raw, &v))
	return v
}

func TestHealthIsPublic(t *testing.T) {
	s := newTestServer(t)
	code, env := s.do("", http.MethodGet, "/api/health", nil)
	assert.Equal(t, http.StatusOK, code)
	assert.Contains(t, string(env.Data), `"database":"memory"`)

	code, _ = s.do("", http.MethodGet, "/api/quizzes/exists?subjectId=geo", nil)
	assert.Equal(t, http.StatusUnauthorized, code)
}

func TestSaveQuizOverHTTP(t *testing.T) {
	s := newTestServer(t)

	code, env := s.do("t-1", http.MethodGet, "/api/quizzes/exists?subjectId=geo", nil)
	require.Equal(t, http.StatusOK, code)
	assert.JSONEq(t, `{"exists":false}`, string(env.Data))

	invalid := gin.H{
		"subjectId": "geo",
		"title":     "Geography",
		"questions": []gin.H{
			{"text": "Capital?", "kind": "multiple_choice", "options": []string{"Paris", "Rome"}, "correctAnswer": "Paris"},
			{"text": "Paris is in France", "kind": "true_false", "correctAnswer": "yes"},
		},
	}
	code, env = s.do("t-1", http.MethodPost, "/api/teacher/quizzes", invalid)
	assert.Equal(t, http.StatusUnprocessableEntity, code)
	assert.Equal(t, "question 2: correctAnswer: correct answer must be True or False", env.Message)

	code, _ = s.do("t-1", http.MethodPost, "/api/teacher/quizzes", gin.H{"subjectId": "geo", "questions": []gin.H{{"kind": "essay"}}})
	assert.Equal(t, http.StatusBadRequest, code)

	code, _ = s.do("s-1", http.MethodPost, "/api/teacher/quizzes", invalid)
	assert.Equal(t, http.StatusForbidden, code)

	invalid["questions"].([]gin.H)[1]["correctAnswer"] = "True"
	code, env = s.do("t-1", http.MethodPost, "/api/teacher/quizzes", invalid)
	require.Equal(t, http.StatusOK, code)
	saved := decode[model.Quiz](t, env.Data)
	assert.Equal(t, "t-1", saved.TeacherID)
	assert.Len(t, saved.Questions, 2)

	// another teacher cannot overwrite it
	code, _ = s.do("t-2", http.MethodPost, "/api/teacher/quizzes", invalid)
	assert.Equal(t, http.StatusForbidden, code)

	code, env = s.do("s-1", http.MethodGet, "/api/quizzes/"+saved.ID, nil)
	require.Equal(t, http.StatusOK, code)
	assert.NotContains(t, string(env.Data), "correctAnswer")
	learner := decode[model.LearnerQuiz](t, env.Data)
	assert.Equal(t, 2, learner.QuestionCount)

	code, env = s.do("s-1", http.MethodGet, "/api/subjects/geo/quizzes", nil)
	require.Equal(t, http.StatusOK, code)
	assert.Contains(t, string(env.Data), `"total":1`)

	code, _ = s.do("t-1", http.MethodGet, "/api/quizzes/missing", nil)
	assert.Equal(t, http.StatusNotFound, code)
}

func TestDirectSubmissionOverHTTP(t *testing.T) {
	s := newTestServer(t)
	quiz := &model.Quiz{SubjectID: "geo", Title: "Geography", Questions: []model.Question(geoQuestions())}
	saved, err := service.NewQuizService(s.quizzes).Save(context.Background(), model.Actor{ID: "t-1", Role: model.Teacher}, quiz)
	require.NoError(t, err)

	code, env := s.do("s-1", http.MethodGet, "/api/quizzes/"+saved.ID+"/attempts/me", nil)
	require.Equal(t, http.StatusOK, code)
	assert.Empty(t, env.Data)

	answers := gin.H{"answers": gin.H{"0": "Paris", "1": "True", "2": "41"}}
	code, env = s.do("s-1", http.MethodPost, fmt.Sprintf("/api/student/quizzes/%s/attempts", saved.ID), answers)
	require.Equal(t, http.StatusCreated, code)
	attempt := decode[model.Attempt](t, env.Data)
	assert.InDelta(t, 66.67, attempt.Score, 0.01)
	assert.Equal(t, 2, attempt.CorrectCount)

	code, _ = s.do("s-1", http.MethodPost, fmt.Sprintf("/api/student/quizzes/%s/attempts", saved.ID), answers)
	assert.Equal(t, http.StatusConflict, code)

	code, env = s.do("s-1", http.MethodGet, "/api/quizzes/"+saved.ID+"/attempts/me", nil)
	require.Equal(t, http.StatusOK, code)
	assert.Contains(t, string(env.Data), `"roundedScore":67`)

	code, env = s.do("t-1", http.MethodGet, "/api/teacher/quizzes/"+saved.ID+"/attempts", nil)
	require.Equal(t, http.StatusOK, code)
	assert.Contains(t, string(env.Data), `"count":1`)

	code, _ = s.do("t-2", http.MethodGet, "/api/teacher/quizzes/"+saved.ID+"/attempts", nil)
	assert.Equal(t, http.StatusForbidden, code)
}

func TestAuthoringAndTakingOverHTTP(t *testing.T) {
	s := newTestServer(t)

	code, env := s.do("t-1", http.MethodPost, "/api/teacher/subjects/geo/authoring", nil)
	require.Equal(t, http.StatusCreated, code)
	view := decode[session.AuthoringView](t, env.Data)
	assert.Equal(t, session.AuthoringDrafting, view.State)
	base := "/api/teacher/authoring/" + view.ID

	code, _ = s.do("t-1", http.MethodPost, base+"/save", nil)
	assert.Equal(t, http.StatusConflict, code)

	code, env = s.do("t-1", http.MethodPost, base+"/generate", nil)
	require.Equal(t, http.StatusOK, code)
	view = decode[session.AuthoringView](t, env.Data)
	assert.Equal(t, session.AuthoringReviewing, view.State)
	assert.Len(t, view.Draft.Questions, 3)

	code, _ = s.do("t-1", http.MethodPost, base+"/save", nil)
	assert.Equal(t, http.StatusUnprocessableEntity, code, "title is still empty")

	code, _ = s.do("t-1", http.MethodPatch, base+"/meta", gin.H{"title": "Geography"})
	require.Equal(t, http.StatusOK, code)

	code, env = s.do("t-1", http.MethodPost, base+"/questions", gin.H{"kind": "true_false"})
	require.Equal(t, http.StatusOK, code)
	view = decode[session.AuthoringView](t, env.Data)
	require.Len(t, view.Draft.Questions, 4)

	code, _ = s.do("t-1", http.MethodDelete, base+"/questions/9", nil)
	assert.Equal(t, http.StatusBadRequest, code)
	code, _ = s.do("t-1", http.MethodDelete, base+"/questions/3", nil)
	require.Equal(t, http.StatusOK, code)

	code, _ = s.do("t-2", http.MethodGet, base, nil)
	assert.Equal(t, http.StatusForbidden, code)

	code, env = s.do("t-1", http.MethodPost, base+"/save", nil)
	require.Equal(t, http.StatusOK, code)
	var saved struct {
		Quiz    model.Quiz            `json:"quiz"`
		Session session.AuthoringView `json:"session"`
	}
	require.NoError(t, json.Unmarshal(env.Data, &saved))
	require.NotEmpty(t, saved.Quiz.ID)
	assert.False(t, saved.Session.Draft.Dirty)

	code, env = s.do("s-1", http.MethodPost, "/api/student/taking", gin.H{"subjectId": "geo"})
	require.Equal(t, http.StatusCreated, code)
	taking := decode[session.TakingView](t, env.Data)
	assert.Equal(t, session.TakingStart, taking.State)
	tbase := "/api/student/taking/" + taking.ID

	code, _ = s.do("s-1", http.MethodPut, tbase+"/answers/0", gin.H{"answer": "Paris"})
	assert.Equal(t, http.StatusConflict, code, "answering before begin")

	code, _ = s.do("s-1", http.MethodPost, tbase+"/begin", nil)
	require.Equal(t, http.StatusOK, code)

	code, _ = s.do("s-1", http.MethodPut, tbase+"/answers/0", gin.H{"answer": "Lyon"})
	assert.Equal(t, http.StatusBadRequest, code)

	for pos, answer := range []string{"Paris", "True"} {
		code, _ = s.do("s-1", http.MethodPut, fmt.Sprintf("%s/answers/%d", tbase, pos), gin.H{"answer": answer})
		require.Equal(t, http.StatusOK, code)
	}
	code, _ = s.do("s-1", http.MethodPost, tbase+"/submit", nil)
	assert.Equal(t, http.StatusBadRequest, code)

	code, env = s.do("s-1", http.MethodPut, tbase+"/answers/2", gin.H{"answer": "41"})
	require.Equal(t, http.StatusOK, code)
	assert.True(t, decode[session.TakingView](t, env.Data).CanSubmit)

	code, env = s.do("s-1", http.MethodPost, tbase+"/submit", nil)
	require.Equal(t, http.StatusOK, code)
	taking = decode[session.TakingView](t, env.Data)
	assert.Equal(t, session.TakingResult, taking.State)
	require.NotNil(t, taking.Result)
	assert.Equal(t, 67, taking.Result.RoundedScore)
	assert.Equal(t, "42", taking.Result.Items[2].CorrectAnswer)
	assert.Empty(t, taking.Result.Items[0].CorrectAnswer)

	code, env = s.do("s-1", http.MethodPost, "/api/student/taking", gin.H{"quizId": saved.Quiz.ID})
	require.Equal(t, http.StatusCreated, code)
	assert.Equal(t, session.TakingResult, decode[session.TakingView](t, env.Data).State)
}
