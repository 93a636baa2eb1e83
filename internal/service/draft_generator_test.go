package service

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"quiz_engine_backend/internal/config"
	"quiz_engine_backend/internal/model"
	"quiz_engine_backend/internal/repository"
	"quiz_engine_backend/internal/util"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const draftReply = "```json\n" + `[
  {"text":"Capital of France?","kind":"mcq","options":["Paris","Rome","Oslo","Bern"],"correctAnswer":"paris"},
  {"text":"The Seine flows through Paris","kind":"true_false","correctAnswer":"true"},
  {"text":"6*7","kind":"short_answer","correctAnswer":"42"},
  {"text":"","kind":"short_answer","correctAnswer":"x"},
  {"text":"Pick one","kind":"essay","correctAnswer":"x"}
]` + "\n```"

func fakeCompletions(t *testing.T, reply string, status int) *httptest.Server {
	t.Helper()
	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/chat/completions", r.URL.Path)
		assert.Equal(t, "Bearer test-key", r.Header.Get("Authorization"))

		var req ChatCompletionRequest
		if assert.NoError(t, json.NewDecoder(r.Body).Decode(&req)) && assert.Len(t, req.Messages, 2) {
			assert.Contains(t, req.Messages[1].Content, "Paris is the capital of France")
		}

		if status != http.StatusOK {
			http.Error(w, "upstream overloaded", status)
			return
		}
		var resp ChatCompletionResponse
		resp.Choices = append(resp.Choices, struct {
			Message AIChatMessage `json:"message"`
		}{Message: AIChatMessage{Role: "assistant", Content: reply}})
		_ = json.NewEncoder(w).Encode(resp)
	}))
}

func geoMaterials() *repository.MemoryMaterialRepository {
	return repository.NewMemoryMaterialRepository(model.Material{
		SubjectID: "geo",
		Kind:      model.MaterialAssignment,
		Title:     "Week 1",
		Body:      "Paris is the capital of France. The Seine flows through it.",
	})
}

func TestAIDraftGeneratorGenerate(t *testing.T) {
	srv := fakeCompletions(t, draftReply, http.StatusOK)
	defer srv.Close()

	ai := NewAIService(config.AIConfig{BaseURL: srv.URL, APIKey: "test-key", Model: "m"})
	gen := NewAIDraftGenerator(geoMaterials(), nil, ai, 0)

	qs, err := gen.Generate(context.Background(), "geo")
	require.NoError(t, err)
	require.Len(t, qs, 3)
	assert.Equal(t, "Paris", qs[0].CorrectAnswer())
	assert.Equal(t, model.TrueFalse{Answer: model.AnswerTrue}, qs[1].Body)
	assert.Equal(t, model.ShortAnswerKind, qs[2].Kind())
}

func TestAIDraftGeneratorUpstreamFailure(t *testing.T) {
	srv := fakeCompletions(t, "", http.StatusServiceUnavailable)
	defer srv.Close()

	ai := NewAIService(config.AIConfig{BaseURL: srv.URL, APIKey: "test-key"})
	_, err := NewAIDraftGenerator(geoMaterials(), nil, ai, 0).Generate(context.Background(), "geo")
	assert.ErrorIs(t, err, util.ErrGeneratorUnavailable)
}

type chatFunc func(ctx context.Context, system, prompt string) (string, error)

func (f chatFunc) Chat(ctx context.Context, system, prompt string) (string, error) {
	return f(ctx, system, prompt)
}

func TestAIDraftGeneratorInsufficientSource(t *testing.T) {
	called := false
	ai := chatFunc(func(context.Context, string, string) (string, error) {
		called = true
		return "", errors.New("unreachable")
	})
	materials := repository.NewMemoryMaterialRepository(model.Material{SubjectID: "geo", Kind: model.MaterialUpload, Title: "empty"})

	_, err := NewAIDraftGenerator(materials, nil, ai, 0).Generate(context.Background(), "geo")
	assert.ErrorIs(t, err, util.ErrInsufficientSource)

	_, err = NewAIDraftGenerator(materials, nil, ai, 0).Generate(context.Background(), "nothing-here")
	assert.ErrorIs(t, err, util.ErrInsufficientSource)
	assert.False(t, called)
}

type mapOpener map[string]string

func (m mapOpener) Open(_ context.Context, key string) (io.ReadCloser, error) {
	body, ok := m[key]
	if !ok {
		return nil, errors.New("no such key")
	}
	return io.NopCloser(strings.NewReader(body)), nil
}

func TestAIDraftGeneratorReadsUploadedText(t *testing.T) {
	var prompt string
	ai := chatFunc(func(_ context.Context, _ string, p string) (string, error) {
		prompt = p
		return `[{"text":"Rivers?","kind":"short","correctAnswer":"Seine"}]`, nil
	})
	materials := repository.NewMemoryMaterialRepository(
		model.Material{SubjectID: "geo", Kind: model.MaterialUpload, Title: "notes", ObjectKey: "geo/notes.txt", ContentType: "text/plain"},
		model.Material{SubjectID: "geo", Kind: model.MaterialUpload, Title: "slides", ObjectKey: "geo/slides.pdf", ContentType: "application/pdf"},
		model.Material{SubjectID: "geo", Kind: model.MaterialUpload, Title: "lost", ObjectKey: "geo/missing.txt"},
	)
	storage := mapOpener{
		"geo/notes.txt":  "The Seine is the river of Paris.",
		"geo/slides.pdf": "%PDF-1.4 binary",
	}

	qs, err := NewAIDraftGenerator(materials, storage, ai, 0).Generate(context.Background(), "geo")
	require.NoError(t, err)
	require.Len(t, qs, 1)
	assert.Contains(t, prompt, "The Seine is the river of Paris.")
	assert.NotContains(t, prompt, "PDF")
}

func TestParseDraftRejectsGarbage(t *testing.T) {
	_, _, err := ParseDraft("Sorry, I cannot help with that.")
	assert.Error(t, err)

	_, dropped, err := ParseDraft(`[{"text":"Q","kind":"tf","correctAnswer":"maybe"}]`)
	assert.Error(t, err)
	assert.Equal(t, 1, dropped)
}

func TestParseDraftSkipsBracketedProse(t *testing.T) {
	reply := "Here are [3] questions, see [notes] below:\n" +
		`[{"text":"Capital of France?","kind":"mcq","options":["Paris","Rome"],"correctAnswer":"Paris"},` +
		` {"text":"6*7","kind":"short","correctAnswer":"42"}]` +
		"\n[end]"

	questions, dropped, err := ParseDraft(reply)
	require.NoError(t, err)
	assert.Zero(t, dropped)
	require.Len(t, questions, 2)
	assert.Equal(t, "Capital of France?", questions[0].Text)
	assert.Equal(t, "42", questions[1].CorrectAnswer())
}
