package service

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"quiz_engine_backend/internal/model"
	"quiz_engine_backend/internal/util"
	"quiz_engine_backend/pkg/logger"
	"quiz_engine_backend/pkg/monitoring"
	"quiz_engine_backend/pkg/tracing"
	"strings"

	"go.opentelemetry.io/otel/attribute"
	"go.uber.org/zap"
)

// DraftGenerator proposes a fresh batch of questions for a subject. Calls are
// not deterministic and never persist anything.
type DraftGenerator interface {
	Generate(ctx context.Context, subjectID string) ([]model.Question, error)
}

type MaterialRepository interface {
	ListBySubject(ctx context.Context, subjectID string) ([]model.Material, error)
}

type ObjectOpener interface {
	Open(ctx context.Context, key string) (io.ReadCloser, error)
}

type ChatClient interface {
	Chat(ctx context.Context, system, prompt string) (string, error)
}

const defaultMaxSourceChars = 12000

const draftSystemPrompt = "You are a teaching assistant who writes assessment questions strictly from the course material provided."

const draftPromptTemplate = `Write between 5 and 10 quiz questions based only on the course material below.
Mix the three kinds: "multiple_choice", "true_false" and "short_answer".
Reply with a JSON array and nothing else. Each element must look like:
{"text": "...", "kind": "multiple_choice", "options": ["...", "...", "...", "..."], "correctAnswer": "..."}
Rules:
- multiple_choice: 4 non-empty options; correctAnswer is exactly one of them.
- true_false: no options; correctAnswer is "True" or "False".
- short_answer: no options; correctAnswer is a single word or number.

Course material:
%s`

// AIDraftGenerator drafts questions from a subject's assignments and uploaded
// materials using a chat completion model.
type AIDraftGenerator struct {
	Materials      MaterialRepository
	Storage        ObjectOpener
	AI             ChatClient
	MaxSourceChars int
}

func NewAIDraftGenerator(materials MaterialRepository, storage ObjectOpener, ai ChatClient, maxSourceChars int) *AIDraftGenerator {
	if maxSourceChars <= 0 {
		maxSourceChars = defaultMaxSourceChars
	}
	return &AIDraftGenerator{
		Materials:      materials,
		Storage:        storage,
		AI:             ai,
		MaxSourceChars: maxSourceChars,
	}
}

func (g *AIDraftGenerator) Generate(ctx context.Context, subjectID string) (questions []model.Question, err error) {
	ctx, span := tracing.StartSpan(ctx, "DraftGenerator.Generate", attribute.String("subject_id", subjectID))
	defer func() {
		span.SetAttributes(attribute.Int("draft.questions", len(questions)))
		tracing.End(span, err)
		monitoring.DraftsGenerated.WithLabelValues(draftResult(err)).Inc()
	}()

	source, err := g.collectSource(ctx, subjectID)
	if err != nil {
		return nil, err
	}

	reply, err := g.AI.Chat(ctx, draftSystemPrompt, fmt.Sprintf(draftPromptTemplate, source))
	if err != nil {
		return nil, fmt.Errorf("%w: %v", util.ErrGeneratorUnavailable, err)
	}

	questions, dropped, err := ParseDraft(reply)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", util.ErrGeneratorUnavailable, err)
	}
	if dropped > 0 {
		logger.Log.Warn("Dropped invalid drafted questions",
			zap.String("subjectID", subjectID),
			zap.Int("dropped", dropped),
			zap.Int("kept", len(questions)),
		)
	}
	logger.Log.Info("Draft generated", zap.String("subjectID", subjectID), zap.Int("questions", len(questions)))
	return questions, nil
}

func draftResult(err error) string {
	switch {
	case err == nil:
		return "ok"
	case errors.Is(err, util.ErrInsufficientSource):
		return "insufficient_source"
	default:
		return "error"
	}
}

// collectSource concatenates the extractable text of every assignment and
// material of the subject, capped at MaxSourceChars.
func (g *AIDraftGenerator) collectSource(ctx context.Context, subjectID string) (string, error) {
	materials, err := g.Materials.ListBySubject(ctx, subjectID)
	if err != nil {
		return "", err
	}

	var b strings.Builder
	for _, m := range materials {
		if b.Len() >= g.MaxSourceChars {
			break
		}
		text := strings.TrimSpace(m.Body)
		if text == "" && m.ObjectKey != "" {
			text = g.readObject(ctx, m)
		}
		if text == "" {
			continue
		}
		fmt.Fprintf(&b, "## %s (%s)\n%s\n\n", m.Title, m.Kind, text)
	}

	source := strings.TrimSpace(b.String())
	if source == "" {
		return "", util.ErrInsufficientSource
	}
	if len(source) > g.MaxSourceChars {
		source = truncateRunes(source, g.MaxSourceChars)
	}
	return source, nil
}

// readObject returns the text of an uploaded material, or "" when it is
// missing or not a text document.
func (g *AIDraftGenerator) readObject(ctx context.Context, m model.Material) string {
	if g.Storage == nil {
		return ""
	}
	if m.ContentType != "" && !util.IsAllowedType(m.ContentType, util.AllowedSourceTypes) {
		return ""
	}

	rc, err := g.Storage.Open(ctx, m.ObjectKey)
	if err != nil {
		logger.Log.Warn("Failed to open material object", zap.String("key", m.ObjectKey), zap.Error(err))
		return ""
	}
	defer rc.Close()

	_, r, err := util.SniffMimeType(rc, util.AllowedSourceTypes)
	if err != nil {
		logger.Log.Debug("Skipping non-text material", zap.String("key", m.ObjectKey), zap.Error(err))
		return ""
	}

	data, err := io.ReadAll(io.LimitReader(r, int64(g.MaxSourceChars)*4))
	if err != nil {
		logger.Log.Warn("Failed to read material object", zap.String("key", m.ObjectKey), zap.Error(err))
		return ""
	}
	return strings.TrimSpace(string(data))
}

func truncateRunes(s string, max int) string {
	n := 0
	for i := range s {
		if n == max {
			return s[:i]
		}
		n++
	}
	return s
}

// ParseDraft extracts the question array from a model reply. Questions that
// fail to decode or validate are dropped and counted.
func ParseDraft(reply string) ([]model.Question, int, error) {
	items, err := findQuestionArray(stripCodeFence(reply))
	if err != nil {
		return nil, 0, err
	}

	questions := make([]model.Question, 0, len(items))
	dropped := 0
	for _, item := range items {
		var q model.Question
		if err := json.Unmarshal(item, &q); err != nil {
			dropped++
			continue
		}
		q = normalizeDrafted(q)
		if model.ValidateQuestion(q) != nil {
			dropped++
			continue
		}
		questions = append(questions, q)
	}
	if len(questions) == 0 {
		return nil, dropped, errors.New("reply contains no usable questions")
	}
	return questions, dropped, nil
}

// findQuestionArray decodes the first JSON array in raw that holds objects.
// Models often put bracketed prose such as "[8]" ahead of the payload.
func findQuestionArray(raw string) ([]json.RawMessage, error) {
	var fallback []json.RawMessage
	found := false
	for i := 0; i < len(raw); i++ {
		if raw[i] != '[' {
			continue
		}
		var items []json.RawMessage
		if err := json.NewDecoder(strings.NewReader(raw[i:])).Decode(&items); err != nil {
			continue
		}
		for _, item := range items {
			if bytes.HasPrefix(bytes.TrimSpace(item), []byte("{")) {
				return items, nil
			}
		}
		if !found {
			fallback, found = items, true
		}
	}
	if !found {
		return nil, errors.New("reply contains no JSON array")
	}
	return fallback, nil
}

func stripCodeFence(s string) string {
	s = strings.TrimSpace(s)
	if !strings.HasPrefix(s, "```") {
		return s
	}
	s = strings.TrimPrefix(s, "```")
	if nl := strings.IndexByte(s, '\n'); nl >= 0 {
		s = s[nl+1:]
	}
	return strings.TrimSuffix(strings.TrimSpace(s), "```")
}

// normalizeDrafted fixes casing slips that models commonly make so that a
// drafted question matches an option exactly.
func normalizeDrafted(q model.Question) model.Question {
	q.Text = strings.TrimSpace(q.Text)
	switch b := q.Body.(type) {
	case model.TrueFalse:
		switch strings.ToLower(strings.TrimSpace(b.Answer)) {
		case "true":
			b.Answer = model.AnswerTrue
		case "false":
			b.Answer = model.AnswerFalse
		}
		q.Body = b
	case model.MultipleChoice:
		opts := make([]string, len(b.Options))
		for i, opt := range b.Options {
			opts[i] = strings.TrimSpace(opt)
		}
		answer := strings.TrimSpace(b.Answer)
		for _, opt := range opts {
			if opt != answer && strings.EqualFold(opt, answer) {
				answer = opt
				break
			}
		}
		q.Body = model.MultipleChoice{Options: opts, Answer: answer}
	case model.ShortAnswer:
		b.Answer = strings.TrimSpace(b.Answer)
		q.Body = b
	}
	return q
}
