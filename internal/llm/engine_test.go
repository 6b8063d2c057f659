package llm

import (
	"context"
	"errors"
	"testing"

	"github.com/lumenlearn/lumen-backend/internal/model"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type scriptedClient struct {
	reply string
	err   error

	lastSystem string
	lastUser   string
}

func (c *scriptedClient) GenerateText(_ context.Context, system, user string) (string, error) {
	c.lastSystem = system
	c.lastUser = user
	if c.err != nil {
		return "", c.err
	}
	return c.reply, nil
}

func newTestEngine(reply string) (*Engine, *scriptedClient) {
	client := &scriptedClient{reply: reply}
	return NewEngine(client, zerolog.Nop()), client
}

// ─── Question parameters ────────────────────────────────────────────

func TestSuggestQuestionParamsParsesValidOutput(t *testing.T) {
	engine, client := newTestEngine(`{
		"question_type": "SHORT_ANSWER",
		"difficulty": 0.6,
		"cognitive_level": "APPLY",
		"estimated_seconds": 90,
		"objective": "  apply the chain rule  "
	}`)

	params, err := engine.SuggestQuestionParams(context.Background(), ParamsContext{
		SessionType:       model.SessionTypeFormative,
		Subject:           "calculus",
		CurrentDifficulty: 0.6,
		Accuracy:          0.7,
	})
	require.NoError(t, err)

	assert.Equal(t, model.QuestionTypeShortAnswer, params.QuestionType)
	assert.Equal(t, 0.6, params.Difficulty)
	assert.Equal(t, model.CognitiveLevelApply, params.CognitiveLevel)
	assert.Equal(t, 90, params.EstimatedSeconds)
	assert.Equal(t, "apply the chain rule", params.Objective)
	assert.Contains(t, client.lastUser, "calculus")
}

func TestSuggestQuestionParamsAcceptsFencedJSON(t *testing.T) {
	engine, _ := newTestEngine("Here you go:\n```json\n" +
		`{"question_type":"MULTIPLE_CHOICE","difficulty":0.4,"cognitive_level":"REMEMBER","estimated_seconds":45,"objective":"recall"}` +
		"\n```\nLet me know if you need more.")

	params, err := engine.SuggestQuestionParams(context.Background(), ParamsContext{})
	require.NoError(t, err)
	assert.Equal(t, model.QuestionTypeMultipleChoice, params.QuestionType)
	assert.Equal(t, 45, params.EstimatedSeconds)
}

func TestSuggestQuestionParamsRejectsBadOutput(t *testing.T) {
	cases := []struct {
		name  string
		reply string
	}{
		{"not json", "I think an essay question would be lovely."},
		{"unknown question type", `{"question_type":"ESSAY","difficulty":0.5,"cognitive_level":"APPLY","estimated_seconds":60}`},
		{"unknown cognitive level", `{"question_type":"SHORT_ANSWER","difficulty":0.5,"cognitive_level":"PONDER","estimated_seconds":60}`},
		{"difficulty out of range", `{"question_type":"SHORT_ANSWER","difficulty":1.4,"cognitive_level":"APPLY","estimated_seconds":60}`},
		{"negative time", `{"question_type":"SHORT_ANSWER","difficulty":0.5,"cognitive_level":"APPLY","estimated_seconds":-5}`},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			engine, _ := newTestEngine(tc.reply)
			_, err := engine.SuggestQuestionParams(context.Background(), ParamsContext{})
			assert.ErrorIs(t, err, ErrMalformed)
		})
	}
}

func TestSuggestQuestionParamsPassesTransportErrorThrough(t *testing.T) {
	transportErr := errors.New("upstream timeout")
	engine := NewEngine(&scriptedClient{err: transportErr}, zerolog.Nop())

	_, err := engine.SuggestQuestionParams(context.Background(), ParamsContext{})
	assert.ErrorIs(t, err, transportErr)
	assert.NotErrorIs(t, err, ErrMalformed)
}

// ─── Question content ───────────────────────────────────────────────

func TestGenerateQuestionParsesValidOutput(t *testing.T) {
	engine, _ := newTestEngine(`{
		"question_text": " What is 2+2? ",
		"options": ["3", "4", "5", "6"],
		"correct_answer": "4",
		"explanation": "Basic addition."
	}`)

	content, err := engine.GenerateQuestion(context.Background(), model.QuestionParams{
		QuestionType: model.QuestionTypeMultipleChoice,
		Objective:    "recall sums",
	}, "arithmetic")
	require.NoError(t, err)

	assert.Equal(t, "What is 2+2?", content.QuestionText)
	assert.Len(t, content.Options, 4)
	assert.Equal(t, "4", content.CorrectAnswer)
	assert.Equal(t, "recall sums", content.Objective)
}

func TestGenerateQuestionRejectsEmptyText(t *testing.T) {
	engine, _ := newTestEngine(`{"question_text":"  ","options":[],"correct_answer":"","explanation":""}`)

	_, err := engine.GenerateQuestion(context.Background(), model.QuestionParams{
		QuestionType: model.QuestionTypeShortAnswer,
	}, "history")
	assert.ErrorIs(t, err, ErrMalformed)
}

func TestGenerateQuestionRequiresOptionsForMultipleChoice(t *testing.T) {
	engine, _ := newTestEngine(`{"question_text":"Pick one.","options":["only"],"correct_answer":"only","explanation":""}`)

	_, err := engine.GenerateQuestion(context.Background(), model.QuestionParams{
		QuestionType: model.QuestionTypeMultipleChoice,
	}, "history")
	assert.ErrorIs(t, err, ErrMalformed)
}

// ─── Grading ────────────────────────────────────────────────────────

func TestGradeResponseParsesVerdict(t *testing.T) {
	engine, _ := newTestEngine(`{"is_correct":true,"score":0.9,"feedback":"Nice work."}`)

	result, err := engine.GradeResponse(context.Background(), GradeInput{
		QuestionText: "Define photosynthesis.",
		Answer:       "Plants turn light into sugar.",
		QuestionType: model.QuestionTypeShortAnswer,
	})
	require.NoError(t, err)
	assert.True(t, result.IsCorrect)
	assert.Equal(t, 0.9, result.Score)
	assert.Equal(t, "Nice work.", result.Feedback)
}

func TestGradeResponseRejectsBadVerdicts(t *testing.T) {
	cases := []struct {
		name  string
		reply string
	}{
		{"score out of range", `{"is_correct":true,"score":1.5,"feedback":"too generous"}`},
		{"missing feedback", `{"is_correct":false,"score":0.2,"feedback":"  "}`},
		{"prose instead of json", "That answer is mostly right."},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			engine, _ := newTestEngine(tc.reply)
			_, err := engine.GradeResponse(context.Background(), GradeInput{})
			assert.ErrorIs(t, err, ErrMalformed)
		})
	}
}

// ─── Personalization ────────────────────────────────────────────────

func TestPersonalizeContentTrimsReply(t *testing.T) {
	engine, client := newTestEngine("\n  A visual walkthrough of the water cycle.  \n")

	out, err := engine.PersonalizeContent(context.Background(), PersonalizeInput{
		Content:         "The water cycle has three stages.",
		ContentType:     "explanation",
		DominantPathway: "visual",
		Modality:        model.ModalityVisual,
	})
	require.NoError(t, err)
	assert.Equal(t, "A visual walkthrough of the water cycle.", out)
	assert.Contains(t, client.lastUser, "visual")
}

func TestPersonalizeContentRejectsEmptyReply(t *testing.T) {
	engine, _ := newTestEngine("   ")

	_, err := engine.PersonalizeContent(context.Background(), PersonalizeInput{Content: "material"})
	assert.ErrorIs(t, err, ErrMalformed)
}

// ─── JSON extraction ────────────────────────────────────────────────

func TestExtractJSONVariants(t *testing.T) {
	cases := []struct {
		name string
		in   string
		want string
	}{
		{"bare object", `{"a":1}`, `{"a":1}`},
		{"fenced", "```json\n{\"a\":1}\n```", `{"a":1}`},
		{"fenced without language", "```\n{\"a\":1}\n```", `{"a":1}`},
		{"surrounding prose", `Sure! {"a":1} Hope that helps.`, `{"a":1}`},
		{"no object at all", "nothing here", "nothing here"},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.want, string(extractJSON(tc.in)))
		})
	}
}
