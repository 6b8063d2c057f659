package llm

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/lumenlearn/lumen-backend/internal/model"
	"github.com/rs/zerolog"
)

// ErrMalformed marks collaborator output that failed schema validation.
// Callers must treat it exactly like transport failure: substitute the
// documented deterministic fallback, never propagate.
var ErrMalformed = errors.New("malformed collaborator output")

// Engine is the prompt/parse layer over the raw Client. Every method demands
// a strict JSON object back and validates shape and ranges before trusting
// anything in it.
type Engine struct {
	client Client
	log    zerolog.Logger
}

// NewEngine creates an Engine over the given Client.
func NewEngine(client Client, log zerolog.Logger) *Engine {
	return &Engine{
		client: client,
		log:    log.With().Str("component", "llm_engine").Logger(),
	}
}

// ─── Question parameter selection ───────────────────────────────────

// ParamsContext carries the rolling performance picture used to pick the
// next question's parameters.
type ParamsContext struct {
	SessionType       model.SessionType
	Subject           string
	CurrentDifficulty float64
	Accuracy          float64
	TotalQuestions    int
	AvgTimeSeconds    float64
	DominantStyle     string
	Strengths         []string
	Weaknesses        []string
}

type rawParams struct {
	QuestionType     string  `json:"question_type"`
	Difficulty       float64 `json:"difficulty"`
	CognitiveLevel   string  `json:"cognitive_level"`
	EstimatedSeconds int     `json:"estimated_seconds"`
	Objective        string  `json:"objective"`
}

// SuggestQuestionParams asks the collaborator for the next question's
// parameters. Returns ErrMalformed-wrapped errors on unparseable or
// out-of-range output.
func (e *Engine) SuggestQuestionParams(ctx context.Context, pc ParamsContext) (model.QuestionParams, error) {
	system := "You are an adaptive assessment planner. Respond with a single JSON object and nothing else."
	user := fmt.Sprintf(
		"Choose parameters for the next question of a %s assessment in %q.\n"+
			"Learner state: difficulty=%.2f accuracy=%.2f questions_asked=%d avg_time_seconds=%.0f dominant_style=%s\n"+
			"Strengths: %s\nWeaknesses: %s\n"+
			"Respond with JSON keys: question_type (MULTIPLE_CHOICE|SHORT_ANSWER|MATHEMATICAL), "+
			"difficulty (0..1), cognitive_level (REMEMBER|UNDERSTAND|APPLY|ANALYZE|EVALUATE|CREATE), "+
			"estimated_seconds (int), objective (string).",
		pc.SessionType, pc.Subject, pc.CurrentDifficulty, pc.Accuracy, pc.TotalQuestions,
		pc.AvgTimeSeconds, pc.DominantStyle,
		strings.Join(pc.Strengths, ", "), strings.Join(pc.Weaknesses, ", "),
	)

	raw, err := e.client.GenerateText(ctx, system, user)
	if err != nil {
		return model.QuestionParams{}, err
	}

	var parsed rawParams
	if err := json.Unmarshal(extractJSON(raw), &parsed); err != nil {
		return model.QuestionParams{}, fmt.Errorf("%w: parse params: %v", ErrMalformed, err)
	}

	qt := model.QuestionType(parsed.QuestionType)
	switch qt {
	case model.QuestionTypeMultipleChoice, model.QuestionTypeShortAnswer, model.QuestionTypeMathematical:
	default:
		return model.QuestionParams{}, fmt.Errorf("%w: unknown question_type %q", ErrMalformed, parsed.QuestionType)
	}

	cl := model.CognitiveLevel(parsed.CognitiveLevel)
	switch cl {
	case model.CognitiveLevelRemember, model.CognitiveLevelUnderstand, model.CognitiveLevelApply,
		model.CognitiveLevelAnalyze, model.CognitiveLevelEvaluate, model.CognitiveLevelCreate:
	default:
		return model.QuestionParams{}, fmt.Errorf("%w: unknown cognitive_level %q", ErrMalformed, parsed.CognitiveLevel)
	}

	if parsed.Difficulty < 0 || parsed.Difficulty > 1 {
		return model.QuestionParams{}, fmt.Errorf("%w: difficulty %.2f out of range", ErrMalformed, parsed.Difficulty)
	}
	if parsed.EstimatedSeconds <= 0 || parsed.EstimatedSeconds > 3600 {
		return model.QuestionParams{}, fmt.Errorf("%w: estimated_seconds %d out of range", ErrMalformed, parsed.EstimatedSeconds)
	}

	return model.QuestionParams{
		QuestionType:     qt,
		Difficulty:       parsed.Difficulty,
		CognitiveLevel:   cl,
		EstimatedSeconds: parsed.EstimatedSeconds,
		Objective:        strings.TrimSpace(parsed.Objective),
	}, nil
}

// ─── Question content generation ────────────────────────────────────

type rawQuestion struct {
	QuestionText  string   `json:"question_text"`
	Options       []string `json:"options"`
	CorrectAnswer string   `json:"correct_answer"`
	Explanation   string   `json:"explanation"`
}

// GenerateQuestion asks the collaborator to write question content for the
// given parameters.
func (e *Engine) GenerateQuestion(ctx context.Context, params model.QuestionParams, subject string) (model.QuestionContent, error) {
	system := "You are a question author for an adaptive learning platform. Respond with a single JSON object and nothing else."
	user := fmt.Sprintf(
		"Write one %s question for subject %q at difficulty %.2f, cognitive level %s.\n"+
			"Objective: %s\n"+
			"Respond with JSON keys: question_text (string), options (array of 4 strings, empty for non multiple-choice), "+
			"correct_answer (string), explanation (string).",
		params.QuestionType, subject, params.Difficulty, params.CognitiveLevel, params.Objective,
	)

	raw, err := e.client.GenerateText(ctx, system, user)
	if err != nil {
		return model.QuestionContent{}, err
	}

	var parsed rawQuestion
	if err := json.Unmarshal(extractJSON(raw), &parsed); err != nil {
		return model.QuestionContent{}, fmt.Errorf("%w: parse question: %v", ErrMalformed, err)
	}

	if strings.TrimSpace(parsed.QuestionText) == "" {
		return model.QuestionContent{}, fmt.Errorf("%w: missing question_text", ErrMalformed)
	}
	if params.QuestionType == model.QuestionTypeMultipleChoice && len(parsed.Options) < 2 {
		return model.QuestionContent{}, fmt.Errorf("%w: multiple-choice question needs options", ErrMalformed)
	}

	return model.QuestionContent{
		QuestionText:  strings.TrimSpace(parsed.QuestionText),
		Options:       parsed.Options,
		CorrectAnswer: strings.TrimSpace(parsed.CorrectAnswer),
		Explanation:   strings.TrimSpace(parsed.Explanation),
		Objective:     params.Objective,
	}, nil
}

// ─── Grading ────────────────────────────────────────────────────────

// GradeInput carries the question/answer pair for free-form grading.
type GradeInput struct {
	QuestionText  string
	CorrectAnswer string
	QuestionType  model.QuestionType
	Answer        string
}

// GradeResult is the validated grading verdict.
type GradeResult struct {
	IsCorrect bool    `json:"is_correct"`
	Score     float64 `json:"score"`
	Feedback  string  `json:"feedback"`
}

// GradeResponse asks the collaborator to grade a learner's answer.
func (e *Engine) GradeResponse(ctx context.Context, in GradeInput) (GradeResult, error) {
	system := "You are a fair, encouraging grader. Respond with a single JSON object and nothing else."
	user := fmt.Sprintf(
		"Grade this %s answer.\nQuestion: %s\nReference answer: %s\nLearner answer: %s\n"+
			"Respond with JSON keys: is_correct (bool), score (0..1), feedback (short encouraging string).",
		in.QuestionType, in.QuestionText, in.CorrectAnswer, in.Answer,
	)

	raw, err := e.client.GenerateText(ctx, system, user)
	if err != nil {
		return GradeResult{}, err
	}

	var parsed GradeResult
	if err := json.Unmarshal(extractJSON(raw), &parsed); err != nil {
		return GradeResult{}, fmt.Errorf("%w: parse grade: %v", ErrMalformed, err)
	}
	if parsed.Score < 0 || parsed.Score > 1 {
		return GradeResult{}, fmt.Errorf("%w: score %.2f out of range", ErrMalformed, parsed.Score)
	}
	if strings.TrimSpace(parsed.Feedback) == "" {
		return GradeResult{}, fmt.Errorf("%w: missing feedback", ErrMalformed)
	}

	return parsed, nil
}

// ─── Content personalization ────────────────────────────────────────

// PersonalizeInput carries the material and learner profile for reshaping.
type PersonalizeInput struct {
	Content         string
	ContentType     string
	DominantPathway string
	Modality        model.Modality
	Analytical      float64
	Social          float64
}

// PersonalizeContent rewrites teaching material for the learner's strongest
// pathway and the session's current modality.
func (e *Engine) PersonalizeContent(ctx context.Context, in PersonalizeInput) (string, error) {
	system := "You are an instructional designer. Rewrite material without changing its factual content. Respond with the rewritten material only."
	user := fmt.Sprintf(
		"Rewrite this %s for a learner whose strongest pathway is %s, delivered through the %s modality. "+
			"Profile: analytical=%.2f social=%.2f.\n\n%s",
		in.ContentType, in.DominantPathway, in.Modality, in.Analytical, in.Social, in.Content,
	)

	out, err := e.client.GenerateText(ctx, system, user)
	if err != nil {
		return "", err
	}
	out = strings.TrimSpace(out)
	if out == "" {
		return "", fmt.Errorf("%w: empty personalized content", ErrMalformed)
	}
	return out, nil
}

// extractJSON strips code fences and surrounding prose, returning the
// outermost JSON object in the text. Models occasionally wrap the object
// despite instructions.
func extractJSON(raw string) []byte {
	s := strings.TrimSpace(raw)
	if strings.HasPrefix(s, "```") {
		s = strings.TrimPrefix(s, "```json")
		s = strings.TrimPrefix(s, "```")
		if i := strings.LastIndex(s, "```"); i >= 0 {
			s = s[:i]
		}
		s = strings.TrimSpace(s)
	}
	start := strings.Index(s, "{")
	end := strings.LastIndex(s, "}")
	if start >= 0 && end > start {
		return []byte(s[start : end+1])
	}
	return []byte(s)
}
