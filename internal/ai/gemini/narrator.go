package gemini

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"
	"unicode/utf8"

	_ "embed"

	"go.uber.org/zap"

	"github.com/spigell/screening-responder/internal/ai"
	"github.com/spigell/screening-responder/internal/logger"
	"github.com/spigell/screening-responder/internal/screening"
	"github.com/spigell/screening-responder/internal/utils"
)

type contentGenerator interface {
	GenerateContent(ctx context.Context, prompt string) (string, error)
	Model() string
}

// Narrator generates recruiter-facing reasoning text for evaluations.
type Narrator struct {
	generator  contentGenerator
	log        *zap.Logger
	maxLogLen  int
	maxRetries int
	retryDelay time.Duration
}

//go:embed prompt.md
var promptTemplate string

const (
	defaultMaxLogLength = 200
	defaultRetryDelay   = 2 * time.Second
)

func NewNarrator(generator contentGenerator, log *zap.Logger, maxRetries, maxLogLength int) *Narrator {
	if maxLogLength <= 0 {
		maxLogLength = defaultMaxLogLength
	}

	return &Narrator{
		generator:  generator,
		log:        logger.WithCommonFields(log, "gemini", generator.Model()),
		maxLogLen:  maxLogLength,
		maxRetries: maxRetries,
		retryDelay: defaultRetryDelay,
	}
}

// Narrate asks the model to write short reasoning prose for the evaluation.
// The result is advisory text only: scores, confidence and routing are
// already final when this runs.
func (n *Narrator) Narrate(ctx context.Context, eval *screening.Evaluation, set *screening.CriterionScoreSet) (*ai.Narrative, error) {
	if eval == nil {
		return nil, fmt.Errorf("evaluation is required")
	}
	if set == nil {
		return nil, fmt.Errorf("criterion score set is required")
	}

	evalJSON, err := json.MarshalIndent(eval, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("marshal evaluation payload: %w", err)
	}

	signalsJSON, err := json.MarshalIndent(set.RawSignals, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("marshal raw signals payload: %w", err)
	}

	prompt := buildPrompt(string(evalJSON), string(signalsJSON))

	n.log.Debug("gemini narrate request",
		zap.String("subject_id", eval.SubjectID),
		zap.Int("prompt_length", utf8.RuneCountInString(prompt)),
		zap.String("prompt_preview", logger.TruncateForLog(prompt, n.maxLogLen)),
	)

	raw, err := n.generate(ctx, prompt)
	if err != nil {
		return nil, err
	}

	n.log.Debug("gemini narrate response",
		zap.String("subject_id", eval.SubjectID),
		zap.String("response_preview", logger.TruncateForLog(raw, n.maxLogLen)),
	)

	return &ai.Narrative{Text: strings.TrimSpace(raw), Raw: raw}, nil
}

func (n *Narrator) generate(ctx context.Context, prompt string) (string, error) {
	var lastErr error

	attempts := n.maxRetries + 1
	for attempt := 0; attempt < attempts; attempt++ {
		if attempt > 0 {
			n.log.Debug("retrying gemini request", zap.Int("attempt", attempt))
			if err := utils.WaitFor(ctx, n.retryDelay); err != nil {
				return "", err
			}
		}

		raw, err := n.generator.GenerateContent(ctx, prompt)
		if err == nil {
			return raw, nil
		}
		lastErr = err
	}

	return "", fmt.Errorf("gemini narration failed after %d attempts: %w", attempts, lastErr)
}

func buildPrompt(evalJSON, signalsJSON string) string {
	template := promptTemplate
	if strings.TrimSpace(template) == "" {
		template = "Evaluation:\n{{EVALUATION_JSON}}\n\nSignals:\n{{SIGNALS_JSON}}\n\nReasoning:"
	}
	prompt := strings.ReplaceAll(template, "{{EVALUATION_JSON}}", evalJSON)
	prompt = strings.ReplaceAll(prompt, "{{SIGNALS_JSON}}", signalsJSON)
	return prompt
}
