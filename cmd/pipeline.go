package cmd

import (
	"context"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/spigell/screening-responder/internal/ai"
	"github.com/spigell/screening-responder/internal/ai/gemini"
	"github.com/spigell/screening-responder/internal/candidates"
	"github.com/spigell/screening-responder/internal/routing"
	"github.com/spigell/screening-responder/internal/screening"
	"github.com/spigell/screening-responder/internal/secrets"
)

// result carries one candidate through the scoring and routing pipeline.
type result struct {
	EvaluationID string                       `json:"evaluation_id"`
	Set          *screening.CriterionScoreSet `json:"-"`
	Evaluation   *screening.Evaluation        `json:"evaluation"`
	Outcome      routing.Outcome              `json:"-"`
	Decision     screening.Decision           `json:"decision"`
	Priority     screening.Priority           `json:"priority,omitempty"`
	Reason       string                       `json:"reason"`
}

// evaluateCandidates scores every candidate concurrently. Evaluation is a
// pure function, so independent subjects can be processed in parallel; the
// results slice keeps the input order.
func evaluateCandidates(ctx context.Context, logger *zap.Logger, cfg *screening.WeightConfiguration, list *candidates.List, narrator ai.Narrator, workers, complianceEvery int) ([]*result, error) {
	if workers <= 0 {
		workers = 4
	}

	results := make([]*result, list.Len())

	group, ctx := errgroup.WithContext(ctx)
	group.SetLimit(workers)

	proceedSeen := 0
	for i, set := range list.Items {
		group.Go(func() error {
			eval, err := screening.Evaluate(set, cfg)
			if err != nil {
				return fmt.Errorf("evaluating subject %s: %w", set.SubjectID, err)
			}

			results[i] = &result{
				EvaluationID: uuid.NewString(),
				Set:          set,
				Evaluation:   eval,
			}

			return nil
		})
	}

	if err := group.Wait(); err != nil {
		return nil, err
	}

	// Routing runs sequentially: the compliance sampling counter makes the
	// selection deterministic over the input order.
	for _, r := range results {
		sig := routing.Signals{}
		if complianceEvery > 0 {
			probe := routing.Route(r.Evaluation, cfg, routing.Signals{})
			if probe.Decision == screening.DecisionAutoProceed {
				proceedSeen++
				sig.ComplianceSample = proceedSeen%complianceEvery == 0
			}
		}

		r.Outcome = routing.Route(r.Evaluation, cfg, sig)
		r.Evaluation.RoutingDecision = r.Outcome.Decision
		r.Evaluation.Priority = r.Outcome.Priority
		r.Decision = r.Outcome.Decision
		r.Priority = r.Outcome.Priority
		r.Reason = r.Outcome.Reason

		logger.Info("candidate evaluated",
			zap.String("subject_id", r.Set.SubjectID),
			zap.String("job_id", r.Set.JobID),
			zap.Float64("overall_score", r.Evaluation.OverallScore),
			zap.Float64("confidence", r.Evaluation.Confidence),
			zap.String("decision", string(r.Decision)),
			zap.String("reason", r.Reason),
		)
	}

	if narrator != nil {
		narrate(ctx, logger, narrator, results)
	}

	return results, nil
}

// narrate fills in reasoning text for the evaluations. Narration is advisory:
// a failure is logged and the evaluation keeps its structured explanation.
func narrate(ctx context.Context, logger *zap.Logger, narrator ai.Narrator, results []*result) {
	for _, r := range results {
		narrative, err := narrator.Narrate(ctx, r.Evaluation, r.Set)
		if err != nil {
			logger.Warn("narration failed",
				zap.String("subject_id", r.Set.SubjectID),
				zap.Error(err),
			)
			continue
		}
		r.Evaluation.Explanation.ReasoningText = narrative.Text
	}
}

func newNarrator(ctx context.Context, cfg *AIConfig, logger *zap.Logger) (ai.Narrator, error) {
	if cfg == nil || !cfg.Enabled {
		return nil, nil
	}

	provider := strings.TrimSpace(strings.ToLower(cfg.Provider))
	if provider != "" && provider != "gemini" {
		return nil, fmt.Errorf("unsupported ai provider: %s", cfg.Provider)
	}

	if cfg.Gemini == nil {
		return nil, fmt.Errorf("gemini configuration is required when ai narration is enabled")
	}

	apiKey, err := secrets.Load(secrets.Source{
		Name: "gemini api key",
		File: cfg.Gemini.APIKeyFile,
	})
	if err != nil {
		return nil, fmt.Errorf("%w (set ai.gemini.api-key-file)", err)
	}

	generator, err := gemini.NewGenerator(ctx, apiKey, cfg.Gemini.Model)
	if err != nil {
		return nil, err
	}

	return gemini.NewNarrator(generator, logger, cfg.Gemini.MaxRetries, cfg.Gemini.MaxLogLength), nil
}
