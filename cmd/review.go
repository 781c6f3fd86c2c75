package cmd

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"

	"github.com/manifoldco/promptui"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"go.uber.org/zap"

	"github.com/spigell/screening-responder/internal/audit"
	"github.com/spigell/screening-responder/internal/calibration"
	"github.com/spigell/screening-responder/internal/candidates"
	"github.com/spigell/screening-responder/internal/logger"
	"github.com/spigell/screening-responder/internal/queue"
	"github.com/spigell/screening-responder/internal/screening"
)

const (
	PromptApprove  = "Approve"
	PromptReject   = "Reject"
	PromptEscalate = "Escalate"
	PromptDefer    = "Defer outside the queue"
	PromptQuit     = "Quit"
)

var errReviewDone = errors.New("review session finished")

var reviewCmd = &cobra.Command{
	Use:   "review",
	Short: "Work through the review queue interactively, highest priority first",
	Run: func(cmd *cobra.Command, _ []string) {
		review(cmd)
	},
}

func init() {
	rootCmd.AddCommand(reviewCmd)

	reviewCmd.Flags().StringP("reviewer", "r", "", "reviewer id recorded on resolutions. Overrides the config value.")
	reviewCmd.Flags().String("feedback-file", "", "feedback log the resolutions are appended to. Overrides the config value.")
}

// review evaluates the candidates file, fills the queue and serves it to the
// human reviewer one entry at a time. Every resolution is appended to the
// feedback log that feeds the calibrate command.
func review(cmd *cobra.Command) {
	ctx := context.Background()

	logger, err := logger.New(viper.GetBool("json"), viper.GetBool("debug"))
	if err != nil {
		log.Fatalf("creating a logger: %s", err)
	}

	config, err := getConfig()
	if err != nil {
		logger.Fatal("getting a config", zap.Error(err))
	}

	cfg, err := buildConfiguration(config)
	if err != nil {
		logger.Fatal("building weight configuration", zap.Error(err))
	}

	candidatesFile := viper.GetString("candidates-file")
	if candidatesFile == "" && config != nil {
		candidatesFile = config.CandidatesFile
	}
	if candidatesFile == "" {
		logger.Fatal("candidates file is required")
	}

	list, err := candidates.FromFile(candidatesFile)
	if err != nil {
		logger.Fatal("loading candidates", zap.Error(err))
	}

	results, err := evaluateCandidates(ctx, logger, cfg, list, nil, 0, 0)
	if err != nil {
		logger.Fatal("evaluating candidates", zap.Error(err))
	}

	manager := queue.NewManager(logger, audit.NewZapSink(logger))
	byEvaluation := make(map[string]*result, len(results))

	for _, r := range results {
		if r.Decision != screening.DecisionReview {
			continue
		}
		if _, err := manager.Enqueue(r.EvaluationID, r.Decision, r.Priority); err != nil {
			logger.Fatal("enqueueing review entry", zap.Error(err))
		}
		byEvaluation[r.EvaluationID] = r
	}

	if manager.Len() == 0 {
		logger.Info("exiting", zap.String("reason", "nothing routed to review"))
		return
	}

	reviewer := resolveReviewer(cmd, config)

	feedbackFile, _ := cmd.Flags().GetString("feedback-file")
	if feedbackFile == "" && config != nil {
		feedbackFile = config.FeedbackFile
	}
	if feedbackFile == "" {
		logger.Warn("feedback-file is not configured, resolutions are not persisted for calibration")
	}

	logger.Info("starting review session",
		zap.String("reviewer", reviewer),
		zap.Int("pending", manager.Len()),
	)

	appended := 0
	for {
		entry, ok := manager.Next()
		if !ok {
			logger.Info("review queue drained")
			break
		}

		sample, err := serveEntry(manager, entry, byEvaluation[entry.EvaluationID], reviewer)
		if err != nil {
			if errors.Is(err, errReviewDone) {
				break
			}
			logger.Fatal("serving review entry", zap.Error(err))
		}
		if sample == nil || feedbackFile == "" {
			continue
		}

		// Append every resolution as it is made: an aborted session must not
		// lose the resolutions that already happened.
		if err := calibration.AppendSamples(feedbackFile, []calibration.Sample{*sample}); err != nil {
			logger.Fatal("appending to feedback log", zap.Error(err))
		}
		appended++
	}

	if appended > 0 {
		logger.Info("appended resolutions to feedback log",
			zap.String("filename", feedbackFile),
			zap.Int("count", appended),
		)
	}
}

// serveEntry shows one queue entry and walks the reviewer through the state
// machine: assign, optionally escalate, then resolve.
func serveEntry(manager *queue.Manager, entry *queue.Entry, r *result, reviewer string) (*calibration.Sample, error) {
	if r == nil {
		return nil, fmt.Errorf("no evaluation tracked for entry %s", entry.ID)
	}

	pretty, _ := json.MarshalIndent(r.Evaluation, "", "  ")
	fmt.Printf("\n[%s] evaluation %s:\n%s\n", entry.Priority, entry.EvaluationID, pretty)

	prompt := promptui.Select{
		Label: "Decision",
		Items: []string{PromptApprove, PromptReject, PromptEscalate, PromptQuit},
	}

	_, action, err := prompt.Run()
	if err != nil {
		return nil, err
	}

	if action == PromptQuit {
		return nil, errReviewDone
	}

	if _, err := manager.Assign(entry.ID, reviewer); err != nil {
		return nil, err
	}

	resolution := queue.ResolutionApprove
	switch action {
	case PromptReject:
		resolution = queue.ResolutionReject
	case PromptEscalate:
		if _, err := manager.Escalate(entry.ID); err != nil {
			return nil, err
		}

		escalatePrompt := promptui.Select{
			Label: "Escalated. Final decision",
			Items: []string{PromptApprove, PromptReject, PromptDefer},
		}
		_, final, err := escalatePrompt.Run()
		if err != nil {
			return nil, err
		}

		switch final {
		case PromptReject:
			resolution = queue.ResolutionReject
		case PromptDefer:
			resolution = queue.ResolutionEscalate
		}
	}

	notesPrompt := promptui.Prompt{Label: "Notes"}
	notes, err := notesPrompt.Run()
	if err != nil {
		return nil, err
	}

	event, err := manager.Resolve(entry.ID, reviewer, resolution, notes)
	if err != nil {
		return nil, err
	}

	return &calibration.Sample{
		Event:         *event,
		Scores:        r.Set.Scores,
		OverallScore:  r.Evaluation.OverallScore,
		Confidence:    r.Evaluation.Confidence,
		ConfigVersion: r.Evaluation.ConfigVersion,
	}, nil
}

func resolveReviewer(cmd *cobra.Command, config *Config) string {
	reviewer, _ := cmd.Flags().GetString("reviewer")
	if reviewer == "" && config != nil {
		reviewer = config.Reviewer
	}
	if reviewer == "" {
		reviewer = "anonymous"
	}

	return reviewer
}
