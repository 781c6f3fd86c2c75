package cmd

import (
	"context"
	"encoding/json"
	"fmt"
	"log"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"go.uber.org/zap"

	"github.com/spigell/screening-responder/internal/audit"
	"github.com/spigell/screening-responder/internal/candidates"
	"github.com/spigell/screening-responder/internal/intake"
	"github.com/spigell/screening-responder/internal/logger"
	"github.com/spigell/screening-responder/internal/queue"
	"github.com/spigell/screening-responder/internal/screening"
)

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Evaluate a candidates file and route every candidate",
	Run: func(cmd *cobra.Command, _ []string) {
		run(cmd)
	},
}

func init() {
	rootCmd.AddCommand(runCmd)

	runCmd.Flags().StringP("candidates-file", "c", "", "file with extracted criterion score sets. Overrides the config value.")
	runCmd.Flags().Int("workers", 4, "number of concurrent scoring workers")
	runCmd.Flags().Int("compliance-every", 0, "route every Nth auto_proceed case to low-priority review. 0 disables sampling.")
	runCmd.Flags().Bool("dump-results", false, "dump the full evaluation report to a temp file")
	runCmd.Flags().String("exclude-file", "", "file with subject IDs to skip at intake")
	runCmd.Flags().Bool("allow-partial", false, "keep candidates that carry no score for any weighted criterion")

	viper.BindPFlag("candidates-file", runCmd.Flags().Lookup("candidates-file"))
	viper.BindPFlag("exclude-file", runCmd.Flags().Lookup("exclude-file"))
}

// report is the run summary printed after the pipeline finishes.
type report struct {
	Org           string                     `json:"org"`
	ConfigVersion int                        `json:"config_version"`
	Total         int                        `json:"total"`
	ByDecision    map[screening.Decision]int `json:"by_decision"`
	Enqueued      int                        `json:"enqueued_for_review"`
	Results       []*result                  `json:"results"`
}

// run is the main command for the cli.
func run(cmd *cobra.Command) {
	ctx := context.Background()

	logger, err := logger.New(viper.GetBool("json"), viper.GetBool("debug"))
	if err != nil {
		log.Fatalf("creating a logger: %s", err)
	}

	config, err := getConfig()
	if err != nil {
		logger.Fatal("getting a config", zap.Error(err))
	}

	logger.Info("starting the screening-responder", zap.String("version", version))

	// do not bother error since there is a valid parseable config
	pretty, _ := json.MarshalIndent(config, "", "  ")
	logger.Debug(fmt.Sprintf("starting with config: \n %s", pretty))

	cfg, err := buildConfiguration(config)
	if err != nil {
		logger.Fatal("building weight configuration", zap.Error(err))
	}

	candidatesFile := viper.GetString("candidates-file")
	if candidatesFile == "" && config != nil {
		candidatesFile = config.CandidatesFile
	}
	if candidatesFile == "" {
		logger.Fatal("candidates file is required",
			zap.String("hint", "set candidates-file in the configuration file or pass --candidates-file"),
		)
	}

	list, err := candidates.FromFile(candidatesFile)
	if err != nil {
		logger.Fatal("loading candidates", zap.Error(err))
	}

	logger.Info("loaded candidates", zap.Int("count", list.Len()))

	allowPartial, _ := cmd.Flags().GetBool("allow-partial")
	steps := []intake.Filter{
		intake.NewDuplicates(),
		intake.NewExcludeFile(),
		intake.NewComplete(allowPartial),
	}
	list, err = intake.Run(ctx, &intake.Config{
		ExcludeFile: viper.GetString("exclude-file"),
		Required:    cfg.WeightedCriteria(),
	}, intake.Deps{Logger: logger}, steps, list)
	if err != nil {
		logger.Fatal("running intake filters", zap.Error(err))
	}

	if list.Len() == 0 {
		logger.Info("exiting", zap.String("reason", "no candidates found"))
		return
	}

	narrator, err := newNarrator(ctx, config.AI, logger)
	if err != nil {
		logger.Warn("skipping AI narration", zap.Error(err))
	}

	workers, _ := cmd.Flags().GetInt("workers")
	complianceEvery, _ := cmd.Flags().GetInt("compliance-every")

	results, err := evaluateCandidates(ctx, logger, cfg, list, narrator, workers, complianceEvery)
	if err != nil {
		logger.Fatal("evaluating candidates", zap.Error(err))
	}

	sink := audit.NewZapSink(logger)
	manager := queue.NewManager(logger, sink)

	rep := &report{
		Org:           cfg.OrgID,
		ConfigVersion: cfg.Version,
		Total:         len(results),
		ByDecision:    make(map[screening.Decision]int),
		Results:       results,
	}

	for _, r := range results {
		sink.Emit(audit.New(audit.KindEvaluationCompleted, map[string]string{
			"evaluation_id": r.EvaluationID,
			"subject_id":    r.Set.SubjectID,
			"job_id":        r.Set.JobID,
			"decision":      string(r.Decision),
		}))

		rep.ByDecision[r.Decision]++

		if r.Decision != screening.DecisionReview {
			continue
		}

		if _, err := manager.Enqueue(r.EvaluationID, r.Decision, r.Priority); err != nil {
			logger.Fatal("enqueueing review entry", zap.Error(err))
		}
		rep.Enqueued++
	}

	summary, _ := json.MarshalIndent(rep.ByDecision, "", "  ")
	logger.Info(fmt.Sprintf("screening finished: \n%s", summary),
		zap.Int("total", rep.Total),
		zap.Int("enqueued_for_review", rep.Enqueued),
	)

	if dump, _ := cmd.Flags().GetBool("dump-results"); dump {
		filename, err := candidates.DumpToTmpFile(rep)
		if err != nil {
			logger.Fatal("dumping results to file", zap.Error(err))
		}
		logger.Info("dumped results to file", zap.String("filename", filename))
	}
}
