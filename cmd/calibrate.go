package cmd

import (
	"encoding/json"
	"fmt"
	"log"
	"os"

	"github.com/manifoldco/promptui"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"go.uber.org/zap"

	"github.com/spigell/screening-responder/internal/audit"
	"github.com/spigell/screening-responder/internal/calibration"
	"github.com/spigell/screening-responder/internal/logger"
)

const (
	PromptYes = "Yes"
	PromptNo  = "No"
)

var calibrateCmd = &cobra.Command{
	Use:   "calibrate",
	Short: "Propose a weight adjustment from the feedback log and apply it after approval",
	Run: func(cmd *cobra.Command, _ []string) {
		calibrate(cmd)
	},
}

func init() {
	rootCmd.AddCommand(calibrateCmd)

	calibrateCmd.Flags().String("feedback-file", "", "feedback log to mine. Overrides the config value.")
	calibrateCmd.Flags().Int("min-sample", 0, "minimum number of decided feedback events required for a proposal")
	calibrateCmd.Flags().String("approver", "", "approver id recorded on the applied configuration version")
	calibrateCmd.Flags().StringP("output", "o", "", "write the applied configuration version to this file")
	calibrateCmd.Flags().BoolP("auto-approve", "y", false, "apply the proposal without asking for confirmation")
}

// calibrate mines the accumulated human resolutions for systematic
// disagreement and, with explicit approval, creates the next configuration
// version. It never rescores past evaluations: prior versions stay intact.
func calibrate(cmd *cobra.Command) {
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

	feedbackFile, _ := cmd.Flags().GetString("feedback-file")
	if feedbackFile == "" && config != nil {
		feedbackFile = config.FeedbackFile
	}
	if feedbackFile == "" {
		logger.Fatal("feedback-file is required",
			zap.String("hint", "set feedback-file in the configuration file or pass --feedback-file"),
		)
	}

	samples, err := calibration.LoadSamples(feedbackFile)
	if err != nil {
		logger.Fatal("loading feedback log", zap.Error(err))
	}

	logger.Info("loaded feedback log",
		zap.String("filename", feedbackFile),
		zap.Int("count", len(samples)),
	)

	minSample, _ := cmd.Flags().GetInt("min-sample")
	loop := calibration.New(logger, minSample)

	proposal, err := loop.Propose(samples, cfg)
	if err != nil {
		logger.Fatal("generating proposal", zap.Error(err))
	}
	if proposal == nil {
		logger.Info("exiting", zap.String("reason", "no adjustment proposed"))
		return
	}

	pretty, _ := json.MarshalIndent(proposal, "", "  ")
	fmt.Printf("proposed adjustment:\n%s\n", pretty)

	if auto, _ := cmd.Flags().GetBool("auto-approve"); !auto {
		prompt := promptui.Select{
			Label: "Apply this adjustment?",
			Items: []string{PromptYes, PromptNo},
		}

		_, action, err := prompt.Run()
		if err != nil {
			logger.Fatal("exiting", zap.Error(err))
		}

		if action == PromptNo {
			logger.Info("exiting", zap.String("reason", "proposal rejected by operator"))
			return
		}
	}

	approver, _ := cmd.Flags().GetString("approver")
	if approver == "" {
		approver = resolveReviewer(cmd, config)
	}

	store := calibration.NewStore(logger, audit.NewZapSink(logger))
	if err := store.Seed(cfg); err != nil {
		logger.Fatal("seeding configuration store", zap.Error(err))
	}

	next, err := store.Apply(proposal, approver)
	if err != nil {
		logger.Fatal("applying proposal", zap.Error(err))
	}

	logger.Info("applied new configuration version",
		zap.Int("version", next.Version),
		zap.String("approved_by", approver),
	)

	output, _ := cmd.Flags().GetString("output")
	if output == "" {
		pretty, _ := json.MarshalIndent(next, "", "  ")
		fmt.Printf("new configuration version:\n%s\n", pretty)
		return
	}

	encoded, err := json.MarshalIndent(next, "", "  ")
	if err != nil {
		logger.Fatal("encoding configuration", zap.Error(err))
	}

	if err := os.WriteFile(output, append(encoded, '\n'), 0o644); err != nil {
		logger.Fatal("writing configuration file", zap.Error(err))
	}

	logger.Info("wrote new configuration version", zap.String("filename", output))
}
