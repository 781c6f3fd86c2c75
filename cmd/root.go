package cmd

import (
	"errors"
	"log"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/spigell/screening-responder/internal/screening"
)

const (
	app = "screening-responder"
)

var errMissingOrg = errors.New("org is required in the configuration file")

type Config struct {
	Org            string           `mapstructure:"org"`
	CandidatesFile string           `mapstructure:"candidates-file"`
	FeedbackFile   string           `mapstructure:"feedback-file"`
	Reviewer       string           `mapstructure:"reviewer"`
	Screening      *ScreeningConfig `mapstructure:"screening"`
	AI             *AIConfig        `mapstructure:"ai"`
}

type ScreeningConfig struct {
	Version    int                    `mapstructure:"version"`
	Weights    map[string]float64     `mapstructure:"weights"`
	Rules      []screening.CustomRule `mapstructure:"rules"`
	Thresholds *ThresholdsConfig      `mapstructure:"thresholds"`
}

type ThresholdsConfig struct {
	AutoProceedScore         float64 `mapstructure:"auto-proceed-score"`
	AutoProceedMinConfidence float64 `mapstructure:"auto-proceed-min-confidence"`
	AutoRejectScore          float64 `mapstructure:"auto-reject-score"`
	AutoRejectMinConfidence  float64 `mapstructure:"auto-reject-min-confidence"`
	ReviewBandLow            float64 `mapstructure:"review-band-low"`
	ReviewBandHigh           float64 `mapstructure:"review-band-high"`
}

type AIConfig struct {
	Enabled  bool          `mapstructure:"enabled"`
	Provider string        `mapstructure:"provider"`
	Gemini   *GeminiConfig `mapstructure:"gemini"`
}

type GeminiConfig struct {
	APIKeyFile   string `mapstructure:"api-key-file"`
	Model        string `mapstructure:"model"`
	MaxRetries   int    `mapstructure:"max-retries"`
	MaxLogLength int    `mapstructure:"max-log-length"`
}

var (
	// Used for flags.
	cfgFile string

	rootCmd = &cobra.Command{
		Use:   app,
		Short: "screening-responder scores applicant criterion sets, routes borderline cases to human review and calibrates its weights from reviewer overrides",
	}
)

// Execute executes the root command.
func Execute() error {
	return rootCmd.Execute()
}

func init() {
	if err := viper.BindEnv("candidates-file", "SCREENING_CANDIDATES_FILE"); err != nil {
		log.Fatalf("binding SCREENING_CANDIDATES_FILE environment variable: %v", err)
	}

	cobra.OnInitialize(initConfig)

	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "a config file (default is screening-responder.yaml in current directory)")
	rootCmd.PersistentFlags().BoolP("debug", "d", false, "verbose/debug output")
	rootCmd.PersistentFlags().BoolP("json", "j", false, "json format for logging")

	viper.BindPFlag("debug", rootCmd.PersistentFlags().Lookup("debug"))
	viper.BindPFlag("json", rootCmd.PersistentFlags().Lookup("json"))
}

func initConfig() {
	// Config is needed only for the evaluating and calibrating commands.
	// If none of them is being called, we can skip initialization.
	if runCmd.CalledAs() == "" && reviewCmd.CalledAs() == "" && calibrateCmd.CalledAs() == "" {
		return
	}

	if cfgFile != "" {
		viper.SetConfigFile(cfgFile)
	} else {
		viper.AddConfigPath(".")
		viper.SetConfigName(app + ".yaml")
	}

	// We can't proceed if the config file parsed with error.
	if err := viper.ReadInConfig(); err != nil {
		log.Fatal(err)
	}
}

func getConfig() (*Config, error) {
	var config *Config
	err := viper.Unmarshal(&config)
	if err != nil {
		return config, err
	}

	return config, nil
}

// buildConfiguration turns the file configuration into a validated weight
// configuration, starting from the org onboarding defaults.
func buildConfiguration(config *Config) (*screening.WeightConfiguration, error) {
	if config == nil || config.Org == "" {
		return nil, errMissingOrg
	}

	cfg := screening.DefaultConfiguration(config.Org)

	if sc := config.Screening; sc != nil {
		if sc.Version > 0 {
			cfg.Version = sc.Version
		}
		if len(sc.Weights) > 0 {
			cfg.Weights = sc.Weights
		}
		if len(sc.Rules) > 0 {
			cfg.CustomRules = sc.Rules
		}
		if t := sc.Thresholds; t != nil {
			cfg.Thresholds = screening.Thresholds{
				AutoProceedScore:         t.AutoProceedScore,
				AutoProceedMinConfidence: t.AutoProceedMinConfidence,
				AutoRejectScore:          t.AutoRejectScore,
				AutoRejectMinConfidence:  t.AutoRejectMinConfidence,
				ReviewBandLow:            t.ReviewBandLow,
				ReviewBandHigh:           t.ReviewBandHigh,
			}
		}
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}
