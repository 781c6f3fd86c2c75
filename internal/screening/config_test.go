package screening

import (
	"errors"
	"testing"
)

func TestDefaultConfigurationIsValid(t *testing.T) {
	cfg := DefaultConfiguration("acme")

	if err := cfg.Validate(); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if cfg.Version != 1 {
		t.Fatalf("expected onboarding version 1, got %d", cfg.Version)
	}
}

func TestValidateWeightSumTolerance(t *testing.T) {
	cfg := DefaultConfiguration("acme")
	cfg.Weights[CriterionSkills] += 5e-7

	if err := cfg.Validate(); err != nil {
		t.Fatalf("deviation within tolerance rejected: %v", err)
	}

	cfg.Weights[CriterionSkills] += 1e-3
	if err := cfg.Validate(); !errors.Is(err, ErrInvalidConfiguration) {
		t.Fatalf("expected ErrInvalidConfiguration, got %v", err)
	}
}

func TestValidateRejectsNegativeWeight(t *testing.T) {
	cfg := DefaultConfiguration("acme")
	cfg.Weights[CriterionSkills] = -0.30
	cfg.Weights[CriterionExperience] = 0.95

	if err := cfg.Validate(); !errors.Is(err, ErrInvalidConfiguration) {
		t.Fatalf("expected ErrInvalidConfiguration, got %v", err)
	}
}

func TestValidateRejectsKeywordRuleWithoutKeyword(t *testing.T) {
	cfg := DefaultConfiguration("acme")
	cfg.CustomRules = []CustomRule{{Kind: RulePreferredKeyword}}

	if err := cfg.Validate(); !errors.Is(err, ErrInvalidConfiguration) {
		t.Fatalf("expected ErrInvalidConfiguration, got %v", err)
	}
}

func TestCloneIsIndependent(t *testing.T) {
	cfg := DefaultConfiguration("acme")
	cfg.CustomRules = []CustomRule{
		{Kind: RuleDealBreaker, Criterion: CriterionExperience, Threshold: 30},
	}

	clone := cfg.Clone()
	clone.Weights[CriterionSkills] = 0.99
	clone.CustomRules[0].Threshold = 99

	if cfg.Weights[CriterionSkills] == 0.99 {
		t.Fatalf("clone shares the weights map")
	}
	if cfg.CustomRules[0].Threshold == 99 {
		t.Fatalf("clone shares the rules slice")
	}
}
