// Package calibration mines accumulated human-vs-automatic disagreement for
// systematic patterns and turns them into bounded, human-approved
// configuration adjustments. Proposal generation is read-only; only the
// separate apply step on the store creates a new configuration version.
package calibration

import (
	"fmt"
	"math"
	"time"

	"go.uber.org/zap"

	"github.com/spigell/screening-responder/internal/queue"
	"github.com/spigell/screening-responder/internal/routing"
	"github.com/spigell/screening-responder/internal/screening"
)

const (
	// DefaultMinSample is the minimum number of non-escalate feedback
	// events required before a proposal is considered.
	DefaultMinSample = 50

	// maxWeightDelta caps the proposed change per criterion per cycle.
	maxWeightDelta = 0.10

	// pressureGain scales correlation-times-disagreement into a weight
	// delta before capping.
	pressureGain = 0.2

	// thresholdStep is the fixed shift applied to a threshold when a
	// systematic score-band bias is detected.
	thresholdStep = 5.0

	// bandBias is the override fraction treated as a one-directional
	// review-band bias.
	bandBias = 0.7
)

// Sample joins one feedback event with the criterion scores and evaluation
// figures it was produced from. The persistence collaborator performs the
// join; the loop itself never reads storage.
type Sample struct {
	Event        queue.FeedbackEvent `json:"event" mapstructure:"event"`
	Scores       map[string]float64  `json:"scores" mapstructure:"scores"`
	OverallScore float64             `json:"overall_score" mapstructure:"overall_score"`
	Confidence   float64             `json:"confidence" mapstructure:"confidence"`

	// ConfigVersion is the configuration version the evaluation was made
	// under. Only samples from the active version feed a proposal.
	ConfigVersion int `json:"config_version" mapstructure:"config_version"`
}

// Proposal is a bounded configuration adjustment awaiting explicit approval.
// It never applies itself.
type Proposal struct {
	OrgID       string `json:"org_id"`
	BaseVersion int    `json:"base_version"`

	WeightDeltas       map[string]float64   `json:"weight_deltas"`
	ProposedWeights    map[string]float64   `json:"proposed_weights"`
	ProposedThresholds screening.Thresholds `json:"proposed_thresholds"`
	Rationale          map[string]string    `json:"rationale"`

	SampleSize             int     `json:"sample_size"`
	DisagreementRate       float64 `json:"disagreement_rate"`
	CurrentAgreementRate   float64 `json:"current_agreement_rate"`
	PredictedAgreementRate float64 `json:"predicted_agreement_rate"`

	CreatedAt time.Time `json:"created_at"`
}

// PredictedImpact is the projected change in agreement rate under the
// proposed configuration, from replaying the sample.
func (p *Proposal) PredictedImpact() float64 {
	return p.PredictedAgreementRate - p.CurrentAgreementRate
}

// Loop analyzes feedback snapshots. It holds no mutable state and may run
// concurrently with live evaluation.
type Loop struct {
	logger    *zap.Logger
	minSample int
}

// New builds a calibration loop. A non-positive minSample selects
// DefaultMinSample.
func New(logger *zap.Logger, minSample int) *Loop {
	if minSample <= 0 {
		minSample = DefaultMinSample
	}

	return &Loop{logger: logger, minSample: minSample}
}

// Propose inspects the sample snapshot against the active configuration and
// returns an adjustment proposal, or nil when the precondition is not met or
// no adjustment would improve agreement. A nil proposal is the expected
// no-op outcome, not an error.
func (l *Loop) Propose(samples []Sample, cfg *screening.WeightConfiguration) (*Proposal, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	decided := decidedSamples(samples, cfg.Version)
	if len(decided) < l.minSample {
		l.logger.Info("insufficient feedback sample for the active configuration version",
			zap.Int("config_version", cfg.Version),
			zap.Int("decided", len(decided)),
			zap.Int("required", l.minSample),
		)
		return nil, nil
	}

	disagreements := 0
	for _, s := range decided {
		if s.Event.Disagreement {
			disagreements++
		}
	}
	rate := float64(disagreements) / float64(len(decided))

	if disagreements == 0 {
		l.logger.Info("no disagreement recorded, keeping configuration",
			zap.Int("sample_size", len(decided)),
		)
		return nil, nil
	}

	proposal := &Proposal{
		OrgID:            cfg.OrgID,
		BaseVersion:      cfg.Version,
		WeightDeltas:     make(map[string]float64, len(cfg.Weights)),
		ProposedWeights:  make(map[string]float64, len(cfg.Weights)),
		Rationale:        make(map[string]string),
		SampleSize:       len(decided),
		DisagreementRate: rate,
		CreatedAt:        time.Now().UTC(),
	}

	for _, name := range cfg.WeightedCriteria() {
		corr := approvalCorrelation(decided, name)
		delta := clampDelta(corr * rate * pressureGain)
		proposal.WeightDeltas[name] = delta
		proposal.ProposedWeights[name] = math.Max(cfg.Weights[name]+delta, 0)

		switch {
		case delta > 0:
			proposal.Rationale[name] = fmt.Sprintf(
				"high %s scores correlate with human approval (corr %.2f), weight pressure +%.3f", name, corr, delta)
		case delta < 0:
			proposal.Rationale[name] = fmt.Sprintf(
				"high %s scores correlate with human rejection (corr %.2f), weight pressure %.3f", name, corr, delta)
		}
	}

	normalizeWeights(proposal.ProposedWeights)
	proposal.ProposedThresholds = proposeThresholds(decided, cfg.Thresholds, proposal.Rationale)

	proposal.CurrentAgreementRate = recordedAgreement(decided)
	proposal.PredictedAgreementRate = replayAgreement(decided, cfg, proposal)

	if proposal.PredictedImpact() < 0 {
		l.logger.Info("discarding proposal, replay predicts lower agreement",
			zap.Float64("current", proposal.CurrentAgreementRate),
			zap.Float64("predicted", proposal.PredictedAgreementRate),
		)
		return nil, nil
	}

	l.logger.Info("adjustment proposal generated",
		zap.Int("sample_size", proposal.SampleSize),
		zap.Float64("disagreement_rate", rate),
		zap.Float64("predicted_impact", proposal.PredictedImpact()),
	)

	return proposal, nil
}

// decidedSamples keeps the feedback accumulated since the given configuration
// version became active and drops escalations: they defer the decision and
// carry no disagreement signal. Feedback from superseded versions reflects
// decisions the previous adjustment already answered for.
func decidedSamples(samples []Sample, configVersion int) []Sample {
	out := make([]Sample, 0, len(samples))
	for _, s := range samples {
		if s.ConfigVersion != configVersion {
			continue
		}
		if s.Event.HumanDecision == queue.ResolutionEscalate {
			continue
		}
		out = append(out, s)
	}

	return out
}

// approvalCorrelation is the Pearson correlation between the criterion score
// and the human approve/reject outcome, independent of the current weight.
func approvalCorrelation(samples []Sample, criterion string) float64 {
	n := 0.0
	var sumX, sumY, sumXX, sumYY, sumXY float64

	for _, s := range samples {
		score, ok := s.Scores[criterion]
		if !ok {
			continue
		}
		y := 0.0
		if s.Event.HumanDecision == queue.ResolutionApprove {
			y = 1.0
		}
		n++
		sumX += score
		sumY += y
		sumXX += score * score
		sumYY += y * y
		sumXY += score * y
	}

	if n < 2 {
		return 0
	}

	varX := sumXX - sumX*sumX/n
	varY := sumYY - sumY*sumY/n
	if varX <= 0 || varY <= 0 {
		return 0
	}

	return (sumXY - sumX*sumY/n) / math.Sqrt(varX*varY)
}

func clampDelta(delta float64) float64 {
	return math.Max(math.Min(delta, maxWeightDelta), -maxWeightDelta)
}

func normalizeWeights(weights map[string]float64) {
	sum := 0.0
	for _, w := range weights {
		sum += w
	}
	if sum <= 0 {
		return
	}
	for name := range weights {
		weights[name] /= sum
	}
}

// proposeThresholds shifts thresholds when overrides pile up in one
// direction: human approvals of automatic rejections lower the reject bar,
// the reverse raises the proceed bar, and a one-sided review band moves the
// band edges toward the overrides.
func proposeThresholds(samples []Sample, current screening.Thresholds, rationale map[string]string) screening.Thresholds {
	proposed := current

	rejectOverrides := 0
	proceedOverrides := 0
	disagreements := 0
	bandApprovals := 0
	bandRejections := 0

	for _, s := range samples {
		if s.Event.Disagreement {
			disagreements++
			if s.Event.AutomaticDecision == screening.DecisionAutoReject && s.Event.HumanDecision == queue.ResolutionApprove {
				rejectOverrides++
			}
			if s.Event.AutomaticDecision == screening.DecisionAutoProceed && s.Event.HumanDecision == queue.ResolutionReject {
				proceedOverrides++
			}
		}

		if s.OverallScore >= current.ReviewBandLow && s.OverallScore < current.ReviewBandHigh {
			switch s.Event.HumanDecision {
			case queue.ResolutionApprove:
				bandApprovals++
			case queue.ResolutionReject:
				bandRejections++
			}
		}
	}

	if disagreements > 0 && float64(rejectOverrides)/float64(disagreements) > 0.5 {
		proposed.AutoRejectScore = math.Max(current.AutoRejectScore-thresholdStep, 0)
		rationale["auto_reject_score"] = fmt.Sprintf(
			"%d of %d disagreements are approvals of automatic rejections", rejectOverrides, disagreements)
	}

	if disagreements > 0 && float64(proceedOverrides)/float64(disagreements) > 0.5 {
		proposed.AutoProceedScore = math.Min(current.AutoProceedScore+thresholdStep, screening.MaxScore)
		rationale["auto_proceed_score"] = fmt.Sprintf(
			"%d of %d disagreements are rejections of automatic proceeds", proceedOverrides, disagreements)
	}

	bandTotal := bandApprovals + bandRejections
	if bandTotal > 0 {
		approveShare := float64(bandApprovals) / float64(bandTotal)
		switch {
		case approveShare >= bandBias:
			proposed.ReviewBandLow = math.Max(current.ReviewBandLow-thresholdStep, 0)
			proposed.ReviewBandHigh = math.Max(current.ReviewBandHigh-thresholdStep, proposed.ReviewBandLow)
			rationale["review_band"] = fmt.Sprintf(
				"%d of %d review-band resolutions are approvals, shifting band down", bandApprovals, bandTotal)
		case approveShare <= 1-bandBias:
			proposed.ReviewBandHigh = math.Min(current.ReviewBandHigh+thresholdStep, screening.MaxScore)
			proposed.ReviewBandLow = math.Min(current.ReviewBandLow+thresholdStep, proposed.ReviewBandHigh)
			rationale["review_band"] = fmt.Sprintf(
				"%d of %d review-band resolutions are rejections, shifting band up", bandRejections, bandTotal)
		}
	}

	return proposed
}

// recordedAgreement is the agreement rate of the decisions as they were
// actually made.
func recordedAgreement(samples []Sample) float64 {
	agreed := 0
	for _, s := range samples {
		if agrees(s.Event.AutomaticDecision, s.Event.HumanDecision) {
			agreed++
		}
	}

	return float64(agreed) / float64(len(samples))
}

// replayAgreement re-scores the sample under the proposed configuration and
// measures how often the replayed decision matches the human one. The replay
// uses the weighted sum only: rule effects and bonuses need raw signals the
// feedback log does not carry.
func replayAgreement(samples []Sample, cfg *screening.WeightConfiguration, proposal *Proposal) float64 {
	replayCfg := cfg.Clone()
	replayCfg.Weights = proposal.ProposedWeights
	replayCfg.Thresholds = proposal.ProposedThresholds

	agreed := 0
	for _, s := range samples {
		score := 0.0
		for name, weight := range replayCfg.Weights {
			score += weight * s.Scores[name]
		}

		eval := &screening.Evaluation{
			OverallScore: math.Min(score, screening.MaxScore),
			Confidence:   s.Confidence,
		}
		outcome := routing.Route(eval, replayCfg, routing.Signals{})

		if agrees(outcome.Decision, s.Event.HumanDecision) {
			agreed++
		}
	}

	return float64(agreed) / float64(len(samples))
}

// agrees applies the decision-compatibility mapping: approve matches
// auto_proceed, reject matches auto_reject. A review decision defers to a
// human and counts as neither.
func agrees(automatic screening.Decision, human queue.Resolution) bool {
	switch human {
	case queue.ResolutionApprove:
		return automatic == screening.DecisionAutoProceed
	case queue.ResolutionReject:
		return automatic == screening.DecisionAutoReject
	default:
		return false
	}
}
