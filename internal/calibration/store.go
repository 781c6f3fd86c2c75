package calibration

import (
	"errors"
	"fmt"
	"sort"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/spigell/screening-responder/internal/audit"
	"github.com/spigell/screening-responder/internal/screening"
)

var (
	// ErrStaleProposal is returned when the configuration version moved on
	// after the proposal was generated. The caller must re-fetch and
	// re-propose; the store never merges concurrent proposals.
	ErrStaleProposal = errors.New("proposal is based on a superseded configuration version")

	ErrUnknownOrg = errors.New("unknown organization")
)

// Store keeps one current configuration per organization plus the full
// append-only version history. Returned configurations are clones: history
// is immutable once written.
type Store struct {
	mu sync.Mutex

	logger *zap.Logger
	sink   audit.Sink

	byOrg map[string][]*screening.WeightConfiguration
}

func NewStore(logger *zap.Logger, sink audit.Sink) *Store {
	if sink == nil {
		sink = audit.NopSink{}
	}

	return &Store{
		logger: logger,
		sink:   sink,
		byOrg:  make(map[string][]*screening.WeightConfiguration),
	}
}

// Seed registers an externally supplied configuration as the current version
// for its organization. It refuses to rewind history.
func (s *Store) Seed(cfg *screening.WeightConfiguration) error {
	if err := cfg.Validate(); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	history := s.byOrg[cfg.OrgID]
	if len(history) > 0 && history[len(history)-1].Version >= cfg.Version {
		return fmt.Errorf("version %d is not newer than current version %d for org %s",
			cfg.Version, history[len(history)-1].Version, cfg.OrgID)
	}

	s.byOrg[cfg.OrgID] = append(history, cfg.Clone())

	return nil
}

// Bootstrap returns the current configuration for the organization, creating
// the default onboarding version when none exists.
func (s *Store) Bootstrap(orgID string) *screening.WeightConfiguration {
	s.mu.Lock()
	defer s.mu.Unlock()

	history := s.byOrg[orgID]
	if len(history) == 0 {
		cfg := screening.DefaultConfiguration(orgID)
		s.byOrg[orgID] = []*screening.WeightConfiguration{cfg}
		s.logger.Info("bootstrapped default configuration",
			zap.String("org_id", orgID),
			zap.Int("version", cfg.Version),
		)
		return cfg.Clone()
	}

	return history[len(history)-1].Clone()
}

// Current returns the active configuration version for the organization.
func (s *Store) Current(orgID string) (*screening.WeightConfiguration, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	history := s.byOrg[orgID]
	if len(history) == 0 {
		return nil, fmt.Errorf("%w: %s", ErrUnknownOrg, orgID)
	}

	return history[len(history)-1].Clone(), nil
}

// History returns every configuration version, oldest first.
func (s *Store) History(orgID string) []*screening.WeightConfiguration {
	s.mu.Lock()
	defer s.mu.Unlock()

	history := s.byOrg[orgID]
	out := make([]*screening.WeightConfiguration, 0, len(history))
	for _, cfg := range history {
		out = append(out, cfg.Clone())
	}

	sort.Slice(out, func(i, j int) bool { return out[i].Version < out[j].Version })

	return out
}

// Apply turns an approved proposal into the next configuration version. The
// base version is checked under the store lock: of two concurrent applies on
// the same base, exactly one succeeds and the other gets ErrStaleProposal.
// Prior versions and the evaluations made under them are left untouched.
func (s *Store) Apply(proposal *Proposal, approverID string) (*screening.WeightConfiguration, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	history := s.byOrg[proposal.OrgID]
	if len(history) == 0 {
		return nil, fmt.Errorf("%w: %s", ErrUnknownOrg, proposal.OrgID)
	}

	current := history[len(history)-1]
	if current.Version != proposal.BaseVersion {
		return nil, fmt.Errorf("%w: proposal base %d, current %d",
			ErrStaleProposal, proposal.BaseVersion, current.Version)
	}

	next := current.Clone()
	next.Version = current.Version + 1
	next.Weights = make(map[string]float64, len(proposal.ProposedWeights))
	for name, weight := range proposal.ProposedWeights {
		next.Weights[name] = weight
	}
	next.Thresholds = proposal.ProposedThresholds
	next.CreatedAt = time.Now().UTC()
	next.ApprovedBy = approverID

	if err := next.Validate(); err != nil {
		return nil, err
	}

	s.byOrg[proposal.OrgID] = append(history, next)

	s.logger.Info("applied configuration adjustment",
		zap.String("org_id", proposal.OrgID),
		zap.Int("version", next.Version),
		zap.String("approved_by", approverID),
	)
	s.sink.Emit(audit.New(audit.KindConfigApplied, map[string]string{
		"org_id":      proposal.OrgID,
		"version":     fmt.Sprintf("%d", next.Version),
		"approved_by": approverID,
	}))

	return next.Clone(), nil
}
