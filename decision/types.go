package decision

import (
	"encoding/json"

	"github.com/rotisserie/eris"
)

// ErrInvalid is wrapped by every decision validation failure.
var ErrInvalid = eris.New("decision: invalid value")

// BlockerID names a decision blocker rule.
type BlockerID string

const (
	BlockerMissingPricing      BlockerID = "missing_pricing"
	BlockerWeakTrustSignals    BlockerID = "weak_trust_signals"
	BlockerCTANotDetected      BlockerID = "cta_not_detected"
	BlockerCTABelowFold        BlockerID = "cta_below_fold"
	BlockerMissingHeroHeadline BlockerID = "missing_hero_headline"
)

func (id BlockerID) Valid() bool {
	switch id {
	case BlockerMissingPricing, BlockerWeakTrustSignals, BlockerCTANotDetected,
		BlockerCTABelowFold, BlockerMissingHeroHeadline:
		return true
	}
	return false
}

func (id *BlockerID) UnmarshalText(b []byte) error {
	v := BlockerID(b)
	if !v.Valid() {
		return eris.Wrapf(ErrInvalid, "blocker id %q", string(b))
	}
	*id = v
	return nil
}

// Severity is the coarse urgency bucket of a blocker.
type Severity string

const (
	SeverityLow    Severity = "low"
	SeverityMedium Severity = "medium"
	SeverityHigh   Severity = "high"
)

func (s Severity) Valid() bool {
	return s == SeverityLow || s == SeverityMedium || s == SeverityHigh
}

func (s *Severity) UnmarshalText(b []byte) error {
	v := Severity(b)
	if !v.Valid() {
		return eris.Wrapf(ErrInvalid, "severity %q", string(b))
	}
	*s = v
	return nil
}

// DecisionBlocker is one triggered rule.
type DecisionBlocker struct {
	ID         BlockerID      `json:"id" yaml:"id"`
	Severity   Severity       `json:"severity" yaml:"severity"`
	Confidence float64        `json:"confidence" yaml:"confidence"`
	Evidence   []string       `json:"evidence" yaml:"evidence"`
	Metrics    map[string]any `json:"metrics" yaml:"metrics"`
}

// NewBlocker validates its arguments and returns a blocker.
func NewBlocker(id BlockerID, severity Severity, confidence float64, evidence []string, metrics map[string]any) (DecisionBlocker, error) {
	b := DecisionBlocker{ID: id, Severity: severity, Confidence: confidence, Evidence: evidence, Metrics: metrics}
	if b.Evidence == nil {
		b.Evidence = []string{}
	}
	if b.Metrics == nil {
		b.Metrics = map[string]any{}
	}
	return b, b.Validate()
}

func (b DecisionBlocker) Validate() error {
	if !b.ID.Valid() {
		return eris.Wrapf(ErrInvalid, "blocker id %q", string(b.ID))
	}
	if !b.Severity.Valid() {
		return eris.Wrapf(ErrInvalid, "blocker %s severity %q", b.ID, string(b.Severity))
	}
	if !unit(b.Confidence) {
		return eris.Wrapf(ErrInvalid, "blocker %s confidence %v outside [0,1]", b.ID, b.Confidence)
	}
	return nil
}

// Components holds one value per scoring component. It is used both for
// component scores and for the weight vector.
type Components struct {
	Pricing float64 `json:"pricing" yaml:"pricing"`
	Trust   float64 `json:"trust" yaml:"trust"`
	CTA     float64 `json:"cta" yaml:"cta"`
	Clarity float64 `json:"clarity" yaml:"clarity"`
}

func (c Components) validate(field string) error {
	for _, comp := range []struct {
		name string
		v    float64
	}{
		{"pricing", c.Pricing},
		{"trust", c.Trust},
		{"cta", c.CTA},
		{"clarity", c.Clarity},
	} {
		if !unit(comp.v) {
			return eris.Wrapf(ErrInvalid, "%s.%s %v outside [0,1]", field, comp.name, comp.v)
		}
	}
	return nil
}

// DecisionLogic is the scored verdict for one SignalReport.
type DecisionLogic struct {
	URL                 string            `json:"url" yaml:"url"`
	Blockers            []DecisionBlocker `json:"blockers" yaml:"blockers"`
	Scores              Components        `json:"scores" yaml:"scores"`
	DecisionProbability float64           `json:"decision_probability" yaml:"decision_probability"`
	Weights             Components        `json:"weights" yaml:"weights"`
	Inputs              map[string]any    `json:"inputs" yaml:"inputs"`
}

func (d *DecisionLogic) Validate() error {
	for i, b := range d.Blockers {
		if err := b.Validate(); err != nil {
			return eris.Wrapf(err, "blockers[%d]", i)
		}
	}
	if err := d.Scores.validate("scores"); err != nil {
		return err
	}
	if err := d.Weights.validate("weights"); err != nil {
		return err
	}
	if !unit(d.DecisionProbability) {
		return eris.Wrapf(ErrInvalid, "decision_probability %v outside [0,1]", d.DecisionProbability)
	}
	return nil
}

// UnmarshalJSON decodes and then validates the result.
func (d *DecisionLogic) UnmarshalJSON(b []byte) error {
	type plain DecisionLogic
	var p plain
	if err := json.Unmarshal(b, &p); err != nil {
		return eris.Wrap(err, "decision: decode logic")
	}
	out := DecisionLogic(p)
	if err := out.Validate(); err != nil {
		return err
	}
	*d = out
	return nil
}

func unit(v float64) bool { return v >= 0 && v <= 1 }
