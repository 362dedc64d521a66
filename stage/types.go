// Package stage infers the visitor's decision stage from CTA language and
// page structure, and rates how much a given friction hurts at that stage.
package stage

import (
	"encoding/json"

	"github.com/rotisserie/eris"
)

// ErrInvalid is wrapped by every stage validation failure.
var ErrInvalid = eris.New("stage: invalid value")

// Stage is the visitor's inferred mental decision stage.
type Stage string

const (
	Orientation            Stage = "orientation"
	SenseMaking            Stage = "sense_making"
	Evaluation             Stage = "evaluation"
	Commitment             Stage = "commitment"
	PostDecisionValidation Stage = "post_decision_validation"
)

// Stages is the fixed stage order. Arg-max ties resolve to the earliest entry.
var Stages = [...]Stage{Orientation, SenseMaking, Evaluation, Commitment, PostDecisionValidation}

func (s Stage) Valid() bool {
	for _, v := range Stages {
		if s == v {
			return true
		}
	}
	return false
}

func (s *Stage) UnmarshalText(b []byte) error {
	v := Stage(b)
	if !v.Valid() {
		return eris.Wrapf(ErrInvalid, "stage %q", string(b))
	}
	*s = v
	return nil
}

// Outcome is a friction category a blocker can be mapped onto.
type Outcome string

const (
	OutcomeUnclear    Outcome = "Outcome Unclear"
	RiskNotAddressed  Outcome = "Risk Not Addressed"
	EffortTooHigh     Outcome = "Effort Too High"
	TrustGap          Outcome = "Trust Gap"
	CommitmentAnxiety Outcome = "Commitment Anxiety"
)

// Outcomes lists every outcome in matrix column order.
var Outcomes = [...]Outcome{OutcomeUnclear, RiskNotAddressed, EffortTooHigh, TrustGap, CommitmentAnxiety}

func (o Outcome) Valid() bool {
	for _, v := range Outcomes {
		if o == v {
			return true
		}
	}
	return false
}

func (o *Outcome) UnmarshalText(b []byte) error {
	v := Outcome(b)
	if !v.Valid() {
		return eris.Wrapf(ErrInvalid, "outcome %q", string(b))
	}
	*o = v
	return nil
}

// FrictionSeverity rates a friction in the context of a stage.
type FrictionSeverity string

const (
	Natural    FrictionSeverity = "natural"
	Acceptable FrictionSeverity = "acceptable"
	Warning    FrictionSeverity = "warning"
	Critical   FrictionSeverity = "critical"
	HighRisk   FrictionSeverity = "high_risk"
)

func (f FrictionSeverity) Valid() bool {
	switch f {
	case Natural, Acceptable, Warning, Critical, HighRisk:
		return true
	}
	return false
}

func (f *FrictionSeverity) UnmarshalText(b []byte) error {
	v := FrictionSeverity(b)
	if !v.Valid() {
		return eris.Wrapf(ErrInvalid, "friction severity %q", string(b))
	}
	*f = v
	return nil
}

// StageInference is the result of InferStage.
type StageInference struct {
	Stage       Stage    `json:"stage" yaml:"stage"`
	Confidence  float64  `json:"confidence" yaml:"confidence"`
	Signals     []string `json:"signals" yaml:"signals"`
	Explanation string   `json:"explanation" yaml:"explanation"`
}

func (s StageInference) Validate() error {
	if !s.Stage.Valid() {
		return eris.Wrapf(ErrInvalid, "stage %q", string(s.Stage))
	}
	if s.Confidence < 0 || s.Confidence > 100 {
		return eris.Wrapf(ErrInvalid, "stage confidence %v outside [0,100]", s.Confidence)
	}
	return nil
}

func (s *StageInference) UnmarshalJSON(b []byte) error {
	type plain StageInference
	var p plain
	if err := json.Unmarshal(b, &p); err != nil {
		return eris.Wrap(err, "stage: decode inference")
	}
	out := StageInference(p)
	if err := out.Validate(); err != nil {
		return err
	}
	*s = out
	return nil
}

// StageFrictionAssessment rates one outcome at one stage.
type StageFrictionAssessment struct {
	Outcome        Outcome          `json:"outcome" yaml:"outcome"`
	Stage          Stage            `json:"stage" yaml:"stage"`
	Severity       FrictionSeverity `json:"severity" yaml:"severity"`
	Reasoning      string           `json:"reasoning" yaml:"reasoning"`
	Recommendation string           `json:"recommendation" yaml:"recommendation"`
}
