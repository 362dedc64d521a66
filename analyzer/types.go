package analyzer

import (
	"github.com/landing-verdict/backend/decision"
	"github.com/landing-verdict/backend/pagemap"
	"github.com/landing-verdict/backend/signals"
	"github.com/landing-verdict/backend/stage"
)

// Input is everything Evaluate needs for one page. Any collaborator payload
// may be nil.
type Input struct {
	URL         string                `json:"url" yaml:"url"`
	InputType   signals.InputType     `json:"input_type" yaml:"input_type"`
	Features    *signals.Features     `json:"features,omitempty" yaml:"features,omitempty"`
	Visual      *signals.VisualOutput `json:"visual,omitempty" yaml:"visual,omitempty"`
	DOM         *signals.DOMSnapshot  `json:"dom,omitempty" yaml:"dom,omitempty"`
	Structure   pagemap.Structure     `json:"structure" yaml:"structure"`
	PageContent string                `json:"page_content,omitempty" yaml:"page_content,omitempty"`
	OfferType   string                `json:"offer_type,omitempty" yaml:"offer_type,omitempty"`
}

// Friction is one blocker rated at the inferred stage.
type Friction struct {
	BlockerID  decision.BlockerID            `json:"blocker_id" yaml:"blocker_id"`
	Assessment stage.StageFrictionAssessment `json:"assessment" yaml:"assessment"`
}

// Verdict is the full result for one page.
type Verdict struct {
	RequestID string                  `json:"request_id,omitempty" yaml:"request_id,omitempty"`
	Signals   *signals.SignalReport   `json:"signals" yaml:"signals"`
	Decision  *decision.DecisionLogic `json:"decision" yaml:"decision"`
	Stage     stage.StageInference    `json:"stage" yaml:"stage"`
	Frictions []Friction              `json:"frictions" yaml:"frictions"`
}

// BlockerIDs lists the verdict's blocker ids in order.
func (v *Verdict) BlockerIDs() []string {
	ids := make([]string, 0, len(v.Decision.Blockers))
	for _, b := range v.Decision.Blockers {
		ids = append(ids, string(b.ID))
	}
	return ids
}

// BatchItem is the per-URL outcome of AnalyzeBatch. Exactly one of Verdict
// and Error is set.
type BatchItem struct {
	URL     string   `json:"url" yaml:"url"`
	Verdict *Verdict `json:"verdict,omitempty" yaml:"verdict,omitempty"`
	Error   string   `json:"error,omitempty" yaml:"error,omitempty"`
}
