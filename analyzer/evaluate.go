package analyzer

import (
	"github.com/landing-verdict/backend/decision"
	"github.com/landing-verdict/backend/pagemap"
	"github.com/landing-verdict/backend/signals"
	"github.com/landing-verdict/backend/stage"
)

// blockerOutcomes maps each blocker onto the friction outcome it causes.
var blockerOutcomes = map[decision.BlockerID]stage.Outcome{
	decision.BlockerMissingPricing:      stage.RiskNotAddressed,
	decision.BlockerWeakTrustSignals:    stage.TrustGap,
	decision.BlockerCTANotDetected:      stage.EffortTooHigh,
	decision.BlockerCTABelowFold:        stage.EffortTooHigh,
	decision.BlockerMissingHeroHeadline: stage.OutcomeUnclear,
}

// OutcomeFor returns the friction outcome for a blocker.
func OutcomeFor(id decision.BlockerID) (stage.Outcome, bool) {
	o, ok := blockerOutcomes[id]
	return o, ok
}

// Evaluate runs extraction, scoring and stage inference, then rates every
// blocker at the inferred stage. It is pure: RequestID is left empty.
func Evaluate(in Input) *Verdict {
	report := signals.Extract(in.URL, in.InputType, in.Features, in.Visual, in.DOM)
	logic := decision.Score(report)

	ctaText, _ := signals.SelectPrimary(report.CTAs)
	inference := stage.InferStage(stage.Input{
		CTAText:         ctaText,
		PageContent:     in.PageContent,
		HasPricing:      in.Structure.HasPricing || report.HasPricing,
		HasForm:         in.Structure.HasForm,
		HasCheckout:     in.Structure.HasCheckout,
		HasEducation:    in.Structure.HasEducation,
		HasComparison:   in.Structure.HasComparison,
		HasConfirmation: in.Structure.HasConfirmation,
		OfferType:       in.OfferType,
	})

	frictions := make([]Friction, 0, len(logic.Blockers))
	for _, b := range logic.Blockers {
		outcome, ok := OutcomeFor(b.ID)
		if !ok {
			continue
		}
		assessment, err := stage.AssessSeverity(outcome, inference.Stage)
		if err != nil {
			// Both values come from fixed tables.
			panic(err)
		}
		frictions = append(frictions, Friction{BlockerID: b.ID, Assessment: assessment})
	}

	return &Verdict{
		Signals:   report,
		Decision:  logic,
		Stage:     inference,
		Frictions: frictions,
	}
}

// inputFromPage builds an Input from a mapped page.
func inputFromPage(p *pagemap.PageMap, inputType signals.InputType) Input {
	features := p.Features
	dom := p.DOM
	return Input{
		URL:         p.URL,
		InputType:   inputType,
		Features:    &features,
		DOM:         &dom,
		Structure:   p.Structure,
		PageContent: p.Content,
	}
}
