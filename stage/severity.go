package stage

import (
	"fmt"

	"github.com/rotisserie/eris"
)

// severityMatrix rates each outcome at each stage.
var severityMatrix = map[Stage]map[Outcome]FrictionSeverity{
	Orientation: {
		OutcomeUnclear:    Acceptable,
		RiskNotAddressed:  Natural,
		EffortTooHigh:     Natural,
		TrustGap:          Acceptable,
		CommitmentAnxiety: Natural,
	},
	SenseMaking: {
		OutcomeUnclear:    Warning,
		RiskNotAddressed:  Acceptable,
		EffortTooHigh:     Acceptable,
		TrustGap:          Acceptable,
		CommitmentAnxiety: Natural,
	},
	Evaluation: {
		OutcomeUnclear:    Critical,
		RiskNotAddressed:  Critical,
		EffortTooHigh:     Warning,
		TrustGap:          Warning,
		CommitmentAnxiety: Warning,
	},
	Commitment: {
		OutcomeUnclear:    HighRisk,
		RiskNotAddressed:  HighRisk,
		EffortTooHigh:     HighRisk,
		TrustGap:          Critical,
		CommitmentAnxiety: Critical,
	},
	PostDecisionValidation: {
		OutcomeUnclear:    Critical,
		RiskNotAddressed:  HighRisk,
		EffortTooHigh:     Warning,
		TrustGap:          Critical,
		CommitmentAnxiety: Critical,
	},
}

type guidance struct {
	reasoning      string
	recommendation string
}

type pair struct {
	stage   Stage
	outcome Outcome
}

// bespokeGuidance carries hand-written text for the pairs that matter most.
var bespokeGuidance = map[pair]guidance{
	{Orientation, OutcomeUnclear}: {
		"Visitors orienting themselves expect to build understanding gradually; an unclear outcome is tolerable if the page invites further reading.",
		"Make sure the headline at least names who the offer is for so orientation leads somewhere.",
	},
	{SenseMaking, OutcomeUnclear}: {
		"Visitors trying to make sense of the offer need to picture the result; without it they stall before evaluating.",
		"State the concrete outcome in the hero and repeat it beside the first CTA.",
	},
	{Evaluation, OutcomeUnclear}: {
		"Visitors comparing options cannot weigh an offer whose outcome is vague, so they pick the competitor that states one.",
		"Add a specific, measurable promise and a short example of the result near pricing.",
	},
	{Evaluation, RiskNotAddressed}: {
		"Evaluation is where downside is weighed; unanswered risk questions end the comparison in someone else's favour.",
		"Add a guarantee, clear cancellation terms or a risk-reversal statement where options are compared.",
	},
	{Commitment, OutcomeUnclear}: {
		"At the point of commitment an unclear outcome turns the CTA into a leap of faith most visitors will not take.",
		"Restate exactly what happens after the click and what the visitor gets, directly on the CTA block.",
	},
	{Commitment, RiskNotAddressed}: {
		"Visitors ready to commit still abandon when the cost of being wrong is unaddressed.",
		"Place the guarantee or refund policy immediately next to the commit button.",
	},
	{Commitment, EffortTooHigh}: {
		"Every extra step at commitment loses visitors who had already decided.",
		"Cut form fields to the minimum and remove any step that is not required to complete the action.",
	},
	{Commitment, TrustGap}: {
		"Visitors about to commit look for last-second reassurance; without proof they hesitate.",
		"Show a testimonial or recognizable client logo within sight of the CTA.",
	},
	{Commitment, CommitmentAnxiety}: {
		"Anxiety peaks at the commit moment; unaddressed it produces abandonment on the final step.",
		"Lower the stakes of the click: explain what is not yet binding and offer an easy way back.",
	},
	{PostDecisionValidation, OutcomeUnclear}: {
		"After deciding, visitors need confirmation they chose well; an unclear outcome breeds buyer's remorse.",
		"Confirm what was bought and what happens next in plain terms on the confirmation page.",
	},
	{PostDecisionValidation, TrustGap}: {
		"Doubt after the decision drives refunds and cancellations.",
		"Reinforce the decision with social proof and a visible support channel after conversion.",
	},
	{PostDecisionValidation, CommitmentAnxiety}: {
		"Visitors who have just committed second-guess themselves; silence reads as a warning sign.",
		"Send immediate confirmation and outline the first steps so the commitment feels safe.",
	},
}

var genericRecommendation = map[FrictionSeverity]string{
	Natural:    "No action needed at this stage.",
	Acceptable: "Monitor; address when optimizing later stages.",
	Warning:    "Address soon; this friction slows visitors at this stage.",
	Critical:   "Fix before driving more traffic; this friction blocks progress at this stage.",
	HighRisk:   "Fix immediately; this friction is likely losing ready-to-act visitors.",
}

// AssessSeverity looks up how damaging outcome is at stage.
func AssessSeverity(outcome Outcome, s Stage) (StageFrictionAssessment, error) {
	if !outcome.Valid() {
		return StageFrictionAssessment{}, eris.Wrapf(ErrInvalid, "outcome %q", string(outcome))
	}
	if !s.Valid() {
		return StageFrictionAssessment{}, eris.Wrapf(ErrInvalid, "stage %q", string(s))
	}

	sev := severityMatrix[s][outcome]
	g, ok := bespokeGuidance[pair{s, outcome}]
	if !ok {
		g = guidance{
			reasoning:      fmt.Sprintf("%s at the %s stage is rated %s.", outcome, s, sev),
			recommendation: genericRecommendation[sev],
		}
	}
	return StageFrictionAssessment{
		Outcome:        outcome,
		Stage:          s,
		Severity:       sev,
		Reasoning:      g.reasoning,
		Recommendation: g.recommendation,
	}, nil
}
