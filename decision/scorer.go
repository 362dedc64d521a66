package decision

import (
	"fmt"
	"strings"
	"unicode/utf8"

	"github.com/landing-verdict/backend/signals"
)

// Weights is the fixed weight vector of the decision model. It sums to 1.0.
var Weights = Components{
	Pricing: 0.30,
	Trust:   0.25,
	CTA:     0.25,
	Clarity: 0.20,
}

// Blocker confidences.
const (
	confMissingPricing    = 0.85
	confTrustNone         = 0.75
	confTrustOne          = 0.55
	confCTANotDetected    = 0.90
	confCTABelowFold      = 0.70
	confMissingHero       = 0.65
	minHeroHeadlineLength = 8
)

// Component score tables.
const (
	pricingPresent = 1.0
	pricingAbsent  = 0.25

	ctaVisible   = 0.90
	ctaBelowFold = 0.55
	ctaMissing   = 0.20

	clarityValid   = 0.75
	clarityInvalid = 0.40
)

var trustScores = map[int]float64{0: 0.25, 1: 0.50, 2: 0.75, 3: 0.90}

const trustScoreDefault = 0.25

// Score turns a SignalReport into a DecisionLogic. A nil report is scored
// as an empty one.
func Score(r *signals.SignalReport) *DecisionLogic {
	if r == nil {
		r = &signals.SignalReport{InputType: signals.InputURL}
	}

	trustCount := TrustCount(r)
	heroOK := heroValid(r.HeroHeadline)

	var blockers []DecisionBlocker
	add := func(b DecisionBlocker) { blockers = append(blockers, b) }

	if !r.HasPricing {
		add(blocker(BlockerMissingPricing, SeverityHigh, confMissingPricing,
			[]string{"no pricing signal in visual, text or DOM inputs"},
			map[string]any{"has_pricing": false}))
	}

	switch trustCount {
	case 0:
		add(blocker(BlockerWeakTrustSignals, SeverityHigh, confTrustNone,
			[]string{"no testimonials, client logos or guarantee detected"},
			map[string]any{"trust_count": trustCount}))
	case 1:
		add(blocker(BlockerWeakTrustSignals, SeverityMedium, confTrustOne,
			[]string{"only one trust signal detected: " + trustPresent(r)},
			map[string]any{"trust_count": trustCount}))
	}

	if r.CTACountAction == 0 {
		add(blocker(BlockerCTANotDetected, SeverityHigh, confCTANotDetected,
			[]string{"no action CTA detected"},
			map[string]any{"cta_count_action": 0}))
	} else if r.AboveFoldAvailable && r.CTACountAboveFold != nil && *r.CTACountAboveFold == 0 {
		add(blocker(BlockerCTABelowFold, SeverityMedium, confCTABelowFold,
			[]string{fmt.Sprintf("%d action CTA(s) found, none above the fold", r.CTACountAction)},
			map[string]any{"cta_count_action": r.CTACountAction, "cta_count_above_fold": 0}))
	}

	if !heroOK {
		detail := "no hero headline detected"
		length := 0
		if r.HeroHeadline != nil {
			length = utf8.RuneCountInString(strings.TrimSpace(*r.HeroHeadline))
			detail = fmt.Sprintf("hero headline too short (%d < %d characters)", length, minHeroHeadlineLength)
		}
		add(blocker(BlockerMissingHeroHeadline, SeverityMedium, confMissingHero,
			[]string{detail},
			map[string]any{"hero_length": length}))
	}

	scores := Components{
		Pricing: pricingScore(r.HasPricing),
		Trust:   trustScore(trustCount),
		CTA:     ctaScore(r),
		Clarity: clarityScore(heroOK),
	}

	if blockers == nil {
		blockers = []DecisionBlocker{}
	}
	return &DecisionLogic{
		URL:                 r.URL,
		Blockers:            blockers,
		Scores:              scores,
		DecisionProbability: Probability(scores, Weights),
		Weights:             Weights,
		Inputs:              inputs(r, trustCount, heroOK),
	}
}

// Probability is the clamped weighted sum of component scores.
func Probability(scores, weights Components) float64 {
	sum := scores.Pricing*weights.Pricing +
		scores.Trust*weights.Trust +
		scores.CTA*weights.CTA +
		scores.Clarity*weights.Clarity
	return clamp(sum, 0, 1)
}

// TrustCount counts testimonials, logos and guarantee flags.
func TrustCount(r *signals.SignalReport) int {
	n := 0
	for _, ok := range []bool{r.HasTestimonials, r.HasLogos, r.HasGuarantee} {
		if ok {
			n++
		}
	}
	return n
}

func blocker(id BlockerID, severity Severity, confidence float64, evidence []string, metrics map[string]any) DecisionBlocker {
	b, err := NewBlocker(id, severity, confidence, evidence, metrics)
	if err != nil {
		// Rule constants are fixed; a failure here is a programming error.
		panic(err)
	}
	return b
}

func pricingScore(has bool) float64 {
	if has {
		return pricingPresent
	}
	return pricingAbsent
}

func trustScore(count int) float64 {
	if s, ok := trustScores[count]; ok {
		return s
	}
	return trustScoreDefault
}

func ctaScore(r *signals.SignalReport) float64 {
	if r.CTACountAction == 0 {
		return ctaMissing
	}
	if !r.AboveFoldAvailable || r.CTACountAboveFold == nil || *r.CTACountAboveFold > 0 {
		return ctaVisible
	}
	return ctaBelowFold
}

func clarityScore(heroOK bool) float64 {
	if heroOK {
		return clarityValid
	}
	return clarityInvalid
}

func heroValid(h *string) bool {
	return h != nil && utf8.RuneCountInString(strings.TrimSpace(*h)) >= minHeroHeadlineLength
}

func trustPresent(r *signals.SignalReport) string {
	switch {
	case r.HasTestimonials:
		return "testimonials"
	case r.HasLogos:
		return "logos"
	default:
		return "guarantee"
	}
}

func inputs(r *signals.SignalReport, trustCount int, heroOK bool) map[string]any {
	var aboveFold any
	if r.CTACountAboveFold != nil {
		aboveFold = *r.CTACountAboveFold
	}
	return map[string]any{
		"has_pricing":          r.HasPricing,
		"has_testimonials":     r.HasTestimonials,
		"has_logos":            r.HasLogos,
		"has_guarantee":        r.HasGuarantee,
		"trust_count":          trustCount,
		"cta_count_action":     r.CTACountAction,
		"cta_count_above_fold": aboveFold,
		"above_fold_available": r.AboveFoldAvailable,
		"hero_valid":           heroOK,
	}
}

func clamp(v, lo, hi float64) float64 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
