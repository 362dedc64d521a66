package stage

import (
	"fmt"
	"regexp"
	"strings"
)

// Input carries the CTA copy and structural flags inference runs on.
type Input struct {
	CTAText         string `json:"cta_text" yaml:"cta_text"`
	PageContent     string `json:"page_content,omitempty" yaml:"page_content,omitempty"`
	HasPricing      bool   `json:"has_pricing" yaml:"has_pricing"`
	HasForm         bool   `json:"has_form" yaml:"has_form"`
	HasCheckout     bool   `json:"has_checkout" yaml:"has_checkout"`
	HasEducation    bool   `json:"has_education" yaml:"has_education"`
	HasComparison   bool   `json:"has_comparison" yaml:"has_comparison"`
	HasConfirmation bool   `json:"has_confirmation" yaml:"has_confirmation"`
	OfferType       string `json:"offer_type,omitempty" yaml:"offer_type,omitempty"`
}

// phraseCategory is one entry of the first-match-wins CTA phrase chain.
type phraseCategory struct {
	stage   Stage
	points  float64
	phrases []string
	re      *regexp.Regexp
}

// phraseChain is matched in order; only the first matching category scores.
var phraseChain = []phraseCategory{
	{stage: PostDecisionValidation, points: 50, phrases: []string{
		"thank you", "thanks for", "order confirmed", "you're all set", "you are all set",
		"access your account", "go to dashboard", "go to your dashboard", "view order",
		"track order", "track your order", "download receipt", "welcome aboard",
	}},
	{stage: Commitment, points: 50, phrases: []string{
		"buy now", "buy", "purchase", "checkout", "check out", "add to cart", "order now",
		"subscribe", "sign up", "signup", "book now", "book a call", "book a session",
		"reserve", "join now", "enroll", "enrol", "pay now", "hire me", "hire us",
		"get started", "start now", "claim your spot",
	}},
	{stage: Evaluation, points: 45, phrases: []string{
		"compare", "pricing", "see plans", "view plans", "see pricing", "view pricing",
		"get a quote", "request a quote", "case study", "case studies", "reviews",
		"testimonials", "calculate", "estimate", "request a proposal",
	}},
	{stage: SenseMaking, points: 40, phrases: []string{
		"how it works", "learn more", "see how", "watch demo", "watch the demo",
		"watch video", "free trial", "try free", "try it", "demo", "explore",
		"discover", "see examples", "take the quiz", "find out",
	}},
	{stage: Orientation, points: 40, phrases: []string{
		"read more", "about us", "about", "our story", "who we are", "blog",
		"browse", "home", "welcome", "start here",
	}},
}

func init() {
	for i := range phraseChain {
		quoted := make([]string, len(phraseChain[i].phrases))
		for j, p := range phraseChain[i].phrases {
			quoted[j] = regexp.QuoteMeta(p)
		}
		phraseChain[i].re = regexp.MustCompile(`(?i)\b(` + strings.Join(quoted, "|") + `)\b`)
	}
}

// Offer types with structural weight.
var (
	exploratoryOffers = map[string]struct{}{"trial": {}, "demo": {}, "free": {}}
	committingOffers  = map[string]struct{}{"purchase": {}, "subscription": {}, "booking": {}}
)

// Fallback result when nothing scores.
const (
	fallbackStage      = SenseMaking
	fallbackConfidence = 50
)

// contentPhraseWeight scales phrase points when page content stands in for
// missing CTA text.
const contentPhraseWeight = 0.5

type accumulator struct {
	scores  map[Stage]float64
	signals []string
}

func (a *accumulator) add(s Stage, points float64, format string, args ...any) {
	a.scores[s] += points
	a.signals = append(a.signals, fmt.Sprintf("%s +%g: ", s, points)+fmt.Sprintf(format, args...))
}

// InferStage scores every stage additively and returns the arg-max. Ties
// go to the earliest stage in Stages.
func InferStage(in Input) StageInference {
	acc := &accumulator{scores: make(map[Stage]float64, len(Stages))}

	if in.HasConfirmation {
		acc.add(PostDecisionValidation, 50, "confirmation content present")
	}

	switch {
	case strings.TrimSpace(in.CTAText) != "":
		if cat, phrase, ok := matchPhrase(in.CTAText); ok {
			acc.add(cat.stage, cat.points, "cta text matches %q", phrase)
		}
	case strings.TrimSpace(in.PageContent) != "":
		if cat, phrase, ok := matchPhrase(in.PageContent); ok {
			acc.add(cat.stage, cat.points*contentPhraseWeight, "page content matches %q (no cta text)", phrase)
		}
	}

	if in.HasCheckout || in.HasForm {
		acc.add(Commitment, 30, "checkout or form present")
	}
	if in.HasPricing {
		acc.add(Evaluation, 25, "pricing present")
		acc.add(Commitment, 15, "pricing present")
	}
	if in.HasComparison {
		acc.add(Evaluation, 30, "comparison content present")
	}
	if in.HasEducation && !in.HasPricing {
		acc.add(Orientation, 25, "educational content without pricing")
		acc.add(SenseMaking, 15, "educational content without pricing")
	}

	offer := strings.ToLower(strings.TrimSpace(in.OfferType))
	if _, ok := exploratoryOffers[offer]; ok {
		acc.add(SenseMaking, 20, "offer type %q", offer)
		acc.add(Commitment, 10, "offer type %q", offer)
	}
	if _, ok := committingOffers[offer]; ok {
		acc.add(Commitment, 25, "offer type %q", offer)
	}

	winner, best := Stages[0], 0.0
	for _, s := range Stages {
		if acc.scores[s] > best {
			winner, best = s, acc.scores[s]
		}
	}

	if best == 0 {
		return StageInference{
			Stage:       fallbackStage,
			Confidence:  fallbackConfidence,
			Signals:     []string{},
			Explanation: "No stage signals detected; defaulting to sense_making.",
		}
	}

	confidence := best
	if confidence > 100 {
		confidence = 100
	}
	return StageInference{
		Stage:       winner,
		Confidence:  confidence,
		Signals:     acc.signals,
		Explanation: fmt.Sprintf("Inferred %s with score %g across %d signal(s).", winner, best, len(acc.signals)),
	}
}

// matchPhrase runs the phrase chain over text and returns the first category hit.
func matchPhrase(text string) (phraseCategory, string, bool) {
	for _, cat := range phraseChain {
		if m := cat.re.FindString(text); m != "" {
			return cat, strings.ToLower(m), true
		}
	}
	return phraseCategory{}, "", false
}
