package signals

import (
	"fmt"
	"strings"

	"golang.org/x/text/cases"
)

// maxBridgedCTAs caps how many CTAs the visual bridge may synthesize.
const maxBridgedCTAs = 3

// Extract normalizes heterogeneous page representations into a SignalReport.
// Any input may be nil; missing fields degrade to null, false or empty lists.
func Extract(url string, inputType InputType, features *Features, visual *VisualOutput, dom *DOMSnapshot) *SignalReport {
	if features == nil {
		features = &Features{}
	}
	if visual == nil {
		visual = &VisualOutput{}
	}
	if dom == nil {
		dom = &DOMSnapshot{}
	}
	if !inputType.Valid() {
		inputType = InputURL
	}

	ex := &extraction{}

	hero := ex.resolveHero(features, dom)
	var subhead *string
	if s := strings.TrimSpace(features.Visual.HeroSubheadline); s != "" {
		subhead = &s
	}

	ctas := ex.ingestDOM(dom.CTAs)
	if len(ctas) == 0 {
		ctas = ex.bridgeVisual(visual.Elements)
	}
	ctas = ex.appendVisualPrimary(ctas, features.Visual)
	ctas = markPrimary(ctas)

	report := &SignalReport{
		URL:             url,
		InputType:       inputType,
		HeroHeadline:    hero,
		HeroSubheadline: subhead,
		CTAs:            ctas,
		Raw: map[string]any{
			"features": features,
			"visual":   visual,
			"dom":      dom,
		},
	}
	ex.trustFlags(report, features, visual)
	countBuckets(report)
	report.Evidence = ex.evidence
	if report.Evidence == nil {
		report.Evidence = []EvidenceItem{}
	}
	return report
}

// extraction accumulates the evidence trail for a single Extract call.
type extraction struct {
	evidence []EvidenceItem
}

func (ex *extraction) record(source EvidenceSource, format string, args ...any) {
	ex.evidence = append(ex.evidence, EvidenceItem{Source: source, Detail: fmt.Sprintf(format, args...)})
}

func (ex *extraction) resolveHero(features *Features, dom *DOMSnapshot) *string {
	if h := strings.TrimSpace(features.Visual.HeroHeadline); h != "" {
		return &h
	}
	if h := strings.TrimSpace(dom.HeroHeadline); h != "" {
		ex.record(SourceDOM, "hero headline taken from DOM: %q", h)
		return &h
	}
	for _, line := range features.Text.KeyLines {
		line = strings.TrimSpace(line)
		if line == "" || isNavLine(line) {
			continue
		}
		ex.record(SourceText, "hero headline fell back to first non-navigational key line: %q", line)
		return &line
	}
	return nil
}

func (ex *extraction) ingestDOM(raw []DOMCTA) []CTAItem {
	var out []CTAItem
	for _, d := range raw {
		text := strings.TrimSpace(d.Text)
		if text == "" {
			continue
		}
		item := CTAItem{
			Text:               text,
			Kind:               normalizeKind(d.Kind),
			Location:           normalizeLocation(d.Location),
			Bucket:             normalizeBucket(d.Bucket),
			HasActionVerb:      hasActionVerb(text),
			HasOutcomeLanguage: hasOutcomeLanguage(text),
		}
		if href := strings.TrimSpace(d.Href); href != "" {
			item.Href = &href
		}
		overridden, why := overrideBucket(item)
		if overridden.Bucket != item.Bucket {
			ex.record(SourceDOM, "cta %q moved from %s to action bucket: %s", text, item.Bucket, why)
		}
		out = append(out, overridden)
	}
	return out
}

// overrideBucket returns a copy of c forced into the action bucket when its
// text or href shows conversion intent. Nav CTAs are never overridden.
func overrideBucket(c CTAItem) (CTAItem, string) {
	if c.Bucket == BucketNav || c.Bucket == BucketAction {
		return c, ""
	}
	href := ""
	if c.Href != nil {
		href = *c.Href
	}
	ok, why := isActionIntent(c.Text, href)
	if !ok {
		return c, ""
	}
	c.Bucket = BucketAction
	return c, why
}

func (ex *extraction) bridgeVisual(elements []VisualElement) []CTAItem {
	var out []CTAItem
	for _, el := range elements {
		if len(out) == maxBridgedCTAs {
			break
		}
		if el.Type != ElementPrimaryCTA && el.Type != ElementSecondaryCTA {
			continue
		}
		text := strings.TrimSpace(el.Text)
		if text == "" {
			continue
		}
		out = append(out, CTAItem{
			Text:               text,
			Kind:               KindVisual,
			Location:           LocationAboveFold,
			Bucket:             BucketAction,
			HasActionVerb:      true,
			HasOutcomeLanguage: hasOutcomeLanguage(text),
		})
	}
	if len(out) > 0 {
		ex.record(SourceVisual, "DOM produced no CTAs; bridged %d CTA(s) from visual model", len(out))
	}
	return out
}

func (ex *extraction) appendVisualPrimary(ctas []CTAItem, vf VisualFeatures) []CTAItem {
	text := strings.TrimSpace(vf.PrimaryCTAText)
	if text == "" {
		return ctas
	}
	fold := cases.Fold()
	want := fold.String(text)
	for _, c := range ctas {
		if fold.String(c.Text) == want {
			return ctas
		}
	}
	ex.record(SourceVisual, "visual primary CTA %q not found in DOM; appended as action CTA", text)
	return append(ctas, CTAItem{
		Text:               text,
		Kind:               KindVisual,
		Location:           normalizeLocation(vf.PrimaryCTAPosition),
		Bucket:             BucketAction,
		HasActionVerb:      hasActionVerb(text),
		HasOutcomeLanguage: hasOutcomeLanguage(text),
	})
}

// SelectPrimary returns the text of the primary candidate among action
// CTAs, in list order:
//  1. above the fold, rendered as button or form submit, with an action verb
//  2. any with an action verb
//  3. the first action CTA
func SelectPrimary(ctas []CTAItem) (string, bool) {
	var firstVerb, firstAction *CTAItem
	for i := range ctas {
		c := &ctas[i]
		if c.Bucket != BucketAction {
			continue
		}
		if c.Location == LocationAboveFold && (c.Kind == KindButton || c.Kind == KindFormSubmit) && c.HasActionVerb {
			return c.Text, true
		}
		if firstVerb == nil && c.HasActionVerb {
			firstVerb = c
		}
		if firstAction == nil {
			firstAction = c
		}
	}
	if firstVerb != nil {
		return firstVerb.Text, true
	}
	if firstAction != nil {
		return firstAction.Text, true
	}
	return "", false
}

// markPrimary returns a copy of ctas with exactly one action CTA marked as
// primary. Marking is by text, so the first action CTA sharing the chosen
// text wins.
func markPrimary(ctas []CTAItem) []CTAItem {
	out := make([]CTAItem, len(ctas))
	copy(out, ctas)
	for i := range out {
		out[i].IsPrimaryCandidate = false
	}
	text, ok := SelectPrimary(out)
	if !ok {
		return out
	}
	for i := range out {
		if out[i].Bucket == BucketAction && out[i].Text == text {
			out[i].IsPrimaryCandidate = true
			break
		}
	}
	return out
}

func (ex *extraction) trustFlags(r *SignalReport, f *Features, v *VisualOutput) {
	lines := f.Text.KeyLines

	r.HasPricing = ex.flag(pricingText, lines, f.Visual.HasPricing, f.Text.HasPricing, v.HasPricing)
	r.HasTestimonials = ex.flag(testimonialText, lines, f.Visual.HasTestimonials, f.Text.HasTestimonials, v.HasTestimonials)
	r.HasLogos = ex.flag(logoText, lines, f.Visual.HasLogos, f.Text.HasLogos, v.HasLogos)
	r.HasGuarantee = ex.flag(guaranteeText, lines, f.Visual.HasGuarantee, f.Text.HasGuarantee, v.HasGuarantee)

	r.HasContact = ex.flag(contactText, lines, false, f.Text.HasContact, v.HasContact)
	if !r.HasContact {
		for _, c := range r.CTAs {
			if c.Href != nil && contactHref.MatchString(hrefTarget(*c.Href)) {
				r.HasContact = true
				ex.record(SourceDOM, "contact: cta %q links to %s", c.Text, *c.Href)
				break
			}
		}
	}
}

// flag resolves one trust flag. Upstream booleans win in the order
// features.visual, features.text, visual; the keyword table is the fallback.
func (ex *extraction) flag(rule trustRule, lines []string, featureVisual, featureText, visual bool) bool {
	switch {
	case featureVisual:
		ex.record(SourceVisual, "%s: reported by visual features", rule.name)
		return true
	case featureText:
		ex.record(SourceText, "%s: reported by text features", rule.name)
		return true
	case visual:
		ex.record(SourceVisual, "%s: reported by visual model", rule.name)
		return true
	}
	if line, ok := rule.firstMatch(lines); ok {
		ex.record(SourceText, "%s: key line matched %q", rule.name, line)
		return true
	}
	return false
}

func countBuckets(r *SignalReport) {
	aboveFold := 0
	for _, c := range r.CTAs {
		switch c.Bucket {
		case BucketNav:
			r.CTACountNav++
		case BucketAction:
			r.CTACountAction++
			if c.Location != LocationUnknown {
				r.AboveFoldAvailable = true
			}
			if c.Location == LocationAboveFold {
				aboveFold++
			}
		case BucketContent:
			r.CTACountContent++
		case BucketFooter:
			r.CTACountFooter++
		}
	}
	if r.AboveFoldAvailable {
		r.CTACountAboveFold = &aboveFold
	}
	if r.CTAs == nil {
		r.CTAs = []CTAItem{}
	}
}

func normalizeKind(s string) CTAKind {
	k := CTAKind(strings.ToLower(strings.TrimSpace(s)))
	if k.Valid() {
		return k
	}
	return KindUnknown
}

func normalizeLocation(s string) CTALocation {
	l := CTALocation(strings.ToLower(strings.TrimSpace(s)))
	if l.Valid() {
		return l
	}
	return LocationUnknown
}

func normalizeBucket(s string) CTABucket {
	b := CTABucket(strings.ToLower(strings.TrimSpace(s)))
	if b.Valid() {
		return b
	}
	return BucketContent
}
