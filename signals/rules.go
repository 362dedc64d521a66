package signals

import (
	"net/url"
	"regexp"
	"strings"
)

// actionIntentText matches CTA copy that signals conversion intent even
// when the DOM collector placed it in a content bucket.
var actionIntentText = regexp.MustCompile(`(?i)\b(` +
	`book(\s+(a|your|now|me|us))?|` +
	`request(\s+(a|an|your))?|` +
	`schedule|reserve|` +
	`work\s+with\s+(me|us)|hire\s+(me|us)|` +
	`get\s+started|get\s+in\s+touch|let'?s\s+talk|talk\s+to\s+(me|us|sales)|` +
	`get\s+(a|your|my)\s+(quote|demo|proposal|consultation|audit)|` +
	`view\s+(\w+\s+){0,3}(services|work|strategy|projects|pricing|plans)|` +
	`see\s+(\w+\s+){0,2}(pricing|plans)|` +
	`start\s+(your|a|my)\s+\w+|` +
	`sign\s*up|subscribe|buy|order\s+now|apply\s+now|claim|try\s+(\w+\s+)?free` +
	`)\b`)

// actionHref matches href targets (see hrefTarget) that point at a
// conversion endpoint. Path keywords must end at a word boundary.
var actionHref = regexp.MustCompile(`(?i)(^mailto:|^tel:|#(pricing|contact)\b|calendly\.com|/(contact|book(ing)?|schedule|pricing|demo|sign-?up|register|checkout|cart|quote)\b)`)

// schedulerHost matches booking services whose host alone shows intent.
var schedulerHost = regexp.MustCompile(`(?i)(^|\.)calendly\.com$`)

// actionVerb matches imperative verbs typical of CTA copy.
var actionVerb = regexp.MustCompile(`(?i)\b(get|start|book|buy|try|join|sign|subscribe|request|schedule|download|claim|contact|create|apply|order|shop|learn|discover|explore|see|view|watch|register|reserve|hire|work|talk|call|grab|unlock|access|upgrade|install|add|send|chat|let'?s)\b`)

// outcomeLanguage matches copy that promises a result.
var outcomeLanguage = regexp.MustCompile(`(?i)\b(free|save|grow|increase|boost|results?|instantly|today|now|guaranteed?|without|roi|faster|better|more\s+(leads|sales|clients|customers|revenue|time)|in\s+\d+\s+(minutes?|days?|weeks?))\b`)

// navStopwords are key lines that are navigation labels, never headlines.
var navStopwords = map[string]struct{}{
	"home": {}, "about": {}, "about us": {}, "services": {}, "our services": {},
	"contact": {}, "contact us": {}, "blog": {}, "pricing": {}, "menu": {},
	"login": {}, "log in": {}, "sign in": {}, "portfolio": {}, "work": {},
	"faq": {}, "faqs": {}, "careers": {}, "shop": {}, "cart": {}, "team": {},
	"products": {}, "resources": {}, "skip to content": {}, "search": {},
}

// trustRule is one keyword family that can set a trust flag from text.
type trustRule struct {
	name    string
	pattern *regexp.Regexp
}

var (
	pricingText = trustRule{"pricing", regexp.MustCompile(`(?i)([$€£]\s?\d|\b\d+\s?(usd|eur|gbp)\b|\bpricing\b|\bper\s+(month|year|user|seat)\b|/\s?(mo|month|yr|year)\b|\bplans?\s+start|\bstarting\s+at\b)`)}

	testimonialText = trustRule{"testimonials", regexp.MustCompile(`(?i)\b(testimonials?|what\s+(our\s+)?(clients|customers|people)\s+say|reviews?|rated\s+\d|\d(\.\d)?\s*/\s*5|five[-\s]star|trustpilot|g2)\b`)}

	logoText = trustRule{"logos", regexp.MustCompile(`(?i)\b(trusted\s+by|as\s+seen\s+(in|on)|featured\s+in|our\s+(clients|partners)|used\s+by|backed\s+by)\b`)}

	guaranteeText = trustRule{"guarantee", regexp.MustCompile(`(?i)\b(money[-\s]back|guarantee[ds]?|risk[-\s]free|no\s+questions\s+asked|cancel\s+anytime|free\s+returns?|refund)\b`)}

	contactText = trustRule{"contact", regexp.MustCompile(`(?i)(\bcontact\s+us\b|\bget\s+in\s+touch\b|\bcall\s+us\b|[\w.+-]+@[\w-]+\.[\w.]+|\+?\d[\d\s().-]{7,}\d)`)}
)

// contactHref matches href targets that give the visitor a direct channel.
var contactHref = regexp.MustCompile(`(?i)(^mailto:|^tel:|/contact\b)`)

// hrefTarget reduces an href to the part that carries intent. Links with a
// host keep only their path and fragment, so a site called bookshop.example
// does not turn every link into a booking link. Relative, mailto and tel
// hrefs are returned unchanged.
func hrefTarget(href string) string {
	u, err := url.Parse(href)
	if err != nil || u.Host == "" {
		return href
	}
	target := u.Path
	if schedulerHost.MatchString(u.Hostname()) {
		target = u.Hostname() + target
	}
	if u.Fragment != "" {
		target += "#" + u.Fragment
	}
	return target
}

// isActionIntent reports whether text or href forces a CTA into the action bucket.
func isActionIntent(text, href string) (matched bool, why string) {
	if m := actionIntentText.FindString(text); m != "" {
		return true, "text matches action intent \"" + strings.ToLower(m) + "\""
	}
	if href != "" {
		if m := actionHref.FindString(hrefTarget(href)); m != "" {
			return true, "href matches action path \"" + strings.ToLower(m) + "\""
		}
	}
	return false, ""
}

func hasActionVerb(text string) bool { return actionVerb.MatchString(text) }

func hasOutcomeLanguage(text string) bool { return outcomeLanguage.MatchString(text) }

func isNavLine(line string) bool {
	_, ok := navStopwords[strings.ToLower(strings.TrimSpace(line))]
	return ok
}

// firstMatch returns the first key line matched by the rule, if any.
func (r trustRule) firstMatch(lines []string) (string, bool) {
	for _, line := range lines {
		if r.pattern.MatchString(line) {
			return line, true
		}
	}
	return "", false
}
