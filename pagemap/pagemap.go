// Package pagemap turns raw HTML (or pasted page text) into the collaborator
// payloads the signal extractor and stage engine consume.
package pagemap

import (
	"net/url"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"github.com/rotisserie/eris"

	"github.com/landing-verdict/backend/signals"
	"github.com/landing-verdict/backend/stage"
)

// ErrEmpty is returned when there is nothing to map.
var ErrEmpty = eris.New("pagemap: empty document")

// MaxKeyLines caps the number of key lines kept per page.
const MaxKeyLines = 60

// Structure holds the page-level flags stage inference runs on.
type Structure struct {
	HasPricing      bool `json:"has_pricing" yaml:"has_pricing"`
	HasForm         bool `json:"has_form" yaml:"has_form"`
	HasCheckout     bool `json:"has_checkout" yaml:"has_checkout"`
	HasEducation    bool `json:"has_education" yaml:"has_education"`
	HasComparison   bool `json:"has_comparison" yaml:"has_comparison"`
	HasConfirmation bool `json:"has_confirmation" yaml:"has_confirmation"`
}

// PageMap is everything derived from one document.
type PageMap struct {
	URL       string              `json:"url" yaml:"url"`
	Title     string              `json:"title" yaml:"title"`
	Headlines []string            `json:"headlines" yaml:"headlines"`
	KeyLines  []string            `json:"key_lines" yaml:"key_lines"`
	DOM       signals.DOMSnapshot `json:"dom" yaml:"dom"`
	Features  signals.Features    `json:"features" yaml:"features"`
	Structure Structure           `json:"structure" yaml:"structure"`
	Content   string              `json:"content" yaml:"content"`
}

// StageInput builds the stage engine input for this page.
func (p *PageMap) StageInput(ctaText, offerType string) stage.Input {
	return stage.Input{
		CTAText:         ctaText,
		PageContent:     p.Content,
		HasPricing:      p.Structure.HasPricing,
		HasForm:         p.Structure.HasForm,
		HasCheckout:     p.Structure.HasCheckout,
		HasEducation:    p.Structure.HasEducation,
		HasComparison:   p.Structure.HasComparison,
		HasConfirmation: p.Structure.HasConfirmation,
		OfferType:       offerType,
	}
}

// CSS hooks.
const (
	selPricing      = "#pricing, [id*=pricing], [class*=pricing]"
	selTestimonials = "[class*=testimonial], [id*=testimonial], blockquote"
	selLogos        = "[class*=logo]"
	selGuarantee    = "[class*=guarantee], [id*=guarantee]"
	selContact      = "a[href^='mailto:'], a[href^='tel:'], [id*=contact], form[class*=contact]"

	selCheckout     = "[class*=checkout], [id*=checkout], form[action*=checkout], a[href*=checkout], a[href*=cart]"
	selEducation    = "article, [class*=blog], [class*=faq], [id*=faq], [class*=how-it-works], [id*=how-it-works], [class*=guide]"
	selComparison   = "[class*=comparison], [class*=compare], [id*=compare], table[class*=plans]"
	selConfirmation = "[class*=confirmation], [class*=thank-you], [id*=thank-you], [class*=order-complete]"

	selCTAs      = "a[href], button, input[type=submit], [role=button]"
	selKeyLines  = "h1, h2, h3, h4, p, li, blockquote"
	selAboveFold = "header, .hero, [class*=hero], [id*=hero]"
)

// FromHTML parses html and maps it. Input without any markup is treated as
// pasted page text.
func FromHTML(pageURL, html string) (*PageMap, error) {
	if strings.TrimSpace(html) == "" {
		return nil, ErrEmpty
	}
	if !strings.Contains(html, "<") {
		return FromText(pageURL, html), nil
	}

	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	if err != nil {
		return nil, eris.Wrap(err, "pagemap: parse html")
	}
	doc.Find("script, style, noscript, template").Remove()

	base, _ := url.Parse(pageURL)
	p := &PageMap{
		URL:   pageURL,
		Title: collapse(doc.Find("title").First().Text()),
	}

	doc.Find("h1, h2").Each(func(_ int, s *goquery.Selection) {
		if t := collapse(s.Text()); t != "" {
			p.Headlines = append(p.Headlines, t)
		}
	})
	p.KeyLines = keyLines(doc)

	p.DOM = signals.DOMSnapshot{
		Title:        p.Title,
		HeroHeadline: collapse(doc.Find("h1").First().Text()),
		Headlines:    p.Headlines,
		CTAs:         collectCTAs(doc, base),
	}

	has := func(sel string) bool { return doc.Find(sel).Length() > 0 }
	p.Features.Text = signals.TextFeatures{
		KeyLines:        p.KeyLines,
		HasPricing:      has(selPricing),
		HasTestimonials: has(selTestimonials),
		HasLogos:        doc.Find(selLogos).FilterFunction(outsideChrome).Length() > 0,
		HasGuarantee:    has(selGuarantee),
		HasContact:      has(selContact),
	}

	lowerTitle := strings.ToLower(p.Title)
	p.Structure = Structure{
		HasPricing:      p.Features.Text.HasPricing,
		HasForm:         has("form"),
		HasCheckout:     has(selCheckout),
		HasEducation:    has(selEducation),
		HasComparison:   has(selComparison),
		HasConfirmation: has(selConfirmation) || strings.Contains(lowerTitle, "thank you"),
	}
	p.Content = collapse(doc.Find("body").Text())
	if p.Content == "" {
		p.Content = collapse(doc.Text())
	}
	return p, nil
}

// FromText maps pasted page text: one key line per non-empty line.
func FromText(pageURL, text string) *PageMap {
	var lines []string
	seen := make(map[string]struct{})
	for _, raw := range strings.Split(text, "\n") {
		lines = appendLine(lines, seen, collapse(raw))
	}
	p := &PageMap{
		URL:      pageURL,
		KeyLines: lines,
		Content:  collapse(text),
	}
	p.Features.Text.KeyLines = lines
	return p
}

func keyLines(doc *goquery.Document) []string {
	var lines []string
	seen := make(map[string]struct{})
	doc.Find(selKeyLines).EachWithBreak(func(_ int, s *goquery.Selection) bool {
		lines = appendLine(lines, seen, collapse(s.Text()))
		return len(lines) < MaxKeyLines
	})
	return lines
}

func appendLine(lines []string, seen map[string]struct{}, line string) []string {
	if line == "" || len(lines) >= MaxKeyLines {
		return lines
	}
	if _, dup := seen[line]; dup {
		return lines
	}
	seen[line] = struct{}{}
	return append(lines, line)
}

func collectCTAs(doc *goquery.Document, base *url.URL) []signals.DOMCTA {
	var out []signals.DOMCTA
	hasFold := doc.Find(selAboveFold).Length() > 0
	doc.Find(selCTAs).Each(func(_ int, s *goquery.Selection) {
		text := ctaText(s)
		if text == "" {
			return
		}
		c := signals.DOMCTA{
			Text:     text,
			Kind:     string(ctaKind(s)),
			Bucket:   string(ctaBucket(s)),
			Location: string(ctaLocation(s, hasFold)),
		}
		if href, ok := s.Attr("href"); ok {
			c.Href = resolve(base, strings.TrimSpace(href))
		}
		out = append(out, c)
	})
	return out
}

func ctaText(s *goquery.Selection) string {
	if goquery.NodeName(s) == "input" {
		v, _ := s.Attr("value")
		if v = collapse(v); v != "" {
			return v
		}
		return "Submit"
	}
	if t := collapse(s.Text()); t != "" {
		return t
	}
	label, _ := s.Attr("aria-label")
	return collapse(label)
}

func ctaKind(s *goquery.Selection) signals.CTAKind {
	switch goquery.NodeName(s) {
	case "input":
		return signals.KindFormSubmit
	case "button":
		if t, _ := s.Attr("type"); (t == "" || t == "submit") && s.Closest("form").Length() > 0 {
			return signals.KindFormSubmit
		}
		return signals.KindButton
	case "a":
		class := strings.ToLower(s.AttrOr("class", ""))
		if strings.Contains(class, "btn") || strings.Contains(class, "button") || s.AttrOr("role", "") == "button" {
			return signals.KindButton
		}
		return signals.KindLink
	}
	if s.AttrOr("role", "") == "button" {
		return signals.KindButton
	}
	return signals.KindUnknown
}

func ctaBucket(s *goquery.Selection) signals.CTABucket {
	switch {
	case s.Closest("nav").Length() > 0:
		return signals.BucketNav
	case s.Closest("footer").Length() > 0:
		return signals.BucketFooter
	}
	return signals.BucketContent
}

// ctaLocation places s relative to the header or hero region. Without such
// a region the fold cannot be located from markup alone.
func ctaLocation(s *goquery.Selection, hasFold bool) signals.CTALocation {
	switch {
	case s.Closest(selAboveFold).Length() > 0:
		return signals.LocationAboveFold
	case hasFold:
		return signals.LocationBelowFold
	}
	return signals.LocationUnknown
}

// outsideChrome drops matches in the site header, nav and footer, so the
// site's own logo does not count as a client logo strip.
func outsideChrome(_ int, s *goquery.Selection) bool {
	return s.Closest("header, nav, footer").Length() == 0
}

func resolve(base *url.URL, href string) string {
	if base == nil || base.Scheme == "" || href == "" {
		return href
	}
	ref, err := url.Parse(href)
	if err != nil {
		return href
	}
	return base.ResolveReference(ref).String()
}

func collapse(s string) string {
	return strings.Join(strings.Fields(s), " ")
}
