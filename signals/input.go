package signals

// Features is the merged output of the visual and text feature extractors.
type Features struct {
	Visual VisualFeatures `json:"visual" yaml:"visual"`
	Text   TextFeatures   `json:"text" yaml:"text"`
}

// VisualFeatures are the hero and trust fields derived from a screenshot model.
type VisualFeatures struct {
	HeroHeadline       string `json:"hero_headline,omitempty" yaml:"hero_headline,omitempty"`
	HeroSubheadline    string `json:"hero_subheadline,omitempty" yaml:"hero_subheadline,omitempty"`
	HasPricing         bool   `json:"has_pricing,omitempty" yaml:"has_pricing,omitempty"`
	HasTestimonials    bool   `json:"has_testimonials,omitempty" yaml:"has_testimonials,omitempty"`
	HasLogos           bool   `json:"has_logos,omitempty" yaml:"has_logos,omitempty"`
	HasGuarantee       bool   `json:"has_guarantee,omitempty" yaml:"has_guarantee,omitempty"`
	PrimaryCTAText     string `json:"primary_cta_text,omitempty" yaml:"primary_cta_text,omitempty"`
	PrimaryCTAPosition string `json:"primary_cta_position,omitempty" yaml:"primary_cta_position,omitempty"`
}

// TextFeatures are derived from the page text.
type TextFeatures struct {
	KeyLines        []string `json:"key_lines,omitempty" yaml:"key_lines,omitempty"`
	HasPricing      bool     `json:"has_pricing,omitempty" yaml:"has_pricing,omitempty"`
	HasTestimonials bool     `json:"has_testimonials,omitempty" yaml:"has_testimonials,omitempty"`
	HasLogos        bool     `json:"has_logos,omitempty" yaml:"has_logos,omitempty"`
	HasGuarantee    bool     `json:"has_guarantee,omitempty" yaml:"has_guarantee,omitempty"`
	HasContact      bool     `json:"has_contact,omitempty" yaml:"has_contact,omitempty"`
}

// VisualElement is one element tagged by the visual model.
type VisualElement struct {
	Type string `json:"type" yaml:"type"`
	Text string `json:"text" yaml:"text"`
}

// Visual element tags the CTA bridge picks up.
const (
	ElementPrimaryCTA   = "primary_cta"
	ElementSecondaryCTA = "secondary_cta"
)

// VisualOutput is the raw visual-model payload.
type VisualOutput struct {
	HeroHeadline    string          `json:"hero_headline,omitempty" yaml:"hero_headline,omitempty"`
	Elements        []VisualElement `json:"elements,omitempty" yaml:"elements,omitempty"`
	HasPricing      bool            `json:"has_pricing,omitempty" yaml:"has_pricing,omitempty"`
	HasTestimonials bool            `json:"has_testimonials,omitempty" yaml:"has_testimonials,omitempty"`
	HasLogos        bool            `json:"has_logos,omitempty" yaml:"has_logos,omitempty"`
	HasGuarantee    bool            `json:"has_guarantee,omitempty" yaml:"has_guarantee,omitempty"`
	HasContact      bool            `json:"has_contact,omitempty" yaml:"has_contact,omitempty"`
}

// DOMCTA is a CTA candidate as reported by the DOM collector. Fields are
// raw strings; the extractor normalizes them.
type DOMCTA struct {
	Text     string `json:"text" yaml:"text"`
	Href     string `json:"href,omitempty" yaml:"href,omitempty"`
	Kind     string `json:"kind,omitempty" yaml:"kind,omitempty"`
	Location string `json:"location,omitempty" yaml:"location,omitempty"`
	Bucket   string `json:"bucket,omitempty" yaml:"bucket,omitempty"`
}

// DOMSnapshot is the page map produced by the DOM collector.
type DOMSnapshot struct {
	Title        string   `json:"title,omitempty" yaml:"title,omitempty"`
	HeroHeadline string   `json:"hero_headline,omitempty" yaml:"hero_headline,omitempty"`
	Headlines    []string `json:"headlines,omitempty" yaml:"headlines,omitempty"`
	CTAs         []DOMCTA `json:"ctas,omitempty" yaml:"ctas,omitempty"`
}
