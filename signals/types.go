package signals

import (
	"encoding/json"

	"github.com/rotisserie/eris"
)

// ErrInvalid is wrapped by every schema validation failure.
var ErrInvalid = eris.New("signals: invalid value")

// EvidenceSource names where a piece of evidence came from.
type EvidenceSource string

const (
	SourceText   EvidenceSource = "text"
	SourceVisual EvidenceSource = "visual"
	SourceDOM    EvidenceSource = "dom"
)

// Valid reports whether s is a known evidence source.
func (s EvidenceSource) Valid() bool {
	switch s {
	case SourceText, SourceVisual, SourceDOM:
		return true
	}
	return false
}

func (s *EvidenceSource) UnmarshalText(b []byte) error {
	v := EvidenceSource(b)
	if !v.Valid() {
		return eris.Wrapf(ErrInvalid, "evidence source %q", string(b))
	}
	*s = v
	return nil
}

// CTAKind is the element type a CTA was rendered as.
type CTAKind string

const (
	KindButton     CTAKind = "button"
	KindLink       CTAKind = "link"
	KindFormSubmit CTAKind = "form_submit"
	KindVisual     CTAKind = "visual"
	KindUnknown    CTAKind = "unknown"
)

func (k CTAKind) Valid() bool {
	switch k {
	case KindButton, KindLink, KindFormSubmit, KindVisual, KindUnknown:
		return true
	}
	return false
}

func (k *CTAKind) UnmarshalText(b []byte) error {
	v := CTAKind(b)
	if !v.Valid() {
		return eris.Wrapf(ErrInvalid, "cta kind %q", string(b))
	}
	*k = v
	return nil
}

// CTALocation is the fold position of a CTA.
type CTALocation string

const (
	LocationAboveFold CTALocation = "above_fold"
	LocationBelowFold CTALocation = "below_fold"
	LocationUnknown   CTALocation = "unknown"
)

func (l CTALocation) Valid() bool {
	switch l {
	case LocationAboveFold, LocationBelowFold, LocationUnknown:
		return true
	}
	return false
}

func (l *CTALocation) UnmarshalText(b []byte) error {
	v := CTALocation(b)
	if !v.Valid() {
		return eris.Wrapf(ErrInvalid, "cta location %q", string(b))
	}
	*l = v
	return nil
}

// CTABucket is the functional category of a CTA.
type CTABucket string

const (
	BucketNav     CTABucket = "nav"
	BucketAction  CTABucket = "action"
	BucketContent CTABucket = "content"
	BucketFooter  CTABucket = "footer"
)

func (b CTABucket) Valid() bool {
	switch b {
	case BucketNav, BucketAction, BucketContent, BucketFooter:
		return true
	}
	return false
}

func (b *CTABucket) UnmarshalText(text []byte) error {
	v := CTABucket(text)
	if !v.Valid() {
		return eris.Wrapf(ErrInvalid, "cta bucket %q", string(text))
	}
	*b = v
	return nil
}

// InputType records whether the snapshot was fetched or pasted.
type InputType string

const (
	InputURL  InputType = "url"
	InputHTML InputType = "html"
)

func (t InputType) Valid() bool {
	return t == InputURL || t == InputHTML
}

func (t *InputType) UnmarshalText(b []byte) error {
	v := InputType(b)
	if !v.Valid() {
		return eris.Wrapf(ErrInvalid, "input type %q", string(b))
	}
	*t = v
	return nil
}

// EvidenceItem explains why a signal fired. Items are append-only.
type EvidenceItem struct {
	Source EvidenceSource `json:"source" yaml:"source"`
	Detail string         `json:"detail" yaml:"detail"`
}

// NewEvidence validates the source and returns a new item.
func NewEvidence(source EvidenceSource, detail string) (EvidenceItem, error) {
	if !source.Valid() {
		return EvidenceItem{}, eris.Wrapf(ErrInvalid, "evidence source %q", string(source))
	}
	return EvidenceItem{Source: source, Detail: detail}, nil
}

// CTAItem is one candidate call-to-action.
type CTAItem struct {
	Text               string      `json:"text" yaml:"text"`
	Href               *string     `json:"href" yaml:"href"`
	Kind               CTAKind     `json:"kind" yaml:"kind"`
	Location           CTALocation `json:"location" yaml:"location"`
	Bucket             CTABucket   `json:"bucket" yaml:"bucket"`
	IsPrimaryCandidate bool        `json:"is_primary_candidate" yaml:"is_primary_candidate"`
	HasActionVerb      bool        `json:"has_action_verb" yaml:"has_action_verb"`
	HasOutcomeLanguage bool        `json:"has_outcome_language" yaml:"has_outcome_language"`
}

// Validate checks text and enum fields.
func (c CTAItem) Validate() error {
	if c.Text == "" {
		return eris.Wrap(ErrInvalid, "cta text is empty")
	}
	if !c.Kind.Valid() {
		return eris.Wrapf(ErrInvalid, "cta kind %q", string(c.Kind))
	}
	if !c.Location.Valid() {
		return eris.Wrapf(ErrInvalid, "cta location %q", string(c.Location))
	}
	if !c.Bucket.Valid() {
		return eris.Wrapf(ErrInvalid, "cta bucket %q", string(c.Bucket))
	}
	return nil
}

// SignalReport is the normalized, snapshot-level signal set.
type SignalReport struct {
	URL             string    `json:"url" yaml:"url"`
	InputType       InputType `json:"input_type" yaml:"input_type"`
	HeroHeadline    *string   `json:"hero_headline" yaml:"hero_headline"`
	HeroSubheadline *string   `json:"hero_subheadline" yaml:"hero_subheadline"`

	HasPricing      bool `json:"has_pricing" yaml:"has_pricing"`
	HasTestimonials bool `json:"has_testimonials" yaml:"has_testimonials"`
	HasLogos        bool `json:"has_logos" yaml:"has_logos"`
	HasGuarantee    bool `json:"has_guarantee" yaml:"has_guarantee"`
	HasContact      bool `json:"has_contact" yaml:"has_contact"`

	CTACountNav     int `json:"cta_count_nav" yaml:"cta_count_nav"`
	CTACountAction  int `json:"cta_count_action" yaml:"cta_count_action"`
	CTACountContent int `json:"cta_count_content" yaml:"cta_count_content"`
	CTACountFooter  int `json:"cta_count_footer" yaml:"cta_count_footer"`

	// CTACountAboveFold is nil when fold position is unknown for the page.
	CTACountAboveFold  *int `json:"cta_count_above_fold" yaml:"cta_count_above_fold"`
	AboveFoldAvailable bool `json:"above_fold_available" yaml:"above_fold_available"`

	CTAs     []CTAItem      `json:"ctas" yaml:"ctas"`
	Evidence []EvidenceItem `json:"evidence" yaml:"evidence"`
	Raw      map[string]any `json:"raw" yaml:"raw"`
}

// Validate checks every enum, count and the single-primary invariant.
func (r *SignalReport) Validate() error {
	if !r.InputType.Valid() {
		return eris.Wrapf(ErrInvalid, "input type %q", string(r.InputType))
	}
	for _, count := range []struct {
		name string
		n    int
	}{
		{"cta_count_nav", r.CTACountNav},
		{"cta_count_action", r.CTACountAction},
		{"cta_count_content", r.CTACountContent},
		{"cta_count_footer", r.CTACountFooter},
	} {
		if count.n < 0 {
			return eris.Wrapf(ErrInvalid, "%s is negative (%d)", count.name, count.n)
		}
	}
	if r.CTACountAboveFold != nil && *r.CTACountAboveFold < 0 {
		return eris.Wrapf(ErrInvalid, "cta_count_above_fold is negative (%d)", *r.CTACountAboveFold)
	}

	primaries := 0
	for i, c := range r.CTAs {
		if err := c.Validate(); err != nil {
			return eris.Wrapf(err, "ctas[%d]", i)
		}
		if c.Bucket == BucketAction && c.IsPrimaryCandidate {
			primaries++
		}
	}
	if primaries > 1 {
		return eris.Wrapf(ErrInvalid, "%d primary candidates in action bucket", primaries)
	}

	for i, e := range r.Evidence {
		if !e.Source.Valid() {
			return eris.Wrapf(ErrInvalid, "evidence[%d] source %q", i, string(e.Source))
		}
	}
	return nil
}

// UnmarshalJSON decodes and then validates the report.
func (r *SignalReport) UnmarshalJSON(b []byte) error {
	type plain SignalReport
	var p plain
	if err := json.Unmarshal(b, &p); err != nil {
		return eris.Wrap(err, "signals: decode report")
	}
	out := SignalReport(p)
	if err := out.Validate(); err != nil {
		return err
	}
	*r = out
	return nil
}
