package signals

import (
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func hasEvidence(r *SignalReport, source EvidenceSource, substr string) bool {
	for _, e := range r.Evidence {
		if e.Source == source && strings.Contains(e.Detail, substr) {
			return true
		}
	}
	return false
}

func TestExtract_NilInputsDegrade(t *testing.T) {
	r := Extract("", "", nil, nil, nil)
	require.NotNil(t, r)

	assert.Equal(t, InputURL, r.InputType)
	assert.Nil(t, r.HeroHeadline)
	assert.Nil(t, r.HeroSubheadline)
	assert.Nil(t, r.CTACountAboveFold)
	assert.False(t, r.AboveFoldAvailable)
	assert.False(t, r.HasPricing)
	assert.Empty(t, r.CTAs)
	assert.Empty(t, r.Evidence)
	assert.NoError(t, r.Validate())
}

func TestExtract_BucketOverrideWorkWithMe(t *testing.T) {
	dom := &DOMSnapshot{CTAs: []DOMCTA{{Text: "Work with me", Kind: "link", Bucket: "content"}}}
	r := Extract("https://coach.example", InputURL, nil, nil, dom)

	require.Len(t, r.CTAs, 1)
	assert.Equal(t, BucketAction, r.CTAs[0].Bucket)
	assert.Equal(t, 1, r.CTACountAction)
	assert.Equal(t, 0, r.CTACountContent)
	assert.True(t, hasEvidence(r, SourceDOM, `"Work with me" moved from content to action`))
}

func TestExtract_BucketOverrideByHref(t *testing.T) {
	dom := &DOMSnapshot{CTAs: []DOMCTA{
		{Text: "Say hello", Href: "mailto:hi@example.com", Bucket: "footer"},
		{Text: "Plans", Href: "/pricing", Bucket: "nav"},
	}}
	r := Extract("", InputHTML, nil, nil, dom)

	require.Len(t, r.CTAs, 2)
	assert.Equal(t, BucketAction, r.CTAs[0].Bucket)
	assert.Equal(t, BucketNav, r.CTAs[1].Bucket, "nav CTAs are never overridden")
	assert.True(t, r.HasContact)
}

func TestExtract_BucketOverrideAbsoluteHref(t *testing.T) {
	dom := &DOMSnapshot{CTAs: []DOMCTA{
		{Text: "Our history", Href: "https://bookshop.example/about"},
		{Text: "Lenses", Href: "https://contact-lens.example/shop"},
		{Text: "Archive", Href: "https://example.com/books/archive"},
		{Text: "Tables", Href: "https://bookshop.example/booking?party=2"},
		{Text: "Plans", Href: "https://cartoon.example/#pricing"},
		{Text: "Pick a time", Href: "https://calendly.com/studio/intro"},
	}}
	r := Extract("https://bookshop.example/", InputHTML, nil, nil, dom)

	got := make([]CTABucket, 0, len(r.CTAs))
	for _, c := range r.CTAs {
		got = append(got, c.Bucket)
	}
	assert.Equal(t, []CTABucket{
		BucketContent, BucketContent, BucketContent,
		BucketAction, BucketAction, BucketAction,
	}, got)
	assert.Equal(t, 3, r.CTACountAction)
	assert.False(t, r.HasContact, "a contact-like host is not a contact link")
}

func TestHrefTarget(t *testing.T) {
	for href, want := range map[string]string{
		"/pricing":                          "/pricing",
		"mailto:hi@example.com":             "mailto:hi@example.com",
		"https://bookshop.example/about":    "/about",
		"https://example.com/a#contact":     "/a#contact",
		"//demo.example/":                   "/",
		"https://calendly.com/studio/intro": "calendly.com/studio/intro",
	} {
		assert.Equal(t, want, hrefTarget(href), href)
	}
}

func TestExtract_DefaultBucketIsContent(t *testing.T) {
	dom := &DOMSnapshot{CTAs: []DOMCTA{
		{Text: "Our story"},
		{Text: "Read the essay", Bucket: "sidebar"},
		{Text: "   "},
	}}
	r := Extract("", InputHTML, nil, nil, dom)

	require.Len(t, r.CTAs, 2)
	for _, c := range r.CTAs {
		assert.Equal(t, BucketContent, c.Bucket)
		assert.Equal(t, KindUnknown, c.Kind)
		assert.Equal(t, LocationUnknown, c.Location)
	}
}

func TestExtract_VisualBridgeOnlyWhenDOMEmpty(t *testing.T) {
	visual := &VisualOutput{Elements: []VisualElement{
		{Type: ElementPrimaryCTA, Text: "Start free trial"},
		{Type: ElementSecondaryCTA, Text: "See demo"},
	}}

	t.Run("DOMPresent", func(t *testing.T) {
		dom := &DOMSnapshot{CTAs: []DOMCTA{{Text: "Learn more", Bucket: "content"}}}
		r := Extract("", InputURL, nil, visual, dom)
		require.Len(t, r.CTAs, 1)
		assert.Equal(t, "Learn more", r.CTAs[0].Text)
		assert.False(t, hasEvidence(r, SourceVisual, "bridged"))
	})

	t.Run("DOMEmpty", func(t *testing.T) {
		many := &VisualOutput{Elements: []VisualElement{
			{Type: ElementPrimaryCTA, Text: "One"},
			{Type: "logo", Text: "Acme"},
			{Type: ElementSecondaryCTA, Text: "Two"},
			{Type: ElementSecondaryCTA, Text: "Three"},
			{Type: ElementSecondaryCTA, Text: "Four"},
		}}
		r := Extract("", InputURL, nil, many, &DOMSnapshot{})
		require.Len(t, r.CTAs, maxBridgedCTAs)
		for _, c := range r.CTAs {
			assert.Equal(t, BucketAction, c.Bucket)
			assert.Equal(t, KindVisual, c.Kind)
			assert.Equal(t, LocationAboveFold, c.Location)
			assert.True(t, c.HasActionVerb)
		}
		assert.True(t, hasEvidence(r, SourceVisual, "bridged 3 CTA(s)"))
		assert.True(t, r.CTAs[0].IsPrimaryCandidate)
	})
}

func TestExtract_VisualPrimaryFallback(t *testing.T) {
	dom := &DOMSnapshot{CTAs: []DOMCTA{{Text: "BOOK A CALL", Kind: "button", Location: "above_fold", Bucket: "action"}}}

	t.Run("AlreadyPresent", func(t *testing.T) {
		f := &Features{Visual: VisualFeatures{PrimaryCTAText: "book a call"}}
		r := Extract("", InputURL, f, nil, dom)
		assert.Len(t, r.CTAs, 1)
	})

	t.Run("Missing", func(t *testing.T) {
		f := &Features{Visual: VisualFeatures{PrimaryCTAText: "Get my audit", PrimaryCTAPosition: "below_fold"}}
		r := Extract("", InputURL, f, nil, dom)
		require.Len(t, r.CTAs, 2)
		added := r.CTAs[1]
		assert.Equal(t, "Get my audit", added.Text)
		assert.Equal(t, BucketAction, added.Bucket)
		assert.Equal(t, LocationBelowFold, added.Location)
		assert.Equal(t, 2, r.CTACountAction)
		assert.True(t, hasEvidence(r, SourceVisual, "appended as action CTA"))
	})
}

func TestExtract_PrimarySelectionTiers(t *testing.T) {
	tierThree := DOMCTA{Text: "Our approach to projects", Kind: "link", Location: "below_fold", Bucket: "action"}
	tierTwo := DOMCTA{Text: "Download the guide", Kind: "link", Location: "below_fold", Bucket: "action"}
	tierOne := DOMCTA{Text: "Get started", Kind: "button", Location: "above_fold", Bucket: "action"}

	tests := []struct {
		name string
		ctas []DOMCTA
		want string
	}{
		{"AboveFoldButtonWithVerb", []DOMCTA{tierThree, tierTwo, tierOne}, "Get started"},
		{"FirstWithVerb", []DOMCTA{tierThree, tierTwo}, "Download the guide"},
		{"FirstAction", []DOMCTA{tierThree}, "Our approach to projects"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			dom := &DOMSnapshot{CTAs: tt.ctas}
			first := Extract("", InputURL, nil, nil, dom)
			second := Extract("", InputURL, nil, nil, dom)
			if diff := cmp.Diff(first, second); diff != "" {
				t.Fatalf("extraction is not deterministic:\n%s", diff)
			}

			var primaries []string
			for _, c := range first.CTAs {
				if c.IsPrimaryCandidate {
					primaries = append(primaries, c.Text)
				}
			}
			assert.Equal(t, []string{tt.want}, primaries)
		})
	}
}

func TestExtract_PrimaryIgnoresNonActionBuckets(t *testing.T) {
	dom := &DOMSnapshot{CTAs: []DOMCTA{{Text: "Get the newsletter", Bucket: "nav"}}}
	r := Extract("", InputURL, nil, nil, dom)
	require.Len(t, r.CTAs, 1)
	assert.False(t, r.CTAs[0].IsPrimaryCandidate)
}

func TestExtract_PrimaryDuplicateTextMarksFirst(t *testing.T) {
	dom := &DOMSnapshot{CTAs: []DOMCTA{
		{Text: "Book now", Kind: "link", Location: "below_fold", Bucket: "action"},
		{Text: "Book now", Kind: "button", Location: "above_fold", Bucket: "action"},
	}}
	r := Extract("", InputURL, nil, nil, dom)
	assert.True(t, r.CTAs[0].IsPrimaryCandidate)
	assert.False(t, r.CTAs[1].IsPrimaryCandidate)
}

func TestExtract_FoldCounts(t *testing.T) {
	t.Run("Unknown", func(t *testing.T) {
		dom := &DOMSnapshot{CTAs: []DOMCTA{{Text: "Book a call", Bucket: "action"}}}
		r := Extract("", InputURL, nil, nil, dom)
		assert.False(t, r.AboveFoldAvailable)
		assert.Nil(t, r.CTACountAboveFold)
	})

	t.Run("KnownZero", func(t *testing.T) {
		dom := &DOMSnapshot{CTAs: []DOMCTA{{Text: "Book a call", Location: "below_fold", Bucket: "action"}}}
		r := Extract("", InputURL, nil, nil, dom)
		assert.True(t, r.AboveFoldAvailable)
		require.NotNil(t, r.CTACountAboveFold)
		assert.Equal(t, 0, *r.CTACountAboveFold)
	})

	t.Run("KnownSome", func(t *testing.T) {
		dom := &DOMSnapshot{CTAs: []DOMCTA{
			{Text: "Book a call", Location: "above_fold", Bucket: "action"},
			{Text: "Request a quote", Location: "unknown", Bucket: "action"},
			{Text: "Home", Location: "above_fold", Bucket: "nav"},
		}}
		r := Extract("", InputURL, nil, nil, dom)
		require.NotNil(t, r.CTACountAboveFold)
		assert.Equal(t, 1, *r.CTACountAboveFold)
		assert.Equal(t, 1, r.CTACountNav)
		assert.Equal(t, 2, r.CTACountAction)
	})
}

func TestExtract_HeroResolution(t *testing.T) {
	t.Run("VisualFirst", func(t *testing.T) {
		f := &Features{Visual: VisualFeatures{HeroHeadline: "Visual headline wins"}}
		r := Extract("", InputURL, f, nil, &DOMSnapshot{HeroHeadline: "DOM headline"})
		require.NotNil(t, r.HeroHeadline)
		assert.Equal(t, "Visual headline wins", *r.HeroHeadline)
	})

	t.Run("DOMSecond", func(t *testing.T) {
		r := Extract("", InputURL, nil, nil, &DOMSnapshot{HeroHeadline: " DOM headline "})
		require.NotNil(t, r.HeroHeadline)
		assert.Equal(t, "DOM headline", *r.HeroHeadline)
	})

	t.Run("KeyLineFallback", func(t *testing.T) {
		f := &Features{Text: TextFeatures{KeyLines: []string{"Home", "About Us", "", "Bookkeeping for busy founders"}}}
		r := Extract("", InputHTML, f, nil, nil)
		require.NotNil(t, r.HeroHeadline)
		assert.Equal(t, "Bookkeeping for busy founders", *r.HeroHeadline)
		assert.True(t, hasEvidence(r, SourceText, "hero headline fell back"))
	})

	t.Run("OnlyNavLines", func(t *testing.T) {
		f := &Features{Text: TextFeatures{KeyLines: []string{"Home", "Services", "Contact"}}}
		r := Extract("", InputHTML, f, nil, nil)
		assert.Nil(t, r.HeroHeadline)
	})
}

func TestExtract_TrustFlags(t *testing.T) {
	f := &Features{
		Visual: VisualFeatures{HasLogos: true},
		Text: TextFeatures{KeyLines: []string{
			"Plans start at $49 per month",
			"What our clients say",
			"30-day money-back guarantee",
		}},
	}
	r := Extract("", InputHTML, f, &VisualOutput{HasContact: true}, nil)

	assert.True(t, r.HasPricing)
	assert.True(t, r.HasTestimonials)
	assert.True(t, r.HasLogos)
	assert.True(t, r.HasGuarantee)
	assert.True(t, r.HasContact)
	assert.True(t, hasEvidence(r, SourceText, "pricing: key line matched"))
	assert.True(t, hasEvidence(r, SourceVisual, "logos: reported by visual features"))
	assert.True(t, hasEvidence(r, SourceVisual, "contact: reported by visual model"))
}

func TestExtract_DoesNotMutateInputs(t *testing.T) {
	dom := &DOMSnapshot{CTAs: []DOMCTA{{Text: "Work with me", Bucket: "content"}}}
	_ = Extract("", InputURL, nil, nil, dom)
	assert.Equal(t, "content", dom.CTAs[0].Bucket)
}

func TestOverrideBucket_ReturnsCopy(t *testing.T) {
	in := CTAItem{Text: "Request a proposal", Kind: KindLink, Location: LocationUnknown, Bucket: BucketContent}
	out, why := overrideBucket(in)
	assert.Equal(t, BucketContent, in.Bucket)
	assert.Equal(t, BucketAction, out.Bucket)
	assert.NotEmpty(t, why)
}
