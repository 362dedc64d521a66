package decision

import (
	"encoding/json"
	"testing"

	"github.com/rotisserie/eris"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/landing-verdict/backend/signals"
)

func strPtr(s string) *string { return &s }
func intPtr(n int) *int       { return &n }

func blockerByID(d *DecisionLogic, id BlockerID) (DecisionBlocker, bool) {
	for _, b := range d.Blockers {
		if b.ID == id {
			return b, true
		}
	}
	return DecisionBlocker{}, false
}

func healthyReport() *signals.SignalReport {
	return &signals.SignalReport{
		URL:                "https://example.com",
		InputType:          signals.InputURL,
		HeroHeadline:       strPtr("Accounting for creative studios"),
		HasPricing:         true,
		HasTestimonials:    true,
		HasLogos:           true,
		HasGuarantee:       true,
		CTACountAction:     2,
		CTACountAboveFold:  intPtr(1),
		AboveFoldAvailable: true,
	}
}

func TestScore_WorstCaseScenario(t *testing.T) {
	r := &signals.SignalReport{InputType: signals.InputURL}
	d := Score(r)

	ids := make([]BlockerID, 0, len(d.Blockers))
	for _, b := range d.Blockers {
		ids = append(ids, b.ID)
	}
	assert.Equal(t, []BlockerID{
		BlockerMissingPricing,
		BlockerWeakTrustSignals,
		BlockerCTANotDetected,
		BlockerMissingHeroHeadline,
	}, ids)

	trust, _ := blockerByID(d, BlockerWeakTrustSignals)
	assert.Equal(t, SeverityHigh, trust.Severity)

	want := 0.25*0.30 + 0.25*0.25 + 0.20*0.25 + 0.40*0.20
	assert.InDelta(t, want, d.DecisionProbability, 1e-12)
	assert.InDelta(t, 0.2675, d.DecisionProbability, 1e-12)
}

func TestScore_HealthyReportHasNoBlockers(t *testing.T) {
	d := Score(healthyReport())
	assert.Empty(t, d.Blockers)
	assert.Equal(t, Components{Pricing: 1.0, Trust: 0.90, CTA: 0.90, Clarity: 0.75}, d.Scores)
	assert.InDelta(t, 0.30+0.225+0.225+0.15, d.DecisionProbability, 1e-12)
}

func TestScore_MissingPricingIsExact(t *testing.T) {
	r := healthyReport()
	r.HasPricing = false
	d := Score(r)

	b, ok := blockerByID(d, BlockerMissingPricing)
	require.True(t, ok)
	assert.Equal(t, SeverityHigh, b.Severity)
	assert.Equal(t, 0.85, b.Confidence)
	assert.Equal(t, 0.25, d.Scores.Pricing)
}

func TestScore_TrustTable(t *testing.T) {
	tests := []struct {
		name         string
		testimonials bool
		logos        bool
		guarantee    bool
		wantScore    float64
		wantSeverity Severity
		wantConf     float64
		wantBlocker  bool
	}{
		{"Zero", false, false, false, 0.25, SeverityHigh, 0.75, true},
		{"One", false, true, false, 0.50, SeverityMedium, 0.55, true},
		{"Two", true, false, true, 0.75, "", 0, false},
		{"Three", true, true, true, 0.90, "", 0, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := healthyReport()
			r.HasTestimonials, r.HasLogos, r.HasGuarantee = tt.testimonials, tt.logos, tt.guarantee
			d := Score(r)

			assert.Equal(t, tt.wantScore, d.Scores.Trust)
			b, ok := blockerByID(d, BlockerWeakTrustSignals)
			assert.Equal(t, tt.wantBlocker, ok)
			if tt.wantBlocker {
				assert.Equal(t, tt.wantSeverity, b.Severity)
				assert.Equal(t, tt.wantConf, b.Confidence)
			}
		})
	}
}

func TestScore_CTARules(t *testing.T) {
	t.Run("NotDetected", func(t *testing.T) {
		r := healthyReport()
		r.CTACountAction = 0
		r.CTACountAboveFold = nil
		r.AboveFoldAvailable = false
		d := Score(r)

		b, ok := blockerByID(d, BlockerCTANotDetected)
		require.True(t, ok)
		assert.Equal(t, 0.90, b.Confidence)
		_, below := blockerByID(d, BlockerCTABelowFold)
		assert.False(t, below)
		assert.Equal(t, 0.20, d.Scores.CTA)
	})

	t.Run("BelowFold", func(t *testing.T) {
		r := healthyReport()
		r.CTACountAboveFold = intPtr(0)
		d := Score(r)

		b, ok := blockerByID(d, BlockerCTABelowFold)
		require.True(t, ok)
		assert.Equal(t, SeverityMedium, b.Severity)
		assert.Equal(t, 0.70, b.Confidence)
		assert.Equal(t, 0.55, d.Scores.CTA)
	})

	t.Run("FoldUnknown", func(t *testing.T) {
		r := healthyReport()
		r.AboveFoldAvailable = false
		r.CTACountAboveFold = nil
		d := Score(r)

		_, below := blockerByID(d, BlockerCTABelowFold)
		assert.False(t, below)
		assert.Equal(t, 0.90, d.Scores.CTA)
	})
}

func TestScore_HeroHeadline(t *testing.T) {
	tests := []struct {
		name    string
		hero    *string
		blocked bool
	}{
		{"Nil", nil, true},
		{"Short", strPtr("  Hi all  "), true},
		{"Blank", strPtr("        "), true},
		{"Seven", strPtr("abcdefg"), true},
		{"Eight", strPtr("abcdefgh"), false},
		{"Unicode", strPtr("café café"), false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := healthyReport()
			r.HeroHeadline = tt.hero
			d := Score(r)

			b, ok := blockerByID(d, BlockerMissingHeroHeadline)
			assert.Equal(t, tt.blocked, ok)
			if ok {
				assert.Equal(t, 0.65, b.Confidence)
				assert.Equal(t, 0.40, d.Scores.Clarity)
			} else {
				assert.Equal(t, 0.75, d.Scores.Clarity)
			}
		})
	}
}

func TestProbability_AlwaysInUnitRange(t *testing.T) {
	values := []float64{0, 0.2, 0.25, 0.4, 0.5, 0.55, 0.75, 0.9, 1}
	for _, p := range values {
		for _, tr := range values {
			for _, c := range values {
				for _, cl := range values {
					got := Probability(Components{p, tr, c, cl}, Weights)
					assert.GreaterOrEqual(t, got, 0.0)
					assert.LessOrEqual(t, got, 1.0)
				}
			}
		}
	}

	overweight := Components{Pricing: 1, Trust: 1, CTA: 1, Clarity: 1}
	assert.Equal(t, 1.0, Probability(Components{1, 1, 1, 1}, overweight))
}

func TestWeightsSumToOne(t *testing.T) {
	assert.InDelta(t, 1.0, Weights.Pricing+Weights.Trust+Weights.CTA+Weights.Clarity, 1e-12)
}

func TestScore_Deterministic(t *testing.T) {
	r := healthyReport()
	r.HasLogos = false
	assert.Equal(t, Score(r), Score(r))
}

func TestScore_NilReport(t *testing.T) {
	d := Score(nil)
	require.NotNil(t, d)
	assert.Len(t, d.Blockers, 4)
}

func TestNewBlocker_Validation(t *testing.T) {
	_, err := NewBlocker(BlockerMissingPricing, SeverityHigh, 1.2, nil, nil)
	assert.True(t, eris.Is(err, ErrInvalid))

	_, err = NewBlocker("slow_page", SeverityHigh, 0.5, nil, nil)
	assert.True(t, eris.Is(err, ErrInvalid))

	_, err = NewBlocker(BlockerMissingPricing, "critical", 0.5, nil, nil)
	assert.True(t, eris.Is(err, ErrInvalid))

	b, err := NewBlocker(BlockerCTABelowFold, SeverityLow, 0, nil, nil)
	require.NoError(t, err)
	assert.NotNil(t, b.Evidence)
	assert.NotNil(t, b.Metrics)
}

func TestDecisionLogic_RoundTrip(t *testing.T) {
	payload := `{
	  "url": "https://example.com",
	  "blockers": [
	    {"id": "missing_pricing", "severity": "high", "confidence": 0.85,
	     "evidence": ["no pricing signal in visual, text or DOM inputs"], "metrics": {"has_pricing": false}}
	  ],
	  "scores": {"pricing": 0.25, "trust": 0.9, "cta": 0.9, "clarity": 0.75},
	  "decision_probability": 0.675,
	  "weights": {"pricing": 0.3, "trust": 0.25, "cta": 0.25, "clarity": 0.2},
	  "inputs": {"trust_count": 3, "cta_count_above_fold": null}
	}`
	var d DecisionLogic
	require.NoError(t, json.Unmarshal([]byte(payload), &d))

	out, err := json.Marshal(&d)
	require.NoError(t, err)
	assert.JSONEq(t, payload, string(out))
}

func TestDecisionLogic_RejectsOutOfRange(t *testing.T) {
	for name, payload := range map[string]string{
		"probability": `{"decision_probability": 1.5}`,
		"score":       `{"scores": {"pricing": -0.1}}`,
		"confidence":  `{"blockers": [{"id": "missing_pricing", "severity": "high", "confidence": 2}]}`,
		"severity":    `{"blockers": [{"id": "missing_pricing", "severity": "severe", "confidence": 0.5}]}`,
	} {
		t.Run(name, func(t *testing.T) {
			var d DecisionLogic
			err := json.Unmarshal([]byte(payload), &d)
			require.Error(t, err)
			assert.True(t, eris.Is(err, ErrInvalid), "got %v", err)
		})
	}
}

func TestComponents_ValidateReportsFirstBadField(t *testing.T) {
	c := Components{Pricing: 0.5, Trust: 1.2, CTA: -0.4, Clarity: 3}
	for i := 0; i < 20; i++ {
		err := c.validate("scores")
		require.Error(t, err)
		assert.Contains(t, err.Error(), "scores.trust 1.2 outside [0,1]")
	}
}

func TestScore_OutputValidates(t *testing.T) {
	for _, r := range []*signals.SignalReport{healthyReport(), {InputType: signals.InputHTML}} {
		assert.NoError(t, Score(r).Validate())
	}
}
