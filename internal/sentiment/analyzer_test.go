package sentiment

import (
	"strings"
	"testing"

	"github.com/go-playground/assert/v2"
)

func TestVaderAnalyzerPolarity(t *testing.T) {
	t.Parallel()

	a := NewVaderAnalyzer()

	assert.Equal(t, a.Polarity("good"), 0.4404)
	assert.Equal(t, a.Polarity("The meeting was held on Tuesday at the downtown office."), 0.0)
	assert.Equal(t, a.Polarity(""), 0.0)

	if got := a.Polarity("The company reported strong quarterly growth and record profits, delighting investors."); got <= 0.3 {
		t.Fatalf("expected strongly positive score, got %v", got)
	}
	if got := a.Polarity("The plant explosion was a tragedy and a disaster."); got >= -0.3 {
		t.Fatalf("expected strongly negative score, got %v", got)
	}
}

func TestVaderAnalyzerNegation(t *testing.T) {
	t.Parallel()

	a := NewVaderAnalyzer()
	plain := a.Polarity("The results were good")
	negated := a.Polarity("The results were not good")
	if plain <= 0 || negated >= 0 {
		t.Fatalf("negation should flip polarity: plain=%v negated=%v", plain, negated)
	}
}

func TestVaderAnalyzerBoostersAndEmphasis(t *testing.T) {
	t.Parallel()

	a := NewVaderAnalyzer()
	base := a.Polarity("The launch was good")
	boosted := a.Polarity("The launch was very good")
	shouted := a.Polarity("The launch was GOOD")
	excited := a.Polarity("The launch was good!!")

	for name, v := range map[string]float64{"booster": boosted, "caps": shouted, "exclamation": excited} {
		if v <= base {
			t.Fatalf("%s should amplify: base=%v got=%v", name, base, v)
		}
	}
}

func TestVaderAnalyzerContrast(t *testing.T) {
	t.Parallel()

	a := NewVaderAnalyzer()
	if got := a.Polarity("The food was good but the service was terrible"); got >= 0 {
		t.Fatalf("clause after but should dominate, got %v", got)
	}
}

func TestVaderAnalyzerFoldsCompatibilityForms(t *testing.T) {
	t.Parallel()

	a := NewVaderAnalyzer()
	// "ｇｏｏｄ" is written with full-width letters.
	assert.Equal(t, a.Polarity("ｇｏｏｄ"), a.Polarity("good"))
}

func TestVaderAnalyzerRange(t *testing.T) {
	t.Parallel()

	a := NewVaderAnalyzer()
	for _, text := range []string{
		strings.Repeat("wonderful amazing excellent ", 50) + "!!!",
		strings.Repeat("horrible awful terrible ", 50) + "!!!",
		"???",
	} {
		got := a.Polarity(text)
		if got < -1 || got > 1 {
			t.Fatalf("Polarity out of range: %v", got)
		}
	}
}
