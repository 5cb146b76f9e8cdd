package normalization

import (
	"testing"
)

type testEnum string

const (
	testEnumAlpha testEnum = "alpha"
	testEnumBeta  testEnum = "beta"
	testEnumGamma testEnum = "gamma"
)

func newTestNormalizer() *Normalizer[testEnum] {
	return NewNormalizer(map[string]testEnum{
		"alpha": testEnumAlpha,
		"beta":  testEnumBeta,
		"gamma": testEnumGamma,
	}, testEnumAlpha)
}

func TestNormalizer_Basic(t *testing.T) {
	normalizer := newTestNormalizer()

	tests := []struct {
		name     string
		input    string
		expected testEnum
	}{
		{"exact match", "alpha", testEnumAlpha},
		{"case insensitive", "BETA", testEnumBeta},
		{"with spaces", "  gamma  ", testEnumGamma},
		{"invalid input", "invalid", testEnumAlpha},
		{"empty input", "", testEnumAlpha},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := normalizer.Normalize(tt.input); got != tt.expected {
				t.Errorf("Normalize(%q) = %v, want %v", tt.input, got, tt.expected)
			}
		})
	}
}

func TestNormalizer_Parse(t *testing.T) {
	normalizer := newTestNormalizer()

	got, err := normalizer.Parse("mode", " Gamma ")
	if err != nil || got != testEnumGamma {
		t.Fatalf("Parse(Gamma) = %v, %v", got, err)
	}

	got, err = normalizer.Parse("mode", "")
	if err != nil || got != testEnumAlpha {
		t.Fatalf("Parse(empty) = %v, %v; want default", got, err)
	}

	if _, err := normalizer.Parse("mode", "delta"); err == nil {
		t.Fatal("expected error for unknown value")
	}
}

func TestNormalizer_ValidKeysSorted(t *testing.T) {
	keys := newTestNormalizer().ValidKeys()
	want := []string{"alpha", "beta", "gamma"}
	if len(keys) != len(want) {
		t.Fatalf("ValidKeys() = %v", keys)
	}
	for i := range want {
		if keys[i] != want[i] {
			t.Fatalf("ValidKeys() = %v, want %v", keys, want)
		}
	}
}
