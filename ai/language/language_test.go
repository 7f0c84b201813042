package language

import "testing"

func TestNormalize(t *testing.T) {
	tests := []struct {
		name     string
		code     string
		fallback string
		want     string
	}{
		{"blank uses fallback", "", "mr-IN", "mr-IN"},
		{"whitespace uses fallback", "   ", "en-IN", "en-IN"},
		{"auto uses fallback", "auto", "hi-IN", "hi-IN"},
		{"auto is case-insensitive", "AUTO", "hi-IN", "hi-IN"},
		{"two-letter alias", "hi", "en-IN", "hi-IN"},
		{"language name alias", "Tamil", "en-IN", "ta-IN"},
		{"region-qualified alias", "bn-in", "en-IN", "bn-IN"},
		{"unknown region-qualified recased", "kn-in", "en-IN", "kn-IN"},
		{"unknown region-qualified upper", "KN-IN", "en-IN", "kn-IN"},
		{"unknown bare code uses fallback", "xx", "en-IN", "en-IN"},
		{"gibberish uses fallback", "klingon", "en-IN", "en-IN"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := Normalize(tt.code, tt.fallback); got != tt.want {
				t.Errorf("Normalize(%q, %q) = %q, want %q", tt.code, tt.fallback, got, tt.want)
			}
		})
	}
}

func TestDetectScript(t *testing.T) {
	tests := []struct {
		name string
		text string
		want string
	}{
		{"devanagari", "मुझे सिरदर्द है", "hi-IN"},
		{"tamil", "எனக்கு தலைவலி", "ta-IN"},
		{"bengali", "আমার মাথা ব্যথা", "bn-IN"},
		{"latin", "I have a headache", "en-IN"},
		{"empty", "", "en-IN"},
		{"mixed latin then devanagari", "pain in सिर", "hi-IN"},
		// Devanagari outranks Tamil and Bengali regardless of character order.
		{"tamil before devanagari", "தலைவலி और सिरदर्द", "hi-IN"},
		{"bengali before tamil", "মাথা ব্যথা தலைவலி", "ta-IN"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := DetectScript(tt.text); got != tt.want {
				t.Errorf("DetectScript(%q) = %q, want %q", tt.text, got, tt.want)
			}
		})
	}
}
