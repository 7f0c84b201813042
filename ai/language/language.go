// Package language canonicalizes free-form language identifiers into the
// xx-XX codes used throughout the pipeline. Normalize is the single source of
// truth for language identity comparisons.
package language

import "strings"

// DefaultCode is the baseline language code when nothing better is known.
const DefaultCode = "en-IN"

// codeAliases maps language names, two-letter ISO codes, and region-qualified
// variants to their canonical code.
var codeAliases = map[string]string{
	"en":      "en-IN",
	"en-in":   "en-IN",
	"english": "en-IN",
	"hi":      "hi-IN",
	"hi-in":   "hi-IN",
	"hindi":   "hi-IN",
	"ta":      "ta-IN",
	"ta-in":   "ta-IN",
	"tamil":   "ta-IN",
	"bn":      "bn-IN",
	"bn-in":   "bn-IN",
	"bengali": "bn-IN",
	"te":      "te-IN",
	"te-in":   "te-IN",
	"telugu":  "te-IN",
	"mr":      "mr-IN",
	"mr-in":   "mr-IN",
	"marathi": "mr-IN",
}

// Normalize canonicalizes code into an xx-XX form. Blank or "auto" yields
// fallback; unknown but region-qualified codes (e.g. kn-in) are re-cased and
// passed through; anything else yields fallback. Pure and total.
func Normalize(code, fallback string) string {
	raw := strings.TrimSpace(code)
	if raw == "" {
		return fallback
	}
	lowered := strings.ToLower(raw)
	if lowered == "auto" {
		return fallback
	}
	if canonical, ok := codeAliases[lowered]; ok {
		return canonical
	}
	if base, region, ok := strings.Cut(raw, "-"); ok {
		return strings.ToLower(base) + "-" + strings.ToUpper(region)
	}
	return fallback
}

// DetectScript guesses a language code from Unicode script ranges. It is the
// deterministic fallback when external detection is unavailable and never
// fails; unknown scripts map to DefaultCode. Scripts are checked over the
// whole text with a fixed precedence (Devanagari, then Tamil, then Bengali)
// so mixed-script input resolves the same regardless of character order.
func DetectScript(text string) string {
	var devanagari, tamil, bengali bool
	for _, r := range text {
		switch {
		case r >= 0x0900 && r <= 0x097F:
			devanagari = true
		case r >= 0x0B80 && r <= 0x0BFF:
			tamil = true
		case r >= 0x0980 && r <= 0x09FF:
			bengali = true
		}
	}
	switch {
	case devanagari:
		return "hi-IN"
	case tamil:
		return "ta-IN"
	case bengali:
		return "bn-IN"
	}
	return DefaultCode
}
