package guardrail

import "testing"

func TestCheck(t *testing.T) {
	e := NewEngine(nil)

	tests := []struct {
		name    string
		message string
		allowed bool
	}{
		{"dosage of restricted substance", "what dosage of fentanyl should I take", false},
		{"dose of restricted substance", "recommended dose of morphine for pain", false},
		{"case-insensitive", "What DOSAGE of Diazepam is safe?", false},
		{"dosage of unrestricted substance", "I have a headache and took 2 dosage of paracetamol", true},
		{"restricted substance without dosage term", "what are the side effects of codeine", true},
		{"no medical terms at all", "hello, how are you", true},
		{"empty message", "", true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result := e.Check(tt.message)
			if result.Allowed != tt.allowed {
				t.Errorf("Check(%q).Allowed = %v, want %v", tt.message, result.Allowed, tt.allowed)
			}
			if !result.Allowed && result.Reason == "" {
				t.Error("rejection must carry a reason")
			}
			if result.Allowed && result.Reason != "" {
				t.Errorf("pass must not carry a reason, got %q", result.Reason)
			}
		})
	}
}

func TestCheck_AllBlocklistedSubstances(t *testing.T) {
	e := NewEngine(nil)
	for _, substance := range scheduleHXBlocklist {
		if e.Check("dosage of " + substance).Allowed {
			t.Errorf("Expected rejection for %q", substance)
		}
	}
}
