package profile

import (
	"testing"
)

func TestValidate_DefaultsMode(t *testing.T) {
	p := &Profile{Mode: "bogus", Data: "."}
	if err := p.Validate(); err != nil {
		t.Fatalf("Validate failed: %v", err)
	}
	if p.Mode != "demo" {
		t.Errorf("Expected mode demo, got %s", p.Mode)
	}
}

func TestValidate_SQLiteDSN(t *testing.T) {
	p := &Profile{Mode: "dev", Data: t.TempDir(), Driver: "sqlite"}
	if err := p.Validate(); err != nil {
		t.Fatalf("Validate failed: %v", err)
	}
	if p.DSN == "" {
		t.Error("Expected a default sqlite DSN, got empty")
	}
}

func TestSafeSpeechModel(t *testing.T) {
	tests := []struct {
		name       string
		configured string
		want       string
	}{
		{"empty uses default", "", "saarika:v2.5"},
		{"allowlisted passes through", "saaras:v3", "saaras:v3"},
		{"unknown falls back", "whisper-large", "saarika:v2.5"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Setenv("SARVAM_STT_MODEL", tt.configured)
			got := safeSpeechModel("SARVAM_STT_MODEL", "saarika:v2.5")
			if got != tt.want {
				t.Errorf("safeSpeechModel(%q) = %q, want %q", tt.configured, got, tt.want)
			}
		})
	}
}

func TestCapabilityFlags(t *testing.T) {
	p := &Profile{}
	if p.IsLLMEnabled() || p.IsSpeechEnabled() || p.IsVectorEnabled() {
		t.Error("Expected all capabilities disabled on empty profile")
	}
	p.LLMAPIKey = "k"
	p.SpeechAPIKey = "k"
	p.VectorDSN = "postgres://localhost/medvani"
	if !p.IsLLMEnabled() || !p.IsSpeechEnabled() || !p.IsVectorEnabled() {
		t.Error("Expected all capabilities enabled")
	}
}
