package llm

import (
	"errors"
	"strings"
	"testing"
)

func TestAdvisory(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want string
	}{
		{"quota", errors.New("error: quota exceeded for org"), "quota/rate limit"},
		{"rate limit code", errors.New("429 rate_limit_exceeded"), "quota/rate limit"},
		{"resource exhausted", errors.New("RESOURCE_EXHAUSTED"), "quota/rate limit"},
		{"bad key", errors.New("invalid API key provided"), "invalid or unauthorized"},
		{"unauthorized", errors.New("401 Unauthorized"), "invalid or unauthorized"},
		{"generic rate", errors.New("request rate too high"), "wait a moment"},
		{"anything else", errors.New("connection reset by peer"), "Check backend logs"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Advisory(tt.err)
			if !strings.Contains(got, tt.want) {
				t.Errorf("Advisory(%v) = %q, want substring %q", tt.err, got, tt.want)
			}
		})
	}
}
