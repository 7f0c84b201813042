package llm

import "strings"

// Advisory translates a chat completion failure into a user-facing advisory
// string by substring classification. Callers surface the advisory instead of
// the raw error so a model outage never hard-fails a chat turn.
func Advisory(err error) string {
	msg := strings.ToLower(err.Error())
	switch {
	case strings.Contains(msg, "quota") ||
		strings.Contains(msg, "rate_limit_exceeded") ||
		strings.Contains(msg, "resource_exhausted"):
		return "Groq quota/rate limit exceeded. Please check Groq usage limits and retry."
	case strings.Contains(msg, "api key") ||
		strings.Contains(msg, "unauthorized") ||
		strings.Contains(msg, "authentication"):
		return "Groq API key is invalid or unauthorized. Update GROQ_API_KEY and restart the backend."
	case strings.Contains(msg, "rate"):
		return "Groq rate limit hit. Please wait a moment and retry."
	default:
		return "LLM request failed. Check backend logs for the exact Groq error."
	}
}
