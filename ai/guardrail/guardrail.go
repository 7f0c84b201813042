// Package guardrail enforces the medical-safety policy that can abort a chat
// request before any retrieval or model call.
package guardrail

import (
	"log/slog"
	"strings"
)

// RejectionMessage is the user-facing detail returned on a guardrail hit.
const RejectionMessage = "Cannot provide dosage guidance for restricted Schedule H/X medications."

// dosageTerms trigger the restricted-substance check. The match is a
// conservative keyword heuristic, not a clinical classifier; paraphrased
// requests slipping through is an accepted limitation, not a defect.
var dosageTerms = []string{"dosage", "dose"}

// scheduleHXBlocklist names the restricted Schedule H/X substances.
var scheduleHXBlocklist = []string{
	"alprazolam",
	"codeine",
	"morphine",
	"fentanyl",
	"zolpidem",
	"diazepam",
}

// Result is the outcome of one policy check.
type Result struct {
	Allowed bool
	Reason  string
}

// Engine checks user messages against the restricted-dosage policy.
type Engine struct {
	logger *slog.Logger
}

// NewEngine creates a guardrail engine.
func NewEngine(logger *slog.Logger) *Engine {
	if logger == nil {
		logger = slog.Default()
	}
	return &Engine{logger: logger}
}

// Check rejects messages that ask for dosage of a restricted substance.
// It is synchronous, has no side effects, and runs before any external call.
func (e *Engine) Check(message string) Result {
	lower := strings.ToLower(message)

	hasDosageTerm := false
	for _, term := range dosageTerms {
		if strings.Contains(lower, term) {
			hasDosageTerm = true
			break
		}
	}
	if !hasDosageTerm {
		return Result{Allowed: true}
	}

	for _, substance := range scheduleHXBlocklist {
		if strings.Contains(lower, substance) {
			e.logger.Warn("guardrail rejected restricted dosage request", "substance", substance)
			return Result{Allowed: false, Reason: RejectionMessage}
		}
	}
	return Result{Allowed: true}
}
