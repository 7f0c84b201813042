package orchestrator

import (
	"context"
	"fmt"
	"strings"

	"github.com/medvani/medvani/ai/llm"
)

const (
	fallbackTitleLimit = 20
	modelTitleLimit    = 40
)

// AssignTitleFromPrompt derives a short session title from the first user
// message and assigns it. Assignment is write-once: a session that already
// carries a non-default title keeps it. Safe to call from a goroutine after
// the response has been returned.
func (o *Orchestrator) AssignTitleFromPrompt(ctx context.Context, sessionID, prompt string) {
	title := o.generateTitle(ctx, prompt)
	assigned, err := o.sessions.AssignTitle(ctx, sessionID, title)
	if err != nil {
		o.logger.Warn("failed to assign session title", "session_id", sessionID, "error", err)
		return
	}
	if !assigned {
		o.logger.Debug("session title already assigned", "session_id", sessionID)
	}
}

// generateTitle asks the model for a 3-4 word title, falling back to a
// truncation of the prompt when the model is absent, rate-limited, or fails.
func (o *Orchestrator) generateTitle(ctx context.Context, prompt string) string {
	if o.llm == nil || !o.titleLimiter.Allow() {
		return truncateTitle(prompt, fallbackTitleLimit)
	}

	title, err := o.llm.Chat(ctx, []llm.Message{
		{Role: "system", Content: "You summarize a medical chat into a short title."},
		{Role: "user", Content: fmt.Sprintf(
			"Create a 3-4 word title for this medical conversation. Respond with the title only, no quotes or punctuation.\n\n%s",
			prompt,
		)},
	})
	if err != nil {
		o.logger.Warn("title generation failed, using truncated prompt", "error", err)
		return truncateTitle(prompt, fallbackTitleLimit)
	}

	title = strings.Trim(strings.TrimSpace(title), `"'`)
	title = strings.Join(strings.Fields(title), " ")
	if title == "" {
		return truncateTitle(prompt, fallbackTitleLimit)
	}
	return truncateTitle(title, modelTitleLimit)
}

func truncateTitle(text string, limit int) string {
	text = strings.TrimSpace(text)
	if text == "" {
		return "New chat"
	}
	runes := []rune(text)
	if len(runes) <= limit {
		return text
	}
	return strings.TrimSpace(string(runes[:limit])) + "..."
}
