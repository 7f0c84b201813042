// Package orchestrator runs the chat pipeline: guardrail check, language
// detection, multimodal context normalization, retrieval, model invocation,
// translation, and persistence. The guardrail is the only step allowed to
// fail a request; every other step degrades to a documented fallback.
package orchestrator

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/semaphore"
	"golang.org/x/time/rate"

	"github.com/medvani/medvani/ai/guardrail"
	"github.com/medvani/medvani/ai/language"
	"github.com/medvani/medvani/ai/llm"
	"github.com/medvani/medvani/ai/metrics"
	"github.com/medvani/medvani/ai/speech"
	"github.com/medvani/medvani/memory"
	"github.com/medvani/medvani/store"
)

// safetyPrompt is the fixed system preamble for every model invocation.
const safetyPrompt = "You are MedVani, a medical support assistant. " +
	"You support broad medical questions including symptoms, diseases, medicines, tests, prevention, vaccines, nutrition, lifestyle, and when-to-seek-care guidance. " +
	"You must avoid definitive diagnoses and use language like 'Potential indications suggest...'. " +
	"Always advise in-person consultation with a licensed physician. " +
	"If asked for dosage of Schedule H/X medicines, refuse and offer safe alternatives. " +
	"You may explain medicine purpose, common side effects, contraindications, and interactions at a high level, but do not provide restricted dosage instructions. " +
	"Keep reasoning concise and clinically grounded in retrieved context."

// emptyAnswerFallback replaces an empty model response.
const emptyAnswerFallback = "Please consult a physician in person."

// llmAbsentAnswer is returned when no model backend is configured.
const llmAbsentAnswer = "LLM is not initialized. Set GROQ_API_KEY and restart the backend."

// modelOutputLang is the language the model answers in before translation.
const modelOutputLang = "en-IN"

const (
	retrievalTimeout = 10 * time.Second
	// At most this many media-normalization model calls run concurrently.
	mediaConcurrency = 3
)

// MediaKind discriminates attached media items.
type MediaKind string

const (
	MediaText  MediaKind = "text"
	MediaImage MediaKind = "image"
	MediaVideo MediaKind = "video"
	MediaAudio MediaKind = "audio"
)

// MediaInput is one attached media item: text, base64 image/audio, or a URL
// for video.
type MediaInput struct {
	Kind    MediaKind `json:"kind"`
	Content string    `json:"content"`
}

// ChatRequest is one user chat turn.
type ChatRequest struct {
	OwnerID      string       `json:"user_id"`
	SessionID    string       `json:"session_id"`
	Message      string       `json:"message"`
	LanguageLock string       `json:"language_lock"`
	Media        []MediaInput `json:"media"`
}

// ChatResponse is the completed turn returned to the caller.
type ChatResponse struct {
	SessionID  string         `json:"session_id"`
	Title      string         `json:"title"`
	Response   string         `json:"response"`
	TargetLang string         `json:"target_lang"`
	Citations  []memory.Match `json:"citations"`
}

// GuardrailRejectionError aborts a request before any external call. It is
// the only error class that fails a chat turn.
type GuardrailRejectionError struct {
	Reason string
}

func (e *GuardrailRejectionError) Error() string {
	return e.Reason
}

// Translator is the translation backend boundary.
type Translator interface {
	Translate(ctx context.Context, text, sourceCode, targetCode string) (*speech.TranslateResult, error)
}

// MemoryStore is the vector memory boundary.
type MemoryStore interface {
	Upsert(ctx context.Context, ownerID, text string, metadata map[string]any, eventID string) (string, error)
	Search(ctx context.Context, query, ownerID string, topK int) ([]memory.Match, error)
}

// SessionStore is the session repository boundary.
type SessionStore interface {
	GetSession(ctx context.Context, sessionID, ownerID string) (*store.Session, error)
	AppendTurn(ctx context.Context, sessionID, ownerID, userText, assistantText string) error
	AssignTitle(ctx context.Context, sessionID, title string) (bool, error)
}

// Config wires the orchestrator's collaborators. LLM and Translator may be
// nil when the corresponding backend is not configured.
type Config struct {
	Guardrail  *guardrail.Engine
	LLM        llm.Service
	Translator Translator
	Memory     MemoryStore
	Sessions   SessionStore
	Metrics    *metrics.Exporter
	TopK       int
	Logger     *slog.Logger
}

// Orchestrator is the top-level chat state machine.
type Orchestrator struct {
	guardrail  *guardrail.Engine
	llm        llm.Service
	translator Translator
	memory     MemoryStore
	sessions   SessionStore
	metrics    *metrics.Exporter
	topK       int
	logger     *slog.Logger

	mediaSem     *semaphore.Weighted
	titleLimiter *rate.Limiter
}

// New creates an orchestrator.
func New(cfg Config) *Orchestrator {
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}
	g := cfg.Guardrail
	if g == nil {
		g = guardrail.NewEngine(logger)
	}
	topK := cfg.TopK
	if topK <= 0 {
		topK = 5
	}
	return &Orchestrator{
		guardrail:  g,
		llm:        cfg.LLM,
		translator: cfg.Translator,
		memory:     cfg.Memory,
		sessions:   cfg.Sessions,
		metrics:    cfg.Metrics,
		topK:       topK,
		logger:     logger,
		mediaSem:   semaphore.NewWeighted(mediaConcurrency),
		// Title generation is background work; keep it from starving
		// interactive model traffic.
		titleLimiter: rate.NewLimiter(rate.Every(2*time.Second), 3),
	}
}

// HandleChat runs one turn through the full pipeline. The returned error is
// non-nil only for guardrail rejections and session persistence failures.
func (o *Orchestrator) HandleChat(ctx context.Context, req *ChatRequest) (*ChatResponse, error) {
	start := time.Now()

	// Guardrail: terminal failure, no side effects, no persistence.
	if result := o.guardrail.Check(req.Message); !result.Allowed {
		if o.metrics != nil {
			o.metrics.ObserveGuardrailRejection()
			o.metrics.ObserveChat("rejected", time.Since(start))
		}
		return nil, &GuardrailRejectionError{Reason: result.Reason}
	}

	detectedLang := o.DetectLanguage(ctx, req.Message)
	targetLang := language.Normalize(req.LanguageLock, detectedLang)

	normalizedContext := o.normalizeContext(ctx, req.Message, req.Media)

	citations := o.retrieve(ctx, normalizedContext, req.OwnerID)
	groundingTexts := make([]string, 0, len(citations))
	for _, match := range citations {
		groundingTexts = append(groundingTexts, match.Text)
	}

	englishAnswer := o.invokeModel(ctx, req.Message, strings.Join(groundingTexts, "\n"))

	finalAnswer := o.translate(ctx, englishAnswer, modelOutputLang, targetLang)

	sessionID := req.SessionID
	if sessionID == "" {
		sessionID = uuid.NewString()
	}
	if err := o.sessions.AppendTurn(ctx, sessionID, req.OwnerID, req.Message, finalAnswer); err != nil {
		return nil, fmt.Errorf("failed to persist turn: %w", err)
	}

	// The normalized context (not the answer) becomes retrievable history
	// for future turns. A vector outage degrades; the turn already succeeded.
	if _, err := o.memory.Upsert(ctx, req.OwnerID, normalizedContext, map[string]any{
		"detected_lang": detectedLang,
		"target_lang":   targetLang,
	}, ""); err != nil {
		o.logger.Warn("failed to upsert memory event", "owner_id", req.OwnerID, "error", err)
	}

	if o.metrics != nil {
		o.metrics.ObserveChat("ok", time.Since(start))
	}

	return &ChatResponse{
		SessionID:  sessionID,
		Title:      o.sessionTitle(ctx, sessionID, req.OwnerID),
		Response:   finalAnswer,
		TargetLang: targetLang,
		Citations:  citations,
	}, nil
}

// DetectLanguage resolves a canonical language code for the text. It prefers
// the translation backend's detection and falls back to script-range
// scanning; it never fails. Transcripts take the same path as chat messages.
func (o *Orchestrator) DetectLanguage(ctx context.Context, text string) string {
	if strings.TrimSpace(text) == "" {
		return language.DefaultCode
	}
	if o.translator != nil {
		out, err := o.translator.Translate(ctx, text, "auto", language.DefaultCode)
		if err == nil && out.SourceLanguageCode != "" {
			return language.Normalize(out.SourceLanguageCode, language.DefaultCode)
		}
		if err != nil {
			o.logger.Debug("language detection via translator failed, using script heuristic", "error", err)
		}
	}
	return language.DetectScript(text)
}

// normalizeContext flattens the message and its attachments into one context
// string. Media items normalize concurrently but concatenate in original
// attachment order after the message.
func (o *Orchestrator) normalizeContext(ctx context.Context, message string, media []MediaInput) string {
	if len(media) == 0 {
		return message
	}

	parts := make([]string, len(media))
	var wg sync.WaitGroup
	for i, item := range media {
		wg.Add(1)
		go func(i int, item MediaInput) {
			defer wg.Done()
			if err := o.mediaSem.Acquire(ctx, 1); err != nil {
				return
			}
			defer o.mediaSem.Release(1)
			parts[i] = o.normalizeMediaItem(ctx, item)
		}(i, item)
	}
	wg.Wait()

	var b strings.Builder
	b.WriteString(message)
	for _, part := range parts {
		if part == "" {
			continue
		}
		b.WriteString("\n")
		b.WriteString(part)
	}
	return b.String()
}

func (o *Orchestrator) normalizeMediaItem(ctx context.Context, item MediaInput) string {
	switch item.Kind {
	case MediaImage:
		return "Image context: " + o.describeImage(ctx, item.Content)
	case MediaVideo:
		return "Video URL provided: " + item.Content
	case MediaAudio:
		return "Audio attached."
	default:
		return item.Content
	}
}

// describeImage never propagates an error; a vision failure substitutes a
// safe placeholder.
func (o *Orchestrator) describeImage(ctx context.Context, imageBase64 string) string {
	if o.llm == nil {
		return "Image uploaded. No vision model configured."
	}
	description, err := o.llm.DescribeImage(ctx, imageBase64)
	if err != nil {
		o.logger.Error("image analysis failed", "error", err)
		return "Unable to parse image safely."
	}
	if description == "" {
		return "No extractable findings."
	}
	return description
}

// retrieve fetches grounding context scoped to the owner. A retrieval outage
// degrades to no grounding, never to request failure.
func (o *Orchestrator) retrieve(ctx context.Context, query, ownerID string) []memory.Match {
	ctx, cancel := context.WithTimeout(ctx, retrievalTimeout)
	defer cancel()

	start := time.Now()
	matches, err := o.memory.Search(ctx, query, ownerID, o.topK)
	if o.metrics != nil {
		o.metrics.ObserveRetrieval(time.Since(start), err != nil)
	}
	if err != nil {
		o.logger.Warn("retrieval failed, continuing without grounding", "owner_id", ownerID, "error", err)
		return []memory.Match{}
	}
	return matches
}

// invokeModel assembles the prompt and invokes the model once. Failures are
// classified into a user-facing advisory string; an empty answer gets the
// fixed fallback.
func (o *Orchestrator) invokeModel(ctx context.Context, message, groundingContext string) string {
	if o.llm == nil {
		return llmAbsentAnswer
	}

	prompt := fmt.Sprintf(
		"%s\n\nUser input (possibly multilingual): %s\n\nRetrieved context:\n%s\n\n"+
			"Respond in English first with cautious clinical support and clear doctor-referral guidance.",
		safetyPrompt, message, groundingContext,
	)

	answer, err := o.llm.Chat(ctx, []llm.Message{
		{Role: "system", Content: safetyPrompt},
		{Role: "user", Content: prompt},
	})
	if err != nil {
		o.logger.Error("chat completion failed", "error", err)
		return llm.Advisory(err)
	}
	if answer == "" {
		return emptyAnswerFallback
	}
	return answer
}

// translate converts the answer into the target language. Same-language is a
// no-op; translator absence or failure returns the untranslated text.
func (o *Orchestrator) translate(ctx context.Context, text, sourceLang, targetLang string) string {
	source := language.Normalize(sourceLang, language.DefaultCode)
	target := language.Normalize(targetLang, language.DefaultCode)
	if source == target || o.translator == nil {
		return text
	}
	out, err := o.translator.Translate(ctx, text, source, target)
	if err != nil {
		o.logger.Warn("translation failed, returning untranslated answer", "target", target, "error", err)
		return text
	}
	if out.TranslatedText == "" {
		return text
	}
	return out.TranslatedText
}

func (o *Orchestrator) sessionTitle(ctx context.Context, sessionID, ownerID string) string {
	session, err := o.sessions.GetSession(ctx, sessionID, ownerID)
	if err != nil || session == nil {
		return store.DefaultTitle
	}
	return session.Title
}

// NeedsTitle reports whether the session still awaits title assignment.
func (o *Orchestrator) NeedsTitle(ctx context.Context, sessionID, ownerID string) bool {
	session, err := o.sessions.GetSession(ctx, sessionID, ownerID)
	if err != nil {
		return false
	}
	if session == nil {
		return true
	}
	return session.Title == store.DefaultTitle && session.TurnCount <= 1
}
