// Package memory owns the encrypted per-user vector store: embedding,
// field-level encryption, similarity retrieval, and decryption-on-read.
// Every plaintext handed to it passes through the crypto codec exactly once
// before persistence, and through the inverse exactly once on the way back.
package memory

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/google/uuid"

	"github.com/medvani/medvani/ai/embedding"
	"github.com/medvani/medvani/internal/crypto"
)

// Metadata keys recorded on every stored event.
const (
	metaOwnerID = "owner_id"
	metaScheme  = "text_enc"
	metaCipher  = "text_cipher"
	metaSource  = "source"
)

// fallbackText is returned as the single synthetic match when no vector
// backend is configured. Callers must treat it as a valid result, not an
// error.
const fallbackText = "No vector backend configured. Add medical corpus docs to enable trust layer grounding."

// Record is one vector row handed to the backend for persistence.
type Record struct {
	ID       string
	Vector   []float32
	Metadata map[string]any
}

// QueryMatch is one ranked row returned by the backend, payload still
// encrypted.
type QueryMatch struct {
	ID       string
	Score    float64
	Metadata map[string]any
}

// Backend is the similarity index boundary. Implementations persist records
// and answer owner-scoped similarity queries; they never see plaintext.
type Backend interface {
	Upsert(ctx context.Context, namespace string, records []Record) error
	Query(ctx context.Context, namespace string, vector []float32, topK int, ownerID string) ([]QueryMatch, error)
}

// Match is an ephemeral, decrypted retrieval result. Produced fresh per
// query and never cached across turns.
type Match struct {
	ID     string  `json:"id"`
	Score  float64 `json:"score"`
	Text   string  `json:"text"`
	Source string  `json:"source"`
}

// BackendError wraps a vector backend connectivity failure so callers can
// distinguish it from domain errors.
type BackendError struct {
	Op  string
	Err error
}

func (e *BackendError) Error() string {
	return fmt.Sprintf("vector backend %s failed: %v", e.Op, e.Err)
}

func (e *BackendError) Unwrap() error {
	return e.Err
}

// Store embeds, encrypts and persists memory events, and answers per-user
// similarity searches with decrypted text. A nil backend degrades to the
// documented local fallback.
type Store struct {
	backend   Backend
	codec     *crypto.Codec
	embedder  embedding.Provider
	namespace string
	logger    *slog.Logger
}

// NewStore creates a memory store. backend may be nil when no vector DSN is
// configured.
func NewStore(backend Backend, codec *crypto.Codec, embedder embedding.Provider, namespace string, logger *slog.Logger) *Store {
	if logger == nil {
		logger = slog.Default()
	}
	return &Store{
		backend:   backend,
		codec:     codec,
		embedder:  embedder,
		namespace: namespace,
		logger:    logger,
	}
}

// Upsert embeds and encrypts text, merges caller metadata, and writes one
// memory event keyed by eventID (generated when empty). Repeated calls with
// the same eventID are last-write-wins. Returns the event id.
func (s *Store) Upsert(ctx context.Context, ownerID, text string, metadata map[string]any, eventID string) (string, error) {
	if eventID == "" {
		eventID = uuid.NewString()
	}

	vector, err := s.embedder.Embed(ctx, text)
	if err != nil {
		return "", &BackendError{Op: "embed", Err: err}
	}
	payload := s.codec.Encrypt(text)

	merged := map[string]any{
		metaOwnerID: ownerID,
		metaScheme:  payload.Scheme,
		metaCipher:  payload.Ciphertext,
	}
	for k, v := range metadata {
		merged[k] = v
	}

	if s.backend == nil {
		// No backend configured: the event id is still returned so callers
		// keep a stable reference, but nothing durable is written.
		s.logger.Debug("vector backend absent, skipping upsert", "event_id", eventID)
		return eventID, nil
	}

	record := Record{ID: eventID, Vector: vector, Metadata: merged}
	if err := s.backend.Upsert(ctx, s.namespace, []Record{record}); err != nil {
		return "", &BackendError{Op: "upsert", Err: err}
	}
	return eventID, nil
}

// Search embeds the query and returns at most topK owner-scoped matches,
// most relevant first, with payloads decrypted. A blank query returns an
// empty result without touching the backend. Per-record decryption failures
// yield empty text for that match rather than aborting the search.
func (s *Store) Search(ctx context.Context, query, ownerID string, topK int) ([]Match, error) {
	if strings.TrimSpace(query) == "" {
		return []Match{}, nil
	}

	if s.backend == nil {
		return []Match{{
			ID:     "local-fallback",
			Score:  0,
			Text:   fallbackText,
			Source: "local",
		}}, nil
	}

	vector, err := s.embedder.Embed(ctx, query)
	if err != nil {
		return nil, &BackendError{Op: "embed", Err: err}
	}

	raw, err := s.backend.Query(ctx, s.namespace, vector, topK, ownerID)
	if err != nil {
		return nil, &BackendError{Op: "query", Err: err}
	}

	matches := make([]Match, 0, len(raw))
	for _, m := range raw {
		scheme, _ := m.Metadata[metaScheme].(string)
		cipher, _ := m.Metadata[metaCipher].(string)
		if scheme == "" {
			scheme = crypto.SchemeNone
		}
		text := s.codec.Decrypt(scheme, cipher)
		if text == "" && cipher != "" && scheme != crypto.SchemeNone {
			s.logger.Warn("failed to decrypt memory event", "event_id", m.ID)
		}
		source, _ := m.Metadata[metaSource].(string)
		if source == "" {
			source = "user-history"
		}
		matches = append(matches, Match{
			ID:     m.ID,
			Score:  m.Score,
			Text:   text,
			Source: source,
		})
		if len(matches) == topK {
			break
		}
	}
	return matches, nil
}
