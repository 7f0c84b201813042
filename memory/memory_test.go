package memory

import (
	"context"
	"crypto/rand"
	"encoding/base64"
	"errors"
	"sort"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/medvani/medvani/ai/embedding"
	"github.com/medvani/medvani/internal/crypto"
)

// fakeBackend keeps records in a map and ranks query results by vector
// equality: an exact vector match scores 1, everything else 0.
type fakeBackend struct {
	records map[string]Record
	failing error
}

func newFakeBackend() *fakeBackend {
	return &fakeBackend{records: map[string]Record{}}
}

func (b *fakeBackend) Upsert(_ context.Context, _ string, records []Record) error {
	if b.failing != nil {
		return b.failing
	}
	for _, r := range records {
		b.records[r.ID] = r
	}
	return nil
}

func (b *fakeBackend) Query(_ context.Context, _ string, vector []float32, topK int, ownerID string) ([]QueryMatch, error) {
	if b.failing != nil {
		return nil, b.failing
	}
	var out []QueryMatch
	for _, r := range b.records {
		if r.Metadata["owner_id"] != ownerID {
			continue
		}
		score := 0.0
		if equalVectors(r.Vector, vector) {
			score = 1.0
		}
		out = append(out, QueryMatch{ID: r.ID, Score: score, Metadata: r.Metadata})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Score > out[j].Score })
	if len(out) > topK {
		out = out[:topK]
	}
	return out, nil
}

func equalVectors(a, b []float32) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}

func newTestStore(t *testing.T, backend Backend) *Store {
	t.Helper()
	key := make([]byte, 32)
	_, err := rand.Read(key)
	require.NoError(t, err)
	codec := crypto.NewCodec(base64.StdEncoding.EncodeToString(key))
	return NewStore(backend, codec, embedding.NewDigestProvider(0), "test", nil)
}

func TestStore_UpsertThenSearchRoundTrip(t *testing.T) {
	backend := newFakeBackend()
	store := newTestStore(t, backend)
	ctx := context.Background()

	id, err := store.Upsert(ctx, "user-1", "I am allergic to penicillin", map[string]any{"detected_lang": "en-IN"}, "")
	require.NoError(t, err)
	require.NotEmpty(t, id)

	// Stored payload must not be plaintext.
	stored := backend.records[id]
	assert.Equal(t, crypto.SchemeAESGCM, stored.Metadata["text_enc"])
	assert.NotContains(t, stored.Metadata["text_cipher"], "penicillin")
	assert.Equal(t, "en-IN", stored.Metadata["detected_lang"])

	matches, err := store.Search(ctx, "I am allergic to penicillin", "user-1", 5)
	require.NoError(t, err)
	require.NotEmpty(t, matches)
	assert.Equal(t, id, matches[0].ID)
	assert.Equal(t, "I am allergic to penicillin", matches[0].Text)
	assert.Equal(t, "user-history", matches[0].Source)
}

func TestStore_SearchNeverCrossesOwners(t *testing.T) {
	store := newTestStore(t, newFakeBackend())
	ctx := context.Background()

	_, err := store.Upsert(ctx, "user-1", "private history", nil, "")
	require.NoError(t, err)

	matches, err := store.Search(ctx, "private history", "user-2", 5)
	require.NoError(t, err)
	assert.Empty(t, matches)
}

func TestStore_BlankQueryReturnsEmpty(t *testing.T) {
	backend := &fakeBackend{failing: errors.New("backend must not be called")}
	store := newTestStore(t, backend)

	for _, query := range []string{"", "   ", "\n\t"} {
		matches, err := store.Search(context.Background(), query, "user-1", 5)
		require.NoError(t, err)
		assert.Empty(t, matches)
	}
}

func TestStore_NoBackendFallbackMatch(t *testing.T) {
	store := newTestStore(t, nil)

	matches, err := store.Search(context.Background(), "anything", "user-1", 5)
	require.NoError(t, err)
	require.Len(t, matches, 1)
	assert.Equal(t, "local-fallback", matches[0].ID)
	assert.Equal(t, 0.0, matches[0].Score)
	assert.Equal(t, "local", matches[0].Source)
	assert.NotEmpty(t, matches[0].Text)
}

func TestStore_NoBackendUpsertStillReturnsID(t *testing.T) {
	store := newTestStore(t, nil)
	id, err := store.Upsert(context.Background(), "user-1", "text", nil, "fixed-id")
	require.NoError(t, err)
	assert.Equal(t, "fixed-id", id)
}

func TestStore_UpsertIdempotentOnEventID(t *testing.T) {
	backend := newFakeBackend()
	store := newTestStore(t, backend)
	ctx := context.Background()

	_, err := store.Upsert(ctx, "user-1", "first version", nil, "evt-1")
	require.NoError(t, err)
	_, err = store.Upsert(ctx, "user-1", "second version", nil, "evt-1")
	require.NoError(t, err)

	assert.Len(t, backend.records, 1)
	matches, err := store.Search(ctx, "second version", "user-1", 5)
	require.NoError(t, err)
	require.NotEmpty(t, matches)
	assert.Equal(t, "second version", matches[0].Text)
}

func TestStore_BackendErrorsAreTyped(t *testing.T) {
	backend := &fakeBackend{failing: errors.New("connection refused")}
	store := newTestStore(t, backend)
	ctx := context.Background()

	_, err := store.Upsert(ctx, "user-1", "text", nil, "")
	var be *BackendError
	require.ErrorAs(t, err, &be)
	assert.Equal(t, "upsert", be.Op)

	_, err = store.Search(ctx, "query", "user-1", 5)
	require.ErrorAs(t, err, &be)
	assert.Equal(t, "query", be.Op)
}

func TestStore_DecryptFailureYieldsEmptyText(t *testing.T) {
	backend := newFakeBackend()
	store := newTestStore(t, backend)
	ctx := context.Background()

	id, err := store.Upsert(ctx, "user-1", "good record", nil, "")
	require.NoError(t, err)

	// Corrupt one stored ciphertext in place; the search must still return
	// both records, with empty text only for the corrupted one.
	corrupted := backend.records[id]
	corrupted.Metadata["text_cipher"] = "not-a-valid-blob"
	backend.records[id] = corrupted

	matches, err := store.Search(ctx, "good record", "user-1", 5)
	require.NoError(t, err)
	require.Len(t, matches, 1)
	assert.Equal(t, "", matches[0].Text)
}

func TestStore_SchemeNoneReadBack(t *testing.T) {
	// Events written while encryption was disabled are stored in clear with
	// scheme "none" and must read back unchanged through an enabled codec.
	backend := newFakeBackend()
	clearStore := NewStore(backend, crypto.NewCodec(""), embedding.NewDigestProvider(0), "test", nil)
	ctx := context.Background()

	id, err := clearStore.Upsert(ctx, "user-1", "written in clear", nil, "")
	require.NoError(t, err)
	assert.Equal(t, crypto.SchemeNone, backend.records[id].Metadata["text_enc"])

	encStore := newTestStore(t, backend)
	matches, err := encStore.Search(ctx, "written in clear", "user-1", 5)
	require.NoError(t, err)
	require.Len(t, matches, 1)
	assert.Equal(t, "written in clear", matches[0].Text)
}
