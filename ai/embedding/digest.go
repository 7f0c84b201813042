package embedding

import (
	"context"
	"crypto/sha256"
)

// DefaultDimensions is the vector width used by the digest provider.
const DefaultDimensions = 128

// DigestProvider derives a deterministic pseudo-embedding from a SHA-256
// digest of the text, expanded cyclically to the target dimensionality with
// each byte mapped into [-1, 1].
//
// This is NOT a semantic embedding. It exists so retrieval is reproducible
// and testable without a live model; a production provider only has to keep
// the same contract: deterministic, fixed dimension, bounded range.
type DigestProvider struct {
	dimensions int
}

// NewDigestProvider creates a digest provider with the given dimensionality,
// or DefaultDimensions when dim is not positive.
func NewDigestProvider(dim int) *DigestProvider {
	if dim <= 0 {
		dim = DefaultDimensions
	}
	return &DigestProvider{dimensions: dim}
}

func (p *DigestProvider) Embed(_ context.Context, text string) ([]float32, error) {
	digest := sha256.Sum256([]byte(text))
	vector := make([]float32, p.dimensions)
	for i := range vector {
		b := digest[i%len(digest)]
		vector[i] = (float32(b)/255.0)*2.0 - 1.0
	}
	return vector, nil
}

func (p *DigestProvider) Dimensions() int {
	return p.dimensions
}
