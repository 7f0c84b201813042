// Package embedding maps text to fixed-dimension vectors for the vector
// memory store. Both writes and queries must go through the same provider so
// retrieval stays reproducible.
package embedding

import "context"

// Provider is the vector embedding interface.
type Provider interface {
	// Embed generates a vector for a single text.
	Embed(ctx context.Context, text string) ([]float32, error)

	// Dimensions returns the vector dimension.
	Dimensions() int
}
