package embedding

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDigestProvider_Deterministic(t *testing.T) {
	p := NewDigestProvider(0)
	ctx := context.Background()

	a, err := p.Embed(ctx, "I have a headache")
	require.NoError(t, err)
	b, err := p.Embed(ctx, "I have a headache")
	require.NoError(t, err)
	assert.Equal(t, a, b)

	c, err := p.Embed(ctx, "different text")
	require.NoError(t, err)
	assert.NotEqual(t, a, c)
}

func TestDigestProvider_DimensionAndRange(t *testing.T) {
	p := NewDigestProvider(128)
	assert.Equal(t, 128, p.Dimensions())

	for _, text := range []string{"", "x", "फीवर", "a much longer medical history paragraph"} {
		vec, err := p.Embed(context.Background(), text)
		require.NoError(t, err)
		assert.Len(t, vec, 128)
		for i, v := range vec {
			if v < -1 || v > 1 {
				t.Fatalf("component %d out of range for %q: %f", i, text, v)
			}
		}
	}
}

func TestDigestProvider_DefaultDimensions(t *testing.T) {
	p := NewDigestProvider(-3)
	assert.Equal(t, DefaultDimensions, p.Dimensions())
}
