package models

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseTier(t *testing.T) {
	tier, err := ParseTier("free")
	require.NoError(t, err)
	assert.Equal(t, TierFree, tier)

	tier, err = ParseTier("premium")
	require.NoError(t, err)
	assert.Equal(t, TierPremium, tier)

	_, err = ParseTier("ultra")
	assert.Error(t, err)
}

func TestTierCost(t *testing.T) {
	assert.Equal(t, 1, TierFree.Cost())
	assert.Equal(t, 2, TierPremium.Cost())
}

func TestTierQuality(t *testing.T) {
	q := TierPremium.Quality()
	assert.Equal(t, 40, q.Steps)
	assert.Equal(t, "2048x2048", q.Resolution)

	q = TierFree.Quality()
	assert.Equal(t, 20, q.Steps)
	assert.Equal(t, "1024x1024", q.Resolution)
}
