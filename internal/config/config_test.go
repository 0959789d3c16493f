package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestGetStringDefault(t *testing.T) {
	t.Setenv("LUSTERD_TEST_STRING", "")
	assert.Equal(t, "fallback", getString("LUSTERD_TEST_STRING", "fallback"))

	t.Setenv("LUSTERD_TEST_STRING", "configured")
	assert.Equal(t, "configured", getString("LUSTERD_TEST_STRING", "fallback"))
}

func TestGetIntMalformedFallsBackToDefault(t *testing.T) {
	t.Setenv("LUSTERD_TEST_INT", "not-a-number")
	assert.Equal(t, 3, getInt("LUSTERD_TEST_INT", 3))

	t.Setenv("LUSTERD_TEST_INT", "7")
	assert.Equal(t, 7, getInt("LUSTERD_TEST_INT", 3))
}

func TestGetDurationBareIntegerIsSeconds(t *testing.T) {
	t.Setenv("LUSTERD_TEST_DURATION", "30")
	assert.Equal(t, 30*time.Second, getDuration("LUSTERD_TEST_DURATION", time.Minute))
}

func TestGetDurationParsesGoDurationString(t *testing.T) {
	t.Setenv("LUSTERD_TEST_DURATION", "2h30m")
	assert.Equal(t, 2*time.Hour+30*time.Minute, getDuration("LUSTERD_TEST_DURATION", time.Minute))
}

func TestGetDurationMalformedFallsBackToDefault(t *testing.T) {
	t.Setenv("LUSTERD_TEST_DURATION", "not-a-duration")
	assert.Equal(t, 15*time.Minute, getDuration("LUSTERD_TEST_DURATION", 15*time.Minute))
}

func TestGetCreditsPerProductDefaultsToTierTable(t *testing.T) {
	t.Setenv("CREDITS_PER_PRODUCT", "")
	out := getCreditsPerProduct()
	assert.Equal(t, 1, out["free"])
	assert.Equal(t, 2, out["premium"])
}

func TestGetCreditsPerProductParsesCSV(t *testing.T) {
	t.Setenv("CREDITS_PER_PRODUCT", "sku_basic:5, sku_pro:20")
	out := getCreditsPerProduct()
	assert.Equal(t, 5, out["sku_basic"])
	assert.Equal(t, 20, out["sku_pro"])
	// tier defaults still present alongside product overrides
	assert.Equal(t, 1, out["free"])
}

func TestGetCreditsPerProductIgnoresMalformedEntries(t *testing.T) {
	t.Setenv("CREDITS_PER_PRODUCT", "sku_ok:10,garbage,sku_bad:notanumber")
	out := getCreditsPerProduct()
	assert.Equal(t, 10, out["sku_ok"])
	_, ok := out["sku_bad"]
	assert.False(t, ok)
}

func TestGetAllowedOriginsDefault(t *testing.T) {
	t.Setenv("ALLOWED_ORIGINS", "")
	assert.Equal(t, []string{"http://localhost:3000"}, GetAllowedOrigins())
}

func TestGetAllowedOriginsParsesCSV(t *testing.T) {
	t.Setenv("ALLOWED_ORIGINS", "https://a.example.com, https://b.example.com")
	assert.Equal(t, []string{"https://a.example.com", "https://b.example.com"}, GetAllowedOrigins())
}
