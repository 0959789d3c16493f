package webhook

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGrantsCredits(t *testing.T) {
	assert.True(t, eventInitialPurchase.grantsCredits())
	assert.True(t, eventRenewal.grantsCredits())
	assert.True(t, eventNonRenewingPurchase.grantsCredits())
	assert.False(t, eventCancellation.grantsCredits())
	assert.False(t, eventExpiration.grantsCredits())
	assert.False(t, eventType("SOMETHING_UNKNOWN").grantsCredits())
}

func TestPayloadUnmarshal(t *testing.T) {
	raw := []byte(`{"event":{"type":"RENEWAL","id":"evt_123","app_user_id":"user_abc","product_id":"sku_premium"}}`)
	var p payload
	require.NoError(t, json.Unmarshal(raw, &p))
	assert.Equal(t, "RENEWAL", p.Event.Type)
	assert.Equal(t, "evt_123", p.Event.ID)
	assert.Equal(t, "user_abc", p.Event.AppUserID)
	assert.Equal(t, "sku_premium", p.Event.ProductID)
}
