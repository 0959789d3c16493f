package models

import (
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
)

func TestObjectKeyHelpers(t *testing.T) {
	userID := uuid.New()
	shootID := uuid.New()
	assetID := uuid.New()
	jobID := uuid.New()

	original := OriginalObjectKey(userID, shootID, assetID, ".png")
	assert.Equal(t, userID.String()+"/"+shootID.String()+"/"+assetID.String()+"/original.png", original)

	output := OutputObjectKey(userID, shootID, assetID, jobID)
	assert.Equal(t, userID.String()+"/"+shootID.String()+"/"+assetID.String()+"/outputs/"+jobID.String()+".jpg", output)

	assetPrefix := AssetPrefix(userID, shootID, assetID)
	assert.Equal(t, userID.String()+"/"+shootID.String()+"/"+assetID.String()+"/", assetPrefix)
	assert.Contains(t, original, assetPrefix)
	assert.Contains(t, output, assetPrefix)

	shootPrefix := ShootPrefix(userID, shootID)
	assert.Equal(t, userID.String()+"/"+shootID.String()+"/", shootPrefix)
	assert.Contains(t, assetPrefix, shootPrefix)
}
