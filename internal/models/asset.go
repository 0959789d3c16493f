package models

import (
	"fmt"
	"time"

	"github.com/google/uuid"
)

// Asset is an uploaded source image with an immutable object key.
type Asset struct {
	ID        uuid.UUID `db:"id" json:"id"`
	ShootID   uuid.UUID `db:"shoot_id" json:"shoot_id"`
	UserID    uuid.UUID `db:"user_id" json:"user_id"`
	ObjectKey string    `db:"object_key" json:"object_key"`
	Filename  string    `db:"filename" json:"filename"`
	Size      int64     `db:"size" json:"size"`
	MimeType  string    `db:"mime_type" json:"mime_type"`
	CreatedAt time.Time `db:"created_at" json:"created_at"`
}

// OriginalObjectKey builds the store key for an asset's original bytes.
func OriginalObjectKey(userID, shootID, assetID uuid.UUID, ext string) string {
	return fmt.Sprintf("%s/%s/%s/original%s", userID, shootID, assetID, ext)
}

// OutputObjectKey builds the store key for a job's enhanced output.
func OutputObjectKey(userID, shootID, assetID, jobID uuid.UUID) string {
	return fmt.Sprintf("%s/%s/%s/outputs/%s.jpg", userID, shootID, assetID, jobID)
}

// AssetPrefix returns the store prefix containing every object owned by an asset.
func AssetPrefix(userID, shootID, assetID uuid.UUID) string {
	return fmt.Sprintf("%s/%s/%s/", userID, shootID, assetID)
}

// ShootPrefix returns the store prefix containing every object owned by a shoot.
func ShootPrefix(userID, shootID uuid.UUID) string {
	return fmt.Sprintf("%s/%s/", userID, shootID)
}
