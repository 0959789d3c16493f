package store

import (
	"context"
	"database/sql"

	"github.com/google/uuid"

	"lusterd/internal/apperr"
	"lusterd/internal/database"
	"lusterd/internal/models"
)

// AssetStore persists uploaded source images.
type AssetStore struct {
	db *database.DB
}

func NewAssetStore(db *database.DB) *AssetStore {
	return &AssetStore{db: db}
}

func (s *AssetStore) Create(ctx context.Context, asset *models.Asset) error {
	query := `
		INSERT INTO assets (id, shoot_id, user_id, object_key, filename, size, mime_type)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		RETURNING created_at`
	err := s.db.GetContext(ctx, &asset.CreatedAt, query,
		asset.ID, asset.ShootID, asset.UserID, asset.ObjectKey, asset.Filename, asset.Size, asset.MimeType)
	if err != nil {
		return apperr.Wrap(apperr.KindInternal, "create asset", err)
	}
	return nil
}

func (s *AssetStore) GetOwned(ctx context.Context, id, userID uuid.UUID) (*models.Asset, error) {
	var asset models.Asset
	query := `SELECT id, shoot_id, user_id, object_key, filename, size, mime_type, created_at
		FROM assets WHERE id = $1 AND user_id = $2`
	err := s.db.GetContext(ctx, &asset, query, id, userID)
	if err == sql.ErrNoRows {
		return nil, apperr.New(apperr.KindNotFound, "asset not found")
	}
	if err != nil {
		return nil, apperr.Wrap(apperr.KindInternal, "get asset", err)
	}
	return &asset, nil
}

func (s *AssetStore) ListByShoot(ctx context.Context, shootID, userID uuid.UUID) ([]models.Asset, error) {
	var assets []models.Asset
	query := `SELECT id, shoot_id, user_id, object_key, filename, size, mime_type, created_at
		FROM assets WHERE shoot_id = $1 AND user_id = $2 ORDER BY created_at DESC`
	if err := s.db.SelectContext(ctx, &assets, query, shootID, userID); err != nil {
		return nil, apperr.Wrap(apperr.KindInternal, "list assets", err)
	}
	return assets, nil
}
