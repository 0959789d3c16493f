package store

import (
	"context"
	"database/sql"

	"github.com/google/uuid"

	"lusterd/internal/apperr"
	"lusterd/internal/database"
	"lusterd/internal/models"
)

// ShootStore persists the named collections assets and jobs are scoped under.
type ShootStore struct {
	db *database.DB
}

func NewShootStore(db *database.DB) *ShootStore {
	return &ShootStore{db: db}
}

func (s *ShootStore) Create(ctx context.Context, userID uuid.UUID, name string) (*models.Shoot, error) {
	shoot := &models.Shoot{ID: uuid.New(), UserID: userID, Name: name}
	query := `INSERT INTO shoots (id, user_id, name) VALUES ($1, $2, $3) RETURNING created_at`
	err := s.db.GetContext(ctx, &shoot.CreatedAt, query, shoot.ID, shoot.UserID, shoot.Name)
	if err != nil {
		return nil, apperr.Wrap(apperr.KindInternal, "create shoot", err)
	}
	return shoot, nil
}

// GetOwned fetches a shoot, failing with apperr.KindNotFound if it doesn't
// exist or isn't owned by userID — intake handlers never distinguish the two
// so ownership can't be probed by ID guessing.
func (s *ShootStore) GetOwned(ctx context.Context, id, userID uuid.UUID) (*models.Shoot, error) {
	var shoot models.Shoot
	query := `SELECT id, user_id, name, created_at FROM shoots WHERE id = $1 AND user_id = $2`
	err := s.db.GetContext(ctx, &shoot, query, id, userID)
	if err == sql.ErrNoRows {
		return nil, apperr.New(apperr.KindNotFound, "shoot not found")
	}
	if err != nil {
		return nil, apperr.Wrap(apperr.KindInternal, "get shoot", err)
	}
	return &shoot, nil
}

func (s *ShootStore) ListByUser(ctx context.Context, userID uuid.UUID, limit, offset int) ([]models.Shoot, error) {
	var shoots []models.Shoot
	query := `SELECT id, user_id, name, created_at FROM shoots WHERE user_id = $1
		ORDER BY created_at DESC LIMIT $2 OFFSET $3`
	if err := s.db.SelectContext(ctx, &shoots, query, userID, limit, offset); err != nil {
		return nil, apperr.Wrap(apperr.KindInternal, "list shoots", err)
	}
	return shoots, nil
}

// Delete removes the shoot row; ON DELETE CASCADE on assets/jobs/job_events
// makes the database authoritative for the cascade. Callers are responsible
// for best-effort deleting the shoot's object store prefix afterward.
func (s *ShootStore) Delete(ctx context.Context, id, userID uuid.UUID) error {
	res, err := s.db.ExecContext(ctx, `DELETE FROM shoots WHERE id = $1 AND user_id = $2`, id, userID)
	if err != nil {
		return apperr.Wrap(apperr.KindInternal, "delete shoot", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return apperr.Wrap(apperr.KindInternal, "delete shoot rows affected", err)
	}
	if n == 0 {
		return apperr.New(apperr.KindNotFound, "shoot not found")
	}
	return nil
}
