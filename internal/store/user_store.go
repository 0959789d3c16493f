package store

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/google/uuid"

	"lusterd/internal/apperr"
	"lusterd/internal/database"
	"lusterd/internal/models"
)

// UserStore persists accounts lazily created on first authenticated request.
type UserStore struct {
	db *database.DB
}

func NewUserStore(db *database.DB) *UserStore {
	return &UserStore{db: db}
}

// GetByClerkID looks up a user by their Clerk subject, returning apperr.KindNotFound
// when absent so callers can decide whether to provision one.
func (s *UserStore) GetByClerkID(ctx context.Context, clerkID string) (*models.User, error) {
	var user models.User
	query := `SELECT id, email, clerk_id, created_at FROM users WHERE clerk_id = $1`
	err := s.db.GetContext(ctx, &user, query, clerkID)
	if err == sql.ErrNoRows {
		return nil, apperr.New(apperr.KindNotFound, "user not found")
	}
	if err != nil {
		return nil, apperr.Wrap(apperr.KindInternal, "get user by clerk id", err)
	}
	return &user, nil
}

// GetByID looks up a user by primary key.
func (s *UserStore) GetByID(ctx context.Context, id uuid.UUID) (*models.User, error) {
	var user models.User
	query := `SELECT id, email, clerk_id, created_at FROM users WHERE id = $1`
	err := s.db.GetContext(ctx, &user, query, id)
	if err == sql.ErrNoRows {
		return nil, apperr.New(apperr.KindNotFound, "user not found")
	}
	if err != nil {
		return nil, apperr.Wrap(apperr.KindInternal, "get user by id", err)
	}
	return &user, nil
}

// GetOrCreateByClerkID implements the lazy-provisioning flow: the intake API's
// auth middleware calls this on every request bound to a verified Clerk
// session, creating the account (and its zero-balance credit row) the first
// time it's seen.
func (s *UserStore) GetOrCreateByClerkID(ctx context.Context, clerkID, email string) (*models.User, error) {
	user, err := s.GetByClerkID(ctx, clerkID)
	if err == nil {
		return user, nil
	}
	if apperr.KindOf(err) != apperr.KindNotFound {
		return nil, err
	}

	tx, err := s.db.BeginTx(ctx)
	if err != nil {
		return nil, apperr.Wrap(apperr.KindInternal, "begin create user tx", err)
	}
	defer tx.Rollback()

	id := uuid.New()
	_, err = tx.ExecContext(ctx,
		`INSERT INTO users (id, email, clerk_id) VALUES ($1, $2, $3)
		 ON CONFLICT (clerk_id) DO NOTHING`,
		id, email, clerkID)
	if err != nil {
		return nil, apperr.Wrap(apperr.KindInternal, "insert user", err)
	}

	_, err = tx.ExecContext(ctx,
		`INSERT INTO credits (user_id, balance) VALUES ($1, 0)
		 ON CONFLICT (user_id) DO NOTHING`,
		id)
	if err != nil {
		return nil, apperr.Wrap(apperr.KindInternal, "insert credit row", err)
	}

	if err := tx.Commit(); err != nil {
		return nil, apperr.Wrap(apperr.KindInternal, "commit create user tx", err)
	}

	user, err = s.GetByClerkID(ctx, clerkID)
	if err != nil {
		return nil, fmt.Errorf("reload user after provisioning: %w", err)
	}
	return user, nil
}
