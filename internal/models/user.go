package models

import (
	"database/sql"
	"time"

	"github.com/google/uuid"
)

// User is created lazily on first authenticated request or webhook delivery.
type User struct {
	ID        uuid.UUID      `db:"id" json:"id"`
	Email     string         `db:"email" json:"email"`
	ClerkID   sql.NullString `db:"clerk_id" json:"-"`
	CreatedAt time.Time      `db:"created_at" json:"created_at"`
}

// Credit is the per-user integer balance, 1:1 with User.
type Credit struct {
	UserID    uuid.UUID `db:"user_id" json:"user_id"`
	Balance   int       `db:"balance" json:"balance"`
	UpdatedAt time.Time `db:"updated_at" json:"updated_at"`
}
