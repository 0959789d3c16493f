package models

import (
	"time"

	"github.com/google/uuid"
)

// Shoot groups a user's assets and jobs under a named collection.
type Shoot struct {
	ID        uuid.UUID `db:"id" json:"id"`
	UserID    uuid.UUID `db:"user_id" json:"user_id"`
	Name      string    `db:"name" json:"name"`
	CreatedAt time.Time `db:"created_at" json:"created_at"`
}
