// Package store holds one file per persisted aggregate (users, credits,
// shoots, assets, jobs/events), each a thin wrapper over *sqlx.DB using
// raw SQL, in the teacher's one-repository-per-entity layout.
package store

import "github.com/jmoiron/sqlx"

// sqlTx aliases sqlx.Tx so cross-aggregate operations that must share a
// transaction (job creation reserving credits, for instance) can pass one
// around without every file importing sqlx directly for this one purpose.
type sqlTx = sqlx.Tx
