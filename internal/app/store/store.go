/*
Package store is the Postgres persistence layer.

It wraps a pgx connection pool with typed queries for users, posts, and
discussions, and implements the narrow Registry interface the real-time
discussion core consumes.
*/
package store

import (
	"github.com/jackc/pgx/v5/pgxpool"
)

// Store executes all relational queries over a shared pgx pool.
type Store struct {
	pool *pgxpool.Pool
}

// NewStore wraps an initialized connection pool.
func NewStore(pool *pgxpool.Pool) *Store {
	return &Store{pool: pool}
}
