package db

import (
	"context"
	"database/sql"
)

// Database owns the connection pool backing the repositories.
type Database interface {
	Connect() error
	Close() error
	DB() *sql.DB
	Ping(ctx context.Context) error
}
