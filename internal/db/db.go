// Package db provides the read-only database access layer.
//
// The worker never writes to the problem store, so the interface is
// deliberately narrow: queries, a liveness probe and close.
package db

import "context"

// Database abstracts the SQL store so repositories can be tested
// against fakes.
type Database interface {
	// Query executes a query that returns rows
	Query(ctx context.Context, query string, args ...interface{}) (Rows, error)

	// QueryRow executes a query that returns at most one row
	QueryRow(ctx context.Context, query string, args ...interface{}) Row

	// Ping verifies the connection is still alive
	Ping(ctx context.Context) error

	// Close closes the connection pool
	Close() error
}

// Rows is the result of a query
type Rows interface {
	Next() bool
	Scan(dest ...interface{}) error
	Close() error
	Err() error
}

// Row is the result of a single-row query
type Row interface {
	Scan(dest ...interface{}) error
}
