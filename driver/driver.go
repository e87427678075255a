// Package driver defines the database driver boundary used by the bootstrap
// layer, plus the MongoDB implementation of it. The bootstrapper only ever
// talks to these interfaces; everything behind them (sockets, sessions,
// pooling) is owned by the underlying client.
package driver

import (
	"context"
	"time"
)

// ConnectOptions carries the connection parameters through to the driver.
// All fields are passthrough; the driver interprets them, dbboot does not.
type ConnectOptions struct {
	URI            string
	ConnectTimeout time.Duration
	MaxPoolSize    uint64
}

// Driver establishes sessions with a document database server.
type Driver interface {
	// Connect opens a session and verifies it is live. The returned Handle
	// owns nothing; the driver keeps ownership of the underlying socket.
	Connect(ctx context.Context, opts ConnectOptions) (Handle, error)
}

// Handle is an established session capable of catalog operations and of
// selecting an active database for downstream use.
//
// Use must not fail: an implementation whose database selection can fail
// has to surface that error from Connect or CreateDatabase instead, so the
// bootstrap callback shape (err, nil) | (nil, handle) stays intact.
type Handle interface {
	// ListDatabases returns the names in the server's database catalog.
	ListDatabases(ctx context.Context) ([]string, error)

	// CreateDatabase makes the named database exist in the catalog.
	CreateDatabase(ctx context.Context, name string) error

	// Use selects the named database as the handle's active namespace.
	Use(name string)

	// Close releases the session. The bootstrap core never calls this;
	// it exists for the process that owns the handle's lifetime.
	Close(ctx context.Context) error
}
