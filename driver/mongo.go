package driver

import (
	"context"
	"fmt"
	"sync"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.uber.org/zap"
)

// markerCollection is created inside a new database so the name shows up in
// the server catalog. MongoDB materializes databases lazily; without at
// least one collection the database does not exist as far as
// ListDatabaseNames is concerned.
const markerCollection = "dbboot_meta"

// MongoDriver implements Driver on top of the official MongoDB client.
type MongoDriver struct {
	logger *zap.SugaredLogger
}

// NewMongoDriver creates a MongoDB-backed driver.
func NewMongoDriver(logger *zap.SugaredLogger) *MongoDriver {
	return &MongoDriver{logger: logger}
}

// Connect opens a client session and pings the server to verify it.
func (d *MongoDriver) Connect(ctx context.Context, opts ConnectOptions) (Handle, error) {
	clientOptions := options.Client().ApplyURI(opts.URI)
	if opts.MaxPoolSize > 0 {
		clientOptions = clientOptions.SetMaxPoolSize(opts.MaxPoolSize)
	}
	if opts.ConnectTimeout > 0 {
		clientOptions = clientOptions.SetConnectTimeout(opts.ConnectTimeout)
	}

	client, err := mongo.Connect(ctx, clientOptions)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to MongoDB: %w", err)
	}

	// Ping to verify connection
	if err := client.Ping(ctx, nil); err != nil {
		return nil, fmt.Errorf("failed to ping MongoDB: %w", err)
	}

	d.logger.Infow("Connected to MongoDB", "uri_host", clientOptions.Hosts)

	return &MongoHandle{client: client, logger: d.logger}, nil
}

// MongoHandle implements Handle over a connected *mongo.Client.
type MongoHandle struct {
	client *mongo.Client
	logger *zap.SugaredLogger

	mu       sync.RWMutex
	database *mongo.Database
}

// ListDatabases returns the server's database catalog.
func (h *MongoHandle) ListDatabases(ctx context.Context) ([]string, error) {
	names, err := h.client.ListDatabaseNames(ctx, bson.D{})
	if err != nil {
		return nil, fmt.Errorf("failed to list databases: %w", err)
	}
	return names, nil
}

// CreateDatabase materializes the named database by creating a marker
// collection in it. Already-exists errors on the marker are not possible
// here because the bootstrap layer only calls this when the database is
// absent from the catalog.
func (h *MongoHandle) CreateDatabase(ctx context.Context, name string) error {
	if err := h.client.Database(name).CreateCollection(ctx, markerCollection); err != nil {
		return fmt.Errorf("failed to create database %q: %w", name, err)
	}
	h.logger.Infow("Created database", "database", name)
	return nil
}

// Use selects the active database. Selection is a local operation on the
// client and cannot fail.
func (h *MongoHandle) Use(name string) {
	h.mu.Lock()
	h.database = h.client.Database(name)
	h.mu.Unlock()
}

// Database returns the selected database, nil before Use has been called.
// Downstream persistence code reaches collections through this.
func (h *MongoHandle) Database() *mongo.Database {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return h.database
}

// Client exposes the underlying client for operations outside the bootstrap
// scope (sessions, transactions).
func (h *MongoHandle) Client() *mongo.Client {
	return h.client
}

// Close disconnects the client.
func (h *MongoHandle) Close(ctx context.Context) error {
	return h.client.Disconnect(ctx)
}
