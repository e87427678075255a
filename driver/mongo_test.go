package driver

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.uber.org/zap"
)

func TestMongoDriver_Connect_InvalidURI(t *testing.T) {
	logger := zap.NewNop().Sugar()
	d := NewMongoDriver(logger)

	_, err := d.Connect(context.Background(), ConnectOptions{URI: "invalid-uri"})

	assert.Error(t, err)
	assert.Contains(t, err.Error(), "failed to connect to MongoDB")
}

func TestMongoDriver_Connect_UnreachableHost(t *testing.T) {
	logger := zap.NewNop().Sugar()
	d := NewMongoDriver(logger)

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()

	_, err := d.Connect(ctx, ConnectOptions{
		URI:            "mongodb://127.0.0.1:1",
		ConnectTimeout: 500 * time.Millisecond,
	})

	assert.Error(t, err)
}

func TestMongoHandle_Use(t *testing.T) {
	// The client connects lazily, so no server is needed to exercise
	// database selection.
	client, err := mongo.Connect(context.Background(),
		options.Client().ApplyURI("mongodb://127.0.0.1:1"))
	require.NoError(t, err)
	defer func() { _ = client.Disconnect(context.Background()) }()

	h := &MongoHandle{client: client, logger: zap.NewNop().Sugar()}
	assert.Nil(t, h.Database())

	h.Use("testdb")
	require.NotNil(t, h.Database())
	assert.Equal(t, "testdb", h.Database().Name())

	h.Use("other")
	assert.Equal(t, "other", h.Database().Name())
}
