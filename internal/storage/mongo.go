package storage

import (
	"context"
	"fmt"
	"sync"

	"github.com/Log-Tools/commerce-events-pipeline/internal/config"
	"go.mongodb.org/mongo-driver/v2/mongo"
	"go.mongodb.org/mongo-driver/v2/mongo/options"
	"go.mongodb.org/mongo-driver/v2/mongo/readpref"
)

// Client owns the MongoDB connection for the process
type Client struct {
	client *mongo.Client
	db     *mongo.Database
	cfg    config.StorageConfig

	closeOnce sync.Once
	closeErr  error
}

// Open connects to MongoDB and pings the primary. Any failure is returned
// as *ConnectionError; the process must not run against a store it
// cannot reach.
func Open(ctx context.Context, cfg config.StorageConfig) (*Client, error) {
	opts := options.Client().
		ApplyURI(cfg.URI).
		SetServerAPIOptions(options.ServerAPI(options.ServerAPIVersion1)).
		SetConnectTimeout(cfg.ConnectTimeout).
		SetServerSelectionTimeout(cfg.ConnectTimeout)

	client, err := mongo.Connect(opts)
	if err != nil {
		return nil, &ConnectionError{Op: "connect", Err: err}
	}

	c := &Client{
		client: client,
		db:     client.Database(cfg.Database),
		cfg:    cfg,
	}

	if err := c.Ping(ctx); err != nil {
		_ = client.Disconnect(context.Background())
		return nil, err
	}
	return c, nil
}

// Ping checks the primary is reachable within the connect timeout
func (c *Client) Ping(ctx context.Context) error {
	pingCtx, cancel := context.WithTimeout(ctx, c.cfg.ConnectTimeout)
	defer cancel()
	if err := c.client.Ping(pingCtx, readpref.Primary()); err != nil {
		return &ConnectionError{Op: "ping", Err: err}
	}
	return nil
}

// Router returns a router over the configured activity and orders collections
func (c *Client) Router() *Router {
	return NewRouter(Collections{
		Activity:     &collectionInserter{coll: c.db.Collection(c.cfg.ActivityCollection)},
		ActivityName: c.cfg.ActivityCollection,
		Orders:       &collectionInserter{coll: c.db.Collection(c.cfg.OrdersCollection)},
		OrdersName:   c.cfg.OrdersCollection,
	}, c.cfg.WriteTimeout)
}

// Close disconnects once; later calls return the first result
func (c *Client) Close(ctx context.Context) error {
	c.closeOnce.Do(func() {
		if err := c.client.Disconnect(ctx); err != nil {
			c.closeErr = fmt.Errorf("failed to disconnect from mongodb: %w", err)
		}
	})
	return c.closeErr
}

// collectionInserter adapts *mongo.Collection to Inserter
type collectionInserter struct {
	coll *mongo.Collection
}

func (i *collectionInserter) InsertOne(ctx context.Context, document interface{}) error {
	_, err := i.coll.InsertOne(ctx, document)
	return err
}
