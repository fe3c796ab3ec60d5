package service

import (
	"context"
	"io"

	"github.com/Log-Tools/commerce-events-pipeline/internal/config"
	"github.com/Log-Tools/commerce-events-pipeline/internal/storage"
)

// Store is the persistence backend owned by one pipeline process
type Store interface {
	Router() *storage.Router
	Close(ctx context.Context) error
}

// StoreOpener connects a Store; a returned error is a startup failure
type StoreOpener func(ctx context.Context, cfg config.StorageConfig) (Store, error)

// OpenMongo opens the MongoDB store
func OpenMongo(ctx context.Context, cfg config.StorageConfig) (Store, error) {
	client, err := storage.Open(ctx, cfg)
	if err != nil {
		return nil, err
	}
	return client, nil
}

// PrintStore returns an opener whose store writes every routed document
// to w instead of a database
func PrintStore(w io.Writer) StoreOpener {
	return func(ctx context.Context, cfg config.StorageConfig) (Store, error) {
		activity := cfg.ActivityCollection
		if activity == "" {
			activity = "activity"
		}
		orders := cfg.OrdersCollection
		if orders == "" {
			orders = "orders"
		}
		return &printStore{router: storage.NewRouter(storage.Collections{
			Activity:     storage.NewPrintInserter(w, activity),
			ActivityName: activity,
			Orders:       storage.NewPrintInserter(w, orders),
			OrdersName:   orders,
		}, 0)}, nil
	}
}

type printStore struct {
	router *storage.Router
}

func (p *printStore) Router() *storage.Router {
	return p.router
}

func (p *printStore) Close(ctx context.Context) error {
	return nil
}
