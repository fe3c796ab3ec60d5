package storage

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/Log-Tools/commerce-events-pipeline/events"
	"go.mongodb.org/mongo-driver/v2/bson"
)

// Inserter appends a single document to one collection
type Inserter interface {
	InsertOne(ctx context.Context, document interface{}) error
}

// Collections binds each routing target to its collection
type Collections struct {
	Activity     Inserter
	ActivityName string
	Orders       Inserter
	OrdersName   string
}

// Router persists classified records into the collection of their target.
// Collections are fixed at construction for the life of the process.
type Router struct {
	inserters    map[events.Target]Inserter
	names        map[events.Target]string
	writeTimeout time.Duration
}

// NewRouter creates a router. writeTimeout bounds each insert; zero
// leaves the caller's context as the only bound.
func NewRouter(cols Collections, writeTimeout time.Duration) *Router {
	return &Router{
		inserters: map[events.Target]Inserter{
			events.TargetActivity: cols.Activity,
			events.TargetOrders:   cols.Orders,
		},
		names: map[events.Target]string{
			events.TargetActivity: cols.ActivityName,
			events.TargetOrders:   cols.OrdersName,
		},
		writeTimeout: writeTimeout,
	}
}

// CollectionName returns the collection a target is routed to
func (r *Router) CollectionName(target events.Target) string {
	return r.names[target]
}

// Persist inserts the record's payload as one document. No upsert and no
// transaction is used; failures return *ConnectionError or *WriteError.
func (r *Router) Persist(ctx context.Context, rec *events.Record) error {
	if rec == nil || rec.Event == nil {
		return &WriteError{Err: errors.New("empty record")}
	}

	inserter, ok := r.inserters[rec.Target]
	if !ok || inserter == nil {
		return &WriteError{Collection: rec.Target.String(), Err: fmt.Errorf("no collection for target %s", rec.Target)}
	}
	name := r.names[rec.Target]

	doc, err := document(rec)
	if err != nil {
		return &WriteError{Collection: name, Err: err}
	}

	if r.writeTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, r.writeTimeout)
		defer cancel()
	}

	if err := inserter.InsertOne(ctx, doc); err != nil {
		return classifyInsertError(name, err)
	}
	return nil
}

// document converts the raw JSON payload into an ordered BSON document,
// keeping every field and its position. Records built without a payload
// store the typed event.
func document(rec *events.Record) (interface{}, error) {
	if len(rec.Raw) == 0 {
		return rec.Event, nil
	}
	var doc bson.D
	if err := bson.UnmarshalExtJSON(rec.Raw, false, &doc); err != nil {
		return nil, fmt.Errorf("failed to convert payload to a document: %w", err)
	}
	return doc, nil
}
