package storage

import (
	"context"
	"fmt"
	"io"
	"sync"

	"go.mongodb.org/mongo-driver/v2/bson"
)

// PrintInserter writes documents as relaxed extended JSON lines instead of
// storing them. It backs the consumer's tail mode.
type PrintInserter struct {
	mu         sync.Mutex
	w          io.Writer
	collection string
}

// NewPrintInserter creates an inserter that prints to w, labelled with collection
func NewPrintInserter(w io.Writer, collection string) *PrintInserter {
	return &PrintInserter{w: w, collection: collection}
}

func (p *PrintInserter) InsertOne(ctx context.Context, document interface{}) error {
	data, err := bson.MarshalExtJSON(document, false, false)
	if err != nil {
		return fmt.Errorf("failed to marshal document: %w", err)
	}

	p.mu.Lock()
	defer p.mu.Unlock()
	_, err = fmt.Fprintf(p.w, "%s\t%s\n", p.collection, data)
	return err
}
