package storage

import (
	"context"
	"errors"
	"fmt"

	"go.mongodb.org/mongo-driver/v2/mongo"
)

// ConnectionError reports that the store could not be reached. At startup
// it is fatal; at runtime it only fails the current record.
type ConnectionError struct {
	Op  string
	Err error
}

func (e *ConnectionError) Error() string {
	return fmt.Sprintf("storage connection error during %s: %v", e.Op, e.Err)
}

func (e *ConnectionError) Unwrap() error {
	return e.Err
}

// WriteError reports an insert rejected by the store
type WriteError struct {
	Collection string
	Err        error
}

func (e *WriteError) Error() string {
	return fmt.Sprintf("insert into %s rejected: %v", e.Collection, e.Err)
}

func (e *WriteError) Unwrap() error {
	return e.Err
}

// classifyInsertError separates connectivity failures from rejected writes
func classifyInsertError(collection string, err error) error {
	if isConnectivityError(err) {
		return &ConnectionError{Op: "insert into " + collection, Err: err}
	}
	return &WriteError{Collection: collection, Err: err}
}

func isConnectivityError(err error) bool {
	return mongo.IsNetworkError(err) ||
		mongo.IsTimeout(err) ||
		errors.Is(err, mongo.ErrClientDisconnected) ||
		errors.Is(err, context.DeadlineExceeded)
}
