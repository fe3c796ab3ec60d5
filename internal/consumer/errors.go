package consumer

import (
	"errors"
	"fmt"

	"github.com/confluentinc/confluent-kafka-go/v2/kafka"
)

// FatalError stops the poll loop. It is returned for errors that retrying
// the next record cannot fix: revoked broker credentials, or a store
// that stayed unreachable past the configured limit.
type FatalError struct {
	Reason string
	Err    error
}

func (e *FatalError) Error() string {
	return fmt.Sprintf("%s: %v", e.Reason, e.Err)
}

func (e *FatalError) Unwrap() error {
	return e.Err
}

// IsFatal reports whether err stops the pipeline
func IsFatal(err error) bool {
	var fatal *FatalError
	return errors.As(err, &fatal)
}

// isFatalBrokerError reports errors after which the client cannot
// continue: librdkafka fatal errors and authentication or authorization
// failures
func isFatalBrokerError(err kafka.Error) bool {
	if err.IsFatal() {
		return true
	}
	switch err.Code() {
	case kafka.ErrAuthentication,
		kafka.ErrSaslAuthenticationFailed,
		kafka.ErrTopicAuthorizationFailed,
		kafka.ErrGroupAuthorizationFailed,
		kafka.ErrClusterAuthorizationFailed:
		return true
	}
	return false
}
