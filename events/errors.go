package events

import (
	"fmt"
	"strconv"
)

// DecodeError reports a payload that is not a well-formed event document.
// Field is set when the payload parsed but a required field of a
// recognized event was absent or had the wrong type.
type DecodeError struct {
	Field string
	Err   error
}

func (e *DecodeError) Error() string {
	if e.Field != "" {
		return fmt.Sprintf("decode event: field %q: %v", e.Field, e.Err)
	}
	return fmt.Sprintf("decode event: %v", e.Err)
}

func (e *DecodeError) Unwrap() error {
	return e.Err
}

// UnrecognizedEventError reports a well-formed payload whose event_type is
// absent or not one of the known tags. It is not fatal.
type UnrecognizedEventError struct {
	EventType string
	Present   bool
}

func (e *UnrecognizedEventError) Error() string {
	if !e.Present {
		return "unrecognized event: missing event_type"
	}
	return "unrecognized event: event_type " + strconv.Quote(e.EventType)
}
