package events

import (
	"fmt"
	"strconv"
	"strings"
)

// MessageKey returns the record key a producer should use for an event.
// add_to_cart events are keyed by product id so activity for one product
// stays on one partition; checkout events are keyed by session so a
// session's orders stay in sequence.
// Format: {eventType}:{id}
func MessageKey(eventType EventType, id string) string {
	return fmt.Sprintf("%s:%s", eventType, id)
}

// ProductKey is MessageKey for an add_to_cart event
func ProductKey(productID int64) string {
	return MessageKey(EventTypeAddToCart, strconv.FormatInt(productID, 10))
}

// ParseMessageKey splits a key built by MessageKey
func ParseMessageKey(key string) (EventType, string, error) {
	parts := strings.SplitN(key, ":", 2)
	if len(parts) != 2 || parts[0] == "" || parts[1] == "" {
		return "", "", fmt.Errorf("invalid event key format: %q", key)
	}
	return EventType(parts[0]), parts[1], nil
}
