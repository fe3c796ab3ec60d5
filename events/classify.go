package events

import (
	"encoding/json"
	"errors"
	"fmt"
	"time"
	"unicode/utf8"
)

// naiveISOLayout matches timestamps written by Python's datetime.isoformat()
// without a zone, which the storefront emits.
const naiveISOLayout = "2006-01-02T15:04:05.999999999"

// Classifier decodes raw payloads into records
type Classifier struct {
	// Strict requires every field of a recognized event to be present and
	// well-typed. When false, missing or mistyped fields decode to zero
	// values on the typed event and the payload is stored as received.
	Strict bool
}

// NewClassifier creates a classifier
func NewClassifier(strict bool) *Classifier {
	return &Classifier{Strict: strict}
}

var defaultClassifier = NewClassifier(true)

// Classify decodes raw with a strict classifier
func Classify(raw []byte) (*Record, error) {
	return defaultClassifier.Classify(raw)
}

// Classify parses raw as a JSON object and routes it by event_type.
// Malformed documents return *DecodeError before the tag is inspected;
// an absent or unknown tag returns *UnrecognizedEventError.
func (c *Classifier) Classify(raw []byte) (*Record, error) {
	if !utf8.Valid(raw) {
		return nil, &DecodeError{Err: errInvalidUTF8}
	}

	var fields map[string]json.RawMessage
	if err := json.Unmarshal(raw, &fields); err != nil {
		return nil, &DecodeError{Err: err}
	}
	if fields == nil {
		return nil, &DecodeError{Err: errors.New("payload is not a JSON object")}
	}

	tagRaw, ok := fields["event_type"]
	if !ok {
		return nil, &UnrecognizedEventError{}
	}
	var tag string
	if err := json.Unmarshal(tagRaw, &tag); err != nil {
		return nil, &UnrecognizedEventError{EventType: string(tagRaw), Present: true}
	}

	var (
		event Event
		err   error
	)
	switch EventType(tag) {
	case EventTypeAddToCart:
		event, err = c.decodeAddToCart(raw)
	case EventTypeCheckout:
		event, err = c.decodeCheckout(raw)
	default:
		return nil, &UnrecognizedEventError{EventType: tag, Present: true}
	}
	if err != nil {
		return nil, err
	}

	return &Record{Event: event, Target: event.Target(), Raw: json.RawMessage(raw)}, nil
}

type addToCartWire struct {
	ProductID   *int64  `json:"product_id"`
	ProductName *string `json:"product_name"`
	Category    *string `json:"category"`
	Timestamp   *string `json:"timestamp"`
}

func (c *Classifier) decodeAddToCart(raw []byte) (*AddToCart, error) {
	var w addToCartWire
	if err := json.Unmarshal(raw, &w); err != nil {
		if err = c.wireError(err); err != nil {
			return nil, err
		}
	}

	if c.Strict {
		if err := firstMissing(
			field{"product_id", w.ProductID != nil},
			field{"product_name", w.ProductName != nil},
			field{"category", w.Category != nil},
			field{"timestamp", w.Timestamp != nil},
		); err != nil {
			return nil, err
		}
		if err := checkTimestamp(*w.Timestamp); err != nil {
			return nil, err
		}
	}

	return &AddToCart{
		EventType:   EventTypeAddToCart,
		ProductID:   deref(w.ProductID),
		ProductName: deref(w.ProductName),
		Category:    deref(w.Category),
		Timestamp:   deref(w.Timestamp),
	}, nil
}

type cartItemWire struct {
	ProductID   *int64   `json:"product_id"`
	ProductName *string  `json:"product_name"`
	Quantity    *int     `json:"quantity"`
	Price       *float64 `json:"price"`
}

type checkoutWire struct {
	CartItems  *[]cartItemWire `json:"cart_items"`
	TotalPrice *float64        `json:"total_price"`
	Timestamp  *string         `json:"timestamp"`
}

func (c *Classifier) decodeCheckout(raw []byte) (*Checkout, error) {
	var w checkoutWire
	if err := json.Unmarshal(raw, &w); err != nil {
		if err = c.wireError(err); err != nil {
			return nil, err
		}
	}

	if c.Strict {
		if err := firstMissing(
			field{"cart_items", w.CartItems != nil},
			field{"total_price", w.TotalPrice != nil},
			field{"timestamp", w.Timestamp != nil},
		); err != nil {
			return nil, err
		}
		if err := checkTimestamp(*w.Timestamp); err != nil {
			return nil, err
		}
	}

	var wireItems []cartItemWire
	if w.CartItems != nil {
		wireItems = *w.CartItems
	}
	items := make([]CartItem, 0, len(wireItems))
	for i, it := range wireItems {
		if c.Strict {
			prefix := fmt.Sprintf("cart_items[%d].", i)
			if err := firstMissing(
				field{prefix + "product_id", it.ProductID != nil},
				field{prefix + "product_name", it.ProductName != nil},
				field{prefix + "quantity", it.Quantity != nil},
				field{prefix + "price", it.Price != nil},
			); err != nil {
				return nil, err
			}
		}
		items = append(items, CartItem{
			ProductID:   deref(it.ProductID),
			ProductName: deref(it.ProductName),
			Quantity:    deref(it.Quantity),
			Price:       deref(it.Price),
		})
	}

	return &Checkout{
		EventType:  EventTypeCheckout,
		CartItems:  items,
		TotalPrice: deref(w.TotalPrice),
		Timestamp:  deref(w.Timestamp),
	}, nil
}

type field struct {
	name    string
	present bool
}

var (
	errMissingField = errors.New("required field is missing")
	errInvalidUTF8  = errors.New("payload is not valid UTF-8")
)

func firstMissing(fields ...field) error {
	for _, f := range fields {
		if !f.present {
			return &DecodeError{Field: f.name, Err: errMissingField}
		}
	}
	return nil
}

// wireError turns a json type mismatch into a DecodeError naming the field.
// A lenient classifier ignores type mismatches; json.Unmarshal has already
// filled every other field.
func (c *Classifier) wireError(err error) error {
	var typeErr *json.UnmarshalTypeError
	if errors.As(err, &typeErr) {
		if !c.Strict {
			return nil
		}
		if typeErr.Field != "" {
			return &DecodeError{Field: typeErr.Field, Err: err}
		}
	}
	return &DecodeError{Err: err}
}

func checkTimestamp(ts string) error {
	if _, err := time.Parse(time.RFC3339Nano, ts); err == nil {
		return nil
	}
	if _, err := time.Parse(naiveISOLayout, ts); err != nil {
		return &DecodeError{Field: "timestamp", Err: fmt.Errorf("not an ISO-8601 timestamp: %q", ts)}
	}
	return nil
}

func deref[T any](p *T) T {
	var zero T
	if p == nil {
		return zero
	}
	return *p
}
