// Package events defines the storefront behavior events carried on the
// events topic and classifies raw payloads into storage records.
package events

import "encoding/json"

// EventType is the value of the "event_type" discriminator field
type EventType string

const (
	// EventTypeAddToCart is published each time a product is added to a cart
	EventTypeAddToCart EventType = "add_to_cart"

	// EventTypeCheckout is published once per completed cart
	EventTypeCheckout EventType = "checkout"
)

// Event is the decoded form of a recognized payload. The set of
// implementations is closed: AddToCart and Checkout.
type Event interface {
	Type() EventType
	Target() Target
	isEvent()
}

// AddToCart records a single product being added to a shopping cart
type AddToCart struct {
	EventType   EventType `json:"event_type" bson:"event_type"`
	ProductID   int64     `json:"product_id" bson:"product_id"`
	ProductName string    `json:"product_name" bson:"product_name"`
	Category    string    `json:"category" bson:"category"`
	Timestamp   string    `json:"timestamp" bson:"timestamp"`
}

// Type returns EventTypeAddToCart
func (e *AddToCart) Type() EventType { return EventTypeAddToCart }

// Target returns TargetActivity
func (e *AddToCart) Target() Target { return TargetActivity }

func (*AddToCart) isEvent() {}

// CartItem is one line of a checked-out cart
type CartItem struct {
	ProductID   int64   `json:"product_id" bson:"product_id"`
	ProductName string  `json:"product_name" bson:"product_name"`
	Quantity    int     `json:"quantity" bson:"quantity"`
	Price       float64 `json:"price" bson:"price"`
}

// Checkout records a completed order. CartItems keep the order in which
// the producer listed them.
type Checkout struct {
	EventType  EventType  `json:"event_type" bson:"event_type"`
	CartItems  []CartItem `json:"cart_items" bson:"cart_items"`
	TotalPrice float64    `json:"total_price" bson:"total_price"`
	Timestamp  string     `json:"timestamp" bson:"timestamp"`
}

// Type returns EventTypeCheckout
func (e *Checkout) Type() EventType { return EventTypeCheckout }

// Target returns TargetOrders
func (e *Checkout) Target() Target { return TargetOrders }

func (*Checkout) isEvent() {}

// Target identifies the storage collection a record is routed to
type Target int

const (
	// TargetActivity is the collection holding add_to_cart documents
	TargetActivity Target = iota + 1

	// TargetOrders is the collection holding checkout documents
	TargetOrders
)

func (t Target) String() string {
	switch t {
	case TargetActivity:
		return "activity"
	case TargetOrders:
		return "orders"
	default:
		return "unknown"
	}
}

// Record is a decoded event paired with its routing target. A record is
// produced by the classifier and consumed exactly once by the sink.
// Raw holds the payload as received; it is the document that gets stored,
// so fields the typed Event does not model are kept.
type Record struct {
	Event  Event
	Target Target
	Raw    json.RawMessage
}
