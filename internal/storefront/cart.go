package storefront

import (
	"errors"
	"time"

	"github.com/Log-Tools/commerce-events-pipeline/events"
)

// TimestampLayout is the naive UTC ISO-8601 form the storefront stamps on
// events
const TimestampLayout = "2006-01-02T15:04:05.000000"

// ErrEmptyCart is returned when checking out a cart with no items
var ErrEmptyCart = errors.New("cart is empty")

type cartLine struct {
	product  Product
	quantity int
}

// Cart is the shopping cart of one session. It is not safe for
// concurrent use; each session goroutine owns its cart.
type Cart struct {
	sessionID string
	lines     map[int64]*cartLine
	order     []int64
}

// NewCart creates an empty cart for a session
func NewCart(sessionID string) *Cart {
	return &Cart{
		sessionID: sessionID,
		lines:     make(map[int64]*cartLine),
	}
}

// SessionID returns the id of the session owning the cart
func (c *Cart) SessionID() string {
	return c.sessionID
}

// Add puts one unit of product in the cart and returns the event to publish
func (c *Cart) Add(product Product, now time.Time) *events.AddToCart {
	if line, ok := c.lines[product.ID]; ok {
		line.quantity++
	} else {
		c.lines[product.ID] = &cartLine{product: product, quantity: 1}
		c.order = append(c.order, product.ID)
	}

	return &events.AddToCart{
		EventType:   events.EventTypeAddToCart,
		ProductID:   product.ID,
		ProductName: product.Name,
		Category:    product.Category,
		Timestamp:   formatTimestamp(now),
	}
}

// UpdateQuantity changes a line's quantity by delta, removing the line
// once it drops to zero. It reports whether the product was in the cart.
func (c *Cart) UpdateQuantity(productID int64, delta int) bool {
	line, ok := c.lines[productID]
	if !ok {
		return false
	}
	line.quantity += delta
	if line.quantity <= 0 {
		c.Remove(productID)
	}
	return true
}

// Remove drops a product from the cart
func (c *Cart) Remove(productID int64) bool {
	if _, ok := c.lines[productID]; !ok {
		return false
	}
	delete(c.lines, productID)
	for i, id := range c.order {
		if id == productID {
			c.order = append(c.order[:i], c.order[i+1:]...)
			break
		}
	}
	return true
}

// Quantity returns how many units of a product are in the cart
func (c *Cart) Quantity(productID int64) int {
	if line, ok := c.lines[productID]; ok {
		return line.quantity
	}
	return 0
}

// Len returns the number of distinct products in the cart
func (c *Cart) Len() int {
	return len(c.order)
}

// Total returns the sum of price times quantity over all lines
func (c *Cart) Total() float64 {
	var total float64
	for _, id := range c.order {
		line := c.lines[id]
		total += line.product.Price * float64(line.quantity)
	}
	return total
}

// Checkout returns the checkout event for the current contents, in the
// order products were first added, and empties the cart
func (c *Cart) Checkout(now time.Time) (*events.Checkout, error) {
	if len(c.order) == 0 {
		return nil, ErrEmptyCart
	}

	items := make([]events.CartItem, 0, len(c.order))
	for _, id := range c.order {
		line := c.lines[id]
		items = append(items, events.CartItem{
			ProductID:   line.product.ID,
			ProductName: line.product.Name,
			Quantity:    line.quantity,
			Price:       line.product.Price,
		})
	}
	checkout := &events.Checkout{
		EventType:  events.EventTypeCheckout,
		CartItems:  items,
		TotalPrice: c.Total(),
		Timestamp:  formatTimestamp(now),
	}

	c.lines = make(map[int64]*cartLine)
	c.order = nil
	return checkout, nil
}

func formatTimestamp(t time.Time) string {
	return t.UTC().Format(TimestampLayout)
}
