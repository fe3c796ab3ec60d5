package storefront

import (
	"context"
	"errors"
	"log/slog"
	"math/rand/v2"
	"sync/atomic"
	"time"

	"github.com/Log-Tools/commerce-events-pipeline/events"
	"github.com/Log-Tools/commerce-events-pipeline/internal/config"
	"github.com/Log-Tools/commerce-events-pipeline/internal/logging"
	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"
)

// EventPublisher sends storefront events to the broker
type EventPublisher interface {
	PublishAddToCart(ev *events.AddToCart) error
	PublishCheckout(sessionID string, ev *events.Checkout) error
}

// Simulator runs concurrent shopping sessions against a catalog
type Simulator struct {
	publisher EventPublisher
	catalog   Catalog
	cfg       config.SimulatorConfig
	now       func() time.Time
	newID     func() string
	logger    *slog.Logger

	checkouts atomic.Int64
}

// NewSimulator creates a simulator publishing through publisher
func NewSimulator(publisher EventPublisher, catalog Catalog, cfg config.SimulatorConfig) *Simulator {
	if cfg.Sessions <= 0 {
		cfg.Sessions = 1
	}
	if cfg.MaxItems <= 0 {
		cfg.MaxItems = 1
	}
	return &Simulator{
		publisher: publisher,
		catalog:   catalog,
		cfg:       cfg,
		now:       time.Now,
		newID:     uuid.NewString,
		logger:    logging.WithComponent("simulator"),
	}
}

// Checkouts returns the number of checkouts started so far
func (s *Simulator) Checkouts() int64 {
	return s.checkouts.Load()
}

// Run drives cfg.Sessions sessions until ctx is cancelled or, when
// cfg.SessionsToClose is positive, until that many checkouts were
// published. Publish failures are logged and the session carries on.
func (s *Simulator) Run(ctx context.Context) error {
	if len(s.catalog) == 0 {
		return errors.New("catalog is empty")
	}

	ctx, stop := context.WithCancel(ctx)
	defer stop()

	s.logger.Info("starting storefront simulator",
		"sessions", s.cfg.Sessions,
		"interval", s.cfg.Interval,
		"max_items", s.cfg.MaxItems,
		"sessions_to_close", s.cfg.SessionsToClose,
		"products", len(s.catalog),
		"categories", s.catalog.Categories(),
	)

	g, ctx := errgroup.WithContext(ctx)
	for i := 0; i < s.cfg.Sessions; i++ {
		g.Go(func() error {
			for ctx.Err() == nil {
				if done := s.shop(ctx); done {
					stop()
				}
			}
			return nil
		})
	}
	err := g.Wait()

	s.logger.Info("storefront simulator stopped", "checkouts", s.Checkouts())
	return err
}

// shop runs one session from an empty cart to checkout. It reports
// whether the checkout limit has been reached.
func (s *Simulator) shop(ctx context.Context) bool {
	cart := NewCart(s.newID())
	logger := s.logger.With("session_id", cart.SessionID())

	adds := 1 + rand.IntN(s.cfg.MaxItems)
	for i := 0; i < adds; i++ {
		if !s.wait(ctx) {
			return false
		}
		product := s.catalog[rand.IntN(len(s.catalog))]
		ev := cart.Add(product, s.now())
		if err := s.publisher.PublishAddToCart(ev); err != nil {
			logger.Error("failed to publish add_to_cart", "product_id", product.ID, "error", err)
		} else {
			logger.Debug("added to cart",
				"product_id", product.ID,
				"product_name", product.Name,
				"category", product.Category,
				"description", product.Description,
			)
		}

		// shoppers sometimes change their mind; quantity changes emit no event
		switch rand.IntN(10) {
		case 0:
			cart.UpdateQuantity(product.ID, 1)
		case 1:
			cart.UpdateQuantity(product.ID, -1)
		}
	}

	if cart.Len() == 0 || !s.wait(ctx) {
		return false
	}

	n, ok := s.reserveCheckout()
	if !ok {
		return true
	}

	checkout, err := cart.Checkout(s.now())
	if err != nil {
		return false
	}
	if err := s.publisher.PublishCheckout(cart.SessionID(), checkout); err != nil {
		logger.Error("failed to publish checkout", "error", err)
	} else {
		logger.Info("session checked out",
			"items", len(checkout.CartItems),
			"total_price", checkout.TotalPrice,
			"categories", s.checkoutCategories(checkout),
		)
	}
	return s.cfg.SessionsToClose > 0 && n >= int64(s.cfg.SessionsToClose)
}

// checkoutCategories counts checked-out units per catalog category
func (s *Simulator) checkoutCategories(checkout *events.Checkout) map[string]int {
	counts := make(map[string]int)
	for _, item := range checkout.CartItems {
		if product, ok := s.catalog.Lookup(item.ProductID); ok {
			counts[product.Category] += item.Quantity
		}
	}
	return counts
}

// reserveCheckout claims the next checkout slot, failing once the limit
// has been reached
func (s *Simulator) reserveCheckout() (int64, bool) {
	limit := int64(s.cfg.SessionsToClose)
	for {
		n := s.checkouts.Load()
		if limit > 0 && n >= limit {
			return n, false
		}
		if s.checkouts.CompareAndSwap(n, n+1) {
			return n + 1, true
		}
	}
}

// wait sleeps for one interval; false means ctx ended first
func (s *Simulator) wait(ctx context.Context) bool {
	if s.cfg.Interval <= 0 {
		return ctx.Err() == nil
	}
	timer := time.NewTimer(s.cfg.Interval)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return false
	case <-timer.C:
		return true
	}
}
