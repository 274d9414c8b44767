// Package storefront is the shopper-side core: the product catalog
// snapshot, the cart mirror and its synchronization with the cart service,
// checkout, order history, and product comments.
//
// A Session ties these together for one shopper. It is created once, set
// up by Login and torn down by Logout; the view layer holds it and calls
// into it for every intent.
package storefront

import (
	"context"
	"fmt"
	"sync"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/safar/storefront/internal/client"
	"github.com/safar/storefront/internal/config"
	"github.com/safar/storefront/internal/logger"
	"github.com/safar/storefront/internal/models"
)

type Session struct {
	Catalog *Catalog
	Cart    *CartStore
	Orders  *Orders
	Reviews *Reviews
	Auth    *Auth

	log *zap.Logger

	mu   sync.RWMutex
	user *models.User
}

// New builds a session talking to cfg.BaseURL.
func New(cfg config.ClientConfig, log *zap.Logger) (*Session, error) {
	api, err := client.New(cfg, log)
	if err != nil {
		return nil, err
	}
	return NewSession(api, log), nil
}

func NewSession(api *client.Client, log *zap.Logger) *Session {
	log = logger.OrNop(log)
	carts := NewCartStore(api, log)
	return &Session{
		Catalog: NewCatalog(api, log),
		Cart:    carts,
		Orders:  NewOrders(api, carts, log),
		Reviews: NewReviews(api, log),
		Auth:    NewAuth(api, log),
		log:     log.Named("session"),
	}
}

// User is the signed-in shopper, or nil.
func (s *Session) User() *models.User {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.user
}

// Login signs in and loads the shopper's cart. A cart that fails to load
// does not fail the login; it shows up in Cart.Err.
func (s *Session) Login(ctx context.Context, username, password string) (*models.User, error) {
	user, err := s.Auth.Login(ctx, username, password)
	if err != nil {
		return nil, err
	}

	s.mu.Lock()
	s.user = user
	s.mu.Unlock()

	s.Cart.Load(ctx, user)
	s.log.Info("signed in", zap.Int64("user_id", user.UserID), zap.String("username", user.Username))
	return user, nil
}

// Logout waits for pending post-checkout work, then forgets the user and
// the cart mirror.
func (s *Session) Logout() {
	s.Orders.Wait()

	s.mu.Lock()
	user := s.user
	s.user = nil
	s.mu.Unlock()

	s.Cart.Reset()
	if user != nil {
		s.log.Info("signed out", zap.Int64("user_id", user.UserID))
	}
}

// AddToCart adds quantity units of productID for the signed-in shopper.
// ErrLoginRequired tells the caller to send the shopper to the login page.
func (s *Session) AddToCart(ctx context.Context, productID int64, quantity int) (models.Cart, error) {
	return s.Cart.Add(ctx, s.User(), productID, quantity)
}

// OpenCart reloads the cart and prices it against the catalog, fetching
// the catalog first if there is no snapshot yet.
func (s *Session) OpenCart(ctx context.Context) (models.Cart, decimal.Decimal, error) {
	if !s.Catalog.Fetched() {
		s.Catalog.FetchAll(ctx)
	}
	cart, err := s.Cart.Load(ctx, s.User())
	return cart, Total(cart, s.Catalog.Index()), err
}

// Checkout orders the current cart mirror at the catalog price. Without a
// catalog snapshot the cart cannot be priced, so one is fetched first and
// nothing is ordered if that fails.
func (s *Session) Checkout(ctx context.Context) (models.Order, error) {
	user := s.User()
	cart := s.Cart.Mirror()
	if user != nil && len(cart) > 0 && !s.Catalog.Fetched() {
		if _, err := s.Catalog.FetchAll(ctx); err != nil {
			return models.Order{}, fmt.Errorf("price cart: %w", err)
		}
	}
	total := Total(cart, s.Catalog.Index())
	return s.Orders.Checkout(ctx, user, cart, total)
}

func (s *Session) ListOrders(ctx context.Context) ([]models.Order, error) {
	return s.Orders.ListOrders(ctx, s.User())
}

func (s *Session) SubmitReview(ctx context.Context, productID int64, comment string) (models.Review, error) {
	return s.Reviews.Submit(ctx, s.User(), productID, comment)
}
