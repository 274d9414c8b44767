package storefront

import (
	"context"
	"fmt"
	"sync"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/safar/storefront/internal/client"
	"github.com/safar/storefront/internal/logger"
	"github.com/safar/storefront/internal/models"
)

// CartStore mirrors the cart service's view of the current user's cart.
// The mirror is only ever replaced wholesale by what the server returned;
// quantities are never computed locally.
//
// Requests that change or re-read server state are issued one at a time,
// so the mirror always reflects the answer to the latest request sent.
type CartStore struct {
	api *client.Client
	log *zap.Logger

	// syncMu orders load/add/clear round-trips.
	syncMu sync.Mutex

	mu      sync.RWMutex
	mirror  models.Cart
	lastErr error
}

func NewCartStore(api *client.Client, log *zap.Logger) *CartStore {
	return &CartStore{
		api:    api,
		log:    logger.OrNop(log).Named("cart"),
		mirror: models.Cart{},
	}
}

type addRequest struct {
	ProductID int64 `json:"product_id"`
	Quantity  int   `json:"quantity"`
}

type addResponse struct {
	Message string      `json:"message"`
	Cart    models.Cart `json:"cart"`
}

// Load fetches the server cart and makes it the mirror. A failed fetch
// yields an empty cart and is remembered in Err.
func (s *CartStore) Load(ctx context.Context, user *models.User) (models.Cart, error) {
	if user == nil {
		s.replace(models.Cart{}, ErrLoginRequired)
		return models.Cart{}, ErrLoginRequired
	}

	s.syncMu.Lock()
	defer s.syncMu.Unlock()

	var cart models.Cart
	if err := s.api.Get(ctx, cartPath(user.UserID), &cart); err != nil {
		s.log.Warn("load cart failed", zap.Int64("user_id", user.UserID), zap.Error(err))
		err = fmt.Errorf("load cart: %w", err)
		s.replace(models.Cart{}, err)
		return models.Cart{}, err
	}

	s.replace(cart, nil)
	return cart.Clone(), nil
}

// Add asks the server to add quantity units of productID. A quantity of 0
// means 1. On success the mirror becomes the cart the server sent back; on
// failure the mirror is left exactly as it was.
func (s *CartStore) Add(ctx context.Context, user *models.User, productID int64, quantity int) (models.Cart, error) {
	if user == nil {
		return nil, ErrLoginRequired
	}
	if quantity == 0 {
		quantity = 1
	}
	if quantity < 0 {
		return nil, ErrInvalidQuantity
	}

	s.syncMu.Lock()
	defer s.syncMu.Unlock()

	var resp addResponse
	err := s.api.Post(ctx, cartPath(user.UserID, "add"), addRequest{
		ProductID: productID,
		Quantity:  quantity,
	}, &resp)
	if err != nil {
		s.log.Warn("add to cart failed",
			zap.Int64("user_id", user.UserID),
			zap.Int64("product_id", productID),
			zap.Error(err),
		)
		return nil, fmt.Errorf("add to cart: %w", err)
	}

	s.replace(resp.Cart, nil)
	return resp.Cart.Clone(), nil
}

// Clear empties the server cart. Clearing an empty cart succeeds.
func (s *CartStore) Clear(ctx context.Context, user *models.User) error {
	if user == nil {
		return ErrLoginRequired
	}

	s.syncMu.Lock()
	defer s.syncMu.Unlock()

	if err := s.deleteCart(ctx, user.UserID); err != nil {
		return err
	}
	s.replace(models.Cart{}, nil)
	return nil
}

// queueClear takes the next place in the request order for a server-side
// clear and returns the function that sends it. Requests issued after
// queueClear returns wait until that function has run. The mirror is not
// touched.
func (s *CartStore) queueClear(userID int64) func(context.Context) error {
	s.syncMu.Lock()
	return func(ctx context.Context) error {
		defer s.syncMu.Unlock()
		return s.deleteCart(ctx, userID)
	}
}

func (s *CartStore) deleteCart(ctx context.Context, userID int64) error {
	if err := s.api.Delete(ctx, cartPath(userID, "clear"), nil); err != nil {
		return fmt.Errorf("clear cart: %w", err)
	}
	return nil
}

// Mirror returns a copy of the locally held cart.
func (s *CartStore) Mirror() models.Cart {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.mirror.Clone()
}

// Count is the number of lines in the mirror.
func (s *CartStore) Count() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.mirror)
}

// Err is the error from a failed Load, cleared by the next successful
// server answer.
func (s *CartStore) Err() error {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.lastErr
}

// Reset empties the mirror without talking to the server.
func (s *CartStore) Reset() {
	s.replace(models.Cart{}, nil)
}

func (s *CartStore) replace(cart models.Cart, err error) {
	s.mu.Lock()
	s.mirror = cart.Clone()
	s.lastErr = err
	s.mu.Unlock()
}

// Total prices cart against index. Lines whose product is missing from the
// index count as zero.
func Total(cart models.Cart, index map[int64]models.Product) decimal.Decimal {
	total := decimal.Zero
	for _, line := range cart {
		p, ok := index[line.ProductID]
		if !ok {
			continue
		}
		total = total.Add(p.Price.Mul(decimal.NewFromInt(int64(line.Quantity))))
	}
	return total
}

func cartPath(userID int64, action ...string) string {
	path := fmt.Sprintf("/cart/%d", userID)
	for _, a := range action {
		path += "/" + a
	}
	return path
}
