package storefront

import (
	"context"
	"fmt"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/safar/storefront/internal/client"
	"github.com/safar/storefront/internal/logger"
	"github.com/safar/storefront/internal/models"
)

// Orders places orders and reads them back. After a successful checkout
// it retires the cart: the mirror is emptied at once and the server cart
// is cleared in the background on a best-effort basis.
type Orders struct {
	api   *client.Client
	carts *CartStore
	log   *zap.Logger

	// background holds the detached cart clears. Their errors are logged
	// and never reach Wait's caller.
	background errgroup.Group
}

func NewOrders(api *client.Client, carts *CartStore, log *zap.Logger) *Orders {
	return &Orders{
		api:   api,
		carts: carts,
		log:   logger.OrNop(log).Named("orders"),
	}
}

type checkoutRequest struct {
	UserID      int64             `json:"user_id"`
	Items       []models.CartLine `json:"items"`
	TotalAmount decimal.Decimal   `json:"total_amount"`
}

// Checkout submits cart with the given total. The total is sent exactly
// as computed by the caller.
//
// A failed checkout leaves everything untouched. A successful one always
// empties the local cart, whether or not the server-side clear works.
func (o *Orders) Checkout(ctx context.Context, user *models.User, cart models.Cart, total decimal.Decimal) (models.Order, error) {
	if user == nil {
		return models.Order{}, ErrLoginRequired
	}
	if len(cart) == 0 {
		return models.Order{}, ErrEmptyCart
	}

	items := cart.Clone()
	var order models.Order
	err := o.api.Post(ctx, "/orders", checkoutRequest{
		UserID:      user.UserID,
		Items:       items,
		TotalAmount: total,
	}, &order)
	if err != nil {
		o.log.Warn("checkout failed", zap.Int64("user_id", user.UserID), zap.Error(err))
		return models.Order{}, fmt.Errorf("checkout: %w", err)
	}

	if order.UserID == 0 {
		order.UserID = user.UserID
	}
	if order.Items == nil {
		order.Items = items
	}

	o.log.Info("order placed",
		zap.String("order_id", order.OrderID),
		zap.Int64("user_id", user.UserID),
		zap.String("total", total.StringFixed(2)),
	)

	o.resetAndClear(ctx, user.UserID)

	return order, nil
}

// resetAndClear empties the local cart and clears the server cart in the
// background. The clear is queued before the reset, so a cart request
// still in flight lands before the mirror is emptied and cannot refill
// it. The request outlives ctx's cancellation; its failure is only logged.
func (o *Orders) resetAndClear(ctx context.Context, userID int64) {
	ctx = context.WithoutCancel(ctx)

	send := func(ctx context.Context) error {
		return o.api.Delete(ctx, cartPath(userID, "clear"), nil)
	}
	if o.carts != nil {
		send = o.carts.queueClear(userID)
		o.carts.Reset()
	}

	o.background.Go(func() error {
		if err := send(ctx); err != nil {
			o.log.Warn("post-checkout cart clear failed", zap.Int64("user_id", userID), zap.Error(err))
		}
		return nil
	})
}

// Wait blocks until background cart clears have finished.
func (o *Orders) Wait() {
	_ = o.background.Wait()
}

// ListOrders returns the user's orders. On failure it returns an empty
// list alongside the error.
func (o *Orders) ListOrders(ctx context.Context, user *models.User) ([]models.Order, error) {
	if user == nil {
		return []models.Order{}, ErrLoginRequired
	}

	var orders []models.Order
	if err := o.api.Get(ctx, fmt.Sprintf("/orders/%d", user.UserID), &orders); err != nil {
		o.log.Warn("list orders failed", zap.Int64("user_id", user.UserID), zap.Error(err))
		return []models.Order{}, fmt.Errorf("list orders: %w", err)
	}
	if orders == nil {
		orders = []models.Order{}
	}
	return orders, nil
}
