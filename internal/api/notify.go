package api

import (
	"context"

	"go.uber.org/zap"

	"github.com/safar/storefront/internal/models"
)

// Notifier hears about every order once it is stored. Delivery is best
// effort: a notifier cannot fail the order.
type Notifier interface {
	OrderPlaced(ctx context.Context, order models.Order)
}

// logNotifier announces orders on the service log.
type logNotifier struct {
	log *zap.Logger
}

func (n logNotifier) OrderPlaced(_ context.Context, order models.Order) {
	n.log.Info("order placed",
		zap.String("order_id", order.OrderID),
		zap.Int64("user_id", order.UserID),
		zap.Int("lines", len(order.Items)),
		zap.Stringer("total_amount", order.TotalAmount),
	)
}
