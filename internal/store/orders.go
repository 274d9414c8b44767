package store

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/google/uuid"
	"github.com/lib/pq"
	"github.com/shopspring/decimal"

	"github.com/safar/storefront/internal/database"
	"github.com/safar/storefront/internal/models"
)

// CreateOrderRequest is an order as submitted at checkout. TotalAmount is
// recorded exactly as sent; it is not recomputed from catalog prices, but
// it must be positive for the payment to go through.
type CreateOrderRequest struct {
	UserID      int64
	Items       []models.CartLine
	TotalAmount decimal.Decimal
}

func (r CreateOrderRequest) Validate() error {
	if len(r.Items) == 0 {
		return database.ErrEmptyOrder
	}
	for _, item := range r.Items {
		if item.Quantity <= 0 {
			return database.ErrInvalidQuantity
		}
	}
	if !r.TotalAmount.IsPositive() {
		return database.ErrInvalidAmount
	}
	return nil
}

func CreateOrder(ctx context.Context, db *sql.DB, req CreateOrderRequest) (*models.Order, error) {
	if err := req.Validate(); err != nil {
		return nil, err
	}

	items := make([]models.CartLine, len(req.Items))
	copy(items, req.Items)

	order := &models.Order{
		OrderID:     uuid.NewString(),
		UserID:      req.UserID,
		Status:      models.OrderStatusConfirmed,
		Items:       items,
		TotalAmount: req.TotalAmount,
	}

	err := database.WithTransaction(ctx, db, database.DefaultTxOptions(), func(tx *sql.Tx) error {
		_, err := tx.ExecContext(ctx,
			`INSERT INTO orders (order_id, user_id, status, total_amount, created_at)
			 VALUES ($1, $2, $3, $4, NOW())`,
			order.OrderID, order.UserID, order.Status, order.TotalAmount)
		if err != nil {
			if database.IsCheckViolation(err) {
				return database.ErrInvalidAmount
			}
			return fmt.Errorf("create order: %w", err)
		}

		for i, item := range items {
			_, err = tx.ExecContext(ctx,
				`INSERT INTO order_items (order_id, position, product_id, quantity)
				 VALUES ($1, $2, $3, $4)`,
				order.OrderID, i, item.ProductID, item.Quantity)
			if err != nil {
				if database.IsCheckViolation(err) {
					return database.ErrInvalidQuantity
				}
				return fmt.Errorf("create order item: %w", err)
			}
		}

		return nil
	})
	if err != nil {
		return nil, err
	}

	return order, nil
}

// ListOrders returns the user's orders oldest first, each with its lines in
// the order they were submitted.
func ListOrders(ctx context.Context, db *sql.DB, userID int64) ([]models.Order, error) {
	orders := []models.Order{}

	err := database.WithTransaction(ctx, db, database.ReadOnlyTxOptions(), func(tx *sql.Tx) error {
		rows, err := tx.QueryContext(ctx,
			`SELECT order_id, user_id, status, total_amount
			 FROM orders
			 WHERE user_id = $1
			 ORDER BY created_at, id`,
			userID)
		if err != nil {
			return fmt.Errorf("list orders: %w", err)
		}
		defer rows.Close()

		for rows.Next() {
			order := models.Order{Items: []models.CartLine{}}
			err := rows.Scan(
				&order.OrderID,
				&order.UserID,
				&order.Status,
				&order.TotalAmount,
			)
			if err != nil {
				return fmt.Errorf("scan order: %w", err)
			}
			orders = append(orders, order)
		}
		if err := rows.Err(); err != nil {
			return fmt.Errorf("rows error: %w", err)
		}

		return attachItems(ctx, tx, orders)
	})
	if err != nil {
		return nil, err
	}

	return orders, nil
}

func attachItems(ctx context.Context, q queryer, orders []models.Order) error {
	if len(orders) == 0 {
		return nil
	}

	ids := make([]string, len(orders))
	byID := make(map[string]int, len(orders))
	for i, order := range orders {
		ids[i] = order.OrderID
		byID[order.OrderID] = i
	}

	rows, err := q.QueryContext(ctx,
		`SELECT order_id, product_id, quantity
		 FROM order_items
		 WHERE order_id = ANY($1::uuid[])
		 ORDER BY order_id, position`,
		pq.Array(ids))
	if err != nil {
		return fmt.Errorf("get order items: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var orderID string
		var item models.CartLine
		if err := rows.Scan(&orderID, &item.ProductID, &item.Quantity); err != nil {
			return fmt.Errorf("scan order item: %w", err)
		}
		if i, ok := byID[orderID]; ok {
			orders[i].Items = append(orders[i].Items, item)
		}
	}

	return rows.Err()
}
