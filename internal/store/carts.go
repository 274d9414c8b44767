package store

import (
	"context"
	"database/sql"
	"fmt"
	"math"

	"github.com/safar/storefront/internal/database"
	"github.com/safar/storefront/internal/models"
)

// AddResult is the cart after an add. Merged is set when the product was
// already in the cart and its quantity was increased instead.
type AddResult struct {
	Cart   models.Cart
	Merged bool
}

// AddToCart adds quantity units of productID to the user's cart. A product
// already in the cart keeps its position and has its quantity increased.
func AddToCart(ctx context.Context, db *sql.DB, userID, productID int64, quantity int) (*AddResult, error) {
	if quantity <= 0 {
		return nil, database.ErrInvalidQuantity
	}
	if quantity > math.MaxInt32 {
		return nil, database.ErrQuantityTooLarge
	}

	var result AddResult
	err := database.WithRetry(ctx, db, database.DefaultTxOptions(), func(tx *sql.Tx) error {
		var inserted bool
		err := tx.QueryRowContext(ctx,
			`INSERT INTO cart_items (user_id, product_id, quantity, created_at, updated_at)
			 VALUES ($1, $2, $3, NOW(), NOW())
			 ON CONFLICT (user_id, product_id)
			 DO UPDATE SET quantity = cart_items.quantity + EXCLUDED.quantity,
			               updated_at = NOW()
			 RETURNING (xmax = 0)`,
			userID, productID, quantity).Scan(&inserted)
		if err != nil {
			switch {
			case database.IsForeignKeyViolation(err):
				return database.ErrProductNotFound
			case database.IsOutOfRange(err):
				return database.ErrQuantityTooLarge
			case database.IsCheckViolation(err):
				return database.ErrInvalidQuantity
			}
			return fmt.Errorf("upsert cart item: %w", err)
		}

		cart, err := getCart(ctx, tx, userID)
		if err != nil {
			return err
		}

		result = AddResult{Cart: cart, Merged: !inserted}
		return nil
	})
	if err != nil {
		return nil, err
	}

	return &result, nil
}

// GetCart returns the user's cart lines in the order they were first
// added. A user with no cart gets an empty one.
func GetCart(ctx context.Context, db *sql.DB, userID int64) (models.Cart, error) {
	return getCart(ctx, db, userID)
}

func getCart(ctx context.Context, q queryer, userID int64) (models.Cart, error) {
	query := `
		SELECT product_id, quantity
		FROM cart_items
		WHERE user_id = $1
		ORDER BY id`

	rows, err := q.QueryContext(ctx, query, userID)
	if err != nil {
		return nil, fmt.Errorf("get cart: %w", err)
	}
	defer rows.Close()

	cart := models.Cart{}
	for rows.Next() {
		var line models.CartLine
		if err := rows.Scan(&line.ProductID, &line.Quantity); err != nil {
			return nil, fmt.Errorf("scan cart line: %w", err)
		}
		cart = append(cart, line)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("rows error: %w", err)
	}

	return cart, nil
}

// ClearCart empties the user's cart and reports how many lines it removed.
// Clearing an empty or unknown cart is not an error.
func ClearCart(ctx context.Context, db *sql.DB, userID int64) (int64, error) {
	result, err := db.ExecContext(ctx, `DELETE FROM cart_items WHERE user_id = $1`, userID)
	if err != nil {
		return 0, fmt.Errorf("clear cart: %w", err)
	}

	removed, err := result.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("get rows affected: %w", err)
	}

	return removed, nil
}
