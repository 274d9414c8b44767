package store

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/safar/storefront/internal/models"
)

type queryer interface {
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
}

// ListProducts returns the whole catalog in id order. The table is seeded
// by migrations and never written by the service.
func ListProducts(ctx context.Context, db *sql.DB) ([]models.Product, error) {
	query := `
		SELECT id, name, description, price
		FROM products
		ORDER BY id`

	rows, err := db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("list products: %w", err)
	}
	defer rows.Close()

	products := []models.Product{}
	for rows.Next() {
		var product models.Product
		err := rows.Scan(
			&product.ID,
			&product.Name,
			&product.Description,
			&product.Price,
		)
		if err != nil {
			return nil, fmt.Errorf("scan product: %w", err)
		}
		products = append(products, product)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("rows error: %w", err)
	}

	return products, nil
}
