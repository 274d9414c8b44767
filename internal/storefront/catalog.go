package storefront

import (
	"context"
	"strings"
	"sync"

	"go.uber.org/zap"

	"github.com/safar/storefront/internal/client"
	"github.com/safar/storefront/internal/logger"
	"github.com/safar/storefront/internal/models"
)

// Catalog holds the snapshot of the last successful product fetch.
type Catalog struct {
	api *client.Client
	log *zap.Logger

	mu       sync.RWMutex
	products []models.Product
	index    map[int64]models.Product
	fetched  bool
}

func NewCatalog(api *client.Client, log *zap.Logger) *Catalog {
	return &Catalog{
		api:   api,
		log:   logger.OrNop(log).Named("catalog"),
		index: map[int64]models.Product{},
	}
}

// FetchAll loads the full product list. On failure it returns an empty
// list with the error and keeps the previous snapshot for searching.
func (c *Catalog) FetchAll(ctx context.Context) ([]models.Product, error) {
	var products []models.Product
	if err := c.api.Get(ctx, "/products", &products); err != nil {
		c.log.Warn("fetch products failed", zap.Error(err))
		return []models.Product{}, err
	}
	if products == nil {
		products = []models.Product{}
	}

	index := make(map[int64]models.Product, len(products))
	for _, p := range products {
		index[p.ID] = p
	}

	c.mu.Lock()
	c.products = products
	c.index = index
	c.fetched = true
	c.mu.Unlock()

	return cloneProducts(products), nil
}

// Fetched reports whether at least one fetch has succeeded.
func (c *Catalog) Fetched() bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.fetched
}

func (c *Catalog) Products() []models.Product {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return cloneProducts(c.products)
}

// Index returns the snapshot keyed by product id. The map is a copy.
func (c *Catalog) Index() map[int64]models.Product {
	c.mu.RLock()
	defer c.mu.RUnlock()
	out := make(map[int64]models.Product, len(c.index))
	for id, p := range c.index {
		out[id] = p
	}
	return out
}

func (c *Catalog) Lookup(id int64) (models.Product, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	p, ok := c.index[id]
	return p, ok
}

// Search filters the snapshot by name without touching the network.
func (c *Catalog) Search(query string) []models.Product {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return Filter(c.products, query)
}

// Filter keeps products whose name contains query, ignoring case. An empty
// query keeps everything.
func Filter(products []models.Product, query string) []models.Product {
	if query == "" {
		return cloneProducts(products)
	}
	q := strings.ToLower(query)
	out := make([]models.Product, 0, len(products))
	for _, p := range products {
		if strings.Contains(strings.ToLower(p.Name), q) {
			out = append(out, p)
		}
	}
	return out
}

func cloneProducts(in []models.Product) []models.Product {
	out := make([]models.Product, len(in))
	copy(out, in)
	return out
}
