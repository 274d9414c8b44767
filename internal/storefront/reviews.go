package storefront

import (
	"context"
	"fmt"
	"strings"
	"sync"

	"go.uber.org/zap"

	"github.com/safar/storefront/internal/client"
	"github.com/safar/storefront/internal/logger"
	"github.com/safar/storefront/internal/models"
)

// Reviews backs the comment panel of a single product at a time.
type Reviews struct {
	api *client.Client
	log *zap.Logger

	mu        sync.RWMutex
	productID int64
	visible   []models.Review
}

func NewReviews(api *client.Client, log *zap.Logger) *Reviews {
	return &Reviews{
		api:     api,
		log:     logger.OrNop(log).Named("reviews"),
		visible: []models.Review{},
	}
}

type submitReviewRequest struct {
	ProductID int64  `json:"product_id"`
	Comment   string `json:"comment"`
}

// Open switches the panel to productID and loads its reviews. The visible
// list is reset first, so a failed load leaves it empty.
func (r *Reviews) Open(ctx context.Context, productID int64) ([]models.Review, error) {
	r.mu.Lock()
	r.productID = productID
	r.visible = []models.Review{}
	r.mu.Unlock()

	reviews, err := r.List(ctx, productID)
	if err != nil {
		return reviews, err
	}

	r.mu.Lock()
	if r.productID == productID {
		r.visible = cloneReviews(reviews)
	}
	r.mu.Unlock()

	return reviews, nil
}

// List fetches the reviews of productID without touching the panel.
func (r *Reviews) List(ctx context.Context, productID int64) ([]models.Review, error) {
	var reviews []models.Review
	if err := r.api.Get(ctx, fmt.Sprintf("/reviews/%d", productID), &reviews); err != nil {
		r.log.Warn("load reviews failed", zap.Int64("product_id", productID), zap.Error(err))
		return []models.Review{}, fmt.Errorf("list reviews: %w", err)
	}
	if reviews == nil {
		reviews = []models.Review{}
	}
	return reviews, nil
}

// Submit posts a comment for productID. Without a user or with a blank
// comment nothing is sent. On success the comment is appended to the
// visible list straight away.
func (r *Reviews) Submit(ctx context.Context, user *models.User, productID int64, comment string) (models.Review, error) {
	if user == nil {
		return models.Review{}, ErrLoginRequired
	}
	if strings.TrimSpace(comment) == "" {
		return models.Review{}, ErrBlankComment
	}

	var created models.Review
	err := r.api.Post(ctx, "/reviews", submitReviewRequest{
		ProductID: productID,
		Comment:   comment,
	}, &created)
	if err != nil {
		r.log.Warn("submit review failed", zap.Int64("product_id", productID), zap.Error(err))
		return models.Review{}, fmt.Errorf("submit review: %w", err)
	}
	if created.ProductID == 0 {
		created.ProductID = productID
	}
	if created.Comment == "" {
		created.Comment = comment
	}

	r.mu.Lock()
	if r.productID == productID {
		r.visible = append(r.visible, models.Review{ProductID: productID, Comment: comment})
	}
	r.mu.Unlock()

	return created, nil
}

// Visible returns the reviews currently shown in the panel.
func (r *Reviews) Visible() []models.Review {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return cloneReviews(r.visible)
}

// ProductID is the product whose panel is open, or 0.
func (r *Reviews) ProductID() int64 {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.productID
}

func cloneReviews(in []models.Review) []models.Review {
	out := make([]models.Review, len(in))
	copy(out, in)
	return out
}
