// Package api serves the cart, order and product-listing endpoints over
// HTTP on top of the Postgres store.
package api

import (
	"database/sql"
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"github.com/gorilla/mux"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/safar/storefront/internal/database"
	"github.com/safar/storefront/internal/logger"
	"github.com/safar/storefront/internal/models"
	"github.com/safar/storefront/internal/store"
)

type Handler struct {
	db     *sql.DB
	log    *zap.Logger
	notify Notifier
}

// NewHandler returns a handler that announces placed orders on log.
func NewHandler(db *sql.DB, log *zap.Logger) *Handler {
	log = logger.OrNop(log).Named("api")
	return &Handler{db: db, log: log, notify: logNotifier{log: log.Named("notify")}}
}

// SetNotifier replaces where placed orders are announced.
func (h *Handler) SetNotifier(n Notifier) {
	h.notify = n
}

// NewRouter wires every route plus request logging and JSON 404/405s.
func NewRouter(db *sql.DB, log *zap.Logger) *mux.Router {
	return NewHandler(db, log).Router()
}

func (h *Handler) Router() *mux.Router {
	r := mux.NewRouter()
	r.Use(h.logRequests)
	r.NotFoundHandler = h.logRequests(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		respondError(w, http.StatusNotFound, "Not Found")
	}))
	r.MethodNotAllowedHandler = h.logRequests(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		respondError(w, http.StatusMethodNotAllowed, "Method Not Allowed")
	}))
	h.RegisterRoutes(r)
	return r
}

func (h *Handler) RegisterRoutes(r *mux.Router) {
	r.HandleFunc("/products", h.ListProducts).Methods(http.MethodGet)

	r.HandleFunc("/cart/{user_id}", h.GetCart).Methods(http.MethodGet)
	r.HandleFunc("/cart/{user_id}/add", h.AddToCart).Methods(http.MethodPost)
	r.HandleFunc("/cart/{user_id}/clear", h.ClearCart).Methods(http.MethodDelete)

	r.HandleFunc("/orders", h.CreateOrder).Methods(http.MethodPost)
	r.HandleFunc("/orders/{user_id}", h.ListOrders).Methods(http.MethodGet)
}

type addToCartRequest struct {
	ProductID int64 `json:"product_id"`
	Quantity  int   `json:"quantity"`
}

type addToCartResponse struct {
	Message string      `json:"message"`
	Cart    models.Cart `json:"cart"`
}

type createOrderRequest struct {
	UserID      int64             `json:"user_id"`
	Items       []models.CartLine `json:"items"`
	TotalAmount decimal.Decimal   `json:"total_amount"`
}

// ListProducts handles GET /products.
func (h *Handler) ListProducts(w http.ResponseWriter, r *http.Request) {
	products, err := store.ListProducts(r.Context(), h.db)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	respondJSON(w, http.StatusOK, products)
}

// GetCart handles GET /cart/{user_id}.
func (h *Handler) GetCart(w http.ResponseWriter, r *http.Request) {
	userID, ok := userIDVar(w, r)
	if !ok {
		return
	}

	cart, err := store.GetCart(r.Context(), h.db, userID)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	respondJSON(w, http.StatusOK, cart)
}

// AddToCart handles POST /cart/{user_id}/add.
func (h *Handler) AddToCart(w http.ResponseWriter, r *http.Request) {
	userID, ok := userIDVar(w, r)
	if !ok {
		return
	}

	var req addToCartRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusUnprocessableEntity, "Invalid request body")
		return
	}

	result, err := store.AddToCart(r.Context(), h.db, userID, req.ProductID, req.Quantity)
	if err != nil {
		h.fail(w, r, err)
		return
	}

	message := "Item added"
	if result.Merged {
		message = "Item quantity updated"
	}
	respondJSON(w, http.StatusOK, addToCartResponse{Message: message, Cart: result.Cart})
}

// ClearCart handles DELETE /cart/{user_id}/clear.
func (h *Handler) ClearCart(w http.ResponseWriter, r *http.Request) {
	userID, ok := userIDVar(w, r)
	if !ok {
		return
	}

	removed, err := store.ClearCart(r.Context(), h.db, userID)
	if err != nil {
		h.fail(w, r, err)
		return
	}

	h.log.Debug("cart cleared", zap.Int64("user_id", userID), zap.Int64("lines", removed))
	respondJSON(w, http.StatusOK, map[string]string{"message": "Cart cleared"})
}

// CreateOrder handles POST /orders.
func (h *Handler) CreateOrder(w http.ResponseWriter, r *http.Request) {
	var req createOrderRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusUnprocessableEntity, "Invalid request body")
		return
	}

	order, err := store.CreateOrder(r.Context(), h.db, store.CreateOrderRequest{
		UserID:      req.UserID,
		Items:       req.Items,
		TotalAmount: req.TotalAmount,
	})
	if err != nil {
		h.fail(w, r, err)
		return
	}

	h.notify.OrderPlaced(r.Context(), *order)
	respondJSON(w, http.StatusOK, order)
}

// ListOrders handles GET /orders/{user_id}.
func (h *Handler) ListOrders(w http.ResponseWriter, r *http.Request) {
	userID, ok := userIDVar(w, r)
	if !ok {
		return
	}

	orders, err := store.ListOrders(r.Context(), h.db, userID)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	respondJSON(w, http.StatusOK, orders)
}

func userIDVar(w http.ResponseWriter, r *http.Request) (int64, bool) {
	id, err := strconv.ParseInt(mux.Vars(r)["user_id"], 10, 64)
	if err != nil {
		respondError(w, http.StatusUnprocessableEntity, "user_id must be an integer")
		return 0, false
	}
	return id, true
}

// fail maps store errors onto status codes. Anything unrecognised is
// logged and reported as a 500 without its text.
func (h *Handler) fail(w http.ResponseWriter, r *http.Request, err error) {
	switch {
	case errors.Is(err, database.ErrProductNotFound):
		respondError(w, http.StatusNotFound, err.Error())
	case errors.Is(err, database.ErrInvalidAmount):
		respondError(w, http.StatusBadRequest, err.Error())
	case errors.Is(err, database.ErrInvalidQuantity),
		errors.Is(err, database.ErrQuantityTooLarge),
		errors.Is(err, database.ErrEmptyOrder):
		respondError(w, http.StatusUnprocessableEntity, err.Error())
	default:
		h.log.Error("request failed",
			zap.String("method", r.Method),
			zap.String("path", r.URL.Path),
			zap.Error(err),
		)
		respondError(w, http.StatusInternalServerError, "Internal server error")
	}
}

func respondJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}

func respondError(w http.ResponseWriter, status int, detail string) {
	respondJSON(w, status, map[string]string{"detail": detail})
}
