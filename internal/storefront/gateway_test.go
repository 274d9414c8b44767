package storefront

import (
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strconv"
	"sync"
	"sync/atomic"
	"testing"

	"github.com/gorilla/mux"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"

	"github.com/safar/storefront/internal/client"
	"github.com/safar/storefront/internal/config"
	"github.com/safar/storefront/internal/models"
)

// fakeGateway is an in-memory stand-in for the storefront gateway. failOn
// forces a route to answer with an error status.
type fakeGateway struct {
	t      *testing.T
	server *httptest.Server
	calls  atomic.Int64

	mu       sync.Mutex
	products []models.Product
	carts    map[int64]models.Cart
	orders   map[int64][]models.Order
	reviews  map[int64][]models.Review
	users    map[string]string
	nextID   int
	failures map[string]int

	addGate    chan struct{}
	addArrived chan struct{}
}

const (
	routeProducts = "products"
	routeCartGet  = "cart.get"
	routeCartAdd  = "cart.add"
	routeClear    = "cart.clear"
	routeCheckout = "orders.create"
	routeOrders   = "orders.list"
	routeReviews  = "reviews.list"
	routeSubmit   = "reviews.submit"
	routeLogin    = "auth.login"
)

func newFakeGateway(t *testing.T) *fakeGateway {
	t.Helper()
	g := &fakeGateway{
		t:        t,
		carts:    map[int64]models.Cart{},
		orders:   map[int64][]models.Order{},
		reviews:  map[int64][]models.Review{},
		users:    map[string]string{},
		failures: map[string]int{},
	}

	r := mux.NewRouter()
	r.Use(func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, req *http.Request) {
			g.calls.Add(1)
			next.ServeHTTP(w, req)
		})
	})
	r.HandleFunc("/products", g.listProducts).Methods(http.MethodGet)
	r.HandleFunc("/cart/{user_id}", g.getCart).Methods(http.MethodGet)
	r.HandleFunc("/cart/{user_id}/add", g.addToCart).Methods(http.MethodPost)
	r.HandleFunc("/cart/{user_id}/clear", g.clearCart).Methods(http.MethodDelete)
	r.HandleFunc("/orders", g.createOrder).Methods(http.MethodPost)
	r.HandleFunc("/orders/{user_id}", g.listOrders).Methods(http.MethodGet)
	r.HandleFunc("/reviews/{product_id}", g.listReviews).Methods(http.MethodGet)
	r.HandleFunc("/reviews", g.submitReview).Methods(http.MethodPost)
	r.HandleFunc("/auth/register", g.register).Methods(http.MethodPost)
	r.HandleFunc("/auth/login", g.login).Methods(http.MethodPost)

	g.server = httptest.NewServer(r)
	t.Cleanup(g.server.Close)
	return g
}

func (g *fakeGateway) client() *client.Client {
	g.t.Helper()
	c, err := client.New(config.ClientConfig{BaseURL: g.server.URL}, nil)
	require.NoError(g.t, err)
	return c
}

func (g *fakeGateway) session() *Session {
	return NewSession(g.client(), nil)
}

func (g *fakeGateway) callCount() int64 {
	return g.calls.Load()
}

func (g *fakeGateway) setProducts(products ...models.Product) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.products = products
}

func (g *fakeGateway) setCart(userID int64, cart models.Cart) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.carts[userID] = cart.Clone()
}

func (g *fakeGateway) serverCart(userID int64) models.Cart {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.carts[userID].Clone()
}

// failOn makes route answer status until cleared with status 0.
func (g *fakeGateway) failOn(route string, status int) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.failures[route] = status
}

// holdAdds parks every add request until release is called. arrived
// receives once the first parked request is in the handler.
func (g *fakeGateway) holdAdds() (arrived <-chan struct{}, release func()) {
	gate := make(chan struct{})
	seen := make(chan struct{}, 1)
	g.mu.Lock()
	g.addGate, g.addArrived = gate, seen
	g.mu.Unlock()

	return seen, func() {
		g.mu.Lock()
		g.addGate, g.addArrived = nil, nil
		g.mu.Unlock()
		close(gate)
	}
}

func (g *fakeGateway) orderCount(userID int64) int {
	g.mu.Lock()
	defer g.mu.Unlock()
	return len(g.orders[userID])
}

func (g *fakeGateway) fail(w http.ResponseWriter, route string) bool {
	g.mu.Lock()
	status := g.failures[route]
	g.mu.Unlock()
	if status == 0 {
		return false
	}
	writeJSON(w, status, map[string]string{"detail": fmt.Sprintf("forced failure %d", status)})
	return true
}

func (g *fakeGateway) listProducts(w http.ResponseWriter, r *http.Request) {
	if g.fail(w, routeProducts) {
		return
	}
	g.mu.Lock()
	defer g.mu.Unlock()
	writeJSON(w, http.StatusOK, g.products)
}

func (g *fakeGateway) getCart(w http.ResponseWriter, r *http.Request) {
	if g.fail(w, routeCartGet) {
		return
	}
	userID := pathID(r, "user_id")
	g.mu.Lock()
	defer g.mu.Unlock()
	writeJSON(w, http.StatusOK, g.carts[userID].Clone())
}

func (g *fakeGateway) addToCart(w http.ResponseWriter, r *http.Request) {
	if g.fail(w, routeCartAdd) {
		return
	}
	userID := pathID(r, "user_id")
	var item models.CartLine
	if err := json.NewDecoder(r.Body).Decode(&item); err != nil {
		writeJSON(w, http.StatusUnprocessableEntity, map[string]string{"detail": "invalid body"})
		return
	}

	g.mu.Lock()
	gate, arrived := g.addGate, g.addArrived
	g.mu.Unlock()
	if gate != nil {
		select {
		case arrived <- struct{}{}:
		default:
		}
		<-gate
	}

	g.mu.Lock()
	defer g.mu.Unlock()
	cart := g.carts[userID].Clone()
	for i := range cart {
		if cart[i].ProductID == item.ProductID {
			cart[i].Quantity += item.Quantity
			g.carts[userID] = cart
			writeJSON(w, http.StatusOK, map[string]any{"message": "Item quantity updated", "cart": cart})
			return
		}
	}
	cart = append(cart, item)
	g.carts[userID] = cart
	writeJSON(w, http.StatusOK, map[string]any{"message": "Item added", "cart": cart})
}

func (g *fakeGateway) clearCart(w http.ResponseWriter, r *http.Request) {
	if g.fail(w, routeClear) {
		return
	}
	userID := pathID(r, "user_id")
	g.mu.Lock()
	defer g.mu.Unlock()
	if _, ok := g.carts[userID]; ok {
		g.carts[userID] = models.Cart{}
	}
	writeJSON(w, http.StatusOK, map[string]string{"message": "Cart cleared"})
}

func (g *fakeGateway) createOrder(w http.ResponseWriter, r *http.Request) {
	if g.fail(w, routeCheckout) {
		return
	}
	var req struct {
		UserID      int64             `json:"user_id"`
		Items       []models.CartLine `json:"items"`
		TotalAmount decimal.Decimal   `json:"total_amount"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusUnprocessableEntity, map[string]string{"detail": "invalid body"})
		return
	}

	g.mu.Lock()
	defer g.mu.Unlock()
	g.nextID++
	orderID := "abc"
	if g.nextID > 1 {
		orderID = fmt.Sprintf("abc-%d", g.nextID)
	}
	order := models.Order{
		OrderID:     orderID,
		UserID:      req.UserID,
		Status:      models.OrderStatusConfirmed,
		Items:       req.Items,
		TotalAmount: req.TotalAmount,
	}
	g.orders[req.UserID] = append(g.orders[req.UserID], order)
	writeJSON(w, http.StatusOK, order)
}

func (g *fakeGateway) listOrders(w http.ResponseWriter, r *http.Request) {
	if g.fail(w, routeOrders) {
		return
	}
	userID := pathID(r, "user_id")
	g.mu.Lock()
	defer g.mu.Unlock()
	orders := g.orders[userID]
	if orders == nil {
		orders = []models.Order{}
	}
	writeJSON(w, http.StatusOK, orders)
}

func (g *fakeGateway) listReviews(w http.ResponseWriter, r *http.Request) {
	if g.fail(w, routeReviews) {
		return
	}
	productID := pathID(r, "product_id")
	g.mu.Lock()
	defer g.mu.Unlock()
	reviews := g.reviews[productID]
	if reviews == nil {
		reviews = []models.Review{}
	}
	writeJSON(w, http.StatusOK, reviews)
}

func (g *fakeGateway) submitReview(w http.ResponseWriter, r *http.Request) {
	if g.fail(w, routeSubmit) {
		return
	}
	var review models.Review
	if err := json.NewDecoder(r.Body).Decode(&review); err != nil {
		writeJSON(w, http.StatusUnprocessableEntity, map[string]string{"detail": "invalid body"})
		return
	}

	g.mu.Lock()
	defer g.mu.Unlock()
	review.ID = int64(len(g.reviews[review.ProductID]) + 1)
	review.Username = "anonymous"
	review.Rating = 5
	g.reviews[review.ProductID] = append(g.reviews[review.ProductID], review)
	writeJSON(w, http.StatusOK, review)
}

func (g *fakeGateway) register(w http.ResponseWriter, r *http.Request) {
	var creds credentials
	if err := json.NewDecoder(r.Body).Decode(&creds); err != nil {
		writeJSON(w, http.StatusUnprocessableEntity, map[string]string{"detail": "invalid body"})
		return
	}

	g.mu.Lock()
	defer g.mu.Unlock()
	if _, exists := g.users[creds.Username]; exists {
		writeJSON(w, http.StatusBadRequest, map[string]string{"detail": "Username already registered"})
		return
	}
	g.users[creds.Username] = creds.Password
	writeJSON(w, http.StatusOK, map[string]string{"message": "User registered successfully"})
}

func (g *fakeGateway) login(w http.ResponseWriter, r *http.Request) {
	if g.fail(w, routeLogin) {
		return
	}
	var creds credentials
	if err := json.NewDecoder(r.Body).Decode(&creds); err != nil {
		writeJSON(w, http.StatusUnprocessableEntity, map[string]string{"detail": "invalid body"})
		return
	}

	g.mu.Lock()
	defer g.mu.Unlock()
	if pw, ok := g.users[creds.Username]; !ok || pw != creds.Password {
		writeJSON(w, http.StatusUnauthorized, map[string]string{"detail": "Invalid credentials"})
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"user_id": 42, "username": creds.Username, "token": "opaque"})
}

func pathID(r *http.Request, name string) int64 {
	id, _ := strconv.ParseInt(mux.Vars(r)[name], 10, 64)
	return id
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

func product(id int64, name, price string) models.Product {
	return models.Product{ID: id, Name: name, Price: decimal.RequireFromString(price)}
}
