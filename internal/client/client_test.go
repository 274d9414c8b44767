package client

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/safar/storefront/internal/config"
)

func newTestClient(t *testing.T, h http.HandlerFunc) *Client {
	t.Helper()
	server := httptest.NewServer(h)
	t.Cleanup(server.Close)

	c, err := New(config.ClientConfig{BaseURL: server.URL}, nil)
	require.NoError(t, err)
	return c
}

func TestNewValidatesBaseURL(t *testing.T) {
	_, err := New(config.ClientConfig{}, nil)
	assert.Error(t, err)

	_, err = New(config.ClientConfig{BaseURL: "localhost"}, nil)
	assert.Error(t, err)

	c, err := New(config.ClientConfig{BaseURL: "http://localhost:8000", Timeout: time.Second}, nil)
	require.NoError(t, err)
	assert.Equal(t, "http://localhost:8000", c.BaseURL())
}

func TestGetDecodesBody(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodGet, r.Method)
		assert.Equal(t, "/cart/7", r.URL.Path)
		assert.Equal(t, "application/json", r.Header.Get("Accept"))
		w.Write([]byte(`[{"product_id": 1, "quantity": 2}]`))
	})

	var out []map[string]int
	require.NoError(t, c.Get(context.Background(), "/cart/7", &out))
	assert.Equal(t, []map[string]int{{"product_id": 1, "quantity": 2}}, out)
}

func TestPostSendsJSON(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "application/json", r.Header.Get("Content-Type"))

		var body map[string]any
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		assert.Equal(t, float64(3), body["quantity"])

		w.Write([]byte(`{"ok": true}`))
	})

	var out struct {
		OK bool `json:"ok"`
	}
	require.NoError(t, c.Post(context.Background(), "/cart/1/add", map[string]int{"quantity": 3}, &out))
	assert.True(t, out.OK)
}

func TestDeleteWithoutBody(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodDelete, r.Method)
		w.WriteHeader(http.StatusNoContent)
	})

	assert.NoError(t, c.Delete(context.Background(), "/cart/1/clear", nil))
}

func TestNon2xxBecomesAPIError(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnprocessableEntity)
		w.Write([]byte(`{"detail": "quantity must be positive"}`))
	})

	err := c.Get(context.Background(), "/anything", nil)
	require.Error(t, err)

	apiErr, ok := AsAPIError(err)
	require.True(t, ok)
	assert.Equal(t, http.StatusUnprocessableEntity, apiErr.StatusCode)
	assert.Equal(t, "quantity must be positive", apiErr.Detail)
	assert.Contains(t, err.Error(), "422")
}

func TestMalformedBodyIsError(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`not json`))
	})

	var out []int
	err := c.Get(context.Background(), "/products", &out)
	require.Error(t, err)
	_, isAPI := AsAPIError(err)
	assert.False(t, isAPI)
}

func TestUnreachableServer(t *testing.T) {
	server := httptest.NewServer(http.NotFoundHandler())
	url := server.URL
	server.Close()

	c, err := New(config.ClientConfig{BaseURL: url}, nil)
	require.NoError(t, err)

	err = c.Get(context.Background(), "/products", nil)
	require.Error(t, err)
	_, isAPI := AsAPIError(err)
	assert.False(t, isAPI)
}

func TestContextCancellation(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		<-r.Context().Done()
	})

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()

	err := c.Get(ctx, "/slow", nil)
	assert.ErrorIs(t, err, context.DeadlineExceeded)
}
