package client

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"storefront/internal/models"
	"storefront/internal/reconcile"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var _ reconcile.Remote = (*Client)(nil)

func TestCartCalls(t *testing.T) {
	cart := models.NewCart("u1")
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("Authorization") != "Bearer tok" {
			w.WriteHeader(http.StatusUnauthorized)
			json.NewEncoder(w).Encode(map[string]string{"error": "missing bearer token"})
			return
		}
		var item models.CartItem
		switch {
		case r.Method == http.MethodGet && r.URL.Path == "/api/v1/cart":
		case r.Method == http.MethodPost && r.URL.Path == "/api/v1/cart/items":
			assert.NoError(t, json.NewDecoder(r.Body).Decode(&item))
			cart.AddItem(item.ProductID, item.Quantity)
		case r.Method == http.MethodPatch && r.URL.Path == "/api/v1/cart/items":
			assert.NoError(t, json.NewDecoder(r.Body).Decode(&item))
			if err := cart.SetQuantity(item.ProductID, item.Quantity); err != nil {
				w.WriteHeader(http.StatusNotFound)
				json.NewEncoder(w).Encode(map[string]string{"error": err.Error()})
				return
			}
		default:
			w.WriteHeader(http.StatusNotFound)
			return
		}
		json.NewEncoder(w).Encode(cart)
	}))
	defer srv.Close()

	ctx := context.Background()
	anon := New(srv.URL + "/")
	_, err := anon.GetCart(ctx)
	var apiErr *APIError
	require.ErrorAs(t, err, &apiErr)
	assert.Equal(t, http.StatusUnauthorized, apiErr.Status)
	assert.Equal(t, "missing bearer token", apiErr.Message)

	c := anon.WithToken("tok")
	got, err := c.AddItem(ctx, "A", 2)
	require.NoError(t, err)
	assert.Equal(t, 2, got.ItemCount)

	got, err = c.UpdateItem(ctx, "A", 5)
	require.NoError(t, err)
	assert.Equal(t, 5, got.Quantity("A"))

	_, err = c.UpdateItem(ctx, "B", 1)
	require.ErrorAs(t, err, &apiErr)
	assert.Equal(t, http.StatusNotFound, apiErr.Status)

	got, err = c.GetCart(ctx)
	require.NoError(t, err)
	assert.Equal(t, 5, got.ItemCount)
}

func TestLogin(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var body map[string]string
		assert.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		assert.Equal(t, "/api/v1/auth/login", r.URL.Path)
		if body["password"] != "secret1" {
			w.WriteHeader(http.StatusUnauthorized)
			json.NewEncoder(w).Encode(map[string]string{"error": "unauthorized: invalid credentials"})
			return
		}
		json.NewEncoder(w).Encode(map[string]any{"token": "tok", "admin": false})
	}))
	defer srv.Close()

	c := New(srv.URL)
	token, err := c.Login(context.Background(), "ada@example.com", "secret1")
	require.NoError(t, err)
	assert.Equal(t, "tok", token)

	_, err = c.Login(context.Background(), "ada@example.com", "nope")
	assert.Error(t, err)
}
