package client

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"storefront/internal/models"
)

const defaultTimeout = 15 * time.Second

// APIError is a non-2xx answer from the storefront API.
type APIError struct {
	Status  int
	Message string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("storefront api: %d %s", e.Status, e.Message)
}

// Client talks to the storefront HTTP API. A Client with a token is the
// remote cart of that shopper.
type Client struct {
	baseURL string
	http    *http.Client
	token   string
}

// New returns an anonymous client for the API under baseURL.
func New(baseURL string) *Client {
	return &Client{
		baseURL: strings.TrimRight(baseURL, "/") + "/api/v1",
		http:    &http.Client{Timeout: defaultTimeout},
	}
}

// WithToken returns a copy of c authenticated with an access token.
func (c *Client) WithToken(token string) *Client {
	out := *c
	out.token = token
	return &out
}

// Login exchanges credentials for an access token.
func (c *Client) Login(ctx context.Context, email, password string) (string, error) {
	var res struct {
		Token string `json:"token"`
	}
	body := map[string]string{"email": email, "password": password}
	if err := c.do(ctx, http.MethodPost, "/auth/login", body, &res); err != nil {
		return "", err
	}
	return res.Token, nil
}

// GetCart fetches the shopper's cart.
func (c *Client) GetCart(ctx context.Context) (*models.Cart, error) {
	cart := &models.Cart{}
	if err := c.do(ctx, http.MethodGet, "/cart", nil, cart); err != nil {
		return nil, err
	}
	return cart, nil
}

// AddItem adds quantity of a product to the cart.
func (c *Client) AddItem(ctx context.Context, productID string, quantity int) (*models.Cart, error) {
	cart := &models.Cart{}
	body := models.CartItem{ProductID: productID, Quantity: quantity}
	if err := c.do(ctx, http.MethodPost, "/cart/items", body, cart); err != nil {
		return nil, err
	}
	return cart, nil
}

// UpdateItem sets the quantity of a product already in the cart.
func (c *Client) UpdateItem(ctx context.Context, productID string, quantity int) (*models.Cart, error) {
	cart := &models.Cart{}
	body := models.CartItem{ProductID: productID, Quantity: quantity}
	if err := c.do(ctx, http.MethodPatch, "/cart/items", body, cart); err != nil {
		return nil, err
	}
	return cart, nil
}

// CheckoutSession is the answer to a checkout request.
type CheckoutSession struct {
	URL       string `json:"url"`
	OrderID   string `json:"orderId"`
	SessionID string `json:"sessionId"`
}

// Checkout starts a payment session for the persistent cart.
func (c *Client) Checkout(ctx context.Context, address models.ShippingAddress) (*CheckoutSession, error) {
	var res CheckoutSession
	body := map[string]any{"shippingAddress": address}
	if err := c.do(ctx, http.MethodPost, "/checkout/sessions", body, &res); err != nil {
		return nil, err
	}
	return &res, nil
}

func (c *Client) do(ctx context.Context, method, path string, body, out any) error {
	var r io.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("encode request: %w", err)
		}
		r = bytes.NewReader(raw)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, r)
	if err != nil {
		return err
	}
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode >= http.StatusBadRequest {
		var e struct {
			Error string `json:"error"`
		}
		_ = json.NewDecoder(resp.Body).Decode(&e)
		if e.Error == "" {
			e.Error = http.StatusText(resp.StatusCode)
		}
		return &APIError{Status: resp.StatusCode, Message: e.Error}
	}

	if out == nil {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decode response: %w", err)
	}
	return nil
}
