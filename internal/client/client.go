// Package client is a Go client for the sweet-shop HTTP API. shopctl is
// built on it.
//
// The session token lives only in the Client value. Nothing is written to
// disk, so every process signs in afresh.
package client

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"sync"
	"time"

	"github.com/go-resty/resty/v2"
	"golang.org/x/oauth2"

	"github.com/sakif/sweet-shop/internal/handler"
	"github.com/sakif/sweet-shop/internal/model"
)

// DefaultTimeout bounds a single API call.
const DefaultTimeout = 30 * time.Second

// APIError is a non-2xx answer from the server.
type APIError struct {
	Status  int
	Code    string
	Message string
}

func (e *APIError) Error() string {
	if e.Message == "" {
		return fmt.Sprintf("api: HTTP %d", e.Status)
	}
	return fmt.Sprintf("api: %s (HTTP %d)", e.Message, e.Status)
}

// Client talks to one sweet-shop server.
type Client struct {
	baseURL string
	timeout time.Duration

	mu      sync.RWMutex
	rc      *resty.Client
	session *handler.AuthResponse
}

// New creates an anonymous client for baseURL (e.g. "http://localhost:8080").
func New(baseURL string, timeout time.Duration) *Client {
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	c := &Client{baseURL: baseURL, timeout: timeout}
	c.rc = c.newResty(&http.Client{})
	return c
}

func (c *Client) newResty(hc *http.Client) *resty.Client {
	return resty.NewWithClient(hc).
		SetBaseURL(c.baseURL).
		SetHeader("Accept", "application/json").
		SetHeader("Content-Type", "application/json").
		SetTimeout(c.timeout)
}

// authenticate switches the client to send token as a bearer credential on
// every request.
func (c *Client) authenticate(res *handler.AuthResponse) {
	src := oauth2.StaticTokenSource(&oauth2.Token{
		AccessToken: res.Token,
		TokenType:   "Bearer",
		Expiry:      res.ExpiresAt,
	})
	hc := oauth2.NewClient(context.Background(), src)

	c.mu.Lock()
	defer c.mu.Unlock()
	c.rc = c.newResty(hc)
	c.session = res
}

func (c *Client) resty() *resty.Client {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.rc
}

// User returns the signed-in user, or false when anonymous.
func (c *Client) User() (handler.UserView, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	if c.session == nil {
		return handler.UserView{}, false
	}
	return c.session.User, true
}

// do sends one request and decodes a 2xx JSON body into out (if non-nil).
func (c *Client) do(ctx context.Context, method, path string, body, out any) error {
	req := c.resty().R().
		SetContext(ctx).
		SetError(&handler.ErrorResponse{})
	if body != nil {
		req.SetBody(body)
	}
	if out != nil {
		req.SetResult(out)
	}

	resp, err := req.Execute(method, path)
	if err != nil {
		return fmt.Errorf("api: %s %s: %w", method, path, err)
	}
	if resp.IsError() {
		apiErr := &APIError{Status: resp.StatusCode()}
		if e, ok := resp.Error().(*handler.ErrorResponse); ok {
			apiErr.Code, apiErr.Message = e.Error, e.Message
		}
		return apiErr
	}
	return nil
}

// =========================================================================
// SESSION
// =========================================================================

// SignUp creates an account and signs the client in as it.
func (c *Client) SignUp(ctx context.Context, email, password string) error {
	return c.startSession(ctx, "/api/auth/signup", email, password)
}

// SignIn signs the client in.
func (c *Client) SignIn(ctx context.Context, email, password string) error {
	return c.startSession(ctx, "/api/auth/signin", email, password)
}

func (c *Client) startSession(ctx context.Context, path, email, password string) error {
	var res handler.AuthResponse
	if err := c.do(ctx, http.MethodPost, path, handler.CredentialsRequest{Email: email, Password: password}, &res); err != nil {
		return err
	}
	c.authenticate(&res)
	return nil
}

// SignOut revokes the token server-side and forgets it.
func (c *Client) SignOut(ctx context.Context) error {
	err := c.do(ctx, http.MethodPost, "/api/auth/signout", nil, nil)

	c.mu.Lock()
	c.rc = c.newResty(&http.Client{})
	c.session = nil
	c.mu.Unlock()
	return err
}

// Me returns the signed-in user and their profile.
func (c *Client) Me(ctx context.Context) (*handler.MeResponse, error) {
	var res handler.MeResponse
	if err := c.do(ctx, http.MethodGet, "/api/me", nil, &res); err != nil {
		return nil, err
	}
	return &res, nil
}

// =========================================================================
// CATALOG
// =========================================================================

// Items lists the catalog, optionally filtered by a title search and to
// favorites only.
func (c *Client) Items(ctx context.Context, search string, favoritesOnly bool) ([]model.Item, error) {
	q := url.Values{}
	if search != "" {
		q.Set("q", search)
	}
	if favoritesOnly {
		q.Set("favorites", strconv.FormatBool(true))
	}
	path := "/api/items"
	if len(q) > 0 {
		path += "?" + q.Encode()
	}

	var items []model.Item
	if err := c.do(ctx, http.MethodGet, path, nil, &items); err != nil {
		return nil, err
	}
	return items, nil
}

// Item returns one catalog item.
func (c *Client) Item(ctx context.Context, id string) (*model.Item, error) {
	var item model.Item
	if err := c.do(ctx, http.MethodGet, "/api/items/"+url.PathEscape(id), nil, &item); err != nil {
		return nil, err
	}
	return &item, nil
}

// =========================================================================
// PROFILE
// =========================================================================

// Profile returns the signed-in user's profile document.
func (c *Client) Profile(ctx context.Context) (*model.Profile, error) {
	var p model.Profile
	if err := c.do(ctx, http.MethodGet, "/api/profile", nil, &p); err != nil {
		return nil, err
	}
	return &p, nil
}

// ToggleFavorite flips an item's liked state and returns the new state.
func (c *Client) ToggleFavorite(ctx context.Context, itemID string) (bool, error) {
	var res handler.FavoriteResponse
	if err := c.do(ctx, http.MethodPost, "/api/favorites/"+url.PathEscape(itemID), nil, &res); err != nil {
		return false, err
	}
	return res.Liked, nil
}

// AddToCart adds quantity of an item and returns the cart.
func (c *Client) AddToCart(ctx context.Context, itemID string, quantity int) ([]model.Item, error) {
	var cart []model.Item
	body := handler.CartAddRequest{ItemID: itemID, Quantity: quantity}
	if err := c.do(ctx, http.MethodPost, "/api/cart", body, &cart); err != nil {
		return nil, err
	}
	return cart, nil
}

// SetCartQuantity changes a cart line's quantity and returns the cart.
func (c *Client) SetCartQuantity(ctx context.Context, itemID string, quantity int) ([]model.Item, error) {
	var cart []model.Item
	body := handler.CartUpdateRequest{Quantity: quantity}
	if err := c.do(ctx, http.MethodPatch, "/api/cart/"+url.PathEscape(itemID), body, &cart); err != nil {
		return nil, err
	}
	return cart, nil
}

// RemoveFromCart drops a cart line and returns the cart.
func (c *Client) RemoveFromCart(ctx context.Context, itemID string) ([]model.Item, error) {
	var cart []model.Item
	if err := c.do(ctx, http.MethodDelete, "/api/cart/"+url.PathEscape(itemID), nil, &cart); err != nil {
		return nil, err
	}
	return cart, nil
}

// PlaceOrder turns the cart into an order.
func (c *Client) PlaceOrder(ctx context.Context) (*model.Order, error) {
	var order model.Order
	if err := c.do(ctx, http.MethodPost, "/api/orders", nil, &order); err != nil {
		return nil, err
	}
	return &order, nil
}

// Orders returns the order history, newest first.
func (c *Client) Orders(ctx context.Context) ([]model.Order, error) {
	var orders []model.Order
	if err := c.do(ctx, http.MethodGet, "/api/orders", nil, &orders); err != nil {
		return nil, err
	}
	return orders, nil
}
