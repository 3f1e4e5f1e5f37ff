package handler

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/sakif/sweet-shop/internal/apperror"
	"github.com/sakif/sweet-shop/internal/middleware"
	"github.com/sakif/sweet-shop/internal/model"
	"github.com/sakif/sweet-shop/internal/service"
)

// ProfileHandler exposes the signed-in user's profile: favorites, cart and
// orders. Every route sits behind RequireSession.
type ProfileHandler struct {
	profiles *service.ProfileService
	logger   *slog.Logger
}

// NewProfileHandler creates a ProfileHandler.
func NewProfileHandler(profiles *service.ProfileService, logger *slog.Logger) *ProfileHandler {
	return &ProfileHandler{profiles: profiles, logger: logger}
}

// CartAddRequest is the body of POST /api/cart. Quantity defaults to 1.
type CartAddRequest struct {
	ItemID   string `json:"itemId"`
	Quantity int    `json:"quantity"`
}

// CartUpdateRequest is the body of PATCH /api/cart/{id}.
type CartUpdateRequest struct {
	Quantity int `json:"quantity"`
}

// FavoriteResponse reports an item's liked state after a toggle.
type FavoriteResponse struct {
	ItemID string `json:"itemId"`
	Liked  bool   `json:"liked"`
}

// HandleGet returns the profile document.
//
// HTTP: GET /api/profile
func (h *ProfileHandler) HandleGet(w http.ResponseWriter, r *http.Request) {
	sess, ok := sessionOrError(w, r)
	if !ok {
		return
	}

	profile, err := h.profiles.LoadProfile(r.Context(), sess)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, profile)
}

// HandlePut replaces the whole profile document.
//
// HTTP: PUT /api/profile
// REQUEST BODY: {"likedItems": [...], "cart": [...], "orders": [...]}
func (h *ProfileHandler) HandlePut(w http.ResponseWriter, r *http.Request) {
	sess, ok := sessionOrError(w, r)
	if !ok {
		return
	}

	var profile model.Profile
	if err := decodeJSON(w, r, &profile); err != nil {
		writeError(w, err)
		return
	}
	profile.Normalize()

	if err := h.profiles.SaveProfile(r.Context(), sess, &profile); err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, &profile)
}

// HandleToggleFavorite flips an item in or out of the liked set.
//
// HTTP: POST /api/favorites/{id}
func (h *ProfileHandler) HandleToggleFavorite(w http.ResponseWriter, r *http.Request) {
	sess, ok := sessionOrError(w, r)
	if !ok {
		return
	}

	itemID := chi.URLParam(r, "id")
	liked, err := h.profiles.ToggleFavorite(r.Context(), sess, itemID)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, FavoriteResponse{ItemID: itemID, Liked: liked})
}

// HandleAddToCart adds a catalog item to the cart.
//
// HTTP: POST /api/cart
// REQUEST BODY: {"itemId": "cherry", "quantity": 2}
func (h *ProfileHandler) HandleAddToCart(w http.ResponseWriter, r *http.Request) {
	sess, ok := sessionOrError(w, r)
	if !ok {
		return
	}

	var req CartAddRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, err)
		return
	}
	if req.ItemID == "" {
		writeError(w, apperror.ValidationFailed("itemId", "item id is required"))
		return
	}
	if req.Quantity == 0 {
		req.Quantity = 1
	}

	profile, err := h.profiles.AddToCart(r.Context(), sess, req.ItemID, req.Quantity)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, profile.Cart)
}

// HandleUpdateCart changes the quantity of a cart line.
//
// HTTP: PATCH /api/cart/{id}
// REQUEST BODY: {"quantity": 3}
func (h *ProfileHandler) HandleUpdateCart(w http.ResponseWriter, r *http.Request) {
	sess, ok := sessionOrError(w, r)
	if !ok {
		return
	}

	var req CartUpdateRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, err)
		return
	}

	profile, err := h.profiles.UpdateCartQuantity(r.Context(), sess, chi.URLParam(r, "id"), req.Quantity)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, profile.Cart)
}

// HandleRemoveFromCart drops a cart line.
//
// HTTP: DELETE /api/cart/{id}
func (h *ProfileHandler) HandleRemoveFromCart(w http.ResponseWriter, r *http.Request) {
	sess, ok := sessionOrError(w, r)
	if !ok {
		return
	}

	profile, err := h.profiles.RemoveFromCart(r.Context(), sess, chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, profile.Cart)
}

// HandlePlaceOrder turns the cart into an order.
//
// HTTP: POST /api/orders
func (h *ProfileHandler) HandlePlaceOrder(w http.ResponseWriter, r *http.Request) {
	sess, ok := sessionOrError(w, r)
	if !ok {
		return
	}

	order, err := h.profiles.PlaceOrderFromCart(r.Context(), sess)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, order)
}

// HandleListOrders returns the order history, newest first.
//
// HTTP: GET /api/orders
func (h *ProfileHandler) HandleListOrders(w http.ResponseWriter, r *http.Request) {
	sess, ok := sessionOrError(w, r)
	if !ok {
		return
	}

	orders, err := h.profiles.ListOrders(r.Context(), sess)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, orders)
}

// sessionOrError fetches the session RequireSession stored, writing a 401 if
// the route was mounted without it.
func sessionOrError(w http.ResponseWriter, r *http.Request) (*service.Session, bool) {
	sess, ok := middleware.SessionFromContext(r.Context())
	if !ok {
		writeError(w, apperror.Authentication("sign in first", service.ErrNoSession))
		return nil, false
	}
	return sess, true
}
