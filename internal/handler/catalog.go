package handler

import (
	"log/slog"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/sakif/sweet-shop/internal/apperror"
	"github.com/sakif/sweet-shop/internal/middleware"
	"github.com/sakif/sweet-shop/internal/model"
	"github.com/sakif/sweet-shop/internal/service"
)

// CatalogHandler serves the item catalog.
type CatalogHandler struct {
	catalog *service.CatalogService
	logger  *slog.Logger
}

// NewCatalogHandler creates a CatalogHandler.
func NewCatalogHandler(catalog *service.CatalogService, logger *slog.Logger) *CatalogHandler {
	return &CatalogHandler{catalog: catalog, logger: logger}
}

// HandleList returns the catalog.
//
// HTTP: GET /api/items?q=cake&favorites=true
// Auth: Optional. Signed-in users get isFavorite filled in; favorites=true
// requires a session.
//
// Search and the favorites filter run over the whole snapshot in memory.
func (h *CatalogHandler) HandleList(w http.ResponseWriter, r *http.Request) {
	favoritesOnly := false
	if v := r.URL.Query().Get("favorites"); v != "" {
		b, err := strconv.ParseBool(v)
		if err != nil {
			writeError(w, apperror.ValidationFailed("favorites", "favorites must be true or false"))
			return
		}
		favoritesOnly = b
	}

	var (
		items []model.Item
		err   error
	)
	if sess, ok := middleware.SessionFromContext(r.Context()); ok {
		items, err = h.catalog.ListItemsFor(r.Context(), sess)
	} else if favoritesOnly {
		writeError(w, apperror.Authentication("sign in to see your favorites", service.ErrNoSession))
		return
	} else {
		items, err = h.catalog.ListItems(r.Context())
	}
	if err != nil {
		h.logger.Error("HandleList: catalog unavailable", slog.String("error", err.Error()))
		writeError(w, err)
		return
	}

	items = model.SearchItems(items, r.URL.Query().Get("q"))
	if favoritesOnly {
		items = model.FavoriteItems(items)
	}

	writeJSON(w, http.StatusOK, items)
}

// HandleGet returns one catalog item.
//
// HTTP: GET /api/items/{id}
func (h *CatalogHandler) HandleGet(w http.ResponseWriter, r *http.Request) {
	item, err := h.catalog.GetItem(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, err)
		return
	}

	if sess, ok := middleware.SessionFromContext(r.Context()); ok {
		if p := sess.CachedProfile(); p != nil {
			item.IsFavorite = p.IsLiked(item.ID)
		}
	}

	writeJSON(w, http.StatusOK, item)
}
