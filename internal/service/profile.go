package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/rs/xid"

	"github.com/sakif/sweet-shop/internal/apperror"
	"github.com/sakif/sweet-shop/internal/model"
	"github.com/sakif/sweet-shop/internal/repository"
)

// MaxCartQuantity caps a single cart line.
const MaxCartQuantity = 99

// ProfileConfig tunes ProfileService.
type ProfileConfig struct {
	// OptimisticCartClear empties the session's cached cart before the
	// order write is confirmed, and leaves it empty if that write fails.
	// When false the cached profile only changes after a successful write.
	OptimisticCartClear bool
}

// ProfileService keeps a user's profile document (liked items, cart and
// order history) in sync with the document store.
//
// READ-MODIFY-WRITE:
// Every mutation copies the session's cached profile, changes the copy and
// saves the whole document with SaveProfile. The cache is replaced only when
// the save succeeds, so a failed write leaves the session as it was. There is
// no version check: two devices editing the same profile overwrite each other.
type ProfileService struct {
	store   repository.DocumentStore
	catalog *CatalogService
	cfg     ProfileConfig
	logger  *slog.Logger
	now     func() time.Time
}

// NewProfileService creates a ProfileService. catalog resolves item IDs
// for AddToCart.
func NewProfileService(store repository.DocumentStore, catalog *CatalogService, cfg ProfileConfig, logger *slog.Logger) *ProfileService {
	return &ProfileService{
		store:   store,
		catalog: catalog,
		cfg:     cfg,
		logger:  logger,
		now:     time.Now,
	}
}

// LoadProfile reads the session's profile document. A user who has never
// written anything gets an empty profile. The result also refreshes the
// session's cached copy.
func (s *ProfileService) LoadProfile(ctx context.Context, sess *Session) (*model.Profile, error) {
	if err := requireSession(sess); err != nil {
		return nil, err
	}

	profile, err := readProfile(ctx, s.store, sess.UserID)
	if err != nil {
		return nil, err
	}

	sess.setProfile(profile)
	return profile, nil
}

// SaveProfile overwrites the remote profile with profile: an update of every
// field when the document exists, otherwise a create. Repeated liked IDs are
// collapsed; a cart line without an ID or with a quantity outside
// 1..MaxCartQuantity is rejected.
func (s *ProfileService) SaveProfile(ctx context.Context, sess *Session, profile *model.Profile) error {
	if err := requireSession(sess); err != nil {
		return err
	}
	if profile == nil {
		return apperror.ValidationFailed("profile", "profile is required")
	}

	p := profile.Clone()
	if err := validCart(p.Cart); err != nil {
		return err
	}

	err := s.write(ctx, sess.UserID, p)
	profileWritesTotal.WithLabelValues(outcome(err)).Inc()
	if err != nil {
		s.logger.Error("profile write failed",
			slog.String("userID", sess.UserID),
			slog.String("error", err.Error()),
		)
		return apperror.Write("could not save your changes", err)
	}

	sess.setProfile(p)
	return nil
}

// PlaceOrder appends an order built from cart to the order history and
// empties the cart, in a single SaveProfile.
func (s *ProfileService) PlaceOrder(ctx context.Context, sess *Session, cart []model.Item) (*model.Order, error) {
	if err := requireSession(sess); err != nil {
		return nil, err
	}
	if len(cart) == 0 {
		return nil, apperror.ValidationFailed("cart", "the cart is empty")
	}

	profile, err := s.current(ctx, sess)
	if err != nil {
		return nil, err
	}

	order := model.Order{
		ID:       xid.New().String(),
		Items:    make([]model.Item, len(cart)),
		PlacedAt: s.now().UTC(),
	}
	for i, it := range cart {
		it.IsFavorite = false
		if it.Quantity < 1 {
			it.Quantity = 1
		}
		order.Items[i] = it
	}

	profile.Orders = append(profile.Orders, order)
	profile.Cart = []model.Item{}

	if s.cfg.OptimisticCartClear {
		sess.updateProfile(func(p *model.Profile) { p.Cart = []model.Item{} })
	}

	if err := s.SaveProfile(ctx, sess, profile); err != nil {
		return nil, err
	}

	ordersPlacedTotal.Inc()
	s.logger.Info("order placed",
		slog.String("userID", sess.UserID),
		slog.String("orderID", order.ID),
		slog.Int("lines", len(order.Items)),
		slog.Int("total", order.Total()),
	)
	return &order, nil
}

// PlaceOrderFromCart places an order for whatever is in the session's cart.
func (s *ProfileService) PlaceOrderFromCart(ctx context.Context, sess *Session) (*model.Order, error) {
	profile, err := s.current(ctx, sess)
	if err != nil {
		return nil, err
	}
	return s.PlaceOrder(ctx, sess, profile.Cart)
}

// ToggleFavorite flips itemID's membership in the liked set and reports
// whether the item is now liked. If the write fails the liked set is left
// as it was.
func (s *ProfileService) ToggleFavorite(ctx context.Context, sess *Session, itemID string) (bool, error) {
	itemID = strings.TrimSpace(itemID)
	if itemID == "" {
		return false, apperror.ValidationFailed("itemId", "item id is required")
	}

	profile, err := s.current(ctx, sess)
	if err != nil {
		return false, err
	}

	liked := profile.ToggleLiked(itemID)
	if err := s.SaveProfile(ctx, sess, profile); err != nil {
		return !liked, err
	}
	return liked, nil
}

// AddToCart puts quantity of the catalog item itemID in the cart. If the
// item is already there its quantity grows instead of adding a second line.
func (s *ProfileService) AddToCart(ctx context.Context, sess *Session, itemID string, quantity int) (*model.Profile, error) {
	if err := validQuantity(quantity); err != nil {
		return nil, err
	}
	if err := requireSession(sess); err != nil {
		return nil, err
	}

	item, err := s.catalog.GetItem(ctx, itemID)
	if err != nil {
		return nil, err
	}

	profile, err := s.current(ctx, sess)
	if err != nil {
		return nil, err
	}

	if i := profile.CartIndex(item.ID); i >= 0 {
		profile.Cart[i].Quantity = min(profile.Cart[i].Quantity+quantity, MaxCartQuantity)
	} else {
		item.Quantity = quantity
		item.IsFavorite = false
		profile.Cart = append(profile.Cart, *item)
	}

	if err := s.SaveProfile(ctx, sess, profile); err != nil {
		return nil, err
	}
	return profile, nil
}

// UpdateCartQuantity sets the quantity of an existing cart line.
func (s *ProfileService) UpdateCartQuantity(ctx context.Context, sess *Session, itemID string, quantity int) (*model.Profile, error) {
	if err := validQuantity(quantity); err != nil {
		return nil, err
	}

	profile, err := s.current(ctx, sess)
	if err != nil {
		return nil, err
	}

	i := profile.CartIndex(itemID)
	if i < 0 {
		return nil, apperror.NotFound("cart item", itemID)
	}
	profile.Cart[i].Quantity = quantity

	if err := s.SaveProfile(ctx, sess, profile); err != nil {
		return nil, err
	}
	return profile, nil
}

// RemoveFromCart deletes the cart line for itemID.
func (s *ProfileService) RemoveFromCart(ctx context.Context, sess *Session, itemID string) (*model.Profile, error) {
	profile, err := s.current(ctx, sess)
	if err != nil {
		return nil, err
	}

	i := profile.CartIndex(itemID)
	if i < 0 {
		return nil, apperror.NotFound("cart item", itemID)
	}
	profile.Cart = append(profile.Cart[:i], profile.Cart[i+1:]...)

	if err := s.SaveProfile(ctx, sess, profile); err != nil {
		return nil, err
	}
	return profile, nil
}

// ListOrders returns the order history, newest first.
func (s *ProfileService) ListOrders(ctx context.Context, sess *Session) ([]model.Order, error) {
	profile, err := s.current(ctx, sess)
	if err != nil {
		return nil, err
	}
	return profile.OrdersNewestFirst(), nil
}

// current returns a private copy of the session's profile, loading it on
// first use.
func (s *ProfileService) current(ctx context.Context, sess *Session) (*model.Profile, error) {
	if err := requireSession(sess); err != nil {
		return nil, err
	}
	if p := sess.CachedProfile(); p != nil {
		return p, nil
	}
	return s.LoadProfile(ctx, sess)
}

// write saves p as the user's profile document. The document store has no
// upsert-with-merge, so an existing document gets every field updated and a
// missing one is created.
func (s *ProfileService) write(ctx context.Context, userID string, p *model.Profile) error {
	fields := map[string]any{
		"likedItems": p.LikedItems,
		"cart":       p.Cart,
		"orders":     p.Orders,
	}

	err := s.store.Update(ctx, repository.CollectionProfiles, userID, fields)
	if !errors.Is(err, apperror.ErrNotFound) {
		return err
	}

	body, err := json.Marshal(p)
	if err != nil {
		return fmt.Errorf("service: encoding profile: %w", err)
	}
	return s.store.Set(ctx, repository.CollectionProfiles, userID, body)
}

// readProfile fetches a user's profile document, or an empty profile if
// the user has none yet.
func readProfile(ctx context.Context, store repository.DocumentStore, userID string) (*model.Profile, error) {
	doc, err := store.Get(ctx, repository.CollectionProfiles, userID)
	if errors.Is(err, apperror.ErrNotFound) {
		return model.NewProfile(), nil
	}
	if err != nil {
		return nil, apperror.Fetch("could not load your profile", err)
	}

	var p model.Profile
	if err := json.Unmarshal(doc.Body, &p); err != nil {
		return nil, apperror.Fetch("your profile could not be read", err)
	}
	p.Normalize()
	return &p, nil
}

func validCart(cart []model.Item) error {
	for _, it := range cart {
		if strings.TrimSpace(it.ID) == "" {
			return apperror.ValidationFailed("cart", "every cart line needs an item id")
		}
		if validQuantity(it.Quantity) != nil {
			return apperror.ValidationFailed("cart",
				fmt.Sprintf("quantity of %s must be between 1 and %d", it.ID, MaxCartQuantity))
		}
	}
	return nil
}

func validQuantity(quantity int) error {
	if quantity < 1 || quantity > MaxCartQuantity {
		return apperror.ValidationFailed("quantity",
			fmt.Sprintf("quantity must be between 1 and %d", MaxCartQuantity))
	}
	return nil
}
