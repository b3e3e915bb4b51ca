package reconcile

import (
	"context"
	"errors"
	"fmt"

	"storefront/internal/models"
	"storefront/internal/util"

	"go.uber.org/zap"
)

var (
	// ErrInvalidQuantity is returned when an add carries a quantity below one.
	ErrInvalidQuantity = errors.New("quantity must be at least 1")
	// ErrItemNotFound is returned when an update targets a product that is not
	// in the cart.
	ErrItemNotFound = errors.New("product not found in cart")
)

// Remote is the persistent cart of an authenticated shopper.
type Remote interface {
	GetCart(ctx context.Context) (*models.Cart, error)
	AddItem(ctx context.Context, productID string, quantity int) (*models.Cart, error)
	UpdateItem(ctx context.Context, productID string, quantity int) (*models.Cart, error)
}

// Reconciler routes cart operations to the guest store or to the remote
// cart depending on whether the shopper is authenticated. A nil Remote
// stands for a guest.
type Reconciler struct {
	local  LocalStore
	logger *zap.Logger
}

// NewReconciler keeps guest carts in local.
func NewReconciler(local LocalStore) *Reconciler {
	return &Reconciler{local: local, logger: util.GetLogger()}
}

// MergeOutcome is the state after a login merge.
type MergeOutcome struct {
	Cart   *models.Cart
	Merged []models.CartItem
	Failed []models.CartItem
}

// GetCart returns the remote cart, or the local one for a guest.
func (r *Reconciler) GetCart(ctx context.Context, remote Remote) (*models.Cart, error) {
	if remote != nil {
		return remote.GetCart(ctx)
	}
	cart, err := r.local.Load(ctx)
	if err != nil {
		return nil, err
	}
	cart.Recount()
	return cart, nil
}

// AddItem adds quantity of a product. Quantities below 1 return
// ErrInvalidQuantity without touching either cart.
func (r *Reconciler) AddItem(ctx context.Context, remote Remote, productID string, quantity int) (*models.Cart, error) {
	if quantity < 1 {
		return nil, ErrInvalidQuantity
	}
	if remote != nil {
		return remote.AddItem(ctx, productID, quantity)
	}

	cart, err := r.local.Load(ctx)
	if err != nil {
		return nil, err
	}
	cart.AddItem(productID, quantity)
	if err := r.local.Save(ctx, cart); err != nil {
		return nil, err
	}
	return cart, nil
}

// UpdateItem overwrites the quantity of a product in the cart. Zero removes
// the line. A guest update of a missing product returns ErrItemNotFound.
func (r *Reconciler) UpdateItem(ctx context.Context, remote Remote, productID string, quantity int) (*models.Cart, error) {
	if remote != nil {
		return remote.UpdateItem(ctx, productID, quantity)
	}

	cart, err := r.local.Load(ctx)
	if err != nil {
		return nil, err
	}
	if err := cart.SetQuantity(productID, quantity); err != nil {
		return nil, fmt.Errorf("%w: %s", ErrItemNotFound, productID)
	}
	if err := r.local.Save(ctx, cart); err != nil {
		return nil, err
	}
	return cart, nil
}

// MergeOnLogin adds every line of localCart to the remote cart, one at a
// time. Lines that fail are logged and left out; lines already merged stay
// merged. The local store is cleared afterwards in every case and the
// returned cart is the remote cart as re-read after the merge.
func (r *Reconciler) MergeOnLogin(ctx context.Context, remote Remote, localCart *models.Cart) (*MergeOutcome, error) {
	if remote == nil {
		return nil, errors.New("merge requires an authenticated remote cart")
	}

	outcome := &MergeOutcome{}
	if localCart != nil {
		for _, item := range localCart.Items {
			if _, err := remote.AddItem(ctx, item.ProductID, item.Quantity); err != nil {
				r.logger.Warn("Failed to merge guest cart item",
					zap.String("product_id", item.ProductID),
					zap.Int("quantity", item.Quantity),
					zap.Error(err),
				)
				outcome.Failed = append(outcome.Failed, item)
				continue
			}
			outcome.Merged = append(outcome.Merged, item)
		}
	}

	if err := r.local.Clear(ctx); err != nil {
		r.logger.Warn("Failed to clear guest cart after merge", zap.Error(err))
	}

	cart, err := remote.GetCart(ctx)
	if err != nil {
		return outcome, fmt.Errorf("refresh cart after merge: %w", err)
	}
	outcome.Cart = cart
	return outcome, nil
}
