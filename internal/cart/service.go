package cart

import (
	"context"

	"github.com/google/uuid"

	"github.com/shopstack-dev/shopstack-backend/internal/pricing"
	"github.com/shopstack-dev/shopstack-backend/pkg/db/models"
	"github.com/shopstack-dev/shopstack-backend/pkg/errors"
)

type cartPricer interface {
	PriceCart(ctx context.Context, items []pricing.Item) (*pricing.PricedCart, error)
}

type productFinder interface {
	FindActiveByID(ctx context.Context, id uuid.UUID) (*models.Product, error)
}

// Service manages session carts and their priced views.
type Service interface {
	View(ctx context.Context, sessionID string) (*pricing.PricedCart, error)
	AddItem(ctx context.Context, sessionID string, productID uuid.UUID, qty int) (*pricing.PricedCart, error)
	UpdateItem(ctx context.Context, sessionID string, productID uuid.UUID, qty int) (*pricing.PricedCart, error)
	RemoveItem(ctx context.Context, sessionID string, productID uuid.UUID) (*pricing.PricedCart, error)
	Clear(ctx context.Context, sessionID string) error
	AttachUser(ctx context.Context, sessionID string, userID uuid.UUID) error
}

type service struct {
	store    *Store
	pricer   cartPricer
	products productFinder
}

// NewService builds the cart service.
func NewService(store *Store, pricer cartPricer, products productFinder) Service {
	return &service{store: store, pricer: pricer, products: products}
}

func (s *service) View(ctx context.Context, sessionID string) (*pricing.PricedCart, error) {
	doc, err := s.store.Get(ctx, sessionID)
	if err != nil {
		return nil, errors.Wrap(errors.CodeDependency, err, "loading cart")
	}
	return s.price(ctx, doc)
}

func (s *service) AddItem(ctx context.Context, sessionID string, productID uuid.UUID, qty int) (*pricing.PricedCart, error) {
	if qty <= 0 {
		return nil, errors.New(errors.CodeValidation, "qty must be positive")
	}
	if _, err := s.products.FindActiveByID(ctx, productID); err != nil {
		return nil, errors.Wrap(errors.CodeNotFound, err, "product not found")
	}

	doc, err := s.store.Get(ctx, sessionID)
	if err != nil {
		return nil, errors.Wrap(errors.CodeDependency, err, "loading cart")
	}

	doc.Items = append(doc.Items, RawLine{ProductID: productID.String(), Qty: FlexQty(qty)})
	return s.saveAndPrice(ctx, sessionID, doc)
}

func (s *service) UpdateItem(ctx context.Context, sessionID string, productID uuid.UUID, qty int) (*pricing.PricedCart, error) {
	if qty < 0 {
		return nil, errors.New(errors.CodeValidation, "qty must not be negative")
	}

	doc, err := s.store.Get(ctx, sessionID)
	if err != nil {
		return nil, errors.Wrap(errors.CodeDependency, err, "loading cart")
	}

	// Collapse to normalized lines first so the update applies to the whole
	// product, not just one duplicate line.
	lines := Normalize(doc.Items)
	next := make([]RawLine, 0, len(lines))
	found := false
	for _, line := range lines {
		if line.ProductID == productID.String() {
			found = true
			if qty == 0 {
				continue
			}
			next = append(next, RawLine{ProductID: line.ProductID, Qty: FlexQty(qty)})
			continue
		}
		next = append(next, RawLine{ProductID: line.ProductID, Qty: FlexQty(line.Qty)})
	}
	if !found {
		return nil, errors.New(errors.CodeNotFound, "item not in cart")
	}

	doc.Items = next
	return s.saveAndPrice(ctx, sessionID, doc)
}

func (s *service) RemoveItem(ctx context.Context, sessionID string, productID uuid.UUID) (*pricing.PricedCart, error) {
	doc, err := s.store.Get(ctx, sessionID)
	if err != nil {
		return nil, errors.Wrap(errors.CodeDependency, err, "loading cart")
	}

	next := make([]RawLine, 0, len(doc.Items))
	for _, line := range doc.Items {
		if line.ProductID == productID.String() {
			continue
		}
		next = append(next, line)
	}

	doc.Items = next
	return s.saveAndPrice(ctx, sessionID, doc)
}

func (s *service) Clear(ctx context.Context, sessionID string) error {
	if err := s.store.Clear(ctx, sessionID); err != nil {
		return errors.Wrap(errors.CodeDependency, err, "clearing cart")
	}
	return nil
}

func (s *service) AttachUser(ctx context.Context, sessionID string, userID uuid.UUID) error {
	if err := s.store.SetUser(ctx, sessionID, userID.String()); err != nil {
		return errors.Wrap(errors.CodeDependency, err, "attaching user to cart")
	}
	return nil
}

func (s *service) saveAndPrice(ctx context.Context, sessionID string, doc *Document) (*pricing.PricedCart, error) {
	if err := s.store.Save(ctx, sessionID, doc); err != nil {
		return nil, errors.Wrap(errors.CodeDependency, err, "saving cart")
	}
	return s.price(ctx, doc)
}

func (s *service) price(ctx context.Context, doc *Document) (*pricing.PricedCart, error) {
	lines := Normalize(doc.Items)
	items := make([]pricing.Item, 0, len(lines))
	for _, line := range lines {
		items = append(items, pricing.Item{ProductID: line.ProductID, Qty: line.Qty})
	}
	priced, err := s.pricer.PriceCart(ctx, items)
	if err != nil {
		return nil, errors.Wrap(errors.CodeDependency, err, "pricing cart")
	}
	return priced, nil
}
