package pricing

import (
	"context"
	"strings"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/shopstack-dev/shopstack-backend/pkg/db/models"
)

// TaxRate is the flat tax applied to the item subtotal.
var TaxRate = decimal.NewFromFloat(0.08)

const (
	defaultCurrency = "usd"
	missingTitle    = "Product"
)

// Item is a normalized cart line ready for pricing.
type Item struct {
	ProductID string
	Qty       int
}

// PricedItem is a cart line joined against the catalog. When the product no
// longer exists the line degrades to a zero-priced placeholder instead of
// failing the whole cart.
type PricedItem struct {
	ProductID      string  `json:"productId"`
	Title          string  `json:"title"`
	UnitPriceCents int     `json:"unitPriceCents"`
	Currency       string  `json:"currency"`
	ImageURL       *string `json:"imageUrl"`
	Qty            int     `json:"qty"`
	LineTotalCents int     `json:"lineTotalCents"`
}

// PricedCart carries the joined lines and their subtotal.
type PricedCart struct {
	Items         []PricedItem `json:"items"`
	SubtotalCents int          `json:"subtotalCents"`
	Currency      string       `json:"currency"`
}

type productLoader interface {
	FindByIDs(ctx context.Context, ids []uuid.UUID) ([]models.Product, error)
}

// Service prices normalized cart lines against the catalog.
type Service interface {
	PriceCart(ctx context.Context, items []Item) (*PricedCart, error)
}

type service struct {
	products productLoader
}

// NewService builds the pricing service.
func NewService(products productLoader) Service {
	return &service{products: products}
}

func (s *service) PriceCart(ctx context.Context, items []Item) (*PricedCart, error) {
	ids := make([]uuid.UUID, 0, len(items))
	for _, item := range items {
		if id, err := uuid.Parse(item.ProductID); err == nil {
			ids = append(ids, id)
		}
	}

	catalog := map[string]models.Product{}
	if len(ids) > 0 {
		products, err := s.products.FindByIDs(ctx, ids)
		if err != nil {
			return nil, err
		}
		for _, p := range products {
			catalog[p.ID.String()] = p
		}
	}

	cart := &PricedCart{
		Items:    make([]PricedItem, 0, len(items)),
		Currency: defaultCurrency,
	}

	// The first line with an explicit currency decides the cart's.
	currencySet := false

	for _, item := range items {
		priced := PricedItem{
			ProductID: item.ProductID,
			Title:     missingTitle,
			Currency:  defaultCurrency,
			Qty:       item.Qty,
		}
		if product, ok := catalog[item.ProductID]; ok {
			priced.Title = product.Title
			priced.UnitPriceCents = product.PriceCents
			priced.ImageURL = product.ImageURL
			if c := strings.TrimSpace(product.Currency); c != "" {
				priced.Currency = strings.ToLower(c)
				if !currencySet {
					cart.Currency = priced.Currency
					currencySet = true
				}
			}
		}
		priced.LineTotalCents = priced.UnitPriceCents * priced.Qty
		cart.SubtotalCents += priced.LineTotalCents
		cart.Items = append(cart.Items, priced)
	}

	return cart, nil
}

// Tax computes the flat sales tax on a subtotal, rounding half away from zero.
func Tax(subtotalCents int) int {
	tax := decimal.NewFromInt(int64(subtotalCents)).Mul(TaxRate)
	return int(tax.Round(0).IntPart())
}

// Percentage computes value% of the amount, rounding half away from zero.
func Percentage(amountCents int, value int) int {
	pct := decimal.NewFromInt(int64(amountCents)).
		Mul(decimal.NewFromInt(int64(value))).
		Div(decimal.NewFromInt(100))
	return int(pct.Round(0).IntPart())
}
