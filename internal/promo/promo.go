package promo

import (
	"strings"

	"github.com/shopstack-dev/shopstack-backend/internal/pricing"
	"github.com/shopstack-dev/shopstack-backend/pkg/enums"
	"github.com/shopstack-dev/shopstack-backend/pkg/errors"
)

// Code is a resolvable promotion.
type Code struct {
	Code        string          `json:"code"`
	Kind        enums.PromoKind `json:"kind"`
	Value       int             `json:"value"`
	Description string          `json:"description,omitempty"`
}

// Catalog resolves promo codes to their definitions. Default returns the
// promotion suggested on the checkout summary, or nil when the catalog has
// none.
type Catalog interface {
	Resolve(code string) (*Code, error)
	Default() *Code
}

type staticCatalog struct {
	codes       map[string]Code
	defaultCode string
}

// DefaultCatalog returns the built-in promotions.
func DefaultCatalog() Catalog {
	return NewStaticCatalog(
		Code{Code: "SAVE10", Kind: enums.PromoKindPercentage, Value: 10, Description: "Save 10% on your order."},
		Code{Code: "FREESHIP", Kind: enums.PromoKindFixed, Value: 500, Description: "Take $5 off shipping fees."},
	)
}

// NewStaticCatalog builds an in-memory catalog from the provided codes. The
// first code becomes the suggested default.
func NewStaticCatalog(codes ...Code) Catalog {
	m := make(map[string]Code, len(codes))
	defaultCode := ""
	for i, c := range codes {
		if i == 0 {
			defaultCode = normalize(c.Code)
		}
		m[normalize(c.Code)] = c
	}
	return &staticCatalog{codes: m, defaultCode: defaultCode}
}

func (c *staticCatalog) Default() *Code {
	if c.defaultCode == "" {
		return nil
	}
	found, ok := c.codes[c.defaultCode]
	if !ok {
		return nil
	}
	return &found
}

func (c *staticCatalog) Resolve(code string) (*Code, error) {
	normalized := normalize(code)
	if normalized == "" {
		return nil, errors.New(errors.CodeInvalidPromo, "promo code is empty")
	}
	found, ok := c.codes[normalized]
	if !ok {
		return nil, errors.New(errors.CodeInvalidPromo, "unknown promo code "+normalized)
	}
	return &found, nil
}

// Discount computes the discount in cents for a resolved promo. Percentage
// promos apply to the item subtotal only; fixed promos are capped at the
// subtotal plus shipping so the discount can never exceed what it offsets.
func Discount(code *Code, subtotalCents, shippingCents int) int {
	if code == nil {
		return 0
	}
	switch code.Kind {
	case enums.PromoKindPercentage:
		return pricing.Percentage(subtotalCents, code.Value)
	case enums.PromoKindFixed:
		limit := subtotalCents + shippingCents
		if code.Value > limit {
			return limit
		}
		return code.Value
	default:
		return 0
	}
}

func normalize(code string) string {
	return strings.ToUpper(strings.TrimSpace(code))
}
