package controllers

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/google/uuid"

	"github.com/shopstack-dev/shopstack-backend/api/middleware"
	checkoutsvc "github.com/shopstack-dev/shopstack-backend/internal/checkout"
	"github.com/shopstack-dev/shopstack-backend/internal/pricing"
	"github.com/shopstack-dev/shopstack-backend/internal/promo"
	"github.com/shopstack-dev/shopstack-backend/pkg/db/models"
	"github.com/shopstack-dev/shopstack-backend/pkg/enums"
	pkgerrors "github.com/shopstack-dev/shopstack-backend/pkg/errors"
)

type stubCheckoutService struct {
	summary      *checkoutsvc.Summary
	summaryInput checkoutsvc.SummaryInput
	result       *checkoutsvc.CompleteResult
	err          error
}

func (s *stubCheckoutService) Summary(ctx context.Context, sessionID string, input checkoutsvc.SummaryInput) (*checkoutsvc.Summary, error) {
	s.summaryInput = input
	return s.summary, s.err
}

func (s *stubCheckoutService) Complete(ctx context.Context, sessionID string, userID uuid.UUID, input checkoutsvc.CompleteInput) (*checkoutsvc.CompleteResult, error) {
	return s.result, s.err
}

type stubAttacher struct {
	called bool
	err    error
}

func (s *stubAttacher) AttachUser(ctx context.Context, sessionID string, userID uuid.UUID) error {
	s.called = true
	return s.err
}

type stubAddressLister struct {
	addresses []models.Address
	err       error
}

func (s *stubAddressLister) List(ctx context.Context, userID uuid.UUID) ([]models.Address, error) {
	return s.addresses, s.err
}

type stubShippingLister struct {
	methods []models.ShippingMethod
	err     error
}

func (s *stubShippingLister) ListActive(ctx context.Context) ([]models.ShippingMethod, error) {
	return s.methods, s.err
}

func authedRequest(method, target, body string) *http.Request {
	var req *http.Request
	if body == "" {
		req = httptest.NewRequest(method, target, nil)
	} else {
		req = httptest.NewRequest(method, target, strings.NewReader(body))
	}
	ctx := middleware.WithUserID(req.Context(), uuid.NewString())
	ctx = middleware.WithSessionID(ctx, "sess-9")
	return req.WithContext(ctx)
}

func TestCheckoutSummarySuccess(t *testing.T) {
	standard := models.ShippingMethod{ID: uuid.New(), Name: "Standard", RateCents: 500, IsActive: true}
	express := models.ShippingMethod{ID: uuid.New(), Name: "Express", RateCents: 1500, IsActive: true}

	svc := &stubCheckoutService{summary: &checkoutsvc.Summary{
		Items:         []pricing.PricedItem{{ProductID: uuid.NewString(), Title: "Mug", Qty: 2, UnitPriceCents: 1200, LineTotalCents: 2400}},
		SubtotalCents: 2400,
		TaxCents:      192,
		ShippingCents: 500,
		TotalCents:    3092,
		Currency:      "usd",
	}}
	attacher := &stubAttacher{}
	addresses := &stubAddressLister{addresses: []models.Address{{ID: uuid.New(), Name: "Home", IsDefault: true}}}
	shipping := &stubShippingLister{methods: []models.ShippingMethod{standard, express}}

	handler := CheckoutSummary(svc, attacher, addresses, shipping, promo.DefaultCatalog(), nil)

	resp := httptest.NewRecorder()
	handler.ServeHTTP(resp, authedRequest(http.MethodGet, "/api/checkout/summary", ""))

	if resp.Code != http.StatusOK {
		t.Fatalf("expected 200 got %d: %s", resp.Code, resp.Body.String())
	}
	if svc.summaryInput.ShippingMethodID == nil || *svc.summaryInput.ShippingMethodID != standard.ID {
		t.Fatalf("expected provisional shipping to be the cheapest method")
	}
	if !attacher.called {
		t.Fatalf("expected cart to be re-associated with the user")
	}

	var envelope struct {
		Data summaryResponse `json:"data"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&envelope); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if envelope.Data.TotalCents != 3092 {
		t.Fatalf("unexpected total %d", envelope.Data.TotalCents)
	}
	if len(envelope.Data.Addresses) != 1 || len(envelope.Data.ShippingMethods) != 2 {
		t.Fatalf("expected pickers to be populated: %+v", envelope.Data)
	}
	if envelope.Data.SuggestedPromo == nil || envelope.Data.SuggestedPromo.Code != "SAVE10" {
		t.Fatalf("expected SAVE10 suggestion, got %+v", envelope.Data.SuggestedPromo)
	}
}

func TestCheckoutSummaryEmptyCart(t *testing.T) {
	svc := &stubCheckoutService{summary: &checkoutsvc.Summary{
		Items:         []pricing.PricedItem{},
		ShippingCents: 500,
		TotalCents:    500,
		Currency:      "usd",
	}}
	attacher := &stubAttacher{}
	handler := CheckoutSummary(svc, attacher, &stubAddressLister{}, &stubShippingLister{
		methods: []models.ShippingMethod{{ID: uuid.New(), RateCents: 500, IsActive: true}},
	}, promo.DefaultCatalog(), nil)

	resp := httptest.NewRecorder()
	handler.ServeHTTP(resp, authedRequest(http.MethodGet, "/api/checkout/summary", ""))

	if resp.Code != http.StatusOK {
		t.Fatalf("expected 200 got %d", resp.Code)
	}
	if attacher.called {
		t.Fatalf("empty cart must not trigger re-association")
	}

	var envelope struct {
		Data summaryResponse `json:"data"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&envelope); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if envelope.Data.TotalCents != 0 || envelope.Data.ShippingCents != 0 {
		t.Fatalf("empty cart should quote zeros, got %+v", envelope.Data)
	}
	if len(envelope.Data.Addresses) != 0 || len(envelope.Data.ShippingMethods) != 0 {
		t.Fatalf("empty cart should return empty pickers")
	}
}

func TestCheckoutSummaryUnauthenticated(t *testing.T) {
	handler := CheckoutSummary(&stubCheckoutService{}, &stubAttacher{}, &stubAddressLister{}, &stubShippingLister{}, promo.DefaultCatalog(), nil)

	req := httptest.NewRequest(http.MethodGet, "/api/checkout/summary", nil)
	resp := httptest.NewRecorder()
	handler.ServeHTTP(resp, req)

	if resp.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401 got %d", resp.Code)
	}
}

func TestCheckoutPromoKnownCode(t *testing.T) {
	handler := CheckoutPromo(promo.DefaultCatalog(), nil)

	resp := httptest.NewRecorder()
	handler.ServeHTTP(resp, authedRequest(http.MethodPost, "/api/checkout/promo", `{"code":"save10"}`))

	if resp.Code != http.StatusOK {
		t.Fatalf("expected 200 got %d: %s", resp.Code, resp.Body.String())
	}

	var envelope struct {
		Data promo.Code `json:"data"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&envelope); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if envelope.Data.Code != "SAVE10" || envelope.Data.Value != 10 {
		t.Fatalf("unexpected promo %+v", envelope.Data)
	}
}

func TestCheckoutPromoUnknownCode(t *testing.T) {
	handler := CheckoutPromo(promo.DefaultCatalog(), nil)

	resp := httptest.NewRecorder()
	handler.ServeHTTP(resp, authedRequest(http.MethodPost, "/api/checkout/promo", `{"code":"NOPE"}`))

	if resp.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 got %d", resp.Code)
	}
}

func TestCheckoutCompleteSuccess(t *testing.T) {
	order := &models.Order{
		ID:         uuid.New(),
		Status:     enums.OrderStatusPaid,
		Currency:   "usd",
		TotalCents: 3092,
	}
	svc := &stubCheckoutService{result: &checkoutsvc.CompleteResult{Order: order}}
	handler := CheckoutComplete(svc, nil)

	body := `{"addressId":"` + uuid.NewString() + `","shippingMethodId":"` + uuid.NewString() + `"}`
	resp := httptest.NewRecorder()
	handler.ServeHTTP(resp, authedRequest(http.MethodPost, "/api/checkout/complete", body))

	if resp.Code != http.StatusCreated {
		t.Fatalf("expected 201 got %d: %s", resp.Code, resp.Body.String())
	}

	var envelope struct {
		Data completeResponse `json:"data"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&envelope); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if envelope.Data.Order.ID != order.ID {
		t.Fatalf("unexpected order id %s", envelope.Data.Order.ID)
	}
	if envelope.Data.Order.Status != "paid" {
		t.Fatalf("unexpected status %s", envelope.Data.Order.Status)
	}
}

func TestCheckoutCompleteEmptyCart(t *testing.T) {
	svc := &stubCheckoutService{err: pkgerrors.New(pkgerrors.CodeCartEmpty, "cart is empty")}
	handler := CheckoutComplete(svc, nil)

	body := `{"addressId":"` + uuid.NewString() + `","shippingMethodId":"` + uuid.NewString() + `"}`
	resp := httptest.NewRecorder()
	handler.ServeHTTP(resp, authedRequest(http.MethodPost, "/api/checkout/complete", body))

	if resp.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 got %d", resp.Code)
	}

	var envelope struct {
		Error struct {
			Code string `json:"code"`
		} `json:"error"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&envelope); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if envelope.Error.Code != "CART_EMPTY" {
		t.Fatalf("expected CART_EMPTY, got %s", envelope.Error.Code)
	}
}

func TestCheckoutCompleteMissingBody(t *testing.T) {
	handler := CheckoutComplete(&stubCheckoutService{}, nil)

	resp := httptest.NewRecorder()
	handler.ServeHTTP(resp, authedRequest(http.MethodPost, "/api/checkout/complete", `{}`))

	if resp.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 got %d", resp.Code)
	}
}
