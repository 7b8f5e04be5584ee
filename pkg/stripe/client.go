package stripe

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/stripe/stripe-go/v84"

	"github.com/shopstack-dev/shopstack-backend/pkg/config"
	"github.com/shopstack-dev/shopstack-backend/pkg/logger"
)

var (
	errAPIKeyRequired = errors.New("stripe secret key is required")
	errSecretRequired = errors.New("stripe webhook secret is required")
)

// Client wraps Stripe's API client plus the webhook signing secret.
type Client struct {
	api           *stripe.Client
	signingSecret string
}

// NewClient initializes Stripe once with the configured secrets.
func NewClient(ctx context.Context, cfg config.StripeConfig, logg *logger.Logger) (*Client, error) {
	apiKey := strings.TrimSpace(cfg.SecretKey)
	if apiKey == "" {
		return nil, errAPIKeyRequired
	}
	if err := validateAPIKey(apiKey); err != nil {
		return nil, err
	}

	signingSecret := strings.TrimSpace(cfg.WebhookSecret)
	if signingSecret == "" {
		return nil, errSecretRequired
	}

	api := stripe.NewClient(apiKey)
	stripe.Key = apiKey

	if logg != nil {
		logg.Info(ctx, fmt.Sprintf("stripe client initialized (%s)", keyMode(apiKey)))
	}

	return &Client{
		api:           api,
		signingSecret: signingSecret,
	}, nil
}

// API returns the underlying Stripe API client.
func (c *Client) API() *stripe.Client {
	if c == nil {
		return nil
	}
	return c.api
}

// SigningSecret returns the webhook signing secret.
func (c *Client) SigningSecret() string {
	if c == nil {
		return ""
	}
	return c.signingSecret
}

func validateAPIKey(key string) error {
	for _, prefix := range []string{"sk_test", "rk_test", "sk_live", "rk_live"} {
		if strings.HasPrefix(key, prefix) {
			return nil
		}
	}
	return fmt.Errorf("stripe secret key must start with sk_ or rk_")
}

func keyMode(key string) string {
	if strings.Contains(key, "_live") {
		return "live"
	}
	return "test"
}
