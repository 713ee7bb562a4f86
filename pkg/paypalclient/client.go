package paypalclient

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/plutov/paypal/v4"

	"github.com/mrdelgado-dev/bookbarn-backend/pkg/config"
	"github.com/mrdelgado-dev/bookbarn-backend/pkg/logger"
)

var (
	errClientIDRequired = errors.New("paypal client id is required")
	errSecretRequired   = errors.New("paypal secret is required")
)

// Client wraps the PayPal REST client plus env metadata.
type Client struct {
	api       *paypal.Client
	webhookID string
	live      bool
}

// NewClient initializes the PayPal client against the configured API base and
// fetches an initial access token so misconfiguration fails at boot.
func NewClient(ctx context.Context, cfg config.PayPalConfig, logg *logger.Logger) (*Client, error) {
	clientID := strings.TrimSpace(cfg.ClientID)
	if clientID == "" {
		return nil, errClientIDRequired
	}
	secret := strings.TrimSpace(cfg.Secret)
	if secret == "" {
		return nil, errSecretRequired
	}

	base := paypal.APIBaseSandBox
	if cfg.IsLive() {
		base = paypal.APIBaseLive
	}

	api, err := paypal.NewClient(clientID, secret, base)
	if err != nil {
		return nil, fmt.Errorf("building paypal client: %w", err)
	}
	if _, err := api.GetAccessToken(ctx); err != nil {
		return nil, fmt.Errorf("fetching paypal access token: %w", err)
	}

	if logg != nil {
		env := "sandbox"
		if cfg.IsLive() {
			env = "live"
		}
		logg.Info(ctx, fmt.Sprintf("paypal client initialized (%s)", env))
	}

	return &Client{api: api, webhookID: cfg.Webhook, live: cfg.IsLive()}, nil
}

// API returns the underlying PayPal REST client.
func (c *Client) API() *paypal.Client {
	if c == nil {
		return nil
	}
	return c.api
}

// WebhookID returns the configured webhook id used for signature verification.
func (c *Client) WebhookID() string {
	if c == nil {
		return ""
	}
	return c.webhookID
}

// IsLive reports whether the client targets the live API base.
func (c *Client) IsLive() bool {
	if c == nil {
		return false
	}
	return c.live
}
