package messaging

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/rs/zerolog/log"
	"golang.org/x/time/rate"
)

// TwilioGateway delivers WhatsApp messages through the Twilio REST API.
type TwilioGateway struct {
	AccountSID  string
	AuthToken   string
	BaseURL     string
	HTTPClient  *http.Client
	RateLimiter *rate.Limiter
}

// TwilioConfig carries the carrier credentials.
type TwilioConfig struct {
	AccountSID string
	AuthToken  string
	BaseURL    string
}

// NewTwilioGateway creates a gateway against the Twilio messages endpoint.
func NewTwilioGateway(cfg TwilioConfig) *TwilioGateway {
	baseURL := cfg.BaseURL
	if baseURL == "" {
		baseURL = "https://api.twilio.com"
	}
	return &TwilioGateway{
		AccountSID:  cfg.AccountSID,
		AuthToken:   cfg.AuthToken,
		BaseURL:     strings.TrimSuffix(baseURL, "/"),
		HTTPClient:  &http.Client{Timeout: 30 * time.Second},
		RateLimiter: rate.NewLimiter(rate.Every(1*time.Second), 5), // 5 requests per second
	}
}

// Send posts one message to the carrier. A non-2xx response or transport
// error is returned to the caller; nothing is retried here.
func (g *TwilioGateway) Send(ctx context.Context, from, to, body string) error {
	if err := g.RateLimiter.Wait(ctx); err != nil {
		return fmt.Errorf("rate limiter: %w", err)
	}

	form := url.Values{}
	form.Set("From", from)
	form.Set("To", to)
	form.Set("Body", body)

	endpoint := fmt.Sprintf("%s/2010-04-01/Accounts/%s/Messages.json", g.BaseURL, g.AccountSID)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, strings.NewReader(form.Encode()))
	if err != nil {
		return fmt.Errorf("build carrier request: %w", err)
	}
	req.SetBasicAuth(g.AccountSID, g.AuthToken)
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	resp, err := g.HTTPClient.Do(req)
	if err != nil {
		return fmt.Errorf("carrier request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		snippet, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return fmt.Errorf("carrier returned status %d: %s", resp.StatusCode, string(snippet))
	}

	log.Debug().
		Str("from", from).
		Str("to", to).
		Int("body_len", len(body)).
		Msg("Message delivered to carrier")
	return nil
}
