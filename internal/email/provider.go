// Package email sends transactional order emails.
package email

import (
	"context"
	"fmt"
	"net/http"
)

type Provider interface {
	SendEmail(ctx context.Context, email *Email) error
}

type Email struct {
	To      string
	Subject string
	Text    string
	HTML    string
	// Tag groups messages in the provider dashboard, e.g. "order_shipped".
	Tag string
}

func (e *Email) tag() string {
	if e.Tag == "" {
		return "order"
	}
	return e.Tag
}

type Config struct {
	Provider string
	APIKey   string
	From     string
	// Domain is the sending domain; only mailgun uses it.
	Domain string
	// HTTPClient carries provider API calls; nil uses each provider default.
	HTTPClient *http.Client
}

func NewProvider(config Config) (Provider, error) {
	switch config.Provider {
	case "", "none":
		return NoopProvider{}, nil
	case "postmark":
		return NewPostmarkProvider(config.APIKey, config.From, config.HTTPClient), nil
	case "resend":
		return NewResendProvider(config.APIKey, config.From, config.HTTPClient), nil
	case "mailgun":
		if config.Domain == "" {
			return nil, fmt.Errorf("EMAIL_DOMAIN is required for mailgun")
		}
		return NewMailgunProvider(config.APIKey, config.Domain, config.From, config.HTTPClient), nil
	default:
		return nil, fmt.Errorf("EMAIL_PROVIDER must be one of 'none', 'postmark', 'resend' or 'mailgun'")
	}
}

// NoopProvider drops every email. Used when no provider is configured.
type NoopProvider struct{}

func (NoopProvider) SendEmail(context.Context, *Email) error {
	return nil
}
