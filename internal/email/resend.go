package email

import (
	"context"
	"errors"
	"fmt"
	"net/http"

	resend "github.com/resend/resend-go/v3"
)

// ResendProvider sends email through the Resend API.
type ResendProvider struct {
	from   string
	client *resend.Client
}

// NewResendProvider sends with httpClient when one is given so the calls are
// traced like every other outgoing request.
func NewResendProvider(apiKey, from string, httpClient *http.Client) *ResendProvider {
	client := resend.NewClient(apiKey)
	if httpClient != nil {
		client = resend.NewCustomClient(httpClient, apiKey)
	}
	return &ResendProvider{from: from, client: client}
}

func (r *ResendProvider) SendEmail(ctx context.Context, email *Email) error {
	switch {
	case email == nil:
		return errors.New("email is required")
	case email.To == "":
		return errors.New("email recipient is required")
	case email.HTML == "" && email.Text == "":
		return errors.New("email body is empty")
	}

	sent, err := r.client.Emails.SendWithContext(ctx, &resend.SendEmailRequest{
		From:    r.from,
		To:      []string{email.To},
		Subject: email.Subject,
		Html:    email.HTML,
		Text:    email.Text,
		Tags:    []resend.Tag{{Name: "category", Value: email.tag()}},
	})
	if err != nil {
		return fmt.Errorf("failed to send %s email via resend: %w", email.tag(), err)
	}
	if sent == nil || sent.Id == "" {
		return fmt.Errorf("resend accepted %s email without an id", email.tag())
	}
	return nil
}
