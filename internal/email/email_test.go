package email

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"
)

func sampleOrderInfo() *OrderInfo {
	return &OrderInfo{
		OrderNumber:     "42",
		CustomerName:    "Ada <Lovelace>",
		CustomerEmail:   "ada@example.com",
		ShopName:        "Luma Shop",
		ShopURL:         "https://shop.example.com",
		ShippingAddress: "1 Main St\n\nLondon\nN1\nUK",
		OrderDate:       "March 1, 2026",
		Items: []OrderItem{
			{Name: "Lamp", Quantity: 2, UnitPrice: "$10.00", TotalPrice: "$20.00"},
		},
		Total: "$20.00",
	}
}

func TestRendererRender(t *testing.T) {
	t.Parallel()

	renderer, err := NewRenderer()
	if err != nil {
		t.Fatalf("new renderer: %v", err)
	}

	message, err := renderer.Render(context.Background(), TemplateOrderConfirmation, sampleOrderInfo())
	if err != nil {
		t.Fatalf("render: %v", err)
	}
	if message.To != "ada@example.com" {
		t.Fatalf("unexpected recipient %q", message.To)
	}
	if message.Tag != TemplateOrderConfirmation {
		t.Fatalf("expected tag %q, got %q", TemplateOrderConfirmation, message.Tag)
	}
	if message.Subject != "Order Confirmed - #42 - Luma Shop" {
		t.Fatalf("unexpected subject %q", message.Subject)
	}
	if !strings.Contains(message.Text, "Lamp x2 @ $10.00 = $20.00") {
		t.Fatalf("expected item line in text body, got:\n%s", message.Text)
	}
	if !strings.Contains(message.Text, "London\nN1\nUK") {
		t.Fatalf("expected address lines without blanks, got:\n%s", message.Text)
	}
	if strings.Contains(message.HTML, "<Lovelace>") {
		t.Fatalf("expected customer name to be escaped in HTML body")
	}

	if _, err := renderer.Render(context.Background(), "order_delivered", sampleOrderInfo()); err == nil {
		t.Fatalf("expected unknown template error")
	}
}

type recordingProvider struct {
	sent []*Email
}

func (p *recordingProvider) SendEmail(_ context.Context, email *Email) error {
	p.sent = append(p.sent, email)
	return nil
}

func TestRendererSend(t *testing.T) {
	t.Parallel()

	renderer, err := NewRenderer()
	if err != nil {
		t.Fatalf("new renderer: %v", err)
	}
	provider := &recordingProvider{}

	if err := renderer.Send(context.Background(), provider, TemplateOrderShipped, sampleOrderInfo()); err != nil {
		t.Fatalf("send: %v", err)
	}
	if len(provider.sent) != 1 || !strings.HasPrefix(provider.sent[0].Subject, "Your Order Has Shipped") {
		t.Fatalf("unexpected sent emails %+v", provider.sent)
	}

	missingRecipient := sampleOrderInfo()
	missingRecipient.CustomerEmail = " "
	if err := renderer.Send(context.Background(), provider, TemplateOrderShipped, missingRecipient); err == nil {
		t.Fatalf("expected error for missing recipient")
	}
}

func TestNewProvider(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name     string
		provider string
		domain   string
		wantErr  bool
	}{
		{name: "disabled by default", provider: ""},
		{name: "explicitly disabled", provider: "none"},
		{name: "postmark", provider: "postmark"},
		{name: "resend", provider: "resend"},
		{name: "mailgun", provider: "mailgun", domain: "mg.example.com"},
		{name: "mailgun without domain", provider: "mailgun", wantErr: true},
		{name: "unknown", provider: "mailchimp", wantErr: true},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			provider, err := NewProvider(Config{Provider: tt.provider, APIKey: "key", From: "shop@example.com", Domain: tt.domain})
			if tt.wantErr {
				if err == nil {
					t.Fatalf("expected error, got nil")
				}
				return
			}
			if err != nil || provider == nil {
				t.Fatalf("expected provider, got %v (%v)", provider, err)
			}
		})
	}
}

func TestPostmarkProviderSendEmail(t *testing.T) {
	t.Parallel()

	var received postmarkEmail
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/email" || r.Header.Get("X-Postmark-Server-Token") != "token" {
			w.WriteHeader(http.StatusUnauthorized)
			_, _ = w.Write([]byte(`{"ErrorCode":10,"Message":"bad token"}`))
			return
		}
		if err := json.NewDecoder(r.Body).Decode(&received); err != nil {
			t.Errorf("decode request: %v", err)
		}
		_, _ = w.Write([]byte(`{"ErrorCode":0,"Message":"OK","MessageID":"abc"}`))
	}))
	t.Cleanup(server.Close)

	provider := NewPostmarkProvider("token", "shop@example.com", server.Client())
	provider.baseURL = server.URL

	err := provider.SendEmail(context.Background(), &Email{To: "ada@example.com", Subject: "Hi", Text: "hello"})
	if err != nil {
		t.Fatalf("send: %v", err)
	}
	if received.From != "shop@example.com" || received.To != "ada@example.com" || received.TextBody != "hello" {
		t.Fatalf("unexpected payload %+v", received)
	}

	bad := NewPostmarkProvider("wrong", "shop@example.com", server.Client())
	bad.baseURL = server.URL
	err = bad.SendEmail(context.Background(), &Email{To: "ada@example.com", Subject: "Hi", Text: "hello"})
	if err == nil || !strings.Contains(err.Error(), "bad token") {
		t.Fatalf("expected postmark error, got %v", err)
	}
}

func TestMailgunProviderSendEmail(t *testing.T) {
	t.Parallel()

	var received url.Values
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		user, pass, ok := r.BasicAuth()
		if r.URL.Path != "/mg.example.com/messages" || !ok || user != "api" || pass != "key-123" {
			w.WriteHeader(http.StatusUnauthorized)
			_, _ = w.Write([]byte(`{"message":"Invalid private key"}`))
			return
		}
		if err := r.ParseForm(); err != nil {
			t.Errorf("parse form: %v", err)
		}
		received = r.PostForm
		_, _ = w.Write([]byte(`{"id":"<1@mg.example.com>","message":"Queued. Thank you."}`))
	}))
	t.Cleanup(server.Close)

	provider := NewMailgunProvider("key-123", "mg.example.com", "shop@example.com", server.Client())
	provider.baseURL = server.URL

	err := provider.SendEmail(context.Background(), &Email{To: "ada@example.com", Subject: "Hi", HTML: "<p>hello</p>", Tag: TemplateOrderShipped})
	if err != nil {
		t.Fatalf("send: %v", err)
	}
	if received.Get("from") != "shop@example.com" || received.Get("to") != "ada@example.com" || received.Get("html") != "<p>hello</p>" {
		t.Fatalf("unexpected form %v", received)
	}
	if received.Get("o:tag") != TemplateOrderShipped {
		t.Fatalf("expected tag %q, got %q", TemplateOrderShipped, received.Get("o:tag"))
	}
	if received.Has("text") {
		t.Fatalf("expected empty text body to be omitted, got %v", received)
	}

	bad := NewMailgunProvider("wrong", "mg.example.com", "shop@example.com", server.Client())
	bad.baseURL = server.URL
	err = bad.SendEmail(context.Background(), &Email{To: "ada@example.com", Subject: "Hi", Text: "hello"})
	if err == nil || !strings.Contains(err.Error(), "Invalid private key") {
		t.Fatalf("expected mailgun error, got %v", err)
	}
}
