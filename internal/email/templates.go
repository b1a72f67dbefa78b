package email

import (
	"bytes"
	"context"
	"fmt"
	htmltemplate "html/template"
	"strings"
	texttemplate "text/template"
)

const (
	TemplateOrderConfirmation = "order_confirmation"
	TemplateOrderShipped      = "order_shipped"
)

// OrderInfo is the data rendered into order emails.
type OrderInfo struct {
	OrderNumber     string
	CustomerName    string
	CustomerEmail   string
	ShopName        string
	ShopURL         string
	ShippingAddress string
	OrderDate       string
	ShippedDate     string
	Items           []OrderItem
	Total           string
}

type OrderItem struct {
	Name       string
	Quantity   int
	UnitPrice  string
	TotalPrice string
}

// AddressLines splits the stored newline-joined address, skipping blanks.
func (o *OrderInfo) AddressLines() []string {
	lines := []string{}
	for _, line := range strings.Split(o.ShippingAddress, "\n") {
		if trimmed := strings.TrimSpace(line); trimmed != "" {
			lines = append(lines, trimmed)
		}
	}
	return lines
}

type emailTemplate struct {
	subject string
	text    string
	html    string
}

var builtinTemplates = map[string]emailTemplate{
	TemplateOrderConfirmation: {
		subject: "Order Confirmed - #{{.OrderNumber}} - {{.ShopName}}",
		text:    orderConfirmationText,
		html:    orderConfirmationHTML,
	},
	TemplateOrderShipped: {
		subject: "Your Order Has Shipped - #{{.OrderNumber}} - {{.ShopName}}",
		text:    orderShippedText,
		html:    orderShippedHTML,
	},
}

// Renderer renders the built-in order templates. It is safe for concurrent use.
type Renderer struct {
	text *texttemplate.Template
	html *htmltemplate.Template
}

func NewRenderer() (*Renderer, error) {
	text := texttemplate.New("email")
	html := htmltemplate.New("email")

	for name, tmpl := range builtinTemplates {
		if _, err := text.New(name + "_subject").Parse(tmpl.subject); err != nil {
			return nil, fmt.Errorf("failed to parse subject template %s: %w", name, err)
		}
		if _, err := text.New(name + "_text").Parse(tmpl.text); err != nil {
			return nil, fmt.Errorf("failed to parse text template %s: %w", name, err)
		}
		if _, err := html.New(name + "_html").Parse(tmpl.html); err != nil {
			return nil, fmt.Errorf("failed to parse HTML template %s: %w", name, err)
		}
	}

	return &Renderer{text: text, html: html}, nil
}

func (r *Renderer) Render(_ context.Context, name string, data *OrderInfo) (*Email, error) {
	if data == nil {
		return nil, fmt.Errorf("order info is required")
	}
	if _, ok := builtinTemplates[name]; !ok {
		return nil, fmt.Errorf("unknown email template %q", name)
	}

	var subject, text, html bytes.Buffer
	if err := r.text.ExecuteTemplate(&subject, name+"_subject", data); err != nil {
		return nil, fmt.Errorf("failed to render subject: %w", err)
	}
	if err := r.text.ExecuteTemplate(&text, name+"_text", data); err != nil {
		return nil, fmt.Errorf("failed to render text template: %w", err)
	}
	if err := r.html.ExecuteTemplate(&html, name+"_html", data); err != nil {
		return nil, fmt.Errorf("failed to render HTML template: %w", err)
	}

	return &Email{
		To:      data.CustomerEmail,
		Subject: subject.String(),
		Text:    text.String(),
		HTML:    html.String(),
		Tag:     name,
	}, nil
}

// Send renders the named template and hands it to the provider.
func (r *Renderer) Send(ctx context.Context, p Provider, name string, data *OrderInfo) error {
	if p == nil {
		return nil
	}
	if data == nil || strings.TrimSpace(data.CustomerEmail) == "" {
		return fmt.Errorf("recipient email is required")
	}

	message, err := r.Render(ctx, name, data)
	if err != nil {
		return fmt.Errorf("failed to render template: %w", err)
	}
	return p.SendEmail(ctx, message)
}

const orderConfirmationText = `Thank you for your order, {{.CustomerName}}!

Order Number: #{{.OrderNumber}}
Order Date: {{.OrderDate}}

Items:
{{range .Items}}- {{.Name}} x{{.Quantity}} @ {{.UnitPrice}} = {{.TotalPrice}}
{{end}}
Total: {{.Total}}

Shipping to:
{{range .AddressLines}}{{.}}
{{end}}
We'll send you another email when your order ships.

{{.ShopName}}
{{.ShopURL}}
`

const orderConfirmationHTML = `<!DOCTYPE html>
<html>
<head>
  <meta charset="utf-8">
  <title>Order Confirmation</title>
</head>
<body style="font-family: sans-serif; color: #333; max-width: 600px; margin: 0 auto;">
  <h1>Order Confirmed</h1>
  <p>Thank you for your order, {{.CustomerName}}.</p>
  <p><strong>Order Number:</strong> #{{.OrderNumber}}<br><strong>Order Date:</strong> {{.OrderDate}}</p>
  <table style="width: 100%; border-collapse: collapse;">
    <thead>
      <tr><th align="left">Item</th><th align="right">Qty</th><th align="right">Price</th><th align="right">Total</th></tr>
    </thead>
    <tbody>
      {{range .Items}}<tr><td>{{.Name}}</td><td align="right">{{.Quantity}}</td><td align="right">{{.UnitPrice}}</td><td align="right">{{.TotalPrice}}</td></tr>
      {{end}}
    </tbody>
  </table>
  <p style="text-align: right; font-weight: bold;">Total: {{.Total}}</p>
  <h3>Shipping to</h3>
  <p>{{range .AddressLines}}{{.}}<br>{{end}}</p>
  <p>We'll send you another email when your order ships.</p>
  <p><a href="{{.ShopURL}}">{{.ShopName}}</a></p>
</body>
</html>
`

const orderShippedText = `Good news, {{.CustomerName}}! Your order has shipped.

Order Number: #{{.OrderNumber}}
Shipped Date: {{.ShippedDate}}

Shipping to:
{{range .AddressLines}}{{.}}
{{end}}
{{.ShopName}}
{{.ShopURL}}
`

const orderShippedHTML = `<!DOCTYPE html>
<html>
<head>
  <meta charset="utf-8">
  <title>Order Shipped</title>
</head>
<body style="font-family: sans-serif; color: #333; max-width: 600px; margin: 0 auto;">
  <h1>Your Order Has Shipped</h1>
  <p>Good news, {{.CustomerName}}! Your order is on its way.</p>
  <p><strong>Order Number:</strong> #{{.OrderNumber}}<br><strong>Shipped Date:</strong> {{.ShippedDate}}</p>
  <h3>Shipping to</h3>
  <p>{{range .AddressLines}}{{.}}<br>{{end}}</p>
  <p><a href="{{.ShopURL}}">{{.ShopName}}</a></p>
</body>
</html>
`
