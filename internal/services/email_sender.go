package services

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"github.com/lumashop/lumashop/internal/email"
	"github.com/lumashop/lumashop/internal/models"
)

// OrderLine is one purchased product as shown in order emails.
type OrderLine struct {
	Name     string
	Quantity int
	Price    decimal.Decimal
}

type OrderEmailSender interface {
	SendOrderConfirmation(ctx context.Context, order *models.Order, lines []OrderLine) error
	SendOrderShipped(ctx context.Context, order *models.Order) error
}

type StoreInfo struct {
	Name string
	URL  string
}

// EmailOrderSender renders order emails and sends them through the
// configured provider.
type EmailOrderSender struct {
	provider email.Provider
	renderer *email.Renderer
	store    StoreInfo
}

func NewEmailOrderSender(provider email.Provider, store StoreInfo) (*EmailOrderSender, error) {
	renderer, err := email.NewRenderer()
	if err != nil {
		return nil, fmt.Errorf("failed to create email renderer: %w", err)
	}
	return &EmailOrderSender{provider: provider, renderer: renderer, store: store}, nil
}

func (s *EmailOrderSender) SendOrderConfirmation(ctx context.Context, order *models.Order, lines []OrderLine) error {
	if order == nil {
		return fmt.Errorf("order is required")
	}
	return s.renderer.Send(ctx, s.provider, email.TemplateOrderConfirmation, buildOrderInfo(s.store, order, lines))
}

func (s *EmailOrderSender) SendOrderShipped(ctx context.Context, order *models.Order) error {
	if order == nil {
		return fmt.Errorf("order is required")
	}
	return s.renderer.Send(ctx, s.provider, email.TemplateOrderShipped, buildOrderInfo(s.store, order, nil))
}

func buildOrderInfo(store StoreInfo, order *models.Order, lines []OrderLine) *email.OrderInfo {
	info := &email.OrderInfo{
		OrderNumber:     strconv.FormatInt(order.ID, 10),
		CustomerName:    strings.TrimSpace(order.FullName),
		CustomerEmail:   strings.TrimSpace(order.Email),
		ShopName:        store.Name,
		ShopURL:         store.URL,
		ShippingAddress: order.ShippingAddress,
		OrderDate:       formatEmailDate(order.DateOrdered),
		Total:           formatMoney(order.AmountPaid),
		Items:           make([]email.OrderItem, 0, len(lines)),
	}
	if order.DateShipped != nil {
		info.ShippedDate = formatEmailDate(*order.DateShipped)
	}
	for _, line := range lines {
		info.Items = append(info.Items, email.OrderItem{
			Name:       line.Name,
			Quantity:   line.Quantity,
			UnitPrice:  formatMoney(line.Price),
			TotalPrice: formatMoney(line.Price.Mul(decimal.NewFromInt(int64(line.Quantity)))),
		})
	}
	return info
}

func formatEmailDate(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return t.Format("January 2, 2006")
}

func formatMoney(amount decimal.Decimal) string {
	return "$" + amount.StringFixed(2)
}

type noopOrderEmailSender struct{}

func (noopOrderEmailSender) SendOrderConfirmation(context.Context, *models.Order, []OrderLine) error {
	return nil
}

func (noopOrderEmailSender) SendOrderShipped(context.Context, *models.Order) error {
	return nil
}
