package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strconv"
	"time"

	"github.com/getsentry/sentry-go"
	"github.com/getsentry/sentry-go/attribute"
	"github.com/shopspring/decimal"

	"github.com/lumashop/lumashop/internal/cart"
	"github.com/lumashop/lumashop/internal/db"
	"github.com/lumashop/lumashop/internal/logging"
	"github.com/lumashop/lumashop/internal/models"
	"github.com/lumashop/lumashop/internal/observability"
)

var ErrOrderNotFound = errors.New("order not found")

type FulfillmentStore interface {
	GetByID(ctx context.Context, orderID int64) (*models.Order, error)
	ListByShipped(ctx context.Context, shipped bool) ([]*models.Order, error)
	ItemsForOrder(ctx context.Context, orderID int64) ([]models.OrderItem, error)
	SetShipped(ctx context.Context, orderID int64, shipped bool, at time.Time) (*models.Order, bool, error)
}

// OrderDetail is an order with its items, each resolved to the current
// catalog name when the product still exists.
type OrderDetail struct {
	Order *models.Order `json:"order"`
	Guest bool          `json:"guest"`
	Items []DetailItem  `json:"items"`
}

type DetailItem struct {
	models.OrderItem
	ProductName string          `json:"product_name"`
	LineTotal   decimal.Decimal `json:"line_total"`
}

// FulfillmentService backs the staff order dashboards.
type FulfillmentService struct {
	orders      FulfillmentStore
	catalog     cart.Catalog
	emailSender OrderEmailSender
	now         func() time.Time
	logger      *slog.Logger
}

func NewFulfillmentService(orders FulfillmentStore, catalog cart.Catalog, emailSender OrderEmailSender, logger *slog.Logger) *FulfillmentService {
	if emailSender == nil {
		emailSender = noopOrderEmailSender{}
	}
	return &FulfillmentService{
		orders:      orders,
		catalog:     catalog,
		emailSender: emailSender,
		now:         time.Now,
		logger:      logger,
	}
}

func (s *FulfillmentService) loggerFromContext(ctx context.Context) *slog.Logger {
	return logging.FromContext(ctx, s.logger).With("component", "fulfillment")
}

// SetShipped stores the shipped flag. date_shipped is set only when the
// persisted flag moves from false to true; clearing the flag keeps it.
func (s *FulfillmentService) SetShipped(ctx context.Context, orderID int64, shipped bool) (*models.Order, error) {
	span := sentry.StartSpan(
		ctx,
		"service.fulfillment.set_shipped",
		sentry.WithOpName("service.fulfillment"),
		sentry.WithDescription("SetShipped"),
		sentry.WithSpanOrigin(sentry.SpanOriginManual),
	)
	defer span.Finish()
	ctx = span.Context()

	logger := s.loggerFromContext(ctx)
	meter := observability.MeterFromContext(ctx)

	order, transitioned, err := s.orders.SetShipped(ctx, orderID, shipped, s.now())
	if err != nil {
		if errors.Is(err, db.ErrNotFound) {
			meter.Count("fulfillment.shipment.failed", 1, sentry.WithAttributes(attribute.String("reason", "order_not_found")))
			return nil, ErrOrderNotFound
		}
		meter.Count("fulfillment.shipment.failed", 1, sentry.WithAttributes(attribute.String("reason", "update_failed")))
		return nil, fmt.Errorf("failed to update shipping status: %w", err)
	}

	action := "unchanged"
	switch {
	case transitioned:
		action = "mark_shipped"
	case !shipped:
		action = "mark_unshipped"
	}
	meter.Count("fulfillment.shipment.processed", 1, sentry.WithAttributes(attribute.String("action", action)))
	logger.Info("shipping status updated", "order_id", orderID, "shipped", shipped, "action", action)

	if transitioned {
		if err := s.emailSender.SendOrderShipped(ctx, order); err != nil {
			meter.Count("fulfillment.shipment.side_effect_failed", 1, sentry.WithAttributes(
				attribute.String("reason", "shipping_email_failed"),
			))
			logger.Error("failed to send shipping email", "error", err, "order_id", orderID)
		}
	}

	return order, nil
}

func (s *FulfillmentService) ListOrders(ctx context.Context, shipped bool) ([]*models.Order, error) {
	orders, err := s.orders.ListByShipped(ctx, shipped)
	if err != nil {
		return nil, fmt.Errorf("failed to list orders: %w", err)
	}
	return orders, nil
}

func (s *FulfillmentService) OrderDetail(ctx context.Context, orderID int64) (*OrderDetail, error) {
	order, err := s.orders.GetByID(ctx, orderID)
	if err != nil {
		if errors.Is(err, db.ErrNotFound) {
			return nil, ErrOrderNotFound
		}
		return nil, fmt.Errorf("failed to load order: %w", err)
	}

	items, err := s.orders.ItemsForOrder(ctx, orderID)
	if err != nil {
		return nil, fmt.Errorf("failed to load order items: %w", err)
	}

	names := make(map[int64]string, len(items))
	if s.catalog != nil && len(items) > 0 {
		ids := make([]int64, 0, len(items))
		for _, item := range items {
			ids = append(ids, item.ProductID)
		}
		products, err := s.catalog.FindManyByIDs(ctx, ids)
		if err != nil {
			s.loggerFromContext(ctx).Warn("failed to resolve product names", "error", err, "order_id", orderID)
		}
		for _, product := range products {
			names[product.ID] = product.Name
		}
	}

	detail := &OrderDetail{Order: order, Guest: order.IsGuest(), Items: make([]DetailItem, 0, len(items))}
	for _, item := range items {
		name, ok := names[item.ProductID]
		if !ok {
			name = "Product #" + strconv.FormatInt(item.ProductID, 10)
		}
		detail.Items = append(detail.Items, DetailItem{OrderItem: item, ProductName: name, LineTotal: item.LineTotal()})
	}
	return detail, nil
}
