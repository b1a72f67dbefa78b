package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strconv"

	"github.com/getsentry/sentry-go"
	"github.com/getsentry/sentry-go/attribute"

	"github.com/lumashop/lumashop/internal/cart"
	"github.com/lumashop/lumashop/internal/catalog"
	"github.com/lumashop/lumashop/internal/logging"
	"github.com/lumashop/lumashop/internal/models"
	"github.com/lumashop/lumashop/internal/observability"
)

var (
	ErrAccessDenied    = errors.New("access denied")
	ErrShippingMissing = errors.New("shipping information is missing")
)

// CheckoutState is the visitor session as seen by the checkout flow.
type CheckoutState interface {
	cart.State
	ShippingSnapshot() *models.ShippingSnapshot
	SetShippingSnapshot(snapshot models.ShippingSnapshot)
}

type OrderCreator interface {
	CreateWithItems(ctx context.Context, order *models.Order, items []models.OrderItem) error
}

type ShippingAddressReader interface {
	GetShippingAddress(ctx context.Context, userID int64) (*models.ShippingAddress, error)
}

// CheckoutView is the cart plus the shipping details shown on a checkout page.
type CheckoutView struct {
	Cart     cart.Snapshot           `json:"cart"`
	Shipping models.ShippingSnapshot `json:"shipping"`
}

type BillingView struct {
	Cart        cart.Snapshot           `json:"cart"`
	Shipping    models.ShippingSnapshot `json:"shipping"`
	BillingForm models.PaymentDetails   `json:"billing_form"`
}

type PlacementResult struct {
	Success bool  `json:"success"`
	OrderID int64 `json:"order_id"`
}

// CheckoutService drives a session from a filled cart to a placed order.
type CheckoutService struct {
	carts       *cart.Engine
	orders      OrderCreator
	addresses   ShippingAddressReader
	emailSender OrderEmailSender
	logger      *slog.Logger
}

func NewCheckoutService(carts *cart.Engine, orders OrderCreator, addresses ShippingAddressReader, emailSender OrderEmailSender, logger *slog.Logger) *CheckoutService {
	if emailSender == nil {
		emailSender = noopOrderEmailSender{}
	}
	return &CheckoutService{
		carts:       carts,
		orders:      orders,
		addresses:   addresses,
		emailSender: emailSender,
		logger:      logger,
	}
}

func (s *CheckoutService) loggerFromContext(ctx context.Context) *slog.Logger {
	return logging.FromContext(ctx, s.logger).With("component", "checkout")
}

// Checkout shows the cart with the shipping form pre-filled from the saved
// address of a signed-in visitor.
func (s *CheckoutService) Checkout(ctx context.Context, st CheckoutState) (CheckoutView, error) {
	snapshot, err := s.carts.Snapshot(ctx, st)
	if err != nil {
		return CheckoutView{}, err
	}

	view := CheckoutView{Cart: snapshot}
	if userID, ok := st.AuthenticatedUserID(); ok && s.addresses != nil {
		address, err := s.addresses.GetShippingAddress(ctx, userID)
		if err != nil {
			s.loggerFromContext(ctx).Warn("failed to load saved shipping address", "error", err, "user_id", userID)
		} else if address != nil {
			view.Shipping = address.Snapshot()
		}
	}
	return view, nil
}

// CaptureShipping echoes the submitted shipping form next to the cart.
// Nothing is stored.
func (s *CheckoutService) CaptureShipping(ctx context.Context, st CheckoutState, submission *models.ShippingSnapshot) (CheckoutView, error) {
	if submission == nil {
		return CheckoutView{}, ErrAccessDenied
	}

	snapshot, err := s.carts.Snapshot(ctx, st)
	if err != nil {
		return CheckoutView{}, err
	}
	return CheckoutView{Cart: snapshot, Shipping: *submission}, nil
}

// PresentBilling stores the submitted shipping details in the session,
// replacing earlier ones, and returns an empty billing form.
func (s *CheckoutService) PresentBilling(ctx context.Context, st CheckoutState, submission *models.ShippingSnapshot) (BillingView, error) {
	if submission == nil {
		return BillingView{}, ErrAccessDenied
	}

	snapshot, err := s.carts.Snapshot(ctx, st)
	if err != nil {
		return BillingView{}, err
	}

	st.SetShippingSnapshot(*submission)
	st.MarkModified()

	return BillingView{
		Cart:        snapshot,
		Shipping:    *submission,
		BillingForm: models.PaymentDetails{},
	}, nil
}

// PlaceOrder turns the current cart into an order. The order and its items
// are written in one transaction from a single cart snapshot, and the cart
// (session and mirror) is cleared only after that write commits. Payment
// details are accepted but neither stored nor charged.
func (s *CheckoutService) PlaceOrder(ctx context.Context, st CheckoutState, payment *models.PaymentDetails) (PlacementResult, error) {
	span := sentry.StartSpan(
		ctx,
		"service.checkout.place_order",
		sentry.WithOpName("service.checkout"),
		sentry.WithDescription("PlaceOrder"),
		sentry.WithSpanOrigin(sentry.SpanOriginManual),
	)
	defer span.Finish()
	ctx = span.Context()

	logger := s.loggerFromContext(ctx)
	meter := observability.MeterFromContext(ctx)
	meter.Count("checkout.order.received", 1)
	recordFailure := func(reason string) {
		meter.Count("checkout.order.failed", 1, sentry.WithAttributes(
			attribute.String("reason", reason),
		))
	}

	if payment == nil {
		recordFailure("not_submitted")
		return PlacementResult{}, ErrAccessDenied
	}

	shipping := st.ShippingSnapshot()
	if shipping == nil {
		recordFailure("shipping_missing")
		return PlacementResult{}, ErrShippingMissing
	}

	// Items are priced from the catalog as it is now, not from cached copies.
	snapshot, err := s.carts.Snapshot(catalog.WithFreshReads(ctx), st)
	if err != nil {
		recordFailure("cart_snapshot_failed")
		return PlacementResult{}, err
	}
	if snapshot.IsEmpty() {
		logger.Warn("placing order for an empty cart")
	}

	order := &models.Order{
		FullName:        shipping.FullName,
		Email:           shipping.Email,
		ShippingAddress: shipping.FlattenAddress(),
		AmountPaid:      snapshot.Total,
	}
	if userID, ok := st.AuthenticatedUserID(); ok {
		order.UserID = &userID
	}

	lines := snapshot.Lines()
	items := make([]models.OrderItem, 0, len(lines))
	emailLines := make([]OrderLine, 0, len(lines))
	for _, line := range lines {
		items = append(items, models.OrderItem{
			ProductID: line.Product.ID,
			Quantity:  line.Quantity,
			Price:     line.Product.Price,
		})
		emailLines = append(emailLines, OrderLine{
			Name:     line.Product.Name,
			Quantity: line.Quantity,
			Price:    line.Product.Price,
		})
	}

	if err := s.orders.CreateWithItems(ctx, order, items); err != nil {
		recordFailure("order_create_failed")
		return PlacementResult{}, fmt.Errorf("failed to create order: %w", err)
	}

	if err := s.carts.Clear(ctx, st); err != nil {
		// The order is already committed, so placement still succeeds.
		recordFailure("cart_clear_failed")
		logger.Error("failed to clear cart after order", "error", err, "order_id", order.ID)
		st.ClearCart()
		st.MarkModified()
	}

	if err := s.emailSender.SendOrderConfirmation(ctx, order, emailLines); err != nil {
		meter.Count("checkout.order.side_effect_failed", 1, sentry.WithAttributes(
			attribute.String("reason", "confirmation_email_failed"),
		))
		logger.Error("failed to send order confirmation", "error", err, "order_id", order.ID)
	}

	meter.Count("checkout.order.placed", 1, sentry.WithAttributes(
		attribute.String("guest", strconv.FormatBool(order.IsGuest())),
	))
	logger.Info("order placed",
		"order_id", order.ID,
		"items", len(items),
		"amount_paid", snapshot.Total.StringFixed(2),
		"guest", order.IsGuest(),
	)

	return PlacementResult{Success: true, OrderID: order.ID}, nil
}
