package handlers

import (
	"net/http"
	"strconv"

	"github.com/getsentry/sentry-go"
	"github.com/getsentry/sentry-go/attribute"

	"github.com/lumashop/lumashop/internal/observability"
	"github.com/lumashop/lumashop/internal/session"
)

// MetricsContext binds a meter to the request context so that cart, checkout
// and account counters carry the route and visitor. It must run inside
// SessionMiddleware.
func (h *Handlers) MetricsContext(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()
		attrs := append(requestMetricAttrs(r), visitorMetricAttrs(session.FromContext(ctx))...)

		meter := sentry.NewMeter(ctx)
		meter.SetAttributes(attrs...)
		next.ServeHTTP(w, r.WithContext(observability.WithMeter(ctx, meter)))
	})
}

func requestMetricAttrs(r *http.Request) []attribute.Builder {
	route := routeLabel(r)
	if route == "" {
		route = "unknown"
	}
	return []attribute.Builder{
		attribute.String("http.request_id", requestIDFromRequest(r)),
		attribute.String("http.method", r.Method),
		attribute.String("http.route", route),
		attribute.String("network.client.ip", clientIP(r)),
	}
}

// visitorMetricAttrs describes who is shopping: guest or signed in, how
// large the cart is and whether shipping details were captured.
func visitorMetricAttrs(sess *session.Data) []attribute.Builder {
	if sess == nil {
		return nil
	}

	attrs := []attribute.Builder{
		attribute.Int64("cart.lines", int64(len(sess.Cart))),
		attribute.String("checkout.shipping_captured", strconv.FormatBool(sess.Shipping != nil)),
	}
	if userID, ok := sess.AuthenticatedUserID(); ok {
		attrs = append(attrs,
			attribute.Int64("user.id", userID),
			attribute.String("user.staff", strconv.FormatBool(sess.IsStaff)),
		)
	} else {
		attrs = append(attrs, attribute.String("user.kind", "guest"))
	}
	return attrs
}
