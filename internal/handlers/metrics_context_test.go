package handlers

import (
	"testing"

	"github.com/lumashop/lumashop/internal/cart"
	"github.com/lumashop/lumashop/internal/session"
)

func TestVisitorMetricAttrs(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		sess *session.Data
		want int
	}{
		{name: "no session", sess: nil, want: 0},
		{name: "guest", sess: &session.Data{Cart: cart.Entries{"1": 2}}, want: 3},
		{name: "signed in", sess: &session.Data{UserID: 7, Username: "ada"}, want: 4},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			if got := len(visitorMetricAttrs(tt.sess)); got != tt.want {
				t.Fatalf("expected %d attributes, got %d", tt.want, got)
			}
		})
	}
}
