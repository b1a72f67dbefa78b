package session

import (
	"context"
	"net/http"
	"sync"

	"github.com/lumashop/lumashop/internal/logging"
)

// contextKey is a type for context keys to avoid collisions
type contextKey string

const (
	// ctxKey is the key used to store session data in context
	ctxKey contextKey = "session"
)

type dataHolder struct {
	data *Data
}

// Middleware loads (or starts) the visitor session, exposes it through the
// request context and persists it if the handler modified it. The session is
// saved before the first byte of the response is written so a client that
// follows a redirect always observes the new state.
func (m *Manager) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()
		holder := &dataHolder{data: m.Load(ctx, w, r)}

		sw := &savingResponseWriter{
			ResponseWriter: w,
			save: func() {
				if err := m.Save(ctx, holder.data); err != nil {
					logging.FromContext(ctx, nil).Error("failed to save session", "error", err)
				}
			},
		}

		next.ServeHTTP(sw, r.WithContext(context.WithValue(ctx, ctxKey, holder)))
		sw.saveOnce()
	})
}

// FromContext retrieves session data from the request context.
func FromContext(ctx context.Context) *Data {
	if ctx == nil {
		return nil
	}
	holder, ok := ctx.Value(ctxKey).(*dataHolder)
	if !ok {
		return nil
	}
	return holder.data
}

// Replace swaps the session bound to the request, e.g. after logout.
func Replace(ctx context.Context, data *Data) {
	if ctx == nil || data == nil {
		return
	}
	if holder, ok := ctx.Value(ctxKey).(*dataHolder); ok {
		holder.data = data
	}
}

// WithData binds data to ctx without going through a Manager.
func WithData(ctx context.Context, data *Data) context.Context {
	if ctx == nil {
		ctx = context.Background()
	}
	return context.WithValue(ctx, ctxKey, &dataHolder{data: data})
}

type savingResponseWriter struct {
	http.ResponseWriter
	once sync.Once
	save func()
}

func (w *savingResponseWriter) saveOnce() {
	w.once.Do(w.save)
}

func (w *savingResponseWriter) WriteHeader(status int) {
	w.saveOnce()
	w.ResponseWriter.WriteHeader(status)
}

func (w *savingResponseWriter) Write(b []byte) (int, error) {
	w.saveOnce()
	return w.ResponseWriter.Write(b)
}
