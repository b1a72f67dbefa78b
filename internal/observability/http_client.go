package observability

import (
	"net/http"
	"time"

	sentryhttpclient "github.com/getsentry/sentry-go/httpclient"
)

// EmailAPIHosts are the provider endpoints that order emails are posted to.
var EmailAPIHosts = []string{
	"api.postmarkapp.com",
	"api.resend.com",
	"api.mailgun.net",
}

// NewHTTPClient returns a client that records every request as a sentry span.
// Only requests to propagateTo hosts carry the sentry-trace and baggage
// headers.
func NewHTTPClient(timeout time.Duration, propagateTo ...string) *http.Client {
	transport := sentryhttpclient.NewSentryRoundTripper(
		http.DefaultTransport,
		sentryhttpclient.WithTracePropagationTargets(propagateTo),
	)
	return &http.Client{Transport: transport, Timeout: timeout}
}
