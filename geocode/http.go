// Copyright 2025 The ViewerGeo Authors
// SPDX-License-Identifier: Apache-2.0

package geocode

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"os"
	"time"

	"github.com/jcodagnone/viewergeo/utils/httputils"
	"golang.org/x/time/rate"
)

// HTTPOptions configures the HTTP client shared by remote providers.
type HTTPOptions struct {
	// UserAgent is the User-Agent header to use in HTTP requests
	UserAgent string

	// Enables light tracing of HTTP requests and responses
	EnableHTTPTrace bool

	// Enables full HTTP body tracing
	EnableHTTPBodyTrace bool

	// Maximum requests per second, 0 means unlimited
	RequestsPerSecond float64
}

// NewHTTPClient builds the transport chain used by the geocoders: fixed
// headers, optional tracing with the API key redacted, optional rate limit.
// Per-request timeouts come from the caller's context.
func NewHTTPClient(options HTTPOptions) *http.Client {
	var httpLogWriter io.Writer
	if options.EnableHTTPTrace {
		httpLogWriter = os.Stderr
	}

	transport := &http.Transport{
		MaxIdleConns:          10,
		MaxIdleConnsPerHost:   2,
		MaxConnsPerHost:       2,
		IdleConnTimeout:       30 * time.Second,
		ResponseHeaderTimeout: 30 * time.Second,
	}

	var rt http.RoundTripper = &httputils.LoggingRoundTripper{
		Writer:       httpLogWriter,
		DumpBody:     options.EnableHTTPBodyTrace,
		Transport:    transport,
		RedactParams: []string{"key"},
	}

	if options.RequestsPerSecond > 0 {
		rt = &httputils.RateLimitRoundTripper{
			Transport: rt,
			Limiter:   rate.NewLimiter(rate.Limit(options.RequestsPerSecond), 1),
		}
	}

	userAgent := "viewergeo/unknown"
	if options.UserAgent != "" {
		userAgent = options.UserAgent
	}

	return &http.Client{
		Transport: &httputils.AppendRequestHeadersRoundTripper{
			Headers: map[string]string{
				"User-Agent": userAgent,
				"Accept":     "application/json",
			},
			Transport: rt,
		},
	}
}

// getJSON issues a GET and decodes a JSON body into v. Failures come back
// classified.
func getJSON(ctx context.Context, client *http.Client, reqURL string, v any) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, reqURL, nil)
	if err != nil {
		return &Error{Type: ErrorTypeInvalidRequest, Message: "building request", Err: err}
	}

	resp, err := client.Do(req)
	if err != nil {
		return ClassifyError(err)
	}

	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return ClassifyHTTPError(resp.StatusCode)
	}

	if err := json.NewDecoder(resp.Body).Decode(v); err != nil {
		if ctx.Err() != nil {
			return ClassifyError(ctx.Err())
		}

		return &Error{Type: ErrorTypeUnknown, Message: "decoding response", Err: err}
	}

	return nil
}

func withProvider(err error, provider string) error {
	return fmt.Errorf("%s: %w", provider, err)
}
