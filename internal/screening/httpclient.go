package screening

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
)

// do executes the request and classifies transport and status failures into
// the shared taxonomy. On 2xx it returns the raw body for the caller to
// normalize.
func do(client *http.Client, provider string, req *http.Request) ([]byte, error) {
	resp, err := client.Do(req)
	if err != nil {
		return nil, ClassifyTransportError(provider, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, NewProviderError(FailureNetwork, provider, "read response body", err)
	}

	if resp.StatusCode/100 != 2 {
		return nil, ClassifyStatus(provider, resp.StatusCode)
	}
	return body, nil
}

// ClassifyTransportError maps client.Do failures onto the shared taxonomy.
// Exported because extraction reuses the same classification.
func ClassifyTransportError(provider string, err error) *ProviderError {
	if errors.Is(err, context.DeadlineExceeded) {
		return NewProviderError(FailureTimeout, provider, "request deadline exceeded", err)
	}
	var ne net.Error
	if errors.As(err, &ne) && ne.Timeout() {
		return NewProviderError(FailureTimeout, provider, "request timed out", err)
	}
	return NewProviderError(FailureNetwork, provider, "request failed", err)
}

// ClassifyStatus maps a non-2xx status onto the shared taxonomy.
func ClassifyStatus(provider string, status int) *ProviderError {
	msg := fmt.Sprintf("unexpected status %d", status)
	switch {
	case status == http.StatusUnauthorized || status == http.StatusForbidden:
		return NewProviderError(FailureAuth, provider, msg, nil)
	case status == http.StatusTooManyRequests:
		return NewProviderError(FailureRateLimited, provider, msg, nil)
	case status == http.StatusRequestTimeout || status == http.StatusGatewayTimeout:
		return NewProviderError(FailureTimeout, provider, msg, nil)
	default:
		return NewProviderError(FailureProvider, provider, msg, nil)
	}
}

// Lenient accessors for provider payloads: each provider has its own
// idiosyncratic JSON shape and optional fields, so missing or oddly-typed
// values degrade to zero values instead of failing the whole response.

func strField(m map[string]any, key string) string {
	if v, ok := m[key].(string); ok {
		return v
	}
	return ""
}

func floatField(m map[string]any, key string) float64 {
	switch v := m[key].(type) {
	case float64:
		return v
	case int:
		return float64(v)
	}
	return 0
}

func strsField(m map[string]any, key string) []string {
	switch v := m[key].(type) {
	case string:
		if v == "" {
			return nil
		}
		return []string{v}
	case []any:
		out := make([]string, 0, len(v))
		for _, item := range v {
			if s, ok := item.(string); ok {
				out = append(out, s)
			}
		}
		return out
	}
	return nil
}
