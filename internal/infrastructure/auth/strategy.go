// Package auth implements per-provider authentication lifecycles: token
// acquisition, caching in the shared CredentialStore, refresh and forced
// re-authentication after a rejected call.
package auth

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/1212falcon1212/b2b-pharmacy-sub000/internal/domain/integration"
	"github.com/1212falcon1212/b2b-pharmacy-sub000/internal/infrastructure/transport"
)

// Grant is the outcome of a login or refresh exchange. The Manager turns it
// into an integration.TokenRecord using its clock and expiry buffer.
type Grant struct {
	AccessToken  string
	RefreshToken string
	// ExpiresIn is the access token lifetime; zero means no local expiry
	ExpiresIn time.Duration
	// RefreshExpiresIn is the refresh token lifetime; zero means unknown
	RefreshExpiresIn time.Duration
	Metadata         map[string]string
}

// Strategy is one authentication scheme
type Strategy interface {
	// Stateless strategies send credentials on every call and hold no token
	Stateless() bool

	// Login obtains a fresh grant from credentials
	Login(ctx context.Context) (Grant, error)

	// Refresh exchanges a refresh token for a new grant.
	// Strategies without a refresh grant return integration.ErrRefreshNotSupported.
	Refresh(ctx context.Context, refreshToken string) (Grant, error)

	// Apply decorates an outgoing request with the credential
	Apply(req *transport.Request, token integration.TokenRecord)
}

// ---------------------------------------------------------------------------
// shared helpers
// ---------------------------------------------------------------------------

// exchangeError classifies a failed login/refresh response. Server-side
// failures stay transient; everything else is an authentication failure.
func exchangeError(op string, resp *transport.Response) error {
	switch {
	case resp.StatusCode == 429:
		return fmt.Errorf("%w: %s HTTP %d", integration.ErrPlatformRateLimited, op, resp.StatusCode)
	case resp.StatusCode >= 500 || resp.StatusCode == 408:
		return fmt.Errorf("%w: %s HTTP %d", integration.ErrPlatformUnavailable, op, resp.StatusCode)
	}
	msg := errorMessage(resp.Body)
	if msg == "" {
		msg = fmt.Sprintf("HTTP %d", resp.StatusCode)
	}
	return fmt.Errorf("%w: %s rejected: %s", integration.ErrPlatformAuthFailed, op, msg)
}

// errorMessage extracts a human-readable message from common error bodies
func errorMessage(body []byte) string {
	m, err := decodeObject(body)
	if err != nil {
		s := strings.TrimSpace(string(body))
		if len(s) > 200 {
			s = s[:200]
		}
		return s
	}
	for _, key := range []string{"error_description", "message", "detail", "error", "msg"} {
		if v := stringValue(m[key]); v != "" {
			return v
		}
	}
	if errs, ok := m["errors"].([]any); ok && len(errs) > 0 {
		if first, ok := errs[0].(map[string]any); ok {
			if v := stringValue(first["detail"]); v != "" {
				return v
			}
			if v := stringValue(first["title"]); v != "" {
				return v
			}
		}
	}
	return ""
}

func decodeObject(body []byte) (map[string]any, error) {
	dec := json.NewDecoder(bytes.NewReader(body))
	dec.UseNumber()
	var m map[string]any
	if err := dec.Decode(&m); err != nil {
		return nil, err
	}
	return m, nil
}

func stringValue(v any) string {
	switch val := v.(type) {
	case string:
		return val
	case json.Number:
		return val.String()
	case float64:
		return strconv.FormatFloat(val, 'f', -1, 64)
	case bool:
		return strconv.FormatBool(val)
	default:
		return ""
	}
}

func int64Value(v any) int64 {
	switch val := v.(type) {
	case json.Number:
		if n, err := val.Int64(); err == nil {
			return n
		}
		if f, err := val.Float64(); err == nil {
			return int64(f)
		}
	case float64:
		return int64(val)
	case string:
		if n, err := strconv.ParseInt(val, 10, 64); err == nil {
			return n
		}
	}
	return 0
}

// lookup walks a dotted path through nested objects
func lookup(m map[string]any, path string) any {
	var cur any = m
	for _, part := range strings.Split(path, ".") {
		obj, ok := cur.(map[string]any)
		if !ok {
			return nil
		}
		cur = obj[part]
	}
	return cur
}

func firstString(m map[string]any, paths ...string) string {
	for _, p := range paths {
		if v := stringValue(lookup(m, p)); v != "" {
			return v
		}
	}
	return ""
}
