package erp

import (
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"strings"

	"github.com/1212falcon1212/b2b-pharmacy-sub000/internal/domain/integration"
	"github.com/1212falcon1212/b2b-pharmacy-sub000/internal/infrastructure/mapping"
	"github.com/1212falcon1212/b2b-pharmacy-sub000/internal/infrastructure/transport"
)

// maxMessageLength bounds provider messages copied into results
const maxMessageLength = 300

// statusError maps an HTTP status to the error taxonomy:
// 401/403 auth, 429 remote rate limit, 408/5xx transient, other 4xx rejected
func statusError(provider integration.ProviderCode, resp *transport.Response) error {
	switch {
	case resp.IsSuccess():
		return nil
	case resp.StatusCode == http.StatusUnauthorized, resp.StatusCode == http.StatusForbidden:
		return fmt.Errorf("%w: %s returned HTTP %d: %s", integration.ErrPlatformAuthFailed, provider, resp.StatusCode, providerMessage(resp))
	case resp.StatusCode == http.StatusTooManyRequests:
		return fmt.Errorf("%w: %s returned HTTP 429", integration.ErrPlatformRateLimited, provider)
	case resp.StatusCode == http.StatusRequestTimeout, resp.StatusCode >= 500:
		return fmt.Errorf("%w: %s returned HTTP %d", integration.ErrPlatformUnavailable, provider, resp.StatusCode)
	case resp.StatusCode >= 400:
		return &integration.ProviderError{
			Provider:   provider,
			StatusCode: resp.StatusCode,
			Code:       providerCode(resp),
			Message:    providerMessage(resp),
		}
	default:
		// 1xx/3xx after redirects were followed
		return fmt.Errorf("%w: %s returned HTTP %d", integration.ErrPlatformInvalidResponse, provider, resp.StatusCode)
	}
}

// message keys looked up in error bodies, most specific first
var messageKeys = []string{
	"errors.0.detail",
	"errors.0.title",
	"errors.0.message",
	"error.message",
	"error_description",
	"message",
	"Message",
	"errorMessage",
	"error",
	"detail",
	"title",
}

var codeKeys = []string{
	"errors.0.code",
	"error.code",
	"code",
	"errorCode",
	"error",
}

// providerMessage extracts an operator-readable message from a response body
func providerMessage(resp *transport.Response) string {
	if msg := bodyField(resp.Body, messageKeys); msg != "" {
		return limit(msg)
	}
	if text := strings.TrimSpace(string(resp.Body)); text != "" && !strings.HasPrefix(text, "<") {
		return limit(text)
	}
	if text := http.StatusText(resp.StatusCode); text != "" {
		return text
	}
	return "HTTP " + strconv.Itoa(resp.StatusCode)
}

func providerCode(resp *transport.Response) string {
	if code := bodyField(resp.Body, codeKeys); code != "" && len(code) <= 64 && !strings.Contains(code, " ") {
		return code
	}
	return "http_" + strconv.Itoa(resp.StatusCode)
}

func bodyField(body []byte, keys []string) string {
	if len(body) == 0 {
		return ""
	}
	p, err := mapping.Decode(body)
	if err != nil {
		return ""
	}
	return p.String(keys...)
}

func limit(s string) string {
	s = strings.TrimSpace(s)
	r := []rune(s)
	if len(r) <= maxMessageLength {
		return s
	}
	return string(r[:maxMessageLength]) + "..."
}

// rejected builds a ProviderError for a business refusal inside a 2xx body
func rejected(provider integration.ProviderCode, code, message string) error {
	if message == "" {
		message = "request rejected"
	}
	return &integration.ProviderError{Provider: provider, StatusCode: http.StatusOK, Code: code, Message: limit(message)}
}

// loginError classifies a failed provider login. Throttling and server errors
// stay retryable; any other refusal is an authentication failure.
func loginError(provider integration.ProviderCode, resp *transport.Response) error {
	err := statusError(provider, resp)
	if err == nil || errors.Is(err, integration.ErrPlatformRateLimited) || errors.Is(err, integration.ErrPlatformUnavailable) {
		return err
	}
	return fmt.Errorf("%w: %s login refused: %s", integration.ErrPlatformAuthFailed, provider, providerMessage(resp))
}
