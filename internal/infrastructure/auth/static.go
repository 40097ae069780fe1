package auth

import (
	"context"
	"encoding/base64"
	"errors"
	"sort"
	"time"

	"github.com/1212falcon1212/b2b-pharmacy-sub000/internal/domain/integration"
	"github.com/1212falcon1212/b2b-pharmacy-sub000/internal/infrastructure/transport"
)

// Static credential errors
var (
	ErrStaticMissingCredentials = errors.New("static: credentials are required")
	ErrSessionMissingLogin      = errors.New("session: login function is required")
)

// ---------------------------------------------------------------------------
// BasicStatic
// ---------------------------------------------------------------------------

// BasicStatic re-sends fixed credentials on every call, either as an HTTP
// Basic header or as static API-key headers
type BasicStatic struct {
	username string
	password string
	headers  map[string]string
}

// NewBasicStatic creates a Basic-auth strategy
func NewBasicStatic(username, password string) (*BasicStatic, error) {
	if username == "" || password == "" {
		return nil, ErrStaticMissingCredentials
	}
	return &BasicStatic{username: username, password: password}, nil
}

// NewStaticHeaders creates a strategy that sets fixed headers (API keys)
func NewStaticHeaders(headers map[string]string) (*BasicStatic, error) {
	if len(headers) == 0 {
		return nil, ErrStaticMissingCredentials
	}
	for _, v := range headers {
		if v == "" {
			return nil, ErrStaticMissingCredentials
		}
	}
	return &BasicStatic{headers: headers}, nil
}

// Stateless returns true
func (s *BasicStatic) Stateless() bool { return true }

// Login is a no-op for static credentials
func (s *BasicStatic) Login(ctx context.Context) (Grant, error) { return Grant{}, nil }

// Refresh is not supported
func (s *BasicStatic) Refresh(ctx context.Context, _ string) (Grant, error) {
	return Grant{}, integration.ErrRefreshNotSupported
}

// Apply sets the Basic header or the static headers
func (s *BasicStatic) Apply(req *transport.Request, _ integration.TokenRecord) {
	if s.username != "" {
		raw := s.username + ":" + s.password
		req.Header.Set("Authorization", "Basic "+base64.StdEncoding.EncodeToString([]byte(raw)))
	}
	for _, k := range sortedHeaderKeys(s.headers) {
		req.Header.Set(k, s.headers[k])
	}
}

// ---------------------------------------------------------------------------
// SOAPHeader
// ---------------------------------------------------------------------------

// SOAPHeader sends username/password as HTTP headers on each SOAP call.
// The envelope itself stays credential-free.
type SOAPHeader struct {
	UsernameHeader string
	PasswordHeader string
	Username       string
	Password       string
}

// NewSOAPHeader creates the strategy with default header names
func NewSOAPHeader(username, password string) (*SOAPHeader, error) {
	if username == "" || password == "" {
		return nil, ErrStaticMissingCredentials
	}
	return &SOAPHeader{
		UsernameHeader: "username",
		PasswordHeader: "password",
		Username:       username,
		Password:       password,
	}, nil
}

// Stateless returns true
func (s *SOAPHeader) Stateless() bool { return true }

// Login is a no-op
func (s *SOAPHeader) Login(ctx context.Context) (Grant, error) { return Grant{}, nil }

// Refresh is not supported
func (s *SOAPHeader) Refresh(ctx context.Context, _ string) (Grant, error) {
	return Grant{}, integration.ErrRefreshNotSupported
}

// Apply sets the credential headers
func (s *SOAPHeader) Apply(req *transport.Request, _ integration.TokenRecord) {
	req.Header.Set(s.UsernameHeader, s.Username)
	req.Header.Set(s.PasswordHeader, s.Password)
}

// ---------------------------------------------------------------------------
// SessionToken
// ---------------------------------------------------------------------------

// LoginFunc performs a provider-specific login and returns the session grant
type LoginFunc func(ctx context.Context) (Grant, error)

// SessionToken caches a long-lived session token obtained by a pluggable
// login call. It has no refresh grant: a rejected token forces a re-login.
type SessionToken struct {
	login LoginFunc
	// Header receives the token; QueryParam is used instead when set
	Header     string
	Scheme     string
	QueryParam string
	// Lifetime applies when the login grant has no expiry
	Lifetime time.Duration
}

// NewSessionToken creates a session strategy sending the token in header
func NewSessionToken(login LoginFunc, header, scheme string, lifetime time.Duration) (*SessionToken, error) {
	if login == nil {
		return nil, ErrSessionMissingLogin
	}
	if header == "" {
		header = "Authorization"
	}
	return &SessionToken{login: login, Header: header, Scheme: scheme, Lifetime: lifetime}, nil
}

// Stateless returns false; the session is cached
func (s *SessionToken) Stateless() bool { return false }

// Login calls the provider-specific login function
func (s *SessionToken) Login(ctx context.Context) (Grant, error) {
	grant, err := s.login(ctx)
	if err != nil {
		return Grant{}, err
	}
	if grant.ExpiresIn <= 0 {
		grant.ExpiresIn = s.Lifetime
	}
	return grant, nil
}

// Refresh is not supported
func (s *SessionToken) Refresh(ctx context.Context, _ string) (Grant, error) {
	return Grant{}, integration.ErrRefreshNotSupported
}

// Apply sets the session token on the request
func (s *SessionToken) Apply(req *transport.Request, token integration.TokenRecord) {
	if s.QueryParam != "" {
		req.Query.Set(s.QueryParam, token.AccessToken)
		return
	}
	value := token.AccessToken
	if s.Scheme != "" {
		value = s.Scheme + " " + value
	}
	req.Header.Set(s.Header, value)
}

func sortedHeaderKeys(m map[string]string) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

var (
	_ Strategy = (*BasicStatic)(nil)
	_ Strategy = (*SOAPHeader)(nil)
	_ Strategy = (*SessionToken)(nil)
)
