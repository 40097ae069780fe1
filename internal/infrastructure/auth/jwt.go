package auth

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/1212falcon1212/b2b-pharmacy-sub000/internal/domain/integration"
	"github.com/1212falcon1212/b2b-pharmacy-sub000/internal/infrastructure/transport"
	"github.com/golang-jwt/jwt/v5"
)

// JWT configuration errors
var (
	ErrJWTMissingObtainURL   = errors.New("jwt: obtain url is required")
	ErrJWTMissingCredentials = errors.New("jwt: username and password are required")
)

// JWTObtainRefresh obtains an access/refresh JWT pair with JSON credentials
// and renews the access token through a refresh endpoint
type JWTObtainRefresh struct {
	ObtainURL  string
	RefreshURL string
	Username   string
	Password   string
	// UsernameField is the JSON key carrying the username (default "email")
	UsernameField string
	// Scheme prefixes the token in the Authorization header (default "JWT")
	Scheme string
	// AccessLifetime and RefreshLifetime apply when the token has no exp claim
	AccessLifetime  time.Duration
	RefreshLifetime time.Duration

	doer transport.Doer
	now  func() time.Time
}

// NewJWTObtainRefresh creates the strategy and validates its settings
func NewJWTObtainRefresh(doer transport.Doer, s JWTObtainRefresh) (*JWTObtainRefresh, error) {
	if s.ObtainURL == "" {
		return nil, ErrJWTMissingObtainURL
	}
	if s.Username == "" || s.Password == "" {
		return nil, ErrJWTMissingCredentials
	}
	if s.UsernameField == "" {
		s.UsernameField = "email"
	}
	if s.Scheme == "" {
		s.Scheme = "JWT"
	}
	if s.AccessLifetime <= 0 {
		s.AccessLifetime = 7 * 24 * time.Hour
	}
	if s.RefreshLifetime <= 0 {
		s.RefreshLifetime = 30 * 24 * time.Hour
	}
	s.doer = doer
	s.now = time.Now
	return &s, nil
}

// Stateless returns false; tokens are cached
func (s *JWTObtainRefresh) Stateless() bool { return false }

// Login obtains a new token pair
func (s *JWTObtainRefresh) Login(ctx context.Context) (Grant, error) {
	body := map[string]string{
		s.UsernameField: s.Username,
		"password":      s.Password,
	}
	payload, err := s.post(ctx, "obtain", s.ObtainURL, body)
	if err != nil {
		return Grant{}, err
	}

	grant := Grant{
		AccessToken:  firstString(payload, "access", "token", "access_token", "data.access"),
		RefreshToken: firstString(payload, "refresh", "refresh_token", "data.refresh"),
	}
	if grant.AccessToken == "" {
		return Grant{}, fmt.Errorf("%w: jwt obtain: no access token in response", integration.ErrPlatformAuthFailed)
	}
	grant.ExpiresIn = s.lifetime(grant.AccessToken, s.AccessLifetime)
	if grant.RefreshToken != "" {
		grant.RefreshExpiresIn = s.lifetime(grant.RefreshToken, s.RefreshLifetime)
	}
	return grant, nil
}

// Refresh renews the access token
func (s *JWTObtainRefresh) Refresh(ctx context.Context, refreshToken string) (Grant, error) {
	if s.RefreshURL == "" || refreshToken == "" {
		return Grant{}, integration.ErrRefreshNotSupported
	}
	payload, err := s.post(ctx, "refresh", s.RefreshURL, map[string]string{"refresh": refreshToken})
	if err != nil {
		return Grant{}, err
	}

	grant := Grant{
		AccessToken:  firstString(payload, "access", "token", "access_token", "data.access"),
		RefreshToken: firstString(payload, "refresh", "refresh_token", "data.refresh"),
	}
	if grant.AccessToken == "" {
		return Grant{}, fmt.Errorf("%w: jwt refresh: no access token in response", integration.ErrPlatformAuthFailed)
	}
	grant.ExpiresIn = s.lifetime(grant.AccessToken, s.AccessLifetime)
	if grant.RefreshToken != "" {
		grant.RefreshExpiresIn = s.lifetime(grant.RefreshToken, s.RefreshLifetime)
	}
	return grant, nil
}

// Apply sets "Authorization: <Scheme> <token>"
func (s *JWTObtainRefresh) Apply(req *transport.Request, token integration.TokenRecord) {
	req.Header.Set("Authorization", s.Scheme+" "+token.AccessToken)
}

func (s *JWTObtainRefresh) post(ctx context.Context, op, target string, body map[string]string) (map[string]any, error) {
	req, err := transport.NewJSONRequest(http.MethodPost, target, body)
	if err != nil {
		return nil, err
	}
	resp, err := s.doer.Do(ctx, req)
	if err != nil {
		return nil, err
	}
	if !resp.IsSuccess() {
		return nil, exchangeError("jwt "+op, resp)
	}
	payload, err := decodeObject(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("%w: jwt %s: invalid token response", integration.ErrPlatformAuthFailed, op)
	}
	return payload, nil
}

// lifetime reads the exp claim without verifying the signature; the token is
// opaque to us and only its expiry matters
func (s *JWTObtainRefresh) lifetime(token string, fallback time.Duration) time.Duration {
	exp, ok := TokenExpiry(token)
	if !ok {
		return fallback
	}
	d := exp.Sub(s.now())
	if d <= 0 {
		return fallback
	}
	return d
}

// TokenExpiry returns the exp claim of a JWT, if it parses and carries one
func TokenExpiry(token string) (time.Time, bool) {
	claims := jwt.MapClaims{}
	if _, _, err := jwt.NewParser().ParseUnverified(token, claims); err != nil {
		return time.Time{}, false
	}
	exp, err := claims.GetExpirationTime()
	if err != nil || exp == nil {
		return time.Time{}, false
	}
	return exp.Time, true
}

var _ Strategy = (*JWTObtainRefresh)(nil)
