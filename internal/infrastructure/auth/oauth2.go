package auth

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"time"

	"github.com/1212falcon1212/b2b-pharmacy-sub000/internal/domain/integration"
	"github.com/1212falcon1212/b2b-pharmacy-sub000/internal/infrastructure/transport"
)

// OAuth2 configuration errors
var (
	ErrOAuth2MissingTokenURL = errors.New("oauth2: token url is required")
	ErrOAuth2MissingClientID = errors.New("oauth2: client id is required")
	ErrOAuth2MissingUsername = errors.New("oauth2: username and password are required")
)

// oobRedirect is the out-of-band redirect URI used by password grants
const oobRedirect = "urn:ietf:wg:oauth:2.0:oob"

// OAuth2PasswordRefresh implements the OAuth2 resource-owner password grant
// with refresh_token renewal and a Bearer header
type OAuth2PasswordRefresh struct {
	TokenURL     string
	ClientID     string
	ClientSecret string
	Username     string
	Password     string
	// DefaultLifetime is used when the response omits expires_in
	DefaultLifetime time.Duration

	doer transport.Doer
}

// NewOAuth2PasswordRefresh creates the strategy and validates its settings
func NewOAuth2PasswordRefresh(doer transport.Doer, s OAuth2PasswordRefresh) (*OAuth2PasswordRefresh, error) {
	switch {
	case s.TokenURL == "":
		return nil, ErrOAuth2MissingTokenURL
	case s.ClientID == "":
		return nil, ErrOAuth2MissingClientID
	case s.Username == "" || s.Password == "":
		return nil, ErrOAuth2MissingUsername
	}
	if s.DefaultLifetime <= 0 {
		s.DefaultLifetime = 2 * time.Hour
	}
	s.doer = doer
	return &s, nil
}

// Stateless returns false; tokens are cached
func (s *OAuth2PasswordRefresh) Stateless() bool { return false }

// Login performs the password grant
func (s *OAuth2PasswordRefresh) Login(ctx context.Context) (Grant, error) {
	form := url.Values{
		"grant_type":    {"password"},
		"client_id":     {s.ClientID},
		"client_secret": {s.ClientSecret},
		"username":      {s.Username},
		"password":      {s.Password},
		"redirect_uri":  {oobRedirect},
	}
	return s.exchange(ctx, "login", form)
}

// Refresh performs the refresh_token grant
func (s *OAuth2PasswordRefresh) Refresh(ctx context.Context, refreshToken string) (Grant, error) {
	if refreshToken == "" {
		return Grant{}, integration.ErrRefreshNotSupported
	}
	form := url.Values{
		"grant_type":    {"refresh_token"},
		"client_id":     {s.ClientID},
		"client_secret": {s.ClientSecret},
		"refresh_token": {refreshToken},
	}
	return s.exchange(ctx, "refresh", form)
}

// Apply sets the Bearer authorization header
func (s *OAuth2PasswordRefresh) Apply(req *transport.Request, token integration.TokenRecord) {
	req.Header.Set("Authorization", "Bearer "+token.AccessToken)
}

func (s *OAuth2PasswordRefresh) exchange(ctx context.Context, op string, form url.Values) (Grant, error) {
	resp, err := s.doer.Do(ctx, transport.NewFormRequest(http.MethodPost, s.TokenURL, form))
	if err != nil {
		return Grant{}, err
	}
	if !resp.IsSuccess() {
		return Grant{}, exchangeError("oauth2 "+op, resp)
	}

	payload, err := decodeObject(resp.Body)
	if err != nil {
		return Grant{}, fmt.Errorf("%w: oauth2 %s: invalid token response", integration.ErrPlatformAuthFailed, op)
	}

	grant := Grant{
		AccessToken:  stringValue(payload["access_token"]),
		RefreshToken: stringValue(payload["refresh_token"]),
		ExpiresIn:    time.Duration(int64Value(payload["expires_in"])) * time.Second,
	}
	if grant.AccessToken == "" {
		return Grant{}, fmt.Errorf("%w: oauth2 %s: no access token in response", integration.ErrPlatformAuthFailed, op)
	}
	if grant.ExpiresIn <= 0 {
		grant.ExpiresIn = s.DefaultLifetime
	}
	return grant, nil
}

var _ Strategy = (*OAuth2PasswordRefresh)(nil)
