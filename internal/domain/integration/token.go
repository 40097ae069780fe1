package integration

import "time"

// DefaultTokenExpiryBuffer is subtracted from provider-reported lifetimes so a
// token is never presented right at its expiry
const DefaultTokenExpiryBuffer = 60 * time.Second

// TokenRecord is a cached authentication token for one provider+tenant.
// Records are replaced wholesale, never mutated in place.
type TokenRecord struct {
	AccessToken      string            `json:"access_token"`
	RefreshToken     string            `json:"refresh_token,omitempty"`
	IssuedAt         time.Time         `json:"issued_at"`
	ExpiresAt        time.Time         `json:"expires_at"`
	RefreshExpiresAt time.Time         `json:"refresh_expires_at,omitempty"`
	Provider         ProviderCode      `json:"provider"`
	Tenant           string            `json:"tenant"`
	Metadata         map[string]string `json:"metadata,omitempty"`
}

// NewTokenRecord builds a token issued at now, valid for lifetime minus buffer.
// A non-positive lifetime produces a token that never expires locally.
func NewTokenRecord(provider ProviderCode, tenant, access string, now time.Time, lifetime, buffer time.Duration) TokenRecord {
	rec := TokenRecord{
		AccessToken: access,
		IssuedAt:    now,
		Provider:    provider,
		Tenant:      tenant,
	}
	if lifetime > 0 {
		effective := lifetime - buffer
		if effective <= 0 {
			effective = lifetime / 2
		}
		rec.ExpiresAt = now.Add(effective)
	}
	return rec
}

// WithRefresh returns a copy carrying a refresh token valid for lifetime
func (t TokenRecord) WithRefresh(refresh string, now time.Time, lifetime time.Duration) TokenRecord {
	t.RefreshToken = refresh
	if lifetime > 0 && refresh != "" {
		t.RefreshExpiresAt = now.Add(lifetime)
	}
	return t
}

// WithMetadata returns a copy with an extra metadata entry
func (t TokenRecord) WithMetadata(key, value string) TokenRecord {
	md := make(map[string]string, len(t.Metadata)+1)
	for k, v := range t.Metadata {
		md[k] = v
	}
	md[key] = value
	t.Metadata = md
	return t
}

// Expired reports whether the access token can no longer be used at now
func (t TokenRecord) Expired(now time.Time) bool {
	if t.AccessToken == "" {
		return true
	}
	if t.ExpiresAt.IsZero() {
		return false
	}
	return !now.Before(t.ExpiresAt)
}

// Refreshable reports whether a refresh token is present and still live
func (t TokenRecord) Refreshable(now time.Time) bool {
	if t.RefreshToken == "" {
		return false
	}
	if t.RefreshExpiresAt.IsZero() {
		return true
	}
	return now.Before(t.RefreshExpiresAt)
}

// StoreTTL returns how long the record is worth keeping in the cache:
// the later of the access and refresh expiries, or zero for no expiry
func (t TokenRecord) StoreTTL(now time.Time) time.Duration {
	until := t.ExpiresAt
	if t.RefreshExpiresAt.After(until) {
		until = t.RefreshExpiresAt
	}
	if until.IsZero() {
		return 0
	}
	ttl := until.Sub(now)
	if ttl <= 0 {
		return time.Second
	}
	return ttl
}
