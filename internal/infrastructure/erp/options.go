// Package erp contains one driver per external ERP, accounting, invoicing
// and cargo backend. Every driver implements integration.Driver and reports
// all failures through integration.OperationResult.
package erp

import (
	"sync"
	"time"

	"github.com/1212falcon1212/b2b-pharmacy-sub000/internal/domain/integration"
	"github.com/1212falcon1212/b2b-pharmacy-sub000/internal/infrastructure/cache"
	"github.com/1212falcon1212/b2b-pharmacy-sub000/internal/infrastructure/ratelimit"
	"github.com/1212falcon1212/b2b-pharmacy-sub000/internal/infrastructure/transport"
	"go.uber.org/zap"
)

// settings are the collaborators shared by all drivers
type settings struct {
	store        integration.CredentialStore
	sequence     integration.InvoiceSequence
	doer         transport.Doer
	logger       *zap.Logger
	policy       integration.FallbackPolicy
	timeout      time.Duration
	soapTimeout  time.Duration
	expiryBuffer time.Duration
	ratePolicy   *ratelimit.Policy
	spacers      *ratelimit.SpacerRegistry
	now          func() time.Time
	userAgent    string
}

// Option configures a driver
type Option func(*settings)

// WithStore sets the shared credential store for tokens and counters
func WithStore(store integration.CredentialStore) Option {
	return func(s *settings) {
		s.store = store
	}
}

// WithInvoiceSequence sets the durable source of invoice numbers. Drivers
// that number invoices themselves refuse to do so without one.
func WithInvoiceSequence(seq integration.InvoiceSequence) Option {
	return func(s *settings) {
		s.sequence = seq
	}
}

// WithDoer replaces the HTTP transport (tests, instrumentation)
func WithDoer(doer transport.Doer) Option {
	return func(s *settings) {
		s.doer = doer
	}
}

// WithLogger sets the driver logger. Drivers log under "erp.<provider>".
func WithLogger(logger *zap.Logger) Option {
	return func(s *settings) {
		s.logger = logger
	}
}

// WithFallbackPolicy sets the placeholder values for missing order data
func WithFallbackPolicy(p integration.FallbackPolicy) Option {
	return func(s *settings) {
		s.policy = p
	}
}

// WithTimeouts sets the REST and SOAP request timeouts
func WithTimeouts(rest, soap time.Duration) Option {
	return func(s *settings) {
		if rest > 0 {
			s.timeout = rest
		}
		if soap > 0 {
			s.soapTimeout = soap
		}
	}
}

// WithExpiryBuffer sets the safety margin subtracted from token lifetimes
func WithExpiryBuffer(d time.Duration) Option {
	return func(s *settings) {
		s.expiryBuffer = d
	}
}

// WithRatePolicy overrides the provider's published rate limits
func WithRatePolicy(p ratelimit.Policy) Option {
	return func(s *settings) {
		s.ratePolicy = &p
	}
}

// WithSpacers sets the registry enforcing minimum request spacing
func WithSpacers(r *ratelimit.SpacerRegistry) Option {
	return func(s *settings) {
		s.spacers = r
	}
}

// WithClock overrides the time source (tests)
func WithClock(now func() time.Time) Option {
	return func(s *settings) {
		s.now = now
	}
}

// WithUserAgent sets the User-Agent of the default transport
func WithUserAgent(ua string) Option {
	return func(s *settings) {
		s.userAgent = ua
	}
}

var (
	defaultStoreOnce sync.Once
	defaultStore     integration.CredentialStore
)

// processStore is used when no store is configured. Tokens and counters are
// then shared only inside this process.
func processStore() integration.CredentialStore {
	defaultStoreOnce.Do(func() {
		defaultStore = cache.NewInMemoryCredentialStore()
	})
	return defaultStore
}

func newSettings(opts []Option) settings {
	s := settings{
		logger:       zap.NewNop(),
		policy:       integration.DefaultFallbackPolicy(),
		timeout:      transport.DefaultTimeout,
		soapTimeout:  transport.DefaultSOAPTimeout,
		expiryBuffer: integration.DefaultTokenExpiryBuffer,
		spacers:      ratelimit.DefaultSpacers,
		now:          time.Now,
	}
	for _, opt := range opts {
		opt(&s)
	}
	if s.store == nil {
		s.store = processStore()
	}
	s.policy = s.policy.WithDefaults()
	return s
}

// transportFor returns the configured doer or a client with timeout
func (s settings) transportFor(timeout time.Duration, logger *zap.Logger) transport.Doer {
	if s.doer != nil {
		return s.doer
	}
	opts := []transport.ClientOption{transport.WithLogger(logger)}
	if s.userAgent != "" {
		opts = append(opts, transport.WithUserAgent(s.userAgent))
	}
	return transport.NewClient(timeout, opts...)
}
