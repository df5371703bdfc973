// Package vitrine is a storefront client SDK. It drives a product catalog,
// a server-held shopping cart and order placement against independent
// backend services (auth, user, product, cart, order) reachable behind one
// gateway, and keeps the authenticated session and the local cart
// projection consistent across all of them.
//
// The packages compose as follows:
//   - session - authentication state, credential persistence, profile ops
//   - cart    - server-authoritative cart with a local projection
//   - order   - order submission pipeline and history
//   - catalog - product browsing and admin CRUD
//   - users   - admin client directory
//   - transport, core - shared HTTP layer, types, config, errors, logging
//
// Most applications only construct a Client:
//
//	client, err := vitrine.New(
//	    vitrine.WithConfig(core.WithAPIURL("https://shop.example.com")),
//	    vitrine.WithNavigator(core.NavigatorFunc(showLoginPage)),
//	)
package vitrine

import (
	"fmt"
	"net/http"

	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"

	"github.com/vitrinelabs/vitrine/cart"
	"github.com/vitrinelabs/vitrine/catalog"
	"github.com/vitrinelabs/vitrine/core"
	"github.com/vitrinelabs/vitrine/order"
	"github.com/vitrinelabs/vitrine/session"
	"github.com/vitrinelabs/vitrine/transport"
	"github.com/vitrinelabs/vitrine/users"
)

// Re-export core types so simple hosts only import this package
type (
	Session         = core.Session
	User            = core.User
	CartItem        = core.CartItem
	Order           = core.Order
	OrderStatus     = core.OrderStatus
	Product         = core.Product
	ProductSummary  = core.ProductSummary
	ProductCategory = core.ProductCategory
	Logger          = core.Logger
	Navigator       = core.Navigator
	NavigatorFunc   = core.NavigatorFunc
)

// Client aggregates the service clients over one authenticated transport.
// All cross-cutting coordination happens through the published observables:
// no component mutates another's state directly.
type Client struct {
	Config  *core.Config
	Session *session.Manager
	Cart    *cart.Synchronizer
	Orders  *order.Pipeline
	Catalog *catalog.Client
	Users   *users.Client

	logger core.Logger
}

// Option configures the Client beyond what core.Config covers
type Option func(*clientOptions) error

type clientOptions struct {
	configOpts  []core.Option
	logger      core.Logger
	navigator   core.Navigator
	credentials core.CredentialStore
	base        http.RoundTripper
}

// WithConfig forwards configuration options to core.NewConfig
func WithConfig(opts ...core.Option) Option {
	return func(o *clientOptions) error {
		o.configOpts = append(o.configOpts, opts...)
		return nil
	}
}

// WithLogger plugs in the host's logger
func WithLogger(logger core.Logger) Option {
	return func(o *clientOptions) error {
		o.logger = logger
		return nil
	}
}

// WithNavigator plugs in the host's routing to the login entry point
func WithNavigator(nav core.Navigator) Option {
	return func(o *clientOptions) error {
		o.navigator = nav
		return nil
	}
}

// WithCredentialStore overrides the configured credential store
func WithCredentialStore(store core.CredentialStore) Option {
	return func(o *clientOptions) error {
		o.credentials = store
		return nil
	}
}

// WithBaseTransport overrides the base http.RoundTripper under the auth
// transport. Mainly useful in tests.
func WithBaseTransport(rt http.RoundTripper) Option {
	return func(o *clientOptions) error {
		o.base = rt
		return nil
	}
}

// New constructs the SDK client: configuration, credential store,
// authenticated transport, and the service clients on top. The session
// found in the credential store, if any, is restored.
func New(opts ...Option) (*Client, error) {
	o := &clientOptions{}
	for _, opt := range opts {
		if err := opt(o); err != nil {
			return nil, err
		}
	}

	cfg, err := core.NewConfig(o.configOpts...)
	if err != nil {
		return nil, err
	}

	logger := o.logger
	if logger == nil {
		logger = core.NewStandardLogger(cfg.Logging.Level)
	}

	creds := o.credentials
	if creds == nil {
		creds, err = newCredentialStore(cfg)
		if err != nil {
			return nil, err
		}
	}

	nav := o.navigator
	if nav == nil {
		nav = &core.NoOpNavigator{}
	}

	base := o.base
	if base == nil {
		base = http.DefaultTransport
	}
	if cfg.Telemetry.Enabled {
		base = otelhttp.NewTransport(base)
	}

	authTransport := transport.NewAuthTransport(base, creds, logger)
	if cfg.RateLimit.Enabled {
		authTransport.SetRateLimit(cfg.RateLimit.RequestsPerSecond, cfg.RateLimit.Burst)
	}

	api := transport.NewClient(cfg.APIURL, &http.Client{
		Transport: authTransport,
		Timeout:   cfg.HTTP.Timeout,
	}, logger, cfg.Retry)

	store := session.NewStore()
	manager := session.NewManager(api, creds, store, nav, logger)

	// the auth transport is the single point of credential invalidation
	authTransport.OnUnauthorized = manager.Invalidate

	synchronizer := cart.NewSynchronizer(api, manager, logger)

	// the cart belongs to the session's user: drop the projection whenever
	// the session ends, so nothing leaks into the next login
	manager.Subscribe(func(sess core.Session) {
		if !sess.Authenticated {
			synchronizer.Reset()
		}
	})

	pipeline := order.NewPipeline(api, synchronizer, logger, cfg.Orders.ObservationWindow)

	return &Client{
		Config:  cfg,
		Session: manager,
		Cart:    synchronizer,
		Orders:  pipeline,
		Catalog: catalog.NewClient(api, logger),
		Users:   users.NewClient(api, logger),
		logger:  logger,
	}, nil
}

func newCredentialStore(cfg *core.Config) (core.CredentialStore, error) {
	switch cfg.Credentials.Provider {
	case "memory":
		return session.NewMemoryCredentialStore(), nil
	case "file":
		return session.NewFileCredentialStore(cfg.Credentials.FilePath), nil
	case "redis":
		return session.NewRedisCredentialStore(cfg.Credentials.RedisURL, cfg.Credentials.RedisKey)
	default:
		return nil, fmt.Errorf("%w: unknown credential provider %q", core.ErrInvalidConfiguration, cfg.Credentials.Provider)
	}
}
