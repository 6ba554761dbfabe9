package registry

import (
	"log/slog"

	"oras.land/oras-go/v2/registry/remote/credentials"

	"github.com/meigma/tarview/cache"
)

// Option configures a Client.
type Option func(*Client)

// WithCredentialStore sets the credential store for authentication.
func WithCredentialStore(store credentials.Store) Option {
	return func(c *Client) {
		c.credStore = store
	}
}

// WithStaticCredentials sets a username and password for one registry.
func WithStaticCredentials(registry, username, password string) Option {
	return func(c *Client) {
		c.credStore = StaticCredentials(registry, username, password)
	}
}

// WithStaticToken sets a bearer token for one registry.
func WithStaticToken(registry, token string) Option {
	return func(c *Client) {
		c.credStore = StaticToken(registry, token)
	}
}

// WithDockerConfig reads credentials from ~/.docker/config.json.
// If the config cannot be loaded the client proceeds without credentials.
func WithDockerConfig() Option {
	return func(c *Client) {
		store, err := DefaultCredentialStore()
		if err != nil {
			return
		}
		c.credStore = store
	}
}

// WithPlainHTTP enables plain HTTP (no TLS), for local registries.
func WithPlainHTTP(enabled bool) Option {
	return func(c *Client) {
		c.plainHTTP = enabled
	}
}

// WithAnonymous disables all authentication, including credential lookups.
func WithAnonymous() Option {
	return func(c *Client) {
		c.anonymous = true
	}
}

// WithUserAgent sets the User-Agent header for requests.
func WithUserAgent(ua string) Option {
	return func(c *Client) {
		c.userAgent = ua
	}
}

// WithCache stores verified blobs in cache and serves later fetches from it.
func WithCache(cache cache.Cache) Option {
	return func(c *Client) {
		c.cache = cache
	}
}

// WithMaxBytes rejects blobs whose descriptor size exceeds n. 0 disables
// the limit.
func WithMaxBytes(n int64) Option {
	return func(c *Client) {
		c.maxBytes = n
	}
}

// WithPolicy adds a policy checked before Open or LayerSources hands out
// a Source. Policies run in the order they were added.
func WithPolicy(policy Policy) Option {
	return func(c *Client) {
		if policy != nil {
			c.policies = append(c.policies, policy)
		}
	}
}

// WithLogger sets the logger for fetch and cache events.
func WithLogger(logger *slog.Logger) Option {
	return func(c *Client) {
		c.logger = logger
	}
}

// WithRepositoryFunc replaces how repositories are opened. Tests use it to
// serve content from an in-memory store.
func WithRepositoryFunc(fn RepositoryFunc) Option {
	return func(c *Client) {
		c.repoFunc = fn
	}
}
