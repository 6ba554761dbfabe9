package registry

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"

	"golang.org/x/sync/singleflight"
	"oras.land/oras-go/v2"
	orasregistry "oras.land/oras-go/v2/registry"
	"oras.land/oras-go/v2/registry/remote"
	"oras.land/oras-go/v2/registry/remote/auth"
	"oras.land/oras-go/v2/registry/remote/credentials"
	"oras.land/oras-go/v2/registry/remote/retry"

	"github.com/meigma/tarview/cache"
)

const defaultUserAgent = "tarview/1.0"

// RepositoryFunc opens the read-only target for a repository reference such
// as "ghcr.io/acme/recordings".
type RepositoryFunc func(repoRef string) (oras.ReadOnlyTarget, error)

// Client reads blobs from OCI registries.
//
// Repositories share one auth client so bearer tokens are reused across
// requests. Concurrent fetches of the same digest share a single download.
// A Client is safe for concurrent use.
type Client struct {
	plainHTTP  bool
	userAgent  string
	anonymous  bool // skip credential lookup entirely
	credStore  credentials.Store
	authClient *auth.Client
	repoFunc   RepositoryFunc
	cache      cache.Cache
	maxBytes   int64
	policies   []Policy
	logger     *slog.Logger

	fetchGroup singleflight.Group
}

// New creates a registry client with the given options.
func New(opts ...Option) *Client {
	c := &Client{
		userAgent: defaultUserAgent,
	}
	for _, opt := range opts {
		opt(c)
	}

	c.authClient = &auth.Client{
		Client: retry.DefaultClient,
		Cache:  auth.NewCache(),
		Credential: func(ctx context.Context, hostport string) (auth.Credential, error) {
			if c.anonymous || c.credStore == nil {
				return auth.EmptyCredential, nil
			}
			return c.credStore.Get(ctx, hostport)
		},
		Header: http.Header{
			"User-Agent": []string{c.userAgent},
		},
	}
	if c.repoFunc == nil {
		c.repoFunc = c.remoteRepository
	}
	return c
}

// log returns the logger, falling back to a discard logger if nil.
func (c *Client) log() *slog.Logger {
	if c.logger == nil {
		return slog.New(slog.DiscardHandler)
	}
	return c.logger
}

// remoteRepository creates a remote repository for repoRef using the shared
// auth client.
func (c *Client) remoteRepository(repoRef string) (oras.ReadOnlyTarget, error) {
	repo, err := remote.NewRepository(repoRef)
	if err != nil {
		return nil, fmt.Errorf("%w: %q: %v", ErrInvalidReference, repoRef, err)
	}
	repo.PlainHTTP = c.plainHTTP
	repo.Client = c.authClient
	return repo, nil
}

// parseRef splits a full reference into repository and tag or digest.
func parseRef(ref string) (orasregistry.Reference, error) {
	r, err := orasregistry.ParseReference(ref)
	if err != nil {
		return orasregistry.Reference{}, fmt.Errorf("%w: %v", ErrInvalidReference, err)
	}
	if r.Reference == "" {
		return orasregistry.Reference{}, fmt.Errorf("%w: %q has no tag or digest", ErrInvalidReference, ref)
	}
	return r, nil
}

// repoName returns the registry/repository part of r.
func repoName(r orasregistry.Reference) string {
	return r.Registry + "/" + r.Repository
}
