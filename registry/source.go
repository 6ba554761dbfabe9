package registry

import (
	"context"
	"fmt"
	"slices"

	ocispec "github.com/opencontainers/image-spec/specs-go/v1"
	"oras.land/oras-go/v2/content"
)

// Source is a registry blob holding a tar archive.
// It satisfies tarview.Source.
type Source struct {
	client *Client
	repo   string
	desc   ocispec.Descriptor
}

// Source returns a Source for the blob desc in repoRef. No request is made
// until Fetch.
func (c *Client) Source(repoRef string, desc ocispec.Descriptor) *Source {
	return &Source{client: c, repo: repoRef, desc: desc}
}

// SourceID returns "oci:<repository>@<digest>".
func (s *Source) SourceID() string {
	return "oci:" + s.repo + "@" + s.desc.Digest.String()
}

// Descriptor returns the blob descriptor.
func (s *Source) Descriptor() ocispec.Descriptor {
	return s.desc
}

// Fetch downloads the blob and verifies it against its descriptor.
func (s *Source) Fetch(ctx context.Context) ([]byte, error) {
	return s.client.FetchBlob(ctx, s.repo, s.desc)
}

// Open resolves ref to a single tar blob. ref may name an image manifest
// with exactly one tar layer, or a blob digest directly.
func (c *Client) Open(ctx context.Context, ref string) (*Source, error) {
	r, err := parseRef(ref)
	if err != nil {
		return nil, err
	}
	repo := repoName(r)
	target, err := c.repoFunc(repo)
	if err != nil {
		return nil, err
	}
	desc, err := c.resolve(ctx, target, r)
	if err != nil {
		return nil, err
	}
	if !isManifest(desc.MediaType) && !isIndex(desc.MediaType) {
		if err := c.evaluatePolicies(ctx, ref, desc, desc); err != nil {
			return nil, err
		}
		return c.Source(repo, desc), nil
	}

	layers, err := c.layers(ctx, target, desc)
	if err != nil {
		return nil, err
	}
	if len(layers) > 1 {
		return nil, fmt.Errorf("%w: %s has %d", ErrAmbiguousReference, ref, len(layers))
	}
	if err := c.evaluatePolicies(ctx, ref, desc, layers[0]); err != nil {
		return nil, err
	}
	return c.Source(repo, layers[0]), nil
}

// LayerSources returns a Source for every tar layer of the manifest at ref.
func (c *Client) LayerSources(ctx context.Context, ref string) ([]*Source, error) {
	r, err := parseRef(ref)
	if err != nil {
		return nil, err
	}
	target, err := c.repoFunc(repoName(r))
	if err != nil {
		return nil, err
	}
	subject, err := c.resolve(ctx, target, r)
	if err != nil {
		return nil, err
	}
	layers, err := c.layers(ctx, target, subject)
	if err != nil {
		return nil, err
	}
	sources := make([]*Source, len(layers))
	for i, layer := range layers {
		if err := c.evaluatePolicies(ctx, ref, subject, layer); err != nil {
			return nil, err
		}
		sources[i] = c.Source(repoName(r), layer)
	}
	return sources, nil
}

// FetchBlob downloads desc from repoRef, verifying size and digest.
//
// With a cache configured, a verified blob is stored under its digest and
// later fetches are served from the cache. Concurrent calls for the same
// digest share one download; each caller gets its own copy.
func (c *Client) FetchBlob(ctx context.Context, repoRef string, desc ocispec.Descriptor) ([]byte, error) {
	if err := validateDescriptor(desc); err != nil {
		return nil, err
	}
	if c.maxBytes > 0 && desc.Size > c.maxBytes {
		return nil, fmt.Errorf("%w: %s is %d bytes, limit %d", ErrBlobTooLarge, desc.Digest, desc.Size, c.maxBytes)
	}

	if data, ok := c.cached(desc); ok {
		return data, nil
	}

	key := desc.Digest.String()
	result, err, shared := c.fetchGroup.Do(key, func() (any, error) {
		// Another caller may have filled the cache since the check above.
		if data, ok := c.cached(desc); ok {
			return data, nil
		}

		target, err := c.repoFunc(repoRef)
		if err != nil {
			return nil, err
		}
		c.log().Debug("fetching blob", "repository", repoRef, "digest", key, "size", desc.Size)
		data, err := content.FetchAll(ctx, target, desc)
		if err != nil {
			return nil, mapError(err)
		}

		if c.cache != nil {
			if err := c.cache.Put(desc.Digest, data); err != nil {
				c.log().Warn("cache put failed", "digest", key, "error", err)
			}
		}
		return data, nil
	})
	if err != nil {
		return nil, err
	}

	data, _ := result.([]byte) //nolint:errcheck // type assertion always succeeds when err is nil
	if shared {
		data = slices.Clone(data)
	}
	return data, nil
}

func (c *Client) cached(desc ocispec.Descriptor) ([]byte, bool) {
	if c.cache == nil {
		return nil, false
	}
	data, ok := c.cache.Get(desc.Digest)
	if !ok || int64(len(data)) != desc.Size || desc.Digest.Algorithm().FromBytes(data) != desc.Digest {
		c.log().Debug("cache miss", "digest", desc.Digest.String())
		return nil, false
	}
	c.log().Debug("cache hit", "digest", desc.Digest.String())
	return data, true
}
