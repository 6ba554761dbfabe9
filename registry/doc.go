// Package registry reads tar archives stored as blobs in OCI registries.
//
// A Client talks to registries through ORAS, handling authentication and
// token caching. It resolves image references to their tar layers and hands
// out Sources that plug into tarview.New:
//
//	client := registry.New(registry.WithDockerConfig())
//	src, err := client.Open(ctx, "ghcr.io/acme/recordings@sha256:...")
//	if err != nil {
//		return err
//	}
//	archive := tarview.New(src)
//
// Every fetched blob is checked against its descriptor digest. With a cache
// configured, verified blobs are stored by digest and later fetches skip the
// network.
package registry
