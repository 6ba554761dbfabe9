package registry

import (
	"context"
	"encoding/json"
	"fmt"

	ocispec "github.com/opencontainers/image-spec/specs-go/v1"
	"oras.land/oras-go/v2"
	"oras.land/oras-go/v2/content"
	orasregistry "oras.land/oras-go/v2/registry"
)

// blobResolver is implemented by remote repositories, which can resolve a
// digest on the blobs endpoint.
type blobResolver interface {
	Blobs() orasregistry.BlobStore
}

// Resolve resolves ref (repository plus tag or digest) to a descriptor.
// A digest that is not a manifest is looked up as a blob.
func (c *Client) Resolve(ctx context.Context, ref string) (ocispec.Descriptor, error) {
	r, err := parseRef(ref)
	if err != nil {
		return ocispec.Descriptor{}, err
	}
	target, err := c.repoFunc(repoName(r))
	if err != nil {
		return ocispec.Descriptor{}, err
	}
	return c.resolve(ctx, target, r)
}

func (c *Client) resolve(ctx context.Context, target oras.ReadOnlyTarget, r orasregistry.Reference) (ocispec.Descriptor, error) {
	desc, err := target.Resolve(ctx, r.Reference)
	if err == nil {
		return desc, nil
	}
	mapped := mapError(err)

	dgst, digestErr := r.Digest()
	br, ok := target.(blobResolver)
	if digestErr != nil || !ok {
		return ocispec.Descriptor{}, mapped
	}
	desc, err = br.Blobs().Resolve(ctx, dgst.String())
	if err != nil {
		return ocispec.Descriptor{}, mapError(err)
	}
	c.log().Debug("resolved blob digest", "ref", r.String(), "size", desc.Size)
	return desc, nil
}

// Layers resolves ref to an image manifest and returns its tar layers in
// manifest order.
func (c *Client) Layers(ctx context.Context, ref string) ([]ocispec.Descriptor, error) {
	r, err := parseRef(ref)
	if err != nil {
		return nil, err
	}
	target, err := c.repoFunc(repoName(r))
	if err != nil {
		return nil, err
	}
	desc, err := c.resolve(ctx, target, r)
	if err != nil {
		return nil, err
	}
	return c.layers(ctx, target, desc)
}

func (c *Client) layers(ctx context.Context, target oras.ReadOnlyTarget, desc ocispec.Descriptor) ([]ocispec.Descriptor, error) {
	if isIndex(desc.MediaType) {
		return nil, fmt.Errorf("%w: %s is an image index; reference a platform manifest", ErrManifestInvalid, desc.Digest)
	}
	if !isManifest(desc.MediaType) {
		return nil, fmt.Errorf("%w: unsupported media type %q", ErrManifestInvalid, desc.MediaType)
	}

	raw, err := content.FetchAll(ctx, target, desc)
	if err != nil {
		return nil, mapError(err)
	}
	var manifest ocispec.Manifest
	if err := json.Unmarshal(raw, &manifest); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrManifestInvalid, err)
	}

	var layers []ocispec.Descriptor
	for _, layer := range manifest.Layers {
		if IsTarLayer(layer.MediaType) {
			layers = append(layers, layer)
		}
	}
	if len(layers) == 0 {
		return nil, fmt.Errorf("%w: manifest %s has %d layers, none tar", ErrNoTarLayer, desc.Digest, len(manifest.Layers))
	}
	return layers, nil
}

// validateDescriptor checks that a descriptor can be fetched.
func validateDescriptor(desc ocispec.Descriptor) error {
	if desc.Size < 0 {
		return fmt.Errorf("%w: negative size %d", ErrInvalidDescriptor, desc.Size)
	}
	if desc.Digest == "" {
		return fmt.Errorf("%w: empty digest", ErrInvalidDescriptor)
	}
	if err := desc.Digest.Validate(); err != nil {
		return fmt.Errorf("%w: invalid digest %q: %v", ErrInvalidDescriptor, desc.Digest, err)
	}
	return nil
}
