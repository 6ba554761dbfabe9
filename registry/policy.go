package registry

import (
	"context"
	"errors"
	"fmt"

	ocispec "github.com/opencontainers/image-spec/specs-go/v1"
)

// ErrPolicyViolation is returned when a policy rejects a resolved archive.
var ErrPolicyViolation = errors.New("registry: policy violation")

// Policy decides whether a resolved archive may be read.
type Policy interface {
	Evaluate(ctx context.Context, req PolicyRequest) error
}

// PolicyFunc is an adapter to allow ordinary functions as policies.
type PolicyFunc func(ctx context.Context, req PolicyRequest) error

// Evaluate calls f(ctx, req).
//
//nolint:gocritic // matches Policy interface signature
func (f PolicyFunc) Evaluate(ctx context.Context, req PolicyRequest) error {
	return f(ctx, req)
}

// PolicyRequest describes an archive about to be handed out as a Source.
type PolicyRequest struct {
	// Ref is the reference as given by the caller.
	Ref string
	// Subject is what Ref resolved to: an image manifest, or the blob
	// itself when Ref names a blob digest.
	Subject ocispec.Descriptor
	// Layer is the tar blob that will be read.
	Layer ocispec.Descriptor
}

func (c *Client) evaluatePolicies(ctx context.Context, ref string, subject, layer ocispec.Descriptor) error {
	if len(c.policies) == 0 {
		return nil
	}

	c.log().Debug("evaluating policies", "ref", ref, "policy_count", len(c.policies))
	req := PolicyRequest{Ref: ref, Subject: subject, Layer: layer}
	for i, policy := range c.policies {
		if err := policy.Evaluate(ctx, req); err != nil {
			c.log().Warn("policy evaluation failed",
				"policy_index", i,
				"layer", layer.Digest.String(),
				"error", err.Error(),
			)
			return fmt.Errorf("%w: %v", ErrPolicyViolation, err)
		}
	}
	return nil
}
