// Package policy provides registry policies and ways to combine them.
//
// Use RequireAll for AND logic and RequireAny for OR logic:
//
//	client := registry.New(registry.WithPolicy(policy.RequireAll(
//	    policy.RequireMediaType(registry.MediaTypeArchive),
//	    policy.MaxLayerSize(64<<20),
//	)))
//
// Compositions can be nested.
package policy

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"strings"

	"github.com/opencontainers/go-digest"

	"github.com/meigma/tarview/registry"
)

// RequireAll returns a policy that passes only if all given policies pass.
//
// Policies are evaluated in order. Evaluation stops at the first failure.
// If no policies are provided, the returned policy always passes.
func RequireAll(policies ...registry.Policy) registry.Policy {
	return registry.PolicyFunc(func(ctx context.Context, req registry.PolicyRequest) error {
		for i, p := range policies {
			if p == nil {
				continue
			}
			if err := p.Evaluate(ctx, req); err != nil {
				return fmt.Errorf("policy %d: %w", i+1, err)
			}
		}
		return nil
	})
}

// RequireAny returns a policy that passes if at least one policy passes.
//
// If all policies fail, the error includes every failure message.
// If no policies are provided, the returned policy fails.
func RequireAny(policies ...registry.Policy) registry.Policy {
	return registry.PolicyFunc(func(ctx context.Context, req registry.PolicyRequest) error {
		valid := slices.DeleteFunc(slices.Clone(policies), func(p registry.Policy) bool { return p == nil })
		if len(valid) == 0 {
			return errors.New("policy: RequireAny requires at least one policy")
		}

		errs := make([]string, 0, len(valid))
		for _, p := range valid {
			err := p.Evaluate(ctx, req)
			if err == nil {
				return nil
			}
			errs = append(errs, err.Error())
		}
		return fmt.Errorf("policy: all %d policies failed: %s", len(valid), strings.Join(errs, "; "))
	})
}

// RequireLayerDigest pins the tar layer to one of the given digests.
func RequireLayerDigest(allowed ...digest.Digest) registry.Policy {
	return registry.PolicyFunc(func(_ context.Context, req registry.PolicyRequest) error {
		if slices.Contains(allowed, req.Layer.Digest) {
			return nil
		}
		return fmt.Errorf("policy: layer %s is not pinned", req.Layer.Digest)
	})
}

// RequireMediaType accepts only layers with one of the given media types.
func RequireMediaType(mediaTypes ...string) registry.Policy {
	return registry.PolicyFunc(func(_ context.Context, req registry.PolicyRequest) error {
		if slices.Contains(mediaTypes, req.Layer.MediaType) {
			return nil
		}
		return fmt.Errorf("policy: layer media type %q not allowed", req.Layer.MediaType)
	})
}

// MaxLayerSize rejects layers larger than n bytes.
func MaxLayerSize(n int64) registry.Policy {
	return registry.PolicyFunc(func(_ context.Context, req registry.PolicyRequest) error {
		if req.Layer.Size > n {
			return fmt.Errorf("policy: layer is %d bytes, limit %d", req.Layer.Size, n)
		}
		return nil
	})
}
