package registry

import (
	"errors"
	"fmt"
	"net/http"

	"oras.land/oras-go/v2/errdef"
	"oras.land/oras-go/v2/registry/remote/errcode"
)

// Sentinel errors for registry operations.
var (
	// ErrNotFound is returned when a manifest or blob does not exist.
	ErrNotFound = errors.New("registry: not found")

	// ErrUnauthorized is returned when authentication fails.
	ErrUnauthorized = errors.New("registry: unauthorized")

	// ErrForbidden is returned when access is denied.
	ErrForbidden = errors.New("registry: forbidden")

	// ErrInvalidReference is returned when a reference string is malformed.
	ErrInvalidReference = errors.New("registry: invalid reference")

	// ErrInvalidDescriptor is returned when a descriptor has invalid fields.
	ErrInvalidDescriptor = errors.New("registry: invalid descriptor")

	// ErrManifestInvalid is returned when a manifest cannot be parsed or has
	// an unsupported media type.
	ErrManifestInvalid = errors.New("registry: invalid manifest")

	// ErrNoTarLayer is returned when a manifest has no tar layer to read.
	ErrNoTarLayer = errors.New("registry: no tar layer")

	// ErrAmbiguousReference is returned by Open when a manifest has more than
	// one tar layer.
	ErrAmbiguousReference = errors.New("registry: reference has multiple tar layers")

	// ErrBlobTooLarge is returned when a descriptor exceeds the configured
	// fetch limit.
	ErrBlobTooLarge = errors.New("registry: blob too large")
)

// mapError maps ORAS errors to registry sentinel errors.
func mapError(err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, errdef.ErrNotFound) {
		return fmt.Errorf("%w: %v", ErrNotFound, err)
	}
	var errResp *errcode.ErrorResponse
	if errors.As(err, &errResp) {
		switch errResp.StatusCode {
		case http.StatusNotFound:
			return fmt.Errorf("%w: %v", ErrNotFound, err)
		case http.StatusUnauthorized:
			return fmt.Errorf("%w: %v", ErrUnauthorized, err)
		case http.StatusForbidden:
			return fmt.Errorf("%w: %v", ErrForbidden, err)
		}
	}
	return err
}
