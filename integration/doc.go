//go:build integration

// Package integration holds end-to-end tests against a real OCI registry.
//
// The tests start a registry:2 container with testcontainers and need Docker.
// Run with: go test -tags=integration ./integration/...
package integration
