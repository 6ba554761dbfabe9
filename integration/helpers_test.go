//go:build integration

package integration

import (
	"bytes"
	"context"
	"fmt"
	"os"
	"sync"
	"testing"

	ocispec "github.com/opencontainers/image-spec/specs-go/v1"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/wait"
	"oras.land/oras-go/v2"
	"oras.land/oras-go/v2/content"
	"oras.land/oras-go/v2/registry/remote"

	"github.com/meigma/tarview/registry"
)

const artifactType = "application/vnd.meigma.tarview.recording.v1"

var (
	registryOnce sync.Once
	registryAddr string
	registryErr  error
)

// getRegistry returns the shared registry address, starting the container
// on first use.
func getRegistry(tb testing.TB) string {
	tb.Helper()

	if os.Getenv("SKIP_DOCKER_TESTS") == "1" {
		tb.Skip("SKIP_DOCKER_TESTS is set")
	}

	registryOnce.Do(func() {
		registryAddr, registryErr = startRegistryContainer(context.Background())
	})
	if registryErr != nil {
		tb.Fatalf("start registry container: %v", registryErr)
	}
	return registryAddr
}

func startRegistryContainer(ctx context.Context) (string, error) {
	req := testcontainers.ContainerRequest{
		Image:        "registry:2",
		ExposedPorts: []string{"5000/tcp"},
		WaitingFor:   wait.ForHTTP("/v2/").WithPort("5000/tcp").WithStatusCodeMatcher(isOKStatus),
	}
	container, err := testcontainers.GenericContainer(ctx, testcontainers.GenericContainerRequest{
		ContainerRequest: req,
		Started:          true,
	})
	if err != nil {
		return "", fmt.Errorf("start registry container: %w", err)
	}

	host, err := container.Host(ctx)
	if err != nil {
		return "", fmt.Errorf("resolve registry host: %w", err)
	}
	port, err := container.MappedPort(ctx, "5000/tcp")
	if err != nil {
		return "", fmt.Errorf("resolve registry port: %w", err)
	}
	return fmt.Sprintf("%s:%s", host, port.Port()), nil
}

func isOKStatus(status int) bool {
	return status >= 200 && status < 300
}

// newTestClient creates a registry client for the local plain-HTTP registry.
func newTestClient(opts ...registry.Option) *registry.Client {
	return registry.New(append([]registry.Option{registry.WithPlainHTTP(true), registry.WithAnonymous()}, opts...)...)
}

// repoRef returns a repository unique to the test.
func repoRef(addr, name string) string {
	return fmt.Sprintf("%s/test/%s", addr, name)
}

// pushArchive pushes each layer as a blob, packs them into a manifest, and
// tags it. It returns the layer descriptors in order.
func pushArchive(tb testing.TB, repo, tag, mediaType string, layers ...[]byte) []ocispec.Descriptor {
	tb.Helper()
	ctx := context.Background()

	target, err := remote.NewRepository(repo)
	require.NoError(tb, err)
	target.PlainHTTP = true

	descs := make([]ocispec.Descriptor, len(layers))
	for i, data := range layers {
		descs[i] = content.NewDescriptorFromBytes(mediaType, data)
		require.NoError(tb, target.Push(ctx, descs[i], bytes.NewReader(data)))
	}

	manifest, err := oras.PackManifest(ctx, target, oras.PackManifestVersion1_1, artifactType, oras.PackManifestOptions{
		Layers: descs,
	})
	require.NoError(tb, err)
	require.NoError(tb, target.Tag(ctx, manifest, tag))
	return descs
}
