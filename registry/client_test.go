package registry

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"sync"
	"sync/atomic"
	"testing"

	"github.com/opencontainers/go-digest"
	specs "github.com/opencontainers/image-spec/specs-go"
	ocispec "github.com/opencontainers/image-spec/specs-go/v1"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"oras.land/oras-go/v2"
	"oras.land/oras-go/v2/content"
	"oras.land/oras-go/v2/content/memory"
	"oras.land/oras-go/v2/errdef"

	"github.com/meigma/tarview"
	"github.com/meigma/tarview/internal/testutil"
)

const testRepo = "registry.example.com/acme/recordings"

// countingTarget counts blob fetches and can serve substitute bytes.
type countingTarget struct {
	oras.ReadOnlyTarget
	fetches  atomic.Int32
	override []byte
}

func (t *countingTarget) Fetch(ctx context.Context, desc ocispec.Descriptor) (io.ReadCloser, error) {
	t.fetches.Add(1)
	if t.override != nil {
		return io.NopCloser(bytes.NewReader(t.override)), nil
	}
	return t.ReadOnlyTarget.Fetch(ctx, desc)
}

func newTestClient(t *testing.T, target oras.ReadOnlyTarget, opts ...Option) *Client {
	t.Helper()
	opts = append(opts, WithRepositoryFunc(func(repoRef string) (oras.ReadOnlyTarget, error) {
		if repoRef != testRepo {
			t.Errorf("repository = %q, want %q", repoRef, testRepo)
		}
		return target, nil
	}))
	return New(opts...)
}

func pushBlob(t *testing.T, store *memory.Store, mediaType string, data []byte) ocispec.Descriptor {
	t.Helper()
	desc := content.NewDescriptorFromBytes(mediaType, data)
	err := store.Push(context.Background(), desc, bytes.NewReader(data))
	if !errors.Is(err, errdef.ErrAlreadyExists) {
		require.NoError(t, err)
	}
	return desc
}

func pushManifest(t *testing.T, store *memory.Store, tag string, layers ...ocispec.Descriptor) ocispec.Descriptor {
	t.Helper()
	config := pushBlob(t, store, ocispec.MediaTypeEmptyJSON, []byte("{}"))
	manifest := ocispec.Manifest{
		Versioned: specs.Versioned{SchemaVersion: 2},
		MediaType: ocispec.MediaTypeImageManifest,
		Config:    config,
		Layers:    layers,
	}
	raw, err := json.Marshal(manifest)
	require.NoError(t, err)
	desc := pushBlob(t, store, ocispec.MediaTypeImageManifest, raw)
	require.NoError(t, store.Tag(context.Background(), desc, tag))
	return desc
}

func TestOpen_SingleLayer(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	store := memory.New()
	data := testutil.BuildTar(t,
		testutil.Dir("rec/"),
		testutil.File("rec/session.log", "log bytes"),
	)
	layer := pushBlob(t, store, ocispec.MediaTypeImageLayer, data)
	pushManifest(t, store, "v1", layer)

	client := newTestClient(t, store)
	src, err := client.Open(ctx, testRepo+":v1")
	require.NoError(t, err)
	assert.Equal(t, layer.Digest, src.Descriptor().Digest)
	assert.Equal(t, "oci:"+testRepo+"@"+layer.Digest.String(), src.SourceID())

	got, err := tarview.New(src).ReadFile(ctx, "session.log")
	require.NoError(t, err)
	assert.Equal(t, "log bytes", string(got))
}

func TestOpen_CompressedLayer(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	store := memory.New()
	data := testutil.Gzip(t, testutil.BuildTar(t, testutil.File("rec/a.txt", "alpha")))
	pushManifest(t, store, "gz", pushBlob(t, store, ocispec.MediaTypeImageLayerGzip, data))

	src, err := newTestClient(t, store).Open(ctx, testRepo+":gz")
	require.NoError(t, err)

	got, err := tarview.New(src).ReadFile(ctx, "a.txt")
	require.NoError(t, err)
	assert.Equal(t, "alpha", string(got))
}

func TestLayers_FiltersNonTar(t *testing.T) {
	t.Parallel()

	store := memory.New()
	notes := pushBlob(t, store, "application/json", []byte(`{"note":1}`))
	tarLayer := pushBlob(t, store, MediaTypeArchive, testutil.BuildTar(t, testutil.File("a/b", "c")))
	pushManifest(t, store, "mixed", notes, tarLayer)

	layers, err := newTestClient(t, store).Layers(context.Background(), testRepo+":mixed")
	require.NoError(t, err)
	require.Len(t, layers, 1)
	assert.Equal(t, tarLayer.Digest, layers[0].Digest)
}

func TestOpen_MultipleLayers(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	store := memory.New()
	first := pushBlob(t, store, ocispec.MediaTypeImageLayer, testutil.BuildTar(t, testutil.File("a/one", "1")))
	second := pushBlob(t, store, ocispec.MediaTypeImageLayer, testutil.BuildTar(t, testutil.File("a/two", "2")))
	pushManifest(t, store, "multi", first, second)

	client := newTestClient(t, store)
	_, err := client.Open(ctx, testRepo+":multi")
	require.ErrorIs(t, err, ErrAmbiguousReference)

	sources, err := client.LayerSources(ctx, testRepo+":multi")
	require.NoError(t, err)
	require.Len(t, sources, 2)

	got, err := tarview.New(sources[1]).ReadFile(ctx, "two")
	require.NoError(t, err)
	assert.Equal(t, "2", string(got))
}

func TestOpen_Errors(t *testing.T) {
	t.Parallel()

	store := memory.New()
	pushManifest(t, store, "empty")
	client := newTestClient(t, store)
	ctx := context.Background()

	_, err := client.Open(ctx, testRepo+":missing")
	require.ErrorIs(t, err, ErrNotFound)

	_, err = client.Open(ctx, testRepo+":empty")
	require.ErrorIs(t, err, ErrNoTarLayer)

	_, err = client.Open(ctx, testRepo)
	require.ErrorIs(t, err, ErrInvalidReference)

	_, err = client.Open(ctx, "not a reference")
	require.ErrorIs(t, err, ErrInvalidReference)
}

func TestOpen_IndexRejected(t *testing.T) {
	t.Parallel()

	store := memory.New()
	index := ocispec.Index{
		Versioned: specs.Versioned{SchemaVersion: 2},
		MediaType: ocispec.MediaTypeImageIndex,
	}
	raw, err := json.Marshal(index)
	require.NoError(t, err)
	desc := pushBlob(t, store, ocispec.MediaTypeImageIndex, raw)
	require.NoError(t, store.Tag(context.Background(), desc, "multiarch"))

	_, err = newTestClient(t, store).Open(context.Background(), testRepo+":multiarch")
	require.ErrorIs(t, err, ErrManifestInvalid)
}

func TestFetchBlob_Cache(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	store := memory.New()
	data := testutil.BuildTar(t, testutil.File("a/cached.txt", "from cache"))
	desc := pushBlob(t, store, ocispec.MediaTypeImageLayer, data)

	target := &countingTarget{ReadOnlyTarget: store}
	blobCache := testutil.NewMockCache()
	client := newTestClient(t, target, WithCache(blobCache))

	got, err := client.FetchBlob(ctx, testRepo, desc)
	require.NoError(t, err)
	assert.Equal(t, data, got)

	got, err = client.FetchBlob(ctx, testRepo, desc)
	require.NoError(t, err)
	assert.Equal(t, data, got)

	assert.Equal(t, int32(1), target.fetches.Load(), "second fetch is served from cache")
	assert.Equal(t, 1, blobCache.Hits())
	assert.Equal(t, 3, blobCache.Gets(), "miss, re-check under singleflight, hit")
}

func TestFetchBlob_CorruptCacheEntryRefetches(t *testing.T) {
	t.Parallel()

	store := memory.New()
	data := []byte("real bytes")
	desc := pushBlob(t, store, ocispec.MediaTypeImageLayer, data)

	blobCache := testutil.NewMockCache()
	require.NoError(t, blobCache.Put(desc.Digest, []byte("rotten")))
	target := &countingTarget{ReadOnlyTarget: store}

	got, err := newTestClient(t, target, WithCache(blobCache)).FetchBlob(context.Background(), testRepo, desc)
	require.NoError(t, err)
	assert.Equal(t, data, got)
	assert.Equal(t, int32(1), target.fetches.Load())
}

func TestFetchBlob_DigestMismatch(t *testing.T) {
	t.Parallel()

	store := memory.New()
	data := []byte("expected content")
	desc := pushBlob(t, store, ocispec.MediaTypeImageLayer, data)
	target := &countingTarget{ReadOnlyTarget: store, override: []byte("tampered content")}
	blobCache := testutil.NewMockCache()

	_, err := newTestClient(t, target, WithCache(blobCache)).FetchBlob(context.Background(), testRepo, desc)
	require.Error(t, err)
	assert.Zero(t, blobCache.SizeBytes(), "unverified content is not cached")
}

func TestFetchBlob_Limits(t *testing.T) {
	t.Parallel()

	store := memory.New()
	desc := pushBlob(t, store, ocispec.MediaTypeImageLayer, bytes.Repeat([]byte("x"), 2048))
	ctx := context.Background()

	_, err := newTestClient(t, store, WithMaxBytes(1024)).FetchBlob(ctx, testRepo, desc)
	require.ErrorIs(t, err, ErrBlobTooLarge)

	_, err = newTestClient(t, store).FetchBlob(ctx, testRepo, ocispec.Descriptor{Digest: "sha256:short", Size: 1})
	require.ErrorIs(t, err, ErrInvalidDescriptor)

	missing := ocispec.Descriptor{MediaType: ocispec.MediaTypeImageLayer, Digest: digest.FromString("absent"), Size: 6}
	_, err = newTestClient(t, store).FetchBlob(ctx, testRepo, missing)
	require.ErrorIs(t, err, ErrNotFound)
}

func TestFetchBlob_ConcurrentCallersGetCopies(t *testing.T) {
	t.Parallel()

	store := memory.New()
	data := bytes.Repeat([]byte("shared"), 1000)
	desc := pushBlob(t, store, ocispec.MediaTypeImageLayer, data)
	target := &countingTarget{ReadOnlyTarget: store}
	client := newTestClient(t, target)

	const callers = 8
	results := make([][]byte, callers)
	var wg sync.WaitGroup
	for i := range callers {
		wg.Go(func() {
			got, err := client.FetchBlob(context.Background(), testRepo, desc)
			assert.NoError(t, err)
			results[i] = got
		})
	}
	wg.Wait()

	assert.LessOrEqual(t, target.fetches.Load(), int32(callers))
	for i := range callers {
		require.Equal(t, data, results[i])
	}
	results[0][0] = 'X'
	for i := 1; i < callers; i++ {
		assert.Equal(t, byte('s'), results[i][0], "callers do not share buffers")
	}
}

func TestOpen_PolicyViolation(t *testing.T) {
	t.Parallel()

	store := memory.New()
	layer := pushBlob(t, store, ocispec.MediaTypeImageLayer, testutil.BuildTar(t, testutil.File("a/b", "c")))
	manifest := pushManifest(t, store, "v1", layer)

	var seen PolicyRequest
	deny := PolicyFunc(func(_ context.Context, req PolicyRequest) error {
		seen = req
		return errors.New("unsigned")
	})

	_, err := newTestClient(t, store, WithPolicy(deny)).Open(context.Background(), testRepo+":v1")
	require.ErrorIs(t, err, ErrPolicyViolation)
	assert.Equal(t, manifest.Digest, seen.Subject.Digest)
	assert.Equal(t, layer.Digest, seen.Layer.Digest)

	allow := PolicyFunc(func(context.Context, PolicyRequest) error { return nil })
	_, err = newTestClient(t, store, WithPolicy(allow)).LayerSources(context.Background(), testRepo+":v1")
	require.NoError(t, err)
}
