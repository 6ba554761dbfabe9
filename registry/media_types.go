package registry

import ocispec "github.com/opencontainers/image-spec/specs-go/v1"

// Media types for tar archives in OCI registries.
const (
	// MediaTypeArchive marks a plain recording archive pushed as an artifact
	// layer.
	MediaTypeArchive = "application/vnd.meigma.tarview.archive.v1.tar"

	// MediaTypeDockerManifest is the Docker schema 2 image manifest.
	MediaTypeDockerManifest = "application/vnd.docker.distribution.manifest.v2+json"

	// MediaTypeDockerLayer is the Docker schema 2 gzip layer.
	MediaTypeDockerLayer = "application/vnd.docker.image.rootfs.diff.tar.gzip"

	// MediaTypeDockerManifestList is the Docker multi-platform manifest list.
	MediaTypeDockerManifestList = "application/vnd.docker.distribution.manifest.list.v2+json"
)

// IsTarLayer reports whether mediaType names a tar layer tarview can read,
// compressed or not.
func IsTarLayer(mediaType string) bool {
	switch mediaType {
	case ocispec.MediaTypeImageLayer,
		ocispec.MediaTypeImageLayerGzip,
		ocispec.MediaTypeImageLayerZstd,
		MediaTypeDockerLayer,
		MediaTypeArchive,
		"application/x-tar":
		return true
	}
	return false
}

func isManifest(mediaType string) bool {
	return mediaType == ocispec.MediaTypeImageManifest || mediaType == MediaTypeDockerManifest
}

func isIndex(mediaType string) bool {
	return mediaType == ocispec.MediaTypeImageIndex || mediaType == MediaTypeDockerManifestList
}
