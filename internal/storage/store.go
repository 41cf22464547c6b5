package storage

import (
	"context"
	"fmt"
	"path"
	"strings"
)

// ObjectStore abstracts the minimal object-store operations the pipeline and
// loader need. Writes are whole-object: a Put either lands completely or
// fails before the marker is written.
type ObjectStore interface {
	Put(ctx context.Context, key string, data []byte, contentType string) error
	Get(ctx context.Context, key string) ([]byte, error)
	Exists(ctx context.Context, key string) (bool, error)

	// List returns all object keys under prefix, sorted.
	List(ctx context.Context, prefix string) ([]string, error)
}

// MarkerKey builds the completion-marker key for an archive extracted under
// prefix. An empty stem yields the bare ".extracted" sentinel used by the
// PGFN layout; otherwise the marker is ".<stem>.extracted" with the archive
// extension stripped.
func MarkerKey(prefix, stem string) string {
	if stem == "" {
		return path.Join(prefix, ".extracted")
	}
	stem = strings.TrimSuffix(stem, path.Ext(stem))
	return path.Join(prefix, fmt.Sprintf(".%s.extracted", stem))
}

// IsMarker reports whether key names a completion marker rather than data.
func IsMarker(key string) bool {
	return strings.HasSuffix(key, ".extracted") && strings.HasPrefix(path.Base(key), ".")
}

// HasMarker checks the completion marker for (prefix, stem).
func HasMarker(ctx context.Context, store ObjectStore, prefix, stem string) (bool, error) {
	return store.Exists(ctx, MarkerKey(prefix, stem))
}

// WriteMarker records that every table extracted from the archive is durably
// persisted. The body carries the source archive's checksum for auditing;
// presence alone is what the pipeline checks.
func WriteMarker(ctx context.Context, store ObjectStore, prefix, stem, archiveChecksum string) error {
	body := "extracted"
	if archiveChecksum != "" {
		body = archiveChecksum
	}
	return store.Put(ctx, MarkerKey(prefix, stem), []byte(body), "text/plain")
}
