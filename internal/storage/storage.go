// Package storage manages the files around a segmentation run: staging of
// streamed inputs, output directories, removal of produced files and
// publishing of results to object storage.
package storage

import (
	"context"
	"io"
)

// Storage is the port the job layer uses for everything that touches files
// outside the segmentation engine itself.
type Storage interface {
	// SaveTemp copies data into a file called name, inside a new directory
	// of the work directory, and returns its path.
	SaveTemp(ctx context.Context, name string, data io.Reader) (path string, err error)

	// PrepareDir makes sure dir exists. An empty dir is a no-op.
	PrepareDir(ctx context.Context, dir string) error

	// Cleanup removes the given files. It keeps going when a removal fails
	// and reports the first failure.
	Cleanup(ctx context.Context, paths []string) error

	// Publish uploads the file at path under key and returns its URL.
	// Returns ErrPublishNotConfigured when no object store is configured.
	Publish(ctx context.Context, key, path string) (url string, err error)

	// CanPublish reports whether Publish is backed by an object store.
	CanPublish() bool
}
