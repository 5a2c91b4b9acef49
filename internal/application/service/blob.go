package service

import (
	"context"
	"errors"
	"io"
)

var ErrBlobNotFound = errors.New("blob not found")

// BlobStore holds profile picture bytes under slash-separated keys such as
// "uploads/profile-pictures/7/<uuid>_avatar.png".
type BlobStore interface {
	// Put stores the content and returns the public URL for key.
	Put(ctx context.Context, key string, content io.Reader) (string, error)
	// Delete removes key. Deleting a missing key succeeds.
	Delete(ctx context.Context, key string) error
	Exists(ctx context.Context, key string) (bool, error)
	// KeyFromURL maps a URL produced by Put back to its key. It reports false
	// for URLs this store did not issue.
	KeyFromURL(url string) (string, bool)
}
