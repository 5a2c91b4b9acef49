package media_storage

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path"
	"strings"

	"github.com/spf13/afero"

	"github.com/networkpro/user-service/internal/application/service"
)

type localBlobStore struct {
	fs afero.Fs
}

// NewLocalBlobStore keeps blobs as files in fs, normally an afero.BasePathFs
// rooted at the served directory. A key's URL is "/" + key.
func NewLocalBlobStore(fs afero.Fs) service.BlobStore {
	return &localBlobStore{fs: fs}
}

func validKey(key string) bool {
	return key != "" && !strings.HasPrefix(key, "/") && path.Clean(key) == key && !strings.HasPrefix(key, "..")
}

func (s *localBlobStore) Put(ctx context.Context, key string, content io.Reader) (string, error) {
	if !validKey(key) {
		return "", fmt.Errorf("invalid blob key %q", key)
	}
	if err := ctx.Err(); err != nil {
		return "", err
	}

	dir := path.Dir(key)
	if err := s.fs.MkdirAll(dir, 0o755); err != nil {
		return "", fmt.Errorf("failed to create blob directory: %w", err)
	}

	// write to a temp file in the same directory, then rename into place
	tmp, err := afero.TempFile(s.fs, dir, ".upload-*")
	if err != nil {
		return "", fmt.Errorf("failed to create temp blob: %w", err)
	}
	tmpName := tmp.Name()

	if _, err := io.Copy(tmp, content); err != nil {
		tmp.Close()
		s.fs.Remove(tmpName)
		return "", fmt.Errorf("failed to write blob: %w", err)
	}
	if err := tmp.Close(); err != nil {
		s.fs.Remove(tmpName)
		return "", fmt.Errorf("failed to close blob: %w", err)
	}
	if err := s.fs.Rename(tmpName, key); err != nil {
		s.fs.Remove(tmpName)
		return "", fmt.Errorf("failed to move blob into place: %w", err)
	}
	return "/" + key, nil
}

func (s *localBlobStore) Delete(ctx context.Context, key string) error {
	if !validKey(key) {
		return fmt.Errorf("invalid blob key %q", key)
	}
	if err := s.fs.Remove(key); err != nil && !errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("failed to delete blob: %w", err)
	}
	return nil
}

func (s *localBlobStore) Exists(ctx context.Context, key string) (bool, error) {
	if !validKey(key) {
		return false, nil
	}
	info, err := s.fs.Stat(key)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return false, nil
		}
		return false, err
	}
	return !info.IsDir(), nil
}

func (s *localBlobStore) KeyFromURL(url string) (string, bool) {
	if !strings.HasPrefix(url, "/") || strings.HasPrefix(url, "//") {
		return "", false
	}
	key := strings.TrimPrefix(url, "/")
	if !validKey(key) {
		return "", false
	}
	return key, true
}
