package profile

import (
	"bytes"
	"context"
	"errors"
	"image"
	"image/color"
	"image/png"
	"io"
	"strings"
	"sync"
	"testing"

	"github.com/networkpro/user-service/internal/application/service"
	"github.com/networkpro/user-service/internal/domain/profile"
)

// fakeBlobStore keeps blobs in a map and can be told to fail.
type fakeBlobStore struct {
	mu        sync.Mutex
	blobs     map[string][]byte
	putErr    error
	deleteErr error
	deletes   []string
}

func newFakeBlobStore() *fakeBlobStore {
	return &fakeBlobStore{blobs: make(map[string][]byte)}
}

func (f *fakeBlobStore) Put(ctx context.Context, key string, content io.Reader) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.putErr != nil {
		return "", f.putErr
	}
	data, err := io.ReadAll(content)
	if err != nil {
		return "", err
	}
	f.blobs[key] = data
	return "/" + key, nil
}

func (f *fakeBlobStore) Delete(ctx context.Context, key string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.deletes = append(f.deletes, key)
	if f.deleteErr != nil {
		return f.deleteErr
	}
	delete(f.blobs, key)
	return nil
}

func (f *fakeBlobStore) Exists(ctx context.Context, key string) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	_, ok := f.blobs[key]
	return ok, nil
}

func (f *fakeBlobStore) KeyFromURL(url string) (string, bool) {
	if !strings.HasPrefix(url, "/") {
		return "", false
	}
	return strings.TrimPrefix(url, "/"), true
}

func (f *fakeBlobStore) keys() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]string, 0, len(f.blobs))
	for k := range f.blobs {
		out = append(out, k)
	}
	return out
}

func (f *fakeBlobStore) seed(key string) string {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.blobs[key] = []byte("x")
	return "/" + key
}

type recordingPublisher struct {
	mu     sync.Mutex
	events []service.ProfileEvent
}

func (r *recordingPublisher) PublishProfileEvent(ctx context.Context, evt service.ProfileEvent) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, evt)
	return nil
}

func (r *recordingPublisher) has(eventType service.ProfileEventType) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, e := range r.events {
		if e.EventType == eventType {
			return true
		}
	}
	return false
}

func (r *recordingPublisher) find(eventType service.ProfileEventType) (service.ProfileEvent, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, e := range r.events {
		if e.EventType == eventType {
			return e, true
		}
	}
	return service.ProfileEvent{}, false
}

type mapCache struct {
	mu       sync.Mutex
	rows     map[int64]*profile.UserProfile
	versions map[int64]int64
}

func newMapCache() *mapCache {
	return &mapCache{rows: make(map[int64]*profile.UserProfile), versions: make(map[int64]int64)}
}

func (c *mapCache) Get(ctx context.Context, id int64) (*profile.UserProfile, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	p, ok := c.rows[id]
	if !ok {
		return nil, false
	}
	return p.Clone(), true
}

func (c *mapCache) Version(ctx context.Context, id int64) int64 {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.versions[id]
}

func (c *mapCache) Set(ctx context.Context, p *profile.UserProfile, version int64) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if version != c.versions[p.ID] {
		return
	}
	c.rows[p.ID] = p.Clone()
}

func (c *mapCache) Invalidate(ctx context.Context, id int64) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.versions[id]++
	delete(c.rows, id)
}

func (c *mapCache) cached(id int64) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	_, ok := c.rows[id]
	return ok
}

func pngBytes(t *testing.T) []byte {
	t.Helper()
	img := image.NewRGBA(image.Rect(0, 0, 2, 2))
	img.Set(0, 0, color.RGBA{R: 255, A: 255})
	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		t.Fatalf("encode png: %v", err)
	}
	return buf.Bytes()
}

var errBlobDown = errors.New("blob store unavailable")
