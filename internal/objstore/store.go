// Package objstore gives uniform, defensive access to a remote object
// store with local-filesystem fallback for reads. Remote storage is an
// optional accelerator, not a hard dependency: every operation degrades
// to a false/empty result instead of returning an error, and only
// genuine infrastructure failures reach the error log. A miss on a key
// that was never written is expected steady-state behavior and stays
// silent.
package objstore

import (
	"context"
	"encoding/json"
	"errors"
	"os"
	"strings"
	"sync"
	"time"

	"github.com/sirupsen/logrus"

	"wikistore/internal/config"
)

// Entry describes one stored object returned by List.
type Entry struct {
	Key          string
	LastModified *time.Time
	Size         int64
}

// Store is safe for concurrent use. The remote client handle is built
// once on first remote call and reused for the process lifetime.
type Store struct {
	cfg *config.Config
	log logrus.FieldLogger

	clientOnce sync.Once
	client     *s3Client
	clientErr  error
}

func New(cfg *config.Config, log logrus.FieldLogger) *Store {
	return &Store{cfg: cfg, log: log}
}

// Enabled reports whether remote operations are active. When it is
// false every remote operation is a silent no-op.
func (s *Store) Enabled() bool {
	return s.cfg.Enabled()
}

// Key joins the configured prefix with the given path segments using
// "/". Empty segments are dropped, backslashes become slashes, and the
// result carries no leading, trailing, or doubled slashes. With no
// segments the prefix alone is returned.
func (s *Store) Key(parts ...string) string {
	cleaned := make([]string, 0, len(parts)+1)
	if prefix := strings.Trim(s.cfg.S3.Prefix, "/"); prefix != "" {
		cleaned = append(cleaned, prefix)
	}
	for _, part := range parts {
		for _, segment := range strings.Split(strings.ReplaceAll(part, "\\", "/"), "/") {
			if segment == "" {
				continue
			}
			cleaned = append(cleaned, segment)
		}
	}
	return strings.Join(cleaned, "/")
}

func (s *Store) remote() (*s3Client, error) {
	s.clientOnce.Do(func() {
		if s.client != nil {
			return
		}
		s.client, s.clientErr = newS3Client(context.Background(), s.cfg.S3)
	})
	if s.clientErr != nil {
		return nil, s.clientErr
	}
	return s.client, nil
}

// Exists reports whether key is present remotely. Not-found stays
// silent; any other failure is logged and reported as absent.
func (s *Store) Exists(ctx context.Context, key string) bool {
	if !s.Enabled() {
		return false
	}
	client, err := s.remote()
	if err != nil {
		s.logFailure(key, err, "connect to object store")
		return false
	}
	err = client.head(ctx, key)
	if err == nil {
		return true
	}
	if !errors.Is(err, errNotFound) {
		s.logFailure(key, err, "check object existence")
	}
	return false
}

// ReadJSON fetches and decodes the JSON document at key. It returns nil
// when the store is disabled, the key is absent, or anything fails.
func (s *Store) ReadJSON(ctx context.Context, key string) map[string]interface{} {
	if !s.Enabled() {
		return nil
	}
	client, err := s.remote()
	if err != nil {
		s.logFailure(key, err, "connect to object store")
		return nil
	}
	data, err := client.get(ctx, key)
	if err != nil {
		if !errors.Is(err, errNotFound) {
			s.logFailure(key, err, "read json object")
		}
		return nil
	}
	var doc map[string]interface{}
	if err := json.Unmarshal(data, &doc); err != nil {
		s.logFailure(key, err, "decode json object")
		return nil
	}
	return doc
}

// WriteJSON stores doc as a JSON object at key.
func (s *Store) WriteJSON(ctx context.Context, key string, doc interface{}) bool {
	if !s.Enabled() {
		return false
	}
	payload, err := json.Marshal(doc)
	if err != nil {
		s.logFailure(key, err, "encode json object")
		return false
	}
	client, err := s.remote()
	if err != nil {
		s.logFailure(key, err, "connect to object store")
		return false
	}
	if err := client.put(ctx, key, payload); err != nil {
		s.logFailure(key, err, "write json object")
		return false
	}
	return true
}

// Download fetches the object at key into localPath, creating parent
// directories as needed.
func (s *Store) Download(ctx context.Context, key, localPath string) bool {
	if !s.Enabled() {
		return false
	}
	client, err := s.remote()
	if err != nil {
		s.logFailure(key, err, "connect to object store")
		return false
	}
	if err := client.getToFile(ctx, key, localPath); err != nil {
		if !errors.Is(err, errNotFound) {
			s.logFailure(key, err, "download object")
		}
		return false
	}
	return true
}

// Upload stores the file at localPath under key. A missing source file
// returns false without a remote call.
func (s *Store) Upload(ctx context.Context, localPath, key string) bool {
	if !s.Enabled() {
		return false
	}
	if _, err := os.Stat(localPath); err != nil {
		return false
	}
	client, err := s.remote()
	if err != nil {
		s.logFailure(key, err, "connect to object store")
		return false
	}
	if err := client.putFile(ctx, localPath, key); err != nil {
		s.logFailure(key, err, "upload object")
		return false
	}
	return true
}

// Delete removes the object at key. Deleting a missing key succeeds.
func (s *Store) Delete(ctx context.Context, key string) bool {
	if !s.Enabled() {
		return false
	}
	client, err := s.remote()
	if err != nil {
		s.logFailure(key, err, "connect to object store")
		return false
	}
	if err := client.remove(ctx, key); err != nil {
		s.logFailure(key, err, "delete object")
		return false
	}
	return true
}

// List enumerates every object under prefix, paging through all results.
// A page failure is logged and the entries fetched before it are
// returned.
func (s *Store) List(ctx context.Context, prefix string) []Entry {
	if !s.Enabled() {
		return []Entry{}
	}
	client, err := s.remote()
	if err != nil {
		s.logFailure(prefix, err, "connect to object store")
		return []Entry{}
	}
	entries, err := client.list(ctx, prefix)
	if err != nil {
		s.logFailure(prefix, err, "list objects")
	}
	if entries == nil {
		entries = []Entry{}
	}
	return entries
}

// EnsureLocal guarantees localPath exists, downloading the object at key
// on a local miss. An existing local file short-circuits with no remote
// call.
func (s *Store) EnsureLocal(ctx context.Context, localPath, key string) bool {
	if _, err := os.Stat(localPath); err == nil {
		return true
	}
	if !s.Enabled() {
		return false
	}
	if !s.Exists(ctx, key) {
		return false
	}
	return s.Download(ctx, key, localPath)
}

func (s *Store) logFailure(key string, err error, action string) {
	s.log.WithField("key", key).WithError(err).Errorf("objstore: %s failed", action)
}

// TimestampMillis converts a remote last-modified timestamp to integer
// milliseconds since the epoch. Nil or zero timestamps report absent.
func TimestampMillis(t *time.Time) (int64, bool) {
	if t == nil || t.IsZero() {
		return 0, false
	}
	return t.UnixMilli(), true
}
