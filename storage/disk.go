package storage

import (
	"context"
	"errors"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"syscall"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/zeebo/errs"

	"tweetty/domain"
)

// Error is the default media storage error class.
var Error = errs.Class("media storage")

// DiskConfig configures a DiskStore.
type DiskConfig struct {
	// Root is the directory all media files are stored under.
	Root string
	// URLPrefix is the public path the Root directory is served under.
	URLPrefix string
	// WriteRetries is how many times a write is retried after a transient failure.
	WriteRetries int
	// RetryInterval is the first backoff interval between write attempts.
	RetryInterval time.Duration
}

// DiskStore stores media files in the local filesystem.
// A file with key "someone/medias/a.png" is stored in {Root}/someone/medias/a.png
// and publicly reachable at {URLPrefix}/someone/medias/a.png.
type DiskStore struct {
	config DiskConfig
}

// Ensure the DiskStore struct properly implements the domain.MediaStore interface.
var _ domain.MediaStore = &DiskStore{}

// NewDiskStore returns an instance of DiskStore.
func NewDiskStore(config DiskConfig) *DiskStore {
	if config.RetryInterval <= 0 {
		config.RetryInterval = 50 * time.Millisecond
	}
	config.URLPrefix = strings.TrimRight(config.URLPrefix, "/")
	return &DiskStore{config: config}
}

// Path returns the filesystem path of the file stored under key.
func (ds *DiskStore) Path(key string) string {
	return filepath.Join(ds.config.Root, filepath.FromSlash(key))
}

// Put writes data to the file stored under key, creating parent directories
// as needed. The data goes to a temp file under Root first, which is then
// linked into place. An existing file is never overwritten. Transient failures (the
// destination being busy or already present) are retried with exponential
// backoff, up to WriteRetries times.
func (ds *DiskStore) Put(ctx context.Context, key string, data []byte) error {
	path := ds.Path(key)
	op := func() error {
		err := ds.writeFile(path, data)
		if err != nil && !isContention(err) {
			return backoff.Permanent(err)
		}
		return err
	}

	b := backoff.NewExponentialBackOff()
	b.InitialInterval = ds.config.RetryInterval
	retries := backoff.WithMaxRetries(b, uint64(ds.config.WriteRetries))

	return Error.Wrap(backoff.Retry(op, backoff.WithContext(retries, ctx)))
}

// Delete removes the file stored under key. A missing file is not an error.
func (ds *DiskStore) Delete(ctx context.Context, key string) error {
	err := os.Remove(ds.Path(key))
	if err != nil && !errors.Is(err, fs.ErrNotExist) {
		return Error.Wrap(err)
	}
	return nil
}

// URL returns the public URL of the file stored under key.
func (ds *DiskStore) URL(key string) string {
	return ds.config.URLPrefix + "/" + key
}

// tempDir is the directory under Root that files are written to before
// they are linked into place.
const tempDir = ".tmp"

// writeFile writes data to a temp file first and then links it to path, so
// that a file is never visible half written. An existing file at path is
// never replaced, linking fails with fs.ErrExist instead. The temp file is
// always removed.
func (ds *DiskStore) writeFile(path string, data []byte) error {
	tmpDir := filepath.Join(ds.config.Root, tempDir)
	if err := os.MkdirAll(tmpDir, 0755); err != nil {
		return err
	}
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return err
	}

	tmp, err := os.CreateTemp(tmpDir, "upload-*")
	if err != nil {
		return err
	}
	defer func() { _ = os.Remove(tmp.Name()) }()

	_, err = tmp.Write(data)
	if err == nil {
		err = tmp.Sync()
	}
	if closeErr := tmp.Close(); err == nil {
		err = closeErr
	}
	if err != nil {
		return err
	}
	return os.Link(tmp.Name(), path)
}

// isContention reports whether err is a filesystem error worth retrying.
func isContention(err error) bool {
	return errors.Is(err, fs.ErrExist) ||
		errors.Is(err, syscall.EBUSY) ||
		errors.Is(err, syscall.EAGAIN) ||
		errors.Is(err, syscall.ETXTBSY)
}
