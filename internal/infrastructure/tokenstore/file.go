package tokenstore

import (
	"context"
	"encoding/json"
	"errors"
	"io/fs"
	"os"
	"path/filepath"
	"sync"

	"github.com/rs/zerolog"

	"github.com/99minutos/coupon-admin/internal/core/domain"
)

// StorageKey is the well-known key the token is persisted under.
const StorageKey = "access_token"

// File persists the token as {"access_token": "..."} in a JSON document.
type File struct {
	path string
	log  zerolog.Logger
	mu   sync.Mutex
}

// NewFile returns a File store writing to path. The parent directory is created
// lazily on the first Set.
func NewFile(path string, log zerolog.Logger) *File {
	return &File{path: path, log: log}
}

// DefaultPath is $XDG_CONFIG_HOME/couponctl/credentials.json (or the platform equivalent).
func DefaultPath() string {
	dir, err := os.UserConfigDir()
	if err != nil {
		dir = os.TempDir()
	}
	return filepath.Join(dir, "couponctl", "credentials.json")
}

func (f *File) Get(_ context.Context) (domain.Token, bool) {
	f.mu.Lock()
	defer f.mu.Unlock()

	doc, err := f.read()
	if err != nil {
		if !errors.Is(err, fs.ErrNotExist) {
			f.log.Warn().Err(err).Str("path", f.path).Msg("token file unreadable, treating as absent")
		}
		return "", false
	}
	tok := domain.Token(doc[StorageKey])
	return tok, tok != ""
}

func (f *File) Set(_ context.Context, token domain.Token) {
	f.mu.Lock()
	defer f.mu.Unlock()

	doc, err := f.read()
	if err != nil {
		doc = map[string]string{}
	}
	doc[StorageKey] = string(token)
	if err := f.write(doc); err != nil {
		f.log.Warn().Err(err).Str("path", f.path).Msg("failed to persist token")
	}
}

func (f *File) Clear(_ context.Context) {
	f.mu.Lock()
	defer f.mu.Unlock()

	doc, err := f.read()
	if err != nil {
		return
	}
	delete(doc, StorageKey)
	if len(doc) == 0 {
		if err := os.Remove(f.path); err != nil && !errors.Is(err, fs.ErrNotExist) {
			f.log.Warn().Err(err).Str("path", f.path).Msg("failed to remove token file")
		}
		return
	}
	if err := f.write(doc); err != nil {
		f.log.Warn().Err(err).Str("path", f.path).Msg("failed to clear token")
	}
}

func (f *File) IsPresent(ctx context.Context) bool {
	_, ok := f.Get(ctx)
	return ok
}

func (f *File) read() (map[string]string, error) {
	b, err := os.ReadFile(f.path)
	if err != nil {
		return nil, err
	}
	doc := map[string]string{}
	if err := json.Unmarshal(b, &doc); err != nil {
		return nil, err
	}
	return doc, nil
}

// write replaces the file atomically so a crash never leaves a torn document.
func (f *File) write(doc map[string]string) error {
	if err := os.MkdirAll(filepath.Dir(f.path), 0o700); err != nil {
		return err
	}
	b, err := json.Marshal(doc)
	if err != nil {
		return err
	}
	tmp, err := os.CreateTemp(filepath.Dir(f.path), ".credentials-*")
	if err != nil {
		return err
	}
	defer os.Remove(tmp.Name())
	if err := tmp.Chmod(0o600); err != nil {
		tmp.Close()
		return err
	}
	if _, err := tmp.Write(b); err != nil {
		tmp.Close()
		return err
	}
	if err := tmp.Close(); err != nil {
		return err
	}
	return os.Rename(tmp.Name(), f.path)
}
