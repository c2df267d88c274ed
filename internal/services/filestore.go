package services

import (
	"crypto/rand"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/oklog/ulid/v2"
)

// FileStore keeps uploaded audio on local disk.
type FileStore struct {
	dir string
	now func() time.Time

	mu      sync.Mutex
	entropy *ulid.MonotonicEntropy
}

func NewFileStore(dir string) *FileStore {
	return &FileStore{
		dir:     dir,
		now:     time.Now,
		entropy: ulid.Monotonic(rand.Reader, 0),
	}
}

// StoredFile describes a saved upload.
type StoredFile struct {
	FileName string
	Path     string
	Size     int64
}

// Save writes r under a generated name "<ulid>_<unix><ext>", keeping the
// extension of originalName.
func (s *FileStore) Save(r io.Reader, originalName string) (*StoredFile, error) {
	if err := os.MkdirAll(s.dir, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create upload dir: %w", err)
	}

	now := s.now()
	s.mu.Lock()
	id, err := ulid.New(ulid.Timestamp(now), s.entropy)
	s.mu.Unlock()
	if err != nil {
		return nil, fmt.Errorf("failed to generate file id: %w", err)
	}

	ext := strings.ToLower(filepath.Ext(originalName))
	name := fmt.Sprintf("%s_%d%s", id.String(), now.Unix(), ext)
	path := filepath.Join(s.dir, name)

	f, err := os.OpenFile(path, os.O_CREATE|os.O_EXCL|os.O_WRONLY, 0o644)
	if err != nil {
		return nil, fmt.Errorf("failed to create file: %w", err)
	}
	size, err := io.Copy(f, r)
	if closeErr := f.Close(); err == nil {
		err = closeErr
	}
	if err != nil {
		_ = os.Remove(path)
		return nil, fmt.Errorf("failed to write file: %w", err)
	}

	return &StoredFile{FileName: name, Path: path, Size: size}, nil
}

// Open returns a reader for a stored path. Paths outside the store are rejected.
func (s *FileStore) Open(path string) (*os.File, error) {
	if err := s.contains(path); err != nil {
		return nil, err
	}
	return os.Open(path)
}

// Remove deletes a stored file. A missing file is not an error.
func (s *FileStore) Remove(path string) error {
	if err := s.contains(path); err != nil {
		return err
	}
	if err := os.Remove(path); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("failed to remove file: %w", err)
	}
	return nil
}

func (s *FileStore) contains(path string) error {
	dir, err := filepath.Abs(s.dir)
	if err != nil {
		return err
	}
	abs, err := filepath.Abs(path)
	if err != nil {
		return err
	}
	if !strings.HasPrefix(abs, dir+string(filepath.Separator)) {
		return fmt.Errorf("path %q is outside the upload dir", path)
	}
	return nil
}
