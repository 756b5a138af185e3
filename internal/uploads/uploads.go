// Package uploads stores receipt files behind a filesystem abstraction so
// the HTTP layer can be tested against an in-memory filesystem.
package uploads

import (
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"io"
	"path"

	"github.com/spf13/afero"
)

// storageNameBytes is the entropy of a generated storage filename; the
// name is the hex encoding, so twice this many characters. The name is
// never derived from client input, which rules out path traversal and
// collisions with other uploads.
const storageNameBytes = 25

// RandomFilename returns a new collision-resistant storage filename.
func RandomFilename() (string, error) {
	b := make([]byte, storageNameBytes)
	if _, err := rand.Read(b); err != nil {
		return "", err
	}
	return hex.EncodeToString(b), nil
}

// Store writes and reads receipt files under a single root directory.
type Store struct {
	fs   afero.Fs
	root string
}

// NewStore creates the root directory if needed.
func NewStore(fs afero.Fs, root string) (*Store, error) {
	if err := fs.MkdirAll(root, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create upload dir: %w", err)
	}
	return &Store{fs: fs, root: root}, nil
}

// Write stores the full contents of r under the given storage name. A
// failed write removes the partial file and reports the error, so callers
// can refuse to persist metadata pointing at a broken file.
func (s *Store) Write(name string, r io.Reader) error {
	p := path.Join(s.root, name)

	f, err := s.fs.Create(p)
	if err != nil {
		return fmt.Errorf("failed to create receipt file: %w", err)
	}

	if _, err := io.Copy(f, r); err != nil {
		f.Close()
		_ = s.fs.Remove(p)
		return fmt.Errorf("failed to write receipt file: %w", err)
	}
	if err := f.Close(); err != nil {
		_ = s.fs.Remove(p)
		return fmt.Errorf("failed to flush receipt file: %w", err)
	}
	return nil
}

// ReadStream opens the stored file for reading.
func (s *Store) ReadStream(name string) (io.ReadCloser, error) {
	f, err := s.fs.Open(path.Join(s.root, name))
	if err != nil {
		return nil, fmt.Errorf("failed to open receipt file: %w", err)
	}
	return f, nil
}
