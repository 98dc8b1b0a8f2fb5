package blob

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"chatrelay/internal/utils"
)

// Ref is the stable reference returned for a stored blob.
type Ref struct {
	URL  string
	Name string
	Size int64
}

// DiskStore stores uploaded blobs on the local filesystem and serves them
// under a public base URL.
type DiskStore struct {
	dir     string
	baseURL string
}

// New creates the upload directory if needed. baseURL is the public prefix
// under which stored blobs are reachable, e.g. "http://host:8080/uploads".
func New(dir, baseURL string) (*DiskStore, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create upload dir: %w", err)
	}

	return &DiskStore{
		dir:     dir,
		baseURL: strings.TrimRight(baseURL, "/"),
	}, nil
}

// Dir returns the directory blobs are written to.
func (s *DiskStore) Dir() string {
	return s.dir
}

// Save writes the blob under a random name, keeping the original extension,
// and returns its public reference. The original name is preserved in the
// reference only, never on disk.
func (s *DiskStore) Save(name string, r io.Reader) (*Ref, error) {
	stored := utils.NewID() + filepath.Ext(name)

	f, err := os.Create(filepath.Join(s.dir, stored))
	if err != nil {
		return nil, fmt.Errorf("create blob: %w", err)
	}

	size, err := io.Copy(f, r)
	if closeErr := f.Close(); err == nil {
		err = closeErr
	}
	if err != nil {
		return nil, fmt.Errorf("write blob: %w", err)
	}

	return &Ref{
		URL:  s.baseURL + "/" + stored,
		Name: name,
		Size: size,
	}, nil
}
