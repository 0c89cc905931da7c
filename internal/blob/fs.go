package blob

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"time"
)

// Filesystem stores objects as files under a root directory. A sidecar file
// with a .meta suffix keeps the content type.
type Filesystem struct {
	root string
}

type fsMeta struct {
	ContentType string    `json:"content_type,omitempty"`
	Size        int64     `json:"size"`
	CreatedAt   time.Time `json:"created_at"`
}

// NewFilesystem returns a store rooted at root, creating it if needed.
func NewFilesystem(root string) (*Filesystem, error) {
	if root == "" {
		root = "./uploads"
	}
	if err := os.MkdirAll(root, 0o755); err != nil {
		return nil, fmt.Errorf("creating blob root: %w", err)
	}
	return &Filesystem{root: root}, nil
}

// Driver returns DriverFilesystem.
func (s *Filesystem) Driver() Driver { return DriverFilesystem }

// sanitizeKey rejects keys that could escape the root.
func sanitizeKey(key string) (string, error) {
	if strings.TrimSpace(key) == "" {
		return "", fmt.Errorf("empty blob key")
	}
	if strings.Contains(key, "..") || strings.HasPrefix(key, "/") || strings.HasSuffix(key, ".meta") {
		return "", fmt.Errorf("invalid blob key %q", key)
	}
	return filepath.Clean(filepath.FromSlash(key)), nil
}

func (s *Filesystem) paths(key string) (data, meta string, err error) {
	k, err := sanitizeKey(key)
	if err != nil {
		return "", "", err
	}
	data = filepath.Join(s.root, k)
	return data, data + ".meta", nil
}

// Put writes a new object through a temp file and rename.
func (s *Filesystem) Put(_ context.Context, key string, r io.Reader, opts PutOptions) (Info, error) {
	dataPath, metaPath, err := s.paths(key)
	if err != nil {
		return Info{}, err
	}
	if _, err := os.Stat(dataPath); err == nil {
		return Info{}, fmt.Errorf("%w: %s", ErrExists, key)
	}
	if err := os.MkdirAll(filepath.Dir(dataPath), 0o755); err != nil {
		return Info{}, fmt.Errorf("creating blob dir: %w", err)
	}

	tmp, err := os.CreateTemp(filepath.Dir(dataPath), ".tmp-*")
	if err != nil {
		return Info{}, fmt.Errorf("creating temp blob: %w", err)
	}
	defer os.Remove(tmp.Name())

	size, err := io.Copy(tmp, r)
	if err != nil {
		tmp.Close()
		return Info{}, fmt.Errorf("writing blob %s: %w", key, err)
	}
	if err := tmp.Close(); err != nil {
		return Info{}, fmt.Errorf("closing blob %s: %w", key, err)
	}
	if err := os.Rename(tmp.Name(), dataPath); err != nil {
		return Info{}, fmt.Errorf("moving blob %s: %w", key, err)
	}

	now := time.Now().UTC()
	meta, _ := json.Marshal(fsMeta{ContentType: opts.ContentType, Size: size, CreatedAt: now})
	if err := os.WriteFile(metaPath, meta, 0o644); err != nil {
		return Info{}, fmt.Errorf("writing blob meta %s: %w", key, err)
	}
	return Info{Key: key, Size: size, ContentType: opts.ContentType, LastModified: now}, nil
}

// Get opens an object for reading.
func (s *Filesystem) Get(_ context.Context, key string) (Info, io.ReadCloser, error) {
	dataPath, metaPath, err := s.paths(key)
	if err != nil {
		return Info{}, nil, err
	}
	f, err := os.Open(dataPath)
	if errors.Is(err, fs.ErrNotExist) {
		return Info{}, nil, fmt.Errorf("%w: %s", ErrNotFound, key)
	}
	if err != nil {
		return Info{}, nil, fmt.Errorf("opening blob %s: %w", key, err)
	}

	info := Info{Key: key}
	if b, err := os.ReadFile(metaPath); err == nil {
		var m fsMeta
		if json.Unmarshal(b, &m) == nil {
			info.ContentType = m.ContentType
			info.Size = m.Size
			info.LastModified = m.CreatedAt
		}
	}
	if info.Size == 0 {
		if st, err := f.Stat(); err == nil {
			info.Size = st.Size()
			info.LastModified = st.ModTime().UTC()
		}
	}
	return info, f, nil
}

// Delete removes an object and its sidecar.
func (s *Filesystem) Delete(_ context.Context, key string) (bool, error) {
	dataPath, metaPath, err := s.paths(key)
	if err != nil {
		return false, err
	}
	if err := os.Remove(dataPath); err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return false, nil
		}
		return false, fmt.Errorf("deleting blob %s: %w", key, err)
	}
	_ = os.Remove(metaPath)
	return true, nil
}
