package record

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/hedgepod/deployer/internal/logger"
)

const fileExt = ".json"

// FileStore keeps each record in <dir>/<network>.json.
type FileStore struct {
	dir    string
	logger *slog.Logger
}

func NewFileStore(dir string) (*FileStore, error) {
	if dir == "" {
		return nil, errors.New("records directory must not be empty")
	}
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create directory: %w", err)
	}

	return &FileStore{dir: dir, logger: logger.Named("file_record_store")}, nil
}

// Save writes the record to a temporary file and renames it over the previous one, so readers
// observe either the old or the new record in full.
func (s *FileStore) Save(_ context.Context, r Record) error {
	data, err := encode(r)
	if err != nil {
		return &PersistenceError{Network: r.Network, Op: "encode", Err: err}
	}

	tmp, err := os.CreateTemp(s.dir, "."+r.Network+"-*.tmp")
	if err != nil {
		return &PersistenceError{Network: r.Network, Op: "write", Err: err}
	}
	defer os.Remove(tmp.Name())

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return &PersistenceError{Network: r.Network, Op: "write", Err: err}
	}
	if err := tmp.Sync(); err != nil {
		tmp.Close()
		return &PersistenceError{Network: r.Network, Op: "write", Err: err}
	}
	if err := tmp.Close(); err != nil {
		return &PersistenceError{Network: r.Network, Op: "write", Err: err}
	}

	path := s.path(r.Network)
	if err := os.Rename(tmp.Name(), path); err != nil {
		return &PersistenceError{Network: r.Network, Op: "write", Err: err}
	}

	s.logger.With("network", r.Network).With("path", path).Info("deployment record saved")

	return nil
}

func (s *FileStore) Load(_ context.Context, networkID string) (Record, error) {
	if err := validateKey(networkID); err != nil {
		return Record{}, &PersistenceError{Network: networkID, Op: "read", Err: err}
	}

	data, err := os.ReadFile(s.path(networkID))
	if errors.Is(err, fs.ErrNotExist) {
		return Record{}, fmt.Errorf("%w for network '%s'", ErrRecordNotFound, networkID)
	}
	if err != nil {
		return Record{}, &PersistenceError{Network: networkID, Op: "read", Err: err}
	}

	r, err := decode(data)
	if err != nil {
		return Record{}, &PersistenceError{Network: networkID, Op: "decode", Err: err}
	}

	return r, nil
}

// List returns the networks that have a record, sorted by identifier.
func (s *FileStore) List(_ context.Context) ([]string, error) {
	entries, err := os.ReadDir(s.dir)
	if err != nil {
		return nil, fmt.Errorf("failed to read records directory: %w", err)
	}

	var ids []string
	for _, e := range entries {
		name := e.Name()
		if e.IsDir() || strings.HasPrefix(name, ".") || filepath.Ext(name) != fileExt {
			continue
		}
		ids = append(ids, strings.TrimSuffix(name, fileExt))
	}
	sort.Strings(ids)

	return ids, nil
}

func (s *FileStore) Close() error {
	return nil
}

func (s *FileStore) path(networkID string) string {
	return filepath.Join(s.dir, networkID+fileExt)
}
