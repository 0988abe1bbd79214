package record

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/hedgepod/deployer/internal/logger"
	bolt "go.etcd.io/bbolt"
)

const deploymentsBucket = "deployments"

// BoltStore keeps records in a single bbolt database, one key per network.
type BoltStore struct {
	db     *bolt.DB
	logger *slog.Logger
}

func NewBoltStore(path string) (*BoltStore, error) {
	if path == "" {
		return nil, errors.New("bolt database path must not be empty")
	}
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return nil, fmt.Errorf("failed to create directory: %w", err)
	}

	db, err := bolt.Open(path, 0660, &bolt.Options{Timeout: 2 * time.Second})
	if err != nil {
		if errors.Is(err, bolt.ErrTimeout) {
			return nil, errors.New("cannot obtain database lock, database may be in use by another process")
		}
		return nil, fmt.Errorf("failed to open bolt database: %w", err)
	}

	if err := db.Update(func(tx *bolt.Tx) error {
		_, err := tx.CreateBucketIfNotExists([]byte(deploymentsBucket))
		return err
	}); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to create bucket: %w", err)
	}

	return &BoltStore{db: db, logger: logger.Named("bolt_record_store")}, nil
}

func (s *BoltStore) Save(_ context.Context, r Record) error {
	data, err := encode(r)
	if err != nil {
		return &PersistenceError{Network: r.Network, Op: "encode", Err: err}
	}

	err = s.db.Update(func(tx *bolt.Tx) error {
		return tx.Bucket([]byte(deploymentsBucket)).Put([]byte(r.Network), data)
	})
	if err != nil {
		return &PersistenceError{Network: r.Network, Op: "write", Err: err}
	}

	s.logger.With("network", r.Network).Info("deployment record saved")

	return nil
}

func (s *BoltStore) Load(_ context.Context, networkID string) (Record, error) {
	var data []byte
	err := s.db.View(func(tx *bolt.Tx) error {
		// Values are only valid inside the transaction.
		if v := tx.Bucket([]byte(deploymentsBucket)).Get([]byte(networkID)); v != nil {
			data = append([]byte(nil), v...)
		}
		return nil
	})
	if err != nil {
		return Record{}, &PersistenceError{Network: networkID, Op: "read", Err: err}
	}
	if data == nil {
		return Record{}, fmt.Errorf("%w for network '%s'", ErrRecordNotFound, networkID)
	}

	r, err := decode(data)
	if err != nil {
		return Record{}, &PersistenceError{Network: networkID, Op: "decode", Err: err}
	}

	return r, nil
}

// List returns the networks that have a record in key order.
func (s *BoltStore) List(_ context.Context) ([]string, error) {
	ids := make([]string, 0)
	err := s.db.View(func(tx *bolt.Tx) error {
		return tx.Bucket([]byte(deploymentsBucket)).ForEach(func(k, _ []byte) error {
			ids = append(ids, string(k))
			return nil
		})
	})
	if err != nil {
		return nil, fmt.Errorf("failed to list records: %w", err)
	}

	return ids, nil
}

func (s *BoltStore) Close() error {
	return s.db.Close()
}
