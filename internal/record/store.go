package record

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/hedgepod/deployer/configs"
)

var ErrRecordNotFound = errors.New("deployment record not found")

type (
	// Store keeps at most one record per network. Save replaces any previous record of the
	// same network as a whole.
	Store interface {
		Save(ctx context.Context, r Record) error
		Load(ctx context.Context, networkID string) (Record, error)
		List(ctx context.Context) ([]string, error)
		Close() error
	}

	// PersistenceError reports a failed storage operation on the record of one network.
	PersistenceError struct {
		Network string
		Op      string
		Err     error
	}
)

func (e *PersistenceError) Error() string {
	return fmt.Sprintf("failed to %s deployment record of network '%s': %v", e.Op, e.Network, e.Err)
}

func (e *PersistenceError) Unwrap() error {
	return e.Err
}

// Open creates the store selected by the records settings.
func Open(settings configs.Records) (Store, error) {
	switch settings.Backend {
	case configs.RecordBackendFile, "":
		return NewFileStore(settings.Dir)
	case configs.RecordBackendBolt:
		return NewBoltStore(settings.BoltPath)
	default:
		return nil, fmt.Errorf("unknown record backend '%s'", settings.Backend)
	}
}

func encode(r Record) ([]byte, error) {
	if err := validateKey(r.Network); err != nil {
		return nil, err
	}

	data, err := json.MarshalIndent(r, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("failed to marshal JSON: %w", err)
	}
	return append(data, '\n'), nil
}

// decode accepts documents written by any schema version: unknown fields are ignored and
// missing ones keep their zero value.
func decode(data []byte) (Record, error) {
	var r Record
	if err := json.Unmarshal(data, &r); err != nil {
		return Record{}, fmt.Errorf("failed to unmarshal JSON: %w", err)
	}
	return r, nil
}

func validateKey(networkID string) error {
	if networkID == "" {
		return errors.New("network identifier is empty")
	}
	if strings.ContainsAny(networkID, `/\`) || networkID == "." || networkID == ".." {
		return fmt.Errorf("network identifier '%s' is not a valid record key", networkID)
	}
	return nil
}
