// Package store is the key-value persistence layer shared by the catalog and the session.
package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
)

const (
	KeyCurrentUser = "currentUser"
	KeyTaskCatalog = "taskCatalog"
)

// ErrNotFound is returned when a key has never been written or was deleted.
var ErrNotFound = errors.New("key not found")

// Store persists opaque values by key.
type Store interface {
	Get(ctx context.Context, key string) ([]byte, error)
	Put(ctx context.Context, key string, value []byte) error
	Delete(ctx context.Context, key string) error
}

// AccountKey is where a user's snapshot is kept between sessions.
func AccountKey(email string) string {
	return "account:" + email
}

// OfferwallTasksKey caches generated tasks for a provider.
func OfferwallTasksKey(providerID string) string {
	return "offerwallTasks:" + providerID
}

// GetJSON decodes the value at key into out.
func GetJSON(ctx context.Context, s Store, key string, out any) error {
	data, err := s.Get(ctx, key)
	if err != nil {
		return err
	}
	if err := json.Unmarshal(data, out); err != nil {
		return fmt.Errorf("decode %s: %w", key, err)
	}
	return nil
}

// PutJSON encodes v and writes it at key.
func PutJSON(ctx context.Context, s Store, key string, v any) error {
	data, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("encode %s: %w", key, err)
	}
	return s.Put(ctx, key, data)
}
