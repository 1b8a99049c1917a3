// Package kvstore provides the SDK's durable local key-value storage.
//
// The SDK keeps exactly two entries in it, under documented keys that host
// applications may read or delete directly: the device id and the
// onboarding-completed flag.
package kvstore

import (
	"encoding/json"
	"fmt"
	"os"
	"sync"
)

// Keys of the entries the SDK persists. Hosts resetting onboarding state
// delete KeyCompleted; hosts migrating installs copy KeyDeviceID.
const (
	// KeyDeviceID stores the stable per-installation identifier.
	KeyDeviceID = "onboardkit.device_id"
	// KeyCompleted stores "true" once onboarding has completed.
	KeyCompleted = "onboardkit.completed"
)

// Store is the key-value interface the SDK persists through. Implementations
// must be safe for concurrent use.
type Store interface {
	// Get returns the value for key and whether it was present.
	Get(key string) (string, bool)
	// Set durably records key = value.
	Set(key, value string) error
	// Delete removes key; absent keys are not an error.
	Delete(key string) error
}

// FileStore is a Store backed by a single JSON file.
type FileStore struct {
	path string

	mu     sync.Mutex
	values map[string]string
}

// Open loads the store at path, creating an empty one if the file does not
// exist yet.
func Open(path string) (*FileStore, error) {
	fs := &FileStore{path: path, values: make(map[string]string)}

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return fs, nil
		}
		return nil, fmt.Errorf("read %s: %w", path, err)
	}
	if err := json.Unmarshal(data, &fs.values); err != nil {
		return nil, fmt.Errorf("parse %s: %w", path, err)
	}
	return fs, nil
}

// Get returns the value for key and whether it was present.
func (fs *FileStore) Get(key string) (string, bool) {
	fs.mu.Lock()
	defer fs.mu.Unlock()
	v, ok := fs.values[key]
	return v, ok
}

// Set records key = value and rewrites the backing file.
func (fs *FileStore) Set(key, value string) error {
	fs.mu.Lock()
	defer fs.mu.Unlock()
	fs.values[key] = value
	return fs.save()
}

// Delete removes key and rewrites the backing file.
func (fs *FileStore) Delete(key string) error {
	fs.mu.Lock()
	defer fs.mu.Unlock()
	delete(fs.values, key)
	return fs.save()
}

// save writes the map out; callers hold the mutex.
func (fs *FileStore) save() error {
	data, err := json.Marshal(fs.values)
	if err != nil {
		return fmt.Errorf("encode store: %w", err)
	}
	if err := os.WriteFile(fs.path, data, 0o600); err != nil {
		return fmt.Errorf("write %s: %w", fs.path, err)
	}
	return nil
}
