// Package localstore persists the client-side working set as two
// independent keyed blobs (users and requests), mirrored wholesale on every
// mutation so the application is usable before any network round trip.
package localstore

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"github.com/ondutypro/onduty-api/internal/models"
)

const (
	usersFile    = "users.json"
	requestsFile = "requests.json"
)

// Store is a file-backed cache for entity collections.
type Store struct {
	dir string
	mu  sync.Mutex
}

// New creates the store, ensuring the backing directory exists.
func New(dir string) (*Store, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create local store dir: %w", err)
	}
	return &Store{dir: dir}, nil
}

// LoadRequests reads the requests blob. A missing file yields an empty set.
func (s *Store) LoadRequests() ([]models.Request, error) {
	var requests []models.Request
	if err := s.load(requestsFile, &requests); err != nil {
		return nil, err
	}
	return requests, nil
}

// SaveRequests replaces the requests blob.
func (s *Store) SaveRequests(requests []models.Request) error {
	return s.save(requestsFile, requests)
}

// LoadUsers reads the users blob. A missing file yields an empty set.
func (s *Store) LoadUsers() ([]models.User, error) {
	var users []models.User
	if err := s.load(usersFile, &users); err != nil {
		return nil, err
	}
	return users, nil
}

// SaveUsers replaces the users blob.
func (s *Store) SaveUsers(users []models.User) error {
	return s.save(usersFile, users)
}

func (s *Store) load(name string, dest interface{}) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	raw, err := os.ReadFile(filepath.Join(s.dir, name))
	if err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return fmt.Errorf("read %s: %w", name, err)
	}
	if len(raw) == 0 {
		return nil
	}
	if err := json.Unmarshal(raw, dest); err != nil {
		return fmt.Errorf("decode %s: %w", name, err)
	}
	return nil
}

// save writes the whole blob through a temp file and rename so a crash never
// leaves a truncated cache behind.
func (s *Store) save(name string, value interface{}) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	payload, err := json.Marshal(value)
	if err != nil {
		return fmt.Errorf("encode %s: %w", name, err)
	}

	path := filepath.Join(s.dir, name)
	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, payload, 0o644); err != nil {
		return fmt.Errorf("write %s: %w", name, err)
	}
	if err := os.Rename(tmp, path); err != nil {
		return fmt.Errorf("replace %s: %w", name, err)
	}
	return nil
}
