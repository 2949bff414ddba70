package doctors

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"

	"github.com/redis/go-redis/v9"
)

// Parse decodes a JSON array of profiles into a directory.
func Parse(data []byte) (*Directory, error) {
	var profiles []Profile
	if err := json.Unmarshal(data, &profiles); err != nil {
		return nil, fmt.Errorf("doctors: parse roster: %w", err)
	}
	return NewDirectory(profiles)
}

// LoadFile reads a JSON roster from disk.
func LoadFile(path string) (*Directory, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("doctors: read roster: %w", err)
	}
	return Parse(data)
}

const rosterKey = "doctors:directory"

// Store persists the roster in Redis so every replica starts from the same list.
type Store struct {
	redis *redis.Client
	key   string
}

// NewStore creates a Redis-backed roster store.
func NewStore(client *redis.Client) *Store {
	return &Store{redis: client, key: rosterKey}
}

// Load returns the stored roster. found is false when nothing has been saved yet.
func (s *Store) Load(ctx context.Context) (dir *Directory, found bool, err error) {
	data, err := s.redis.Get(ctx, s.key).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("doctors: load roster: %w", err)
	}
	dir, err = Parse(data)
	if err != nil {
		return nil, true, err
	}
	return dir, true, nil
}

// Save overwrites the stored roster.
func (s *Store) Save(ctx context.Context, dir *Directory) error {
	data, err := json.Marshal(dir.List())
	if err != nil {
		return fmt.Errorf("doctors: marshal roster: %w", err)
	}
	if err := s.redis.Set(ctx, s.key, data, 0).Err(); err != nil {
		return fmt.Errorf("doctors: save roster: %w", err)
	}
	return nil
}
