package persistence

import (
	"errors"
	"fmt"

	"github.com/cockroachdb/pebble"
	"github.com/rs/zerolog"
)

const keyPrefix = "snapshot:"

// PebbleStore is the key-value snapshot service backed by an embedded
// pebble database. Values are whole-document snapshots; the later write
// for a key simply overwrites the earlier one.
type PebbleStore struct {
	db  *pebble.DB
	log zerolog.Logger
}

// Open opens (or creates) the pebble database at path.
func Open(path string, log zerolog.Logger) (*PebbleStore, error) {
	db, err := pebble.Open(path, &pebble.Options{})
	if err != nil {
		return nil, fmt.Errorf("open pebble db at %q: %w", path, err)
	}
	log.Info().Str("path", path).Msg("persistence opened")
	return &PebbleStore{
		db:  db,
		log: log.With().Str("component", "persistence").Logger(),
	}, nil
}

// Save writes the snapshot for key, replacing any previous value.
func (s *PebbleStore) Save(key string, value []byte) error {
	if err := s.db.Set([]byte(keyPrefix+key), value, pebble.Sync); err != nil {
		return fmt.Errorf("save %q: %w", key, err)
	}
	return nil
}

// Load returns the last snapshot for key. The second return value is
// false when no snapshot exists.
func (s *PebbleStore) Load(key string) ([]byte, bool, error) {
	v, closer, err := s.db.Get([]byte(keyPrefix + key))
	if errors.Is(err, pebble.ErrNotFound) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("load %q: %w", key, err)
	}
	defer closer.Close()

	out := make([]byte, len(v))
	copy(out, v)
	return out, true, nil
}

// Close closes the underlying database.
func (s *PebbleStore) Close() error {
	if err := s.db.Close(); err != nil {
		return err
	}
	s.log.Info().Msg("persistence closed")
	return nil
}
