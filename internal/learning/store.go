package learning

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"regexp"

	"github.com/dgraph-io/badger/v4"
	"github.com/goccy/go-json"
)

// ErrInvalidUser is returned for user ids that cannot be used as a key.
var ErrInvalidUser = errors.New("invalid user id")

var userPattern = regexp.MustCompile(`^[A-Za-z0-9][A-Za-z0-9._@-]{0,127}$`)

func validUser(user string) error {
	if !userPattern.MatchString(user) {
		return fmt.Errorf("%w: %q", ErrInvalidUser, user)
	}
	return nil
}

// ProfileStore persists profiles. Load returns an empty profile for unknown users.
type ProfileStore interface {
	Load(ctx context.Context, user string) (Profile, error)
	Save(ctx context.Context, user string, p Profile) error
}

// FileStore keeps one JSON file per user under a directory.
type FileStore struct {
	dir string
}

// NewFileStore creates a file store rooted at dir.
func NewFileStore(dir string) *FileStore {
	return &FileStore{dir: dir}
}

func (s *FileStore) path(user string) string {
	return filepath.Join(s.dir, user+".json")
}

// Load reads a user's profile.
func (s *FileStore) Load(ctx context.Context, user string) (Profile, error) {
	if err := validUser(user); err != nil {
		return Profile{}, err
	}

	data, err := os.ReadFile(s.path(user))
	if errors.Is(err, os.ErrNotExist) {
		return NewProfile(), nil
	}
	if err != nil {
		return Profile{}, fmt.Errorf("failed to read profile: %w", err)
	}

	return decodeProfile(data)
}

// Save writes a user's profile atomically.
func (s *FileStore) Save(ctx context.Context, user string, p Profile) error {
	if err := validUser(user); err != nil {
		return err
	}

	data, err := json.MarshalIndent(p, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal profile: %w", err)
	}

	if err := os.MkdirAll(s.dir, 0755); err != nil {
		return fmt.Errorf("failed to create profile directory: %w", err)
	}

	tmp, err := os.CreateTemp(s.dir, user+".*.tmp")
	if err != nil {
		return fmt.Errorf("failed to create temp file: %w", err)
	}
	tmpPath := tmp.Name()

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmpPath)
		return fmt.Errorf("failed to write profile: %w", err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpPath)
		return fmt.Errorf("failed to write profile: %w", err)
	}

	if err := os.Rename(tmpPath, s.path(user)); err != nil {
		os.Remove(tmpPath)
		return fmt.Errorf("failed to replace profile: %w", err)
	}
	return nil
}

const profileKeyPrefix = "profile:"

// BadgerStore keeps profiles in a BadgerDB database.
type BadgerStore struct {
	db *badger.DB
}

// NewBadgerStore wraps an open database.
func NewBadgerStore(db *badger.DB) *BadgerStore {
	return &BadgerStore{db: db}
}

// OpenBadgerStore opens (or creates) a database in dir.
func OpenBadgerStore(dir string) (*BadgerStore, error) {
	opts := badger.DefaultOptions(dir).WithLogger(nil)
	db, err := badger.Open(opts)
	if err != nil {
		return nil, fmt.Errorf("open profile db: %w", err)
	}
	return &BadgerStore{db: db}, nil
}

// Load reads a user's profile.
func (s *BadgerStore) Load(ctx context.Context, user string) (Profile, error) {
	if err := validUser(user); err != nil {
		return Profile{}, err
	}

	var data []byte
	err := s.db.View(func(txn *badger.Txn) error {
		item, err := txn.Get([]byte(profileKeyPrefix + user))
		if err != nil {
			return err
		}
		data, err = item.ValueCopy(nil)
		return err
	})
	if errors.Is(err, badger.ErrKeyNotFound) {
		return NewProfile(), nil
	}
	if err != nil {
		return Profile{}, fmt.Errorf("get profile: %w", err)
	}

	return decodeProfile(data)
}

// Save writes a user's profile.
func (s *BadgerStore) Save(ctx context.Context, user string, p Profile) error {
	if err := validUser(user); err != nil {
		return err
	}

	data, err := json.Marshal(p)
	if err != nil {
		return fmt.Errorf("marshal profile: %w", err)
	}

	return s.db.Update(func(txn *badger.Txn) error {
		if err := txn.Set([]byte(profileKeyPrefix+user), data); err != nil {
			return fmt.Errorf("set profile: %w", err)
		}
		return nil
	})
}

// Close closes the database.
func (s *BadgerStore) Close() error {
	return s.db.Close()
}

// decodeProfile unmarshals a profile and fills in nil maps and sets.
func decodeProfile(data []byte) (Profile, error) {
	var p Profile
	if err := json.Unmarshal(data, &p); err != nil {
		return Profile{}, fmt.Errorf("failed to decode profile: %w", err)
	}
	return p.Clone(), nil
}
