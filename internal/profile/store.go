package profile

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"slices"
	"strings"
	"sync"
	"time"

	"github.com/gofrs/flock"
)

// lockRetryDelay is how often lock acquisition retries while waiting.
const lockRetryDelay = 25 * time.Millisecond

// Store persists profiles as a user-ID-keyed JSON document. Writes go
// through a temp file and rename so a crash never leaves a half-written
// store. A flock sidecar guards against concurrent processes; the mutex
// guards goroutines in this one.
type Store struct {
	mu     sync.RWMutex
	path   string
	flk    *flock.Flock
	logger *slog.Logger
}

// NewStore creates a profile store backed by the JSON file at path.
// Parent directories are created; the file itself appears on first Put.
func NewStore(path string, logger *slog.Logger) (*Store, error) {
	if path == "" {
		return nil, errors.New("profile store path is required")
	}
	if logger == nil {
		logger = slog.Default()
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("create profile store directory: %w", err)
	}
	return &Store{
		path:   path,
		flk:    flock.New(path + ".lock"),
		logger: logger,
	}, nil
}

// Get returns the stored profile for userID, or ErrNotFound.
func (s *Store) Get(ctx context.Context, userID string) (*Profile, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if err := s.rlock(ctx); err != nil {
		return nil, err
	}
	defer func() { _ = s.flk.Unlock() }()

	profiles, err := s.load()
	if err != nil {
		return nil, err
	}
	p, ok := profiles[userID]
	if !ok {
		return nil, ErrNotFound
	}
	return p, nil
}

// Put validates and stores the profile, replacing any previous version.
func (s *Store) Put(ctx context.Context, p *Profile) error {
	if err := p.Validate(); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.lock(ctx); err != nil {
		return err
	}
	defer func() { _ = s.flk.Unlock() }()

	profiles, err := s.load()
	if err != nil {
		return err
	}

	stored := *p
	stored.UpdatedAt = time.Now().UTC()
	profiles[p.UserID] = &stored

	if err := s.save(profiles); err != nil {
		return err
	}
	s.logger.Debug("stored profile", "user_id", p.UserID)
	return nil
}

// All returns every stored profile, ordered by user ID.
func (s *Store) All(ctx context.Context) ([]*Profile, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if err := s.rlock(ctx); err != nil {
		return nil, err
	}
	defer func() { _ = s.flk.Unlock() }()

	profiles, err := s.load()
	if err != nil {
		return nil, err
	}

	out := make([]*Profile, 0, len(profiles))
	for _, p := range profiles {
		out = append(out, p)
	}
	slices.SortFunc(out, func(a, b *Profile) int {
		return strings.Compare(a.UserID, b.UserID)
	})
	return out, nil
}

// lock takes the exclusive cross-process lock, retrying until ctx expires.
func (s *Store) lock(ctx context.Context) error {
	locked, err := s.flk.TryLockContext(ctx, lockRetryDelay)
	if err != nil {
		return fmt.Errorf("lock profile store: %w", err)
	}
	if !locked {
		return errors.New("lock profile store: not acquired")
	}
	return nil
}

// rlock takes the shared cross-process lock, retrying until ctx expires.
func (s *Store) rlock(ctx context.Context) error {
	locked, err := s.flk.TryRLockContext(ctx, lockRetryDelay)
	if err != nil {
		return fmt.Errorf("lock profile store: %w", err)
	}
	if !locked {
		return errors.New("lock profile store: not acquired")
	}
	return nil
}

// load reads the whole store. A missing file is an empty store; a corrupt
// file is an error so a bad deploy cannot silently wipe profiles.
func (s *Store) load() (map[string]*Profile, error) {
	data, err := os.ReadFile(s.path)
	if err != nil {
		if os.IsNotExist(err) {
			return make(map[string]*Profile), nil
		}
		return nil, fmt.Errorf("read profile store: %w", err)
	}

	profiles := make(map[string]*Profile)
	if err := json.Unmarshal(data, &profiles); err != nil {
		return nil, fmt.Errorf("parse profile store %s: %w", s.path, err)
	}
	for id, p := range profiles {
		p.UserID = id
	}
	return profiles, nil
}

// save writes the whole store atomically via temp file + rename.
func (s *Store) save(profiles map[string]*Profile) error {
	data, err := json.MarshalIndent(profiles, "", "  ")
	if err != nil {
		return fmt.Errorf("encode profile store: %w", err)
	}

	tmp := s.path + ".tmp"
	if err := os.WriteFile(tmp, data, 0o644); err != nil {
		return fmt.Errorf("write profile store: %w", err)
	}
	if err := os.Rename(tmp, s.path); err != nil {
		_ = os.Remove(tmp)
		return fmt.Errorf("replace profile store: %w", err)
	}
	return nil
}
