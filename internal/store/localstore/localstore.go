// Package localstore persists identities and habits in a single JSON blob on
// disk, keyed the way a browser local-storage adapter keys its collections.
// It backs the single-user local deployment mode.
package localstore

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"sync"

	"github.com/aspirehq/aspire/backend/internal/habits"
)

const (
	identitiesKeyPrefix = "aspire.identities"
	habitsKeyPrefix     = "aspire.habits"
)

var errMissingPath = errors.New("localstore: file path is required")

// Store implements habits.Store on top of a JSON key-value blob file. The
// whole blob is held in memory and rewritten atomically on every mutation.
type Store struct {
	path string

	mu   sync.Mutex
	blob map[string]json.RawMessage
}

// Open loads the blob file at path, creating an empty store when the file does
// not exist yet.
func Open(path string) (*Store, error) {
	if path == "" {
		return nil, errMissingPath
	}
	store := &Store{
		path: path,
		blob: make(map[string]json.RawMessage),
	}
	raw, err := os.ReadFile(path)
	if errors.Is(err, os.ErrNotExist) {
		return store, nil
	}
	if err != nil {
		return nil, fmt.Errorf("localstore: read %s: %w", path, err)
	}
	if len(raw) > 0 {
		if err := json.Unmarshal(raw, &store.blob); err != nil {
			return nil, fmt.Errorf("localstore: decode %s: %w", path, err)
		}
	}
	return store, nil
}

func identitiesKey(userID string) string {
	return identitiesKeyPrefix + ":" + userID
}

func habitsKey(userID string) string {
	return habitsKeyPrefix + ":" + userID
}

func (s *Store) loadIdentities(userID string) ([]habits.Identity, error) {
	raw, ok := s.blob[identitiesKey(userID)]
	if !ok {
		return nil, nil
	}
	var identities []habits.Identity
	if err := json.Unmarshal(raw, &identities); err != nil {
		return nil, fmt.Errorf("localstore: decode identities: %w", err)
	}
	return identities, nil
}

func (s *Store) loadHabits(userID string) ([]habits.Habit, error) {
	raw, ok := s.blob[habitsKey(userID)]
	if !ok {
		return nil, nil
	}
	var stored []habits.Habit
	if err := json.Unmarshal(raw, &stored); err != nil {
		return nil, fmt.Errorf("localstore: decode habits: %w", err)
	}
	return stored, nil
}

func (s *Store) storeCollection(key string, value any) error {
	raw, err := json.Marshal(value)
	if err != nil {
		return fmt.Errorf("localstore: encode %s: %w", key, err)
	}
	s.blob[key] = raw
	return s.flush()
}

// flush rewrites the blob file atomically via a temp file rename.
func (s *Store) flush() error {
	raw, err := json.MarshalIndent(s.blob, "", "  ")
	if err != nil {
		return fmt.Errorf("localstore: encode blob: %w", err)
	}
	dir := filepath.Dir(s.path)
	tmp, err := os.CreateTemp(dir, ".aspire-store-*")
	if err != nil {
		return fmt.Errorf("localstore: create temp file: %w", err)
	}
	tmpName := tmp.Name()
	if _, err := tmp.Write(raw); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return fmt.Errorf("localstore: write temp file: %w", err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("localstore: close temp file: %w", err)
	}
	if err := os.Rename(tmpName, s.path); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("localstore: replace %s: %w", s.path, err)
	}
	return nil
}

// ListIdentities returns the user's identities sorted by creation time.
func (s *Store) ListIdentities(_ context.Context, userID string) ([]habits.Identity, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	identities, err := s.loadIdentities(userID)
	if err != nil {
		return nil, err
	}
	sort.Slice(identities, func(i, j int) bool {
		return identities[i].CreatedAt.Before(identities[j].CreatedAt)
	})
	return identities, nil
}

// GetIdentity returns one identity or habits.ErrNotFound.
func (s *Store) GetIdentity(_ context.Context, userID, identityID string) (habits.Identity, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	identities, err := s.loadIdentities(userID)
	if err != nil {
		return habits.Identity{}, err
	}
	for _, identity := range identities {
		if identity.ID == identityID {
			return identity, nil
		}
	}
	return habits.Identity{}, habits.ErrNotFound
}

// SaveIdentity inserts or replaces the identity by id.
func (s *Store) SaveIdentity(_ context.Context, userID string, identity habits.Identity) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	identities, err := s.loadIdentities(userID)
	if err != nil {
		return err
	}
	replaced := false
	for i := range identities {
		if identities[i].ID == identity.ID {
			identities[i] = identity
			replaced = true
			break
		}
	}
	if !replaced {
		identities = append(identities, identity)
	}
	return s.storeCollection(identitiesKey(userID), identities)
}

// DeleteIdentity removes the identity and strips its id from every habit's
// linked set. Progress sequences are left untouched.
func (s *Store) DeleteIdentity(_ context.Context, userID, identityID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	identities, err := s.loadIdentities(userID)
	if err != nil {
		return err
	}
	kept := identities[:0]
	found := false
	for _, identity := range identities {
		if identity.ID == identityID {
			found = true
			continue
		}
		kept = append(kept, identity)
	}
	if !found {
		return habits.ErrNotFound
	}
	if err := s.storeCollection(identitiesKey(userID), kept); err != nil {
		return err
	}

	stored, err := s.loadHabits(userID)
	if err != nil {
		return err
	}
	changed := false
	for i := range stored {
		linked := stored[i].LinkedIdentities[:0]
		for _, id := range stored[i].LinkedIdentities {
			if id == identityID {
				changed = true
				continue
			}
			linked = append(linked, id)
		}
		stored[i].LinkedIdentities = linked
	}
	if !changed {
		return nil
	}
	return s.storeCollection(habitsKey(userID), stored)
}

// ListHabits returns the user's habits sorted by creation time.
func (s *Store) ListHabits(_ context.Context, userID string) ([]habits.Habit, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	stored, err := s.loadHabits(userID)
	if err != nil {
		return nil, err
	}
	sort.Slice(stored, func(i, j int) bool {
		return stored[i].CreatedAt.Before(stored[j].CreatedAt)
	})
	return stored, nil
}

// GetHabit returns one habit or habits.ErrNotFound.
func (s *Store) GetHabit(_ context.Context, userID, habitID string) (habits.Habit, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	stored, err := s.loadHabits(userID)
	if err != nil {
		return habits.Habit{}, err
	}
	for _, habit := range stored {
		if habit.ID == habitID {
			return habit.Clone(), nil
		}
	}
	return habits.Habit{}, habits.ErrNotFound
}

// SaveHabit inserts or replaces the habit by id.
func (s *Store) SaveHabit(_ context.Context, userID string, habit habits.Habit) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	stored, err := s.loadHabits(userID)
	if err != nil {
		return err
	}
	clone := habit.Clone()
	replaced := false
	for i := range stored {
		if stored[i].ID == clone.ID {
			stored[i] = clone
			replaced = true
			break
		}
	}
	if !replaced {
		stored = append(stored, clone)
	}
	return s.storeCollection(habitsKey(userID), stored)
}

// DeleteHabit removes the habit by id.
func (s *Store) DeleteHabit(_ context.Context, userID, habitID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	stored, err := s.loadHabits(userID)
	if err != nil {
		return err
	}
	kept := stored[:0]
	found := false
	for _, habit := range stored {
		if habit.ID == habitID {
			found = true
			continue
		}
		kept = append(kept, habit)
	}
	if !found {
		return habits.ErrNotFound
	}
	return s.storeCollection(habitsKey(userID), kept)
}
