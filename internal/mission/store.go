package mission

import (
	"fmt"
	"sort"
	"sync"

	clierr "github.com/Ronit-Raj9/chainlink-chromion-hackathon-sub001/internal/errors"
)

// Store is the in-memory source of truth for missions, partitioned by user.
//
// Published missions are immutable: writers build a replacement value and
// swap it in under the partition lock, bumping the partition version. Readers
// copy the published values under the read lock and therefore always see a
// complete timeline.
type Store struct {
	mu         sync.Mutex
	partitions map[string]*partition
}

type partition struct {
	mu       sync.RWMutex
	version  uint64
	missions map[string]Mission
	writers  map[string]*sync.Mutex
}

// Snapshot is a consistent read of one user's missions at a version.
type Snapshot struct {
	UserID   string
	Version  uint64
	missions []Mission
}

func NewStore() *Store {
	return &Store{partitions: map[string]*partition{}}
}

func (s *Store) partition(userID string) *partition {
	s.mu.Lock()
	defer s.mu.Unlock()
	p, ok := s.partitions[userID]
	if !ok {
		p = &partition{missions: map[string]Mission{}, writers: map[string]*sync.Mutex{}}
		s.partitions[userID] = p
	}
	return p
}

// lookup returns the user's partition without creating it.
func (s *Store) lookup(userID string) *partition {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.partitions[userID]
}

// Snapshot returns the user's missions ordered newest first (ties by id).
func (s *Store) Snapshot(userID string) Snapshot {
	p := s.lookup(userID)
	if p == nil {
		return Snapshot{UserID: userID}
	}
	p.mu.RLock()
	out := make([]Mission, 0, len(p.missions))
	for _, m := range p.missions {
		out = append(out, m)
	}
	version := p.version
	p.mu.RUnlock()

	sort.Slice(out, func(i, j int) bool {
		if !out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].CreatedAt.After(out[j].CreatedAt)
		}
		return out[i].ID < out[j].ID
	})
	return Snapshot{UserID: userID, Version: version, missions: out}
}

// Version is the partition's mutation counter; it changes whenever any mission
// of the user changes.
func (s *Store) Version(userID string) uint64 {
	p := s.lookup(userID)
	if p == nil {
		return 0
	}
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.version
}

func (s *Store) Get(userID, missionID string) (Mission, error) {
	p := s.lookup(userID)
	if p == nil {
		return Mission{}, unknownMission(missionID)
	}
	p.mu.RLock()
	m, ok := p.missions[missionID]
	p.mu.RUnlock()
	if !ok {
		return Mission{}, unknownMission(missionID)
	}
	return m.Clone(), nil
}

// Restore loads previously persisted missions into the user's partition.
// Every mission is validated first; nothing is inserted if any fails.
func (s *Store) Restore(userID string, missions []Mission) error {
	if len(missions) == 0 {
		return nil
	}
	p := s.partition(userID)
	p.mu.Lock()
	defer p.mu.Unlock()

	seen := make(map[string]struct{}, len(missions))
	for _, m := range missions {
		if err := m.Validate(); err != nil {
			return err
		}
		if m.UserID != "" && m.UserID != userID {
			return clierr.New(clierr.CodeUsage, fmt.Sprintf("mission %s belongs to another user", m.ID))
		}
		if _, dup := seen[m.ID]; dup {
			return clierr.New(clierr.CodeConflict, fmt.Sprintf("duplicate mission id %s", m.ID))
		}
		if _, exists := p.missions[m.ID]; exists {
			return clierr.New(clierr.CodeConflict, fmt.Sprintf("mission %s already loaded", m.ID))
		}
		seen[m.ID] = struct{}{}
	}
	for _, m := range missions {
		m = m.Clone()
		m.UserID = userID
		p.missions[m.ID] = m
		p.writers[m.ID] = &sync.Mutex{}
	}
	p.version++
	return nil
}

// insert publishes a brand-new mission.
func (p *partition) insert(m Mission) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if _, exists := p.missions[m.ID]; exists {
		return clierr.New(clierr.CodeConflict, fmt.Sprintf("mission %s already exists", m.ID))
	}
	p.missions[m.ID] = m
	p.writers[m.ID] = &sync.Mutex{}
	p.version++
	return nil
}

// lockWriter acquires the single-writer lock of a mission and returns the
// partition and the currently published value. The caller must call the
// returned unlock.
func (s *Store) lockWriter(userID, missionID string) (*partition, Mission, func(), error) {
	p := s.lookup(userID)
	if p == nil {
		return nil, Mission{}, nil, unknownMission(missionID)
	}
	cur, unlock, err := p.lockWriter(missionID)
	return p, cur, unlock, err
}

func (p *partition) lockWriter(missionID string) (Mission, func(), error) {
	p.mu.RLock()
	w, ok := p.writers[missionID]
	p.mu.RUnlock()
	if !ok {
		return Mission{}, nil, unknownMission(missionID)
	}
	w.Lock()
	p.mu.RLock()
	cur := p.missions[missionID]
	p.mu.RUnlock()
	return cur, w.Unlock, nil
}

// publish swaps in a replacement for an existing mission. It must be called
// while holding that mission's writer lock.
func (p *partition) publish(m Mission) {
	p.mu.Lock()
	p.missions[m.ID] = m
	p.version++
	p.mu.Unlock()
}

func unknownMission(missionID string) error {
	return clierr.New(clierr.CodeUnknownMission, fmt.Sprintf("mission not found: %s", missionID))
}

// Missions returns copies of the snapshot's missions.
func (sn Snapshot) Missions() []Mission {
	out := make([]Mission, len(sn.missions))
	for i, m := range sn.missions {
		out[i] = m.Clone()
	}
	return out
}

func (sn Snapshot) Len() int { return len(sn.missions) }

// Filter returns copies of the missions in the given status.
func (sn Snapshot) Filter(status Status) []Mission {
	out := []Mission{}
	for _, m := range sn.missions {
		if m.Status == status {
			out = append(out, m.Clone())
		}
	}
	return out
}
