// Package dashboard serves derived stats and achievements for a user,
// recomputing only when the mission partition version moves.
package dashboard

import (
	"fmt"
	"sync"

	"github.com/Ronit-Raj9/chainlink-chromion-hackathon-sub001/internal/achievement"
	"github.com/Ronit-Raj9/chainlink-chromion-hackathon-sub001/internal/agentlog"
	"github.com/Ronit-Raj9/chainlink-chromion-hackathon-sub001/internal/mission"
	"github.com/Ronit-Raj9/chainlink-chromion-hackathon-sub001/internal/policy"
	"github.com/Ronit-Raj9/chainlink-chromion-hackathon-sub001/internal/routebook"
	"github.com/Ronit-Raj9/chainlink-chromion-hackathon-sub001/internal/stats"
	"golang.org/x/sync/singleflight"
)

// View is one consistent projection of a user's history.
type View struct {
	UserID       string                    `json:"user_id"`
	Version      uint64                    `json:"version"`
	Stats        stats.UserStats           `json:"stats"`
	Achievements []achievement.Achievement `json:"achievements"`
}

type cacheKey struct {
	version uint64
	routes  int
	logs    int
}

type entry struct {
	key  cacheKey
	view View
}

type Service struct {
	store  *mission.Store
	routes *routebook.Book
	logs   *agentlog.Registry
	policy policy.Policy
	rules  []achievement.Rule

	mu     sync.Mutex
	cache  map[string]entry
	group  singleflight.Group
	builds uint64
}

func NewService(store *mission.Store, routes *routebook.Book, logs *agentlog.Registry, p policy.Policy) *Service {
	return &Service{
		store:  store,
		routes: routes,
		logs:   logs,
		policy: p,
		rules:  achievement.DefaultRules(p),
		cache:  map[string]entry{},
	}
}

// View returns the cached projection for the user's current version, building
// it at most once per version even under concurrent callers.
func (s *Service) View(userID string) View {
	key := cacheKey{version: s.store.Version(userID), routes: s.count(userID, true), logs: s.count(userID, false)}
	s.mu.Lock()
	if e, ok := s.cache[userID]; ok && e.key == key {
		s.mu.Unlock()
		return cloneView(e.view)
	}
	s.mu.Unlock()

	flight := fmt.Sprintf("%s@%d/%d/%d", userID, key.version, key.routes, key.logs)
	v, _, _ := s.group.Do(flight, func() (any, error) {
		return s.build(userID), nil
	})
	return cloneView(v.(View))
}

func (s *Service) Stats(userID string) stats.UserStats {
	return s.View(userID).Stats
}

func (s *Service) Achievements(userID string) []achievement.Achievement {
	return s.View(userID).Achievements
}

// Builds reports how many projections were computed; used to observe caching.
func (s *Service) Builds() uint64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.builds
}

func (s *Service) build(userID string) View {
	snap := s.store.Snapshot(userID)
	missions := snap.Missions()
	counts := stats.Counts{SavedRoutes: s.count(userID, true), AgentLogs: s.count(userID, false)}
	achievements := achievement.Evaluate(missions, s.rules)
	counts.AchievementsEarned = achievement.Earned(achievements)

	view := View{
		UserID:       userID,
		Version:      snap.Version,
		Stats:        stats.Compute(missions, s.policy, counts),
		Achievements: achievements,
	}
	key := cacheKey{version: snap.Version, routes: counts.SavedRoutes, logs: counts.AgentLogs}

	s.mu.Lock()
	s.builds++
	if cur, ok := s.cache[userID]; !ok || cur.key.version <= key.version {
		s.cache[userID] = entry{key: key, view: view}
	}
	s.mu.Unlock()
	return view
}

func (s *Service) count(userID string, routes bool) int {
	if routes {
		if s.routes == nil {
			return 0
		}
		return s.routes.Count(userID)
	}
	if s.logs == nil {
		return 0
	}
	return s.logs.Count(userID)
}

func cloneView(v View) View {
	out := v
	out.Achievements = make([]achievement.Achievement, len(v.Achievements))
	for i, a := range v.Achievements {
		if a.Progress != nil {
			p := *a.Progress
			a.Progress = &p
		}
		out.Achievements[i] = a
	}
	return out
}
