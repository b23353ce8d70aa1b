// Package routebook keeps the routes a user saved for reuse.
package routebook

import (
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	clierr "github.com/Ronit-Raj9/chainlink-chromion-hackathon-sub001/internal/errors"
	"github.com/Ronit-Raj9/chainlink-chromion-hackathon-sub001/internal/id"
	"github.com/google/uuid"
)

type SavedRoute struct {
	ID               string    `json:"id"`
	UserID           string    `json:"user_id"`
	Name             string    `json:"name"`
	SourceChain      string    `json:"source_chain"`
	DestinationChain string    `json:"destination_chain"`
	Token            string    `json:"token"`
	CreatedAt        time.Time `json:"created_at"`
	LastUsedAt       time.Time `json:"last_used_at"`
}

type Book struct {
	mu     sync.RWMutex
	routes map[string]map[string]SavedRoute
	now    func() time.Time
}

func New(now func() time.Time) *Book {
	if now == nil {
		now = func() time.Time { return time.Now().UTC() }
	}
	return &Book{routes: map[string]map[string]SavedRoute{}, now: now}
}

func (b *Book) Save(userID, name, src, dst, token string) (SavedRoute, error) {
	r := SavedRoute{
		ID:               "rte_" + uuid.NewString(),
		UserID:           userID,
		Name:             strings.TrimSpace(name),
		SourceChain:      strings.TrimSpace(src),
		DestinationChain: strings.TrimSpace(dst),
		Token:            strings.ToUpper(strings.TrimSpace(token)),
	}
	if err := validate(r); err != nil {
		return SavedRoute{}, err
	}
	now := b.now().UTC()
	r.CreatedAt, r.LastUsedAt = now, now

	b.mu.Lock()
	defer b.mu.Unlock()
	if err := b.nameTakenLocked(userID, r.Name, ""); err != nil {
		return SavedRoute{}, err
	}
	b.userLocked(userID)[r.ID] = r
	return r, nil
}

func (b *Book) Rename(userID, routeID, name string) (SavedRoute, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return SavedRoute{}, clierr.New(clierr.CodeUsage, "route name is required")
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	r, ok := b.routes[userID][routeID]
	if !ok {
		return SavedRoute{}, unknownRoute(routeID)
	}
	if err := b.nameTakenLocked(userID, name, routeID); err != nil {
		return SavedRoute{}, err
	}
	r.Name = name
	b.routes[userID][routeID] = r
	return r, nil
}

func (b *Book) Delete(userID, routeID string) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	if _, ok := b.routes[userID][routeID]; !ok {
		return unknownRoute(routeID)
	}
	delete(b.routes[userID], routeID)
	return nil
}

// Touch marks a saved route as used at the given time (zero means now).
func (b *Book) Touch(userID, routeID string, at time.Time) (SavedRoute, error) {
	if at.IsZero() {
		at = b.now()
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	r, ok := b.routes[userID][routeID]
	if !ok {
		return SavedRoute{}, unknownRoute(routeID)
	}
	r.LastUsedAt = at.UTC()
	b.routes[userID][routeID] = r
	return r, nil
}

func (b *Book) Get(userID, routeID string) (SavedRoute, error) {
	b.mu.RLock()
	defer b.mu.RUnlock()
	r, ok := b.routes[userID][routeID]
	if !ok {
		return SavedRoute{}, unknownRoute(routeID)
	}
	return r, nil
}

// List returns routes most recently used first.
func (b *Book) List(userID string) []SavedRoute {
	b.mu.RLock()
	out := make([]SavedRoute, 0, len(b.routes[userID]))
	for _, r := range b.routes[userID] {
		out = append(out, r)
	}
	b.mu.RUnlock()
	sort.Slice(out, func(i, j int) bool {
		if !out[i].LastUsedAt.Equal(out[j].LastUsedAt) {
			return out[i].LastUsedAt.After(out[j].LastUsedAt)
		}
		if out[i].Name != out[j].Name {
			return out[i].Name < out[j].Name
		}
		return out[i].ID < out[j].ID
	})
	return out
}

// Match finds the most recently used saved route for the lane. Chains are
// compared by canonical identity and tokens case-insensitively.
func (b *Book) Match(userID, src, dst, token string) (SavedRoute, bool) {
	for _, r := range b.List(userID) {
		if id.SameChain(r.SourceChain, src) && id.SameChain(r.DestinationChain, dst) && strings.EqualFold(r.Token, strings.TrimSpace(token)) {
			return r, true
		}
	}
	return SavedRoute{}, false
}

func (b *Book) Count(userID string) int {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return len(b.routes[userID])
}

// Restore loads persisted routes, rejecting the whole batch on any invalid
// or clashing entry.
func (b *Book) Restore(userID string, routes []SavedRoute) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	names := map[string]struct{}{}
	for _, existing := range b.routes[userID] {
		names[strings.ToLower(existing.Name)] = struct{}{}
	}
	ids := map[string]struct{}{}
	for _, r := range routes {
		if strings.TrimSpace(r.ID) == "" {
			return clierr.New(clierr.CodeUsage, "saved route id is required")
		}
		if err := validate(r); err != nil {
			return err
		}
		key := strings.ToLower(r.Name)
		if _, dup := names[key]; dup {
			return clierr.New(clierr.CodeConflict, fmt.Sprintf("saved route name %q already exists", r.Name))
		}
		if _, dup := ids[r.ID]; dup {
			return clierr.New(clierr.CodeConflict, fmt.Sprintf("duplicate saved route id %s", r.ID))
		}
		if _, dup := b.routes[userID][r.ID]; dup {
			return clierr.New(clierr.CodeConflict, fmt.Sprintf("saved route %s already loaded", r.ID))
		}
		names[key] = struct{}{}
		ids[r.ID] = struct{}{}
	}
	user := b.userLocked(userID)
	for _, r := range routes {
		r.UserID = userID
		user[r.ID] = r
	}
	return nil
}

func (b *Book) userLocked(userID string) map[string]SavedRoute {
	user, ok := b.routes[userID]
	if !ok {
		user = map[string]SavedRoute{}
		b.routes[userID] = user
	}
	return user
}

func (b *Book) nameTakenLocked(userID, name, exceptID string) error {
	for _, r := range b.routes[userID] {
		if r.ID != exceptID && strings.EqualFold(r.Name, name) {
			return clierr.New(clierr.CodeConflict, fmt.Sprintf("saved route name %q already exists", name))
		}
	}
	return nil
}

func validate(r SavedRoute) error {
	switch {
	case r.Name == "":
		return clierr.New(clierr.CodeUsage, "route name is required")
	case r.SourceChain == "" || r.DestinationChain == "":
		return clierr.New(clierr.CodeUsage, "source and destination chains are required")
	case r.Token == "":
		return clierr.New(clierr.CodeUsage, "token is required")
	}
	return nil
}

func unknownRoute(routeID string) error {
	return clierr.New(clierr.CodeNotFound, fmt.Sprintf("saved route not found: %s", routeID))
}
