// Package agentlog stores assistant conversations. Logs are append-only and a
// recommendation attached to a message is frozen at append time.
package agentlog

import (
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	clierr "github.com/Ronit-Raj9/chainlink-chromion-hackathon-sub001/internal/errors"
	"github.com/Ronit-Raj9/chainlink-chromion-hackathon-sub001/internal/route"
	"github.com/google/uuid"
)

type Sender string

const (
	SenderUser  Sender = "user"
	SenderAgent Sender = "agent"
)

func ParseSender(raw string) (Sender, error) {
	switch Sender(strings.ToLower(strings.TrimSpace(raw))) {
	case SenderUser:
		return SenderUser, nil
	case SenderAgent, "assistant":
		return SenderAgent, nil
	}
	return "", clierr.New(clierr.CodeUsage, fmt.Sprintf("unknown sender %q (expected user|agent)", raw))
}

type Message struct {
	ID             string                `json:"id"`
	Sender         Sender                `json:"sender"`
	Content        string                `json:"content"`
	Timestamp      time.Time             `json:"timestamp"`
	Recommendation *route.Recommendation `json:"recommendation,omitempty"`
}

type Log struct {
	ID        string    `json:"id"`
	UserID    string    `json:"user_id"`
	Title     string    `json:"title"`
	CreatedAt time.Time `json:"created_at"`
	Messages  []Message `json:"messages"`
}

// Clone copies the message slice and every attached recommendation.
func (l Log) Clone() Log {
	out := l
	out.Messages = make([]Message, len(l.Messages))
	for i, m := range l.Messages {
		out.Messages[i] = m.clone()
	}
	return out
}

func (m Message) clone() Message {
	if m.Recommendation != nil {
		rec := *m.Recommendation
		m.Recommendation = &rec
	}
	return m
}

type Registry struct {
	mu   sync.RWMutex
	logs map[string]map[string]*Log
	now  func() time.Time
}

func NewRegistry(now func() time.Time) *Registry {
	if now == nil {
		now = func() time.Time { return time.Now().UTC() }
	}
	return &Registry{logs: map[string]map[string]*Log{}, now: now}
}

func (r *Registry) Open(userID, title string) (Log, error) {
	title = strings.TrimSpace(title)
	if title == "" {
		return Log{}, clierr.New(clierr.CodeUsage, "log title is required")
	}
	l := &Log{ID: "log_" + uuid.NewString(), UserID: userID, Title: title, CreatedAt: r.now().UTC(), Messages: []Message{}}
	r.mu.Lock()
	defer r.mu.Unlock()
	r.userLocked(userID)[l.ID] = l
	return l.Clone(), nil
}

// Append adds a message. rec, when non-nil, is copied into the message.
func (r *Registry) Append(userID, logID string, sender Sender, content string, rec *route.Recommendation) (Message, error) {
	if sender != SenderUser && sender != SenderAgent {
		return Message{}, clierr.New(clierr.CodeUsage, fmt.Sprintf("unknown sender %q", sender))
	}
	content = strings.TrimSpace(content)
	if content == "" && rec == nil {
		return Message{}, clierr.New(clierr.CodeUsage, "message content is required")
	}
	msg := Message{ID: "msg_" + uuid.NewString(), Sender: sender, Content: content, Timestamp: r.now().UTC()}
	if rec != nil {
		frozen := *rec
		msg.Recommendation = &frozen
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	l, ok := r.logs[userID][logID]
	if !ok {
		return Message{}, unknownLog(logID)
	}
	l.Messages = append(l.Messages, msg)
	return msg.clone(), nil
}

func (r *Registry) Get(userID, logID string) (Log, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	l, ok := r.logs[userID][logID]
	if !ok {
		return Log{}, unknownLog(logID)
	}
	return l.Clone(), nil
}

// List returns the user's logs newest first.
func (r *Registry) List(userID string) []Log {
	r.mu.RLock()
	out := make([]Log, 0, len(r.logs[userID]))
	for _, l := range r.logs[userID] {
		out = append(out, l.Clone())
	}
	r.mu.RUnlock()
	sort.Slice(out, func(i, j int) bool {
		if !out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].CreatedAt.After(out[j].CreatedAt)
		}
		return out[i].ID < out[j].ID
	})
	return out
}

func (r *Registry) Count(userID string) int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.logs[userID])
}

func (r *Registry) Restore(userID string, logs []Log) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	seen := map[string]struct{}{}
	for _, l := range logs {
		if strings.TrimSpace(l.ID) == "" {
			return clierr.New(clierr.CodeUsage, "agent log id is required")
		}
		if _, dup := seen[l.ID]; dup {
			return clierr.New(clierr.CodeConflict, fmt.Sprintf("duplicate agent log id %s", l.ID))
		}
		if _, dup := r.logs[userID][l.ID]; dup {
			return clierr.New(clierr.CodeConflict, fmt.Sprintf("agent log %s already loaded", l.ID))
		}
		for _, m := range l.Messages {
			if m.Sender != SenderUser && m.Sender != SenderAgent {
				return clierr.New(clierr.CodeUsage, fmt.Sprintf("agent log %s has message with unknown sender %q", l.ID, m.Sender))
			}
		}
		seen[l.ID] = struct{}{}
	}
	user := r.userLocked(userID)
	for _, l := range logs {
		c := l.Clone()
		c.UserID = userID
		user[c.ID] = &c
	}
	return nil
}

func (r *Registry) userLocked(userID string) map[string]*Log {
	user, ok := r.logs[userID]
	if !ok {
		user = map[string]*Log{}
		r.logs[userID] = user
	}
	return user
}

func unknownLog(logID string) error {
	return clierr.New(clierr.CodeNotFound, fmt.Sprintf("agent log not found: %s", logID))
}
