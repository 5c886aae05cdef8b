// Package history keeps a bounded per-user record of recent chat turns
// so prompts can carry conversational context.
package history

import (
	"encoding/json"
	"fmt"
	"os"
	"strings"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/brewline-ai/brewline-engine/pkg/models"
)

// EmptyHistoryMarker is returned when a user has no recorded turns.
const EmptyHistoryMarker = "Chưa có lịch sử trò chuyện."

// Store holds recent chat turns per user, bounded to maxPerUser turns.
// Writes beyond the bound evict the oldest turn. Safe for concurrent use.
type Store struct {
	mu         sync.RWMutex
	turns      map[string][]models.ChatTurn
	maxPerUser int
	path       string // optional JSON snapshot file, empty disables persistence
	logger     *zap.Logger
}

// NewStore creates a history store keeping at most maxPerUser turns per
// user. If path is non-empty, the store snapshots to that file after
// every mutation and loads it on startup; snapshot failures are logged
// and never block the chat flow.
func NewStore(maxPerUser int, path string, logger *zap.Logger) *Store {
	s := &Store{
		turns:      make(map[string][]models.ChatTurn),
		maxPerUser: maxPerUser,
		path:       path,
		logger:     logger.Named("history"),
	}
	s.load()
	return s
}

// Add records a completed turn for the user. Empty userID turns are
// grouped under the shared anonymous key.
func (s *Store) Add(userID, query, response string) {
	if userID == "" {
		userID = models.AnonymousUserKey
	}

	s.mu.Lock()
	turns := append(s.turns[userID], models.ChatTurn{
		Query:    query,
		Response: response,
		At:       time.Now(),
	})
	if len(turns) > s.maxPerUser {
		turns = turns[len(turns)-s.maxPerUser:]
	}
	s.turns[userID] = turns
	s.mu.Unlock()

	s.snapshot()
}

// Get returns a copy of the user's recorded turns, oldest first.
func (s *Store) Get(userID string) []models.ChatTurn {
	if userID == "" {
		userID = models.AnonymousUserKey
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	turns := s.turns[userID]
	out := make([]models.ChatTurn, len(turns))
	copy(out, turns)
	return out
}

// GetLatestChat formats the user's recent turns for prompt inclusion,
// one JSON-ish line per turn, oldest first. Returns EmptyHistoryMarker
// when nothing is recorded.
func (s *Store) GetLatestChat(userID string) string {
	turns := s.Get(userID)
	if len(turns) == 0 {
		return EmptyHistoryMarker
	}

	var sb strings.Builder
	for _, turn := range turns {
		fmt.Fprintf(&sb, "{\"query\": %q, \"response\": %q}\n", turn.Query, turn.Response)
	}
	return strings.TrimRight(sb.String(), "\n")
}

// Clear removes all turns for the user.
func (s *Store) Clear(userID string) {
	if userID == "" {
		userID = models.AnonymousUserKey
	}

	s.mu.Lock()
	delete(s.turns, userID)
	s.mu.Unlock()

	s.snapshot()
}

// load restores a previous snapshot. Missing or unreadable snapshots
// start the store empty.
func (s *Store) load() {
	if s.path == "" {
		return
	}

	data, err := os.ReadFile(s.path)
	if err != nil {
		if !os.IsNotExist(err) {
			s.logger.Warn("read history snapshot", zap.String("path", s.path), zap.Error(err))
		}
		return
	}

	var turns map[string][]models.ChatTurn
	if err := json.Unmarshal(data, &turns); err != nil {
		s.logger.Warn("parse history snapshot", zap.String("path", s.path), zap.Error(err))
		return
	}

	s.mu.Lock()
	s.turns = turns
	s.mu.Unlock()
}

// snapshot persists the current state. Best effort: failures are logged
// and the in-memory store stays authoritative.
func (s *Store) snapshot() {
	if s.path == "" {
		return
	}

	s.mu.RLock()
	data, err := json.Marshal(s.turns)
	s.mu.RUnlock()
	if err != nil {
		s.logger.Warn("marshal history snapshot", zap.Error(err))
		return
	}

	if err := os.WriteFile(s.path, data, 0o600); err != nil {
		s.logger.Warn("write history snapshot", zap.String("path", s.path), zap.Error(err))
	}
}
