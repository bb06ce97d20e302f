package assistant

import (
	"context"
	"sync"

	"github.com/clinicdesk/clinic-assistant/types"
)

// HistoryStore keeps per-session conversation turns. Implementations must be
// safe for concurrent sessions; within one session, turns arrive in order.
type HistoryStore interface {
	Append(ctx context.Context, sessionID string, turn types.Turn) error
	// Recent returns the last n turns, oldest first.
	Recent(ctx context.Context, sessionID string, n int) ([]types.Turn, error)
	// RemoveLast drops the most recent turn (used when a stream fails before
	// producing a reply).
	RemoveLast(ctx context.Context, sessionID string) error
}

// MemoryHistory is the default zero-infra history store.
type MemoryHistory struct {
	mu sync.Mutex
	m  map[string][]types.Turn
}

func NewMemoryHistory() *MemoryHistory {
	return &MemoryHistory{m: make(map[string][]types.Turn)}
}

func (h *MemoryHistory) Append(ctx context.Context, sessionID string, turn types.Turn) error {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.m[sessionID] = append(h.m[sessionID], turn)
	return nil
}

func (h *MemoryHistory) Recent(ctx context.Context, sessionID string, n int) ([]types.Turn, error) {
	h.mu.Lock()
	defer h.mu.Unlock()
	turns := h.m[sessionID]
	turns = trimTail(turns, n)
	out := make([]types.Turn, len(turns))
	copy(out, turns)
	return out, nil
}

func (h *MemoryHistory) RemoveLast(ctx context.Context, sessionID string) error {
	h.mu.Lock()
	defer h.mu.Unlock()
	turns := h.m[sessionID]
	if len(turns) > 0 {
		h.m[sessionID] = turns[:len(turns)-1]
	}
	return nil
}

func trimTail(turns []types.Turn, maxTurns int) []types.Turn {
	if maxTurns <= 0 || len(turns) <= maxTurns {
		return turns
	}
	return turns[len(turns)-maxTurns:]
}
