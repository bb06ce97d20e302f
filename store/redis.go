package store

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/clinicdesk/clinic-assistant/types"
)

const conversationKeyPrefix = "conversation:"

// RedisHistory stores each session's turns as one JSON blob with a sliding
// TTL, so idle conversations expire on their own.
type RedisHistory struct {
	client   *redis.Client
	ttl      time.Duration
	maxTurns int
}

// NewRedisHistory connects to url (redis://...). maxTurns caps the stored
// window; ttl <= 0 disables expiry.
func NewRedisHistory(url string, maxTurns int, ttl time.Duration) (*RedisHistory, error) {
	opts, err := redis.ParseURL(url)
	if err != nil {
		return nil, fmt.Errorf("parse redis url: %w", err)
	}
	client := redis.NewClient(opts)
	ctx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
	defer cancel()
	if err := client.Ping(ctx).Err(); err != nil {
		client.Close()
		return nil, fmt.Errorf("ping redis: %w", err)
	}
	if maxTurns <= 0 {
		maxTurns = 50
	}
	return &RedisHistory{client: client, ttl: ttl, maxTurns: maxTurns}, nil
}

func (h *RedisHistory) Close() error {
	return h.client.Close()
}

func (h *RedisHistory) Append(ctx context.Context, sessionID string, turn types.Turn) error {
	turns, err := h.load(ctx, sessionID)
	if err != nil {
		return err
	}
	turns = append(turns, turn)
	if len(turns) > h.maxTurns {
		turns = turns[len(turns)-h.maxTurns:]
	}
	return h.save(ctx, sessionID, turns)
}

func (h *RedisHistory) Recent(ctx context.Context, sessionID string, n int) ([]types.Turn, error) {
	turns, err := h.load(ctx, sessionID)
	if err != nil {
		return nil, err
	}
	if n > 0 && len(turns) > n {
		turns = turns[len(turns)-n:]
	}
	return turns, nil
}

func (h *RedisHistory) RemoveLast(ctx context.Context, sessionID string) error {
	turns, err := h.load(ctx, sessionID)
	if err != nil || len(turns) == 0 {
		return err
	}
	return h.save(ctx, sessionID, turns[:len(turns)-1])
}

func (h *RedisHistory) load(ctx context.Context, sessionID string) ([]types.Turn, error) {
	raw, err := h.client.Get(ctx, conversationKeyPrefix+sessionID).Bytes()
	if err == redis.Nil {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("load history: %w", err)
	}
	var turns []types.Turn
	if err := json.Unmarshal(raw, &turns); err != nil {
		return nil, fmt.Errorf("decode history: %w", err)
	}
	return turns, nil
}

func (h *RedisHistory) save(ctx context.Context, sessionID string, turns []types.Turn) error {
	raw, err := json.Marshal(turns)
	if err != nil {
		return fmt.Errorf("encode history: %w", err)
	}
	if err := h.client.Set(ctx, conversationKeyPrefix+sessionID, raw, h.ttl).Err(); err != nil {
		return fmt.Errorf("save history: %w", err)
	}
	return nil
}
