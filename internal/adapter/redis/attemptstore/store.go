package attemptstore

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/go-redis/redis/v8"
	"github.com/klauspost/compress/zstd"

	"gitlab.com/fcv-2025.net/assessment/internal/core/ports/primary"
	"gitlab.com/fcv-2025.net/assessment/internal/core/ports/secondary"
	"gitlab.com/fcv-2025.net/assessment/internal/domain"
	"gitlab.com/fcv-2025.net/assessment/internal/static/errs"
)

var _ secondary.AttemptStore = (*AttemptRepository)(nil)

const (
	attemptKeyPattern = "attempt:*"
	scanBatch         = 100
)

// AttemptRepository stores attempt drafts in Redis as zstd-compressed JSON
type AttemptRepository struct {
	redisClient *redis.Client
	logger      primary.Logger
	encoder     *zstd.Encoder
	decoder     *zstd.Decoder
}

// NewAttemptRepository creates a new Redis attempt repository
func NewAttemptRepository(redisClient *redis.Client, logger primary.Logger) (*AttemptRepository, error) {
	encoder, err := zstd.NewWriter(nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create zstd encoder: %w", err)
	}
	decoder, err := zstd.NewReader(nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create zstd decoder: %w", err)
	}
	return &AttemptRepository{
		redisClient: redisClient,
		logger:      logger,
		encoder:     encoder,
		decoder:     decoder,
	}, nil
}

// Get retrieves an attempt from Redis by key
func (r *AttemptRepository) Get(ctx context.Context, key domain.AttemptKey) (*domain.AttemptState, error) {
	data, err := r.redisClient.Get(ctx, key.String()).Bytes()
	if err != nil {
		if err == redis.Nil {
			return nil, nil
		}
		r.logger.Error("Failed to get attempt", "attempt", key.String(), "error", err)
		return nil, fmt.Errorf("failed to get attempt: %w", err)
	}
	return r.decode(data)
}

// Set saves the attempt, replacing whatever was stored
func (r *AttemptRepository) Set(ctx context.Context, state *domain.AttemptState, ttl time.Duration) error {
	raw, err := json.Marshal(state)
	if err != nil {
		return fmt.Errorf("failed to marshal attempt: %w", err)
	}
	if ttl < 0 {
		ttl = 0
	}

	compressed := r.encoder.EncodeAll(raw, make([]byte, 0, len(raw)/2))
	if err := r.redisClient.Set(ctx, state.Key().String(), compressed, ttl).Err(); err != nil {
		r.logger.Error("Failed to save attempt", "attempt", state.Key().String(), "error", err)
		return fmt.Errorf("failed to save attempt: %w", err)
	}
	return nil
}

func (r *AttemptRepository) Delete(ctx context.Context, key domain.AttemptKey) error {
	if err := r.redisClient.Del(ctx, key.String()).Err(); err != nil {
		return fmt.Errorf("failed to delete attempt: %w", err)
	}
	return nil
}

// List retrieves all stored attempts. Corrupt entries are skipped.
func (r *AttemptRepository) List(ctx context.Context) ([]*domain.AttemptState, error) {
	var cursor uint64
	var attemptKeys []string

	for {
		keys, next, err := r.redisClient.Scan(ctx, cursor, attemptKeyPattern, scanBatch).Result()
		if err != nil {
			return nil, fmt.Errorf("failed to scan attempt keys: %w", err)
		}
		attemptKeys = append(attemptKeys, keys...)
		cursor = next
		if cursor == 0 {
			break
		}
	}

	states := make([]*domain.AttemptState, 0, len(attemptKeys))
	if len(attemptKeys) == 0 {
		return states, nil
	}

	values, err := r.redisClient.MGet(ctx, attemptKeys...).Result()
	if err != nil {
		return nil, fmt.Errorf("failed to retrieve attempts: %w", err)
	}

	for i, value := range values {
		raw, ok := value.(string)
		if !ok {
			continue
		}
		state, err := r.decode([]byte(raw))
		if err != nil {
			r.logger.Warn("Skipping corrupt attempt", "attempt", attemptKeys[i], "error", err)
			continue
		}
		states = append(states, state)
	}
	return states, nil
}

func (r *AttemptRepository) decode(data []byte) (*domain.AttemptState, error) {
	raw, err := r.decoder.DecodeAll(data, nil)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", errs.ErrCorruptLocalState, err)
	}
	var state domain.AttemptState
	if err := json.Unmarshal(raw, &state); err != nil {
		return nil, fmt.Errorf("%w: %v", errs.ErrCorruptLocalState, err)
	}
	if state.ActivityID == "" || state.UserID == "" || state.EndTime.IsZero() {
		return nil, fmt.Errorf("%w: missing identity or deadline", errs.ErrCorruptLocalState)
	}
	return &state, nil
}
