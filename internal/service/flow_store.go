package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/mockprep/coach-gateway/internal/config"
)

// FlowSnapshot is the resumable part of an answer flow: the attempt, its
// questions and every answer already accepted by the backend.
type FlowSnapshot struct {
	InterviewID   string                 `json:"interview_id"`
	AttemptNumber int                    `json:"attempt_number"`
	Questions     []string               `json:"questions"`
	Locked        map[int]SnapshotAnswer `json:"locked"`
	Completed     bool                   `json:"completed"`
	SavedAt       time.Time              `json:"saved_at"`
}

// SnapshotAnswer is a locked answer without its audio.
type SnapshotAnswer struct {
	Typed           string `json:"typed"`
	Transcribed     string `json:"transcribed,omitempty"`
	HasAudio        bool   `json:"has_audio"`
	DurationSeconds int    `json:"duration_seconds"`
}

// SnapshotStore keeps flow snapshots per user and interview.
type SnapshotStore interface {
	SaveSnapshot(ctx context.Context, userID string, snap FlowSnapshot, ttl time.Duration) error
	// LoadSnapshot returns ErrFlowNotStarted when there is none and
	// ErrSnapshotInvalid when the stored one cannot be used.
	LoadSnapshot(ctx context.Context, userID, interviewID string) (FlowSnapshot, error)
	DeleteSnapshot(ctx context.Context, userID, interviewID string) error
}

// RedisSnapshotStore stores snapshots as JSON with a TTL.
type RedisSnapshotStore struct {
	rdb *redis.Client
}

func NewRedisSnapshotStore(rdb *redis.Client) *RedisSnapshotStore {
	return &RedisSnapshotStore{rdb: rdb}
}

func (s *RedisSnapshotStore) SaveSnapshot(ctx context.Context, userID string, snap FlowSnapshot, ttl time.Duration) error {
	data, err := json.Marshal(snap)
	if err != nil {
		return fmt.Errorf("marshal snapshot: %w", err)
	}
	key := config.CacheKey.FlowSnapshotKey(userID, snap.InterviewID)
	if err := s.rdb.Set(ctx, key, data, ttl).Err(); err != nil {
		return fmt.Errorf("store snapshot: %w", err)
	}
	return nil
}

func (s *RedisSnapshotStore) LoadSnapshot(ctx context.Context, userID, interviewID string) (FlowSnapshot, error) {
	data, err := s.rdb.Get(ctx, config.CacheKey.FlowSnapshotKey(userID, interviewID)).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return FlowSnapshot{}, ErrFlowNotStarted
		}
		return FlowSnapshot{}, fmt.Errorf("load snapshot: %w", err)
	}
	var snap FlowSnapshot
	if err := json.Unmarshal(data, &snap); err != nil {
		return FlowSnapshot{}, fmt.Errorf("%w: %w", ErrSnapshotInvalid, err)
	}
	if len(snap.Questions) == 0 {
		return FlowSnapshot{}, fmt.Errorf("%w: no questions", ErrSnapshotInvalid)
	}
	return snap, nil
}

func (s *RedisSnapshotStore) DeleteSnapshot(ctx context.Context, userID, interviewID string) error {
	return s.rdb.Del(ctx, config.CacheKey.FlowSnapshotKey(userID, interviewID)).Err()
}
