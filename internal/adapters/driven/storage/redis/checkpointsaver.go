// Package redis implements checkpoint persistence on the devcontainer's
// Redis cache service.
//
// Every checkpoint is a hash at checkpoint:<thread>:<id> with the fields
// checkpoint, metadata and parent_ts. Lookups go through a per-thread sorted
// set, checkpoint_index:<thread>, whose members all share score 0 so Redis
// orders them lexicographically, which for checkpoint IDs is creation order.
// The set checkpoint_threads records every thread that has checkpoints.
package redis

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sort"

	goredis "github.com/redis/go-redis/v9"

	"github.com/custodia-labs/chatbot/internal/core/domain"
	"github.com/custodia-labs/chatbot/internal/core/ports/driven"
	"github.com/custodia-labs/chatbot/internal/logger"
)

// Ensure CheckpointSaver implements the interface.
var _ driven.CheckpointSaver = (*CheckpointSaver)(nil)

// Hash fields of a stored checkpoint.
const (
	fieldCheckpoint = "checkpoint"
	fieldMetadata   = "metadata"
	fieldParent     = "parent_ts"
)

const threadsKey = "checkpoint_threads"

func checkpointKey(threadID, checkpointID string) string {
	return fmt.Sprintf("checkpoint:%s:%s", threadID, checkpointID)
}

func indexKey(threadID string) string {
	return "checkpoint_index:" + threadID
}

// CheckpointSaver stores checkpoints in Redis.
type CheckpointSaver struct {
	client *goredis.Client
}

// NewCheckpointSaver creates a saver for the given connection settings.
// No connection is made until the first command; use Ping to check.
func NewCheckpointSaver(settings domain.RedisSettings) *CheckpointSaver {
	client := goredis.NewClient(&goredis.Options{
		Addr:     settings.Addr(),
		Password: settings.Password,
		DB:       settings.DB,
	})
	logger.Debug("redis: client configured for %s db=%d", settings.Addr(), settings.DB)
	return &CheckpointSaver{client: client}
}

// Put stores a checkpoint with cfg.CheckpointID as its parent. The hash and
// the index entries are written in one MULTI/EXEC transaction.
func (s *CheckpointSaver) Put(
	ctx context.Context,
	cfg domain.ThreadConfig,
	cp domain.Checkpoint,
	md domain.CheckpointMetadata,
) (domain.ThreadConfig, error) {
	if cfg.ThreadID == "" || cp.ID == "" {
		return cfg, fmt.Errorf("%w: thread id and checkpoint id are required", domain.ErrInvalidInput)
	}

	cpJSON, err := json.Marshal(cp)
	if err != nil {
		return cfg, fmt.Errorf("encode checkpoint: %w", err)
	}
	mdJSON, err := json.Marshal(md)
	if err != nil {
		return cfg, fmt.Errorf("encode metadata: %w", err)
	}

	_, err = s.client.TxPipelined(ctx, func(pipe goredis.Pipeliner) error {
		pipe.HSet(ctx, checkpointKey(cfg.ThreadID, cp.ID),
			fieldCheckpoint, string(cpJSON),
			fieldMetadata, string(mdJSON),
			fieldParent, cfg.CheckpointID,
		)
		pipe.ZAdd(ctx, indexKey(cfg.ThreadID), goredis.Z{Score: 0, Member: cp.ID})
		pipe.SAdd(ctx, threadsKey, cfg.ThreadID)
		return nil
	})
	if err != nil {
		return cfg, fmt.Errorf("store checkpoint %s: %w", cp.ID, err)
	}

	logger.Debug("redis: stored checkpoint %s for thread %s", cp.ID, cfg.ThreadID)
	return domain.ThreadConfig{ThreadID: cfg.ThreadID, CheckpointID: cp.ID}, nil
}

// GetTuple returns the addressed checkpoint, or the latest one in the thread.
func (s *CheckpointSaver) GetTuple(ctx context.Context, cfg domain.ThreadConfig) (*domain.CheckpointTuple, error) {
	id := cfg.CheckpointID
	if id == "" {
		ids, err := s.ids(ctx, cfg.ThreadID, "", 1)
		if err != nil {
			return nil, err
		}
		if len(ids) == 0 {
			logger.Debug("redis: no checkpoints for thread %s", cfg.ThreadID)
			return nil, nil
		}
		id = ids[0]
	}

	data, err := s.client.HGetAll(ctx, checkpointKey(cfg.ThreadID, id)).Result()
	if err != nil {
		return nil, fmt.Errorf("get checkpoint %s: %w", id, err)
	}
	if len(data) == 0 {
		return nil, nil
	}

	tuple, err := decodeTuple(cfg.ThreadID, id, data)
	if err != nil {
		return nil, err
	}
	logger.Debug("redis: loaded checkpoint %s for thread %s", id, cfg.ThreadID)
	return tuple, nil
}

// List returns checkpoints newest first. A nil cfg lists every thread.
func (s *CheckpointSaver) List(
	ctx context.Context,
	cfg *domain.ThreadConfig,
	opts domain.ListOptions,
) ([]domain.CheckpointTuple, error) {
	var threadIDs []string
	if cfg != nil {
		threadIDs = []string{cfg.ThreadID}
	} else {
		members, err := s.client.SMembers(ctx, threadsKey).Result()
		if err != nil {
			return nil, fmt.Errorf("list threads: %w", err)
		}
		threadIDs = members
	}

	before := ""
	if opts.Before != nil {
		before = opts.Before.CheckpointID
	}
	// With a single thread and no filter, Redis can apply the limit itself.
	count := int64(0)
	if len(threadIDs) == 1 && len(opts.Filter) == 0 && opts.Limit > 0 {
		count = int64(opts.Limit)
	}

	var tuples []domain.CheckpointTuple
	for _, threadID := range threadIDs {
		ids, err := s.ids(ctx, threadID, before, count)
		if err != nil {
			return nil, err
		}
		found, err := s.fetch(ctx, threadID, ids)
		if err != nil {
			return nil, err
		}
		for _, tuple := range found {
			if opts.Admits(tuple.Config.CheckpointID, tuple.Metadata) {
				tuples = append(tuples, tuple)
			}
		}
	}

	sort.SliceStable(tuples, func(i, j int) bool {
		a, b := tuples[i].Config, tuples[j].Config
		if a.CheckpointID != b.CheckpointID {
			return a.CheckpointID > b.CheckpointID
		}
		return a.ThreadID < b.ThreadID
	})
	if opts.Limit > 0 && len(tuples) > opts.Limit {
		tuples = tuples[:opts.Limit]
	}

	logger.Debug("redis: listed %d checkpoint(s)", len(tuples))
	return tuples, nil
}

// Threads summarises every stored thread, most recently updated first.
func (s *CheckpointSaver) Threads(ctx context.Context) ([]domain.ThreadSummary, error) {
	threadIDs, err := s.client.SMembers(ctx, threadsKey).Result()
	if err != nil {
		return nil, fmt.Errorf("list threads: %w", err)
	}

	summaries := make([]domain.ThreadSummary, 0, len(threadIDs))
	for _, threadID := range threadIDs {
		tuple, err := s.GetTuple(ctx, domain.ThreadConfig{ThreadID: threadID})
		if err != nil {
			return nil, err
		}
		if tuple == nil {
			continue
		}
		summaries = append(summaries, domain.ThreadSummary{
			ThreadID:           threadID,
			LatestCheckpointID: tuple.Checkpoint.ID,
			UpdatedAt:          tuple.Checkpoint.Timestamp,
			MessageCount:       len(tuple.Checkpoint.Messages),
		})
	}

	sort.Slice(summaries, func(i, j int) bool {
		return summaries[i].LatestCheckpointID > summaries[j].LatestCheckpointID
	})
	return summaries, nil
}

// DeleteThread removes every checkpoint of a thread and its index entries.
func (s *CheckpointSaver) DeleteThread(ctx context.Context, threadID string) error {
	ids, err := s.ids(ctx, threadID, "", 0)
	if err != nil {
		return err
	}
	if len(ids) == 0 {
		return fmt.Errorf("%w: thread %s", domain.ErrNotFound, threadID)
	}

	keys := make([]string, 0, len(ids)+1)
	for _, id := range ids {
		keys = append(keys, checkpointKey(threadID, id))
	}
	keys = append(keys, indexKey(threadID))

	_, err = s.client.TxPipelined(ctx, func(pipe goredis.Pipeliner) error {
		pipe.Del(ctx, keys...)
		pipe.SRem(ctx, threadsKey, threadID)
		return nil
	})
	if err != nil {
		return fmt.Errorf("delete thread %s: %w", threadID, err)
	}
	logger.Debug("redis: deleted %d checkpoint(s) of thread %s", len(ids), threadID)
	return nil
}

// Ping validates Redis is reachable.
func (s *CheckpointSaver) Ping(ctx context.Context) error {
	if err := s.client.Ping(ctx).Err(); err != nil {
		return fmt.Errorf("%w: %w", domain.ErrCheckpointUnavailable, err)
	}
	return nil
}

// Close releases the connection pool.
func (s *CheckpointSaver) Close() error {
	return s.client.Close()
}

// ids returns checkpoint IDs of a thread newest first, strictly below before
// when it is set. count 0 means all.
func (s *CheckpointSaver) ids(ctx context.Context, threadID, before string, count int64) ([]string, error) {
	rng := &goredis.ZRangeBy{Max: "+", Min: "-", Count: count}
	if before != "" {
		rng.Max = "(" + before
	}
	ids, err := s.client.ZRevRangeByLex(ctx, indexKey(threadID), rng).Result()
	if err != nil {
		return nil, fmt.Errorf("read index of thread %s: %w", threadID, err)
	}
	return ids, nil
}

// fetch loads many checkpoint hashes in one round trip. Index entries whose
// hash has gone are skipped.
func (s *CheckpointSaver) fetch(ctx context.Context, threadID string, ids []string) ([]domain.CheckpointTuple, error) {
	if len(ids) == 0 {
		return nil, nil
	}

	cmds := make([]*goredis.MapStringStringCmd, len(ids))
	_, err := s.client.Pipelined(ctx, func(pipe goredis.Pipeliner) error {
		for i, id := range ids {
			cmds[i] = pipe.HGetAll(ctx, checkpointKey(threadID, id))
		}
		return nil
	})
	if err != nil && !errors.Is(err, goredis.Nil) {
		return nil, fmt.Errorf("get checkpoints of thread %s: %w", threadID, err)
	}

	tuples := make([]domain.CheckpointTuple, 0, len(ids))
	for i, cmd := range cmds {
		data, err := cmd.Result()
		if err != nil {
			return nil, fmt.Errorf("get checkpoint %s: %w", ids[i], err)
		}
		if len(data) == 0 {
			continue
		}
		tuple, err := decodeTuple(threadID, ids[i], data)
		if err != nil {
			return nil, err
		}
		tuples = append(tuples, *tuple)
	}
	return tuples, nil
}

func decodeTuple(threadID, id string, data map[string]string) (*domain.CheckpointTuple, error) {
	rawCheckpoint, ok := data[fieldCheckpoint]
	if !ok {
		return nil, fmt.Errorf("checkpoint %s: missing %s field", id, fieldCheckpoint)
	}
	tuple := &domain.CheckpointTuple{
		Config: domain.ThreadConfig{ThreadID: threadID, CheckpointID: id},
	}
	if err := json.Unmarshal([]byte(rawCheckpoint), &tuple.Checkpoint); err != nil {
		return nil, fmt.Errorf("decode checkpoint %s: %w", id, err)
	}
	if raw := data[fieldMetadata]; raw != "" {
		if err := json.Unmarshal([]byte(raw), &tuple.Metadata); err != nil {
			return nil, fmt.Errorf("decode metadata %s: %w", id, err)
		}
	}
	if parent := data[fieldParent]; parent != "" {
		tuple.ParentConfig = &domain.ThreadConfig{ThreadID: threadID, CheckpointID: parent}
	}
	return tuple, nil
}
