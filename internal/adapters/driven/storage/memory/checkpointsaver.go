package memory

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"github.com/custodia-labs/chatbot/internal/core/domain"
	"github.com/custodia-labs/chatbot/internal/core/ports/driven"
)

// Ensure CheckpointSaver implements the interface.
var _ driven.CheckpointSaver = (*CheckpointSaver)(nil)

type checkpointEntry struct {
	checkpoint domain.Checkpoint
	metadata   domain.CheckpointMetadata
	parentID   string
}

// CheckpointSaver is an in-memory implementation of driven.CheckpointSaver.
// Checkpoints live for the lifetime of the process.
type CheckpointSaver struct {
	mu      sync.RWMutex
	threads map[string]map[string]checkpointEntry
}

// NewCheckpointSaver creates a new in-memory checkpoint saver.
func NewCheckpointSaver() *CheckpointSaver {
	return &CheckpointSaver{
		threads: make(map[string]map[string]checkpointEntry),
	}
}

// Put stores a checkpoint with cfg.CheckpointID as its parent.
func (s *CheckpointSaver) Put(
	_ context.Context,
	cfg domain.ThreadConfig,
	cp domain.Checkpoint,
	md domain.CheckpointMetadata,
) (domain.ThreadConfig, error) {
	if cfg.ThreadID == "" || cp.ID == "" {
		return cfg, fmt.Errorf("%w: thread id and checkpoint id are required", domain.ErrInvalidInput)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	thread, ok := s.threads[cfg.ThreadID]
	if !ok {
		thread = make(map[string]checkpointEntry)
		s.threads[cfg.ThreadID] = thread
	}
	thread[cp.ID] = checkpointEntry{
		checkpoint: cp.Copy(),
		metadata:   copyMetadata(md),
		parentID:   cfg.CheckpointID,
	}

	return domain.ThreadConfig{ThreadID: cfg.ThreadID, CheckpointID: cp.ID}, nil
}

// GetTuple returns the addressed checkpoint, or the latest one in the thread.
func (s *CheckpointSaver) GetTuple(_ context.Context, cfg domain.ThreadConfig) (*domain.CheckpointTuple, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	thread := s.threads[cfg.ThreadID]
	if len(thread) == 0 {
		return nil, nil
	}

	id := cfg.CheckpointID
	if id == "" {
		ids := sortedIDs(thread)
		id = ids[0]
	}
	entry, ok := thread[id]
	if !ok {
		return nil, nil
	}
	tuple := entry.tuple(cfg.ThreadID)
	return &tuple, nil
}

// List returns checkpoints newest first. A nil cfg lists every thread.
func (s *CheckpointSaver) List(
	_ context.Context,
	cfg *domain.ThreadConfig,
	opts domain.ListOptions,
) ([]domain.CheckpointTuple, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var threadIDs []string
	if cfg != nil {
		threadIDs = []string{cfg.ThreadID}
	} else {
		for id := range s.threads {
			threadIDs = append(threadIDs, id)
		}
	}

	var tuples []domain.CheckpointTuple
	for _, threadID := range threadIDs {
		for id, entry := range s.threads[threadID] {
			if !opts.Admits(id, entry.metadata) {
				continue
			}
			tuples = append(tuples, entry.tuple(threadID))
		}
	}

	sort.Slice(tuples, func(i, j int) bool {
		a, b := tuples[i].Config, tuples[j].Config
		if a.CheckpointID != b.CheckpointID {
			return a.CheckpointID > b.CheckpointID
		}
		return a.ThreadID < b.ThreadID
	})

	if opts.Limit > 0 && len(tuples) > opts.Limit {
		tuples = tuples[:opts.Limit]
	}
	return tuples, nil
}

// Threads summarises every stored thread, most recently updated first.
func (s *CheckpointSaver) Threads(_ context.Context) ([]domain.ThreadSummary, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	summaries := make([]domain.ThreadSummary, 0, len(s.threads))
	for threadID, thread := range s.threads {
		if len(thread) == 0 {
			continue
		}
		latest := thread[sortedIDs(thread)[0]].checkpoint
		summaries = append(summaries, domain.ThreadSummary{
			ThreadID:           threadID,
			LatestCheckpointID: latest.ID,
			UpdatedAt:          latest.Timestamp,
			MessageCount:       len(latest.Messages),
		})
	}

	sort.Slice(summaries, func(i, j int) bool {
		return summaries[i].LatestCheckpointID > summaries[j].LatestCheckpointID
	})
	return summaries, nil
}

// DeleteThread removes every checkpoint of a thread.
func (s *CheckpointSaver) DeleteThread(_ context.Context, threadID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.threads[threadID]; !ok {
		return fmt.Errorf("%w: thread %s", domain.ErrNotFound, threadID)
	}
	delete(s.threads, threadID)
	return nil
}

// Ping always succeeds.
func (s *CheckpointSaver) Ping(_ context.Context) error {
	return nil
}

// Close is a no-op.
func (s *CheckpointSaver) Close() error {
	return nil
}

func (e checkpointEntry) tuple(threadID string) domain.CheckpointTuple {
	tuple := domain.CheckpointTuple{
		Config:     domain.ThreadConfig{ThreadID: threadID, CheckpointID: e.checkpoint.ID},
		Checkpoint: e.checkpoint.Copy(),
		Metadata:   copyMetadata(e.metadata),
	}
	if e.parentID != "" {
		tuple.ParentConfig = &domain.ThreadConfig{ThreadID: threadID, CheckpointID: e.parentID}
	}
	return tuple
}

// sortedIDs returns checkpoint IDs newest first.
func sortedIDs(thread map[string]checkpointEntry) []string {
	ids := make([]string, 0, len(thread))
	for id := range thread {
		ids = append(ids, id)
	}
	sort.Sort(sort.Reverse(sort.StringSlice(ids)))
	return ids
}

func copyMetadata(md domain.CheckpointMetadata) domain.CheckpointMetadata {
	if md.Writes == nil {
		return md
	}
	writes := make(map[string][]domain.Message, len(md.Writes))
	for node, msgs := range md.Writes {
		writes[node] = append([]domain.Message(nil), msgs...)
	}
	md.Writes = writes
	return md
}
