// Package savertest holds the behaviour tests every driven.CheckpointSaver
// implementation must pass. Adapter packages call Run from their own tests.
package savertest

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/google/go-cmp/cmp/cmpopts"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/custodia-labs/chatbot/internal/core/domain"
	"github.com/custodia-labs/chatbot/internal/core/ports/driven"
)

// Factory returns an empty saver. Cleanup is the caller's job via t.Cleanup.
type Factory func(t *testing.T) driven.CheckpointSaver

var base = time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)

// Checkpoint builds a checkpoint whose ID is base plus offset microseconds.
func Checkpoint(offset int, messages ...domain.Message) domain.Checkpoint {
	ts := base.Add(time.Duration(offset) * time.Microsecond)
	cp := domain.EmptyCheckpoint()
	cp.ID = ts.Format(domain.CheckpointIDLayout)
	cp.Timestamp = ts
	cp.Messages = messages
	cp.ChannelVersions["messages"] = len(messages)
	return cp
}

// putChain stores n checkpoints in a thread, each the parent of the next.
func putChain(t *testing.T, s driven.CheckpointSaver, threadID string, n int) []domain.ThreadConfig {
	t.Helper()
	ctx := context.Background()

	cfg := domain.ThreadConfig{ThreadID: threadID}
	var configs []domain.ThreadConfig
	for i := 0; i < n; i++ {
		msg := domain.Message{ID: fmt.Sprintf("m%d", i), Role: domain.RoleUser, Content: fmt.Sprintf("msg %d", i)}
		source := domain.SourceLoop
		if i == 0 {
			source = domain.SourceInput
		}
		next, err := s.Put(ctx, cfg, Checkpoint(i, msg), domain.CheckpointMetadata{
			Source: source,
			Step:   i - 1,
			Writes: map[string][]domain.Message{"chatbot": {msg}},
		})
		require.NoError(t, err)
		configs = append(configs, next)
		cfg = next
	}
	return configs
}

// Run executes the full saver behaviour suite.
func Run(t *testing.T, newSaver Factory) {
	t.Run("PutReturnsAddressingConfig", func(t *testing.T) {
		s := newSaver(t)
		cp := Checkpoint(1)

		cfg, err := s.Put(context.Background(), domain.ThreadConfig{ThreadID: "t1"}, cp,
			domain.CheckpointMetadata{Source: domain.SourceInput, Step: -1})

		require.NoError(t, err)
		assert.Equal(t, domain.ThreadConfig{ThreadID: "t1", CheckpointID: cp.ID}, cfg)
	})

	t.Run("PutRejectsMissingIDs", func(t *testing.T) {
		s := newSaver(t)
		_, err := s.Put(context.Background(), domain.ThreadConfig{}, Checkpoint(1), domain.CheckpointMetadata{})
		assert.ErrorIs(t, err, domain.ErrInvalidInput)

		_, err = s.Put(context.Background(), domain.ThreadConfig{ThreadID: "t"}, domain.Checkpoint{}, domain.CheckpointMetadata{})
		assert.ErrorIs(t, err, domain.ErrInvalidInput)
	})

	t.Run("GetTupleMissingThread", func(t *testing.T) {
		s := newSaver(t)
		tuple, err := s.GetTuple(context.Background(), domain.ThreadConfig{ThreadID: "nope"})
		require.NoError(t, err)
		assert.Nil(t, tuple)
	})

	t.Run("GetTupleMissingCheckpoint", func(t *testing.T) {
		s := newSaver(t)
		putChain(t, s, "t1", 1)
		tuple, err := s.GetTuple(context.Background(), domain.ThreadConfig{ThreadID: "t1", CheckpointID: "missing"})
		require.NoError(t, err)
		assert.Nil(t, tuple)
	})

	t.Run("GetTupleLatestAndParent", func(t *testing.T) {
		s := newSaver(t)
		configs := putChain(t, s, "t1", 3)

		tuple, err := s.GetTuple(context.Background(), domain.ThreadConfig{ThreadID: "t1"})

		require.NoError(t, err)
		require.NotNil(t, tuple)
		assert.Equal(t, configs[2], tuple.Config)
		require.NotNil(t, tuple.ParentConfig)
		assert.Equal(t, configs[1], *tuple.ParentConfig)
		assert.Equal(t, domain.SourceLoop, tuple.Metadata.Source)
		assert.Equal(t, 1, tuple.Metadata.Step)
		assert.Equal(t, "msg 2", tuple.Checkpoint.Messages[0].Content)
	})

	t.Run("GetTupleExactRoundTrip", func(t *testing.T) {
		s := newSaver(t)
		configs := putChain(t, s, "t1", 2)

		tuple, err := s.GetTuple(context.Background(), configs[0])

		require.NoError(t, err)
		require.NotNil(t, tuple)
		assert.Nil(t, tuple.ParentConfig, "first checkpoint has no parent")

		want := Checkpoint(0, domain.Message{ID: "m0", Role: domain.RoleUser, Content: "msg 0"})
		if diff := cmp.Diff(want, tuple.Checkpoint, cmpopts.EquateEmpty(), cmpopts.EquateApproxTime(0)); diff != "" {
			t.Errorf("checkpoint mismatch (-want +got):\n%s", diff)
		}
		assert.Equal(t, domain.CheckpointMetadata{
			Source: domain.SourceInput,
			Step:   -1,
			Writes: map[string][]domain.Message{"chatbot": {{ID: "m0", Role: domain.RoleUser, Content: "msg 0"}}},
		}, tuple.Metadata)
	})

	t.Run("ListNewestFirst", func(t *testing.T) {
		s := newSaver(t)
		configs := putChain(t, s, "t1", 4)

		tuples, err := s.List(context.Background(), &domain.ThreadConfig{ThreadID: "t1"}, domain.ListOptions{})

		require.NoError(t, err)
		require.Len(t, tuples, 4)
		for i, tuple := range tuples {
			assert.Equal(t, configs[3-i], tuple.Config)
		}
	})

	t.Run("ListBeforeAndLimit", func(t *testing.T) {
		s := newSaver(t)
		configs := putChain(t, s, "t1", 5)

		tuples, err := s.List(context.Background(), &domain.ThreadConfig{ThreadID: "t1"}, domain.ListOptions{
			Before: &configs[3],
			Limit:  2,
		})

		require.NoError(t, err)
		require.Len(t, tuples, 2)
		assert.Equal(t, configs[2], tuples[0].Config)
		assert.Equal(t, configs[1], tuples[1].Config)
	})

	t.Run("ListFilter", func(t *testing.T) {
		s := newSaver(t)
		configs := putChain(t, s, "t1", 3)

		tuples, err := s.List(context.Background(), &domain.ThreadConfig{ThreadID: "t1"}, domain.ListOptions{
			Filter: map[string]any{"source": domain.SourceInput},
		})
		require.NoError(t, err)
		require.Len(t, tuples, 1)
		assert.Equal(t, configs[0], tuples[0].Config)

		tuples, err = s.List(context.Background(), &domain.ThreadConfig{ThreadID: "t1"}, domain.ListOptions{
			Filter: map[string]any{"step": 1},
		})
		require.NoError(t, err)
		require.Len(t, tuples, 1)
		assert.Equal(t, configs[2], tuples[0].Config)
	})

	t.Run("ListAllThreads", func(t *testing.T) {
		s := newSaver(t)
		putChain(t, s, "a", 2)
		putChain(t, s, "b", 1)

		tuples, err := s.List(context.Background(), nil, domain.ListOptions{})

		require.NoError(t, err)
		assert.Len(t, tuples, 3)
		for i := 1; i < len(tuples); i++ {
			assert.GreaterOrEqual(t, tuples[i-1].Config.CheckpointID, tuples[i].Config.CheckpointID)
		}
	})

	t.Run("ListUnknownThreadIsEmpty", func(t *testing.T) {
		s := newSaver(t)
		tuples, err := s.List(context.Background(), &domain.ThreadConfig{ThreadID: "none"}, domain.ListOptions{})
		require.NoError(t, err)
		assert.Empty(t, tuples)
	})

	t.Run("ThreadsAndDelete", func(t *testing.T) {
		s := newSaver(t)
		ctx := context.Background()
		putChain(t, s, "old", 1)
		b := domain.ThreadConfig{ThreadID: "new"}
		_, err := s.Put(ctx, b, Checkpoint(10, domain.Message{ID: "x", Role: domain.RoleUser, Content: "x"},
			domain.Message{ID: "y", Role: domain.RoleAssistant, Content: "y"}), domain.CheckpointMetadata{Source: domain.SourceLoop})
		require.NoError(t, err)

		threads, err := s.Threads(ctx)
		require.NoError(t, err)
		require.Len(t, threads, 2)
		assert.Equal(t, "new", threads[0].ThreadID)
		assert.Equal(t, 2, threads[0].MessageCount)
		assert.Equal(t, Checkpoint(10).ID, threads[0].LatestCheckpointID)
		assert.True(t, threads[0].UpdatedAt.Equal(Checkpoint(10).Timestamp))
		assert.Equal(t, "old", threads[1].ThreadID)

		require.NoError(t, s.DeleteThread(ctx, "old"))
		tuple, err := s.GetTuple(ctx, domain.ThreadConfig{ThreadID: "old"})
		require.NoError(t, err)
		assert.Nil(t, tuple)

		threads, err = s.Threads(ctx)
		require.NoError(t, err)
		assert.Len(t, threads, 1)

		err = s.DeleteThread(ctx, "old")
		assert.True(t, errors.Is(err, domain.ErrNotFound))
	})

	t.Run("ConcurrentPuts", func(t *testing.T) {
		s := newSaver(t)
		var wg sync.WaitGroup
		for i := 0; i < 8; i++ {
			wg.Add(1)
			go func(i int) {
				defer wg.Done()
				_, err := s.Put(context.Background(), domain.ThreadConfig{ThreadID: "c"}, Checkpoint(i),
					domain.CheckpointMetadata{Source: domain.SourceLoop, Step: i})
				assert.NoError(t, err)
			}(i)
		}
		wg.Wait()

		tuples, err := s.List(context.Background(), &domain.ThreadConfig{ThreadID: "c"}, domain.ListOptions{})
		require.NoError(t, err)
		assert.Len(t, tuples, 8)
	})

	t.Run("Ping", func(t *testing.T) {
		assert.NoError(t, newSaver(t).Ping(context.Background()))
	})
}
