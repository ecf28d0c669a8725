package services

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/custodia-labs/chatbot/internal/adapters/driven/storage/memory"
	"github.com/custodia-labs/chatbot/internal/core/domain"
)

func echoNode(_ context.Context, messages []domain.Message) ([]domain.Message, error) {
	last := messages[len(messages)-1]
	return []domain.Message{domain.NewAssistantMessage("echo: " + last.Content)}, nil
}

func compileEcho(t *testing.T, saver *memory.CheckpointSaver) *Graph {
	t.Helper()
	var g *Graph
	var err error
	if saver == nil {
		g, err = NewStateGraph().AddNode("echo", echoNode).AddEdge(START, "echo").AddEdge("echo", END).Compile(nil)
	} else {
		g, err = NewStateGraph().AddNode("echo", echoNode).AddEdge(START, "echo").AddEdge("echo", END).Compile(saver)
	}
	require.NoError(t, err)
	return g
}

func TestStateGraph_Compile_Linear(t *testing.T) {
	noop := func(_ context.Context, _ []domain.Message) ([]domain.Message, error) { return nil, nil }

	g, err := NewStateGraph().
		AddNode("b", noop).
		AddNode("a", noop).
		AddEdge(START, "a").
		AddEdge("a", "b").
		AddEdge("b", END).
		Compile(nil)

	require.NoError(t, err)
	assert.Equal(t, []string{"a", "b"}, g.Nodes())
}

func TestStateGraph_Compile_Errors(t *testing.T) {
	noop := func(_ context.Context, _ []domain.Message) ([]domain.Message, error) { return nil, nil }

	tests := []struct {
		name  string
		build func() *StateGraph
		want  string
	}{
		{
			name:  "no entry",
			build: func() *StateGraph { return NewStateGraph().AddNode("a", noop).AddEdge("a", END) },
			want:  "no entry edge from START",
		},
		{
			name:  "unknown target",
			build: func() *StateGraph { return NewStateGraph().AddEdge(START, "ghost") },
			want:  `edge to unknown node "ghost"`,
		},
		{
			name:  "unknown source",
			build: func() *StateGraph { return NewStateGraph().AddNode("a", noop).AddEdge(START, "a").AddEdge("ghost", END) },
			want:  `edge from unknown node "ghost"`,
		},
		{
			name: "fan out",
			build: func() *StateGraph {
				return NewStateGraph().AddNode("a", noop).AddNode("b", noop).
					AddEdge(START, "a").AddEdge("a", "b").AddEdge("a", END).AddEdge("b", END)
			},
			want: `node "a" has 2 outgoing edges`,
		},
		{
			name:  "dead end",
			build: func() *StateGraph { return NewStateGraph().AddNode("a", noop).AddEdge(START, "a") },
			want:  `node "a" has no path to END`,
		},
		{
			name: "cycle",
			build: func() *StateGraph {
				return NewStateGraph().AddNode("a", noop).AddNode("b", noop).
					AddEdge(START, "a").AddEdge("a", "b").AddEdge("b", "a")
			},
			want: "never reaches END",
		},
		{
			name:  "reserved name",
			build: func() *StateGraph { return NewStateGraph().AddNode(END, noop).AddEdge(START, END) },
			want:  "is reserved",
		},
		{
			name:  "nil function",
			build: func() *StateGraph { return NewStateGraph().AddNode("a", nil).AddEdge(START, END) },
			want:  `node "a" has no function`,
		},
		{
			name: "duplicate",
			build: func() *StateGraph {
				return NewStateGraph().AddNode("a", noop).AddNode("a", noop).AddEdge(START, "a").AddEdge("a", END)
			},
			want: `node "a" added twice`,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := tt.build().Compile(nil)
			require.Error(t, err)
			assert.ErrorIs(t, err, domain.ErrInvalidGraph)
			assert.Contains(t, err.Error(), tt.want)
		})
	}
}

func TestGraph_Stream_SavesInputAndLoopCheckpoints(t *testing.T) {
	saver := memory.NewCheckpointSaver()
	g := compileEcho(t, saver)
	ctx := context.Background()

	var events []Event
	cfg, err := g.Stream(ctx, []domain.Message{domain.NewUserMessage("hi")},
		domain.ThreadConfig{ThreadID: "t1"},
		func(ev Event) error {
			events = append(events, ev)
			return nil
		})

	require.NoError(t, err)
	require.Len(t, events, 1)
	assert.Equal(t, "echo", events[0].Node)
	assert.Equal(t, "echo: hi", events[0].Messages[0].Content)
	assert.NotEmpty(t, events[0].Messages[0].ID)
	assert.Equal(t, cfg, events[0].Config)

	tuples, err := saver.List(ctx, &domain.ThreadConfig{ThreadID: "t1"}, domain.ListOptions{})
	require.NoError(t, err)
	require.Len(t, tuples, 2)

	loop, input := tuples[0], tuples[1]
	assert.Equal(t, domain.SourceInput, input.Metadata.Source)
	assert.Equal(t, -1, input.Metadata.Step)
	assert.Nil(t, input.ParentConfig)
	assert.Len(t, input.Checkpoint.Messages, 1)
	assert.Equal(t, 1, input.Checkpoint.ChannelVersions["messages"])

	assert.Equal(t, domain.SourceLoop, loop.Metadata.Source)
	assert.Equal(t, 0, loop.Metadata.Step)
	require.NotNil(t, loop.ParentConfig)
	assert.Equal(t, input.Config, *loop.ParentConfig)
	assert.Len(t, loop.Checkpoint.Messages, 2)
	assert.Equal(t, 2, loop.Checkpoint.ChannelVersions["messages"])
	assert.Equal(t, map[string]int{"messages": 1}, loop.Checkpoint.VersionsSeen["echo"])
	assert.Equal(t, "echo: hi", loop.Metadata.Writes["echo"][0].Content)
	assert.Equal(t, cfg, loop.Config)
}

func TestGraph_Stream_ResumesThread(t *testing.T) {
	saver := memory.NewCheckpointSaver()
	g := compileEcho(t, saver)
	ctx := context.Background()
	thread := domain.ThreadConfig{ThreadID: "t1"}

	_, err := g.Stream(ctx, []domain.Message{domain.NewUserMessage("one")}, thread, nil)
	require.NoError(t, err)
	_, err = g.Stream(ctx, []domain.Message{domain.NewUserMessage("two")}, thread, nil)
	require.NoError(t, err)

	tuple, err := g.State(ctx, thread)
	require.NoError(t, err)
	require.NotNil(t, tuple)

	contents := make([]string, 0, len(tuple.Checkpoint.Messages))
	for _, m := range tuple.Checkpoint.Messages {
		contents = append(contents, m.Content)
	}
	assert.Equal(t, []string{"one", "echo: one", "two", "echo: two"}, contents)
	assert.Equal(t, 2, tuple.Metadata.Step, "steps continue across turns")

	tuples, err := saver.List(ctx, &thread, domain.ListOptions{})
	require.NoError(t, err)
	assert.Len(t, tuples, 4)
	for i := 1; i < len(tuples); i++ {
		assert.Greater(t, tuples[i-1].Config.CheckpointID, tuples[i].Config.CheckpointID)
	}
}

func TestGraph_Stream_ForkFromCheckpoint(t *testing.T) {
	saver := memory.NewCheckpointSaver()
	g := compileEcho(t, saver)
	ctx := context.Background()
	thread := domain.ThreadConfig{ThreadID: "t1"}

	first, err := g.Stream(ctx, []domain.Message{domain.NewUserMessage("one")}, thread, nil)
	require.NoError(t, err)
	_, err = g.Stream(ctx, []domain.Message{domain.NewUserMessage("two")}, thread, nil)
	require.NoError(t, err)

	_, err = g.Stream(ctx, []domain.Message{domain.NewUserMessage("alt")}, first, nil)
	require.NoError(t, err)

	tuple, err := g.State(ctx, thread)
	require.NoError(t, err)
	require.Len(t, tuple.Checkpoint.Messages, 4)
	assert.Equal(t, "alt", tuple.Checkpoint.Messages[2].Content)
}

func TestGraph_Stream_UnknownCheckpoint(t *testing.T) {
	g := compileEcho(t, memory.NewCheckpointSaver())

	_, err := g.Stream(context.Background(), nil, domain.ThreadConfig{ThreadID: "t", CheckpointID: "nope"}, nil)

	assert.ErrorIs(t, err, domain.ErrNotFound)
}

func TestGraph_Stream_WithoutSaverIsStateless(t *testing.T) {
	g := compileEcho(t, nil)
	ctx := context.Background()

	var seen int
	node := func(_ context.Context, messages []domain.Message) ([]domain.Message, error) {
		seen = len(messages)
		return nil, nil
	}
	g.nodes["echo"] = node

	cfg, err := g.Stream(ctx, []domain.Message{domain.NewUserMessage("a")}, domain.ThreadConfig{ThreadID: "t"}, nil)
	require.NoError(t, err)
	assert.Equal(t, "t", cfg.ThreadID)
	assert.NotEmpty(t, cfg.CheckpointID)

	_, err = g.Stream(ctx, []domain.Message{domain.NewUserMessage("b")}, domain.ThreadConfig{ThreadID: "t"}, nil)
	require.NoError(t, err)
	assert.Equal(t, 1, seen)

	tuple, err := g.State(ctx, domain.ThreadConfig{ThreadID: "t"})
	require.NoError(t, err)
	assert.Nil(t, tuple)
}

func TestGraph_Stream_RequiresThreadID(t *testing.T) {
	g := compileEcho(t, nil)
	_, err := g.Stream(context.Background(), nil, domain.ThreadConfig{}, nil)
	assert.ErrorIs(t, err, domain.ErrInvalidInput)
}

func TestGraph_Stream_NodeError(t *testing.T) {
	saver := memory.NewCheckpointSaver()
	boom := errors.New("boom")
	g, err := NewStateGraph().
		AddNode("fail", func(context.Context, []domain.Message) ([]domain.Message, error) { return nil, boom }).
		AddEdge(START, "fail").
		AddEdge("fail", END).
		Compile(saver)
	require.NoError(t, err)

	cfg, err := g.Stream(context.Background(), []domain.Message{domain.NewUserMessage("x")},
		domain.ThreadConfig{ThreadID: "t"}, nil)

	assert.ErrorIs(t, err, boom)
	assert.Contains(t, err.Error(), "node fail")

	// The input checkpoint survives so the user turn is not lost.
	tuple, getErr := saver.GetTuple(context.Background(), domain.ThreadConfig{ThreadID: "t"})
	require.NoError(t, getErr)
	require.NotNil(t, tuple)
	assert.Equal(t, cfg, tuple.Config)
	assert.Equal(t, domain.SourceInput, tuple.Metadata.Source)
}

func TestGraph_Stream_CallbackErrorStops(t *testing.T) {
	g := compileEcho(t, memory.NewCheckpointSaver())
	stop := errors.New("stop")

	_, err := g.Stream(context.Background(), []domain.Message{domain.NewUserMessage("x")},
		domain.ThreadConfig{ThreadID: "t"}, func(Event) error { return stop })

	assert.ErrorIs(t, err, stop)
}

func TestGraph_Stream_CancelledContext(t *testing.T) {
	ran := false
	g, err := NewStateGraph().
		AddNode("n", func(context.Context, []domain.Message) ([]domain.Message, error) {
			ran = true
			return nil, nil
		}).
		AddEdge(START, "n").
		AddEdge("n", END).
		Compile(memory.NewCheckpointSaver())
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err = g.Stream(ctx, nil, domain.ThreadConfig{ThreadID: "t"}, nil)

	assert.ErrorIs(t, err, context.Canceled)
	assert.False(t, ran)
}

func TestGraph_UpdateState(t *testing.T) {
	saver := memory.NewCheckpointSaver()
	g := compileEcho(t, saver)
	ctx := context.Background()
	thread := domain.ThreadConfig{ThreadID: "t"}

	_, err := g.Stream(ctx, []domain.Message{domain.NewUserMessage("hi")}, thread, nil)
	require.NoError(t, err)

	tuple, err := g.State(ctx, thread)
	require.NoError(t, err)
	reply := tuple.Checkpoint.Messages[1]
	reply.Content = "edited"

	cfg, err := g.UpdateState(ctx, thread, []domain.Message{reply}, "echo")
	require.NoError(t, err)

	updated, err := g.State(ctx, cfg)
	require.NoError(t, err)
	assert.Equal(t, domain.SourceUpdate, updated.Metadata.Source)
	assert.Equal(t, 1, updated.Metadata.Step)
	require.Len(t, updated.Checkpoint.Messages, 2)
	assert.Equal(t, "edited", updated.Checkpoint.Messages[1].Content)
}

func TestGraph_UpdateState_Errors(t *testing.T) {
	ctx := context.Background()

	_, err := compileEcho(t, nil).UpdateState(ctx, domain.ThreadConfig{ThreadID: "t"}, nil, "echo")
	assert.ErrorIs(t, err, domain.ErrCheckpointUnavailable)

	g := compileEcho(t, memory.NewCheckpointSaver())
	_, err = g.UpdateState(ctx, domain.ThreadConfig{ThreadID: "t"}, nil, "ghost")
	assert.ErrorIs(t, err, domain.ErrInvalidInput)

	_, err = g.UpdateState(ctx, domain.ThreadConfig{}, nil, START)
	assert.ErrorIs(t, err, domain.ErrInvalidInput)
}
