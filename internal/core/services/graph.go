package services

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/custodia-labs/chatbot/internal/core/domain"
	"github.com/custodia-labs/chatbot/internal/core/ports/driven"
	"github.com/custodia-labs/chatbot/internal/logger"
)

// Reserved node names marking where a graph run begins and ends.
const (
	START = "__start__"
	END   = "__end__"
)

// channelMessages is the only state channel: the conversation transcript.
const channelMessages = "messages"

// NodeFunc is a graph step. It receives the current transcript and returns
// the messages it writes, which are merged with AddMessages.
type NodeFunc func(ctx context.Context, messages []domain.Message) ([]domain.Message, error)

// Event is emitted after each node runs and its checkpoint is saved.
type Event struct {
	// Node is the name of the node that ran.
	Node string

	// Messages are the messages the node wrote, with IDs assigned.
	Messages []domain.Message

	// Config addresses the checkpoint saved after the node.
	Config domain.ThreadConfig
}

// StateGraph is a builder for a linear message graph.
// Registration mistakes are collected and reported by Compile.
type StateGraph struct {
	nodes map[string]NodeFunc
	edges map[string][]string
	errs  []error
}

// NewStateGraph creates an empty graph builder.
func NewStateGraph() *StateGraph {
	return &StateGraph{
		nodes: make(map[string]NodeFunc),
		edges: make(map[string][]string),
	}
}

// AddNode registers a named step.
func (g *StateGraph) AddNode(name string, fn NodeFunc) *StateGraph {
	switch {
	case name == "":
		g.errs = append(g.errs, errors.New("node name is empty"))
	case name == START || name == END:
		g.errs = append(g.errs, fmt.Errorf("node name %q is reserved", name))
	case fn == nil:
		g.errs = append(g.errs, fmt.Errorf("node %q has no function", name))
	default:
		if _, exists := g.nodes[name]; exists {
			g.errs = append(g.errs, fmt.Errorf("node %q added twice", name))
			break
		}
		g.nodes[name] = fn
	}
	return g
}

// AddEdge connects two nodes. Use START and END for the graph boundaries.
func (g *StateGraph) AddEdge(from, to string) *StateGraph {
	g.edges[from] = append(g.edges[from], to)
	return g
}

// Compile validates the graph and returns a runnable Graph.
// The saver may be nil, in which case nothing persists between runs.
func (g *StateGraph) Compile(saver driven.CheckpointSaver) (*Graph, error) {
	problems := append([]error(nil), g.errs...)

	for from, targets := range g.edges {
		if from == END {
			problems = append(problems, errors.New("END cannot have outgoing edges"))
			continue
		}
		if from != START {
			if _, ok := g.nodes[from]; !ok {
				problems = append(problems, fmt.Errorf("edge from unknown node %q", from))
			}
		}
		if len(targets) > 1 {
			problems = append(problems, fmt.Errorf("node %q has %d outgoing edges", from, len(targets)))
		}
		for _, to := range targets {
			if to == START {
				problems = append(problems, fmt.Errorf("edge from %q into START", from))
				continue
			}
			if to == END {
				continue
			}
			if _, ok := g.nodes[to]; !ok {
				problems = append(problems, fmt.Errorf("edge to unknown node %q", to))
			}
		}
	}

	if len(g.edges[START]) == 0 {
		problems = append(problems, errors.New("no entry edge from START"))
	}

	if len(problems) > 0 {
		return nil, fmt.Errorf("%w: %w", domain.ErrInvalidGraph, errors.Join(problems...))
	}

	// Walk from START; every node has one successor, so this is the run order.
	var path []string
	visited := make(map[string]bool)
	for current := g.edges[START][0]; current != END; {
		if visited[current] {
			return nil, fmt.Errorf("%w: cycle through node %q never reaches END", domain.ErrInvalidGraph, current)
		}
		visited[current] = true
		path = append(path, current)

		next := g.edges[current]
		if len(next) == 0 {
			return nil, fmt.Errorf("%w: node %q has no path to END", domain.ErrInvalidGraph, current)
		}
		current = next[0]
	}

	nodes := make(map[string]NodeFunc, len(path))
	for _, name := range path {
		nodes[name] = g.nodes[name]
	}

	return &Graph{
		path:  path,
		nodes: nodes,
		saver: saver,
		clock: newCheckpointClock(time.Now),
	}, nil
}

// Graph is a compiled, runnable StateGraph. It is safe for concurrent use
// on different threads.
type Graph struct {
	path  []string
	nodes map[string]NodeFunc
	saver driven.CheckpointSaver
	clock *checkpointClock
}

// Nodes returns the node names in run order.
func (g *Graph) Nodes() []string {
	return append([]string(nil), g.path...)
}

// Stream runs one turn on the thread addressed by cfg. The latest checkpoint
// (or the one cfg names) is loaded, input is merged and checkpointed, then
// each node runs in order. fn, when non-nil, receives an Event after every
// node; returning an error stops the run. The returned config addresses the
// last checkpoint written.
func (g *Graph) Stream(
	ctx context.Context,
	input []domain.Message,
	cfg domain.ThreadConfig,
	fn func(Event) error,
) (domain.ThreadConfig, error) {
	if cfg.ThreadID == "" {
		return cfg, fmt.Errorf("%w: thread id is required", domain.ErrInvalidInput)
	}

	state, current, step, err := g.load(ctx, cfg)
	if err != nil {
		return cfg, err
	}

	logger.Section("Graph run " + cfg.ThreadID)

	writes := assignIDs(input)
	state.Messages = AddMessages(state.Messages, writes)
	if len(writes) > 0 {
		state.ChannelVersions[channelMessages]++
	}
	current, err = g.save(ctx, current, &state, domain.CheckpointMetadata{
		Source: domain.SourceInput,
		Step:   step,
		Writes: map[string][]domain.Message{START: writes},
	})
	if err != nil {
		return current, err
	}

	for _, name := range g.path {
		if err := ctx.Err(); err != nil {
			return current, err
		}

		state.VersionsSeen[name] = map[string]int{channelMessages: state.ChannelVersions[channelMessages]}

		logger.Debug("graph: running node %s with %d messages", name, len(state.Messages))
		out, err := g.nodes[name](ctx, append([]domain.Message(nil), state.Messages...))
		if err != nil {
			return current, fmt.Errorf("node %s: %w", name, err)
		}

		out = assignIDs(out)
		state.Messages = AddMessages(state.Messages, out)
		if len(out) > 0 {
			state.ChannelVersions[channelMessages]++
		}

		step++
		current, err = g.save(ctx, current, &state, domain.CheckpointMetadata{
			Source: domain.SourceLoop,
			Step:   step,
			Writes: map[string][]domain.Message{name: out},
		})
		if err != nil {
			return current, err
		}

		if fn != nil {
			if err := fn(Event{Node: name, Messages: out, Config: current}); err != nil {
				return current, err
			}
		}
	}

	return current, nil
}

// UpdateState merges messages into the thread as if node asNode had written
// them, without running any node. The checkpoint is recorded with source
// "update".
func (g *Graph) UpdateState(
	ctx context.Context,
	cfg domain.ThreadConfig,
	messages []domain.Message,
	asNode string,
) (domain.ThreadConfig, error) {
	if cfg.ThreadID == "" {
		return cfg, fmt.Errorf("%w: thread id is required", domain.ErrInvalidInput)
	}
	if g.saver == nil {
		return cfg, fmt.Errorf("%w: state updates need a checkpoint saver", domain.ErrCheckpointUnavailable)
	}
	if asNode != START {
		if _, ok := g.nodes[asNode]; !ok {
			return cfg, fmt.Errorf("%w: unknown node %q", domain.ErrInvalidInput, asNode)
		}
	}

	state, current, step, err := g.load(ctx, cfg)
	if err != nil {
		return cfg, err
	}

	writes := assignIDs(messages)
	state.Messages = AddMessages(state.Messages, writes)
	if len(writes) > 0 {
		state.ChannelVersions[channelMessages]++
	}
	return g.save(ctx, current, &state, domain.CheckpointMetadata{
		Source: domain.SourceUpdate,
		Step:   step,
		Writes: map[string][]domain.Message{asNode: writes},
	})
}

// State returns the checkpoint addressed by cfg, or nil if the thread has none.
func (g *Graph) State(ctx context.Context, cfg domain.ThreadConfig) (*domain.CheckpointTuple, error) {
	if g.saver == nil {
		return nil, nil
	}
	tuple, err := g.saver.GetTuple(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("get checkpoint: %w", err)
	}
	return tuple, nil
}

// load returns the starting state, the config that becomes the parent of the
// next checkpoint, and the step number for the next checkpoint.
func (g *Graph) load(ctx context.Context, cfg domain.ThreadConfig) (domain.Checkpoint, domain.ThreadConfig, int, error) {
	fresh := domain.ThreadConfig{ThreadID: cfg.ThreadID}

	tuple, err := g.State(ctx, cfg)
	if err != nil {
		return domain.Checkpoint{}, cfg, 0, err
	}
	if tuple == nil {
		if cfg.CheckpointID != "" {
			return domain.Checkpoint{}, cfg, 0, fmt.Errorf("%w: checkpoint %s in thread %s",
				domain.ErrNotFound, cfg.CheckpointID, cfg.ThreadID)
		}
		return domain.EmptyCheckpoint(), fresh, -1, nil
	}

	g.clock.Observe(tuple.Checkpoint.ID)
	state := tuple.Checkpoint.Copy()
	if state.ChannelVersions == nil {
		state.ChannelVersions = make(map[string]int)
	}
	if state.VersionsSeen == nil {
		state.VersionsSeen = make(map[string]map[string]int)
	}
	return state, tuple.Config, tuple.Metadata.Step + 1, nil
}

// save stamps state with a fresh ID and stores it with parent as its parent.
func (g *Graph) save(
	ctx context.Context,
	parent domain.ThreadConfig,
	state *domain.Checkpoint,
	md domain.CheckpointMetadata,
) (domain.ThreadConfig, error) {
	state.Version = domain.CheckpointFormatVersion
	state.Timestamp, state.ID = g.clock.Next()

	if g.saver == nil {
		return domain.ThreadConfig{ThreadID: parent.ThreadID, CheckpointID: state.ID}, nil
	}

	next, err := g.saver.Put(ctx, parent, state.Copy(), md)
	if err != nil {
		return parent, fmt.Errorf("put checkpoint: %w", err)
	}
	logger.Debug("graph: saved checkpoint %s (source=%s step=%d)", next.CheckpointID, md.Source, md.Step)
	return next, nil
}

// assignIDs returns a copy of messages where every message has an ID.
func assignIDs(messages []domain.Message) []domain.Message {
	out := make([]domain.Message, len(messages))
	for i, m := range messages {
		if m.ID == "" {
			m.ID = uuid.NewString()
		}
		out[i] = m
	}
	return out
}
