package domain

import (
	"strconv"
	"time"
)

// CheckpointFormatVersion is the version written into every new checkpoint.
const CheckpointFormatVersion = 1

// CheckpointIDLayout formats checkpoint IDs. Fixed-width fractional seconds
// keep IDs lexicographically sortable in creation order.
const CheckpointIDLayout = "2006-01-02T15:04:05.000000Z07:00"

// Checkpoint sources recorded in metadata.
const (
	// SourceInput marks the checkpoint taken after user input is applied.
	SourceInput = "input"

	// SourceLoop marks a checkpoint taken after a graph node ran.
	SourceLoop = "loop"

	// SourceUpdate marks a checkpoint written by a manual state update.
	SourceUpdate = "update"
)

// ThreadConfig addresses a conversation thread and, optionally,
// one checkpoint within it.
type ThreadConfig struct {
	// ThreadID identifies the conversation.
	ThreadID string `json:"thread_id"`

	// CheckpointID selects a specific checkpoint.
	// Empty means the latest checkpoint of the thread.
	CheckpointID string `json:"thread_ts,omitempty"`
}

// IsZero reports whether the config addresses nothing.
func (c ThreadConfig) IsZero() bool {
	return c.ThreadID == "" && c.CheckpointID == ""
}

// Checkpoint is a snapshot of a thread's graph state.
type Checkpoint struct {
	// Version is the checkpoint format version.
	Version int `json:"v"`

	// ID is a sortable timestamp string unique within the thread.
	ID string `json:"ts"`

	// Timestamp is when the checkpoint was created.
	Timestamp time.Time `json:"created_at"`

	// Messages is the value of the messages channel.
	Messages []Message `json:"messages"`

	// ChannelVersions counts updates per state channel.
	ChannelVersions map[string]int `json:"channel_versions"`

	// VersionsSeen records, per node, the channel versions it last consumed.
	VersionsSeen map[string]map[string]int `json:"versions_seen"`
}

// EmptyCheckpoint returns a checkpoint with no state.
func EmptyCheckpoint() Checkpoint {
	return Checkpoint{
		Version:         CheckpointFormatVersion,
		ChannelVersions: make(map[string]int),
		VersionsSeen:    make(map[string]map[string]int),
	}
}

// Copy returns a deep copy so callers can mutate state without
// touching a stored checkpoint.
func (c Checkpoint) Copy() Checkpoint {
	out := c
	out.Messages = append([]Message(nil), c.Messages...)
	out.ChannelVersions = make(map[string]int, len(c.ChannelVersions))
	for k, v := range c.ChannelVersions {
		out.ChannelVersions[k] = v
	}
	out.VersionsSeen = make(map[string]map[string]int, len(c.VersionsSeen))
	for node, seen := range c.VersionsSeen {
		inner := make(map[string]int, len(seen))
		for k, v := range seen {
			inner[k] = v
		}
		out.VersionsSeen[node] = inner
	}
	return out
}

// CheckpointMetadata describes how a checkpoint came to be.
type CheckpointMetadata struct {
	// Source is one of SourceInput, SourceLoop or SourceUpdate.
	Source string `json:"source"`

	// Step is -1 for the first input checkpoint of a thread and grows by
	// one with every checkpoint after it, across turns.
	Step int `json:"step"`

	// Writes holds the messages each node produced in this step.
	Writes map[string][]Message `json:"writes,omitempty"`
}

// Matches reports whether the metadata satisfies a list filter.
// Supported keys are "source" (string) and "step" (int or numeric string).
// Unknown keys never match.
func (m CheckpointMetadata) Matches(filter map[string]any) bool {
	for key, want := range filter {
		switch key {
		case "source":
			s, ok := want.(string)
			if !ok || s != m.Source {
				return false
			}
		case "step":
			if !stepEquals(want, m.Step) {
				return false
			}
		default:
			return false
		}
	}
	return true
}

func stepEquals(want any, step int) bool {
	switch v := want.(type) {
	case int:
		return v == step
	case int64:
		return int(v) == step
	case float64:
		return int(v) == step && float64(int(v)) == v
	case string:
		n, err := strconv.Atoi(v)
		return err == nil && n == step
	default:
		return false
	}
}

// CheckpointTuple bundles a checkpoint with the config that addresses it,
// its metadata and the config of its parent.
type CheckpointTuple struct {
	Config     ThreadConfig
	Checkpoint Checkpoint
	Metadata   CheckpointMetadata

	// ParentConfig is nil for the first checkpoint of a thread.
	ParentConfig *ThreadConfig
}

// ListOptions narrows a checkpoint listing.
type ListOptions struct {
	// Before keeps only checkpoints with IDs strictly less than Before.CheckpointID.
	Before *ThreadConfig

	// Limit caps the number of results. Zero or negative means no limit.
	Limit int

	// Filter keeps only checkpoints whose metadata matches every entry.
	Filter map[string]any
}

// Admits reports whether a checkpoint passes the Before and Filter options.
// Limit is applied by the caller after ordering.
func (o ListOptions) Admits(checkpointID string, md CheckpointMetadata) bool {
	if o.Before != nil && o.Before.CheckpointID != "" && checkpointID >= o.Before.CheckpointID {
		return false
	}
	return md.Matches(o.Filter)
}

// ThreadSummary is a lightweight view of a stored thread.
type ThreadSummary struct {
	ThreadID           string
	LatestCheckpointID string
	UpdatedAt          time.Time
	MessageCount       int
}
