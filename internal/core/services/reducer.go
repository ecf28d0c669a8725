package services

import (
	"github.com/google/uuid"

	"github.com/custodia-labs/chatbot/internal/core/domain"
)

// AddMessages merges updates into the messages channel.
// Messages without an ID are given a new UUID and appended. A message whose
// ID is already present replaces the existing one in place. The inputs are
// not modified.
func AddMessages(current, updates []domain.Message) []domain.Message {
	merged := make([]domain.Message, len(current), len(current)+len(updates))
	copy(merged, current)

	index := make(map[string]int, len(merged))
	for i, m := range merged {
		if m.ID != "" {
			index[m.ID] = i
		}
	}

	for _, m := range updates {
		if m.ID == "" {
			m.ID = uuid.NewString()
		}
		if i, ok := index[m.ID]; ok {
			merged[i] = m
			continue
		}
		index[m.ID] = len(merged)
		merged = append(merged, m)
	}
	return merged
}
