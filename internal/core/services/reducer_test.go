package services

import (
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/custodia-labs/chatbot/internal/core/domain"
)

func TestAddMessages_Appends(t *testing.T) {
	current := []domain.Message{{ID: "1", Role: domain.RoleUser, Content: "hi"}}
	updates := []domain.Message{{ID: "2", Role: domain.RoleAssistant, Content: "hello"}}

	got := AddMessages(current, updates)

	require.Len(t, got, 2)
	assert.Equal(t, "1", got[0].ID)
	assert.Equal(t, "2", got[1].ID)
}

func TestAddMessages_ReplacesByID(t *testing.T) {
	current := []domain.Message{
		{ID: "1", Role: domain.RoleUser, Content: "hi"},
		{ID: "2", Role: domain.RoleAssistant, Content: "draft"},
	}
	updates := []domain.Message{{ID: "2", Role: domain.RoleAssistant, Content: "final"}}

	got := AddMessages(current, updates)

	require.Len(t, got, 2)
	assert.Equal(t, "final", got[1].Content)
	assert.Equal(t, "draft", current[1].Content, "input must not be modified")
}

func TestAddMessages_AssignsIDs(t *testing.T) {
	got := AddMessages(nil, []domain.Message{
		domain.NewUserMessage("a"),
		domain.NewUserMessage("b"),
	})

	require.Len(t, got, 2)
	for _, m := range got {
		_, err := uuid.Parse(m.ID)
		assert.NoError(t, err)
	}
	assert.NotEqual(t, got[0].ID, got[1].ID)
}

func TestAddMessages_DuplicateIDsInUpdates(t *testing.T) {
	got := AddMessages(nil, []domain.Message{
		{ID: "x", Role: domain.RoleUser, Content: "first"},
		{ID: "x", Role: domain.RoleUser, Content: "second"},
	})

	require.Len(t, got, 1)
	assert.Equal(t, "second", got[0].Content)
}

func TestAddMessages_Empty(t *testing.T) {
	assert.Empty(t, AddMessages(nil, nil))
}

func TestAssignIDs_KeepsExisting(t *testing.T) {
	in := []domain.Message{{ID: "keep"}, {}}

	out := assignIDs(in)

	assert.Equal(t, "keep", out[0].ID)
	assert.NotEmpty(t, out[1].ID)
	assert.Empty(t, in[1].ID, "input must not be modified")
}
