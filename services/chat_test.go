package services

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"tripplanner-backend/models"
)

func TestChatMessages(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	rooms := &fakeRooms{}
	chat := NewChatService(env.db, rooms, quietLogger())

	alice := createUser(t, env.db, "alice")
	bob := createUser(t, env.db, "bob")
	mallory := createUser(t, env.db, "mallory")
	trip := newTrip(t, env.trips, alice.ID)
	join(t, env.trips, trip.ID, alice.ID, bob.ID)

	first, err := chat.SendMessage(ctx, trip.ID, alice.ID, SendMessageParams{Content: " hello "})
	require.NoError(t, err)
	assert.Equal(t, "hello", first.Content)
	assert.Equal(t, models.MessageText, first.Type)

	reply, err := chat.SendMessage(ctx, trip.ID, bob.ID, SendMessageParams{Content: "hi!", ReplyToID: &first.ID})
	require.NoError(t, err)

	_, err = chat.SendMessage(ctx, trip.ID, mallory.ID, SendMessageParams{Content: "let me in"})
	assert.ErrorIs(t, err, ErrForbidden)
	_, err = chat.SendMessage(ctx, trip.ID, alice.ID, SendMessageParams{Content: "   "})
	assert.ErrorIs(t, err, ErrValidation)
	_, err = chat.SendMessage(ctx, trip.ID, alice.ID, SendMessageParams{Content: strings.Repeat("a", maxMessageLength+1)})
	assert.ErrorIs(t, err, ErrValidation)
	_, err = chat.SendMessage(ctx, trip.ID, alice.ID, SendMessageParams{Type: models.MessageSystem, Content: "spoof"})
	assert.ErrorIs(t, err, ErrValidation)
	missing := uuid.New()
	_, err = chat.SendMessage(ctx, trip.ID, alice.ID, SendMessageParams{Content: "x", ReplyToID: &missing})
	assert.ErrorIs(t, err, ErrNotFound)

	_, err = chat.EditMessage(ctx, reply.ID, alice.ID, "hijack")
	assert.ErrorIs(t, err, ErrForbidden)
	edited, err := chat.EditMessage(ctx, reply.ID, bob.ID, "hi there")
	require.NoError(t, err)
	assert.True(t, edited.IsEdited)

	require.NoError(t, chat.PostSystemMessage(ctx, trip.ID, "bob joined the trip!"))

	messages, users, err := chat.ListMessages(ctx, trip.ID, bob.ID, 0, time.Time{})
	require.NoError(t, err)
	require.Len(t, messages, 3)
	assert.Equal(t, first.ID, messages[0].ID, "oldest first")
	assert.Equal(t, "hi there", messages[1].Content)
	assert.Equal(t, models.MessageSystem, messages[2].Type)
	assert.Nil(t, messages[2].SenderUserID)
	assert.Equal(t, "alice", users[alice.ID].Name)

	limited, _, err := chat.ListMessages(ctx, trip.ID, bob.ID, 1, time.Time{})
	require.NoError(t, err)
	require.Len(t, limited, 1)
	assert.Equal(t, models.MessageSystem, limited[0].Type)

	_, _, err = chat.ListMessages(ctx, trip.ID, mallory.ID, 0, time.Time{})
	assert.ErrorIs(t, err, ErrForbidden)

	require.NoError(t, chat.DeleteMessage(ctx, first.ID, alice.ID))
	assert.ErrorIs(t, chat.DeleteMessage(ctx, first.ID, alice.ID), ErrNotFound)

	assert.Equal(t, []string{
		RealtimeMessageCreated, RealtimeMessageCreated, RealtimeMessageUpdated,
		RealtimeMessageCreated, RealtimeMessageDeleted,
	}, rooms.events())
}
