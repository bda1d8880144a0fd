package chat

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/Bilz97/UConnectChat/contract"
	"github.com/Bilz97/UConnectChat/docstore"
	"github.com/Bilz97/UConnectChat/fixture"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSerializeTimestamp(t *testing.T) {
	tests := []struct {
		name     string
		input    any
		expected string
	}{
		{
			name:     "store timestamp",
			input:    time.Date(2024, 3, 9, 14, 5, 6, 789000000, time.UTC),
			expected: "2024-03-09T14:05:06.789Z",
		},
		{
			name:     "non UTC timestamp",
			input:    time.Date(2024, 3, 9, 16, 5, 6, 0, time.FixedZone("EET", 2*3600)),
			expected: "2024-03-09T14:05:06.000Z",
		},
		{
			name:     "already serialised",
			input:    "2024-03-09T14:05:06.789Z",
			expected: "2024-03-09T14:05:06.789Z",
		},
		{
			name:     "garbage string",
			input:    "yesterday",
			expected: "",
		},
		{
			name:     "missing",
			input:    nil,
			expected: "",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, SerializeTimestamp(tt.input))
		})
	}
}

func TestParseTimestamp(t *testing.T) {
	assert.Equal(t, time.Unix(0, 0).UTC(), ParseTimestamp(""))
	assert.Equal(t, time.Unix(0, 0).UTC(), ParseTimestamp("not a time"))
	assert.True(t, fixture.Unix(100).Equal(ParseTimestamp(SerializeTimestamp(fixture.Unix(100)))))
}

func seedRoom(t *testing.T, store docstore.Store, key string, stamps ...int64) {
	t.Helper()
	ctx := context.Background()
	require.NoError(t, fixture.Room(ctx, store, key, key, "alice", "bob"))
	for i, s := range stamps {
		sender := "alice"
		if i%2 == 1 {
			sender = "bob"
		}
		_, err := fixture.Message(ctx, store, key, sender, "msg", fixture.Unix(s))
		require.NoError(t, err)
	}
}

func TestMessagesOrdered(t *testing.T) {
	store := docstore.NewMemory()
	seedRoom(t, store, "room-alice-bob", 300, 100, 200, 100)
	ledger := NewLedger(store)

	messages, err := ledger.Messages(context.Background(), "room-alice-bob")
	require.NoError(t, err)
	require.Len(t, messages, 4)
	for i := 1; i < len(messages); i++ {
		assert.LessOrEqual(t, messages[i-1].Timestamp, messages[i].Timestamp)
	}
	assert.Equal(t, SerializeTimestamp(fixture.Unix(100)), messages[0].Timestamp)

	last, err := ledger.LastMessage(context.Background(), "room-alice-bob")
	require.NoError(t, err)
	require.NotNil(t, last)
	assert.Equal(t, messages[len(messages)-1].Timestamp, last.Timestamp)
	assert.Equal(t, SerializeTimestamp(fixture.Unix(300)), last.Timestamp)
	assert.Equal(t, "alice", last.Sender)
}

func TestEmptyLedger(t *testing.T) {
	store := docstore.NewMemory()
	seedRoom(t, store, "room-alice-bob")
	ledger := NewLedger(store)

	messages, err := ledger.Messages(context.Background(), "room-alice-bob")
	require.NoError(t, err)
	assert.Empty(t, messages)

	last, err := ledger.LastMessage(context.Background(), "room-alice-bob")
	require.NoError(t, err)
	assert.Nil(t, last)
}

func TestLedgerStoreFailure(t *testing.T) {
	store := docstore.NewMemory()
	store.Fail(messagesCollection("r1"), errors.New("offline"))
	ledger := NewLedger(store)

	_, err := ledger.Messages(context.Background(), "r1")
	require.ErrorIs(t, err, contract.ErrStoreUnavailable)
	_, err = ledger.LastMessage(context.Background(), "r1")
	require.ErrorIs(t, err, contract.ErrStoreUnavailable)
}

func TestSend(t *testing.T) {
	clock := fixture.Unix(1000)
	store := docstore.NewMemory(docstore.WithClock(func() time.Time {
		clock = clock.Add(time.Second)
		return clock
	}))
	seedRoom(t, store, "room-alice-bob")
	ledger := NewLedger(store)
	ctx := context.Background()

	_, err := ledger.Send(ctx, "room-alice-bob", "alice", "  <b>hello</b> bob ")
	require.NoError(t, err)
	_, err = ledger.Send(ctx, "room-alice-bob", "bob", "hi alice")
	require.NoError(t, err)

	messages, err := ledger.Messages(ctx, "room-alice-bob")
	require.NoError(t, err)
	require.Len(t, messages, 2)
	assert.Equal(t, "hello bob", messages[0].Text)
	assert.Equal(t, "alice", messages[0].Sender)
	assert.Equal(t, SerializeTimestamp(fixture.Unix(1001)), messages[0].Timestamp)
	assert.Equal(t, "bob", messages[1].Sender)
}

func TestSendRejects(t *testing.T) {
	store := docstore.NewMemory()
	seedRoom(t, store, "room-alice-bob")
	ledger := NewLedger(store)
	ctx := context.Background()

	tests := []struct {
		name     string
		roomID   string
		sender   string
		text     string
		expected error
	}{
		{name: "empty text", roomID: "room-alice-bob", sender: "alice", text: "   ", expected: contract.ErrValidation},
		{name: "markup only", roomID: "room-alice-bob", sender: "alice", text: "<br>", expected: contract.ErrValidation},
		{name: "encoded markup only", roomID: "room-alice-bob", sender: "alice", text: "&lt;br&gt;", expected: contract.ErrValidation},
		{name: "unknown room", roomID: "room-x-y", sender: "alice", text: "hi", expected: contract.ErrNotFound},
		{name: "outsider", roomID: "room-alice-bob", sender: "mallory", text: "hi", expected: contract.ErrNotParticipant},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := ledger.Send(ctx, tt.roomID, tt.sender, tt.text)
			require.ErrorIs(t, err, tt.expected)
		})
	}

	messages, err := ledger.Messages(ctx, "room-alice-bob")
	require.NoError(t, err)
	assert.Empty(t, messages)
}
