// Package fixture seeds a document store with users, rooms, messages and
// friend edges laid out exactly as the chat core writes them.
package fixture

import (
	"context"
	"time"

	"github.com/Bilz97/UConnectChat/contract"
	"github.com/Bilz97/UConnectChat/docstore"
)

// User writes a profile document keyed by uid.
func User(ctx context.Context, store docstore.Store, u contract.User) error {
	data := map[string]any{
		contract.FieldUID:         u.UID,
		contract.FieldEmail:       u.Email,
		contract.FieldDisplayName: u.DisplayName,
		contract.FieldAboutMe:     u.AboutMe,
	}
	if u.PhotoURL != "" {
		data[contract.FieldPhotoURL] = u.PhotoURL
	}
	return store.Put(ctx, contract.UsersCollection, u.UID, data)
}

// Room writes a room document under key with the given participants.
func Room(ctx context.Context, store docstore.Store, key, roomName string, participants ...string) error {
	return store.Put(ctx, contract.ChatRoomsCollection, key, map[string]any{
		contract.FieldRoomName:     roomName,
		contract.FieldParticipants: participants,
	})
}

// Message appends a message with an explicit timestamp and returns its key.
func Message(ctx context.Context, store docstore.Store, roomKey, sender, text string, at time.Time) (string, error) {
	return store.Add(ctx, docstore.Sub(contract.ChatRoomsCollection, roomKey, contract.MessagesCollection), map[string]any{
		contract.FieldSender:    sender,
		contract.FieldText:      text,
		contract.FieldTimestamp: at,
	})
}

// Friend writes a directed friend edge. A zero addedAt leaves the field out.
func Friend(ctx context.Context, store docstore.Store, owner, friend string, addedAt time.Time) error {
	edge := map[string]any{}
	if !addedAt.IsZero() {
		edge[contract.FieldAddedAt] = addedAt
	}
	return store.Merge(ctx, contract.FriendsCollection, owner, map[string]any{friend: edge})
}

// Unix returns the UTC time sec seconds after the epoch.
func Unix(sec int64) time.Time {
	return time.Unix(sec, 0).UTC()
}
