// Package room finds or creates the single two-party room shared by a pair of
// users.
package room

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"slices"

	"github.com/Bilz97/UConnectChat/chat"
	"github.com/Bilz97/UConnectChat/contract"
	"github.com/Bilz97/UConnectChat/docstore"
	"github.com/Bilz97/UConnectChat/log"
	"golang.org/x/sync/errgroup"
)

const (
	// IDPrefix is the leading token of every canonical room id.
	IDPrefix = "room"
	// IDSeparator joins the tokens of a canonical room id.
	IDSeparator = "-"
)

const (
	roomIDLogField = "roomID"
	userLogField   = "userID"
	friendLogField = "friendID"
)

type Resolver struct {
	store  docstore.Store
	ledger *chat.Ledger
}

func NewResolver(store docstore.Store, ledger *chat.Ledger) *Resolver {
	return &Resolver{store: store, ledger: ledger}
}

// CanonicalID returns the same id for (a, b) and (b, a).
func CanonicalID(a, b string) string {
	if b < a {
		a, b = b, a
	}
	return IDPrefix + IDSeparator + a + IDSeparator + b
}

// Resolve returns the room shared by userUID and friendUID, creating it under
// its canonical id when none exists. A newly created room has no messages.
func (r *Resolver) Resolve(ctx context.Context, userUID, friendUID string) (*contract.Room, error) {
	if userUID == "" || friendUID == "" {
		return nil, fmt.Errorf("%w: both participants are required", contract.ErrValidation)
	}
	if userUID == friendUID {
		return nil, fmt.Errorf("%w: cannot open a room with yourself", contract.ErrValidation)
	}
	logger := log.LoggerFromContext(ctx).With(slog.String(userLogField, userUID), slog.String(friendLogField, friendUID))

	var mine, theirs []*docstore.Document
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		mine, err = r.memberOf(gctx, userUID)
		return err
	})
	g.Go(func() error {
		var err error
		theirs, err = r.memberOf(gctx, friendUID)
		return err
	})
	if err := g.Wait(); err != nil {
		logger.Error("room membership lookup failed", slog.String(log.ErrorMsgLogField, err.Error()))
		return nil, fmt.Errorf("%w: %w", contract.ErrRoomResolution, err)
	}

	if doc := intersect(mine, theirs, userUID, friendUID); doc != nil {
		messages, err := r.ledger.Messages(ctx, doc.Key)
		if err != nil {
			return nil, fmt.Errorf("%w: %w", contract.ErrRoomResolution, err)
		}
		logger.Debug("existing room found", slog.String(roomIDLogField, doc.Key))
		return toRoom(doc, messages), nil
	}

	id := CanonicalID(userUID, friendUID)
	participants := []string{userUID, friendUID}
	err := r.store.Merge(ctx, contract.ChatRoomsCollection, id, map[string]any{
		contract.FieldRoomName:     id,
		contract.FieldParticipants: participants,
	})
	if err != nil {
		logger.Error("room creation failed", slog.String(log.ErrorMsgLogField, err.Error()))
		return nil, fmt.Errorf("%w: %w", contract.ErrRoomResolution, err)
	}
	logger.Info("room created", slog.String(roomIDLogField, id))
	return &contract.Room{
		ID:           id,
		RoomName:     id,
		Participants: participants,
		Messages:     []contract.Message{},
	}, nil
}

// Enter loads an existing room with its full history.
func (r *Resolver) Enter(ctx context.Context, roomID string) (*contract.Room, error) {
	doc, err := r.store.Get(ctx, contract.ChatRoomsCollection, roomID)
	if err != nil {
		if errors.Is(err, docstore.ErrNotFound) {
			return nil, fmt.Errorf("room %s: %w", roomID, contract.ErrNotFound)
		}
		return nil, err
	}
	messages, err := r.ledger.Messages(ctx, roomID)
	if err != nil {
		return nil, err
	}
	return toRoom(doc, messages), nil
}

func (r *Resolver) memberOf(ctx context.Context, uid string) ([]*docstore.Document, error) {
	return r.store.Query(ctx, contract.ChatRoomsCollection,
		docstore.Where(contract.FieldParticipants, docstore.OpArrayContains, uid))
}

// intersect returns the first room of mine, in store order, that also appears
// in theirs and whose participants are exactly the pair.
func intersect(mine, theirs []*docstore.Document, a, b string) *docstore.Document {
	keys := make(map[string]struct{}, len(theirs))
	for _, doc := range theirs {
		keys[doc.Key] = struct{}{}
	}
	for _, doc := range mine {
		if _, ok := keys[doc.Key]; !ok {
			continue
		}
		if samePair(docstore.Strings(doc.Data[contract.FieldParticipants]), a, b) {
			return doc
		}
	}
	return nil
}

func samePair(participants []string, a, b string) bool {
	if len(participants) == 0 {
		return false
	}
	for _, p := range participants {
		if p != a && p != b {
			return false
		}
	}
	return slices.Contains(participants, a) && slices.Contains(participants, b)
}

func toRoom(doc *docstore.Document, messages []contract.Message) *contract.Room {
	return &contract.Room{
		ID:           doc.Key,
		RoomName:     doc.String(contract.FieldRoomName),
		Participants: docstore.Strings(doc.Data[contract.FieldParticipants]),
		Messages:     messages,
	}
}
