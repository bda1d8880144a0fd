// Package preview builds the conversation list of a user: every room with at
// least one message, most recent conversation first.
package preview

import (
	"context"
	"log/slog"
	"slices"
	"sort"
	"strings"

	"github.com/Bilz97/UConnectChat/chat"
	"github.com/Bilz97/UConnectChat/contract"
	"github.com/Bilz97/UConnectChat/docstore"
	"github.com/Bilz97/UConnectChat/log"
	"github.com/Bilz97/UConnectChat/profile"
	"github.com/Bilz97/UConnectChat/room"
	"golang.org/x/sync/errgroup"
)

const (
	userLogField = "userID"
	roomLogField = "roomID"
)

type Aggregator struct {
	store    docstore.Store
	ledger   *chat.Ledger
	profiles *profile.Directory
}

func NewAggregator(store docstore.Store, ledger *chat.Ledger, profiles *profile.Directory) *Aggregator {
	return &Aggregator{store: store, ledger: ledger, profiles: profiles}
}

// List returns the previews of userUID's rooms that hold messages, sorted by
// last message time descending. Equal times keep the store's room order.
func (a *Aggregator) List(ctx context.Context, userUID string) ([]contract.ChatPreview, error) {
	rooms, err := a.store.Query(ctx, contract.ChatRoomsCollection,
		docstore.Where(contract.FieldParticipants, docstore.OpArrayContains, userUID))
	if err != nil {
		return nil, err
	}

	last := make([]*contract.Message, len(rooms))
	g, gctx := errgroup.WithContext(ctx)
	for i, doc := range rooms {
		g.Go(func() error {
			m, err := a.ledger.LastMessage(gctx, doc.Key)
			if err != nil {
				return err
			}
			last[i] = m
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	previews := make([]contract.ChatPreview, 0, len(rooms))
	for i, doc := range rooms {
		if last[i] == nil {
			continue
		}
		previews = append(previews, contract.ChatPreview{
			RoomID:       doc.Key,
			RoomName:     doc.String(contract.FieldRoomName),
			Participants: docstore.Strings(doc.Data[contract.FieldParticipants]),
			LastMessage:  last[i],
		})
	}
	sort.SliceStable(previews, func(i, j int) bool {
		ti := chat.ParseTimestamp(previews[i].LastMessage.Timestamp)
		tj := chat.ParseTimestamp(previews[j].LastMessage.Timestamp)
		return ti.After(tj)
	})
	return previews, nil
}

// PeerUID returns the other participant of a two-party preview. Rooms without
// a participant list fall back to the tokens of the canonical room id.
func PeerUID(p contract.ChatPreview, userUID string) string {
	candidates := p.Participants
	if len(candidates) == 0 {
		id := p.RoomName
		if id == "" {
			id = p.RoomID
		}
		candidates = strings.Split(id, room.IDSeparator)
	}
	for _, uid := range candidates {
		if uid != userUID && uid != room.IDPrefix && uid != "" {
			return uid
		}
	}
	return ""
}

// Join resolves the peer profile of every preview. Previews whose peer cannot
// be found are left out.
func (a *Aggregator) Join(ctx context.Context, userUID string) ([]contract.ChatRoomPreview, error) {
	logger := log.LoggerFromContext(ctx).With(slog.String(userLogField, userUID))

	previews, err := a.List(ctx, userUID)
	if err != nil {
		return nil, err
	}

	peers := make([]string, len(previews))
	for i, p := range previews {
		peers[i] = PeerUID(p, userUID)
	}
	unique := slices.Clone(peers)
	slices.Sort(unique)
	unique = slices.DeleteFunc(slices.Compact(unique), func(uid string) bool { return uid == "" })
	users, err := a.profiles.GetMany(ctx, unique)
	if err != nil {
		return nil, err
	}
	byUID := make(map[string]contract.User, len(users))
	for _, u := range users {
		byUID[u.UID] = u
	}

	joined := make([]contract.ChatRoomPreview, 0, len(previews))
	for i, p := range previews {
		friend, ok := byUID[peers[i]]
		if !ok {
			logger.Warn("peer profile not found", slog.String(roomLogField, p.RoomID))
			continue
		}
		joined = append(joined, contract.ChatRoomPreview{
			Friend:      friend,
			LastMessage: p.LastMessage,
			RoomID:      p.RoomID,
			RoomName:    p.RoomName,
		})
	}
	return joined, nil
}
