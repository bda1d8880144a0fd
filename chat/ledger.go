// Package chat reads and appends the message ledger of a room. Messages live
// in the room's messages sub-collection; every Message leaving this package
// carries a portable ISO-8601 timestamp, never the store-native type.
package chat

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"slices"
	"time"

	"github.com/Bilz97/UConnectChat/contract"
	"github.com/Bilz97/UConnectChat/docstore"
	"github.com/Bilz97/UConnectChat/filter"
	"github.com/Bilz97/UConnectChat/log"
)

// TimestampLayout is fixed width so serialised timestamps sort lexically.
const TimestampLayout = "2006-01-02T15:04:05.000Z"

const (
	roomIDLogField    = "roomID"
	senderLogField    = "sender"
	messageIDLogField = "messageID"
)

type Ledger struct {
	store docstore.Store
}

func NewLedger(store docstore.Store) *Ledger {
	return &Ledger{store: store}
}

// Messages returns the full history of a room, oldest first.
func (l *Ledger) Messages(ctx context.Context, roomID string) ([]contract.Message, error) {
	docs, err := l.store.Query(ctx, messagesCollection(roomID),
		docstore.Query{}.Order(contract.FieldTimestamp, docstore.Asc))
	if err != nil {
		return nil, err
	}
	messages := make([]contract.Message, 0, len(docs))
	for _, doc := range docs {
		messages = append(messages, toMessage(doc))
	}
	return messages, nil
}

// LastMessage returns the most recent message of a room, or nil when the
// ledger is empty.
func (l *Ledger) LastMessage(ctx context.Context, roomID string) (*contract.Message, error) {
	docs, err := l.store.Query(ctx, messagesCollection(roomID),
		docstore.Query{}.Order(contract.FieldTimestamp, docstore.Desc).Take(1))
	if err != nil {
		return nil, err
	}
	if len(docs) == 0 {
		return nil, nil
	}
	m := toMessage(docs[0])
	return &m, nil
}

// Send appends a message from senderUID. The timestamp is assigned by the
// store.
func (l *Ledger) Send(ctx context.Context, roomID, senderUID, text string) (string, error) {
	logger := log.LoggerFromContext(ctx).With(slog.String(roomIDLogField, roomID), slog.String(senderLogField, senderUID))

	text = filter.Sanitize(text)
	if text == "" {
		return "", fmt.Errorf("%w: empty message", contract.ErrValidation)
	}

	room, err := l.store.Get(ctx, contract.ChatRoomsCollection, roomID)
	if err != nil {
		if errors.Is(err, docstore.ErrNotFound) {
			return "", fmt.Errorf("room %s: %w", roomID, contract.ErrNotFound)
		}
		return "", err
	}
	if !slices.Contains(docstore.Strings(room.Data[contract.FieldParticipants]), senderUID) {
		return "", contract.ErrNotParticipant
	}

	id, err := l.store.Add(ctx, messagesCollection(roomID), map[string]any{
		contract.FieldSender:    senderUID,
		contract.FieldText:      text,
		contract.FieldTimestamp: docstore.ServerTimestamp,
	})
	if err != nil {
		return "", err
	}
	logger.Info("message sent", slog.String(messageIDLogField, id))
	return id, nil
}

// SerializeTimestamp converts a stored timestamp to the ledger's string form.
// Unknown values serialise to "".
func SerializeTimestamp(v any) string {
	switch t := v.(type) {
	case time.Time:
		return t.UTC().Format(TimestampLayout)
	case string:
		if parsed, err := time.Parse(time.RFC3339Nano, t); err == nil {
			return parsed.UTC().Format(TimestampLayout)
		}
	}
	return ""
}

// ParseTimestamp is the inverse of SerializeTimestamp. Missing or unparsable
// values are the Unix epoch.
func ParseTimestamp(s string) time.Time {
	parsed, err := time.Parse(time.RFC3339Nano, s)
	if err != nil {
		return time.Unix(0, 0).UTC()
	}
	return parsed
}

func messagesCollection(roomID string) string {
	return docstore.Sub(contract.ChatRoomsCollection, roomID, contract.MessagesCollection)
}

func toMessage(doc *docstore.Document) contract.Message {
	return contract.Message{
		ID:        doc.Key,
		Sender:    doc.String(contract.FieldSender),
		Text:      doc.String(contract.FieldText),
		Timestamp: SerializeTimestamp(doc.Data[contract.FieldTimestamp]),
	}
}
