// Package friend maintains each user's directed friend edges. Edges live in
// one document per owner, a map of friend uid to {addedAt}.
package friend

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sort"
	"time"

	"github.com/Bilz97/UConnectChat/contract"
	"github.com/Bilz97/UConnectChat/docstore"
	"github.com/Bilz97/UConnectChat/log"
	"github.com/Bilz97/UConnectChat/profile"
)

const (
	ownerLogField  = "userID"
	friendLogField = "friendID"
)

type Graph struct {
	store    docstore.Store
	profiles *profile.Directory
}

func NewGraph(store docstore.Store, profiles *profile.Directory) *Graph {
	return &Graph{store: store, profiles: profiles}
}

// Add records ownerUID -> friendUID and returns the friend's profile. The
// mirror edge is left alone.
func (g *Graph) Add(ctx context.Context, ownerUID, friendUID string) (*contract.User, error) {
	if friendUID == "" {
		return nil, fmt.Errorf("%w: friend uid is required", contract.ErrValidation)
	}
	if ownerUID == friendUID {
		return nil, fmt.Errorf("%w: cannot befriend yourself", contract.ErrValidation)
	}
	logger := log.LoggerFromContext(ctx).With(slog.String(ownerLogField, ownerUID), slog.String(friendLogField, friendUID))

	edges, err := g.edges(ctx, ownerUID)
	if err != nil {
		return nil, err
	}
	if _, ok := edges[friendUID]; ok {
		return nil, fmt.Errorf("friend %s: %w", friendUID, contract.ErrAlreadyExists)
	}

	friend, err := g.profiles.Get(ctx, friendUID)
	if err != nil {
		return nil, err
	}

	err = g.store.Merge(ctx, contract.FriendsCollection, ownerUID, map[string]any{
		friendUID: map[string]any{contract.FieldAddedAt: docstore.ServerTimestamp},
	})
	if err != nil {
		return nil, err
	}
	logger.Info("friend added")
	return friend, nil
}

// List returns the owner's friends, earliest added first. Edges without an
// addedAt come before all others.
func (g *Graph) List(ctx context.Context, ownerUID string) ([]contract.User, error) {
	edges, err := g.edges(ctx, ownerUID)
	if err != nil {
		return nil, err
	}

	type edge struct {
		uid     string
		addedAt time.Time
		known   bool
	}
	sorted := make([]edge, 0, len(edges))
	for uid, v := range edges {
		e := edge{uid: uid}
		if m, ok := v.(map[string]any); ok {
			e.addedAt, e.known = m[contract.FieldAddedAt].(time.Time)
		}
		sorted = append(sorted, e)
	}
	sort.Slice(sorted, func(i, j int) bool {
		a, b := sorted[i], sorted[j]
		if a.known != b.known {
			return !a.known
		}
		if !a.addedAt.Equal(b.addedAt) {
			return a.addedAt.Before(b.addedAt)
		}
		return a.uid < b.uid
	})

	uids := make([]string, 0, len(sorted))
	for _, e := range sorted {
		uids = append(uids, e.uid)
	}
	return g.profiles.GetMany(ctx, uids)
}

// Remove deletes exactly the ownerUID -> friendUID edge. Rooms and messages
// shared with the friend are kept.
func (g *Graph) Remove(ctx context.Context, ownerUID, friendUID string) (string, error) {
	edges, err := g.edges(ctx, ownerUID)
	if err != nil {
		return "", err
	}
	if _, ok := edges[friendUID]; !ok {
		return "", fmt.Errorf("friend %s: %w", friendUID, contract.ErrNotFound)
	}
	err = g.store.Merge(ctx, contract.FriendsCollection, ownerUID, map[string]any{
		friendUID: docstore.Delete,
	})
	if err != nil {
		return "", err
	}
	log.LoggerFromContext(ctx).Info("friend removed",
		slog.String(ownerLogField, ownerUID), slog.String(friendLogField, friendUID))
	return friendUID, nil
}

func (g *Graph) edges(ctx context.Context, ownerUID string) (map[string]any, error) {
	doc, err := g.store.Get(ctx, contract.FriendsCollection, ownerUID)
	if err != nil {
		if errors.Is(err, docstore.ErrNotFound) {
			return map[string]any{}, nil
		}
		return nil, err
	}
	return doc.Data, nil
}
