// Package profile manages user profile documents.
package profile

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/Bilz97/UConnectChat/blob"
	"github.com/Bilz97/UConnectChat/contract"
	"github.com/Bilz97/UConnectChat/docstore"
	"github.com/Bilz97/UConnectChat/log"
)

const (
	// DefaultMaxPhotoBytes caps profile photo uploads.
	DefaultMaxPhotoBytes = 4 << 20
	// DefaultSearchLimit caps the number of search results.
	DefaultSearchLimit = 20

	// inLimit is the most values Firestore accepts in an "in" filter.
	inLimit = 30

	photoPathFormat = "userPhotos/%s/profileImage.jpg"
	userIDLogField  = "userID"
)

type Directory struct {
	store         docstore.Store
	uploader      blob.Uploader
	maxPhotoBytes int
	searchLimit   int
}

type Option func(*Directory)

func WithMaxPhotoBytes(n int) Option {
	return func(d *Directory) {
		if n > 0 {
			d.maxPhotoBytes = n
		}
	}
}

func WithSearchLimit(n int) Option {
	return func(d *Directory) {
		if n > 0 {
			d.searchLimit = n
		}
	}
}

func NewDirectory(store docstore.Store, uploader blob.Uploader, opts ...Option) *Directory {
	d := &Directory{
		store:         store,
		uploader:      uploader,
		maxPhotoBytes: DefaultMaxPhotoBytes,
		searchLimit:   DefaultSearchLimit,
	}
	for _, opt := range opts {
		opt(d)
	}
	return d
}

// Register stores the profile of a freshly signed up user. email must be the
// verified address of uid. An existing profile is returned untouched.
func (d *Directory) Register(ctx context.Context, uid, email string, req contract.RegisterRequest) (*contract.User, error) {
	if uid == "" {
		return nil, fmt.Errorf("%w: uid is required", contract.ErrValidation)
	}
	displayName := strings.TrimSpace(req.DisplayName)
	if displayName == "" {
		return nil, fmt.Errorf("%w: display name is required", contract.ErrValidation)
	}

	existing, err := d.Get(ctx, uid)
	if err == nil {
		return existing, nil
	}
	if !errors.Is(err, contract.ErrNotFound) {
		return nil, err
	}

	user := contract.User{
		UID:         uid,
		Email:       strings.TrimSpace(email),
		DisplayName: displayName,
		PhotoURL:    req.PhotoURL,
	}
	data := map[string]any{
		contract.FieldUID:         user.UID,
		contract.FieldEmail:       user.Email,
		contract.FieldDisplayName: user.DisplayName,
		contract.FieldAboutMe:     user.AboutMe,
	}
	if user.PhotoURL != "" {
		data[contract.FieldPhotoURL] = user.PhotoURL
	}
	if err := d.store.Put(ctx, contract.UsersCollection, uid, data); err != nil {
		return nil, err
	}
	log.LoggerFromContext(ctx).Info("user registered", slog.String(userIDLogField, uid))
	return &user, nil
}

func (d *Directory) Get(ctx context.Context, uid string) (*contract.User, error) {
	doc, err := d.store.Get(ctx, contract.UsersCollection, uid)
	if err != nil {
		if errors.Is(err, docstore.ErrNotFound) {
			return nil, fmt.Errorf("user %s: %w", uid, contract.ErrNotFound)
		}
		return nil, err
	}
	u := toUser(doc)
	return &u, nil
}

// GetMany returns the profiles of uids in the requested order. Unknown uids
// are skipped.
func (d *Directory) GetMany(ctx context.Context, uids []string) ([]contract.User, error) {
	found := make(map[string]contract.User, len(uids))
	for start := 0; start < len(uids); start += inLimit {
		end := min(start+inLimit, len(uids))
		values := make([]any, 0, end-start)
		for _, uid := range uids[start:end] {
			values = append(values, uid)
		}
		docs, err := d.store.Query(ctx, contract.UsersCollection,
			docstore.Where(contract.FieldUID, docstore.OpIn, values))
		if err != nil {
			return nil, err
		}
		for _, doc := range docs {
			u := toUser(doc)
			found[u.UID] = u
		}
	}

	users := make([]contract.User, 0, len(found))
	seen := make(map[string]struct{}, len(found))
	for _, uid := range uids {
		u, ok := found[uid]
		if !ok {
			continue
		}
		if _, dup := seen[uid]; dup {
			continue
		}
		seen[uid] = struct{}{}
		users = append(users, u)
	}
	return users, nil
}

// Search finds users whose display name contains term, starting from the
// first name sorting at or after it. The caller is never part of the result.
func (d *Directory) Search(ctx context.Context, selfUID, term string) ([]contract.User, error) {
	term = strings.TrimSpace(term)
	if term == "" {
		return nil, fmt.Errorf("%w: search term is required", contract.ErrValidation)
	}
	docs, err := d.store.Query(ctx, contract.UsersCollection,
		docstore.Where(contract.FieldDisplayName, docstore.OpGreaterOrEqual, term).
			Order(contract.FieldDisplayName, docstore.Asc))
	if err != nil {
		return nil, err
	}

	users := make([]contract.User, 0)
	for _, doc := range docs {
		u := toUser(doc)
		if u.UID == selfUID || !strings.Contains(u.DisplayName, term) {
			continue
		}
		users = append(users, u)
		if len(users) == d.searchLimit {
			break
		}
	}
	return users, nil
}

// UpdateInfo merges the provided fields into the profile and returns it as
// stored afterwards.
func (d *Directory) UpdateInfo(ctx context.Context, uid string, req contract.UpdateUserRequest) (*contract.User, error) {
	partial := map[string]any{}
	if req.DisplayName != nil {
		name := strings.TrimSpace(*req.DisplayName)
		if name == "" {
			return nil, fmt.Errorf("%w: display name cannot be empty", contract.ErrValidation)
		}
		partial[contract.FieldDisplayName] = name
	}
	if req.AboutMe != nil {
		partial[contract.FieldAboutMe] = strings.TrimSpace(*req.AboutMe)
	}

	if _, err := d.Get(ctx, uid); err != nil {
		return nil, err
	}
	if len(partial) > 0 {
		if err := d.store.Merge(ctx, contract.UsersCollection, uid, partial); err != nil {
			return nil, err
		}
	}
	return d.Get(ctx, uid)
}

// UpdatePhoto uploads a new profile photo and points the profile at it.
func (d *Directory) UpdatePhoto(ctx context.Context, uid string, data []byte, contentType string) (string, error) {
	switch {
	case len(data) == 0:
		return "", fmt.Errorf("%w: empty photo", contract.ErrValidation)
	case len(data) > d.maxPhotoBytes:
		return "", fmt.Errorf("%w: photo exceeds %d bytes", contract.ErrValidation, d.maxPhotoBytes)
	case !strings.HasPrefix(contentType, "image/"):
		return "", fmt.Errorf("%w: unsupported content type %q", contract.ErrValidation, contentType)
	}
	if _, err := d.Get(ctx, uid); err != nil {
		return "", err
	}

	photoURL, err := d.uploader.Upload(ctx, fmt.Sprintf(photoPathFormat, uid), data, contentType)
	if err != nil {
		return "", fmt.Errorf("%w: upload photo: %w", contract.ErrStoreUnavailable, err)
	}
	if err := d.store.Merge(ctx, contract.UsersCollection, uid, map[string]any{
		contract.FieldPhotoURL: photoURL,
	}); err != nil {
		return "", err
	}
	log.LoggerFromContext(ctx).Info("profile photo updated", slog.String(userIDLogField, uid))
	return photoURL, nil
}

func toUser(doc *docstore.Document) contract.User {
	uid := doc.String(contract.FieldUID)
	if uid == "" {
		uid = doc.Key
	}
	return contract.User{
		UID:         uid,
		Email:       doc.String(contract.FieldEmail),
		DisplayName: doc.String(contract.FieldDisplayName),
		PhotoURL:    doc.String(contract.FieldPhotoURL),
		AboutMe:     doc.String(contract.FieldAboutMe),
	}
}
