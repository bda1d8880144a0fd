package profile

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"testing"

	"github.com/Bilz97/UConnectChat/blob"
	"github.com/Bilz97/UConnectChat/contract"
	"github.com/Bilz97/UConnectChat/docstore"
	"github.com/Bilz97/UConnectChat/fixture"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func seedUsers(t *testing.T, store docstore.Store, users ...contract.User) {
	t.Helper()
	for _, u := range users {
		require.NoError(t, fixture.User(context.Background(), store, u))
	}
}

func ptr(s string) *string { return &s }

func TestRegister(t *testing.T) {
	store := docstore.NewMemory()
	d := NewDirectory(store, blob.NewMemory("bucket"))
	ctx := context.Background()

	u, err := d.Register(ctx, "u1", "a@x.io", contract.RegisterRequest{DisplayName: " Alice "})
	require.NoError(t, err)
	assert.Equal(t, contract.User{UID: "u1", Email: "a@x.io", DisplayName: "Alice"}, *u)

	again, err := d.Register(ctx, "u1", "other@x.io", contract.RegisterRequest{DisplayName: "Other"})
	require.NoError(t, err)
	assert.Equal(t, "Alice", again.DisplayName)
	assert.Equal(t, "a@x.io", again.Email)

	_, err = d.Register(ctx, "u2", "b@x.io", contract.RegisterRequest{DisplayName: "  "})
	require.ErrorIs(t, err, contract.ErrValidation)
}

func TestGet(t *testing.T) {
	store := docstore.NewMemory()
	seedUsers(t, store, contract.User{UID: "u1", DisplayName: "Alice", PhotoURL: "https://p/1"})
	d := NewDirectory(store, blob.NewMemory("bucket"))

	u, err := d.Get(context.Background(), "u1")
	require.NoError(t, err)
	assert.Equal(t, "https://p/1", u.PhotoURL)

	_, err = d.Get(context.Background(), "nobody")
	require.ErrorIs(t, err, contract.ErrNotFound)

	store.Fail(contract.UsersCollection, errors.New("offline"))
	_, err = d.Get(context.Background(), "u1")
	require.ErrorIs(t, err, contract.ErrStoreUnavailable)
}

func TestGetMany(t *testing.T) {
	store := docstore.NewMemory()
	var uids []string
	for i := range 65 {
		uid := fmt.Sprintf("u%02d", i)
		uids = append(uids, uid)
		seedUsers(t, store, contract.User{UID: uid, DisplayName: uid})
	}
	d := NewDirectory(store, blob.NewMemory("bucket"))

	requested := append([]string{"u64", "missing", "u00"}, uids[10:40]...)
	requested = append(requested, "u00")
	users, err := d.GetMany(context.Background(), requested)
	require.NoError(t, err)
	require.Len(t, users, 32)
	assert.Equal(t, "u64", users[0].UID)
	assert.Equal(t, "u00", users[1].UID)
	assert.Equal(t, "u10", users[2].UID)
	assert.Equal(t, "u39", users[31].UID)

	empty, err := d.GetMany(context.Background(), nil)
	require.NoError(t, err)
	assert.Empty(t, empty)
}

func TestSearch(t *testing.T) {
	store := docstore.NewMemory()
	seedUsers(t, store,
		contract.User{UID: "u1", DisplayName: "Bob"},
		contract.User{UID: "u2", DisplayName: "Bobby"},
		contract.User{UID: "u3", DisplayName: "Alice"},
		contract.User{UID: "u4", DisplayName: "Carl Bob"},
		contract.User{UID: "u5", DisplayName: "Bobcat"},
	)
	ctx := context.Background()

	tests := []struct {
		name     string
		self     string
		term     string
		limit    int
		expected []string
	}{
		{name: "name order", self: "u3", term: "Bob", expected: []string{"u1", "u2", "u5", "u4"}},
		{name: "self excluded", self: "u1", term: "Bob", expected: []string{"u2", "u5", "u4"}},
		{name: "limit", self: "u3", term: "Bob", limit: 2, expected: []string{"u1", "u2"}},
		{name: "no match", self: "u3", term: "Zed", expected: []string{}},
		{name: "starts later", self: "u3", term: "Carl", expected: []string{"u4"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			d := NewDirectory(store, blob.NewMemory("bucket"), WithSearchLimit(tt.limit))
			users, err := d.Search(ctx, tt.self, tt.term)
			require.NoError(t, err)
			got := make([]string, 0, len(users))
			for _, u := range users {
				got = append(got, u.UID)
			}
			assert.Equal(t, tt.expected, got)
		})
	}

	_, err := NewDirectory(store, nil).Search(ctx, "u1", " ")
	require.ErrorIs(t, err, contract.ErrValidation)
}

func TestUpdateInfo(t *testing.T) {
	store := docstore.NewMemory()
	seedUsers(t, store, contract.User{UID: "u1", Email: "a@x.io", DisplayName: "Alice", AboutMe: "hi"})
	d := NewDirectory(store, blob.NewMemory("bucket"))
	ctx := context.Background()

	u, err := d.UpdateInfo(ctx, "u1", contract.UpdateUserRequest{AboutMe: ptr(" likes Go ")})
	require.NoError(t, err)
	assert.Equal(t, "Alice", u.DisplayName)
	assert.Equal(t, "likes Go", u.AboutMe)
	assert.Equal(t, "a@x.io", u.Email)

	u, err = d.UpdateInfo(ctx, "u1", contract.UpdateUserRequest{DisplayName: ptr("Ali")})
	require.NoError(t, err)
	assert.Equal(t, "Ali", u.DisplayName)
	assert.Equal(t, "likes Go", u.AboutMe)

	_, err = d.UpdateInfo(ctx, "u1", contract.UpdateUserRequest{DisplayName: ptr("")})
	require.ErrorIs(t, err, contract.ErrValidation)

	_, err = d.UpdateInfo(ctx, "ghost", contract.UpdateUserRequest{AboutMe: ptr("x")})
	require.ErrorIs(t, err, contract.ErrNotFound)
	_, err = store.Get(ctx, contract.UsersCollection, "ghost")
	require.ErrorIs(t, err, docstore.ErrNotFound)
}

func TestUpdatePhoto(t *testing.T) {
	store := docstore.NewMemory()
	seedUsers(t, store, contract.User{UID: "u1", DisplayName: "Alice"})
	uploads := blob.NewMemory("bucket")
	d := NewDirectory(store, uploads, WithMaxPhotoBytes(8))
	ctx := context.Background()

	photoURL, err := d.UpdatePhoto(ctx, "u1", []byte("jpegdata"), "image/jpeg")
	require.NoError(t, err)
	assert.True(t, strings.Contains(photoURL, "userPhotos%2Fu1%2FprofileImage.jpg"))

	obj, ok := uploads.Object("userPhotos/u1/profileImage.jpg")
	require.True(t, ok)
	assert.Equal(t, []byte("jpegdata"), obj.Data)

	u, err := d.Get(ctx, "u1")
	require.NoError(t, err)
	assert.Equal(t, photoURL, u.PhotoURL)

	tests := []struct {
		name        string
		uid         string
		data        []byte
		contentType string
		expected    error
	}{
		{name: "empty", uid: "u1", data: nil, contentType: "image/jpeg", expected: contract.ErrValidation},
		{name: "too large", uid: "u1", data: []byte("123456789"), contentType: "image/jpeg", expected: contract.ErrValidation},
		{name: "not an image", uid: "u1", data: []byte("x"), contentType: "text/plain", expected: contract.ErrValidation},
		{name: "unknown user", uid: "ghost", data: []byte("x"), contentType: "image/png", expected: contract.ErrNotFound},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := d.UpdatePhoto(ctx, tt.uid, tt.data, tt.contentType)
			require.ErrorIs(t, err, tt.expected)
		})
	}

	uploads.Fail(errors.New("quota"))
	_, err = d.UpdatePhoto(ctx, "u1", []byte("x"), "image/png")
	require.ErrorIs(t, err, contract.ErrStoreUnavailable)
}
