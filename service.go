package uconnect

import (
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"slices"
	"time"

	"github.com/Bilz97/UConnectChat/auth"
	"github.com/Bilz97/UConnectChat/blob"
	"github.com/Bilz97/UConnectChat/chat"
	"github.com/Bilz97/UConnectChat/contract"
	"github.com/Bilz97/UConnectChat/docstore"
	"github.com/Bilz97/UConnectChat/filter"
	"github.com/Bilz97/UConnectChat/friend"
	"github.com/Bilz97/UConnectChat/log"
	"github.com/Bilz97/UConnectChat/preview"
	"github.com/Bilz97/UConnectChat/profile"
	"github.com/Bilz97/UConnectChat/room"
)

const (
	methodLogField   = "method"
	pathLogField     = "path"
	statusLogField   = "status"
	durationLogField = "durationMs"

	me         = "me"
	htmlFormat = "html"
)

// Options tunes a Service.
type Options struct {
	ProjectID       string
	MaxPhotoBytes   int
	UserSearchLimit int
	// Flush, when set, runs after every request to push buffered log entries.
	Flush func() error
}

// Service exposes the chat core over HTTP.
type Service struct {
	logger        *slog.Logger
	projectID     string
	maxPhotoBytes int
	flush         func() error

	verifier auth.Verifier
	profiles *profile.Directory
	friends  *friend.Graph
	rooms    *room.Resolver
	ledger   *chat.Ledger
	previews *preview.Aggregator
}

func NewService(logger *slog.Logger, store docstore.Store, uploader blob.Uploader, verifier auth.Verifier, opts Options) *Service {
	if opts.MaxPhotoBytes <= 0 {
		opts.MaxPhotoBytes = profile.DefaultMaxPhotoBytes
	}
	ledger := chat.NewLedger(store)
	profiles := profile.NewDirectory(store, uploader,
		profile.WithMaxPhotoBytes(opts.MaxPhotoBytes),
		profile.WithSearchLimit(opts.UserSearchLimit),
	)
	return &Service{
		logger:        logger,
		projectID:     opts.ProjectID,
		maxPhotoBytes: opts.MaxPhotoBytes,
		flush:         opts.Flush,
		verifier:      verifier,
		profiles:      profiles,
		friends:       friend.NewGraph(store, profiles),
		rooms:         room.NewResolver(store, ledger),
		ledger:        ledger,
		previews:      preview.NewAggregator(store, ledger, profiles),
	}
}

// Handler returns the routed, authenticated HTTP handler.
func (s *Service) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("POST /logout", s.logout)

	mux.HandleFunc("POST /users", s.register)
	mux.HandleFunc("GET /users", s.searchUsers)
	mux.HandleFunc("GET /users/{uid}", s.getUser)
	mux.HandleFunc("PATCH /users/me", s.updateUser)
	mux.HandleFunc("PUT /users/me/photo", s.updatePhoto)

	mux.HandleFunc("GET /friends", s.listFriends)
	mux.HandleFunc("POST /friends", s.addFriend)
	mux.HandleFunc("DELETE /friends/{uid}", s.removeFriend)

	mux.HandleFunc("POST /rooms", s.resolveRoom)
	mux.HandleFunc("GET /rooms/{room}", s.enterRoom)
	mux.HandleFunc("POST /rooms/{room}/messages", s.sendMessage)
	mux.HandleFunc("GET /previews", s.listPreviews)

	return s.withLogger(auth.Middleware(s.verifier, mux))
}

// withLogger puts a request scoped logger in the context and logs the
// outcome of every request.
func (s *Service) withLogger(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		ctx := log.WithTrace(r.Context(), s.projectID, r.Header.Get(log.TraceHeader))
		logger := s.logger.With(slog.String(methodLogField, r.Method), slog.String(pathLogField, r.URL.Path))
		ctx = log.WithLogger(ctx, logger)

		rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
		next.ServeHTTP(rec, r.WithContext(ctx))

		logger.InfoContext(ctx, "request handled",
			slog.Int(statusLogField, rec.status),
			slog.Int64(durationLogField, time.Since(start).Milliseconds()),
		)
		if s.flush != nil {
			if err := s.flush(); err != nil {
				fmt.Fprintf(os.Stderr, "error flushing logs: %v\n", err)
			}
		}
	})
}

func currentUID(r *http.Request) string {
	uid, _ := auth.CurrentUserUID(r.Context())
	return uid
}

func (s *Service) logout(w http.ResponseWriter, r *http.Request) {
	if err := auth.SignOut(r.Context(), s.verifier); err != nil {
		writeError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Service) register(w http.ResponseWriter, r *http.Request) {
	var req contract.RegisterRequest
	if err := decode(r, &req); err != nil {
		writeError(w, r, err)
		return
	}
	id, _ := auth.CurrentIdentity(r.Context())
	user, err := s.profiles.Register(r.Context(), id.UID, id.Email, req)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, user)
}

func (s *Service) searchUsers(w http.ResponseWriter, r *http.Request) {
	users, err := s.profiles.Search(r.Context(), currentUID(r), r.URL.Query().Get("displayName"))
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, users)
}

func (s *Service) getUser(w http.ResponseWriter, r *http.Request) {
	uid := r.PathValue("uid")
	if uid == me {
		uid = currentUID(r)
	}
	user, err := s.profiles.Get(r.Context(), uid)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, user)
}

func (s *Service) updateUser(w http.ResponseWriter, r *http.Request) {
	var req contract.UpdateUserRequest
	if err := decode(r, &req); err != nil {
		writeError(w, r, err)
		return
	}
	user, err := s.profiles.UpdateInfo(r.Context(), currentUID(r), req)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, user)
}

func (s *Service) updatePhoto(w http.ResponseWriter, r *http.Request) {
	// One byte over the cap is enough for the directory to reject it.
	data, err := io.ReadAll(io.LimitReader(r.Body, int64(s.maxPhotoBytes)+1))
	if err != nil {
		writeError(w, r, fmt.Errorf("error reading photo: %w", err))
		return
	}
	photoURL, err := s.profiles.UpdatePhoto(r.Context(), currentUID(r), data, r.Header.Get("Content-Type"))
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, contract.PhotoResponse{PhotoURL: photoURL})
}

func (s *Service) listFriends(w http.ResponseWriter, r *http.Request) {
	friends, err := s.friends.List(r.Context(), currentUID(r))
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, friends)
}

func (s *Service) addFriend(w http.ResponseWriter, r *http.Request) {
	var req contract.FriendRequest
	if err := decode(r, &req); err != nil {
		writeError(w, r, err)
		return
	}
	user, err := s.friends.Add(r.Context(), currentUID(r), req.FriendUID)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, user)
}

func (s *Service) removeFriend(w http.ResponseWriter, r *http.Request) {
	removed, err := s.friends.Remove(r.Context(), currentUID(r), r.PathValue("uid"))
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, contract.RemoveFriendResponse{FriendUID: removed})
}

func (s *Service) resolveRoom(w http.ResponseWriter, r *http.Request) {
	var req contract.ResolveRoomRequest
	if err := decode(r, &req); err != nil {
		writeError(w, r, err)
		return
	}
	rm, err := s.rooms.Resolve(r.Context(), currentUID(r), req.FriendUID)
	if err != nil {
		writeError(w, r, err)
		return
	}
	s.render(r, rm)
	writeJSON(w, http.StatusOK, rm)
}

func (s *Service) enterRoom(w http.ResponseWriter, r *http.Request) {
	rm, err := s.rooms.Enter(r.Context(), r.PathValue("room"))
	if err != nil {
		writeError(w, r, err)
		return
	}
	if !slices.Contains(rm.Participants, currentUID(r)) {
		writeError(w, r, contract.ErrNotParticipant)
		return
	}
	s.render(r, rm)
	writeJSON(w, http.StatusOK, rm)
}

func (s *Service) sendMessage(w http.ResponseWriter, r *http.Request) {
	var req contract.SendMessageRequest
	if err := decode(r, &req); err != nil {
		writeError(w, r, err)
		return
	}
	id, err := s.ledger.Send(r.Context(), r.PathValue("room"), currentUID(r), req.Text)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, contract.SendMessageResponse{ID: id})
}

func (s *Service) listPreviews(w http.ResponseWriter, r *http.Request) {
	previews, err := s.previews.Join(r.Context(), currentUID(r))
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, previews)
}

// render fills the HTML view of every message when ?format=html is set.
func (s *Service) render(r *http.Request, rm *contract.Room) {
	if r.URL.Query().Get("format") != htmlFormat {
		return
	}
	for i := range rm.Messages {
		rm.Messages[i].HTML = filter.Render(rm.Messages[i].Text)
	}
}
