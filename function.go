// Package uconnect is the UConnect chat backend, deployed as a single HTTP
// cloud function.
package uconnect

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"sync"

	"cloud.google.com/go/logging"
	firebase "firebase.google.com/go/v4"
	"github.com/Bilz97/UConnectChat/auth"
	"github.com/Bilz97/UConnectChat/blob"
	"github.com/Bilz97/UConnectChat/config"
	"github.com/Bilz97/UConnectChat/docstore"
	"github.com/Bilz97/UConnectChat/log"
	"github.com/Bilz97/UConnectChat/logger"
	"github.com/GoogleCloudPlatform/functions-framework-go/functions"
)

const logID = "uconnect-chat"

var (
	once    sync.Once
	handler http.Handler
	initErr error

	// logClient lives as long as the instance; entries are flushed per
	// request since cloud functions get no shutdown hook.
	logClient *logging.Client
)

func init() {
	functions.HTTP("Chat", Chat)
}

// Chat serves every route of the API. Clients are built on the first call
// and reused by later ones.
func Chat(w http.ResponseWriter, r *http.Request) {
	once.Do(func() {
		handler, initErr = newHandler(context.Background())
	})
	if initErr != nil {
		log.LoggerFromContext(r.Context()).Error("error while initialising",
			slog.String(log.ErrorMsgLogField, initErr.Error()))
		http.Error(w, "Internal Server Error", http.StatusInternalServerError)
		return
	}
	handler.ServeHTTP(w, r)
}

func newHandler(ctx context.Context) (http.Handler, error) {
	cfg, err := config.Load(ctx)
	if err != nil {
		return nil, err
	}

	var (
		h     slog.Handler = log.NewCloudLoggingHandler(os.Stdout, cfg.LogLevel)
		flush func() error
	)
	if cfg.CloudLogging {
		cloudHandler, client, err := logger.New(ctx, cfg.ProjectID, logID, cfg.LogLevel)
		if err != nil {
			return nil, fmt.Errorf("error creating logging client: %w", err)
		}
		logClient = client
		h = cloudHandler
		flush = cloudHandler.Flush
	}
	l := slog.New(h)

	app, err := firebase.NewApp(ctx, &firebase.Config{
		ProjectID:     cfg.ProjectID,
		StorageBucket: cfg.StorageBucket,
	})
	if err != nil {
		return nil, fmt.Errorf("error initialising firebase app: %w", err)
	}
	fs, err := app.Firestore(ctx)
	if err != nil {
		return nil, fmt.Errorf("error creating firestore client: %w", err)
	}
	authClient, err := app.Auth(ctx)
	if err != nil {
		return nil, fmt.Errorf("error creating auth client: %w", err)
	}
	storageClient, err := app.Storage(ctx)
	if err != nil {
		return nil, fmt.Errorf("error creating storage client: %w", err)
	}
	bucket, err := storageClient.DefaultBucket()
	if err != nil {
		return nil, fmt.Errorf("error opening bucket %s: %w", cfg.StorageBucket, err)
	}

	l.Info("chat function initialised", slog.String("projectID", cfg.ProjectID))
	svc := NewService(l,
		docstore.NewFirestore(fs),
		blob.NewFirebase(bucket, cfg.StorageBucket),
		auth.NewFirebase(authClient),
		Options{
			ProjectID:       cfg.ProjectID,
			MaxPhotoBytes:   cfg.MaxPhotoBytes,
			UserSearchLimit: cfg.UserSearchLimit,
			Flush:           flush,
		},
	)
	return svc.Handler(), nil
}
