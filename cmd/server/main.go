package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	log "github.com/sirupsen/logrus"
	"github.com/ukydev/equipment-checklist/internal/auth"
	"github.com/ukydev/equipment-checklist/internal/checklist"
	"github.com/ukydev/equipment-checklist/internal/config"
	"github.com/ukydev/equipment-checklist/internal/db"
	"github.com/ukydev/equipment-checklist/internal/handlers"
	"github.com/ukydev/equipment-checklist/internal/inspection"
	"github.com/ukydev/equipment-checklist/internal/models"
	"github.com/ukydev/equipment-checklist/internal/notify"
	"github.com/ukydev/equipment-checklist/internal/storage"
	"go.mongodb.org/mongo-driver/mongo"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.WithError(err).Fatal("Invalid configuration")
	}
	cfg.ConfigureLogger()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	client, err := db.ConnectMongo(ctx, cfg.MongoURI)
	if err != nil {
		log.WithError(err).Fatal("Failed to connect to MongoDB")
	}
	defer func() {
		dctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = client.Disconnect(dctx)
	}()
	database := client.Database(cfg.MongoDB)
	log.WithField("database", cfg.MongoDB).Info("Connected to MongoDB")

	if err := db.EnsureIndexes(ctx, database); err != nil {
		log.WithError(err).Warn("Failed to ensure indexes")
	}

	authService := auth.NewService(cfg.JWTSecret, cfg.JWTExpiry)
	if authService.UsesDefaultSecret() {
		log.Warn("JWT_SECRET not set; using the built-in development secret")
	}

	users := &db.MongoUserCollection{Collection: database.Collection(db.UsersCollection)}
	if cfg.SeedAdmin() {
		if err := seedAdmin(ctx, cfg, authService, users); err != nil {
			log.WithError(err).Error("Failed to seed administrator")
		}
	}

	images, err := newImageService(cfg, database)
	if err != nil {
		log.WithError(err).Fatal("Failed to open image storage")
	}

	notifier := notify.Multi{notify.LogNotifier{Logger: log.StandardLogger()}}
	if cfg.MQTTEnabled() {
		mqttNotifier, mqttClient, err := notify.ConnectMQTT(notify.MQTTConfig{
			Broker:      cfg.MQTTBroker,
			ClientID:    cfg.MQTTClientID,
			Username:    cfg.MQTTUsername,
			Password:    cfg.MQTTPassword,
			TopicPrefix: cfg.MQTTTopicPrefix,
		})
		if err != nil {
			log.WithError(err).Warn("MQTT unavailable; submissions are only logged")
		} else {
			defer mqttClient.Disconnect(250)
			notifier = append(notifier, mqttNotifier)
			log.WithField("broker", cfg.MQTTBroker).Info("Publishing inspection events to MQTT")
		}
	}

	sessions := inspection.NewManager(inspection.Deps{
		Checklists: db.NewMongoChecklistCollection(database),
		Images:     images,
		Notifier:   notifier,
		Assembler:  checklist.NewAssembler(cfg.ScorePolicy),
		Logger:     log.StandardLogger(),
	})

	router := handlers.NewRouter(handlers.RouterConfig{
		Auth:            authService,
		Users:           users,
		Checklists:      db.NewMongoChecklistCollection(database),
		Images:          images,
		Sessions:        sessions,
		Logger:          log.StandardLogger(),
		SubmitRateLimit: cfg.RateLimitSubmits,
		Ping: func(ctx context.Context) error {
			return client.Ping(ctx, nil)
		},
	})

	srv := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		log.WithFields(log.Fields{
			"port":         cfg.Port,
			"score_policy": cfg.ScorePolicy,
			"blob_store":   cfg.BlobStore,
		}).Info("HTTP server listening")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.WithError(err).Fatal("HTTP server failed")
		}
	}()

	<-ctx.Done()
	log.Info("Shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.WithError(err).Error("Graceful shutdown failed")
	}
	log.WithField("open_sessions", sessions.Count()).Info("Server stopped")
}

func newImageService(cfg *config.Config, database *mongo.Database) (*storage.ImageService, error) {
	var store storage.BlobStore
	switch cfg.BlobStore {
	case config.BlobStoreMemory:
		log.Warn("Using in-memory image storage; photos are lost on restart")
		store = storage.NewMemoryStore()
	default:
		gfs, err := storage.NewGridFSStore(database, storage.DefaultBucket)
		if err != nil {
			return nil, err
		}
		store = gfs
	}
	return storage.NewImageService(store, cfg.PublicBaseURL, cfg.MaxImageBytes), nil
}

// seedAdmin creates the configured administrator if the username is free.
func seedAdmin(ctx context.Context, cfg *config.Config, authService *auth.Service, users db.UserCollection) error {
	if _, err := users.FindUserByUsername(ctx, cfg.AdminUsername); err == nil {
		return nil
	} else if !errors.Is(err, db.ErrNotFound) {
		return err
	}

	hash, err := authService.HashPassword(cfg.AdminPassword)
	if err != nil {
		return err
	}
	email := cfg.AdminEmail
	if email == "" {
		email = cfg.AdminUsername + "@localhost.local"
	}
	now := time.Now().UTC()
	if err := users.InsertUser(ctx, models.User{
		Username:     cfg.AdminUsername,
		Email:        email,
		PasswordHash: hash,
		Role:         models.RoleAdmin,
		IsActive:     true,
		CreatedAt:    now,
		UpdatedAt:    now,
	}); err != nil {
		return err
	}
	log.WithField("username", cfg.AdminUsername).Info("Seeded administrator account")
	return nil
}
