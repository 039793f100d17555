package main

import (
	"context"
	"log"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/ArowuTest/rng-engine/internal/auth"
	"github.com/ArowuTest/rng-engine/internal/config"
	"github.com/ArowuTest/rng-engine/internal/handlers"
	"github.com/ArowuTest/rng-engine/internal/models"
	"github.com/ArowuTest/rng-engine/internal/store"
	"github.com/ArowuTest/rng-engine/internal/streams"
)

func main() {
	// Load config & init
	appCfg, err := config.Load()
	if err != nil {
		log.Fatalf("config: %v", err)
	}
	db, err := config.InitDB(appCfg)
	if err != nil {
		log.Fatal(err)
	}
	if err := models.Migrate(db); err != nil {
		log.Fatalf("migrate: %v", err)
	}
	auth.Init(appCfg.JWTSecret)

	st := store.NewGorm(db)
	if err := ensureAdmin(context.Background(), st, appCfg); err != nil {
		log.Fatalf("bootstrap admin: %v", err)
	}

	codec, err := streams.NewCodec(appCfg.CheckpointKey, appCfg.SeedLabelKey)
	if err != nil {
		log.Fatal(err)
	}
	srv := &handlers.Server{
		Store:   st,
		Streams: &streams.Service{Store: st, Codec: codec},
	}

	gin.SetMode(gin.ReleaseMode)
	r := handlers.NewRouter(srv, appCfg.FrontendURL)

	log.Printf("listening on :%s", appCfg.Port)
	if err := r.Run(":" + appCfg.Port); err != nil {
		log.Fatal(err)
	}
}

// ensureAdmin creates the first admin from ADMIN_USERNAME/ADMIN_PASSWORD
// when the operator table is empty.
func ensureAdmin(ctx context.Context, st store.Store, cfg *config.AppConfig) error {
	n, err := st.CountOperators(ctx)
	if err != nil || n > 0 {
		return err
	}
	if cfg.AdminUsername == "" || cfg.AdminPassword == "" {
		log.Printf("WARNING: no operators exist and ADMIN_USERNAME/ADMIN_PASSWORD are not set")
		return nil
	}
	hash, err := auth.HashPassword(cfg.AdminPassword)
	if err != nil {
		return err
	}
	op := models.Operator{
		ID:           uuid.New(),
		Username:     cfg.AdminUsername,
		Email:        cfg.AdminUsername + "@localhost",
		PasswordHash: hash,
		Role:         models.RoleAdmin,
		Status:       models.StatusActive,
	}
	if err := st.CreateOperator(ctx, &op); err != nil {
		return err
	}
	log.Printf("created admin operator %q", op.Username)
	return nil
}
