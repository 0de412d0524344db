// main wires the backend clients, the auth coordinator, and the
// per-user collections, then idles until interrupted. Business logic
// lives in the internal packages.
package main

import (
	"context"
	"os"
	"os/signal"
	"sync"
	"time"

	"github.com/google/uuid"

	"mindspend/internal/auth"
	"mindspend/internal/backend/provider"
	"mindspend/internal/backend/store"
	"mindspend/internal/collection"
	"mindspend/internal/email"
	"mindspend/internal/enrich"
	"mindspend/internal/flags"
	"mindspend/internal/platform/config"
	"mindspend/internal/platform/logger"
	"mindspend/internal/platform/metrics"
	"mindspend/internal/profile"
	"mindspend/internal/session"
)

func main() {
	cfg, err := config.FromEnv()
	if err != nil {
		os.Stderr.WriteString("config: " + err.Error() + "\n")
		os.Exit(1)
	}
	log := logger.New(cfg.LogLevel)

	log.Info("initializing mindspend", "backend", cfg.BackendURL)

	flagStore, err := flags.Open(cfg.FlagsPath)
	if err != nil {
		log.Error("open flags store", "error", err)
		os.Exit(1)
	}

	m := metrics.New()
	prov := provider.New(cfg.BackendURL, cfg.APIKey, provider.WithLogger(log))
	defer prov.Close()

	storeClient := store.New(cfg.BackendURL, cfg.APIKey, prov.AccessToken)
	sessions := session.New(prov)
	defer sessions.Close()

	loader := profile.NewLoader(profile.NewRemoteStore(storeClient),
		profile.WithLogger(log),
		profile.WithMetrics(m),
	)
	mailer := email.New(cfg.BackendURL, cfg.APIKey, email.WithLogger(log))
	extractor := enrich.New(enrich.WithLogger(log), enrich.WithMetrics(m))

	coordinator := auth.New(sessions, loader, flagStore,
		auth.WithLogger(log),
		auth.WithMetrics(m),
		auth.WithProvider(prov),
		auth.WithMailer(mailer),
		auth.WithRetryPolicy(cfg.ProfileRetryAttempts, cfg.ProfileRetryDelay),
	)
	defer coordinator.Close()

	go func() {
		for range coordinator.Recovery() {
			log.Info("password recovery flow pending, awaiting new password")
		}
	}()

	if cfg.RecoveryToken != "" {
		go func() {
			ctx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
			defer cancel()
			if _, err := prov.ConsumeRecoveryToken(ctx, cfg.RecoveryToken); err != nil {
				log.Error("recovery token rejected", "error", err)
			}
		}()
	}

	// Collections follow the signed-in user: built on sign-in, torn
	// down on sign-out.
	var (
		mu        sync.Mutex
		activeFor uuid.UUID
		purchases *collection.Collection[collection.Purchase]
		wishlist  *collection.Collection[collection.WantItem]
	)
	cancelWatch := coordinator.Subscribe(func(state auth.State) {
		mu.Lock()
		defer mu.Unlock()

		if state.User == nil {
			if purchases != nil {
				purchases.Close()
				wishlist.Close()
				purchases, wishlist = nil, nil
				activeFor = uuid.Nil
				log.Info("collections released")
			}
			return
		}
		if state.User.ID == activeFor {
			return
		}

		activeFor = state.User.ID
		purchases = collection.NewPurchases(storeClient, activeFor,
			collection.WithLogger[collection.Purchase](log),
			collection.WithMetrics[collection.Purchase](m),
		)
		wishlist = collection.NewWishlist(storeClient, activeFor,
			collection.WithLogger[collection.WantItem](log),
			collection.WithMetrics[collection.WantItem](m),
			collection.WithExtractor[collection.WantItem](extractor),
		)

		ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()
		if err := purchases.Load(ctx); err != nil {
			log.Warn("purchases not loaded", "error", err)
		}
		if err := wishlist.Load(ctx); err != nil {
			log.Warn("wishlist not loaded", "error", err)
		}
		log.Info("collections ready", "user_id", activeFor.String())
	})
	defer cancelWatch()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, os.Interrupt)
	<-quit

	log.Info("shutting down")
}
