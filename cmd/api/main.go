package main

import (
	"context"
	"log"
	"net/http"
	"time"

	"github.com/gorilla/mux"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/scoins/coinmarket/internal/api"
	"github.com/scoins/coinmarket/internal/blob"
	"github.com/scoins/coinmarket/internal/config"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatal(err)
	}

	var blobs blob.Store
	if cfg.DBSource != "" {
		pg, err := blob.NewPostgresStore(context.Background(), cfg.DBSource)
		if err != nil {
			log.Fatalf("Unable to connect to database: %v", err)
		}
		defer pg.Close()
		blobs = pg
	} else {
		fs, err := blob.NewFileStore(cfg.DataDir)
		if err != nil {
			log.Fatalf("Unable to prepare data dir: %v", err)
		}
		blobs = fs
	}

	// Initialize Layers
	hub := api.NewHub()
	registry := api.NewRegistry(cfg, blobs, hub)
	issuer := api.NewTokenIssuer(cfg.TokenSecret, 24*time.Hour)
	handler := api.NewHandler(registry, issuer, nil)

	// Background autosave and listing-expiry sweep. Both funnel through the
	// session mutex, so they never interleave with an in-flight command.
	go runTimers(cfg, registry)

	// Router
	r := mux.NewRouter()
	r.Handle("/metrics", promhttp.Handler())
	r.HandleFunc("/health", handler.HealthCheckHandler)
	r.HandleFunc("/ws", hub.ServeWS)

	apiV1 := r.PathPrefix("/api/v1").Subrouter()
	apiV1.HandleFunc("/sessions", handler.CreateSessionHandler).Methods("POST")
	apiV1.HandleFunc("/shop", handler.GetCatalogHandler).Methods("GET")
	apiV1.HandleFunc("/shop/buy", handler.RequireAuth(handler.BuyFromShopHandler)).Methods("POST")
	apiV1.HandleFunc("/collection", handler.RequireAuth(handler.GetCollectionHandler)).Methods("GET")
	apiV1.HandleFunc("/stats", handler.RequireAuth(handler.GetStatsHandler)).Methods("GET")
	apiV1.HandleFunc("/marketplace", handler.RequireAuth(handler.GetMarketplaceHandler)).Methods("GET")
	apiV1.HandleFunc("/marketplace/listings", handler.RequireAuth(handler.CreateListingHandler)).Methods("POST")
	apiV1.HandleFunc("/marketplace/listings/{id}/buy", handler.RequireAuth(handler.BuyListingHandler)).Methods("POST")
	apiV1.HandleFunc("/marketplace/listings/{id}", handler.RequireAuth(handler.CancelListingHandler)).Methods("DELETE")
	apiV1.HandleFunc("/payments/settings", handler.RequireAuth(handler.GetPaymentSettingsHandler)).Methods("GET")
	apiV1.HandleFunc("/payments/settings", handler.RequireAuth(handler.SelectPaymentHandler)).Methods("PUT")
	apiV1.HandleFunc("/payments", handler.RequireAuth(handler.StartPaymentHandler)).Methods("POST")
	apiV1.HandleFunc("/payments/{id}/confirm", handler.RequireAuth(handler.ConfirmPaymentHandler)).Methods("POST")

	log.Printf("Server starting on :%s", cfg.Port)
	if err := http.ListenAndServe(":"+cfg.Port, r); err != nil {
		log.Fatal(err)
	}
}

func runTimers(cfg *config.Config, registry *api.Registry) {
	autosave := time.NewTicker(cfg.AutosaveInterval)
	sweep := time.NewTicker(cfg.SweepInterval)
	defer autosave.Stop()
	defer sweep.Stop()

	ctx := context.Background()
	for {
		select {
		case <-autosave.C:
			registry.ForEach(func(e *api.Entry) {
				if err := e.Session.Save(ctx); err != nil {
					log.Printf("autosave for %s failed: %v", e.Session.UserID(), err)
				}
			})
		case <-sweep.C:
			registry.ForEach(func(e *api.Entry) {
				removed, err := e.Session.Sweep(ctx)
				if err != nil {
					log.Printf("sweep for %s failed: %v", e.Session.UserID(), err)
				} else if removed > 0 {
					log.Printf("sweep removed %d expired listings", removed)
				}
			})
		}
	}
}
