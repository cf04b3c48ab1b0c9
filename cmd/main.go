package main

import (
	"context"
	"net/http"
	"os"
	"time"

	"github.com/joho/godotenv"
	"github.com/robfig/cron/v3"
	log "github.com/sirupsen/logrus"

	"github.com/unibike/campus-bikeshare/internal/auth"
	"github.com/unibike/campus-bikeshare/internal/db"
	"github.com/unibike/campus-bikeshare/internal/engine"
	"github.com/unibike/campus-bikeshare/internal/events"
	"github.com/unibike/campus-bikeshare/internal/handlers"
	"github.com/unibike/campus-bikeshare/internal/middleware"
)

func main() {
	// Load environment variables from .env if present
	if err := godotenv.Load(); err != nil {
		log.Info("No .env file found, using environment variables")
	}

	log.SetFormatter(&log.JSONFormatter{})

	// Connect to MongoDB and seed the engine from the persisted snapshot
	client, err := db.ConnectMongo()
	if err != nil {
		log.WithError(err).Fatal("Failed to connect to MongoDB")
	}
	defer client.Disconnect(context.Background())

	dbName := os.Getenv("MONGO_DB")
	if dbName == "" {
		dbName = "campus_bikeshare"
	}
	store := &db.MongoSnapshotStore{Database: client.Database(dbName)}

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	snapshot, err := store.Load(ctx)
	cancel()
	if err != nil {
		log.WithError(err).Fatal("Failed to load snapshot")
	}

	opts := []engine.Option{engine.WithListener(events.NewSnapshotSaver(store))}

	// Optional mutation feed for external consumers
	if broker := os.Getenv("MQTT_BROKER"); broker != "" {
		prefix := os.Getenv("MQTT_TOPIC_PREFIX")
		if prefix == "" {
			prefix = "bikeshare"
		}
		publisher, err := events.NewMQTTPublisher(broker, prefix, "bikeshare-server")
		if err != nil {
			log.WithError(err).Fatal("Failed to connect to MQTT broker")
		}
		defer publisher.Close()
		opts = append(opts, engine.WithListener(publisher))
	}

	eng, err := engine.New(snapshot, opts...)
	if err != nil {
		log.WithError(err).Fatal("Failed to seed engine from snapshot")
	}
	log.WithFields(log.Fields{
		"bikes":    len(snapshot.Bikes),
		"stations": len(snapshot.Stations),
		"users":    len(snapshot.Users),
	}).Info("Engine seeded")

	// Periodic sweep releases expired reservations even when no one rents
	sweepSpec := os.Getenv("SWEEP_INTERVAL")
	if sweepSpec == "" {
		sweepSpec = "@every 1m"
	}
	scheduler := cron.New()
	if _, err := scheduler.AddFunc(sweepSpec, func() {
		if released := eng.SweepExpired(time.Now()); released > 0 {
			log.WithField("released", released).Info("Expired reservations released")
		}
	}); err != nil {
		log.WithError(err).Fatal("Invalid sweep schedule")
	}
	scheduler.Start()
	defer scheduler.Stop()

	authService, err := auth.NewService()
	if err != nil {
		log.WithError(err).Fatal("Failed to create auth service")
	}

	authMiddleware := middleware.NewAuthMiddleware(authService)
	rateLimiter := middleware.NewRateLimitMiddleware()

	authHandler := handlers.NewAuthHandler(authService, eng)
	rentalHandler := handlers.NewRentalHandler(eng)
	stationHandler := handlers.NewStationHandler(eng)
	adminHandler := handlers.NewAdminHandler(authService, eng)

	mux := http.NewServeMux()

	// Public endpoints, rate limited per IP
	publicLimit := rateLimiter.RateLimit(10, 60)
	mux.Handle("/api/register", publicLimit(http.HandlerFunc(authHandler.Register)))
	mux.Handle("/api/login", publicLimit(http.HandlerFunc(authHandler.Login)))
	mux.Handle("/api/refresh", publicLimit(http.HandlerFunc(authHandler.Refresh)))

	// Rider endpoints
	mux.HandleFunc("/api/users/me", authHandler.GetProfile)
	mux.HandleFunc("/api/users/balance", authHandler.TopUp)
	mux.HandleFunc("/api/users/history", rentalHandler.History)
	mux.HandleFunc("/api/rentals", rentalHandler.Rent)
	mux.HandleFunc("/api/rentals/return", rentalHandler.Return)
	mux.HandleFunc("/api/reservations", rentalHandler.Reserve)
	mux.HandleFunc("/api/reservations/cancel", rentalHandler.CancelReservation)
	mux.HandleFunc("/api/stations", stationHandler.ListStations)
	mux.HandleFunc("/api/bikes", stationHandler.ListBikes)

	// Admin endpoints
	admin := func(h http.HandlerFunc) http.Handler {
		return authMiddleware.RequireAdmin(h)
	}
	mux.Handle("/api/admin/bikes", admin(adminHandler.Bikes))
	mux.Handle("/api/admin/stations", admin(adminHandler.Stations))
	mux.Handle("/api/admin/maintenance/send", admin(adminHandler.SendToMaintenance))
	mux.Handle("/api/admin/maintenance/return", admin(adminHandler.ReturnFromMaintenance))
	mux.Handle("/api/admin/users", admin(adminHandler.ListUsers))
	mux.Handle("/api/admin/users/active", admin(adminHandler.SetUserActive))
	mux.Handle("/api/admin/users/password", admin(adminHandler.ResetPassword))

	mux.HandleFunc("/health", healthHandler)

	port := os.Getenv("PORT")
	if port == "" {
		port = "8080"
	}
	log.WithField("port", port).Info("HTTP server listening")
	if err := http.ListenAndServe(":"+port, authMiddleware.Authenticate(mux)); err != nil {
		log.WithError(err).Fatal("Server stopped")
	}
}

func healthHandler(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusOK)
	w.Write([]byte("ok"))
}
