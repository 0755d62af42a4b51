package main

import (
	"fmt"
	"log"
	"log/slog"
	"net/http"
	"os"
	"time"

	"annuaire/backend/config"
	"annuaire/backend/database"
	"annuaire/backend/handlers"
	"annuaire/backend/logger"
	"annuaire/backend/middleware"
	"annuaire/backend/store"
)

func main() {
	// Load configuration
	if err := config.Load(); err != nil {
		log.Fatal("Failed to load config:", err)
	}

	// Initialize session store with configured secret and timeout
	if err := handlers.InitSession(); err != nil {
		log.Fatal("Failed to init session:", err)
	}

	if err := os.MkdirAll(config.C.DataDir, 0o755); err != nil {
		log.Fatal("Failed to create data dir:", err)
	}
	if err := store.EnsureUnlockSecret(config.C.UnlockPath()); err != nil {
		log.Fatal("Failed to seed unlock secret:", err)
	}

	if err := database.Init(config.C.Audit.DBPath); err != nil {
		log.Fatal("Failed to init audit database:", err)
	}

	// Initialize structured logging
	slog.SetDefault(slog.New(logger.NewDBHandler(database.DB)))
	go logger.CleanupOldLogs(database.DB, 48*time.Hour) // Keep audit rows for 2 days

	app := handlers.NewApp()

	// The listen address follows the public_server variable.
	public := false
	if flags, err := app.Flags.Read(); err == nil {
		public = flags["public_server"]
	}
	addr := config.C.ListenAddr(public)

	csrf := middleware.NewCSRFProtection(config.C.Session.Secret, config.C.TLS.Enabled)

	mux := http.NewServeMux()

	// Health check (unauthenticated, for load balancers)
	mux.HandleFunc("GET /health", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("ok"))
	})

	// Auth routes
	mux.HandleFunc("POST /login", app.Login)
	mux.HandleFunc("POST /2fa", app.TwoFactor)
	mux.HandleFunc("GET /logout", app.Logout)

	// App routes (require a completed login)
	mux.HandleFunc("GET /app", middleware.Require(app.Navigation, app.AppPage))
	mux.HandleFunc("GET /status", middleware.Require(app.Authenticated, app.Status))
	mux.HandleFunc("POST /search", middleware.Require(app.Authenticated, app.Search))

	// Admin routes (require the admin role; CSRF-protected)
	mux.HandleFunc("GET /admin/users", csrf.ProtectFunc(middleware.Require(app.Admin, app.ListUsers)))
	mux.HandleFunc("POST /admin/users", csrf.ProtectFunc(middleware.Require(app.Admin, app.AddUser)))
	mux.HandleFunc("POST /admin/users/remove", csrf.ProtectFunc(middleware.Require(app.Admin, app.RemoveUser)))
	mux.HandleFunc("POST /admin/users/role", csrf.ProtectFunc(middleware.Require(app.Admin, app.SetRole)))
	mux.HandleFunc("GET /admin/flags", csrf.ProtectFunc(middleware.Require(app.Admin, app.ListFlags)))
	mux.HandleFunc("POST /admin/flags", csrf.ProtectFunc(middleware.Require(app.Admin, app.SetFlag)))

	// Audit log API
	mux.HandleFunc("GET /admin/api/logs", middleware.Require(app.Admin, handlers.GetLogs))
	mux.HandleFunc("GET /admin/api/logs/sources", middleware.Require(app.Admin, handlers.GetLogSources))
	mux.HandleFunc("DELETE /admin/api/logs", csrf.ProtectFunc(middleware.Require(app.Admin, handlers.DeleteLogs)))

	// Wrap all routes with security headers
	handler := middleware.SecurityHeaders(mux)

	slog.Info("server starting", "source", "main", "listen", addr)

	fmt.Printf("Server running at %s\n", addr)
	if config.C.TLS.Enabled {
		log.Fatal(http.ListenAndServeTLS(addr, config.C.TLS.Cert, config.C.TLS.Key, handler))
	} else {
		log.Fatal(http.ListenAndServe(addr, handler))
	}
}
