package main

import (
	"context"
	"errors"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"spendtrack/internal/auth"
	"spendtrack/internal/config"
	"spendtrack/internal/handlers"
	"spendtrack/internal/logger"
	"spendtrack/internal/middleware"
	"spendtrack/internal/storage"
	"spendtrack/internal/uploads"

	"github.com/rs/zerolog"
	"github.com/spf13/afero"
)

// sessionCleanupInterval is how often expired session rows are swept.
const sessionCleanupInterval = time.Hour

func main() {
	cfg := config.Load()
	log := logger.New()

	db, err := storage.NewDB(cfg.DBPath)
	if err != nil {
		log.Fatal().Err(err).Str("path", cfg.DBPath).Msg("Failed to open database")
	}
	defer db.Close()

	if err := bootstrapAdminUser(db, cfg.AdminUser, cfg.AdminPassword); err != nil {
		log.Fatal().Err(err).Msg("Failed to bootstrap admin user")
	}

	files, err := uploads.NewStore(afero.NewOsFs(), cfg.UploadsDir)
	if err != nil {
		log.Fatal().Err(err).Str("dir", cfg.UploadsDir).Msg("Failed to open uploads dir")
	}

	h := handlers.NewHandlers(db, files, cfg.TemplateDir, cfg.SecureCookie, cfg.SessionTTL, log)
	mux := setupRouter(h, cfg.StaticDir)

	handler := middleware.RequestID(middleware.Logger(log)(middleware.Recovery(log)(mux)))

	server := &http.Server{
		Addr:              cfg.ListenAddr,
		Handler:           handler,
		ReadHeaderTimeout: 10 * time.Second,
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	go sweepSessions(ctx, db, log)

	go func() {
		log.Info().Str("addr", cfg.ListenAddr).Msg("Server listening")
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatal().Err(err).Msg("Server failed")
		}
	}()

	<-ctx.Done()
	log.Info().Msg("Shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("Shutdown error")
	}
}

// setupRouter registers all routes.
func setupRouter(h *handlers.Handlers, staticDir string) *http.ServeMux {
	mux := http.NewServeMux()

	mux.Handle("GET /static/", http.StripPrefix("/static/", http.FileServer(http.Dir(staticDir))))

	mux.HandleFunc("GET /{$}", func(w http.ResponseWriter, r *http.Request) {
		http.Redirect(w, r, "/categories", http.StatusFound)
	})

	mux.HandleFunc("GET /login", h.LoginForm)
	mux.HandleFunc("POST /login", h.Login)
	mux.HandleFunc("POST /logout", h.Logout)

	mux.Handle("GET /categories", h.AuthMiddleware(http.HandlerFunc(h.CategoriesPage)))
	mux.Handle("GET /categories/load", h.AuthMiddleware(http.HandlerFunc(h.LoadCategories)))
	mux.Handle("POST /categories", h.AuthMiddleware(http.HandlerFunc(h.CreateCategory)))
	mux.Handle("GET /categories/{id}", h.AuthMiddleware(http.HandlerFunc(h.GetCategory)))
	mux.Handle("POST /categories/{id}", h.AuthMiddleware(http.HandlerFunc(h.UpdateCategory)))
	mux.Handle("DELETE /categories/{id}", h.AuthMiddleware(http.HandlerFunc(h.DeleteCategory)))

	mux.Handle("POST /transactions", h.AuthMiddleware(http.HandlerFunc(h.CreateTransaction)))
	mux.Handle("GET /transactions/{id}", h.AuthMiddleware(http.HandlerFunc(h.GetTransaction)))

	mux.Handle("POST /transactions/{id}/receipts", h.AuthMiddleware(http.HandlerFunc(h.UploadReceipt)))
	mux.Handle("GET /transactions/{transactionId}/receipts/{id}", h.AuthMiddleware(http.HandlerFunc(h.DownloadReceipt)))
	mux.Handle("DELETE /transactions/{transactionId}/receipts/{id}", h.AuthMiddleware(http.HandlerFunc(h.DeleteReceipt)))

	return mux
}

// bootstrapAdminUser creates a first account from the environment when the
// user table is empty. Existing installs are never touched.
func bootstrapAdminUser(db *storage.DB, username, password string) error {
	if username == "" || password == "" {
		return nil
	}
	count, err := db.UserCount()
	if err != nil {
		return err
	}
	if count > 0 {
		return nil
	}
	hash, err := auth.HashPassword(password)
	if err != nil {
		return err
	}
	_, err = db.CreateUser(username, hash)
	return err
}

// sweepSessions periodically removes expired session rows.
func sweepSessions(ctx context.Context, db *storage.DB, log zerolog.Logger) {
	ticker := time.NewTicker(sessionCleanupInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if err := db.CleanExpiredSessions(); err != nil {
				log.Error().Err(err).Msg("Failed to clean expired sessions")
			}
		}
	}
}
