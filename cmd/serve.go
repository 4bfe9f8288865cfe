package main

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/convocatorias-pro/search-service/internal/model"
	"github.com/convocatorias-pro/search-service/internal/search"
	"github.com/convocatorias-pro/search-service/internal/sink"
	"github.com/convocatorias-pro/search-service/internal/store"
)

var servePort int

// searchAPI is the surface the HTTP layer needs from the search service.
type searchAPI interface {
	Search(ctx context.Context, req search.SearchRequest) (*sink.Response, error)
	GetSession(ctx context.Context, id string) (*model.SearchSession, error)
	ListSessions(ctx context.Context, filter store.SessionFilter) ([]model.SearchSession, error)
}

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the HTTP search API",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()

		env, err := initSearch(ctx)
		if err != nil {
			return err
		}
		defer env.Close()

		port := servePort
		if port == 0 {
			port = cfg.Server.Port
		}

		srv := &http.Server{
			Addr:    fmt.Sprintf(":%d", port),
			Handler: newRouter(env.Service),
		}

		// Graceful shutdown
		go func() {
			<-ctx.Done()
			zap.L().Info("shutting down server")
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
			defer cancel()
			_ = srv.Shutdown(shutdownCtx)
		}()

		zap.L().Info("starting server", zap.Int("port", port))
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			return eris.Wrap(err, "server listen")
		}

		return nil
	},
}

func newRouter(api searchAPI) http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: []string{"*"},
		AllowedMethods: []string{"GET", "POST", "OPTIONS"},
		AllowedHeaders: []string{"Accept", "Content-Type"},
	}))

	r.Get("/health", func(w http.ResponseWriter, req *http.Request) {
		writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})

	r.Post("/api/search", func(w http.ResponseWriter, req *http.Request) {
		var body search.SearchRequest
		if err := json.NewDecoder(req.Body).Decode(&body); err != nil {
			writeError(w, http.StatusBadRequest, "INVALID_REQUEST", "invalid request body")
			return
		}

		resp, err := api.Search(req.Context(), body)
		switch {
		case err == nil:
			writeJSON(w, http.StatusOK, resp)
		case search.IsInputError(err):
			writeError(w, http.StatusBadRequest, "INVALID_QUERY", err.Error())
		default:
			zap.L().Error("search request failed", zap.Error(err))
			writeError(w, http.StatusInternalServerError, "INTERNAL_ERROR", "search failed")
		}
	})

	r.Get("/api/sessions", func(w http.ResponseWriter, req *http.Request) {
		filter := store.SessionFilter{Status: model.SessionStatus(req.URL.Query().Get("status"))}
		if v := req.URL.Query().Get("limit"); v != "" {
			n, err := strconv.Atoi(v)
			if err != nil || n < 0 {
				writeError(w, http.StatusBadRequest, "INVALID_REQUEST", "limit must be a non-negative integer")
				return
			}
			filter.Limit = n
		}

		sessions, err := api.ListSessions(req.Context(), filter)
		if err != nil {
			zap.L().Error("list sessions failed", zap.Error(err))
			writeError(w, http.StatusInternalServerError, "INTERNAL_ERROR", "list sessions failed")
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{"sessions": sessions, "count": len(sessions)})
	})

	r.Get("/api/sessions/{id}", func(w http.ResponseWriter, req *http.Request) {
		sess, err := api.GetSession(req.Context(), chi.URLParam(req, "id"))
		switch {
		case err == nil:
			writeJSON(w, http.StatusOK, sess)
		case eris.Is(err, store.ErrNotFound):
			writeError(w, http.StatusNotFound, "NOT_FOUND", "session not found")
		default:
			zap.L().Error("get session failed", zap.Error(err))
			writeError(w, http.StatusInternalServerError, "INTERNAL_ERROR", "get session failed")
		}
	})

	return r
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, code, message string) {
	writeJSON(w, status, map[string]any{
		"error": map[string]string{
			"code":      code,
			"message":   message,
			"timestamp": time.Now().UTC().Format(time.RFC3339),
		},
	})
}

func init() {
	serveCmd.Flags().IntVar(&servePort, "port", 0, "server port (default from config)")
	rootCmd.AddCommand(serveCmd)
}
