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

	"github.com/matlycreative/seo-prospects/internal/pipeline"
	"github.com/matlycreative/seo-prospects/internal/seenset"
	"github.com/matlycreative/seo-prospects/internal/store"
)

var servePort int

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the status server",
	RunE: func(cmd *cobra.Command, args []string) error {
		if err := cfg.Validate("serve"); err != nil {
			return err
		}

		ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()

		seen, err := seenset.Open(cfg.Pipeline.SeenFile)
		if err != nil {
			return eris.Wrap(err, "open seen set")
		}
		defer seen.Close()

		st, err := store.Open(ctx, cfg.Store.Driver, cfg.Store.DatabaseURL,
			&store.PoolConfig{MaxConns: cfg.Store.MaxConns, MinConns: cfg.Store.MinConns})
		if err != nil {
			zap.L().Warn("lead store unavailable, /leads disabled", zap.Error(err))
			st = nil
		} else {
			defer st.Close()
		}

		port := servePort
		if port == 0 {
			port = cfg.Server.Port
		}

		srv := &http.Server{
			Addr:    fmt.Sprintf(":%d", port),
			Handler: newStatusRouter(seen, st, cfg.Pipeline.BatchFile),
		}

		go shutdownOnSignal(ctx, srv, 10*time.Second)

		zap.L().Info("starting server", zap.Int("port", port))
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			return eris.Wrap(err, "server listen")
		}

		return nil
	},
}

// shutdownOnSignal waits for ctx cancellation and drains in-flight
// requests. The signal context is already canceled by then, so the drain
// runs under a fresh deadline.
func shutdownOnSignal(ctx context.Context, srv *http.Server, grace time.Duration) {
	<-ctx.Done()
	zap.L().Info("shutting down server")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), grace)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		zap.L().Error("server shutdown failed", zap.Error(err))
	}
}

// newStatusRouter builds the read-only status API.
func newStatusRouter(seen *seenset.Set, st store.Store, batchFile string) http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.Recoverer)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: []string{"*"},
		AllowedMethods: []string{"GET", "OPTIONS"},
	}))

	r.Get("/health", func(w http.ResponseWriter, req *http.Request) {
		writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})

	r.Get("/status", func(w http.ResponseWriter, req *http.Request) {
		idx := pipeline.LoadBatchIndex(batchFile)
		writeJSON(w, http.StatusOK, map[string]any{
			"seen_domains": seen.Len(),
			"batch_index":  idx,
			"batch_slot":   pipeline.BatchSlots[idx],
		})
	})

	r.Get("/leads", func(w http.ResponseWriter, req *http.Request) {
		if st == nil {
			writeJSON(w, http.StatusServiceUnavailable, map[string]string{"error": "lead store unavailable"})
			return
		}
		filter := store.LeadFilter{City: req.URL.Query().Get("city"), Limit: 100}
		if raw := req.URL.Query().Get("limit"); raw != "" {
			n, err := strconv.Atoi(raw)
			if err != nil || n <= 0 {
				writeJSON(w, http.StatusBadRequest, map[string]string{"error": "limit must be a positive integer"})
				return
			}
			filter.Limit = n
		}
		leads, err := st.ListLeads(req.Context(), filter)
		if err != nil {
			zap.L().Error("list leads failed", zap.Error(err))
			writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "list leads failed"})
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{"count": len(leads), "leads": leads})
	})

	return r
}

func writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(body)
}

func init() {
	serveCmd.Flags().IntVar(&servePort, "port", 0, "server port (default from config)")
	rootCmd.AddCommand(serveCmd)
}
