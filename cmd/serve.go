package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/harbor-legal/docketwatch/internal/docket"
	"github.com/harbor-legal/docketwatch/internal/store"
)

var servePort int

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the webhook server for externally triggered sync runs",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()

		if err := cfg.Validate("serve"); err != nil {
			return err
		}

		st, err := openStore(ctx)
		if err != nil {
			return err
		}
		defer st.Close()

		if err := store.Migrate(ctx, st.Pool()); err != nil {
			return eris.Wrap(err, "serve: migrate")
		}

		engine := buildEngine(st, cfg)

		port := servePort
		if port == 0 {
			port = cfg.Server.Port
		}

		srv := &http.Server{
			Addr:    fmt.Sprintf(":%d", port),
			Handler: serveMux(ctx, st, engine),
		}

		g, gctx := errgroup.WithContext(ctx)
		g.Go(func() error {
			zap.L().Info("starting server", zap.Int("port", port))
			if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				return eris.Wrap(err, "server listen")
			}
			return nil
		})
		g.Go(func() error {
			<-gctx.Done()
			zap.L().Info("shutting down server")
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
			defer cancel()
			return srv.Shutdown(shutdownCtx)
		})

		return g.Wait()
	},
}

func init() {
	serveCmd.Flags().IntVar(&servePort, "port", 0, "server port (default from config)")
	rootCmd.AddCommand(serveCmd)
}

// serveMux builds the webhook server routes. Sync runs triggered over the
// webhook execute asynchronously; overlap is rejected by the engine's run
// lock, not by the handler.
func serveMux(ctx context.Context, st store.Store, engine *docket.Engine) *http.ServeMux {
	mux := http.NewServeMux()

	mux.HandleFunc("GET /health", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		json.NewEncoder(w).Encode(map[string]string{"status": "ok"})
	})

	mux.HandleFunc("GET /status", func(w http.ResponseWriter, r *http.Request) {
		status, err := st.GetSyncStatus(r.Context())
		if err != nil {
			zap.L().Error("status read failed", zap.Error(err))
			http.Error(w, `{"error":"status unavailable"}`, http.StatusInternalServerError)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(status)
	})

	mux.HandleFunc("POST /webhook/sync", func(w http.ResponseWriter, r *http.Request) {
		var req struct {
			MetadataOnly bool `json:"metadata_only"`
		}
		if r.ContentLength > 0 {
			if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
				http.Error(w, `{"error":"invalid request body"}`, http.StatusBadRequest)
				return
			}
		}

		// Run against the server's lifetime, not the request's.
		go func() {
			summary, err := engine.Run(ctx, docket.RunOptions{MetadataOnly: req.MetadataOnly})
			if errors.Is(err, docket.ErrRunInProgress) {
				zap.L().Warn("webhook sync rejected, run already in progress")
				return
			}
			if err != nil {
				zap.L().Error("webhook sync failed", zap.Error(err))
				return
			}
			var created, updated int
			if summary.Metadata != nil {
				created, updated = summary.Metadata.Created, summary.Metadata.Updated
			}
			zap.L().Info("webhook sync complete",
				zap.Int("created", created),
				zap.Int("updated", updated),
			)
		}()

		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusAccepted)
		json.NewEncoder(w).Encode(map[string]string{"status": "accepted"})
	})

	return mux
}
