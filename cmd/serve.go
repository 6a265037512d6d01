package main

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/sells-group/eastwest/internal/boundary"
	"github.com/sells-group/eastwest/internal/location"
)

var servePort int

// statusController is the part of the location controller the HTTP surface uses.
type statusController interface {
	Snapshot() location.Snapshot
	RequestPermission()
}

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Serve the live status over HTTP",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()

		ds, err := boundary.Load(cfg.Boundary)
		if err != nil {
			return err
		}
		src, err := buildSources(cfg)
		if err != nil {
			return err
		}
		defer src.Close()

		ctrl := location.New(controllerConfig(cfg), ds, src.Positions, src.Permissions)
		ctrl.Start(ctx)
		defer ctrl.Close()

		port := servePort
		if port == 0 {
			port = cfg.Server.Port
		}

		srv := &http.Server{
			Addr:              fmt.Sprintf(":%d", port),
			Handler:           buildRouter(ctrl, ds),
			ReadHeaderTimeout: 10 * time.Second,
		}

		// Graceful shutdown
		go func() {
			<-ctx.Done()
			zap.L().Info("shutting down server")
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			_ = srv.Shutdown(shutdownCtx)
		}()

		zap.L().Info("starting server", zap.Int("port", port), zap.String("city", ds.City))
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			return eris.Wrap(err, "server listen")
		}

		return nil
	},
}

// statusResponse is a snapshot plus its rendering.
type statusResponse struct {
	location.Snapshot
	City   string `json:"city"`
	Text   string `json:"text"`
	Color  string `json:"color"`
	Prompt bool   `json:"prompt"`
}

func newStatusResponse(s location.Snapshot, city string) statusResponse {
	return statusResponse{
		Snapshot: s,
		City:     city,
		Text:     location.DisplayText(s, city),
		Color:    location.Color(s.Status),
		Prompt:   location.ShowPrompt(s),
	}
}

func buildRouter(ctrl statusController, ds *boundary.Dataset) http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.Recoverer)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: []string{"*"},
		AllowedMethods: []string{http.MethodGet, http.MethodPost, http.MethodOptions},
		AllowedHeaders: []string{"Accept", "Content-Type"},
		MaxAge:         300,
	}))

	r.Get("/health", func(w http.ResponseWriter, _ *http.Request) {
		writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})

	r.Get("/status", func(w http.ResponseWriter, _ *http.Request) {
		writeJSON(w, http.StatusOK, newStatusResponse(ctrl.Snapshot(), ds.City))
	})

	r.Post("/locate", func(w http.ResponseWriter, _ *http.Request) {
		ctrl.RequestPermission()
		writeJSON(w, http.StatusAccepted, map[string]string{"status": "accepted"})
	})

	r.Get("/classify", func(w http.ResponseWriter, req *http.Request) {
		q := req.URL.Query()
		c, err := parseCoordinate(q.Get("lat"), q.Get("lon"))
		if err != nil {
			writeJSON(w, http.StatusBadRequest, map[string]string{"error": err.Error()})
			return
		}
		writeJSON(w, http.StatusOK, classifyPoint(ds, c))
	})

	r.Get("/districts", func(w http.ResponseWriter, _ *http.Request) {
		writeJSON(w, http.StatusOK, map[string]any{
			"city":      ds.City,
			"districts": ds.DistrictNames(),
			"count":     len(ds.Districts),
		})
	})

	return r
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		zap.L().Warn("encode response", zap.Error(err))
	}
}

func init() {
	serveCmd.Flags().IntVar(&servePort, "port", 0, "server port (default from config)")
	rootCmd.AddCommand(serveCmd)
}
