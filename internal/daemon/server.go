package daemon

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"strings"
	"time"

	"mediarelay/internal/config"
	"mediarelay/internal/logging"
	"mediarelay/internal/telegram"
)

type webhookServer struct {
	bind   string
	logger *slog.Logger
	daemon *Daemon

	listener net.Listener
	server   *http.Server
}

func newWebhookServer(cfg *config.Config, d *Daemon, logger *slog.Logger) *webhookServer {
	srv := &webhookServer{
		bind:   strings.TrimSpace(cfg.Telegram.WebhookBind),
		logger: logging.NewComponentLogger(logger, "webhook-server"),
		daemon: d,
	}
	mux := http.NewServeMux()
	mux.Handle(cfg.Telegram.WebhookPath, telegram.WebhookHandler(cfg.Telegram.WebhookSecret, d.Dispatch, logger))
	mux.HandleFunc("/health", srv.handleHealth)

	srv.server = &http.Server{
		Handler:           mux,
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       15 * time.Second,
		WriteTimeout:      30 * time.Second,
		IdleTimeout:       60 * time.Second,
	}
	return srv
}

func (s *webhookServer) start() error {
	listener, err := net.Listen("tcp", s.bind)
	if err != nil {
		return fmt.Errorf("webhook listen: %w", err)
	}
	s.listener = listener

	go func() {
		if err := s.server.Serve(listener); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logging.ErrorWithContext(s.logger, "webhook server error", "webhook_server_error", logging.Error(err))
		}
	}()
	s.logger.Info("webhook server listening", logging.String("address", listener.Addr().String()))
	return nil
}

func (s *webhookServer) stop() {
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	_ = s.server.Shutdown(shutdownCtx)
	if s.listener != nil {
		_ = s.listener.Close()
	}
}

func (s *webhookServer) address() string {
	if s.listener == nil {
		return ""
	}
	return s.listener.Addr().String()
}

type healthPayload struct {
	Status    string `json:"status"`
	Mode      string `json:"mode"`
	InFlight  int64  `json:"in_flight"`
	Handled   int64  `json:"handled"`
	Artifacts int    `json:"artifacts"`
	Uptime    string `json:"uptime"`
}

func (s *webhookServer) handleHealth(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		s.writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}
	status := s.daemon.Status()
	payload := healthPayload{
		Status:    "ok",
		Mode:      status.Mode,
		InFlight:  status.InFlight,
		Handled:   status.Handled,
		Artifacts: status.Artifacts,
	}
	if !status.StartedAt.IsZero() {
		payload.Uptime = time.Since(status.StartedAt).Truncate(time.Second).String()
	}
	s.writeJSON(w, http.StatusOK, payload)
}

func (s *webhookServer) writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(payload); err != nil {
		s.logger.Debug("encode response", logging.Error(err))
	}
}

func (s *webhookServer) writeError(w http.ResponseWriter, status int, message string) {
	s.writeJSON(w, status, map[string]string{"error": message})
}
