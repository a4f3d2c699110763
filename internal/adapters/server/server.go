// Package server mounts the meeting REST API, share links, and MCP tools on one listener.
package server

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net"
	"net/http"
	"strings"
	"time"

	"github.com/charmbracelet/log"

	"github.com/hylla/syncnotes/internal/adapters/server/common"
	"github.com/hylla/syncnotes/internal/adapters/server/httpapi"
	"github.com/hylla/syncnotes/internal/adapters/server/mcpapi"
	"github.com/hylla/syncnotes/internal/app"
)

const (
	defaultBindAddress = "127.0.0.1:8080"
	defaultAPIEndpoint = "/api/v1"
	defaultMCPEndpoint = "/mcp"
	shareEndpoint      = "/share"
	shutdownGrace      = 5 * time.Second
	readHeaderTimeout  = 10 * time.Second
)

// reservedPaths are mounted unconditionally and cannot host the API or MCP surface.
var reservedPaths = []string{shareEndpoint, "/healthz", "/readyz"}

// Config defines serve-mode endpoint configuration.
type Config struct {
	HTTPBind      string
	APIEndpoint   string
	MCPEndpoint   string
	ServerName    string
	ServerVersion string
}

// Dependencies carries the meeting surface and the request logger.
type Dependencies struct {
	Meetings common.MeetingService
	Logger   app.Logger
}

// NewHandler builds the root mux. Share links resolve at the top-level /share path so links built
// from share.base_url work without the API prefix.
func NewHandler(cfg Config, deps Dependencies) (http.Handler, Config, error) {
	cfg, err := normalizeConfig(cfg)
	if err != nil {
		return nil, Config{}, err
	}
	if deps.Meetings == nil {
		return nil, Config{}, errors.New("meetings dependency is required")
	}
	logger := deps.Logger
	if logger == nil {
		logger = log.Default()
	}

	mcpHandler, err := mcpapi.NewHandler(mcpapi.Config{
		ServerName:    cfg.ServerName,
		ServerVersion: cfg.ServerVersion,
		EndpointPath:  cfg.MCPEndpoint,
	}, deps.Meetings)
	if err != nil {
		return nil, Config{}, fmt.Errorf("configure mcp handler: %w", err)
	}
	meetingsAPI := httpapi.NewHandler(deps.Meetings)
	underAPI := http.StripPrefix(cfg.APIEndpoint, meetingsAPI)

	mux := http.NewServeMux()
	mux.HandleFunc("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		writeStatus(w, http.StatusOK, map[string]any{"status": "ok"})
	})
	mux.HandleFunc("/readyz", readiness(deps.Meetings))
	mux.Handle(shareEndpoint, meetingsAPI)
	mux.Handle(cfg.MCPEndpoint, mcpHandler)
	mux.Handle(cfg.APIEndpoint, underAPI)
	mux.Handle(cfg.APIEndpoint+"/", underAPI)
	return logRequests(logger, mux), cfg, nil
}

// readiness reports ready once the meeting store can be listed.
func readiness(meetings common.MeetingService) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		rows, err := meetings.ListMeetings(r.Context())
		if err != nil {
			writeStatus(w, http.StatusServiceUnavailable, map[string]any{"status": "unavailable", "error": err.Error()})
			return
		}
		writeStatus(w, http.StatusOK, map[string]any{"status": "ok", "meetings": len(rows)})
	}
}

// Run listens on cfg.HTTPBind and serves until ctx is cancelled.
// Bind failures are returned before any request is accepted.
func Run(ctx context.Context, cfg Config, deps Dependencies) error {
	if ctx == nil {
		ctx = context.Background()
	}
	handler, cfg, err := NewHandler(cfg, deps)
	if err != nil {
		return fmt.Errorf("build server handler: %w", err)
	}
	listener, err := net.Listen("tcp", cfg.HTTPBind)
	if err != nil {
		return fmt.Errorf("listen on %s: %w", cfg.HTTPBind, err)
	}
	srv := &http.Server{Handler: handler, ReadHeaderTimeout: readHeaderTimeout}

	served := make(chan error, 1)
	go func() { served <- srv.Serve(listener) }()

	select {
	case err := <-served:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return fmt.Errorf("serve %s: %w", cfg.HTTPBind, err)
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownGrace)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("shutdown server: %w", err)
	}
	if err := <-served; err != nil && !errors.Is(err, http.ErrServerClosed) {
		return fmt.Errorf("serve %s: %w", cfg.HTTPBind, err)
	}
	return nil
}

// normalizeConfig fills defaults and rejects endpoints that collide with each other or reserved paths.
func normalizeConfig(cfg Config) (Config, error) {
	if cfg.HTTPBind = strings.TrimSpace(cfg.HTTPBind); cfg.HTTPBind == "" {
		cfg.HTTPBind = defaultBindAddress
	}
	cfg.APIEndpoint = cleanEndpoint(cfg.APIEndpoint, defaultAPIEndpoint)
	cfg.MCPEndpoint = cleanEndpoint(cfg.MCPEndpoint, defaultMCPEndpoint)
	if cfg.APIEndpoint == cfg.MCPEndpoint {
		return Config{}, fmt.Errorf("api and mcp endpoints both resolve to %s", cfg.APIEndpoint)
	}
	for _, endpoint := range []string{cfg.APIEndpoint, cfg.MCPEndpoint} {
		for _, reserved := range reservedPaths {
			if endpoint == reserved {
				return Config{}, fmt.Errorf("endpoint %s is reserved", endpoint)
			}
		}
	}
	if cfg.ServerName = strings.TrimSpace(cfg.ServerName); cfg.ServerName == "" {
		cfg.ServerName = "syncnotes"
	}
	if cfg.ServerVersion = strings.TrimSpace(cfg.ServerVersion); cfg.ServerVersion == "" {
		cfg.ServerVersion = "dev"
	}
	return cfg, nil
}

// cleanEndpoint returns path as "/a/b", or fallback when path is blank or the root.
func cleanEndpoint(path, fallback string) string {
	path = strings.Trim(strings.TrimSpace(path), "/")
	if path == "" {
		return fallback
	}
	return "/" + path
}

type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (r *statusRecorder) WriteHeader(code int) {
	r.status = code
	r.ResponseWriter.WriteHeader(code)
}

// Flush keeps streaming MCP responses working through the recorder.
func (r *statusRecorder) Flush() {
	if f, ok := r.ResponseWriter.(http.Flusher); ok {
		f.Flush()
	}
}

// logRequests logs one line per request with status and latency.
func logRequests(logger app.Logger, next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		started := time.Now()
		rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
		next.ServeHTTP(rec, r)
		logger.Debug("http request",
			"method", r.Method,
			"path", r.URL.Path,
			"status", rec.status,
			"elapsed", time.Since(started),
		)
	})
}

func writeStatus(w http.ResponseWriter, code int, body map[string]any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(body)
}
