package main

import (
	"context"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"github.com/hylla/syncnotes/internal/adapters/inference/gemini"
	"github.com/hylla/syncnotes/internal/adapters/notify"
	servercommon "github.com/hylla/syncnotes/internal/adapters/server/common"
	"github.com/hylla/syncnotes/internal/adapters/storage/filekv"
	"github.com/hylla/syncnotes/internal/adapters/storage/sqlite"
	"github.com/hylla/syncnotes/internal/app"
	"github.com/hylla/syncnotes/internal/config"
	"github.com/hylla/syncnotes/internal/platform"
)

// session is the wired service plus everything that must be released after one command.
type session struct {
	cfg     config.Config
	logger  *runtimeLogger
	service *app.Service
	closers []func() error
}

func (s *session) Close() {
	for i := len(s.closers) - 1; i >= 0; i-- {
		if err := s.closers[i](); err != nil {
			s.logger.Warn("close failed", "err", err)
		}
	}
}

// openSession resolves config and wires storage, inference, and delivery into one service.
func openSession(opts *rootOptions, stderr io.Writer) (*session, error) {
	getenv := opts.getenv
	paths, err := platform.DefaultPathsWithOptions(platform.Options{AppName: opts.appName, DevMode: opts.devMode})
	if err != nil {
		return nil, err
	}

	configPath := strings.TrimSpace(opts.configPath)
	if configPath == "" {
		configPath = strings.TrimSpace(getenv("SYNCNOTES_CONFIG"))
	}
	if configPath == "" {
		configPath = paths.ConfigPath
	}
	dbPath := strings.TrimSpace(opts.dbPath)
	if dbPath == "" {
		dbPath = strings.TrimSpace(getenv("SYNCNOTES_DB_PATH"))
	}
	dbOverridden := dbPath != ""
	if !dbOverridden {
		dbPath = paths.DBPath
	}

	cfg, err := config.Load(configPath, config.Default(dbPath))
	if err != nil {
		return nil, fmt.Errorf("load config %q: %w", configPath, err)
	}
	if dbOverridden {
		cfg.Database.Path = dbPath
	} else if cfg.Database.Backend == config.BackendFile && cfg.Database.Path == paths.DBPath {
		cfg.Database.Path = paths.StoreDir
	}
	cfg.ApplyEnv(getenv)

	logger, err := newRuntimeLogger(stderr, opts.appName, opts.devMode, cfg.Logging, time.Now)
	if err != nil {
		return nil, fmt.Errorf("configure runtime logger: %w", err)
	}
	sess := &session{cfg: cfg, logger: logger, closers: []func() error{logger.Close}}
	logger.Debug("runtime paths resolved", "config_path", configPath, "data_dir", paths.DataDir, "db_path", cfg.Database.Path)
	if devPath := logger.DevLogPath(); devPath != "" {
		logger.Info("dev file logging enabled", "path", devPath)
	}

	var store app.KeyValueStore
	switch cfg.Database.Backend {
	case config.BackendFile:
		logger.Debug("opening file store", "dir", cfg.Database.Path)
		fileStore, err := filekv.Open(cfg.Database.Path)
		if err != nil {
			sess.Close()
			return nil, fmt.Errorf("open file store: %w", err)
		}
		store = fileStore
	default:
		logger.Debug("opening sqlite repository", "db_path", cfg.Database.Path)
		repo, err := sqlite.Open(cfg.Database.Path)
		if err != nil {
			logger.Error("sqlite open failed", "db_path", cfg.Database.Path, "err", err)
			sess.Close()
			return nil, fmt.Errorf("open sqlite repository: %w", err)
		}
		sess.closers = append(sess.closers, repo.Close)
		store = repo
	}

	var geminiOpts []gemini.Option
	if baseURL := strings.TrimSpace(cfg.Inference.BaseURL); baseURL != "" {
		geminiOpts = append(geminiOpts, gemini.WithBaseURL(baseURL))
	}
	inference := gemini.NewClient(cfg.Inference.APIKey, geminiOpts...)

	var deliverer app.ReportDeliverer
	switch cfg.Notify.Mode {
	case config.NotifySMTP:
		deliverer = notify.NewSMTPDeliverer(notify.SMTPConfig{
			Host:     cfg.Notify.SMTP.Host,
			Port:     cfg.Notify.SMTP.Port,
			Username: cfg.Notify.SMTP.Username,
			Password: cfg.Notify.SMTP.Password,
			From:     cfg.Notify.SMTP.From,
		}, logger)
	case config.NotifyHTTP:
		deliverer = notify.NewHTTPDeliverer(cfg.Notify.HTTPEndpoint, nil)
	}

	sess.service = app.NewService(store, inference, deliverer, uuid.NewString, time.Now, app.ServiceConfig{
		Model:               cfg.Inference.Model,
		EmailDomain:         cfg.Share.EmailDomain,
		ShareBaseURL:        cfg.Share.BaseURL,
		TranscriptionPolicy: requestPolicy(app.TranscriptionPolicy, cfg.Inference.Transcription),
		MindMapPolicy:       requestPolicy(app.MindMapPolicy, cfg.Inference.MindMap),
		ChatPolicy:          requestPolicy(app.ChatPolicy, cfg.Inference.Chat),
		Logger:              logger,
	})
	logger.Debug("application service initialized", "backend", cfg.Database.Backend, "notify", cfg.Notify.Mode, "model", cfg.Inference.Model)
	return sess, nil
}

// requestPolicy overlays configured bounds on a default policy. Config is validated on load.
func requestPolicy(base app.RequestPolicy, cfg config.PolicyConfig) app.RequestPolicy {
	timeout, backoff, err := cfg.Durations()
	if err != nil {
		return base
	}
	if timeout > 0 {
		base.Timeout = timeout
	}
	if backoff > 0 {
		base.BaseBackoff = backoff
	}
	if cfg.MaxRetries >= 0 {
		base.MaxRetries = cfg.MaxRetries
	}
	return base
}

// viewerContext attaches the --role flag to ctx.
func viewerContext(ctx context.Context, opts *rootOptions) (context.Context, error) {
	if ctx == nil {
		ctx = context.Background()
	}
	ctx, err := servercommon.WithRequestRole(ctx, opts.role)
	if err != nil {
		return nil, fmt.Errorf("--role %q: %w", opts.role, err)
	}
	return ctx, nil
}

// withSession opens the runtime for one command and always releases it.
func withSession(cmd *cobra.Command, opts *rootOptions, fn func(context.Context, *session) error) error {
	ctx, err := viewerContext(cmd.Context(), opts)
	if err != nil {
		return err
	}
	sess, err := openSession(opts, cmd.ErrOrStderr())
	if err != nil {
		return err
	}
	defer sess.Close()
	return fn(ctx, sess)
}
