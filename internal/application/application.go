package application

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"

	"go.uber.org/zap"

	"docrender/internal/api"
	"docrender/internal/catalog"
	"docrender/internal/config"
	"docrender/internal/crm"
	"docrender/internal/gsuite"
	"docrender/internal/render"
)

// DriveService is the Drive surface the application wires into the pipeline
// and the folder endpoint. *gsuite.DriveClient satisfies it.
type DriveService interface {
	render.DocCopier
	render.PdfExporter
	render.PdfUploader
	EnsureFolder(ctx context.Context, name, parentID string) (gsuite.Folder, error)
}

// App encapsulates the application dependencies and HTTP server.
type App struct {
	loader   *catalog.Loader
	pipeline *render.Pipeline
	notifier *crm.Notifier
	handler  *api.Handler
	router   http.Handler
	logger   *zap.Logger
	server   *http.Server
}

// Option overrides application dependencies, primarily for tests.
type Option func(*deps)

type deps struct {
	sheets catalog.SheetsReader
	docs   render.TextReplacer
	drive  DriveService
}

// WithGoogleBackends swaps the Google API adapters for custom implementations.
func WithGoogleBackends(sheets catalog.SheetsReader, docs render.TextReplacer, drive DriveService) Option {
	return func(d *deps) {
		d.sheets = sheets
		d.docs = docs
		d.drive = drive
	}
}

// New initializes the application with all dependencies from the provided configuration.
func New(cfg config.Config, logger *zap.Logger, opts ...Option) (*App, error) {
	var d deps
	for _, opt := range opts {
		opt(&d)
	}

	if d.sheets == nil || d.docs == nil || d.drive == nil {
		clients, err := gsuite.NewClients(context.Background(), gsuite.Credentials{
			File: cfg.GoogleCredentialsFile,
			JSON: []byte(cfg.GoogleCredentialsJSON),
		})
		if err != nil {
			return nil, fmt.Errorf("failed to create google clients: %w", err)
		}
		d.sheets = clients.Sheets
		d.docs = clients.Docs
		d.drive = clients.Drive
	}

	loader := catalog.NewLoader(d.sheets, cfg.SpreadsheetID, cfg.TemplatesRange, cfg.PackagesRange, logger,
		catalog.WithCacheTTL(cfg.CatalogCacheTTL),
	)

	pipeline := render.NewPipeline(d.drive, d.docs, d.drive, d.drive, logger,
		render.WithDefaultFolder(cfg.DriveFolderID),
		render.WithCopyPoll(cfg.CopyPollAttempts, cfg.CopyPollBackoff),
	)

	notifier := crm.NewNotifier(cfg.ZendeskBaseURL, cfg.ZendeskToken, logger)

	handler := api.NewHandler(loader, pipeline, d.drive, notifier)
	router := api.NewRouter(handler, logger,
		api.WithLogging(cfg.EnableRequestLogging),
		api.WithRateLimit(cfg.RateLimitRPS, cfg.RateLimitBurst),
		api.WithAPIKey(cfg.APIKey),
	)

	server := NewServer(cfg, router)

	return &App{
		loader:   loader,
		pipeline: pipeline,
		notifier: notifier,
		handler:  handler,
		router:   router,
		logger:   logger,
		server:   server,
	}, nil
}

// NewServer creates and configures an HTTP server from the provided configuration.
func NewServer(cfg config.Config, handler http.Handler) *http.Server {
	addr := cfg.Port
	if !strings.Contains(addr, ":") {
		addr = ":" + addr
	}

	return &http.Server{
		Addr:              addr,
		Handler:           handler,
		ReadHeaderTimeout: cfg.ReadHeaderTimeout,
		WriteTimeout:      cfg.WriteTimeout,
		IdleTimeout:       cfg.IdleTimeout,
	}
}

// Start starts the HTTP server in a goroutine and logs the listening address.
func (a *App) Start() error {
	go func() {
		a.logger.Info("server listening", zap.String("addr", a.server.Addr))
		if err := a.server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			a.logger.Fatal("server error", zap.Error(err))
		}
	}()
	return nil
}

// Server returns the HTTP server instance for shutdown handling.
func (a *App) Server() *http.Server {
	return a.server
}

// Router returns the HTTP handler tree, primarily for tests.
func (a *App) Router() http.Handler {
	return a.router
}
