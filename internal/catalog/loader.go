package catalog

import (
	"context"
	"fmt"
	"sync"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

const defaultCacheTTL = 60 * time.Second

// SheetsReader fetches one tabular range from a spreadsheet. The first row is
// expected to be the header.
type SheetsReader interface {
	ReadRange(ctx context.Context, spreadsheetID, readRange string) ([][]string, error)
}

// Loader reads template and package configuration from a spreadsheet and
// caches the parsed snapshot for a fixed TTL.
type Loader struct {
	sheets         SheetsReader
	spreadsheetID  string
	templatesRange string
	packagesRange  string
	ttl            time.Duration
	logger         *zap.Logger

	clock func() time.Time

	mu       sync.RWMutex
	snapshot *Snapshot
}

// LoaderOption configures Loader behaviour.
type LoaderOption func(*Loader)

// WithCacheTTL overrides the snapshot cache TTL.
func WithCacheTTL(ttl time.Duration) LoaderOption {
	return func(l *Loader) {
		if ttl > 0 {
			l.ttl = ttl
		}
	}
}

// WithClock overrides the time source, primarily for tests.
func WithClock(clock func() time.Time) LoaderOption {
	return func(l *Loader) {
		l.clock = clock
	}
}

// NewLoader constructs a Loader reading the given ranges from one spreadsheet.
func NewLoader(sheets SheetsReader, spreadsheetID, templatesRange, packagesRange string, logger *zap.Logger, opts ...LoaderOption) *Loader {
	l := &Loader{
		sheets:         sheets,
		spreadsheetID:  spreadsheetID,
		templatesRange: templatesRange,
		packagesRange:  packagesRange,
		ttl:            defaultCacheTTL,
		logger:         logger,
		clock: func() time.Time {
			return time.Now().UTC()
		},
	}
	for _, opt := range opts {
		opt(l)
	}
	return l
}

// Load returns the current snapshot, fetching from the sheet when the cached
// one is older than the TTL or force is set. When a refresh fails and a
// previous snapshot exists, the stale snapshot is served and the failure only
// logged; the error is returned when nothing was ever loaded.
func (l *Loader) Load(ctx context.Context, force bool) (*Snapshot, error) {
	if !force {
		if snap := l.cached(); snap != nil {
			return snap, nil
		}
	}

	snap, err := l.fetch(ctx)
	if err != nil {
		l.mu.RLock()
		stale := l.snapshot
		l.mu.RUnlock()
		if stale != nil {
			l.logger.Warn("serving stale catalog snapshot after refresh failure",
				zap.Time("loaded_at", stale.loadedAt),
				zap.Error(err),
			)
			return stale, nil
		}
		return nil, err
	}

	l.mu.Lock()
	l.snapshot = snap
	l.mu.Unlock()

	l.logger.Info("catalog refreshed",
		zap.Int("templates", len(snap.templates)),
		zap.Int("packages", len(snap.packages)),
	)
	return snap, nil
}

func (l *Loader) cached() *Snapshot {
	l.mu.RLock()
	defer l.mu.RUnlock()

	if l.snapshot == nil {
		return nil
	}
	if l.clock().Sub(l.snapshot.loadedAt) >= l.ttl {
		return nil
	}
	return l.snapshot
}

// fetch reads both ranges in parallel and parses them into a snapshot.
func (l *Loader) fetch(ctx context.Context) (*Snapshot, error) {
	var templateRows, packageRows [][]string

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		rows, err := l.sheets.ReadRange(gctx, l.spreadsheetID, l.templatesRange)
		if err != nil {
			return fmt.Errorf("read templates range: %w", err)
		}
		templateRows = rows
		return nil
	})
	g.Go(func() error {
		rows, err := l.sheets.ReadRange(gctx, l.spreadsheetID, l.packagesRange)
		if err != nil {
			return fmt.Errorf("read packages range: %w", err)
		}
		packageRows = rows
		return nil
	})
	if err := g.Wait(); err != nil {
		return nil, err
	}

	return &Snapshot{
		templates: parseTemplates(templateRows, l.logger),
		packages:  parsePackages(packageRows, l.logger),
		loadedAt:  l.clock(),
	}, nil
}

// Resolve finds the template for a request: by template key when given,
// otherwise through the package's default template.
func (s *Snapshot) Resolve(templateKey, packageKey string) (Template, error) {
	switch {
	case templateKey != "":
		tpl, ok := s.Template(templateKey)
		if !ok {
			return Template{}, fmt.Errorf("%w: %q", ErrTemplateNotFound, templateKey)
		}
		return tpl, nil
	case packageKey != "":
		pkg, ok := s.Package(packageKey)
		if !ok {
			return Template{}, fmt.Errorf("%w: %q", ErrPackageNotFound, packageKey)
		}
		if pkg.DefaultTemplate == "" {
			return Template{}, fmt.Errorf("%w: %q", ErrNoDefaultTemplate, packageKey)
		}
		tpl, ok := s.Template(pkg.DefaultTemplate)
		if !ok {
			return Template{}, fmt.Errorf("%w: %q (default of package %q)", ErrTemplateNotFound, pkg.DefaultTemplate, packageKey)
		}
		return tpl, nil
	default:
		return Template{}, ErrNoReference
	}
}
