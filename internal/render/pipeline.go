package render

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"docrender/internal/catalog"
	"docrender/internal/payload"
)

const (
	defaultPollAttempts = 5
	defaultPollBackoff  = 200 * time.Millisecond
)

// File identifies an uploaded PDF. It is transient: nothing is persisted
// beyond the response.
type File struct {
	ID      string `json:"id"`
	Name    string `json:"name"`
	ViewURL string `json:"viewUrl"`
}

// DocCopier copies, probes and deletes Drive documents.
type DocCopier interface {
	CopyDoc(ctx context.Context, srcID, name string) (string, error)
	DocExists(ctx context.Context, id string) (bool, error)
	DeleteDoc(ctx context.Context, id string) error
}

// TextReplacer substitutes tokens in a document, case-sensitively, in one
// batched call.
type TextReplacer interface {
	ReplaceAll(ctx context.Context, docID string, replacements map[string]string) error
}

// PdfExporter exports a document as PDF bytes.
type PdfExporter interface {
	ExportPDF(ctx context.Context, docID string) ([]byte, error)
}

// PdfUploader stores PDF bytes under a name in a Drive folder.
type PdfUploader interface {
	UploadPDF(ctx context.Context, folderID, name string, data []byte) (File, error)
}

// Options carries per-request render settings.
type Options struct {
	// FolderID overrides the pipeline's default destination folder.
	FolderID string
	// KeepDoc retains the intermediate copy even when the template does not
	// ask for it.
	KeepDoc bool
}

// Pipeline renders a template against a payload: copy, substitute, export,
// upload, clean up.
type Pipeline struct {
	copier   DocCopier
	replacer TextReplacer
	exporter PdfExporter
	uploader PdfUploader

	defaultFolder string
	pollAttempts  int
	pollBackoff   time.Duration
	logger        *zap.Logger

	clock func() time.Time
	sleep func(context.Context, time.Duration) error
}

// PipelineOption configures Pipeline behaviour.
type PipelineOption func(*Pipeline)

// WithDefaultFolder sets the destination folder used when a request does not
// name one.
func WithDefaultFolder(folderID string) PipelineOption {
	return func(p *Pipeline) {
		p.defaultFolder = folderID
	}
}

// WithCopyPoll overrides the copy-visibility poll parameters.
func WithCopyPoll(attempts int, initialBackoff time.Duration) PipelineOption {
	return func(p *Pipeline) {
		if attempts > 0 {
			p.pollAttempts = attempts
		}
		if initialBackoff > 0 {
			p.pollBackoff = initialBackoff
		}
	}
}

// WithClock overrides the time source, primarily for tests.
func WithClock(clock func() time.Time) PipelineOption {
	return func(p *Pipeline) {
		p.clock = clock
	}
}

// WithSleep overrides the backoff sleeper, primarily for tests.
func WithSleep(sleep func(context.Context, time.Duration) error) PipelineOption {
	return func(p *Pipeline) {
		p.sleep = sleep
	}
}

// NewPipeline constructs a Pipeline over the given document backends.
func NewPipeline(copier DocCopier, replacer TextReplacer, exporter PdfExporter, uploader PdfUploader, logger *zap.Logger, opts ...PipelineOption) *Pipeline {
	p := &Pipeline{
		copier:       copier,
		replacer:     replacer,
		exporter:     exporter,
		uploader:     uploader,
		pollAttempts: defaultPollAttempts,
		pollBackoff:  defaultPollBackoff,
		logger:       logger,
		clock: func() time.Time {
			return time.Now().UTC()
		},
		sleep: sleepContext,
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// Render runs the full pipeline for one request. The payload must already
// have passed placeholder validation. On failure after the copy step the
// intermediate document is deleted best-effort unless retention is on.
func (p *Pipeline) Render(ctx context.Context, tpl catalog.Template, doc map[string]any, opts Options) (File, error) {
	now := p.clock()
	filename := BuildFilename(tpl.FilenamePattern, tpl.Key, doc, now)

	copyID, err := p.copier.CopyDoc(ctx, tpl.DocID, intermediateName(tpl.Key, now))
	if err != nil {
		return File{}, fmt.Errorf("copy template doc: %w", err)
	}

	keep := tpl.KeepIntermediate || opts.KeepDoc
	file, err := p.renderCopy(ctx, tpl, doc, opts, copyID, filename)
	if err != nil {
		if !keep {
			p.cleanup(ctx, copyID)
		}
		return File{}, err
	}

	if !keep {
		p.cleanup(ctx, copyID)
	}
	return file, nil
}

func (p *Pipeline) renderCopy(ctx context.Context, tpl catalog.Template, doc map[string]any, opts Options, copyID, filename string) (File, error) {
	if err := p.awaitCopy(ctx, copyID); err != nil {
		return File{}, err
	}

	if err := p.replacer.ReplaceAll(ctx, copyID, buildReplacements(tpl, doc)); err != nil {
		return File{}, fmt.Errorf("replace placeholders: %w", err)
	}

	data, err := p.exporter.ExportPDF(ctx, copyID)
	if err != nil {
		return File{}, fmt.Errorf("export pdf: %w", err)
	}

	folder := opts.FolderID
	if folder == "" {
		folder = p.defaultFolder
	}
	file, err := p.uploader.UploadPDF(ctx, folder, filename, data)
	if err != nil {
		return File{}, fmt.Errorf("upload pdf: %w", err)
	}
	return file, nil
}

// awaitCopy polls until the copied document is visible, backing off
// exponentially between bounded attempts. Drive copies are eventually
// consistent.
func (p *Pipeline) awaitCopy(ctx context.Context, copyID string) error {
	backoff := p.pollBackoff
	for attempt := 1; attempt <= p.pollAttempts; attempt++ {
		exists, err := p.copier.DocExists(ctx, copyID)
		if err != nil {
			return fmt.Errorf("probe copied doc: %w", err)
		}
		if exists {
			return nil
		}
		if attempt == p.pollAttempts {
			break
		}
		if err := p.sleep(ctx, backoff); err != nil {
			return err
		}
		backoff *= 2
	}
	return fmt.Errorf("copied doc %s not visible after %d attempts", copyID, p.pollAttempts)
}

func (p *Pipeline) cleanup(ctx context.Context, copyID string) {
	if err := p.copier.DeleteDoc(ctx, copyID); err != nil {
		p.logger.Warn("failed to delete intermediate doc",
			zap.String("doc_id", copyID),
			zap.Error(err),
		)
	}
}

// buildReplacements maps {{path}} tokens to payload values: every required
// placeholder plus every top-level scalar as a convenience token.
func buildReplacements(tpl catalog.Template, doc map[string]any) map[string]string {
	replacements := make(map[string]string, len(tpl.RequiredPlaceholders)+len(doc))
	for _, path := range tpl.RequiredPlaceholders {
		if value, ok := payload.Lookup(doc, path); ok {
			replacements[token(path)] = payload.Stringify(value)
		}
	}
	for key, value := range doc {
		switch value.(type) {
		case map[string]any, []any:
			continue
		}
		tok := token(key)
		if _, exists := replacements[tok]; !exists {
			replacements[tok] = payload.Stringify(value)
		}
	}
	return replacements
}

func token(path string) string {
	return "{{" + path + "}}"
}

func intermediateName(templateKey string, now time.Time) string {
	return fmt.Sprintf("tmp-%s-%d", templateKey, now.UnixNano())
}

func sleepContext(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
