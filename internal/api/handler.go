package api

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strings"
	"time"

	"docrender/internal/catalog"
	"docrender/internal/crm"
	"docrender/internal/gsuite"
	"docrender/internal/payload"
	"docrender/internal/render"
)

type contextKey string

const requestIDContextKey contextKey = "requestID"

// Catalog serves configuration snapshots.
type Catalog interface {
	Load(ctx context.Context, force bool) (*catalog.Snapshot, error)
}

// Renderer runs the document render pipeline.
type Renderer interface {
	Render(ctx context.Context, tpl catalog.Template, doc map[string]any, opts render.Options) (render.File, error)
}

// FolderEnsurer finds or creates Drive folders.
type FolderEnsurer interface {
	EnsureFolder(ctx context.Context, name, parentID string) (gsuite.Folder, error)
}

// NoteSender posts notes to the CRM.
type NoteSender interface {
	Enabled() bool
	PostNote(ctx context.Context, target crm.Target, content string) error
}

// Handler wires catalog, render pipeline, Drive and CRM dependencies into
// HTTP handlers.
type Handler struct {
	catalog  Catalog
	renderer Renderer
	folders  FolderEnsurer
	notifier NoteSender

	clock func() time.Time
}

// HandlerOption configures Handler behaviour.
type HandlerOption func(*Handler)

// WithClock overrides the time source, primarily for tests.
func WithClock(clock func() time.Time) HandlerOption {
	return func(h *Handler) {
		h.clock = clock
	}
}

// NewHandler constructs a Handler with the provided dependencies.
func NewHandler(cat Catalog, renderer Renderer, folders FolderEnsurer, notifier NoteSender, opts ...HandlerOption) *Handler {
	h := &Handler{
		catalog:  cat,
		renderer: renderer,
		folders:  folders,
		notifier: notifier,
		clock: func() time.Time {
			return time.Now().UTC()
		},
	}
	for _, opt := range opts {
		opt(h)
	}
	return h
}

func (h *Handler) handleHealth(w http.ResponseWriter, r *http.Request) {
	_ = r
	resp := healthResponse{
		Status:    "ok",
		Timestamp: h.clock(),
	}
	writeJSON(w, http.StatusOK, resp)
}

func (h *Handler) handleGetConfig(w http.ResponseWriter, r *http.Request) {
	force := isTruthy(r.URL.Query().Get("refresh"))

	snap, err := h.catalog.Load(r.Context(), force)
	if err != nil {
		writeUpstreamError(w, err)
		return
	}

	resp := configResponse{
		Templates: make([]templateSummary, 0),
		Packages:  make([]packageSummary, 0),
		LoadedAt:  snap.LoadedAt(),
	}
	for _, tpl := range snap.Templates() {
		resp.Templates = append(resp.Templates, templateSummary{
			Key:                  tpl.Key,
			Name:                 tpl.Name,
			Engine:               tpl.Engine,
			RequiredPlaceholders: tpl.RequiredPlaceholders,
			DefaultPackage:       tpl.DefaultPackage,
			Version:              tpl.Version,
		})
	}
	for _, pkg := range snap.Packages() {
		resp.Packages = append(resp.Packages, packageSummary{
			Key:             pkg.Key,
			Name:            pkg.Name,
			Exams:           pkg.Exams,
			DefaultTemplate: pkg.DefaultTemplate,
			Version:         pkg.Version,
		})
	}
	writeJSON(w, http.StatusOK, resp)
}

func (h *Handler) handleRender(w http.ResponseWriter, r *http.Request) {
	var req renderRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request", "unable to parse JSON payload")
		return
	}

	snap, err := h.catalog.Load(r.Context(), false)
	if err != nil {
		writeUpstreamError(w, err)
		return
	}

	tpl, err := snap.Resolve(req.Template, req.Package)
	if err != nil {
		switch {
		case errors.Is(err, catalog.ErrNoReference),
			errors.Is(err, catalog.ErrTemplateNotFound),
			errors.Is(err, catalog.ErrPackageNotFound),
			errors.Is(err, catalog.ErrNoDefaultTemplate):
			writeError(w, http.StatusBadRequest, "Template not resolved", err.Error())
		default:
			writeInternalError(w, err)
		}
		return
	}

	if missing := payload.Missing(tpl.RequiredPlaceholders, req.Payload); len(missing) > 0 {
		writeError(w, http.StatusBadRequest, "Missing placeholders",
			"required placeholders missing or empty: "+strings.Join(missing, ", "))
		return
	}

	file, err := h.renderer.Render(r.Context(), tpl, req.Payload, render.Options{
		FolderID: req.FolderID,
		KeepDoc:  req.KeepDoc,
	})
	if err != nil {
		writeUpstreamError(w, err)
		return
	}

	crmNoted := false
	if req.CRM != nil && h.notifier != nil && h.notifier.Enabled() {
		note := crm.FormatNote(tpl.Name, file.Name, file.ViewURL, req.Actor)
		target := crm.Target{ResourceType: req.CRM.ResourceType, ResourceID: req.CRM.ResourceID}
		if err := h.notifier.PostNote(r.Context(), target, note); err != nil {
			writeUpstreamError(w, err)
			return
		}
		crmNoted = true
	}

	writeJSON(w, http.StatusOK, renderResponse{
		File:     file,
		Template: tpl.Key,
		CRMNoted: crmNoted,
	})
}

func (h *Handler) handleEnsureFolder(w http.ResponseWriter, r *http.Request) {
	var req ensureFolderRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request", "unable to parse JSON payload")
		return
	}
	if strings.TrimSpace(req.Name) == "" {
		writeError(w, http.StatusBadRequest, "Invalid request", "name must not be empty")
		return
	}

	folder, err := h.folders.EnsureFolder(r.Context(), req.Name, req.ParentID)
	if err != nil {
		writeUpstreamError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, folder)
}

func isTruthy(value string) bool {
	switch strings.ToLower(strings.TrimSpace(value)) {
	case "1", "true", "yes":
		return true
	}
	return false
}

func requestIDFromContext(ctx context.Context) string {
	if v := ctx.Value(requestIDContextKey); v != nil {
		if id, ok := v.(string); ok {
			return id
		}
	}
	return ""
}

type renderRequest struct {
	Template string         `json:"template"`
	Package  string         `json:"package"`
	Payload  map[string]any `json:"payload"`
	FolderID string         `json:"folderId"`
	KeepDoc  bool           `json:"keepDoc"`
	CRM      *crmTargetDTO  `json:"crm"`
	Actor    string         `json:"actor"`
}

type crmTargetDTO struct {
	ResourceType string `json:"resourceType"`
	ResourceID   int64  `json:"resourceId"`
}

type renderResponse struct {
	File     render.File `json:"file"`
	Template string      `json:"template"`
	CRMNoted bool        `json:"crmNoted"`
}

type ensureFolderRequest struct {
	Name     string `json:"name"`
	ParentID string `json:"parentId"`
}

type templateSummary struct {
	Key                  string   `json:"key"`
	Name                 string   `json:"name"`
	Engine               string   `json:"engine,omitempty"`
	RequiredPlaceholders []string `json:"requiredPlaceholders"`
	DefaultPackage       string   `json:"defaultPackage,omitempty"`
	Version              string   `json:"version,omitempty"`
}

type packageSummary struct {
	Key             string         `json:"key"`
	Name            string         `json:"name"`
	Exams           []catalog.Exam `json:"exams"`
	DefaultTemplate string         `json:"defaultTemplate,omitempty"`
	Version         string         `json:"version,omitempty"`
}

type configResponse struct {
	Templates []templateSummary `json:"templates"`
	Packages  []packageSummary  `json:"packages"`
	LoadedAt  time.Time         `json:"loadedAt"`
}

type healthResponse struct {
	Status    string    `json:"status"`
	Timestamp time.Time `json:"timestamp"`
}

type errorResponse struct {
	Error   string `json:"error"`
	Details string `json:"details,omitempty"`
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	if status != 0 {
		w.WriteHeader(status)
	}
	_ = json.NewEncoder(w).Encode(payload)
}

func writeError(w http.ResponseWriter, status int, message, details string) {
	writeJSON(w, status, errorResponse{
		Error:   message,
		Details: details,
	})
}

// writeUpstreamError surfaces a Google or CRM failure as 500 with the
// upstream message passed through.
func writeUpstreamError(w http.ResponseWriter, err error) {
	writeError(w, http.StatusInternalServerError, "Upstream error", err.Error())
}

func writeInternalError(w http.ResponseWriter, err error) {
	writeError(w, http.StatusInternalServerError, "Internal error", err.Error())
}
