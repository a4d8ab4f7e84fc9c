package crm

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"go.uber.org/zap"
)

const defaultTimeout = 15 * time.Second

// Target names the Sell resource a note is attached to, e.g. deal 12345.
type Target struct {
	ResourceType string `json:"resourceType"`
	ResourceID   int64  `json:"resourceId"`
}

// Notifier posts notes to the Zendesk Sell v2 API. A Notifier without a base
// URL or token is disabled and PostNote becomes a no-op.
type Notifier struct {
	baseURL string
	token   string
	client  *http.Client
	logger  *zap.Logger
}

// NotifierOption configures Notifier behaviour.
type NotifierOption func(*Notifier)

// WithHTTPClient overrides the HTTP client, primarily for tests.
func WithHTTPClient(client *http.Client) NotifierOption {
	return func(n *Notifier) {
		n.client = client
	}
}

// NewNotifier constructs a Notifier for the given Sell instance.
func NewNotifier(baseURL, token string, logger *zap.Logger, opts ...NotifierOption) *Notifier {
	n := &Notifier{
		baseURL: strings.TrimRight(baseURL, "/"),
		token:   token,
		client:  &http.Client{Timeout: defaultTimeout},
		logger:  logger,
	}
	for _, opt := range opts {
		opt(n)
	}
	return n
}

// Enabled reports whether the notifier is configured to reach a CRM.
func (n *Notifier) Enabled() bool {
	return n.baseURL != "" && n.token != ""
}

type notePayload struct {
	Data noteData `json:"data"`
}

type noteData struct {
	ResourceType string `json:"resource_type"`
	ResourceID   int64  `json:"resource_id"`
	Content      string `json:"content"`
}

// PostNote attaches a note to the target resource. Disabled notifiers log at
// debug and return nil.
func (n *Notifier) PostNote(ctx context.Context, target Target, content string) error {
	if !n.Enabled() {
		n.logger.Debug("crm notifier disabled, skipping note")
		return nil
	}

	body, err := json.Marshal(notePayload{Data: noteData{
		ResourceType: target.ResourceType,
		ResourceID:   target.ResourceID,
		Content:      content,
	}})
	if err != nil {
		return fmt.Errorf("encode note: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, n.baseURL+"/v2/notes", bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("build note request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+n.token)
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")

	resp, err := n.client.Do(req)
	if err != nil {
		return fmt.Errorf("post note: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		snippet, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return fmt.Errorf("post note: status %d: %s", resp.StatusCode, strings.TrimSpace(string(snippet)))
	}

	n.logger.Info("crm note posted",
		zap.String("resource_type", target.ResourceType),
		zap.Int64("resource_id", target.ResourceID),
	)
	return nil
}

// FormatNote renders the note content attached after a successful render.
func FormatNote(templateName, fileName, viewURL, actor string) string {
	var b strings.Builder
	b.WriteString("Document generated: ")
	b.WriteString(fileName)
	if templateName != "" {
		b.WriteString("\nTemplate: ")
		b.WriteString(templateName)
	}
	if viewURL != "" {
		b.WriteString("\nLink: ")
		b.WriteString(viewURL)
	}
	if actor != "" {
		b.WriteString("\nRequested by: ")
		b.WriteString(actor)
	}
	return b.String()
}
