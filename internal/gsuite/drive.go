package gsuite

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"

	"google.golang.org/api/drive/v3"
	"google.golang.org/api/googleapi"

	"docrender/internal/render"
)

const (
	pdfMimeType    = "application/pdf"
	folderMimeType = "application/vnd.google-apps.folder"
)

// Folder identifies a Drive folder; Created reports whether EnsureFolder had
// to create it.
type Folder struct {
	ID      string `json:"id"`
	Name    string `json:"name"`
	Created bool   `json:"created"`
}

// DriveClient covers the Drive file operations the render pipeline needs. It
// satisfies render.DocCopier, render.PdfExporter and render.PdfUploader.
// Shared Drive support flags are set on every call.
type DriveClient struct {
	svc *drive.Service
}

// NewDriveClient wraps an existing Drive service, primarily for tests.
func NewDriveClient(svc *drive.Service) *DriveClient {
	return &DriveClient{svc: svc}
}

// CopyDoc copies a source document and returns the new file id.
func (c *DriveClient) CopyDoc(ctx context.Context, srcID, name string) (string, error) {
	file, err := c.svc.Files.Copy(srcID, &drive.File{Name: name}).
		SupportsAllDrives(true).
		Fields("id").
		Context(ctx).
		Do()
	if err != nil {
		return "", fmt.Errorf("drive copy %s: %w", srcID, err)
	}
	return file.Id, nil
}

// DocExists probes a file by id; a 404 means not visible yet, any other
// failure is an error.
func (c *DriveClient) DocExists(ctx context.Context, id string) (bool, error) {
	_, err := c.svc.Files.Get(id).
		SupportsAllDrives(true).
		Fields("id").
		Context(ctx).
		Do()
	if err == nil {
		return true, nil
	}
	var apiErr *googleapi.Error
	if errors.As(err, &apiErr) && apiErr.Code == http.StatusNotFound {
		return false, nil
	}
	return false, fmt.Errorf("drive get %s: %w", id, err)
}

// DeleteDoc removes a file by id.
func (c *DriveClient) DeleteDoc(ctx context.Context, id string) error {
	if err := c.svc.Files.Delete(id).SupportsAllDrives(true).Context(ctx).Do(); err != nil {
		return fmt.Errorf("drive delete %s: %w", id, err)
	}
	return nil
}

// ExportPDF downloads a document converted to PDF.
func (c *DriveClient) ExportPDF(ctx context.Context, docID string) ([]byte, error) {
	resp, err := c.svc.Files.Export(docID, pdfMimeType).Context(ctx).Download()
	if err != nil {
		return nil, fmt.Errorf("drive export %s: %w", docID, err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read export %s: %w", docID, err)
	}
	return data, nil
}

// UploadPDF creates a PDF file, optionally inside a folder, and returns its
// identity and view link.
func (c *DriveClient) UploadPDF(ctx context.Context, folderID, name string, data []byte) (render.File, error) {
	meta := &drive.File{
		Name:     name,
		MimeType: pdfMimeType,
	}
	if folderID != "" {
		meta.Parents = []string{folderID}
	}

	created, err := c.svc.Files.Create(meta).
		Media(bytes.NewReader(data), googleapi.ContentType(pdfMimeType)).
		SupportsAllDrives(true).
		Fields("id", "name", "webViewLink").
		Context(ctx).
		Do()
	if err != nil {
		return render.File{}, fmt.Errorf("drive create %s: %w", name, err)
	}

	return render.File{
		ID:      created.Id,
		Name:    created.Name,
		ViewURL: created.WebViewLink,
	}, nil
}

// EnsureFolder finds a folder by name (optionally under a parent) or creates
// it when absent.
func (c *DriveClient) EnsureFolder(ctx context.Context, name, parentID string) (Folder, error) {
	query := fmt.Sprintf("name = '%s' and mimeType = '%s' and trashed = false",
		escapeQuery(name), folderMimeType)
	if parentID != "" {
		query += fmt.Sprintf(" and '%s' in parents", escapeQuery(parentID))
	}

	list, err := c.svc.Files.List().
		Q(query).
		Fields("files(id, name)").
		SupportsAllDrives(true).
		IncludeItemsFromAllDrives(true).
		PageSize(1).
		Context(ctx).
		Do()
	if err != nil {
		return Folder{}, fmt.Errorf("drive list folders: %w", err)
	}
	if len(list.Files) > 0 {
		return Folder{ID: list.Files[0].Id, Name: list.Files[0].Name}, nil
	}

	meta := &drive.File{
		Name:     name,
		MimeType: folderMimeType,
	}
	if parentID != "" {
		meta.Parents = []string{parentID}
	}
	created, err := c.svc.Files.Create(meta).
		SupportsAllDrives(true).
		Fields("id", "name").
		Context(ctx).
		Do()
	if err != nil {
		return Folder{}, fmt.Errorf("drive create folder %s: %w", name, err)
	}
	return Folder{ID: created.Id, Name: created.Name, Created: true}, nil
}

func escapeQuery(value string) string {
	value = strings.ReplaceAll(value, `\`, `\\`)
	return strings.ReplaceAll(value, `'`, `\'`)
}
