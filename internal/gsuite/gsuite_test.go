package gsuite

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"google.golang.org/api/docs/v1"
	"google.golang.org/api/drive/v3"
	"google.golang.org/api/option"
	"google.golang.org/api/sheets/v4"
)

func newSheetsClient(t *testing.T, handler http.Handler) *SheetsClient {
	t.Helper()

	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)

	svc, err := sheets.NewService(context.Background(),
		option.WithoutAuthentication(),
		option.WithEndpoint(srv.URL),
	)
	if err != nil {
		t.Fatalf("create sheets service: %v", err)
	}
	return NewSheetsClient(svc)
}

func newDriveClient(t *testing.T, handler http.Handler) *DriveClient {
	t.Helper()

	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)

	svc, err := drive.NewService(context.Background(),
		option.WithoutAuthentication(),
		option.WithEndpoint(srv.URL),
	)
	if err != nil {
		t.Fatalf("create drive service: %v", err)
	}
	return NewDriveClient(svc)
}

func newDocsClient(t *testing.T, handler http.Handler) *DocsClient {
	t.Helper()

	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)

	svc, err := docs.NewService(context.Background(),
		option.WithoutAuthentication(),
		option.WithEndpoint(srv.URL),
	)
	if err != nil {
		t.Fatalf("create docs service: %v", err)
	}
	return NewDocsClient(svc)
}

func TestSheetsReadRange(t *testing.T) {
	client := newSheetsClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if !strings.Contains(r.URL.Path, "/values/") {
			t.Errorf("unexpected path %s", r.URL.Path)
		}
		_ = json.NewEncoder(w).Encode(map[string]any{
			"range":          "Templates!A1:Z",
			"majorDimension": "ROWS",
			"values": [][]any{
				{"key", "active"},
				{"cert-basic", true},
				{"cert-count", 3},
			},
		})
	}))

	rows, err := client.ReadRange(context.Background(), "sheet-1", "Templates!A1:Z")
	if err != nil {
		t.Fatalf("ReadRange returned error: %v", err)
	}

	if len(rows) != 3 {
		t.Fatalf("expected 3 rows, got %d", len(rows))
	}
	if rows[0][0] != "key" || rows[1][0] != "cert-basic" {
		t.Fatalf("unexpected rows: %v", rows)
	}
	if rows[1][1] != "true" || rows[2][1] != "3" {
		t.Fatalf("non-string cells must be flattened to strings: %v", rows)
	}
}

func TestSheetsReadRangeUpstreamError(t *testing.T) {
	client := newSheetsClient(t, http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		http.Error(w, `{"error":{"code":503,"message":"backend error"}}`, http.StatusServiceUnavailable)
	}))

	if _, err := client.ReadRange(context.Background(), "sheet-1", "Templates!A1:Z"); err == nil {
		t.Fatalf("expected error from upstream failure")
	}
}

func TestDocsReplaceAllSendsSortedBatch(t *testing.T) {
	var batch docs.BatchUpdateDocumentRequest
	client := newDocsClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if !strings.Contains(r.URL.Path, "doc-1") {
			t.Errorf("unexpected path %s", r.URL.Path)
		}
		if err := json.NewDecoder(r.Body).Decode(&batch); err != nil {
			t.Errorf("decode batch request: %v", err)
		}
		_ = json.NewEncoder(w).Encode(map[string]any{"documentId": "doc-1"})
	}))

	err := client.ReplaceAll(context.Background(), "doc-1", map[string]string{
		"{{student.name}}": "Ada",
		"{{exam.code}}":    "GO-101",
	})
	if err != nil {
		t.Fatalf("ReplaceAll returned error: %v", err)
	}

	if len(batch.Requests) != 2 {
		t.Fatalf("expected 2 replace requests, got %d", len(batch.Requests))
	}
	first := batch.Requests[0].ReplaceAllText
	if first == nil || first.ContainsText.Text != "{{exam.code}}" || !first.ContainsText.MatchCase {
		t.Fatalf("expected case-sensitive sorted requests, got %+v", first)
	}
	if batch.Requests[1].ReplaceAllText.ReplaceText != "Ada" {
		t.Fatalf("unexpected replacement value: %+v", batch.Requests[1].ReplaceAllText)
	}
}

func TestDocsReplaceAllEmptyIsNoOp(t *testing.T) {
	client := newDocsClient(t, http.HandlerFunc(func(_ http.ResponseWriter, _ *http.Request) {
		t.Errorf("no request expected for an empty replacement set")
	}))

	if err := client.ReplaceAll(context.Background(), "doc-1", nil); err != nil {
		t.Fatalf("ReplaceAll returned error: %v", err)
	}
}

func TestDriveDocExists(t *testing.T) {
	tests := []struct {
		name       string
		status     int
		body       string
		wantExists bool
		wantErr    bool
	}{
		{name: "visible", status: http.StatusOK, body: `{"id":"doc-1"}`, wantExists: true},
		{name: "not yet visible", status: http.StatusNotFound, body: `{"error":{"code":404,"message":"File not found"}}`},
		{name: "other failure", status: http.StatusForbidden, body: `{"error":{"code":403,"message":"rate limit"}}`, wantErr: true},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			client := newDriveClient(t, http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
				w.Header().Set("Content-Type", "application/json")
				w.WriteHeader(tc.status)
				_, _ = w.Write([]byte(tc.body))
			}))

			exists, err := client.DocExists(context.Background(), "doc-1")
			if tc.wantErr {
				if err == nil {
					t.Fatalf("expected error")
				}
				return
			}
			if err != nil {
				t.Fatalf("DocExists returned error: %v", err)
			}
			if exists != tc.wantExists {
				t.Fatalf("DocExists = %v, want %v", exists, tc.wantExists)
			}
		})
	}
}

func TestDriveExportPDF(t *testing.T) {
	client := newDriveClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if got := r.URL.Query().Get("mimeType"); got != "application/pdf" {
			t.Errorf("unexpected export mime type %q", got)
		}
		_, _ = w.Write([]byte("%PDF-1.7 payload"))
	}))

	data, err := client.ExportPDF(context.Background(), "doc-1")
	if err != nil {
		t.Fatalf("ExportPDF returned error: %v", err)
	}
	if string(data) != "%PDF-1.7 payload" {
		t.Fatalf("unexpected export bytes: %q", data)
	}
}

func TestDriveEnsureFolderFindsExisting(t *testing.T) {
	client := newDriveClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodGet {
			t.Errorf("existing folder must not trigger a create, got %s", r.Method)
		}
		q := r.URL.Query().Get("q")
		if !strings.Contains(q, "name = 'Deals'") || !strings.Contains(q, "folder") {
			t.Errorf("unexpected query %q", q)
		}
		_ = json.NewEncoder(w).Encode(map[string]any{
			"files": []map[string]any{{"id": "folder-1", "name": "Deals"}},
		})
	}))

	folder, err := client.EnsureFolder(context.Background(), "Deals", "")
	if err != nil {
		t.Fatalf("EnsureFolder returned error: %v", err)
	}
	if folder.ID != "folder-1" || folder.Created {
		t.Fatalf("unexpected folder: %+v", folder)
	}
}

func TestDriveEnsureFolderCreatesWhenMissing(t *testing.T) {
	client := newDriveClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.Method {
		case http.MethodGet:
			_ = json.NewEncoder(w).Encode(map[string]any{"files": []map[string]any{}})
		case http.MethodPost:
			var meta struct {
				Name     string   `json:"name"`
				MimeType string   `json:"mimeType"`
				Parents  []string `json:"parents"`
			}
			if err := json.NewDecoder(r.Body).Decode(&meta); err != nil {
				t.Errorf("decode create body: %v", err)
			}
			if meta.MimeType != folderMimeType || len(meta.Parents) != 1 || meta.Parents[0] != "root-1" {
				t.Errorf("unexpected folder metadata: %+v", meta)
			}
			_ = json.NewEncoder(w).Encode(map[string]any{"id": "folder-2", "name": meta.Name})
		default:
			t.Errorf("unexpected method %s", r.Method)
		}
	}))

	folder, err := client.EnsureFolder(context.Background(), "Deals", "root-1")
	if err != nil {
		t.Fatalf("EnsureFolder returned error: %v", err)
	}
	if folder.ID != "folder-2" || !folder.Created {
		t.Fatalf("unexpected folder: %+v", folder)
	}
}

func TestEscapeQuery(t *testing.T) {
	if got := escapeQuery(`O'Brien\Deals`); got != `O\'Brien\\Deals` {
		t.Fatalf("unexpected escaping: %q", got)
	}
}
