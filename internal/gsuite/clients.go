package gsuite

import (
	"context"
	"fmt"

	"google.golang.org/api/docs/v1"
	"google.golang.org/api/drive/v3"
	"google.golang.org/api/option"
	"google.golang.org/api/sheets/v4"
)

// Credentials selects how the Google API clients authenticate. JSON takes
// precedence over File; with neither set, Application Default Credentials
// apply.
type Credentials struct {
	File string
	JSON []byte
}

// Clients bundles the three Google API adapters the service needs.
type Clients struct {
	Sheets *SheetsClient
	Docs   *DocsClient
	Drive  *DriveClient
}

// NewClients constructs Sheets, Docs and Drive services sharing one set of
// credentials and scopes.
func NewClients(ctx context.Context, creds Credentials) (*Clients, error) {
	opts := []option.ClientOption{
		option.WithScopes(
			sheets.SpreadsheetsReadonlyScope,
			docs.DocumentsScope,
			drive.DriveScope,
		),
	}
	switch {
	case len(creds.JSON) > 0:
		opts = append(opts, option.WithCredentialsJSON(creds.JSON))
	case creds.File != "":
		opts = append(opts, option.WithCredentialsFile(creds.File))
	}

	sheetsSvc, err := sheets.NewService(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("create sheets service: %w", err)
	}
	docsSvc, err := docs.NewService(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("create docs service: %w", err)
	}
	driveSvc, err := drive.NewService(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("create drive service: %w", err)
	}

	return &Clients{
		Sheets: &SheetsClient{svc: sheetsSvc},
		Docs:   &DocsClient{svc: docsSvc},
		Drive:  &DriveClient{svc: driveSvc},
	}, nil
}
