package gsuite

import (
	"context"
	"fmt"

	"google.golang.org/api/sheets/v4"
)

// SheetsClient reads tabular ranges via the Sheets values API. It satisfies
// catalog.SheetsReader.
type SheetsClient struct {
	svc *sheets.Service
}

// NewSheetsClient wraps an existing Sheets service, primarily for tests.
func NewSheetsClient(svc *sheets.Service) *SheetsClient {
	return &SheetsClient{svc: svc}
}

// ReadRange fetches one range and flattens every cell to its formatted string
// value. Short rows keep their natural length; callers index defensively.
func (c *SheetsClient) ReadRange(ctx context.Context, spreadsheetID, readRange string) ([][]string, error) {
	resp, err := c.svc.Spreadsheets.Values.Get(spreadsheetID, readRange).Context(ctx).Do()
	if err != nil {
		return nil, fmt.Errorf("sheets values.get %s: %w", readRange, err)
	}

	rows := make([][]string, 0, len(resp.Values))
	for _, raw := range resp.Values {
		row := make([]string, 0, len(raw))
		for _, cell := range raw {
			if cell == nil {
				row = append(row, "")
				continue
			}
			row = append(row, fmt.Sprint(cell))
		}
		rows = append(rows, row)
	}
	return rows, nil
}
