package gsuite

import (
	"context"
	"fmt"
	"sort"

	"google.golang.org/api/docs/v1"
)

// DocsClient mutates documents via the Docs API. It satisfies
// render.TextReplacer.
type DocsClient struct {
	svc *docs.Service
}

// NewDocsClient wraps an existing Docs service, primarily for tests.
func NewDocsClient(svc *docs.Service) *DocsClient {
	return &DocsClient{svc: svc}
}

// ReplaceAll substitutes every token in one batchUpdate call. Matching is
// case-sensitive; tokens are sent in sorted order so requests are
// deterministic.
func (c *DocsClient) ReplaceAll(ctx context.Context, docID string, replacements map[string]string) error {
	if len(replacements) == 0 {
		return nil
	}

	tokens := make([]string, 0, len(replacements))
	for tok := range replacements {
		tokens = append(tokens, tok)
	}
	sort.Strings(tokens)

	requests := make([]*docs.Request, 0, len(tokens))
	for _, tok := range tokens {
		requests = append(requests, &docs.Request{
			ReplaceAllText: &docs.ReplaceAllTextRequest{
				ContainsText: &docs.SubstringMatchCriteria{
					Text:      tok,
					MatchCase: true,
				},
				ReplaceText: replacements[tok],
			},
		})
	}

	_, err := c.svc.Documents.BatchUpdate(docID, &docs.BatchUpdateDocumentRequest{
		Requests: requests,
	}).Context(ctx).Do()
	if err != nil {
		return fmt.Errorf("docs batchUpdate %s: %w", docID, err)
	}
	return nil
}
