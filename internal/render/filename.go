package render

import (
	"regexp"
	"strings"
	"time"

	"docrender/internal/payload"
)

var filenameToken = regexp.MustCompile(`\{\{\s*([A-Za-z0-9_.]+)\s*\}\}`)

// BuildFilename expands a filename pattern: {{date}} becomes the UTC date,
// any other {{dotted.path}} is looked up in the payload. Path separators are
// stripped and a single .pdf suffix is enforced. An empty pattern falls back
// to "<template key>-<date>".
func BuildFilename(pattern, templateKey string, doc map[string]any, now time.Time) string {
	if strings.TrimSpace(pattern) == "" {
		pattern = templateKey + "-{{date}}"
	}

	name := filenameToken.ReplaceAllStringFunc(pattern, func(match string) string {
		path := filenameToken.FindStringSubmatch(match)[1]
		if path == "date" {
			return now.UTC().Format("2006-01-02")
		}
		value, ok := payload.Lookup(doc, path)
		if !ok {
			return ""
		}
		return payload.Stringify(value)
	})

	name = strings.ReplaceAll(name, "/", "-")
	name = strings.ReplaceAll(name, `\`, "-")
	name = strings.Join(strings.Fields(name), " ")
	if name == "" {
		name = templateKey
	}

	if !strings.HasSuffix(strings.ToLower(name), ".pdf") {
		name += ".pdf"
	}
	return name
}
