package catalog

import (
	"encoding/json"
	"sort"
	"strings"

	"go.uber.org/zap"
)

// headerIndex maps normalised column names to their positions in the header
// row. Normalisation lowercases and strips spaces and underscores so the
// sheet can use "Doc ID", "doc_id" or "docid" interchangeably.
type headerIndex map[string]int

func indexHeader(row []string) headerIndex {
	idx := make(headerIndex, len(row))
	for i, cell := range row {
		name := normalizeHeader(cell)
		if name == "" {
			continue
		}
		if _, exists := idx[name]; !exists {
			idx[name] = i
		}
	}
	return idx
}

func normalizeHeader(cell string) string {
	cell = strings.ToLower(strings.TrimSpace(cell))
	cell = strings.ReplaceAll(cell, " ", "")
	return strings.ReplaceAll(cell, "_", "")
}

func (h headerIndex) cell(row []string, names ...string) string {
	for _, name := range names {
		i, ok := h[name]
		if !ok || i >= len(row) {
			continue
		}
		if value := strings.TrimSpace(row[i]); value != "" {
			return value
		}
	}
	return ""
}

// parseTemplates converts a header+rows range into active templates keyed by
// template key. Rows without a key and inactive rows are dropped.
func parseTemplates(rows [][]string, logger *zap.Logger) map[string]Template {
	templates := make(map[string]Template)
	if len(rows) < 2 {
		return templates
	}

	header := indexHeader(rows[0])
	for _, row := range rows[1:] {
		key := header.cell(row, "key", "templatekey")
		if key == "" {
			continue
		}

		tpl := Template{
			Key:                  key,
			Name:                 header.cell(row, "name", "displayname"),
			Engine:               header.cell(row, "engine"),
			DocID:                header.cell(row, "docid", "documentid", "sourcedocid"),
			FilenamePattern:      header.cell(row, "filenamepattern", "filename"),
			RequiredPlaceholders: parseStringList(header.cell(row, "requiredplaceholders", "placeholders"), key, logger),
			DefaultPackage:       header.cell(row, "defaultpackage"),
			KeepIntermediate:     parseBool(header.cell(row, "keepintermediate", "keepdoc")),
			Version:              header.cell(row, "version"),
			Active:               parseBool(header.cell(row, "active")),
			Notes:                header.cell(row, "notes"),
		}
		if !tpl.Active {
			continue
		}
		templates[key] = tpl
	}
	return templates
}

// parsePackages converts a header+rows range into active packages keyed by
// package key.
func parsePackages(rows [][]string, logger *zap.Logger) map[string]ExamPackage {
	packages := make(map[string]ExamPackage)
	if len(rows) < 2 {
		return packages
	}

	header := indexHeader(rows[0])
	for _, row := range rows[1:] {
		key := header.cell(row, "key", "packagekey")
		if key == "" {
			continue
		}

		pkg := ExamPackage{
			Key:             key,
			Name:            header.cell(row, "name", "displayname"),
			Exams:           parseExams(header.cell(row, "exams"), key, logger),
			DefaultTemplate: header.cell(row, "defaulttemplate", "defaulttemplatekey"),
			Version:         header.cell(row, "version"),
			Active:          parseBool(header.cell(row, "active")),
		}
		if !pkg.Active {
			continue
		}
		packages[key] = pkg
	}
	return packages
}

// parseStringList parses a JSON array cell. Malformed cells yield an empty
// list rather than failing the whole load; the row stays usable without its
// placeholder requirements.
func parseStringList(cell, rowKey string, logger *zap.Logger) []string {
	if cell == "" {
		return nil
	}
	var values []string
	if err := json.Unmarshal([]byte(cell), &values); err != nil {
		logger.Warn("ignoring malformed JSON list cell",
			zap.String("row", rowKey),
			zap.Error(err),
		)
		return nil
	}
	out := values[:0]
	for _, v := range values {
		if v = strings.TrimSpace(v); v != "" {
			out = append(out, v)
		}
	}
	return out
}

// parseExams parses the exams cell, either an array of {code,name} objects or
// an array of plain code strings.
func parseExams(cell, rowKey string, logger *zap.Logger) []Exam {
	if cell == "" {
		return nil
	}
	var exams []Exam
	if err := json.Unmarshal([]byte(cell), &exams); err == nil {
		return exams
	}
	var codes []string
	if err := json.Unmarshal([]byte(cell), &codes); err == nil {
		exams = make([]Exam, 0, len(codes))
		for _, code := range codes {
			exams = append(exams, Exam{Code: code})
		}
		return exams
	}
	logger.Warn("ignoring malformed exams cell", zap.String("row", rowKey))
	return nil
}

func parseBool(cell string) bool {
	switch strings.ToLower(strings.TrimSpace(cell)) {
	case "true", "yes", "y", "1":
		return true
	}
	return false
}

func sortedKeys[V any](m map[string]V) []string {
	keys := make([]string, 0, len(m))
	for key := range m {
		keys = append(keys, key)
	}
	sort.Strings(keys)
	return keys
}
