package catalog

import "time"

// Template describes one Google Doc render template as configured in the
// sheet. Instances are immutable once loaded; a cache refresh replaces the
// whole snapshot.
type Template struct {
	Key                  string   `json:"key"`
	Name                 string   `json:"name"`
	Engine               string   `json:"engine"`
	DocID                string   `json:"docId"`
	FilenamePattern      string   `json:"filenamePattern"`
	RequiredPlaceholders []string `json:"requiredPlaceholders"`
	DefaultPackage       string   `json:"defaultPackage"`
	KeepIntermediate     bool     `json:"keepIntermediate"`
	Version              string   `json:"version"`
	Active               bool     `json:"active"`
	Notes                string   `json:"notes"`
}

// Exam is one code/name descriptor inside a package.
type Exam struct {
	Code string `json:"code"`
	Name string `json:"name"`
}

// ExamPackage bundles exams and points at the template used to render them
// when a request references the package instead of a template directly.
type ExamPackage struct {
	Key             string `json:"key"`
	Name            string `json:"name"`
	Exams           []Exam `json:"exams"`
	DefaultTemplate string `json:"defaultTemplate"`
	Version         string `json:"version"`
	Active          bool   `json:"active"`
}

// Snapshot is one immutable view of the sheet configuration. Only active
// rows are included.
type Snapshot struct {
	templates map[string]Template
	packages  map[string]ExamPackage
	loadedAt  time.Time
}

// NewSnapshot builds a snapshot from already-parsed records. The loader uses
// parsed sheet rows; callers wiring fixtures (tests, seed tooling) use this.
func NewSnapshot(templates []Template, packages []ExamPackage, loadedAt time.Time) *Snapshot {
	snap := &Snapshot{
		templates: make(map[string]Template, len(templates)),
		packages:  make(map[string]ExamPackage, len(packages)),
		loadedAt:  loadedAt,
	}
	for _, tpl := range templates {
		snap.templates[tpl.Key] = tpl
	}
	for _, pkg := range packages {
		snap.packages[pkg.Key] = pkg
	}
	return snap
}

// LoadedAt reports when the snapshot was fetched from the sheet.
func (s *Snapshot) LoadedAt() time.Time {
	return s.loadedAt
}

// Template returns the active template for key.
func (s *Snapshot) Template(key string) (Template, bool) {
	tpl, ok := s.templates[key]
	return tpl, ok
}

// Package returns the active package for key.
func (s *Snapshot) Package(key string) (ExamPackage, bool) {
	pkg, ok := s.packages[key]
	return pkg, ok
}

// Templates returns the active templates sorted by key.
func (s *Snapshot) Templates() []Template {
	out := make([]Template, 0, len(s.templates))
	for _, key := range sortedKeys(s.templates) {
		out = append(out, s.templates[key])
	}
	return out
}

// Packages returns the active packages sorted by key.
func (s *Snapshot) Packages() []ExamPackage {
	out := make([]ExamPackage, 0, len(s.packages))
	for _, key := range sortedKeys(s.packages) {
		out = append(out, s.packages[key])
	}
	return out
}
