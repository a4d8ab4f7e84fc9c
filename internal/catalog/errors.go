package catalog

import "errors"

var (
	// ErrNoReference indicates the request named neither a template nor a package.
	ErrNoReference = errors.New("request must reference a template or a package")
	// ErrTemplateNotFound indicates the template key matches no active template.
	ErrTemplateNotFound = errors.New("template not found or inactive")
	// ErrPackageNotFound indicates the package key matches no active package.
	ErrPackageNotFound = errors.New("package not found or inactive")
	// ErrNoDefaultTemplate indicates the package does not declare a default template.
	ErrNoDefaultTemplate = errors.New("package has no default template")
)
