package config

import (
	"fmt"
	"strings"
)

// NotFoundError reports that no source document exists for a variant name.
type NotFoundError struct {
	Name string
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("variant not found: %s", e.Name)
}

// MissingAncestorError reports that a variant extends an ancestor with no
// source document. Missing ancestors are always fatal; there is no
// single-file fallback.
type MissingAncestorError struct {
	Name     string
	Ancestor string
}

func (e *MissingAncestorError) Error() string {
	return fmt.Sprintf("variant %s extends missing ancestor: %s", e.Name, e.Ancestor)
}

// CycleError reports that the extends chain revisits a variant name.
// Chain holds the names in resolution order, ending with the revisited one.
type CycleError struct {
	Chain []string
}

func (e *CycleError) Error() string {
	return fmt.Sprintf("extends cycle detected: %s", strings.Join(e.Chain, " -> "))
}

// Violation describes a single schema offense within a document.
type Violation struct {
	Path   string
	Reason string
}

func (v Violation) String() string {
	return fmt.Sprintf("%s: %s", v.Path, v.Reason)
}

// ValidationError collects every schema violation found in a resolved
// document rather than stopping at the first one.
type ValidationError struct {
	Name       string
	Violations []Violation
}

func (e *ValidationError) Error() string {
	parts := make([]string, len(e.Violations))
	for i, v := range e.Violations {
		parts[i] = v.String()
	}
	return fmt.Sprintf("variant %s is invalid: %s", e.Name, strings.Join(parts, "; "))
}
