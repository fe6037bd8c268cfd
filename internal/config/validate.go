package config

import (
	"fmt"
	"sort"
)

// Validate checks a resolved document against the variant schema. It returns
// a *ValidationError enumerating every offense found, or nil when the
// document is valid. Validate never modifies the document.
func Validate(name string, doc map[string]any) error {
	var violations []Violation

	for _, field := range []string{"name", "version"} {
		if v, ok := doc[field]; !ok || v == nil || v == "" {
			violations = append(violations, Violation{
				Path:   field,
				Reason: "required field is missing",
			})
		}
	}

	violations = append(violations, validateNodes(doc)...)
	violations = append(violations, validateModels(doc)...)

	if len(violations) > 0 {
		return &ValidationError{Name: name, Violations: violations}
	}
	return nil
}

func validateNodes(doc map[string]any) []Violation {
	raw, ok := doc["nodes"]
	if !ok {
		return nil
	}
	list, ok := raw.([]any)
	if !ok {
		return []Violation{{Path: "nodes", Reason: "must be a sequence"}}
	}

	var violations []Violation
	for i, entry := range list {
		switch e := entry.(type) {
		case string:
			// Bare URL form needs no further checks.
		case map[string]any:
			if url, ok := e["url"].(string); !ok || url == "" {
				violations = append(violations, Violation{
					Path:   fmt.Sprintf("nodes[%d]", i),
					Reason: "node entry is missing url",
				})
			}
		default:
			violations = append(violations, Violation{
				Path:   fmt.Sprintf("nodes[%d]", i),
				Reason: "node entry must be a string or a mapping",
			})
		}
	}
	return violations
}

func validateModels(doc map[string]any) []Violation {
	raw, ok := doc["models"]
	if !ok {
		return nil
	}
	categories, ok := raw.(map[string]any)
	if !ok {
		return []Violation{{Path: "models", Reason: "must be a mapping of categories"}}
	}

	names := make([]string, 0, len(categories))
	for category := range categories {
		names = append(names, category)
	}
	sort.Strings(names)

	var violations []Violation
	for _, category := range names {
		list, ok := categories[category].([]any)
		if !ok {
			violations = append(violations, Violation{
				Path:   "models." + category,
				Reason: "must be a sequence",
			})
			continue
		}
		for i, entry := range list {
			m, ok := entry.(map[string]any)
			if !ok {
				violations = append(violations, Violation{
					Path:   fmt.Sprintf("models.%s[%d]", category, i),
					Reason: "model entry must be a mapping",
				})
				continue
			}
			for _, field := range []string{"url", "name"} {
				if v, ok := m[field].(string); !ok || v == "" {
					violations = append(violations, Violation{
						Path:   fmt.Sprintf("models.%s[%d]", category, i),
						Reason: "model entry is missing " + field,
					})
				}
			}
		}
	}
	return violations
}
