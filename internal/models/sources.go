package models

import "strings"

// source identifies the transfer strategy for a model URL.
type source int

const (
	sourceUnknown source = iota
	// sourceDirect is a plain http(s) URL.
	sourceDirect
	// sourceHuggingFace is a bare hub ID like "owner/repo" or
	// "owner/repo/path/to/file".
	sourceHuggingFace
	// sourceGated is a path into the gated collection repository,
	// requiring a bearer token.
	sourceGated
	// sourceCivitai is a "civitai:<model-id>" catalog reference.
	sourceCivitai
)

// gatedCollection is the gated repository that private model paths
// reference.
const gatedCollection = "fx1/collection"

func classify(url string) source {
	switch {
	case strings.HasPrefix(url, "civitai:"):
		return sourceCivitai
	case strings.Contains(url, gatedCollection):
		return sourceGated
	case strings.HasPrefix(url, "https://"), strings.HasPrefix(url, "http://"):
		return sourceDirect
	case strings.Contains(url, "/"):
		return sourceHuggingFace
	default:
		return sourceUnknown
	}
}
