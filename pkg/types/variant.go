// Package types defines the shared data model for comfybuild variants.
package types

import (
	"encoding/json"
	"fmt"
	"strings"

	"gopkg.in/yaml.v3"
)

// Variant is the typed form of a fully resolved variant document.
// A Variant never carries an "extends" reference; inheritance is
// flattened by the config loader before this type is produced.
type Variant struct {
	Name               string                `yaml:"name"`
	Version            string                `yaml:"version"`
	BaseImage          string                `yaml:"base_image,omitempty"`
	Description        string                `yaml:"description,omitempty"`
	Nodes              []NodeRef             `yaml:"nodes,omitempty"`
	Models             map[string][]ModelRef `yaml:"models,omitempty"`
	Requirements       []string              `yaml:"requirements,omitempty"`
	Workflows          []string              `yaml:"workflows,omitempty"`
	EnvVars            map[string]string     `yaml:"env_vars,omitempty"`
	GenerateDockerfile bool                  `yaml:"generate_dockerfile,omitempty"`
}

// NodeRef identifies a custom node repository. A node entry in a variant
// document is either a bare URL string or a mapping with url/branch/commit;
// both forms decode into this struct, resolved once at parse time.
type NodeRef struct {
	URL    string `yaml:"url" json:"url"`
	Branch string `yaml:"branch,omitempty" json:"branch,omitempty"`
	Commit string `yaml:"commit,omitempty" json:"commit,omitempty"`

	// bare records that the entry was written as a plain URL string,
	// so round-tripping can preserve the compact form.
	bare bool
}

// ModelRef identifies a downloadable model weight file.
type ModelRef struct {
	URL      string `yaml:"url" json:"url"`
	Name     string `yaml:"name" json:"name"`
	Filename string `yaml:"filename,omitempty" json:"filename,omitempty"`
	SHA256   string `yaml:"sha256,omitempty" json:"sha256,omitempty"`
}

// UnmarshalYAML accepts both the scalar and the mapping form of a node entry.
func (n *NodeRef) UnmarshalYAML(value *yaml.Node) error {
	switch value.Kind {
	case yaml.ScalarNode:
		var url string
		if err := value.Decode(&url); err != nil {
			return err
		}
		n.URL = url
		n.bare = true
		return nil
	case yaml.MappingNode:
		type plain struct {
			URL    string `yaml:"url"`
			Branch string `yaml:"branch"`
			Commit string `yaml:"commit"`
		}
		var p plain
		if err := value.Decode(&p); err != nil {
			return err
		}
		n.URL = p.URL
		n.Branch = p.Branch
		n.Commit = p.Commit
		return nil
	default:
		return fmt.Errorf("node entry must be a string or a mapping, got %s", kindName(value.Kind))
	}
}

// MarshalYAML emits the compact scalar form when the ref carries only a URL.
func (n NodeRef) MarshalYAML() (any, error) {
	if n.bare || (n.Branch == "" && n.Commit == "") {
		return n.URL, nil
	}
	type plain struct {
		URL    string `yaml:"url"`
		Branch string `yaml:"branch,omitempty"`
		Commit string `yaml:"commit,omitempty"`
	}
	return plain{URL: n.URL, Branch: n.Branch, Commit: n.Commit}, nil
}

// MarshalJSON mirrors MarshalYAML for the node manifest artifact.
func (n NodeRef) MarshalJSON() ([]byte, error) {
	if n.bare || (n.Branch == "" && n.Commit == "") {
		return json.Marshal(n.URL)
	}
	type plain struct {
		URL    string `json:"url"`
		Branch string `json:"branch,omitempty"`
		Commit string `json:"commit,omitempty"`
	}
	return json.Marshal(plain{URL: n.URL, Branch: n.Branch, Commit: n.Commit})
}

// UnmarshalJSON accepts both forms, matching exported node lists.
func (n *NodeRef) UnmarshalJSON(data []byte) error {
	if len(data) > 0 && data[0] == '"' {
		if err := json.Unmarshal(data, &n.URL); err != nil {
			return err
		}
		n.bare = true
		return nil
	}
	type plain struct {
		URL    string `json:"url"`
		Branch string `json:"branch"`
		Commit string `json:"commit"`
	}
	var p plain
	if err := json.Unmarshal(data, &p); err != nil {
		return err
	}
	n.URL = p.URL
	n.Branch = p.Branch
	n.Commit = p.Commit
	return nil
}

// RepoName derives the checkout directory name from the repository URL:
// the final path segment with any ".git" suffix stripped.
func (n NodeRef) RepoName() string {
	name := strings.TrimRight(n.URL, "/")
	if i := strings.LastIndex(name, "/"); i >= 0 {
		name = name[i+1:]
	}
	return strings.TrimSuffix(name, ".git")
}

// FromDocument decodes a resolved raw document into a Variant.
func FromDocument(doc map[string]any) (*Variant, error) {
	data, err := yaml.Marshal(doc)
	if err != nil {
		return nil, fmt.Errorf("failed to encode document: %w", err)
	}
	var v Variant
	if err := yaml.Unmarshal(data, &v); err != nil {
		return nil, fmt.Errorf("failed to decode variant: %w", err)
	}
	return &v, nil
}

func kindName(k yaml.Kind) string {
	switch k {
	case yaml.DocumentNode:
		return "document"
	case yaml.SequenceNode:
		return "sequence"
	case yaml.MappingNode:
		return "mapping"
	case yaml.ScalarNode:
		return "scalar"
	case yaml.AliasNode:
		return "alias"
	}
	return "unknown"
}
