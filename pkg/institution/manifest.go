package institution

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// Data formats a corpus directory may carry.
const (
	FormatJSON = "json"
	FormatCSV  = "csv"
	FormatGob  = "gob"
)

// Manifest describes a reference corpus: where it came from and how to read it.
type Manifest struct {
	ID           string           `yaml:"id" json:"id"`
	Version      string           `yaml:"version" json:"version"`
	Description  string           `yaml:"description" json:"description,omitempty"`
	Source       string           `yaml:"source" json:"source"`
	SourceURL    string           `yaml:"source_url" json:"source_url,omitempty"`
	License      string           `yaml:"license" json:"license"`
	DataFile     string           `yaml:"data_file" json:"data_file"`
	Format       FormatSpec       `yaml:"format" json:"-"`
	MetadataCols []MetadataColumn `yaml:"metadata_columns,omitempty" json:"-"`
}

// FormatSpec describes the data file layout. Column fields apply to CSV only.
type FormatSpec struct {
	Type           string `yaml:"type"`
	Delimiter      string `yaml:"delimiter,omitempty"`
	Encoding       string `yaml:"encoding,omitempty"`
	NameColumn     string `yaml:"name_column,omitempty"`
	AliasColumn    string `yaml:"alias_column,omitempty"`
	AliasSeparator string `yaml:"alias_separator,omitempty"`
	PayloadColumn  string `yaml:"payload_column,omitempty"`
}

// MetadataColumn maps a logical name to a CSV column.
type MetadataColumn struct {
	Name   string `yaml:"name"`
	Column string `yaml:"column"`
}

// LoadManifest reads and parses a manifest.yaml file.
func LoadManifest(path string) (*Manifest, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read manifest %s: %w", path, err)
	}
	var m Manifest
	if err := yaml.Unmarshal(data, &m); err != nil {
		return nil, fmt.Errorf("parse manifest %s: %w", path, err)
	}
	if m.ID == "" {
		return nil, fmt.Errorf("manifest %s: missing id", path)
	}
	if m.Format.Type == "" {
		m.Format.Type = FormatJSON
	}
	switch m.Format.Type {
	case FormatJSON, FormatCSV, FormatGob:
	default:
		return nil, fmt.Errorf("manifest %s: unknown format %q", path, m.Format.Type)
	}
	if m.DataFile == "" {
		m.DataFile = "data." + m.Format.Type
	}
	if m.Format.Type == FormatCSV && m.Format.NameColumn == "" {
		return nil, fmt.Errorf("manifest %s: csv format needs name_column", path)
	}
	return &m, nil
}

// WriteManifest writes m as YAML to path.
func WriteManifest(path string, m *Manifest) error {
	data, err := yaml.Marshal(m)
	if err != nil {
		return fmt.Errorf("marshal manifest: %w", err)
	}
	return os.WriteFile(path, data, 0o644)
}
