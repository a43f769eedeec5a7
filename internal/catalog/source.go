package catalog

import (
	"bytes"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/starford/smartscribe/internal/apperr"
)

type sourceFile struct {
	SmartLists []List `yaml:"smartlists"`
}

// ParseYAML decodes a catalog document of the form
//
//	smartlists:
//	  - id: "1001"
//	    names: [Mood]
//	    group: mental_status
//	    options:
//	      - text: Euthymic
//	        default: true
func ParseYAML(data []byte) ([]List, error) {
	var src sourceFile
	if err := yaml.Unmarshal(data, &src); err != nil {
		return nil, fmt.Errorf("%w: %v", apperr.ErrInvalidCatalog, err)
	}
	return src.SmartLists, nil
}

// Catalog file formats.
const (
	FormatCSV  = "csv"
	FormatYAML = "yaml"
)

// FormatOf returns the catalog format implied by a file name, or "".
func FormatOf(path string) string {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".csv":
		return FormatCSV
	case ".yaml", ".yml":
		return FormatYAML
	default:
		return ""
	}
}

// ExportYAML writes the catalog in the document form read by ParseYAML.
func (c *Catalog) ExportYAML(w io.Writer) error {
	enc := yaml.NewEncoder(w)
	enc.SetIndent(2)
	if err := enc.Encode(sourceFile{SmartLists: c.Lists()}); err != nil {
		return fmt.Errorf("catalog: export yaml: %w", err)
	}
	if err := enc.Close(); err != nil {
		return fmt.Errorf("catalog: export yaml: %w", err)
	}
	return nil
}

// Export writes the catalog in format.
func (c *Catalog) Export(w io.Writer, format string) error {
	switch format {
	case FormatCSV:
		return c.ExportCSV(w)
	case FormatYAML:
		return c.ExportYAML(w)
	default:
		return fmt.Errorf("catalog: unsupported export format %q", format)
	}
}

// Parse decodes r in format without touching any catalog.
func Parse(r io.Reader, format string) ([]List, error) {
	switch format {
	case FormatCSV:
		return ParseCSV(r)
	case FormatYAML:
		data, err := io.ReadAll(r)
		if err != nil {
			return nil, fmt.Errorf("catalog: import: %w", err)
		}
		return ParseYAML(data)
	default:
		return nil, fmt.Errorf("%w: unsupported import format %q", apperr.ErrInvalidCatalog, format)
	}
}

// Import parses r in format and replaces the whole index with it.
func (c *Catalog) Import(r io.Reader, format string) (int, error) {
	lists, err := Parse(r, format)
	if err != nil {
		return 0, err
	}
	if err := c.Replace(lists); err != nil {
		return 0, err
	}
	return len(lists), nil
}

// LoadFile reads catalog lists from a .yaml/.yml or .csv file.
func LoadFile(path string) ([]List, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("catalog: read %s: %w", path, err)
	}
	switch FormatOf(path) {
	case FormatCSV:
		return ParseCSV(bytes.NewReader(data))
	case FormatYAML:
		return ParseYAML(data)
	default:
		return nil, fmt.Errorf("%w: unsupported catalog file %s", apperr.ErrInvalidCatalog, path)
	}
}

// Open loads path and builds a catalog from it.
func Open(path string, opts ...Option) (*Catalog, error) {
	lists, err := LoadFile(path)
	if err != nil {
		return nil, err
	}
	return New(lists, opts...)
}

// Reload re-reads path and swaps the catalog index on success.
func (c *Catalog) Reload(path string) (int, error) {
	lists, err := LoadFile(path)
	if err != nil {
		return 0, err
	}
	if err := c.Replace(lists); err != nil {
		return 0, err
	}
	return len(lists), nil
}
