// Package templates stores note templates as one YAML file per template.
package templates

import (
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"path"
	"regexp"
	"strings"

	validation "github.com/go-ozzo/ozzo-validation/v4"
	"gopkg.in/yaml.v3"

	"github.com/starford/smartscribe/internal/apperr"
	"github.com/starford/smartscribe/internal/checksum"
	"github.com/starford/smartscribe/internal/models"
	"github.com/starford/smartscribe/internal/storage"
)

var idPattern = regexp.MustCompile(`^[A-Za-z0-9][A-Za-z0-9_-]*$`)

// Store reads and writes templates through a storage.Provider.
type Store struct {
	files  storage.Provider
	logger *slog.Logger
}

// NewStore returns a store over files.
func NewStore(files storage.Provider, logger *slog.Logger) *Store {
	if logger == nil {
		logger = slog.Default()
	}
	return &Store{files: files, logger: logger}
}

// Parse decodes a YAML template. fallbackID is used when the document has no id.
func Parse(data []byte, fallbackID string) (models.Template, error) {
	var t models.Template
	if err := yaml.Unmarshal(data, &t); err != nil {
		return models.Template{}, fmt.Errorf("templates: decode: %w", err)
	}
	if t.ID == "" {
		t.ID = fallbackID
	}
	if err := validateTemplate(t); err != nil {
		return models.Template{}, err
	}
	return t, nil
}

func validateTemplate(t models.Template) error {
	if err := validation.Validate(t.ID, validation.Required, validation.Match(idPattern)); err != nil {
		return fmt.Errorf("templates: id %q: %w", t.ID, errors.Join(apperr.ErrInvalidRequest, err))
	}
	if err := t.Validate(); err != nil {
		return fmt.Errorf("templates: %s: %w", t.ID, errors.Join(apperr.ErrInvalidRequest, err))
	}
	return nil
}

// List returns every readable template sorted by file path. Files that fail
// to parse are logged and skipped.
func (s *Store) List() ([]models.Template, error) {
	files, err := s.files.List("", ".yaml", ".yml")
	if err != nil {
		return nil, fmt.Errorf("templates: list: %w", err)
	}
	out := make([]models.Template, 0, len(files))
	for _, f := range files {
		data, err := s.files.Read(f.Path)
		if err != nil {
			s.logger.Warn("templates: read failed", slog.String("path", f.Path), slog.String("error", err.Error()))
			continue
		}
		t, err := Parse(data, stem(f.Path))
		if err != nil {
			s.logger.Warn("templates: skipping invalid template", slog.String("path", f.Path), slog.String("error", err.Error()))
			continue
		}
		out = append(out, t)
	}
	return out, nil
}

// Get returns the template stored under id.
func (s *Store) Get(id string) (models.Template, error) {
	data, err := s.read(id)
	if err != nil {
		return models.Template{}, err
	}
	return Parse(data, id)
}

// Revision returns the checksum of the stored file for id, used for
// optimistic concurrency on updates.
func (s *Store) Revision(id string) (string, error) {
	data, err := s.read(id)
	if err != nil {
		return "", err
	}
	return checksum.Sum(data), nil
}

func (s *Store) read(id string) ([]byte, error) {
	if !idPattern.MatchString(id) {
		return nil, fmt.Errorf("templates: %q: %w", id, apperr.ErrNotFound)
	}
	for _, name := range []string{id + ".yaml", id + ".yml"} {
		data, err := s.files.Read(name)
		if errors.Is(err, fs.ErrNotExist) {
			continue
		}
		if err != nil {
			return nil, fmt.Errorf("templates: get %s: %w", id, err)
		}
		return data, nil
	}
	return nil, fmt.Errorf("templates: %q: %w", id, apperr.ErrNotFound)
}

// Put validates t and writes it to <id>.yaml, replacing any existing file.
func (s *Store) Put(t models.Template) error {
	if err := validateTemplate(t); err != nil {
		return err
	}
	data, err := yaml.Marshal(t)
	if err != nil {
		return fmt.Errorf("templates: encode %s: %w", t.ID, err)
	}
	if err := s.files.Write(t.ID+".yaml", data); err != nil {
		return fmt.Errorf("templates: put %s: %w", t.ID, err)
	}
	s.logger.Info("templates: stored", slog.String("id", t.ID))
	return nil
}

// Delete removes the template stored under id.
func (s *Store) Delete(id string) error {
	if !idPattern.MatchString(id) {
		return fmt.Errorf("templates: %q: %w", id, apperr.ErrNotFound)
	}
	for _, name := range []string{id + ".yaml", id + ".yml"} {
		err := s.files.Delete(name)
		if errors.Is(err, fs.ErrNotExist) {
			continue
		}
		if err != nil {
			return fmt.Errorf("templates: delete %s: %w", id, err)
		}
		return nil
	}
	return fmt.Errorf("templates: %q: %w", id, apperr.ErrNotFound)
}

func stem(p string) string {
	base := path.Base(p)
	return strings.TrimSuffix(base, path.Ext(base))
}
