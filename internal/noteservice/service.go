// Package noteservice wires the catalog, compiler, grammar validator,
// template store and completion client into the operations served over
// HTTP, MCP and the CLI.
package noteservice

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"log/slog"
	"path/filepath"

	"github.com/starford/smartscribe/internal/apperr"
	"github.com/starford/smartscribe/internal/catalog"
	"github.com/starford/smartscribe/internal/compiler"
	"github.com/starford/smartscribe/internal/generate"
	"github.com/starford/smartscribe/internal/grammar"
	"github.com/starford/smartscribe/internal/markup"
	"github.com/starford/smartscribe/internal/models"
	"github.com/starford/smartscribe/internal/storage"
	"github.com/starford/smartscribe/internal/templates"
)

// CompileRequest is a compiler request whose template is either inline or
// referenced by TemplateID.
type CompileRequest struct {
	TemplateID string `json:"template_id,omitempty"`
	compiler.Request
}

// ValidationResult is the grammar result plus SmartList findings and a
// markup census of the note.
type ValidationResult struct {
	grammar.Result
	Markup markup.Counts `json:"markup"`
}

// GenerateResult is the outcome of compile, complete and validate.
type GenerateResult struct {
	Prompt     *models.CompiledPrompt `json:"prompt"`
	Note       string                 `json:"note"`
	Validation ValidationResult       `json:"validation"`
}

// SmartListDetail is a list with its prompt rendering and usage.
type SmartListDetail struct {
	catalog.List
	Rendered     string         `json:"rendered"`
	MostFrequent string         `json:"most_frequent,omitempty"`
	Usage        map[string]int `json:"usage"`
}

// TemplateDetail is a stored template with its revision checksum.
type TemplateDetail struct {
	models.Template
	Revision string `json:"revision"`
}

// Event types passed to a Notifier.
const (
	EventSelectionRecorded = "selection.recorded"
	EventCatalogReplaced   = "catalog.replaced"
	EventCatalogReloaded   = "catalog.reloaded"
	EventTemplateSaved     = "template.saved"
	EventTemplateDeleted   = "template.deleted"
)

// Notifier receives change events after they are applied.
type Notifier interface {
	Notify(eventType string, data any)
}

type noopNotifier struct{}

func (noopNotifier) Notify(string, any) {}

// Option configures a Service.
type Option func(*Service)

// WithTemplates enables template lookups by id.
func WithTemplates(store *templates.Store) Option {
	return func(s *Service) { s.templates = store }
}

// WithCompleter enables Generate.
func WithCompleter(c generate.Completer) Option {
	return func(s *Service) { s.completer = c }
}

// WithCatalogFile persists imported catalogs back to path.
func WithCatalogFile(path string) Option {
	return func(s *Service) { s.catalogFile = path }
}

// WithNotifier sets the change-event sink.
func WithNotifier(n Notifier) Option {
	return func(s *Service) {
		if n != nil {
			s.notifier = n
		}
	}
}

// WithLogger sets the service logger.
func WithLogger(logger *slog.Logger) Option {
	return func(s *Service) {
		if logger != nil {
			s.logger = logger
		}
	}
}

// Service coordinates the domain packages.
type Service struct {
	catalog     *catalog.Catalog
	validator   *grammar.Validator
	compiler    *compiler.Compiler
	templates   *templates.Store
	completer   generate.Completer
	catalogFile string
	notifier    Notifier
	logger      *slog.Logger
}

// NewService creates a service. The compiler is built over cat and signs
// with the validator's configured signature.
func NewService(cat *catalog.Catalog, validator *grammar.Validator, opts ...Option) *Service {
	s := &Service{catalog: cat, validator: validator, notifier: noopNotifier{}, logger: slog.Default()}
	for _, o := range opts {
		o(s)
	}
	s.compiler = compiler.New(cat,
		compiler.WithLogger(s.logger),
		compiler.WithSignature(validator.Config().Signature),
	)
	return s
}

// Compile resolves the request's template and compiles the prompt.
func (s *Service) Compile(_ context.Context, req CompileRequest) (*models.CompiledPrompt, error) {
	if req.TemplateID != "" {
		tpl, err := s.template(req.TemplateID)
		if err != nil {
			return nil, err
		}
		req.Template = tpl
		if req.VisitKind == "" && tpl.VisitKind != "" {
			req.VisitKind = compiler.VisitKind(tpl.VisitKind)
		}
	}
	return s.compiler.Compile(req.Request)
}

// Validate runs the note grammar and checks SmartList selections.
func (s *Service) Validate(_ context.Context, text string) ValidationResult {
	res := ValidationResult{
		Result: s.validator.ValidateNote(text),
		Markup: markup.CountKinds(markup.Parse(text)),
	}
	lists := s.catalog.ValidateSelectionsInText(text)
	res.Sections["SmartLists"] = lists
	res.Merge("SmartLists", lists)
	return res
}

// Generate compiles the prompt, asks the completer for a note, converts
// leftover links to aliases and validates the result. The note is returned
// even when validation fails.
func (s *Service) Generate(ctx context.Context, req CompileRequest) (*GenerateResult, error) {
	if s.completer == nil {
		return nil, fmt.Errorf("noteservice: generate: completion client: %w", apperr.ErrNotConfigured)
	}
	prompt, err := s.Compile(ctx, req)
	if err != nil {
		return nil, err
	}
	raw, err := s.completer.Complete(ctx, prompt.Text)
	if err != nil {
		return nil, fmt.Errorf("noteservice: generate: %w", err)
	}
	note := markup.LinksToAliases(raw)
	res := &GenerateResult{Prompt: prompt, Note: note, Validation: s.Validate(ctx, note)}
	s.logger.Info("noteservice: note generated",
		slog.String("prompt_hash", prompt.ContentHash),
		slog.Bool("valid", res.Validation.Valid),
		slog.Int("errors", len(res.Validation.Errors)),
	)
	return res, nil
}

// ConvertLinks rewrites SmartLinks to DotPhrases, or back when reverse is set.
func (s *Service) ConvertLinks(text string, reverse bool) string {
	if reverse {
		return markup.AliasesToLinks(text)
	}
	return markup.LinksToAliases(text)
}

func (s *Service) template(id string) (models.Template, error) {
	if s.templates == nil {
		return models.Template{}, fmt.Errorf("noteservice: template %q: %w", id, apperr.ErrNotFound)
	}
	return s.templates.Get(id)
}

// ListTemplates returns every stored template.
func (s *Service) ListTemplates(_ context.Context) ([]models.Template, error) {
	if s.templates == nil {
		return []models.Template{}, nil
	}
	return s.templates.List()
}

// GetTemplate returns a template with its revision.
func (s *Service) GetTemplate(_ context.Context, id string) (*TemplateDetail, error) {
	tpl, err := s.template(id)
	if err != nil {
		return nil, err
	}
	rev, err := s.templates.Revision(id)
	if err != nil {
		return nil, err
	}
	return &TemplateDetail{Template: tpl, Revision: rev}, nil
}

// CreateTemplate stores a new template.
func (s *Service) CreateTemplate(ctx context.Context, tpl models.Template) (*TemplateDetail, error) {
	if s.templates == nil {
		return nil, fmt.Errorf("noteservice: template store: %w", apperr.ErrNotConfigured)
	}
	if _, err := s.templates.Revision(tpl.ID); err == nil {
		return nil, apperr.ErrAlreadyExists
	}
	if err := s.templates.Put(tpl); err != nil {
		return nil, err
	}
	s.notifier.Notify(EventTemplateSaved, map[string]string{"id": tpl.ID})
	return s.GetTemplate(ctx, tpl.ID)
}

// UpdateTemplate replaces a template. A non-empty ifMatch must equal the
// current revision.
func (s *Service) UpdateTemplate(ctx context.Context, tpl models.Template, ifMatch string) (*TemplateDetail, error) {
	if s.templates == nil {
		return nil, fmt.Errorf("noteservice: template %q: %w", tpl.ID, apperr.ErrNotFound)
	}
	rev, err := s.templates.Revision(tpl.ID)
	if err != nil {
		return nil, err
	}
	if ifMatch != "" && ifMatch != rev {
		return nil, apperr.ErrConflict
	}
	if err := s.templates.Put(tpl); err != nil {
		return nil, err
	}
	s.notifier.Notify(EventTemplateSaved, map[string]string{"id": tpl.ID})
	return s.GetTemplate(ctx, tpl.ID)
}

// DeleteTemplate removes a template.
func (s *Service) DeleteTemplate(_ context.Context, id string) error {
	if s.templates == nil {
		return fmt.Errorf("noteservice: template %q: %w", id, apperr.ErrNotFound)
	}
	if err := s.templates.Delete(id); err != nil {
		return err
	}
	s.notifier.Notify(EventTemplateDeleted, map[string]string{"id": id})
	return nil
}

// ListSmartLists returns every list, or only those in group when set.
func (s *Service) ListSmartLists(_ context.Context, group string) []catalog.List {
	if group != "" {
		return nonNilSlice(s.catalog.ListByGroup(group))
	}
	return nonNilSlice(s.catalog.Lists())
}

// Groups returns the distinct list groups.
func (s *Service) Groups(_ context.Context) []string {
	return nonNilSlice(s.catalog.Groups())
}

// GetSmartList looks a list up by id, falling back to its name.
func (s *Service) GetSmartList(_ context.Context, ref string) (*SmartListDetail, error) {
	l, ok := s.catalog.Resolve(ref, ref)
	if !ok {
		return nil, fmt.Errorf("noteservice: smartlist %q: %w", ref, apperr.ErrNotFound)
	}
	mf, _ := s.catalog.MostFrequent(l.ID)
	return &SmartListDetail{
		List:         l,
		Rendered:     s.catalog.RenderForPrompt(l.ID),
		MostFrequent: mf,
		Usage:        s.catalog.Usage(l.ID),
	}, nil
}

// RecordSelection records a clinician's choice for a list.
func (s *Service) RecordSelection(ctx context.Context, listID, value, note string) (catalog.SelectionEvent, error) {
	ev, err := s.catalog.RecordSelection(ctx, listID, value, note)
	if err != nil {
		return ev, err
	}
	s.notifier.Notify(EventSelectionRecorded, ev)
	return ev, nil
}

// ValidateSelections checks only the SmartList selections in text.
func (s *Service) ValidateSelections(_ context.Context, text string) models.Report {
	return s.catalog.ValidateSelectionsInText(text)
}

// ExportCatalog writes the catalog in format.
func (s *Service) ExportCatalog(_ context.Context, w io.Writer, format string) error {
	return s.catalog.Export(w, format)
}

// ImportCatalog replaces the catalog from r. When a catalog file is
// configured the new contents are written to it first, and the live
// catalog is only replaced once the write succeeded.
func (s *Service) ImportCatalog(_ context.Context, r io.Reader, format string) (int, error) {
	lists, err := catalog.Parse(r, format)
	if err != nil {
		return 0, err
	}
	if s.catalogFile != "" {
		if err := s.persistCatalog(lists); err != nil {
			return 0, err
		}
	}
	if err := s.catalog.Replace(lists); err != nil {
		return 0, err
	}
	n := len(lists)
	s.notifier.Notify(EventCatalogReplaced, map[string]int{"lists": n})
	return n, nil
}

func (s *Service) persistCatalog(lists []catalog.List) error {
	format := catalog.FormatOf(s.catalogFile)
	if format == "" {
		return fmt.Errorf("noteservice: persist catalog: unsupported file %s", s.catalogFile)
	}
	staged, err := catalog.New(lists, catalog.WithLogger(s.logger))
	if err != nil {
		return err
	}
	var buf bytes.Buffer
	if err := staged.Export(&buf, format); err != nil {
		return err
	}
	fsys, err := storage.NewFS(filepath.Dir(s.catalogFile))
	if err != nil {
		return fmt.Errorf("noteservice: persist catalog: %w", err)
	}
	if err := fsys.Write(filepath.Base(s.catalogFile), buf.Bytes()); err != nil {
		return fmt.Errorf("noteservice: persist catalog: %w", err)
	}
	s.logger.Info("noteservice: catalog persisted", slog.String("path", s.catalogFile))
	return nil
}

func nonNilSlice[T any](s []T) []T {
	if s == nil {
		return []T{}
	}
	return s
}
