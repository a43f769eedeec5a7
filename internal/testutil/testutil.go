// Package testutil provides shared test helpers for catalogs, template
// stores, history databases and services.
package testutil

import (
	"context"
	"io"
	"log/slog"
	"os"
	"sync"
	"testing"

	"github.com/starford/smartscribe/internal/catalog"
	"github.com/starford/smartscribe/internal/grammar"
	"github.com/starford/smartscribe/internal/history"
	"github.com/starford/smartscribe/internal/noteservice"
	"github.com/starford/smartscribe/internal/storage"
	"github.com/starford/smartscribe/internal/templates"
)

// Signature is the signing-clinician line used by test validators.
const Signature = "Jane Clinician, MD"

// ValidNote passes every grammar rule under TestValidator and carries one
// selected SmartList from TestCatalog.
const ValidNote = `Chief Complaint:
"I have been feeling down."

History of Present Illness:
.FNAME reports a depressed mood that began about three months ago after a job loss. Symptoms have been moderate and persistent, worsening over the past month.

She describes difficulty sleeping, reduced appetite, and missing work. Mood today is {Mood:1001:: "Depressed"}.

Past Psychiatric History:
Denies prior psychiatric hospitalizations. Denies history of self-harm or suicide attempts.

Formulation:
.FNAME is a 34 year old woman who presents for initial psychiatric evaluation of low mood.

Her presentation is most consistent with a diagnosis of major depressive disorder, single episode, moderate (F32.1). Biological factors include a family history of depression; psychological factors include negative self-appraisal; social factors include recent job loss.

The differential includes adjustment disorder, which is less likely because symptom severity exceeds an expected stress response.

Treatment will focus on pharmacotherapy and psychotherapy as follows:

Plan:
Medications: Start sertraline 50 mg daily.
Psychotherapy Referral: Referred to CBT.
Therapy Conducted: Supportive therapy for 20 minutes.
Follow-up: Return in 4 weeks or sooner if needed.
Jane Clinician, MD
`

// Logger returns a logger that discards everything.
func Logger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// Lists returns the lists loaded by TestCatalog.
func Lists() []catalog.List {
	return []catalog.List{
		{
			ID:      "1001",
			Aliases: []string{"Mood"},
			Group:   "mental_status",
			Options: []catalog.ListOption{{Text: "Euthymic", Default: true}, {Text: "Depressed"}, {Text: "Anxious"}},
		},
		{
			ID:      "1002",
			Aliases: []string{"Affect"},
			Group:   "mental_status",
			Options: []catalog.ListOption{{Text: "Full range"}, {Text: "Constricted"}},
		},
		{
			ID:      "204",
			Aliases: []string{"Sleep"},
			Group:   "hpi",
			Options: []catalog.ListOption{{Text: "Good"}, {Text: "Poor"}},
		},
	}
}

// TestCatalog builds a catalog over Lists.
func TestCatalog(t *testing.T, opts ...catalog.Option) *catalog.Catalog {
	t.Helper()
	opts = append([]catalog.Option{catalog.WithLogger(Logger())}, opts...)
	c, err := catalog.New(Lists(), opts...)
	if err != nil {
		t.Fatalf("catalog.New: %v", err)
	}
	return c
}

// TestValidator returns a validator with the default headers signed by Signature.
func TestValidator(t *testing.T) *grammar.Validator {
	t.Helper()
	v, err := grammar.New(grammar.DefaultConfig(Signature))
	if err != nil {
		t.Fatalf("grammar.New: %v", err)
	}
	return v
}

// TestHistory creates a temporary SQLite history database that is
// automatically cleaned up.
func TestHistory(t *testing.T) *history.DB {
	t.Helper()
	dbFile, err := os.CreateTemp(t.TempDir(), "smartscribe-test-*.db")
	if err != nil {
		t.Fatal(err)
	}
	dbFile.Close()

	db, err := history.Open(dbFile.Name())
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { db.Close() })
	return db
}

// TestTemplates creates a template store over a temporary directory.
func TestTemplates(t *testing.T) (*templates.Store, *storage.FS) {
	t.Helper()
	fs, err := storage.NewFS(t.TempDir())
	if err != nil {
		t.Fatal(err)
	}
	return templates.NewStore(fs, Logger()), fs
}

// TestService builds a service over TestCatalog, TestValidator and a
// temporary template store. Extra options are applied last.
func TestService(t *testing.T, opts ...noteservice.Option) (*noteservice.Service, *catalog.Catalog, *templates.Store) {
	t.Helper()
	cat := TestCatalog(t)
	store, _ := TestTemplates(t)
	opts = append([]noteservice.Option{
		noteservice.WithTemplates(store),
		noteservice.WithLogger(Logger()),
	}, opts...)
	return noteservice.NewService(cat, TestValidator(t), opts...), cat, store
}

// StubCompleter returns canned text and records the prompts it receives.
type StubCompleter struct {
	Text string
	Err  error

	mu      sync.Mutex
	prompts []string
}

// Complete implements generate.Completer.
func (s *StubCompleter) Complete(_ context.Context, prompt string) (string, error) {
	s.mu.Lock()
	s.prompts = append(s.prompts, prompt)
	s.mu.Unlock()
	return s.Text, s.Err
}

// Prompts returns the prompts received so far.
func (s *StubCompleter) Prompts() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]string(nil), s.prompts...)
}
