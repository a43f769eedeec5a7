// Package catalog owns the SmartList controlled vocabularies: lookup by id
// and name, selection legality, the selection history used for frequency
// hints, and rendering of list definitions for prompts.
//
// Readers never lock the list index. Imports build a fresh index and swap it
// in atomically; selection writes and imports are serialized.
package catalog

import (
	"context"
	"fmt"
	"log/slog"
	"sort"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"

	"github.com/starford/smartscribe/internal/apperr"
)

// ListOption is one allowed value of a SmartList.
type ListOption struct {
	Text    string `json:"text" yaml:"text"`
	Order   int    `json:"order" yaml:"order"`
	Default bool   `json:"default,omitempty" yaml:"default"`
}

// List is a SmartList. ID is the only unique key; Aliases are the
// human-readable names it may be referenced by.
type List struct {
	ID      string       `json:"id" yaml:"id"`
	Aliases []string     `json:"names" yaml:"names"`
	Group   string       `json:"group,omitempty" yaml:"group"`
	Options []ListOption `json:"options" yaml:"options"`
}

// Name returns the primary display name.
func (l List) Name() string {
	if len(l.Aliases) == 0 {
		return l.ID
	}
	return l.Aliases[0]
}

// Allows reports whether value is exactly the text of one option.
func (l List) Allows(value string) bool {
	for _, o := range l.Options {
		if o.Text == value {
			return true
		}
	}
	return false
}

// DefaultOption returns the option flagged as default, if any.
func (l List) DefaultOption() (ListOption, bool) {
	for _, o := range l.Options {
		if o.Default {
			return o, true
		}
	}
	return ListOption{}, false
}

func (l List) clone() List {
	out := l
	out.Aliases = append([]string(nil), l.Aliases...)
	out.Options = append([]ListOption(nil), l.Options...)
	return out
}

// SelectionEvent records one accepted selection.
type SelectionEvent struct {
	ID        uuid.UUID `json:"id"`
	ListID    string    `json:"list_id"`
	Value     string    `json:"value"`
	Timestamp time.Time `json:"timestamp"`
	Context   string    `json:"context,omitempty"`
}

// HistoryStore persists selection events. It is optional; without one the
// selection log lives in memory only.
type HistoryStore interface {
	Append(ctx context.Context, ev SelectionEvent) error
	Load(ctx context.Context) ([]SelectionEvent, error)
}

// Option is a functional option for configuring a Catalog.
type Option func(*Catalog)

// WithLogger sets the catalog logger.
func WithLogger(logger *slog.Logger) Option {
	return func(c *Catalog) {
		if logger != nil {
			c.logger = logger
		}
	}
}

// WithHistory persists accepted selections to store.
func WithHistory(store HistoryStore) Option {
	return func(c *Catalog) {
		c.history = store
	}
}

// WithClock overrides the time source for selection timestamps.
func WithClock(now func() time.Time) Option {
	return func(c *Catalog) {
		if now != nil {
			c.now = now
		}
	}
}

type index struct {
	byID    map[string]List
	byAlias map[string]string
	ids     []string
}

// Catalog is the SmartList registry.
type Catalog struct {
	idx atomic.Pointer[index]

	writeMu sync.Mutex

	logMu  sync.RWMutex
	events map[string][]SelectionEvent

	history HistoryStore
	logger  *slog.Logger
	now     func() time.Time
}

// New builds a catalog from lists. Invalid lists fail the whole call.
func New(lists []List, opts ...Option) (*Catalog, error) {
	c := &Catalog{
		events: make(map[string][]SelectionEvent),
		logger: slog.Default(),
		now:    time.Now,
	}
	for _, opt := range opts {
		opt(c)
	}
	idx, err := buildIndex(lists)
	if err != nil {
		return nil, err
	}
	c.idx.Store(idx)
	return c, nil
}

// Replace validates lists, builds a new index and swaps it in. On error the
// current index stays live. The selection log is kept.
func (c *Catalog) Replace(lists []List) error {
	idx, err := buildIndex(lists)
	if err != nil {
		return err
	}
	c.writeMu.Lock()
	c.idx.Store(idx)
	c.writeMu.Unlock()
	c.logger.Info("catalog: index replaced", slog.Int("lists", len(idx.ids)))
	return nil
}

// LookupByID returns the list with the given id.
func (c *Catalog) LookupByID(id string) (List, bool) {
	l, ok := c.idx.Load().byID[strings.TrimSpace(id)]
	if !ok {
		return List{}, false
	}
	return l.clone(), true
}

// LookupByAlias returns the list known by alias. Matching ignores case and
// surrounding blanks.
func (c *Catalog) LookupByAlias(alias string) (List, bool) {
	idx := c.idx.Load()
	id, ok := idx.byAlias[aliasKey(alias)]
	if !ok {
		return List{}, false
	}
	return idx.byID[id].clone(), true
}

// Resolve finds the list a template reference points at: by id first, then
// by its label.
func (c *Catalog) Resolve(label, id string) (List, bool) {
	if l, ok := c.LookupByID(id); ok {
		return l, true
	}
	return c.LookupByAlias(label)
}

// ListByGroup returns every list in group once, sorted by id.
func (c *Catalog) ListByGroup(group string) []List {
	idx := c.idx.Load()
	var out []List
	for _, id := range idx.ids {
		l := idx.byID[id]
		if strings.EqualFold(l.Group, group) {
			out = append(out, l.clone())
		}
	}
	return out
}

// Groups returns the distinct non-empty group names, sorted.
func (c *Catalog) Groups() []string {
	idx := c.idx.Load()
	seen := make(map[string]struct{})
	var out []string
	for _, id := range idx.ids {
		g := idx.byID[id].Group
		if g == "" {
			continue
		}
		if _, dup := seen[g]; dup {
			continue
		}
		seen[g] = struct{}{}
		out = append(out, g)
	}
	sort.Strings(out)
	return out
}

// IDs returns every list id in ascending numeric order.
func (c *Catalog) IDs() []string {
	return append([]string(nil), c.idx.Load().ids...)
}

// Lists returns every list sorted by id.
func (c *Catalog) Lists() []List {
	idx := c.idx.Load()
	out := make([]List, 0, len(idx.ids))
	for _, id := range idx.ids {
		out = append(out, idx.byID[id].clone())
	}
	return out
}

// DefaultValue returns the text of the list's default option.
func (c *Catalog) DefaultValue(id string) (string, bool) {
	l, ok := c.LookupByID(id)
	if !ok {
		return "", false
	}
	o, ok := l.DefaultOption()
	return o.Text, ok
}

func buildIndex(lists []List) (*index, error) {
	idx := &index{
		byID:    make(map[string]List, len(lists)),
		byAlias: make(map[string]string),
	}
	for _, raw := range lists {
		l := normalize(raw)
		if err := l.Validate(); err != nil {
			return nil, fmt.Errorf("%w: list %q: %v", apperr.ErrInvalidCatalog, l.ID, err)
		}
		if _, dup := idx.byID[l.ID]; dup {
			return nil, fmt.Errorf("%w: duplicate list id %q", apperr.ErrInvalidCatalog, l.ID)
		}
		for _, a := range l.Aliases {
			key := aliasKey(a)
			if other, taken := idx.byAlias[key]; taken && other != l.ID {
				return nil, fmt.Errorf("%w: name %q used by lists %q and %q", apperr.ErrInvalidCatalog, a, other, l.ID)
			}
			idx.byAlias[key] = l.ID
		}
		idx.byID[l.ID] = l
		idx.ids = append(idx.ids, l.ID)
	}
	sort.Slice(idx.ids, func(i, j int) bool { return lessID(idx.ids[i], idx.ids[j]) })
	return idx, nil
}

// normalize trims names, drops duplicate aliases, numbers unordered options
// by position and sorts options by order.
func normalize(l List) List {
	out := List{ID: strings.TrimSpace(l.ID), Group: strings.TrimSpace(l.Group)}
	seen := make(map[string]struct{})
	for _, a := range l.Aliases {
		a = strings.TrimSpace(a)
		if _, dup := seen[aliasKey(a)]; dup {
			continue
		}
		seen[aliasKey(a)] = struct{}{}
		out.Aliases = append(out.Aliases, a)
	}
	out.Options = make([]ListOption, len(l.Options))
	for i, o := range l.Options {
		if o.Order == 0 {
			o.Order = i + 1
		}
		out.Options[i] = o
	}
	sort.SliceStable(out.Options, func(i, j int) bool { return out.Options[i].Order < out.Options[j].Order })
	return out
}

func aliasKey(alias string) string {
	return strings.ToLower(strings.TrimSpace(alias))
}

// lessID orders numeric ids by value and falls back to string order.
func lessID(a, b string) bool {
	if len(a) != len(b) {
		return len(a) < len(b)
	}
	return a < b
}
