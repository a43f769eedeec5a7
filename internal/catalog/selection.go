package catalog

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/google/uuid"

	"github.com/starford/smartscribe/internal/apperr"
)

// InvalidSelectionError is returned when a value is not legal for a list.
type InvalidSelectionError struct {
	ListID string
	Value  string
	Reason string
}

func (e *InvalidSelectionError) Error() string {
	return fmt.Sprintf("invalid selection %q for list %s: %s", e.Value, e.ListID, e.Reason)
}

// Unwrap lets callers match with errors.Is(err, apperr.ErrInvalidSelection).
func (e *InvalidSelectionError) Unwrap() error {
	return apperr.ErrInvalidSelection
}

// RecordSelection appends a selection to the list's log. The value must be
// the exact text of one of the list's current options. When a history store
// is configured the event is persisted before it becomes visible.
func (c *Catalog) RecordSelection(ctx context.Context, listID, value, note string) (SelectionEvent, error) {
	c.writeMu.Lock()
	defer c.writeMu.Unlock()

	l, ok := c.LookupByID(listID)
	if !ok {
		return SelectionEvent{}, &InvalidSelectionError{ListID: listID, Value: value, Reason: "unknown list"}
	}
	if !l.Allows(value) {
		return SelectionEvent{}, &InvalidSelectionError{ListID: listID, Value: value, Reason: "not one of the list options"}
	}

	ev := SelectionEvent{
		ID:        uuid.New(),
		ListID:    l.ID,
		Value:     value,
		Timestamp: c.now().UTC(),
		Context:   note,
	}
	if c.history != nil {
		if err := c.history.Append(ctx, ev); err != nil {
			return SelectionEvent{}, fmt.Errorf("catalog: persist selection: %w", err)
		}
	}

	c.logMu.Lock()
	c.events[ev.ListID] = append(c.events[ev.ListID], ev)
	c.logMu.Unlock()

	c.logger.Debug("catalog: selection recorded", slog.String("list_id", ev.ListID), slog.String("value", value))
	return ev, nil
}

// LoadHistory replaces the in-memory selection log with the events held by
// the history store. It is a no-op without a store.
func (c *Catalog) LoadHistory(ctx context.Context) error {
	if c.history == nil {
		return nil
	}
	events, err := c.history.Load(ctx)
	if err != nil {
		return fmt.Errorf("catalog: load history: %w", err)
	}

	c.writeMu.Lock()
	defer c.writeMu.Unlock()
	byList := make(map[string][]SelectionEvent)
	for _, ev := range events {
		byList[ev.ListID] = append(byList[ev.ListID], ev)
	}
	c.logMu.Lock()
	c.events = byList
	c.logMu.Unlock()

	c.logger.Info("catalog: history loaded", slog.Int("events", len(events)))
	return nil
}

// Selections returns a copy of the list's selection log in recording order.
func (c *Catalog) Selections(listID string) []SelectionEvent {
	c.logMu.RLock()
	defer c.logMu.RUnlock()
	return append([]SelectionEvent(nil), c.events[listID]...)
}

// Usage counts recorded selections per value.
func (c *Catalog) Usage(listID string) map[string]int {
	out := make(map[string]int)
	for _, ev := range c.Selections(listID) {
		out[ev.Value]++
	}
	return out
}

// MostFrequent returns the most often selected value that is still one of
// the list's options. Ties go to the value recorded first.
func (c *Catalog) MostFrequent(listID string) (string, bool) {
	l, ok := c.LookupByID(listID)
	if !ok {
		return "", false
	}
	counts := make(map[string]int)
	var order []string
	for _, ev := range c.Selections(l.ID) {
		if !l.Allows(ev.Value) {
			continue
		}
		if counts[ev.Value] == 0 {
			order = append(order, ev.Value)
		}
		counts[ev.Value]++
	}
	best, bestN := "", 0
	for _, v := range order {
		if counts[v] > bestN {
			best, bestN = v, counts[v]
		}
	}
	return best, bestN > 0
}
