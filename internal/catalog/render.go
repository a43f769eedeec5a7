package catalog

import (
	"fmt"
	"strings"

	"github.com/starford/smartscribe/internal/markup"
)

const (
	renderHeader = "=== SMARTLIST DEFINITIONS ===\n" +
		"Each SmartList below has a fixed set of allowed values. Pick exactly one value per list,\n" +
		"copy it verbatim and write it in the output syntax shown. Prefer [DEFAULT] when the\n" +
		"transcript does not clearly support another value.\n"
	renderFooter = "=== END SMARTLIST DEFINITIONS ==="

	selectedPlaceholder = "selected value"
)

// RenderForPrompt describes one list for an LLM: its name, allowed values
// annotated with [DEFAULT] and [MOST COMMON], and the selected-form syntax.
// Unknown ids render as an empty string.
func (c *Catalog) RenderForPrompt(id string) string {
	l, ok := c.LookupByID(id)
	if !ok {
		return ""
	}
	common, _ := c.MostFrequent(l.ID)
	return renderList(l, common)
}

// RenderManyForPrompt renders every known id once, in the given order,
// inside a definitions block. It returns "" when nothing is rendered.
func (c *Catalog) RenderManyForPrompt(ids []string) string {
	seen := make(map[string]struct{}, len(ids))
	var blocks []string
	for _, id := range ids {
		if _, dup := seen[id]; dup {
			continue
		}
		seen[id] = struct{}{}
		if block := c.RenderForPrompt(id); block != "" {
			blocks = append(blocks, block)
		}
	}
	if len(blocks) == 0 {
		return ""
	}
	return renderHeader + "\n" + strings.Join(blocks, "\n") + "\n" + renderFooter
}

func renderList(l List, common string) string {
	var b strings.Builder
	fmt.Fprintf(&b, "SmartList %q (ID %s)", l.Name(), l.ID)
	if l.Group != "" {
		fmt.Fprintf(&b, " group %q", l.Group)
	}
	b.WriteString("\nAllowed values:\n")
	for _, o := range l.Options {
		fmt.Fprintf(&b, "  - \"%s\"", o.Text)
		if o.Default {
			b.WriteString(" [DEFAULT]")
		}
		if common != "" && o.Text == common {
			b.WriteString(" [MOST COMMON]")
		}
		b.WriteByte('\n')
	}
	fmt.Fprintf(&b, "Output syntax: %s\n", markup.FormatSelection(l.Name(), l.ID, selectedPlaceholder))
	return b.String()
}
