package markup

import (
	"fmt"
	"strings"
)

// Selection is the decoded form of a SmartList reference.
type Selection struct {
	Label    string `json:"label"`
	ListID   string `json:"list_id"`
	Value    string `json:"value,omitempty"`
	Selected bool   `json:"selected"`
}

var (
	labelCleaner = strings.NewReplacer(":", "", "{", "", "}", "", "\n", " ")
	valueCleaner = strings.NewReplacer(`"`, "'", "\n", " ")
)

// LinksToAliases rewrites every @NAME@ SmartLink to its .NAME DotPhrase form.
func LinksToAliases(text string) string {
	return rewrite(text, Parse(text), func(o Occurrence) (string, bool) {
		if o.Kind != KindLink {
			return "", false
		}
		return string(aliasPrefix) + o.Identifier, true
	})
}

// AliasesToLinks rewrites every .NAME DotPhrase to its @NAME@ SmartLink form.
func AliasesToLinks(text string) string {
	return rewrite(text, Parse(text), func(o Occurrence) (string, bool) {
		if o.Kind != KindAlias {
			return "", false
		}
		return string(linkSentinel) + o.Identifier + string(linkSentinel), true
	})
}

// FormatSelection builds the selected SmartList form {Label:ID:: "value"}.
// Characters that would break the grammar are neutralised so the result
// always parses back to the same list.
func FormatSelection(label, listID, value string) string {
	return fmt.Sprintf(`{%s:%s:: "%s"}`,
		strings.TrimSpace(labelCleaner.Replace(label)), listID, valueCleaner.Replace(value))
}

// FormatReference builds the unselected SmartList form {Label:ID}.
func FormatReference(label, listID string) string {
	return fmt.Sprintf("{%s:%s}", strings.TrimSpace(labelCleaner.Replace(label)), listID)
}

// ParseSelection decodes s when it consists of exactly one SmartList
// reference, selected or not.
func ParseSelection(s string) (Selection, bool) {
	s = strings.TrimSpace(s)
	occs := Parse(s)
	if len(occs) != 1 {
		return Selection{}, false
	}
	o := occs[0]
	if o.Kind != KindList || o.Start != 0 || o.End != len(s) {
		return Selection{}, false
	}
	return Selection{Label: o.Label, ListID: o.ListID, Value: o.Value, Selected: o.Selected}, true
}

// SubstituteWildcards fills wildcards in document order from replacements.
// Wildcards left over once replacements run out are kept verbatim.
func SubstituteWildcards(text string, replacements []string) string {
	next := 0
	return rewrite(text, Parse(text), func(o Occurrence) (string, bool) {
		if o.Kind != KindWildcard || next >= len(replacements) {
			return "", false
		}
		r := replacements[next]
		next++
		return r, true
	})
}

// ResolveLists rewrites unselected SmartLists whose ID has an entry in
// selections to the selected form. Already-selected references are untouched,
// so resolving twice is a no-op.
func ResolveLists(text string, selections map[string]string) string {
	return rewrite(text, Parse(text), func(o Occurrence) (string, bool) {
		if o.Kind != KindList || o.Selected {
			return "", false
		}
		v, ok := selections[o.ListID]
		if !ok {
			return "", false
		}
		return FormatSelection(o.Label, o.ListID, v), true
	})
}

// FindUnselected returns every SmartList reference in text that has no
// selection yet, in document order.
func FindUnselected(text string) []Selection {
	var out []Selection
	for _, o := range Parse(text) {
		if o.Kind == KindList && !o.Selected {
			out = append(out, Selection{Label: o.Label, ListID: o.ListID})
		}
	}
	return out
}

// rewrite copies text, replacing the spans for which fn returns true.
func rewrite(text string, occs []Occurrence, fn func(Occurrence) (string, bool)) string {
	var b strings.Builder
	b.Grow(len(text))
	pos := 0
	for _, o := range occs {
		repl, ok := fn(o)
		if !ok {
			continue
		}
		b.WriteString(text[pos:o.Start])
		b.WriteString(repl)
		pos = o.End
	}
	if pos == 0 {
		return text
	}
	b.WriteString(text[pos:])
	return b.String()
}
