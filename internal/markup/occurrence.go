// Package markup parses and rewrites Epic SmartTools markup: SmartLinks
// (@NAME@), DotPhrases (.NAME), wildcards (***) and SmartLists
// ({Label:1234} and {Label:1234:: "value"}).
//
// Parsing and rewriting are total functions over arbitrary text. Malformed
// fragments are left in place as plain text.
package markup

import "sort"

// Kind identifies the type of a markup occurrence.
type Kind int

const (
	KindText Kind = iota
	KindLink
	KindAlias
	KindWildcard
	KindList
)

func (k Kind) String() string {
	switch k {
	case KindLink:
		return "link"
	case KindAlias:
		return "alias"
	case KindWildcard:
		return "wildcard"
	case KindList:
		return "list"
	default:
		return "text"
	}
}

// Occurrence is one markup element found in a text, covering the byte range
// [Start, End).
//
// Identifier is set for links and aliases. Label, ListID, Value and Selected
// are set for SmartLists; Value is only meaningful when Selected is true.
type Occurrence struct {
	Kind       Kind   `json:"kind"`
	Start      int    `json:"start"`
	End        int    `json:"end"`
	Identifier string `json:"identifier,omitempty"`
	Label      string `json:"label,omitempty"`
	ListID     string `json:"list_id,omitempty"`
	Value      string `json:"value,omitempty"`
	Selected   bool   `json:"selected,omitempty"`
}

// Text returns the source text the occurrence covers.
func (o Occurrence) Text(src string) string {
	return src[o.Start:o.End]
}

// Counts tallies occurrences per kind.
type Counts struct {
	Links      int `json:"links"`
	Aliases    int `json:"aliases"`
	Wildcards  int `json:"wildcards"`
	Lists      int `json:"lists"`
	Selected   int `json:"selected"`
	Unselected int `json:"unselected"`
}

// CountKinds returns per-kind counts for occs.
func CountKinds(occs []Occurrence) Counts {
	var c Counts
	for _, o := range occs {
		switch o.Kind {
		case KindLink:
			c.Links++
		case KindAlias:
			c.Aliases++
		case KindWildcard:
			c.Wildcards++
		case KindList:
			c.Lists++
			if o.Selected {
				c.Selected++
			} else {
				c.Unselected++
			}
		}
	}
	return c
}

// Filter returns the occurrences of the given kind, preserving order.
func Filter(occs []Occurrence, kind Kind) []Occurrence {
	var out []Occurrence
	for _, o := range occs {
		if o.Kind == kind {
			out = append(out, o)
		}
	}
	return out
}

// Has reports whether any occurrence has the given kind.
func Has(occs []Occurrence, kind Kind) bool {
	for _, o := range occs {
		if o.Kind == kind {
			return true
		}
	}
	return false
}

// Identifiers returns the unique identifiers of the given kind in first-seen
// order. For SmartLists the list ID is returned; wildcards have none.
func Identifiers(occs []Occurrence, kind Kind) []string {
	seen := make(map[string]struct{})
	var out []string
	for _, o := range occs {
		if o.Kind != kind {
			continue
		}
		id := o.Identifier
		if kind == KindList {
			id = o.ListID
		}
		if id == "" {
			continue
		}
		if _, dup := seen[id]; dup {
			continue
		}
		seen[id] = struct{}{}
		out = append(out, id)
	}
	return out
}

// Merge combines occurrence groups into a single position-sorted slice.
func Merge(groups ...[]Occurrence) []Occurrence {
	var out []Occurrence
	for _, g := range groups {
		out = append(out, g...)
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].Start < out[j].Start })
	return out
}

// Segment is a run of text that is either plain (KindText) or one markup element.
type Segment struct {
	Kind  Kind   `json:"kind"`
	Start int    `json:"start"`
	Text  string `json:"text"`
}

// Segments splits text into alternating plain and markup segments, for
// highlighting. occs must be position-sorted and non-overlapping, as
// returned by Parse.
func Segments(text string, occs []Occurrence) []Segment {
	var out []Segment
	pos := 0
	for _, o := range occs {
		if o.Start < pos || o.End > len(text) {
			continue
		}
		if o.Start > pos {
			out = append(out, Segment{Kind: KindText, Start: pos, Text: text[pos:o.Start]})
		}
		out = append(out, Segment{Kind: o.Kind, Start: o.Start, Text: text[o.Start:o.End]})
		pos = o.End
	}
	if pos < len(text) {
		out = append(out, Segment{Kind: KindText, Start: pos, Text: text[pos:]})
	}
	return out
}
