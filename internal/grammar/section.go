package grammar

import "strings"

// Section is the text between one recognized header and the next.
type Section struct {
	Name   string `json:"name"`
	Header string `json:"header"`
	Line   int    `json:"line"`
	Start  int    `json:"start"`
	End    int    `json:"end"`
	Body   string `json:"body"`
}

// SectionedNote is a note split at recognized headers. Text before the
// first header is kept as Preamble.
type SectionedNote struct {
	Text     string    `json:"-"`
	Preamble string    `json:"preamble,omitempty"`
	Sections []Section `json:"sections"`
}

// Get returns the first section with the given name, ignoring case.
func (n *SectionedNote) Get(name string) (Section, bool) {
	for _, s := range n.Sections {
		if strings.EqualFold(s.Name, name) {
			return s, true
		}
	}
	return Section{}, false
}

// Sectioner splits notes at a fixed set of header lines.
type Sectioner struct {
	canonical map[string]string
}

// NewSectioner returns a sectioner recognizing headers, case-insensitively.
func NewSectioner(headers []string) *Sectioner {
	s := &Sectioner{canonical: make(map[string]string, len(headers))}
	for _, h := range headers {
		s.canonical[headerKey(h)] = strings.TrimSpace(h)
	}
	return s
}

// Split slices text into sections. A header is a line holding only a
// recognized header name, optionally followed by a colon. Lines that look
// like headers but are not recognized stay in the current section's body.
func (s *Sectioner) Split(text string) *SectionedNote {
	note := &SectionedNote{Text: text}
	current := -1
	preambleEnd := len(text)

	lineNo := 0
	for pos := 0; pos < len(text); {
		lineNo++
		end := strings.IndexByte(text[pos:], '\n')
		next := len(text)
		if end >= 0 {
			end += pos
			next = end + 1
		} else {
			end = len(text)
		}
		line := text[pos:end]

		if name, ok := s.match(line); ok {
			if current >= 0 {
				note.Sections[current].End = pos
			} else {
				preambleEnd = pos
			}
			note.Sections = append(note.Sections, Section{
				Name:   name,
				Header: strings.TrimSpace(line),
				Line:   lineNo,
				Start:  next,
			})
			current = len(note.Sections) - 1
		}
		pos = next
	}

	if current >= 0 {
		note.Sections[current].End = len(text)
	}
	note.Preamble = strings.TrimSpace(text[:preambleEnd])
	for i := range note.Sections {
		sec := &note.Sections[i]
		if sec.Start > sec.End {
			sec.Start = sec.End
		}
		sec.Body = text[sec.Start:sec.End]
	}
	return note
}

func (s *Sectioner) match(line string) (string, bool) {
	name, ok := s.canonical[headerKey(line)]
	return name, ok
}

func headerKey(line string) string {
	key := strings.TrimSpace(line)
	key = strings.TrimSuffix(key, ":")
	return strings.ToLower(strings.TrimSpace(key))
}

// Paragraphs splits text at blank lines and returns the non-empty
// paragraphs, trimmed.
func Paragraphs(text string) []string {
	var out []string
	var cur []string
	flush := func() {
		if p := strings.TrimSpace(strings.Join(cur, "\n")); p != "" {
			out = append(out, p)
		}
		cur = cur[:0]
	}
	for _, line := range strings.Split(text, "\n") {
		if strings.TrimSpace(line) == "" {
			flush()
			continue
		}
		cur = append(cur, line)
	}
	flush()
	return out
}

// lastNonBlankLine returns the last line of text with content, trimmed.
func lastNonBlankLine(text string) string {
	lines := strings.Split(text, "\n")
	for i := len(lines) - 1; i >= 0; i-- {
		if l := strings.TrimSpace(lines[i]); l != "" {
			return l
		}
	}
	return ""
}
