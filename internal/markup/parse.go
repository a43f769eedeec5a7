package markup

import "strings"

const (
	linkSentinel = '@'
	aliasPrefix  = '.'
	wildcard     = "***"
)

// Parse scans text once, left to right, and returns every markup occurrence
// in position order. Spans never overlap.
//
// At each offset the matchers are tried in the fixed order link, alias,
// wildcard, list and the first match wins. A SmartList whose label contains
// a link, alias or wildcard is not a SmartList: the inner element is
// reported instead.
//
// A dot preceded by a digit is a decimal point unless the digit ends an
// alias matched immediately before it, so ".A1.B" yields two aliases.
func Parse(text string) []Occurrence {
	var out []Occurrence
	for i := 0; i < len(text); {
		afterAlias := len(out) > 0 && out[len(out)-1].Kind == KindAlias && out[len(out)-1].End == i
		if occ, ok := matchAt(text, i, afterAlias); ok {
			out = append(out, occ)
			i = occ.End
			continue
		}
		if text[i] == '*' {
			// Star runs that are not exactly three long are skipped whole so
			// that "****" never yields a wildcard from its tail.
			i += starRun(text, i)
			continue
		}
		i++
	}
	return out
}

func matchAt(text string, i int, afterAlias bool) (Occurrence, bool) {
	if occ, ok := matchLink(text, i); ok {
		return occ, true
	}
	if occ, ok := matchAlias(text, i, afterAlias); ok {
		return occ, true
	}
	if occ, ok := matchWildcard(text, i); ok {
		return occ, true
	}
	return matchList(text, i)
}

// matchLink matches "@Name@". Names start with a letter like aliases do.
func matchLink(text string, i int) (Occurrence, bool) {
	if text[i] != linkSentinel || i+1 >= len(text) || !isLetter(text[i+1]) {
		return Occurrence{}, false
	}
	j := i + 1
	for j < len(text) && isIdent(text[j]) {
		j++
	}
	if j == i+1 || j >= len(text) || text[j] != linkSentinel {
		return Occurrence{}, false
	}
	return Occurrence{Kind: KindLink, Start: i, End: j + 1, Identifier: text[i+1 : j]}, true
}

// matchAlias matches ".Name". A dot preceded by a digit is a decimal point
// unless afterAlias is set.
func matchAlias(text string, i int, afterAlias bool) (Occurrence, bool) {
	if text[i] != aliasPrefix || i+1 >= len(text) || !isLetter(text[i+1]) {
		return Occurrence{}, false
	}
	if !afterAlias && i > 0 && isDigit(text[i-1]) {
		return Occurrence{}, false
	}
	j := i + 2
	for j < len(text) && isIdent(text[j]) {
		j++
	}
	return Occurrence{Kind: KindAlias, Start: i, End: j, Identifier: text[i+1 : j]}, true
}

func matchWildcard(text string, i int) (Occurrence, bool) {
	if text[i] != '*' || (i > 0 && text[i-1] == '*') || starRun(text, i) != len(wildcard) {
		return Occurrence{}, false
	}
	return Occurrence{Kind: KindWildcard, Start: i, End: i + len(wildcard)}, true
}

func starRun(text string, i int) int {
	n := 0
	for i+n < len(text) && text[i+n] == '*' {
		n++
	}
	return n
}

// matchList matches {Label:123} and {Label:123:: "value"} with optional
// blanks around the label, the id and the value.
func matchList(text string, i int) (Occurrence, bool) {
	if text[i] != '{' {
		return Occurrence{}, false
	}
	j := i + 1
	for j < len(text) && !strings.ContainsRune(":}{\n", rune(text[j])) {
		j++
	}
	if j >= len(text) || text[j] != ':' {
		return Occurrence{}, false
	}
	label := strings.TrimSpace(text[i+1 : j])
	if label == "" || containsMarkup(label) {
		return Occurrence{}, false
	}
	j = skipBlanks(text, j+1)
	idStart := j
	for j < len(text) && isDigit(text[j]) {
		j++
	}
	if j == idStart {
		return Occurrence{}, false
	}
	occ := Occurrence{Kind: KindList, Start: i, Label: label, ListID: text[idStart:j]}
	j = skipBlanks(text, j)

	if strings.HasPrefix(text[j:], "::") {
		j = skipBlanks(text, j+2)
		if j >= len(text) || text[j] != '"' {
			return Occurrence{}, false
		}
		valStart := j + 1
		end := strings.IndexAny(text[valStart:], "\"\n")
		if end < 0 || text[valStart+end] != '"' {
			return Occurrence{}, false
		}
		occ.Value = text[valStart : valStart+end]
		occ.Selected = true
		j = skipBlanks(text, valStart+end+1)
	}

	if j >= len(text) || text[j] != '}' {
		return Occurrence{}, false
	}
	occ.End = j + 1
	return occ, true
}

// containsMarkup reports whether a link, alias or wildcard occurs in s.
func containsMarkup(s string) bool {
	for k := 0; k < len(s); k++ {
		if _, ok := matchLink(s, k); ok {
			return true
		}
		if _, ok := matchAlias(s, k, false); ok {
			return true
		}
		if _, ok := matchWildcard(s, k); ok {
			return true
		}
	}
	return false
}

func skipBlanks(text string, j int) int {
	for j < len(text) && (text[j] == ' ' || text[j] == '\t') {
		j++
	}
	return j
}

func isLetter(c byte) bool { return (c >= 'a' && c <= 'z') || (c >= 'A' && c <= 'Z') }
func isDigit(c byte) bool  { return c >= '0' && c <= '9' }
func isIdent(c byte) bool  { return isLetter(c) || isDigit(c) || c == '_' }
